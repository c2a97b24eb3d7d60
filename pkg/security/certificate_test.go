package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCertificateHashDeterministic(t *testing.T) {
	issuedAt := time.Date(2024, 10, 21, 12, 0, 0, 0, time.UTC)

	first := CertificateHash("credit-1", "owner-1", 20.00, 200.00, issuedAt)
	second := CertificateHash("credit-1", "owner-1", 20.00, 200.00, issuedAt)

	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
	assert.True(t, VerifyCertificate(first, "credit-1", "owner-1", 20.00, 200.00, issuedAt))
}

func TestCertificateHashBindsEveryField(t *testing.T) {
	issuedAt := time.Date(2024, 10, 21, 12, 0, 0, 0, time.UTC)
	base := CertificateHash("credit-1", "owner-1", 20.00, 200.00, issuedAt)

	assert.NotEqual(t, base, CertificateHash("credit-2", "owner-1", 20.00, 200.00, issuedAt))
	assert.NotEqual(t, base, CertificateHash("credit-1", "owner-2", 20.00, 200.00, issuedAt))
	assert.NotEqual(t, base, CertificateHash("credit-1", "owner-1", 21.00, 200.00, issuedAt))
	assert.NotEqual(t, base, CertificateHash("credit-1", "owner-1", 20.00, 201.00, issuedAt))
	assert.NotEqual(t, base, CertificateHash("credit-1", "owner-1", 20.00, 200.00, issuedAt.Add(time.Second)))

	assert.False(t, VerifyCertificate(base, "credit-1", "owner-1", 20.00, 200.01, issuedAt))
}
