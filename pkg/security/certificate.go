package security

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// CertificateHash computes the deterministic integrity hash binding a credit
// to its owner, amount, reduction and issuance time. Recomputing the hash from
// the stored fields must always reproduce the stored value.
func CertificateHash(creditID, ownerID string, amount, co2Reduced float64, issuedAt time.Time) string {
	data := fmt.Sprintf("%s-%s-%.2f-%.2f-%d", creditID, ownerID, amount, co2Reduced, issuedAt.UnixMilli())
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}

// VerifyCertificate reports whether a stored hash matches the credit fields it binds.
func VerifyCertificate(hash, creditID, ownerID string, amount, co2Reduced float64, issuedAt time.Time) bool {
	return hash == CertificateHash(creditID, ownerID, amount, co2Reduced, issuedAt)
}
