package credit

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"greenride/certification-backend/pkg/faults"
	"greenride/certification-backend/pkg/security"
)

// memRepository mimics the persistence contract, including the unique index
// on verification_request_id and the all-or-nothing issuance transaction, so
// idempotency, race and partial-failure behavior can be exercised.
type memRepository struct {
	mu        sync.Mutex
	credits   map[uuid.UUID]*CarbonCredit
	byRequest map[uuid.UUID]uuid.UUID
	wallets   map[string]*Wallet

	issueErr error
}

func newMemRepository() *memRepository {
	return &memRepository{
		credits:   make(map[uuid.UUID]*CarbonCredit),
		byRequest: make(map[uuid.UUID]uuid.UUID),
		wallets:   make(map[string]*Wallet),
	}
}

func (m *memRepository) IssueCredit(ctx context.Context, credit *CarbonCredit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byRequest[credit.VerificationRequestID]; exists {
		return ErrDuplicateRequest
	}
	if m.issueErr != nil {
		return m.issueErr
	}

	wallet := &Wallet{ID: uuid.New(), OwnerID: credit.OwnerID}
	if existing, ok := m.wallets[credit.OwnerID]; ok {
		clone := *existing
		clone.Credits = append([]WalletCredit(nil), existing.Credits...)
		clone.Transactions = append([]WalletTransaction(nil), existing.Transactions...)
		wallet = &clone
	}
	wallet.ApplyIssue(credit)

	creditClone := *credit
	m.credits[credit.ID] = &creditClone
	m.byRequest[credit.VerificationRequestID] = credit.ID
	m.wallets[credit.OwnerID] = wallet
	return nil
}

func (m *memRepository) GetCreditByID(ctx context.Context, id uuid.UUID) (*CarbonCredit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	credit, ok := m.credits[id]
	if !ok {
		return nil, nil
	}
	clone := *credit
	return &clone, nil
}

func (m *memRepository) GetCreditByRequestID(ctx context.Context, requestID uuid.UUID) (*CarbonCredit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byRequest[requestID]
	if !ok {
		return nil, nil
	}
	clone := *m.credits[id]
	return &clone, nil
}

func (m *memRepository) ListCredits(ctx context.Context, filter Filter, page, limit int) ([]CarbonCredit, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []CarbonCredit
	for _, credit := range m.credits {
		if filter.OwnerID != nil && credit.OwnerID != *filter.OwnerID {
			continue
		}
		out = append(out, *credit)
	}
	return out, len(out), nil
}

func (m *memRepository) GetWallet(ctx context.Context, ownerID string) (*Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wallet, ok := m.wallets[ownerID]
	if !ok {
		return nil, nil
	}
	clone := *wallet
	clone.Credits = append([]WalletCredit(nil), wallet.Credits...)
	clone.Transactions = append([]WalletTransaction(nil), wallet.Transactions...)
	return &clone, nil
}

func validIssueRequest() IssueRequest {
	return IssueRequest{
		VerificationRequestID: uuid.New(),
		AuditRecordID:         uuid.New(),
		OwnerID:               "owner-1",
		Amount:                20.00,
		CO2Reduced:            200.00,
	}
}

func TestIssueCreatesCreditAndWallet(t *testing.T) {
	repo := newMemRepository()
	svc := NewService(repo, zap.NewNop())

	req := validIssueRequest()
	credit, err := svc.Issue(context.Background(), req)

	assert.NoError(t, err)
	assert.Equal(t, req.VerificationRequestID, credit.VerificationRequestID)
	assert.Equal(t, CreditStatusIssued, credit.Status)
	assert.True(t, security.VerifyCertificate(credit.CertificateHash,
		credit.ID.String(), credit.OwnerID, credit.Amount, credit.CO2Reduced, credit.IssueDate))

	wallet, err := svc.GetWallet(context.Background(), "owner-1")
	assert.NoError(t, err)
	assert.Equal(t, 20.00, wallet.TotalCredits)
	assert.Equal(t, 20.00, wallet.AvailableCredits)
	assert.Len(t, wallet.Credits, 1)
	assert.Len(t, wallet.Transactions, 1)
	assert.Equal(t, TransactionIssue, wallet.Transactions[0].Type)
}

func TestIssueValidatesBeforeAnyWrite(t *testing.T) {
	repo := newMemRepository()
	svc := NewService(repo, zap.NewNop())

	tests := []struct {
		name   string
		mutate func(*IssueRequest)
	}{
		{"missing request id", func(r *IssueRequest) { r.VerificationRequestID = uuid.Nil }},
		{"missing owner", func(r *IssueRequest) { r.OwnerID = "" }},
		{"zero amount", func(r *IssueRequest) { r.Amount = 0 }},
		{"negative co2", func(r *IssueRequest) { r.CO2Reduced = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validIssueRequest()
			tt.mutate(&req)

			credit, err := svc.Issue(context.Background(), req)

			assert.Nil(t, credit)
			assert.True(t, faults.IsKind(err, faults.KindInvalidInput))
			assert.Empty(t, repo.credits)
			assert.Empty(t, repo.wallets)
		})
	}
}

func TestIssueIdenticalRetryIsIdempotent(t *testing.T) {
	repo := newMemRepository()
	svc := NewService(repo, zap.NewNop())
	req := validIssueRequest()

	first, err := svc.Issue(context.Background(), req)
	assert.NoError(t, err)

	second, err := svc.Issue(context.Background(), req)
	assert.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	assert.Len(t, repo.credits, 1)

	wallet, err := svc.GetWallet(context.Background(), "owner-1")
	assert.NoError(t, err)
	assert.Equal(t, 20.00, wallet.TotalCredits)
	assert.Len(t, wallet.Credits, 1)
	assert.Len(t, wallet.Transactions, 1)
}

func TestIssueRetryAfterStoreFailureConverges(t *testing.T) {
	repo := newMemRepository()
	svc := NewService(repo, zap.NewNop())
	req := validIssueRequest()

	// The issuance transaction fails entirely; no credit and no wallet delta
	// may survive it.
	repo.issueErr = errors.New("connection reset during commit")
	credit, err := svc.Issue(context.Background(), req)
	assert.Error(t, err)
	assert.Nil(t, credit)
	assert.Empty(t, repo.credits)
	assert.Empty(t, repo.wallets)

	repo.issueErr = nil
	credit, err = svc.Issue(context.Background(), req)
	assert.NoError(t, err)
	assert.Len(t, repo.credits, 1)

	wallet, err := svc.GetWallet(context.Background(), "owner-1")
	assert.NoError(t, err)
	assert.Equal(t, 20.00, wallet.TotalCredits)
	assert.Len(t, wallet.Credits, 1)
	assert.Len(t, wallet.Transactions, 1)
	assert.Equal(t, credit.ID, wallet.Credits[0].CreditID)
}

func TestIssueConflictingRetryFails(t *testing.T) {
	repo := newMemRepository()
	svc := NewService(repo, zap.NewNop())
	req := validIssueRequest()

	_, err := svc.Issue(context.Background(), req)
	assert.NoError(t, err)

	conflicting := req
	conflicting.Amount = 25.00

	credit, err := svc.Issue(context.Background(), conflicting)

	assert.Nil(t, credit)
	assert.True(t, faults.IsKind(err, faults.KindConflict))
	assert.Len(t, repo.credits, 1)
}

func TestIssueConcurrentRequestsMintOneCredit(t *testing.T) {
	repo := newMemRepository()
	svc := NewService(repo, zap.NewNop())
	req := validIssueRequest()

	const attempts = 16
	results := make(chan *CarbonCredit, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			credit, err := svc.Issue(context.Background(), req)
			assert.NoError(t, err)
			results <- credit
		}()
	}
	wg.Wait()
	close(results)

	var firstID uuid.UUID
	for credit := range results {
		if firstID == uuid.Nil {
			firstID = credit.ID
		}
		assert.Equal(t, firstID, credit.ID)
	}

	assert.Len(t, repo.credits, 1)
	wallet, err := svc.GetWallet(context.Background(), "owner-1")
	assert.NoError(t, err)
	assert.Equal(t, 20.00, wallet.TotalCredits)
	assert.Len(t, wallet.Transactions, 1)
}

func TestWalletTotalsInvariant(t *testing.T) {
	repo := newMemRepository()
	svc := NewService(repo, zap.NewNop())

	for i := 0; i < 3; i++ {
		req := validIssueRequest()
		req.Amount = 10.00
		req.CO2Reduced = 100.00
		_, err := svc.Issue(context.Background(), req)
		assert.NoError(t, err)
	}

	wallet, err := svc.GetWallet(context.Background(), "owner-1")
	assert.NoError(t, err)

	total, available := RecomputeTotals(wallet.Credits)
	assert.Equal(t, total, wallet.TotalCredits)
	assert.Equal(t, available, wallet.AvailableCredits)
	assert.Equal(t, 30.00, wallet.TotalCredits)
	assert.Len(t, wallet.Transactions, 3)
}

func TestRecomputeTotalsExcludesNonIssued(t *testing.T) {
	credits := []WalletCredit{
		{Amount: 10, Status: CreditStatusIssued},
		{Amount: 5, Status: CreditStatusRetired},
		{Amount: 7, Status: CreditStatusTransferred},
	}

	total, available := RecomputeTotals(credits)
	assert.Equal(t, 22.0, total)
	assert.Equal(t, 10.0, available)
}

func TestGetCreditNotFound(t *testing.T) {
	svc := NewService(newMemRepository(), zap.NewNop())

	credit, err := svc.GetCredit(context.Background(), uuid.New())

	assert.Nil(t, credit)
	assert.True(t, faults.IsKind(err, faults.KindNotFound))
}

func TestGetWalletNotFound(t *testing.T) {
	svc := NewService(newMemRepository(), zap.NewNop())

	wallet, err := svc.GetWallet(context.Background(), "stranger")

	assert.Nil(t, wallet)
	assert.True(t, faults.IsKind(err, faults.KindNotFound))
}

func TestTransferNotSupported(t *testing.T) {
	repo := newMemRepository()
	svc := NewService(repo, zap.NewNop())

	credit, err := svc.Issue(context.Background(), validIssueRequest())
	assert.NoError(t, err)

	err = svc.Transfer(context.Background(), credit.ID, "owner-2")
	assert.True(t, faults.IsKind(err, faults.KindInvalidInput))

	err = svc.Transfer(context.Background(), uuid.New(), "owner-2")
	assert.True(t, faults.IsKind(err, faults.KindNotFound))
}
