package credit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"greenride/certification-backend/pkg/faults"
	"greenride/certification-backend/pkg/security"
	"greenride/certification-backend/pkg/workflows"
)

type Service interface {
	Issue(ctx context.Context, req IssueRequest) (*CarbonCredit, error)
	GetCredit(ctx context.Context, id uuid.UUID) (*CarbonCredit, error)
	GetWallet(ctx context.Context, ownerID string) (*Wallet, error)
	List(ctx context.Context, filter Filter, page, limit int) (*ListResponse, error)
	Transfer(ctx context.Context, creditID uuid.UUID, newOwnerID string) error
	Retire(ctx context.Context, creditID uuid.UUID) error
}

type service struct {
	repo   Repository
	locks  *workflows.KeyLock
	logger *zap.Logger
}

// NewService creates the credit ledger service
func NewService(repo Repository, logger *zap.Logger) Service {
	return &service{
		repo:   repo,
		locks:  workflows.NewKeyLock(),
		logger: logger,
	}
}

// Issue mints at most one carbon credit per verification request. The credit
// row and its wallet delta commit in a single transaction, so a failed
// issuance leaves nothing behind. A retried call with identical parameters
// returns the already issued credit and makes no further wallet changes; a
// retry with conflicting parameters fails with Conflict. Local validation
// happens before any write.
func (s *service) Issue(ctx context.Context, req IssueRequest) (*CarbonCredit, error) {
	if req.VerificationRequestID == uuid.Nil {
		return nil, faults.New(faults.KindInvalidInput, "verification request id is required")
	}
	if req.OwnerID == "" {
		return nil, faults.New(faults.KindInvalidInput, "owner id is required")
	}
	if req.Amount <= 0 {
		return nil, faults.New(faults.KindInvalidInput, "amount must be greater than 0")
	}
	if req.CO2Reduced <= 0 {
		return nil, faults.New(faults.KindInvalidInput, "co2 reduced must be greater than 0")
	}

	key := req.VerificationRequestID.String()
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	existing, err := s.repo.GetCreditByRequestID(ctx, req.VerificationRequestID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing issuance: %w", err)
	}
	if existing != nil {
		return s.resolveDuplicate(existing, req)
	}

	now := time.Now()
	creditID := uuid.New()
	credit := &CarbonCredit{
		ID:                    creditID,
		VerificationRequestID: req.VerificationRequestID,
		AuditRecordID:         req.AuditRecordID,
		OwnerID:               req.OwnerID,
		Amount:                req.Amount,
		CO2Reduced:            req.CO2Reduced,
		IssueDate:             now,
		Status:                CreditStatusIssued,
		CertificateHash:       security.CertificateHash(creditID.String(), req.OwnerID, req.Amount, req.CO2Reduced, now),
	}
	if req.Metadata != nil {
		metaJSON, err := json.Marshal(req.Metadata)
		if err != nil {
			return nil, faults.Wrap(err, faults.KindInvalidInput, "invalid metadata")
		}
		credit.Metadata = datatypes.JSON(metaJSON)
	}

	if err := s.repo.IssueCredit(ctx, credit); err != nil {
		if errors.Is(err, ErrDuplicateRequest) {
			// Lost the race against another process. Converge on its credit.
			existing, getErr := s.repo.GetCreditByRequestID(ctx, req.VerificationRequestID)
			if getErr != nil || existing == nil {
				return nil, faults.New(faults.KindConflict, "credit already issued for this request")
			}
			return s.resolveDuplicate(existing, req)
		}
		return nil, err
	}

	s.logger.Info("Carbon credits issued",
		zap.String("credit_id", credit.ID.String()),
		zap.String("request_id", req.VerificationRequestID.String()),
		zap.String("owner_id", req.OwnerID),
		zap.Float64("amount", req.Amount))

	return credit, nil
}

// resolveDuplicate decides between idempotent success and a genuine conflict
func (s *service) resolveDuplicate(existing *CarbonCredit, req IssueRequest) (*CarbonCredit, error) {
	const epsilon = 0.005
	if existing.OwnerID == req.OwnerID &&
		math.Abs(existing.Amount-req.Amount) < epsilon &&
		math.Abs(existing.CO2Reduced-req.CO2Reduced) < epsilon {
		s.logger.Info("Duplicate issuance request, returning existing credit",
			zap.String("credit_id", existing.ID.String()),
			zap.String("request_id", existing.VerificationRequestID.String()))
		return existing, nil
	}
	return nil, faults.Newf(faults.KindConflict,
		"credit %s already issued for this request with different parameters", existing.ID)
}

func (s *service) GetCredit(ctx context.Context, id uuid.UUID) (*CarbonCredit, error) {
	credit, err := s.repo.GetCreditByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch credit: %w", err)
	}
	if credit == nil {
		return nil, faults.New(faults.KindNotFound, "carbon credit not found")
	}
	return credit, nil
}

func (s *service) GetWallet(ctx context.Context, ownerID string) (*Wallet, error) {
	if ownerID == "" {
		return nil, faults.New(faults.KindInvalidInput, "owner id is required")
	}
	wallet, err := s.repo.GetWallet(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch wallet: %w", err)
	}
	if wallet == nil {
		return nil, faults.New(faults.KindNotFound, "wallet not found for this owner")
	}
	return wallet, nil
}

func (s *service) List(ctx context.Context, filter Filter, page, limit int) (*ListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	credits, total, err := s.repo.ListCredits(ctx, filter, page, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list credits: %w", err)
	}

	return &ListResponse{
		Credits: credits,
		Pagination: Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: int(math.Ceil(float64(total) / float64(limit))),
		},
	}, nil
}

// Transfer is a placeholder; secondary-market transfers are out of scope.
func (s *service) Transfer(ctx context.Context, creditID uuid.UUID, newOwnerID string) error {
	if newOwnerID == "" {
		return faults.New(faults.KindInvalidInput, "new owner id is required")
	}
	if _, err := s.GetCredit(ctx, creditID); err != nil {
		return err
	}
	return faults.New(faults.KindInvalidInput, "credit transfer is not yet supported")
}

// Retire is a placeholder; retirement is out of scope.
func (s *service) Retire(ctx context.Context, creditID uuid.UUID) error {
	if _, err := s.GetCredit(ctx, creditID); err != nil {
		return err
	}
	return faults.New(faults.KindInvalidInput, "credit retirement is not yet supported")
}
