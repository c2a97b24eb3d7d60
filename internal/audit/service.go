package audit

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"greenride/certification-backend/internal/co2"
	"greenride/certification-backend/internal/credit"
	"greenride/certification-backend/internal/verification"
	"greenride/certification-backend/pkg/faults"
	"greenride/certification-backend/pkg/workflows"
)

// VerificationClient is the audit service's view of the verification service
type VerificationClient interface {
	GetRequest(ctx context.Context, id uuid.UUID) (*verification.VerificationRequest, error)
	ListRequests(ctx context.Context, status string, page, limit int) (*verification.ListResponse, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status verification.Status, notes string) error
}

// CreditClient is the audit service's view of the credit service. Issue must
// be idempotent per verification request id on the receiving side.
type CreditClient interface {
	Issue(ctx context.Context, req credit.IssueRequest) (*credit.CarbonCredit, error)
}

type Service interface {
	ListPending(ctx context.Context) ([]verification.VerificationRequest, error)
	Approve(ctx context.Context, requestID uuid.UUID, notes string) (*ApprovalResult, error)
	Reject(ctx context.Context, requestID uuid.UUID, reason, notes string) (*RejectionResult, error)
	RetryIssuance(ctx context.Context, requestID uuid.UUID) (*credit.CarbonCredit, error)
	History(ctx context.Context, requestID uuid.UUID) ([]AuditRecord, error)
	ListRecords(ctx context.Context, filter Filter, page, limit int) (*ListResponse, error)
}

type service struct {
	repo          Repository
	verifications VerificationClient
	credits       CreditClient
	calc          *co2.Calculator
	locks         *workflows.KeyLock
	logger        *zap.Logger
}

// NewService creates the audit decision service
func NewService(repo Repository, verifications VerificationClient, credits CreditClient, logger *zap.Logger) Service {
	return &service{
		repo:          repo,
		verifications: verifications,
		credits:       credits,
		calc:          co2.NewCalculator(),
		locks:         workflows.NewKeyLock(),
		logger:        logger,
	}
}

// ListPending returns the approval candidates: requests already verified by
// the verification side but not yet decided.
func (s *service) ListPending(ctx context.Context) ([]verification.VerificationRequest, error) {
	response, err := s.verifications.ListRequests(ctx, string(verification.StatusVerified), 1, 100)
	if err != nil {
		return nil, err
	}
	return response.Requests, nil
}

// Approve records an approval decision for a verified request, pushes the
// issued status back to the verification service and asks the credit service
// to mint credits. Once the audit record is written the decision is durable:
// a downstream issuance failure is logged and surfaced on the result, never
// rolled back. Repeated issuance attempts are safe because issuance is
// idempotent per request id.
func (s *service) Approve(ctx context.Context, requestID uuid.UUID, notes string) (*ApprovalResult, error) {
	s.locks.Lock(requestID.String())
	defer s.locks.Unlock(requestID.String())

	request, err := s.verifications.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != verification.StatusVerified {
		return nil, faults.Newf(faults.KindInvalidStatus,
			"request must be verified before approval, current status: %s", request.Status)
	}

	var reduction float64
	if request.CO2Calculation != nil {
		reduction = request.CO2Calculation.TotalReduction
	}
	creditsToIssue := s.calc.CreditsFromReduction(reduction)

	if notes == "" {
		notes = "Approved by audit service"
	}
	record := &AuditRecord{
		ID:                    uuid.New(),
		VerificationRequestID: requestID,
		AuditorID:             DefaultAuditorID,
		Action:                ActionApprove,
		Notes:                 notes,
		Decision:              DecisionApproved,
		Metadata: Metadata{
			PreviousStatus: string(request.Status),
			NewStatus:      string(verification.StatusIssued),
			CO2Reduction:   reduction,
			CreditsToIssue: creditsToIssue,
		},
		CreatedAt: time.Now(),
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save audit record: %w", err)
	}

	// The decision is durable from here on. Everything below is a downstream
	// effect that can be retried out-of-band via RetryIssuance.
	result := &ApprovalResult{
		AuditRecord:   record,
		CreditsIssued: creditsToIssue,
	}

	if err := s.verifications.UpdateStatus(ctx, requestID, verification.StatusIssued, notes); err != nil {
		s.logger.Error("Failed to push issued status after approval",
			zap.String("request_id", requestID.String()),
			zap.Error(err))
		result.IssuanceError = err.Error()
		return result, nil
	}

	issued, err := s.credits.Issue(ctx, credit.IssueRequest{
		VerificationRequestID: requestID,
		AuditRecordID:         record.ID,
		OwnerID:               request.EVOwner,
		Amount:                creditsToIssue,
		CO2Reduced:            reduction,
	})
	if err != nil {
		s.logger.Error("Failed to issue credits after approval",
			zap.String("request_id", requestID.String()),
			zap.String("audit_record_id", record.ID.String()),
			zap.Error(err))
		result.IssuanceError = err.Error()
		return result, nil
	}

	result.Credit = issued
	s.logger.Info("Request approved and credits issued",
		zap.String("request_id", requestID.String()),
		zap.Float64("credits_issued", creditsToIssue))
	return result, nil
}

// Reject records a rejection for a request that has not reached a terminal
// state. The verification-side status push is the commit point: the audit
// record is only written after the request is durably rejected.
func (s *service) Reject(ctx context.Context, requestID uuid.UUID, reason, notes string) (*RejectionResult, error) {
	s.locks.Lock(requestID.String())
	defer s.locks.Unlock(requestID.String())

	request, err := s.verifications.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	switch request.Status {
	case verification.StatusPending, verification.StatusInReview, verification.StatusVerified:
	default:
		return nil, faults.Newf(faults.KindInvalidStatus,
			"cannot reject request in status: %s", request.Status)
	}

	if reason == "" {
		reason = "Rejected by audit service"
	}
	if err := s.verifications.UpdateStatus(ctx, requestID,
		verification.StatusRejected, fmt.Sprintf("Rejected: %s", reason)); err != nil {
		return nil, err
	}

	recordNotes := notes
	if recordNotes == "" {
		recordNotes = reason
	}
	record := &AuditRecord{
		ID:                    uuid.New(),
		VerificationRequestID: requestID,
		AuditorID:             DefaultAuditorID,
		Action:                ActionReject,
		Notes:                 recordNotes,
		Decision:              DecisionRejected,
		Metadata: Metadata{
			PreviousStatus: string(request.Status),
			NewStatus:      string(verification.StatusRejected),
			Reason:         reason,
		},
		CreatedAt: time.Now(),
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save audit record: %w", err)
	}

	s.logger.Info("Request rejected",
		zap.String("request_id", requestID.String()),
		zap.String("reason", reason))

	return &RejectionResult{AuditRecord: record, Reason: reason}, nil
}

// RetryIssuance re-drives the downstream effects of an already recorded
// approval: the issued status push and the credit issuance. It is safe to
// invoke any number of times; convergence relies on the credit service's
// idempotency, not on avoiding retries.
func (s *service) RetryIssuance(ctx context.Context, requestID uuid.UUID) (*credit.CarbonCredit, error) {
	s.locks.Lock(requestID.String())
	defer s.locks.Unlock(requestID.String())

	record, err := s.repo.FindApproval(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up approval record: %w", err)
	}
	if record == nil {
		return nil, faults.New(faults.KindNotFound, "no approval recorded for this request")
	}

	request, err := s.verifications.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status == verification.StatusVerified {
		if err := s.verifications.UpdateStatus(ctx, requestID, verification.StatusIssued, record.Notes); err != nil {
			return nil, err
		}
	}

	issued, err := s.credits.Issue(ctx, credit.IssueRequest{
		VerificationRequestID: requestID,
		AuditRecordID:         record.ID,
		OwnerID:               request.EVOwner,
		Amount:                record.Metadata.CreditsToIssue,
		CO2Reduced:            record.Metadata.CO2Reduction,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Issuance retry converged",
		zap.String("request_id", requestID.String()),
		zap.String("credit_id", issued.ID.String()))
	return issued, nil
}

func (s *service) History(ctx context.Context, requestID uuid.UUID) ([]AuditRecord, error) {
	records, err := s.repo.FindByRequest(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch audit history: %w", err)
	}
	return records, nil
}

func (s *service) ListRecords(ctx context.Context, filter Filter, page, limit int) (*ListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	records, total, err := s.repo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit records: %w", err)
	}

	return &ListResponse{
		AuditRecords: records,
		Pagination: Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: int(math.Ceil(float64(total) / float64(limit))),
		},
	}, nil
}
