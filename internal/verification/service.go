package verification

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"greenride/certification-backend/internal/co2"
	"greenride/certification-backend/pkg/faults"
	"greenride/certification-backend/pkg/workflows"
)

// Input bounds carried over from the admission schema
const (
	minNameLen  = 2
	maxNameLen  = 100
	minPlateLen = 5
	maxPlateLen = 20
	maxTripKm   = 10000
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*VerificationRequest, error)
	Get(ctx context.Context, id uuid.UUID) (*VerificationRequest, error)
	List(ctx context.Context, filter Filter, page, limit int) (*ListResponse, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, notes string) (*VerificationRequest, error)
	CalculateCO2(distanceKm float64, kind co2.VehicleKind) (*co2.Reduction, float64, error)
}

type service struct {
	repo    Repository
	calc    *co2.Calculator
	machine *workflows.StateMachine
	locks   *workflows.KeyLock
	logger  *zap.Logger
}

// NewService creates the verification workflow service
func NewService(repo Repository, calc *co2.Calculator, logger *zap.Logger) Service {
	return &service{
		repo:    repo,
		calc:    calc,
		machine: workflows.NewStateMachine(),
		locks:   workflows.NewKeyLock(),
		logger:  logger,
	}
}

// Create admits a trip: validates it, computes the reduction snapshot and
// persists the request in pending state. Nothing is written on validation
// failure.
func (s *service) Create(ctx context.Context, req CreateRequest) (*VerificationRequest, error) {
	if details := validateCreateRequest(req); len(details) > 0 {
		return nil, faults.New(faults.KindInvalidInput, "invalid request data").WithDetails(details...)
	}

	validation := co2.ValidateTrip(req.TripData, time.Now())
	if !validation.IsValid {
		return nil, faults.New(faults.KindInvalidInput, "invalid trip data").WithDetails(validation.Errors...)
	}

	replaced := req.ReplacedVehicle
	if replaced == "" {
		replaced = co2.VehicleGasoline
	}
	calculation, err := s.calc.CalculateReduction(req.TripData.TotalKm, replaced)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	request := &VerificationRequest{
		ID:             uuid.New(),
		EVOwner:        req.EVOwner,
		EVModel:        req.EVModel,
		LicensePlate:   req.LicensePlate,
		TripData:       req.TripData,
		CO2Calculation: calculation,
		Status:         StatusPending,
		Documents:      req.Documents,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if request.Documents == nil {
		request.Documents = []string{}
	}

	if err := s.repo.Create(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to create verification request: %w", err)
	}

	s.logger.Info("Verification request admitted",
		zap.String("request_id", request.ID.String()),
		zap.String("ev_owner", request.EVOwner),
		zap.Float64("total_reduction", calculation.TotalReduction))

	return request, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*VerificationRequest, error) {
	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch verification request: %w", err)
	}
	if request == nil {
		return nil, faults.New(faults.KindNotFound, "verification request not found")
	}
	return request, nil
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

	requests, total, err := s.repo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list verification requests: %w", err)
	}

	return &ListResponse{
		Requests: requests,
		Pagination: Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: int(math.Ceil(float64(total) / float64(limit))),
		},
	}, nil
}

// UpdateStatus applies a lifecycle transition. Transitions on the same request
// id are serialized; the state machine check and the write happen under the
// per-id lock so two racing transitions cannot both succeed.
func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, notes string) (*VerificationRequest, error) {
	if !s.machine.IsKnown(string(status)) {
		return nil, faults.Newf(faults.KindInvalidInput, "unknown status: %s", status)
	}

	s.locks.Lock(id.String())
	defer s.locks.Unlock(id.String())

	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch verification request: %w", err)
	}
	if request == nil {
		return nil, faults.New(faults.KindNotFound, "verification request not found")
	}

	if !s.machine.CanTransition(string(request.Status), string(status)) {
		return nil, faults.Newf(faults.KindInvalidStatus,
			"cannot transition from %s to %s", request.Status, status)
	}

	now := time.Now()
	if err := s.repo.UpdateStatus(ctx, id, status, notes, now); err != nil {
		return nil, fmt.Errorf("failed to update verification status: %w", err)
	}

	s.logger.Info("Verification status updated",
		zap.String("request_id", id.String()),
		zap.String("from", string(request.Status)),
		zap.String("to", string(status)))

	request.Status = status
	request.VerificationNotes = notes
	request.UpdatedAt = now
	return request, nil
}

// CalculateCO2 is the read-only calculation endpoint; it touches no state.
func (s *service) CalculateCO2(distanceKm float64, kind co2.VehicleKind) (*co2.Reduction, float64, error) {
	if kind == "" {
		kind = co2.VehicleGasoline
	}
	reduction, err := s.calc.CalculateReduction(distanceKm, kind)
	if err != nil {
		return nil, 0, err
	}
	return reduction, s.calc.CreditsFromReduction(reduction.TotalReduction), nil
}

func validateCreateRequest(req CreateRequest) []string {
	var details []string
	if l := len(req.EVOwner); l < minNameLen || l > maxNameLen {
		details = append(details, fmt.Sprintf("ev_owner must be between %d and %d characters", minNameLen, maxNameLen))
	}
	if l := len(req.EVModel); l < minNameLen || l > maxNameLen {
		details = append(details, fmt.Sprintf("ev_model must be between %d and %d characters", minNameLen, maxNameLen))
	}
	if l := len(req.LicensePlate); l < minPlateLen || l > maxPlateLen {
		details = append(details, fmt.Sprintf("license_plate must be between %d and %d characters", minPlateLen, maxPlateLen))
	}
	if req.TripData.TotalKm > maxTripKm {
		details = append(details, fmt.Sprintf("total_km must not exceed %d", maxTripKm))
	}
	return details
}
