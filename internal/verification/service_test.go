package verification

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"greenride/certification-backend/internal/co2"
	"greenride/certification-backend/pkg/faults"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, req *VerificationRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id uuid.UUID) (*VerificationRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*VerificationRequest), args.Error(1)
}

func (m *MockRepository) List(ctx context.Context, filter Filter, page, limit int) ([]VerificationRequest, int, error) {
	args := m.Called(ctx, filter, page, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]VerificationRequest), args.Int(1), args.Error(2)
}

func (m *MockRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, notes string, updatedAt time.Time) error {
	args := m.Called(ctx, id, status, notes, updatedAt)
	return args.Error(0)
}

func newTestService(repo Repository) Service {
	return NewService(repo, co2.NewCalculator(), zap.NewNop())
}

func validCreateRequest() CreateRequest {
	return CreateRequest{
		EVOwner:      "Jane Driver",
		EVModel:      "Tesla Model 3",
		LicensePlate: "EV-1234",
		TripData: co2.TripData{
			TotalKm:   1250,
			StartDate: time.Now().AddDate(0, -1, 0),
			EndDate:   time.Now().AddDate(0, 0, -1),
		},
	}
}

func TestCreateAdmitsPendingRequest(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	var persisted *VerificationRequest
	repo.On("Create", mock.Anything, mock.AnythingOfType("*verification.VerificationRequest")).
		Run(func(args mock.Arguments) {
			persisted = args.Get(1).(*VerificationRequest)
		}).
		Return(nil)

	request, err := svc.Create(context.Background(), validCreateRequest())

	assert.NoError(t, err)
	assert.NotNil(t, request)
	assert.Equal(t, StatusPending, request.Status)
	assert.NotEqual(t, uuid.Nil, request.ID)
	assert.NotNil(t, request.CO2Calculation)
	assert.Equal(t, 200.00, request.CO2Calculation.TotalReduction)
	assert.Equal(t, co2.VehicleGasoline, request.CO2Calculation.ReplacedVehicle)
	assert.NotNil(t, request.Documents)
	assert.Same(t, request, persisted)
	repo.AssertExpectations(t)
}

func TestCreateRejectsInvalidFields(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	req := validCreateRequest()
	req.EVOwner = "J"
	req.LicensePlate = "123"
	req.TripData.TotalKm = 20000

	request, err := svc.Create(context.Background(), req)

	assert.Nil(t, request)
	assert.True(t, faults.IsKind(err, faults.KindInvalidInput))

	var fe *faults.Error
	assert.ErrorAs(t, err, &fe)
	assert.Len(t, fe.Details, 3)
	repo.AssertNotCalled(t, "Create")
}

func TestCreateRejectsInvalidTripDates(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	req := validCreateRequest()
	req.TripData.StartDate = time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC)
	req.TripData.EndDate = time.Date(2024, 10, 5, 0, 0, 0, 0, time.UTC)

	request, err := svc.Create(context.Background(), req)

	assert.Nil(t, request)
	assert.True(t, faults.IsKind(err, faults.KindInvalidInput))

	var fe *faults.Error
	assert.ErrorAs(t, err, &fe)
	assert.Contains(t, fe.Details, "end date must be after start date")
	repo.AssertNotCalled(t, "Create")
}

func TestCreateDefaultsReplacedVehicleToGasoline(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	req := validCreateRequest()
	req.ReplacedVehicle = ""

	request, err := svc.Create(context.Background(), req)

	assert.NoError(t, err)
	assert.Equal(t, co2.VehicleGasoline, request.CO2Calculation.ReplacedVehicle)
}

func TestGetNotFound(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	id := uuid.New()
	repo.On("GetByID", mock.Anything, id).Return(nil, nil)

	request, err := svc.Get(context.Background(), id)

	assert.Nil(t, request)
	assert.True(t, faults.IsKind(err, faults.KindNotFound))
}

func TestUpdateStatusTransitions(t *testing.T) {
	tests := []struct {
		name     string
		current  Status
		target   Status
		wantKind faults.Kind
	}{
		{"pending to in-review", StatusPending, StatusInReview, ""},
		{"pending to verified", StatusPending, StatusVerified, ""},
		{"pending to rejected", StatusPending, StatusRejected, ""},
		{"in-review to verified", StatusInReview, StatusVerified, ""},
		{"verified to issued", StatusVerified, StatusIssued, ""},
		{"verified to rejected", StatusVerified, StatusRejected, ""},
		{"pending to issued skips verification", StatusPending, StatusIssued, faults.KindInvalidStatus},
		{"rejected is terminal", StatusRejected, StatusInReview, faults.KindInvalidStatus},
		{"issued is terminal", StatusIssued, StatusRejected, faults.KindInvalidStatus},
		{"verified cannot regress", StatusVerified, StatusInReview, faults.KindInvalidStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			svc := newTestService(repo)

			id := uuid.New()
			repo.On("GetByID", mock.Anything, id).Return(&VerificationRequest{ID: id, Status: tt.current}, nil)
			if tt.wantKind == "" {
				repo.On("UpdateStatus", mock.Anything, id, tt.target, "ok", mock.AnythingOfType("time.Time")).Return(nil)
			}

			request, err := svc.UpdateStatus(context.Background(), id, tt.target, "ok")

			if tt.wantKind == "" {
				assert.NoError(t, err)
				assert.Equal(t, tt.target, request.Status)
				assert.Equal(t, "ok", request.VerificationNotes)
			} else {
				assert.Nil(t, request)
				assert.True(t, faults.IsKind(err, tt.wantKind))
				repo.AssertNotCalled(t, "UpdateStatus")
			}
		})
	}
}

func TestUpdateStatusUnknownStatus(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	request, err := svc.UpdateStatus(context.Background(), uuid.New(), Status("approved"), "")

	assert.Nil(t, request)
	assert.True(t, faults.IsKind(err, faults.KindInvalidInput))
	repo.AssertNotCalled(t, "GetByID")
}

func TestUpdateStatusNotFound(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	id := uuid.New()
	repo.On("GetByID", mock.Anything, id).Return(nil, nil)

	request, err := svc.UpdateStatus(context.Background(), id, StatusVerified, "")

	assert.Nil(t, request)
	assert.True(t, faults.IsKind(err, faults.KindNotFound))
}

func TestListPagination(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	repo.On("List", mock.Anything, Filter{}, 1, 10).Return([]VerificationRequest{{}, {}}, 25, nil)

	resp, err := svc.List(context.Background(), Filter{}, 0, 0)

	assert.NoError(t, err)
	assert.Equal(t, 1, resp.Pagination.Page)
	assert.Equal(t, 10, resp.Pagination.Limit)
	assert.Equal(t, 25, resp.Pagination.Total)
	assert.Equal(t, 3, resp.Pagination.Pages)
}

func TestListCapsLimit(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	repo.On("List", mock.Anything, Filter{}, 2, 100).Return([]VerificationRequest{}, 0, nil)

	resp, err := svc.List(context.Background(), Filter{}, 2, 500)

	assert.NoError(t, err)
	assert.Equal(t, 100, resp.Pagination.Limit)
}

func TestCalculateCO2Endpoint(t *testing.T) {
	svc := newTestService(new(MockRepository))

	reduction, credits, err := svc.CalculateCO2(1250, "")

	assert.NoError(t, err)
	assert.Equal(t, 200.00, reduction.TotalReduction)
	assert.Equal(t, 20.00, credits)

	_, _, err = svc.CalculateCO2(-1, co2.VehicleGasoline)
	assert.True(t, faults.IsKind(err, faults.KindInvalidInput))
}
