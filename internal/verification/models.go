package verification

import (
	"time"

	"github.com/google/uuid"

	"greenride/certification-backend/internal/co2"
)

// Status is the lifecycle state of a verification request
type Status string

const (
	StatusPending  Status = "pending"
	StatusInReview Status = "in-review"
	StatusVerified Status = "verified"
	StatusRejected Status = "rejected"
	StatusIssued   Status = "issued"
)

// VerificationRequest is an EV trip awaiting certification. The CO2 snapshot is
// computed once at admission and never recomputed; status moves only along the
// lifecycle graph and requests are retained after terminal states for audit.
type VerificationRequest struct {
	ID                uuid.UUID      `json:"id"`
	EVOwner           string         `json:"ev_owner"`
	EVModel           string         `json:"ev_model"`
	LicensePlate      string         `json:"license_plate"`
	TripData          co2.TripData   `json:"trip_data"`
	CO2Calculation    *co2.Reduction `json:"co2_calculation"`
	Status            Status         `json:"status"`
	VerificationNotes string         `json:"verification_notes"`
	Documents         []string       `json:"documents"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// CreateRequest is the admission payload
type CreateRequest struct {
	EVOwner         string          `json:"ev_owner" binding:"required"`
	EVModel         string          `json:"ev_model" binding:"required"`
	LicensePlate    string          `json:"license_plate" binding:"required"`
	ReplacedVehicle co2.VehicleKind `json:"replaced_vehicle"`
	TripData        co2.TripData    `json:"trip_data" binding:"required"`
	Documents       []string        `json:"documents"`
}

// UpdateStatusRequest carries a lifecycle transition
type UpdateStatusRequest struct {
	Status Status `json:"status" binding:"required"`
	Notes  string `json:"verification_notes"`
}

// Filter narrows listing queries
type Filter struct {
	Status *Status
}

// Pagination describes a page of results
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// ListResponse is the paginated listing envelope
type ListResponse struct {
	Requests   []VerificationRequest `json:"requests"`
	Pagination Pagination            `json:"pagination"`
}
