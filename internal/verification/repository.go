package verification

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"greenride/certification-backend/internal/co2"
)

type Repository interface {
	Create(ctx context.Context, req *VerificationRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*VerificationRequest, error)
	List(ctx context.Context, filter Filter, page, limit int) ([]VerificationRequest, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, notes string, updatedAt time.Time) error
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

// EnsureSchema creates the verification_requests table when it does not exist
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS verification_requests (
			id UUID PRIMARY KEY,
			ev_owner TEXT NOT NULL,
			ev_model TEXT NOT NULL,
			license_plate TEXT NOT NULL,
			trip_data JSONB NOT NULL,
			co2_calculation JSONB,
			status TEXT NOT NULL DEFAULT 'pending',
			verification_notes TEXT NOT NULL DEFAULT '',
			documents TEXT[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_verification_requests_status ON verification_requests (status);
		CREATE INDEX IF NOT EXISTS idx_verification_requests_created_at ON verification_requests (created_at DESC);`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// requestRow maps the request onto its table; trip data and the CO2 snapshot
// are stored as JSONB.
type requestRow struct {
	ID                uuid.UUID      `db:"id"`
	EVOwner           string         `db:"ev_owner"`
	EVModel           string         `db:"ev_model"`
	LicensePlate      string         `db:"license_plate"`
	TripData          []byte         `db:"trip_data"`
	CO2Calculation    []byte         `db:"co2_calculation"`
	Status            string         `db:"status"`
	VerificationNotes string         `db:"verification_notes"`
	Documents         pq.StringArray `db:"documents"`
	CreatedAt         time.Time      `db:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at"`
}

func toRow(req *VerificationRequest) (*requestRow, error) {
	tripJSON, err := json.Marshal(req.TripData)
	if err != nil {
		return nil, fmt.Errorf("failed to encode trip data: %w", err)
	}
	calcJSON, err := json.Marshal(req.CO2Calculation)
	if err != nil {
		return nil, fmt.Errorf("failed to encode co2 calculation: %w", err)
	}
	return &requestRow{
		ID:                req.ID,
		EVOwner:           req.EVOwner,
		EVModel:           req.EVModel,
		LicensePlate:      req.LicensePlate,
		TripData:          tripJSON,
		CO2Calculation:    calcJSON,
		Status:            string(req.Status),
		VerificationNotes: req.VerificationNotes,
		Documents:         pq.StringArray(req.Documents),
		CreatedAt:         req.CreatedAt,
		UpdatedAt:         req.UpdatedAt,
	}, nil
}

func (r *requestRow) toModel() (*VerificationRequest, error) {
	var trip co2.TripData
	if err := json.Unmarshal(r.TripData, &trip); err != nil {
		return nil, fmt.Errorf("failed to decode trip data: %w", err)
	}
	var calc *co2.Reduction
	if len(r.CO2Calculation) > 0 {
		calc = &co2.Reduction{}
		if err := json.Unmarshal(r.CO2Calculation, calc); err != nil {
			return nil, fmt.Errorf("failed to decode co2 calculation: %w", err)
		}
	}
	return &VerificationRequest{
		ID:                r.ID,
		EVOwner:           r.EVOwner,
		EVModel:           r.EVModel,
		LicensePlate:      r.LicensePlate,
		TripData:          trip,
		CO2Calculation:    calc,
		Status:            Status(r.Status),
		VerificationNotes: r.VerificationNotes,
		Documents:         []string(r.Documents),
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}, nil
}

func (r *postgresRepository) Create(ctx context.Context, req *VerificationRequest) error {
	row, err := toRow(req)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO verification_requests (
			id, ev_owner, ev_model, license_plate, trip_data, co2_calculation,
			status, verification_notes, documents, created_at, updated_at
		) VALUES (
			:id, :ev_owner, :ev_model, :license_plate, :trip_data, :co2_calculation,
			:status, :verification_notes, :documents, :created_at, :updated_at
		)`
	_, err = r.db.NamedExecContext(ctx, query, row)
	return err
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*VerificationRequest, error) {
	var row requestRow
	err := r.db.GetContext(ctx, &row, "SELECT * FROM verification_requests WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row.toModel()
}

func (r *postgresRepository) List(ctx context.Context, filter Filter, page, limit int) ([]VerificationRequest, int, error) {
	where := ""
	var args []interface{}
	if filter.Status != nil {
		where = " WHERE status = $1"
		args = append(args, string(*filter.Status))
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM verification_requests"+where, args...); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(
		"SELECT * FROM verification_requests%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		where, len(args)+1, len(args)+2)
	args = append(args, limit, (page-1)*limit)

	var rows []requestRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, err
	}

	requests := make([]VerificationRequest, 0, len(rows))
	for i := range rows {
		req, err := rows[i].toModel()
		if err != nil {
			return nil, 0, err
		}
		requests = append(requests, *req)
	}
	return requests, total, nil
}

func (r *postgresRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, notes string, updatedAt time.Time) error {
	query := `
		UPDATE verification_requests SET
			status = $2,
			verification_notes = $3,
			updated_at = $4
		WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, string(status), notes, updatedAt)
	return err
}
