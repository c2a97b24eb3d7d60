package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Repository interface {
	Create(ctx context.Context, record *AuditRecord) error
	FindByRequest(ctx context.Context, requestID uuid.UUID) ([]AuditRecord, error)
	FindApproval(ctx context.Context, requestID uuid.UUID) (*AuditRecord, error)
	List(ctx context.Context, filter Filter, page, limit int) ([]AuditRecord, int, error)
}

type mongoRepository struct {
	collection *mongo.Collection
}

// NewRepository creates the mongo-backed audit record store
func NewRepository(db *mongo.Database) Repository {
	return &mongoRepository{collection: db.Collection("audit_records")}
}

// recordDoc maps an audit record onto its mongo document; ids are stored as
// canonical uuid strings.
type recordDoc struct {
	ID                    string      `bson:"_id"`
	VerificationRequestID string      `bson:"verification_request_id"`
	AuditorID             string      `bson:"auditor_id"`
	Action                string      `bson:"action"`
	Notes                 string      `bson:"notes"`
	Decision              string      `bson:"decision"`
	Metadata              metadataDoc `bson:"metadata"`
	CreatedAt             time.Time   `bson:"created_at"`
}

type metadataDoc struct {
	PreviousStatus string  `bson:"previous_status"`
	NewStatus      string  `bson:"new_status"`
	Reason         string  `bson:"reason,omitempty"`
	CO2Reduction   float64 `bson:"co2_reduction,omitempty"`
	CreditsToIssue float64 `bson:"credits_to_issue,omitempty"`
}

func toDoc(record *AuditRecord) recordDoc {
	return recordDoc{
		ID:                    record.ID.String(),
		VerificationRequestID: record.VerificationRequestID.String(),
		AuditorID:             record.AuditorID,
		Action:                string(record.Action),
		Notes:                 record.Notes,
		Decision:              string(record.Decision),
		Metadata: metadataDoc{
			PreviousStatus: record.Metadata.PreviousStatus,
			NewStatus:      record.Metadata.NewStatus,
			Reason:         record.Metadata.Reason,
			CO2Reduction:   record.Metadata.CO2Reduction,
			CreditsToIssue: record.Metadata.CreditsToIssue,
		},
		CreatedAt: record.CreatedAt,
	}
}

func (d recordDoc) toModel() (*AuditRecord, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid audit record id %q: %w", d.ID, err)
	}
	requestID, err := uuid.Parse(d.VerificationRequestID)
	if err != nil {
		return nil, fmt.Errorf("invalid verification request id %q: %w", d.VerificationRequestID, err)
	}
	return &AuditRecord{
		ID:                    id,
		VerificationRequestID: requestID,
		AuditorID:             d.AuditorID,
		Action:                Action(d.Action),
		Notes:                 d.Notes,
		Decision:              Decision(d.Decision),
		Metadata: Metadata{
			PreviousStatus: d.Metadata.PreviousStatus,
			NewStatus:      d.Metadata.NewStatus,
			Reason:         d.Metadata.Reason,
			CO2Reduction:   d.Metadata.CO2Reduction,
			CreditsToIssue: d.Metadata.CreditsToIssue,
		},
		CreatedAt: d.CreatedAt,
	}, nil
}

func (r *mongoRepository) Create(ctx context.Context, record *AuditRecord) error {
	_, err := r.collection.InsertOne(ctx, toDoc(record))
	return err
}

func (r *mongoRepository) FindByRequest(ctx context.Context, requestID uuid.UUID) ([]AuditRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"verification_request_id": requestID.String()}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	return decodeRecords(ctx, cursor)
}

func (r *mongoRepository) FindApproval(ctx context.Context, requestID uuid.UUID) (*AuditRecord, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	filter := bson.M{
		"verification_request_id": requestID.String(),
		"action":                  string(ActionApprove),
	}

	var doc recordDoc
	err := r.collection.FindOne(ctx, filter, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc.toModel()
}

func (r *mongoRepository) List(ctx context.Context, filter Filter, page, limit int) ([]AuditRecord, int, error) {
	query := bson.M{}
	if filter.Action != nil {
		query["action"] = string(*filter.Action)
	}
	if filter.Decision != nil {
		query["decision"] = string(*filter.Decision)
	}

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64((page - 1) * limit))
	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	records, err := decodeRecords(ctx, cursor)
	if err != nil {
		return nil, 0, err
	}
	return records, int(total), nil
}

func decodeRecords(ctx context.Context, cursor *mongo.Cursor) ([]AuditRecord, error) {
	records := []AuditRecord{}
	for cursor.Next(ctx) {
		var doc recordDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		record, err := doc.toModel()
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, cursor.Err()
}
