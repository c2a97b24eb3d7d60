package credit

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrDuplicateRequest signals the idempotency reservation fired: a credit for
// this verification request already exists.
var ErrDuplicateRequest = errors.New("credit already issued for verification request")

type Repository interface {
	IssueCredit(ctx context.Context, credit *CarbonCredit) error
	GetCreditByID(ctx context.Context, id uuid.UUID) (*CarbonCredit, error)
	GetCreditByRequestID(ctx context.Context, requestID uuid.UUID) (*CarbonCredit, error)
	ListCredits(ctx context.Context, filter Filter, page, limit int) ([]CarbonCredit, int, error)

	GetWallet(ctx context.Context, ownerID string) (*Wallet, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// IssueCredit commits an issuance. The credit row and its wallet delta are
// written in one transaction: either both exist afterwards or neither does.
// The unique index on verification_request_id turns a duplicate issuance into
// ErrDuplicateRequest instead of a second row.
func (r *gormRepository) IssueCredit(ctx context.Context, credit *CarbonCredit) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(credit).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateRequest
			}
			return fmt.Errorf("failed to save carbon credit: %w", err)
		}

		var wallet Wallet
		err := tx.Preload("Credits").Preload("Transactions").
			First(&wallet, "owner_id = ?", credit.OwnerID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			wallet = Wallet{ID: uuid.New(), OwnerID: credit.OwnerID}
		} else if err != nil {
			return fmt.Errorf("failed to load wallet: %w", err)
		}

		wallet.ApplyIssue(credit)
		if err := tx.Session(&gorm.Session{FullSaveAssociations: true}).Save(&wallet).Error; err != nil {
			return fmt.Errorf("failed to save wallet: %w", err)
		}
		return nil
	})
}

func (r *gormRepository) GetCreditByID(ctx context.Context, id uuid.UUID) (*CarbonCredit, error) {
	var credit CarbonCredit
	err := r.db.WithContext(ctx).First(&credit, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &credit, nil
}

func (r *gormRepository) GetCreditByRequestID(ctx context.Context, requestID uuid.UUID) (*CarbonCredit, error) {
	var credit CarbonCredit
	err := r.db.WithContext(ctx).First(&credit, "verification_request_id = ?", requestID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &credit, nil
}

func (r *gormRepository) ListCredits(ctx context.Context, filter Filter, page, limit int) ([]CarbonCredit, int, error) {
	query := r.db.WithContext(ctx).Model(&CarbonCredit{})
	if filter.OwnerID != nil {
		query = query.Where("owner_id = ?", *filter.OwnerID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var credits []CarbonCredit
	err := query.Order("created_at DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&credits).Error
	if err != nil {
		return nil, 0, err
	}
	return credits, int(total), nil
}

func (r *gormRepository) GetWallet(ctx context.Context, ownerID string) (*Wallet, error) {
	var wallet Wallet
	err := r.db.WithContext(ctx).
		Preload("Credits").
		Preload("Transactions").
		First(&wallet, "owner_id = ?", ownerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}
