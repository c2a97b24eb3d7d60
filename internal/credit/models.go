package credit

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// CreditStatus is the lifecycle status of an issued carbon credit
type CreditStatus string

const (
	CreditStatusIssued      CreditStatus = "issued"
	CreditStatusTransferred CreditStatus = "transferred"
	CreditStatusRetired     CreditStatus = "retired"
)

// TransactionType classifies wallet ledger entries
type TransactionType string

const (
	TransactionIssue       TransactionType = "issue"
	TransactionTransferIn  TransactionType = "transfer_in"
	TransactionTransferOut TransactionType = "transfer_out"
	TransactionRetire      TransactionType = "retire"
)

// CarbonCredit is a tradable credit record minted from an audited approval.
// The unique index on VerificationRequestID is the idempotency reservation:
// at most one credit can ever exist per originating request.
type CarbonCredit struct {
	ID                    uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	VerificationRequestID uuid.UUID `json:"verification_request_id" gorm:"type:uuid;not null;uniqueIndex"`
	AuditRecordID         uuid.UUID `json:"audit_record_id" gorm:"type:uuid;index"`
	OwnerID               string    `json:"owner_id" gorm:"not null;index"`
	Amount                float64   `json:"amount" gorm:"type:decimal(12,2);not null"`
	CO2Reduced            float64   `json:"co2_reduced" gorm:"type:decimal(12,2);not null"`
	IssueDate             time.Time `json:"issue_date" gorm:"not null"`

	Status          CreditStatus   `json:"status" gorm:"default:'issued';index"`
	CertificateHash string         `json:"certificate_hash" gorm:"not null"`
	Metadata        datatypes.JSON `json:"metadata" gorm:"default:'{}'"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Wallet holds the credits owned by one identity. TotalCredits and
// AvailableCredits are derived from the credit list by RecomputeTotals after
// every mutation and are never written independently of it.
type Wallet struct {
	ID               uuid.UUID           `json:"-" gorm:"type:uuid;primary_key"`
	OwnerID          string              `json:"owner_id" gorm:"not null;uniqueIndex"`
	TotalCredits     float64             `json:"total_credits" gorm:"type:decimal(12,2);default:0"`
	AvailableCredits float64             `json:"available_credits" gorm:"type:decimal(12,2);default:0"`
	Credits          []WalletCredit      `json:"credits" gorm:"foreignKey:WalletID"`
	Transactions     []WalletTransaction `json:"transactions" gorm:"foreignKey:WalletID"`
	CreatedAt        time.Time           `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt        time.Time           `json:"updated_at" gorm:"autoUpdateTime"`
}

// WalletCredit is a credit entry as seen from its owner's wallet
type WalletCredit struct {
	ID        uuid.UUID    `json:"-" gorm:"type:uuid;primary_key"`
	WalletID  uuid.UUID    `json:"-" gorm:"type:uuid;not null;index"`
	CreditID  uuid.UUID    `json:"credit_id" gorm:"type:uuid;not null"`
	Amount    float64      `json:"amount" gorm:"type:decimal(12,2);not null"`
	IssueDate time.Time    `json:"issue_date"`
	Status    CreditStatus `json:"status"`
}

// WalletTransaction is one append-only entry of the wallet's transaction log
type WalletTransaction struct {
	ID          uuid.UUID       `json:"-" gorm:"type:uuid;primary_key"`
	WalletID    uuid.UUID       `json:"-" gorm:"type:uuid;not null;index"`
	Type        TransactionType `json:"type" gorm:"not null"`
	Amount      float64         `json:"amount" gorm:"type:decimal(12,2);not null"`
	CreditID    uuid.UUID       `json:"credit_id" gorm:"type:uuid"`
	Timestamp   time.Time       `json:"timestamp"`
	Description string          `json:"description"`
}

// RecomputeTotals derives wallet totals from a credit list. Total counts every
// credit; available counts only credits still in issued status.
func RecomputeTotals(credits []WalletCredit) (total, available float64) {
	for _, c := range credits {
		total += c.Amount
		if c.Status == CreditStatusIssued {
			available += c.Amount
		}
	}
	return total, available
}

// Recompute refreshes the wallet's derived totals from its own credit list
func (w *Wallet) Recompute() {
	w.TotalCredits, w.AvailableCredits = RecomputeTotals(w.Credits)
}

// ApplyIssue appends the credit and its issue transaction to the wallet and
// refreshes the derived totals. Callers must persist the wallet in the same
// transaction as the credit row.
func (w *Wallet) ApplyIssue(credit *CarbonCredit) {
	w.Credits = append(w.Credits, WalletCredit{
		ID:        uuid.New(),
		WalletID:  w.ID,
		CreditID:  credit.ID,
		Amount:    credit.Amount,
		IssueDate: credit.IssueDate,
		Status:    CreditStatusIssued,
	})
	w.Transactions = append(w.Transactions, WalletTransaction{
		ID:          uuid.New(),
		WalletID:    w.ID,
		Type:        TransactionIssue,
		Amount:      credit.Amount,
		CreditID:    credit.ID,
		Timestamp:   time.Now(),
		Description: fmt.Sprintf("Issued %.2f credits for verification %s", credit.Amount, credit.VerificationRequestID),
	})
	w.Recompute()
}

// IssueRequest is the issuance payload
type IssueRequest struct {
	VerificationRequestID uuid.UUID      `json:"verification_request_id" binding:"required"`
	AuditRecordID         uuid.UUID      `json:"audit_record_id"`
	OwnerID               string         `json:"owner_id" binding:"required"`
	Amount                float64        `json:"amount" binding:"required"`
	CO2Reduced            float64        `json:"co2_reduced" binding:"required"`
	Metadata              map[string]any `json:"metadata"`
}

// Filter narrows credit listing queries
type Filter struct {
	OwnerID *string
	Status  *CreditStatus
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
	Credits    []CarbonCredit `json:"credits"`
	Pagination Pagination     `json:"pagination"`
}
