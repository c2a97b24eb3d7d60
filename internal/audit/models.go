package audit

import (
	"time"

	"github.com/google/uuid"

	"greenride/certification-backend/internal/credit"
)

// Action is the kind of decision event recorded
type Action string

const (
	ActionApprove           Action = "approve"
	ActionReject            Action = "reject"
	ActionReview            Action = "review"
	ActionStartVerification Action = "start_verification"
)

// Decision is the outcome attached to a decision event
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
	DecisionPending  Decision = "pending"
)

// DefaultAuditorID is recorded when no auditor identity was supplied
const DefaultAuditorID = "system-auditor"

// Metadata is the snapshot of the request state at decision time. It is
// captured once and never recomputed: the calculator's factor table may change
// later, but the recorded decision must not.
type Metadata struct {
	PreviousStatus string  `json:"previous_status"`
	NewStatus      string  `json:"new_status"`
	Reason         string  `json:"reason,omitempty"`
	CO2Reduction   float64 `json:"co2_reduction,omitempty"`
	CreditsToIssue float64 `json:"credits_to_issue,omitempty"`
}

// AuditRecord is one immutable entry of the decision log. Records are
// append-only: one per decision event, never mutated or deleted.
type AuditRecord struct {
	ID                    uuid.UUID `json:"id"`
	VerificationRequestID uuid.UUID `json:"verification_request_id"`
	AuditorID             string    `json:"auditor_id"`
	Action                Action    `json:"action"`
	Notes                 string    `json:"notes"`
	Decision              Decision  `json:"decision"`
	Metadata              Metadata  `json:"metadata"`
	CreatedAt             time.Time `json:"created_at"`
}

// ApprovalResult is the outcome of an approval: the durable audit decision
// plus whatever credit issuance produced. IssuanceError is set when issuance
// failed after the approval was already recorded; the approval stands and the
// issuance is retriable out-of-band.
type ApprovalResult struct {
	AuditRecord   *AuditRecord         `json:"audit_record"`
	CreditsIssued float64              `json:"credits_issued"`
	Credit        *credit.CarbonCredit `json:"credit,omitempty"`
	IssuanceError string               `json:"issuance_error,omitempty"`
}

// RejectionResult is the outcome of a rejection
type RejectionResult struct {
	AuditRecord *AuditRecord `json:"audit_record"`
	Reason      string       `json:"reason"`
}

// Filter narrows record listing queries
type Filter struct {
	Action   *Action
	Decision *Decision
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
	AuditRecords []AuditRecord `json:"audit_records"`
	Pagination   Pagination    `json:"pagination"`
}
