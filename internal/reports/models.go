package reports

import (
	"time"

	"greenride/certification-backend/internal/audit"
	"greenride/certification-backend/internal/credit"
	"greenride/certification-backend/internal/verification"
)

// ReportType selects the detailed report to generate
type ReportType string

const (
	ReportCreditIssuance    ReportType = "credit_issuance"
	ReportVerificationAudit ReportType = "verification_audit"
	ReportCO2Impact         ReportType = "co2_impact"
)

// DateRange bounds a report by issuance date; nil means unbounded
type DateRange struct {
	From *time.Time `json:"from"`
	To   *time.Time `json:"to"`
}

// Summary is the cross-service state rollup
type Summary struct {
	TotalCreditsIssued        float64 `json:"total_credits_issued"`
	TotalCO2Reduced           float64 `json:"total_co2_reduced"`
	TotalTransactions         int     `json:"total_transactions"`
	TotalVerificationRequests int     `json:"total_verification_requests"`
	TotalAuditRecords         int     `json:"total_audit_records"`
}

// SummaryResponse is the /reports/summary payload
type SummaryResponse struct {
	Summary         Summary        `json:"summary"`
	StatusBreakdown map[string]int `json:"status_breakdown"`
	DateRange       DateRange      `json:"date_range"`
	GeneratedAt     time.Time      `json:"generated_at"`
}

// GenerateRequest selects a detailed report
type GenerateRequest struct {
	ReportType     ReportType `json:"report_type"`
	From           *time.Time `json:"from_date"`
	To             *time.Time `json:"to_date"`
	IncludeDetails bool       `json:"include_details"`
}

// Report is a generated detailed report
type Report struct {
	ReportType  ReportType `json:"report_type"`
	DateRange   DateRange  `json:"date_range"`
	GeneratedAt time.Time  `json:"generated_at"`
	Summary     any        `json:"summary"`
	Details     any        `json:"details,omitempty"`
	Count       int        `json:"count,omitempty"`
}

// CreditIssuanceSummary aggregates issued credits
type CreditIssuanceSummary struct {
	TotalCredits              float64 `json:"total_credits"`
	TotalCO2Reduced           float64 `json:"total_co2_reduced"`
	TotalIssuances            int     `json:"total_issuances"`
	AverageCreditsPerIssuance float64 `json:"average_credits_per_issuance"`
}

// VerificationAuditSummary aggregates verification and audit activity
type VerificationAuditSummary struct {
	TotalVerifications int `json:"total_verifications"`
	TotalAudits        int `json:"total_audits"`
	ApprovedCount      int `json:"approved_count"`
	RejectedCount      int `json:"rejected_count"`
}

// VerificationAuditDetails carries both record sets when details are requested
type VerificationAuditDetails struct {
	Verifications []verification.VerificationRequest `json:"verifications"`
	Audits        []audit.AuditRecord                `json:"audits"`
}

// CO2ImpactSummary aggregates the environmental impact of issued credits
type CO2ImpactSummary struct {
	TotalCO2Reduced     float64 `json:"total_co2_reduced"`
	AverageCO2PerCredit float64 `json:"average_co2_per_credit"`
	EquivalentTrees     int     `json:"equivalent_trees"`
	EquivalentCars      int     `json:"equivalent_cars"`
}

// OwnerStats is one entry of the top-owner leaderboard
type OwnerStats struct {
	OwnerID string  `json:"owner_id"`
	Credits float64 `json:"credits"`
	CO2     float64 `json:"co2"`
}

// DailyTrend is one day's aggregate of credit issuance
type DailyTrend struct {
	Credits float64 `json:"credits"`
	CO2     float64 `json:"co2"`
	Count   int     `json:"count"`
}

// Analytics is the /reports/analytics payload
type Analytics struct {
	Period               string                `json:"period"`
	TotalCredits         float64               `json:"total_credits"`
	TotalCO2             float64               `json:"total_co2"`
	AverageCreditsPerDay float64               `json:"average_credits_per_day"`
	CreditsIssuedCount   int                   `json:"credits_issued_count"`
	TopOwners            []OwnerStats          `json:"top_owners"`
	DailyTrends          map[string]DailyTrend `json:"daily_trends"`
}

// snapshot is one lock-free read of the three upstream services. A failed
// source contributes an empty slice; the reporting layer must stay available
// even when upstreams are not.
type snapshot struct {
	requests []verification.VerificationRequest
	records  []audit.AuditRecord
	credits  []credit.CarbonCredit
}
