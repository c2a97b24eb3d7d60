package reports

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"greenride/certification-backend/internal/audit"
	"greenride/certification-backend/internal/credit"
	"greenride/certification-backend/internal/verification"
	"greenride/certification-backend/pkg/faults"
)

// VerificationReader is the read-only slice of the verification API
type VerificationReader interface {
	ListRequests(ctx context.Context, status string, page, limit int) (*verification.ListResponse, error)
}

// AuditReader is the read-only slice of the audit API
type AuditReader interface {
	ListRecords(ctx context.Context, action, decision string, page, limit int) (*audit.ListResponse, error)
}

// CreditReader is the read-only slice of the credit API
type CreditReader interface {
	ListCredits(ctx context.Context, ownerID, status string, page, limit int) (*credit.ListResponse, error)
}

const (
	fetchPageSize = 100
	maxFetchPages = 50
	cacheTTL      = 5 * time.Minute
)

// Service aggregates cross-service state into reports. It holds no writable
// state of its own: every number it produces is a pure reduction over the
// three read APIs, computed from a point-in-time snapshot.
type Service struct {
	verifications VerificationReader
	audits        AuditReader
	credits       CreditReader
	cache         *ReportCache
	logger        *zap.Logger
}

// NewService creates the report aggregation service
func NewService(verifications VerificationReader, audits AuditReader, credits CreditReader, logger *zap.Logger) *Service {
	return &Service{
		verifications: verifications,
		audits:        audits,
		credits:       credits,
		cache:         NewReportCache(cacheTTL),
		logger:        logger,
	}
}

// Close stops the cache's background maintenance
func (s *Service) Close() {
	s.cache.Stop()
}

// Summary computes the cross-service rollup. Individual upstream failures are
// tolerated: the failed source contributes nothing rather than failing the
// whole report.
func (s *Service) Summary(ctx context.Context, from, to *time.Time) (*SummaryResponse, error) {
	snap := s.takeSnapshot(ctx)

	credits := filterCreditsByDate(snap.credits, from, to)

	var totalCredits, totalCO2 float64
	for _, c := range credits {
		totalCredits += c.Amount
		totalCO2 += c.CO2Reduced
	}

	breakdown := make(map[string]int)
	for _, req := range snap.requests {
		breakdown[string(req.Status)]++
	}

	return &SummaryResponse{
		Summary: Summary{
			TotalCreditsIssued:        roundTo2(totalCredits),
			TotalCO2Reduced:           roundTo2(totalCO2),
			TotalTransactions:         len(credits),
			TotalVerificationRequests: len(snap.requests),
			TotalAuditRecords:         len(snap.records),
		},
		StatusBreakdown: breakdown,
		DateRange:       DateRange{From: from, To: to},
		GeneratedAt:     time.Now(),
	}, nil
}

// CachedSummary serves the unbounded summary from cache when fresh
func (s *Service) CachedSummary(ctx context.Context) (*SummaryResponse, error) {
	const key = "summary"
	if cached, ok := s.cache.Get(key); ok {
		if summary, ok := cached.(*SummaryResponse); ok {
			return summary, nil
		}
	}

	summary, err := s.Summary(ctx, nil, nil)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, summary)
	return summary, nil
}

// RefreshSummary recomputes and caches the unbounded summary; used by the
// aggregation worker to keep reads warm.
func (s *Service) RefreshSummary(ctx context.Context) error {
	summary, err := s.Summary(ctx, nil, nil)
	if err != nil {
		return err
	}
	s.cache.Set("summary", summary)
	return nil
}

// Generate produces one of the detailed report types
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*Report, error) {
	if req.ReportType == "" {
		req.ReportType = ReportCreditIssuance
	}

	switch req.ReportType {
	case ReportCreditIssuance:
		return s.creditIssuanceReport(ctx, req)
	case ReportVerificationAudit:
		return s.verificationAuditReport(ctx, req)
	case ReportCO2Impact:
		return s.co2ImpactReport(ctx, req)
	default:
		return nil, faults.Newf(faults.KindInvalidInput,
			"invalid report type %q, supported types: %s, %s, %s",
			req.ReportType, ReportCreditIssuance, ReportVerificationAudit, ReportCO2Impact)
	}
}

func (s *Service) creditIssuanceReport(ctx context.Context, req GenerateRequest) (*Report, error) {
	credits := filterCreditsByDate(s.fetchCredits(ctx), req.From, req.To)

	var totalCredits, totalCO2 float64
	for _, c := range credits {
		totalCredits += c.Amount
		totalCO2 += c.CO2Reduced
	}
	var average float64
	if len(credits) > 0 {
		average = roundTo2(totalCredits / float64(len(credits)))
	}

	report := &Report{
		ReportType:  ReportCreditIssuance,
		DateRange:   DateRange{From: req.From, To: req.To},
		GeneratedAt: time.Now(),
		Summary: CreditIssuanceSummary{
			TotalCredits:              roundTo2(totalCredits),
			TotalCO2Reduced:           roundTo2(totalCO2),
			TotalIssuances:            len(credits),
			AverageCreditsPerIssuance: average,
		},
		Count: len(credits),
	}
	if req.IncludeDetails {
		report.Details = credits
	}
	return report, nil
}

func (s *Service) verificationAuditReport(ctx context.Context, req GenerateRequest) (*Report, error) {
	requests := s.fetchRequests(ctx)
	records := s.fetchRecords(ctx)

	var approved, rejected int
	for _, r := range records {
		switch r.Decision {
		case audit.DecisionApproved:
			approved++
		case audit.DecisionRejected:
			rejected++
		}
	}

	report := &Report{
		ReportType:  ReportVerificationAudit,
		DateRange:   DateRange{From: req.From, To: req.To},
		GeneratedAt: time.Now(),
		Summary: VerificationAuditSummary{
			TotalVerifications: len(requests),
			TotalAudits:        len(records),
			ApprovedCount:      approved,
			RejectedCount:      rejected,
		},
	}
	if req.IncludeDetails {
		report.Details = VerificationAuditDetails{Verifications: requests, Audits: records}
	}
	return report, nil
}

func (s *Service) co2ImpactReport(ctx context.Context, req GenerateRequest) (*Report, error) {
	credits := filterCreditsByDate(s.fetchCredits(ctx), req.From, req.To)

	var totalCO2 float64
	for _, c := range credits {
		totalCO2 += c.CO2Reduced
	}
	var average float64
	if len(credits) > 0 {
		average = roundTo2(totalCO2 / float64(len(credits)))
	}

	report := &Report{
		ReportType:  ReportCO2Impact,
		DateRange:   DateRange{From: req.From, To: req.To},
		GeneratedAt: time.Now(),
		Summary: CO2ImpactSummary{
			TotalCO2Reduced:     roundTo2(totalCO2),
			AverageCO2PerCredit: average,
			// One tree absorbs ~22 kg CO2/year; an average car emits ~4.6 t/year.
			EquivalentTrees: int(math.Round(totalCO2 / 22)),
			EquivalentCars:  int(math.Round(totalCO2 / 4600)),
		},
	}
	if req.IncludeDetails {
		report.Details = credits
	}
	return report, nil
}

// Analytics aggregates credit issuance over a trailing period like "30d"
func (s *Service) Analytics(ctx context.Context, period string) (*Analytics, error) {
	days, err := parsePeriodDays(period)
	if err != nil {
		return nil, err
	}

	startDate := time.Now().AddDate(0, 0, -days)
	var periodCredits []credit.CarbonCredit
	for _, c := range s.fetchCredits(ctx) {
		if !c.IssueDate.Before(startDate) {
			periodCredits = append(periodCredits, c)
		}
	}

	var totalCredits, totalCO2 float64
	for _, c := range periodCredits {
		totalCredits += c.Amount
		totalCO2 += c.CO2Reduced
	}

	var average float64
	if len(periodCredits) > 0 {
		average = roundTo2(totalCredits / float64(days))
	}

	return &Analytics{
		Period:               fmt.Sprintf("%d days", days),
		TotalCredits:         roundTo2(totalCredits),
		TotalCO2:             roundTo2(totalCO2),
		AverageCreditsPerDay: average,
		CreditsIssuedCount:   len(periodCredits),
		TopOwners:            topOwners(periodCredits, 5),
		DailyTrends:          dailyTrends(periodCredits, days),
	}, nil
}

// takeSnapshot reads all three services concurrently. Reads hold no locks and
// never block writers; a slightly stale or partially updated view is accepted.
func (s *Service) takeSnapshot(ctx context.Context) snapshot {
	var snap snapshot
	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		snap.requests = s.fetchRequests(ctx)
	}()
	go func() {
		defer wg.Done()
		snap.records = s.fetchRecords(ctx)
	}()
	go func() {
		defer wg.Done()
		snap.credits = s.fetchCredits(ctx)
	}()

	wg.Wait()
	return snap
}

func (s *Service) fetchRequests(ctx context.Context) []verification.VerificationRequest {
	var requests []verification.VerificationRequest
	for page := 1; page <= maxFetchPages; page++ {
		response, err := s.verifications.ListRequests(ctx, "", page, fetchPageSize)
		if err != nil {
			s.logger.Warn("Verification source unavailable for report", zap.Error(err))
			return requests
		}
		requests = append(requests, response.Requests...)
		if len(requests) >= response.Pagination.Total || len(response.Requests) == 0 {
			break
		}
	}
	return requests
}

func (s *Service) fetchRecords(ctx context.Context) []audit.AuditRecord {
	var records []audit.AuditRecord
	for page := 1; page <= maxFetchPages; page++ {
		response, err := s.audits.ListRecords(ctx, "", "", page, fetchPageSize)
		if err != nil {
			s.logger.Warn("Audit source unavailable for report", zap.Error(err))
			return records
		}
		records = append(records, response.AuditRecords...)
		if len(records) >= response.Pagination.Total || len(response.AuditRecords) == 0 {
			break
		}
	}
	return records
}

func (s *Service) fetchCredits(ctx context.Context) []credit.CarbonCredit {
	var credits []credit.CarbonCredit
	for page := 1; page <= maxFetchPages; page++ {
		response, err := s.credits.ListCredits(ctx, "", "", page, fetchPageSize)
		if err != nil {
			s.logger.Warn("Credit source unavailable for report", zap.Error(err))
			return credits
		}
		credits = append(credits, response.Credits...)
		if len(credits) >= response.Pagination.Total || len(response.Credits) == 0 {
			break
		}
	}
	return credits
}

func filterCreditsByDate(credits []credit.CarbonCredit, from, to *time.Time) []credit.CarbonCredit {
	if from == nil && to == nil {
		return credits
	}
	filtered := make([]credit.CarbonCredit, 0, len(credits))
	for _, c := range credits {
		if from != nil && c.IssueDate.Before(*from) {
			continue
		}
		if to != nil && c.IssueDate.After(*to) {
			continue
		}
		filtered = append(filtered, c)
	}
	return filtered
}

func topOwners(credits []credit.CarbonCredit, limit int) []OwnerStats {
	byOwner := make(map[string]*OwnerStats)
	for _, c := range credits {
		stats, ok := byOwner[c.OwnerID]
		if !ok {
			stats = &OwnerStats{OwnerID: c.OwnerID}
			byOwner[c.OwnerID] = stats
		}
		stats.Credits += c.Amount
		stats.CO2 += c.CO2Reduced
	}

	owners := make([]OwnerStats, 0, len(byOwner))
	for _, stats := range byOwner {
		owners = append(owners, *stats)
	}
	sort.Slice(owners, func(i, j int) bool {
		return owners[i].Credits > owners[j].Credits
	})
	if len(owners) > limit {
		owners = owners[:limit]
	}
	return owners
}

func dailyTrends(credits []credit.CarbonCredit, days int) map[string]DailyTrend {
	trends := make(map[string]DailyTrend, days)
	now := time.Now()
	for i := 0; i < days; i++ {
		key := now.AddDate(0, 0, -i).Format("2006-01-02")
		trends[key] = DailyTrend{}
	}

	for _, c := range credits {
		key := c.IssueDate.Format("2006-01-02")
		trend, ok := trends[key]
		if !ok {
			continue
		}
		trend.Credits += c.Amount
		trend.CO2 += c.CO2Reduced
		trend.Count++
		trends[key] = trend
	}
	return trends
}

func parsePeriodDays(period string) (int, error) {
	if period == "" {
		return 30, nil
	}
	days, err := strconv.Atoi(strings.TrimSuffix(period, "d"))
	if err != nil || days < 1 {
		return 0, faults.Newf(faults.KindInvalidInput, "invalid period %q, expected e.g. 30d", period)
	}
	return days, nil
}

func roundTo2(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}
