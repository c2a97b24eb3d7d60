package reports

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"greenride/certification-backend/pkg/faults"
)

// Handler handles HTTP requests for reporting operations
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new reports handler
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers reporting routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	reports := router.Group("/reports")
	{
		reports.GET("/summary", h.getSummary)
		reports.POST("/generate", h.generateReport)
		reports.GET("/analytics", h.getAnalytics)
	}
}

// getSummary handles GET /reports/summary
func (h *Handler) getSummary(c *gin.Context) {
	from, ok := h.parseDateParam(c, "from_date")
	if !ok {
		return
	}
	to, ok := h.parseDateParam(c, "to_date")
	if !ok {
		return
	}

	var summary *SummaryResponse
	var err error
	if from == nil && to == nil {
		summary, err = h.service.CachedSummary(c.Request.Context())
	} else {
		summary, err = h.service.Summary(c.Request.Context(), from, to)
	}
	if err != nil {
		h.renderError(c, "Failed to generate summary report", err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// generateReport handles POST /reports/generate
func (h *Handler) generateReport(c *gin.Context) {
	req := GenerateRequest{IncludeDetails: true}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": faults.Envelope{
			Code:    string(faults.KindInvalidInput),
			Message: err.Error(),
		}})
		return
	}

	report, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		h.renderError(c, "Failed to generate report", err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// getAnalytics handles GET /reports/analytics
func (h *Handler) getAnalytics(c *gin.Context) {
	analytics, err := h.service.Analytics(c.Request.Context(), c.DefaultQuery("period", "30d"))
	if err != nil {
		h.renderError(c, "Failed to generate analytics", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"analytics":    analytics,
		"generated_at": time.Now(),
	})
}

func (h *Handler) parseDateParam(c *gin.Context, name string) (*time.Time, bool) {
	value := c.Query(name)
	if value == "" {
		return nil, true
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": faults.Envelope{
			Code:    string(faults.KindInvalidInput),
			Message: name + " must be formatted as YYYY-MM-DD",
		}})
		return nil, false
	}
	return &parsed, true
}

func (h *Handler) renderError(c *gin.Context, msg string, err error) {
	status := faults.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(msg, zap.Error(err))
	}
	c.JSON(status, gin.H{"error": faults.ToEnvelope(err)})
}
