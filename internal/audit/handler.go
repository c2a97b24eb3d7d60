package audit

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"greenride/certification-backend/pkg/faults"
)

// Handler handles HTTP requests for the audit service
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new audit handler
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers audit routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	audit := router.Group("/audit")
	{
		audit.GET("/pending", h.listPending)
		audit.POST("/approve/:id", h.approve)
		audit.POST("/reject/:id", h.reject)
		audit.POST("/retry-issuance/:id", h.retryIssuance)
		audit.GET("/history/:id", h.history)
		audit.GET("/records", h.listRecords)
	}
}

// listPending handles GET /audit/pending
func (h *Handler) listPending(c *gin.Context) {
	pending, err := h.service.ListPending(c.Request.Context())
	if err != nil {
		h.renderError(c, "Failed to fetch pending approvals", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"pending_approvals": pending,
		"count":             len(pending),
	})
}

// approve handles POST /audit/approve/:id
func (h *Handler) approve(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req struct {
		Notes string `json:"notes"`
	}
	_ = c.ShouldBindJSON(&req)

	result, err := h.service.Approve(c.Request.Context(), id, req.Notes)
	if err != nil {
		h.renderError(c, "Failed to approve request", err)
		return
	}

	response := gin.H{
		"message":        "Request approved successfully",
		"audit_record":   result.AuditRecord,
		"credits_issued": result.CreditsIssued,
	}
	if result.Credit != nil {
		response["credit"] = result.Credit
	}
	if result.IssuanceError != "" {
		response["issuance_error"] = result.IssuanceError
	}
	c.JSON(http.StatusOK, response)
}

// reject handles POST /audit/reject/:id
func (h *Handler) reject(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req struct {
		Reason string `json:"reason"`
		Notes  string `json:"notes"`
	}
	_ = c.ShouldBindJSON(&req)

	result, err := h.service.Reject(c.Request.Context(), id, req.Reason, req.Notes)
	if err != nil {
		h.renderError(c, "Failed to reject request", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "Request rejected successfully",
		"audit_record": result.AuditRecord,
		"reason":       result.Reason,
	})
}

// retryIssuance handles POST /audit/retry-issuance/:id
func (h *Handler) retryIssuance(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	issued, err := h.service.RetryIssuance(c.Request.Context(), id)
	if err != nil {
		h.renderError(c, "Failed to retry issuance", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Issuance retried successfully",
		"credit":  issued,
	})
}

// history handles GET /audit/history/:id
func (h *Handler) history(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	records, err := h.service.History(c.Request.Context(), id)
	if err != nil {
		h.renderError(c, "Failed to fetch audit history", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"request_id":    id,
		"audit_history": records,
		"count":         len(records),
	})
}

// listRecords handles GET /audit/records
func (h *Handler) listRecords(c *gin.Context) {
	filter := Filter{}
	if action := c.Query("action"); action != "" {
		a := Action(action)
		filter.Action = &a
	}
	if decision := c.Query("decision"); decision != "" {
		d := Decision(decision)
		filter.Decision = &d
	}
	page := h.getIntParam(c, "page", 1)
	limit := h.getIntParam(c, "limit", 10)

	response, err := h.service.ListRecords(c.Request.Context(), filter, page, limit)
	if err != nil {
		h.renderError(c, "Failed to list audit records", err)
		return
	}
	c.JSON(http.StatusOK, response)
}

func (h *Handler) parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": faults.Envelope{
			Code:    string(faults.KindInvalidInput),
			Message: "invalid request id",
		}})
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) renderError(c *gin.Context, msg string, err error) {
	status := faults.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(msg, zap.Error(err))
	}
	c.JSON(status, gin.H{"error": faults.ToEnvelope(err)})
}

func (h *Handler) getIntParam(c *gin.Context, name string, defaultValue int) int {
	if value := c.Query(name); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
