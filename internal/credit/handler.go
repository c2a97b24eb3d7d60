package credit

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"greenride/certification-backend/pkg/faults"
)

// Handler handles HTTP requests for the credit service
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new credit handler
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers credit routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	credits := router.Group("/credits")
	{
		credits.POST("/issue", h.issueCredits)
		credits.GET("/wallet/:ownerId", h.getWallet)
		credits.GET("", h.listCredits)
		credits.GET("/:creditId", h.getCredit)
		credits.PUT("/:creditId/transfer", h.transferCredit)
	}
}

// issueCredits handles POST /credits/issue
func (h *Handler) issueCredits(c *gin.Context) {
	var req IssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": faults.Envelope{
			Code:    string(faults.KindInvalidInput),
			Message: err.Error(),
		}})
		return
	}

	credit, err := h.service.Issue(c.Request.Context(), req)
	if err != nil {
		h.renderError(c, "Failed to issue carbon credits", err)
		return
	}

	wallet, err := h.service.GetWallet(c.Request.Context(), credit.OwnerID)
	if err != nil {
		h.renderError(c, "Failed to fetch wallet after issuance", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Carbon credits issued successfully",
		"credit":  credit,
		"wallet": gin.H{
			"owner_id":          wallet.OwnerID,
			"total_credits":     wallet.TotalCredits,
			"available_credits": wallet.AvailableCredits,
		},
	})
}

// getWallet handles GET /credits/wallet/:ownerId
func (h *Handler) getWallet(c *gin.Context) {
	wallet, err := h.service.GetWallet(c.Request.Context(), c.Param("ownerId"))
	if err != nil {
		h.renderError(c, "Failed to fetch wallet", err)
		return
	}
	c.JSON(http.StatusOK, wallet)
}

// getCredit handles GET /credits/:creditId
func (h *Handler) getCredit(c *gin.Context) {
	id, err := uuid.Parse(c.Param("creditId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": faults.Envelope{
			Code:    string(faults.KindInvalidInput),
			Message: "invalid credit id",
		}})
		return
	}

	credit, err := h.service.GetCredit(c.Request.Context(), id)
	if err != nil {
		h.renderError(c, "Failed to fetch credit", err)
		return
	}
	c.JSON(http.StatusOK, credit)
}

// listCredits handles GET /credits
func (h *Handler) listCredits(c *gin.Context) {
	filter := Filter{}
	if ownerID := c.Query("owner_id"); ownerID != "" {
		filter.OwnerID = &ownerID
	}
	if status := c.Query("status"); status != "" {
		s := CreditStatus(status)
		filter.Status = &s
	}
	page := h.getIntParam(c, "page", 1)
	limit := h.getIntParam(c, "limit", 10)

	response, err := h.service.List(c.Request.Context(), filter, page, limit)
	if err != nil {
		h.renderError(c, "Failed to list credits", err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// transferCredit handles PUT /credits/:creditId/transfer
func (h *Handler) transferCredit(c *gin.Context) {
	id, err := uuid.Parse(c.Param("creditId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": faults.Envelope{
			Code:    string(faults.KindInvalidInput),
			Message: "invalid credit id",
		}})
		return
	}

	var req struct {
		NewOwnerID string `json:"new_owner_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": faults.Envelope{
			Code:    string(faults.KindInvalidInput),
			Message: err.Error(),
		}})
		return
	}

	if err := h.service.Transfer(c.Request.Context(), id, req.NewOwnerID); err != nil {
		h.renderError(c, "Failed to transfer credit", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Credit transferred"})
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
