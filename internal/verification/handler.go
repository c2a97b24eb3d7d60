package verification

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"greenride/certification-backend/internal/co2"
	"greenride/certification-backend/pkg/faults"
)

// Handler handles HTTP requests for the verification service
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new verification handler
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers verification routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	verification := router.Group("/verification")
	{
		verification.GET("/requests", h.listRequests)
		verification.GET("/requests/:id", h.getRequest)
		verification.POST("/requests", h.createRequest)
		verification.PUT("/requests/:id/status", h.updateStatus)
		verification.GET("/calculate-co2", h.calculateCO2)
	}
}

// createRequest handles POST /verification/requests
func (h *Handler) createRequest(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": faults.Envelope{
			Code:    string(faults.KindInvalidInput),
			Message: err.Error(),
		}})
		return
	}

	request, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.renderError(c, "Failed to create verification request", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Verification request created successfully",
		"request": request,
	})
}

// getRequest handles GET /verification/requests/:id
func (h *Handler) getRequest(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": faults.Envelope{
			Code:    string(faults.KindInvalidInput),
			Message: "invalid request id",
		}})
		return
	}

	request, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.renderError(c, "Failed to fetch verification request", err)
		return
	}

	c.JSON(http.StatusOK, request)
}

// listRequests handles GET /verification/requests
func (h *Handler) listRequests(c *gin.Context) {
	filter := Filter{}
	if status := c.Query("status"); status != "" {
		s := Status(status)
		filter.Status = &s
	}
	page := h.getIntParam(c, "page", 1)
	limit := h.getIntParam(c, "limit", 10)

	response, err := h.service.List(c.Request.Context(), filter, page, limit)
	if err != nil {
		h.renderError(c, "Failed to list verification requests", err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// updateStatus handles PUT /verification/requests/:id/status
func (h *Handler) updateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": faults.Envelope{
			Code:    string(faults.KindInvalidInput),
			Message: "invalid request id",
		}})
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": faults.Envelope{
			Code:    string(faults.KindInvalidInput),
			Message: err.Error(),
		}})
		return
	}

	request, err := h.service.UpdateStatus(c.Request.Context(), id, req.Status, req.Notes)
	if err != nil {
		h.renderError(c, "Failed to update verification status", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Verification status updated successfully",
		"request": request,
	})
}

// calculateCO2 handles GET /verification/calculate-co2
func (h *Handler) calculateCO2(c *gin.Context) {
	totalKm, err := strconv.ParseFloat(c.Query("total_km"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": faults.Envelope{
			Code:    string(faults.KindInvalidInput),
			Message: "total_km must be a number greater than 0",
		}})
		return
	}
	kind := co2.VehicleKind(c.Query("vehicle_type"))

	reduction, credits, err := h.service.CalculateCO2(totalKm, kind)
	if err != nil {
		h.renderError(c, "Failed to calculate CO2 reduction", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"calculation":    reduction,
		"carbon_credits": credits,
	})
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
