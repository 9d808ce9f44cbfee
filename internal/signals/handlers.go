package signals

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/churnsight/internal/validation"
)

// validateRecordInput enforces the id grammar on body-carried identifiers
// and caps the free-text detail field. Required is checked here too because
// binding tags are not applied to elements of a batch slice.
func validateRecordInput(input RecordInput) validation.ValidationErrors {
	return validation.Validate(
		validation.Required("customerId", input.CustomerID),
		validation.ValidID("customerId", input.CustomerID),
		validation.Required("companyId", input.CompanyID),
		validation.ValidID("companyId", input.CompanyID),
		validation.Required("type", string(input.Type)),
		validation.MaxLength("detail", input.Detail, validation.MaxStringLength),
	)
}

// Handler provides HTTP endpoints for churn-signal ingestion.
type Handler struct {
	service *Service
}

// NewHandler creates a new signal handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up signal ingestion routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/signals", h.RecordSignal)
	r.POST("/signals/batch", h.RecordBatch)
	r.GET("/companies/:companyId/customers/:customerId/signals", h.ListSignals)
}

// RecordSignal handles POST /v1/signals
func (h *Handler) RecordSignal(c *gin.Context) {
	var input RecordInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
		return
	}
	if verrs := validateRecordInput(input); len(verrs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_failed",
			"message": verrs.Error(),
			"details": verrs,
		})
		return
	}
	input.Detail = validation.SanitizeString(input.Detail, validation.MaxStringLength)

	signal, err := h.service.Record(c.Request.Context(), input)
	if err != nil {
		if errors.Is(err, ErrUnknownSignalType) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "unknown_signal_type",
				"message": err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"signal": signal})
}

// RecordBatch handles POST /v1/signals/batch
func (h *Handler) RecordBatch(c *gin.Context) {
	var body struct {
		Signals []RecordInput `json:"signals" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
		return
	}
	for i, input := range body.Signals {
		if verrs := validateRecordInput(input); len(verrs) > 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "validation_failed",
				"message": verrs.Error(),
				"details": verrs,
			})
			return
		}
		body.Signals[i].Detail = validation.SanitizeString(input.Detail, validation.MaxStringLength)
	}

	batch, err := h.service.RecordBatch(c.Request.Context(), body.Signals)
	if err != nil {
		if errors.Is(err, ErrUnknownSignalType) || errors.Is(err, ErrEmptyBatch) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_request",
				"message": err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"signals": batch,
		"count":   len(batch),
	})
}

// ListSignals handles GET /v1/companies/:companyId/customers/:customerId/signals
func (h *Handler) ListSignals(c *gin.Context) {
	since := time.Now().UTC().AddDate(0, 0, -30)
	if s := c.Query("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_request",
				"message": "since must be RFC3339",
			})
			return
		}
		since = t
	}

	list, err := h.service.ListRecent(c.Request.Context(), c.Param("companyId"), c.Param("customerId"), since)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"signals": list,
		"count":   len(list),
	})
}
