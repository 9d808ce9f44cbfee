package detect

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/churnsight/internal/pagination"
	"github.com/mbd888/churnsight/internal/validation"
)

// Handler provides HTTP endpoints for detection operations.
type Handler struct {
	service *Service
}

// NewHandler creates a new detection handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up detection routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/detect", h.Detect)
	r.GET("/detections/:id", h.GetDetection)
	r.GET("/companies/:companyId/detections", h.ListDetections)
}

// Detect handles POST /v1/detect
func (h *Handler) Detect(c *gin.Context) {
	var input DetectIntentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
		return
	}

	// URL params get the id grammar via middleware; body-carried ids are
	// checked here so callers cannot persist arbitrary strings as keys.
	if verrs := validation.Validate(
		validation.ValidID("customerId", input.CustomerID),
		validation.ValidID("companyId", input.CompanyID),
		validation.ValidID("sessionId", input.SessionID),
		validation.MaxLength("text", input.Text, validation.MaxTextLength),
		validation.MaxLength("transcript", input.Transcript, validation.MaxTextLength),
	); len(verrs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_failed",
			"message": verrs.Error(),
			"details": verrs,
		})
		return
	}
	input.Text = validation.SanitizeString(input.Text, validation.MaxTextLength)
	input.Transcript = validation.SanitizeString(input.Transcript, validation.MaxTextLength)

	result, err := h.service.Detect(c.Request.Context(), input)
	if err != nil {
		// The classification succeeded even if persistence didn't; callers
		// get the result with a 200 so retention flows keep working while
		// storage recovers.
		if result != nil {
			c.JSON(http.StatusOK, gin.H{"detection": result, "persisted": false})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"detection": result})
}

// GetDetection handles GET /v1/detections/:id
func (h *Handler) GetDetection(c *gin.Context) {
	result, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if err == ErrDetectionNotFound {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "No detection found with this ID",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"detection": result})
}

// ListDetections handles GET /v1/companies/:companyId/detections
func (h *Handler) ListDetections(c *gin.Context) {
	companyID := c.Param("companyId")

	q := ListQuery{
		CustomerID: c.Query("customerId"),
		Intent:     Intent(c.Query("intent")),
		Cursor:     c.Query("cursor"),
		Limit:      50,
	}
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 200 {
			q.Limit = parsed
		}
	}
	if from := c.Query("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_request",
				"message": "from must be RFC3339",
			})
			return
		}
		q.From = t
	}
	if to := c.Query("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_request",
				"message": "to must be RFC3339",
			})
			return
		}
		q.To = t
	}

	detections, next, hasMore, err := h.service.List(c.Request.Context(), companyID, q)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidCursor) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_cursor",
				"message": "cursor is not valid",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}

	resp := gin.H{
		"detections": detections,
		"count":      len(detections),
		"has_more":   hasMore,
	}
	if next != "" {
		resp["next_cursor"] = next
	}
	c.JSON(http.StatusOK, resp)
}
