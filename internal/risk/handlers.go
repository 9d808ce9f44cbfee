package risk

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/churnsight/internal/pagination"
)

// Handler provides HTTP endpoints for risk score reads and recomputes.
type Handler struct {
	engine *Engine
}

// NewHandler creates a new risk handler.
func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

// RegisterRoutes sets up risk routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/companies/:companyId/customers/:customerId/risk", h.GetRisk)
	r.GET("/companies/:companyId/risk", h.ListRisk)
}

// GetRisk handles GET /v1/companies/:companyId/customers/:customerId/risk
func (h *Handler) GetRisk(c *gin.Context) {
	opts := ComputeOptions{
		IncludeSignals:         c.Query("include_signals") == "true",
		IncludeRecommendations: c.Query("include_recommendations") == "true",
	}

	var score *RiskScore
	var err error
	if c.Query("recompute") == "true" {
		score, err = h.engine.Compute(c.Request.Context(), c.Param("companyId"), c.Param("customerId"), opts)
	} else {
		score, err = h.engine.Get(c.Request.Context(), c.Param("companyId"), c.Param("customerId"), opts)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"risk": score})
}

// ListRisk handles GET /v1/companies/:companyId/risk
func (h *Handler) ListRisk(c *gin.Context) {
	q := BulkQuery{
		MinLevel: Level(c.Query("min_level")),
		Cursor:   c.Query("cursor"),
		Limit:    50,
	}
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 200 {
			q.Limit = parsed
		}
	}

	scores, next, hasMore, err := h.engine.List(c.Request.Context(), c.Param("companyId"), q)
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
		"scores":   scores,
		"count":    len(scores),
		"has_more": hasMore,
	}
	if next != "" {
		resp["next_cursor"] = next
	}
	c.JSON(http.StatusOK, resp)
}
