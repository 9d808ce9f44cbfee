package webhooks

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/churnsight/internal/idgen"
	"github.com/mbd888/churnsight/internal/security"
)

// Handler provides HTTP endpoints for webhook subscription management.
type Handler struct {
	store Store

	// defaultSecret signs subscriptions created without their own secret.
	// Empty means every subscription gets a freshly generated one.
	defaultSecret string
}

// NewHandler creates a new webhook handler.
func NewHandler(store Store, defaultSecret string) *Handler {
	return &Handler{store: store, defaultSecret: defaultSecret}
}

// RegisterRoutes sets up webhook routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/companies/:companyId/webhooks", h.CreateWebhook)
	r.GET("/companies/:companyId/webhooks", h.ListWebhooks)
	r.DELETE("/companies/:companyId/webhooks/:webhookId", h.DeleteWebhook)
}

// CreateWebhookRequest for creating a webhook subscription.
type CreateWebhookRequest struct {
	URL    string   `json:"url" binding:"required"`
	Events []string `json:"events" binding:"required"`
}

// CreateWebhook handles POST /v1/companies/:companyId/webhooks
func (h *Handler) CreateWebhook(c *gin.Context) {
	companyID := c.Param("companyId")

	var req CreateWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	if err := security.ValidateEndpointURL(req.URL); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_url",
			"message": err.Error(),
		})
		return
	}

	eventTypes := make([]EventType, len(req.Events))
	for i, e := range req.Events {
		et := EventType(e)
		if !KnownEventType(et) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "unknown_event_type",
				"message": "Unknown event type: " + e,
			})
			return
		}
		eventTypes[i] = et
	}

	secret := h.defaultSecret
	if secret == "" {
		secret = idgen.Hex(32)
	}
	sub := &Subscription{
		ID:        idgen.WithPrefix("wh_"),
		CompanyID: companyID,
		URL:       req.URL,
		Secret:    secret,
		Events:    eventTypes,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}

	if err := h.store.Create(c.Request.Context(), sub); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "create_failed",
			"message": "Failed to create webhook",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"webhook": gin.H{
			"id":        sub.ID,
			"url":       sub.URL,
			"events":    sub.Events,
			"active":    sub.Active,
			"createdAt": sub.CreatedAt,
		},
		"secret": secret, // Only shown once!
		"usage": gin.H{
			"signature": "Verify with HMAC-SHA256(payload, secret)",
			"header":    "X-Churnsight-Signature",
		},
	})
}

// ListWebhooks handles GET /v1/companies/:companyId/webhooks
func (h *Handler) ListWebhooks(c *gin.Context) {
	companyID := c.Param("companyId")

	subs, err := h.store.GetByCompany(c.Request.Context(), companyID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "list_failed",
			"message": "Failed to list webhooks",
		})
		return
	}

	// Don't expose secrets
	webhooks := make([]gin.H, len(subs))
	for i, sub := range subs {
		webhooks[i] = gin.H{
			"id":          sub.ID,
			"url":         sub.URL,
			"events":      sub.Events,
			"active":      sub.Active,
			"createdAt":   sub.CreatedAt,
			"lastSuccess": sub.LastSuccess,
			"lastError":   sub.LastError,
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"webhooks": webhooks,
	})
}

// DeleteWebhook handles DELETE /v1/companies/:companyId/webhooks/:webhookId
func (h *Handler) DeleteWebhook(c *gin.Context) {
	webhookID := c.Param("webhookId")

	sub, err := h.store.Get(c.Request.Context(), webhookID)
	if err != nil {
		if errors.Is(err, ErrSubscriptionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "Webhook not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}
	if sub.CompanyID != c.Param("companyId") {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "Webhook not found",
		})
		return
	}

	if err := h.store.Delete(c.Request.Context(), webhookID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "delete_failed",
			"message": "Failed to delete webhook",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "deleted",
		"message": "Webhook deleted",
	})
}
