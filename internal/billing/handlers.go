package billing

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v81/webhook"
)

// maxPayloadBytes bounds the inbound webhook body. Stripe's own guidance
// caps event payloads well below this.
const maxPayloadBytes = 64 * 1024

// Handler receives Stripe webhook callbacks.
type Handler struct {
	service       *Service
	webhookSecret string
}

// NewHandler creates a new Stripe webhook handler. The signing secret must be
// non-empty; the server only mounts this handler when one is configured.
func NewHandler(service *Service, webhookSecret string) *Handler {
	return &Handler{service: service, webhookSecret: webhookSecret}
}

// RegisterRoutes sets up the billing webhook route.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/billing/stripe/webhook", h.StripeWebhook)
}

// StripeWebhook handles POST /v1/billing/stripe/webhook
func (h *Handler) StripeWebhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxPayloadBytes)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_payload",
			"message": "failed to read request body",
		})
		return
	}

	event, err := webhook.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), h.webhookSecret)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_signature",
			"message": "webhook signature verification failed",
		})
		return
	}

	if err := h.service.Process(c.Request.Context(), &event); err != nil {
		// Stripe retries on non-2xx. Processing failures are retryable;
		// malformed payloads are not, but those already failed verification.
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
