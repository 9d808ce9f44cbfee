// Package billing ingests Stripe webhook events and translates the ones that
// evidence churn into churn signals. Events are verified against the webhook
// signing secret before any processing.
package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/stripe/stripe-go/v81"

	"github.com/mbd888/churnsight/internal/logging"
	"github.com/mbd888/churnsight/internal/metrics"
	"github.com/mbd888/churnsight/internal/signals"
)

// signalMappings maps the Stripe event types we care about to signal types.
// Weights come from the signal type defaults. Anything not listed here is
// acknowledged and ignored.
var signalMappings = map[stripe.EventType]signals.Type{
	"invoice.payment_failed":        signals.TypePaymentFailure,
	"customer.subscription.paused":  signals.TypePauseRequested,
	"customer.subscription.deleted": signals.TypeCancellation,
}

// Recorder records churn signals derived from billing events.
type Recorder interface {
	Record(ctx context.Context, input signals.RecordInput) (*signals.ChurnSignal, error)
}

// Service converts verified Stripe events into churn signals.
type Service struct {
	recorder Recorder
	logger   *slog.Logger
}

// NewService creates a new billing event service.
func NewService(recorder Recorder, logger *slog.Logger) *Service {
	return &Service{
		recorder: recorder,
		logger:   logging.Component(logger, "billing"),
	}
}

// eventObject is the subset of a Stripe event payload we read. The customer
// field is a plain ID string in the raw webhook JSON.
type eventObject struct {
	ID       string            `json:"id"`
	Customer string            `json:"customer"`
	Metadata map[string]string `json:"metadata"`
}

// Process maps a verified Stripe event to a churn signal and records it.
// Unmapped event types and events that cannot be attributed to a company are
// acknowledged without recording anything.
func (s *Service) Process(ctx context.Context, event *stripe.Event) error {
	signalType, ok := signalMappings[event.Type]
	if !ok {
		metrics.StripeEventsTotal.WithLabelValues(string(event.Type), "ignored").Inc()
		return nil
	}

	var obj eventObject
	if err := json.Unmarshal(event.Data.Raw, &obj); err != nil {
		metrics.StripeEventsTotal.WithLabelValues(string(event.Type), "malformed").Inc()
		return fmt.Errorf("decode event object: %w", err)
	}

	companyID := obj.Metadata["company_id"]
	if companyID == "" {
		metrics.StripeEventsTotal.WithLabelValues(string(event.Type), "unattributed").Inc()
		s.logger.Warn("stripe event has no company_id metadata, skipping",
			"event_id", event.ID,
			"event_type", event.Type,
		)
		return nil
	}

	customerID := obj.Metadata["customer_id"]
	if customerID == "" {
		customerID = obj.Customer
	}
	if customerID == "" {
		metrics.StripeEventsTotal.WithLabelValues(string(event.Type), "unattributed").Inc()
		s.logger.Warn("stripe event has no resolvable customer, skipping",
			"event_id", event.ID,
			"event_type", event.Type,
		)
		return nil
	}

	_, err := s.recorder.Record(ctx, signals.RecordInput{
		CustomerID: customerID,
		CompanyID:  companyID,
		Type:       signalType,
		Detail:     string(event.Type),
		Metadata: map[string]any{
			"stripeEventId":  event.ID,
			"stripeObjectId": obj.ID,
		},
		OccurredAt: time.Unix(event.Created, 0).UTC(),
	})
	if err != nil {
		metrics.StripeEventsTotal.WithLabelValues(string(event.Type), "error").Inc()
		return fmt.Errorf("record signal for event %s: %w", event.ID, err)
	}

	metrics.StripeEventsTotal.WithLabelValues(string(event.Type), "recorded").Inc()
	s.logger.Info("stripe event recorded as churn signal",
		"event_type", event.Type,
		"signal_type", signalType,
		"company_id", companyID,
		"customer_id", customerID,
	)
	return nil
}
