package webhooks

import (
	"context"
	"log/slog"
	"time"

	"github.com/mbd888/churnsight/internal/detect"
	"github.com/mbd888/churnsight/internal/events"
	"github.com/mbd888/churnsight/internal/idgen"
	"github.com/mbd888/churnsight/internal/logging"
	"github.com/mbd888/churnsight/internal/risk"
)

// Emitter translates domain events from the in-process bus into outbound
// webhook deliveries. All methods are fire-and-forget: errors are logged but
// never propagated back to the publishing pipeline.
type Emitter struct {
	d      *Dispatcher
	logger *slog.Logger
}

// NewEmitter creates a new webhook emitter.
func NewEmitter(d *Dispatcher, logger *slog.Logger) *Emitter {
	return &Emitter{d: d, logger: logging.Component(logger, "webhook_emitter")}
}

// Attach subscribes the emitter to the domain event bus.
func (e *Emitter) Attach(bus *events.Bus) {
	bus.Subscribe(events.TopicIntentDetected, e.onIntentDetected)
	bus.Subscribe(events.TopicRiskComputed, e.onRiskComputed)
}

func (e *Emitter) onIntentDetected(ctx context.Context, evt *events.Event) {
	payload, ok := evt.Data.(*detect.IntentDetectedEvent)
	if !ok || payload.Detection == nil {
		return
	}
	det := payload.Detection

	e.emit(det.CompanyID, EventIntentDetected, map[string]any{
		"detection":                 det,
		"shouldTriggerIntervention": payload.ShouldTriggerIntervention,
		"interventionType":          payload.InterventionType,
	})

	if payload.ShouldTriggerIntervention {
		e.emit(det.CompanyID, EventInterventionTriggered, map[string]any{
			"detectionId":      det.ID,
			"customerId":       det.CustomerID,
			"interventionType": payload.InterventionType,
			"intent":           det.PrimaryIntent,
			"confidence":       det.PrimaryConfidence,
			"urgency":          det.Urgency,
		})
	}
}

func (e *Emitter) onRiskComputed(ctx context.Context, evt *events.Event) {
	payload, ok := evt.Data.(*risk.RiskComputedEvent)
	if !ok || payload.Score == nil || !payload.LevelChanged {
		return
	}
	score := payload.Score

	e.emit(score.CompanyID, EventRiskLevelChanged, map[string]any{
		"customerId":    score.CustomerID,
		"score":         score.Score,
		"level":         score.Level,
		"previousLevel": payload.PreviousLevel,
		"computedAt":    score.ComputedAt,
	})
}

func (e *Emitter) emit(companyID string, eventType EventType, data map[string]any) {
	if e == nil || e.d == nil {
		return
	}
	event := &Event{
		ID:        idgen.WithPrefix("evt_"),
		Type:      eventType,
		CompanyID: companyID,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := e.d.Dispatch(ctx, event); err != nil {
		e.logger.Warn("webhook emit failed", "event", eventType, "company_id", companyID, "error", err)
	}
}
