package signals

import (
	"context"
	"log/slog"
	"time"

	"github.com/mbd888/churnsight/internal/detect"
	"github.com/mbd888/churnsight/internal/events"
	"github.com/mbd888/churnsight/internal/logging"
)

// Consumer records churn-relevant detections back into the signal ledger so
// they feed subsequent risk computations. Recording is fire-and-forget;
// a storage failure never affects the detection pipeline.
type Consumer struct {
	service *Service
	logger  *slog.Logger
}

// NewConsumer creates a new detection-to-signal consumer.
func NewConsumer(service *Service, logger *slog.Logger) *Consumer {
	return &Consumer{
		service: service,
		logger:  logging.Component(logger, "signal_consumer"),
	}
}

// Attach subscribes the consumer to the domain event bus.
func (c *Consumer) Attach(bus *events.Bus) {
	bus.Subscribe(events.TopicIntentDetected, c.onIntentDetected)
}

func (c *Consumer) onIntentDetected(ctx context.Context, evt *events.Event) {
	payload, ok := evt.Data.(*detect.IntentDetectedEvent)
	if !ok || payload.Detection == nil {
		return
	}
	det := payload.Detection

	if !signalWorthy(det) {
		return
	}

	recordCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := c.service.Record(recordCtx, RecordInput{
		CustomerID: det.CustomerID,
		CompanyID:  det.CompanyID,
		Type:       TypeNegativeDetection,
		Detail:     string(det.PrimaryIntent),
		Metadata: map[string]any{
			"detectionId": det.ID,
			"sentiment":   string(det.Sentiment),
			"confidence":  det.PrimaryConfidence,
		},
		OccurredAt: det.DetectedAt,
	})
	if err != nil {
		c.logger.Warn("failed to record detection signal",
			"detection_id", det.ID,
			"customer_id", det.CustomerID,
			"error", err,
		)
	}
}

// signalWorthy reports whether a detection is churn evidence on its own:
// an explicit cancel or pause intent, or clearly negative sentiment.
func signalWorthy(det *detect.DetectionResult) bool {
	switch det.PrimaryIntent {
	case detect.IntentCancel, detect.IntentPause:
		return true
	}
	switch det.Sentiment {
	case detect.SentimentNegative, detect.SentimentVeryNegative:
		return true
	}
	return false
}
