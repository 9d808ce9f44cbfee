package detect

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mbd888/churnsight/internal/events"
	"github.com/mbd888/churnsight/internal/idgen"
	"github.com/mbd888/churnsight/internal/logging"
	"github.com/mbd888/churnsight/internal/metrics"
	"github.com/mbd888/churnsight/internal/pagination"
	"github.com/mbd888/churnsight/internal/traces"
)

// Service runs the full detection pipeline: normalize input, fetch customer
// context, classify, decide intervention, persist, publish.
type Service struct {
	rules    *Ruleset
	store    Store
	provider ContextProvider
	bus      *events.Bus
	logger   *slog.Logger
}

// NewService constructs a detection service. provider and bus may be nil;
// detection then runs without customer context and without event publication.
func NewService(store Store, provider ContextProvider, bus *events.Bus, logger *slog.Logger) *Service {
	return &Service{
		rules:    DefaultRules,
		store:    store,
		provider: provider,
		bus:      bus,
		logger:   logging.Component(logger, "detect"),
	}
}

// Detect analyzes one input end to end.
//
// If persistence fails the computed result is still returned alongside the
// error, so callers can act on the classification even when storage is down.
func (s *Service) Detect(ctx context.Context, input DetectIntentInput) (*DetectionResult, error) {
	ctx, span := traces.StartSpan(ctx, "detect.Detect",
		traces.CustomerID(input.CustomerID),
		traces.CompanyID(input.CompanyID),
	)
	defer span.End()

	start := time.Now()

	text := input.Text
	if text == "" {
		text = input.Transcript
	}
	text = strings.ToLower(text)

	cc := s.customerContext(ctx, input)

	intent, confidence, secondary := s.rules.ClassifyIntent(text, cc)
	sentiment, sentimentScore := s.rules.AnalyzeSentiment(text)

	result := &DetectionResult{
		ID:                idgen.WithPrefix("det_"),
		CustomerID:        input.CustomerID,
		SessionID:         input.SessionID,
		CompanyID:         input.CompanyID,
		PrimaryIntent:     intent,
		PrimaryConfidence: confidence,
		SecondaryIntents:  secondary,
		Sentiment:         sentiment,
		SentimentScore:    sentimentScore,
		Source:            input.Source,
		SourceData:        input.Metadata,
		DetectedAt:        time.Now().UTC(),
	}
	if result.Source == "" {
		result.Source = SourceAPI
	}

	if intent == IntentCancel || intent == IntentPause {
		result.CancelReason, result.CancelReasonConfidence = s.rules.ClassifyCancelReason(text)
	}

	result.Urgency = ResolveUrgency(intent, sentiment, cc)

	shouldTrigger, interventionType := DecideIntervention(intent, confidence, sentiment)

	span.SetAttributes(
		traces.Intent(string(intent)),
		traces.Urgency(string(result.Urgency)),
	)
	metrics.DetectionsTotal.WithLabelValues(string(intent)).Inc()
	if shouldTrigger {
		metrics.InterventionsTriggeredTotal.WithLabelValues(interventionType).Inc()
	}
	metrics.DetectionDuration.Observe(time.Since(start).Seconds())

	s.logger.Info("detection complete",
		"detection_id", result.ID,
		"customer_id", result.CustomerID,
		"intent", intent,
		"confidence", confidence,
		"sentiment", sentiment,
		"urgency", result.Urgency,
		"intervention", interventionType,
	)

	s.publish(result, shouldTrigger, interventionType)

	if err := s.store.Insert(ctx, result); err != nil {
		s.logger.Error("failed to persist detection",
			"detection_id", result.ID,
			"error", err,
		)
		return result, fmt.Errorf("persist detection: %w", err)
	}
	return result, nil
}

// Get returns a stored detection by ID.
func (s *Service) Get(ctx context.Context, id string) (*DetectionResult, error) {
	return s.store.Get(ctx, id)
}

// List returns stored detections for a company, newest first.
// List returns a page of detections plus the cursor for the next page.
func (s *Service) List(ctx context.Context, companyID string, q ListQuery) ([]*DetectionResult, string, bool, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}

	if q.Cursor != "" {
		cur, err := pagination.Decode(q.Cursor)
		if err != nil {
			return nil, "", false, err
		}
		q.After = &ListPosition{DetectedAt: cur.CreatedAt, ID: cur.ID}
	}

	// Fetch one extra row to learn whether another page exists.
	q.Limit = limit + 1
	items, err := s.store.List(ctx, companyID, q)
	if err != nil {
		return nil, "", false, fmt.Errorf("list detections: %w", err)
	}

	page, next, hasMore := pagination.ComputePage(items, limit, func(d *DetectionResult) (time.Time, string) {
		return d.DetectedAt, d.ID
	})
	return page, next, hasMore, nil
}

// customerContext resolves classifier context for the request. Provider
// failures are logged and treated as missing context, never as a detection
// failure.
func (s *Service) customerContext(ctx context.Context, input DetectIntentInput) CustomerContext {
	if s.provider == nil {
		return CustomerContext{CurrentPage: input.CurrentPage, CurrentAction: input.CurrentAction}
	}
	profile, err := s.provider.CustomerProfile(ctx, input.CompanyID, input.CustomerID)
	if err != nil {
		s.logger.Warn("customer context unavailable",
			"customer_id", input.CustomerID,
			"error", err,
		)
		profile = nil
	}
	return profile.Context(input.CurrentPage, input.CurrentAction)
}

func (s *Service) publish(result *DetectionResult, shouldTrigger bool, interventionType string) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.TopicIntentDetected, &IntentDetectedEvent{
		Detection:                 result,
		ShouldTriggerIntervention: shouldTrigger,
		InterventionType:          interventionType,
	})
}
