package risk

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/mbd888/churnsight/internal/events"
	"github.com/mbd888/churnsight/internal/idgen"
	"github.com/mbd888/churnsight/internal/logging"
	"github.com/mbd888/churnsight/internal/metrics"
	"github.com/mbd888/churnsight/internal/pagination"
	"github.com/mbd888/churnsight/internal/signals"
	"github.com/mbd888/churnsight/internal/traces"
)

// Factor weights. The weighting scheme is a documented business decision:
// hard payment evidence dominates, then explicit negative detections, then
// behavioral velocity and engagement decay.
const (
	weightPaymentFailures = 0.30
	weightDetections      = 0.25
	weightVelocity        = 0.15
	weightRecency         = 0.15
	weightValue           = 0.15
)

// DefaultSignalWindow bounds how far back signals contribute to a score.
const DefaultSignalWindow = 30 * 24 * time.Hour

// Engine computes churn risk scores from signals and engagement metrics.
type Engine struct {
	store    Store
	source   SignalSource
	provider OrderHistoryProvider
	bus      *events.Bus
	window   time.Duration
	logger   *slog.Logger
}

// ComputeOptions controls what a computed or fetched score includes.
type ComputeOptions struct {
	IncludeSignals         bool
	IncludeRecommendations bool
}

// NewEngine creates a risk engine. provider and bus may be nil; engagement
// factors then read as unknown and no events are published.
func NewEngine(store Store, source SignalSource, provider OrderHistoryProvider, bus *events.Bus, window time.Duration, logger *slog.Logger) *Engine {
	if window <= 0 {
		window = DefaultSignalWindow
	}
	return &Engine{
		store:    store,
		source:   source,
		provider: provider,
		bus:      bus,
		window:   window,
		logger:   logging.Component(logger, "risk"),
	}
}

// Get returns the latest stored score for a customer, computing one if none
// exists yet.
func (e *Engine) Get(ctx context.Context, companyID, customerID string, opts ComputeOptions) (*RiskScore, error) {
	score, err := e.store.GetLatest(ctx, companyID, customerID)
	if err == ErrRiskScoreNotFound {
		return e.Compute(ctx, companyID, customerID, opts)
	}
	if err != nil {
		return nil, err
	}
	if !opts.IncludeRecommendations {
		score.Recommendations = nil
	}
	if opts.IncludeSignals {
		since := time.Now().UTC().Add(-e.window)
		sigs, err := e.source.ListRecent(ctx, companyID, customerID, since)
		if err != nil {
			return nil, fmt.Errorf("list signals: %w", err)
		}
		score.Signals = sigs
	}
	return score, nil
}

// Compute recalculates a customer's risk score from current signals and
// engagement metrics, persists it, and publishes a risk.computed event.
func (e *Engine) Compute(ctx context.Context, companyID, customerID string, opts ComputeOptions) (*RiskScore, error) {
	ctx, span := traces.StartSpan(ctx, "risk.Compute",
		traces.CompanyID(companyID),
		traces.CustomerID(customerID),
	)
	defer span.End()

	now := time.Now().UTC()
	sigs, err := e.source.ListRecent(ctx, companyID, customerID, now.Add(-e.window))
	if err != nil {
		return nil, fmt.Errorf("list signals: %w", err)
	}

	em := EngagementMetrics{DaysSinceLastOrder: -1}
	if e.provider != nil {
		history, err := e.provider.OrderHistory(ctx, companyID, customerID)
		if err != nil {
			e.logger.Warn("order history unavailable",
				"customer_id", customerID,
				"error", err,
			)
		} else {
			em = ComputeEngagement(history, now)
		}
	}

	score := Calculate(companyID, customerID, sigs, em, now)
	span.SetAttributes(traces.RiskLevel(string(score.Level)))
	metrics.RiskComputationsTotal.WithLabelValues(string(score.Level)).Inc()

	previous, err := e.store.GetLatest(ctx, companyID, customerID)
	previousLevel := Level("")
	if err == nil {
		previousLevel = previous.Level
	} else if err != ErrRiskScoreNotFound {
		return nil, fmt.Errorf("load previous score: %w", err)
	}

	if err := e.store.Upsert(ctx, score); err != nil {
		return nil, fmt.Errorf("persist risk score: %w", err)
	}

	levelChanged := previousLevel != "" && previousLevel != score.Level
	if levelChanged {
		direction := "up"
		if Rank(score.Level) < Rank(previousLevel) {
			direction = "down"
		}
		metrics.RiskLevelTransitionsTotal.WithLabelValues(direction).Inc()
		e.logger.Info("risk level changed",
			"customer_id", customerID,
			"from", previousLevel,
			"to", score.Level,
			"score", score.Score,
		)
	}

	if e.bus != nil {
		e.bus.Publish(events.TopicRiskComputed, &RiskComputedEvent{
			Score:         score,
			PreviousLevel: previousLevel,
			LevelChanged:  levelChanged,
		})
	}

	out := *score
	if !opts.IncludeSignals {
		out.Signals = nil
	}
	if !opts.IncludeRecommendations {
		out.Recommendations = nil
	}
	return &out, nil
}

// List returns a company's scores at or above the minimum level, descending
// by score, cursor-paginated.
func (e *Engine) List(ctx context.Context, companyID string, q BulkQuery) ([]*RiskScore, string, bool, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}

	var after *ScorePosition
	if q.Cursor != "" {
		cur, err := pagination.DecodeScore(q.Cursor)
		if err != nil {
			return nil, "", false, err
		}
		after = &ScorePosition{Score: int(cur.Score), ID: cur.ID}
	}

	items, err := e.store.ListByCompany(ctx, companyID, q.MinLevel, limit+1, after)
	if err != nil {
		return nil, "", false, fmt.Errorf("list risk scores: %w", err)
	}

	page, next, hasMore := pagination.ComputeScorePage(items, limit, func(s *RiskScore) (float64, string) {
		return float64(s.Score), s.ID
	})
	return page, next, hasMore, nil
}

// Calculate is the pure scoring function: identical inputs always produce an
// identical score, level, and factor breakdown.
func Calculate(companyID, customerID string, sigs []*signals.ChurnSignal, em EngagementMetrics, now time.Time) *RiskScore {
	factors := map[string]float64{
		"payment_failures": paymentFailureFactor(sigs),
		"detections":       detectionFactor(sigs),
		"velocity":         velocityFactor(sigs, now),
		"recency":          recencyFactor(em),
		"value":            valueFactor(em),
	}

	weighted := factors["payment_failures"]*weightPaymentFailures +
		factors["detections"]*weightDetections +
		factors["velocity"]*weightVelocity +
		factors["recency"]*weightRecency +
		factors["value"]*weightValue
	weighted = clamp01(weighted)

	score := int(math.Round(weighted * 100))
	level := LevelForScore(score)

	return &RiskScore{
		ID:              idgen.WithPrefix("risk_"),
		CustomerID:      customerID,
		CompanyID:       companyID,
		Score:           score,
		Level:           level,
		Factors:         factors,
		Signals:         sigs,
		Recommendations: recommend(factors, level),
		ComputedAt:      now,
	}
}

// paymentFailureFactor: summed payment failure weights; two full-weight
// failures saturate the factor.
func paymentFailureFactor(sigs []*signals.ChurnSignal) float64 {
	var sum float64
	for _, s := range sigs {
		if s.Type == signals.TypePaymentFailure {
			sum += s.Weight
		}
	}
	return clamp01(sum / 2)
}

// detectionFactor: summed weights of explicit churn-intent evidence.
func detectionFactor(sigs []*signals.ChurnSignal) float64 {
	var sum float64
	for _, s := range sigs {
		switch s.Type {
		case signals.TypeNegativeDetection, signals.TypeCancellation, signals.TypePauseRequested:
			sum += s.Weight
		}
	}
	return clamp01(sum / 2)
}

// velocityFactor: how clustered recent signals are. Five signals inside the
// last 7 days saturate the factor.
func velocityFactor(sigs []*signals.ChurnSignal, now time.Time) float64 {
	cutoff := now.AddDate(0, 0, -7)
	count := 0
	for _, s := range sigs {
		if s.OccurredAt.After(cutoff) {
			count++
		}
	}
	return clamp01(float64(count) / 5)
}

// recencyFactor: engagement decay. Under 14 days since the last order is
// healthy; risk ramps linearly to 1.0 at 90 days. A customer with no order
// history at all reads as moderately risky rather than maximally, since
// absence of history is weaker evidence than observed decay.
func recencyFactor(em EngagementMetrics) float64 {
	if em.DaysSinceLastOrder < 0 {
		return 0.6
	}
	if em.DaysSinceLastOrder < 14 {
		return 0
	}
	return clamp01(float64(em.DaysSinceLastOrder-14) / 76)
}

// valueFactor: combined frequency and monetary engagement. Ordering monthly
// and a lifetime value of 500+ both read as fully engaged.
func valueFactor(em EngagementMetrics) float64 {
	frequency := 1 - clamp01(em.OrdersPerMonth)
	monetary := 1 - clamp01(em.LifetimeValue/500)
	return clamp01(0.5*frequency + 0.5*monetary)
}

// recommend derives informative next actions from the factor breakdown.
// Purely advisory: omitting them changes nothing about the score.
func recommend(factors map[string]float64, level Level) []string {
	var out []string
	if factors["payment_failures"] >= 0.5 {
		out = append(out, "retry payment or offer an alternate payment method")
	}
	if factors["detections"] >= 0.5 {
		out = append(out, "enroll customer in retention outreach")
	}
	if factors["recency"] >= 0.5 {
		out = append(out, "send a win-back campaign")
	}
	if factors["value"] >= 0.75 {
		out = append(out, "suggest a plan better matched to usage")
	}
	if level == LevelCritical {
		out = append(out, "escalate to a retention specialist")
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
