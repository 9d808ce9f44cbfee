// Package risk implements per-customer churn risk scoring.
//
// A customer's recent churn signals and engagement metrics are aggregated
// into a 0-100 score and a discrete level. Each computation is a fresh pure
// function of its inputs; scores are never incrementally mutated.
package risk

import (
	"context"
	"errors"
	"time"

	"github.com/mbd888/churnsight/internal/signals"
)

var (
	ErrRiskScoreNotFound = errors.New("risk score not found")
)

// Level is the discrete churn risk level.
type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// Score thresholds for risk levels. The level is a monotonic step function
// of the score.
const (
	MediumThreshold   = 25
	HighThreshold     = 50
	CriticalThreshold = 75
)

// LevelForScore maps a 0-100 score to its risk level.
func LevelForScore(score int) Level {
	switch {
	case score >= CriticalThreshold:
		return LevelCritical
	case score >= HighThreshold:
		return LevelHigh
	case score >= MediumThreshold:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Rank orders levels for minimum-level filtering and transition direction.
func Rank(l Level) int {
	switch l {
	case LevelCritical:
		return 3
	case LevelHigh:
		return 2
	case LevelMedium:
		return 1
	default:
		return 0
	}
}

// RiskScore is one computed churn risk assessment for one customer.
type RiskScore struct {
	ID              string                 `json:"id"`
	CustomerID      string                 `json:"customerId"`
	CompanyID       string                 `json:"companyId"`
	Score           int                    `json:"score"`
	Level           Level                  `json:"level"`
	Factors         map[string]float64     `json:"factors"`
	Signals         []*signals.ChurnSignal `json:"signals,omitempty"`
	Recommendations []string               `json:"recommendations,omitempty"`
	ComputedAt      time.Time              `json:"computedAt"`
}

// BulkQuery filters a company-wide risk listing.
type BulkQuery struct {
	MinLevel Level
	Limit    int
	Cursor   string
}

// Store persists the latest risk score per customer.
type Store interface {
	Upsert(ctx context.Context, score *RiskScore) error
	GetLatest(ctx context.Context, companyID, customerID string) (*RiskScore, error)
	// ListByCompany returns up to limit scores at or above minLevel, ordered
	// by descending score with ID as tiebreak, starting after the cursor
	// position when given.
	ListByCompany(ctx context.Context, companyID string, minLevel Level, limit int, after *ScorePosition) ([]*RiskScore, error)
}

// ScorePosition is a resume point in a descending-score listing.
type ScorePosition struct {
	Score int
	ID    string
}

// SignalSource reads a customer's recent signal history.
type SignalSource interface {
	ListRecent(ctx context.Context, companyID, customerID string, since time.Time) ([]*signals.ChurnSignal, error)
}

// RiskComputedEvent is published after each computation.
type RiskComputedEvent struct {
	Score         *RiskScore `json:"score"`
	PreviousLevel Level      `json:"previousLevel,omitempty"`
	LevelChanged  bool       `json:"levelChanged"`
}
