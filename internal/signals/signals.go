// Package signals maintains the churn-signal ledger: an append-only log of
// discrete behavioral events that serve as evidence of cancellation risk.
// Signals are never mutated or deleted; expiry is a windowed read concern,
// not a write concern.
package signals

import (
	"context"
	"errors"
	"time"
)

var (
	ErrUnknownSignalType = errors.New("unknown signal type")
	ErrEmptyBatch        = errors.New("empty signal batch")
)

// Type classifies a churn signal.
type Type string

const (
	TypePaymentFailure    Type = "payment_failure"
	TypeNegativeDetection Type = "negative_detection"
	TypeCancellation      Type = "cancellation"
	TypePauseRequested    Type = "pause_requested"
	TypeDowngrade         Type = "downgrade"
	TypeInactivity        Type = "inactivity"
	TypeSupportTicket     Type = "support_ticket"
	TypeRefundRequest     Type = "refund_request"
	TypeDeliveryIssue     Type = "delivery_issue"
)

// defaultWeights is the built-in severity weight per signal type, used when
// the caller does not supply one. Weights are in [0, 1].
var defaultWeights = map[Type]float64{
	TypePaymentFailure:    1.0,
	TypeNegativeDetection: 0.7,
	TypeCancellation:      1.0,
	TypePauseRequested:    0.6,
	TypeDowngrade:         0.5,
	TypeInactivity:        0.4,
	TypeSupportTicket:     0.3,
	TypeRefundRequest:     0.6,
	TypeDeliveryIssue:     0.4,
}

// ChurnSignal is one observed behavioral event. Append-only.
type ChurnSignal struct {
	ID         string         `json:"id"`
	CustomerID string         `json:"customerId"`
	CompanyID  string         `json:"companyId"`
	Type       Type           `json:"type"`
	Weight     float64        `json:"weight"`
	Detail     string         `json:"detail,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
	RecordedAt time.Time      `json:"recordedAt"`
}

// RecordInput is the request to append one churn signal.
type RecordInput struct {
	CustomerID string         `json:"customerId" binding:"required"`
	CompanyID  string         `json:"companyId" binding:"required"`
	Type       Type           `json:"type" binding:"required"`
	Weight     float64        `json:"weight,omitempty"`
	Detail     string         `json:"detail,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurredAt,omitempty"`
}

// CustomerRef identifies one customer within one company.
type CustomerRef struct {
	CompanyID  string
	CustomerID string
}

// Store is the durable signal ledger.
type Store interface {
	Insert(ctx context.Context, signal *ChurnSignal) error
	InsertBatch(ctx context.Context, batch []*ChurnSignal) error
	// ListRecent returns a customer's signals with OccurredAt >= since,
	// newest first.
	ListRecent(ctx context.Context, companyID, customerID string, since time.Time) ([]*ChurnSignal, error)
	// ActiveCustomers returns distinct customers with at least one signal
	// recorded at or after since.
	ActiveCustomers(ctx context.Context, since time.Time) ([]CustomerRef, error)
}

// KnownType reports whether t is a recognized signal type.
func KnownType(t Type) bool {
	_, ok := defaultWeights[t]
	return ok
}

// DefaultWeight returns the built-in weight for a signal type, 0 if unknown.
func DefaultWeight(t Type) float64 {
	return defaultWeights[t]
}
