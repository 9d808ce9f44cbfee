package risk

import (
	"context"
	"time"
)

// Order is one historical purchase.
type Order struct {
	Total    float64   `json:"total"`
	PlacedAt time.Time `json:"placedAt"`
}

// OrderHistory is the raw commerce data engagement metrics derive from.
type OrderHistory struct {
	SignupAt   time.Time `json:"signupAt"`
	Orders     []Order   `json:"orders"`
	PlanStatus string    `json:"planStatus,omitempty"`
}

// OrderHistoryProvider fetches order history from the commerce backend.
// Returning (nil, nil) means the customer is unknown.
type OrderHistoryProvider interface {
	OrderHistory(ctx context.Context, companyID, customerID string) (*OrderHistory, error)
}

// EngagementMetrics are derived recency/frequency/monetary indicators.
// Read-only, recomputed per request.
type EngagementMetrics struct {
	TenureMonths       int     `json:"tenureMonths"`
	LifetimeValue      float64 `json:"lifetimeValue"`
	OrderCount         int     `json:"orderCount"`
	DaysSinceLastOrder int     `json:"daysSinceLastOrder"` // -1 when no orders
	OrdersPerMonth     float64 `json:"ordersPerMonth"`
	PlanStatus         string  `json:"planStatus,omitempty"`
}

// ComputeEngagement derives engagement metrics from order history at a given
// point in time. A nil history yields zero metrics with DaysSinceLastOrder -1.
func ComputeEngagement(history *OrderHistory, now time.Time) EngagementMetrics {
	em := EngagementMetrics{DaysSinceLastOrder: -1}
	if history == nil {
		return em
	}

	em.PlanStatus = history.PlanStatus
	if !history.SignupAt.IsZero() && history.SignupAt.Before(now) {
		days := int(now.Sub(history.SignupAt).Hours() / 24)
		em.TenureMonths = days / 30
	}

	var last time.Time
	for _, order := range history.Orders {
		em.OrderCount++
		em.LifetimeValue += order.Total
		if order.PlacedAt.After(last) {
			last = order.PlacedAt
		}
	}
	if !last.IsZero() {
		em.DaysSinceLastOrder = int(now.Sub(last).Hours() / 24)
		if em.DaysSinceLastOrder < 0 {
			em.DaysSinceLastOrder = 0
		}
	}
	if em.TenureMonths > 0 {
		em.OrdersPerMonth = float64(em.OrderCount) / float64(em.TenureMonths)
	} else {
		em.OrdersPerMonth = float64(em.OrderCount)
	}
	return em
}
