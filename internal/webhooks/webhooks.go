// Package webhooks delivers retention events to external services.
//
// Companies register webhook URLs to be notified about detections, triggered
// interventions, and risk level changes. Payloads are HMAC-SHA256 signed
// when the subscription carries a secret.
package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/mbd888/churnsight/internal/metrics"
	"github.com/mbd888/churnsight/internal/retry"
)

var ErrSubscriptionNotFound = errors.New("subscription not found")

// EventType represents the type of webhook event.
type EventType string

const (
	EventIntentDetected        EventType = "intent.detected"
	EventInterventionTriggered EventType = "intervention.triggered"
	EventRiskLevelChanged      EventType = "risk.level_changed"
)

// KnownEventType reports whether t is a deliverable event type.
func KnownEventType(t EventType) bool {
	switch t {
	case EventIntentDetected, EventInterventionTriggered, EventRiskLevelChanged:
		return true
	}
	return false
}

// Event is one webhook delivery payload.
type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	CompanyID string         `json:"companyId"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data"`
}

// Subscription is a company's registration for webhook deliveries.
type Subscription struct {
	ID          string      `json:"id"`
	CompanyID   string      `json:"companyId"`
	URL         string      `json:"url"`
	Secret      string      `json:"-"` // used for HMAC signing
	Events      []EventType `json:"events"`
	Active      bool        `json:"active"`
	CreatedAt   time.Time   `json:"createdAt"`
	LastSuccess *time.Time  `json:"lastSuccess,omitempty"`
	LastError   string      `json:"lastError,omitempty"`
}

// Store persists webhook subscriptions.
type Store interface {
	Create(ctx context.Context, sub *Subscription) error
	Get(ctx context.Context, id string) (*Subscription, error)
	GetByCompany(ctx context.Context, companyID string) ([]*Subscription, error)
	GetByEvent(ctx context.Context, companyID string, eventType EventType) ([]*Subscription, error)
	Update(ctx context.Context, sub *Subscription) error
	Delete(ctx context.Context, id string) error
}

// Dispatcher sends webhook events to a company's subscribers.
type Dispatcher struct {
	store       Store
	client      *http.Client
	maxAttempts int
	retryDelay  time.Duration
}

// NewDispatcher creates a new webhook dispatcher.
func NewDispatcher(store Store) *Dispatcher {
	return &Dispatcher{
		store: store,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		maxAttempts: 3,
		retryDelay:  500 * time.Millisecond,
	}
}

// Dispatch sends an event to the company's active subscribers for its type.
// Delivery is async; Dispatch only fails when subscribers cannot be listed.
func (d *Dispatcher) Dispatch(ctx context.Context, event *Event) error {
	subs, err := d.store.GetByEvent(ctx, event.CompanyID, event.Type)
	if err != nil {
		return fmt.Errorf("get subscribers: %w", err)
	}

	for _, sub := range subs {
		if !sub.Active {
			continue
		}
		go d.send(context.WithoutCancel(ctx), sub, event)
	}
	return nil
}

func (d *Dispatcher) send(ctx context.Context, sub *Subscription, event *Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		d.updateError(ctx, sub, "failed to marshal event")
		return
	}

	// Network errors and 5xx responses are retried with backoff.
	// 4xx responses are the subscriber's problem and are not retried.
	err = retry.Do(ctx, d.maxAttempts, d.retryDelay, func() error {
		return d.attempt(ctx, sub, event, payload)
	})
	if err != nil {
		d.updateError(ctx, sub, err.Error())
		return
	}
	d.updateSuccess(ctx, sub)
}

func (d *Dispatcher) attempt(ctx context.Context, sub *Subscription, event *Event, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, "POST", sub.URL, bytes.NewReader(payload))
	if err != nil {
		return retry.Permanent(fmt.Errorf("create request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Churnsight-Event", string(event.Type))
	req.Header.Set("X-Churnsight-Timestamp", fmt.Sprintf("%d", event.Timestamp.Unix()))
	if sub.Secret != "" {
		req.Header.Set("X-Churnsight-Signature", Sign(payload, sub.Secret))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 500:
		return fmt.Errorf("status %d", resp.StatusCode)
	default:
		return retry.Permanent(fmt.Errorf("status %d", resp.StatusCode))
	}
}

// Sign computes the hex HMAC-SHA256 signature of a payload.
func Sign(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

func (d *Dispatcher) updateSuccess(ctx context.Context, sub *Subscription) {
	metrics.WebhookDeliveriesTotal.WithLabelValues("success").Inc()
	now := time.Now()
	sub.LastSuccess = &now
	sub.LastError = ""
	_ = d.store.Update(ctx, sub)
}

func (d *Dispatcher) updateError(ctx context.Context, sub *Subscription, errMsg string) {
	metrics.WebhookDeliveriesTotal.WithLabelValues("error").Inc()
	sub.LastError = errMsg
	_ = d.store.Update(ctx, sub)
}

// MemoryStore is an in-memory subscription store for demo/development mode.
type MemoryStore struct {
	subs map[string]*Subscription
	mu   sync.RWMutex
}

// NewMemoryStore creates a new in-memory subscription store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{subs: make(map[string]*Subscription)}
}

func (m *MemoryStore) Create(ctx context.Context, sub *Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[sub.ID] = sub
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if sub, ok := m.subs[id]; ok {
		return sub, nil
	}
	return nil, ErrSubscriptionNotFound
}

func (m *MemoryStore) GetByCompany(ctx context.Context, companyID string) ([]*Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*Subscription
	for _, sub := range m.subs {
		if sub.CompanyID == companyID {
			result = append(result, sub)
		}
	}
	return result, nil
}

func (m *MemoryStore) GetByEvent(ctx context.Context, companyID string, eventType EventType) ([]*Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*Subscription
	for _, sub := range m.subs {
		if sub.CompanyID != companyID {
			continue
		}
		for _, et := range sub.Events {
			if et == eventType {
				result = append(result, sub)
				break
			}
		}
	}
	return result, nil
}

func (m *MemoryStore) Update(ctx context.Context, sub *Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subs[sub.ID]; !ok {
		return ErrSubscriptionNotFound
	}
	m.subs[sub.ID] = sub
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subs, id)
	return nil
}
