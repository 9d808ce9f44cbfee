package detect

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/mbd888/churnsight/internal/events"
)

// ---------------------------------------------------------------------------
// Mock implementations
// ---------------------------------------------------------------------------

type mockContextProvider struct {
	mu       sync.Mutex
	profiles map[string]*CustomerProfile
	err      error
}

func newMockContextProvider() *mockContextProvider {
	return &mockContextProvider{profiles: make(map[string]*CustomerProfile)}
}

func (m *mockContextProvider) setProfile(customerID string, p *CustomerProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[customerID] = p
}

func (m *mockContextProvider) CustomerProfile(_ context.Context, companyID, customerID string) (*CustomerProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.profiles[customerID], nil
}

// failingStore injects insert failures over a working memory store.
type failingStore struct {
	*MemoryStore
	insertErr error
}

func (f *failingStore) Insert(ctx context.Context, result *DetectionResult) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	return f.MemoryStore.Insert(ctx, result)
}

var _ ContextProvider = (*mockContextProvider)(nil)
var _ Store = (*failingStore)(nil)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

// ---------------------------------------------------------------------------
// Service tests
// ---------------------------------------------------------------------------

func TestService_Detect_CancelTriggersSaveFlow(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store, nil, nil, testLogger())

	result, err := svc.Detect(context.Background(), DetectIntentInput{
		CustomerID: "cust_1",
		CompanyID:  "co_1",
		Text:       "I want to CANCEL my subscription",
		Source:     SourceChat,
	})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	if result.PrimaryIntent != IntentCancel {
		t.Errorf("Expected cancel, got %s", result.PrimaryIntent)
	}
	if result.Urgency != UrgencyHigh {
		t.Errorf("Expected high urgency, got %s", result.Urgency)
	}
	if result.CancelReason == "" {
		t.Error("Expected a cancel reason to be classified for cancel intent")
	}
	if result.ID == "" || result.DetectedAt.IsZero() {
		t.Error("Expected ID and timestamp to be assigned")
	}

	stored, err := store.Get(context.Background(), result.ID)
	if err != nil {
		t.Fatalf("Expected detection persisted: %v", err)
	}
	if stored.PrimaryIntent != IntentCancel {
		t.Errorf("Stored intent mismatch: %s", stored.PrimaryIntent)
	}
}

func TestService_Detect_UsesTranscriptWhenTextEmpty(t *testing.T) {
	svc := NewService(NewMemoryStore(), nil, nil, testLogger())

	result, err := svc.Detect(context.Background(), DetectIntentInput{
		CustomerID: "cust_1",
		CompanyID:  "co_1",
		Transcript: "i was charged twice this month please refund",
		Source:     SourceVoice,
	})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if result.PrimaryIntent != IntentPaymentIssue {
		t.Errorf("Expected payment_issue from transcript, got %s", result.PrimaryIntent)
	}
	if result.Urgency != UrgencyHigh {
		t.Errorf("Expected high urgency, got %s", result.Urgency)
	}
}

func TestService_Detect_EmptyInputIsNeutral(t *testing.T) {
	svc := NewService(NewMemoryStore(), nil, nil, testLogger())

	result, err := svc.Detect(context.Background(), DetectIntentInput{
		CustomerID: "cust_1",
		CompanyID:  "co_1",
	})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if result.PrimaryIntent != IntentNeutral || result.PrimaryConfidence != NeutralConfidence {
		t.Errorf("Expected neutral default, got (%s, %f)", result.PrimaryIntent, result.PrimaryConfidence)
	}
	if result.Sentiment != SentimentNeutral {
		t.Errorf("Expected neutral sentiment, got %s", result.Sentiment)
	}
	if result.Urgency != UrgencyLow {
		t.Errorf("Expected low urgency, got %s", result.Urgency)
	}
	if result.Source != SourceAPI {
		t.Errorf("Expected source defaulted to api, got %s", result.Source)
	}
}

func TestService_Detect_ReturnsResultOnPersistenceFailure(t *testing.T) {
	store := &failingStore{MemoryStore: NewMemoryStore(), insertErr: errors.New("db down")}
	svc := NewService(store, nil, nil, testLogger())

	result, err := svc.Detect(context.Background(), DetectIntentInput{
		CustomerID: "cust_1",
		CompanyID:  "co_1",
		Text:       "cancel everything",
	})
	if err == nil {
		t.Fatal("Expected error when persistence fails")
	}
	if result == nil {
		t.Fatal("Expected computed result despite persistence failure")
	}
	if result.PrimaryIntent != IntentCancel {
		t.Errorf("Expected cancel, got %s", result.PrimaryIntent)
	}
}

func TestService_Detect_HighValueCustomerEscalation(t *testing.T) {
	provider := newMockContextProvider()
	provider.setProfile("cust_vip", &CustomerProfile{
		SignupAt:    time.Now().AddDate(-1, 0, 0),
		OrderTotals: []float64{300, 300, 150},
	})
	svc := NewService(NewMemoryStore(), provider, nil, testLogger())

	result, err := svc.Detect(context.Background(), DetectIntentInput{
		CustomerID: "cust_vip",
		CompanyID:  "co_1",
		Text:       "i'm really not happy and frustrated with this",
	})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if result.PrimaryIntent != IntentComplaint {
		t.Fatalf("Expected complaint, got %s", result.PrimaryIntent)
	}
	if result.Urgency != UrgencyHigh {
		t.Errorf("Expected high urgency for high-value customer, got %s", result.Urgency)
	}
}

func TestService_Detect_ProviderFailureDegradesToNoContext(t *testing.T) {
	provider := newMockContextProvider()
	provider.err = fmt.Errorf("backend unavailable")
	svc := NewService(NewMemoryStore(), provider, nil, testLogger())

	result, err := svc.Detect(context.Background(), DetectIntentInput{
		CustomerID: "cust_1",
		CompanyID:  "co_1",
		Text:       "i'm really not happy and frustrated with this",
	})
	if err != nil {
		t.Fatalf("Detect should not fail on provider error: %v", err)
	}
	// Without lifetime value context the complaint stays medium.
	if result.Urgency != UrgencyMedium {
		t.Errorf("Expected medium urgency without context, got %s", result.Urgency)
	}
}

func TestService_Detect_ContextPageShortCircuit(t *testing.T) {
	svc := NewService(NewMemoryStore(), nil, nil, testLogger())

	result, err := svc.Detect(context.Background(), DetectIntentInput{
		CustomerID:  "cust_1",
		CompanyID:   "co_1",
		Text:        "this service is amazing",
		CurrentPage: "/account/cancel-subscription",
	})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if result.PrimaryIntent != IntentCancel || result.PrimaryConfidence != ContextCancelConfidence {
		t.Errorf("Expected context cancel, got (%s, %f)", result.PrimaryIntent, result.PrimaryConfidence)
	}
}

func TestService_Detect_PublishesEvent(t *testing.T) {
	bus := events.NewBus(testLogger())

	var mu sync.Mutex
	var received []*events.Event
	bus.Subscribe(events.TopicIntentDetected, func(_ context.Context, evt *events.Event) {
		mu.Lock()
		received = append(received, evt)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bus.Run(ctx)

	svc := NewService(NewMemoryStore(), nil, bus, testLogger())
	_, err := svc.Detect(context.Background(), DetectIntentInput{
		CustomerID: "cust_1",
		CompanyID:  "co_1",
		Text:       "i want to cancel my subscription",
	})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	})

	mu.Lock()
	defer mu.Unlock()
	payload, ok := received[0].Data.(*IntentDetectedEvent)
	if !ok {
		t.Fatalf("Unexpected event payload type %T", received[0].Data)
	}
	if payload.Detection.PrimaryIntent != IntentCancel {
		t.Errorf("Expected cancel in event, got %s", payload.Detection.PrimaryIntent)
	}
	if !payload.ShouldTriggerIntervention || payload.InterventionType != InterventionSaveFlow {
		t.Errorf("Expected save_flow intervention in event, got (%v, %s)",
			payload.ShouldTriggerIntervention, payload.InterventionType)
	}
}

func TestService_Detect_Idempotent(t *testing.T) {
	svc := NewService(NewMemoryStore(), nil, nil, testLogger())
	input := DetectIntentInput{
		CustomerID: "cust_1",
		CompanyID:  "co_1",
		Text:       "i want to cancel my subscription it's terrible",
		Source:     SourceChat,
	}

	a, err := svc.Detect(context.Background(), input)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	b, err := svc.Detect(context.Background(), input)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	// Identical input yields identical classification; only identity and
	// timestamp differ between calls.
	if a.PrimaryIntent != b.PrimaryIntent || a.PrimaryConfidence != b.PrimaryConfidence {
		t.Errorf("Primary classification not idempotent: (%s, %f) vs (%s, %f)",
			a.PrimaryIntent, a.PrimaryConfidence, b.PrimaryIntent, b.PrimaryConfidence)
	}
	if a.Sentiment != b.Sentiment || a.SentimentScore != b.SentimentScore {
		t.Error("Sentiment not idempotent")
	}
	if a.Urgency != b.Urgency || a.CancelReason != b.CancelReason {
		t.Error("Urgency or cancel reason not idempotent")
	}
}

// ---------------------------------------------------------------------------
// Memory store tests
// ---------------------------------------------------------------------------

func TestMemoryStore_ListFilters(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	now := time.Now().UTC()
	insert := func(id, customerID string, intent Intent, at time.Time) {
		_ = store.Insert(ctx, &DetectionResult{
			ID:            id,
			CustomerID:    customerID,
			CompanyID:     "co_1",
			PrimaryIntent: intent,
			DetectedAt:    at,
		})
	}
	insert("det_1", "cust_a", IntentCancel, now.Add(-3*time.Hour))
	insert("det_2", "cust_a", IntentQuestion, now.Add(-2*time.Hour))
	insert("det_3", "cust_b", IntentCancel, now.Add(-1*time.Hour))

	all, err := store.List(ctx, "co_1", ListQuery{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 detections, got %d", len(all))
	}
	if all[0].ID != "det_3" {
		t.Errorf("Expected newest first, got %s", all[0].ID)
	}

	cancels, _ := store.List(ctx, "co_1", ListQuery{Intent: IntentCancel})
	if len(cancels) != 2 {
		t.Errorf("Expected 2 cancel detections, got %d", len(cancels))
	}

	custA, _ := store.List(ctx, "co_1", ListQuery{CustomerID: "cust_a"})
	if len(custA) != 2 {
		t.Errorf("Expected 2 detections for cust_a, got %d", len(custA))
	}

	recent, _ := store.List(ctx, "co_1", ListQuery{From: now.Add(-90 * time.Minute)})
	if len(recent) != 1 || recent[0].ID != "det_3" {
		t.Errorf("Expected only det_3 in window, got %d", len(recent))
	}

	limited, _ := store.List(ctx, "co_1", ListQuery{Limit: 1})
	if len(limited) != 1 {
		t.Errorf("Expected limit 1 respected, got %d", len(limited))
	}

	other, _ := store.List(ctx, "co_other", ListQuery{})
	if len(other) != 0 {
		t.Errorf("Expected no detections for other company, got %d", len(other))
	}
}

func TestMemoryStore_ListAfterPosition(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	at := time.Now().UTC().Truncate(time.Second)
	insert := func(id string, detectedAt time.Time) {
		_ = store.Insert(ctx, &DetectionResult{
			ID:            id,
			CustomerID:    "cust_a",
			CompanyID:     "co_1",
			PrimaryIntent: IntentCancel,
			DetectedAt:    detectedAt,
		})
	}
	// det_b and det_c share a timestamp; ID breaks the tie ascending.
	insert("det_a", at.Add(-1*time.Hour))
	insert("det_c", at)
	insert("det_b", at)

	all, err := store.List(ctx, "co_1", ListQuery{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 || all[0].ID != "det_b" || all[1].ID != "det_c" || all[2].ID != "det_a" {
		t.Fatalf("Unexpected order: %v", []string{all[0].ID, all[1].ID, all[2].ID})
	}

	rest, err := store.List(ctx, "co_1", ListQuery{After: &ListPosition{DetectedAt: at, ID: "det_b"}})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(rest) != 2 || rest[0].ID != "det_c" || rest[1].ID != "det_a" {
		t.Fatalf("Expected det_c then det_a after position, got %d rows", len(rest))
	}

	tail, _ := store.List(ctx, "co_1", ListQuery{After: &ListPosition{DetectedAt: at, ID: "det_c"}})
	if len(tail) != 1 || tail[0].ID != "det_a" {
		t.Fatalf("Expected only det_a after det_c, got %d rows", len(tail))
	}
}

func TestMemoryStore_GetNotFound(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Get(context.Background(), "det_missing")
	if err != ErrDetectionNotFound {
		t.Errorf("Expected ErrDetectionNotFound, got %v", err)
	}
}
