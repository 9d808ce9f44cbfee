//go:build integration

package signals

import (
	"context"
	"testing"
	"time"

	"github.com/mbd888/churnsight/internal/testutil"
)

func testSignal(id, companyID, customerID string, typ Type, occurredAt time.Time) *ChurnSignal {
	return &ChurnSignal{
		ID:         id,
		CustomerID: customerID,
		CompanyID:  companyID,
		Type:       typ,
		Weight:     DefaultWeight(typ),
		Detail:     "integration test",
		Metadata:   map[string]any{"source": "test"},
		OccurredAt: occurredAt,
		RecordedAt: time.Now().UTC(),
	}
}

func TestPostgres_InsertAndListSignals(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := store.Insert(ctx, testSignal("sig_pg_1", "co_1", "cust_1", TypePaymentFailure, now.Add(-time.Hour))); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Insert(ctx, testSignal("sig_pg_2", "co_1", "cust_1", TypeInactivity, now.Add(-48*time.Hour))); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Insert(ctx, testSignal("sig_pg_3", "co_1", "cust_2", TypeCancellation, now)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.ListRecent(ctx, "co_1", "cust_1", now.Add(-7*24*time.Hour))
	if err != nil {
		t.Fatalf("ListRecent failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 signals for cust_1, got %d", len(got))
	}

	// Window excludes the 48h-old signal
	got, err = store.ListRecent(ctx, "co_1", "cust_1", now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("ListRecent failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "sig_pg_1" {
		t.Errorf("Expected only sig_pg_1 inside window, got %+v", got)
	}
	if got[0].Type != TypePaymentFailure {
		t.Errorf("Expected payment_failure, got %s", got[0].Type)
	}
	if got[0].Metadata["source"] != "test" {
		t.Errorf("Metadata not round-tripped: %+v", got[0].Metadata)
	}
}

func TestPostgres_InsertBatchSignals(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()
	now := time.Now().UTC()

	batch := []*ChurnSignal{
		testSignal("sig_pg_b1", "co_1", "cust_1", TypeSupportTicket, now),
		testSignal("sig_pg_b2", "co_1", "cust_1", TypeRefundRequest, now),
	}
	if err := store.InsertBatch(ctx, batch); err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}

	got, err := store.ListRecent(ctx, "co_1", "cust_1", now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("ListRecent failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Expected 2 signals after batch insert, got %d", len(got))
	}
}

func TestPostgres_ActiveCustomers(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()
	now := time.Now().UTC()

	store.Insert(ctx, testSignal("sig_pg_c1", "co_1", "cust_1", TypePaymentFailure, now))
	store.Insert(ctx, testSignal("sig_pg_c2", "co_1", "cust_1", TypeInactivity, now))

	// Recorded outside the window, so it does not count as active
	stale := testSignal("sig_pg_c3", "co_2", "cust_9", TypeCancellation, now.Add(-72*time.Hour))
	stale.RecordedAt = now.Add(-72 * time.Hour)
	store.Insert(ctx, stale)

	refs, err := store.ActiveCustomers(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("ActiveCustomers failed: %v", err)
	}
	if len(refs) != 1 {
		t.Fatalf("Expected 1 active customer, got %d", len(refs))
	}
	if refs[0].CompanyID != "co_1" || refs[0].CustomerID != "cust_1" {
		t.Errorf("Unexpected customer ref: %+v", refs[0])
	}
}
