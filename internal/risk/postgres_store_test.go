//go:build integration

package risk

import (
	"context"
	"testing"
	"time"

	"github.com/mbd888/churnsight/internal/testutil"
)

func testScore(id, companyID, customerID string, score int) *RiskScore {
	return &RiskScore{
		ID:              id,
		CustomerID:      customerID,
		CompanyID:       companyID,
		Score:           score,
		Level:           LevelForScore(score),
		Factors:         map[string]float64{"signals": float64(score)},
		Recommendations: []string{"review account"},
		ComputedAt:      time.Now().UTC().Truncate(time.Millisecond),
	}
}

func TestPostgres_UpsertAndGetLatest(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()

	if err := store.Upsert(ctx, testScore("risk_pg_1", "co_1", "cust_1", 45)); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, err := store.GetLatest(ctx, "co_1", "cust_1")
	if err != nil {
		t.Fatalf("GetLatest failed: %v", err)
	}
	if got.Score != 45 {
		t.Errorf("Expected score 45, got %d", got.Score)
	}
	if got.Factors["signals"] != 45 {
		t.Errorf("Factors not round-tripped: %+v", got.Factors)
	}
	if len(got.Recommendations) != 1 {
		t.Errorf("Recommendations not round-tripped: %+v", got.Recommendations)
	}

	// Upsert replaces the existing row for the same customer
	if err := store.Upsert(ctx, testScore("risk_pg_2", "co_1", "cust_1", 80)); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	got, err = store.GetLatest(ctx, "co_1", "cust_1")
	if err != nil {
		t.Fatalf("GetLatest failed: %v", err)
	}
	if got.ID != "risk_pg_2" || got.Score != 80 {
		t.Errorf("Expected replaced score risk_pg_2/80, got %s/%d", got.ID, got.Score)
	}
}

func TestPostgres_GetLatestNotFound(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	_, err := store.GetLatest(context.Background(), "co_1", "cust_missing")
	if err != ErrRiskScoreNotFound {
		t.Errorf("Expected ErrRiskScoreNotFound, got %v", err)
	}
}

func TestPostgres_ListByCompanyPaged(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()

	store.Upsert(ctx, testScore("risk_pg_a", "co_1", "cust_1", 90))
	store.Upsert(ctx, testScore("risk_pg_b", "co_1", "cust_2", 60))
	store.Upsert(ctx, testScore("risk_pg_c", "co_1", "cust_3", 10))
	store.Upsert(ctx, testScore("risk_pg_d", "co_2", "cust_4", 95))

	// Highest scores first, level filter applied
	got, err := store.ListByCompany(ctx, "co_1", LevelHigh, 10, nil)
	if err != nil {
		t.Fatalf("ListByCompany failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 high-or-above scores, got %d", len(got))
	}
	if got[0].Score != 90 || got[1].Score != 60 {
		t.Errorf("Expected scores ordered 90, 60; got %d, %d", got[0].Score, got[1].Score)
	}

	// Keyset pagination continues after the first page
	page, err := store.ListByCompany(ctx, "co_1", "", 1, nil)
	if err != nil {
		t.Fatalf("ListByCompany failed: %v", err)
	}
	if len(page) != 1 || page[0].Score != 90 {
		t.Fatalf("Expected first page with score 90, got %+v", page)
	}

	next, err := store.ListByCompany(ctx, "co_1", "", 10, &ScorePosition{Score: page[0].Score, ID: page[0].ID})
	if err != nil {
		t.Fatalf("ListByCompany failed: %v", err)
	}
	if len(next) != 2 || next[0].Score != 60 || next[1].Score != 10 {
		t.Errorf("Expected remaining scores 60, 10; got %+v", next)
	}
}
