package health

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestRegistry_Empty(t *testing.T) {
	r := NewRegistry()
	healthy, statuses := r.CheckAll(context.Background())
	if !healthy {
		t.Fatal("empty registry should be healthy")
	}
	if len(statuses) != 0 {
		t.Fatalf("expected 0 statuses, got %d", len(statuses))
	}
}

func TestRegistry_AllHealthy(t *testing.T) {
	r := NewRegistry()
	r.Register("database", func(_ context.Context) error { return nil })
	r.Register("event_bus", func(_ context.Context) error { return nil })

	healthy, statuses := r.CheckAll(context.Background())
	if !healthy {
		t.Fatal("all-healthy registry should report healthy")
	}
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	// Registration order is preserved
	if statuses[0].Name != "database" || statuses[1].Name != "event_bus" {
		t.Errorf("unexpected status order: %+v", statuses)
	}
}

func TestRegistry_OneUnhealthy(t *testing.T) {
	r := NewRegistry()
	r.Register("database", func(_ context.Context) error { return nil })
	r.Register("event_bus", func(_ context.Context) error {
		return errors.New("queue full")
	})

	healthy, statuses := r.CheckAll(context.Background())
	if healthy {
		t.Fatal("registry with a failing probe should report unhealthy")
	}
	if statuses[1].Healthy || statuses[1].Detail != "queue full" {
		t.Fatalf("expected failing status with detail, got %+v", statuses[1])
	}
	if !statuses[0].Healthy {
		t.Error("healthy probe should stay healthy")
	}
}

func TestRegistry_ReplaceByName(t *testing.T) {
	r := NewRegistry()
	r.Register("database", func(_ context.Context) error {
		return errors.New("down")
	})
	r.Register("database", func(_ context.Context) error { return nil })

	healthy, statuses := r.CheckAll(context.Background())
	if !healthy {
		t.Fatal("replaced probe should be the one that runs")
	}
	if len(statuses) != 1 {
		t.Fatalf("expected 1 status after replacement, got %d", len(statuses))
	}
}

func TestRegistry_ConcurrentRegisterAndCheck(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Register("probe", func(_ context.Context) error { return nil })
		}()
	}
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.CheckAll(context.Background())
		}()
	}

	wg.Wait()
}
