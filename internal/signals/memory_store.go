package signals

import (
	"context"
	"sort"
	"sync"
	"time"
)

type customerKey struct {
	companyID  string
	customerID string
}

// MemoryStore is an in-memory signal ledger for demo/development mode.
type MemoryStore struct {
	byCustomer map[customerKey][]*ChurnSignal
	mu         sync.RWMutex
}

// NewMemoryStore creates a new in-memory signal ledger.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byCustomer: make(map[customerKey][]*ChurnSignal)}
}

func (m *MemoryStore) Insert(ctx context.Context, signal *ChurnSignal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.append(signal)
	return nil
}

func (m *MemoryStore) InsertBatch(ctx context.Context, batch []*ChurnSignal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, signal := range batch {
		m.append(signal)
	}
	return nil
}

// count reports the total number of stored signals across all customers.
func (m *MemoryStore) count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, list := range m.byCustomer {
		n += len(list)
	}
	return n
}

func (m *MemoryStore) append(signal *ChurnSignal) {
	key := customerKey{signal.CompanyID, signal.CustomerID}
	cp := *signal
	m.byCustomer[key] = append(m.byCustomer[key], &cp)
}

func (m *MemoryStore) ListRecent(ctx context.Context, companyID, customerID string, since time.Time) ([]*ChurnSignal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*ChurnSignal
	for _, signal := range m.byCustomer[customerKey{companyID, customerID}] {
		if signal.OccurredAt.Before(since) {
			continue
		}
		cp := *signal
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].OccurredAt.After(result[j].OccurredAt)
	})
	return result, nil
}

func (m *MemoryStore) ActiveCustomers(ctx context.Context, since time.Time) ([]CustomerRef, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []CustomerRef
	for key, list := range m.byCustomer {
		for _, signal := range list {
			if !signal.RecordedAt.Before(since) {
				result = append(result, CustomerRef{CompanyID: key.companyID, CustomerID: key.customerID})
				break
			}
		}
	}
	return result, nil
}
