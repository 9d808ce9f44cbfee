package detect

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory detection store for demo/development mode.
type MemoryStore struct {
	detections map[string]*DetectionResult // by ID
	byCompany  map[string][]string         // companyID → IDs in insert order
	mu         sync.RWMutex
}

// NewMemoryStore creates a new in-memory detection store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		detections: make(map[string]*DetectionResult),
		byCompany:  make(map[string][]string),
	}
}

func (m *MemoryStore) Insert(ctx context.Context, result *DetectionResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *result
	m.detections[result.ID] = &cp
	m.byCompany[result.CompanyID] = append(m.byCompany[result.CompanyID], result.ID)
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*DetectionResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result, ok := m.detections[id]
	if !ok {
		return nil, ErrDetectionNotFound
	}
	cp := *result
	return &cp, nil
}

func (m *MemoryStore) List(ctx context.Context, companyID string, q ListQuery) ([]*DetectionResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}

	var result []*DetectionResult
	for _, id := range m.byCompany[companyID] {
		d := m.detections[id]
		if q.CustomerID != "" && d.CustomerID != q.CustomerID {
			continue
		}
		if q.Intent != "" && d.PrimaryIntent != q.Intent {
			continue
		}
		if !q.From.IsZero() && d.DetectedAt.Before(q.From) {
			continue
		}
		if !q.To.IsZero() && d.DetectedAt.After(q.To) {
			continue
		}
		if q.After != nil && !afterPosition(d, q.After) {
			continue
		}
		cp := *d
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].DetectedAt.Equal(result[j].DetectedAt) {
			return result[i].DetectedAt.After(result[j].DetectedAt)
		}
		return result[i].ID < result[j].ID
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// afterPosition reports whether d sorts strictly after pos in
// (detected_at DESC, id ASC) order.
func afterPosition(d *DetectionResult, pos *ListPosition) bool {
	if d.DetectedAt.Before(pos.DetectedAt) {
		return true
	}
	return d.DetectedAt.Equal(pos.DetectedAt) && d.ID > pos.ID
}
