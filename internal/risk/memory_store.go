package risk

import (
	"context"
	"sort"
	"sync"
)

type customerKey struct {
	companyID  string
	customerID string
}

// MemoryStore is an in-memory implementation of Store for demo/test use.
// It keeps the latest score per customer.
type MemoryStore struct {
	mu     sync.RWMutex
	latest map[customerKey]*RiskScore
}

// NewMemoryStore creates an in-memory risk score store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{latest: make(map[customerKey]*RiskScore)}
}

func (s *MemoryStore) Upsert(ctx context.Context, score *RiskScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest[customerKey{score.CompanyID, score.CustomerID}] = copyScore(score)
	return nil
}

func (s *MemoryStore) GetLatest(ctx context.Context, companyID, customerID string) (*RiskScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	score, ok := s.latest[customerKey{companyID, customerID}]
	if !ok {
		return nil, ErrRiskScoreNotFound
	}
	return copyScore(score), nil
}

func (s *MemoryStore) ListByCompany(ctx context.Context, companyID string, minLevel Level, limit int, after *ScorePosition) ([]*RiskScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	minRank := 0
	if minLevel != "" {
		minRank = Rank(minLevel)
	}

	var all []*RiskScore
	for key, score := range s.latest {
		if key.companyID != companyID || Rank(score.Level) < minRank {
			continue
		}
		all = append(all, copyScore(score))
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].Score != all[j].Score {
			return all[i].Score > all[j].Score
		}
		return all[i].ID < all[j].ID
	})

	var result []*RiskScore
	for _, score := range all {
		if after != nil {
			if score.Score > after.Score {
				continue
			}
			if score.Score == after.Score && score.ID <= after.ID {
				continue
			}
		}
		result = append(result, score)
		if len(result) >= limit {
			break
		}
	}
	return result, nil
}

func copyScore(score *RiskScore) *RiskScore {
	cp := *score
	cp.Factors = make(map[string]float64, len(score.Factors))
	for k, v := range score.Factors {
		cp.Factors[k] = v
	}
	cp.Recommendations = append([]string(nil), score.Recommendations...)
	// Signals are not persisted with the score; callers attach them per read.
	cp.Signals = nil
	return &cp
}
