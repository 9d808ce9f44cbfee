package risk

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// PostgresStore persists the latest risk score per customer in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed risk score store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Upsert replaces a customer's current score.
func (s *PostgresStore) Upsert(ctx context.Context, score *RiskScore) error {
	factorsJSON, err := json.Marshal(score.Factors)
	if err != nil {
		return fmt.Errorf("marshal factors: %w", err)
	}
	recsJSON, err := json.Marshal(score.Recommendations)
	if err != nil {
		return fmt.Errorf("marshal recommendations: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO risk_scores (
			id, customer_id, company_id, score, level, factors,
			recommendations, computed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (company_id, customer_id) DO UPDATE SET
			id              = EXCLUDED.id,
			score           = EXCLUDED.score,
			level           = EXCLUDED.level,
			factors         = EXCLUDED.factors,
			recommendations = EXCLUDED.recommendations,
			computed_at     = EXCLUDED.computed_at
	`,
		score.ID, score.CustomerID, score.CompanyID, score.Score,
		string(score.Level), factorsJSON, recsJSON, score.ComputedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert risk score: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetLatest(ctx context.Context, companyID, customerID string) (*RiskScore, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, customer_id, company_id, score, level, factors,
			recommendations, computed_at
		FROM risk_scores
		WHERE company_id = $1 AND customer_id = $2
	`, companyID, customerID)

	score, err := scanScore(row)
	if err == sql.ErrNoRows {
		return nil, ErrRiskScoreNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get risk score: %w", err)
	}
	return score, nil
}

func (s *PostgresStore) ListByCompany(ctx context.Context, companyID string, minLevel Level, limit int, after *ScorePosition) ([]*RiskScore, error) {
	minScore := 0
	switch minLevel {
	case LevelMedium:
		minScore = MediumThreshold
	case LevelHigh:
		minScore = HighThreshold
	case LevelCritical:
		minScore = CriticalThreshold
	}

	query := `
		SELECT id, customer_id, company_id, score, level, factors,
			recommendations, computed_at
		FROM risk_scores
		WHERE company_id = $1 AND score >= $2`
	args := []interface{}{companyID, minScore}

	if after != nil {
		args = append(args, after.Score, after.ID)
		query += fmt.Sprintf(" AND (score < $%d OR (score = $%d AND id > $%d))",
			len(args)-1, len(args)-1, len(args))
	}

	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY score DESC, id ASC LIMIT $%d", len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list risk scores: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*RiskScore
	for rows.Next() {
		score, err := scanScore(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, score)
	}
	return result, rows.Err()
}

type scannable interface {
	Scan(dest ...interface{}) error
}

func scanScore(row scannable) (*RiskScore, error) {
	var rs RiskScore
	var level string
	var factorsJSON, recsJSON []byte

	err := row.Scan(
		&rs.ID, &rs.CustomerID, &rs.CompanyID, &rs.Score, &level,
		&factorsJSON, &recsJSON, &rs.ComputedAt,
	)
	if err != nil {
		return nil, err
	}

	rs.Level = Level(level)
	rs.Factors = make(map[string]float64)
	if len(factorsJSON) > 0 {
		if err := json.Unmarshal(factorsJSON, &rs.Factors); err != nil {
			return nil, fmt.Errorf("unmarshal factors: %w", err)
		}
	}
	if len(recsJSON) > 0 {
		if err := json.Unmarshal(recsJSON, &rs.Recommendations); err != nil {
			return nil, fmt.Errorf("unmarshal recommendations: %w", err)
		}
	}
	return &rs, nil
}
