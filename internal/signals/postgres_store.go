package signals

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// PostgresStore implements Store backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed signal ledger.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) Insert(ctx context.Context, signal *ChurnSignal) error {
	query, args, err := insertArgs(signal)
	if err != nil {
		return err
	}
	if _, err := p.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert signal: %w", err)
	}
	return nil
}

// InsertBatch appends signals in a single transaction so a batch is all or
// nothing.
func (p *PostgresStore) InsertBatch(ctx context.Context, batch []*ChurnSignal) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, signal := range batch {
		query, args, err := insertArgs(signal)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert signal: %w", err)
		}
	}
	return tx.Commit()
}

func (p *PostgresStore) ListRecent(ctx context.Context, companyID, customerID string, since time.Time) ([]*ChurnSignal, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, customer_id, company_id, type, weight, detail, metadata,
			occurred_at, recorded_at
		FROM churn_signals
		WHERE company_id = $1 AND customer_id = $2 AND occurred_at >= $3
		ORDER BY occurred_at DESC
	`, companyID, customerID, since)
	if err != nil {
		return nil, fmt.Errorf("list signals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*ChurnSignal
	for rows.Next() {
		signal, err := scanSignal(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, signal)
	}
	return result, rows.Err()
}

func (p *PostgresStore) ActiveCustomers(ctx context.Context, since time.Time) ([]CustomerRef, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT DISTINCT company_id, customer_id
		FROM churn_signals WHERE recorded_at >= $1
	`, since)
	if err != nil {
		return nil, fmt.Errorf("active customers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []CustomerRef
	for rows.Next() {
		var ref CustomerRef
		if err := rows.Scan(&ref.CompanyID, &ref.CustomerID); err != nil {
			return nil, err
		}
		result = append(result, ref)
	}
	return result, rows.Err()
}

func insertArgs(signal *ChurnSignal) (string, []interface{}, error) {
	metadata, err := json.Marshal(signal.Metadata)
	if err != nil {
		return "", nil, fmt.Errorf("marshal metadata: %w", err)
	}
	query := `
		INSERT INTO churn_signals (
			id, customer_id, company_id, type, weight, detail, metadata,
			occurred_at, recorded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	args := []interface{}{
		signal.ID, signal.CustomerID, signal.CompanyID, string(signal.Type),
		signal.Weight, nullString(signal.Detail), metadata,
		signal.OccurredAt, signal.RecordedAt,
	}
	return query, args, nil
}

type scannable interface {
	Scan(dest ...interface{}) error
}

func scanSignal(row scannable) (*ChurnSignal, error) {
	var s ChurnSignal
	var signalType string
	var detail sql.NullString
	var metadata []byte

	err := row.Scan(
		&s.ID, &s.CustomerID, &s.CompanyID, &signalType, &s.Weight,
		&detail, &metadata, &s.OccurredAt, &s.RecordedAt,
	)
	if err != nil {
		return nil, err
	}

	s.Type = Type(signalType)
	if detail.Valid {
		s.Detail = detail.String
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &s.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return &s, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
