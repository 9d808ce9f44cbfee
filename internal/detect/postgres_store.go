package detect

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// PostgresStore implements Store backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed detection store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Insert writes a detection row. Secondary intents and source data are stored
// as JSONB so the column set stays stable as the rule tables evolve.
func (p *PostgresStore) Insert(ctx context.Context, result *DetectionResult) error {
	secondary, err := json.Marshal(result.SecondaryIntents)
	if err != nil {
		return fmt.Errorf("marshal secondary intents: %w", err)
	}
	sourceData, err := json.Marshal(result.SourceData)
	if err != nil {
		return fmt.Errorf("marshal source data: %w", err)
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO detections (
			id, customer_id, session_id, company_id,
			primary_intent, primary_confidence, secondary_intents,
			cancel_reason, cancel_reason_confidence,
			sentiment, sentiment_score, urgency,
			source, source_data, detected_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`,
		result.ID, result.CustomerID, nullString(result.SessionID), result.CompanyID,
		string(result.PrimaryIntent), result.PrimaryConfidence, secondary,
		nullString(string(result.CancelReason)), result.CancelReasonConfidence,
		string(result.Sentiment), result.SentimentScore, string(result.Urgency),
		string(result.Source), sourceData, result.DetectedAt,
	)
	if err != nil {
		return fmt.Errorf("insert detection: %w", err)
	}
	return nil
}

// Get retrieves a detection by ID.
func (p *PostgresStore) Get(ctx context.Context, id string) (*DetectionResult, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, customer_id, session_id, company_id,
			primary_intent, primary_confidence, secondary_intents,
			cancel_reason, cancel_reason_confidence,
			sentiment, sentiment_score, urgency,
			source, source_data, detected_at
		FROM detections WHERE id = $1
	`, id)

	result, err := scanDetection(row)
	if err == sql.ErrNoRows {
		return nil, ErrDetectionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get detection: %w", err)
	}
	return result, nil
}

// List returns a company's detections matching the query, newest first.
func (p *PostgresStore) List(ctx context.Context, companyID string, q ListQuery) ([]*DetectionResult, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, customer_id, session_id, company_id,
			primary_intent, primary_confidence, secondary_intents,
			cancel_reason, cancel_reason_confidence,
			sentiment, sentiment_score, urgency,
			source, source_data, detected_at
		FROM detections WHERE company_id = $1`
	args := []interface{}{companyID}

	if q.CustomerID != "" {
		args = append(args, q.CustomerID)
		query += fmt.Sprintf(" AND customer_id = $%d", len(args))
	}
	if q.Intent != "" {
		args = append(args, string(q.Intent))
		query += fmt.Sprintf(" AND primary_intent = $%d", len(args))
	}
	if !q.From.IsZero() {
		args = append(args, q.From)
		query += fmt.Sprintf(" AND detected_at >= $%d", len(args))
	}
	if !q.To.IsZero() {
		args = append(args, q.To)
		query += fmt.Sprintf(" AND detected_at <= $%d", len(args))
	}
	if q.After != nil {
		args = append(args, q.After.DetectedAt, q.After.ID)
		query += fmt.Sprintf(" AND (detected_at < $%d OR (detected_at = $%d AND id > $%d))",
			len(args)-1, len(args)-1, len(args))
	}

	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY detected_at DESC, id ASC LIMIT $%d", len(args))

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list detections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*DetectionResult
	for rows.Next() {
		d, err := scanDetection(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

// scannable abstracts *sql.Row and *sql.Rows for shared scanning logic.
type scannable interface {
	Scan(dest ...interface{}) error
}

func scanDetection(row scannable) (*DetectionResult, error) {
	var d DetectionResult
	var sessionID, cancelReason sql.NullString
	var intent, sentiment, urgency, source string
	var secondary, sourceData []byte

	err := row.Scan(
		&d.ID, &d.CustomerID, &sessionID, &d.CompanyID,
		&intent, &d.PrimaryConfidence, &secondary,
		&cancelReason, &d.CancelReasonConfidence,
		&sentiment, &d.SentimentScore, &urgency,
		&source, &sourceData, &d.DetectedAt,
	)
	if err != nil {
		return nil, err
	}

	d.PrimaryIntent = Intent(intent)
	d.Sentiment = Sentiment(sentiment)
	d.Urgency = Urgency(urgency)
	d.Source = Source(source)
	if sessionID.Valid {
		d.SessionID = sessionID.String
	}
	if cancelReason.Valid {
		d.CancelReason = CancelReason(cancelReason.String)
	}
	if len(secondary) > 0 {
		if err := json.Unmarshal(secondary, &d.SecondaryIntents); err != nil {
			return nil, fmt.Errorf("unmarshal secondary intents: %w", err)
		}
	}
	if len(sourceData) > 0 {
		if err := json.Unmarshal(sourceData, &d.SourceData); err != nil {
			return nil, fmt.Errorf("unmarshal source data: %w", err)
		}
	}
	return &d, nil
}

// nullString returns a sql.NullString: valid if s is non-empty, null otherwise.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
