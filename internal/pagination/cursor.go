// Package pagination provides cursor-based pagination utilities.
package pagination

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidCursor is returned when an opaque cursor cannot be parsed.
// Handlers map it to a 400 rather than a server error.
var ErrInvalidCursor = errors.New("invalid cursor")

// Cursor represents a position in a paginated result set.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// Encode returns an opaque cursor string from a timestamp and ID.
func Encode(createdAt time.Time, id string) string {
	raw := fmt.Sprintf("%d|%s", createdAt.UnixNano(), id)
	return base64.URLEncoding.EncodeToString([]byte(raw))
}

// Decode parses an opaque cursor string. Returns nil for empty input.
func Decode(s string) (*Cursor, error) {
	if s == "" {
		return nil, nil
	}
	raw, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 {
		return nil, ErrInvalidCursor
	}
	nanos, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	return &Cursor{
		CreatedAt: time.Unix(0, nanos).UTC(),
		ID:        parts[1],
	}, nil
}

// ComputePage takes a slice of items (fetched with limit+1), the requested limit,
// and a function to extract (createdAt, id) from the last item.
// Returns the trimmed items, next cursor, and has_more flag.
func ComputePage[T any](items []T, limit int, extractKey func(T) (time.Time, string)) ([]T, string, bool) {
	if len(items) <= limit {
		return items, "", false
	}
	items = items[:limit]
	last := items[len(items)-1]
	createdAt, id := extractKey(last)
	return items, Encode(createdAt, id), true
}

// ScoreCursor represents a position in a result set ordered by descending
// numeric score with ID as the tiebreak.
type ScoreCursor struct {
	Score float64
	ID    string
}

// EncodeScore returns an opaque cursor string from a score and ID.
func EncodeScore(score float64, id string) string {
	raw := fmt.Sprintf("%s|%s", strconv.FormatFloat(score, 'f', -1, 64), id)
	return base64.URLEncoding.EncodeToString([]byte(raw))
}

// DecodeScore parses an opaque score cursor. Returns nil for empty input.
func DecodeScore(s string) (*ScoreCursor, error) {
	if s == "" {
		return nil, nil
	}
	raw, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 {
		return nil, ErrInvalidCursor
	}
	score, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	return &ScoreCursor{Score: score, ID: parts[1]}, nil
}

// ComputeScorePage is ComputePage for score-ordered result sets.
func ComputeScorePage[T any](items []T, limit int, extractKey func(T) (float64, string)) ([]T, string, bool) {
	if len(items) <= limit {
		return items, "", false
	}
	items = items[:limit]
	last := items[len(items)-1]
	score, id := extractKey(last)
	return items, EncodeScore(score, id), true
}
