// Package audit mirrors session audit entries into Postgres so the trail
// survives session expiry and store restarts.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Store persists audit entries durably. The live trail stays on the session;
// this copy serves historical reads once the session is gone.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	if db == nil {
		panic("audit: db cannot be nil")
	}
	return &Store{db: db}
}

// Record inserts one audit entry for a session.
func (s *Store) Record(ctx context.Context, sessionID string, entry Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	var data []byte
	if len(entry.Data) > 0 {
		var err error
		data, err = json.Marshal(entry.Data)
		if err != nil {
			return fmt.Errorf("audit: marshal entry data: %w", err)
		}
	}

	query := `
		INSERT INTO audit_entries (id, session_id, event, detail, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		entry.ID,
		sessionID,
		entry.Event,
		nullString(entry.Detail),
		nullBytes(data),
		entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("audit: failed to record entry: %w", err)
	}
	return nil
}

// BySession returns the durable trail for one session, oldest first. Seq
// breaks created_at ties so the stored order is the append order.
func (s *Store) BySession(ctx context.Context, sessionID string) ([]Entry, error) {
	query := `
		SELECT id, event, detail, data, created_at
		FROM audit_entries
		WHERE session_id = $1
		ORDER BY created_at ASC, seq ASC
	`
	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("audit: failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var detail sql.NullString
		var data []byte
		if err := rows.Scan(&e.ID, &e.Event, &detail, &data, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("audit: failed to scan entry: %w", err)
		}
		e.Detail = detail.String
		if len(data) > 0 {
			if err := json.Unmarshal(data, &e.Data); err != nil {
				return nil, fmt.Errorf("audit: failed to decode entry data: %w", err)
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: row iteration: %w", err)
	}
	return entries, nil
}

// Entry is one durable audit record.
type Entry struct {
	ID        string         `json:"id"`
	Event     string         `json:"event"`
	Detail    string         `json:"detail,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
