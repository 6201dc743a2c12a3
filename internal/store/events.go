package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/domovra/domovra/internal/model"
)

// LogEvent appends an entry to the activity journal.
func LogEvent(ctx context.Context, db *sql.DB, kind string, details map[string]any) error {
	return logEvent(ctx, db, kind, details)
}

func logEvent(ctx context.Context, q querier, kind string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	payload, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("encoding event details: %w", err)
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO events (created_at, kind, details) VALUES (?, ?, ?)`,
		now().UTC().Format(time.RFC3339), kind, string(payload),
	)
	if err != nil {
		return classify("logging event", err)
	}
	return nil
}

// ListEvents returns the most recent journal entries, newest first.
func ListEvents(ctx context.Context, db *sql.DB, limit int) ([]model.Event, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := db.QueryContext(ctx,
		`SELECT id, created_at, kind, details FROM events ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, classify("listing events", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		var details sql.NullString
		if err := rows.Scan(&e.ID, &e.CreatedAt, &e.Kind, &details); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		e.Details = map[string]any{}
		if details.Valid && details.String != "" {
			// Unreadable details are kept out rather than failing the list.
			_ = json.Unmarshal([]byte(details.String), &e.Details)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
