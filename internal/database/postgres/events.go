package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gymgate/internal/database"
)

// EventRepository provides PostgreSQL-backed access event storage.
type EventRepository struct {
	pool *Pool
}

// NewEventRepository creates a new PostgreSQL event repository.
func NewEventRepository(pool *Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

// MostRecent returns the member's latest event, or (nil, nil) when the
// member has never checked in.
func (r *EventRepository) MostRecent(ctx context.Context, email string) (*database.AccessEvent, error) {
	var ev database.AccessEvent
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, member_name, kind, ts
		FROM access_events
		WHERE email = $1
		ORDER BY ts DESC
		LIMIT 1
	`, database.NormalizeIdentity(email)).Scan(&ev.ID, &ev.Email, &ev.MemberName, &ev.Kind, &ev.Timestamp)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query most recent event: %w", err)
	}
	return &ev, nil
}

// Append stores a new event. Rows are never updated or deleted afterwards.
func (r *EventRepository) Append(ctx context.Context, ev database.AccessEvent) error {
	if !ev.Kind.Valid() {
		return fmt.Errorf("append event: invalid kind %q", ev.Kind)
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO access_events (email, member_name, kind, ts)
		VALUES ($1, $2, $3, $4)
	`, database.NormalizeIdentity(ev.Email), ev.MemberName, string(ev.Kind), ev.Timestamp)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// Present returns the latest event per member for members currently inside.
func (r *EventRepository) Present(ctx context.Context) ([]database.AccessEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, email, member_name, kind, ts FROM (
			SELECT DISTINCT ON (email) id, email, member_name, kind, ts
			FROM access_events
			ORDER BY email, ts DESC
		) latest
		WHERE kind = 'entry'
		ORDER BY ts
	`)
	if err != nil {
		return nil, fmt.Errorf("query present members: %w", err)
	}
	defer rows.Close()

	var events []database.AccessEvent
	for rows.Next() {
		var ev database.AccessEvent
		if err := rows.Scan(&ev.ID, &ev.Email, &ev.MemberName, &ev.Kind, &ev.Timestamp); err != nil {
			return nil, fmt.Errorf("scan present member: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate present members: %w", err)
	}
	return events, nil
}

// BulkCloseAll writes an exit for every member currently present.
func (r *EventRepository) BulkCloseAll(ctx context.Context) (int, error) {
	result, err := r.pool.Exec(ctx, `
		INSERT INTO access_events (email, member_name, kind, ts)
		SELECT email, member_name, 'exit', NOW() FROM (
			SELECT DISTINCT ON (email) email, member_name, kind
			FROM access_events
			ORDER BY email, ts DESC
		) latest
		WHERE kind = 'entry'
	`)
	if err != nil {
		return 0, fmt.Errorf("bulk close: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("bulk close rows affected: %w", err)
	}
	return int(n), nil
}

// VisitsByHour returns per-hour entry counts since the given time.
func (r *EventRepository) VisitsByHour(ctx context.Context, since time.Time) ([]database.VisitBucket, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT date_trunc('hour', ts) AS hour, COUNT(*)
		FROM access_events
		WHERE kind = 'entry' AND ts >= $1
		GROUP BY hour
		ORDER BY hour
	`, since)
	if err != nil {
		return nil, fmt.Errorf("query visits by hour: %w", err)
	}
	defer rows.Close()

	var buckets []database.VisitBucket
	for rows.Next() {
		var b database.VisitBucket
		if err := rows.Scan(&b.Hour, &b.Visits); err != nil {
			return nil, fmt.Errorf("scan visit bucket: %w", err)
		}
		buckets = append(buckets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate visit buckets: %w", err)
	}
	return buckets, nil
}

// LastSeen returns the most recent event timestamp per member email.
func (r *EventRepository) LastSeen(ctx context.Context) (map[string]time.Time, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT email, MAX(ts)
		FROM access_events
		GROUP BY email
	`)
	if err != nil {
		return nil, fmt.Errorf("query last seen: %w", err)
	}
	defer rows.Close()

	out := make(map[string]time.Time)
	for rows.Next() {
		var email string
		var ts time.Time
		if err := rows.Scan(&email, &ts); err != nil {
			return nil, fmt.Errorf("scan last seen: %w", err)
		}
		out[email] = ts
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate last seen: %w", err)
	}
	return out, nil
}
