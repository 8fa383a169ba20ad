package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/attendance-engine/internal/persistence"
)

// EventRepository implements the append-only attendance log on SQLite.
type EventRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewEventRepository creates a new SQLite event repository.
func NewEventRepository(pool *ConnectionPool) *EventRepository {
	return &EventRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// AppendEvent inserts a new attendance event. Events are never updated.
func (r *EventRepository) AppendEvent(ctx context.Context, event persistence.Event) error {
	if event.ID == "" || event.UID == "" {
		return persistence.ErrConstraintViolation
	}

	_, err := r.helper.Exec(ctx,
		`INSERT INTO events (id, uid, action, timestamp) VALUES (?, ?, ?, ?)`,
		event.ID,
		event.UID,
		string(event.Action),
		formatStoredTime(event.Timestamp),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}

	return nil
}

// ListEventsForUser returns a user's events inside the filter interval,
// ordered ascending by timestamp then insertion.
func (r *EventRepository) ListEventsForUser(ctx context.Context, uid string, filter persistence.EventFilter) ([]persistence.Event, error) {
	query := `SELECT id, uid, action, timestamp FROM events WHERE uid = ?`
	args := []any{uid}

	if filter.From != nil {
		query += ` AND timestamp >= ?`
		args = append(args, formatStoredTime(*filter.From))
	}
	if filter.To != nil {
		query += ` AND timestamp < ?`
		args = append(args, formatStoredTime(*filter.To))
	}
	query += ` ORDER BY timestamp ASC, rowid ASC`

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var events []persistence.Event
	for rows.Next() {
		var event persistence.Event
		var action, timestamp string
		if err := rows.Scan(&event.ID, &event.UID, &action, &timestamp); err != nil {
			return nil, r.mapper.MapError(err)
		}
		event.Action = persistence.Action(action)
		if event.Timestamp, err = parseStoredTime(timestamp); err != nil {
			return nil, fmt.Errorf("failed to parse event timestamp: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return events, nil
}

// CountEventsForUser returns the total number of events logged for a user.
func (r *EventRepository) CountEventsForUser(ctx context.Context, uid string) (int, error) {
	var count int
	err := r.helper.QueryRow(ctx, `SELECT COUNT(*) FROM events WHERE uid = ?`, uid).Scan(&count)
	if err != nil {
		return 0, r.mapper.MapError(err)
	}
	return count, nil
}

// DeleteEventsForUser removes a user's events inside the filter interval.
// This exists solely for the administrative daily-limit reset.
func (r *EventRepository) DeleteEventsForUser(ctx context.Context, uid string, filter persistence.EventFilter) error {
	if strings.TrimSpace(uid) == "" {
		return persistence.ErrNotFound
	}

	query := `DELETE FROM events WHERE uid = ?`
	args := []any{uid}

	if filter.From != nil {
		query += ` AND timestamp >= ?`
		args = append(args, formatStoredTime(*filter.From))
	}
	if filter.To != nil {
		query += ` AND timestamp < ?`
		args = append(args, formatStoredTime(*filter.To))
	}

	if _, err := r.helper.Exec(ctx, query, args...); err != nil {
		return r.mapper.MapError(err)
	}

	return nil
}
