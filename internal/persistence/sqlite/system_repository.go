package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/attendance-engine/internal/persistence"
)

// SystemStateRepository persists the singleton system state row.
type SystemStateRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewSystemStateRepository creates a new SQLite system state repository.
func NewSystemStateRepository(pool *ConnectionPool) *SystemStateRepository {
	return &SystemStateRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// LoadSystemState reads the singleton row, defaulting to offset zero and
// emergency off when the process starts against a fresh database.
func (r *SystemStateRepository) LoadSystemState(ctx context.Context) (persistence.SystemState, error) {
	var state persistence.SystemState
	var lastUpdated string

	err := r.helper.QueryRow(ctx,
		`SELECT time_offset_seconds, emergency_mode, last_updated FROM system_state WHERE id = 1`,
	).Scan(&state.TimeOffsetSeconds, &state.EmergencyMode, &lastUpdated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.SystemState{LastUpdated: time.Now().UTC()}, nil
		}
		return persistence.SystemState{}, r.mapper.MapError(err)
	}

	if state.LastUpdated, err = parseStoredTime(lastUpdated); err != nil {
		return persistence.SystemState{}, fmt.Errorf("failed to parse last_updated: %w", err)
	}

	return state, nil
}

// SaveSystemState upserts the singleton row.
func (r *SystemStateRepository) SaveSystemState(ctx context.Context, state persistence.SystemState) error {
	_, err := r.helper.Exec(ctx, `
		INSERT INTO system_state (id, time_offset_seconds, emergency_mode, last_updated)
		VALUES (1, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			time_offset_seconds = excluded.time_offset_seconds,
			emergency_mode = excluded.emergency_mode,
			last_updated = excluded.last_updated`,
		state.TimeOffsetSeconds,
		state.EmergencyMode,
		formatStoredTime(state.LastUpdated),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}
