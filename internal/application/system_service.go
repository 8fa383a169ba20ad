package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/example/attendance-engine/internal/persistence"
)

// SystemStateStore persists the process-wide singleton state.
type SystemStateStore interface {
	LoadSystemState(ctx context.Context) (persistence.SystemState, error)
	SaveSystemState(ctx context.Context, state persistence.SystemState) error
}

// StatusResetter force-sets every user's cached status. Used by the
// emergency reset; no events are synthesized through this path.
type StatusResetter interface {
	SetStatusAll(ctx context.Context, status persistence.Status, at time.Time) error
}

// SystemService owns the simulated clock, the emergency flag, and the
// change-notification token. Every other component consults it for "now"
// instead of reading the wall clock.
type SystemService struct {
	mu     sync.Mutex
	state  persistence.SystemState
	store  SystemStateStore
	users  StatusResetter
	wall   func() time.Time
	logger *slog.Logger
}

// NewSystemService wires dependencies for the system service. wall is the
// real clock; tests substitute a fixture.
func NewSystemService(store SystemStateStore, users StatusResetter, wall func() time.Time, logger *slog.Logger) *SystemService {
	if wall == nil {
		wall = time.Now
	}
	return &SystemService{
		store:  store,
		users:  users,
		wall:   wall,
		logger: defaultLogger(logger),
		state:  persistence.SystemState{LastUpdated: wall()},
	}
}

func (s *SystemService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "SystemService", operation, attrs...)
}

// Load restores persisted state. Call once at startup; a fresh store yields
// offset zero and emergency off.
func (s *SystemService) Load(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("SystemService is nil")
	}
	if s.store == nil {
		return nil
	}

	state, err := s.store.LoadSystemState(ctx)
	if err != nil {
		return fmt.Errorf("failed to load system state: %w", err)
	}

	s.mu.Lock()
	s.state = state
	s.mu.Unlock()

	s.loggerWith(ctx, "Load",
		"time_offset_seconds", state.TimeOffsetSeconds,
		"emergency_mode", state.EmergencyMode,
	).InfoContext(ctx, "system state loaded")
	return nil
}

// Now returns the simulated time: wall clock plus the configured offset.
func (s *SystemService) Now() time.Time {
	s.mu.Lock()
	offset := s.state.TimeOffsetSeconds
	s.mu.Unlock()
	return s.wall().Add(time.Duration(offset) * time.Second)
}

// NowFunc exposes Now as a function suitable for dependency injection.
func (s *SystemService) NowFunc() func() time.Time {
	if s == nil {
		return time.Now
	}
	return s.Now
}

// SetTimeOffset replaces the simulated-clock offset. Administrators only.
func (s *SystemService) SetTimeOffset(ctx context.Context, principal Principal, offset time.Duration) error {
	if s == nil {
		return fmt.Errorf("SystemService is nil")
	}
	if !principal.IsAdmin {
		return ErrUnauthorized
	}

	logger := s.loggerWith(ctx, "SetTimeOffset", "principal_uid", principal.UID, "offset", offset)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.TimeOffsetSeconds = int64(offset / time.Second)
	if err := s.persistLocked(ctx); err != nil {
		logger.ErrorContext(ctx, "failed to persist time offset", "error", err)
		return err
	}

	logger.InfoContext(ctx, "time offset updated")
	return nil
}

// SetEmergency flips the emergency flag. Activation force-resets every
// user's cached status to checked-out without writing events; deactivation
// mutates nothing in bulk. The attendance state machine never consults this
// flag for admission control.
func (s *SystemService) SetEmergency(ctx context.Context, active bool) error {
	if s == nil {
		return fmt.Errorf("SystemService is nil")
	}

	logger := s.loggerWith(ctx, "SetEmergency", "active", active)

	if active && s.users != nil {
		if err := s.users.SetStatusAll(ctx, persistence.StatusCheckedOut, s.Now()); err != nil {
			logger.ErrorContext(ctx, "failed to reset user statuses", "error", err)
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.EmergencyMode = active
	if err := s.persistLocked(ctx); err != nil {
		logger.ErrorContext(ctx, "failed to persist emergency flag", "error", err)
		return err
	}

	logger.InfoContext(ctx, "emergency flag updated")
	return nil
}

// EmergencyActive reports whether emergency mode is engaged.
func (s *SystemService) EmergencyActive() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.EmergencyMode
}

// Snapshot returns the state polled by observers.
func (s *SystemService) Snapshot() SystemSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SystemSnapshot{
		TimeOffset:    time.Duration(s.state.TimeOffsetSeconds) * time.Second,
		EmergencyMode: s.state.EmergencyMode,
		LastUpdated:   s.state.LastUpdated,
	}
}

// MarkUpdated bumps the change-notification token and persists the state.
// Every observable mutation anywhere in the core routes through this so
// polling observers never miss a change.
func (s *SystemService) MarkUpdated(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("SystemService is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked(ctx)
}

// persistLocked advances last_updated strictly and saves. The token must
// increase even when the wall clock has not (coarse clocks, time travel).
func (s *SystemService) persistLocked(ctx context.Context) error {
	next := s.wall()
	if !next.After(s.state.LastUpdated) {
		next = s.state.LastUpdated.Add(time.Nanosecond)
	}
	s.state.LastUpdated = next

	if s.store == nil {
		return nil
	}
	if err := s.store.SaveSystemState(ctx, s.state); err != nil {
		return fmt.Errorf("failed to save system state: %w", err)
	}
	return nil
}
