package application

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/example/attendance-engine/internal/persistence"
)

// Curfew window for non-admin check-ins: [CurfewStartHour, CurfewEndHour)
// wrapping midnight.
const (
	CurfewStartHour = 20
	CurfewEndHour   = 5
)

const lockStripes = 64

// AttendanceUserStore captures the user operations the state machine needs.
type AttendanceUserStore interface {
	GetUserByUID(ctx context.Context, uid string) (persistence.User, error)
	ListUsers(ctx context.Context) ([]persistence.User, error)
	SetStatus(ctx context.Context, uid string, status persistence.Status, at time.Time) error
	SetIgnoreLimit(ctx context.Context, uid string, ignore bool, at time.Time) error
}

// AttendanceEventStore captures the event log operations the state machine needs.
type AttendanceEventStore interface {
	AppendEvent(ctx context.Context, event persistence.Event) error
	ListEventsForUser(ctx context.Context, uid string, filter persistence.EventFilter) ([]persistence.Event, error)
	DeleteEventsForUser(ctx context.Context, uid string, filter persistence.EventFilter) error
}

// ChangeNotifier bumps the change token observers poll.
type ChangeNotifier interface {
	MarkUpdated(ctx context.Context) error
}

// AttendanceService is the state machine governing check-in/check-out
// transitions. Calls for the same uid are serialized through striped locks;
// the gating rules are check-then-act sequences that must not interleave.
type AttendanceService struct {
	users       AttendanceUserStore
	events      AttendanceEventStore
	notifier    ChangeNotifier
	idGenerator func() string
	now         func() time.Time

	// sweepWritesEvent selects the auto-checkout policy: write a synthetic
	// closing event at sweep time, or reset cached status only.
	sweepWritesEvent bool

	locks  [lockStripes]sync.Mutex
	logger *slog.Logger
}

// NewAttendanceService wires dependencies for the attendance state machine.
func NewAttendanceService(users AttendanceUserStore, events AttendanceEventStore, notifier ChangeNotifier, idGenerator func() string, now func() time.Time, sweepWritesEvent bool, logger *slog.Logger) *AttendanceService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &AttendanceService{
		users:            users,
		events:           events,
		notifier:         notifier,
		idGenerator:      idGenerator,
		now:              now,
		sweepWritesEvent: sweepWritesEvent,
		logger:           defaultLogger(logger),
	}
}

func (s *AttendanceService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AttendanceService", operation, attrs...)
}

func (s *AttendanceService) lockFor(uid string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(uid))
	return &s.locks[h.Sum32()%lockStripes]
}

// PresentBadge decides whether the badge presentation may transition the
// user and applies the side effects. Check-ins are gated; checkouts are
// always permitted so nobody can be trapped inside a space. Emergency mode
// deliberately does not gate admissions: it is a display-state reset only.
func (s *AttendanceService) PresentBadge(ctx context.Context, uid, room string) (result BadgeResult, err error) {
	if s == nil {
		err = fmt.Errorf("AttendanceService is nil")
		return
	}
	if s.users == nil || s.events == nil {
		err = fmt.Errorf("attendance stores not configured")
		return
	}

	logger := s.loggerWith(ctx, "PresentBadge", "uid", uid, "room", room)
	defer func() {
		switch {
		case err == nil:
			logger.With("action", result.Action, "status", result.Status).InfoContext(ctx, "badge accepted")
		case IsRejection(err):
			logger.InfoContext(ctx, "badge rejected", "reason", ErrorKind(err))
		default:
			logger.ErrorContext(ctx, "badge processing failed", "error", err)
		}
	}()

	lock := s.lockFor(uid)
	lock.Lock()
	defer lock.Unlock()

	user, err := s.users.GetUserByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			err = ErrUnknownBadge
		}
		return
	}

	if !roomAllowed(user.AllowedRooms, room) {
		err = ErrRoomNotAllowed
		return
	}

	now := s.now()
	next := persistence.ActionOut
	if user.Status != persistence.StatusCheckedIn {
		next = persistence.ActionIn
	}

	if next == persistence.ActionIn {
		if user.IgnoreLimit {
			// One-shot manual unlock: consume it and skip every gate.
			if err = s.users.SetIgnoreLimit(ctx, user.UID, false, now); err != nil {
				return
			}
		} else {
			if inCurfew(now.Hour()) && user.Role != RoleAdmin {
				err = ErrCurfewLocked
				return
			}
			var completed bool
			completed, err = s.completedCycleToday(ctx, user.UID, now)
			if err != nil {
				return
			}
			if completed {
				err = ErrAlreadyCompletedToday
				return
			}
		}
	}

	if err = s.applyTransition(ctx, user.UID, next, now); err != nil {
		return
	}

	status := persistence.StatusCheckedOut
	if next == persistence.ActionIn {
		status = persistence.StatusCheckedIn
	}
	result = BadgeResult{UID: user.UID, Action: next, Status: status, Timestamp: now}
	return
}

// applyTransition appends the event and updates the cached status as one
// operation, then bumps the change token. The cached status is never
// recomputed lazily from the log on this path.
func (s *AttendanceService) applyTransition(ctx context.Context, uid string, action persistence.Action, at time.Time) error {
	event := persistence.Event{
		ID:        s.idGenerator(),
		UID:       uid,
		Action:    action,
		Timestamp: at,
	}
	if err := s.events.AppendEvent(ctx, event); err != nil {
		return err
	}

	status := persistence.StatusCheckedOut
	if action == persistence.ActionIn {
		status = persistence.StatusCheckedIn
	}
	if err := s.users.SetStatus(ctx, uid, status, at); err != nil {
		return err
	}

	return s.markUpdated(ctx)
}

func (s *AttendanceService) completedCycleToday(ctx context.Context, uid string, now time.Time) (bool, error) {
	dayStart := startOfDay(now)
	events, err := s.events.ListEventsForUser(ctx, uid, persistence.EventFilter{From: &dayStart})
	if err != nil {
		return false, err
	}
	for _, event := range events {
		if event.Action == persistence.ActionOut {
			return true, nil
		}
	}
	return false, nil
}

// ResetDailyLimit is the administrative manual unlock: it arms the one-shot
// ignore_limit flag and clears today's events so the one-cycle check does
// not see a stale completed cycle.
func (s *AttendanceService) ResetDailyLimit(ctx context.Context, principal Principal, uid string) error {
	if s == nil {
		return fmt.Errorf("AttendanceService is nil")
	}
	if !principal.IsAdmin {
		return ErrUnauthorized
	}

	logger := s.loggerWith(ctx, "ResetDailyLimit", "principal_uid", principal.UID, "uid", uid)

	lock := s.lockFor(uid)
	lock.Lock()
	defer lock.Unlock()

	user, err := s.users.GetUserByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrUnknownUser
		}
		return err
	}

	now := s.now()
	dayStart := startOfDay(now)
	dayEnd := dayStart.AddDate(0, 0, 1)
	if err := s.events.DeleteEventsForUser(ctx, user.UID, persistence.EventFilter{From: &dayStart, To: &dayEnd}); err != nil {
		logger.ErrorContext(ctx, "failed to clear today's events", "error", err)
		return err
	}
	if err := s.users.SetIgnoreLimit(ctx, user.UID, true, now); err != nil {
		return err
	}
	if err := s.markUpdated(ctx); err != nil {
		return err
	}

	logger.InfoContext(ctx, "daily limit reset")
	return nil
}

// ForceCheckoutAll sweeps every currently checked-in user to checked-out.
// Scheduled at the morning boundary; the event-writing behavior follows the
// configured sweep policy. Returns the number of users swept.
func (s *AttendanceService) ForceCheckoutAll(ctx context.Context) (int, error) {
	if s == nil {
		return 0, fmt.Errorf("AttendanceService is nil")
	}

	logger := s.loggerWith(ctx, "ForceCheckoutAll")

	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return 0, err
	}

	now := s.now()
	swept := 0
	for _, user := range users {
		if user.Status != persistence.StatusCheckedIn {
			continue
		}

		lock := s.lockFor(user.UID)
		lock.Lock()
		if s.sweepWritesEvent {
			err = s.applyTransition(ctx, user.UID, persistence.ActionOut, now)
		} else {
			err = s.users.SetStatus(ctx, user.UID, persistence.StatusCheckedOut, now)
		}
		lock.Unlock()
		if err != nil {
			return swept, err
		}
		swept++
	}

	if swept > 0 && !s.sweepWritesEvent {
		if err := s.markUpdated(ctx); err != nil {
			return swept, err
		}
	}

	logger.With("swept", swept).InfoContext(ctx, "forced checkout sweep completed")
	return swept, nil
}

// ReconcileStatus recomputes the status a user's log implies and reports
// whether the cached value agrees. Consistency-check utility for tests and
// the admin CLI; it never mutates.
func (s *AttendanceService) ReconcileStatus(ctx context.Context, uid string) (derived persistence.Status, consistent bool, err error) {
	user, err := s.users.GetUserByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			err = ErrUnknownUser
		}
		return "", false, err
	}

	events, err := s.events.ListEventsForUser(ctx, uid, persistence.EventFilter{})
	if err != nil {
		return "", false, err
	}

	derived = persistence.StatusCheckedOut
	if len(events) > 0 && events[len(events)-1].Action == persistence.ActionIn {
		derived = persistence.StatusCheckedIn
	}

	return derived, derived == user.Status, nil
}

func (s *AttendanceService) markUpdated(ctx context.Context) error {
	if s.notifier == nil {
		return nil
	}
	return s.notifier.MarkUpdated(ctx)
}

func inCurfew(hour int) bool {
	return hour >= CurfewStartHour || hour < CurfewEndHour
}

func roomAllowed(allowed []string, room string) bool {
	for _, entry := range allowed {
		if entry == persistence.RoomAll || entry == room {
			return true
		}
	}
	return false
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
