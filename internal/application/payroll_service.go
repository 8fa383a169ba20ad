package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/attendance-engine/internal/payroll"
	"github.com/example/attendance-engine/internal/persistence"
)

// PayrollUserStore resolves the user whose earnings are computed.
type PayrollUserStore interface {
	GetUserByUID(ctx context.Context, uid string) (persistence.User, error)
}

// PayrollEventStore reads the attendance log segments to replay.
type PayrollEventStore interface {
	ListEventsForUser(ctx context.Context, uid string, filter persistence.EventFilter) ([]persistence.Event, error)
}

// PayrollService reconstructs worked time and earnings from the attendance
// log. All pricing lives in the payroll package; this service only fetches
// events and shapes results.
type PayrollService struct {
	users  PayrollUserStore
	events PayrollEventStore
	now    func() time.Time
	logger *slog.Logger
}

// NewPayrollService wires dependencies for payroll computation.
func NewPayrollService(users PayrollUserStore, events PayrollEventStore, now func() time.Time, logger *slog.Logger) *PayrollService {
	if now == nil {
		now = time.Now
	}
	return &PayrollService{
		users:  users,
		events: events,
		now:    now,
		logger: defaultLogger(logger),
	}
}

func (s *PayrollService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "PayrollService", operation, attrs...)
}

// ComputeEarnings replays the user's log over [from, to) and returns total
// accrued earnings, floored to whole currency units. A zero bound leaves that
// side of the period open; two zero bounds replay the full log. Unknown users
// and zero rates yield zero rather than an error; a payroll query must not
// fail just because a badge was never registered.
func (s *PayrollService) ComputeEarnings(ctx context.Context, uid string, from, to time.Time) (int64, error) {
	if s == nil {
		return 0, fmt.Errorf("PayrollService is nil")
	}

	user, err := s.users.GetUserByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	if user.HourlyRate <= 0 {
		return 0, nil
	}

	var filter persistence.EventFilter
	if !from.IsZero() {
		filter.From = &from
	}
	if !to.IsZero() {
		filter.To = &to
	}
	events, err := s.events.ListEventsForUser(ctx, uid, filter)
	if err != nil {
		s.loggerWith(ctx, "ComputeEarnings", "uid", uid).ErrorContext(ctx, "failed to list events", "error", err)
		return 0, err
	}

	breakdown := payroll.Replay(events, user.HourlyRate)
	return payroll.FloorAmount(breakdown.Amount), nil
}

// ComputeDailyStats replays one calendar day of the user's log. The day is
// the local date of `day`; sessions count toward the day their checkout
// falls on because events are bucketed by timestamp.
func (s *PayrollService) ComputeDailyStats(ctx context.Context, uid string, day time.Time) (DailyStats, error) {
	if s == nil {
		return DailyStats{}, fmt.Errorf("PayrollService is nil")
	}

	dayStart := startOfDay(day)
	stats := DailyStats{Date: dayStart}

	user, err := s.users.GetUserByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return stats, nil
		}
		return stats, err
	}

	dayEnd := dayStart.AddDate(0, 0, 1)
	events, err := s.events.ListEventsForUser(ctx, uid, persistence.EventFilter{From: &dayStart, To: &dayEnd})
	if err != nil {
		return stats, err
	}

	breakdown := payroll.Replay(events, user.HourlyRate)
	stats.HoursWorked = payroll.RoundHours(breakdown.Hours)
	stats.Earnings = payroll.FloorAmount(breakdown.Amount)
	return stats, nil
}

// WeeklyHours returns per-day stats for the seven days ending on the
// current simulated date, oldest first.
func (s *PayrollService) WeeklyHours(ctx context.Context, uid string) ([]DailyStats, error) {
	if s == nil {
		return nil, fmt.Errorf("PayrollService is nil")
	}

	today := startOfDay(s.now())
	series := make([]DailyStats, 0, 7)
	for offset := -6; offset <= 0; offset++ {
		stats, err := s.ComputeDailyStats(ctx, uid, today.AddDate(0, 0, offset))
		if err != nil {
			return nil, err
		}
		series = append(series, stats)
	}
	return series, nil
}

// MonthlyBreakdown replays one calendar month of the user's log and returns
// the priced sessions. Used by the payroll report export.
func (s *PayrollService) MonthlyBreakdown(ctx context.Context, uid string, year int, month time.Month) (payroll.Breakdown, error) {
	if s == nil {
		return payroll.Breakdown{}, fmt.Errorf("PayrollService is nil")
	}

	user, err := s.users.GetUserByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return payroll.Breakdown{}, nil
		}
		return payroll.Breakdown{}, err
	}

	monthStart := time.Date(year, month, 1, 0, 0, 0, 0, s.now().Location())
	monthEnd := monthStart.AddDate(0, 1, 0)
	events, err := s.events.ListEventsForUser(ctx, uid, persistence.EventFilter{From: &monthStart, To: &monthEnd})
	if err != nil {
		return payroll.Breakdown{}, err
	}

	return payroll.Replay(events, user.HourlyRate), nil
}
