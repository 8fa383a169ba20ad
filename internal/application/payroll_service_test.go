package application

import (
	"context"
	"testing"
	"time"

	"github.com/example/attendance-engine/internal/persistence"
)

func payrollFixture(t *testing.T, rate int64, events ...persistence.Event) (*PayrollService, *eventStoreStub) {
	t.Helper()
	user := staffUser("badge-1")
	user.HourlyRate = rate
	store := &eventStoreStub{events: events}
	svc := NewPayrollService(newUserStoreStub(user), store, func() time.Time {
		return time.Date(2025, 3, 12, 12, 0, 0, 0, time.UTC)
	}, nil)
	return svc, store
}

func TestComputeEarnings_WeekdaySession(t *testing.T) {
	t.Parallel()

	svc, _ := payrollFixture(t, 50000,
		persistence.Event{ID: "e1", UID: "badge-1", Action: persistence.ActionIn, Timestamp: time.Date(2025, 3, 12, 8, 0, 0, 0, time.UTC)},
		persistence.Event{ID: "e2", UID: "badge-1", Action: persistence.ActionOut, Timestamp: time.Date(2025, 3, 12, 17, 0, 0, 0, time.UTC)},
	)

	earnings, err := svc.ComputeEarnings(context.Background(), "badge-1", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("ComputeEarnings failed: %v", err)
	}
	if earnings != 450000 {
		t.Fatalf("expected 450000, got %d", earnings)
	}
}

func TestComputeEarnings_EveningCheckoutPricesWholeSession(t *testing.T) {
	t.Parallel()

	svc, _ := payrollFixture(t, 50000,
		persistence.Event{ID: "e1", UID: "badge-1", Action: persistence.ActionIn, Timestamp: time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)},
		persistence.Event{ID: "e2", UID: "badge-1", Action: persistence.ActionOut, Timestamp: time.Date(2025, 3, 12, 19, 0, 0, 0, time.UTC)},
	)

	earnings, err := svc.ComputeEarnings(context.Background(), "badge-1", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("ComputeEarnings failed: %v", err)
	}
	if earnings != 750000 {
		t.Fatalf("expected 750000, got %d", earnings)
	}
}

func TestComputeEarnings_UnknownUserYieldsZero(t *testing.T) {
	t.Parallel()

	svc, _ := payrollFixture(t, 50000)

	earnings, err := svc.ComputeEarnings(context.Background(), "ghost", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("expected nil error for unknown user, got %v", err)
	}
	if earnings != 0 {
		t.Fatalf("expected 0, got %d", earnings)
	}
}

func TestComputeEarnings_ZeroRateYieldsZero(t *testing.T) {
	t.Parallel()

	svc, store := payrollFixture(t, 0,
		persistence.Event{ID: "e1", UID: "badge-1", Action: persistence.ActionIn, Timestamp: time.Date(2025, 3, 12, 8, 0, 0, 0, time.UTC)},
		persistence.Event{ID: "e2", UID: "badge-1", Action: persistence.ActionOut, Timestamp: time.Date(2025, 3, 12, 17, 0, 0, 0, time.UTC)},
	)

	earnings, err := svc.ComputeEarnings(context.Background(), "badge-1", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("ComputeEarnings failed: %v", err)
	}
	if earnings != 0 {
		t.Fatalf("expected 0 for zero rate, got %d", earnings)
	}
	if store.count() != 2 {
		t.Fatalf("fixture events mutated")
	}
}

func TestComputeEarnings_PeriodBoundsScopeTheLog(t *testing.T) {
	t.Parallel()

	svc, _ := payrollFixture(t, 50000,
		persistence.Event{ID: "e1", UID: "badge-1", Action: persistence.ActionIn, Timestamp: time.Date(2025, 3, 11, 8, 0, 0, 0, time.UTC)},
		persistence.Event{ID: "e2", UID: "badge-1", Action: persistence.ActionOut, Timestamp: time.Date(2025, 3, 11, 16, 0, 0, 0, time.UTC)},
		persistence.Event{ID: "e3", UID: "badge-1", Action: persistence.ActionIn, Timestamp: time.Date(2025, 3, 12, 8, 0, 0, 0, time.UTC)},
		persistence.Event{ID: "e4", UID: "badge-1", Action: persistence.ActionOut, Timestamp: time.Date(2025, 3, 12, 17, 0, 0, 0, time.UTC)},
	)

	from := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)
	earnings, err := svc.ComputeEarnings(context.Background(), "badge-1", from, to)
	if err != nil {
		t.Fatalf("ComputeEarnings failed: %v", err)
	}
	if earnings != 450000 {
		t.Fatalf("expected only the bounded day priced, got %d", earnings)
	}
}

func TestComputeDailyStats_BucketsByDay(t *testing.T) {
	t.Parallel()

	svc, _ := payrollFixture(t, 50000,
		persistence.Event{ID: "e1", UID: "badge-1", Action: persistence.ActionIn, Timestamp: time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC)},
		persistence.Event{ID: "e2", UID: "badge-1", Action: persistence.ActionOut, Timestamp: time.Date(2025, 3, 11, 17, 30, 0, 0, time.UTC)},
		persistence.Event{ID: "e3", UID: "badge-1", Action: persistence.ActionIn, Timestamp: time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)},
		persistence.Event{ID: "e4", UID: "badge-1", Action: persistence.ActionOut, Timestamp: time.Date(2025, 3, 12, 12, 0, 0, 0, time.UTC)},
	)

	stats, err := svc.ComputeDailyStats(context.Background(), "badge-1", time.Date(2025, 3, 11, 23, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ComputeDailyStats failed: %v", err)
	}
	if stats.HoursWorked != 8.5 {
		t.Fatalf("expected 8.5 hours, got %v", stats.HoursWorked)
	}
	if stats.Earnings != 425000 {
		t.Fatalf("expected 425000, got %d", stats.Earnings)
	}
}

func TestWeeklyHours_ReturnsSevenDaysOldestFirst(t *testing.T) {
	t.Parallel()

	svc, _ := payrollFixture(t, 50000,
		persistence.Event{ID: "e1", UID: "badge-1", Action: persistence.ActionIn, Timestamp: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)},
		persistence.Event{ID: "e2", UID: "badge-1", Action: persistence.ActionOut, Timestamp: time.Date(2025, 3, 10, 17, 0, 0, 0, time.UTC)},
	)

	series, err := svc.WeeklyHours(context.Background(), "badge-1")
	if err != nil {
		t.Fatalf("WeeklyHours failed: %v", err)
	}
	if len(series) != 7 {
		t.Fatalf("expected 7 entries, got %d", len(series))
	}
	first := time.Date(2025, 3, 6, 0, 0, 0, 0, time.UTC)
	if !series[0].Date.Equal(first) {
		t.Fatalf("expected series to start at %v, got %v", first, series[0].Date)
	}
	if series[4].HoursWorked != 8 {
		t.Fatalf("expected 8 hours on the worked day, got %v", series[4].HoursWorked)
	}
	if series[6].HoursWorked != 0 {
		t.Fatalf("expected 0 hours today, got %v", series[6].HoursWorked)
	}
}

func TestMonthlyBreakdown_ScopesToMonth(t *testing.T) {
	t.Parallel()

	svc, _ := payrollFixture(t, 50000,
		persistence.Event{ID: "e1", UID: "badge-1", Action: persistence.ActionIn, Timestamp: time.Date(2025, 2, 28, 9, 0, 0, 0, time.UTC)},
		persistence.Event{ID: "e2", UID: "badge-1", Action: persistence.ActionOut, Timestamp: time.Date(2025, 2, 28, 17, 0, 0, 0, time.UTC)},
		persistence.Event{ID: "e3", UID: "badge-1", Action: persistence.ActionIn, Timestamp: time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)},
		persistence.Event{ID: "e4", UID: "badge-1", Action: persistence.ActionOut, Timestamp: time.Date(2025, 3, 3, 17, 0, 0, 0, time.UTC)},
	)

	breakdown, err := svc.MonthlyBreakdown(context.Background(), "badge-1", 2025, time.March)
	if err != nil {
		t.Fatalf("MonthlyBreakdown failed: %v", err)
	}
	if len(breakdown.Sessions) != 1 {
		t.Fatalf("expected 1 session in March, got %d", len(breakdown.Sessions))
	}
	if breakdown.Hours != 8 {
		t.Fatalf("expected 8 hours, got %v", breakdown.Hours)
	}
}
