package payroll

import (
	"testing"
	"time"

	"github.com/example/attendance-engine/internal/persistence"
)

func event(action persistence.Action, at time.Time) persistence.Event {
	return persistence.Event{ID: "evt", UID: "card_001", Action: action, Timestamp: at}
}

func TestMultiplierAt(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		checkout time.Time
		want     float64
	}{
		{"weekday afternoon", time.Date(2024, time.March, 11, 17, 0, 0, 0, time.UTC), 1.0},
		{"weekday evening", time.Date(2024, time.March, 11, 19, 0, 0, 0, time.UTC), 1.5},
		{"evening boundary hour", time.Date(2024, time.March, 11, 18, 0, 0, 0, time.UTC), 1.5},
		{"saturday", time.Date(2024, time.March, 16, 17, 0, 0, 0, time.UTC), 2.0},
		{"sunday evening stays weekend", time.Date(2024, time.March, 17, 21, 0, 0, 0, time.UTC), 2.0},
		{"new year", time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC), 3.0},
		{"reunification day", time.Date(2024, time.April, 30, 9, 0, 0, 0, time.UTC), 3.0},
		{"labor day", time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC), 3.0},
		{"national day", time.Date(2024, time.September, 2, 9, 0, 0, 0, time.UTC), 3.0},
		{"holiday on a weekend stays holiday", time.Date(2023, time.April, 30, 9, 0, 0, 0, time.UTC), 3.0},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := MultiplierAt(tc.checkout); got != tc.want {
				t.Fatalf("MultiplierAt(%v) = %v, want %v", tc.checkout, got, tc.want)
			}
		})
	}
}

func TestReplay_PricesSessionsAtCheckoutMultiplier(t *testing.T) {
	t.Parallel()

	// 2024-03-11 is a Monday.
	monday := time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC)
	saturday := time.Date(2024, time.March, 16, 0, 0, 0, 0, time.UTC)
	newYear := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name       string
		events     []persistence.Event
		rate       int64
		wantHours  float64
		wantAmount float64
	}{
		{
			name: "weekday session before evening",
			events: []persistence.Event{
				event(persistence.ActionIn, monday.Add(8*time.Hour)),
				event(persistence.ActionOut, monday.Add(17*time.Hour)),
			},
			rate:       50000,
			wantHours:  9,
			wantAmount: 450000,
		},
		{
			name: "weekday session ending in the evening",
			events: []persistence.Event{
				event(persistence.ActionIn, monday.Add(9*time.Hour)),
				event(persistence.ActionOut, monday.Add(19*time.Hour)),
			},
			rate:       50000,
			wantHours:  10,
			wantAmount: 750000,
		},
		{
			name: "saturday session",
			events: []persistence.Event{
				event(persistence.ActionIn, saturday.Add(8*time.Hour)),
				event(persistence.ActionOut, saturday.Add(17*time.Hour)),
			},
			rate:       50000,
			wantHours:  9,
			wantAmount: 900000,
		},
		{
			name: "holiday session",
			events: []persistence.Event{
				event(persistence.ActionIn, newYear.Add(8*time.Hour)),
				event(persistence.ActionOut, newYear.Add(17*time.Hour)),
			},
			rate:       50000,
			wantHours:  9,
			wantAmount: 1350000,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			breakdown := Replay(tc.events, tc.rate)
			if breakdown.Hours != tc.wantHours {
				t.Fatalf("hours = %v, want %v", breakdown.Hours, tc.wantHours)
			}
			if breakdown.Amount != tc.wantAmount {
				t.Fatalf("amount = %v, want %v", breakdown.Amount, tc.wantAmount)
			}
		})
	}
}

func TestReplay_UnmatchedEvents(t *testing.T) {
	t.Parallel()

	monday := time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC)

	t.Run("trailing open checkin contributes nothing", func(t *testing.T) {
		t.Parallel()
		breakdown := Replay([]persistence.Event{
			event(persistence.ActionIn, monday.Add(8*time.Hour)),
		}, 50000)
		if breakdown.Hours != 0 || breakdown.Amount != 0 {
			t.Fatalf("expected empty breakdown, got hours=%v amount=%v", breakdown.Hours, breakdown.Amount)
		}
	})

	t.Run("orphan checkout contributes nothing", func(t *testing.T) {
		t.Parallel()
		breakdown := Replay([]persistence.Event{
			event(persistence.ActionOut, monday.Add(17*time.Hour)),
			event(persistence.ActionIn, monday.Add(18*time.Hour)),
			event(persistence.ActionOut, monday.Add(20*time.Hour)),
		}, 50000)
		if len(breakdown.Sessions) != 1 {
			t.Fatalf("expected one session, got %d", len(breakdown.Sessions))
		}
		if breakdown.Hours != 2 {
			t.Fatalf("hours = %v, want 2", breakdown.Hours)
		}
	})

	t.Run("later checkin overwrites unmatched one", func(t *testing.T) {
		t.Parallel()
		breakdown := Replay([]persistence.Event{
			event(persistence.ActionIn, monday.Add(7*time.Hour)),
			event(persistence.ActionIn, monday.Add(9*time.Hour)),
			event(persistence.ActionOut, monday.Add(17*time.Hour)),
		}, 50000)
		if len(breakdown.Sessions) != 1 {
			t.Fatalf("expected one session, got %d", len(breakdown.Sessions))
		}
		if breakdown.Sessions[0].Hours != 8 {
			t.Fatalf("hours = %v, want 8 (from the later checkin)", breakdown.Sessions[0].Hours)
		}
	})
}

func TestReplay_IsDeterministic(t *testing.T) {
	t.Parallel()

	monday := time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC)
	events := []persistence.Event{
		event(persistence.ActionIn, monday.Add(8*time.Hour)),
		event(persistence.ActionOut, monday.Add(12*time.Hour)),
		event(persistence.ActionIn, monday.Add(13*time.Hour)),
		event(persistence.ActionOut, monday.Add(17*time.Hour)),
	}

	first := Replay(events, 55000)
	second := Replay(events, 55000)
	if first.Amount != second.Amount || first.Hours != second.Hours {
		t.Fatalf("replay not idempotent: %+v vs %+v", first, second)
	}
}

func TestFloorAmount(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   float64
		want int64
	}{
		{450000.0, 450000},
		{450000.9, 450000},
		{0.4, 0},
		{-1.6, -1},
	}

	for _, tc := range cases {
		if got := FloorAmount(tc.in); got != tc.want {
			t.Fatalf("FloorAmount(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestRoundHours(t *testing.T) {
	t.Parallel()

	if got := RoundHours(7.25); got != 7.3 {
		t.Fatalf("RoundHours(7.25) = %v, want 7.3", got)
	}
	if got := RoundHours(8.04); got != 8.0 {
		t.Fatalf("RoundHours(8.04) = %v, want 8.0", got)
	}
}
