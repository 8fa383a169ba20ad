// Package payroll reconstructs worked sessions from the attendance log and
// prices them under the tiered multiplier schedule. It is a pure computation
// over an event slice; all storage access stays with the callers.
package payroll

import (
	"math"
	"time"

	"github.com/example/attendance-engine/internal/persistence"
)

// Multiplier tiers, first match wins, evaluated on the checkout timestamp.
const (
	MultiplierHoliday = 3.0
	MultiplierWeekend = 2.0
	MultiplierEvening = 1.5
	MultiplierBase    = 1.0
)

// EveningHour is the checkout hour from which the evening tier applies.
const EveningHour = 18

// holidays are fixed month/day pairs paid at the holiday tier.
var holidays = [...]struct {
	Month time.Month
	Day   int
}{
	{time.January, 1},
	{time.April, 30},
	{time.May, 1},
	{time.September, 2},
}

// Session is one reconstructed check-in/check-out pair with its price.
type Session struct {
	Start      time.Time
	End        time.Time
	Hours      float64
	Multiplier float64
	Amount     float64
}

// Breakdown aggregates the priced sessions of a replayed event sequence.
type Breakdown struct {
	Sessions []Session
	Hours    float64
	Amount   float64
}

// Replay walks events in ascending timestamp order and reconstructs worked
// sessions. An `in` overwrites any earlier unmatched `in`; an `out` without
// an open `in` contributes nothing; a trailing open `in` contributes nothing.
// Each closed session is priced entirely at the multiplier of its checkout
// timestamp. A session crossing a tier boundary is not split pro-rata; that
// is documented behavior, not an oversight.
func Replay(events []persistence.Event, hourlyRate int64) Breakdown {
	var breakdown Breakdown
	if hourlyRate < 0 {
		hourlyRate = 0
	}

	var openCheckin *time.Time
	for _, event := range events {
		switch event.Action {
		case persistence.ActionIn:
			start := event.Timestamp
			openCheckin = &start
		case persistence.ActionOut:
			if openCheckin == nil {
				continue
			}
			session := priceSession(*openCheckin, event.Timestamp, hourlyRate)
			breakdown.Sessions = append(breakdown.Sessions, session)
			breakdown.Hours += session.Hours
			breakdown.Amount += session.Amount
			openCheckin = nil
		}
	}

	return breakdown
}

func priceSession(start, end time.Time, hourlyRate int64) Session {
	hours := end.Sub(start).Hours()
	if hours < 0 {
		hours = 0
	}
	multiplier := MultiplierAt(end)
	return Session{
		Start:      start,
		End:        end,
		Hours:      hours,
		Multiplier: multiplier,
		Amount:     hours * float64(hourlyRate) * multiplier,
	}
}

// MultiplierAt evaluates the tier schedule for a checkout timestamp.
func MultiplierAt(checkout time.Time) float64 {
	switch {
	case IsHoliday(checkout):
		return MultiplierHoliday
	case checkout.Weekday() == time.Saturday || checkout.Weekday() == time.Sunday:
		return MultiplierWeekend
	case checkout.Hour() >= EveningHour:
		return MultiplierEvening
	default:
		return MultiplierBase
	}
}

// IsHoliday reports whether the timestamp falls on a fixed paid holiday.
func IsHoliday(t time.Time) bool {
	for _, holiday := range holidays {
		if t.Month() == holiday.Month && t.Day() == holiday.Day {
			return true
		}
	}
	return false
}

// FloorAmount truncates an accrued amount toward zero to whole currency units.
func FloorAmount(amount float64) int64 {
	return int64(math.Trunc(amount))
}

// RoundHours rounds worked hours to one decimal place for daily reporting.
func RoundHours(hours float64) float64 {
	return math.Round(hours*10) / 10
}
