// Package testfixtures provides deterministic clocks, identifier generators,
// and record builders shared by the attendance test suites.
package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/attendance-engine/internal/persistence"
)

var (
	userCounter    uint64
	eventCounter   uint64
	sessionCounter uint64
)

var referenceTime = time.Date(2025, time.March, 12, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
// It is a plain Wednesday outside the curfew window and off every holiday.
func ReferenceTime() time.Time {
	return referenceTime
}

// UserOption configures a generated user fixture.
type UserOption func(*persistence.User)

// NewUser returns a deterministic user record with optional overrides.
func NewUser(opts ...UserOption) persistence.User {
	idx := atomic.AddUint64(&userCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	user := persistence.User{
		UID:          fmt.Sprintf("badge-%03d", idx),
		Username:     fmt.Sprintf("user%03d", idx),
		DisplayName:  fmt.Sprintf("User %03d", idx),
		Role:         "staff",
		Position:     "staff",
		HourlyRate:   50000,
		AllowedRooms: []string{persistence.RoomAll},
		Status:       persistence.StatusCheckedOut,
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	for _, opt := range opts {
		opt(&user)
	}
	return user
}

// WithUID overrides the generated badge uid.
func WithUID(uid string) UserOption {
	return func(u *persistence.User) { u.UID = uid }
}

// WithUsername overrides the generated username.
func WithUsername(username string) UserOption {
	return func(u *persistence.User) { u.Username = username }
}

// WithRole overrides the generated role.
func WithRole(role string) UserOption {
	return func(u *persistence.User) { u.Role = role }
}

// WithHourlyRate overrides the generated hourly rate.
func WithHourlyRate(rate int64) UserOption {
	return func(u *persistence.User) { u.HourlyRate = rate }
}

// WithAllowedRooms overrides the generated room grants.
func WithAllowedRooms(rooms ...string) UserOption {
	return func(u *persistence.User) { u.AllowedRooms = rooms }
}

// WithStatus overrides the cached presence status.
func WithStatus(status persistence.Status) UserOption {
	return func(u *persistence.User) { u.Status = status }
}

// EventOption configures a generated event fixture.
type EventOption func(*persistence.Event)

// NewEvent returns a deterministic attendance event for the given user.
func NewEvent(uid string, action persistence.Action, opts ...EventOption) persistence.Event {
	idx := atomic.AddUint64(&eventCounter, 1)
	event := persistence.Event{
		ID:        fmt.Sprintf("event-%03d", idx),
		UID:       uid,
		Action:    action,
		Timestamp: referenceTime.Add(time.Duration(idx) * time.Minute),
	}
	for _, opt := range opts {
		opt(&event)
	}
	return event
}

// At overrides the event timestamp.
func At(ts time.Time) EventOption {
	return func(e *persistence.Event) { e.Timestamp = ts }
}

// NewSession returns a deterministic session for the given user, valid for
// 24 hours from the reference time.
func NewSession(uid string) persistence.Session {
	idx := atomic.AddUint64(&sessionCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Second)
	return persistence.Session{
		ID:        fmt.Sprintf("session-%03d", idx),
		UID:       uid,
		Token:     fmt.Sprintf("token-%03d", idx),
		ExpiresAt: created.Add(24 * time.Hour),
		CreatedAt: created,
		UpdatedAt: created,
	}
}
