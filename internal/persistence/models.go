package persistence

import "time"

// Status is the cached projection of the latest attendance event for a user.
type Status string

const (
	StatusCheckedIn  Status = "checked_in"
	StatusCheckedOut Status = "checked_out"
)

// Action identifies the direction of an attendance event.
type Action string

const (
	ActionIn  Action = "in"
	ActionOut Action = "out"
)

// RoomAll is the sentinel room grant allowing access to every room.
const RoomAll = "all"

// User represents an employee record as stored.
//
// Status must always agree with the latest event in the log for the user;
// both are mutated by the same attendance operation, never lazily recomputed.
type User struct {
	UID          string
	Username     string
	DisplayName  string
	Role         string
	Position     string
	HourlyRate   int64
	AllowedRooms []string
	Status       Status
	IgnoreLimit  bool
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Event is an immutable attendance fact. Timestamps carry simulated time,
// not wall-clock time.
type Event struct {
	ID        string
	UID       string
	Action    Action
	Timestamp time.Time
}

// EventFilter narrows event queries to a half-open interval [From, To).
// Nil bounds are unbounded.
type EventFilter struct {
	From *time.Time
	To   *time.Time
}

// SystemState is the process-wide singleton row: the simulated-clock offset,
// the emergency flag, and the change-notification token.
type SystemState struct {
	TimeOffsetSeconds int64
	EmergencyMode     bool
	LastUpdated       time.Time
}

// Session represents an authentication session persisted for a user.
type Session struct {
	ID        string
	UID       string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}
