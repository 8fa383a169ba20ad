package application

import (
	"time"

	"github.com/example/attendance-engine/internal/persistence"
)

// Role values carried on user records.
const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UID      string
	Username string
	IsAdmin  bool
}

// BadgeResult describes an accepted badge transition.
type BadgeResult struct {
	UID       string
	Action    persistence.Action
	Status    persistence.Status
	Timestamp time.Time
}

// DailyStats aggregates one day of reconstructed work for a user.
type DailyStats struct {
	Date        time.Time
	HoursWorked float64
	Earnings    int64
}

// SystemSnapshot is the state observers poll: the simulated-clock offset,
// the emergency flag, and the monotonically increasing change token.
type SystemSnapshot struct {
	TimeOffset    time.Duration
	EmergencyMode bool
	LastUpdated   time.Time
}

// UserInput captures caller provided user attributes for create and update.
type UserInput struct {
	Username     string
	Password     string
	DisplayName  string
	UID          string
	Role         string
	Position     string
	HourlyRate   int64
	AllowedRooms []string
}

// CreateUserParams wraps the data required to create a user.
type CreateUserParams struct {
	Principal Principal
	Input     UserInput
}

// UpdateUserParams wraps the data required to update a user.
type UpdateUserParams struct {
	Principal Principal
	UID       string
	Input     UserInput
}

// AuthenticateParams captures the data required to authenticate a user.
type AuthenticateParams struct {
	Username string
	Password string
}

// AuthenticateResult captures the outcome of a successful authentication attempt.
type AuthenticateResult struct {
	User    persistence.User
	Session persistence.Session
}

// RefreshSessionParams captures the data required to rotate a session token.
type RefreshSessionParams struct {
	Token string
}

// RefreshSessionResult captures the outcome of rotating a session token.
type RefreshSessionResult struct {
	Session persistence.Session
}
