package persistence

import "context"
import "time"

// UserRepository exposes CRUD and status mutations for users.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	UpdateUser(ctx context.Context, user User) error
	GetUserByUID(ctx context.Context, uid string) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	DeleteUser(ctx context.Context, uid string) error
	SetStatus(ctx context.Context, uid string, status Status, at time.Time) error
	SetStatusAll(ctx context.Context, status Status, at time.Time) error
	SetIgnoreLimit(ctx context.Context, uid string, ignore bool, at time.Time) error
}

// EventRepository is the append-only attendance log.
type EventRepository interface {
	AppendEvent(ctx context.Context, event Event) error
	ListEventsForUser(ctx context.Context, uid string, filter EventFilter) ([]Event, error)
	CountEventsForUser(ctx context.Context, uid string) (int, error)
	DeleteEventsForUser(ctx context.Context, uid string, filter EventFilter) error
}

// SystemStateRepository loads and stores the singleton system state row.
type SystemStateRepository interface {
	LoadSystemState(ctx context.Context) (SystemState, error)
	SaveSystemState(ctx context.Context, state SystemState) error
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	UpdateSession(ctx context.Context, session Session) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}
