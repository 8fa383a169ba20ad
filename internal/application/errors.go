package application

import "errors"

var (
	// ErrUnauthorized is returned when the acting principal lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a unique attribute collides with an existing record.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrInvalidCredentials is returned when authentication input does not match a user.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrSessionExpired is returned when a session token is past its expiry.
	ErrSessionExpired = errors.New("application: session expired")
	// ErrSessionRevoked is returned when a session token was explicitly revoked.
	ErrSessionRevoked = errors.New("application: session revoked")
)

// Badge policy rejections. These are expected outcomes of policy evaluation,
// not failures; callers must be able to distinguish them from storage errors.
var (
	// ErrUnknownBadge is returned when a presented UID resolves to no user.
	ErrUnknownBadge = errors.New("application: unknown badge")
	// ErrRoomNotAllowed is returned when the user may not access the scanned room.
	ErrRoomNotAllowed = errors.New("application: room not allowed")
	// ErrCurfewLocked is returned when a non-admin checks in during the curfew window.
	ErrCurfewLocked = errors.New("application: curfew locked")
	// ErrAlreadyCompletedToday is returned when the one-cycle-per-day rule blocks a check-in.
	ErrAlreadyCompletedToday = errors.New("application: attendance cycle already completed today")
	// ErrUnknownUser is returned by administrative operations when the uid does not resolve.
	ErrUnknownUser = errors.New("application: unknown user")
)

// IsRejection reports whether the error is a badge policy rejection. The wire
// boundary collapses these to a bare failure flag; internal callers and logs
// keep the distinction.
func IsRejection(err error) bool {
	switch {
	case errors.Is(err, ErrUnknownBadge),
		errors.Is(err, ErrRoomNotAllowed),
		errors.Is(err, ErrCurfewLocked),
		errors.Is(err, ErrAlreadyCompletedToday):
		return true
	}
	return false
}

// ErrorKind returns a stable label for an error, for log fields and metrics.
func ErrorKind(err error) string {
	var validation *ValidationError
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrUnknownBadge):
		return "unknown_badge"
	case errors.Is(err, ErrRoomNotAllowed):
		return "room_not_allowed"
	case errors.Is(err, ErrCurfewLocked):
		return "curfew_locked"
	case errors.Is(err, ErrAlreadyCompletedToday):
		return "already_completed_today"
	case errors.Is(err, ErrUnknownUser):
		return "unknown_user"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrSessionExpired):
		return "session_expired"
	case errors.Is(err, ErrSessionRevoked):
		return "session_revoked"
	case errors.As(err, &validation):
		return "validation"
	}
	return "internal"
}

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}
