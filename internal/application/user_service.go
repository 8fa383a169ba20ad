package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/attendance-engine/internal/persistence"
)

// UserStore captures the persistence operations needed by the user service.
type UserStore interface {
	CreateUser(ctx context.Context, user persistence.User) error
	UpdateUser(ctx context.Context, user persistence.User) error
	GetUserByUID(ctx context.Context, uid string) (persistence.User, error)
	ListUsers(ctx context.Context) ([]persistence.User, error)
	DeleteUser(ctx context.Context, uid string) error
}

// PasswordHasher produces a stored hash from a plaintext password.
type PasswordHasher func(password string) (string, error)

// UserService orchestrates validation, authorization, and persistence for
// user records. All operations require an administrator principal.
type UserService struct {
	users        UserStore
	notifier     ChangeNotifier
	hashPassword PasswordHasher
	now          func() time.Time
	logger       *slog.Logger
}

// NewUserService wires dependencies for the user service.
func NewUserService(users UserStore, notifier ChangeNotifier, hashPassword PasswordHasher, now func() time.Time, logger *slog.Logger) *UserService {
	if hashPassword == nil {
		hashPassword = func(password string) (string, error) {
			return CreatePasswordHash(password, DefaultArgon2idParams)
		}
	}
	if now == nil {
		now = time.Now
	}
	return &UserService{
		users:        users,
		notifier:     notifier,
		hashPassword: hashPassword,
		now:          now,
		logger:       defaultLogger(logger),
	}
}

func (s *UserService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "UserService", operation, attrs...)
}

// CreateUser validates input and persists a new user for administrators.
// A password is mandatory on create; the plaintext never leaves this method.
func (s *UserService) CreateUser(ctx context.Context, params CreateUserParams) (persistence.User, error) {
	if s == nil {
		return persistence.User{}, fmt.Errorf("UserService is nil")
	}
	if !params.Principal.IsAdmin {
		return persistence.User{}, ErrUnauthorized
	}
	if s.users == nil {
		return persistence.User{}, fmt.Errorf("user store not configured")
	}

	normalized := normalizeUserInput(params.Input)
	vErr := validateUserInput(normalized, true)
	if vErr.HasErrors() {
		return persistence.User{}, vErr
	}

	hash, err := s.hashPassword(normalized.Password)
	if err != nil {
		return persistence.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	user := persistence.User{
		UID:          normalized.UID,
		Username:     normalized.Username,
		DisplayName:  normalized.DisplayName,
		Role:         normalized.Role,
		Position:     normalized.Position,
		HourlyRate:   normalized.HourlyRate,
		AllowedRooms: normalized.AllowedRooms,
		Status:       persistence.StatusCheckedOut,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, persistence.ErrDuplicate) {
			return persistence.User{}, ErrAlreadyExists
		}
		return persistence.User{}, err
	}
	if err := s.bump(ctx); err != nil {
		return persistence.User{}, err
	}

	s.loggerWith(ctx, "CreateUser", "uid", user.UID, "username", user.Username).InfoContext(ctx, "user created")
	return user, nil
}

// UpdateUser validates input and updates an existing user for
// administrators. An empty password keeps the stored hash.
func (s *UserService) UpdateUser(ctx context.Context, params UpdateUserParams) (persistence.User, error) {
	if s == nil {
		return persistence.User{}, fmt.Errorf("UserService is nil")
	}
	if !params.Principal.IsAdmin {
		return persistence.User{}, ErrUnauthorized
	}
	if s.users == nil {
		return persistence.User{}, fmt.Errorf("user store not configured")
	}

	existing, err := s.users.GetUserByUID(ctx, params.UID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.User{}, ErrNotFound
		}
		return persistence.User{}, err
	}

	normalized := normalizeUserInput(params.Input)
	normalized.UID = existing.UID
	vErr := validateUserInput(normalized, false)
	if vErr.HasErrors() {
		return persistence.User{}, vErr
	}

	updated := existing
	updated.Username = normalized.Username
	updated.DisplayName = normalized.DisplayName
	updated.Role = normalized.Role
	updated.Position = normalized.Position
	updated.HourlyRate = normalized.HourlyRate
	updated.AllowedRooms = normalized.AllowedRooms
	updated.UpdatedAt = s.now()

	if normalized.Password != "" {
		hash, err := s.hashPassword(normalized.Password)
		if err != nil {
			return persistence.User{}, fmt.Errorf("failed to hash password: %w", err)
		}
		updated.PasswordHash = hash
	}

	if err := s.users.UpdateUser(ctx, updated); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.User{}, ErrNotFound
		}
		if errors.Is(err, persistence.ErrDuplicate) {
			return persistence.User{}, ErrAlreadyExists
		}
		return persistence.User{}, err
	}
	if err := s.bump(ctx); err != nil {
		return persistence.User{}, err
	}

	s.loggerWith(ctx, "UpdateUser", "uid", updated.UID).InfoContext(ctx, "user updated")
	return updated, nil
}

// DeleteUser removes a user when requested by an administrator.
func (s *UserService) DeleteUser(ctx context.Context, principal Principal, uid string) error {
	if s == nil {
		return fmt.Errorf("UserService is nil")
	}
	if !principal.IsAdmin {
		return ErrUnauthorized
	}
	if s.users == nil {
		return fmt.Errorf("user store not configured")
	}

	if err := s.users.DeleteUser(ctx, uid); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if err := s.bump(ctx); err != nil {
		return err
	}

	s.loggerWith(ctx, "DeleteUser", "uid", uid).InfoContext(ctx, "user deleted")
	return nil
}

// GetUser returns a single user for administrators.
func (s *UserService) GetUser(ctx context.Context, principal Principal, uid string) (persistence.User, error) {
	if s == nil {
		return persistence.User{}, fmt.Errorf("UserService is nil")
	}
	if !principal.IsAdmin {
		return persistence.User{}, ErrUnauthorized
	}

	user, err := s.users.GetUserByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.User{}, ErrNotFound
		}
		return persistence.User{}, err
	}
	return user, nil
}

// ListUsers returns all users for administrators, ordered by display name.
func (s *UserService) ListUsers(ctx context.Context, principal Principal) ([]persistence.User, error) {
	if s == nil {
		return nil, fmt.Errorf("UserService is nil")
	}
	if !principal.IsAdmin {
		return nil, ErrUnauthorized
	}
	if s.users == nil {
		return nil, nil
	}

	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]persistence.User, len(users))
	copy(out, users)

	sort.Slice(out, func(i, j int) bool {
		if strings.EqualFold(out[i].DisplayName, out[j].DisplayName) {
			return out[i].UID < out[j].UID
		}
		return strings.ToLower(out[i].DisplayName) < strings.ToLower(out[j].DisplayName)
	})

	return out, nil
}

func (s *UserService) bump(ctx context.Context) error {
	if s.notifier == nil {
		return nil
	}
	return s.notifier.MarkUpdated(ctx)
}

func normalizeUserInput(input UserInput) UserInput {
	rooms := make([]string, 0, len(input.AllowedRooms))
	seen := make(map[string]struct{}, len(input.AllowedRooms))
	for _, room := range input.AllowedRooms {
		room = strings.TrimSpace(room)
		if room == "" {
			continue
		}
		if _, ok := seen[room]; ok {
			continue
		}
		seen[room] = struct{}{}
		rooms = append(rooms, room)
	}

	role := strings.TrimSpace(strings.ToLower(input.Role))
	if role == "" {
		role = RoleStaff
	}

	return UserInput{
		Username:     strings.TrimSpace(strings.ToLower(input.Username)),
		Password:     input.Password,
		DisplayName:  strings.TrimSpace(input.DisplayName),
		UID:          strings.TrimSpace(input.UID),
		Role:         role,
		Position:     strings.TrimSpace(input.Position),
		HourlyRate:   input.HourlyRate,
		AllowedRooms: rooms,
	}
}

func validateUserInput(input UserInput, requirePassword bool) *ValidationError {
	vErr := &ValidationError{}

	if input.Username == "" {
		vErr.add("username", "username is required")
	}
	if input.DisplayName == "" {
		vErr.add("display_name", "display name is required")
	}
	if input.UID == "" {
		vErr.add("uid", "badge uid is required")
	}
	if requirePassword && input.Password == "" {
		vErr.add("password", "password is required")
	}
	if input.Role != RoleAdmin && input.Role != RoleStaff {
		vErr.add("role", "role must be admin or staff")
	}
	if input.HourlyRate < 0 {
		vErr.add("hourly_rate", "hourly rate must not be negative")
	}
	if len(input.AllowedRooms) == 0 {
		vErr.add("allowed_rooms", "at least one room is required")
	}

	return vErr
}
