package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/attendance-engine/internal/persistence"
)

// UserRepository implements persistence.UserRepository using SQLite.
type UserRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewUserRepository creates a new SQLite user repository.
func NewUserRepository(pool *ConnectionPool) *UserRepository {
	return &UserRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const userColumns = `uid, username, display_name, role, position, hourly_rate,
	allowed_rooms, status, ignore_limit, password_hash, created_at, updated_at`

// CreateUser inserts a new user into the database.
func (r *UserRepository) CreateUser(ctx context.Context, user persistence.User) error {
	if user.UID == "" || user.Username == "" {
		return persistence.ErrConstraintViolation
	}
	if user.Status == "" {
		user.Status = persistence.StatusCheckedOut
	}

	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.helper.Exec(ctx, query,
		user.UID,
		strings.TrimSpace(user.Username),
		user.DisplayName,
		user.Role,
		user.Position,
		user.HourlyRate,
		encodeRooms(user.AllowedRooms),
		string(user.Status),
		user.IgnoreLimit,
		user.PasswordHash,
		formatStoredTime(user.CreatedAt),
		formatStoredTime(user.UpdatedAt),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}

	return nil
}

// UpdateUser updates an existing user record.
func (r *UserRepository) UpdateUser(ctx context.Context, user persistence.User) error {
	if user.UID == "" {
		return persistence.ErrNotFound
	}

	query := `
		UPDATE users
		SET username = ?, display_name = ?, role = ?, position = ?, hourly_rate = ?,
			allowed_rooms = ?, status = ?, ignore_limit = ?, password_hash = ?, updated_at = ?
		WHERE uid = ?
	`

	result, err := r.helper.Exec(ctx, query,
		strings.TrimSpace(user.Username),
		user.DisplayName,
		user.Role,
		user.Position,
		user.HourlyRate,
		encodeRooms(user.AllowedRooms),
		string(user.Status),
		user.IgnoreLimit,
		user.PasswordHash,
		formatStoredTime(user.UpdatedAt),
		user.UID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}

	return r.requireRowsAffected(result)
}

// GetUserByUID retrieves a user by badge identifier.
func (r *UserRepository) GetUserByUID(ctx context.Context, uid string) (persistence.User, error) {
	if uid == "" {
		return persistence.User{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE uid = ?`, uid)
	return r.scanUser(row)
}

// GetUserByUsername retrieves a user by login identifier.
func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (persistence.User, error) {
	if username == "" {
		return persistence.User{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, strings.TrimSpace(username))
	return r.scanUser(row)
}

// ListUsers returns all users ordered by creation timestamp then UID.
func (r *UserRepository) ListUsers(ctx context.Context) ([]persistence.User, error) {
	rows, err := r.helper.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at ASC, uid ASC`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var users []persistence.User
	for rows.Next() {
		user, err := r.scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return users, nil
}

// DeleteUser removes a user and, via cascade, its events and sessions.
func (r *UserRepository) DeleteUser(ctx context.Context, uid string) error {
	if uid == "" {
		return persistence.ErrNotFound
	}

	result, err := r.helper.Exec(ctx, `DELETE FROM users WHERE uid = ?`, uid)
	if err != nil {
		return r.mapper.MapError(err)
	}

	return r.requireRowsAffected(result)
}

// SetStatus updates only the cached status column for a user. at is the
// simulated time of the mutation; this layer never reads the wall clock.
func (r *UserRepository) SetStatus(ctx context.Context, uid string, status persistence.Status, at time.Time) error {
	result, err := r.helper.Exec(ctx,
		`UPDATE users SET status = ?, updated_at = ? WHERE uid = ?`,
		string(status), formatStoredTime(at), uid)
	if err != nil {
		return r.mapper.MapError(err)
	}

	return r.requireRowsAffected(result)
}

// SetStatusAll force-sets every user's cached status. Used by the emergency
// reset and the auto-checkout sweep; no events are written here.
func (r *UserRepository) SetStatusAll(ctx context.Context, status persistence.Status, at time.Time) error {
	_, err := r.helper.Exec(ctx,
		`UPDATE users SET status = ?, updated_at = ?`,
		string(status), formatStoredTime(at))
	if err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

// SetIgnoreLimit flips the one-shot manual unlock flag for a user.
func (r *UserRepository) SetIgnoreLimit(ctx context.Context, uid string, ignore bool, at time.Time) error {
	result, err := r.helper.Exec(ctx,
		`UPDATE users SET ignore_limit = ?, updated_at = ? WHERE uid = ?`,
		ignore, formatStoredTime(at), uid)
	if err != nil {
		return r.mapper.MapError(err)
	}

	return r.requireRowsAffected(result)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *UserRepository) scanUser(row rowScanner) (persistence.User, error) {
	var user persistence.User
	var rooms, status, createdAt, updatedAt string

	err := row.Scan(
		&user.UID,
		&user.Username,
		&user.DisplayName,
		&user.Role,
		&user.Position,
		&user.HourlyRate,
		&rooms,
		&status,
		&user.IgnoreLimit,
		&user.PasswordHash,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.User{}, persistence.ErrNotFound
		}
		return persistence.User{}, r.mapper.MapError(err)
	}

	user.AllowedRooms = decodeRooms(rooms)
	user.Status = persistence.Status(status)

	if user.CreatedAt, err = parseStoredTime(createdAt); err != nil {
		return persistence.User{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if user.UpdatedAt, err = parseStoredTime(updatedAt); err != nil {
		return persistence.User{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return user, nil
}

func (r *UserRepository) requireRowsAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// Room grants are stored as a comma-separated list; room identifiers are
// short machine names and never contain commas.
func encodeRooms(rooms []string) string {
	cleaned := make([]string, 0, len(rooms))
	for _, room := range rooms {
		if trimmed := strings.TrimSpace(room); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return strings.Join(cleaned, ",")
}

func decodeRooms(encoded string) []string {
	if strings.TrimSpace(encoded) == "" {
		return nil
	}
	parts := strings.Split(encoded, ",")
	rooms := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			rooms = append(rooms, trimmed)
		}
	}
	return rooms
}
