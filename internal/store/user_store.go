package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/task-assistant/internal/model"
)

const userColumns = `id, name, address, channel, timezone, active, is_admin, last_digest_on, created_at`

// CreateUser inserts a new user. Generates a UUID if ID is empty.
func (s *SQLiteStore) CreateUser(ctx context.Context, user model.User) (*model.User, error) {
	if strings.TrimSpace(user.Address) == "" {
		return nil, fmt.Errorf("user address must not be empty")
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.Name == "" {
		user.Name = model.DefaultUserName
	}
	if user.Channel == "" {
		user.Channel = model.ChannelWhatsApp
	}
	if user.Timezone == "" {
		user.Timezone = "America/Mexico_City"
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	user.CreatedAt = utc(user.CreatedAt)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Name, user.Address, string(user.Channel), user.Timezone,
		boolToInt(user.Active), boolToInt(user.IsAdmin), user.LastDigestOn,
		user.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating user %s: %w", user.Address, err)
	}
	return &user, nil
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	row := s.db.QueryRowxContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting user %s: %w", id, err)
	}
	return &u, nil
}

// GetUserByAddress retrieves a user by channel address.
func (s *SQLiteStore) GetUserByAddress(ctx context.Context, address string) (*model.User, error) {
	row := s.db.QueryRowxContext(ctx, "SELECT "+userColumns+" FROM users WHERE address = ?", address)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", address, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting user %s: %w", address, err)
	}
	return &u, nil
}

// ListActiveUsers returns every active user ordered by creation.
func (s *SQLiteStore) ListActiveUsers(ctx context.Context) ([]model.User, error) {
	return s.queryUsers(ctx, "SELECT "+userColumns+" FROM users WHERE active = 1 ORDER BY created_at")
}

// ListAdmins returns the active users flagged as administrators.
func (s *SQLiteStore) ListAdmins(ctx context.Context) ([]model.User, error) {
	return s.queryUsers(ctx,
		"SELECT "+userColumns+" FROM users WHERE active = 1 AND is_admin = 1 ORDER BY created_at")
}

// ClaimDigest records that the user's digest for localDate is being sent.
// It reports false when the day was already claimed.
func (s *SQLiteStore) ClaimDigest(ctx context.Context, userID, localDate string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		"UPDATE users SET last_digest_on = ? WHERE id = ? AND last_digest_on <> ?",
		localDate, userID, localDate,
	)
	if err != nil {
		return false, fmt.Errorf("claiming digest for user %s: %w", userID, err)
	}
	rows, _ := result.RowsAffected()
	return rows == 1, nil
}

func (s *SQLiteStore) queryUsers(ctx context.Context, query string, args ...interface{}) ([]model.User, error) {
	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user row: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// scanUser scans a user row selected with userColumns.
func scanUser(row rowScanner) (model.User, error) {
	var (
		u       model.User
		channel string
		active  int
		isAdmin int
	)
	err := row.Scan(
		&u.ID, &u.Name, &u.Address, &channel, &u.Timezone,
		&active, &isAdmin, &u.LastDigestOn, &u.CreatedAt,
	)
	if err != nil {
		return model.User{}, err
	}
	u.Channel = model.Channel(channel)
	u.Active = active != 0
	u.IsAdmin = isAdmin != 0
	return u, nil
}
