package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"malawiexplorer/analytics/database"
	"malawiexplorer/analytics/logging"
	"malawiexplorer/analytics/models"

	"github.com/lib/pq"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
)

// UserStore holds the admins allowed to read the dashboard.
type UserStore struct {
	db *database.DBClient
}

func NewUserStore(db *database.DBClient) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) CreateUser(ctx context.Context, email string, hashedPassword []byte) (*models.User, error) {
	d := s.db.Dialect
	now := time.Now().UTC().Truncate(time.Microsecond)
	query := d.Rebind(`
		INSERT INTO users (email, hashed_password, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		RETURNING id, email, created_at, updated_at`)

	var (
		user             models.User
		created, updated database.Time
	)
	err := s.db.DB.QueryRowContext(ctx, query, email, hashedPassword, d.TimeArg(now), d.TimeArg(now)).
		Scan(&user.ID, &user.Email, &created, &updated)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("email %q: %w", email, ErrUserExists)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	user.CreatedAt, user.UpdatedAt = created.Time, updated.Time

	logging.Info().Int("user_id", user.ID).Msg("dashboard user created")
	return &user, nil
}

func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := s.db.Dialect.Rebind(`
		SELECT id, email, hashed_password, created_at, updated_at
		FROM users
		WHERE email = ?`)

	var (
		user             models.User
		created, updated database.Time
	)
	err := s.db.DB.QueryRowContext(ctx, query, email).Scan(
		&user.ID, &user.Email, &user.HashedPassword, &created, &updated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("email %q: %w", email, ErrUserNotFound)
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	user.CreatedAt, user.UpdatedAt = created.Time, updated.Time
	return &user, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	// modernc.org/sqlite reports constraint failures by message only.
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
