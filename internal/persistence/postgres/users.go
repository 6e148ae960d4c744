package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/richi-sixt/calisthenics-progression/internal/domain"
)

// UserRepo persists profile rows.
type UserRepo struct {
	db *DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *DB) *UserRepo {
	return &UserRepo{db: db}
}

// UpsertSeen creates the profile row on first contact and bumps last_seen on
// every later one.
func (r *UserRepo) UpsertSeen(ctx context.Context, id, username string, seenAt time.Time) error {
	const stmt = `INSERT INTO users (id, username, last_seen)
        VALUES ($1, $2, $3)
        ON CONFLICT (id) DO UPDATE SET username = EXCLUDED.username, last_seen = EXCLUDED.last_seen`

	_, err := r.db.Pool.Exec(ctx, stmt, id, username, seenAt)
	if isUniqueViolation(err) {
		return domain.ErrConflict
	}
	return err
}

// GetByUsername resolves a profile row, or nil when absent.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	const query = `SELECT id, username, last_seen, COALESCE(last_message_read_time, 'epoch'::timestamptz), last_notification_ts, created_at
        FROM users WHERE username = $1`

	row := r.db.Pool.QueryRow(ctx, query, username)
	var user domain.User
	if err := row.Scan(&user.ID, &user.Username, &user.LastSeen, &user.LastMessageReadTime, &user.LastNotificationTS, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}
