package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/richi-sixt/calisthenics-progression/internal/domain"
	"github.com/richi-sixt/calisthenics-progression/internal/observability"
)

// NotificationRepo persists the per-user notification feed.
type NotificationRepo struct {
	db *DB
}

// NewNotificationRepo constructs a NotificationRepo.
func NewNotificationRepo(db *DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

// appendNotification writes one feed entry inside the caller's transaction.
// The user row is updated first: GREATEST(last+1, now) under the row lock
// hands out a timestamp strictly above everything already stored for the
// user, no matter how many transactions race on the same feed.
func appendNotification(ctx context.Context, tx pgx.Tx, userID, name string, payload json.RawMessage) (*domain.Notification, error) {
	const bumpStmt = `UPDATE users SET last_notification_ts = GREATEST(last_notification_ts + 1, $2)
        WHERE id = $1 RETURNING last_notification_ts`

	var ts int64
	if err := tx.QueryRow(ctx, bumpStmt, userID, time.Now().UnixMicro()).Scan(&ts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	notification := domain.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		Payload:   payload,
		Timestamp: ts,
	}

	const insertStmt = `INSERT INTO notifications (id, user_id, name, payload, ts) VALUES ($1,$2,$3,$4,$5)`
	if _, err := tx.Exec(ctx, insertStmt, notification.ID, notification.UserID, notification.Name, []byte(notification.Payload), notification.Timestamp); err != nil {
		return nil, err
	}

	observability.RecordNotificationAppended(name)
	return &notification, nil
}

// Append stores one notification in its own transaction.
func (r *NotificationRepo) Append(ctx context.Context, userID, name string, payload json.RawMessage) (*domain.Notification, error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	notification, err := appendNotification(ctx, tx, userID, name, payload)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return notification, nil
}

// ListSince returns the user's notifications newer than the cursor, oldest
// first.
func (r *NotificationRepo) ListSince(ctx context.Context, userID string, since int64) ([]domain.Notification, error) {
	const query = `SELECT id, user_id, name, payload, ts
        FROM notifications
        WHERE user_id = $1 AND ts > $2
        ORDER BY ts ASC`

	rows, err := r.db.Pool.Query(ctx, query, userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := make([]domain.Notification, 0)
	for rows.Next() {
		var n domain.Notification
		var payload []byte
		if err := rows.Scan(&n.ID, &n.UserID, &n.Name, &payload, &n.Timestamp); err != nil {
			return nil, err
		}
		n.Payload = json.RawMessage(payload)
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}
