package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/richi-sixt/calisthenics-progression/internal/domain"
	"github.com/richi-sixt/calisthenics-progression/internal/events"
	"github.com/richi-sixt/calisthenics-progression/internal/observability"
)

// MessageRepo persists direct messages and the per-user read watermark.
type MessageRepo struct {
	db *DB
}

// NewMessageRepo constructs a MessageRepo.
func NewMessageRepo(db *DB) *MessageRepo {
	return &MessageRepo{db: db}
}

const unreadCountQuery = `SELECT COUNT(*) FROM messages
        WHERE recipient_id = $1
          AND created_at > COALESCE((SELECT last_message_read_time FROM users WHERE id = $1), 'epoch'::timestamptz)`

// CreateMessage stores the message, the recipient's refreshed unread count
// notification and the outbox event in one transaction. A reader of any of
// the three always observes the other two.
func (r *MessageRepo) CreateMessage(ctx context.Context, message domain.Message) error {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const stmt = `INSERT INTO messages (id, sender_id, recipient_id, body, created_at)
        VALUES ($1,$2,$3,$4,$5)`
	if _, err := tx.Exec(ctx, stmt, message.ID, message.SenderID, message.RecipientID, message.Body, message.CreatedAt); err != nil {
		if isCheckViolation(err) {
			return domain.Invalidf("message body exceeds %d characters", domain.MaxMessageLength)
		}
		if isForeignKeyViolation(err, "") {
			return domain.ErrNotFound
		}
		return err
	}

	var unread int64
	if err := tx.QueryRow(ctx, unreadCountQuery, message.RecipientID).Scan(&unread); err != nil {
		return err
	}

	payload, err := json.Marshal(unread)
	if err != nil {
		return err
	}
	if _, err := appendNotification(ctx, tx, message.RecipientID, domain.NotificationUnreadMessages, payload); err != nil {
		return err
	}

	if err := insertOutbox(ctx, tx, "message", message.ID, eventTypeMessageSent, message.RecipientID, events.MessageSent{
		MessageID:   message.ID,
		SenderID:    message.SenderID,
		RecipientID: message.RecipientID,
		SentAt:      message.CreatedAt,
	}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	observability.RecordMessageSent()
	return nil
}

// MarkRead moves the watermark and resets the unread notification to zero in
// one transaction.
func (r *MessageRepo) MarkRead(ctx context.Context, userID string, readAt time.Time) error {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `UPDATE users SET last_message_read_time = $2 WHERE id = $1`, userID, readAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	if _, err := appendNotification(ctx, tx, userID, domain.NotificationUnreadMessages, json.RawMessage("0")); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// UnreadCount counts messages received after the watermark.
func (r *MessageRepo) UnreadCount(ctx context.Context, userID string) (int64, error) {
	var unread int64
	if err := r.db.Pool.QueryRow(ctx, unreadCountQuery, userID).Scan(&unread); err != nil {
		return 0, err
	}
	return unread, nil
}

// ListInbox pages through received messages, newest first.
func (r *MessageRepo) ListInbox(ctx context.Context, userID string, page domain.Page) ([]domain.Message, error) {
	const query = `SELECT m.id, m.sender_id, su.username, m.recipient_id, m.body, m.created_at
        FROM messages m
        JOIN users su ON su.id = m.sender_id
        WHERE m.recipient_id = $1
        ORDER BY m.created_at DESC, m.id DESC
        LIMIT $2 OFFSET $3`

	rows, err := r.db.Pool.Query(ctx, query, userID, page.Size, page.Offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]domain.Message, 0)
	for rows.Next() {
		var message domain.Message
		if err := rows.Scan(&message.ID, &message.SenderID, &message.SenderUsername, &message.RecipientID, &message.Body, &message.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}
	return messages, rows.Err()
}
