package domain

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxMessageLength bounds the direct message body.
const MaxMessageLength = 140

// Message is one direct message between two profiles.
type Message struct {
	ID             string
	SenderID       string
	SenderUsername string
	RecipientID    string
	Body           string
	CreatedAt      time.Time
}

// MessageRepository captures persistence operations for direct messages.
// CreateMessage writes the message, recomputes the recipient's unread count
// and appends the unread notification in one transaction; MarkRead moves the
// watermark and appends the zero-count notification the same way.
type MessageRepository interface {
	CreateMessage(ctx context.Context, message Message) error
	MarkRead(ctx context.Context, userID string, readAt time.Time) error
	UnreadCount(ctx context.Context, userID string) (int64, error)
	ListInbox(ctx context.Context, userID string, page Page) ([]Message, error)
}

// MessageService handles direct messages and the unread watermark.
type MessageService struct {
	repo  MessageRepository
	users UserRepository
}

// NewMessageService constructs a MessageService.
func NewMessageService(repo MessageRepository, users UserRepository) *MessageService {
	return &MessageService{repo: repo, users: users}
}

// Send stores a message for the named recipient. The recipient's unread
// count notification lands in the same transaction as the message row, so a
// message is never observable without its feed entry.
func (s *MessageService) Send(ctx context.Context, senderID, recipientUsername, body string) (*Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyBody
	}
	if utf8.RuneCountInString(body) > MaxMessageLength {
		return nil, Invalidf("message body exceeds %d characters", MaxMessageLength)
	}

	recipient, err := s.users.GetByUsername(ctx, recipientUsername)
	if err != nil {
		return nil, err
	}
	if recipient == nil {
		return nil, ErrNotFound
	}

	message := Message{
		ID:          uuid.NewString(),
		SenderID:    senderID,
		RecipientID: recipient.ID,
		Body:        body,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.CreateMessage(ctx, message); err != nil {
		return nil, err
	}
	return &message, nil
}

// MarkRead moves the caller's read watermark to now and resets the unread
// notification to zero.
func (s *MessageService) MarkRead(ctx context.Context, userID string) error {
	return s.repo.MarkRead(ctx, userID, time.Now().UTC())
}

// UnreadCount counts messages received after the caller's read watermark.
func (s *MessageService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return s.repo.UnreadCount(ctx, userID)
}

// Inbox pages through received messages, newest first.
func (s *MessageService) Inbox(ctx context.Context, userID string, page Page) ([]Message, error) {
	return s.repo.ListInbox(ctx, userID, page)
}
