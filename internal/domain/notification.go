package domain

import (
	"context"
	"encoding/json"
)

// NotificationUnreadMessages carries the recipient's unread message count.
const NotificationUnreadMessages = "unread_message_count"

// Notification is one entry in a user's pull-based feed. Timestamps are
// microseconds since epoch and strictly increase per user, so a client can
// poll with its highest seen value as the cursor without ever losing or
// re-reading an entry.
type Notification struct {
	ID        string
	UserID    string
	Name      string
	Payload   json.RawMessage
	Timestamp int64
}

// NotificationRepository captures persistence operations for the feed.
type NotificationRepository interface {
	Append(ctx context.Context, userID, name string, payload json.RawMessage) (*Notification, error)
	ListSince(ctx context.Context, userID string, since int64) ([]Notification, error)
}

// FeedService appends to and serves the per-user notification feed.
type FeedService struct {
	repo NotificationRepository
}

// NewFeedService constructs a FeedService.
func NewFeedService(repo NotificationRepository) *FeedService {
	return &FeedService{repo: repo}
}

// Append stores a notification for the user. The stored timestamp is
// assigned inside the repository transaction and is guaranteed greater than
// every earlier notification of the same user, even under concurrent
// appends.
func (s *FeedService) Append(ctx context.Context, userID, name string, payload any) (*Notification, error) {
	if name == "" {
		return nil, Invalidf("notification name is required")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return s.repo.Append(ctx, userID, name, body)
}

// Since returns the user's notifications with a timestamp strictly greater
// than the cursor, ascending.
func (s *FeedService) Since(ctx context.Context, userID string, since int64) ([]Notification, error) {
	return s.repo.ListSince(ctx, userID, since)
}
