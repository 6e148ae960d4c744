package domain

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeMessageRepo struct {
	created   []Message
	createErr error
	readAt    time.Time
	unread    int64
	inbox     []Message
}

func (f *fakeMessageRepo) CreateMessage(_ context.Context, message Message) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, message)
	return nil
}

func (f *fakeMessageRepo) MarkRead(_ context.Context, userID string, readAt time.Time) error {
	f.readAt = readAt
	return nil
}

func (f *fakeMessageRepo) UnreadCount(_ context.Context, userID string) (int64, error) {
	return f.unread, nil
}

func (f *fakeMessageRepo) ListInbox(_ context.Context, userID string, page Page) ([]Message, error) {
	return f.inbox, nil
}

func messagingFixture() (*MessageService, *fakeMessageRepo) {
	repo := &fakeMessageRepo{}
	users := &fakeUserRepo{byUsername: map[string]*User{
		"anna": {ID: "user-anna", Username: "anna"},
	}}
	return NewMessageService(repo, users), repo
}

func TestSendMessage(t *testing.T) {
	service, repo := messagingFixture()

	message, err := service.Send(context.Background(), "user-ben", "anna", "  Starkes Training heute! ")
	require.NoError(t, err)
	require.NotEmpty(t, message.ID)
	require.Equal(t, "user-ben", message.SenderID)
	require.Equal(t, "user-anna", message.RecipientID)
	require.Equal(t, "Starkes Training heute!", message.Body)
	require.False(t, message.CreatedAt.IsZero())
	require.Len(t, repo.created, 1)
}

func TestSendMessageValidation(t *testing.T) {
	service, repo := messagingFixture()

	_, err := service.Send(context.Background(), "user-ben", "anna", "   ")
	require.ErrorIs(t, err, ErrEmptyBody)
	require.ErrorIs(t, err, ErrValidation)

	_, err = service.Send(context.Background(), "user-ben", "anna", strings.Repeat("a", MaxMessageLength+1))
	require.ErrorIs(t, err, ErrValidation)

	require.Empty(t, repo.created)
}

func TestSendMessageUnknownRecipient(t *testing.T) {
	service, _ := messagingFixture()

	_, err := service.Send(context.Background(), "user-ben", "nobody", "hi")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMarkRead(t *testing.T) {
	service, repo := messagingFixture()

	require.NoError(t, service.MarkRead(context.Background(), "user-anna"))
	require.False(t, repo.readAt.IsZero())
}
