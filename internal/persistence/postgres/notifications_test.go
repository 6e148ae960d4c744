package postgres

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/richi-sixt/calisthenics-progression/internal/domain"
)

func TestNotificationRepo_Append_UsesBumpedTimestamp(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewNotificationRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE users SET last_notification_ts").
		WithArgs("user-1", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"last_notification_ts"}).AddRow(int64(4242)))
	mock.ExpectExec("INSERT INTO notifications").
		WithArgs(pgxmock.AnyArg(), "user-1", domain.NotificationUnreadMessages, []byte(`7`), int64(4242)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	n, err := r.Append(context.Background(), "user-1", domain.NotificationUnreadMessages, json.RawMessage(`7`))
	require.NoError(t, err)
	require.EqualValues(t, 4242, n.Timestamp)
	require.NotEmpty(t, n.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepo_Append_UnknownUser(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewNotificationRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE users SET last_notification_ts").
		WithArgs("user-ghost", pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err := r.Append(context.Background(), "user-ghost", "anything", json.RawMessage(`{}`))
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepo_ListSince(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewNotificationRepo(db)

	mock.ExpectQuery("FROM notifications").
		WithArgs("user-1", int64(10)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "name", "payload", "ts"}).
			AddRow("n-1", "user-1", domain.NotificationUnreadMessages, []byte(`2`), int64(11)).
			AddRow("n-2", "user-1", domain.NotificationUnreadMessages, []byte(`0`), int64(12)))

	notifications, err := r.ListSince(context.Background(), "user-1", 10)
	require.NoError(t, err)
	require.Len(t, notifications, 2)
	require.EqualValues(t, 11, notifications[0].Timestamp)
	require.EqualValues(t, 12, notifications[1].Timestamp)
	require.JSONEq(t, `2`, string(notifications[0].Payload))
}
