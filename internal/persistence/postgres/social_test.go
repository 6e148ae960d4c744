package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/richi-sixt/calisthenics-progression/internal/domain"
)

func TestSocialRepo_Follow_OK(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewSocialRepo(db)

	mock.ExpectExec("INSERT INTO follows").
		WithArgs("user-anna", "user-ben").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, r.Follow(context.Background(), "user-anna", "user-ben"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSocialRepo_Follow_SelfEdgeRejectedByCheck(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewSocialRepo(db)

	mock.ExpectExec("INSERT INTO follows").
		WithArgs("user-anna", "user-anna").
		WillReturnError(&pgconn.PgError{Code: "23514", ConstraintName: "follows_no_self"})

	err := r.Follow(context.Background(), "user-anna", "user-anna")
	require.ErrorIs(t, err, domain.ErrSelfFollow)
}

func TestSocialRepo_IsFollowing(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewSocialRepo(db)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("user-anna", "user-ben").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	following, err := r.IsFollowing(context.Background(), "user-anna", "user-ben")
	require.NoError(t, err)
	require.True(t, following)
}

func TestSocialRepo_FollowedWorkouts_IncludesOwn(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewSocialRepo(db)

	started := time.Date(2026, time.July, 10, 17, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM workouts w").
		WithArgs("user-anna", 10, 0).
		WillReturnRows(pgxmock.NewRows([]string{"id", "owner_id", "username", "title", "started_at", "created_at"}).
			AddRow("w-2", "user-ben", "ben", "Push Day", started.Add(time.Hour), started.Add(time.Hour)).
			AddRow("w-1", "user-anna", "anna", "Leg Day", started, started))
	mock.ExpectQuery("FROM exercise_instances ei").
		WithArgs([]string{"w-2", "w-1"}).
		WillReturnRows(pgxmock.NewRows([]string{"id", "workout_id", "definition_id", "position", "title", "counting_type"}))
	mock.ExpectQuery("FROM set_entries s").
		WithArgs([]string{"w-2", "w-1"}).
		WillReturnRows(pgxmock.NewRows([]string{"id", "instance_id", "position", "value"}))

	workouts, err := r.FollowedWorkouts(context.Background(), "user-anna", domain.NewPage(1, 10))
	require.NoError(t, err)
	require.Len(t, workouts, 2)
	require.Equal(t, "ben", workouts[0].OwnerUsername)
	require.Equal(t, "anna", workouts[1].OwnerUsername)
	require.NoError(t, mock.ExpectationsWereMet())
}
