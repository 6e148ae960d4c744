//go:build integration

package postgres

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/richi-sixt/calisthenics-progression/internal/domain"
	"github.com/richi-sixt/calisthenics-progression/internal/migrate"
)

func TestWorkoutAggregateLifecycle(t *testing.T) {
	ctx := context.Background()
	db := startDatabase(t, ctx)

	workouts := NewWorkoutRepo(db)
	catalog := NewCatalogRepo(db)
	social := NewSocialRepo(db)

	annaID := seedUser(t, ctx, db, "anna")
	benID := seedUser(t, ctx, db, "ben")

	pushups := seedDefinition(t, ctx, db, annaID, "Pushups", domain.CountReps)
	plank := seedDefinition(t, ctx, db, annaID, "Plank", domain.CountDuration)

	workout := domain.Workout{
		ID:        uuid.NewString(),
		OwnerID:   annaID,
		Title:     "Morning session",
		StartedAt: time.Now().UTC().Truncate(time.Microsecond),
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
		Exercises: []domain.ExerciseInstance{
			instanceOf(pushups, 1, 10, 8),
			instanceOf(plank, 2, 60),
		},
	}
	require.NoError(t, workouts.CreateWorkout(ctx, workout))

	stored, err := workouts.GetWorkout(ctx, workout.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Equal(t, "anna", stored.OwnerUsername)
	require.Len(t, stored.Exercises, 2)
	require.Equal(t, "Pushups", stored.Exercises[0].Title)
	require.Equal(t, []int{10, 8}, setValues(stored.Exercises[0].Sets))
	require.Equal(t, domain.CountDuration, stored.Exercises[1].CountingType)
	require.Equal(t, []int{60}, setValues(stored.Exercises[1].Sets))

	// A bad row anywhere in the tree rolls back the whole aggregate.
	broken := domain.Workout{
		ID:        uuid.NewString(),
		OwnerID:   benID,
		Title:     "Broken",
		StartedAt: time.Now().UTC(),
		CreatedAt: time.Now().UTC(),
		Exercises: []domain.ExerciseInstance{
			instanceOf(pushups, 1, 12),
			{
				ID:           uuid.NewString(),
				DefinitionID: uuid.NewString(),
				Position:     2,
				Sets:         []domain.SetEntry{{ID: uuid.NewString(), Position: 1, Value: 5}},
			},
		},
	}
	err = workouts.CreateWorkout(ctx, broken)
	var vErr *domain.WorkoutValidationError
	require.ErrorAs(t, err, &vErr)
	require.Equal(t, 2, vErr.Exercise)
	require.Zero(t, ownedWorkoutCount(t, ctx, db, benID))

	broken.ID = uuid.NewString()
	broken.Exercises = []domain.ExerciseInstance{{
		ID:           uuid.NewString(),
		DefinitionID: pushups.ID,
		Position:     1,
		Sets: []domain.SetEntry{
			{ID: uuid.NewString(), Position: 1, Value: 10},
			{ID: uuid.NewString(), Position: 2, Value: 0},
		},
	}}
	err = workouts.CreateWorkout(ctx, broken)
	require.ErrorAs(t, err, &vErr)
	require.Equal(t, 1, vErr.Exercise)
	require.Equal(t, 2, vErr.Set)
	require.Zero(t, ownedWorkoutCount(t, ctx, db, benID))

	// The RESTRICT reference keeps a used definition alive.
	require.ErrorIs(t, catalog.DeleteDefinition(ctx, pushups.ID), domain.ErrDefinitionInUse)

	require.ErrorIs(t, social.Follow(ctx, annaID, annaID), domain.ErrSelfFollow)
	require.NoError(t, social.Follow(ctx, benID, annaID))
	require.NoError(t, social.Follow(ctx, benID, annaID))
	following, err := social.IsFollowing(ctx, benID, annaID)
	require.NoError(t, err)
	require.True(t, following)

	feed, err := social.FollowedWorkouts(ctx, benID, domain.NewPage(1, 10))
	require.NoError(t, err)
	require.Len(t, feed, 1)
	require.Equal(t, workout.ID, feed[0].ID)
	require.Len(t, feed[0].Exercises, 2)

	require.NoError(t, social.Unfollow(ctx, benID, annaID))
	feed, err = social.FollowedWorkouts(ctx, benID, domain.NewPage(1, 10))
	require.NoError(t, err)
	require.Empty(t, feed)

	// Deleting the workout cascades to instances and sets but not definitions.
	require.ErrorIs(t, workouts.DeleteWorkout(ctx, benID, workout.ID), domain.ErrForbidden)
	require.NoError(t, workouts.DeleteWorkout(ctx, annaID, workout.ID))

	stored, err = workouts.GetWorkout(ctx, workout.ID)
	require.NoError(t, err)
	require.Nil(t, stored)
	require.Zero(t, tableCount(t, ctx, db, "exercise_instances"))
	require.Zero(t, tableCount(t, ctx, db, "set_entries"))

	def, err := catalog.GetDefinition(ctx, pushups.ID)
	require.NoError(t, err)
	require.NotNil(t, def)
	require.NoError(t, catalog.DeleteDefinition(ctx, pushups.ID))

	require.Equal(t, []string{"workout.created", "workout.deleted"}, outboxEventTypes(t, ctx, db, workout.ID))
}

func TestCatalogTitleUniqueness(t *testing.T) {
	ctx := context.Background()
	db := startDatabase(t, ctx)

	catalog := NewCatalogRepo(db)

	annaID := seedUser(t, ctx, db, "anna")
	benID := seedUser(t, ctx, db, "ben")

	seedDefinition(t, ctx, db, annaID, "Pushups", domain.CountReps)
	dips := seedDefinition(t, ctx, db, annaID, "Dips", domain.CountReps)

	dup := domain.ExerciseDefinition{
		ID:           uuid.NewString(),
		OwnerID:      annaID,
		Title:        "Pushups",
		CountingType: domain.CountDuration,
		CreatedAt:    time.Now().UTC(),
	}
	require.ErrorIs(t, catalog.CreateDefinition(ctx, dup), domain.ErrDuplicateTitle)

	// Renaming into an existing title trips the same constraint.
	dips.Title = "Pushups"
	require.ErrorIs(t, catalog.UpdateDefinition(ctx, dips), domain.ErrDuplicateTitle)

	// The same title under another owner is fine.
	seedDefinition(t, ctx, db, benID, "Pushups", domain.CountReps)
	hold := seedDefinition(t, ctx, db, benID, "Wall hold", domain.CountDuration)
	require.NoError(t, catalog.SetArchived(ctx, hold.ID, true))

	mine, err := catalog.ListOwned(ctx, annaID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	require.Equal(t, "Dips", mine[0].Title)
	require.Equal(t, "anna", mine[0].OwnerUsername)

	// Archived definitions leave the listings but stay resolvable.
	groups, err := catalog.ListOthers(ctx, annaID)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Equal(t, "ben", groups[0].Owner)
	require.Len(t, groups[0].Definitions, 1)
	require.Equal(t, "Pushups", groups[0].Definitions[0].Title)

	bens, err := catalog.ListOwned(ctx, benID)
	require.NoError(t, err)
	require.Len(t, bens, 1)
	require.Equal(t, "Pushups", bens[0].Title)

	archived, err := catalog.GetDefinition(ctx, hold.ID)
	require.NoError(t, err)
	require.NotNil(t, archived)
	require.True(t, archived.Archived)
}

func TestMessagingKeepsFeedConsistent(t *testing.T) {
	ctx := context.Background()
	db := startDatabase(t, ctx)

	messages := NewMessageRepo(db)
	notifications := NewNotificationRepo(db)

	annaID := seedUser(t, ctx, db, "anna")
	benID := seedUser(t, ctx, db, "ben")

	base := time.Now().UTC().Truncate(time.Microsecond)

	first := domain.Message{
		ID:          uuid.NewString(),
		SenderID:    annaID,
		RecipientID: benID,
		Body:        "park session at six?",
		CreatedAt:   base,
	}
	require.NoError(t, messages.CreateMessage(ctx, first))

	unread, err := messages.UnreadCount(ctx, benID)
	require.NoError(t, err)
	require.EqualValues(t, 1, unread)

	feed, err := notifications.ListSince(ctx, benID, 0)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	require.Equal(t, domain.NotificationUnreadMessages, feed[0].Name)
	require.JSONEq(t, "1", string(feed[0].Payload))

	require.Equal(t, []string{"message.sent"}, outboxEventTypes(t, ctx, db, first.ID))

	// Moving the watermark clears the count and appends the zero entry.
	require.NoError(t, messages.MarkRead(ctx, benID, base.Add(time.Second)))
	unread, err = messages.UnreadCount(ctx, benID)
	require.NoError(t, err)
	require.Zero(t, unread)

	tail, err := notifications.ListSince(ctx, benID, feed[0].Timestamp)
	require.NoError(t, err)
	require.Len(t, tail, 1)
	require.JSONEq(t, "0", string(tail[0].Payload))

	require.ErrorIs(t, messages.MarkRead(ctx, uuid.NewString(), base), domain.ErrNotFound)

	// Only messages received after the watermark count as unread.
	second := domain.Message{
		ID:          uuid.NewString(),
		SenderID:    annaID,
		RecipientID: benID,
		Body:        "bring the rings",
		CreatedAt:   base.Add(2 * time.Second),
	}
	require.NoError(t, messages.CreateMessage(ctx, second))

	unread, err = messages.UnreadCount(ctx, benID)
	require.NoError(t, err)
	require.EqualValues(t, 1, unread)

	inbox, err := messages.ListInbox(ctx, benID, domain.NewPage(1, 10))
	require.NoError(t, err)
	require.Len(t, inbox, 2)
	require.Equal(t, second.ID, inbox[0].ID)
	require.Equal(t, "anna", inbox[0].SenderUsername)

	// Feed timestamps strictly increase even for rapid appends.
	var last int64
	for i := 0; i < 40; i++ {
		n, err := notifications.Append(ctx, annaID, domain.NotificationUnreadMessages, json.RawMessage(strconv.Itoa(i)))
		require.NoError(t, err)
		require.Greater(t, n.Timestamp, last)
		last = n.Timestamp
	}

	entries, err := notifications.ListSince(ctx, annaID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 40)
	for i := 1; i < len(entries); i++ {
		require.Greater(t, entries[i].Timestamp, entries[i-1].Timestamp)
	}

	cut, err := notifications.ListSince(ctx, annaID, entries[19].Timestamp)
	require.NoError(t, err)
	require.Len(t, cut, 20)
	require.Equal(t, entries[20].ID, cut[0].ID)
}

func startDatabase(t *testing.T, ctx context.Context) *DB {
	t.Helper()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("training"),
		postgrescontainer.WithUsername("platform"),
		postgrescontainer.WithPassword("platform"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, waitForDatabase(ctx, connStr))
	require.NoError(t, migrate.Up(ctx, connStr))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return &DB{Pool: pool}
}

func seedUser(t *testing.T, ctx context.Context, db *DB, username string) string {
	t.Helper()
	id := uuid.NewString()
	require.NoError(t, NewUserRepo(db).UpsertSeen(ctx, id, username, time.Now().UTC()))
	return id
}

func seedDefinition(t *testing.T, ctx context.Context, db *DB, ownerID, title string, counting domain.CountingType) domain.ExerciseDefinition {
	t.Helper()
	def := domain.ExerciseDefinition{
		ID:           uuid.NewString(),
		OwnerID:      ownerID,
		Title:        title,
		CountingType: counting,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, NewCatalogRepo(db).CreateDefinition(ctx, def))
	return def
}

func instanceOf(def domain.ExerciseDefinition, position int, values ...int) domain.ExerciseInstance {
	instance := domain.ExerciseInstance{
		ID:           uuid.NewString(),
		DefinitionID: def.ID,
		Position:     position,
	}
	for i, value := range values {
		instance.Sets = append(instance.Sets, domain.SetEntry{
			ID:       uuid.NewString(),
			Position: i + 1,
			Value:    value,
		})
	}
	return instance
}

func setValues(sets []domain.SetEntry) []int {
	values := make([]int, len(sets))
	for i, set := range sets {
		values[i] = set.Value
	}
	return values
}

func tableCount(t *testing.T, ctx context.Context, db *DB, table string) int {
	t.Helper()
	var count int
	require.NoError(t, db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM `+table).Scan(&count))
	return count
}

func ownedWorkoutCount(t *testing.T, ctx context.Context, db *DB, ownerID string) int {
	t.Helper()
	var count int
	require.NoError(t, db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM workouts WHERE owner_id = $1`, ownerID).Scan(&count))
	return count
}

func outboxEventTypes(t *testing.T, ctx context.Context, db *DB, aggregateID string) []string {
	t.Helper()
	rows, err := db.Pool.Query(ctx, `SELECT event_type FROM outbox WHERE aggregate_id = $1 ORDER BY event_id`, aggregateID)
	require.NoError(t, err)
	defer rows.Close()

	types := make([]string, 0)
	for rows.Next() {
		var eventType string
		require.NoError(t, rows.Scan(&eventType))
		types = append(types, eventType)
	}
	require.NoError(t, rows.Err())
	return types
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}
