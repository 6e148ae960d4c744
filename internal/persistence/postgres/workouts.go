package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/richi-sixt/calisthenics-progression/internal/domain"
	"github.com/richi-sixt/calisthenics-progression/internal/events"
	"github.com/richi-sixt/calisthenics-progression/internal/observability"
)

// WorkoutRepo persists workout aggregates.
type WorkoutRepo struct {
	db *DB
}

// NewWorkoutRepo constructs a WorkoutRepo.
func NewWorkoutRepo(db *DB) *WorkoutRepo {
	return &WorkoutRepo{db: db}
}

const workoutHeaderQuery = `SELECT w.id, w.owner_id, u.username, w.title, w.started_at, w.created_at
        FROM workouts w
        JOIN users u ON u.id = w.owner_id`

// CreateWorkout writes the aggregate and its outbox event in one
// transaction. Any failure rolls back every row, including the instances and
// sets already written.
func (r *WorkoutRepo) CreateWorkout(ctx context.Context, workout domain.Workout) error {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const workoutStmt = `INSERT INTO workouts (id, owner_id, title, started_at, created_at)
        VALUES ($1,$2,$3,$4,$5)`
	if _, err := tx.Exec(ctx, workoutStmt, workout.ID, workout.OwnerID, workout.Title, workout.StartedAt, workout.CreatedAt); err != nil {
		return err
	}

	const instanceStmt = `INSERT INTO exercise_instances (id, workout_id, definition_id, position)
        VALUES ($1,$2,$3,$4)`
	const setStmt = `INSERT INTO set_entries (id, instance_id, position, value)
        VALUES ($1,$2,$3,$4)`

	setCount := 0
	for _, instance := range workout.Exercises {
		if _, err := tx.Exec(ctx, instanceStmt, instance.ID, workout.ID, instance.DefinitionID, instance.Position); err != nil {
			if isForeignKeyViolation(err, "exercise_instances_definition_id_fkey") {
				return &domain.WorkoutValidationError{Exercise: instance.Position, Detail: "unknown exercise"}
			}
			return err
		}
		for _, set := range instance.Sets {
			if _, err := tx.Exec(ctx, setStmt, set.ID, instance.ID, set.Position, set.Value); err != nil {
				if isCheckViolation(err) {
					return &domain.WorkoutValidationError{Exercise: instance.Position, Set: set.Position, Detail: "set value must be positive"}
				}
				return err
			}
			setCount++
		}
	}

	if err := insertOutbox(ctx, tx, "workout", workout.ID, eventTypeWorkoutCreated, workout.OwnerID, events.WorkoutCreated{
		WorkoutID:     workout.ID,
		OwnerID:       workout.OwnerID,
		Title:         workout.Title,
		StartedAt:     workout.StartedAt,
		ExerciseCount: len(workout.Exercises),
		SetCount:      setCount,
	}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	observability.RecordWorkoutPersisted(workout.CreatedAt)
	return nil
}

// GetWorkout fetches one aggregate with its exercise tree, or nil when
// absent.
func (r *WorkoutRepo) GetWorkout(ctx context.Context, id string) (*domain.Workout, error) {
	const query = workoutHeaderQuery + ` WHERE w.id = $1`

	row := r.db.Pool.QueryRow(ctx, query, id)
	var workout domain.Workout
	if err := row.Scan(&workout.ID, &workout.OwnerID, &workout.OwnerUsername, &workout.Title, &workout.StartedAt, &workout.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	loaded, err := attachExercises(ctx, r.db.Pool, []domain.Workout{workout})
	if err != nil {
		return nil, err
	}
	return &loaded[0], nil
}

// ListByOwner pages through one profile's workouts, newest first.
func (r *WorkoutRepo) ListByOwner(ctx context.Context, ownerID string, page domain.Page) ([]domain.Workout, error) {
	const query = workoutHeaderQuery + `
        WHERE w.owner_id = $1
        ORDER BY w.started_at DESC, w.id DESC
        LIMIT $2 OFFSET $3`

	rows, err := r.db.Pool.Query(ctx, query, ownerID, page.Size, page.Offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	workouts, err := scanWorkoutHeaders(rows)
	if err != nil {
		return nil, err
	}
	return attachExercises(ctx, r.db.Pool, workouts)
}

// ListOthers pages through every other profile's workouts, newest first.
func (r *WorkoutRepo) ListOthers(ctx context.Context, viewerID string, page domain.Page) ([]domain.Workout, error) {
	const query = workoutHeaderQuery + `
        WHERE w.owner_id <> $1
        ORDER BY w.started_at DESC, w.id DESC
        LIMIT $2 OFFSET $3`

	rows, err := r.db.Pool.Query(ctx, query, viewerID, page.Size, page.Offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	workouts, err := scanWorkoutHeaders(rows)
	if err != nil {
		return nil, err
	}
	return attachExercises(ctx, r.db.Pool, workouts)
}

// DeleteWorkout removes an owned aggregate. Instances and sets go with it
// through the cascade; the referenced definitions are untouched.
func (r *WorkoutRepo) DeleteWorkout(ctx context.Context, ownerID, id string) error {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var owner string
	if err := tx.QueryRow(ctx, `SELECT owner_id FROM workouts WHERE id = $1 FOR UPDATE`, id).Scan(&owner); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}
	if owner != ownerID {
		return domain.ErrForbidden
	}

	if _, err := tx.Exec(ctx, `DELETE FROM workouts WHERE id = $1`, id); err != nil {
		return err
	}

	if err := insertOutbox(ctx, tx, "workout", id, eventTypeWorkoutDeleted, ownerID, events.WorkoutDeleted{
		WorkoutID:  id,
		OwnerID:    ownerID,
		OccurredAt: time.Now().UTC(),
	}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func scanWorkoutHeaders(rows pgx.Rows) ([]domain.Workout, error) {
	workouts := make([]domain.Workout, 0)
	for rows.Next() {
		var workout domain.Workout
		if err := rows.Scan(&workout.ID, &workout.OwnerID, &workout.OwnerUsername, &workout.Title, &workout.StartedAt, &workout.CreatedAt); err != nil {
			return nil, err
		}
		workouts = append(workouts, workout)
	}
	return workouts, rows.Err()
}

// attachExercises loads the instance and set trees for the given workouts in
// two batched queries and stitches them in order.
func attachExercises(ctx context.Context, pool PgxPool, workouts []domain.Workout) ([]domain.Workout, error) {
	if len(workouts) == 0 {
		return workouts, nil
	}

	ids := make([]string, len(workouts))
	index := make(map[string]int, len(workouts))
	for i, workout := range workouts {
		ids[i] = workout.ID
		index[workout.ID] = i
	}

	const instanceQuery = `SELECT ei.id, ei.workout_id, ei.definition_id, ei.position, d.title, d.counting_type
        FROM exercise_instances ei
        JOIN exercise_definitions d ON d.id = ei.definition_id
        WHERE ei.workout_id = ANY($1::uuid[])
        ORDER BY ei.workout_id, ei.position`

	rows, err := pool.Query(ctx, instanceQuery, ids)
	if err != nil {
		return nil, err
	}
	instanceAt := make(map[string][2]int)
	for rows.Next() {
		var (
			instance  domain.ExerciseInstance
			workoutID string
		)
		if err := rows.Scan(&instance.ID, &workoutID, &instance.DefinitionID, &instance.Position, &instance.Title, &instance.CountingType); err != nil {
			rows.Close()
			return nil, err
		}
		i := index[workoutID]
		workouts[i].Exercises = append(workouts[i].Exercises, instance)
		instanceAt[instance.ID] = [2]int{i, len(workouts[i].Exercises) - 1}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	const setQuery = `SELECT s.id, s.instance_id, s.position, s.value
        FROM set_entries s
        JOIN exercise_instances ei ON ei.id = s.instance_id
        WHERE ei.workout_id = ANY($1::uuid[])
        ORDER BY s.instance_id, s.position`

	rows, err = pool.Query(ctx, setQuery, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			set        domain.SetEntry
			instanceID string
		)
		if err := rows.Scan(&set.ID, &instanceID, &set.Position, &set.Value); err != nil {
			return nil, err
		}
		at, ok := instanceAt[instanceID]
		if !ok {
			continue
		}
		instance := &workouts[at[0]].Exercises[at[1]]
		instance.Sets = append(instance.Sets, set)
	}
	return workouts, rows.Err()
}
