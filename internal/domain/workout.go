package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Workout is the aggregate root for one logged training session. Instances
// and sets only exist as part of their workout and are written and deleted
// with it.
type Workout struct {
	ID            string
	OwnerID       string
	OwnerUsername string
	Title         string
	StartedAt     time.Time
	CreatedAt     time.Time
	Exercises     []ExerciseInstance
}

// ExerciseInstance is one exercise slot inside a workout, ordered by its
// 1-based position. Title and counting type are denormalized from the
// definition at read time.
type ExerciseInstance struct {
	ID           string
	DefinitionID string
	Title        string
	CountingType CountingType
	Position     int
	Sets         []SetEntry
}

// SetEntry is one recorded set. Value is a rep count or a duration in
// seconds depending on the instance's counting type.
type SetEntry struct {
	ID       string
	Position int
	Value    int
}

// ExercisePlan is the caller-provided plan for one instance.
type ExercisePlan struct {
	DefinitionID string
	SetValues    []int
}

// AddWorkoutInput captures the payload from the API layer. A zero StartedAt
// means the session starts now.
type AddWorkoutInput struct {
	OwnerID   string
	Title     string
	StartedAt time.Time
	Exercises []ExercisePlan
}

// WorkoutRepository captures persistence operations for workout aggregates.
// CreateWorkout writes the whole aggregate in a single transaction.
type WorkoutRepository interface {
	CreateWorkout(ctx context.Context, workout Workout) error
	GetWorkout(ctx context.Context, id string) (*Workout, error)
	ListByOwner(ctx context.Context, ownerID string, page Page) ([]Workout, error)
	ListOthers(ctx context.Context, viewerID string, page Page) ([]Workout, error)
	DeleteWorkout(ctx context.Context, ownerID, id string) error
}

// DefinitionResolver is the slice of the catalog the composer needs.
type DefinitionResolver interface {
	GetDefinitions(ctx context.Context, ids []string) (map[string]ExerciseDefinition, error)
}

// WorkoutService composes and stores workout aggregates.
type WorkoutService struct {
	repo    WorkoutRepository
	catalog DefinitionResolver
}

// NewWorkoutService constructs a WorkoutService.
func NewWorkoutService(repo WorkoutRepository, catalog DefinitionResolver) *WorkoutService {
	return &WorkoutService{repo: repo, catalog: catalog}
}

// Add validates the workout plan and persists the aggregate atomically.
// Validation failures name the offending exercise and set positions so the
// caller can pin the message to the right form row.
func (s *WorkoutService) Add(ctx context.Context, input AddWorkoutInput) (*Workout, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, &WorkoutValidationError{Detail: "title is required"}
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return nil, &WorkoutValidationError{Detail: fmt.Sprintf("title exceeds %d characters", MaxTitleLength)}
	}
	if len(input.Exercises) == 0 {
		return nil, &WorkoutValidationError{Detail: "at least one exercise is required"}
	}

	ids := make([]string, 0, len(input.Exercises))
	seen := make(map[string]struct{}, len(input.Exercises))
	for _, entry := range input.Exercises {
		if _, ok := seen[entry.DefinitionID]; ok {
			continue
		}
		seen[entry.DefinitionID] = struct{}{}
		ids = append(ids, entry.DefinitionID)
	}
	defs, err := s.catalog.GetDefinitions(ctx, ids)
	if err != nil {
		return nil, err
	}

	startedAt := input.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}
	workout := Workout{
		ID:        uuid.NewString(),
		OwnerID:   input.OwnerID,
		Title:     title,
		StartedAt: startedAt.UTC(),
		CreatedAt: time.Now().UTC(),
		Exercises: make([]ExerciseInstance, 0, len(input.Exercises)),
	}

	for i, entry := range input.Exercises {
		pos := i + 1
		def, ok := defs[entry.DefinitionID]
		if !ok {
			return nil, &WorkoutValidationError{Exercise: pos, Detail: "unknown exercise"}
		}
		if def.Archived {
			return nil, &WorkoutValidationError{Exercise: pos, Detail: "exercise is archived"}
		}
		if len(entry.SetValues) == 0 {
			return nil, &WorkoutValidationError{Exercise: pos, Detail: "at least one set is required"}
		}

		instance := ExerciseInstance{
			ID:           uuid.NewString(),
			DefinitionID: def.ID,
			Title:        def.Title,
			CountingType: def.CountingType,
			Position:     pos,
			Sets:         make([]SetEntry, 0, len(entry.SetValues)),
		}
		for j, value := range entry.SetValues {
			if value <= 0 {
				detail := "rep count must be a positive integer"
				if def.CountingType == CountDuration {
					detail = "duration must be a positive number of seconds"
				}
				return nil, &WorkoutValidationError{Exercise: pos, Set: j + 1, Detail: detail}
			}
			instance.Sets = append(instance.Sets, SetEntry{
				ID:       uuid.NewString(),
				Position: j + 1,
				Value:    value,
			})
		}
		workout.Exercises = append(workout.Exercises, instance)
	}

	if err := s.repo.CreateWorkout(ctx, workout); err != nil {
		return nil, err
	}
	return &workout, nil
}

// Get fetches a workout aggregate by ID.
func (s *WorkoutService) Get(ctx context.Context, id string) (*Workout, error) {
	workout, err := s.repo.GetWorkout(ctx, id)
	if err != nil {
		return nil, err
	}
	if workout == nil {
		return nil, ErrNotFound
	}
	return workout, nil
}

// ListByOwner pages through one profile's workouts, newest first.
func (s *WorkoutService) ListByOwner(ctx context.Context, ownerID string, page Page) ([]Workout, error) {
	return s.repo.ListByOwner(ctx, ownerID, page)
}

// Explore pages through other people's workouts, newest first.
func (s *WorkoutService) Explore(ctx context.Context, viewerID string, page Page) ([]Workout, error) {
	return s.repo.ListOthers(ctx, viewerID, page)
}

// Delete removes an owned workout. Instances and sets cascade with it;
// referenced definitions survive.
func (s *WorkoutService) Delete(ctx context.Context, ownerID, id string) error {
	return s.repo.DeleteWorkout(ctx, ownerID, id)
}
