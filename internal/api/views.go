package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/richi-sixt/calisthenics-progression/internal/domain"
)

// CreateWorkoutRequest is the payload for POST /v1/workouts.
type CreateWorkoutRequest struct {
	Title     string                   `json:"title"`
	StartedAt time.Time                `json:"started_at"`
	Exercises []WorkoutExerciseRequest `json:"exercises"`
}

// WorkoutExerciseRequest plans one exercise slot within a workout.
type WorkoutExerciseRequest struct {
	DefinitionID string `json:"definition_id"`
	Sets         []int  `json:"sets"`
}

// Validate ensures request correctness. Per-exercise checks live in the
// domain layer, which pins failures to exercise and set positions.
func (r CreateWorkoutRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return errors.New("title is required")
	}
	if len(r.Exercises) == 0 {
		return errors.New("at least one exercise is required")
	}
	return nil
}

// CreateDefinitionRequest is the payload for POST /v1/exercises.
type CreateDefinitionRequest struct {
	Title        string `json:"title"`
	CountingType string `json:"counting_type"`
	Description  string `json:"description"`
}

// Validate ensures request correctness.
func (r CreateDefinitionRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return errors.New("title is required")
	}
	if strings.TrimSpace(r.CountingType) == "" {
		return errors.New("counting_type is required")
	}
	return nil
}

// UpdateDefinitionRequest is the payload for PUT /v1/exercises/{id}.
type UpdateDefinitionRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Validate ensures request correctness.
func (r UpdateDefinitionRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return errors.New("title is required")
	}
	return nil
}

// ArchiveDefinitionRequest optionally overrides the archived flag. An empty
// body archives the definition.
type ArchiveDefinitionRequest struct {
	Archived *bool `json:"archived"`
}

// SendMessageRequest is the payload for POST /v1/messages.
type SendMessageRequest struct {
	Recipient string `json:"recipient"`
	Body      string `json:"body"`
}

// Validate ensures request correctness.
func (r SendMessageRequest) Validate() error {
	if strings.TrimSpace(r.Recipient) == "" {
		return errors.New("recipient is required")
	}
	return nil
}

// WorkoutView exposes a full workout aggregate.
type WorkoutView struct {
	ID        string                 `json:"id"`
	OwnerID   string                 `json:"owner_id"`
	Owner     string                 `json:"owner"`
	Title     string                 `json:"title"`
	StartedAt time.Time              `json:"started_at"`
	CreatedAt time.Time              `json:"created_at"`
	Exercises []ExerciseInstanceView `json:"exercises"`
}

// ExerciseInstanceView exposes one exercise slot inside a workout.
type ExerciseInstanceView struct {
	ID           string    `json:"id"`
	DefinitionID string    `json:"definition_id"`
	Title        string    `json:"title"`
	CountingType string    `json:"counting_type"`
	Position     int       `json:"position"`
	Sets         []SetView `json:"sets"`
}

// SetView exposes one recorded set.
type SetView struct {
	ID       string `json:"id"`
	Position int    `json:"position"`
	Value    int    `json:"value"`
}

// WorkoutListResponse packages workout listings.
type WorkoutListResponse struct {
	Items []WorkoutView `json:"items"`
	Page  int           `json:"page"`
}

// DefinitionView exposes one exercise definition.
type DefinitionView struct {
	ID           string    `json:"id"`
	Owner        string    `json:"owner"`
	Title        string    `json:"title"`
	CountingType string    `json:"counting_type"`
	Description  string    `json:"description"`
	Archived     bool      `json:"archived"`
	CreatedAt    time.Time `json:"created_at"`
}

// DefinitionListResponse packages definition listings.
type DefinitionListResponse struct {
	Items []DefinitionView `json:"items"`
	Page  int              `json:"page"`
}

// DefinitionGroupView holds one owner's definitions.
type DefinitionGroupView struct {
	Owner       string           `json:"owner"`
	Definitions []DefinitionView `json:"definitions"`
}

// SelectionResponse feeds the grouped exercise picker.
type SelectionResponse struct {
	Mine   []DefinitionView      `json:"mine"`
	Others []DefinitionGroupView `json:"others"`
}

// ProfileResponse describes one user profile with their workout page.
type ProfileResponse struct {
	Username    string        `json:"username"`
	LastSeen    time.Time     `json:"last_seen"`
	IsFollowing bool          `json:"is_following"`
	Workouts    []WorkoutView `json:"workouts"`
	Page        int           `json:"page"`
}

// MessageView exposes one private message.
type MessageView struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// InboxResponse packages the inbox page with the unread count.
type InboxResponse struct {
	Items       []MessageView `json:"items"`
	UnreadCount int64         `json:"unread_count"`
	Page        int           `json:"page"`
}

// NotificationView exposes one feed entry. Clients keep the highest
// timestamp they have seen and poll with it as the since cursor.
type NotificationView struct {
	Name      string          `json:"name"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// WorkoutValidationPayload carries composer failures pinned to the offending
// exercise and set position. Positions are 1-based; zero is omitted.
type WorkoutValidationPayload struct {
	Type     string `json:"type"`
	Detail   string `json:"detail"`
	Exercise int    `json:"exercise,omitempty"`
	Set      int    `json:"set,omitempty"`
}

func toWorkoutView(workout domain.Workout) WorkoutView {
	view := WorkoutView{
		ID:        workout.ID,
		OwnerID:   workout.OwnerID,
		Owner:     workout.OwnerUsername,
		Title:     workout.Title,
		StartedAt: workout.StartedAt,
		CreatedAt: workout.CreatedAt,
		Exercises: make([]ExerciseInstanceView, 0, len(workout.Exercises)),
	}
	for _, instance := range workout.Exercises {
		instanceView := ExerciseInstanceView{
			ID:           instance.ID,
			DefinitionID: instance.DefinitionID,
			Title:        instance.Title,
			CountingType: string(instance.CountingType),
			Position:     instance.Position,
			Sets:         make([]SetView, 0, len(instance.Sets)),
		}
		for _, set := range instance.Sets {
			instanceView.Sets = append(instanceView.Sets, SetView{
				ID:       set.ID,
				Position: set.Position,
				Value:    set.Value,
			})
		}
		view.Exercises = append(view.Exercises, instanceView)
	}
	return view
}

func toWorkoutViews(workouts []domain.Workout) []WorkoutView {
	views := make([]WorkoutView, 0, len(workouts))
	for _, workout := range workouts {
		views = append(views, toWorkoutView(workout))
	}
	return views
}

func toDefinitionView(def domain.ExerciseDefinition) DefinitionView {
	return DefinitionView{
		ID:           def.ID,
		Owner:        def.OwnerUsername,
		Title:        def.Title,
		CountingType: string(def.CountingType),
		Description:  def.Description,
		Archived:     def.Archived,
		CreatedAt:    def.CreatedAt,
	}
}

func toDefinitionViews(defs []domain.ExerciseDefinition) []DefinitionView {
	views := make([]DefinitionView, 0, len(defs))
	for _, def := range defs {
		views = append(views, toDefinitionView(def))
	}
	return views
}

func toMessageView(message domain.Message) MessageView {
	return MessageView{
		ID:        message.ID,
		Sender:    message.SenderUsername,
		Body:      message.Body,
		CreatedAt: message.CreatedAt,
	}
}

func toMessageViews(messages []domain.Message) []MessageView {
	views := make([]MessageView, 0, len(messages))
	for _, message := range messages {
		views = append(views, toMessageView(message))
	}
	return views
}

func toNotificationViews(notifications []domain.Notification) []NotificationView {
	views := make([]NotificationView, 0, len(notifications))
	for _, notification := range notifications {
		views = append(views, NotificationView{
			Name:      notification.Name,
			Data:      notification.Payload,
			Timestamp: notification.Timestamp,
		})
	}
	return views
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
