// Package events defines the payloads emitted through the transactional outbox.
package events

import "time"

// WorkoutCreated is emitted when a workout aggregate is committed.
type WorkoutCreated struct {
	WorkoutID     string    `json:"workout_id"`
	OwnerID       string    `json:"owner_id"`
	Title         string    `json:"title"`
	StartedAt     time.Time `json:"started_at"`
	ExerciseCount int       `json:"exercise_count"`
	SetCount      int       `json:"set_count"`
}

// WorkoutDeleted is emitted when a workout aggregate is removed.
type WorkoutDeleted struct {
	WorkoutID  string    `json:"workout_id"`
	OwnerID    string    `json:"owner_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// MessageSent is emitted when a direct message is stored. The body stays in
// Postgres; downstream consumers only need the routing facts.
type MessageSent struct {
	MessageID   string    `json:"message_id"`
	SenderID    string    `json:"sender_id"`
	RecipientID string    `json:"recipient_id"`
	SentAt      time.Time `json:"sent_at"`
}
