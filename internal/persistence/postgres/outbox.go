package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const (
	eventTypeWorkoutCreated = "workout.created"
	eventTypeWorkoutDeleted = "workout.deleted"
	eventTypeMessageSent    = "message.sent"
)

// EventMetadata describes routing for outbox rows of one event type.
type EventMetadata struct {
	Topic         string
	SchemaSubject string
}

var eventCatalog = map[string]EventMetadata{
	eventTypeWorkoutCreated: {
		Topic:         "workout_events",
		SchemaSubject: "workout_events-value",
	},
	eventTypeWorkoutDeleted: {
		Topic:         "workout_events",
		SchemaSubject: "workout_events-value",
	},
	eventTypeMessageSent: {
		Topic:         "message_events",
		SchemaSubject: "message_events-value",
	},
}

// insertOutbox records a domain event in the same transaction as the state
// change it describes. The dispatcher picks it up after commit.
func insertOutbox(ctx context.Context, tx pgx.Tx, aggregateType, aggregateID, eventType, partitionKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	meta := eventCatalog[eventType]
	if meta.Topic == "" {
		return fmt.Errorf("unknown event type: %s", eventType)
	}

	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`

	_, err = tx.Exec(ctx, stmt,
		aggregateType,
		aggregateID,
		eventType,
		meta.Topic,
		meta.SchemaSubject,
		partitionKey,
		body,
	)
	return err
}
