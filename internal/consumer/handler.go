package consumer

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of a pgx pool used by the EventLogHandler.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// EventLogHandler writes consumed events into Postgres for downstream auditing.
type EventLogHandler struct {
	db DB
}

// NewEventLogHandler constructs a handler backed by the provided pool.
func NewEventLogHandler(db DB) *EventLogHandler {
	return &EventLogHandler{db: db}
}

// Handle stores the event payload in the domain_event_log table. Replayed
// records are ignored, keyed by (topic, partition, offset).
func (h *EventLogHandler) Handle(ctx context.Context, msg Message) error {
	_, err := h.db.Exec(ctx,
		`INSERT INTO domain_event_log (event_type, schema_id, schema_subject, topic, record_partition, record_offset, payload, received_at)
         VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
         ON CONFLICT (topic, record_partition, record_offset) DO NOTHING`,
		msg.EventType,
		msg.SchemaID,
		msg.SchemaSubject,
		msg.Topic,
		msg.Partition,
		msg.Offset,
		msg.Payload,
		msg.Timestamp,
	)
	return err
}
