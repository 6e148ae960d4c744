package outbox

import "context"

// DLQWriter persists failed events for investigation.
type DLQWriter struct {
	db DB
}

// NewDLQWriter initialises a writer backed by the provided connection pool.
func NewDLQWriter(db DB) *DLQWriter {
	return &DLQWriter{db: db}
}

// Write records a failed outbox message in the DLQ alongside the supplied reason.
func (w *DLQWriter) Write(ctx context.Context, msg Message, reason string) error {
	const stmt = `INSERT INTO outbox_dlq (event_id, aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, reason)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

	_, err := w.db.Exec(ctx, stmt,
		msg.EventID, msg.AggregateType, msg.AggregateID, msg.EventType, msg.Topic, msg.SchemaSubject, msg.PartitionKey, msg.Payload, reason,
	)
	return err
}
