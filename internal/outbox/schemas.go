package outbox

const workoutCreatedSchema = `{
  "type": "object",
  "title": "WorkoutCreated",
  "properties": {
    "workout_id": {"type": "string"},
    "owner_id": {"type": "string"},
    "title": {"type": "string"},
    "started_at": {"type": "string", "format": "date-time"},
    "exercise_count": {"type": "integer"},
    "set_count": {"type": "integer"}
  },
  "required": ["workout_id", "owner_id", "title", "started_at", "exercise_count", "set_count"],
  "additionalProperties": false
}`

const workoutDeletedSchema = `{
  "type": "object",
  "title": "WorkoutDeleted",
  "properties": {
    "workout_id": {"type": "string"},
    "owner_id": {"type": "string"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["workout_id", "owner_id", "occurred_at"],
  "additionalProperties": false
}`

const messageSentSchema = `{
  "type": "object",
  "title": "MessageSent",
  "properties": {
    "message_id": {"type": "string"},
    "sender_id": {"type": "string"},
    "recipient_id": {"type": "string"},
    "sent_at": {"type": "string", "format": "date-time"}
  },
  "required": ["message_id", "sender_id", "recipient_id", "sent_at"],
  "additionalProperties": false
}`
