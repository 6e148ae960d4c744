package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	workoutPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "training_service",
		Subsystem: "persistence",
		Name:      "last_workout_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent workout persisted to Postgres.",
	})
	notificationCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "training_service",
		Subsystem: "feed",
		Name:      "notifications_appended_total",
		Help:      "Count of notifications appended to user feeds.",
	}, []string{"name"})
	messageCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "training_service",
		Subsystem: "messaging",
		Name:      "messages_sent_total",
		Help:      "Count of direct messages stored.",
	})
)

func init() {
	prometheus.MustRegister(workoutPersistGauge, notificationCounter, messageCounter)
}

// RecordWorkoutPersisted updates the persistence watermark gauge.
func RecordWorkoutPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	workoutPersistGauge.Set(float64(ts.Unix()))
}

// RecordNotificationAppended counts one appended feed entry.
func RecordNotificationAppended(name string) {
	notificationCounter.WithLabelValues(name).Inc()
}

// RecordMessageSent counts one stored direct message.
func RecordMessageSent() {
	messageCounter.Inc()
}
