package notify

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// QueuePublisher publishes a JSON-serializable message onto a named queue.
type QueuePublisher interface {
	Publish(queueName string, message interface{}) error
}

// Queue forwards trade lifecycle events onto a durable message queue for
// downstream consumers (accounting, dashboards). Same best-effort contract
// as the other sinks.
type Queue struct {
	publisher QueuePublisher
	queue     string
}

func NewQueue(publisher QueuePublisher, queue string) *Queue {
	return &Queue{publisher: publisher, queue: queue}
}

func (q *Queue) Notify(event string, payload map[string]interface{}) {
	msg := map[string]interface{}{
		"event":       event,
		"payload":     payload,
		"observed_at": time.Now().UTC(),
	}
	if err := q.publisher.Publish(q.queue, msg); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"event": event,
			"queue": q.queue,
		}).Error("failed to publish trade event")
	}
}

// Multi fans each event out to every sink in order.
type Multi []Notifier

func (m Multi) Notify(event string, payload map[string]interface{}) {
	for _, n := range m {
		n.Notify(event, payload)
	}
}
