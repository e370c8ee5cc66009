package webhooks

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Publisher struct {
	Queue *Queue
}

func NewPublisher(q *Queue) *Publisher {
	return &Publisher{Queue: q}
}

// Emit queues a signed POST of the event to url. Nothing is sent when url is empty.
func (p *Publisher) Emit(url, secret, eventType string, data any) (string, error) {
	if url == "" {
		return "", nil
	}
	body, err := json.Marshal(map[string]any{
		"id":   "evt_" + uuid.New().String(),
		"type": eventType,
		"ts":   time.Now().UTC().Format(time.RFC3339),
		"data": data,
	})
	if err != nil {
		return "", err
	}
	return p.Queue.Enqueue(Delivery{EventType: eventType, URL: url, Secret: secret, Payload: body}), nil
}
