package webhooks

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Delivery is one pending callback POST.
type Delivery struct {
	ID            string
	EventType     string
	URL           string
	Secret        string
	Payload       []byte
	Attempts      int
	NextAttemptAt time.Time
	LastError     string
	ResponseCode  int
	LatencyMs     int
}

// Queue holds deliveries in memory until they succeed or run out of attempts.
type Queue struct {
	mu      sync.Mutex
	pending map[string]*Delivery
	order   []string
	dead    []Delivery
	sent    int
}

func NewQueue() *Queue { return &Queue{pending: map[string]*Delivery{}} }

// Enqueue schedules d for immediate delivery and returns its ID.
func (q *Queue) Enqueue(d Delivery) string {
	q.mu.Lock()
	defer q.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	q.pending[d.ID] = &d
	q.order = append(q.order, d.ID)
	return d.ID
}

// due returns copies of up to limit deliveries whose next attempt is not after now.
func (q *Queue) due(now time.Time, limit int) []Delivery {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []Delivery
	for _, id := range q.order {
		d, ok := q.pending[id]
		if !ok || d.NextAttemptAt.After(now) {
			continue
		}
		out = append(out, *d)
		if len(out) == limit {
			break
		}
	}
	return out
}

func (q *Queue) remove(id string) {
	delete(q.pending, id)
	for i, v := range q.order {
		if v == id {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
}

// mark records an attempt. Successful deliveries leave the queue; failed ones
// are rescheduled at next.
func (q *Queue) mark(id string, success bool, next time.Time, lastErr string, code, latency int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	d, ok := q.pending[id]
	if !ok {
		return
	}
	if success {
		q.sent++
		q.remove(id)
		return
	}
	d.Attempts++
	d.NextAttemptAt = next
	d.LastError, d.ResponseCode, d.LatencyMs = lastErr, code, latency
}

// fail moves a delivery to the dead-letter list.
func (q *Queue) fail(id string, lastErr string, code, latency int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	d, ok := q.pending[id]
	if !ok {
		return
	}
	d.Attempts++
	d.LastError, d.ResponseCode, d.LatencyMs = lastErr, code, latency
	q.dead = append(q.dead, *d)
	q.remove(id)
}

// Pending is the number of deliveries still waiting.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Sent is the number of deliveries that succeeded.
func (q *Queue) Sent() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.sent
}

// Dead returns the deliveries that exhausted their attempts.
func (q *Queue) Dead() []Delivery {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Delivery(nil), q.dead...)
}
