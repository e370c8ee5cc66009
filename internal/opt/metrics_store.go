package opt

import "sync"

type key struct {
	Instance string
	Algo     string
}

var (
	mu    sync.Mutex
	store = map[key]Metrics{}
)

// RecordMetrics keeps the latest metrics of an instance/algorithm pair in memory.
func RecordMetrics(instance, algo string, m Metrics) {
	mu.Lock()
	store[key{Instance: instance, Algo: algo}] = m
	mu.Unlock()
}

// GetMetrics returns the recorded metrics of an instance keyed by algorithm.
func GetMetrics(instance string) map[string]Metrics {
	mu.Lock()
	defer mu.Unlock()
	out := map[string]Metrics{}
	for k, v := range store {
		if k.Instance == instance {
			out[k.Algo] = v
		}
	}
	return out
}
