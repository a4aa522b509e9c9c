package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu            sync.Mutex
	requestCount  map[string]int64
	errorCount    map[string]int64
	intentCount   map[string]int64
	stageFailures map[string]int64
	fallbacks     map[string]int64
	latencyTotal  time.Duration
	messages      int64
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	Requests      map[string]int64 `json:"requests"`
	Errors        map[string]int64 `json:"errors"`
	Intents       map[string]int64 `json:"intents"`
	StageFailures map[string]int64 `json:"stage_failures"`
	Fallbacks     map[string]int64 `json:"fallbacks"`
	Messages      int64            `json:"messages"`
	AvgMessageMS  float64          `json:"avg_message_ms"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:  make(map[string]int64),
		errorCount:    make(map[string]int64),
		intentCount:   make(map[string]int64),
		stageFailures: make(map[string]int64),
		fallbacks:     make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordMessage counts one pipeline run for the classified intent.
func (m *Metrics) RecordMessage(intent string, duration time.Duration) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.intentCount[intent]++
	m.messages++
	m.latencyTotal += duration
}

// RecordStageFailure counts a degraded outcome in a pipeline stage.
func (m *Metrics) RecordStageFailure(stage string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stageFailures[stage]++
}

// RecordFallback counts a reply or classification produced by a fallback path.
func (m *Metrics) RecordFallback(kind string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallbacks[kind]++
}

// Snapshot copies the current counters.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := Snapshot{
		Requests:      copyCounts(m.requestCount),
		Errors:        copyCounts(m.errorCount),
		Intents:       copyCounts(m.intentCount),
		StageFailures: copyCounts(m.stageFailures),
		Fallbacks:     copyCounts(m.fallbacks),
		Messages:      m.messages,
	}
	if m.messages > 0 {
		snap.AvgMessageMS = float64(m.latencyTotal.Milliseconds()) / float64(m.messages)
	}
	return snap
}

func copyCounts(src map[string]int64) map[string]int64 {
	dst := make(map[string]int64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
