package observability

import (
	"sort"
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu           sync.Mutex
	requestCount map[string]int64
	errorCount   map[string]int64
	sweep        SweepCounters
	outbox       OutboxCounters
}

// SweepCounters accumulate over every expiry sweep of the process.
type SweepCounters struct {
	Runs           int64     `json:"runs"`
	Failures       int64     `json:"failures"`
	Skipped        int64     `json:"skipped"`
	TicketsExpired int64     `json:"tickets_expired"`
	TicketsWarned  int64     `json:"tickets_warned"`
	LastRunAt      time.Time `json:"last_run_at,omitempty"`
	LastDuration   string    `json:"last_duration,omitempty"`
}

// OutboxCounters accumulate relay outcomes.
type OutboxCounters struct {
	Dispatched int64 `json:"dispatched"`
	Failed     int64 `json:"failed"`
}

// Snapshot is a point-in-time copy of every counter.
type Snapshot struct {
	Requests map[string]int64 `json:"requests"`
	Errors   map[string]int64 `json:"errors"`
	Sweep    SweepCounters    `json:"sweep"`
	Outbox   OutboxCounters   `json:"outbox"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
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

// RecordSweep records one finished sweep.
func (m *Metrics) RecordSweep(expired, warned int, duration time.Duration, failed bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweep.Runs++
	if failed {
		m.sweep.Failures++
	}
	m.sweep.TicketsExpired += int64(expired)
	m.sweep.TicketsWarned += int64(warned)
	m.sweep.LastRunAt = time.Now().UTC()
	m.sweep.LastDuration = duration.String()
}

// RecordSweepSkipped counts a tick that did not run because another sweep held
// the lock or was still in flight.
func (m *Metrics) RecordSweepSkipped() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweep.Skipped++
}

// RecordOutbox adds relay outcomes.
func (m *Metrics) RecordOutbox(dispatched, failed int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outbox.Dispatched += int64(dispatched)
	m.outbox.Failed += int64(failed)
}

// Snapshot copies the current counters.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{Requests: map[string]int64{}, Errors: map[string]int64{}}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		Requests: copyCounts(m.requestCount),
		Errors:   copyCounts(m.errorCount),
		Sweep:    m.sweep,
		Outbox:   m.outbox,
	}
}

// RequestKeys lists recorded request keys in order, mostly for tests.
func (s Snapshot) RequestKeys() []string {
	keys := make([]string, 0, len(s.Requests))
	for k := range s.Requests {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func copyCounts(src map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
