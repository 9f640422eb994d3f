package analysis

import (
	"sort"
	"sync"
	"time"

	"sshwatch/internal/models"
	"sshwatch/internal/sshproto"
)

// FlowSnapshot is a copy of what has been observed on one connection.
type FlowSnapshot struct {
	Key       models.FlowKey
	FirstSeen time.Time
	LastSeen  time.Time
	Chunks    int
	Bytes     int64

	// Closed is set once both directions have ended.
	Closed bool

	// Client holds what the client sent, Server what the server sent.
	Client sshproto.Observation
	Server sshproto.Observation
}

// Counters holds totals across all flows.
type Counters struct {
	Chunks  int64
	Bytes   int64
	Flows   int // still tracked
	Retired int // kept for reporting only
}

type flowEntry struct {
	firstSeen time.Time
	lastSeen  time.Time
	chunks    int
	bytes     int64

	client      sshproto.Record
	server      sshproto.Record
	clientEnded bool
	serverEnded bool
}

// FlowTable owns one pair of SSH records per connection and feeds chunks
// into them in arrival order. Flows that end or go idle are retired into
// a bounded history so they still show up in reports.
type FlowTable struct {
	mu sync.Mutex

	config Config
	flows  map[models.FlowKey]*flowEntry

	// Retired flows (circular buffer)
	retired    []FlowSnapshot
	maxRetired int

	totalChunks int64
	totalBytes  int64

	// clock is the newest chunk timestamp seen; all aging runs on it.
	clock       time.Time
	lastCleanup time.Time

	anomalyDetector *AnomalyDetector
}

// NewFlowTable creates an empty flow table.
func NewFlowTable(cfg Config) *FlowTable {
	maxRetired := cfg.MaxRetiredFlows
	if maxRetired <= 0 {
		maxRetired = 1024
	}
	return &FlowTable{
		config:          cfg,
		flows:           make(map[models.FlowKey]*flowEntry),
		maxRetired:      maxRetired,
		anomalyDetector: NewAnomalyDetector(cfg),
	}
}

// ProcessChunk updates the flow the chunk belongs to.
func (t *FlowTable) ProcessChunk(chunk models.FlowChunk) {
	key := chunk.Key()

	t.mu.Lock()

	now := t.advance(chunk.Timestamp)

	// Lazy cleanup
	if t.lastCleanup.IsZero() {
		t.lastCleanup = t.clock
	} else if t.clock.Sub(t.lastCleanup) > t.config.CleanupInterval {
		t.cleanup(t.clock)
		t.lastCleanup = t.clock
	}

	if chunk.End {
		t.endDirection(key, chunk.ResolvedDirection())
		t.mu.Unlock()
		return
	}

	entry, ok := t.flows[key]
	if !ok {
		entry = &flowEntry{firstSeen: now}
		t.flows[key] = entry
	}
	entry.lastSeen = now
	entry.chunks++
	entry.bytes += int64(len(chunk.Payload))
	t.totalChunks++
	t.totalBytes += int64(len(chunk.Payload))

	// The direction is known here, so the banner role follows it.
	rec, acc := &entry.client, sshproto.Accumulator{Policy: sshproto.AssumeClient}
	if chunk.ResolvedDirection() == models.ToClient {
		rec, acc = &entry.server, sshproto.Accumulator{Policy: sshproto.AssumeServer}
	}

	before := rec.Observation()
	acc.Update(rec, chunk.Payload, t.config.DeepInspection)
	after := rec.Observation()

	// Anomaly detector has its own mutex
	t.mu.Unlock()
	t.anomalyDetector.ProcessObservation(key, before, after, now)
}

// advance moves the table clock forward and returns the time to stamp the
// chunk with. Chunks without a timestamp take the current clock, or wall
// time before any timestamped chunk arrived.
func (t *FlowTable) advance(ts time.Time) time.Time {
	if ts.IsZero() {
		if t.clock.IsZero() {
			t.clock = time.Now()
		}
		return t.clock
	}
	if ts.After(t.clock) {
		t.clock = ts
	}
	return ts
}

// endDirection marks one side of a flow finished and retires the flow once
// both sides are.
func (t *FlowTable) endDirection(key models.FlowKey, dir models.Direction) {
	entry, ok := t.flows[key]
	if !ok {
		return
	}
	if dir == models.ToClient {
		entry.serverEnded = true
	} else {
		entry.clientEnded = true
	}
	if entry.clientEnded && entry.serverEnded {
		t.retire(key, entry)
	}
}

// cleanup retires flows that have been idle longer than the retention period.
func (t *FlowTable) cleanup(now time.Time) {
	for key, entry := range t.flows {
		if now.Sub(entry.lastSeen) > t.config.DataRetention {
			t.retire(key, entry)
		}
	}
}

func (t *FlowTable) retire(key models.FlowKey, entry *flowEntry) {
	delete(t.flows, key)
	t.retired = append(t.retired, entry.snapshot(key))

	// Keep only last maxRetired
	if len(t.retired) > t.maxRetired {
		t.retired = t.retired[len(t.retired)-t.maxRetired:]
	}
}

// GetFlows returns copies of all tracked and retired flows, oldest first.
func (t *FlowTable) GetFlows() []FlowSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	result := make([]FlowSnapshot, 0, len(t.retired)+len(t.flows))
	result = append(result, t.retired...)
	for key, entry := range t.flows {
		result = append(result, entry.snapshot(key))
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].FirstSeen.Equal(result[j].FirstSeen) {
			return result[i].Key.String() < result[j].Key.String()
		}
		return result[i].FirstSeen.Before(result[j].FirstSeen)
	})

	return result
}

// GetCounters returns totals since the table was created.
func (t *FlowTable) GetCounters() Counters {
	t.mu.Lock()
	defer t.mu.Unlock()

	return Counters{
		Chunks:  t.totalChunks,
		Bytes:   t.totalBytes,
		Flows:   len(t.flows),
		Retired: len(t.retired),
	}
}

// GetAlerts returns recent alerts.
func (t *FlowTable) GetAlerts(limit int) []Alert {
	return t.anomalyDetector.GetRecentAlerts(limit)
}

func (e *flowEntry) snapshot(key models.FlowKey) FlowSnapshot {
	return FlowSnapshot{
		Key:       key,
		FirstSeen: e.firstSeen,
		LastSeen:  e.lastSeen,
		Chunks:    e.chunks,
		Bytes:     e.bytes,
		Closed:    e.clientEnded && e.serverEnded,
		Client:    e.client.Observation(),
		Server:    e.server.Observation(),
	}
}
