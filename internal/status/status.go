// Package status provides a thread-safe view of the controller's state for
// HTTP handlers and MQTT system events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/airloop/internal/telemetry"
)

// Health mirrors the loop's per-subsystem counters. This is a local copy to
// avoid importing internal/loop from status.
type Health struct {
	SensorConsecutive  uint64
	SensorFailures     uint64
	BridgeConsecutive  uint64
	BridgeFailures     uint64
	PublishConsecutive uint64
	PublishFailures    uint64
	Cycles             uint64
	DeadlineMisses     uint64
}

// Config contains controller configuration for display.
type Config struct {
	PeriodMs         int64
	BudgetMs         int64
	SerialPort       string
	SimURL           string
	Broker           string
	HTTPAddr         string
	FailureThreshold uint64
}

// Snapshot is a point-in-time view of controller state.
// It is a value type — safe to use after the lock is released.
type Snapshot struct {
	StartTime     time.Time
	Now           time.Time
	Last          telemetry.Snapshot
	HaveCycle     bool
	SafeFallback  bool
	MQTTConnected bool
	Health        Health
	Config        Config
}

// Uptime returns the duration since the controller started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable controller state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update records the outcome of one cycle.
func (t *Tracker) Update(last telemetry.Snapshot, health Health, safeFallback bool) {
	t.mu.Lock()
	t.snap.Last = last
	t.snap.HaveCycle = true
	t.snap.Health = health
	t.snap.SafeFallback = safeFallback
	t.mu.Unlock()
}

// SetMQTTConnected sets the telemetry connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the controller state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
