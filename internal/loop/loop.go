// Package loop is the cycle orchestrator: it sequences sensor poll,
// simulation round-trip, actuation, and telemetry publish on a fixed period,
// holding a per-cycle time budget and per-subsystem failure counters. It is
// the only place failure policy is decided: stage errors never escape it.
package loop

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sweeney/airloop/internal/actuator"
	"github.com/sweeney/airloop/internal/modbus"
	"github.com/sweeney/airloop/internal/sim"
	"github.com/sweeney/airloop/internal/status"
	"github.com/sweeney/airloop/internal/telemetry"
)

// Counter tracks failures for one subsystem. Consecutive resets only on a
// successful operation of that subsystem.
type Counter struct {
	Consecutive uint64
	Total       uint64
}

func (c *Counter) fail() {
	c.Consecutive++
	c.Total++
}

func (c *Counter) ok() {
	c.Consecutive = 0
}

// Health holds all per-subsystem counters. Monotonically updated by the
// orchestrator only.
type Health struct {
	Sensor         Counter
	Bridge         Counter
	Publish        Counter
	Cycles         uint64
	DeadlineMisses uint64
}

// Config tunes the orchestrator.
type Config struct {
	// Period is the cycle interval.
	Period time.Duration

	// Budget bounds one cycle's wall-clock time. On overrun the remaining
	// stages are skipped for that cycle only.
	Budget time.Duration

	// FailureThreshold is the consecutive-failure count of the sensor or
	// bridge at which the actuators are forced to their safe fallback.
	// Zero disables forcing (stale values are still held and tagged).
	FailureThreshold uint64
}

// CycleResult summarizes one pass for tests and the status tracker.
type CycleResult struct {
	Snapshot     telemetry.Snapshot
	Published    bool
	SafeFallback bool
	DeadlineMiss bool
	State        actuator.State
}

// Orchestrator drives the control cycle. Not safe for concurrent use: one
// cycle runs at a time, which also guarantees exclusive bus and actuator
// ownership.
type Orchestrator struct {
	sensor    modbus.Reader
	bridge    sim.Bridge
	actuators *actuator.Controller
	publisher telemetry.Publisher
	tracker   *status.Tracker
	log       *logrus.Logger
	cfg       Config
	now       func() time.Time

	lastReading  modbus.Reading
	haveReading  bool
	readingStale bool
	lastSample   sim.Sample
	haveSample   bool
	sampleStale  bool
	health       Health
}

// New creates an orchestrator. The tracker may be nil.
func New(sensor modbus.Reader, bridge sim.Bridge, actuators *actuator.Controller,
	publisher telemetry.Publisher, tracker *status.Tracker, cfg Config, log *logrus.Logger) *Orchestrator {
	return &Orchestrator{
		sensor:    sensor,
		bridge:    bridge,
		actuators: actuators,
		publisher: publisher,
		tracker:   tracker,
		log:       log,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Health returns a copy of the current counters.
func (o *Orchestrator) Health() Health {
	return o.health
}

// Run executes cycles until ctx is canceled. The first cycle runs
// immediately; subsequent ones on the period tick. Cycle execution is
// expected to finish well inside the period.
func (o *Orchestrator) Run(ctx context.Context) {
	ticker := time.NewTicker(o.cfg.Period)
	defer ticker.Stop()

	o.RunCycle()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.RunCycle()
		}
	}
}

// RunCycle executes one full pass: Polling → Simulating → Actuating →
// Publishing. Every stage error is converted here into counters, a
// stale/fallback decision, and a log line.
func (o *Orchestrator) RunCycle() CycleResult {
	start := o.now()
	deadline := start.Add(o.cfg.Budget)
	o.health.Cycles++

	var result CycleResult

	// Polling
	reading, err := o.sensor.Poll()
	if err != nil {
		o.health.Sensor.fail()
		o.readingStale = o.haveReading
		o.log.WithError(err).WithFields(logrus.Fields{
			"consecutive": o.health.Sensor.Consecutive,
			"held":        o.haveReading,
		}).Warn("loop: sensor poll failed")
	} else {
		o.health.Sensor.ok()
		o.lastReading = reading
		o.haveReading = true
		o.readingStale = false
	}

	if o.checkDeadline(deadline, "polling") {
		return o.finish(result, true)
	}

	// Simulating. The bridge needs an input; with no reading ever seen
	// there is nothing to push and the stage passes through empty.
	if o.haveReading {
		ctx, cancel := context.WithDeadline(context.Background(), deadline)
		sample, err := o.bridge.UpdateAndFetch(ctx, o.lastReading.Temperature)
		cancel()
		if err != nil {
			o.health.Bridge.fail()
			o.sampleStale = o.haveSample
			o.log.WithError(err).WithFields(logrus.Fields{
				"consecutive": o.health.Bridge.Consecutive,
				"held":        o.haveSample,
			}).Warn("loop: simulation bridge failed")
		} else {
			o.health.Bridge.ok()
			o.lastSample = sample
			o.haveSample = true
			o.sampleStale = false
		}
	}

	if o.checkDeadline(deadline, "simulating") {
		return o.finish(result, true)
	}

	// Actuating. Never fails the cycle; repeated acquisition failures
	// force the safe fallback, otherwise the most recent valid reading
	// (fresh or held) drives the policy.
	result.SafeFallback = o.forcedSafe()
	if result.SafeFallback || !o.haveReading {
		result.State = o.actuators.ApplySafe(o.now())
		if result.SafeFallback {
			o.log.WithFields(logrus.Fields{
				"sensor_consecutive": o.health.Sensor.Consecutive,
				"bridge_consecutive": o.health.Bridge.Consecutive,
			}).Warn("loop: actuators forced to safe fallback")
		}
	} else {
		result.State = o.actuators.Apply(o.lastReading, o.now())
	}

	result.Snapshot = o.buildSnapshot(result.State)

	if o.checkDeadline(deadline, "actuating") {
		return o.finish(result, true)
	}

	// Publishing. A failed publish is counted and superseded by the next
	// cycle's snapshot; nothing is queued.
	if err := o.publisher.Publish(result.Snapshot); err != nil {
		o.health.Publish.fail()
		o.log.WithError(err).WithField("consecutive", o.health.Publish.Consecutive).
			Warn("loop: telemetry publish failed")
	} else {
		o.health.Publish.ok()
		result.Published = true
	}

	return o.finish(result, false)
}

// forcedSafe reports whether acquisition has failed often enough that the
// actuators must not trust even a held value.
func (o *Orchestrator) forcedSafe() bool {
	n := o.cfg.FailureThreshold
	if n == 0 {
		return false
	}
	return o.health.Sensor.Consecutive >= n || o.health.Bridge.Consecutive >= n
}

// checkDeadline logs and counts a budget overrun after the named stage.
func (o *Orchestrator) checkDeadline(deadline time.Time, stage string) bool {
	if !o.now().After(deadline) {
		return false
	}
	o.health.DeadlineMisses++
	o.log.WithFields(logrus.Fields{
		"stage":  stage,
		"budget": o.cfg.Budget,
	}).Warn("loop: cycle budget exceeded, skipping remaining stages")
	return true
}

// finish fills in the result, updates the tracker, and returns. A cycle cut
// short by the budget still records what it had.
func (o *Orchestrator) finish(result CycleResult, deadlineMiss bool) CycleResult {
	result.DeadlineMiss = deadlineMiss
	if result.Snapshot.Timestamp.IsZero() {
		result.Snapshot = o.buildSnapshot(o.actuators.State())
	}

	if o.tracker != nil {
		o.tracker.Update(result.Snapshot, o.statusHealth(), result.SafeFallback)
		if cs, ok := o.publisher.(telemetry.ConnectionStatus); ok {
			o.tracker.SetMQTTConnected(cs.IsConnected())
		}
	}
	return result
}

// buildSnapshot assembles the immutable per-cycle aggregate. Stale values
// are carried with their flags set; absent values stay zero with their
// valid flags false.
func (o *Orchestrator) buildSnapshot(state actuator.State) telemetry.Snapshot {
	snap := telemetry.Snapshot{
		Timestamp:    o.now(),
		Cycle:        o.health.Cycles,
		ReadingValid: o.haveReading,
		ReadingStale: o.readingStale,
		SampleValid:  o.haveSample,
		SampleStale:  o.sampleStale,
		FanOn:        state.FanOn,
		PumpOn:       state.PumpOn,
		Counters: telemetry.Counters{
			Cycles:          o.health.Cycles,
			SensorFailures:  o.health.Sensor.Total,
			BridgeFailures:  o.health.Bridge.Total,
			PublishFailures: o.health.Publish.Total,
			DeadlineMisses:  o.health.DeadlineMisses,
		},
	}
	if o.haveReading {
		snap.Temperature = o.lastReading.Temperature
		snap.Humidity = o.lastReading.Humidity
		snap.SimInput = o.lastReading.Temperature
	}
	if o.haveSample {
		snap.SimOutput = o.lastSample.Output
	}
	return snap
}

func (o *Orchestrator) statusHealth() status.Health {
	return status.Health{
		SensorConsecutive:  o.health.Sensor.Consecutive,
		SensorFailures:     o.health.Sensor.Total,
		BridgeConsecutive:  o.health.Bridge.Consecutive,
		BridgeFailures:     o.health.Bridge.Total,
		PublishConsecutive: o.health.Publish.Consecutive,
		PublishFailures:    o.health.Publish.Total,
		Cycles:             o.health.Cycles,
		DeadlineMisses:     o.health.DeadlineMisses,
	}
}
