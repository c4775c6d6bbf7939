// Package telemetry serializes per-cycle snapshots and publishes them to the
// configured sinks (ThingsBoard-style MQTT, optionally InfluxDB).
package telemetry

import (
	"encoding/json"
	"errors"
	"time"
)

// Publisher errors. A failed publish is never fatal to the control loop: the
// next cycle's snapshot supersedes it and nothing is queued.
var (
	// ErrDisconnected means the sink connection is down.
	ErrDisconnected = errors.New("telemetry: disconnected")

	// ErrTimeout means the sink did not accept the message in time.
	ErrTimeout = errors.New("telemetry: publish timeout")
)

// Counters carries the loop's health totals into the snapshot.
type Counters struct {
	Cycles          uint64
	SensorFailures  uint64
	BridgeFailures  uint64
	PublishFailures uint64
	DeadlineMisses  uint64
}

// Snapshot is the immutable per-cycle aggregate handed to the publisher.
// It is built once per cycle and discarded after the publish attempt.
type Snapshot struct {
	Timestamp time.Time
	Cycle     uint64

	// Sensor reading (last known good when stale).
	Temperature  float64
	Humidity     float64
	ReadingValid bool
	ReadingStale bool

	// Simulation sample (last known good when stale).
	SimInput    float64
	SimOutput   float64
	SampleValid bool
	SampleStale bool

	// Applied actuator state.
	FanOn  bool
	PumpOn bool

	Counters Counters
}

// Publisher publishes snapshots and system lifecycle events.
type Publisher interface {
	// Publish sends one snapshot, bounded by a short timeout.
	Publish(snap Snapshot) error

	// PublishSystem sends a system lifecycle event (startup, shutdown).
	PublishSystem(event SystemEvent) error

	// Close disconnects from the sink.
	Close() error
}

// ConnectionStatus reports whether the sink connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent is a lifecycle event (STARTUP, SHUTDOWN) published on the
// system topic.
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g. "STARTUP", "SHUTDOWN"
	Reason     string // e.g. "SIGTERM" (shutdown only)
	RawPayload []byte // pre-formatted payload; if set it is sent verbatim
	Retained   bool
}

// Payload is the device telemetry wire format: a millisecond timestamp
// envelope around the value map, as ThingsBoard expects.
type Payload struct {
	TS     int64  `json:"ts"`
	Values Values `json:"values"`
}

// Values holds the published quantities. Field names match the dashboard's
// existing keys; AirOut is omitted when no simulation output is available.
type Values struct {
	AirIn        float64  `json:"Air_In"`
	AirOut       *float64 `json:"Air_Out,omitempty"`
	Temperature  float64  `json:"Temperature"`
	Humidity     float64  `json:"Humidity"`
	FanStatus    int      `json:"Fan_Status"`
	PumpStatus   int      `json:"Compressor_Status"`
	ReadingStale bool     `json:"Reading_Stale"`
	SampleStale  bool     `json:"Sample_Stale"`
}

// FormatPayload creates the JSON payload for one snapshot.
func FormatPayload(snap Snapshot) ([]byte, error) {
	values := Values{
		AirIn:        snap.SimInput,
		Temperature:  snap.Temperature,
		Humidity:     snap.Humidity,
		FanStatus:    statusBit(snap.FanOn),
		PumpStatus:   statusBit(snap.PumpOn),
		ReadingStale: snap.ReadingStale,
		SampleStale:  snap.SampleStale,
	}
	if snap.SampleValid {
		out := snap.SimOutput
		values.AirOut = &out
	}

	return json.Marshal(Payload{
		TS:     snap.Timestamp.UnixMilli(),
		Values: values,
	})
}

// SystemPayload is the wire format for system lifecycle events.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event. If
// event.RawPayload is set it is returned directly (used for full status
// snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	return json.Marshal(SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	})
}

func statusBit(on bool) int {
	if on {
		return 1
	}
	return 0
}
