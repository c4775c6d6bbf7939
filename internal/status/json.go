package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string      `json:"event,omitempty"`
	Reason        string      `json:"reason,omitempty"`
	Ready         bool        `json:"ready"`
	SafeFallback  bool        `json:"safe_fallback"`
	UptimeSeconds int64       `json:"uptime_seconds"`
	StartTime     string      `json:"start_time"`
	Timestamp     string      `json:"timestamp"`
	Cycle         *CycleJSON  `json:"cycle,omitempty"`
	MQTT          MQTTStatus  `json:"mqtt"`
	Health        HealthJSON  `json:"health"`
	Config        ConfigJSON  `json:"config"`
}

// CycleJSON is the JSON representation of the last completed cycle.
type CycleJSON struct {
	Number       uint64   `json:"number"`
	Temperature  float64  `json:"temperature"`
	Humidity     float64  `json:"humidity"`
	ReadingStale bool     `json:"reading_stale"`
	AirIn        float64  `json:"air_in"`
	AirOut       *float64 `json:"air_out,omitempty"`
	SampleStale  bool     `json:"sample_stale"`
	Fan          string   `json:"fan"`
	Pump         string   `json:"pump"`
	Timestamp    string   `json:"timestamp"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// HealthJSON is the JSON representation of the loop's health counters.
type HealthJSON struct {
	Cycles             uint64 `json:"cycles"`
	SensorConsecutive  uint64 `json:"sensor_consecutive_failures"`
	SensorFailures     uint64 `json:"sensor_total_failures"`
	BridgeConsecutive  uint64 `json:"bridge_consecutive_failures"`
	BridgeFailures     uint64 `json:"bridge_total_failures"`
	PublishConsecutive uint64 `json:"publish_consecutive_failures"`
	PublishFailures    uint64 `json:"publish_total_failures"`
	DeadlineMisses     uint64 `json:"deadline_misses"`
}

// ConfigJSON is the JSON representation of controller config.
type ConfigJSON struct {
	PeriodMs         int64  `json:"period_ms"`
	BudgetMs         int64  `json:"budget_ms"`
	SerialPort       string `json:"serial_port"`
	SimURL           string `json:"sim_url"`
	Broker           string `json:"broker"`
	HTTPAddr         string `json:"http_addr"`
	FailureThreshold uint64 `json:"failure_threshold"`
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Ready:         snap.HaveCycle,
		SafeFallback:  snap.SafeFallback,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Health: HealthJSON{
			Cycles:             snap.Health.Cycles,
			SensorConsecutive:  snap.Health.SensorConsecutive,
			SensorFailures:     snap.Health.SensorFailures,
			BridgeConsecutive:  snap.Health.BridgeConsecutive,
			BridgeFailures:     snap.Health.BridgeFailures,
			PublishConsecutive: snap.Health.PublishConsecutive,
			PublishFailures:    snap.Health.PublishFailures,
			DeadlineMisses:     snap.Health.DeadlineMisses,
		},
		Config: ConfigJSON{
			PeriodMs:         snap.Config.PeriodMs,
			BudgetMs:         snap.Config.BudgetMs,
			SerialPort:       snap.Config.SerialPort,
			SimURL:           snap.Config.SimURL,
			Broker:           snap.Config.Broker,
			HTTPAddr:         snap.Config.HTTPAddr,
			FailureThreshold: snap.Config.FailureThreshold,
		},
	}

	if snap.HaveCycle {
		last := snap.Last
		cycle := &CycleJSON{
			Number:       last.Cycle,
			Temperature:  last.Temperature,
			Humidity:     last.Humidity,
			ReadingStale: last.ReadingStale,
			AirIn:        last.SimInput,
			SampleStale:  last.SampleStale,
			Fan:          onOff(last.FanOn),
			Pump:         onOff(last.PumpOn),
			Timestamp:    last.Timestamp.UTC().Format(time.RFC3339),
		}
		if last.SampleValid {
			out := last.SimOutput
			cycle.AirOut = &out
		}
		inner.Cycle = cycle
	}

	return inner
}

func onOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
