package status

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/sweeney/airloop/internal/telemetry"
)

func testConfig() Config {
	return Config{
		PeriodMs:         15000,
		BudgetMs:         5000,
		SerialPort:       "/dev/ttyUSB0",
		SimURL:           "http://127.0.0.1:8081/api/streams/air-in",
		Broker:           "tcp://demo.thingsboard.io:1883",
		HTTPAddr:         ":8080",
		FailureThreshold: 3,
	}
}

func testCycle() telemetry.Snapshot {
	return telemetry.Snapshot{
		Timestamp:    time.Date(2026, 2, 1, 10, 0, 15, 0, time.UTC),
		Cycle:        4,
		Temperature:  32.4,
		Humidity:     55.0,
		ReadingValid: true,
		SimInput:     32.4,
		SimOutput:    11.977,
		SampleValid:  true,
		FanOn:        true,
	}
}

func TestTrackerSnapshot(t *testing.T) {
	start := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	tr := NewTracker(start, testConfig())

	snap := tr.Snapshot()
	if snap.HaveCycle {
		t.Error("fresh tracker reports a completed cycle")
	}
	if !snap.StartTime.Equal(start) {
		t.Errorf("start time: got %v, want %v", snap.StartTime, start)
	}

	tr.Update(testCycle(), Health{Cycles: 4, SensorFailures: 1}, false)
	tr.SetMQTTConnected(true)

	snap = tr.Snapshot()
	if !snap.HaveCycle {
		t.Error("cycle not recorded")
	}
	if snap.Last.Temperature != 32.4 {
		t.Errorf("temperature: got %v, want 32.4", snap.Last.Temperature)
	}
	if snap.Health.SensorFailures != 1 {
		t.Errorf("sensor failures: got %d, want 1", snap.Health.SensorFailures)
	}
	if !snap.MQTTConnected {
		t.Error("MQTT connectivity not recorded")
	}
}

func TestFormatJSON(t *testing.T) {
	start := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	tr := NewTracker(start, testConfig())
	tr.Update(testCycle(), Health{Cycles: 4, BridgeConsecutive: 2, BridgeFailures: 2}, false)

	var sj StatusJSON
	if err := json.Unmarshal(FormatJSON(tr.Snapshot()), &sj); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !sj.Status.Ready {
		t.Error("not ready despite completed cycle")
	}
	if sj.Status.Cycle == nil {
		t.Fatal("cycle block missing")
	}
	if sj.Status.Cycle.Fan != "ON" {
		t.Errorf("fan: got %q, want ON", sj.Status.Cycle.Fan)
	}
	if sj.Status.Cycle.Pump != "OFF" {
		t.Errorf("pump: got %q, want OFF", sj.Status.Cycle.Pump)
	}
	if sj.Status.Cycle.AirOut == nil || *sj.Status.Cycle.AirOut != 11.977 {
		t.Errorf("air_out: got %v, want 11.977", sj.Status.Cycle.AirOut)
	}
	if sj.Status.Health.BridgeConsecutive != 2 {
		t.Errorf("bridge consecutive: got %d, want 2", sj.Status.Health.BridgeConsecutive)
	}
	if sj.Status.Config.PeriodMs != 15000 {
		t.Errorf("period: got %d, want 15000", sj.Status.Config.PeriodMs)
	}
	if sj.Status.Event != "" {
		t.Errorf("web status carries event %q", sj.Status.Event)
	}
}

func TestFormatJSONNoCycle(t *testing.T) {
	tr := NewTracker(time.Now(), testConfig())

	var sj StatusJSON
	if err := json.Unmarshal(FormatJSON(tr.Snapshot()), &sj); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if sj.Status.Ready {
		t.Error("ready before any cycle")
	}
	if sj.Status.Cycle != nil {
		t.Error("cycle block present before any cycle")
	}
}

func TestFormatStatusEvent(t *testing.T) {
	tr := NewTracker(time.Now(), testConfig())
	tr.Update(testCycle(), Health{}, true)

	var sj StatusJSON
	data := FormatStatusEvent(tr.Snapshot(), "SHUTDOWN", "SIGTERM")
	if err := json.Unmarshal(data, &sj); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if sj.Status.Event != "SHUTDOWN" {
		t.Errorf("event: got %q, want SHUTDOWN", sj.Status.Event)
	}
	if sj.Status.Reason != "SIGTERM" {
		t.Errorf("reason: got %q, want SIGTERM", sj.Status.Reason)
	}
	if !sj.Status.SafeFallback {
		t.Error("safe fallback flag lost")
	}
}
