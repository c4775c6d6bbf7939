package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sweeney/airloop/internal/status"
	"github.com/sweeney/airloop/internal/telemetry"
)

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker) {
	t.Helper()
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		PeriodMs: 15000,
		BudgetMs: 5000,
		Broker:   "tcp://demo.thingsboard.io:1883",
		HTTPAddr: ":8080",
	}
	tr := status.NewTracker(start, cfg)
	srv := New(":0", tr)
	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)
	return ts, tr
}

func TestStatusEndpoint(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(telemetry.Snapshot{
		Cycle:       3,
		Temperature: 32.4,
		Humidity:    55.0,
		SimInput:    32.4,
		SimOutput:   11.977,
		SampleValid: true,
		FanOn:       true,
	}, status.Health{Cycles: 3}, false)
	tr.SetMQTTConnected(true)

	resp, err := http.Get(ts.URL + "/status.json")
	if err != nil {
		t.Fatalf("GET /status.json: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if sj.Status.Cycle == nil || sj.Status.Cycle.Fan != "ON" {
		t.Errorf("cycle: got %+v, want fan ON", sj.Status.Cycle)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("mqtt connected flag lost")
	}
}

func TestRootServesStatus(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
}

func TestUnknownPath(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/nope")
	if err != nil {
		t.Fatalf("GET /nope: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	ts, tr := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("before first cycle: got %d, want 503", resp.StatusCode)
	}

	tr.Update(telemetry.Snapshot{Cycle: 1}, status.Health{Cycles: 1}, false)

	resp, err = http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Errorf("after first cycle: got %d, want 200", resp.StatusCode)
	}
}
