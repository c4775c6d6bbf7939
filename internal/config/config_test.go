package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Serial.Port != "/dev/ttyUSB0" {
		t.Errorf("serial port: got %q", cfg.Serial.Port)
	}
	if cfg.Serial.Baud != 9600 {
		t.Errorf("baud: got %d, want 9600", cfg.Serial.Baud)
	}
	if cfg.Actuator.FanOnTemp != 27.0 {
		t.Errorf("fan threshold: got %v, want 27.0", cfg.Actuator.FanOnTemp)
	}
	if cfg.Actuator.SafeMode != "off" {
		t.Errorf("safe mode: got %q, want off", cfg.Actuator.SafeMode)
	}
	if cfg.Loop.FailureThreshold != 3 {
		t.Errorf("failure threshold: got %d, want 3", cfg.Loop.FailureThreshold)
	}
	if cfg.Period() != 15*time.Second {
		t.Errorf("period: got %v, want 15s", cfg.Period())
	}
	if cfg.Budget() != 5*time.Second {
		t.Errorf("budget: got %v, want 5s", cfg.Budget())
	}
	if cfg.SerialTimeout() != 500*time.Millisecond {
		t.Errorf("serial timeout: got %v, want 500ms", cfg.SerialTimeout())
	}
	if cfg.SimTimeout() <= cfg.SerialTimeout() {
		t.Errorf("sim timeout %v should exceed serial timeout %v",
			cfg.SimTimeout(), cfg.SerialTimeout())
	}
}

func TestLoadFile(t *testing.T) {
	yaml := `
serial:
  port: /dev/ttyAMA0
  unitid: 2
actuator:
  fanontemp: 20.0
  safemode: hold
loop:
  periodms: 1000
telemetry:
  token: abc123
  influx:
    enabled: true
    org: lab
    bucket: hvac
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Serial.Port != "/dev/ttyAMA0" {
		t.Errorf("serial port: got %q", cfg.Serial.Port)
	}
	if cfg.Serial.UnitID != 2 {
		t.Errorf("unit id: got %d, want 2", cfg.Serial.UnitID)
	}
	if cfg.Actuator.FanOnTemp != 20.0 {
		t.Errorf("fan threshold: got %v, want 20.0", cfg.Actuator.FanOnTemp)
	}
	if cfg.Actuator.SafeMode != "hold" {
		t.Errorf("safe mode: got %q, want hold", cfg.Actuator.SafeMode)
	}
	if cfg.Period() != time.Second {
		t.Errorf("period: got %v, want 1s", cfg.Period())
	}
	if !cfg.Telemetry.Influx.Enabled || cfg.Telemetry.Influx.Bucket != "hvac" {
		t.Errorf("influx: got %+v", cfg.Telemetry.Influx)
	}

	// Defaults still fill whatever the file leaves out.
	if cfg.Serial.Baud != 9600 {
		t.Errorf("baud default lost: got %d", cfg.Serial.Baud)
	}
	if cfg.Telemetry.Topic != "v1/devices/me/telemetry" {
		t.Errorf("topic default lost: got %q", cfg.Telemetry.Topic)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
