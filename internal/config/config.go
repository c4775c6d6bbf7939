// Package config loads the controller configuration from an optional YAML
// file, with defaults for every field. Configuration is immutable for the
// process lifetime.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/jinzhu/configor"
)

type (

	// Config is the full controller configuration.
	Config struct {

		// Log describes logging.
		Log struct {

			// Level is the logrus level name.
			Level string `default:"info"`
		}

		// Serial describes the sensor bus.
		Serial struct {

			// Port is the serial device.
			Port string `default:"/dev/ttyUSB0"`

			// Baud is the line speed (8N1).
			Baud int `default:"9600"`

			// UnitID is the sensor's Modbus address.
			UnitID int `default:"1"`

			// Register is the first measurement register.
			Register int `default:"1"`

			// TimeoutMs bounds one bus transaction.
			TimeoutMs int `default:"500"`
		}

		// Sim describes the simulation bridge endpoint.
		Sim struct {

			// URL is the stream resource the input is pushed to.
			URL string `default:"http://127.0.0.1:8081/api/streams/air-in"`

			// InputField and OutputField name the JSON payload fields.
			InputField  string `default:"air_in"`
			OutputField string `default:"air_out"`

			// TimeoutMs bounds one round-trip. Should exceed the serial
			// timeout but stay well under the cycle period.
			TimeoutMs int `default:"2000"`

			// Retries adds attempts after a failure. The remote model
			// advances on every push, so this defaults to zero.
			Retries int `default:"0"`
		}

		// Actuator describes relay outputs and the threshold policy.
		Actuator struct {

			// Chip is the GPIO character device name.
			Chip string `default:"gpiochip0"`

			// FanPin and PumpPin are BCM line offsets.
			FanPin  int `default:"26"`
			PumpPin int `default:"16"`

			// FanOnTemp turns the fan on above this temperature (C).
			FanOnTemp float64 `default:"27.0"`

			// PumpOnRH turns the pump on above this humidity (%RH).
			PumpOnRH float64 `default:"70.0"`

			// Hysteresis widens the off transition of both thresholds.
			Hysteresis float64 `default:"0.5"`

			// SafeMode is the fallback when inputs are unavailable:
			// "off" or "hold".
			SafeMode string `default:"off"`
		}

		// Telemetry describes the publish sinks.
		Telemetry struct {

			// Broker is the MQTT broker URL.
			Broker string `default:"tcp://demo.thingsboard.io:1883"`

			// Token is the device access token (MQTT username).
			Token string

			// Topic is the telemetry topic.
			Topic string `default:"v1/devices/me/telemetry"`

			// SystemTopic carries startup/shutdown events.
			SystemTopic string `default:"v1/devices/me/attributes"`

			// TimeoutMs bounds one publish.
			TimeoutMs int `default:"5000"`

			// Influx is the optional second sink.
			Influx struct {
				Enabled bool   `default:"false"`
				URL     string `default:"http://localhost:8086"`
				Token   string
				Org     string
				Bucket  string
			}
		}

		// Loop describes the cycle timing and fault policy.
		Loop struct {

			// PeriodMs is the cycle interval.
			PeriodMs int `default:"15000"`

			// BudgetMs bounds one cycle's wall-clock time.
			BudgetMs int `default:"5000"`

			// FailureThreshold is the consecutive-failure count that
			// forces the actuators to the safe fallback.
			FailureThreshold int `default:"3"`
		}

		// HTTP describes the status endpoint.
		HTTP struct {

			// Addr is the listen address; empty disables the server.
			Addr string `default:":8080"`
		}
	}
)

// Load reads the configuration. An empty path yields pure defaults.
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		if err := configor.New(&configor.Config{Silent: true}).Load(&cfg); err != nil {
			return Config{}, fmt.Errorf("load defaults: %w", err)
		}
		return cfg, nil
	}

	if _, err := os.Stat(path); err != nil {
		return Config{}, fmt.Errorf("config file unavailable: %w", err)
	}
	if err := configor.New(&configor.Config{Silent: true}).Load(&cfg, path); err != nil {
		return Config{}, fmt.Errorf("read config file %s: %w", path, err)
	}
	return cfg, nil
}

// SerialTimeout returns the bus transaction timeout.
func (c Config) SerialTimeout() time.Duration {
	return time.Duration(c.Serial.TimeoutMs) * time.Millisecond
}

// SimTimeout returns the bridge round-trip timeout.
func (c Config) SimTimeout() time.Duration {
	return time.Duration(c.Sim.TimeoutMs) * time.Millisecond
}

// PublishTimeout returns the telemetry publish timeout.
func (c Config) PublishTimeout() time.Duration {
	return time.Duration(c.Telemetry.TimeoutMs) * time.Millisecond
}

// Period returns the cycle interval.
func (c Config) Period() time.Duration {
	return time.Duration(c.Loop.PeriodMs) * time.Millisecond
}

// Budget returns the per-cycle time budget.
func (c Config) Budget() time.Duration {
	return time.Duration(c.Loop.BudgetMs) * time.Millisecond
}
