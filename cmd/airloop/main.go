// Command airloop runs a hardware-in-the-loop control cycle: it polls a
// Modbus temperature/humidity sensor, forwards the reading to a remote
// thermodynamic simulation, drives the fan and pump relays from the result,
// and publishes every quantity to the telemetry sinks.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sweeney/airloop/internal/actuator"
	"github.com/sweeney/airloop/internal/config"
	"github.com/sweeney/airloop/internal/loop"
	"github.com/sweeney/airloop/internal/modbus"
	"github.com/sweeney/airloop/internal/sim"
	"github.com/sweeney/airloop/internal/status"
	"github.com/sweeney/airloop/internal/telemetry"
	"github.com/sweeney/airloop/internal/web"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (defaults apply when empty)")
	broker := flag.String("broker", "", "override the MQTT broker address")
	httpAddr := flag.String("http", "", `override the HTTP status address ("off" disables)`)
	printReading := flag.Bool("print-reading", false, "poll the sensor once, print the reading, and exit")
	flag.Parse()

	log := logrus.New()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *broker != "" {
		cfg.Telemetry.Broker = *broker
	}
	switch *httpAddr {
	case "":
	case "off":
		cfg.HTTP.Addr = ""
	default:
		cfg.HTTP.Addr = *httpAddr
	}

	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Fatalf("parse log level %q: %v", cfg.Log.Level, err)
	}
	log.SetLevel(level)

	if err := run(cfg, *printReading, log); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg config.Config, printReading bool, log *logrus.Logger) error {
	// Sensor bus
	port, err := modbus.OpenPort(cfg.Serial.Port, cfg.Serial.Baud)
	if err != nil {
		return fmt.Errorf("init serial: %w", err)
	}
	sensor := modbus.NewClient(port, modbus.ClientConfig{
		UnitID:        byte(cfg.Serial.UnitID),
		StartRegister: uint16(cfg.Serial.Register),
		Timeout:       cfg.SerialTimeout(),
	})
	defer sensor.Close()

	// One-shot mode
	if printReading {
		r, err := sensor.Poll()
		if err != nil {
			return fmt.Errorf("poll sensor: %w", err)
		}
		fmt.Printf("%.1f C, %.1f %%RH\n", r.Temperature, r.Humidity)
		return nil
	}

	// Simulation bridge
	bridge := sim.NewClient(sim.ClientConfig{
		URL:         cfg.Sim.URL,
		InputField:  cfg.Sim.InputField,
		OutputField: cfg.Sim.OutputField,
		Timeout:     cfg.SimTimeout(),
		Retries:     cfg.Sim.Retries,
	}, log)

	// Actuator outputs
	outputs, err := actuator.NewRealOutputs(cfg.Actuator.Chip, cfg.Actuator.FanPin, cfg.Actuator.PumpPin)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer outputs.Close()
	controller := actuator.NewController(outputs, actuator.Policy{
		FanOnTemp:  cfg.Actuator.FanOnTemp,
		PumpOnRH:   cfg.Actuator.PumpOnRH,
		Hysteresis: cfg.Actuator.Hysteresis,
		Safe:       actuator.SafeMode(cfg.Actuator.SafeMode),
	}, log)

	// Telemetry sinks
	mqttPub, err := telemetry.NewMQTTPublisher(telemetry.MQTTConfig{
		Broker:      cfg.Telemetry.Broker,
		Token:       cfg.Telemetry.Token,
		Topic:       cfg.Telemetry.Topic,
		SystemTopic: cfg.Telemetry.SystemTopic,
		Timeout:     cfg.PublishTimeout(),
	})
	if err != nil {
		return fmt.Errorf("connect mqtt: %w", err)
	}
	var publisher telemetry.Publisher = mqttPub
	if cfg.Telemetry.Influx.Enabled {
		publisher = telemetry.NewMultiPublisher(mqttPub, telemetry.NewInfluxPublisher(telemetry.InfluxConfig{
			URL:     cfg.Telemetry.Influx.URL,
			Token:   cfg.Telemetry.Influx.Token,
			Org:     cfg.Telemetry.Influx.Org,
			Bucket:  cfg.Telemetry.Influx.Bucket,
			Timeout: cfg.PublishTimeout(),
		}))
	}
	defer publisher.Close()

	// Status tracker (before STARTUP so the snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		PeriodMs:         int64(cfg.Loop.PeriodMs),
		BudgetMs:         int64(cfg.Loop.BudgetMs),
		SerialPort:       cfg.Serial.Port,
		SimURL:           cfg.Sim.URL,
		Broker:           cfg.Telemetry.Broker,
		HTTPAddr:         cfg.HTTP.Addr,
		FailureThreshold: uint64(cfg.Loop.FailureThreshold),
	})
	tracker.SetMQTTConnected(mqttPub.IsConnected())

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startup := telemetry.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startup); err != nil {
		log.WithError(err).Warn("failed to publish startup event")
	} else {
		log.Info("published startup event")
	}

	// HTTP status server
	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Error("http server error")
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Infof("http status server listening on %s", cfg.HTTP.Addr)
	}

	orch := loop.New(sensor, bridge, controller, publisher, tracker, loop.Config{
		Period:           cfg.Period(),
		Budget:           cfg.Budget(),
		FailureThreshold: uint64(cfg.Loop.FailureThreshold),
	}, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	signalName := make(chan string, 1)
	go func() {
		s := <-sigCh
		log.Infof("received %v, shutting down", s)
		switch s {
		case syscall.SIGINT:
			signalName <- "SIGINT"
		case syscall.SIGTERM:
			signalName <- "SIGTERM"
		default:
			signalName <- "UNKNOWN"
		}
		cancel()
	}()

	log.WithFields(logrus.Fields{
		"period": cfg.Period(),
		"budget": cfg.Budget(),
		"serial": cfg.Serial.Port,
		"sim":    cfg.Sim.URL,
		"broker": cfg.Telemetry.Broker,
	}).Info("started")

	orch.Run(ctx)

	// Publish shutdown event with final status snapshot
	reason := "UNKNOWN"
	select {
	case reason = <-signalName:
	default:
	}
	tracker.SetMQTTConnected(mqttPub.IsConnected())
	snap = tracker.Snapshot()
	shutdown := telemetry.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "SHUTDOWN",
		Reason:     reason,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", reason),
	}
	if err := publisher.PublishSystem(shutdown); err != nil {
		log.WithError(err).Warn("failed to publish shutdown event")
	} else {
		log.Info("published shutdown event")
	}

	return nil
}
