package telemetry

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// MQTTPublisher publishes snapshots to a ThingsBoard-style MQTT broker.
type MQTTPublisher struct {
	client      paho.Client
	topic       string
	systemTopic string
	timeout     time.Duration
}

// MQTTConfig holds broker parameters.
type MQTTConfig struct {
	// Broker is the broker URL, e.g. tcp://demo.thingsboard.io:1883.
	Broker string

	// Token is the device access token, sent as the MQTT username.
	Token string

	// Topic is the telemetry topic.
	Topic string

	// SystemTopic is the lifecycle event topic.
	SystemTopic string

	// Timeout bounds each publish so a slow broker cannot stall the loop.
	Timeout time.Duration
}

// NewMQTTPublisher connects to the broker. The connection auto-reconnects;
// publishes while disconnected fail fast with ErrDisconnected and are simply
// superseded by the next cycle.
func NewMQTTPublisher(cfg MQTTConfig) (*MQTTPublisher, error) {
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID("airloop").
		SetUsername(cfg.Token).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return &MQTTPublisher{
		client:      client,
		topic:       cfg.Topic,
		systemTopic: cfg.SystemTopic,
		timeout:     cfg.Timeout,
	}, nil
}

// Publish sends one snapshot.
func (p *MQTTPublisher) Publish(snap Snapshot) error {
	payload, err := FormatPayload(snap)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	if !p.client.IsConnected() {
		return ErrDisconnected
	}

	// QoS 0 (at-most-once), not retained: the next snapshot supersedes it.
	token := p.client.Publish(p.topic, 0, false, payload)
	if !token.WaitTimeout(p.timeout) {
		return ErrTimeout
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %v", ErrDisconnected, err)
	}
	return nil
}

// PublishSystem sends a lifecycle event at QoS 1 so startup/shutdown are not
// lost on a flaky link.
func (p *MQTTPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	token := p.client.Publish(p.systemTopic, 1, event.Retained, payload)
	if !token.WaitTimeout(p.timeout) {
		return ErrTimeout
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %v", ErrDisconnected, err)
	}
	return nil
}

// IsConnected reports broker connectivity.
func (p *MQTTPublisher) IsConnected() bool {
	return p.client.IsConnected()
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(1000) // milliseconds
	return nil
}
