package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// measurement is the InfluxDB measurement all streams are written under.
const measurement = "process_metrics"

// InfluxPublisher writes each snapshot as one point per stream, tagged the
// way the existing dashboards query them. Actuator status fields are not
// written here; they go to MQTT only.
type InfluxPublisher struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	timeout  time.Duration
}

// InfluxConfig holds the InfluxDB connection parameters.
type InfluxConfig struct {
	URL     string
	Token   string
	Org     string
	Bucket  string
	Timeout time.Duration
}

// NewInfluxPublisher creates a blocking-write publisher.
func NewInfluxPublisher(cfg InfluxConfig) *InfluxPublisher {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &InfluxPublisher{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		timeout:  cfg.Timeout,
	}
}

// Publish writes the snapshot's streams. Air_Out is skipped when the cycle
// has no simulation output.
func (p *InfluxPublisher) Publish(snap Snapshot) error {
	points := []*write.Point{
		streamPoint("Air_In", snap.SimInput, snap.Timestamp),
		streamPoint("Temperature", snap.Temperature, snap.Timestamp),
		streamPoint("Humidity", snap.Humidity, snap.Timestamp),
	}
	if snap.SampleValid {
		points = append(points, streamPoint("Air_Out", snap.SimOutput, snap.Timestamp))
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.writeAPI.WritePoint(ctx, points...); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrDisconnected, err)
	}
	return nil
}

// PublishSystem is a no-op: lifecycle events carry no time-series value.
func (p *InfluxPublisher) PublishSystem(SystemEvent) error {
	return nil
}

// Close shuts down the underlying client.
func (p *InfluxPublisher) Close() error {
	p.client.Close()
	return nil
}

func streamPoint(stream string, value float64, ts time.Time) *write.Point {
	return influxdb2.NewPoint(
		measurement,
		map[string]string{"stream": stream},
		map[string]interface{}{"value": value},
		ts,
	)
}
