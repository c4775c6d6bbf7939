package sim

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// bodyLimit caps how much of a response we read when parsing (or reporting
// an error body).
const bodyLimit = 1 << 20

// Client talks to the simulation endpoint over HTTP. One POST both pushes
// the input value and returns the computed output.
type Client struct {
	url         string
	inputField  string
	outputField string
	timeout     time.Duration
	retries     int
	httpClient  *http.Client
	log         *logrus.Logger
	now         func() time.Time
}

// ClientConfig holds the bridge endpoint parameters.
type ClientConfig struct {
	// URL is the simulation stream resource.
	URL string

	// InputField and OutputField name the JSON fields carrying the values.
	InputField  string
	OutputField string

	// Timeout bounds one round-trip. It should be longer than the serial
	// transaction timeout but well under the cycle period.
	Timeout time.Duration

	// Retries is the number of additional attempts after a failed one.
	// Default 0: the remote model is not idempotent, every push advances
	// its state, so retrying is opt-in.
	Retries int
}

// NewClient creates a bridge client.
func NewClient(cfg ClientConfig, log *logrus.Logger) *Client {
	return &Client{
		url:         cfg.URL,
		inputField:  cfg.InputField,
		outputField: cfg.OutputField,
		timeout:     cfg.Timeout,
		retries:     cfg.Retries,
		httpClient:  &http.Client{},
		log:         log,
		now:         time.Now,
	}
}

// UpdateAndFetch pushes input to the simulation and parses the output field
// from the response.
func (c *Client) UpdateAndFetch(ctx context.Context, input float64) (Sample, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			// Each retry pushes the input again and advances the
			// remote model; operators enable this knowingly.
			c.log.WithField("attempt", attempt+1).Warn("sim: retrying bridge request")
		}
		sample, err := c.roundTrip(ctx, input)
		if err == nil {
			return sample, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return Sample{}, lastErr
}

func (c *Client) roundTrip(ctx context.Context, input float64) (Sample, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(map[string]float64{c.inputField: input})
	if err != nil {
		return Sample{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return Sample{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Sample{}, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return Sample{}, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, bodyLimit))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Sample{}, fmt.Errorf("%w: reading body: %v", ErrTimeout, err)
		}
		return Sample{}, fmt.Errorf("%w: reading body: %v", ErrUnreachable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return Sample{}, fmt.Errorf("%w: status %d (%s)", ErrInvalidResponse, resp.StatusCode, truncate(body, 200))
	}

	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return Sample{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	raw, ok := fields[c.outputField]
	if !ok {
		return Sample{}, fmt.Errorf("%w: missing field %q", ErrInvalidResponse, c.outputField)
	}
	output, ok := raw.(float64)
	if !ok {
		return Sample{}, fmt.Errorf("%w: field %q is not a number", ErrInvalidResponse, c.outputField)
	}

	return Sample{
		Input:     input,
		Output:    output,
		Timestamp: c.now(),
	}, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
