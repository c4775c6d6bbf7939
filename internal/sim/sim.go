// Package sim is the client side of the simulation bridge: it pushes the
// measured inlet temperature to a remote thermodynamic simulation and fetches
// the computed outlet temperature from the response.
package sim

import (
	"context"
	"errors"
	"time"
)

// Bridge errors. Callers match with errors.Is.
var (
	// ErrUnreachable means the endpoint could not be connected to.
	ErrUnreachable = errors.New("sim: endpoint unreachable")

	// ErrTimeout means no response arrived within the round-trip budget.
	ErrTimeout = errors.New("sim: request timeout")

	// ErrInvalidResponse means the endpoint answered but the payload could
	// not be parsed or is missing the output field.
	ErrInvalidResponse = errors.New("sim: invalid response")
)

// Sample is one simulation round-trip: the input pushed to the remote model
// and the output it computed.
type Sample struct {
	Input     float64
	Output    float64
	Timestamp time.Time
}

// Bridge pushes an input to the simulation and fetches the computed output.
type Bridge interface {
	// UpdateAndFetch advances the remote model with input and returns the
	// resulting sample. The remote model's state moves on every push, so
	// callers must not retry blindly; any retry policy lives inside the
	// implementation, bounded by configuration.
	UpdateAndFetch(ctx context.Context, input float64) (Sample, error)
}
