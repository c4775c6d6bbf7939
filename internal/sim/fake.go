package sim

import (
	"context"
	"time"
)

// FakeBridge is a scripted bridge for tests.
type FakeBridge struct {
	// Outputs are returned in order; the last one repeats once exhausted.
	Outputs []float64

	// Errs mirrors Outputs: a non-nil entry makes that call fail.
	Errs []error

	// Inputs records every input pushed.
	Inputs []float64

	// Now supplies sample timestamps; defaults to time.Now.
	Now func() time.Time

	index int
}

// UpdateAndFetch records the input and returns the next scripted result.
func (f *FakeBridge) UpdateAndFetch(_ context.Context, input float64) (Sample, error) {
	f.Inputs = append(f.Inputs, input)

	i := f.index
	if f.index < len(f.Outputs)-1 || f.index < len(f.Errs)-1 {
		f.index++
	}

	if i < len(f.Errs) && f.Errs[i] != nil {
		return Sample{}, f.Errs[i]
	}
	if i >= len(f.Outputs) {
		return Sample{}, ErrUnreachable
	}

	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	return Sample{Input: input, Output: f.Outputs[i], Timestamp: now()}, nil
}
