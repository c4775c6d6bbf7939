package telemetry

import "errors"

// MultiPublisher fans a snapshot out to several sinks. Every sink is
// attempted each cycle; errors are joined so one slow sink does not hide
// another's failure.
type MultiPublisher struct {
	sinks []Publisher
}

// NewMultiPublisher creates a publisher fanning out to sinks.
func NewMultiPublisher(sinks ...Publisher) *MultiPublisher {
	return &MultiPublisher{sinks: sinks}
}

// Publish sends the snapshot to every sink.
func (m *MultiPublisher) Publish(snap Snapshot) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Publish(snap); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublishSystem sends the event to every sink.
func (m *MultiPublisher) PublishSystem(event SystemEvent) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.PublishSystem(event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// IsConnected reports true if every sink that exposes a connection state is
// connected.
func (m *MultiPublisher) IsConnected() bool {
	for _, s := range m.sinks {
		if cs, ok := s.(ConnectionStatus); ok && !cs.IsConnected() {
			return false
		}
	}
	return true
}

// Close closes every sink.
func (m *MultiPublisher) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
