package events

import (
	"context"
	"errors"
)

// Multi delivers every event to each sink in order. A failing sink does not
// stop delivery to the rest; the failures are joined.
type Multi []Sink

// NewMulti drops nil sinks.
func NewMulti(sinks ...Sink) Multi {
	m := make(Multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			m = append(m, s)
		}
	}
	return m
}

func (m Multi) Emit(ctx context.Context, name string, payload any) error {
	var errs []error
	for _, s := range m {
		if err := s.Emit(ctx, name, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
