package events

import (
	"context"
	"sync"
)

// Record is one event captured by Recorder.
type Record struct {
	Name    string
	Payload any
}

// Recorder keeps emitted events in memory. Tests use it to assert on
// emission order and payloads.
type Recorder struct {
	mu      sync.Mutex
	records []Record
	err     error
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Emit(_ context.Context, name string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.records = append(r.records, Record{Name: name, Payload: payload})
	return nil
}

// FailWith makes subsequent Emit calls return err without recording.
// A nil err restores normal behavior.
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Records returns a copy of everything recorded so far.
func (r *Recorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}

// Names returns recorded event names in emission order.
func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.records))
	for i, rec := range r.records {
		out[i] = rec.Name
	}
	return out
}

// Filter returns the payloads recorded under name.
func (r *Recorder) Filter(name string) []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []any
	for _, rec := range r.records {
		if rec.Name == name {
			out = append(out, rec.Payload)
		}
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = nil
}
