package log

import "sync"

// Recorder keeps events in memory. Tests use it to assert on the event
// trace; the REPL uses it for the history command.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	limit  int
}

// NewRecorder creates a Recorder keeping at most limit events.
// A limit of zero or less keeps everything.
func NewRecorder(limit int) *Recorder {
	return &Recorder{limit: limit}
}

// Log appends the event, dropping the oldest one when full.
func (r *Recorder) Log(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, event)
	if r.limit > 0 && len(r.events) > r.limit {
		r.events = r.events[len(r.events)-r.limit:]
	}
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Outcomes returns the mutation outcomes recorded for topic, in order.
func (r *Recorder) Outcomes(topic string) []Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Outcome
	for _, e := range r.events {
		if e.Mutation != nil && e.Mutation.Topic == topic {
			out = append(out, e.Mutation.Outcome)
		}
	}
	return out
}

// Reset drops every recorded event.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// Compile-time interface satisfaction check.
var _ Logger = (*Recorder)(nil)
