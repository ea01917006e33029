// Package diag defines the structured diagnostic sink the toolkit reports
// through. Degenerate statistics and load progress are events, not prints:
// the caller decides where they go by supplying a Sink.
package diag

// Fields carries the structured payload of an event, keyed by field name.
type Fields map[string]any

// Sink receives diagnostic events from the toolkit.
type Sink interface {
	Info(component, message string, fields Fields)
	Warn(component, message string, fields Fields)
	Error(component string, err error, fields Fields)
}

// nopSink discards every event.
type nopSink struct{}

func (nopSink) Info(string, string, Fields)  {}
func (nopSink) Warn(string, string, Fields)  {}
func (nopSink) Error(string, error, Fields)  {}

// Nop returns a sink that discards everything. It is the default for
// components constructed without an explicit sink.
func Nop() Sink {
	return nopSink{}
}

// Event is one recorded diagnostic, used by Recorder.
type Event struct {
	Level     string
	Component string
	Message   string
	Err       error
	Fields    Fields
}

// Recorder is a sink that keeps every event in memory. Intended for tests
// that assert on emitted warnings.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Info(component, message string, fields Fields) {
	r.Events = append(r.Events, Event{Level: "info", Component: component, Message: message, Fields: fields})
}

func (r *Recorder) Warn(component, message string, fields Fields) {
	r.Events = append(r.Events, Event{Level: "warn", Component: component, Message: message, Fields: fields})
}

func (r *Recorder) Error(component string, err error, fields Fields) {
	r.Events = append(r.Events, Event{Level: "error", Component: component, Err: err, Fields: fields})
}

// Warnings returns the recorded warn-level events.
func (r *Recorder) Warnings() []Event {
	var out []Event
	for _, e := range r.Events {
		if e.Level == "warn" {
			out = append(out, e)
		}
	}
	return out
}
