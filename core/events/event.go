package events

// Event represents a structured state change emitted by the registry.
type Event interface {
	EventType() string
	Event() *Record
}

// Record is the untyped form of an event handed to log sinks and indexers.
type Record struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// Emitter broadcasts events to downstream subscribers (e.g. logs, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(Event)

// Emit implements the Emitter interface.
func (f EmitterFunc) Emit(evt Event) {
	if f != nil {
		f(evt)
	}
}

// Buffer holds events until Flush forwards them, so that events of a call
// that is later rolled back never reach subscribers.
type Buffer struct {
	pending []Event
}

// Emit implements the Emitter interface.
func (b *Buffer) Emit(evt Event) {
	if evt == nil {
		return
	}
	b.pending = append(b.pending, evt)
}

// Flush forwards buffered events to next in emission order and clears the
// buffer.
func (b *Buffer) Flush(next Emitter) []Event {
	flushed := b.pending
	b.pending = nil
	if next == nil {
		return flushed
	}
	for _, evt := range flushed {
		next.Emit(evt)
	}
	return flushed
}

// Reset drops every buffered event.
func (b *Buffer) Reset() {
	b.pending = nil
}
