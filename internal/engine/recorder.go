package engine

import "fmt"

// EventKind names a recorded engine decision.
type EventKind string

const (
	// EventRecompute: a cache miss ran a node's compute body.
	EventRecompute EventKind = "recompute"

	// EventCacheHit: a valid cached value was served.
	EventCacheHit EventKind = "cache_hit"

	// EventOverrideHit: an active override was served instead of the cache.
	EventOverrideHit EventKind = "override_hit"

	// EventInvalidate: an identity's cache entry was marked dirty.
	EventInvalidate EventKind = "invalidate"

	// EventSetValue: a variable's stored value was replaced.
	EventSetValue EventKind = "set_value"

	// EventOverrideSet: an override became active for an identity.
	EventOverrideSet EventKind = "override_set"

	// EventOverrideCleared: an override was removed from an identity.
	EventOverrideCleared EventKind = "override_cleared"
)

// Event is one engine decision, stamped with the logical clock.
// Value is the rendered value involved, empty for invalidations and clears.
type Event struct {
	Seq      int64
	Kind     EventKind
	Identity string
	Value    string
}

// Recorder receives engine events as they happen. Implementations must not
// call back into the engine; they observe, they do not steer.
//
// The journal package provides a SQLite-backed Recorder; the harness uses
// an in-memory one for golden traces.
type Recorder interface {
	Record(ev Event)
}

// record emits an event if a recorder is attached. Clock sequence numbers
// advance only for recorded events, so an engine without a recorder pays
// nothing.
func (e *Engine) record(kind EventKind, id fmt.Stringer, value any) {
	if e.recorder == nil {
		return
	}
	ev := Event{
		Seq:      e.clock.Next(),
		Kind:     kind,
		Identity: id.String(),
	}
	if value != nil {
		ev.Value = fmt.Sprint(value)
	}
	e.recorder.Record(ev)
}
