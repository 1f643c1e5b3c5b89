package events

// Recorder buffers events raised during a tick and flushes them to the
// sink in order at the tick boundary. It enforces the at-most-once
// guarantee: a (kind, entity, target) triple is recorded once per tick,
// duplicates are dropped.
type Recorder struct {
	pending []Event
	seen    map[dedupeKey]struct{}
}

type dedupeKey struct {
	kind     Kind
	entityID uint32
	targetID uint32
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{seen: make(map[dedupeKey]struct{})}
}

// Emit buffers one event for the current tick.
func (r *Recorder) Emit(ev Event) {
	key := dedupeKey{kind: ev.Kind, entityID: ev.EntityID, targetID: ev.TargetID}
	if _, dup := r.seen[key]; dup {
		return
	}
	r.seen[key] = struct{}{}
	r.pending = append(r.pending, ev)
}

// Pending returns the number of buffered events.
func (r *Recorder) Pending() int {
	return len(r.pending)
}

// FlushTo drains the buffer into sink in emission order and resets the
// per-tick dedupe state. A nil sink just discards.
func (r *Recorder) FlushTo(sink Sink) {
	if sink != nil {
		for _, ev := range r.pending {
			sink.Record(ev)
		}
	}
	r.pending = r.pending[:0]
	clear(r.seen)
}
