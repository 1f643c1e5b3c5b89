// Package events defines the structured lifecycle records the core emits
// and the sink contract external persistence implements. Emission is
// fire-and-forget: the core hands records to a Sink at tick boundaries and
// never waits on delivery.
package events

import "github.com/sonder-sim/sonder/genome"

// Kind identifies a lifecycle event.
type Kind uint8

const (
	KindSpawn Kind = iota
	KindDeath
	KindReproduction
	KindCombat
)

// String returns the stable wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindSpawn:
		return "spawn"
	case KindDeath:
		return "death"
	case KindReproduction:
		return "reproduction"
	case KindCombat:
		return "combat"
	default:
		return "unknown"
	}
}

// Event is one structured lifecycle record. The schema is stable; sinks
// stamp wall-clock time themselves so the core stays deterministic.
type Event struct {
	Tick       int64
	Kind       Kind
	EntityID   uint32
	Generation int
	X, Y       int

	// TargetID names the other party for combat (defender) and
	// reproduction (partner, 0 for asexual).
	TargetID uint32

	// Traits is a snapshot of the entity's genome at emission time, set
	// for spawn and death events.
	Traits *genome.TraitVector
}

// Sink receives the ordered event stream. Implementations own buffering,
// batching, and durability; Record must not block the simulation for long.
type Sink interface {
	Record(Event)
}

// NullSink discards everything.
type NullSink struct{}

// Record implements Sink.
func (NullSink) Record(Event) {}

// Tee fans each record out to every sink in order. Lets an in-memory
// stats collector and a persistent store share one event stream.
func Tee(sinks ...Sink) Sink {
	return teeSink(sinks)
}

type teeSink []Sink

// Record implements Sink.
func (t teeSink) Record(ev Event) {
	for _, s := range t {
		s.Record(ev)
	}
}

// MemorySink retains every record in order. Test helper.
type MemorySink struct {
	Events []Event
}

// Record implements Sink.
func (m *MemorySink) Record(ev Event) {
	m.Events = append(m.Events, ev)
}

// ByKind returns the retained events of one kind, in emission order.
func (m *MemorySink) ByKind(k Kind) []Event {
	var out []Event
	for _, ev := range m.Events {
		if ev.Kind == k {
			out = append(out, ev)
		}
	}
	return out
}
