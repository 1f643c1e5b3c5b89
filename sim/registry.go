package sim

import (
	"math/rand/v2"
	"sort"

	"github.com/sonder-sim/sonder/genome"
)

// Factory produces a founder trait vector for one entity of an archetype.
// Factories draw any variation from the rng they are handed, which is the
// scheduler's seeded source, so initial populations are reproducible.
type Factory func(rng *rand.Rand) genome.TraitVector

// Registry maps type tags to archetype factories. It is a plain value
// passed to the scheduler at construction and scoped to it; there is no
// process-wide registry. Tags are display metadata only; systems never
// branch on them.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds or replaces a factory for a tag.
func (r *Registry) Register(tag string, f Factory) {
	r.factories[tag] = f
}

// Lookup returns the factory for a tag.
func (r *Registry) Lookup(tag string) (Factory, bool) {
	f, ok := r.factories[tag]
	return f, ok
}

// Tags returns the registered tags in sorted order.
func (r *Registry) Tags() []string {
	tags := make([]string, 0, len(r.factories))
	for tag := range r.factories {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// founder returns a factory that jitters every gene around base so a
// seeded population starts with some variation to select on.
func founder(base genome.TraitVector) Factory {
	policy := genome.MutationPolicy{Rate: 1, Magnitude: 0.15}
	return func(rng *rand.Rand) genome.TraitVector {
		return genome.Mutate(base, policy, rng)
	}
}

// DefaultRegistry registers the built-in archetypes: the frog, a timid
// fast-breeding grazer, and the wolf, an aggressive far-sighted hunter.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("frog", founder(genome.TraitVector{
		genome.Speed:      1.5,
		genome.Aggression: 0.2,
		genome.Metabolism: 1.0,
		genome.Fertility:  0.7,
		genome.Perception: 3.0,
		genome.Resilience: 0.4,
	}))
	r.Register("wolf", founder(genome.TraitVector{
		genome.Speed:      2.2,
		genome.Aggression: 0.85,
		genome.Metabolism: 1.3,
		genome.Fertility:  0.3,
		genome.Perception: 5.0,
		genome.Resilience: 0.6,
	}))
	return r
}
