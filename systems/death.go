package systems

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/sonder-sim/sonder/components"
	"github.com/sonder-sim/sonder/events"
)

// DeathSystem finds entities whose health reached zero, emits their death
// event, and queues them for removal. The actual despawn happens at the
// tick boundary so no earlier system ever observes a partially-removed
// entity, and a freed identity is never reused within the tick it died.
type DeathSystem struct {
	filter *ecs.Filter5[components.Position, components.Stats, components.Genome, components.Lineage, components.Organism]
}

// NewDeathSystem creates the system over w.
func NewDeathSystem(w *ecs.World) *DeathSystem {
	return &DeathSystem{
		filter: ecs.NewFilter5[components.Position, components.Stats, components.Genome, components.Lineage, components.Organism](w),
	}
}

// Name implements System.
func (s *DeathSystem) Name() string { return "death" }

// Update implements System.
func (s *DeathSystem) Update(ctx *Context) error {
	query := s.filter.Query()
	for query.Next() {
		entity := query.Entity()
		pos, stats, gen, lin, org := query.Get()

		if stats.Alive() {
			continue
		}

		traits := gen.Traits
		ctx.Events.Emit(events.Event{
			Tick:       ctx.Tick,
			Kind:       events.KindDeath,
			EntityID:   org.ID,
			Generation: lin.Generation,
			X:          pos.X,
			Y:          pos.Y,
			Traits:     &traits,
		})
		ctx.Pending.QueueDespawn(entity)
	}
	return nil
}
