package systems

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/sonder-sim/sonder/components"
	"github.com/sonder-sim/sonder/events"
)

// CombatSystem resolves competition: a pursuing entity adjacent to its
// target lands one hit per tick, siphoning energy from the exchange. Kills
// are credited with a larger energy gain. Defeated entities are not
// removed here; the death system queues them at the end of the pipeline.
type CombatSystem struct {
	filter     *ecs.Filter3[components.Position, components.Stats, components.Behavior]
	posMap     *ecs.Map1[components.Position]
	statsMap   *ecs.Map1[components.Stats]
	orgMap     *ecs.Map1[components.Organism]
	lineageMap *ecs.Map1[components.Lineage]

	scratch []ecs.Entity
}

// NewCombatSystem creates the system over w.
func NewCombatSystem(w *ecs.World) *CombatSystem {
	return &CombatSystem{
		filter:     ecs.NewFilter3[components.Position, components.Stats, components.Behavior](w),
		posMap:     ecs.NewMap1[components.Position](w),
		statsMap:   ecs.NewMap1[components.Stats](w),
		orgMap:     ecs.NewMap1[components.Organism](w),
		lineageMap: ecs.NewMap1[components.Lineage](w),
	}
}

// Name implements System.
func (s *CombatSystem) Name() string { return "combat" }

// Update implements System.
func (s *CombatSystem) Update(ctx *Context) error {
	query := s.filter.Query()
	for query.Next() {
		entity := query.Entity()
		pos, stats, behavior := query.Get()

		if !stats.Alive() || behavior.Mode != components.ModePursuing || behavior.Target == 0 {
			continue
		}

		target := s.findAdjacentTarget(ctx, entity, *pos, behavior.Target)
		if target == ecsZero {
			continue
		}
		targetStats := s.statsMap.Get(target)
		if targetStats == nil || !targetStats.Alive() {
			continue
		}

		targetStats.Damage(stats.Attack)
		stats.GainEnergy(ctx.Cfg.Energy.AttackGain)
		if !targetStats.Alive() {
			stats.GainEnergy(ctx.Cfg.Energy.KillGain)
		}

		org := s.orgMap.Get(entity)
		gen := 0
		if lin := s.lineageMap.Get(entity); lin != nil {
			gen = lin.Generation
		}
		ctx.Events.Emit(events.Event{
			Tick:       ctx.Tick,
			Kind:       events.KindCombat,
			EntityID:   org.ID,
			Generation: gen,
			X:          pos.X,
			Y:          pos.Y,
			TargetID:   behavior.Target,
		})
	}
	return nil
}

// findAdjacentTarget re-resolves the perceived target among the entities
// within Chebyshev distance 1. The target may have moved out of reach
// since perception ran; that simply means no hit this tick.
func (s *CombatSystem) findAdjacentTarget(ctx *Context, self ecs.Entity, pos components.Position, targetID uint32) ecs.Entity {
	s.scratch = ctx.Grid.QueryRadiusInto(s.scratch[:0], pos, 1, self, s.posMap)
	for _, n := range s.scratch {
		if org := s.orgMap.Get(n); org != nil && org.ID == targetID {
			return n
		}
	}
	return ecsZero
}
