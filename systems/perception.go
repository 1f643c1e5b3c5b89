package systems

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/sonder-sim/sonder/components"
	"github.com/sonder-sim/sonder/genome"
)

// PerceptionSystem senses neighbors through the spatial index and decides
// each entity's behavior mode for the tick. Entities at or above the
// aggression threshold hunt weaker neighbors; entities below it flee
// stronger ones; everyone else wanders. Dispatch is purely on stats and
// genes, never on display tags.
type PerceptionSystem struct {
	filter   *ecs.Filter4[components.Position, components.Stats, components.Behavior, components.Genome]
	posMap   *ecs.Map1[components.Position]
	statsMap *ecs.Map1[components.Stats]
	orgMap   *ecs.Map1[components.Organism]

	scratch []ecs.Entity
}

// NewPerceptionSystem creates the system's filters and maps over w.
func NewPerceptionSystem(w *ecs.World) *PerceptionSystem {
	return &PerceptionSystem{
		filter:   ecs.NewFilter4[components.Position, components.Stats, components.Behavior, components.Genome](w),
		posMap:   ecs.NewMap1[components.Position](w),
		statsMap: ecs.NewMap1[components.Stats](w),
		orgMap:   ecs.NewMap1[components.Organism](w),
	}
}

// Name implements System.
func (s *PerceptionSystem) Name() string { return "perception" }

// Update implements System.
func (s *PerceptionSystem) Update(ctx *Context) error {
	query := s.filter.Query()
	for query.Next() {
		entity := query.Entity()
		pos, stats, behavior, gen := query.Get()

		if !stats.Alive() {
			continue
		}

		radius := clampInt(int(gen.Traits[genome.Perception]+0.5), 1, ctx.Cfg.World.Width)
		s.scratch = ctx.Grid.QueryRadiusInto(s.scratch[:0], *pos, radius, entity, s.posMap)

		threat, threatID := s.strongestThreat(stats.Attack, s.scratch)
		prey, preyID := s.weakestPrey(stats.Attack, s.scratch)

		aggressive := gen.Traits[genome.Aggression] >= ctx.Cfg.Behavior.AggressionThreshold

		switch {
		case !aggressive && threat != ecsZero:
			behavior.Mode = components.ModeFleeing
			behavior.Target = threatID
			if tp := s.posMap.Get(threat); tp != nil {
				behavior.TargetX, behavior.TargetY = tp.X, tp.Y
			}
		case aggressive && prey != ecsZero && stats.Energy < stats.MaxEnergy:
			behavior.Mode = components.ModePursuing
			behavior.Target = preyID
			if tp := s.posMap.Get(prey); tp != nil {
				behavior.TargetX, behavior.TargetY = tp.X, tp.Y
			}
		default:
			s.wander(ctx, behavior)
		}
	}
	return nil
}

var ecsZero ecs.Entity

// strongestThreat returns the neighbor with the highest attack exceeding
// myAttack, breaking ties by lowest organism ID so runs are reproducible.
func (s *PerceptionSystem) strongestThreat(myAttack int, neighbors []ecs.Entity) (ecs.Entity, uint32) {
	best := ecsZero
	bestAttack := myAttack
	var bestID uint32
	for _, n := range neighbors {
		st := s.statsMap.Get(n)
		org := s.orgMap.Get(n)
		if st == nil || org == nil || !st.Alive() {
			continue
		}
		if st.Attack > bestAttack || (best != ecsZero && st.Attack == bestAttack && org.ID < bestID) {
			best = n
			bestAttack = st.Attack
			bestID = org.ID
		}
	}
	return best, bestID
}

// weakestPrey returns the neighbor with strictly lower attack and the
// lowest health, breaking ties by lowest organism ID.
func (s *PerceptionSystem) weakestPrey(myAttack int, neighbors []ecs.Entity) (ecs.Entity, uint32) {
	best := ecsZero
	bestHealth := 0
	var bestID uint32
	for _, n := range neighbors {
		st := s.statsMap.Get(n)
		org := s.orgMap.Get(n)
		if st == nil || org == nil || !st.Alive() {
			continue
		}
		if st.Attack >= myAttack {
			continue
		}
		if best == ecsZero || st.Health < bestHealth || (st.Health == bestHealth && org.ID < bestID) {
			best = n
			bestHealth = st.Health
			bestID = org.ID
		}
	}
	return best, bestID
}

// wander keeps or re-rolls the persisted heading.
func (s *PerceptionSystem) wander(ctx *Context, behavior *components.Behavior) {
	reRoll := behavior.Mode != components.ModeWandering ||
		(behavior.DirX == 0 && behavior.DirY == 0) ||
		ctx.RNG.Float64() < ctx.Cfg.Behavior.TurnChance

	behavior.Mode = components.ModeWandering
	behavior.Target = 0
	if !reRoll {
		return
	}
	for {
		behavior.DirX = ctx.RNG.IntN(3) - 1
		behavior.DirY = ctx.RNG.IntN(3) - 1
		if behavior.DirX != 0 || behavior.DirY != 0 {
			return
		}
	}
}
