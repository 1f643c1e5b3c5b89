package systems

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/sonder-sim/sonder/components"
	"github.com/sonder-sim/sonder/genome"
)

// ReproductionSystem decides which entities reproduce this tick and queues
// offspring into the pending-spawn buffer; nothing is materialized until
// the scheduler merges at the tick boundary. An entity reproduces at most
// once per tick. Sexual reproduction happens when an eligible mate is
// adjacent; otherwise eligible entities reproduce asexually. Offspring
// traits come from the evolution engine, fed exclusively by the
// scheduler's seeded random source.
type ReproductionSystem struct {
	filter   *ecs.Filter5[components.Position, components.Stats, components.Genome, components.Lineage, components.Organism]
	posMap   *ecs.Map1[components.Position]
	statsMap *ecs.Map1[components.Stats]
	genMap   *ecs.Map1[components.Genome]
	linMap   *ecs.Map1[components.Lineage]
	orgMap   *ecs.Map1[components.Organism]

	scratch    []ecs.Entity
	reproduced map[uint32]bool
}

// NewReproductionSystem creates the system over w.
func NewReproductionSystem(w *ecs.World) *ReproductionSystem {
	return &ReproductionSystem{
		filter:     ecs.NewFilter5[components.Position, components.Stats, components.Genome, components.Lineage, components.Organism](w),
		posMap:     ecs.NewMap1[components.Position](w),
		statsMap:   ecs.NewMap1[components.Stats](w),
		genMap:     ecs.NewMap1[components.Genome](w),
		linMap:     ecs.NewMap1[components.Lineage](w),
		orgMap:     ecs.NewMap1[components.Organism](w),
		reproduced: make(map[uint32]bool),
	}
}

// Name implements System.
func (s *ReproductionSystem) Name() string { return "reproduction" }

// Update implements System.
func (s *ReproductionSystem) Update(ctx *Context) error {
	cfg := ctx.Cfg
	policy := genome.MutationPolicy{Rate: cfg.Mutation.Rate, Magnitude: cfg.Mutation.Magnitude}
	clear(s.reproduced)

	// Cooldowns tick down for everyone first, so an entity whose cooldown
	// expires this tick may reproduce this tick.
	cooldownQuery := s.filter.Query()
	for cooldownQuery.Next() {
		_, stats, _, _, _ := cooldownQuery.Get()
		if stats.ReproCooldown > 0 {
			stats.ReproCooldown--
		}
	}

	query := s.filter.Query()
	for query.Next() {
		entity := query.Entity()
		pos, stats, gen, lin, org := query.Get()

		if s.reproduced[org.ID] || !s.eligible(stats, cfg.Reproduction.EnergyThreshold) {
			continue
		}

		// Hard cap: live entities plus already-queued births.
		if ctx.Grid.Len()+len(ctx.Pending.Spawns) >= cfg.Population.Max {
			return nil
		}

		childPos, ok := FreeAdjacentCell(ctx.Grid, *pos, s.posMap)
		if !ok {
			// No free adjacent cell: reproduction silently fails for this
			// entity this tick. Expected outcome, not an error.
			continue
		}

		mate, mateOrg := s.adjacentMate(ctx, entity, *pos, cfg.Reproduction.EnergyThreshold)

		var childTraits genome.TraitVector
		childGen := lin.Generation + 1
		var partnerID uint32

		if mate != ecsZero {
			mateStats := s.statsMap.Get(mate)
			mateGenome := s.genMap.Get(mate)
			mateLin := s.linMap.Get(mate)

			childTraits = genome.Crossover(gen.Traits, mateGenome.Traits, policy, ctx.RNG)
			if mateLin.Generation >= lin.Generation {
				childGen = mateLin.Generation + 1
			}
			partnerID = mateOrg.ID

			mateStats.Energy -= cfg.Reproduction.EnergyCost
			if mateStats.Energy < 0 {
				mateStats.Energy = 0
			}
			mateStats.ReproCooldown = s.cooldownFor(cfg.Reproduction.Cooldown, mateGenome.Traits)
			s.reproduced[mateOrg.ID] = true
		} else {
			childTraits = genome.Mutate(gen.Traits, policy, ctx.RNG)
		}

		stats.Energy -= cfg.Reproduction.EnergyCost
		if stats.Energy < 0 {
			stats.Energy = 0
		}
		stats.ReproCooldown = s.cooldownFor(cfg.Reproduction.Cooldown, gen.Traits)
		s.reproduced[org.ID] = true

		ctx.Pending.QueueSpawn(SpawnRequest{
			Tag:        org.Tag,
			Pos:        childPos,
			Traits:     childTraits,
			Stats:      components.StatsFor(childTraits),
			Generation: childGen,
			ParentID:   org.ID,
			PartnerID:  partnerID,
		})
	}
	return nil
}

// eligible applies the energy-threshold reproduction trigger.
func (s *ReproductionSystem) eligible(stats *components.Stats, threshold int) bool {
	return stats.Alive() && stats.ReproCooldown == 0 && stats.Energy >= threshold
}

// adjacentMate returns the first eligible mate within Chebyshev distance 1
// in deterministic scan order, or the zero entity.
func (s *ReproductionSystem) adjacentMate(ctx *Context, self ecs.Entity, pos components.Position, threshold int) (ecs.Entity, *components.Organism) {
	s.scratch = ctx.Grid.QueryRadiusInto(s.scratch[:0], pos, 1, self, s.posMap)
	for _, n := range s.scratch {
		org := s.orgMap.Get(n)
		st := s.statsMap.Get(n)
		if org == nil || st == nil || s.reproduced[org.ID] {
			continue
		}
		if s.genMap.Get(n) == nil || s.linMap.Get(n) == nil {
			continue
		}
		if s.eligible(st, threshold) {
			return n, org
		}
	}
	return ecsZero, nil
}

// cooldownFor scales the base cooldown by the fertility gene: the most
// fertile entities wait half as long, the least fertile half again more.
func (s *ReproductionSystem) cooldownFor(base int, traits genome.TraitVector) int {
	cd := int(float64(base) * (1.5 - traits[genome.Fertility]))
	if cd < 1 {
		cd = 1
	}
	return cd
}
