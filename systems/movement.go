package systems

import (
	"math"

	"github.com/mlange-42/ark/ecs"

	"github.com/sonder-sim/sonder/components"
	"github.com/sonder-sim/sonder/genome"
)

// MovementSystem displaces entities according to their behavior mode and
// applies per-tick energy economics: moving costs energy scaled by the
// metabolism gene, standing still restores a little, and an entity with no
// energy left starves. Every displacement goes through the spatial index
// synchronously so index and store never diverge.
type MovementSystem struct {
	filter *ecs.Filter4[components.Position, components.Stats, components.Behavior, components.Genome]
}

// NewMovementSystem creates the system over w.
func NewMovementSystem(w *ecs.World) *MovementSystem {
	return &MovementSystem{
		filter: ecs.NewFilter4[components.Position, components.Stats, components.Behavior, components.Genome](w),
	}
}

// Name implements System.
func (s *MovementSystem) Name() string { return "movement" }

// Update implements System.
func (s *MovementSystem) Update(ctx *Context) error {
	cfg := ctx.Cfg

	query := s.filter.Query()
	for query.Next() {
		entity := query.Entity()
		pos, stats, behavior, gen := query.Get()

		if !stats.Alive() {
			continue
		}

		behavior.Moved = false

		steps := clampInt(int(gen.Traits[genome.Speed]), 1, 3)
		stepCost := int(math.Round(cfg.Energy.MoveCost * gen.Traits[genome.Metabolism]))
		if stepCost < 1 {
			stepCost = 1
		}

		for i := 0; i < steps; i++ {
			dx, dy := s.stepDirection(pos, behavior)
			if dx == 0 && dy == 0 {
				break
			}
			if stats.Energy < stepCost {
				break
			}

			next := components.Position{
				X: clampInt(pos.X+dx, 0, cfg.World.Width-1),
				Y: clampInt(pos.Y+dy, 0, cfg.World.Height-1),
			}
			if next == *pos {
				// Pinned against the world edge; re-roll the wander
				// heading so the entity does not grind there forever.
				if behavior.Mode == components.ModeWandering {
					behavior.DirX, behavior.DirY = 0, 0
				}
				break
			}

			old := *pos
			*pos = next
			if !ctx.Grid.UpdatePosition(entity, old, next) {
				return &DesyncError{What: "movement: entity missing from spatial index cell"}
			}
			stats.Energy -= stepCost
			behavior.Moved = true
		}

		if !behavior.Moved {
			stats.GainEnergy(cfg.Energy.RestRegen)
		}

		// Starvation: an exhausted entity burns health instead.
		if stats.Energy <= 0 && cfg.Energy.StarvationDamage > 0 {
			stats.Health -= cfg.Energy.StarvationDamage
			if stats.Health < 0 {
				stats.Health = 0
			}
		}
	}
	return nil
}

// stepDirection resolves one Chebyshev step for the current mode.
func (s *MovementSystem) stepDirection(pos *components.Position, behavior *components.Behavior) (int, int) {
	switch behavior.Mode {
	case components.ModePursuing:
		return sign(behavior.TargetX - pos.X), sign(behavior.TargetY - pos.Y)
	case components.ModeFleeing:
		return sign(pos.X - behavior.TargetX), sign(pos.Y - behavior.TargetY)
	case components.ModeWandering:
		return behavior.DirX, behavior.DirY
	default:
		return 0, 0
	}
}

// DesyncError is a fatal index/store inconsistency detected mid-system.
// The scheduler converts it into a core invariant violation and stops.
type DesyncError struct {
	What string
}

func (e *DesyncError) Error() string { return e.What }
