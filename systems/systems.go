package systems

import (
	"math/rand/v2"

	"github.com/mlange-42/ark/ecs"

	"github.com/sonder-sim/sonder/components"
	"github.com/sonder-sim/sonder/config"
	"github.com/sonder-sim/sonder/events"
	"github.com/sonder-sim/sonder/genome"
)

// System is one stage of the tick pipeline. Systems run in a fixed total
// order, communicate only through the store, the spatial index, and the
// pending buffers, and never call each other.
type System interface {
	Name() string
	Update(ctx *Context) error
}

// Context is the per-tick view a system borrows from the scheduler. It is
// valid only for the duration of one Update call.
type Context struct {
	Tick    int64
	Cfg     *config.Config
	RNG     *rand.Rand
	Grid    *SpatialGrid
	Events  *events.Recorder
	Pending *PendingBuffers
}

// SpawnRequest is a deferred entity creation, queued during a tick and
// materialized by the scheduler at the tick boundary.
type SpawnRequest struct {
	Tag        string
	Pos        components.Position
	Traits     genome.TraitVector
	Stats      components.Stats
	Generation int
	ParentID   uint32
	// PartnerID is the second parent for sexual reproduction, 0 otherwise.
	PartnerID uint32
}

// PendingBuffers stage spawns and despawns so mid-tick iteration stays
// stable. The scheduler drains both at the tick boundary.
type PendingBuffers struct {
	Spawns   []SpawnRequest
	Despawns []ecs.Entity
}

// Reset clears both buffers for the next tick.
func (p *PendingBuffers) Reset() {
	p.Spawns = p.Spawns[:0]
	p.Despawns = p.Despawns[:0]
}

// QueueSpawn appends a deferred spawn.
func (p *PendingBuffers) QueueSpawn(req SpawnRequest) {
	p.Spawns = append(p.Spawns, req)
}

// QueueDespawn appends a deferred removal.
func (p *PendingBuffers) QueueDespawn(e ecs.Entity) {
	p.Despawns = append(p.Despawns, e)
}

// neighborOffsets is the fixed tie-break order for choosing a free
// adjacent cell: cardinal directions first, then diagonals, scanning
// N, E, S, W, NE, SE, SW, NW. The first free cell wins.
var neighborOffsets = [8][2]int{
	{0, -1}, {1, 0}, {0, 1}, {-1, 0},
	{1, -1}, {1, 1}, {-1, 1}, {-1, -1},
}

// FreeAdjacentCell returns the first unoccupied in-bounds cell adjacent to
// p in the fixed scan order, or ok=false when all eight are taken.
func FreeAdjacentCell(grid *SpatialGrid, p components.Position, posMap *ecs.Map1[components.Position]) (components.Position, bool) {
	for _, off := range neighborOffsets {
		cand := components.Position{X: p.X + off[0], Y: p.Y + off[1]}
		if !grid.InBounds(cand) {
			continue
		}
		if !grid.OccupiedAt(cand, posMap) {
			return cand, true
		}
	}
	return components.Position{}, false
}

// sign returns -1, 0, or 1.
func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	default:
		return 0
	}
}

// clampInt clamps v into [lo, hi].
func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
