package systems

import (
	"math/rand/v2"

	"github.com/mlange-42/ark/ecs"

	"github.com/sonder-sim/sonder/components"
	"github.com/sonder-sim/sonder/config"
	"github.com/sonder-sim/sonder/events"
	"github.com/sonder-sim/sonder/genome"
)

// fixture wires a minimal world for exercising one system at a time.
type fixture struct {
	world    *ecs.World
	mapper   *ecs.Map6[components.Position, components.Stats, components.Behavior, components.Genome, components.Lineage, components.Organism]
	posMap   *ecs.Map1[components.Position]
	statsMap *ecs.Map1[components.Stats]
	behMap   *ecs.Map1[components.Behavior]
	genMap   *ecs.Map1[components.Genome]
	grid     *SpatialGrid
	cfg      *config.Config
	rec      *events.Recorder
	pending  PendingBuffers
	rng      *rand.Rand
	nextID   uint32
}

func newFixture(width, height, cellSize int) *fixture {
	cfg := config.Default()
	cfg.World.Width = width
	cfg.World.Height = height
	cfg.World.CellSize = cellSize

	w := ecs.NewWorld()
	return &fixture{
		world:    w,
		mapper:   ecs.NewMap6[components.Position, components.Stats, components.Behavior, components.Genome, components.Lineage, components.Organism](w),
		posMap:   ecs.NewMap1[components.Position](w),
		statsMap: ecs.NewMap1[components.Stats](w),
		behMap:   ecs.NewMap1[components.Behavior](w),
		genMap:   ecs.NewMap1[components.Genome](w),
		grid:     NewSpatialGrid(width, height, cellSize),
		cfg:      cfg,
		rec:      events.NewRecorder(),
		rng:      rand.New(rand.NewPCG(1, 1)),
	}
}

func (f *fixture) ctx(tick int64) *Context {
	return &Context{
		Tick:    tick,
		Cfg:     f.cfg,
		RNG:     f.rng,
		Grid:    f.grid,
		Events:  f.rec,
		Pending: &f.pending,
	}
}

func (f *fixture) spawn(pos components.Position, traits genome.TraitVector, stats components.Stats) ecs.Entity {
	f.nextID++
	beh := components.Behavior{}
	gen := components.Genome{Traits: traits}
	lin := components.Lineage{}
	org := components.Organism{ID: f.nextID, Tag: "frog"}
	e := f.mapper.NewEntity(&pos, &stats, &beh, &gen, &lin, &org)
	f.grid.Insert(e, pos)
	return e
}

// midTraits returns a trait vector with every gene at the middle of its
// range.
func midTraits() genome.TraitVector {
	var tv genome.TraitVector
	for g := genome.Gene(0); g < genome.NumGenes; g++ {
		tv[g] = (genome.Ranges[g].Min + genome.Ranges[g].Max) / 2
	}
	return tv
}
