package sim

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/mlange-42/ark/ecs"

	"github.com/sonder-sim/sonder/components"
	"github.com/sonder-sim/sonder/config"
	"github.com/sonder-sim/sonder/events"
	"github.com/sonder-sim/sonder/systems"
)

// State is the scheduler lifecycle state.
type State uint8

const (
	// StateUninitialized: constructed, no entities yet.
	StateUninitialized State = iota
	// StateReady: populated and between ticks.
	StateReady
	// StateTicking: inside AdvanceTick.
	StateTicking
	// StateStopped: terminal, by request or fatal error.
	StateStopped
)

// String returns the state name for logs.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateTicking:
		return "ticking"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// World owns the component store, the spatial index, the update pipeline,
// and the single seeded random source every stochastic decision draws
// from. All simulation state advances only through AdvanceTick; two worlds
// built from the same config and seed produce identical histories.
type World struct {
	cfg      *config.Config
	state    State
	tick     int64
	rng      *rand.Rand
	sink     events.Sink
	recorder *events.Recorder
	registry *Registry

	store  *ecs.World
	mapper *ecs.Map6[components.Position, components.Stats, components.Behavior, components.Genome, components.Lineage, components.Organism]
	filter *ecs.Filter6[components.Position, components.Stats, components.Behavior, components.Genome, components.Lineage, components.Organism]

	posMap   *ecs.Map1[components.Position]
	statsMap *ecs.Map1[components.Stats]
	behMap   *ecs.Map1[components.Behavior]
	genMap   *ecs.Map1[components.Genome]
	linMap   *ecs.Map1[components.Lineage]
	orgMap   *ecs.Map1[components.Organism]

	grid     *systems.SpatialGrid
	pipeline []systems.System
	pending  systems.PendingBuffers

	// byID maps public organism ids to live store entities. Ids are never
	// reused; a despawned id stays dangling forever.
	byID   map[uint32]ecs.Entity
	nextID uint32
}

// Option configures a World at construction.
type Option func(*World)

// WithSink routes the event stream to s instead of discarding it.
func WithSink(s events.Sink) Option {
	return func(w *World) {
		if s != nil {
			w.sink = s
		}
	}
}

// WithRegistry replaces the default archetype registry.
func WithRegistry(r *Registry) Option {
	return func(w *World) {
		if r != nil {
			w.registry = r
		}
	}
}

// New builds a scheduler from cfg. The config is validated up front; a nil
// cfg uses the embedded defaults.
func New(cfg *config.Config, opts ...Option) (*World, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store := ecs.NewWorld()
	w := &World{
		cfg:      cfg,
		state:    StateUninitialized,
		rng:      rand.New(rand.NewPCG(cfg.Seed, cfg.Seed<<1|1)),
		sink:     events.NullSink{},
		recorder: events.NewRecorder(),
		registry: DefaultRegistry(),

		store:  store,
		mapper: ecs.NewMap6[components.Position, components.Stats, components.Behavior, components.Genome, components.Lineage, components.Organism](store),
		filter: ecs.NewFilter6[components.Position, components.Stats, components.Behavior, components.Genome, components.Lineage, components.Organism](store),

		posMap:   ecs.NewMap1[components.Position](store),
		statsMap: ecs.NewMap1[components.Stats](store),
		behMap:   ecs.NewMap1[components.Behavior](store),
		genMap:   ecs.NewMap1[components.Genome](store),
		linMap:   ecs.NewMap1[components.Lineage](store),
		orgMap:   ecs.NewMap1[components.Organism](store),

		grid: systems.NewSpatialGrid(cfg.World.Width, cfg.World.Height, cfg.World.CellSize),
		byID: make(map[uint32]ecs.Entity),
	}
	w.pipeline = []systems.System{
		systems.NewPerceptionSystem(store),
		systems.NewMovementSystem(store),
		systems.NewCombatSystem(store),
		systems.NewReproductionSystem(store),
		systems.NewDeathSystem(store),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// State returns the current lifecycle state.
func (w *World) State() State { return w.state }

// Tick returns the index of the last completed tick, 0 before the first.
func (w *World) Tick() int64 { return w.tick }

// Count returns the number of live entities.
func (w *World) Count() int { return w.grid.Len() }

// Config returns the scheduler's validated configuration.
func (w *World) Config() *config.Config { return w.cfg }

// Populate seeds the world with the configured initial population and
// moves the scheduler to Ready. Spawn events for the founders carry tick 0
// and flush immediately.
func (w *World) Populate() error {
	if w.state != StateUninitialized {
		return fmt.Errorf("populate: scheduler is %s", w.state)
	}
	for _, group := range w.cfg.Population.Initial {
		factory, ok := w.registry.Lookup(group.Tag)
		if !ok {
			return &config.InvalidConfigurationError{
				Problems: []string{fmt.Sprintf("population.initial: no archetype registered for tag %q", group.Tag)},
			}
		}
		for i := 0; i < group.Count; i++ {
			if w.grid.Len() >= w.cfg.Population.Max {
				break
			}
			traits := factory(w.rng)
			w.spawn(systems.SpawnRequest{
				Tag:    group.Tag,
				Pos:    w.openPosition(),
				Traits: traits,
				Stats:  components.StatsFor(traits),
			})
		}
	}
	w.recorder.FlushTo(w.sink)
	w.state = StateReady
	return nil
}

// Stop moves the scheduler to its terminal state. Idempotent.
func (w *World) Stop() {
	w.state = StateStopped
}

// AdvanceTick runs one full simulation step: the five systems in fixed
// order, the deferred despawns and spawns, the boundary invariant check,
// and the event flush. On any fatal error the tick's effects on the event
// stream are discarded, the scheduler stops, and the error is returned.
func (w *World) AdvanceTick() (*Snapshot, error) {
	switch w.state {
	case StateStopped:
		return nil, ErrStopped
	case StateUninitialized:
		return nil, ErrNotReady
	}
	w.state = StateTicking
	w.tick++

	ctx := &systems.Context{
		Tick:    w.tick,
		Cfg:     w.cfg,
		RNG:     w.rng,
		Grid:    w.grid,
		Events:  w.recorder,
		Pending: &w.pending,
	}
	for _, sys := range w.pipeline {
		if err := sys.Update(ctx); err != nil {
			return nil, w.abort(sys.Name(), err)
		}
	}

	for _, e := range w.pending.Despawns {
		if !w.store.Alive(e) {
			continue
		}
		pos := w.posMap.Get(e)
		org := w.orgMap.Get(e)
		if !w.grid.Remove(e, *pos) {
			return nil, w.abort("despawn",
				fmt.Errorf("entity %d not indexed at (%d,%d)", org.ID, pos.X, pos.Y))
		}
		delete(w.byID, org.ID)
		w.mapper.Remove(e)
	}
	for _, req := range w.pending.Spawns {
		if w.grid.Len() >= w.cfg.Population.Max {
			break
		}
		w.spawn(req)
	}
	w.pending.Reset()

	if err := w.verify(); err != nil {
		return nil, w.abort("boundary check", err)
	}
	w.recorder.FlushTo(w.sink)
	w.state = StateReady
	return w.snapshot(), nil
}

// spawn materializes one entity, indexes it, and emits its spawn event
// (plus the parents' reproduction event for offspring). Positions outside
// the world are clamped to the nearest edge.
func (w *World) spawn(req systems.SpawnRequest) ecs.Entity {
	w.nextID++
	id := w.nextID

	pos := req.Pos
	if pos.X < 0 {
		pos.X = 0
	} else if pos.X >= w.cfg.World.Width {
		pos.X = w.cfg.World.Width - 1
	}
	if pos.Y < 0 {
		pos.Y = 0
	} else if pos.Y >= w.cfg.World.Height {
		pos.Y = w.cfg.World.Height - 1
	}

	stats := req.Stats
	beh := components.Behavior{}
	gen := components.Genome{Traits: req.Traits.Clamped()}
	lin := components.Lineage{Generation: req.Generation, ParentID: req.ParentID}
	org := components.Organism{ID: id, Tag: req.Tag}

	e := w.mapper.NewEntity(&pos, &stats, &beh, &gen, &lin, &org)
	w.grid.Insert(e, pos)
	w.byID[id] = e

	traits := gen.Traits
	w.recorder.Emit(events.Event{
		Tick:       w.tick,
		Kind:       events.KindSpawn,
		EntityID:   id,
		Generation: lin.Generation,
		X:          pos.X,
		Y:          pos.Y,
		Traits:     &traits,
	})
	if req.ParentID != 0 {
		w.recorder.Emit(events.Event{
			Tick:       w.tick,
			Kind:       events.KindReproduction,
			EntityID:   req.ParentID,
			TargetID:   req.PartnerID,
			Generation: lin.Generation,
			X:          pos.X,
			Y:          pos.Y,
		})
	}
	return e
}

// openPosition draws random positions until one is unoccupied, with a
// bounded number of attempts so dense worlds still terminate.
func (w *World) openPosition() components.Position {
	var p components.Position
	for try := 0; try < 64; try++ {
		p = components.Position{X: w.rng.IntN(w.cfg.World.Width), Y: w.rng.IntN(w.cfg.World.Height)}
		if !w.grid.OccupiedAt(p, w.posMap) {
			return p
		}
	}
	return p
}

// verify checks the tick-boundary invariants: every live entity is
// indexed at its position, every genome is in range, and store, index, and
// id table agree on the population count.
func (w *World) verify() error {
	count := 0
	query := w.filter.Query()
	for query.Next() {
		e := query.Entity()
		pos, _, _, gen, _, org := query.Get()
		count++
		if !w.grid.Contains(e, *pos) {
			return fmt.Errorf("entity %d at (%d,%d) missing from spatial index", org.ID, pos.X, pos.Y)
		}
		if !gen.Traits.InRange() {
			return fmt.Errorf("entity %d carries an out-of-range trait", org.ID)
		}
	}
	if count != w.grid.Len() {
		return fmt.Errorf("store holds %d entities, index holds %d", count, w.grid.Len())
	}
	if count != len(w.byID) {
		return fmt.Errorf("store holds %d entities, id table holds %d", count, len(w.byID))
	}
	return nil
}

// abort discards the half-finished tick's buffered events and pending
// mutations, stops the scheduler, and wraps err as fatal.
func (w *World) abort(stage string, err error) error {
	w.pending.Reset()
	w.recorder.FlushTo(nil)
	w.state = StateStopped

	var iv *InvariantViolationError
	if errors.As(err, &iv) {
		return err
	}
	return &InvariantViolationError{Tick: w.tick, System: stage, Detail: err.Error()}
}
