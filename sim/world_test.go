package sim

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/sonder-sim/sonder/components"
	"github.com/sonder-sim/sonder/config"
	"github.com/sonder-sim/sonder/events"
)

func smallConfig() *config.Config {
	cfg := config.Default()
	cfg.World.Width = 30
	cfg.World.Height = 30
	cfg.World.CellSize = 3
	cfg.Population.Max = 200
	cfg.Population.Initial = []config.SpawnGroup{
		{Tag: "frog", Count: 10},
		{Tag: "wolf", Count: 3},
	}
	cfg.Seed = 7
	return cfg
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.World.Width = 0

	_, err := New(cfg)
	var invalid *config.InvalidConfigurationError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidConfigurationError, got %v", err)
	}
}

func TestLifecycleStateMachine(t *testing.T) {
	w, err := New(smallConfig())
	if err != nil {
		t.Fatal(err)
	}
	if w.State() != StateUninitialized {
		t.Fatalf("fresh scheduler in state %v", w.State())
	}
	if _, err := w.AdvanceTick(); !errors.Is(err, ErrNotReady) {
		t.Errorf("tick before populate returned %v, want ErrNotReady", err)
	}

	if err := w.Populate(); err != nil {
		t.Fatal(err)
	}
	if w.State() != StateReady {
		t.Errorf("state %v after populate, want ready", w.State())
	}
	if w.Count() != 13 {
		t.Errorf("count %d after populate, want 13", w.Count())
	}
	if err := w.Populate(); err == nil {
		t.Error("second populate allowed")
	}

	if _, err := w.AdvanceTick(); err != nil {
		t.Fatalf("tick failed: %v", err)
	}
	if w.Tick() != 1 {
		t.Errorf("tick counter %d, want 1", w.Tick())
	}

	w.Stop()
	if _, err := w.AdvanceTick(); !errors.Is(err, ErrStopped) {
		t.Errorf("tick after stop returned %v, want ErrStopped", err)
	}
}

func TestPopulateRejectsUnknownArchetype(t *testing.T) {
	cfg := smallConfig()
	cfg.Population.Initial = []config.SpawnGroup{{Tag: "dragon", Count: 1}}

	w, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	err = w.Populate()
	var invalid *config.InvalidConfigurationError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidConfigurationError for unknown tag, got %v", err)
	}
}

func TestPopulateEmitsSpawnEvents(t *testing.T) {
	sink := &events.MemorySink{}
	w, err := New(smallConfig(), WithSink(sink))
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Populate(); err != nil {
		t.Fatal(err)
	}

	spawns := sink.ByKind(events.KindSpawn)
	if len(spawns) != 13 {
		t.Fatalf("got %d spawn events, want 13", len(spawns))
	}
	for _, ev := range spawns {
		if ev.Tick != 0 {
			t.Errorf("founder spawn at tick %d, want 0", ev.Tick)
		}
		if ev.Traits == nil || !ev.Traits.InRange() {
			t.Error("founder spawn missing a valid genome snapshot")
		}
		if ev.Generation != 0 {
			t.Errorf("founder generation %d, want 0", ev.Generation)
		}
	}
}

func TestUnknownEntityErrors(t *testing.T) {
	w, err := New(smallConfig())
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Populate(); err != nil {
		t.Fatal(err)
	}

	if _, err := w.StatsOf(9999); !errors.Is(err, ErrUnknownEntity) {
		t.Errorf("StatsOf(9999) = %v, want ErrUnknownEntity", err)
	}
	if _, err := w.PositionOf(0); !errors.Is(err, ErrUnknownEntity) {
		t.Errorf("PositionOf(0) = %v, want ErrUnknownEntity", err)
	}
	if err := w.SetStats(9999, components.Stats{}); !errors.Is(err, ErrUnknownEntity) {
		t.Errorf("SetStats(9999) = %v, want ErrUnknownEntity", err)
	}
}

func TestStoreFacade(t *testing.T) {
	w, err := New(smallConfig())
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Populate(); err != nil {
		t.Fatal(err)
	}

	var ids []uint32
	for id := range w.EntitiesWith(KindPosition, KindGenome, KindStats) {
		ids = append(ids, id)
	}
	if len(ids) != w.Count() {
		t.Fatalf("EntitiesWith yielded %d ids, want %d", len(ids), w.Count())
	}
	for i := 1; i < len(ids); i++ {
		if ids[i] <= ids[i-1] {
			t.Fatal("EntitiesWith ids not strictly ascending")
		}
	}

	id := ids[0]
	target := components.Position{X: 15, Y: 15}
	if err := w.SetPosition(id, target); err != nil {
		t.Fatal(err)
	}
	got, err := w.PositionOf(id)
	if err != nil {
		t.Fatal(err)
	}
	if got != target {
		t.Errorf("position %v after SetPosition, want %v", got, target)
	}

	if err := w.SetPosition(id, components.Position{X: -1, Y: 0}); err == nil {
		t.Error("out-of-bounds SetPosition allowed")
	}
	if tag, err := w.TagOf(id); err != nil || tag == "" {
		t.Errorf("TagOf = %q, %v", tag, err)
	}
}

func TestDeterministicRuns(t *testing.T) {
	run := func() ([]string, int) {
		sink := &events.MemorySink{}
		w, err := New(smallConfig(), WithSink(sink))
		if err != nil {
			t.Fatal(err)
		}
		if err := w.Populate(); err != nil {
			t.Fatal(err)
		}
		var history []string
		for i := 0; i < 30; i++ {
			snap, err := w.AdvanceTick()
			if err != nil {
				t.Fatal(err)
			}
			data, err := json.Marshal(snap)
			if err != nil {
				t.Fatal(err)
			}
			history = append(history, string(data))
		}
		return history, len(sink.Events)
	}

	a, aEvents := run()
	b, bEvents := run()

	if aEvents != bEvents {
		t.Errorf("event streams differ in length: %d vs %d", aEvents, bEvents)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("snapshots diverge at tick %d:\n%s\nvs\n%s", i+1, a[i], b[i])
		}
	}
}

func TestLethalDamageRemovesEntityAtTickEnd(t *testing.T) {
	cfg := config.Default()
	cfg.World.Width = 10
	cfg.World.Height = 10
	cfg.World.CellSize = 2
	cfg.Population.Max = 10
	cfg.Population.Initial = []config.SpawnGroup{{Tag: "frog", Count: 1}}
	cfg.Seed = 3

	sink := &events.MemorySink{}
	w, err := New(cfg, WithSink(sink))
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Populate(); err != nil {
		t.Fatal(err)
	}

	var id uint32
	for got := range w.EntitiesWith(KindStats) {
		id = got
	}
	stats, err := w.StatsOf(id)
	if err != nil {
		t.Fatal(err)
	}
	stats.Health = 0
	if err := w.SetStats(id, stats); err != nil {
		t.Fatal(err)
	}

	snap, err := w.AdvanceTick()
	if err != nil {
		t.Fatal(err)
	}

	if len(snap.Entities) != 0 || w.Count() != 0 {
		t.Errorf("entity survived lethal damage: %d in snapshot, %d live", len(snap.Entities), w.Count())
	}
	deaths := sink.ByKind(events.KindDeath)
	if len(deaths) != 1 {
		t.Fatalf("got %d death events, want 1", len(deaths))
	}
	if deaths[0].EntityID != id || deaths[0].Tick != 1 {
		t.Errorf("death event %+v, want entity %d at tick 1", deaths[0], id)
	}
	if _, err := w.StatsOf(id); !errors.Is(err, ErrUnknownEntity) {
		t.Errorf("despawned entity still readable: %v", err)
	}
}

func TestAdjacentMatesProduceOffspring(t *testing.T) {
	// In a 2x2 world two entities are always within Chebyshev distance 1,
	// so reproduction must fire on the first tick once both have the
	// energy for it.
	cfg := config.Default()
	cfg.World.Width = 2
	cfg.World.Height = 2
	cfg.World.CellSize = 1
	cfg.Population.Max = 10
	cfg.Population.Initial = []config.SpawnGroup{{Tag: "frog", Count: 2}}
	cfg.Seed = 11

	sink := &events.MemorySink{}
	w, err := New(cfg, WithSink(sink))
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Populate(); err != nil {
		t.Fatal(err)
	}

	for id := range w.EntitiesWith(KindStats) {
		stats, err := w.StatsOf(id)
		if err != nil {
			t.Fatal(err)
		}
		stats.Energy = stats.MaxEnergy
		if err := w.SetStats(id, stats); err != nil {
			t.Fatal(err)
		}
	}

	snap, err := w.AdvanceTick()
	if err != nil {
		t.Fatal(err)
	}

	if len(snap.Entities) != 3 {
		t.Fatalf("population %d after mating tick, want 3", len(snap.Entities))
	}

	matings := sink.ByKind(events.KindReproduction)
	if len(matings) != 1 {
		t.Fatalf("got %d reproduction events, want 1", len(matings))
	}
	if matings[0].TargetID == 0 {
		t.Error("reproduction event names no partner; expected a sexual pairing")
	}

	var childID uint32
	for _, ev := range sink.ByKind(events.KindSpawn) {
		if ev.Tick == 1 {
			childID = ev.EntityID
			if ev.Generation != 1 {
				t.Errorf("child generation %d, want 1", ev.Generation)
			}
			if ev.Traits == nil || !ev.Traits.InRange() {
				t.Error("child spawn missing a valid genome snapshot")
			}
		}
	}
	if childID == 0 {
		t.Fatal("no spawn event for the child")
	}

	lin, err := w.LineageOf(childID)
	if err != nil {
		t.Fatal(err)
	}
	if lin.Generation != 1 || lin.ParentID == 0 {
		t.Errorf("child lineage %+v, want generation 1 with a parent", lin)
	}
}

func TestSnapshotSortedAndDetached(t *testing.T) {
	w, err := New(smallConfig())
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Populate(); err != nil {
		t.Fatal(err)
	}
	snap, err := w.AdvanceTick()
	if err != nil {
		t.Fatal(err)
	}

	for i := 1; i < len(snap.Entities); i++ {
		if snap.Entities[i].ID <= snap.Entities[i-1].ID {
			t.Fatal("snapshot entities not sorted by id")
		}
	}

	// Mutating the snapshot must not touch live state.
	victim := snap.Entities[0]
	snap.Entities[0].Health = -999
	stats, err := w.StatsOf(victim.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Health == -999 {
		t.Error("snapshot mutation leaked into the store")
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateUninitialized, "uninitialized"},
		{StateReady, "ready"},
		{StateTicking, "ticking"},
		{StateStopped, "stopped"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
