package sim

import (
	"fmt"
	"iter"
	"sort"

	"github.com/mlange-42/ark/ecs"

	"github.com/sonder-sim/sonder/components"
	"github.com/sonder-sim/sonder/genome"
)

// ComponentKind names a component category for store queries.
type ComponentKind uint8

const (
	KindPosition ComponentKind = iota
	KindStats
	KindBehavior
	KindGenome
	KindLineage
	KindOrganism
)

func (w *World) lookup(id uint32) (ecs.Entity, error) {
	e, ok := w.byID[id]
	if !ok || !w.store.Alive(e) {
		return ecs.Entity{}, fmt.Errorf("entity %d: %w", id, ErrUnknownEntity)
	}
	return e, nil
}

// PositionOf returns the entity's position.
func (w *World) PositionOf(id uint32) (components.Position, error) {
	e, err := w.lookup(id)
	if err != nil {
		return components.Position{}, err
	}
	return *w.posMap.Get(e), nil
}

// StatsOf returns a copy of the entity's stats.
func (w *World) StatsOf(id uint32) (components.Stats, error) {
	e, err := w.lookup(id)
	if err != nil {
		return components.Stats{}, err
	}
	return *w.statsMap.Get(e), nil
}

// BehaviorOf returns a copy of the entity's behavior state.
func (w *World) BehaviorOf(id uint32) (components.Behavior, error) {
	e, err := w.lookup(id)
	if err != nil {
		return components.Behavior{}, err
	}
	return *w.behMap.Get(e), nil
}

// GenomeOf returns the entity's trait vector.
func (w *World) GenomeOf(id uint32) (genome.TraitVector, error) {
	e, err := w.lookup(id)
	if err != nil {
		return genome.TraitVector{}, err
	}
	return w.genMap.Get(e).Traits, nil
}

// LineageOf returns the entity's generation and parent id.
func (w *World) LineageOf(id uint32) (components.Lineage, error) {
	e, err := w.lookup(id)
	if err != nil {
		return components.Lineage{}, err
	}
	return *w.linMap.Get(e), nil
}

// TagOf returns the entity's display tag.
func (w *World) TagOf(id uint32) (string, error) {
	e, err := w.lookup(id)
	if err != nil {
		return "", err
	}
	return w.orgMap.Get(e).Tag, nil
}

// SetPosition moves an entity, keeping the spatial index in sync. The
// target must be inside the world.
func (w *World) SetPosition(id uint32, p components.Position) error {
	e, err := w.lookup(id)
	if err != nil {
		return err
	}
	if !w.grid.InBounds(p) {
		return fmt.Errorf("position (%d,%d) outside world bounds", p.X, p.Y)
	}
	pos := w.posMap.Get(e)
	if !w.grid.UpdatePosition(e, *pos, p) {
		return &InvariantViolationError{
			Tick:   w.tick,
			Detail: fmt.Sprintf("entity %d not indexed at (%d,%d)", id, pos.X, pos.Y),
		}
	}
	*pos = p
	return nil
}

// SetStats overwrites an entity's stats.
func (w *World) SetStats(id uint32, s components.Stats) error {
	e, err := w.lookup(id)
	if err != nil {
		return err
	}
	*w.statsMap.Get(e) = s
	return nil
}

// EntitiesWith returns the ids of live entities carrying every listed
// component kind, in ascending id order. The sequence is computed against
// the store state at call time and can be ranged repeatedly.
func (w *World) EntitiesWith(kinds ...ComponentKind) iter.Seq[uint32] {
	ids := make([]uint32, 0, len(w.byID))
	for id, e := range w.byID {
		if !w.store.Alive(e) {
			continue
		}
		if w.hasAll(e, kinds) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return func(yield func(uint32) bool) {
		for _, id := range ids {
			if !yield(id) {
				return
			}
		}
	}
}

func (w *World) hasAll(e ecs.Entity, kinds []ComponentKind) bool {
	for _, k := range kinds {
		switch k {
		case KindPosition:
			if w.posMap.Get(e) == nil {
				return false
			}
		case KindStats:
			if w.statsMap.Get(e) == nil {
				return false
			}
		case KindBehavior:
			if w.behMap.Get(e) == nil {
				return false
			}
		case KindGenome:
			if w.genMap.Get(e) == nil {
				return false
			}
		case KindLineage:
			if w.linMap.Get(e) == nil {
				return false
			}
		case KindOrganism:
			if w.orgMap.Get(e) == nil {
				return false
			}
		}
	}
	return true
}
