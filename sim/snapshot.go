package sim

import "sort"

// EntitySnapshot is the read-only per-entity view exposed at tick
// boundaries: identity, position, and the stats a viewer may display.
type EntitySnapshot struct {
	ID         uint32 `json:"id"`
	Tag        string `json:"tag"`
	X          int    `json:"x"`
	Y          int    `json:"y"`
	Health     int    `json:"health"`
	Energy     int    `json:"energy"`
	Generation int    `json:"generation"`
	Mode       string `json:"mode"`
}

// Snapshot is a consistent copy of the world at the end of a tick.
// Entities are sorted by id; mutating a snapshot never touches live state.
type Snapshot struct {
	Tick     int64            `json:"tick"`
	Entities []EntitySnapshot `json:"entities"`
}

func (w *World) snapshot() *Snapshot {
	snap := &Snapshot{
		Tick:     w.tick,
		Entities: make([]EntitySnapshot, 0, w.grid.Len()),
	}
	query := w.filter.Query()
	for query.Next() {
		pos, stats, beh, _, lin, org := query.Get()
		snap.Entities = append(snap.Entities, EntitySnapshot{
			ID:         org.ID,
			Tag:        org.Tag,
			X:          pos.X,
			Y:          pos.Y,
			Health:     stats.Health,
			Energy:     stats.Energy,
			Generation: lin.Generation,
			Mode:       beh.Mode.String(),
		})
	}
	sort.Slice(snap.Entities, func(i, j int) bool {
		return snap.Entities[i].ID < snap.Entities[j].ID
	})
	return snap
}
