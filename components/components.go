// Package components defines the ECS components carried by simulation
// entities. An entity is an opaque identity; everything it is or does lives
// in these containers.
package components

import "github.com/sonder-sim/sonder/genome"

// Position is an entity's location on the world grid, within
// [0,width) x [0,height). Every live entity has exactly one Position, and
// Position alone determines spatial index cell membership.
type Position struct {
	X, Y int
}

// Adjacent reports whether other is within Chebyshev distance 1 of p,
// excluding p itself.
func (p Position) Adjacent(other Position) bool {
	if p == other {
		return false
	}
	dx := p.X - other.X
	dy := p.Y - other.Y
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	return dx <= 1 && dy <= 1
}

// Stats holds an entity's numeric attributes. All fields are kept
// non-negative; Health reaching zero marks the entity for removal at the
// end of the tick.
type Stats struct {
	Health    int
	MaxHealth int
	Attack    int
	Defense   int
	Energy    int
	MaxEnergy int

	// ReproCooldown is the number of ticks until the entity may reproduce
	// again. Decremented by the reproduction system.
	ReproCooldown int
}

// Alive reports whether the entity still counts as living.
func (s *Stats) Alive() bool {
	return s.Health > 0
}

// Damage applies attack damage reduced by defense, never below 1 for a
// landed hit, and floors health at zero.
func (s *Stats) Damage(attack int) int {
	dealt := attack - s.Defense
	if dealt < 1 {
		dealt = 1
	}
	if dealt > s.Health {
		dealt = s.Health
	}
	s.Health -= dealt
	return dealt
}

// GainEnergy adds energy, clamped to MaxEnergy.
func (s *Stats) GainEnergy(amount int) {
	s.Energy += amount
	if s.Energy > s.MaxEnergy {
		s.Energy = s.MaxEnergy
	}
}

// SpendEnergy removes energy if available and reports success.
func (s *Stats) SpendEnergy(amount int) bool {
	if s.Energy < amount {
		return false
	}
	s.Energy -= amount
	return true
}

// Mode is the tagged behavior state resumed across ticks.
type Mode uint8

const (
	ModeIdle Mode = iota
	ModeWandering
	ModePursuing
	ModeFleeing
)

// String returns the mode name for snapshots and logs.
func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeWandering:
		return "wandering"
	case ModePursuing:
		return "pursuing"
	case ModeFleeing:
		return "fleeing"
	default:
		return "unknown"
	}
}

// Behavior holds the AI state owned exclusively by one entity. Target is
// the organism ID of the entity being pursued or fled from (0 = none);
// systems re-resolve it against the spatial index each tick rather than
// holding entity handles across ticks.
type Behavior struct {
	Mode   Mode
	Target uint32

	// TargetX, TargetY cache the target's position as perceived this
	// tick, so movement needs no second lookup.
	TargetX, TargetY int

	// Wander heading, each component in {-1, 0, 1}. Persisted so a
	// wandering entity keeps direction between ticks.
	DirX, DirY int

	// Moved records whether the movement system displaced the entity this
	// tick; stationary entities recover a little energy.
	Moved bool
}

// Genome is the heritable trait vector. Immutable once assigned; new
// values appear only on offspring via reproduction-time mutation.
type Genome struct {
	Traits genome.TraitVector
}

// Lineage tracks ancestry for analytics. Generation is 0 for root
// ancestors and max(parent generations)+1 for offspring. Never used for
// gameplay decisions.
type Lineage struct {
	Generation int
	ParentID   uint32
}

// StatsFor derives birth stats from a trait vector. Aggression buys
// attack, resilience buys health and defense, metabolism sizes the energy
// reserve. Entities are born at full health with half their energy.
func StatsFor(traits genome.TraitVector) Stats {
	maxHealth := 10 + int(traits[genome.Resilience]*10+0.5)
	maxEnergy := 60 + int(traits[genome.Metabolism]*40+0.5)
	return Stats{
		Health:    maxHealth,
		MaxHealth: maxHealth,
		Attack:    1 + int(traits[genome.Aggression]*5+0.5),
		Defense:   int(traits[genome.Resilience]*3 + 0.5),
		Energy:    maxEnergy / 2,
		MaxEnergy: maxEnergy,
	}
}

// Organism carries the stable public identity and the display
// classification tag. The tag exists for snapshots and analytics only;
// systems dispatch on component presence and gene values, never on tags.
type Organism struct {
	ID  uint32
	Tag string
}
