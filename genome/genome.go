// Package genome implements heritable trait vectors and reproduction-time
// mutation. The engine is stateless: offspring traits are a pure function of
// parent traits, the mutation policy, and the random source supplied by the
// caller.
package genome

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Gene indexes a single heritable value within a TraitVector.
type Gene int

const (
	Speed Gene = iota // grid cells traversed per tick
	Aggression
	Metabolism // scales energy upkeep and movement cost
	Fertility  // scales reproduction cooldown
	Perception // neighbor query radius in cells
	Resilience
	NumGenes
)

// String returns the gene's name.
func (g Gene) String() string {
	switch g {
	case Speed:
		return "speed"
	case Aggression:
		return "aggression"
	case Metabolism:
		return "metabolism"
	case Fertility:
		return "fertility"
	case Perception:
		return "perception"
	case Resilience:
		return "resilience"
	default:
		return fmt.Sprintf("gene(%d)", int(g))
	}
}

// Range is the valid closed interval for a gene value.
type Range struct {
	Min, Max float64
}

// Ranges declares the valid interval per gene. Mutation clamps into these;
// a live entity carrying an out-of-range gene is an invariant violation.
var Ranges = [NumGenes]Range{
	Speed:      {0.5, 3.0},
	Aggression: {0.0, 1.0},
	Metabolism: {0.5, 2.0},
	Fertility:  {0.0, 1.0},
	Perception: {1.0, 6.0},
	Resilience: {0.0, 1.0},
}

// TraitVector is the genome: an ordered, fixed-size list of gene values.
// It is a value type; entities own their copy and it never changes after
// assignment except through reproduction.
type TraitVector [NumGenes]float64

// Clamped returns a copy with every gene clamped into its declared range.
func (tv TraitVector) Clamped() TraitVector {
	for g := Gene(0); g < NumGenes; g++ {
		r := Ranges[g]
		if tv[g] < r.Min {
			tv[g] = r.Min
		} else if tv[g] > r.Max {
			tv[g] = r.Max
		}
	}
	return tv
}

// InRange reports whether every gene lies within its declared range.
func (tv TraitVector) InRange() bool {
	for g := Gene(0); g < NumGenes; g++ {
		r := Ranges[g]
		if tv[g] < r.Min || tv[g] > r.Max {
			return false
		}
	}
	return true
}

// MutationPolicy controls reproduction-time mutation. Rate is the per-gene
// mutation probability in [0,1]; Magnitude bounds the symmetric uniform
// delta added to a mutated gene.
type MutationPolicy struct {
	Rate      float64
	Magnitude float64
}

// Mutate produces an offspring trait vector from a single parent (asexual
// reproduction). Each gene mutates independently with probability
// policy.Rate by a delta drawn uniformly from [-Magnitude, +Magnitude],
// then is clamped to its range. With Rate 0 the result equals the parent
// exactly. All randomness comes from rng; identical seeds give identical
// offspring.
func Mutate(parent TraitVector, policy MutationPolicy, rng *rand.Rand) TraitVector {
	child := parent
	if policy.Rate <= 0 {
		return child
	}
	delta := distuv.Uniform{Min: -policy.Magnitude, Max: policy.Magnitude, Src: rng}
	for g := Gene(0); g < NumGenes; g++ {
		if rng.Float64() < policy.Rate {
			child[g] += delta.Rand()
		}
	}
	return child.Clamped()
}

// Crossover produces an offspring trait vector from two parents (sexual
// reproduction): the elementwise average of the parents, then the same
// mutation step as Mutate. With Rate 0 the result is the exact average.
func Crossover(a, b TraitVector, policy MutationPolicy, rng *rand.Rand) TraitVector {
	var child TraitVector
	for g := Gene(0); g < NumGenes; g++ {
		child[g] = (a[g] + b[g]) / 2
	}
	return Mutate(child, policy, rng)
}
