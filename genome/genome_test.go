package genome

import (
	"math"
	"math/rand/v2"
	"testing"
)

func testRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

func midRangeVector() TraitVector {
	var tv TraitVector
	for g := Gene(0); g < NumGenes; g++ {
		tv[g] = (Ranges[g].Min + Ranges[g].Max) / 2
	}
	return tv
}

func TestMutateZeroRateIsIdentity(t *testing.T) {
	parent := midRangeVector()
	child := Mutate(parent, MutationPolicy{Rate: 0, Magnitude: 0.5}, testRNG(1))
	if child != parent {
		t.Errorf("zero-rate mutation changed traits: parent %v, child %v", parent, child)
	}
}

func TestMutateStaysInRange(t *testing.T) {
	rng := testRNG(2)
	// Start at the extremes so any delta would overflow without clamping.
	var low, high TraitVector
	for g := Gene(0); g < NumGenes; g++ {
		low[g] = Ranges[g].Min
		high[g] = Ranges[g].Max
	}

	for i := 0; i < 500; i++ {
		if child := Mutate(low, MutationPolicy{Rate: 1, Magnitude: 10}, rng); !child.InRange() {
			t.Fatalf("iteration %d: child out of range: %v", i, child)
		}
		if child := Mutate(high, MutationPolicy{Rate: 1, Magnitude: 10}, rng); !child.InRange() {
			t.Fatalf("iteration %d: child out of range: %v", i, child)
		}
	}
}

func TestMutateDeterministic(t *testing.T) {
	parent := midRangeVector()
	policy := MutationPolicy{Rate: 0.5, Magnitude: 0.3}

	a := Mutate(parent, policy, testRNG(42))
	b := Mutate(parent, policy, testRNG(42))
	if a != b {
		t.Errorf("same seed produced different offspring: %v vs %v", a, b)
	}
}

func TestCrossoverZeroRateIsAverage(t *testing.T) {
	var a, b TraitVector
	for g := Gene(0); g < NumGenes; g++ {
		a[g] = Ranges[g].Min
		b[g] = Ranges[g].Max
	}

	child := Crossover(a, b, MutationPolicy{Rate: 0}, testRNG(3))
	for g := Gene(0); g < NumGenes; g++ {
		want := (a[g] + b[g]) / 2
		if math.Abs(child[g]-want) > 1e-12 {
			t.Errorf("%v: got %v, want %v", g, child[g], want)
		}
	}
}

func TestClamped(t *testing.T) {
	tests := []struct {
		name string
		gene Gene
		in   float64
		want float64
	}{
		{"below min", Speed, -1.0, 0.5},
		{"above max", Speed, 99.0, 3.0},
		{"at min", Aggression, 0.0, 0.0},
		{"inside", Perception, 3.5, 3.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tv TraitVector
			for g := Gene(0); g < NumGenes; g++ {
				tv[g] = Ranges[g].Min
			}
			tv[tt.gene] = tt.in
			got := tv.Clamped()[tt.gene]
			if got != tt.want {
				t.Errorf("Clamped()[%v] = %v, want %v", tt.gene, got, tt.want)
			}
		})
	}
}

func TestInRange(t *testing.T) {
	tv := midRangeVector()
	if !tv.InRange() {
		t.Error("mid-range vector reported out of range")
	}
	tv[Metabolism] = Ranges[Metabolism].Max + 0.01
	if tv.InRange() {
		t.Error("out-of-range metabolism not detected")
	}
}

func TestGeneString(t *testing.T) {
	if Speed.String() != "speed" || Resilience.String() != "resilience" {
		t.Error("gene names changed")
	}
	if Gene(99).String() != "gene(99)" {
		t.Errorf("unexpected fallback name %q", Gene(99).String())
	}
}
