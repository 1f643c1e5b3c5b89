package telemetry

import (
	"math"
	"testing"
)

func TestDistStats(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	mean, p10, p50, p90 := DistStats(values)

	if math.Abs(mean-5.5) > 0.001 {
		t.Errorf("mean = %v, want 5.5", mean)
	}
	if p10 != 1 {
		t.Errorf("p10 = %v, want 1", p10)
	}
	if p50 != 5 {
		t.Errorf("p50 = %v, want 5", p50)
	}
	if p90 != 9 {
		t.Errorf("p90 = %v, want 9", p90)
	}
}

func TestDistStatsUniformSample(t *testing.T) {
	values := []float64{4.2, 4.2, 4.2, 4.2}
	mean, p10, p50, p90 := DistStats(values)
	for name, got := range map[string]float64{"mean": mean, "p10": p10, "p50": p50, "p90": p90} {
		if got != 4.2 {
			t.Errorf("%s = %v for a constant sample, want 4.2", name, got)
		}
	}
}

func TestDistStatsEmpty(t *testing.T) {
	mean, p10, p50, p90 := DistStats(nil)
	if mean != 0 || p10 != 0 || p50 != 0 || p90 != 0 {
		t.Error("empty sample should return all zeros")
	}
}

func TestDistStatsDoesNotMutateInput(t *testing.T) {
	values := []float64{3, 1, 2}
	DistStats(values)
	if values[0] != 3 || values[1] != 1 || values[2] != 2 {
		t.Error("input slice reordered")
	}
}
