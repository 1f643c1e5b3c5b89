// Package telemetry aggregates the event stream and per-window population
// samples into flat records for CSV export and structured logs.
package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for one telemetry window.
type WindowStats struct {
	WindowStartTick int64 `csv:"-"`
	WindowEndTick   int64 `csv:"window_end"`

	// Population count at window end
	Count int `csv:"entities"`

	// Events during the window
	Births  int `csv:"births"`
	Deaths  int `csv:"deaths"`
	Attacks int `csv:"attacks"`
	Matings int `csv:"matings"`

	// Energy distribution (sampled at window end)
	EnergyMean float64 `csv:"energy_mean"`
	EnergyP10  float64 `csv:"energy_p10"`
	EnergyP50  float64 `csv:"energy_p50"`
	EnergyP90  float64 `csv:"energy_p90"`

	// Mean gene values across the living population
	SpeedMean      float64 `csv:"speed_mean"`
	AggressionMean float64 `csv:"aggression_mean"`
	MetabolismMean float64 `csv:"metabolism_mean"`
	FertilityMean  float64 `csv:"fertility_mean"`
	PerceptionMean float64 `csv:"perception_mean"`
	ResilienceMean float64 `csv:"resilience_mean"`

	// Deepest lineage observed so far
	MaxGeneration int `csv:"max_generation"`
}

// DistStats computes mean and the 10th, 50th, and 90th percentiles of a
// sample. Returns zeros for an empty sample.
func DistStats(values []float64) (mean, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0
	}
	mean = stat.Mean(values, nil)

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	p10 = stat.Quantile(0.10, stat.Empirical, sorted, nil)
	p50 = stat.Quantile(0.50, stat.Empirical, sorted, nil)
	p90 = stat.Quantile(0.90, stat.Empirical, sorted, nil)
	return mean, p10, p50, p90
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("window_start", s.WindowStartTick),
		slog.Int64("window_end", s.WindowEndTick),
		slog.Int("entities", s.Count),
		slog.Int("births", s.Births),
		slog.Int("deaths", s.Deaths),
		slog.Int("attacks", s.Attacks),
		slog.Int("matings", s.Matings),
		slog.Float64("energy_mean", s.EnergyMean),
		slog.Float64("energy_p10", s.EnergyP10),
		slog.Float64("energy_p50", s.EnergyP50),
		slog.Float64("energy_p90", s.EnergyP90),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("aggression_mean", s.AggressionMean),
		slog.Float64("metabolism_mean", s.MetabolismMean),
		slog.Float64("fertility_mean", s.FertilityMean),
		slog.Float64("perception_mean", s.PerceptionMean),
		slog.Float64("resilience_mean", s.ResilienceMean),
		slog.Int("max_generation", s.MaxGeneration),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"entities", s.Count,
		"births", s.Births,
		"deaths", s.Deaths,
		"attacks", s.Attacks,
		"matings", s.Matings,
		"energy_mean", s.EnergyMean,
		"energy_p50", s.EnergyP50,
		"max_generation", s.MaxGeneration,
	)
}
