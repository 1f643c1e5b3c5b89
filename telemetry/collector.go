package telemetry

import (
	"github.com/sonder-sim/sonder/events"
	"github.com/sonder-sim/sonder/genome"
)

// Sample is the per-window population snapshot the caller hands to Flush:
// the values only the live world can provide.
type Sample struct {
	Count         int
	Energies      []float64
	Traits        []genome.TraitVector
	MaxGeneration int
}

// Collector counts lifecycle events within fixed tick windows and
// produces WindowStats. It implements events.Sink so it can sit directly
// on the scheduler's event stream, alone or fanned out next to a
// persistent sink.
type Collector struct {
	windowTicks int64
	windowStart int64

	births  int
	deaths  int
	attacks int
	matings int
}

// NewCollector creates a collector flushing every windowTicks ticks.
func NewCollector(windowTicks int64) *Collector {
	if windowTicks < 1 {
		windowTicks = 1
	}
	return &Collector{windowTicks: windowTicks}
}

// Record implements events.Sink.
func (c *Collector) Record(ev events.Event) {
	switch ev.Kind {
	case events.KindSpawn:
		c.births++
	case events.KindDeath:
		c.deaths++
	case events.KindCombat:
		c.attacks++
	case events.KindReproduction:
		c.matings++
	}
}

// ShouldFlush reports whether the current window is complete.
func (c *Collector) ShouldFlush(currentTick int64) bool {
	return currentTick-c.windowStart >= c.windowTicks
}

// Flush produces a WindowStats from the window's event counts and the
// caller's population sample, then resets for the next window.
func (c *Collector) Flush(currentTick int64, sample Sample) WindowStats {
	energyMean, energyP10, energyP50, energyP90 := DistStats(sample.Energies)

	var geneSums [genome.NumGenes]float64
	for _, traits := range sample.Traits {
		for g := genome.Gene(0); g < genome.NumGenes; g++ {
			geneSums[g] += traits[g]
		}
	}
	var geneMeans [genome.NumGenes]float64
	if n := len(sample.Traits); n > 0 {
		for g := genome.Gene(0); g < genome.NumGenes; g++ {
			geneMeans[g] = geneSums[g] / float64(n)
		}
	}

	stats := WindowStats{
		WindowStartTick: c.windowStart,
		WindowEndTick:   currentTick,

		Count:   sample.Count,
		Births:  c.births,
		Deaths:  c.deaths,
		Attacks: c.attacks,
		Matings: c.matings,

		EnergyMean: energyMean,
		EnergyP10:  energyP10,
		EnergyP50:  energyP50,
		EnergyP90:  energyP90,

		SpeedMean:      geneMeans[genome.Speed],
		AggressionMean: geneMeans[genome.Aggression],
		MetabolismMean: geneMeans[genome.Metabolism],
		FertilityMean:  geneMeans[genome.Fertility],
		PerceptionMean: geneMeans[genome.Perception],
		ResilienceMean: geneMeans[genome.Resilience],

		MaxGeneration: sample.MaxGeneration,
	}

	c.windowStart = currentTick
	c.births = 0
	c.deaths = 0
	c.attacks = 0
	c.matings = 0

	return stats
}

// WindowTicks returns the configured window length.
func (c *Collector) WindowTicks() int64 {
	return c.windowTicks
}
