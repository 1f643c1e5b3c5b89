// Package config provides configuration loading and validation for the
// simulation core. A Config is loaded once, validated, and handed to the
// scheduler at construction; it is immutable for the scheduler's lifetime.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation parameters.
type Config struct {
	World        WorldConfig        `yaml:"world"`
	Population   PopulationConfig   `yaml:"population"`
	Mutation     MutationConfig     `yaml:"mutation"`
	Reproduction ReproductionConfig `yaml:"reproduction"`
	Energy       EnergyConfig       `yaml:"energy"`
	Behavior     BehaviorConfig     `yaml:"behavior"`
	Telemetry    TelemetryConfig    `yaml:"telemetry"`

	// Seed initializes the scheduler's random source. Identical seed,
	// config, and initial population reproduce identical runs.
	Seed uint64 `yaml:"seed"`
}

// WorldConfig holds grid dimensions and the spatial index cell size.
type WorldConfig struct {
	Width    int `yaml:"width"`
	Height   int `yaml:"height"`
	CellSize int `yaml:"cell_size"`

	// TickBudget is the wall-time budget per tick in milliseconds; the
	// runner logs ticks that exceed it (0 = no budget). The core itself
	// never reads the clock.
	TickBudget int `yaml:"tick_budget"`
}

// SpawnGroup seeds the initial population with Count entities of a
// registered archetype tag.
type SpawnGroup struct {
	Tag   string `yaml:"tag"`
	Count int    `yaml:"count"`
}

// PopulationConfig holds initial seeding and the hard entity cap.
type PopulationConfig struct {
	Max     int          `yaml:"max"`
	Initial []SpawnGroup `yaml:"initial"`
}

// InitialCount returns the total seeded entity count.
func (p PopulationConfig) InitialCount() int {
	n := 0
	for _, g := range p.Initial {
		n += g.Count
	}
	return n
}

// MutationConfig holds the reproduction-time mutation policy.
type MutationConfig struct {
	Rate      float64 `yaml:"rate"`      // per-gene mutation probability, [0,1]
	Magnitude float64 `yaml:"magnitude"` // symmetric uniform delta bound, >= 0
}

// ReproductionConfig holds eligibility thresholds and costs.
type ReproductionConfig struct {
	EnergyThreshold int `yaml:"energy_threshold"` // minimum energy to reproduce
	EnergyCost      int `yaml:"energy_cost"`      // paid per parent per offspring
	Cooldown        int `yaml:"cooldown"`         // base ticks between reproductions
}

// EnergyConfig holds per-tick energy economics.
type EnergyConfig struct {
	MoveCost         float64 `yaml:"move_cost"`         // per step, scaled by metabolism gene
	RestRegen        int     `yaml:"rest_regen"`        // gained when stationary for a tick
	AttackGain       int     `yaml:"attack_gain"`       // siphoned per landed hit
	KillGain         int     `yaml:"kill_gain"`         // bonus when a hit kills the target
	StarvationDamage int     `yaml:"starvation_damage"` // health lost per tick at zero energy
}

// BehaviorConfig holds perception policy knobs.
type BehaviorConfig struct {
	// AggressionThreshold splits hunters from grazers: entities at or
	// above it pursue weaker neighbors, entities below it flee stronger
	// ones.
	AggressionThreshold float64 `yaml:"aggression_threshold"`
	// TurnChance is the per-tick probability a wandering entity re-rolls
	// its heading.
	TurnChance float64 `yaml:"turn_chance"`
}

// TelemetryConfig holds population statistics settings.
type TelemetryConfig struct {
	Window int `yaml:"window"` // ticks per stats window
}

// InvalidConfigurationError reports a configuration bound violation. It is
// fatal: the scheduler refuses construction and never enters Ready.
type InvalidConfigurationError struct {
	Problems []string
}

func (e *InvalidConfigurationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

// Load reads configuration from a YAML file merged over the embedded
// defaults. An empty path uses the defaults alone. The result is not yet
// validated; the scheduler validates at construction.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into the same struct so the file only overrides the
		// fields it names.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	return cfg, nil
}

// Default returns the embedded default configuration.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults do not parse: %v", err))
	}
	return cfg
}

// Validate checks every bound the core depends on. It returns a
// *InvalidConfigurationError naming all violations at once, or nil.
func (c *Config) Validate() error {
	var problems []string

	if c.World.Width <= 0 {
		problems = append(problems, fmt.Sprintf("world.width must be positive, got %d", c.World.Width))
	}
	if c.World.Height <= 0 {
		problems = append(problems, fmt.Sprintf("world.height must be positive, got %d", c.World.Height))
	}
	if c.World.CellSize <= 0 {
		problems = append(problems, fmt.Sprintf("world.cell_size must be positive, got %d", c.World.CellSize))
	} else if c.World.Width > 0 && c.World.Height > 0 {
		if min := minInt(c.World.Width, c.World.Height); c.World.CellSize > min {
			problems = append(problems, fmt.Sprintf("world.cell_size %d exceeds min(width, height) %d", c.World.CellSize, min))
		}
	}
	if c.World.TickBudget < 0 {
		problems = append(problems, fmt.Sprintf("world.tick_budget must not be negative, got %d", c.World.TickBudget))
	}
	if c.Population.Max <= 0 {
		problems = append(problems, fmt.Sprintf("population.max must be positive, got %d", c.Population.Max))
	}
	for _, g := range c.Population.Initial {
		if g.Tag == "" {
			problems = append(problems, "population.initial entries need a tag")
		}
		if g.Count < 0 {
			problems = append(problems, fmt.Sprintf("population.initial[%s].count must not be negative, got %d", g.Tag, g.Count))
		}
	}
	if n := c.Population.InitialCount(); c.Population.Max > 0 && n > c.Population.Max {
		problems = append(problems, fmt.Sprintf("initial population %d exceeds population.max %d", n, c.Population.Max))
	}
	if c.Mutation.Rate < 0 || c.Mutation.Rate > 1 {
		problems = append(problems, fmt.Sprintf("mutation.rate must be in [0,1], got %g", c.Mutation.Rate))
	}
	if c.Mutation.Magnitude < 0 {
		problems = append(problems, fmt.Sprintf("mutation.magnitude must not be negative, got %g", c.Mutation.Magnitude))
	}
	if c.Reproduction.EnergyThreshold < 0 {
		problems = append(problems, fmt.Sprintf("reproduction.energy_threshold must not be negative, got %d", c.Reproduction.EnergyThreshold))
	}
	if c.Reproduction.EnergyCost < 0 {
		problems = append(problems, fmt.Sprintf("reproduction.energy_cost must not be negative, got %d", c.Reproduction.EnergyCost))
	}
	if c.Reproduction.Cooldown < 0 {
		problems = append(problems, fmt.Sprintf("reproduction.cooldown must not be negative, got %d", c.Reproduction.Cooldown))
	}
	if c.Energy.MoveCost < 0 {
		problems = append(problems, fmt.Sprintf("energy.move_cost must not be negative, got %g", c.Energy.MoveCost))
	}
	if c.Behavior.TurnChance < 0 || c.Behavior.TurnChance > 1 {
		problems = append(problems, fmt.Sprintf("behavior.turn_chance must be in [0,1], got %g", c.Behavior.TurnChance))
	}
	if c.Telemetry.Window <= 0 {
		problems = append(problems, fmt.Sprintf("telemetry.window must be positive, got %d", c.Telemetry.Window))
	}

	if len(problems) > 0 {
		return &InvalidConfigurationError{Problems: problems}
	}
	return nil
}

// WriteYAML writes the configuration to a YAML file, so a run directory
// records the exact parameters that produced it.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
