// Command sonder runs the simulation headless: it advances the world tick
// by tick, streams lifecycle events to the configured sinks, and logs
// windowed telemetry until the tick budget runs out, the population goes
// extinct, or the process is interrupted.
package main

import (
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sonder-sim/sonder/config"
	"github.com/sonder-sim/sonder/events"
	"github.com/sonder-sim/sonder/persistence"
	"github.com/sonder-sim/sonder/sim"
	"github.com/sonder-sim/sonder/telemetry"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config (empty = embedded defaults)")
	ticks := flag.Int64("ticks", 10000, "ticks to run (0 = until extinction or interrupt)")
	seed := flag.Uint64("seed", 0, "override the config seed (0 = keep config value)")
	dbPath := flag.String("db", "", "SQLite database for event persistence (empty = disabled)")
	outDir := flag.String("out", "", "directory for CSV telemetry output (empty = disabled)")
	tps := flag.Int("tps", 0, "target ticks per second (0 = unthrottled)")
	flag.Parse()

	if err := run(*configPath, *ticks, *seed, *dbPath, *outDir, *tps); err != nil {
		sim.Logf("fatal: %v", err)
		os.Exit(1)
	}
}

func run(configPath string, ticks int64, seed uint64, dbPath, outDir string, tps int) error {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
	} else {
		cfg = config.Default()
	}
	if seed != 0 {
		cfg.Seed = seed
	}

	collector := telemetry.NewCollector(int64(cfg.Telemetry.Window))
	sinks := []events.Sink{collector}

	var db *persistence.SQLiteSink
	if dbPath != "" {
		db, err = persistence.NewSQLiteSink(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()
		sinks = append(sinks, db)
	}

	out, err := telemetry.NewOutputManager(outDir)
	if err != nil {
		return err
	}
	defer out.Close()
	if err := out.WriteConfig(cfg); err != nil {
		return err
	}

	world, err := sim.New(cfg, sim.WithSink(events.Tee(sinks...)))
	if err != nil {
		return err
	}
	if err := world.Populate(); err != nil {
		return err
	}
	sim.Logf("world %dx%d seeded with %d entities (seed %d)",
		cfg.World.Width, cfg.World.Height, world.Count(), cfg.Seed)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var pacer *time.Ticker
	if tps > 0 {
		pacer = time.NewTicker(time.Second / time.Duration(tps))
		defer pacer.Stop()
	}
	budget := time.Duration(cfg.World.TickBudget) * time.Millisecond
	perf := telemetry.NewPerfCollector(cfg.Telemetry.Window)

	for ticks == 0 || world.Tick() < ticks {
		select {
		case <-sigCh:
			sim.Logf("interrupted at tick %d", world.Tick())
			world.Stop()
			return nil
		default:
		}

		perf.StartTick()
		snap, err := world.AdvanceTick()
		elapsed := perf.EndTick()
		if err != nil {
			if errors.Is(err, sim.ErrStopped) {
				return nil
			}
			return err
		}
		if budget > 0 && elapsed > budget {
			sim.Logf("tick %d took %s, budget %s", snap.Tick, elapsed, budget)
		}

		if len(snap.Entities) == 0 {
			sim.Logf("extinction at tick %d", snap.Tick)
			break
		}

		if collector.ShouldFlush(snap.Tick) {
			stats := collector.Flush(snap.Tick, sampleWorld(world, snap))
			stats.LogStats()
			if err := out.WriteTelemetry(stats); err != nil {
				return err
			}
			if err := out.WritePerf(perf.Stats(), snap.Tick); err != nil {
				return err
			}
			if db != nil {
				if err := db.SaveWorldState(snap.Tick, len(snap.Entities)); err != nil {
					return err
				}
			}
		}

		if pacer != nil {
			<-pacer.C
		}
	}

	world.Stop()
	sim.Logf("finished at tick %d with %d entities", world.Tick(), world.Count())
	return nil
}

// sampleWorld gathers the live-population values the collector cannot see
// from the event stream alone.
func sampleWorld(world *sim.World, snap *sim.Snapshot) telemetry.Sample {
	sample := telemetry.Sample{Count: len(snap.Entities)}
	for id := range world.EntitiesWith(sim.KindStats, sim.KindGenome) {
		stats, err := world.StatsOf(id)
		if err != nil {
			continue
		}
		traits, err := world.GenomeOf(id)
		if err != nil {
			continue
		}
		sample.Energies = append(sample.Energies, float64(stats.Energy))
		sample.Traits = append(sample.Traits, traits)
	}
	for _, e := range snap.Entities {
		if e.Generation > sample.MaxGeneration {
			sample.MaxGeneration = e.Generation
		}
	}
	return sample
}
