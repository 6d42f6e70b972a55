package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/pkg/profile"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "", "Optional YAML scenario file; flags given explicitly override it.")
	duration := flag.Duration("duration", 10*time.Second, "The total duration the test should run for.")
	worlds := flag.Int("worlds", 1, "The number of independent worlds to run concurrently.")
	entityCount := flag.Int("entities", 10000, "The initial number of entities to create per world.")
	maxFrames := flag.Int64("frames", 0, "Stop each world after this many frames (0 for no limit).")
	churn := flag.Float64("churn", 0.02, "Fraction of entities whose components change each frame.")
	seed := flag.Uint64("seed", 1, "Seed for the per-world random streams.")
	profileMode := flag.String("profile", "", "Write a cpu or mem profile to the working directory.")
	verbose := flag.Bool("verbose", false, "Use development logging at debug level.")
	gcPauseMetrics := flag.Bool("gc-pause-metrics", false, "Enable detailed GC pause metrics in the report.")
	flag.Parse()

	log, err := newLogger(*verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	scenario := DefaultScenario()
	if *configPath != "" {
		scenario, err = LoadScenarioFile(*configPath)
		if err != nil {
			log.Fatal("failed to load scenario", zap.String("path", *configPath), zap.Error(err))
		}
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "duration":
			scenario.Duration = *duration
		case "worlds":
			scenario.Worlds = *worlds
		case "entities":
			scenario.Entities = *entityCount
		case "frames":
			scenario.MaxFrames = *maxFrames
		case "churn":
			scenario.Churn = *churn
		case "seed":
			scenario.Seed = *seed
		}
	})
	if err := scenario.Validate(); err != nil {
		log.Fatal("invalid scenario", zap.Error(err))
	}

	switch *profileMode {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	default:
		log.Fatal("unknown profile mode", zap.String("profile", *profileMode))
	}

	log.Info("starting ECS stress test",
		zap.Int("worlds", scenario.Worlds),
		zap.Int("entities", scenario.Entities),
		zap.Duration("duration", scenario.Duration))

	report := &Report{
		Scenario:       scenario,
		GCPauseMetrics: *gcPauseMetrics,
	}
	runtime.ReadMemStats(&report.MemStatsStart)

	ctx := context.Background()
	if scenario.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, scenario.Duration)
		defer cancel()
	}

	startTime := time.Now()
	results, err := run(ctx, scenario, log)
	if err != nil {
		log.Error("simulation failed", zap.Error(err))
	}

	report.TotalTime = time.Since(startTime)
	report.Collect(results)
	runtime.ReadMemStats(&report.MemStatsEnd)

	log.Info("simulation finished", zap.Int64("updates", report.TotalUpdates))

	fmt.Println("\n\n--- Stress Test Report ---")
	if err := report.Generate(os.Stdout); err != nil {
		log.Fatal("failed to generate report", zap.Error(err))
	}
	fmt.Println("--- End of Report ---")
}

// run drives every world on its own goroutine. Worlds share nothing, so the
// only synchronization is waiting for the group.
func run(ctx context.Context, scenario Scenario, log *zap.Logger) ([]*WorldResult, error) {
	results := make([]*WorldResult, scenario.Worlds)
	g, ctx := errgroup.WithContext(ctx)
	for i := range scenario.Worlds {
		g.Go(func() error {
			res, err := runWorld(ctx, i, scenario, log)
			if err != nil {
				return fmt.Errorf("world %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	err := g.Wait()
	return results, err
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	config := zap.NewProductionConfig()
	config.DisableCaller = true
	return config.Build()
}
