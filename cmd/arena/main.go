// Package main runs arena rounds headlessly and prints each round's outcome.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/brawl/internal/config"
	"github.com/cory-johannsen/brawl/internal/observability"
	"github.com/cory-johannsen/brawl/internal/server"
	"github.com/cory-johannsen/brawl/internal/sim"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	rounds := flag.Int("rounds", 0, "override arena.rounds (0 = use config)")
	seed := flag.Uint64("seed", 0, "override arena.seed (0 = use config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *rounds > 0 {
		cfg.Arena.Rounds = *rounds
	}
	if *seed != 0 {
		cfg.Arena.Seed = *seed
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	runner, cleanup, err := initializeRunner(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("initializing arena", zap.Error(err))
	}
	defer cleanup()

	logger.Info("arena starting",
		zap.Int("rounds", cfg.Arena.Rounds),
		zap.Uint64("seed", cfg.Arena.Seed),
		zap.Int("fighters", len(cfg.Arena.Fighters)),
		zap.Bool("persist", cfg.Arena.Persist),
		zap.Duration("startup", time.Since(start)),
	)

	lifecycle := server.NewLifecycle(logger)
	lifecycle.Add("arena", runner)
	runErr := lifecycle.Run(ctx)

	printOutcomes(os.Stdout, runner.Outcomes())
	if runErr != nil {
		logger.Error("arena failed", zap.Error(runErr))
		cleanup()
		_ = logger.Sync()
		os.Exit(1)
	}
}

func printOutcomes(w io.Writer, outcomes []sim.Outcome) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, o := range outcomes {
		fmt.Fprintf(tw, "round %d\tseed %d\t%s\thits %d\tsurvivors %v\n", o.Round, o.Seed, o.Elapsed, o.Hits, o.Survivors)
		fmt.Fprintln(tw, "  fighter\tclass\tlevel\thealth\tdealt\ttaken\tkills")
		for _, f := range o.Fighters {
			health := fmt.Sprintf("%d/%d", f.Health, f.MaxHealth)
			if f.Dead {
				health = "dead"
			}
			fmt.Fprintf(tw, "  %s\t%s\t%d\t%s\t%d\t%d\t%d\n", f.Name, f.Class, f.Level, health, f.DamageDealt, f.DamageTaken, f.Kills)
		}
	}
	_ = tw.Flush()
}
