package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/brawl/internal/config"
	"github.com/cory-johannsen/brawl/internal/content"
	"github.com/cory-johannsen/brawl/internal/game/animation"
	"github.com/cory-johannsen/brawl/internal/game/character"
	"github.com/cory-johannsen/brawl/internal/sim"
	"github.com/cory-johannsen/brawl/internal/storage/postgres"
)

func provideContent(cfg config.Config, logger *zap.Logger) (*content.Bundle, func(), error) {
	start := time.Now()
	b, err := content.Load(cfg.Content, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("loading content: %w", err)
	}
	logger.Info("content loaded",
		zap.Int("abilities", len(b.Abilities.All())),
		zap.Int("clips", len(b.Clips.Keys())),
		zap.Strings("classes", b.Classes.IDs()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return b, b.Close, nil
}

// provideTuning maps the combat section onto character tuning.
func provideTuning(cfg config.Config) character.Tuning {
	c := cfg.Combat
	return character.Tuning{
		InvulnerabilityWindow: c.Invulnerability(),
		CriticalDamage:        c.CriticalDamage,
		Animation: animation.Options{
			MoveEpsilon:      c.MoveEpsilon,
			RisingThreshold:  c.RisingThreshold,
			FallingThreshold: c.FallingThreshold,
		},
		BaseExpThreshold:    c.BaseExpThreshold,
		SkillPointsPerLevel: c.SkillPointsPerLevel,
		AttributeGrowth:     c.AttributeGrowth,
	}
}

// provideStore connects to PostgreSQL only when the arena persists; otherwise
// the returned store is nil and no connection is made.
func provideStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (sim.Store, func(), error) {
	if !cfg.Arena.Persist {
		logger.Info("persistence disabled")
		return nil, func() {}, nil
	}
	pool, err := postgres.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := pool.Health(ctx, 5*time.Second); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("database health check: %w", err)
	}
	if err := pool.RequireSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return postgres.NewArenaStore(pool), pool.Close, nil
}

func provideSetup(cfg config.Config, b *content.Bundle, tuning character.Tuning, logger *zap.Logger) sim.Setup {
	return sim.Setup{Content: b, Arena: cfg.Arena, Tuning: tuning, Logger: logger}
}
