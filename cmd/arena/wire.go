//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"go.uber.org/zap"

	"github.com/cory-johannsen/brawl/internal/config"
	"github.com/cory-johannsen/brawl/internal/sim"
)

func initializeRunner(ctx context.Context, cfg config.Config, logger *zap.Logger) (*sim.Runner, func(), error) {
	wire.Build(
		provideContent,
		provideTuning,
		provideStore,
		provideSetup,
		sim.NewRunner,
	)
	return nil, nil, nil
}
