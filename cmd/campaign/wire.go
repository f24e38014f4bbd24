//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"

	"github.com/htbah/campaign-manager/internal/config"
	"github.com/htbah/campaign-manager/internal/game/character"
	"github.com/htbah/campaign-manager/internal/game/command"
)

func initializeApp(ctx context.Context, cfg config.Config) (*app, func(), error) {
	wire.Build(
		provideLogger,
		provideBackend,
		provideConditions,
		provideItems,
		character.NewRoster,
		command.DefaultRegistry,
		provideSession,
		provideLifecycle,
		wire.Struct(new(app), "*"),
	)
	return nil, nil, nil
}
