package main

import (
	"context"
	"fmt"
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/orderhub/internal/app"
	"github.com/polkiloo/orderhub/internal/config"
	"github.com/polkiloo/orderhub/internal/di"
	"github.com/polkiloo/orderhub/internal/domain/model"
	"github.com/polkiloo/orderhub/internal/logger"
	"github.com/polkiloo/orderhub/internal/worker"
)

// operator is the facade surface the CLI drives.
type operator interface {
	OpenRemediations(ctx context.Context, limit int) ([]model.Remediation, error)
	ResolveRemediation(ctx context.Context, id int64, note string) error
}

type sweeper interface {
	RunOnce(ctx context.Context) (int, error)
}

type session struct {
	hub   operator
	sweep sweeper
	close func()
}

type connectFunc func(ctx context.Context) (*session, error)

// connect builds the service graph without the HTTP server or background workers.
func connect(ctx context.Context) (*session, error) {
	cfg, err := config.LoadEnv()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	var (
		hub *app.OrderHub
		log *slog.Logger
	)
	fxApp := fx.New(
		fx.NopLogger,
		fx.Provide(func() context.Context { return ctx }),
		di.Core(fx.Replace(cfg)),
		fx.Populate(&hub, &log),
	)
	if err := fxApp.Start(ctx); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}

	return &session{
		hub:   hub,
		sweep: worker.NewSweeper(hub, cfg.SweepInterval, cfg.SweepBatchSize, 1, logger.Component(log, "orderctl")),
		close: func() { _ = fxApp.Stop(context.WithoutCancel(ctx)) },
	}, nil
}
