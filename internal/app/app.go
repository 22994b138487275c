package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/polkiloo/orderhub/internal/config"
	"github.com/polkiloo/orderhub/internal/logger"
	"github.com/polkiloo/orderhub/internal/worker"
)

const (
	feedBackoff    = time.Second
	feedMaxBackoff = 30 * time.Second
)

// FacadeModule provides the OrderHub facade.
var FacadeModule = fx.Provide(NewOrderHub)

// Module wires runtime components and lifecycle hooks around the facade.
var Module = fx.Options(
	fx.Provide(
		newHTTPServer,
		newSweeper,
		newChangeFeedSubscriber,
	),
	fx.Invoke(registerLifecycle),
)

type serverParams struct {
	fx.In

	Config *config.Config
	Router *gin.Engine
}

func newHTTPServer(p serverParams) *http.Server {
	return &http.Server{
		Addr:              p.Config.RunAddress,
		Handler:           p.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

type workerParams struct {
	fx.In

	Facade *OrderHub
	Config *config.Config
	Logger *slog.Logger
}

func newSweeper(p workerParams) *worker.Sweeper {
	return worker.NewSweeper(
		p.Facade,
		p.Config.SweepInterval,
		p.Config.SweepBatchSize,
		p.Config.WorkerPoolSize,
		logger.Component(p.Logger, "sweeper"),
	)
}

type feedParams struct {
	fx.In

	Feed   worker.Feed
	Facade *OrderHub
	Logger *slog.Logger
}

func newChangeFeedSubscriber(p feedParams) *worker.ChangeFeedSubscriber {
	return worker.NewChangeFeedSubscriber(p.Feed, p.Facade, feedBackoff, feedMaxBackoff, logger.Component(p.Logger, "change_feed"))
}

type lifecycleParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Logger     *slog.Logger
	Server     *http.Server
	Sweeper    *worker.Sweeper
	Feed       *worker.ChangeFeedSubscriber
	Facade     *OrderHub
	Config     *config.Config
}

func registerLifecycle(p lifecycleParams) {
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			p.Logger.Info("starting orderhub", slog.String("addr", p.Server.Addr))
			p.Sweeper.Start(ctx)
			p.Feed.Start(ctx)
			go func() {
				if err := p.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					p.Logger.Error("http server terminated", slog.String("error", err.Error()))
					_ = p.Shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx := ctx
			cancel := func() {}
			if _, ok := ctx.Deadline(); !ok {
				shutdownCtx, cancel = context.WithTimeout(ctx, p.Config.ShutdownTimeout)
			}
			defer cancel()

			serverErr := p.Server.Shutdown(shutdownCtx)
			p.Feed.Stop()
			p.Sweeper.Stop()
			p.Facade.WaitGatewayEvents()

			if serverErr != nil && !errors.Is(serverErr, http.ErrServerClosed) {
				return serverErr
			}
			p.Logger.Info("orderhub stopped")
			return nil
		},
	})
}
