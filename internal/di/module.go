package di

import (
	"go.uber.org/fx"

	"github.com/polkiloo/orderhub/internal/adapter/gateway"
	"github.com/polkiloo/orderhub/internal/adapter/identity"
	"github.com/polkiloo/orderhub/internal/adapter/messaging"
	"github.com/polkiloo/orderhub/internal/app"
	"github.com/polkiloo/orderhub/internal/config"
	"github.com/polkiloo/orderhub/internal/logger"
	"github.com/polkiloo/orderhub/internal/metrics"
	"github.com/polkiloo/orderhub/internal/pkg/auth"
	"github.com/polkiloo/orderhub/internal/server/http/handlers"
	"github.com/polkiloo/orderhub/internal/server/http/router"
	"github.com/polkiloo/orderhub/internal/storage/postgres"
	"github.com/polkiloo/orderhub/internal/usecase"
	"github.com/polkiloo/orderhub/internal/worker"
)

// Core composes storage, adapters, use cases and the facade without starting anything.
func Core(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		metrics.Module,
		auth.Module,
		postgres.Module,
		gateway.Module,
		messaging.Module,
		identity.Module,
		usecase.Module,
		fx.Provide(func(s *postgres.Storage) app.HealthChecker { return s }),
		app.FacadeModule,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}

// Module composes the full service: Core plus the HTTP server, sweeper and change feed subscriber.
func Module(opts ...fx.Option) fx.Option {
	runtime := []fx.Option{
		fx.Provide(
			func(f *postgres.ChangeFeed) worker.Feed { return f },
			func(f *app.OrderHub) handlers.OrderHubFacade { return f },
		),
		router.Module,
		app.Module,
	}
	return Core(append(runtime, opts...)...)
}
