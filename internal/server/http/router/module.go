package router

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/polkiloo/orderhub/internal/config"
	"github.com/polkiloo/orderhub/internal/metrics"
	"github.com/polkiloo/orderhub/internal/server/http/handlers"
)

// Module registers HTTP router construction for fx runtime.
var Module = fx.Provide(newEngine)

type routerParams struct {
	fx.In

	Facade  handlers.OrderHubFacade
	Config  *config.Config
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

func newEngine(p routerParams) *gin.Engine {
	return Setup(p.Facade, Options{
		OrderWebhookToken: p.Config.OrderWebhookToken,
		Metrics:           p.Metrics.Handler(),
	}, p.Logger)
}
