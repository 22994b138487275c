package identity

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/orderhub/internal/config"
)

// Module exposes the identity client to fx graph.
var Module = fx.Provide(newClient)

type clientParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newClient(p clientParams) (Client, error) {
	return NewHTTPClient(p.Config.IdentityURL, p.Config.IdentityAPIKey, p.Logger)
}
