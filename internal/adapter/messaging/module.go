package messaging

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/orderhub/internal/config"
)

// Module exposes the messaging client to fx graph.
var Module = fx.Provide(newClient)

type clientParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newClient(p clientParams) (Client, error) {
	return NewHTTPClient(p.Config.MessagingURL, p.Config.MessagingPhoneID, p.Config.MessagingToken, p.Config.MessagingRPS, p.Logger)
}
