package di

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/polkiloo/orderhub/internal/adapter/gateway"
	"github.com/polkiloo/orderhub/internal/adapter/identity"
	"github.com/polkiloo/orderhub/internal/adapter/messaging"
	"github.com/polkiloo/orderhub/internal/app"
	"github.com/polkiloo/orderhub/internal/config"
	"github.com/polkiloo/orderhub/internal/domain/repository"
	"github.com/polkiloo/orderhub/internal/storage/postgres"
	"github.com/polkiloo/orderhub/internal/test"
	"github.com/polkiloo/orderhub/internal/worker"
)

func replacements() []fx.Option {
	cfg := &config.Config{
		RunAddress:           ":0",
		DatabaseURI:          "postgres://stub",
		GatewayURL:           "http://localhost",
		GatewayKeySecret:     test.KeySecret,
		GatewayWebhookSecret: test.WebhookSecret,
		PaymentTokenSecret:   test.TokenSecret,
		PaymentTokenTTL:      time.Minute,
		MessageFreshness:     time.Minute,
		FinalizeTimeout:      time.Second,
		SweepInterval:        time.Millisecond,
		SweepBatchSize:       1,
		WorkerPoolSize:       1,
		ShutdownTimeout:      time.Millisecond,
	}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return []fx.Option{
		fx.Replace(cfg),
		fx.Replace(logger),
		fx.Replace(&postgres.Storage{}),
		fx.Replace(repository.UserRepository(test.UserRepositoryStub{})),
		fx.Replace(repository.OrderRepository(test.NewOrderRepositoryStub())),
		fx.Replace(repository.LedgerRepository(&test.LedgerRepositoryStub{})),
		fx.Replace(repository.RemediationRepository(&test.RemediationRepositoryStub{})),
		fx.Replace(gateway.Client(&test.GatewayStub{})),
		fx.Replace(messaging.Client(&test.MessengerStub{})),
		fx.Replace(identity.Client(test.IdentityStub{})),
	}
}

func TestModuleComposesGraphWithReplacements(t *testing.T) {
	var (
		facade  *app.OrderHub
		engine  *gin.Engine
		sweeper *worker.Sweeper
	)
	fxApp := fx.New(
		fx.NopLogger,
		fx.Provide(func() context.Context { return context.Background() }),
		Module(replacements()...),
		fx.Populate(&facade, &engine, &sweeper),
	)

	if err := fxApp.Err(); err != nil {
		t.Fatalf("fx app returned error: %v", err)
	}
	if facade == nil || engine == nil || sweeper == nil {
		t.Fatal("expected facade, router and sweeper instances")
	}
}

func TestCoreComposesWithoutRuntime(t *testing.T) {
	var facade *app.OrderHub
	fxApp := fx.New(
		fx.NopLogger,
		fx.Provide(func() context.Context { return context.Background() }),
		Core(replacements()...),
		fx.Populate(&facade),
	)

	if err := fxApp.Err(); err != nil {
		t.Fatalf("fx app returned error: %v", err)
	}
	if facade == nil {
		t.Fatal("expected facade instance")
	}
}
