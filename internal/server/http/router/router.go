package router

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/polkiloo/orderhub/internal/server/http/handlers"
	"github.com/polkiloo/orderhub/internal/server/http/middleware"
)

// Options carries router settings that are not part of the facade.
type Options struct {
	// OrderWebhookToken guards POST /webhook/order-created when set.
	OrderWebhookToken string
	// Metrics is served on GET /metrics when set.
	Metrics http.Handler
}

// Setup configures gin router with handlers and middleware.
func Setup(facade handlers.OrderHubFacade, opts Options, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(logger))
	engine.Use(gzip.Gzip(
		gzip.DefaultCompression,
		gzip.WithDecompressFn(gzip.DefaultDecompressHandle),
		gzip.WithExcludedPaths([]string{"/metrics"}),
	))

	paymentHandler := handlers.NewPaymentHandler(facade)
	webhookHandler := handlers.NewWebhookHandler(facade, opts.OrderWebhookToken, logger)
	healthHandler := handlers.NewHealthHandler(facade)

	engine.GET("/healthz", healthHandler.Check)
	if opts.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(opts.Metrics))
	}

	payment := engine.Group("/api/payment")
	payment.Use(middleware.AuthRequired(facade))
	payment.POST("/initiate", paymentHandler.Initiate)
	payment.POST("/finalize", paymentHandler.Finalize)

	webhook := engine.Group("/webhook")
	webhook.POST("/razorpay", webhookHandler.Gateway)
	webhook.GET("/whatsapp", webhookHandler.MessagingVerify)
	webhook.POST("/whatsapp", webhookHandler.MessagingReceive)
	webhook.POST("/order-created", webhookHandler.OrderCreated)

	return engine
}
