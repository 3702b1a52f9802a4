// Package httpapi wires the HTTP transport (Gin) to the relay pipeline,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging with PII redaction, panic recovery,
// metrics, webhook signature checks, CORS, and security headers.
//
// Middleware ordering is deliberate: observability first, then protection,
// then routes. The webhook signature check runs only on POST /webhook because
// it must see the raw body before JSON binding.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/kasunw/whatsapp-relay/internal/config"
	"github.com/kasunw/whatsapp-relay/internal/http/handlers"
	"github.com/kasunw/whatsapp-relay/internal/http/middleware"
	"github.com/kasunw/whatsapp-relay/internal/services"
)

// Deps carries the constructed collaborators the router injects into
// handlers. Everything is built in cmd/server so tests can assemble a Deps
// with fakes.
type Deps struct {
	DB        *gorm.DB
	Processor handlers.WebhookProcessor
	Sender    handlers.ReplySender
}

// RegisterRoutes attaches all middleware and endpoints to the given engine.
//
// Order:
//  1. OpenTelemetry tracing
//  2. RequestID correlation
//  3. RedactingLogger (structured logs, phone numbers masked)
//  4. Recovery to JSON 500
//  5. Body size limit
//  6. Prometheus metrics, /metrics endpoint
//  7. gzip compression for API responses
//  8. Edge rate limiter per client IP
//  9. CORS and security headers
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.RedactingLogger())
	r.Use(middleware.Recovery())

	// Webhook batches are small; 1 MiB leaves ample headroom.
	r.Use(limitBody(1 << 20))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(gzip.Gzip(gzip.DefaultCompression))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst)
	r.Use(rl.Handler())

	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Provider-facing webhook. The signature check needs the raw body, so it
	// is scoped to the POST route rather than installed globally.
	r.GET("/webhook", handlers.VerifyWebhook(cfg.WhatsApp.VerifyToken))
	r.POST("/webhook",
		middleware.VerifySignature(cfg.WhatsApp.AppSecret),
		handlers.ReceiveWebhook(deps.Processor),
	)

	// Operator API.
	api := r.Group("/api/v1")
	{
		api.GET("/exchanges", handlers.ListExchanges(deps.DB))
		api.POST("/send", handlers.SendMessage(deps.Sender))
	}
}

// BuildProcessor assembles the inbound pipeline from configuration and the
// outbound collaborators. It lives here so cmd/server and tests construct the
// same wiring.
func BuildProcessor(db *gorm.DB, cfg config.Config, messenger services.MessageSender, completer services.Completer) (*services.Processor, *services.RetryingSender) {
	sender := services.NewRetryingSender(messenger, cfg.Relay.MaxRetries)
	proc := &services.Processor{
		Locks:     services.NewSenderLocks(),
		Limiter:   services.NewSenderLimiter(cfg.Relay.RateLimit, cfg.Relay.RateWindow),
		History:   services.NewHistoryManager(db, cfg.Relay.HistoryContext),
		Store:     &services.StoreGateway{DB: db, Relay: cfg.Relay},
		Completer: completer,
		Sender:    sender,
		Messenger: messenger,
	}
	return proc, sender
}

// limitBody caps the request body size using http.MaxBytesReader; oversized
// bodies error on read downstream.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
