package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/nishantpoudel/assettrace/internal/pkg/metrics"
)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed, // Balance speed vs compression ratio
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(429).JSON(fiber.Map{
				"error":   "rate limit exceeded",
				"message": "too many requests, please try again later",
			})
		},
		SkipFailedRequests: false,
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	// ETag for conditional caching
	app.Use(ETagMiddleware())

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout — fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	// REST API v1 — 15s per-request timeout
	v1 := app.Group("/v1")
	v1.Post("/events", timeout.NewWithContext(IngestEventHandler(deps), 15*time.Second))
	v1.Get("/events/recent", timeout.NewWithContext(RecentEventsHandler(deps), 15*time.Second))
	v1.Get("/events/:id", timeout.NewWithContext(GetEventHandler(deps), 15*time.Second))
	v1.Get("/violations", timeout.NewWithContext(ViolationsHandler(deps), 15*time.Second))
	v1.Get("/alerts", timeout.NewWithContext(AlertsHandler(deps), 15*time.Second))
	v1.Get("/assets/active", timeout.NewWithContext(ActiveAssetsHandler(deps), 15*time.Second))
	v1.Get("/assets/:id/containment", timeout.NewWithContext(AssetContainmentHandler(deps), 15*time.Second))
	v1.Get("/assets/:id/check", timeout.NewWithContext(AssetCheckHandler(deps), 15*time.Second))
	v1.Get("/offices", timeout.NewWithContext(ListOfficesHandler(deps), 15*time.Second))
	v1.Get("/offices/:id", timeout.NewWithContext(GetOfficeHandler(deps), 15*time.Second))
	v1.Get("/readers", timeout.NewWithContext(ListReadersHandler(deps), 15*time.Second))
	v1.Get("/readers/:id", timeout.NewWithContext(GetReaderHandler(deps), 15*time.Second))
	v1.Get("/tags", timeout.NewWithContext(ListTagsHandler(deps), 15*time.Second))
	v1.Get("/tags/:id", timeout.NewWithContext(GetTagHandler(deps), 15*time.Second))
	v1.Get("/stats", timeout.NewWithContext(StatsHandler(deps), 15*time.Second))

	// Analytics
	v1.Get("/analytics/daily", timeout.NewWithContext(DailyEventCountsHandler(deps), 15*time.Second))
	v1.Get("/analytics/readers", timeout.NewWithContext(ReaderActivityHandler(deps), 15*time.Second))

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// API documentation (Swagger UI)
	SetupDocs(app)

	// WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}
