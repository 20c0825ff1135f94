package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control headers on GET responses based on endpoint.
// Adds sensible defaults if not already set by the handler.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		// Only set on GET requests
		if c.Method() != "GET" {
			return err
		}

		// Don't override if already set
		if existing := c.Get("Cache-Control"); existing != "" {
			return err
		}

		path := c.Path()
		var ttl string

		// Default cache times by endpoint pattern
		switch {
		case path == "/v1/health" || path == "/v1/ready":
			ttl = "public, max-age=10" // Very short for system checks

		case path == "/metrics":
			ttl = "no-cache" // Metrics are real-time

		case path == "/graphql":
			ttl = "private, max-age=0" // GraphQL varies wildly

		case path == "/v1/violations" || path == "/v1/assets/active":
			ttl = "no-cache" // Live window queries

		case strings.Contains(path, "/containment") || strings.Contains(path, "/check"):
			ttl = "no-cache" // Tracker state must not go stale in proxies

		case strings.HasPrefix(path, "/v1/offices") || strings.HasPrefix(path, "/v1/readers") || strings.HasPrefix(path, "/v1/tags"):
			ttl = "public, max-age=60" // Registry data changes slowly

		case path == "/v1/stats" || strings.HasPrefix(path, "/v1/analytics"):
			ttl = "public, max-age=60"

		case strings.HasPrefix(path, "/v1/"):
			ttl = "public, max-age=10" // Short default: most of this API is live
		}

		if ttl != "" {
			c.Set("Cache-Control", ttl)
		}

		return err
	}
}
