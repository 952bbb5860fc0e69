package security

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

type HeadersConfig struct {
	AllowedOrigins []string
	// Backends are the ticketing and workflow base URLs a browser client
	// may call directly.
	Backends      []string
	IsDevelopment bool
}

func HeadersMiddleware(cfg HeadersConfig) fiber.Handler {
	csp := "default-src 'self'; " +
		"script-src 'self' 'unsafe-inline'; " +
		"style-src 'self' 'unsafe-inline'; " +
		"img-src 'self' data: https:; " +
		"font-src 'self' data:; " +
		"connect-src " + buildConnectSrc(cfg.AllowedOrigins, cfg.Backends) + "; " +
		"frame-ancestors 'none'; " +
		"base-uri 'self'; " +
		"form-action 'self'"

	return func(c *fiber.Ctx) error {
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")

		if !cfg.IsDevelopment {
			c.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Set("Content-Security-Policy", csp)

		return c.Next()
	}
}

func buildConnectSrc(groups ...[]string) string {
	sources := []string{"'self'"}
	seen := map[string]bool{"'self'": true}
	for _, group := range groups {
		for _, src := range group {
			src = strings.TrimRight(strings.TrimSpace(src), "/")
			if src == "" || src == "*" || seen[src] {
				continue
			}
			seen[src] = true
			sources = append(sources, src)
		}
	}
	return strings.Join(sources, " ")
}
