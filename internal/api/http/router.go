package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/bank-auth-service/internal/api/http/handlers"
	"github.com/spec-kit/bank-auth-service/internal/auth"
	"github.com/spec-kit/bank-auth-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Users          *handlers.UsersHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if reg := cfg.Metrics.Registry(); reg != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}

	v1 := app.Group("/v1")
	v1.Post("/auth/login", cfg.Auth.Login)

	v1.Post("/users", cfg.Users.Create)
	v1.Get("/users/:userId", cfg.AuthMiddleware.Protected(auth.RequireOwner("userId", cfg.Users.Get)))
}
