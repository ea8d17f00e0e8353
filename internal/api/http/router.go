package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/spec-kit/storefront-bff/internal/api/http/handlers"
	"github.com/spec-kit/storefront-bff/internal/auth"
	"github.com/spec-kit/storefront-bff/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health   *handlers.HealthHandler
	Auth     *handlers.AuthHandler
	Products *handlers.ProductsHandler
	Orders   *handlers.OrdersHandler
	Gate     *auth.Gate
	Metrics  *observability.Metrics
	Logger   *zap.Logger
}

// RegisterRoutes wires HTTP routes. Every route names its access requirement.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	public := cfg.Gate.Require(auth.Public())
	anyUser := cfg.Gate.Require(auth.AnyUser())
	admin := cfg.Gate.Require(auth.Roles(auth.RoleAdmin))
	ownerOrAdmin := cfg.Gate.Require(auth.OwnerOrRoles(auth.RoleAdmin))

	app.Get("/health/live", public, cfg.Health.Live)
	app.Get("/health/ready", public, cfg.Health.Ready)
	if reg := cfg.Metrics.Registry(); reg != nil {
		app.Get("/metrics", public, adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api")

	authGroup := api.Group("/auth", authEnvelope(logger, cfg.Metrics))
	authGroup.Post("/register", public, cfg.Auth.Register)
	authGroup.Post("/login", public, cfg.Auth.Login)

	users := api.Group("/users")
	users.Get("/me", anyUser, cfg.Auth.Me)
	users.Get("/:id", ownerOrAdmin, cfg.Auth.GetUser)

	products := api.Group("/products")
	products.Get("/", public, cfg.Products.List)
	products.Get("/search", public, cfg.Products.Search)
	products.Get("/:id", public, cfg.Products.Get)
	products.Post("/", admin, cfg.Products.Create)
	products.Put("/:id", admin, cfg.Products.Update)
	products.Delete("/:id", admin, cfg.Products.Delete)

	orders := api.Group("/orders")
	orders.Post("/", anyUser, cfg.Orders.Create)
	orders.Get("/", anyUser, cfg.Orders.ListMine)
	orders.Get("/:id", ownerOrAdmin, cfg.Orders.Get)
	orders.Post("/:id/cancel", ownerOrAdmin, cfg.Orders.Cancel)
	orders.Put("/:id/status", admin, cfg.Orders.UpdateStatus)
	orders.Delete("/:id", admin, cfg.Orders.Delete)
}
