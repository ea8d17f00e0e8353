package main

import (
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/storefront-bff/internal/api/http"
	"github.com/spec-kit/storefront-bff/internal/api/http/handlers"
	"github.com/spec-kit/storefront-bff/internal/auth"
	"github.com/spec-kit/storefront-bff/internal/backend"
	"github.com/spec-kit/storefront-bff/internal/config"
	"github.com/spec-kit/storefront-bff/internal/events"
	"github.com/spec-kit/storefront-bff/internal/observability"
	"github.com/spec-kit/storefront-bff/internal/service"
	"github.com/spec-kit/storefront-bff/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	tokens, err := auth.NewTokenService(auth.TokenConfig{
		Secret:   cfg.Auth.JWTSecret,
		Issuer:   cfg.Auth.Issuer,
		Audience: cfg.Auth.Audience,
		TTL:      cfg.Auth.TokenTTL(),
	}, auth.WithLogger(logger))
	if err != nil {
		var cfgErr *auth.ConfigurationError
		if errors.As(err, &cfgErr) {
			logger.Fatal("invalid token configuration; set AUTH_JWT_SECRET", zap.Error(err))
		}
		logger.Fatal("failed to init token service", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger))

	backends, err := backend.Connect(cfg.Backends, metrics, logger)
	if err != nil {
		logger.Fatal("failed to create backend clients", zap.Error(err))
	}
	defer backends.Close() //nolint:errcheck

	authService := service.NewAuthService(service.AuthDependencies{
		Users:            backends.Users,
		Tokens:           tokens,
		Dispatcher:       dispatcher,
		Logger:           logger,
		AllowAdminSignup: cfg.Auth.AllowAdminSignup,
	})
	catalogService := service.NewCatalogService(backends.Products, dispatcher, logger)
	orderService := service.NewOrderService(backends.Orders, dispatcher, logger)

	pingers := make([]handlers.Pinger, 0, len(backends.Conns()))
	for _, conn := range backends.Conns() {
		pingers = append(pingers, conn)
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler(logger, metrics),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:   handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pingers...),
		Auth:     handlers.NewAuthHandler(authService),
		Products: handlers.NewProductsHandler(catalogService),
		Orders:   handlers.NewOrdersHandler(orderService),
		Gate:     auth.NewGate(tokens, logger, metrics, dispatcher),
		Metrics:  metrics,
		Logger:   logger,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.Shutdown(); err != nil {
		logger.Warn("fiber shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
