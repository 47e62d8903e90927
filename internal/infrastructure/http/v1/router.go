// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"kedai/internal/core/watch"
	"kedai/internal/domain/catalogs/product"
	"kedai/internal/domain/documents/sale"
	"kedai/internal/domain/reports"
	"kedai/internal/infrastructure/http/v1/handlers"
	"kedai/internal/infrastructure/http/v1/middleware"
	"kedai/pkg/logger"
)

// RouterConfig holds the wired services the router exposes.
type RouterConfig struct {
	Logger *logger.Logger
	Pool   *pgxpool.Pool
	Hub    *watch.Hub

	Products *product.Service
	Sales    *sale.Service
	Reports  *reports.Service

	// Development switches gin out of release mode.
	Development bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if !cfg.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware (order matters)
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	base := handlers.NewBaseHandler()

	healthHandler := handlers.NewHealthHandler(cfg.Pool, cfg.Hub)
	healthHandler.Register(router.Group("/health"))

	api := router.Group("/api/v1")
	{
		handlers.NewProductHandler(base, cfg.Products).Register(api.Group("/products"))
		handlers.NewSaleHandler(base, cfg.Sales).Register(api.Group("/sales"))
		handlers.NewHutangHandler(base, cfg.Sales).Register(api.Group("/hutang"))
		handlers.NewReportsHandler(base, cfg.Reports).Register(api.Group("/reports"))
		handlers.NewStreamHandler(base, cfg.Hub, cfg.Products, cfg.Sales).Register(api.Group("/stream"))
	}

	return router
}
