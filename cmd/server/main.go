// Package main is the entry point for the kedai API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"kedai/internal/config"
	"kedai/internal/core/watch"
	"kedai/internal/domain/catalogs/product"
	"kedai/internal/domain/documents/sale"
	"kedai/internal/domain/reports"
	v1 "kedai/internal/infrastructure/http/v1"
	"kedai/internal/infrastructure/notify"
	"kedai/internal/infrastructure/storage/postgres"
	"kedai/pkg/logger"
	"kedai/pkg/sequence"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.Development,
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := logger.WithLogger(context.Background(), log)
	log.Info("starting kedai server")

	// --- Database ---
	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.PostgresDSN))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")
	postgres.LogPoolStats(ctx, pool.Pool)

	txManager := postgres.NewTxManager(pool)

	// --- Repositories ---
	productRepo := postgres.NewProductRepo(txManager)
	saleRepo := postgres.NewSaleRepo(txManager)
	paymentRepo := postgres.NewPaymentRepo(txManager)

	// --- Watch hub and optional Redis bridge ---
	hub := watch.NewHub()

	var bridgeCancel context.CancelFunc
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()

		bridge, err := notify.NewRedisBridge(client, hub)
		if err != nil {
			log.Fatalw("failed to create watch bridge", "error", err)
		}
		hub.Attach(bridge)

		var bridgeCtx context.Context
		bridgeCtx, bridgeCancel = context.WithCancel(ctx)
		go func() {
			if err := bridge.Run(bridgeCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.Errorw("watch bridge stopped", "error", err)
			}
		}()
		log.Infow("watch bridge enabled", "redis_addr", cfg.RedisAddr)
	}

	// --- Services ---
	numbers := sequence.New(postgres.NewSequenceQuerier(txManager))

	productService := product.NewService(productRepo, txManager, hub)
	saleService := sale.NewService(saleRepo, productRepo, paymentRepo, numbers, txManager, hub)
	reportsService := reports.NewService(saleRepo, paymentRepo, productRepo)

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Logger:      log,
		Pool:        pool.Pool,
		Hub:         hub,
		Products:    productService,
		Sales:       saleService,
		Reports:     reportsService,
		Development: cfg.Development,
	})

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // streaming endpoints hold connections open
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	if bridgeCancel != nil {
		bridgeCancel()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}
