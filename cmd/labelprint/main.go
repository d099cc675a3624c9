// Package main запускает HTTP-сервер сервиса печати этикеток.
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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/labelprint/internal/cache"
	"github.com/mmeshcher/labelprint/internal/config"
	"github.com/mmeshcher/labelprint/internal/handler"
	"github.com/mmeshcher/labelprint/internal/middleware"
	"github.com/mmeshcher/labelprint/internal/repository"
	"github.com/mmeshcher/labelprint/internal/service"
)

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = lvl
	return zcfg.Build()
}

func main() {
	cfg, err := config.Parse()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger initialization error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	sugar := logger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}

	store, err := cache.NewStore(ctx, cache.Options{
		Driver:     cfg.CacheDriver,
		RedisAddr:  cfg.RedisAddr,
		DefaultTTL: cfg.CatalogTTL,
	}, logger)
	if err != nil {
		repo.Close()
		sugar.Fatalw("cache initialization error", "error", err.Error())
	}

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTSecret, cfg.TokenTTL)
	if cfg.JWTSecret == "" {
		sugar.Warn("JWT_SECRET is not set, tokens will not survive a restart")
	}

	svc := service.NewService(repo, authMiddleware,
		service.WithCache(store, cfg.CatalogTTL),
		service.WithLogger(logger),
	)
	defer svc.Close()

	if err := svc.EnsureAdmin(ctx, cfg.AdminName, cfg.AdminPassword); err != nil {
		sugar.Fatalw("admin bootstrap error", "error", err.Error())
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := middleware.NewMetrics(registry)

	h := handler.NewHandler(svc, logger, authMiddleware, metrics)

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting labelprint server", "addr", cfg.RunAddress, "cache", cfg.CacheDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
