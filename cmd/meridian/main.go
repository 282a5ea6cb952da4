package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/meridian-fin/meridian/internal/app"
	"github.com/meridian-fin/meridian/internal/consol"
	consolhttp "github.com/meridian-fin/meridian/internal/consol/http"
	"github.com/meridian-fin/meridian/internal/consol/ic"
	"github.com/meridian-fin/meridian/internal/observability"
	"github.com/meridian-fin/meridian/internal/platform/cache"
	"github.com/meridian-fin/meridian/internal/platform/db"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	matcherCfg, err := matcherConfig(cfg)
	if err != nil {
		logger.Error("matcher config", slog.Any("error", err))
		os.Exit(1)
	}
	matcher := ic.NewMatcher(matcherCfg, logger)
	engine := consol.NewEngine(matcher, logger)

	consolRepo := consol.NewRepository(dbpool)
	consolCache := consol.NewCache(redisClient, cfg.CacheTTL)
	consolService := consol.NewService(consolRepo, consolCache, engine, logger)
	consolHandler := consolhttp.NewHandler(logger, consolService)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:        logger,
		Config:        cfg,
		ConsolHandler: consolHandler,
		Metrics:       metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

func matcherConfig(cfg *app.Config) (ic.Config, error) {
	minAmount, err := decimal.NewFromString(cfg.ICMinAmount)
	if err != nil {
		return ic.Config{}, fmt.Errorf("parse IC_MIN_AMOUNT: %w", err)
	}
	tolerance, err := decimal.NewFromString(cfg.ICAmountTolerance)
	if err != nil {
		return ic.Config{}, fmt.Errorf("parse IC_AMOUNT_TOLERANCE: %w", err)
	}
	return ic.Config{
		MinAmount:           minAmount,
		AmountTolerance:     tolerance,
		DateWindowDays:      cfg.ICDateWindowDays,
		ConfidenceThreshold: cfg.ICConfidenceThreshold,
	}, nil
}
