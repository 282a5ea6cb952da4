package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/meridian-fin/meridian/internal/app"
	"github.com/meridian-fin/meridian/internal/consol"
	"github.com/meridian-fin/meridian/internal/consol/ic"
	"github.com/meridian-fin/meridian/internal/platform/cache"
	"github.com/meridian-fin/meridian/internal/platform/db"
	"github.com/meridian-fin/meridian/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

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

	consolRepo := consol.NewRepository(pool)
	consolCache := consol.NewCache(redisClient, cfg.CacheTTL)
	consolService := consol.NewService(consolRepo, consolCache, engine, logger)

	refreshJob := jobs.NewConsolidateRefreshJob(consolService, logger, nil)

	var cron []jobs.CronRegistration
	if cfg.ConsolCronPeriod != "" {
		refreshTask, err := jobs.NewConsolidateRefreshTask(jobs.ConsolidateRefreshPayload{
			Period:                    cfg.ConsolCronPeriod,
			EliminateIntercompany:     true,
			CalculateMinorityInterest: true,
		})
		if err != nil {
			logger.Error("build refresh task", slog.Any("error", err))
			os.Exit(1)
		}
		cron = append(cron, jobs.CronRegistration{
			Spec:    cfg.ConsolCronSpec,
			Task:    refreshTask,
			Options: []asynq.Option{asynq.MaxRetry(3)},
		})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskConsolidateRefresh, Handler: refreshJob.Handle},
		},
		Cron: cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
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
