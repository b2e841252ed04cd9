package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dealerdesk/dealerdesk/internal/app"
	"github.com/dealerdesk/dealerdesk/internal/marketplace"
	"github.com/dealerdesk/dealerdesk/internal/shared"
	"github.com/dealerdesk/dealerdesk/jobs"
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

	pool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	channels := marketplace.NewSimChannels(cfg.MarketplaceChannels)
	marketplaceService := marketplace.NewService(logger, marketplace.NewRepository(pool), channels)
	auditLogger := shared.NewAuditLogger(pool)

	syncHandler := jobs.NewMarketplaceSyncHandler(logger, func(ctx context.Context) (int, int, error) {
		report, err := marketplaceService.SyncAll(ctx)
		return report.Synced, report.Failed, err
	})
	retentionHandler := jobs.NewAuditRetentionHandler(logger, auditLogger)

	syncTask, err := jobs.NewMarketplaceSyncTask(time.Now().UTC())
	if err != nil {
		logger.Error("build sync task", slog.Any("error", err))
		os.Exit(1)
	}
	retentionTask, err := jobs.NewAuditRetentionTask(90 * 24 * time.Hour)
	if err != nil {
		logger.Error("build retention task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskMarketplaceSync, Handler: syncHandler},
			{Type: jobs.TaskAuditRetention, Handler: retentionHandler},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "*/30 * * * *", Task: syncTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "0 3 * * *", Task: retentionTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
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
