package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nstc/opsdesk-backend/internal/audit"
	"github.com/nstc/opsdesk-backend/internal/cron"
	"github.com/nstc/opsdesk-backend/internal/dashboard"
	"github.com/nstc/opsdesk-backend/pkg/config"
	"github.com/nstc/opsdesk-backend/pkg/db"
	"github.com/nstc/opsdesk-backend/pkg/logger"
	"github.com/nstc/opsdesk-backend/pkg/metrics"
	"github.com/nstc/opsdesk-backend/pkg/migrate"
	"github.com/nstc/opsdesk-backend/pkg/redis"
)

const lockKeyFormat = "nstc:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithField(ctx, "env", cfg.App.Env)

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	var (
		lock  cron.Lock = &cron.LocalLock{}
		cache redis.Cache
	)
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		redisLock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Cron.LockTTL)
		if err != nil {
			logg.Error(ctx, "failed to create cron lock", err)
			os.Exit(1)
		}
		lock = redisLock
		cache = redisClient
	} else {
		logg.Warn(ctx, "redis not configured; cron lock is process-local")
	}

	conn := dbClient.DB()
	dashboardService, err := dashboard.NewService(dashboard.NewRepository(conn), cache, cfg.Warehouse.DashboardCacheTTL, logg)
	if err != nil {
		logg.Error(ctx, "failed to create dashboard service", err)
		os.Exit(1)
	}

	retentionJob, err := cron.NewAuditRetentionJob(cron.AuditRetentionJobParams{
		Logger:     logg,
		Repository: audit.NewRepository(conn),
		Retention:  cfg.Cron.AuditRetentionDays,
	})
	if err != nil {
		logg.Error(ctx, "failed to create audit retention job", err)
		os.Exit(1)
	}
	refreshJob, err := cron.NewDashboardRefreshJob(logg, dashboardService)
	if err != nil {
		logg.Error(ctx, "failed to create dashboard refresh job", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Jobs:     []cron.Job{retentionJob, refreshJob},
		Lock:     lock,
		Metrics:  metrics.NewWorkflowMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(ctx, "failed to create cron service", err)
		os.Exit(1)
	}

	logg.Info(logg.WithField(ctx, "jobs", service.Jobs()), "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
