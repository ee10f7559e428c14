package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/nstc/opsdesk-backend/api/routes"
	"github.com/nstc/opsdesk-backend/internal/attendance"
	"github.com/nstc/opsdesk-backend/internal/audit"
	"github.com/nstc/opsdesk-backend/internal/dashboard"
	"github.com/nstc/opsdesk-backend/internal/inventory"
	"github.com/nstc/opsdesk-backend/internal/localinventory"
	"github.com/nstc/opsdesk-backend/internal/requests"
	"github.com/nstc/opsdesk-backend/internal/stocklog"
	"github.com/nstc/opsdesk-backend/internal/transfers"
	"github.com/nstc/opsdesk-backend/pkg/config"
	"github.com/nstc/opsdesk-backend/pkg/db"
	"github.com/nstc/opsdesk-backend/pkg/logger"
	"github.com/nstc/opsdesk-backend/pkg/metrics"
	"github.com/nstc/opsdesk-backend/pkg/migrate"
	"github.com/nstc/opsdesk-backend/pkg/pubsub"
	"github.com/nstc/opsdesk-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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
		redisClient *redis.Client
		cache       redis.Cache
	)
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		cache = redisClient
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
	} else {
		logg.Warn(ctx, "redis not configured; idempotency keys and dashboard cache disabled")
	}

	var publisher audit.Publisher
	if cfg.Audit.PubSubEnabled() {
		psClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.Audit.Topic, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap audit pubsub", err)
			os.Exit(1)
		}
		publisher = psClient
		defer func() {
			if err := psClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	workflowMetrics := metrics.NewWorkflowMetrics(registry)

	conn := dbClient.DB()
	recorder, err := audit.NewRecorder(audit.NewRepository(conn), publisher, logg)
	exitOnErr(ctx, logg, "failed to create audit recorder", err)

	dashboardService, err := dashboard.NewService(dashboard.NewRepository(conn), cache, cfg.Warehouse.DashboardCacheTTL, logg)
	exitOnErr(ctx, logg, "failed to create dashboard service", err)

	itemRepo := inventory.NewRepository(conn)
	logRepo := stocklog.NewRepository(conn)
	localRepo := localinventory.NewRepository(conn)

	inventoryService, err := inventory.NewService(inventory.ServiceParams{
		Tx:        dbClient,
		Items:     itemRepo,
		StockLogs: logRepo,
		Audit:     recorder,
		Views:     dashboardService,
		Metrics:   workflowMetrics,
		Logger:    logg,
	})
	exitOnErr(ctx, logg, "failed to create inventory service", err)

	transferService, err := transfers.NewService(transfers.ServiceParams{
		Tx:             dbClient,
		Items:          itemRepo,
		StockLogs:      logRepo,
		Audit:          recorder,
		Views:          dashboardService,
		Metrics:        workflowMetrics,
		Logger:         logg,
		InfiniteSource: cfg.Warehouse.InfiniteSource,
	})
	exitOnErr(ctx, logg, "failed to create transfer service", err)

	stockLogService, err := stocklog.NewService(logRepo)
	exitOnErr(ctx, logg, "failed to create stock log service", err)

	requestService, err := requests.NewService(requests.ServiceParams{
		Tx:           dbClient,
		Requests:     requests.NewRepository(conn),
		Items:        itemRepo,
		StockLogs:    logRepo,
		Local:        localRepo,
		Audit:        recorder,
		Views:        dashboardService,
		Metrics:      workflowMetrics,
		Logger:       logg,
		HubLocation:  cfg.Warehouse.HubLocation,
		MaxBatchSize: cfg.Warehouse.MaxBatchSize,
	})
	exitOnErr(ctx, logg, "failed to create request service", err)

	localService, err := localinventory.NewService(dbClient, localRepo, recorder, workflowMetrics, logg)
	exitOnErr(ctx, logg, "failed to create local inventory service", err)

	attendanceService, err := attendance.NewService(dbClient, attendance.NewRepository(conn), recorder, workflowMetrics, logg, cfg.Warehouse.MaxBatchSize)
	exitOnErr(ctx, logg, "failed to create attendance service", err)

	router := routes.NewRouter(cfg, logg, routes.Infra{
		DB:       dbClient,
		Redis:    redisClient,
		Gatherer: registry,
	}, routes.Services{
		Inventory:      inventoryService,
		Transfers:      transferService,
		StockLogs:      stockLogService,
		Requests:       requestService,
		LocalInventory: localService,
		Attendance:     attendanceService,
		Dashboard:      dashboardService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	serverCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
		"hub":  cfg.Warehouse.HubLocation,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(serverCtx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logg.Error(serverCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(serverCtx, "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(serverCtx, "graceful shutdown failed", err)
	}
}

func exitOnErr(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, msg, err)
	os.Exit(1)
}
