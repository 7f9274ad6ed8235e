package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mikeeeeee-blip/himora-sub001/internal/commission"
	"github.com/mikeeeeee-blip/himora-sub001/internal/cron"
	"github.com/mikeeeeee-blip/himora-sub001/internal/ledger"
	"github.com/mikeeeeee-blip/himora-sub001/internal/payments"
	"github.com/mikeeeeee-blip/himora-sub001/internal/settlement"
	"github.com/mikeeeeee-blip/himora-sub001/pkg/config"
	"github.com/mikeeeeee-blip/himora-sub001/pkg/db"
	"github.com/mikeeeeee-blip/himora-sub001/pkg/logger"
	"github.com/mikeeeeee-blip/himora-sub001/pkg/metrics"
	"github.com/mikeeeeee-blip/himora-sub001/pkg/migrate"
	"github.com/mikeeeeee-blip/himora-sub001/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "settlement-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "settlement-worker"

	logg = logger.New(logger.Options{
		ServiceName: "settlement-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	ledgerTenantID, err := uuid.Parse(cfg.Ledger.TenantID)
	if err != nil {
		logg.Error(context.Background(), "invalid ledger tenant id", err)
		os.Exit(1)
	}

	commissionPolicy := commission.PolicyFromConfig(cfg.Commission)
	settlementPolicy := settlement.PolicyFromConfig(cfg.Settlement)

	ledgerRepo := ledger.NewRepository(dbClient.DB())
	ledgerService, err := ledger.NewService(ledger.ServiceParams{
		Repo: ledgerRepo,
		DB:   dbClient,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	capturePoster, err := ledger.NewCapturePoster(ledgerService, ledgerRepo, ledgerTenantID)
	if err != nil {
		logg.Error(context.Background(), "failed to create capture poster", err)
		os.Exit(1)
	}

	sweeper, err := settlement.NewSweeper(settlement.SweeperParams{
		Logger:           logg,
		DB:               dbClient,
		Payments:         payments.NewRepository(dbClient.DB()),
		Poster:           capturePoster,
		Policy:           settlementPolicy,
		CommissionPolicy: commissionPolicy,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement sweeper", err)
		os.Exit(1)
	}

	settlementMetrics := metrics.NewSettlementMetrics(prometheus.DefaultRegisterer)
	cronMetrics := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)

	sweepJob, err := cron.NewSettlementSweepJob(cron.SettlementSweepJobParams{
		Logger:           logg,
		Sweeper:          sweeper,
		Metrics:          settlementMetrics,
		BusinessDaysOnly: cfg.Worker.BusinessDaysOnly,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement sweep job", err)
		os.Exit(1)
	}

	auditJob, err := cron.NewLedgerAuditJob(cron.LedgerAuditJobParams{
		Logger: logg,
		Ledger: ledgerService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger audit job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("settlement-sweep"), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create sweep lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(sweepJob, auditJob),
		Lock:     lock,
		Metrics:  cronMetrics,
		Interval: cfg.Worker.SweepInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		addr := ":" + cfg.Worker.MetricsPort
		if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
			logg.Error(context.Background(), "metrics server stopped unexpectedly", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting settlement worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "settlement worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "settlement worker shutting down gracefully")
}
