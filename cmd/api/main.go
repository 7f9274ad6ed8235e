package main

import (
	"context"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/mikeeeeee-blip/himora-sub001/api/routes"
	"github.com/mikeeeeee-blip/himora-sub001/internal/commission"
	"github.com/mikeeeeee-blip/himora-sub001/internal/ledger"
	"github.com/mikeeeeee-blip/himora-sub001/internal/payments"
	"github.com/mikeeeeee-blip/himora-sub001/internal/reconciliation"
	"github.com/mikeeeeee-blip/himora-sub001/internal/rotation"
	"github.com/mikeeeeee-blip/himora-sub001/internal/settlement"
	"github.com/mikeeeeee-blip/himora-sub001/pkg/config"
	"github.com/mikeeeeee-blip/himora-sub001/pkg/db"
	"github.com/mikeeeeee-blip/himora-sub001/pkg/logger"
	"github.com/mikeeeeee-blip/himora-sub001/pkg/migrate"
	"github.com/mikeeeeee-blip/himora-sub001/pkg/redis"
)

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

	rotationService, err := rotation.NewService(rotation.NewRepository(dbClient.DB()), cfg.Rotation.DefaultLimit)
	if err != nil {
		logg.Error(context.Background(), "failed to create rotation service", err)
		os.Exit(1)
	}

	commissionPolicy := commission.PolicyFromConfig(cfg.Commission)
	settlementPolicy := settlement.PolicyFromConfig(cfg.Settlement)

	paymentsRepo := payments.NewRepository(dbClient.DB())
	paymentsService, err := payments.NewService(payments.ServiceParams{
		Repo:             paymentsRepo,
		CommissionPolicy: commissionPolicy,
		SettlementPolicy: settlementPolicy,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

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
		Payments:         paymentsRepo,
		Poster:           capturePoster,
		Policy:           settlementPolicy,
		CommissionPolicy: commissionPolicy,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement sweeper", err)
		os.Exit(1)
	}

	reconciliationService, err := reconciliation.NewService(reconciliation.ServiceParams{
		Logger: logg,
		Repo:   reconciliation.NewRepository(dbClient.DB()),
		Ledger: ledgerRepo,
		DB:     dbClient,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reconciliation service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			rotationService,
			paymentsService,
			ledgerService,
			reconciliationService,
			sweeper,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
