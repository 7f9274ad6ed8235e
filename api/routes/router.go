package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mikeeeeee-blip/himora-sub001/api/controllers"
	"github.com/mikeeeeee-blip/himora-sub001/api/middleware"
	"github.com/mikeeeeee-blip/himora-sub001/internal/ledger"
	"github.com/mikeeeeee-blip/himora-sub001/internal/payments"
	"github.com/mikeeeeee-blip/himora-sub001/internal/reconciliation"
	"github.com/mikeeeeee-blip/himora-sub001/internal/rotation"
	"github.com/mikeeeeee-blip/himora-sub001/internal/settlement"
	"github.com/mikeeeeee-blip/himora-sub001/pkg/config"
	"github.com/mikeeeeee-blip/himora-sub001/pkg/db"
	"github.com/mikeeeeee-blip/himora-sub001/pkg/logger"
	"github.com/mikeeeeee-blip/himora-sub001/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	rotationService rotation.Service,
	paymentsService payments.Service,
	ledgerService ledger.Service,
	reconciliationService reconciliation.Service,
	sweeper *settlement.Sweeper,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/payments", func(r chi.Router) {
			r.Post("/captured", controllers.PaymentCaptured(paymentsService, logg))
			r.Get("/", controllers.ListPayments(paymentsService, logg))
			r.Get("/{reference}", controllers.GetPayment(paymentsService, logg))
		})

		r.Route("/payment-links", func(r chi.Router) {
			r.Post("/", controllers.CreatePaymentLink(rotationService, logg))
		})

		r.Route("/rotation", func(r chi.Router) {
			r.Get("/status", controllers.RotationStatus(rotationService, logg))
		})

		r.Route("/gateways", func(r chi.Router) {
			r.Post("/", controllers.ConfigureGateway(rotationService, logg))
		})

		r.Route("/settlement", func(r chi.Router) {
			r.Post("/sweep", controllers.TriggerSettlementSweep(sweeper, logg))
		})

		r.Route("/ledger", func(r chi.Router) {
			r.Get("/overview", controllers.LedgerOverview(ledgerService, logg))
			r.Route("/accounts", func(r chi.Router) {
				r.Get("/", controllers.ListLedgerAccounts(ledgerService, logg))
				r.Post("/", controllers.CreateLedgerAccount(ledgerService, logg))
			})
			r.Route("/journal", func(r chi.Router) {
				r.Get("/", controllers.GetJournal(ledgerService, logg))
				r.Post("/", controllers.PostJournal(ledgerService, logg))
				r.Get("/{entryId}", controllers.GetJournalEntry(ledgerService, logg))
			})
		})

		r.Route("/reconciliation", func(r chi.Router) {
			r.Route("/runs", func(r chi.Router) {
				r.Get("/", controllers.ListReconciliationRuns(reconciliationService, logg))
				r.Post("/", controllers.CreateReconciliationRun(reconciliationService, logg))
				r.Get("/{runId}/exceptions", controllers.ListReconciliationExceptions(reconciliationService, logg))
			})
			r.Post("/exceptions/{exceptionId}/resolve", controllers.ResolveReconciliationException(reconciliationService, logg))
		})
	})

	return r
}
