package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mikeeeeee-blip/himora-sub001/api/responses"
	"github.com/mikeeeeee-blip/himora-sub001/api/validators"
	"github.com/mikeeeeee-blip/himora-sub001/internal/reconciliation"
	pkgerrors "github.com/mikeeeeee-blip/himora-sub001/pkg/errors"
	"github.com/mikeeeeee-blip/himora-sub001/pkg/logger"
)

type reconciliationRowRequest struct {
	ExternalID string `json:"externalId" validate:"required"`
	Amount     string `json:"amount" validate:"required"`
}

type createReconciliationRunRequest struct {
	Source string                     `json:"source" validate:"required"`
	Rows   []reconciliationRowRequest `json:"rows" validate:"dive"`
}

// CreateReconciliationRun matches an external statement against the posted
// ledger and records the run with its exceptions.
func CreateReconciliationRun(svc reconciliation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconciliation service unavailable"))
			return
		}

		tenantID, err := tenantFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req createReconciliationRunRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := reconciliation.RunInput{
			TenantID: tenantID,
			Source:   req.Source,
			Rows:     make([]reconciliation.StatementRow, 0, len(req.Rows)),
		}
		for _, row := range req.Rows {
			amount, err := decimal.NewFromString(row.Amount)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInvalidAmount, "statement amount must be a decimal string"))
				return
			}
			input.Rows = append(input.Rows, reconciliation.StatementRow{
				ExternalID: row.ExternalID,
				Amount:     amount,
			})
		}

		result, err := svc.Run(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// ListReconciliationRuns returns past runs for the tenant, newest first.
func ListReconciliationRuns(svc reconciliation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconciliation service unavailable"))
			return
		}

		tenantID, err := tenantFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit := 0
		if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
			value, err := strconv.Atoi(raw)
			if err != nil || value <= 0 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "limit must be a positive integer"))
				return
			}
			limit = value
		}

		runs, err := svc.ListRuns(r.Context(), tenantID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, runs)
	}
}

// ListReconciliationExceptions returns the exceptions raised by one run.
func ListReconciliationExceptions(svc reconciliation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconciliation service unavailable"))
			return
		}

		runID, err := uuid.Parse(chi.URLParam(r, "runId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "runId must be a valid uuid"))
			return
		}

		exceptions, err := svc.ListExceptions(r.Context(), runID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, exceptions)
	}
}

// ResolveReconciliationException marks one open exception as resolved.
func ResolveReconciliationException(svc reconciliation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconciliation service unavailable"))
			return
		}

		exceptionID, err := uuid.Parse(chi.URLParam(r, "exceptionId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "exceptionId must be a valid uuid"))
			return
		}

		exception, err := svc.ResolveException(r.Context(), exceptionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, exception)
	}
}
