package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mikeeeeee-blip/himora-sub001/api/middleware"
	"github.com/mikeeeeee-blip/himora-sub001/api/responses"
	"github.com/mikeeeeee-blip/himora-sub001/api/validators"
	"github.com/mikeeeeee-blip/himora-sub001/internal/ledger"
	pkgerrors "github.com/mikeeeeee-blip/himora-sub001/pkg/errors"
	"github.com/mikeeeeee-blip/himora-sub001/pkg/logger"
)

// tenantFromRequest resolves the tenant scope for a ledger call. The token
// claim wins; the tenantId query parameter is a fallback for service tokens
// that are not tenant bound.
func tenantFromRequest(r *http.Request) (uuid.UUID, error) {
	if tenantID := middleware.TenantIDFromContext(r.Context()); tenantID != uuid.Nil {
		return tenantID, nil
	}
	raw := strings.TrimSpace(r.URL.Query().Get("tenantId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant scope is required")
	}
	tenantID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "tenantId must be a valid uuid")
	}
	return tenantID, nil
}

// LedgerOverview reports account and entry counts plus a balance audit over
// every posted entry in the tenant's ledger.
func LedgerOverview(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		tenantID, err := tenantFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		overview, err := svc.GetOverview(r.Context(), &tenantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, overview)
	}
}

type createAccountRequest struct {
	Code     string `json:"code" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Type     string `json:"type" validate:"required"`
	Currency string `json:"currency" validate:"omitempty,len=3"`
}

// CreateLedgerAccount adds one account to the tenant's chart of accounts.
func CreateLedgerAccount(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		tenantID, err := tenantFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req createAccountRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		account, err := svc.CreateAccount(r.Context(), ledger.CreateAccountInput{
			TenantID: tenantID,
			Code:     req.Code,
			Name:     req.Name,
			Type:     req.Type,
			Currency: req.Currency,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, account)
	}
}

// ListLedgerAccounts returns the tenant's chart of accounts ordered by code.
func ListLedgerAccounts(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		tenantID, err := tenantFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		accounts, err := svc.ListAccounts(r.Context(), tenantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, accounts)
	}
}

type postJournalRequest struct {
	ExternalID string            `json:"externalId" validate:"required"`
	Type       string            `json:"type" validate:"required"`
	Reference  *string           `json:"reference"`
	Postings   []postJournalLine `json:"postings" validate:"required,min=1,dive"`
}

type postJournalLine struct {
	AccountID uuid.UUID `json:"accountId" validate:"required"`
	Side      string    `json:"side" validate:"required,oneof=dr cr"`
	Amount    string    `json:"amount" validate:"required"`
	Ref       *string   `json:"ref"`
}

// PostJournal posts one balanced journal entry to the tenant's ledger.
func PostJournal(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		tenantID, err := tenantFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req postJournalRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := ledger.PostEntryInput{
			TenantID:   tenantID,
			ExternalID: req.ExternalID,
			Type:       req.Type,
			Reference:  req.Reference,
			Postings:   make([]ledger.PostingInput, 0, len(req.Postings)),
		}
		for _, line := range req.Postings {
			amount, err := decimal.NewFromString(line.Amount)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInvalidAmount, "posting amount must be a decimal string"))
				return
			}
			input.Postings = append(input.Postings, ledger.PostingInput{
				AccountID: line.AccountID,
				Side:      line.Side,
				Amount:    amount,
				Ref:       line.Ref,
			})
		}

		entry, err := svc.PostJournalEntry(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, entry)
	}
}

// GetJournal lists the tenant's journal entries, newest first.
func GetJournal(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
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

		entries, err := svc.GetJournal(r.Context(), tenantID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entries)
	}
}

// GetJournalEntry returns one entry with totals recomputed from its postings.
func GetJournalEntry(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		tenantID, err := tenantFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entryID, err := uuid.Parse(chi.URLParam(r, "entryId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "entryId must be a valid uuid"))
			return
		}

		view, err := svc.GetJournalByID(r.Context(), tenantID, entryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}
