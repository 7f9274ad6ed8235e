package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mikeeeeee-blip/himora-sub001/api/responses"
	"github.com/mikeeeeee-blip/himora-sub001/api/validators"
	"github.com/mikeeeeee-blip/himora-sub001/internal/rotation"
	pkgerrors "github.com/mikeeeeee-blip/himora-sub001/pkg/errors"
	"github.com/mikeeeeee-blip/himora-sub001/pkg/logger"
)

// RotationStatus reports the active gateway and fairness counters.
func RotationStatus(svc rotation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rotation service unavailable"))
			return
		}
		status, err := svc.Status(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}

type createPaymentLinkRequest struct {
	Amount   decimal.Decimal `json:"amount" validate:"required"`
	Currency string          `json:"currency" validate:"omitempty,len=3"`
}

type createPaymentLinkResponse struct {
	LinkID   string              `json:"linkId"`
	Amount   decimal.Decimal     `json:"amount"`
	Currency string              `json:"currency"`
	Routing  *rotation.Selection `json:"routing"`
}

// CreatePaymentLink routes a new payment link through the gateway rotation and
// records the usage against the selected gateway.
func CreatePaymentLink(svc rotation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rotation service unavailable"))
			return
		}

		var req createPaymentLinkRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if req.Amount.Sign() <= 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInvalidAmount, "amount must be positive"))
			return
		}
		currency := req.Currency
		if currency == "" {
			currency = "INR"
		}

		selection, err := svc.SelectNext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithGateway(ctx, selection.Gateway)
			logg.Info(ctx, "payment link routed")
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, createPaymentLinkResponse{
			LinkID:   uuid.NewString(),
			Amount:   req.Amount,
			Currency: currency,
			Routing:  selection,
		})
	}
}

type configureGatewayRequest struct {
	Name          string `json:"name" validate:"required"`
	Enabled       *bool  `json:"enabled"`
	RotationLimit int    `json:"rotationLimit" validate:"omitempty,min=1"`
}

// ConfigureGateway upserts a gateway's rotation configuration.
func ConfigureGateway(svc rotation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rotation service unavailable"))
			return
		}

		var req configureGatewayRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		enabled := true
		if req.Enabled != nil {
			enabled = *req.Enabled
		}
		gateway, err := svc.ConfigureGateway(r.Context(), rotation.ConfigureGatewayInput{
			Name:          req.Name,
			Enabled:       enabled,
			RotationLimit: req.RotationLimit,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, gateway)
	}
}
