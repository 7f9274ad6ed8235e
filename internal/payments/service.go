package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mikeeeeee-blip/himora-sub001/internal/commission"
	"github.com/mikeeeeee-blip/himora-sub001/internal/settlement"
	"github.com/mikeeeeee-blip/himora-sub001/pkg/db"
	"github.com/mikeeeeee-blip/himora-sub001/pkg/db/models"
	"github.com/mikeeeeee-blip/himora-sub001/pkg/enums"
	pkgerrors "github.com/mikeeeeee-blip/himora-sub001/pkg/errors"
)

// CaptureInput is one "payment captured" event from a gateway webhook or an
// internal producer.
type CaptureInput struct {
	Gateway   string          `json:"gateway"`
	Reference string          `json:"reference"`
	Direction string          `json:"direction"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	PaidAt    time.Time       `json:"paidAt"`
}

// Service records captured payments with their derived settlement fields.
type Service interface {
	RecordCapture(ctx context.Context, input CaptureInput) (*models.PaymentRecord, error)
	GetByReference(ctx context.Context, reference string) (*models.PaymentRecord, error)
	List(ctx context.Context, status *enums.SettlementStatus, limit int) ([]models.PaymentRecord, error)
}

// ServiceParams configure the payments service.
type ServiceParams struct {
	Repo             Repository
	CommissionPolicy commission.Policy
	SettlementPolicy settlement.Policy
	Now              func() time.Time
}

type service struct {
	repo             Repository
	commissionPolicy commission.Policy
	settlementPolicy settlement.Policy
	now              func() time.Time
}

// NewService builds the payments service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if params.SettlementPolicy == nil {
		return nil, fmt.Errorf("settlement policy required")
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &service{
		repo:             params.Repo,
		commissionPolicy: params.CommissionPolicy,
		settlementPolicy: params.SettlementPolicy,
		now:              params.Now,
	}, nil
}

// RecordCapture computes commission and the expected settlement date up front
// and persists the record as unsettled. A capture whose commission cannot be
// computed is rejected outright rather than stored half-derived.
func (s *service) RecordCapture(ctx context.Context, input CaptureInput) (*models.PaymentRecord, error) {
	if input.Reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required")
	}
	if input.Gateway == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway is required")
	}

	direction := enums.PaymentDirectionPayin
	if input.Direction != "" {
		parsed, err := enums.ParsePaymentDirection(input.Direction)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
		}
		direction = parsed
	}

	result, err := commission.Compute(s.commissionPolicy, input.Amount, direction)
	if err != nil {
		return nil, err
	}

	paidAt := input.PaidAt
	if paidAt.IsZero() {
		paidAt = s.now()
	}
	expected, err := settlement.ExpectedAt(paidAt, s.settlementPolicy)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "compute expected settlement date")
	}

	currency := input.Currency
	if currency == "" {
		currency = "INR"
	}

	record := &models.PaymentRecord{
		Gateway:                input.Gateway,
		Reference:              input.Reference,
		Direction:              direction,
		Amount:                 input.Amount,
		Currency:               currency,
		Commission:             result.Commission,
		NetAmount:              result.NetAmount,
		PaidAt:                 paidAt.UTC(),
		SettlementStatus:       enums.SettlementStatusUnsettled,
		ExpectedSettlementDate: &expected,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("payment %s already recorded", input.Reference))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist payment record")
	}
	return record, nil
}

func (s *service) GetByReference(ctx context.Context, reference string) (*models.PaymentRecord, error) {
	record, err := s.repo.FindByReference(ctx, reference)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment record")
	}
	if record == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("payment %s not found", reference))
	}
	return record, nil
}

func (s *service) List(ctx context.Context, status *enums.SettlementStatus, limit int) ([]models.PaymentRecord, error) {
	records, err := s.repo.List(ctx, status, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payment records")
	}
	return records, nil
}
