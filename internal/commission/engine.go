package commission

import (
	"github.com/shopspring/decimal"

	"github.com/mikeeeeee-blip/himora-sub001/pkg/config"
	"github.com/mikeeeeee-blip/himora-sub001/pkg/enums"
	pkgerrors "github.com/mikeeeeee-blip/himora-sub001/pkg/errors"
)

// Mode selects how the platform fee is derived from the gross amount.
type Mode string

const (
	ModePercent Mode = "percent"
	ModeFlat    Mode = "flat"
)

// Policy describes the active commission scheme. Exactly one mode applies; the
// flat fees are per direction because payouts carry a higher processing cost.
type Policy struct {
	Mode          Mode
	PercentRate   decimal.Decimal
	FlatFeePayin  decimal.Decimal
	FlatFeePayout decimal.Decimal
}

// PolicyFromConfig builds a Policy from environment configuration.
func PolicyFromConfig(cfg config.CommissionConfig) Policy {
	return Policy{
		Mode:          Mode(cfg.Mode),
		PercentRate:   decimal.NewFromFloat(cfg.PercentRate),
		FlatFeePayin:  decimal.NewFromFloat(cfg.FlatFeePayin),
		FlatFeePayout: decimal.NewFromFloat(cfg.FlatFeePayout),
	}
}

// Result carries the computed fee split. Clamped reports that the configured
// fee exceeded the gross amount and was capped so the net never goes negative.
type Result struct {
	Commission decimal.Decimal
	NetAmount  decimal.Decimal
	Clamped    bool
}

var oneHundred = decimal.NewFromInt(100)

// Compute splits a gross amount into commission and net. Pure; percentage fees
// round to 2 decimal places half-away-from-zero so fractional paise are neither
// systematically dropped nor double-collected.
func Compute(policy Policy, amount decimal.Decimal, direction enums.PaymentDirection) (Result, error) {
	if !direction.IsValid() {
		return Result{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment direction")
	}
	if amount.Sign() <= 0 {
		return Result{}, pkgerrors.New(pkgerrors.CodeInvalidAmount, "amount must be positive").
			WithDetails(map[string]any{"amount": amount.String()})
	}

	var fee decimal.Decimal
	switch policy.Mode {
	case ModePercent:
		fee = amount.Mul(policy.PercentRate).Div(oneHundred).Round(2)
	case ModeFlat:
		if direction == enums.PaymentDirectionPayout {
			fee = policy.FlatFeePayout
		} else {
			fee = policy.FlatFeePayin
		}
	default:
		return Result{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown commission mode")
	}

	if fee.Sign() < 0 {
		return Result{}, pkgerrors.New(pkgerrors.CodeValidation, "commission fee must be non-negative")
	}

	result := Result{Commission: fee}
	if fee.GreaterThan(amount) {
		result.Commission = amount
		result.Clamped = true
	}
	result.NetAmount = amount.Sub(result.Commission)
	return result, nil
}
