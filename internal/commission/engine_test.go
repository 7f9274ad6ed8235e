package commission

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mikeeeeee-blip/himora-sub001/pkg/enums"
	pkgerrors "github.com/mikeeeeee-blip/himora-sub001/pkg/errors"
)

func percentPolicy(rate string) Policy {
	return Policy{Mode: ModePercent, PercentRate: decimal.RequireFromString(rate)}
}

func TestComputePercentRoundsToTwoPlaces(t *testing.T) {
	policy := percentPolicy("4.484")

	result, err := Compute(policy, decimal.NewFromInt(1000), enums.PaymentDirectionPayin)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	if got := result.Commission.String(); got != "44.84" {
		t.Fatalf("expected commission 44.84, got %s", got)
	}
	if got := result.NetAmount.String(); got != "955.16" {
		t.Fatalf("expected net 955.16, got %s", got)
	}
	if !result.Commission.Add(result.NetAmount).Equal(decimal.NewFromInt(1000)) {
		t.Fatal("commission + net must equal gross")
	}
}

func TestComputePercentRoundsHalfAwayFromZero(t *testing.T) {
	// 10.01 * 2.5% = 0.250250 -> 0.25, while 10.20 * 2.5% = 0.255 -> 0.26.
	policy := percentPolicy("2.5")

	result, err := Compute(policy, decimal.RequireFromString("10.20"), enums.PaymentDirectionPayin)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if got := result.Commission.String(); got != "0.26" {
		t.Fatalf("expected half-away rounding to 0.26, got %s", got)
	}
}

func TestComputeFlatByDirection(t *testing.T) {
	policy := Policy{
		Mode:          ModeFlat,
		FlatFeePayin:  decimal.NewFromInt(5),
		FlatFeePayout: decimal.NewFromInt(10),
	}

	payin, err := Compute(policy, decimal.NewFromInt(100), enums.PaymentDirectionPayin)
	if err != nil {
		t.Fatalf("Compute payin: %v", err)
	}
	if !payin.Commission.Equal(decimal.NewFromInt(5)) || !payin.NetAmount.Equal(decimal.NewFromInt(95)) {
		t.Fatalf("unexpected payin split: %s / %s", payin.Commission, payin.NetAmount)
	}

	payout, err := Compute(policy, decimal.NewFromInt(100), enums.PaymentDirectionPayout)
	if err != nil {
		t.Fatalf("Compute payout: %v", err)
	}
	if !payout.Commission.Equal(decimal.NewFromInt(10)) || !payout.NetAmount.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("unexpected payout split: %s / %s", payout.Commission, payout.NetAmount)
	}
}

func TestComputeClampsFeeToAmount(t *testing.T) {
	policy := Policy{Mode: ModeFlat, FlatFeePayin: decimal.NewFromInt(10)}

	result, err := Compute(policy, decimal.NewFromInt(3), enums.PaymentDirectionPayin)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if !result.Clamped {
		t.Fatal("expected clamped result")
	}
	if !result.Commission.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("expected commission clamped to 3, got %s", result.Commission)
	}
	if !result.NetAmount.IsZero() {
		t.Fatalf("expected zero net, got %s", result.NetAmount)
	}
}

func TestComputeRejectsNonPositiveAmounts(t *testing.T) {
	policy := percentPolicy("2")

	for _, amount := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-50)} {
		_, err := Compute(policy, amount, enums.PaymentDirectionPayin)
		if !pkgerrors.HasCode(err, pkgerrors.CodeInvalidAmount) {
			t.Fatalf("expected INVALID_AMOUNT for %s, got %v", amount, err)
		}
	}
}

func TestComputeRejectsUnknownDirection(t *testing.T) {
	_, err := Compute(percentPolicy("2"), decimal.NewFromInt(10), enums.PaymentDirection("sideways"))
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
