package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mikeeeeee-blip/himora-sub001/internal/commission"
	"github.com/mikeeeeee-blip/himora-sub001/pkg/db/models"
	"github.com/mikeeeeee-blip/himora-sub001/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type paymentStore interface {
	FindUnsettled(ctx context.Context) ([]models.PaymentRecord, error)
	UpdateDerived(ctx context.Context, id uuid.UUID, updates map[string]any) error
	MarkSettled(ctx context.Context, tx *gorm.DB, id uuid.UUID, settledAt time.Time) (bool, error)
}

// capturePoster records the journal entry for a settled capture inside the
// same transaction as the status flip.
type capturePoster interface {
	PostCaptureInTx(ctx context.Context, tx *gorm.DB, record models.PaymentRecord) error
}

// SweeperParams configure the settlement sweeper.
type SweeperParams struct {
	Logger           *logger.Logger
	DB               txRunner
	Payments         paymentStore
	Poster           capturePoster
	Policy           Policy
	CommissionPolicy commission.Policy
}

// Sweeper promotes due unsettled payments to settled. Each record is handled
// independently so one bad row never blocks the rest of the sweep; a failed
// row stays unsettled and is retried on the next tick.
type Sweeper struct {
	logg             *logger.Logger
	db               txRunner
	payments         paymentStore
	poster           capturePoster
	policy           Policy
	commissionPolicy commission.Policy
}

// NewSweeper builds a settlement sweeper.
func NewSweeper(params SweeperParams) (*Sweeper, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payments store required")
	}
	if params.Policy == nil {
		return nil, fmt.Errorf("settlement policy required")
	}
	return &Sweeper{
		logg:             params.Logger,
		db:               params.DB,
		payments:         params.Payments,
		poster:           params.Poster,
		policy:           params.Policy,
		commissionPolicy: params.CommissionPolicy,
	}, nil
}

// Outcome summarizes one sweep pass.
type Outcome struct {
	SettledCount  int `json:"settledCount"`
	NotReadyCount int `json:"notReadyCount"`
	FailedCount   int `json:"failedCount"`
}

// Sweep evaluates every unsettled payment against the settlement policy. It is
// idempotent: records settled by a previous pass are no longer returned by the
// unsettled scan, and the status flip itself is a conditional update.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (Outcome, error) {
	records, err := s.payments.FindUnsettled(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("scan unsettled payments: %w", err)
	}

	var outcome Outcome
	for _, record := range records {
		settled, err := s.sweepOne(ctx, now, record)
		if err != nil {
			recCtx := s.logg.WithFields(ctx, map[string]any{
				"payment_id": record.ID,
				"reference":  record.Reference,
			})
			s.logg.Error(recCtx, "settlement sweep failed for payment", err)
			outcome.FailedCount++
			continue
		}
		if settled {
			outcome.SettledCount++
		} else {
			outcome.NotReadyCount++
		}
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"settled":   outcome.SettledCount,
		"not_ready": outcome.NotReadyCount,
		"failed":    outcome.FailedCount,
	})
	s.logg.Info(logCtx, "settlement sweep complete")
	return outcome, nil
}

func (s *Sweeper) sweepOne(ctx context.Context, now time.Time, record models.PaymentRecord) (bool, error) {
	expected, err := s.ensureDerived(ctx, &record)
	if err != nil {
		return false, err
	}

	if !Due(now, record.PaidAt, expected, s.policy) {
		return false, nil
	}

	settled := false
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.payments.MarkSettled(ctx, tx, record.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			// Lost the race to a concurrent sweep; the record is already settled.
			return nil
		}
		settled = true
		if s.poster == nil {
			return nil
		}
		return s.poster.PostCaptureInTx(ctx, tx, record)
	})
	if err != nil {
		return false, err
	}
	return settled, nil
}

// ensureDerived backfills commission and the expected settlement date for
// records created before those fields were computed at capture time.
func (s *Sweeper) ensureDerived(ctx context.Context, record *models.PaymentRecord) (time.Time, error) {
	updates := map[string]any{}

	if record.Commission.IsZero() && record.NetAmount.IsZero() {
		result, err := commission.Compute(s.commissionPolicy, record.Amount, record.Direction)
		if err != nil {
			return time.Time{}, fmt.Errorf("backfill commission: %w", err)
		}
		record.Commission = result.Commission
		record.NetAmount = result.NetAmount
		updates["commission"] = result.Commission
		updates["net_amount"] = result.NetAmount
	}

	var expected time.Time
	if record.ExpectedSettlementDate != nil {
		expected = *record.ExpectedSettlementDate
	} else {
		computed, err := ExpectedAt(record.PaidAt, s.policy)
		if err != nil {
			return time.Time{}, fmt.Errorf("backfill expected settlement: %w", err)
		}
		expected = computed
		record.ExpectedSettlementDate = &expected
		updates["expected_settlement_date"] = expected
	}

	if len(updates) > 0 {
		if err := s.payments.UpdateDerived(ctx, record.ID, updates); err != nil {
			return time.Time{}, fmt.Errorf("persist backfill: %w", err)
		}
	}
	return expected, nil
}
