package settlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mikeeeeee-blip/himora-sub001/internal/commission"
	"github.com/mikeeeeee-blip/himora-sub001/pkg/db/models"
	"github.com/mikeeeeee-blip/himora-sub001/pkg/enums"
	"github.com/mikeeeeee-blip/himora-sub001/pkg/logger"
)

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakePaymentStore struct {
	records     []models.PaymentRecord
	derived     map[uuid.UUID]map[string]any
	settled     map[uuid.UUID]time.Time
	findErr     error
	markErr     map[uuid.UUID]error
	markedRaced map[uuid.UUID]bool
}

func newFakePaymentStore(records ...models.PaymentRecord) *fakePaymentStore {
	return &fakePaymentStore{
		records:     records,
		derived:     map[uuid.UUID]map[string]any{},
		settled:     map[uuid.UUID]time.Time{},
		markErr:     map[uuid.UUID]error{},
		markedRaced: map[uuid.UUID]bool{},
	}
}

func (f *fakePaymentStore) FindUnsettled(ctx context.Context) ([]models.PaymentRecord, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	var unsettled []models.PaymentRecord
	for _, rec := range f.records {
		if _, done := f.settled[rec.ID]; !done {
			unsettled = append(unsettled, rec)
		}
	}
	return unsettled, nil
}

func (f *fakePaymentStore) UpdateDerived(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	f.derived[id] = updates
	return nil
}

func (f *fakePaymentStore) MarkSettled(ctx context.Context, tx *gorm.DB, id uuid.UUID, settledAt time.Time) (bool, error) {
	if err := f.markErr[id]; err != nil {
		return false, err
	}
	if f.markedRaced[id] {
		return false, nil
	}
	f.settled[id] = settledAt
	return true, nil
}

type fakeCapturePoster struct {
	posted []models.PaymentRecord
	err    error
}

func (f *fakeCapturePoster) PostCaptureInTx(ctx context.Context, tx *gorm.DB, record models.PaymentRecord) error {
	if f.err != nil {
		return f.err
	}
	f.posted = append(f.posted, record)
	return nil
}

func unsettledRecord(paidAt time.Time, expected *time.Time) models.PaymentRecord {
	return models.PaymentRecord{
		ID:                     uuid.New(),
		Gateway:                "razorpay",
		Reference:              uuid.NewString(),
		Direction:              enums.PaymentDirectionPayin,
		Amount:                 decimal.NewFromInt(1000),
		Commission:             decimal.RequireFromString("23.60"),
		NetAmount:              decimal.RequireFromString("976.40"),
		PaidAt:                 paidAt,
		SettlementStatus:       enums.SettlementStatusUnsettled,
		ExpectedSettlementDate: expected,
	}
}

func newSweeper(t *testing.T, store *fakePaymentStore, poster *fakeCapturePoster) *Sweeper {
	t.Helper()
	params := SweeperParams{
		Logger:           logger.New(logger.Options{ServiceName: "test"}),
		DB:               fakeTxRunner{},
		Payments:         store,
		Policy:           RelativeMinutes{Minutes: 20},
		CommissionPolicy: commission.Policy{Mode: commission.ModePercent, PercentRate: decimal.RequireFromString("2.36")},
	}
	if poster != nil {
		params.Poster = poster
	}
	sweeper, err := NewSweeper(params)
	if err != nil {
		t.Fatalf("NewSweeper: %v", err)
	}
	return sweeper
}

func TestSweepSettlesDueRecordsAndPostsCapture(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 30, 0, 0, time.UTC)
	due := unsettledRecord(now.Add(-30*time.Minute), nil)
	notDue := unsettledRecord(now.Add(-5*time.Minute), nil)
	store := newFakePaymentStore(due, notDue)
	poster := &fakeCapturePoster{}
	sweeper := newSweeper(t, store, poster)

	outcome, err := sweeper.Sweep(context.Background(), now)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if outcome.SettledCount != 1 || outcome.NotReadyCount != 1 || outcome.FailedCount != 0 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if _, ok := store.settled[due.ID]; !ok {
		t.Fatal("due record should be settled")
	}
	if len(poster.posted) != 1 || poster.posted[0].ID != due.ID {
		t.Fatalf("expected one capture posting for the settled record, got %d", len(poster.posted))
	}
}

func TestSweepIsIdempotent(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 30, 0, 0, time.UTC)
	due := unsettledRecord(now.Add(-time.Hour), nil)
	store := newFakePaymentStore(due)
	sweeper := newSweeper(t, store, nil)

	first, err := sweeper.Sweep(context.Background(), now)
	if err != nil {
		t.Fatalf("first Sweep: %v", err)
	}
	if first.SettledCount != 1 {
		t.Fatalf("expected 1 settled on first pass, got %+v", first)
	}

	second, err := sweeper.Sweep(context.Background(), now)
	if err != nil {
		t.Fatalf("second Sweep: %v", err)
	}
	if second.SettledCount != 0 || second.FailedCount != 0 {
		t.Fatalf("second pass must settle nothing, got %+v", second)
	}
}

func TestSweepTreatsLostRaceAsAlreadySettled(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 30, 0, 0, time.UTC)
	due := unsettledRecord(now.Add(-time.Hour), nil)
	store := newFakePaymentStore(due)
	store.markedRaced[due.ID] = true
	poster := &fakeCapturePoster{}
	sweeper := newSweeper(t, store, poster)

	outcome, err := sweeper.Sweep(context.Background(), now)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if outcome.SettledCount != 0 || outcome.FailedCount != 0 {
		t.Fatalf("lost race must not count as settled or failed: %+v", outcome)
	}
	if len(poster.posted) != 0 {
		t.Fatal("no capture entry may be posted when the conditional update matched nothing")
	}
}

func TestSweepBackfillsMissingDerivedFields(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 30, 0, 0, time.UTC)
	rec := models.PaymentRecord{
		ID:               uuid.New(),
		Gateway:          "payu",
		Reference:        uuid.NewString(),
		Direction:        enums.PaymentDirectionPayin,
		Amount:           decimal.NewFromInt(500),
		PaidAt:           now.Add(-time.Hour),
		SettlementStatus: enums.SettlementStatusUnsettled,
	}
	store := newFakePaymentStore(rec)
	sweeper := newSweeper(t, store, nil)

	if _, err := sweeper.Sweep(context.Background(), now); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	updates, ok := store.derived[rec.ID]
	if !ok {
		t.Fatal("expected derived fields to be backfilled")
	}
	commissionAmount, ok := updates["commission"].(decimal.Decimal)
	if !ok || !commissionAmount.Equal(decimal.RequireFromString("11.80")) {
		t.Fatalf("expected backfilled commission 11.80, got %v", updates["commission"])
	}
	if _, ok := updates["expected_settlement_date"]; !ok {
		t.Fatal("expected settlement date to be backfilled")
	}
}

func TestSweepIsolatesPerRecordFailures(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 30, 0, 0, time.UTC)
	bad := unsettledRecord(now.Add(-time.Hour), nil)
	good := unsettledRecord(now.Add(-2*time.Hour), nil)
	store := newFakePaymentStore(bad, good)
	store.markErr[bad.ID] = errors.New("storage offline")
	sweeper := newSweeper(t, store, nil)

	outcome, err := sweeper.Sweep(context.Background(), now)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if outcome.SettledCount != 1 {
		t.Fatalf("healthy record should settle despite a failing sibling: %+v", outcome)
	}
	if outcome.FailedCount != 1 {
		t.Fatalf("failing record should be counted: %+v", outcome)
	}
	if _, ok := store.settled[good.ID]; !ok {
		t.Fatal("good record should be settled")
	}
}

func TestSweepSurfacesScanErrors(t *testing.T) {
	store := newFakePaymentStore()
	store.findErr = errors.New("boom")
	sweeper := newSweeper(t, store, nil)

	if _, err := sweeper.Sweep(context.Background(), time.Now()); err == nil {
		t.Fatal("expected scan error")
	}
}
