package reconciliation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mikeeeeee-blip/himora-sub001/pkg/db/models"
	"github.com/mikeeeeee-blip/himora-sub001/pkg/enums"
	pkgerrors "github.com/mikeeeeee-blip/himora-sub001/pkg/errors"
	"github.com/mikeeeeee-blip/himora-sub001/pkg/logger"
)

type fakeLedger struct {
	entries []models.JournalEntry
}

func (f *fakeLedger) ListPostedEntries(ctx context.Context, tenantID *uuid.UUID) ([]models.JournalEntry, error) {
	return f.entries, nil
}

type fakeRepo struct {
	runs       map[uuid.UUID]*models.ReconciliationRun
	exceptions map[uuid.UUID]*models.ReconciliationException
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		runs:       map[uuid.UUID]*models.ReconciliationRun{},
		exceptions: map[uuid.UUID]*models.ReconciliationException{},
	}
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) CreateRun(ctx context.Context, run *models.ReconciliationRun) error {
	copied := *run
	f.runs[run.ID] = &copied
	return nil
}

func (f *fakeRepo) CreateExceptions(ctx context.Context, exceptions []models.ReconciliationException) error {
	for i := range exceptions {
		copied := exceptions[i]
		f.exceptions[copied.ID] = &copied
	}
	return nil
}

func (f *fakeRepo) GetRun(ctx context.Context, id uuid.UUID) (*models.ReconciliationRun, error) {
	run, ok := f.runs[id]
	if !ok {
		return nil, nil
	}
	copied := *run
	return &copied, nil
}

func (f *fakeRepo) ListRuns(ctx context.Context, tenantID uuid.UUID, limit int) ([]models.ReconciliationRun, error) {
	var runs []models.ReconciliationRun
	for _, run := range f.runs {
		if run.TenantID == tenantID {
			runs = append(runs, *run)
		}
	}
	return runs, nil
}

func (f *fakeRepo) ListExceptions(ctx context.Context, runID uuid.UUID) ([]models.ReconciliationException, error) {
	var out []models.ReconciliationException
	for _, exception := range f.exceptions {
		if exception.RunID == runID {
			out = append(out, *exception)
		}
	}
	return out, nil
}

func (f *fakeRepo) GetException(ctx context.Context, id uuid.UUID) (*models.ReconciliationException, error) {
	exception, ok := f.exceptions[id]
	if !ok {
		return nil, nil
	}
	copied := *exception
	return &copied, nil
}

func (f *fakeRepo) MarkExceptionResolved(ctx context.Context, id uuid.UUID, resolvedAt time.Time) (bool, error) {
	exception, ok := f.exceptions[id]
	if !ok || exception.Status != enums.ReconciliationExceptionStatusOpen {
		return false, nil
	}
	exception.Status = enums.ReconciliationExceptionStatusResolved
	exception.ResolvedAt = &resolvedAt
	return true, nil
}

type noopTxRunner struct{}

func (noopTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func postedEntry(externalID string, entryType enums.JournalEntryType, gross string) models.JournalEntry {
	amount := decimal.RequireFromString(gross)
	return models.JournalEntry{
		ID:         uuid.New(),
		ExternalID: externalID,
		Type:       entryType,
		IsPosted:   true,
		Postings: []models.Posting{
			{ID: uuid.New(), Side: enums.PostingSideDebit, Amount: amount},
			{ID: uuid.New(), Side: enums.PostingSideCredit, Amount: amount},
		},
	}
}

func setupService(t *testing.T, repo Repository, ledger ledgerReader) Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel})
	svc, err := NewService(ServiceParams{
		Logger: logg,
		Repo:   repo,
		Ledger: ledger,
		DB:     noopTxRunner{},
		Now:    func() time.Time { return time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return svc
}

func TestRunClassifiesExceptions(t *testing.T) {
	clean := postedEntry("capture-pay_1", enums.JournalEntryTypeCapture, "1000")
	skewed := postedEntry("capture-pay_2", enums.JournalEntryTypeCapture, "250")
	unreported := postedEntry("capture-pay_3", enums.JournalEntryTypeCapture, "75")
	internal := postedEntry("adj-1", enums.JournalEntryTypeAdjustment, "10")
	ledger := &fakeLedger{entries: []models.JournalEntry{clean, skewed, unreported, internal}}
	repo := newFakeRepo()
	svc := setupService(t, repo, ledger)

	result, err := svc.Run(context.Background(), RunInput{
		TenantID: uuid.New(),
		Source:   "razorpay",
		Rows: []StatementRow{
			{ExternalID: "capture-pay_1", Amount: decimal.NewFromInt(1000)},
			{ExternalID: "capture-pay_2", Amount: decimal.RequireFromString("249.50")},
			{ExternalID: "capture-pay_9", Amount: decimal.NewFromInt(42)},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Run.MatchedCount)
	assert.Equal(t, 3, result.Run.ExceptionCount)
	require.NotNil(t, result.Run.CompletedAt)

	byType := map[enums.ReconciliationExceptionType]models.ReconciliationException{}
	for _, exception := range result.Exceptions {
		byType[exception.Type] = exception
	}

	mismatch := byType[enums.ReconciliationExceptionAmountMismatch]
	assert.Equal(t, "capture-pay_2", mismatch.ExternalRef)
	assert.Equal(t, "250", mismatch.ExpectedAmount.String())
	assert.Equal(t, "249.5", mismatch.ActualAmount.String())
	require.NotNil(t, mismatch.EntryID)
	assert.Equal(t, skewed.ID, *mismatch.EntryID)

	orphan := byType[enums.ReconciliationExceptionOrphanedExternal]
	assert.Equal(t, "capture-pay_9", orphan.ExternalRef)
	assert.Nil(t, orphan.EntryID)

	missing := byType[enums.ReconciliationExceptionMissingStatement]
	assert.Equal(t, "capture-pay_3", missing.ExternalRef)

	// The internal adjustment entry is not expected on the statement.
	for _, exception := range result.Exceptions {
		assert.NotEqual(t, "adj-1", exception.ExternalRef)
	}
}

func TestRunCleanStatement(t *testing.T) {
	entry := postedEntry("capture-pay_1", enums.JournalEntryTypeCapture, "500")
	svc := setupService(t, newFakeRepo(), &fakeLedger{entries: []models.JournalEntry{entry}})

	result, err := svc.Run(context.Background(), RunInput{
		TenantID: uuid.New(),
		Source:   "payu",
		Rows:     []StatementRow{{ExternalID: "capture-pay_1", Amount: decimal.NewFromInt(500)}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Run.MatchedCount)
	assert.Empty(t, result.Exceptions)
}

func TestRunValidatesInput(t *testing.T) {
	svc := setupService(t, newFakeRepo(), &fakeLedger{})

	_, err := svc.Run(context.Background(), RunInput{Source: "payu"})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation), "got %v", err)

	_, err = svc.Run(context.Background(), RunInput{TenantID: uuid.New()})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation), "got %v", err)
}

func TestResolveException(t *testing.T) {
	entry := postedEntry("capture-pay_1", enums.JournalEntryTypeCapture, "100")
	repo := newFakeRepo()
	svc := setupService(t, repo, &fakeLedger{entries: []models.JournalEntry{entry}})

	result, err := svc.Run(context.Background(), RunInput{
		TenantID: uuid.New(),
		Source:   "payu",
		Rows:     []StatementRow{},
	})
	require.NoError(t, err)
	require.Len(t, result.Exceptions, 1)

	resolved, err := svc.ResolveException(context.Background(), result.Exceptions[0].ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ReconciliationExceptionStatusResolved, resolved.Status)
	require.NotNil(t, resolved.ResolvedAt)

	_, err = svc.ResolveException(context.Background(), result.Exceptions[0].ID)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict), "got %v", err)

	_, err = svc.ResolveException(context.Background(), uuid.New())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound), "got %v", err)
}

func TestListExceptionsUnknownRun(t *testing.T) {
	svc := setupService(t, newFakeRepo(), &fakeLedger{})

	_, err := svc.ListExceptions(context.Background(), uuid.New())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound), "got %v", err)
}
