package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mikeeeeee-blip/himora-sub001/pkg/db/models"
	"github.com/mikeeeeee-blip/himora-sub001/pkg/enums"
	pkgerrors "github.com/mikeeeeee-blip/himora-sub001/pkg/errors"
)

func setupLedgerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	accounts := `
CREATE TABLE IF NOT EXISTS accounts (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  code TEXT NOT NULL,
  name TEXT NOT NULL,
  type TEXT NOT NULL,
  currency TEXT NOT NULL DEFAULT 'INR',
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (tenant_id, code)
);`
	entries := `
CREATE TABLE IF NOT EXISTS journal_entries (
  id TEXT PRIMARY KEY,
  external_id TEXT NOT NULL UNIQUE,
  tenant_id TEXT NOT NULL,
  type TEXT NOT NULL,
  reference TEXT,
  is_posted INTEGER NOT NULL DEFAULT 0,
  posted_at DATETIME,
  created_at DATETIME
);`
	postings := `
CREATE TABLE IF NOT EXISTS postings (
  id TEXT PRIMARY KEY,
  entry_id TEXT NOT NULL,
  account_id TEXT NOT NULL,
  side TEXT NOT NULL,
  amount NUMERIC NOT NULL,
  ref TEXT,
  created_at DATETIME
);`
	for _, ddl := range []string{accounts, entries, postings} {
		require.NoError(t, conn.Exec(ddl).Error)
	}
	return conn
}

type testTxRunner struct {
	db *gorm.DB
}

func (r *testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

var fixedNow = time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)

func setupLedger(t *testing.T) (Service, Repository, *gorm.DB) {
	t.Helper()
	conn := setupLedgerTestDB(t)
	repo := NewRepository(conn)
	svc, err := NewService(ServiceParams{
		Repo: repo,
		DB:   &testTxRunner{db: conn},
		Now:  func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return svc, repo, conn
}

func seedAccount(t *testing.T, svc Service, tenantID uuid.UUID, code string, accountType enums.AccountType) *models.Account {
	t.Helper()
	account, err := svc.CreateAccount(context.Background(), CreateAccountInput{
		TenantID: tenantID,
		Code:     code,
		Name:     code,
		Type:     string(accountType),
	})
	require.NoError(t, err)
	return account
}

func TestPostJournalEntryBalanced(t *testing.T) {
	svc, _, _ := setupLedger(t)
	tenant := uuid.New()
	cash := seedAccount(t, svc, tenant, "cash", enums.AccountTypeAsset)
	revenue := seedAccount(t, svc, tenant, "revenue", enums.AccountTypeRevenue)

	entry, err := svc.PostJournalEntry(context.Background(), PostEntryInput{
		TenantID:   tenant,
		ExternalID: "entry-1",
		Type:       "other",
		Postings: []PostingInput{
			{AccountID: cash.ID, Side: "dr", Amount: decimal.NewFromInt(100)},
			{AccountID: revenue.ID, Side: "cr", Amount: decimal.NewFromInt(100)},
		},
	})
	require.NoError(t, err)
	assert.True(t, entry.IsPosted)
	require.NotNil(t, entry.PostedAt)
	assert.Equal(t, fixedNow, entry.PostedAt.UTC())

	view, err := svc.GetJournalByID(context.Background(), tenant, entry.ID)
	require.NoError(t, err)
	assert.True(t, view.Balanced)
	assert.Equal(t, "100", view.TotalDr.String())
	assert.Equal(t, "100", view.TotalCr.String())
	assert.Len(t, view.Entry.Postings, 2)
}

func TestPostJournalEntryUnbalanced(t *testing.T) {
	svc, _, _ := setupLedger(t)
	tenant := uuid.New()
	cash := seedAccount(t, svc, tenant, "cash", enums.AccountTypeAsset)
	revenue := seedAccount(t, svc, tenant, "revenue", enums.AccountTypeRevenue)

	_, err := svc.PostJournalEntry(context.Background(), PostEntryInput{
		TenantID:   tenant,
		ExternalID: "entry-skew",
		Type:       "other",
		Postings: []PostingInput{
			{AccountID: cash.ID, Side: "dr", Amount: decimal.NewFromInt(100)},
			{AccountID: revenue.ID, Side: "cr", Amount: decimal.RequireFromString("99.99")},
		},
	})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUnbalancedJournal), "got %v", err)

	details, ok := pkgerrors.As(err).Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "100", details["totalDr"])
	assert.Equal(t, "99.99", details["totalCr"])

	// Nothing half-written.
	entries, err := svc.GetJournal(context.Background(), tenant, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPostJournalEntryToleratesSubEpsilonDrift(t *testing.T) {
	svc, _, _ := setupLedger(t)
	tenant := uuid.New()
	cash := seedAccount(t, svc, tenant, "cash", enums.AccountTypeAsset)
	revenue := seedAccount(t, svc, tenant, "revenue", enums.AccountTypeRevenue)

	_, err := svc.PostJournalEntry(context.Background(), PostEntryInput{
		TenantID:   tenant,
		ExternalID: "entry-drift",
		Type:       "other",
		Postings: []PostingInput{
			{AccountID: cash.ID, Side: "dr", Amount: decimal.RequireFromString("100.0000004")},
			{AccountID: revenue.ID, Side: "cr", Amount: decimal.NewFromInt(100)},
		},
	})
	require.NoError(t, err)
}

func TestPostJournalEntryCrossTenantAccount(t *testing.T) {
	svc, _, _ := setupLedger(t)
	tenantA := uuid.New()
	tenantB := uuid.New()
	cash := seedAccount(t, svc, tenantA, "cash", enums.AccountTypeAsset)
	foreign := seedAccount(t, svc, tenantB, "revenue", enums.AccountTypeRevenue)

	_, err := svc.PostJournalEntry(context.Background(), PostEntryInput{
		TenantID:   tenantA,
		ExternalID: "entry-cross",
		Type:       "other",
		Postings: []PostingInput{
			{AccountID: cash.ID, Side: "dr", Amount: decimal.NewFromInt(50)},
			{AccountID: foreign.ID, Side: "cr", Amount: decimal.NewFromInt(50)},
		},
	})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeCrossTenantAccount), "got %v", err)
}

func TestPostJournalEntryValidation(t *testing.T) {
	svc, _, _ := setupLedger(t)
	tenant := uuid.New()
	cash := seedAccount(t, svc, tenant, "cash", enums.AccountTypeAsset)

	cases := []struct {
		name  string
		input PostEntryInput
		code  pkgerrors.Code
	}{
		{
			name:  "no postings",
			input: PostEntryInput{TenantID: tenant, ExternalID: "e1", Type: "other"},
			code:  pkgerrors.CodeValidation,
		},
		{
			name: "bad side",
			input: PostEntryInput{TenantID: tenant, ExternalID: "e2", Type: "other", Postings: []PostingInput{
				{AccountID: cash.ID, Side: "sideways", Amount: decimal.NewFromInt(1)},
			}},
			code: pkgerrors.CodeValidation,
		},
		{
			name: "negative amount",
			input: PostEntryInput{TenantID: tenant, ExternalID: "e3", Type: "other", Postings: []PostingInput{
				{AccountID: cash.ID, Side: "dr", Amount: decimal.NewFromInt(-5)},
			}},
			code: pkgerrors.CodeInvalidAmount,
		},
		{
			name: "bad type",
			input: PostEntryInput{TenantID: tenant, ExternalID: "e4", Type: "weird", Postings: []PostingInput{
				{AccountID: cash.ID, Side: "dr", Amount: decimal.NewFromInt(1)},
			}},
			code: pkgerrors.CodeValidation,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.PostJournalEntry(context.Background(), tc.input)
			assert.True(t, pkgerrors.HasCode(err, tc.code), "got %v", err)
		})
	}
}

func TestPostJournalEntryDuplicateExternalID(t *testing.T) {
	svc, _, _ := setupLedger(t)
	tenant := uuid.New()
	cash := seedAccount(t, svc, tenant, "cash", enums.AccountTypeAsset)
	revenue := seedAccount(t, svc, tenant, "revenue", enums.AccountTypeRevenue)

	input := PostEntryInput{
		TenantID:   tenant,
		ExternalID: "entry-dup",
		Type:       "other",
		Postings: []PostingInput{
			{AccountID: cash.ID, Side: "dr", Amount: decimal.NewFromInt(10)},
			{AccountID: revenue.ID, Side: "cr", Amount: decimal.NewFromInt(10)},
		},
	}
	_, err := svc.PostJournalEntry(context.Background(), input)
	require.NoError(t, err)
	_, err = svc.PostJournalEntry(context.Background(), input)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict), "got %v", err)
}

func TestPostedEntriesAreImmutable(t *testing.T) {
	svc, _, _ := setupLedger(t)
	tenant := uuid.New()
	cash := seedAccount(t, svc, tenant, "cash", enums.AccountTypeAsset)
	revenue := seedAccount(t, svc, tenant, "revenue", enums.AccountTypeRevenue)

	entry, err := svc.PostJournalEntry(context.Background(), PostEntryInput{
		TenantID:   tenant,
		ExternalID: "entry-frozen",
		Type:       "capture",
		Postings: []PostingInput{
			{AccountID: cash.ID, Side: "dr", Amount: decimal.NewFromInt(10)},
			{AccountID: revenue.ID, Side: "cr", Amount: decimal.NewFromInt(10)},
		},
	})
	require.NoError(t, err)

	err = svc.UpdateJournalEntry(context.Background(), tenant, entry.ID)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeImmutableEntry), "got %v", err)

	err = svc.DeleteJournalEntry(context.Background(), tenant, entry.ID)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeImmutableEntry), "got %v", err)

	err = svc.DeleteJournalEntry(context.Background(), tenant, uuid.New())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound), "got %v", err)
}

func TestCaptureAndPartialRefundLifecycle(t *testing.T) {
	svc, repo, conn := setupLedger(t)
	tenant := uuid.New()
	receivable := seedAccount(t, svc, tenant, AccountCodeGatewayReceivable, enums.AccountTypeAsset)
	revenue := seedAccount(t, svc, tenant, AccountCodePaymentRevenue, enums.AccountTypeLiability)
	income := seedAccount(t, svc, tenant, AccountCodeCommissionIncome, enums.AccountTypeRevenue)

	poster, err := NewCapturePoster(svc, repo, tenant)
	require.NoError(t, err)

	record := models.PaymentRecord{
		Gateway:    "razorpay",
		Reference:  "pay_e2e",
		Direction:  enums.PaymentDirectionPayin,
		Amount:     decimal.NewFromInt(1000),
		Commission: decimal.RequireFromString("44.84"),
		NetAmount:  decimal.RequireFromString("955.16"),
	}
	err = conn.Transaction(func(tx *gorm.DB) error {
		return poster.PostCaptureInTx(context.Background(), tx, record)
	})
	require.NoError(t, err)

	capture, err := repo.GetEntryByExternalID(context.Background(), "capture-pay_e2e")
	require.NoError(t, err)
	require.NotNil(t, capture)
	assert.Equal(t, enums.JournalEntryTypeCapture, capture.Type)
	require.Len(t, capture.Postings, 3)

	view, err := svc.GetJournalByID(context.Background(), tenant, capture.ID)
	require.NoError(t, err)
	assert.True(t, view.Balanced)
	assert.Equal(t, "1000", view.TotalDr.String())

	// Posting the same capture again is a no-op, not a failure.
	err = conn.Transaction(func(tx *gorm.DB) error {
		return poster.PostCaptureInTx(context.Background(), tx, record)
	})
	require.NoError(t, err)

	// A partial refund is a fresh adjustment entry referencing the capture,
	// never an edit of it.
	captureExternal := capture.ExternalID
	refund, err := svc.PostJournalEntry(context.Background(), PostEntryInput{
		TenantID:   tenant,
		ExternalID: "refund-pay_e2e-1",
		Type:       "partial_refund",
		Reference:  &captureExternal,
		Postings: []PostingInput{
			{AccountID: revenue.ID, Side: "dr", Amount: decimal.RequireFromString("382.06")},
			{AccountID: income.ID, Side: "dr", Amount: decimal.RequireFromString("17.94")},
			{AccountID: receivable.ID, Side: "cr", Amount: decimal.NewFromInt(400)},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, refund.Reference)
	assert.Equal(t, "capture-pay_e2e", *refund.Reference)

	overview, err := svc.GetOverview(context.Background(), &tenant)
	require.NoError(t, err)
	assert.Equal(t, int64(3), overview.AccountCount)
	assert.Equal(t, int64(2), overview.EntryCount)
	assert.Equal(t, int64(2), overview.PostedCount)
	assert.True(t, overview.AllBalanced)
}

func TestCapturePosterRequiresSeededAccounts(t *testing.T) {
	svc, repo, conn := setupLedger(t)
	tenant := uuid.New()

	poster, err := NewCapturePoster(svc, repo, tenant)
	require.NoError(t, err)

	err = conn.Transaction(func(tx *gorm.DB) error {
		return poster.PostCaptureInTx(context.Background(), tx, models.PaymentRecord{
			Reference: "pay_unseeded",
			Amount:    decimal.NewFromInt(10),
			NetAmount: decimal.NewFromInt(10),
		})
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound), "got %v", err)
}

func TestGetJournalNewestFirst(t *testing.T) {
	svc, _, _ := setupLedger(t)
	tenant := uuid.New()
	cash := seedAccount(t, svc, tenant, "cash", enums.AccountTypeAsset)
	revenue := seedAccount(t, svc, tenant, "revenue", enums.AccountTypeRevenue)

	for _, externalID := range []string{"entry-a", "entry-b", "entry-c"} {
		_, err := svc.PostJournalEntry(context.Background(), PostEntryInput{
			TenantID:   tenant,
			ExternalID: externalID,
			Type:       "other",
			Postings: []PostingInput{
				{AccountID: cash.ID, Side: "dr", Amount: decimal.NewFromInt(1)},
				{AccountID: revenue.ID, Side: "cr", Amount: decimal.NewFromInt(1)},
			},
		})
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
	}

	entries, err := svc.GetJournal(context.Background(), tenant, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "entry-c", entries[0].ExternalID)
	assert.Equal(t, "entry-b", entries[1].ExternalID)
}
