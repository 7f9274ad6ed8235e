package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mikeeeeee-blip/himora-sub001/pkg/db"
	"github.com/mikeeeeee-blip/himora-sub001/pkg/db/models"
	"github.com/mikeeeeee-blip/himora-sub001/pkg/enums"
	pkgerrors "github.com/mikeeeeee-blip/himora-sub001/pkg/errors"
)

// balanceEpsilon bounds the acceptable |sum(debits) - sum(credits)| drift for
// a balanced entry. Amounts are stored as numeric(18,6), so anything under a
// millionth is representation noise, not money.
var balanceEpsilon = decimal.New(1, -6)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// PostingInput is one requested debit or credit line.
type PostingInput struct {
	AccountID uuid.UUID       `json:"accountId"`
	Side      string          `json:"side"`
	Amount    decimal.Decimal `json:"amount"`
	Ref       *string         `json:"ref,omitempty"`
}

// PostEntryInput is a request to post one journal entry.
type PostEntryInput struct {
	TenantID   uuid.UUID      `json:"tenantId"`
	ExternalID string         `json:"externalId"`
	Type       string         `json:"type"`
	Reference  *string        `json:"reference,omitempty"`
	Postings   []PostingInput `json:"postings"`
}

// EntryView is a journal entry with its totals recomputed from the stored
// postings rather than trusted from any cached figure.
type EntryView struct {
	Entry    models.JournalEntry `json:"entry"`
	TotalDr  decimal.Decimal     `json:"totalDr"`
	TotalCr  decimal.Decimal     `json:"totalCr"`
	Balanced bool                `json:"balanced"`
}

// Overview summarizes the ledger for background auditing.
type Overview struct {
	AccountCount int64 `json:"accountCount"`
	EntryCount   int64 `json:"entryCount"`
	PostedCount  int64 `json:"postedCount"`
	AllBalanced  bool  `json:"allBalanced"`
}

// CreateAccountInput is a chart-of-accounts row to create.
type CreateAccountInput struct {
	TenantID uuid.UUID `json:"tenantId"`
	Code     string    `json:"code"`
	Name     string    `json:"name"`
	Type     string    `json:"type"`
	Currency string    `json:"currency"`
}

// Service is the double-entry ledger. Posted entries are immutable; every
// correction is a new entry referencing the one it amends.
type Service interface {
	PostJournalEntry(ctx context.Context, input PostEntryInput) (*models.JournalEntry, error)
	PostJournalEntryInTx(ctx context.Context, tx *gorm.DB, input PostEntryInput) (*models.JournalEntry, error)
	GetJournal(ctx context.Context, tenantID uuid.UUID, limit int) ([]models.JournalEntry, error)
	GetJournalByID(ctx context.Context, tenantID, id uuid.UUID) (*EntryView, error)
	GetOverview(ctx context.Context, tenantID *uuid.UUID) (*Overview, error)
	UpdateJournalEntry(ctx context.Context, tenantID, id uuid.UUID) error
	DeleteJournalEntry(ctx context.Context, tenantID, id uuid.UUID) error
	CreateAccount(ctx context.Context, input CreateAccountInput) (*models.Account, error)
	ListAccounts(ctx context.Context, tenantID uuid.UUID) ([]models.Account, error)
}

// ServiceParams configure the ledger service.
type ServiceParams struct {
	Repo Repository
	DB   txRunner
	Now  func() time.Time
}

type service struct {
	repo Repository
	db   txRunner
	now  func() time.Time
}

// NewService builds the ledger service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &service{repo: params.Repo, db: params.DB, now: params.Now}, nil
}

// PostJournalEntry validates and posts one entry atomically. Validation is
// fail-fast in a fixed order: shape, then line validity, then account
// ownership, then balance, so a request with several problems always reports
// the same first one.
func (s *service) PostJournalEntry(ctx context.Context, input PostEntryInput) (*models.JournalEntry, error) {
	var entry *models.JournalEntry
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		posted, err := s.PostJournalEntryInTx(ctx, tx, input)
		if err != nil {
			return err
		}
		entry = posted
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// PostJournalEntryInTx posts an entry inside a caller-owned transaction, so
// settlement can flip a payment and record its journal entry as one commit.
func (s *service) PostJournalEntryInTx(ctx context.Context, tx *gorm.DB, input PostEntryInput) (*models.JournalEntry, error) {
	entry, postings, err := s.buildEntry(input)
	if err != nil {
		return nil, err
	}

	repo := s.repo.WithTx(tx)
	if err := s.checkAccountOwnership(ctx, repo, input.TenantID, postings); err != nil {
		return nil, err
	}
	if err := checkBalance(postings); err != nil {
		return nil, err
	}

	entry.Postings = postings
	if err := repo.CreateEntry(ctx, entry); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("journal entry %s already posted", input.ExternalID))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist journal entry")
	}
	return entry, nil
}

func (s *service) buildEntry(input PostEntryInput) (*models.JournalEntry, []models.Posting, error) {
	if input.TenantID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id is required")
	}
	if input.ExternalID == "" {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "external id is required")
	}
	entryType, err := enums.ParseJournalEntryType(input.Type)
	if err != nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}
	if len(input.Postings) == 0 {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "journal entry requires at least one posting")
	}

	postings := make([]models.Posting, 0, len(input.Postings))
	for i, line := range input.Postings {
		side, err := enums.ParsePostingSide(line.Side)
		if err != nil {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("posting %d: %s", i, err.Error()))
		}
		if line.AccountID == uuid.Nil {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("posting %d: account id is required", i))
		}
		if line.Amount.Sign() < 0 {
			return nil, nil, pkgerrors.New(pkgerrors.CodeInvalidAmount, fmt.Sprintf("posting %d: amount must be non-negative", i))
		}
		postings = append(postings, models.Posting{
			ID:        uuid.New(),
			AccountID: line.AccountID,
			Side:      side,
			Amount:    line.Amount,
			Ref:       line.Ref,
		})
	}

	postedAt := s.now().UTC()
	return &models.JournalEntry{
		ID:         uuid.New(),
		ExternalID: input.ExternalID,
		TenantID:   input.TenantID,
		Type:       entryType,
		Reference:  input.Reference,
		IsPosted:   true,
		PostedAt:   &postedAt,
	}, postings, nil
}

// checkAccountOwnership verifies every posted account exists under the
// entry's tenant. A posting against another tenant's account (or a missing
// one) is rejected before any balance math.
func (s *service) checkAccountOwnership(ctx context.Context, repo Repository, tenantID uuid.UUID, postings []models.Posting) error {
	ids := make([]uuid.UUID, 0, len(postings))
	seen := map[uuid.UUID]bool{}
	for _, posting := range postings {
		if !seen[posting.AccountID] {
			seen[posting.AccountID] = true
			ids = append(ids, posting.AccountID)
		}
	}

	accounts, err := repo.FindAccountsByIDs(ctx, tenantID, ids)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load posted accounts")
	}
	owned := map[uuid.UUID]bool{}
	for _, account := range accounts {
		owned[account.ID] = true
	}
	for _, id := range ids {
		if !owned[id] {
			return pkgerrors.New(pkgerrors.CodeCrossTenantAccount, fmt.Sprintf("account %s does not belong to the entry tenant", id)).
				WithDetails(map[string]any{"accountId": id.String()})
		}
	}
	return nil
}

func checkBalance(postings []models.Posting) error {
	totalDr, totalCr := sumPostings(postings)
	if totalDr.Sub(totalCr).Abs().GreaterThanOrEqual(balanceEpsilon) {
		return pkgerrors.New(pkgerrors.CodeUnbalancedJournal, "debits and credits do not balance").
			WithDetails(map[string]any{
				"totalDr": totalDr.String(),
				"totalCr": totalCr.String(),
			})
	}
	return nil
}

func sumPostings(postings []models.Posting) (totalDr, totalCr decimal.Decimal) {
	for _, posting := range postings {
		if posting.Side == enums.PostingSideDebit {
			totalDr = totalDr.Add(posting.Amount)
		} else {
			totalCr = totalCr.Add(posting.Amount)
		}
	}
	return totalDr, totalCr
}

func (s *service) GetJournal(ctx context.Context, tenantID uuid.UUID, limit int) ([]models.JournalEntry, error) {
	entries, err := s.repo.ListEntries(ctx, tenantID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list journal entries")
	}
	return entries, nil
}

func (s *service) GetJournalByID(ctx context.Context, tenantID, id uuid.UUID) (*EntryView, error) {
	entry, err := s.repo.GetEntry(ctx, tenantID, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load journal entry")
	}
	if entry == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("journal entry %s not found", id))
	}

	totalDr, totalCr := sumPostings(entry.Postings)
	return &EntryView{
		Entry:    *entry,
		TotalDr:  totalDr,
		TotalCr:  totalCr,
		Balanced: totalDr.Sub(totalCr).Abs().LessThan(balanceEpsilon),
	}, nil
}

// GetOverview recomputes every posted entry's balance from its postings. A
// false AllBalanced means stored data violates double entry and needs manual
// investigation.
func (s *service) GetOverview(ctx context.Context, tenantID *uuid.UUID) (*Overview, error) {
	accountCount, err := s.repo.CountAccounts(ctx, tenantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count accounts")
	}
	entryCount, err := s.repo.CountEntries(ctx, tenantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count journal entries")
	}
	posted, err := s.repo.ListPostedEntries(ctx, tenantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list posted entries")
	}

	allBalanced := true
	for _, entry := range posted {
		totalDr, totalCr := sumPostings(entry.Postings)
		if totalDr.Sub(totalCr).Abs().GreaterThanOrEqual(balanceEpsilon) {
			allBalanced = false
			break
		}
	}
	return &Overview{
		AccountCount: accountCount,
		EntryCount:   entryCount,
		PostedCount:  int64(len(posted)),
		AllBalanced:  allBalanced,
	}, nil
}

// UpdateJournalEntry always refuses: posted entries are append-only history.
func (s *service) UpdateJournalEntry(ctx context.Context, tenantID, id uuid.UUID) error {
	return s.refuseMutation(ctx, tenantID, id, "updated")
}

// DeleteJournalEntry always refuses for posted entries, for the same reason.
func (s *service) DeleteJournalEntry(ctx context.Context, tenantID, id uuid.UUID) error {
	return s.refuseMutation(ctx, tenantID, id, "deleted")
}

func (s *service) refuseMutation(ctx context.Context, tenantID, id uuid.UUID, verb string) error {
	entry, err := s.repo.GetEntry(ctx, tenantID, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load journal entry")
	}
	if entry == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("journal entry %s not found", id))
	}
	return pkgerrors.New(pkgerrors.CodeImmutableEntry,
		fmt.Sprintf("posted journal entries cannot be %s; post an adjustment or dispute_reversal entry referencing %s", verb, entry.ExternalID))
}

func (s *service) CreateAccount(ctx context.Context, input CreateAccountInput) (*models.Account, error) {
	if input.TenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id is required")
	}
	if input.Code == "" || input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account code and name are required")
	}
	accountType, err := enums.ParseAccountType(input.Type)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}

	currency := input.Currency
	if currency == "" {
		currency = "INR"
	}
	account := &models.Account{
		ID:       uuid.New(),
		TenantID: input.TenantID,
		Code:     input.Code,
		Name:     input.Name,
		Type:     accountType,
		Currency: currency,
	}
	if err := s.repo.CreateAccount(ctx, account); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("account %s already exists for tenant", input.Code))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist account")
	}
	return account, nil
}

func (s *service) ListAccounts(ctx context.Context, tenantID uuid.UUID) ([]models.Account, error) {
	accounts, err := s.repo.ListAccounts(ctx, tenantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list accounts")
	}
	return accounts, nil
}
