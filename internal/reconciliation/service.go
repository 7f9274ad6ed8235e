package reconciliation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mikeeeeee-blip/himora-sub001/pkg/db/models"
	"github.com/mikeeeeee-blip/himora-sub001/pkg/enums"
	pkgerrors "github.com/mikeeeeee-blip/himora-sub001/pkg/errors"
	"github.com/mikeeeeee-blip/himora-sub001/pkg/logger"
)

// amountEpsilon bounds acceptable drift between a statement amount and the
// posted entry's total before the pair is flagged as a mismatch.
var amountEpsilon = decimal.New(1, -6)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ledgerReader is the slice of the ledger the matcher needs: every posted
// entry for the tenant, postings included.
type ledgerReader interface {
	ListPostedEntries(ctx context.Context, tenantID *uuid.UUID) ([]models.JournalEntry, error)
}

// StatementRow is one line from an external gateway or bank statement.
type StatementRow struct {
	ExternalID string          `json:"externalId"`
	Amount     decimal.Decimal `json:"amount"`
}

// RunInput is a reconciliation request: a statement and the tenant whose
// ledger it should be checked against.
type RunInput struct {
	TenantID uuid.UUID      `json:"tenantId"`
	Source   string         `json:"source"`
	Rows     []StatementRow `json:"rows"`
}

// RunResult is the outcome of one reconciliation pass.
type RunResult struct {
	Run        models.ReconciliationRun         `json:"run"`
	Exceptions []models.ReconciliationException `json:"exceptions"`
}

// Service matches external statements against the posted ledger.
type Service interface {
	Run(ctx context.Context, input RunInput) (*RunResult, error)
	ListRuns(ctx context.Context, tenantID uuid.UUID, limit int) ([]models.ReconciliationRun, error)
	ListExceptions(ctx context.Context, runID uuid.UUID) ([]models.ReconciliationException, error)
	ResolveException(ctx context.Context, id uuid.UUID) (*models.ReconciliationException, error)
}

// ServiceParams configure the reconciliation service.
type ServiceParams struct {
	Logger *logger.Logger
	Repo   Repository
	Ledger ledgerReader
	DB     txRunner
	Now    func() time.Time
}

type service struct {
	logg   *logger.Logger
	repo   Repository
	ledger ledgerReader
	db     txRunner
	now    func() time.Time
}

// NewService builds the reconciliation service.
func NewService(params ServiceParams) (Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("reconciliation repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger reader required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &service{
		logg:   params.Logger,
		repo:   params.Repo,
		ledger: params.Ledger,
		db:     params.DB,
		now:    params.Now,
	}, nil
}

// Run compares statement rows to posted journal entries by external id.
// Three exception shapes come out of the pass: a statement row with no entry
// behind it, a matched pair whose amounts disagree, and a capture entry the
// statement never mentions. The run and its exceptions commit together.
func (s *service) Run(ctx context.Context, input RunInput) (*RunResult, error) {
	if input.TenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id is required")
	}
	if input.Source == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "statement source is required")
	}

	entries, err := s.ledger.ListPostedEntries(ctx, &input.TenantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load posted entries")
	}

	startedAt := s.now().UTC()
	run := models.ReconciliationRun{
		ID:        uuid.New(),
		TenantID:  input.TenantID,
		Source:    input.Source,
		StartedAt: startedAt,
	}

	matched, exceptions := match(run.ID, input.Rows, entries)
	run.MatchedCount = matched
	run.ExceptionCount = len(exceptions)
	completedAt := s.now().UTC()
	run.CompletedAt = &completedAt

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateRun(ctx, &run); err != nil {
			return err
		}
		return repo.CreateExceptions(ctx, exceptions)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist reconciliation run")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"run_id":     run.ID,
		"source":     input.Source,
		"matched":    run.MatchedCount,
		"exceptions": run.ExceptionCount,
	})
	s.logg.Info(logCtx, "reconciliation run complete")
	return &RunResult{Run: run, Exceptions: exceptions}, nil
}

// match is the pure core of a run.
func match(runID uuid.UUID, rows []StatementRow, entries []models.JournalEntry) (int, []models.ReconciliationException) {
	byExternalID := make(map[string]*models.JournalEntry, len(entries))
	for i := range entries {
		byExternalID[entries[i].ExternalID] = &entries[i]
	}

	matched := 0
	var exceptions []models.ReconciliationException
	seen := map[string]bool{}

	for _, row := range rows {
		seen[row.ExternalID] = true
		entry, ok := byExternalID[row.ExternalID]
		if !ok {
			exceptions = append(exceptions, models.ReconciliationException{
				ID:           uuid.New(),
				RunID:        runID,
				Type:         enums.ReconciliationExceptionOrphanedExternal,
				Status:       enums.ReconciliationExceptionStatusOpen,
				ExternalRef:  row.ExternalID,
				ActualAmount: row.Amount,
				Detail:       "statement row has no posted journal entry",
			})
			continue
		}

		expected := entryTotal(*entry)
		diff := expected.Sub(row.Amount).Abs()
		if diff.GreaterThanOrEqual(amountEpsilon) {
			exceptions = append(exceptions, models.ReconciliationException{
				ID:             uuid.New(),
				RunID:          runID,
				Type:           enums.ReconciliationExceptionAmountMismatch,
				Status:         enums.ReconciliationExceptionStatusOpen,
				ExternalRef:    row.ExternalID,
				EntryID:        &entry.ID,
				ExpectedAmount: expected,
				ActualAmount:   row.Amount,
				Detail:         fmt.Sprintf("amounts differ by %s", diff.String()),
			})
			continue
		}
		matched++
	}

	// Capture entries the statement never mentioned. Only captures are
	// expected to appear on gateway statements; adjustments and reversals
	// are internal.
	for i := range entries {
		entry := entries[i]
		if entry.Type != enums.JournalEntryTypeCapture || seen[entry.ExternalID] {
			continue
		}
		exceptions = append(exceptions, models.ReconciliationException{
			ID:             uuid.New(),
			RunID:          runID,
			Type:           enums.ReconciliationExceptionMissingStatement,
			Status:         enums.ReconciliationExceptionStatusOpen,
			ExternalRef:    entry.ExternalID,
			EntryID:        &entry.ID,
			ExpectedAmount: entryTotal(entry),
			Detail:         "posted capture entry is absent from the statement",
		})
	}
	return matched, exceptions
}

// entryTotal is the entry's debit total, which for a balanced entry equals the
// gross amount moved.
func entryTotal(entry models.JournalEntry) decimal.Decimal {
	var total decimal.Decimal
	for _, posting := range entry.Postings {
		if posting.Side == enums.PostingSideDebit {
			total = total.Add(posting.Amount)
		}
	}
	return total
}

func (s *service) ListRuns(ctx context.Context, tenantID uuid.UUID, limit int) ([]models.ReconciliationRun, error) {
	runs, err := s.repo.ListRuns(ctx, tenantID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reconciliation runs")
	}
	return runs, nil
}

func (s *service) ListExceptions(ctx context.Context, runID uuid.UUID) ([]models.ReconciliationException, error) {
	run, err := s.repo.GetRun(ctx, runID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reconciliation run")
	}
	if run == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("reconciliation run %s not found", runID))
	}
	exceptions, err := s.repo.ListExceptions(ctx, runID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reconciliation exceptions")
	}
	return exceptions, nil
}

func (s *service) ResolveException(ctx context.Context, id uuid.UUID) (*models.ReconciliationException, error) {
	exception, err := s.repo.GetException(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reconciliation exception")
	}
	if exception == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("reconciliation exception %s not found", id))
	}

	ok, err := s.repo.MarkExceptionResolved(ctx, id, s.now().UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve reconciliation exception")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("reconciliation exception %s is already resolved", id))
	}
	return s.repo.GetException(ctx, id)
}
