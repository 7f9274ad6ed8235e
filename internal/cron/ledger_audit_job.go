package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mikeeeeee-blip/himora-sub001/internal/ledger"
	"github.com/mikeeeeee-blip/himora-sub001/pkg/logger"
)

type ledgerAuditor interface {
	GetOverview(ctx context.Context, tenantID *uuid.UUID) (*ledger.Overview, error)
}

// LedgerAuditJobParams configure the ledger audit job.
type LedgerAuditJobParams struct {
	Logger *logger.Logger
	Ledger ledgerAuditor
}

// NewLedgerAuditJob builds a job that re-validates every posted journal entry.
// An unbalanced entry in storage means double entry was violated after the
// write path checks, so the job fails loudly instead of logging and moving on.
func NewLedgerAuditJob(params LedgerAuditJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	return &ledgerAuditJob{logg: params.Logger, ledger: params.Ledger}, nil
}

type ledgerAuditJob struct {
	logg   *logger.Logger
	ledger ledgerAuditor
}

func (j *ledgerAuditJob) Name() string { return "ledger-audit" }

func (j *ledgerAuditJob) Run(ctx context.Context) error {
	overview, err := j.ledger.GetOverview(ctx, nil)
	if err != nil {
		return fmt.Errorf("ledger audit: %w", err)
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"accounts":     overview.AccountCount,
		"entries":      overview.EntryCount,
		"posted":       overview.PostedCount,
		"all_balanced": overview.AllBalanced,
	})
	if !overview.AllBalanced {
		j.logg.Error(logCtx, "posted journal entries out of balance", nil)
		return fmt.Errorf("ledger audit: posted entries out of balance")
	}
	j.logg.Info(logCtx, "ledger audit complete")
	return nil
}
