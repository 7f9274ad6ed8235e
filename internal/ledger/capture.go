package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mikeeeeee-blip/himora-sub001/pkg/db/models"
	"github.com/mikeeeeee-blip/himora-sub001/pkg/enums"
	pkgerrors "github.com/mikeeeeee-blip/himora-sub001/pkg/errors"
)

// Account codes the capture posting writes against. The chart of accounts for
// the platform tenant must be seeded with these before the sweeper runs.
const (
	AccountCodeGatewayReceivable = "gateway_receivable"
	AccountCodePaymentRevenue    = "payment_revenue"
	AccountCodeCommissionIncome  = "commission_income"
)

// CapturePoster turns a settled payment into its capture journal entry. It is
// handed to the settlement sweeper and runs inside the sweeper's transaction.
type CapturePoster struct {
	svc      Service
	repo     Repository
	tenantID uuid.UUID
}

// NewCapturePoster builds a capture poster for the given platform tenant.
func NewCapturePoster(svc Service, repo Repository, tenantID uuid.UUID) (*CapturePoster, error) {
	if svc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if tenantID == uuid.Nil {
		return nil, fmt.Errorf("tenant id required")
	}
	return &CapturePoster{svc: svc, repo: repo, tenantID: tenantID}, nil
}

// PostCaptureInTx records the double-entry for one settled capture: the gross
// amount is owed by the gateway, split into merchant-payable revenue and the
// platform's commission income.
func (p *CapturePoster) PostCaptureInTx(ctx context.Context, tx *gorm.DB, record models.PaymentRecord) error {
	repo := p.repo.WithTx(tx)

	receivable, err := p.account(ctx, repo, AccountCodeGatewayReceivable)
	if err != nil {
		return err
	}
	revenue, err := p.account(ctx, repo, AccountCodePaymentRevenue)
	if err != nil {
		return err
	}
	income, err := p.account(ctx, repo, AccountCodeCommissionIncome)
	if err != nil {
		return err
	}

	ref := record.Reference
	postings := []PostingInput{
		{AccountID: receivable.ID, Side: enums.PostingSideDebit.String(), Amount: record.Amount, Ref: &ref},
		{AccountID: revenue.ID, Side: enums.PostingSideCredit.String(), Amount: record.NetAmount, Ref: &ref},
	}
	if record.Commission.Sign() > 0 {
		postings = append(postings, PostingInput{
			AccountID: income.ID,
			Side:      enums.PostingSideCredit.String(),
			Amount:    record.Commission,
			Ref:       &ref,
		})
	}

	_, err = p.svc.PostJournalEntryInTx(ctx, tx, PostEntryInput{
		TenantID:   p.tenantID,
		ExternalID: "capture-" + record.Reference,
		Type:       string(enums.JournalEntryTypeCapture),
		Reference:  &ref,
		Postings:   postings,
	})
	if pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		// The entry exists from an earlier settle attempt that failed after
		// posting. Settlement stays idempotent, so treat it as done.
		return nil
	}
	return err
}

func (p *CapturePoster) account(ctx context.Context, repo Repository, code string) (*models.Account, error) {
	account, err := repo.FindAccountByCode(ctx, p.tenantID, code)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ledger account")
	}
	if account == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("ledger account %s is not seeded for the platform tenant", code))
	}
	return account, nil
}
