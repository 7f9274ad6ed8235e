package reconciliation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mikeeeeee-blip/himora-sub001/pkg/db/models"
	"github.com/mikeeeeee-blip/himora-sub001/pkg/enums"
)

// Repository persists reconciliation runs and their exceptions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateRun(ctx context.Context, run *models.ReconciliationRun) error
	CreateExceptions(ctx context.Context, exceptions []models.ReconciliationException) error
	GetRun(ctx context.Context, id uuid.UUID) (*models.ReconciliationRun, error)
	ListRuns(ctx context.Context, tenantID uuid.UUID, limit int) ([]models.ReconciliationRun, error)
	ListExceptions(ctx context.Context, runID uuid.UUID) ([]models.ReconciliationException, error)
	GetException(ctx context.Context, id uuid.UUID) (*models.ReconciliationException, error)
	MarkExceptionResolved(ctx context.Context, id uuid.UUID, resolvedAt time.Time) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a reconciliation repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateRun(ctx context.Context, run *models.ReconciliationRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *repository) CreateExceptions(ctx context.Context, exceptions []models.ReconciliationException) error {
	if len(exceptions) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&exceptions).Error
}

func (r *repository) GetRun(ctx context.Context, id uuid.UUID) (*models.ReconciliationRun, error) {
	var run models.ReconciliationRun
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

func (r *repository) ListRuns(ctx context.Context, tenantID uuid.UUID, limit int) ([]models.ReconciliationRun, error) {
	query := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("started_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var runs []models.ReconciliationRun
	if err := query.Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

func (r *repository) ListExceptions(ctx context.Context, runID uuid.UUID) ([]models.ReconciliationException, error) {
	var exceptions []models.ReconciliationException
	err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("created_at ASC").
		Find(&exceptions).Error
	if err != nil {
		return nil, err
	}
	return exceptions, nil
}

func (r *repository) GetException(ctx context.Context, id uuid.UUID) (*models.ReconciliationException, error) {
	var exception models.ReconciliationException
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&exception).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &exception, nil
}

// MarkExceptionResolved flips an open exception to resolved. The status filter
// keeps resolution idempotent under concurrent triage.
func (r *repository) MarkExceptionResolved(ctx context.Context, id uuid.UUID, resolvedAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ReconciliationException{}).
		Where("id = ? AND status = ?", id, enums.ReconciliationExceptionStatusOpen).
		Updates(map[string]any{
			"status":      enums.ReconciliationExceptionStatusResolved,
			"resolved_at": resolvedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
