package payments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mikeeeeee-blip/himora-sub001/pkg/db/models"
	"github.com/mikeeeeee-blip/himora-sub001/pkg/enums"
)

// Repository persists captured payment records.
type Repository interface {
	Create(ctx context.Context, record *models.PaymentRecord) error
	FindByReference(ctx context.Context, reference string) (*models.PaymentRecord, error)
	List(ctx context.Context, status *enums.SettlementStatus, limit int) ([]models.PaymentRecord, error)
	FindUnsettled(ctx context.Context) ([]models.PaymentRecord, error)
	UpdateDerived(ctx context.Context, id uuid.UUID, updates map[string]any) error
	MarkSettled(ctx context.Context, tx *gorm.DB, id uuid.UUID, settledAt time.Time) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payment repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, record *models.PaymentRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) FindByReference(ctx context.Context, reference string) (*models.PaymentRecord, error) {
	var record models.PaymentRecord
	err := r.db.WithContext(ctx).
		Where("reference = ?", reference).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *repository) List(ctx context.Context, status *enums.SettlementStatus, limit int) ([]models.PaymentRecord, error) {
	query := r.db.WithContext(ctx).Order("paid_at DESC")
	if status != nil {
		query = query.Where("settlement_status = ?", *status)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	var records []models.PaymentRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repository) FindUnsettled(ctx context.Context) ([]models.PaymentRecord, error) {
	var records []models.PaymentRecord
	err := r.db.WithContext(ctx).
		Where("settlement_status = ?", enums.SettlementStatusUnsettled).
		Order("paid_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repository) UpdateDerived(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.PaymentRecord{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// MarkSettled flips one record from unsettled to settled. The status filter in
// the WHERE clause makes the transition exclusive: a record already settled by
// a concurrent sweep matches zero rows and the caller is told it lost the race.
func (r *repository) MarkSettled(ctx context.Context, tx *gorm.DB, id uuid.UUID, settledAt time.Time) (bool, error) {
	db := r.db
	if tx != nil {
		db = tx
	}
	result := db.WithContext(ctx).
		Model(&models.PaymentRecord{}).
		Where("id = ? AND settlement_status = ?", id, enums.SettlementStatusUnsettled).
		Updates(map[string]any{
			"settlement_status": enums.SettlementStatusSettled,
			"settlement_date":   settledAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
