package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mikeeeeee-blip/himora-sub001/pkg/db/models"
)

// Repository persists accounts, journal entries and their postings. WithTx
// rebinds the repository to a transaction so entry and postings commit or roll
// back together.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateAccount(ctx context.Context, account *models.Account) error
	FindAccountsByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]models.Account, error)
	FindAccountByCode(ctx context.Context, tenantID uuid.UUID, code string) (*models.Account, error)
	ListAccounts(ctx context.Context, tenantID uuid.UUID) ([]models.Account, error)

	CreateEntry(ctx context.Context, entry *models.JournalEntry) error
	GetEntry(ctx context.Context, tenantID, id uuid.UUID) (*models.JournalEntry, error)
	GetEntryByExternalID(ctx context.Context, externalID string) (*models.JournalEntry, error)
	ListEntries(ctx context.Context, tenantID uuid.UUID, limit int) ([]models.JournalEntry, error)
	ListPostedEntries(ctx context.Context, tenantID *uuid.UUID) ([]models.JournalEntry, error)
	CountEntries(ctx context.Context, tenantID *uuid.UUID) (int64, error)
	CountAccounts(ctx context.Context, tenantID *uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateAccount(ctx context.Context, account *models.Account) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *repository) FindAccountsByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]models.Account, error) {
	var accounts []models.Account
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Find(&accounts).Error
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *repository) FindAccountByCode(ctx context.Context, tenantID uuid.UUID, code string) (*models.Account, error) {
	var account models.Account
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND code = ?", tenantID, code).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *repository) ListAccounts(ctx context.Context, tenantID uuid.UUID) ([]models.Account, error) {
	var accounts []models.Account
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("code ASC").
		Find(&accounts).Error
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

// CreateEntry inserts the entry header together with its postings. gorm writes
// the associated Postings rows in the same statement batch; callers run this
// under WithTx when atomicity with other writes matters.
func (r *repository) CreateEntry(ctx context.Context, entry *models.JournalEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) GetEntry(ctx context.Context, tenantID, id uuid.UUID) (*models.JournalEntry, error) {
	var entry models.JournalEntry
	err := r.db.WithContext(ctx).
		Preload("Postings").
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (r *repository) GetEntryByExternalID(ctx context.Context, externalID string) (*models.JournalEntry, error) {
	var entry models.JournalEntry
	err := r.db.WithContext(ctx).
		Preload("Postings").
		Where("external_id = ?", externalID).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (r *repository) ListEntries(ctx context.Context, tenantID uuid.UUID, limit int) ([]models.JournalEntry, error) {
	query := r.db.WithContext(ctx).
		Preload("Postings").
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var entries []models.JournalEntry
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) ListPostedEntries(ctx context.Context, tenantID *uuid.UUID) ([]models.JournalEntry, error) {
	query := r.db.WithContext(ctx).
		Preload("Postings").
		Where("is_posted = ?", true)
	if tenantID != nil {
		query = query.Where("tenant_id = ?", *tenantID)
	}
	var entries []models.JournalEntry
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) CountEntries(ctx context.Context, tenantID *uuid.UUID) (int64, error) {
	query := r.db.WithContext(ctx).Model(&models.JournalEntry{})
	if tenantID != nil {
		query = query.Where("tenant_id = ?", *tenantID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) CountAccounts(ctx context.Context, tenantID *uuid.UUID) (int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Account{})
	if tenantID != nil {
		query = query.Where("tenant_id = ?", *tenantID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
