package rotation

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/mikeeeeee-blip/himora-sub001/pkg/db/models"
)

// Repository manages rotation state and gateway routing configuration.
type Repository interface {
	ListGateways(ctx context.Context) ([]models.GatewayConfig, error)
	ListEnabledGateways(ctx context.Context) ([]models.GatewayConfig, error)
	SaveGateway(ctx context.Context, gateway *models.GatewayConfig) error
	GetState(ctx context.Context) (*models.RotationState, error)
	CreateState(ctx context.Context, state *models.RotationState) error
	CompareAndSwapState(ctx context.Context, expectedVersion int64, activeGateway string, transactionCount int) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a rotation repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ListGateways(ctx context.Context) ([]models.GatewayConfig, error) {
	var gateways []models.GatewayConfig
	if err := r.db.WithContext(ctx).
		Order("name ASC").
		Find(&gateways).Error; err != nil {
		return nil, err
	}
	return gateways, nil
}

func (r *repository) ListEnabledGateways(ctx context.Context) ([]models.GatewayConfig, error) {
	var gateways []models.GatewayConfig
	if err := r.db.WithContext(ctx).
		Where("enabled = ?", true).
		Order("name ASC").
		Find(&gateways).Error; err != nil {
		return nil, err
	}
	return gateways, nil
}

func (r *repository) SaveGateway(ctx context.Context, gateway *models.GatewayConfig) error {
	return r.db.WithContext(ctx).Save(gateway).Error
}

func (r *repository) GetState(ctx context.Context) (*models.RotationState, error) {
	var state models.RotationState
	err := r.db.WithContext(ctx).
		Where("scope = ?", models.RotationStateScope).
		First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (r *repository) CreateState(ctx context.Context, state *models.RotationState) error {
	return r.db.WithContext(ctx).Create(state).Error
}

// CompareAndSwapState advances the rotation state only when the stored version
// still matches, so two concurrent selections can never both apply.
func (r *repository) CompareAndSwapState(ctx context.Context, expectedVersion int64, activeGateway string, transactionCount int) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.RotationState{}).
		Where("scope = ? AND version = ?", models.RotationStateScope, expectedVersion).
		Updates(map[string]any{
			"active_gateway":    activeGateway,
			"transaction_count": transactionCount,
			"version":           expectedVersion + 1,
			"updated_at":        time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
