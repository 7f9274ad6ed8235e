package models

import (
	"time"
)

// RotationStateScope is the single platform-wide rotation state row.
const RotationStateScope = "platform"

// RotationState is the shared gateway-rotation counter. Version backs the
// optimistic compare-and-swap that keeps concurrent selections from corrupting
// the counter.
type RotationState struct {
	Scope            string    `gorm:"column:scope;primaryKey"`
	ActiveGateway    *string   `gorm:"column:active_gateway"`
	TransactionCount int       `gorm:"column:transaction_count;not null;default:0"`
	Version          int64     `gorm:"column:version;not null;default:0"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// GatewayConfig is admin-managed per-gateway routing configuration. The
// rotation selector re-reads it on every selection so disabling a gateway takes
// effect immediately.
type GatewayConfig struct {
	Name          string    `gorm:"column:name;primaryKey"`
	Enabled       bool      `gorm:"column:enabled;not null;default:true"`
	RotationLimit int       `gorm:"column:rotation_limit;not null;default:10"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
