package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mikeeeeee-blip/himora-sub001/pkg/enums"
)

// PaymentRecord is one captured payment. Commission and the expected
// settlement date are computed once at creation and backfilled by the sweeper
// when missing; the unsettled -> settled transition happens exactly once.
type PaymentRecord struct {
	ID                     uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Gateway                string                 `gorm:"column:gateway;not null;index"`
	Reference              string                 `gorm:"column:reference;not null;unique"`
	Direction              enums.PaymentDirection `gorm:"column:direction;not null;default:'payin'"`
	Amount                 decimal.Decimal        `gorm:"column:amount;type:numeric(18,6);not null"`
	Currency               string                 `gorm:"column:currency;not null;default:'INR'"`
	Commission             decimal.Decimal        `gorm:"column:commission;type:numeric(18,6);not null"`
	NetAmount              decimal.Decimal        `gorm:"column:net_amount;type:numeric(18,6);not null"`
	PaidAt                 time.Time              `gorm:"column:paid_at;not null;index"`
	SettlementStatus       enums.SettlementStatus `gorm:"column:settlement_status;not null;default:'unsettled';index"`
	ExpectedSettlementDate *time.Time             `gorm:"column:expected_settlement_date"`
	SettlementDate         *time.Time             `gorm:"column:settlement_date"`
	CreatedAt              time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
