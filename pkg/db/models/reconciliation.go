package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mikeeeeee-blip/himora-sub001/pkg/enums"
)

// ReconciliationRun summarizes one comparison of posted journal entries
// against an external gateway or bank statement.
type ReconciliationRun struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID       uuid.UUID  `gorm:"column:tenant_id;type:uuid;not null;index"`
	Source         string     `gorm:"column:source;not null"`
	MatchedCount   int        `gorm:"column:matched_count;not null;default:0"`
	ExceptionCount int        `gorm:"column:exception_count;not null;default:0"`
	StartedAt      time.Time  `gorm:"column:started_at;not null"`
	CompletedAt    *time.Time `gorm:"column:completed_at"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
}

// ReconciliationException is one statement row that failed to match cleanly.
type ReconciliationException struct {
	ID             uuid.UUID                           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RunID          uuid.UUID                           `gorm:"column:run_id;type:uuid;not null;index"`
	Type           enums.ReconciliationExceptionType   `gorm:"column:type;not null"`
	Status         enums.ReconciliationExceptionStatus `gorm:"column:status;not null;default:'open'"`
	ExternalRef    string                              `gorm:"column:external_ref;not null"`
	EntryID        *uuid.UUID                          `gorm:"column:entry_id;type:uuid"`
	ExpectedAmount decimal.Decimal                     `gorm:"column:expected_amount;type:numeric(18,6);not null"`
	ActualAmount   decimal.Decimal                     `gorm:"column:actual_amount;type:numeric(18,6);not null"`
	Detail         string                              `gorm:"column:detail"`
	ResolvedAt     *time.Time                          `gorm:"column:resolved_at"`
	CreatedAt      time.Time                           `gorm:"column:created_at;autoCreateTime"`
}
