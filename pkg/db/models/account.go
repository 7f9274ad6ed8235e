package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mikeeeeee-blip/himora-sub001/pkg/enums"
)

// Account is one chart-of-accounts entry, scoped to a tenant. The (tenant, code)
// pair is unique; accounts are referenced by postings and never deleted while
// postings exist.
type Account struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID  uuid.UUID         `gorm:"column:tenant_id;type:uuid;not null;uniqueIndex:idx_accounts_tenant_code"`
	Code      string            `gorm:"column:code;not null;uniqueIndex:idx_accounts_tenant_code"`
	Name      string            `gorm:"column:name;not null"`
	Type      enums.AccountType `gorm:"column:type;not null"`
	Currency  string            `gorm:"column:currency;not null;default:'INR'"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
