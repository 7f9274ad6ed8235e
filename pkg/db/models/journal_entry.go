package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mikeeeeee-blip/himora-sub001/pkg/enums"
)

// JournalEntry is a double-entry journal header. Once posted it is immutable;
// corrections are new adjustment or dispute_reversal entries that point back at
// the original through Reference.
type JournalEntry struct {
	ID         uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ExternalID string                 `gorm:"column:external_id;not null;unique"`
	TenantID   uuid.UUID              `gorm:"column:tenant_id;type:uuid;not null;index"`
	Type       enums.JournalEntryType `gorm:"column:type;not null"`
	Reference  *string                `gorm:"column:reference"`
	IsPosted   bool                   `gorm:"column:is_posted;not null;default:false"`
	PostedAt   *time.Time             `gorm:"column:posted_at"`
	CreatedAt  time.Time              `gorm:"column:created_at;autoCreateTime"`

	Postings []Posting `gorm:"foreignKey:EntryID"`
}

// Posting is one debit or credit line within a journal entry.
type Posting struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EntryID   uuid.UUID         `gorm:"column:entry_id;type:uuid;not null;index"`
	AccountID uuid.UUID         `gorm:"column:account_id;type:uuid;not null;index"`
	Side      enums.PostingSide `gorm:"column:side;not null"`
	Amount    decimal.Decimal   `gorm:"column:amount;type:numeric(18,6);not null"`
	Ref       *string           `gorm:"column:ref"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
}
