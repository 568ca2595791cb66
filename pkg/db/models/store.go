package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Store represents the canonical tenant model: one township eatery with its
// running platform-credit balance. CreditCents is mutated only through ledger
// entries, never written directly by handlers.
type Store struct {
	ID            uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name          string         `gorm:"column:name;not null"`
	Slug          string         `gorm:"column:slug;not null;uniqueIndex"`
	Description   *string        `gorm:"column:description"`
	Phone         *string        `gorm:"column:phone"`
	Email         *string        `gorm:"column:email"`
	WhatsAppPhone *string        `gorm:"column:whatsapp_phone"`
	Township      string         `gorm:"column:township;not null"`
	AddressLine   *string        `gorm:"column:address_line"`
	Categories    pq.StringArray `gorm:"column:categories;type:text[]"`
	Open          bool           `gorm:"column:open;not null;default:false"`
	CreditCents   int64          `gorm:"column:credit_cents;not null;default:0"`
	OwnerID       uuid.UUID      `gorm:"column:owner_id;type:uuid;not null"`
	CreatedAt     time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
