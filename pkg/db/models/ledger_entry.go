package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/enums"
)

// LedgerEntry is one append-only record in a store's credit ledger.
// BalanceCents is the store balance immediately after this entry was applied;
// a completed entry is never edited, only superseded by later entries.
type LedgerEntry struct {
	ID           uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID      uuid.UUID               `gorm:"column:store_id;type:uuid;not null;index"`
	OrderID      *uuid.UUID              `gorm:"column:order_id;type:uuid"`
	Type         enums.LedgerEntryType   `gorm:"column:type;type:ledger_entry_type;not null"`
	Status       enums.LedgerEntryStatus `gorm:"column:status;type:ledger_entry_status;not null;default:'pending'"`
	AmountCents  int64                   `gorm:"column:amount_cents;not null"`
	BalanceCents *int64                  `gorm:"column:balance_cents"`
	Provider     *string                 `gorm:"column:provider"`
	CheckoutID   *string                 `gorm:"column:checkout_id;index"`
	ProviderRef  *string                 `gorm:"column:provider_ref"`
	Note         *string                 `gorm:"column:note"`
	CreatedAt    time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
