package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is one catalog item on a store's menu. PriceCents is the live price;
// orders snapshot it into OrderItem rows at creation time.
type Product struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID     uuid.UUID  `gorm:"column:store_id;type:uuid;not null;index"`
	Name        string     `gorm:"column:name;not null"`
	Description *string    `gorm:"column:description"`
	PriceCents  int        `gorm:"column:price_cents;not null"`
	ImageURL    *string    `gorm:"column:image_url"`
	Available   bool       `gorm:"column:available;not null;default:true"`
	ArchivedAt  *time.Time `gorm:"column:archived_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
