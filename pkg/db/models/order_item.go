package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderItem captures the immutable price/name snapshot of one line within an
// order. Catalog changes after creation never touch these rows.
type OrderItem struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID    uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID  uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	Name       string    `gorm:"column:name;not null"`
	Qty        int       `gorm:"column:qty;not null"`
	UnitCents  int       `gorm:"column:unit_cents;not null"`
	TotalCents int       `gorm:"column:total_cents;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}
