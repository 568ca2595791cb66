package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/enums"
)

// Order is one customer transaction against a store. Contact fields are
// snapshots taken at creation; TotalCents always equals the sum of its items'
// line totals.
type Order struct {
	ID               uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID          uuid.UUID             `gorm:"column:store_id;type:uuid;not null;index"`
	CustomerID       *uuid.UUID            `gorm:"column:customer_id;type:uuid"`
	CustomerName     string                `gorm:"column:customer_name;not null"`
	CustomerPhone    string                `gorm:"column:customer_phone;not null"`
	CustomerEmail    *string               `gorm:"column:customer_email"`
	Fulfilment       enums.FulfilmentKind  `gorm:"column:fulfilment;type:fulfilment_kind;not null"`
	PaymentMethod    enums.PaymentMethod   `gorm:"column:payment_method;type:payment_method;not null;default:'cash'"`
	Status           enums.OrderStatus     `gorm:"column:status;type:order_status;not null;default:'pending'"`
	TotalCents       int                   `gorm:"column:total_cents;not null"`
	DeliveryAddress  *string               `gorm:"column:delivery_address"`
	Note             *string               `gorm:"column:note"`
	PickupCode       string                `gorm:"column:pickup_code;not null"`
	TrackingToken    string                `gorm:"column:tracking_token;not null;uniqueIndex"`
	EstimatedReadyAt *time.Time            `gorm:"column:estimated_ready_at"`
	CompletedAt      *time.Time            `gorm:"column:completed_at"`
	PlatformFeeCents int                   `gorm:"column:platform_fee_cents;not null;default:0"`
	PlatformFeePaid  bool                  `gorm:"column:platform_fee_paid;not null;default:false"`
	IdempotencyKey   *string               `gorm:"column:idempotency_key;uniqueIndex"`
	Provenance       enums.OrderProvenance `gorm:"column:provenance;type:order_provenance;not null;default:'customer'"`
	Items            []OrderItem           `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
