package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/enums"
)

// Notification records an in-app message shown on the owner dashboard.
// Outbound email/WhatsApp deliveries reference the same row for auditability.
type Notification struct {
	ID        uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID   uuid.UUID                 `gorm:"column:store_id;type:uuid;not null;index"`
	OrderID   *uuid.UUID                `gorm:"column:order_id;type:uuid"`
	Channel   enums.NotificationChannel `gorm:"column:channel;type:notification_channel;not null;default:'in_app'"`
	Title     string                    `gorm:"column:title;not null"`
	Message   string                    `gorm:"column:message;not null"`
	ReadAt    *time.Time                `gorm:"column:read_at"`
	CreatedAt time.Time                 `gorm:"column:created_at;autoCreateTime"`
}
