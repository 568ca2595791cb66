package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/enums"
)

// User is a store owner or platform admin account.
type User struct {
	ID           uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email        string         `gorm:"column:email;not null;uniqueIndex"`
	Name         string         `gorm:"column:name;not null"`
	PasswordHash string         `gorm:"column:password_hash;not null"`
	Role         enums.UserRole `gorm:"column:role;type:user_role;not null;default:'owner'"`
	LastLoginAt  *time.Time     `gorm:"column:last_login_at"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
