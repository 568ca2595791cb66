package notifications

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/db/models"
)

// Repository manages persistence for in-app notifications.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, notification *models.Notification) error
	ListByStore(ctx context.Context, storeID uuid.UUID, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, storeID, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a notification repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *repository) ListByStore(ctx context.Context, storeID uuid.UUID, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.Notification
	if err := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) MarkRead(ctx context.Context, storeID, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND store_id = ?", id, storeID).
		Update("read_at", gorm.Expr("CURRENT_TIMESTAMP")).Error
}
