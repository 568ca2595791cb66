package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/db/models"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/enums"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/pagination"
)

// Repository manages persistence for orders and their line items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	Update(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByTrackingToken(ctx context.Context, token string) (*models.Order, error)
	FindByIdempotencyKey(ctx context.Context, storeID uuid.UUID, key string) (*models.Order, error)
	ListByStore(ctx context.Context, storeID uuid.UUID, status *enums.OrderStatus, params pagination.Params) ([]models.Order, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an order repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// Update persists the order row only; line items are immutable after creation.
func (r *repository) Update(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByIDForUpdate locks the order row; items are loaded separately since a
// locked SELECT cannot join the preload.
func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	query := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var order models.Order
	if err := query.First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", order.ID).
		Find(&order.Items).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByTrackingToken(ctx context.Context, token string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&order, "tracking_token = ?", token).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByIdempotencyKey(ctx context.Context, storeID uuid.UUID, key string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&order, "store_id = ? AND idempotency_key = ?", storeID, key).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListByStore(ctx context.Context, storeID uuid.UUID, status *enums.OrderStatus, params pagination.Params) ([]models.Order, error) {
	query := r.db.WithContext(ctx).
		Preload("Items").
		Where("store_id = ?", storeID).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))

	if status != nil {
		query = query.Where("status = ?", *status)
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}
