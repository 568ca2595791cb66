package fees

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/db/models"
)

// Repository covers the order-side persistence of fee charging.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrderForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	SaveOrderFee(ctx context.Context, orderID uuid.UUID, feeCents int, paid bool) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a fee repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindOrderForUpdate locks the order row so concurrent fee charges serialize;
// the second caller then observes platform_fee_paid and no-ops.
func (r *repository) FindOrderForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	query := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var order models.Order
	if err := query.First(&order, "id = ?", orderID).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) SaveOrderFee(ctx context.Context, orderID uuid.UUID, feeCents int, paid bool) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]any{
			"platform_fee_cents": feeCents,
			"platform_fee_paid":  paid,
		}).Error
}
