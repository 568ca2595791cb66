package products

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/db/models"
)

// Repository manages persistence for catalog products.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindByIDs(ctx context.Context, storeID uuid.UUID, ids []uuid.UUID) ([]models.Product, error)
	ListByStore(ctx context.Context, storeID uuid.UUID, includeArchived bool) ([]models.Product, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a product repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *repository) Update(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByIDs returns only products that belong to the store; callers compare
// the result count against the request to detect foreign products.
func (r *repository) FindByIDs(ctx context.Context, storeID uuid.UUID, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var products []models.Product
	if err := r.db.WithContext(ctx).
		Where("store_id = ? AND id IN ?", storeID, ids).
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repository) ListByStore(ctx context.Context, storeID uuid.UUID, includeArchived bool) ([]models.Product, error) {
	query := r.db.WithContext(ctx).Where("store_id = ?", storeID)
	if !includeArchived {
		query = query.Where("archived_at IS NULL")
	}
	var products []models.Product
	if err := query.Order("name ASC").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}
