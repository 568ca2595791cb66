package stores

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/db/models"
)

// Repository manages persistence for store tenants.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, store *models.Store) error
	Update(ctx context.Context, store *models.Store) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error)
	FindBySlug(ctx context.Context, slug string) (*models.Store, error)
	FindByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Store, error)
	ListOpen(ctx context.Context, township string) ([]models.Store, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a store repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, store *models.Store) error {
	return r.db.WithContext(ctx).Create(store).Error
}

func (r *repository) Update(ctx context.Context, store *models.Store) error {
	return r.db.WithContext(ctx).Save(store).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	var store models.Store
	if err := r.db.WithContext(ctx).First(&store, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &store, nil
}

func (r *repository) FindBySlug(ctx context.Context, slug string) (*models.Store, error) {
	var store models.Store
	if err := r.db.WithContext(ctx).First(&store, "slug = ?", slug).Error; err != nil {
		return nil, err
	}
	return &store, nil
}

func (r *repository) FindByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Store, error) {
	var store models.Store
	if err := r.db.WithContext(ctx).First(&store, "owner_id = ?", ownerID).Error; err != nil {
		return nil, err
	}
	return &store, nil
}

func (r *repository) ListOpen(ctx context.Context, township string) ([]models.Store, error) {
	query := r.db.WithContext(ctx).Where("open = ?", true)
	if township != "" {
		query = query.Where("township = ?", township)
	}
	var stores []models.Store
	if err := query.Order("name ASC").Find(&stores).Error; err != nil {
		return nil, err
	}
	return stores, nil
}
