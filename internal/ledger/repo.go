package ledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/db/models"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/enums"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/pagination"
)

// Repository manages persistence for ledger entries and the store balance.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateEntry(ctx context.Context, entry *models.LedgerEntry) error
	UpdateEntry(ctx context.Context, entry *models.LedgerEntry) error
	FindEntry(ctx context.Context, id uuid.UUID) (*models.LedgerEntry, error)
	FindEntryByCheckoutID(ctx context.Context, checkoutID string, entryType enums.LedgerEntryType) (*models.LedgerEntry, error)
	ListByStore(ctx context.Context, storeID uuid.UUID, params pagination.Params) ([]models.LedgerEntry, error)
	FindStore(ctx context.Context, storeID uuid.UUID) (*models.Store, error)
	LockStore(ctx context.Context, storeID uuid.UUID) (*models.Store, error)
	SaveStoreBalance(ctx context.Context, storeID uuid.UUID, balanceCents int64) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateEntry(ctx context.Context, entry *models.LedgerEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) UpdateEntry(ctx context.Context, entry *models.LedgerEntry) error {
	return r.db.WithContext(ctx).Save(entry).Error
}

func (r *repository) FindEntry(ctx context.Context, id uuid.UUID) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	if err := r.db.WithContext(ctx).First(&entry, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) FindEntryByCheckoutID(ctx context.Context, checkoutID string, entryType enums.LedgerEntryType) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("checkout_id = ? AND type = ?", checkoutID, entryType).
		Order("created_at DESC").
		First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) ListByStore(ctx context.Context, storeID uuid.UUID, params pagination.Params) ([]models.LedgerEntry, error) {
	query := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))

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

	var entries []models.LedgerEntry
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) FindStore(ctx context.Context, storeID uuid.UUID) (*models.Store, error) {
	var store models.Store
	if err := r.db.WithContext(ctx).First(&store, "id = ?", storeID).Error; err != nil {
		return nil, err
	}
	return &store, nil
}

// LockStore loads the store row under SELECT ... FOR UPDATE so concurrent
// balance mutations serialize on the row. SQLite has no row locks; its
// transactions already serialize writes database-wide.
func (r *repository) LockStore(ctx context.Context, storeID uuid.UUID) (*models.Store, error) {
	query := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var store models.Store
	if err := query.First(&store, "id = ?", storeID).Error; err != nil {
		return nil, err
	}
	return &store, nil
}

func (r *repository) SaveStoreBalance(ctx context.Context, storeID uuid.UUID, balanceCents int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Store{}).
		Where("id = ?", storeID).
		Update("credit_cents", balanceCents).Error
}
