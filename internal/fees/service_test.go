package fees

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/internal/ledger"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/config"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/db/models"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/enums"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (g gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return g.db.WithContext(ctx).Transaction(fn)
}

func setupFeesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	stores := `
CREATE TABLE IF NOT EXISTS stores (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  slug TEXT NOT NULL,
  description TEXT,
  phone TEXT,
  email TEXT,
  whatsapp_phone TEXT,
  township TEXT NOT NULL,
  address_line TEXT,
  categories TEXT,
  open INTEGER NOT NULL DEFAULT 0,
  credit_cents INTEGER NOT NULL DEFAULT 0,
  owner_id TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  store_id TEXT NOT NULL,
  customer_id TEXT,
  customer_name TEXT NOT NULL,
  customer_phone TEXT NOT NULL,
  customer_email TEXT,
  fulfilment TEXT NOT NULL,
  payment_method TEXT NOT NULL DEFAULT 'cash',
  status TEXT NOT NULL DEFAULT 'pending',
  total_cents INTEGER NOT NULL,
  delivery_address TEXT,
  note TEXT,
  pickup_code TEXT NOT NULL,
  tracking_token TEXT NOT NULL,
  estimated_ready_at DATETIME,
  completed_at DATETIME,
  platform_fee_cents INTEGER NOT NULL DEFAULT 0,
  platform_fee_paid INTEGER NOT NULL DEFAULT 0,
  idempotency_key TEXT,
  provenance TEXT NOT NULL DEFAULT 'customer',
  created_at DATETIME,
  updated_at DATETIME
);`
	entries := `
CREATE TABLE IF NOT EXISTS ledger_entries (
  id TEXT PRIMARY KEY,
  store_id TEXT NOT NULL,
  order_id TEXT,
  type TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  amount_cents INTEGER NOT NULL,
  balance_cents INTEGER,
  provider TEXT,
  checkout_id TEXT,
  provider_ref TEXT,
  note TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(stores).Error)
	require.NoError(t, db.Exec(orders).Error)
	require.NoError(t, db.Exec(entries).Error)

	require.NoError(t, db.Exec("DELETE FROM ledger_entries").Error)
	require.NoError(t, db.Exec("DELETE FROM orders").Error)
	require.NoError(t, db.Exec("DELETE FROM stores").Error)
	return db
}

func newFeesService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:       NewRepository(db),
		LedgerRepo: ledger.NewRepository(db),
		Tx:         gormTxRunner{db: db},
		Platform:   config.PlatformConfig{FeeRate: 0.10},
	})
	require.NoError(t, err)
	return svc
}

func seedFeeStore(t *testing.T, db *gorm.DB, creditCents int64) *models.Store {
	t.Helper()
	store := &models.Store{
		ID:          uuid.New(),
		Name:        "Kota Corner",
		Slug:        "kota-corner-" + uuid.NewString()[:8],
		Township:    "Soweto",
		CreditCents: creditCents,
		OwnerID:     uuid.New(),
	}
	require.NoError(t, db.Create(store).Error)
	return store
}

func seedCompletedOrder(t *testing.T, db *gorm.DB, storeID uuid.UUID, totalCents int) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:            uuid.New(),
		StoreID:       storeID,
		CustomerName:  "Bongani",
		CustomerPhone: "27831234567",
		Fulfilment:    enums.FulfilmentKindCollection,
		PaymentMethod: enums.PaymentMethodCash,
		Status:        enums.OrderStatusCompleted,
		TotalCents:    totalCents,
		PickupCode:    "123456",
		TrackingToken: uuid.NewString(),
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func TestChargeOnCompletionChargesTenPercentOnce(t *testing.T) {
	db := setupFeesTestDB(t)
	svc := newFeesService(t, db)
	ctx := context.Background()

	store := seedFeeStore(t, db, 10000)
	order := seedCompletedOrder(t, db, store.ID, 12000)

	require.NoError(t, svc.ChargeOnCompletion(ctx, order.ID))

	var reloaded models.Order
	require.NoError(t, db.First(&reloaded, "id = ?", order.ID).Error)
	assert.True(t, reloaded.PlatformFeePaid)
	assert.Equal(t, 1200, reloaded.PlatformFeeCents)

	var storeRow models.Store
	require.NoError(t, db.First(&storeRow, "id = ?", store.ID).Error)
	assert.Equal(t, int64(8800), storeRow.CreditCents)

	var entries []models.LedgerEntry
	require.NoError(t, db.Where("order_id = ?", order.ID).Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, enums.LedgerEntryTypeFeeDebit, entries[0].Type)
	assert.Equal(t, int64(1200), entries[0].AmountCents)

	// second invocation is a no-op: still one entry, balance unchanged
	require.NoError(t, svc.ChargeOnCompletion(ctx, order.ID))

	require.NoError(t, db.Where("order_id = ?", order.ID).Find(&entries).Error)
	assert.Len(t, entries, 1)
	require.NoError(t, db.First(&storeRow, "id = ?", store.ID).Error)
	assert.Equal(t, int64(8800), storeRow.CreditCents)
}

func TestChargeOnCompletionAllowsNegativeBalance(t *testing.T) {
	db := setupFeesTestDB(t)
	svc := newFeesService(t, db)

	store := seedFeeStore(t, db, 500)
	order := seedCompletedOrder(t, db, store.ID, 12000)

	require.NoError(t, svc.ChargeOnCompletion(context.Background(), order.ID))

	var storeRow models.Store
	require.NoError(t, db.First(&storeRow, "id = ?", store.ID).Error)
	assert.Equal(t, int64(-700), storeRow.CreditCents)
}

func TestChargeOnCompletionUsesStoredFee(t *testing.T) {
	db := setupFeesTestDB(t)
	svc := newFeesService(t, db)

	store := seedFeeStore(t, db, 10000)
	order := seedCompletedOrder(t, db, store.ID, 12000)
	require.NoError(t, db.Model(order).Update("platform_fee_cents", 900).Error)

	require.NoError(t, svc.ChargeOnCompletion(context.Background(), order.ID))

	var entries []models.LedgerEntry
	require.NoError(t, db.Where("order_id = ?", order.ID).Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(900), entries[0].AmountCents)
}

func TestChargeOnCompletionNoOps(t *testing.T) {
	db := setupFeesTestDB(t)
	svc := newFeesService(t, db)
	ctx := context.Background()

	// missing order
	require.NoError(t, svc.ChargeOnCompletion(ctx, uuid.New()))

	// order not completed
	store := seedFeeStore(t, db, 10000)
	pending := seedCompletedOrder(t, db, store.ID, 5000)
	require.NoError(t, db.Model(pending).Update("status", enums.OrderStatusPending).Error)
	require.NoError(t, svc.ChargeOnCompletion(ctx, pending.ID))

	var entries []models.LedgerEntry
	require.NoError(t, db.Where("store_id = ?", store.ID).Find(&entries).Error)
	assert.Empty(t, entries)
}

func TestChargeOnCompletionZeroFeeMarksPaid(t *testing.T) {
	db := setupFeesTestDB(t)
	svc := newFeesService(t, db)

	store := seedFeeStore(t, db, 10000)
	order := seedCompletedOrder(t, db, store.ID, 0)

	require.NoError(t, svc.ChargeOnCompletion(context.Background(), order.ID))

	var reloaded models.Order
	require.NoError(t, db.First(&reloaded, "id = ?", order.ID).Error)
	assert.True(t, reloaded.PlatformFeePaid)
	assert.Zero(t, reloaded.PlatformFeeCents)

	var entries []models.LedgerEntry
	require.NoError(t, db.Where("order_id = ?", order.ID).Find(&entries).Error)
	assert.Empty(t, entries)
}

func TestQuoteFeeCentsRounding(t *testing.T) {
	db := setupFeesTestDB(t)
	svc := newFeesService(t, db)

	assert.Equal(t, 1200, svc.QuoteFeeCents(12000))
	assert.Equal(t, 1, svc.QuoteFeeCents(5))  // 0.5 rounds up
	assert.Equal(t, 0, svc.QuoteFeeCents(4))  // 0.4 rounds down
	assert.Equal(t, 0, svc.QuoteFeeCents(0))
	assert.Equal(t, 0, svc.QuoteFeeCents(-100))
}
