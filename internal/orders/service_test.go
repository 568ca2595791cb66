package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/internal/fees"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/internal/ledger"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/internal/stores"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/config"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/db/models"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/enums"
	pkgerrors "github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/errors"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/pagination"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (g gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return g.db.WithContext(ctx).Transaction(fn)
}

type fakeNotifier struct {
	ready  int
	placed int
}

func (f *fakeNotifier) OrderReady(context.Context, *models.Store, *models.Order)  { f.ready++ }
func (f *fakeNotifier) OrderPlaced(context.Context, *models.Store, *models.Order) { f.placed++ }
func (f *fakeNotifier) List(context.Context, uuid.UUID, int) ([]models.Notification, error) {
	return nil, nil
}
func (f *fakeNotifier) MarkRead(context.Context, uuid.UUID, uuid.UUID) error { return nil }

type fakeLimiter struct {
	allow    bool
	attempts int
}

func (f *fakeLimiter) FixedWindowAllow(context.Context, string, int64, time.Duration) (bool, int64, error) {
	f.attempts++
	return f.allow, int64(f.attempts), nil
}

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{`
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
);`, `
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
  tracking_token TEXT NOT NULL UNIQUE,
  estimated_ready_at DATETIME,
  completed_at DATETIME,
  platform_fee_cents INTEGER NOT NULL DEFAULT 0,
  platform_fee_paid INTEGER NOT NULL DEFAULT 0,
  idempotency_key TEXT,
  provenance TEXT NOT NULL DEFAULT 'customer',
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  name TEXT NOT NULL,
  qty INTEGER NOT NULL,
  unit_cents INTEGER NOT NULL,
  total_cents INTEGER NOT NULL,
  created_at DATETIME
);`, `
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
);`}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	for _, table := range []string{"ledger_entries", "order_items", "orders", "stores"} {
		require.NoError(t, db.Exec("DELETE FROM "+table).Error)
	}
	return db
}

type ordersFixture struct {
	svc      Service
	notifier *fakeNotifier
	limiter  *fakeLimiter
	db       *gorm.DB
}

func newOrdersFixture(t *testing.T, db *gorm.DB) *ordersFixture {
	t.Helper()

	feeSvc, err := fees.NewService(fees.ServiceParams{
		Repo:       fees.NewRepository(db),
		LedgerRepo: ledger.NewRepository(db),
		Tx:         gormTxRunner{db: db},
		Platform:   config.PlatformConfig{FeeRate: 0.10},
	})
	require.NoError(t, err)

	notifier := &fakeNotifier{}
	limiter := &fakeLimiter{allow: true}
	svc, err := NewService(ServiceParams{
		Repo:         NewRepository(db),
		StoreRepo:    stores.NewRepository(db),
		Fees:         feeSvc,
		Notifier:     notifier,
		Limiter:      limiter,
		ConfirmLimit: config.ConfirmRateLimitConfig{Window: time.Minute, Attempts: 10},
		Tx:           gormTxRunner{db: db},
	})
	require.NoError(t, err)
	return &ordersFixture{svc: svc, notifier: notifier, limiter: limiter, db: db}
}

func seedOrderStore(t *testing.T, db *gorm.DB, creditCents int64) *models.Store {
	t.Helper()
	store := &models.Store{
		ID:          uuid.New(),
		Name:        "Bra Joe's Grill",
		Slug:        "bra-joes-" + uuid.NewString()[:8],
		Township:    "Alexandra",
		Open:        true,
		CreditCents: creditCents,
		OwnerID:     uuid.New(),
	}
	require.NoError(t, db.Create(store).Error)
	return store
}

func seedOrder(t *testing.T, db *gorm.DB, storeID uuid.UUID, status enums.OrderStatus, fulfilment enums.FulfilmentKind, totalCents int) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:            uuid.New(),
		StoreID:       storeID,
		CustomerName:  "Lebo Dlamini",
		CustomerPhone: "+27825556677",
		Fulfilment:    fulfilment,
		PaymentMethod: enums.PaymentMethodCash,
		Status:        status,
		TotalCents:    totalCents,
		PickupCode:    "482913",
		TrackingToken: uuid.NewString(),
		Provenance:    enums.OrderProvenanceCustomer,
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func TestSetStatusWalksTheLifecycle(t *testing.T) {
	db := setupOrdersTestDB(t)
	fx := newOrdersFixture(t, db)
	store := seedOrderStore(t, db, 0)
	order := seedOrder(t, db, store.ID, enums.OrderStatusPending, enums.FulfilmentKindCollection, 4000)

	for _, next := range []enums.OrderStatus{
		enums.OrderStatusAccepted,
		enums.OrderStatusInPreparation,
		enums.OrderStatusReadyForCollection,
	} {
		updated, err := fx.svc.SetStatus(context.Background(), SetStatusInput{
			StoreID: store.ID,
			OrderID: order.ID,
			Status:  next,
		})
		require.NoError(t, err)
		assert.Equal(t, next, updated.Status)
	}
	assert.Equal(t, 1, fx.notifier.ready)
}

func TestSetStatusRejectsIllegalJump(t *testing.T) {
	db := setupOrdersTestDB(t)
	fx := newOrdersFixture(t, db)
	store := seedOrderStore(t, db, 0)
	order := seedOrder(t, db, store.ID, enums.OrderStatusPending, enums.FulfilmentKindCollection, 4000)

	_, err := fx.svc.SetStatus(context.Background(), SetStatusInput{
		StoreID: store.ID,
		OrderID: order.ID,
		Status:  enums.OrderStatusCompleted,
	})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeStateConflict, appErr.Code())
}

func TestSetStatusReadyStateMatchesFulfilment(t *testing.T) {
	db := setupOrdersTestDB(t)
	fx := newOrdersFixture(t, db)
	store := seedOrderStore(t, db, 0)
	order := seedOrder(t, db, store.ID, enums.OrderStatusInPreparation, enums.FulfilmentKindDelivery, 4000)

	_, err := fx.svc.SetStatus(context.Background(), SetStatusInput{
		StoreID: store.ID,
		OrderID: order.ID,
		Status:  enums.OrderStatusReadyForCollection,
	})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeStateConflict, appErr.Code())

	updated, err := fx.svc.SetStatus(context.Background(), SetStatusInput{
		StoreID: store.ID,
		OrderID: order.ID,
		Status:  enums.OrderStatusOutForDelivery,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusOutForDelivery, updated.Status)
	assert.Equal(t, 1, fx.notifier.ready)
}

func TestSetStatusOwnership(t *testing.T) {
	db := setupOrdersTestDB(t)
	fx := newOrdersFixture(t, db)
	store := seedOrderStore(t, db, 0)
	order := seedOrder(t, db, store.ID, enums.OrderStatusPending, enums.FulfilmentKindCollection, 4000)

	_, err := fx.svc.SetStatus(context.Background(), SetStatusInput{
		StoreID: uuid.New(),
		OrderID: order.ID,
		Status:  enums.OrderStatusAccepted,
	})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeForbidden, appErr.Code())
}

func TestSetStatusSameStatusIsNoOp(t *testing.T) {
	db := setupOrdersTestDB(t)
	fx := newOrdersFixture(t, db)
	store := seedOrderStore(t, db, 0)
	order := seedOrder(t, db, store.ID, enums.OrderStatusAccepted, enums.FulfilmentKindCollection, 4000)

	updated, err := fx.svc.SetStatus(context.Background(), SetStatusInput{
		StoreID: store.ID,
		OrderID: order.ID,
		Status:  enums.OrderStatusAccepted,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusAccepted, updated.Status)
	assert.Equal(t, 0, fx.notifier.ready)
}

func TestSetStatusCancellation(t *testing.T) {
	db := setupOrdersTestDB(t)
	fx := newOrdersFixture(t, db)
	store := seedOrderStore(t, db, 0)

	order := seedOrder(t, db, store.ID, enums.OrderStatusInPreparation, enums.FulfilmentKindCollection, 4000)
	updated, err := fx.svc.SetStatus(context.Background(), SetStatusInput{
		StoreID: store.ID,
		OrderID: order.ID,
		Status:  enums.OrderStatusCancelled,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, updated.Status)

	// Terminal orders stay put.
	_, err = fx.svc.SetStatus(context.Background(), SetStatusInput{
		StoreID: store.ID,
		OrderID: order.ID,
		Status:  enums.OrderStatusAccepted,
	})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeStateConflict, appErr.Code())
}

func TestConfirmWithCodeCompletesAndChargesFee(t *testing.T) {
	db := setupOrdersTestDB(t)
	fx := newOrdersFixture(t, db)
	store := seedOrderStore(t, db, 5000)
	order := seedOrder(t, db, store.ID, enums.OrderStatusReadyForCollection, enums.FulfilmentKindCollection, 12000)

	confirmed, err := fx.svc.ConfirmWithCode(context.Background(), ConfirmInput{
		StoreID: store.ID,
		OrderID: order.ID,
		Code:    "482913",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCompleted, confirmed.Status)
	require.NotNil(t, confirmed.CompletedAt)

	var reloadedStore models.Store
	require.NoError(t, db.First(&reloadedStore, "id = ?", store.ID).Error)
	assert.EqualValues(t, 5000-1200, reloadedStore.CreditCents)

	var entries []models.LedgerEntry
	require.NoError(t, db.Where("store_id = ?", store.ID).Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, enums.LedgerEntryTypeFeeDebit, entries[0].Type)
	assert.EqualValues(t, 1200, entries[0].AmountCents)

	// Replaying the confirm must not double-charge.
	again, err := fx.svc.ConfirmWithCode(context.Background(), ConfirmInput{
		StoreID: store.ID,
		OrderID: order.ID,
		Code:    "482913",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCompleted, again.Status)
	require.NoError(t, db.Where("store_id = ?", store.ID).Find(&entries).Error)
	assert.Len(t, entries, 1)
}

func TestConfirmWithCodeWrongCodeIsSilent(t *testing.T) {
	db := setupOrdersTestDB(t)
	fx := newOrdersFixture(t, db)
	store := seedOrderStore(t, db, 0)
	order := seedOrder(t, db, store.ID, enums.OrderStatusReadyForCollection, enums.FulfilmentKindCollection, 4000)

	unchanged, err := fx.svc.ConfirmWithCode(context.Background(), ConfirmInput{
		StoreID: store.ID,
		OrderID: order.ID,
		Code:    "000000",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusReadyForCollection, unchanged.Status)
	assert.Nil(t, unchanged.CompletedAt)
}

func TestConfirmWithCodeNotReadyIsSilent(t *testing.T) {
	db := setupOrdersTestDB(t)
	fx := newOrdersFixture(t, db)
	store := seedOrderStore(t, db, 0)
	order := seedOrder(t, db, store.ID, enums.OrderStatusInPreparation, enums.FulfilmentKindCollection, 4000)

	unchanged, err := fx.svc.ConfirmWithCode(context.Background(), ConfirmInput{
		StoreID: store.ID,
		OrderID: order.ID,
		Code:    "482913",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusInPreparation, unchanged.Status)
}

func TestConfirmWithCodeRateLimited(t *testing.T) {
	db := setupOrdersTestDB(t)
	fx := newOrdersFixture(t, db)
	fx.limiter.allow = false
	store := seedOrderStore(t, db, 0)
	order := seedOrder(t, db, store.ID, enums.OrderStatusReadyForCollection, enums.FulfilmentKindCollection, 4000)

	_, err := fx.svc.ConfirmWithCode(context.Background(), ConfirmInput{
		StoreID: store.ID,
		OrderID: order.ID,
		Code:    "482913",
	})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeRateLimit, appErr.Code())
}

func TestConfirmWithCodeOwnership(t *testing.T) {
	db := setupOrdersTestDB(t)
	fx := newOrdersFixture(t, db)
	store := seedOrderStore(t, db, 0)
	order := seedOrder(t, db, store.ID, enums.OrderStatusReadyForCollection, enums.FulfilmentKindCollection, 4000)

	_, err := fx.svc.ConfirmWithCode(context.Background(), ConfirmInput{
		StoreID: uuid.New(),
		OrderID: order.ID,
		Code:    "482913",
	})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeForbidden, appErr.Code())
}

func TestTrackByToken(t *testing.T) {
	db := setupOrdersTestDB(t)
	fx := newOrdersFixture(t, db)
	store := seedOrderStore(t, db, 0)
	order := seedOrder(t, db, store.ID, enums.OrderStatusAccepted, enums.FulfilmentKindCollection, 4000)

	found, err := fx.svc.TrackByToken(context.Background(), order.TrackingToken)
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)

	_, err = fx.svc.TrackByToken(context.Background(), "no-such-token")
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
}

func TestGetByIDOwnership(t *testing.T) {
	db := setupOrdersTestDB(t)
	fx := newOrdersFixture(t, db)
	store := seedOrderStore(t, db, 0)
	order := seedOrder(t, db, store.ID, enums.OrderStatusAccepted, enums.FulfilmentKindCollection, 4000)

	found, err := fx.svc.GetByID(context.Background(), store.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)

	_, err = fx.svc.GetByID(context.Background(), uuid.New(), order.ID)
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeForbidden, appErr.Code())
}

func TestListByStoreFiltersByStatus(t *testing.T) {
	db := setupOrdersTestDB(t)
	fx := newOrdersFixture(t, db)
	store := seedOrderStore(t, db, 0)
	seedOrder(t, db, store.ID, enums.OrderStatusPending, enums.FulfilmentKindCollection, 1000)
	seedOrder(t, db, store.ID, enums.OrderStatusPending, enums.FulfilmentKindCollection, 2000)
	seedOrder(t, db, store.ID, enums.OrderStatusCancelled, enums.FulfilmentKindCollection, 3000)

	pending := enums.OrderStatusPending
	list, err := fx.svc.ListByStore(context.Background(), store.ID, &pending, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	all, err := fx.svc.ListByStore(context.Background(), store.ID, nil, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
