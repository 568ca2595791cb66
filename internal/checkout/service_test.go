package checkout

import (
	"context"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/internal/orders"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/internal/products"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/internal/stores"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/config"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/db/models"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/enums"
	pkgerrors "github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/errors"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (g gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return g.db.WithContext(ctx).Transaction(fn)
}

type fakeNotifier struct {
	placed int
}

func (f *fakeNotifier) OrderReady(context.Context, *models.Store, *models.Order)  {}
func (f *fakeNotifier) OrderPlaced(context.Context, *models.Store, *models.Order) { f.placed++ }
func (f *fakeNotifier) List(context.Context, uuid.UUID, int) ([]models.Notification, error) {
	return nil, nil
}
func (f *fakeNotifier) MarkRead(context.Context, uuid.UUID, uuid.UUID) error { return nil }

func setupCheckoutTestDB(t *testing.T) *gorm.DB {
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
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  store_id TEXT NOT NULL,
  name TEXT NOT NULL,
  description TEXT,
  price_cents INTEGER NOT NULL,
  image_url TEXT,
  available INTEGER NOT NULL DEFAULT 1,
  archived_at DATETIME,
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
  idempotency_key TEXT UNIQUE,
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
);`}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	for _, table := range []string{"order_items", "orders", "products", "stores"} {
		require.NoError(t, db.Exec("DELETE FROM "+table).Error)
	}
	return db
}

func newCheckoutService(t *testing.T, db *gorm.DB, notifier *fakeNotifier) Service {
	t.Helper()
	params := ServiceParams{
		OrderRepo:   orders.NewRepository(db),
		ProductRepo: products.NewRepository(db),
		StoreRepo:   stores.NewRepository(db),
		Tx:          gormTxRunner{db: db},
		Platform:    config.PlatformConfig{MinLineQty: 1, MaxLineQty: 5},
	}
	if notifier != nil {
		params.Notifier = notifier
	}
	svc, err := NewService(params)
	require.NoError(t, err)
	return svc
}

func seedCheckoutStore(t *testing.T, db *gorm.DB, open bool) *models.Store {
	t.Helper()
	store := &models.Store{
		ID:       uuid.New(),
		Name:     "Gogo's Kitchen",
		Slug:     "gogos-kitchen-" + uuid.NewString()[:8],
		Township: "Khayelitsha",
		Open:     open,
		OwnerID:  uuid.New(),
	}
	require.NoError(t, db.Create(store).Error)
	return store
}

func seedProduct(t *testing.T, db *gorm.DB, storeID uuid.UUID, name string, priceCents int) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:         uuid.New(),
		StoreID:    storeID,
		Name:       name,
		PriceCents: priceCents,
		Available:  true,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func baseInput(store *models.Store, lines []Line) PlaceOrderInput {
	return PlaceOrderInput{
		StoreID:       store.ID,
		Lines:         lines,
		CustomerName:  "Thandi Mokoena",
		CustomerPhone: "+27831234567",
	}
}

func TestPlaceOrderSnapshotsPricesAndTotals(t *testing.T) {
	db := setupCheckoutTestDB(t)
	notifier := &fakeNotifier{}
	svc := newCheckoutService(t, db, notifier)

	store := seedCheckoutStore(t, db, true)
	kota := seedProduct(t, db, store.ID, "Full House Kota", 3500)
	chips := seedProduct(t, db, store.ID, "Slap Chips", 1500)

	order, err := svc.PlaceOrder(context.Background(), baseInput(store, []Line{
		{ProductID: kota.ID, Quantity: 2},
		{ProductID: chips.ID, Quantity: 1},
	}))
	require.NoError(t, err)

	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Equal(t, enums.OrderProvenanceCustomer, order.Provenance)
	assert.Equal(t, 8500, order.TotalCents)
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), order.PickupCode)
	assert.NotEmpty(t, order.TrackingToken)
	assert.Equal(t, 1, notifier.placed)

	require.Len(t, order.Items, 2)
	byProduct := map[uuid.UUID]models.OrderItem{}
	itemTotal := 0
	for _, item := range order.Items {
		byProduct[item.ProductID] = item
		itemTotal += item.TotalCents
	}
	assert.Equal(t, order.TotalCents, itemTotal)
	assert.Equal(t, 3500, byProduct[kota.ID].UnitCents)
	assert.Equal(t, 7000, byProduct[kota.ID].TotalCents)
	assert.Equal(t, "Full House Kota", byProduct[kota.ID].Name)
	assert.Equal(t, 1500, byProduct[chips.ID].TotalCents)

	// Later price changes never touch the snapshot.
	require.NoError(t, db.Model(&models.Product{}).Where("id = ?", kota.ID).Update("price_cents", 9999).Error)
	reloaded, err := orders.NewRepository(db).FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, 8500, reloaded.TotalCents)
}

func TestPlaceOrderClampsQuantities(t *testing.T) {
	db := setupCheckoutTestDB(t)
	svc := newCheckoutService(t, db, nil)

	store := seedCheckoutStore(t, db, true)
	kota := seedProduct(t, db, store.ID, "Kota", 2000)
	chips := seedProduct(t, db, store.ID, "Chips", 1000)

	order, err := svc.PlaceOrder(context.Background(), baseInput(store, []Line{
		{ProductID: kota.ID, Quantity: 0},
		{ProductID: chips.ID, Quantity: 99},
	}))
	require.NoError(t, err)

	byProduct := map[uuid.UUID]models.OrderItem{}
	for _, item := range order.Items {
		byProduct[item.ProductID] = item
	}
	assert.Equal(t, 1, byProduct[kota.ID].Qty)
	assert.Equal(t, 5, byProduct[chips.ID].Qty)
	assert.Equal(t, 2000+5000, order.TotalCents)
}

func TestPlaceOrderRejectsForeignProduct(t *testing.T) {
	db := setupCheckoutTestDB(t)
	svc := newCheckoutService(t, db, nil)

	store := seedCheckoutStore(t, db, true)
	other := seedCheckoutStore(t, db, true)
	ours := seedProduct(t, db, store.ID, "Kota", 2000)
	theirs := seedProduct(t, db, other.ID, "Bunny Chow", 4500)

	_, err := svc.PlaceOrder(context.Background(), baseInput(store, []Line{
		{ProductID: ours.ID, Quantity: 1},
		{ProductID: theirs.ID, Quantity: 1},
	}))
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())

	var count int64
	require.NoError(t, db.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestPlaceOrderRejectsUnavailableProduct(t *testing.T) {
	db := setupCheckoutTestDB(t)
	svc := newCheckoutService(t, db, nil)

	store := seedCheckoutStore(t, db, true)
	product := seedProduct(t, db, store.ID, "Magwinya", 500)
	require.NoError(t, db.Model(&models.Product{}).Where("id = ?", product.ID).Update("available", false).Error)

	_, err := svc.PlaceOrder(context.Background(), baseInput(store, []Line{
		{ProductID: product.ID, Quantity: 1},
	}))
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}

func TestPlaceOrderIdempotencyKeyReplay(t *testing.T) {
	db := setupCheckoutTestDB(t)
	svc := newCheckoutService(t, db, nil)

	store := seedCheckoutStore(t, db, true)
	product := seedProduct(t, db, store.ID, "Kota", 2000)

	key := uuid.NewString()
	input := baseInput(store, []Line{{ProductID: product.ID, Quantity: 1}})
	input.IdempotencyKey = &key

	first, err := svc.PlaceOrder(context.Background(), input)
	require.NoError(t, err)

	second, err := svc.PlaceOrder(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.TrackingToken, second.TrackingToken)

	var count int64
	require.NoError(t, db.Model(&models.Order{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestPlaceOrderClosedStore(t *testing.T) {
	db := setupCheckoutTestDB(t)
	svc := newCheckoutService(t, db, nil)

	store := seedCheckoutStore(t, db, false)
	product := seedProduct(t, db, store.ID, "Kota", 2000)

	_, err := svc.PlaceOrder(context.Background(), baseInput(store, []Line{
		{ProductID: product.ID, Quantity: 1},
	}))
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeStateConflict, appErr.Code())

	// The owner can still key in a phone order while closed.
	manual := baseInput(store, []Line{{ProductID: product.ID, Quantity: 1}})
	manual.Provenance = enums.OrderProvenanceManual
	order, err := svc.PlaceOrder(context.Background(), manual)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderProvenanceManual, order.Provenance)
}

func TestPlaceOrderValidation(t *testing.T) {
	db := setupCheckoutTestDB(t)
	svc := newCheckoutService(t, db, nil)
	store := seedCheckoutStore(t, db, true)
	product := seedProduct(t, db, store.ID, "Kota", 2000)

	address := ""
	cases := []struct {
		name  string
		build func() PlaceOrderInput
	}{
		{"missing store", func() PlaceOrderInput {
			input := baseInput(store, []Line{{ProductID: product.ID, Quantity: 1}})
			input.StoreID = uuid.Nil
			return input
		}},
		{"no lines", func() PlaceOrderInput {
			return baseInput(store, nil)
		}},
		{"missing customer name", func() PlaceOrderInput {
			input := baseInput(store, []Line{{ProductID: product.ID, Quantity: 1}})
			input.CustomerName = "  "
			return input
		}},
		{"missing customer phone", func() PlaceOrderInput {
			input := baseInput(store, []Line{{ProductID: product.ID, Quantity: 1}})
			input.CustomerPhone = ""
			return input
		}},
		{"delivery without address", func() PlaceOrderInput {
			input := baseInput(store, []Line{{ProductID: product.ID, Quantity: 1}})
			input.Fulfilment = enums.FulfilmentKindDelivery
			input.DeliveryAddress = &address
			return input
		}},
		{"unknown fulfilment", func() PlaceOrderInput {
			input := baseInput(store, []Line{{ProductID: product.ID, Quantity: 1}})
			input.Fulfilment = enums.FulfilmentKind("drone")
			return input
		}},
		{"nil product id", func() PlaceOrderInput {
			return baseInput(store, []Line{{ProductID: uuid.Nil, Quantity: 1}})
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.PlaceOrder(context.Background(), tc.build())
			require.Error(t, err)
			appErr := pkgerrors.As(err)
			require.NotNil(t, appErr)
			assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
		})
	}
}

func TestPlaceOrderStoreNotFound(t *testing.T) {
	db := setupCheckoutTestDB(t)
	svc := newCheckoutService(t, db, nil)

	input := PlaceOrderInput{
		StoreID:       uuid.New(),
		Lines:         []Line{{ProductID: uuid.New(), Quantity: 1}},
		CustomerName:  "Sipho",
		CustomerPhone: "+27820000000",
	}
	_, err := svc.PlaceOrder(context.Background(), input)
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
}

func TestTrackingTokensAreUniquePerOrder(t *testing.T) {
	db := setupCheckoutTestDB(t)
	svc := newCheckoutService(t, db, nil)

	store := seedCheckoutStore(t, db, true)
	product := seedProduct(t, db, store.ID, "Kota", 2000)

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		order, err := svc.PlaceOrder(context.Background(), baseInput(store, []Line{
			{ProductID: product.ID, Quantity: 1},
		}))
		require.NoError(t, err)
		require.False(t, seen[order.TrackingToken])
		seen[order.TrackingToken] = true
	}
}
