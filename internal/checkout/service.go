package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/internal/notifications"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/internal/orders"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/internal/products"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/internal/stores"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/config"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/db"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/db/models"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/enums"
	pkgerrors "github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/errors"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/metrics"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/rand"
)

const (
	pickupCodeLength    = 6
	trackingTokenLength = 24
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service creates orders from cart lines, snapshotting catalog prices once at
// creation time.
type Service interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*models.Order, error)
}

// Line is one cart entry as submitted by the caller.
type Line struct {
	ProductID uuid.UUID
	Quantity  int
}

// PlaceOrderInput carries everything needed to create an order. Provenance
// distinguishes customer checkouts from orders the owner keys in by hand.
type PlaceOrderInput struct {
	StoreID         uuid.UUID
	Lines           []Line
	CustomerID      *uuid.UUID
	CustomerName    string
	CustomerPhone   string
	CustomerEmail   *string
	Fulfilment      enums.FulfilmentKind
	PaymentMethod   enums.PaymentMethod
	DeliveryAddress *string
	Note            *string
	IdempotencyKey  *string
	Provenance      enums.OrderProvenance
}

type service struct {
	orderRepo   orders.Repository
	productRepo products.Repository
	storeRepo   stores.Repository
	tx          txRunner
	cfg         config.PlatformConfig
	notifier    notifications.Service
	metrics     *metrics.PlatformMetrics
}

// ServiceParams bundles the checkout dependencies. Notifier and Metrics are
// optional.
type ServiceParams struct {
	OrderRepo   orders.Repository
	ProductRepo products.Repository
	StoreRepo   stores.Repository
	Tx          txRunner
	Platform    config.PlatformConfig
	Notifier    notifications.Service
	Metrics     *metrics.PlatformMetrics
}

// NewService wires the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.OrderRepo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if params.ProductRepo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if params.StoreRepo == nil {
		return nil, fmt.Errorf("store repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		orderRepo:   params.OrderRepo,
		productRepo: params.ProductRepo,
		storeRepo:   params.StoreRepo,
		tx:          params.Tx,
		cfg:         params.Platform,
		notifier:    params.Notifier,
		metrics:     params.Metrics,
	}, nil
}

// PlaceOrder resolves the cart against the store's catalog, writes the order
// with its price snapshot, and returns it in pending status. A repeated call
// carrying the same idempotency key returns the originally created order.
func (s *service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*models.Order, error) {
	if err := s.validate(&input); err != nil {
		return nil, err
	}

	store, err := s.storeRepo.FindByID(ctx, input.StoreID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find store")
	}
	if input.Provenance == enums.OrderProvenanceCustomer && !store.Open {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "store is not accepting orders right now")
	}

	if input.IdempotencyKey != nil {
		existing, err := s.orderRepo.FindByIdempotencyKey(ctx, input.StoreID, *input.IdempotencyKey)
		if err == nil {
			return existing, nil
		}
		if err != gorm.ErrRecordNotFound {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find order by idempotency key")
		}
	}

	items, total, err := s.snapshotLines(ctx, input.StoreID, input.Lines)
	if err != nil {
		return nil, err
	}

	pickupCode, err := rand.NumericCode(pickupCodeLength)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate pickup code")
	}
	trackingToken, err := rand.Token(trackingTokenLength)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate tracking token")
	}

	order := &models.Order{
		ID:              uuid.New(),
		StoreID:         input.StoreID,
		CustomerID:      input.CustomerID,
		CustomerName:    strings.TrimSpace(input.CustomerName),
		CustomerPhone:   strings.TrimSpace(input.CustomerPhone),
		CustomerEmail:   input.CustomerEmail,
		Fulfilment:      input.Fulfilment,
		PaymentMethod:   input.PaymentMethod,
		Status:          enums.OrderStatusPending,
		TotalCents:      total,
		DeliveryAddress: input.DeliveryAddress,
		Note:            input.Note,
		PickupCode:      pickupCode,
		TrackingToken:   trackingToken,
		IdempotencyKey:  input.IdempotencyKey,
		Provenance:      input.Provenance,
		Items:           items,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.orderRepo.WithTx(tx).Create(ctx, order)
	})
	if err != nil {
		// A concurrent request with the same idempotency key won the race;
		// hand back the order it created.
		if input.IdempotencyKey != nil && db.IsUniqueViolation(err, "") {
			existing, findErr := s.orderRepo.FindByIdempotencyKey(ctx, input.StoreID, *input.IdempotencyKey)
			if findErr == nil {
				return existing, nil
			}
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
	}

	s.metrics.IncOrderPlaced(string(order.Provenance))
	if s.notifier != nil {
		s.notifier.OrderPlaced(ctx, store, order)
	}
	return order, nil
}

func (s *service) validate(input *PlaceOrderInput) error {
	if input.StoreID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "store id is required")
	}
	if len(input.Lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}
	if strings.TrimSpace(input.CustomerName) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer name is required")
	}
	if strings.TrimSpace(input.CustomerPhone) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer phone is required")
	}
	if input.Fulfilment == "" {
		input.Fulfilment = enums.FulfilmentKindCollection
	}
	if !input.Fulfilment.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid fulfilment kind")
	}
	if input.Fulfilment == enums.FulfilmentKindDelivery &&
		(input.DeliveryAddress == nil || strings.TrimSpace(*input.DeliveryAddress) == "") {
		return pkgerrors.New(pkgerrors.CodeValidation, "delivery orders require a delivery address")
	}
	if input.PaymentMethod == "" {
		input.PaymentMethod = enums.PaymentMethodCash
	}
	if !input.PaymentMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if input.Provenance == "" {
		input.Provenance = enums.OrderProvenanceCustomer
	}
	if !input.Provenance.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid order provenance")
	}
	if input.IdempotencyKey != nil && strings.TrimSpace(*input.IdempotencyKey) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "idempotency key cannot be empty")
	}
	return nil
}

// snapshotLines resolves every cart line against the store's catalog and
// freezes name, unit price, and line total. Quantities are clamped to the
// configured per-line bounds rather than rejected.
func (s *service) snapshotLines(ctx context.Context, storeID uuid.UUID, lines []Line) ([]models.OrderItem, int, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	seen := make(map[uuid.UUID]bool, len(lines))
	for _, line := range lines {
		if line.ProductID == uuid.Nil {
			return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "product id is required on every line")
		}
		if !seen[line.ProductID] {
			seen[line.ProductID] = true
			ids = append(ids, line.ProductID)
		}
	}

	found, err := s.productRepo.FindByIDs(ctx, storeID, ids)
	if err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve products")
	}
	byID := make(map[uuid.UUID]models.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}

	items := make([]models.OrderItem, 0, len(lines))
	total := 0
	for _, line := range lines {
		product, ok := byID[line.ProductID]
		if !ok {
			return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "order references a product that does not belong to this store")
		}
		if !product.Available || product.ArchivedAt != nil {
			return nil, 0, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("%s is not available right now", product.Name))
		}
		qty := clampQty(line.Quantity, s.cfg.MinLineQty, s.cfg.MaxLineQty)
		lineTotal := product.PriceCents * qty
		items = append(items, models.OrderItem{
			ID:         uuid.New(),
			ProductID:  product.ID,
			Name:       product.Name,
			Qty:        qty,
			UnitCents:  product.PriceCents,
			TotalCents: lineTotal,
		})
		total += lineTotal
	}
	return items, total, nil
}

func clampQty(qty, min, max int) int {
	if min < 1 {
		min = 1
	}
	if qty < min {
		return min
	}
	if max >= min && qty > max {
		return max
	}
	return qty
}
