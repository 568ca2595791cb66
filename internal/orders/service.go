package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/internal/fees"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/internal/notifications"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/internal/stores"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/config"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/db/models"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/enums"
	pkgerrors "github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/errors"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/logger"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/pagination"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/redis"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service drives the order lifecycle for store owners and exposes the public
// tracking lookup.
type Service interface {
	SetStatus(ctx context.Context, input SetStatusInput) (*models.Order, error)
	ConfirmWithCode(ctx context.Context, input ConfirmInput) (*models.Order, error)
	GetByID(ctx context.Context, storeID, orderID uuid.UUID) (*models.Order, error)
	TrackByToken(ctx context.Context, token string) (*models.Order, error)
	ListByStore(ctx context.Context, storeID uuid.UUID, status *enums.OrderStatus, params pagination.Params) ([]models.Order, error)
}

// SetStatusInput identifies the order and the status the owner wants it in.
type SetStatusInput struct {
	StoreID uuid.UUID
	OrderID uuid.UUID
	Status  enums.OrderStatus
}

// ConfirmInput carries a pickup/delivery code submitted at handover.
type ConfirmInput struct {
	StoreID uuid.UUID
	OrderID uuid.UUID
	Code    string
}

type service struct {
	repo      Repository
	storeRepo stores.Repository
	fees      fees.Service
	notifier  notifications.Service
	limiter   redis.AttemptLimiter
	limitCfg  config.ConfirmRateLimitConfig
	tx        txRunner
	logg      *logger.Logger
}

// ServiceParams bundles the order service dependencies. Notifier and Limiter
// are optional; without a limiter confirmation attempts are unbounded.
type ServiceParams struct {
	Repo         Repository
	StoreRepo    stores.Repository
	Fees         fees.Service
	Notifier     notifications.Service
	Limiter      redis.AttemptLimiter
	ConfirmLimit config.ConfirmRateLimitConfig
	Tx           txRunner
	Logger       *logger.Logger
}

// NewService wires the order lifecycle service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if params.StoreRepo == nil {
		return nil, fmt.Errorf("store repository required")
	}
	if params.Fees == nil {
		return nil, fmt.Errorf("fee service required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		params.Logger = logger.New(logger.Options{})
	}
	return &service{
		repo:      params.Repo,
		storeRepo: params.StoreRepo,
		fees:      params.Fees,
		notifier:  params.Notifier,
		limiter:   params.Limiter,
		limitCfg:  params.ConfirmLimit,
		tx:        params.Tx,
		logg:      params.Logger,
	}, nil
}

// nextStatuses describes the legal transition graph. Ready states are
// narrowed further by the order's fulfilment kind.
var nextStatuses = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:            {enums.OrderStatusAccepted, enums.OrderStatusCancelled},
	enums.OrderStatusAccepted:           {enums.OrderStatusInPreparation, enums.OrderStatusCancelled},
	enums.OrderStatusInPreparation:      {enums.OrderStatusReadyForCollection, enums.OrderStatusOutForDelivery, enums.OrderStatusCancelled},
	enums.OrderStatusReadyForCollection: {enums.OrderStatusCompleted, enums.OrderStatusCancelled},
	enums.OrderStatusOutForDelivery:     {enums.OrderStatusCompleted, enums.OrderStatusCancelled},
}

func transitionAllowed(order *models.Order, target enums.OrderStatus) bool {
	for _, candidate := range nextStatuses[order.Status] {
		if candidate != target {
			continue
		}
		// A collection order never goes out for delivery and vice versa.
		if target == enums.OrderStatusReadyForCollection || target == enums.OrderStatusOutForDelivery {
			return target == order.Fulfilment.ReadyStatus()
		}
		return true
	}
	return false
}

// SetStatus moves an order along the lifecycle graph. Setting the current
// status again is a no-op. The first entry into the ready state fires a
// best-effort customer notification after the write commits.
func (s *service) SetStatus(ctx context.Context, input SetStatusInput) (*models.Order, error) {
	if input.StoreID == uuid.Nil || input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id and order id are required")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}

	var order *models.Order
	becameReady := false
	completed := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		found, err := repo.FindByIDForUpdate(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find order")
		}
		if found.StoreID != input.StoreID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another store")
		}
		if found.Status == input.Status {
			order = found
			return nil
		}
		if !transitionAllowed(found, input.Status) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot move order from %s to %s", found.Status, input.Status))
		}

		found.Status = input.Status
		if input.Status == enums.OrderStatusCompleted {
			now := time.Now().UTC()
			found.CompletedAt = &now
			completed = true
		}
		if input.Status == found.Fulfilment.ReadyStatus() {
			becameReady = true
		}
		if err := repo.Update(ctx, found); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
		}
		order = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	if becameReady {
		s.notifyReady(ctx, order)
	}
	if completed {
		s.chargeFee(ctx, order.ID)
	}
	return order, nil
}

// ConfirmWithCode completes a ready order when the submitted code matches its
// pickup code. A wrong code or a not-yet-ready order returns the unchanged
// order without an error; the response does not reveal which check failed.
func (s *service) ConfirmWithCode(ctx context.Context, input ConfirmInput) (*models.Order, error) {
	if input.StoreID == uuid.Nil || input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id and order id are required")
	}
	code := strings.TrimSpace(input.Code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "confirmation code is required")
	}

	if err := s.allowAttempt(ctx, input.OrderID); err != nil {
		return nil, err
	}

	var order *models.Order
	confirmed := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		found, err := repo.FindByIDForUpdate(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find order")
		}
		if found.StoreID != input.StoreID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another store")
		}

		order = found
		ready := found.Status == enums.OrderStatusReadyForCollection ||
			found.Status == enums.OrderStatusOutForDelivery
		if !ready || found.PickupCode != code {
			return nil
		}

		now := time.Now().UTC()
		found.Status = enums.OrderStatusCompleted
		found.CompletedAt = &now
		if err := repo.Update(ctx, found); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "complete order")
		}
		confirmed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if confirmed {
		s.chargeFee(ctx, order.ID)
	}
	return order, nil
}

func (s *service) GetByID(ctx context.Context, storeID, orderID uuid.UUID) (*models.Order, error) {
	if storeID == uuid.Nil || orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id and order id are required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find order")
	}
	if order.StoreID != storeID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another store")
	}
	return order, nil
}

// TrackByToken is the public, unauthenticated lookup backing the customer
// tracking page.
func (s *service) TrackByToken(ctx context.Context, token string) (*models.Order, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tracking token is required")
	}
	order, err := s.repo.FindByTrackingToken(ctx, token)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find order by tracking token")
	}
	return order, nil
}

func (s *service) ListByStore(ctx context.Context, storeID uuid.UUID, status *enums.OrderStatus, params pagination.Params) ([]models.Order, error) {
	if storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id is required")
	}
	if status != nil && !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	list, err := s.repo.ListByStore(ctx, storeID, status, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	return list, nil
}

// allowAttempt bounds confirmation guesses per order through the fixed-window
// counter. Counter backend failures are logged and the attempt allowed, so a
// Redis outage never blocks handovers.
func (s *service) allowAttempt(ctx context.Context, orderID uuid.UUID) error {
	if s.limiter == nil || s.limitCfg.Attempts <= 0 {
		return nil
	}
	allowed, _, err := s.limiter.FixedWindowAllow(ctx, "confirm:"+orderID.String(),
		int64(s.limitCfg.Attempts), s.limitCfg.Window)
	if err != nil {
		s.logg.Error(s.logg.WithOrderID(ctx, orderID.String()), "confirm rate limiter unavailable", err)
		return nil
	}
	if !allowed {
		return pkgerrors.New(pkgerrors.CodeRateLimit, "too many confirmation attempts, try again shortly")
	}
	return nil
}

func (s *service) notifyReady(ctx context.Context, order *models.Order) {
	if s.notifier == nil {
		return
	}
	store, err := s.storeRepo.FindByID(ctx, order.StoreID)
	if err != nil {
		s.logg.Error(s.logg.WithOrderID(ctx, order.ID.String()), "load store for ready notification", err)
		return
	}
	s.notifier.OrderReady(ctx, store, order)
}

func (s *service) chargeFee(ctx context.Context, orderID uuid.UUID) {
	if err := s.fees.ChargeOnCompletion(ctx, orderID); err != nil {
		// The completion already committed; the charger re-runs safely on the
		// next invocation thanks to its own idempotency guard.
		s.logg.Error(s.logg.WithOrderID(ctx, orderID.String()), "platform fee charge failed", err)
	}
}
