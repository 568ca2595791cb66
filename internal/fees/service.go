package fees

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/internal/ledger"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/config"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/db/models"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/enums"
	pkgerrors "github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/errors"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service charges the platform fee against store credit when orders complete.
type Service interface {
	ChargeOnCompletion(ctx context.Context, orderID uuid.UUID) error
	QuoteFeeCents(totalCents int) int
}

type service struct {
	repo       Repository
	ledgerRepo ledger.Repository
	tx         txRunner
	cfg        config.PlatformConfig
	metrics    *metrics.PlatformMetrics
}

// ServiceParams bundles the fee charger dependencies.
type ServiceParams struct {
	Repo       Repository
	LedgerRepo ledger.Repository
	Tx         txRunner
	Platform   config.PlatformConfig
	Metrics    *metrics.PlatformMetrics
}

// NewService wires the platform fee charger.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("fees repository required")
	}
	if params.LedgerRepo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:       params.Repo,
		ledgerRepo: params.LedgerRepo,
		tx:         params.Tx,
		cfg:        params.Platform,
		metrics:    params.Metrics,
	}, nil
}

// QuoteFeeCents computes the platform fee for the given order total using
// the configured rate, rounded half up to the nearest cent.
func (s *service) QuoteFeeCents(totalCents int) int {
	if totalCents <= 0 {
		return 0
	}
	fee := decimal.NewFromInt(int64(totalCents)).
		Mul(decimal.NewFromFloat(s.cfg.FeeRate)).
		Round(0)
	return int(fee.IntPart())
}

// ChargeOnCompletion applies the fee debit exactly once per completed order.
// Missing, non-completed, and already-charged orders are no-op successes so
// callers can invoke it unconditionally.
func (s *service) ChargeOnCompletion(ctx context.Context, orderID uuid.UUID) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	var chargedCents int
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindOrderForUpdate(ctx, orderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
		}
		if order.Status != enums.OrderStatusCompleted || order.PlatformFeePaid {
			return nil
		}

		fee := order.PlatformFeeCents
		if fee <= 0 {
			fee = s.QuoteFeeCents(order.TotalCents)
		}
		if fee <= 0 {
			return repo.SaveOrderFee(ctx, order.ID, 0, true)
		}

		ledgerRepo := s.ledgerRepo.WithTx(tx)
		store, err := ledgerRepo.LockStore(ctx, order.StoreID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock store")
		}

		newBalance := store.CreditCents - int64(fee)
		entry := &models.LedgerEntry{
			ID:           uuid.New(),
			StoreID:      order.StoreID,
			OrderID:      &order.ID,
			Type:         enums.LedgerEntryTypeFeeDebit,
			Status:       enums.LedgerEntryStatusCompleted,
			AmountCents:  int64(fee),
			BalanceCents: &newBalance,
		}
		if err := ledgerRepo.CreateEntry(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create fee entry")
		}
		if err := ledgerRepo.SaveStoreBalance(ctx, order.StoreID, newBalance); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist store balance")
		}
		if err := repo.SaveOrderFee(ctx, order.ID, fee, true); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark order fee paid")
		}

		chargedCents = fee
		return nil
	})
	if err != nil {
		return err
	}

	if chargedCents > 0 {
		s.metrics.IncFeeCharged(int64(chargedCents))
	}
	return nil
}
