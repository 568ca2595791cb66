package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/db/models"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/enums"
	pkgerrors "github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/errors"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service is the only write path onto a store's credit balance.
type Service interface {
	Apply(ctx context.Context, input ApplyInput) (*models.LedgerEntry, error)
	Balance(ctx context.Context, storeID uuid.UUID) (int64, error)
	List(ctx context.Context, storeID uuid.UUID, params pagination.Params) ([]models.LedgerEntry, error)
}

type service struct {
	repo Repository
	tx   txRunner
}

// ApplyInput captures one balance mutation. AmountCents is always positive;
// the entry type decides the sign applied to the balance.
type ApplyInput struct {
	StoreID     uuid.UUID
	Type        enums.LedgerEntryType
	AmountCents int64
	OrderID     *uuid.UUID
	Note        *string
}

// NewService wires a ledger service with the provided repository and runner.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) Apply(ctx context.Context, input ApplyInput) (*models.LedgerEntry, error) {
	if input.StoreID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id is required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid ledger entry type %q", input.Type))
	}
	if input.Type == enums.LedgerEntryTypeAdjustment {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustments cannot be applied through the generic entry point")
	}
	if input.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	var entry *models.LedgerEntry
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		store, err := repo.LockStore(ctx, input.StoreID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock store")
		}

		newBalance := store.CreditCents + int64(input.Type.BalanceMultiplier())*input.AmountCents

		entry = &models.LedgerEntry{
			ID:           uuid.New(),
			StoreID:      input.StoreID,
			OrderID:      input.OrderID,
			Type:         input.Type,
			Status:       enums.LedgerEntryStatusCompleted,
			AmountCents:  input.AmountCents,
			BalanceCents: &newBalance,
			Note:         input.Note,
		}
		if err := repo.CreateEntry(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create ledger entry")
		}
		if err := repo.SaveStoreBalance(ctx, input.StoreID, newBalance); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist store balance")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) Balance(ctx context.Context, storeID uuid.UUID) (int64, error) {
	if storeID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "store id is required")
	}
	store, err := s.repo.FindStore(ctx, storeID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load store")
	}
	return store.CreditCents, nil
}

func (s *service) List(ctx context.Context, storeID uuid.UUID, params pagination.Params) ([]models.LedgerEntry, error) {
	if storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id is required")
	}
	entries, err := s.repo.ListByStore(ctx, storeID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list ledger entries")
	}
	return entries, nil
}
