package topups

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/internal/ledger"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/config"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/db/models"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/enums"
	pkgerrors "github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/errors"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/logger"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/metrics"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/payments"
)

const providerName = "paygate"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type checkoutCreator interface {
	CreateCheckout(ctx context.Context, req payments.CheckoutRequest) (*payments.CheckoutSession, error)
}

// Service opens credit top-up checkout sessions and reconciles the gateway's
// webhook deliveries against the pending ledger entries they settle.
type Service interface {
	Initiate(ctx context.Context, input InitiateInput) (*InitiateResult, error)
	HandleEvent(ctx context.Context, event payments.WebhookEvent) error
	RequiredForStore(ctx context.Context, storeID uuid.UUID) (int64, error)
}

// InitiateInput is an owner's request to load credit.
type InitiateInput struct {
	StoreID     uuid.UUID
	AmountCents int64
}

// InitiateResult hands back the pending entry and where to send the owner.
type InitiateResult struct {
	Entry       *models.LedgerEntry
	RedirectURL string
}

type service struct {
	repo    ledger.Repository
	gateway checkoutCreator
	tx      txRunner
	cfg     config.PlatformConfig
	logg    *logger.Logger
	metrics *metrics.PlatformMetrics
}

// ServiceParams bundles the top-up dependencies. Metrics is optional.
type ServiceParams struct {
	LedgerRepo ledger.Repository
	Gateway    checkoutCreator
	Tx         txRunner
	Platform   config.PlatformConfig
	Logger     *logger.Logger
	Metrics    *metrics.PlatformMetrics
}

// NewService wires the top-up service.
func NewService(params ServiceParams) (Service, error) {
	if params.LedgerRepo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway client required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		params.Logger = logger.New(logger.Options{})
	}
	return &service{
		repo:    params.LedgerRepo,
		gateway: params.Gateway,
		tx:      params.Tx,
		cfg:     params.Platform,
		logg:    params.Logger,
		metrics: params.Metrics,
	}, nil
}

// RequiredTopupCents is the smallest acceptable top-up for a store carrying
// the given balance: clear any debt, then load at least the fixed minimum.
func RequiredTopupCents(balanceCents int64, minimumCents int) int64 {
	required := int64(minimumCents)
	if balanceCents < 0 {
		required += -balanceCents
	}
	return required
}

func (s *service) RequiredForStore(ctx context.Context, storeID uuid.UUID) (int64, error) {
	if storeID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "store id is required")
	}
	store, err := s.repo.FindStore(ctx, storeID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find store")
	}
	return RequiredTopupCents(store.CreditCents, s.cfg.TopupMinimumCents), nil
}

// Initiate creates the pending topup entry first so its id can travel as the
// gateway reference, then opens the hosted checkout session and stamps the
// returned session id back onto the entry.
func (s *service) Initiate(ctx context.Context, input InitiateInput) (*InitiateResult, error) {
	if input.StoreID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id is required")
	}
	if input.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "top-up amount must be positive")
	}

	store, err := s.repo.FindStore(ctx, input.StoreID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find store")
	}

	required := RequiredTopupCents(store.CreditCents, s.cfg.TopupMinimumCents)
	if input.AmountCents < required {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("top-up must be at least R%.2f", float64(required)/100))
	}

	entry := &models.LedgerEntry{
		ID:          uuid.New(),
		StoreID:     store.ID,
		Type:        enums.LedgerEntryTypeTopup,
		Status:      enums.LedgerEntryStatusPending,
		AmountCents: input.AmountCents,
	}
	if err := s.repo.CreateEntry(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create topup entry")
	}

	session, err := s.gateway.CreateCheckout(ctx, payments.CheckoutRequest{
		AmountCents: input.AmountCents,
		Currency:    s.cfg.Currency,
		Reference:   entry.ID.String(),
		Description: fmt.Sprintf("%s credit top-up", store.Name),
	})
	if err != nil {
		s.failEntry(ctx, entry, "checkout session creation failed")
		return nil, err
	}

	provider := providerName
	entry.Provider = &provider
	entry.CheckoutID = &session.ID
	if err := s.repo.UpdateEntry(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "stamp checkout session on entry")
	}

	return &InitiateResult{Entry: entry, RedirectURL: session.RedirectURL}, nil
}

// HandleEvent reconciles one verified gateway event. Events that reference no
// known pending entry, or an entry that already settled, are acknowledged
// without side effects so the gateway stops retrying them.
func (s *service) HandleEvent(ctx context.Context, event payments.WebhookEvent) error {
	switch event.Type {
	case payments.EventPaymentSucceeded, payments.EventPaymentFailed, payments.EventPaymentCanceled:
	default:
		s.logg.Info(s.logg.WithField(ctx, "event_type", event.Type), "ignoring unhandled payment event")
		return nil
	}

	entry, err := s.lookupEntry(ctx, event)
	if err != nil {
		return err
	}
	if entry == nil {
		s.logg.Warn(s.logg.WithField(ctx, "checkout_id", event.Data.CheckoutID),
			"payment event matched no topup entry")
		return nil
	}
	if entry.Status == enums.LedgerEntryStatusCompleted {
		return nil
	}

	switch event.Type {
	case payments.EventPaymentSucceeded:
		if err := s.settle(ctx, entry, event); err != nil {
			return err
		}
	default:
		note := fmt.Sprintf("payment %s", event.Type)
		entry.Status = enums.LedgerEntryStatusFailed
		entry.Note = &note
		stampProviderRefs(entry, event)
		if err := s.repo.UpdateEntry(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark topup entry failed")
		}
	}

	s.metrics.IncWebhookProcessed(event.Type)
	return nil
}

// settle applies the paid amount to the store balance and completes the entry
// in one transaction. The entry's status is re-read under the store row lock:
// concurrent deliveries for the same entry serialize on the lock, and whoever
// loses the race finds the entry already settled and leaves the balance alone.
// A store that vanished since initiation fails the entry instead of erroring,
// so the gateway gets its acknowledgement.
func (s *service) settle(ctx context.Context, entry *models.LedgerEntry, event payments.WebhookEvent) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		store, err := repo.LockStore(ctx, entry.StoreID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				note := "store not found at reconciliation"
				entry.Status = enums.LedgerEntryStatusFailed
				entry.Note = &note
				return repo.UpdateEntry(ctx, entry)
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock store")
		}

		current, err := repo.FindEntry(ctx, entry.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload topup entry")
		}
		if current.Status != enums.LedgerEntryStatusPending {
			*entry = *current
			return nil
		}

		newBalance := store.CreditCents + entry.AmountCents
		if err := repo.SaveStoreBalance(ctx, store.ID, newBalance); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save store balance")
		}

		entry.Status = enums.LedgerEntryStatusCompleted
		entry.BalanceCents = &newBalance
		stampProviderRefs(entry, event)
		if err := repo.UpdateEntry(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "complete topup entry")
		}
		return nil
	})
}

// lookupEntry prefers the reference we planted as gateway metadata (the entry
// id) and falls back to the checkout session id.
func (s *service) lookupEntry(ctx context.Context, event payments.WebhookEvent) (*models.LedgerEntry, error) {
	if id, err := uuid.Parse(event.Data.Reference); err == nil {
		entry, err := s.repo.FindEntry(ctx, id)
		if err == nil {
			if entry.Type == enums.LedgerEntryTypeTopup {
				return entry, nil
			}
		} else if err != gorm.ErrRecordNotFound {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find topup entry")
		}
	}

	if event.Data.CheckoutID == "" {
		return nil, nil
	}
	entry, err := s.repo.FindEntryByCheckoutID(ctx, event.Data.CheckoutID, enums.LedgerEntryTypeTopup)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find topup entry by checkout id")
	}
	return entry, nil
}

func (s *service) failEntry(ctx context.Context, entry *models.LedgerEntry, note string) {
	entry.Status = enums.LedgerEntryStatusFailed
	entry.Note = &note
	if err := s.repo.UpdateEntry(ctx, entry); err != nil {
		s.logg.Error(ctx, "mark topup entry failed", err)
	}
}

func stampProviderRefs(entry *models.LedgerEntry, event payments.WebhookEvent) {
	if entry.Provider == nil {
		provider := providerName
		entry.Provider = &provider
	}
	if entry.CheckoutID == nil && event.Data.CheckoutID != "" {
		checkoutID := event.Data.CheckoutID
		entry.CheckoutID = &checkoutID
	}
	if event.Data.PaymentRef != "" {
		ref := event.Data.PaymentRef
		entry.ProviderRef = &ref
	}
}
