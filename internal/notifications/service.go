package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/db/models"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/enums"
	pkgerrors "github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/errors"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/logger"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/mailer"
)

// EmailSender delivers notification email.
type EmailSender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// TextSender delivers WhatsApp text messages.
type TextSender interface {
	SendText(ctx context.Context, toPhone, body string) error
}

// Service dispatches order notifications to the owner dashboard and,
// best-effort, to the customer's email and WhatsApp contact points.
type Service interface {
	OrderReady(ctx context.Context, store *models.Store, order *models.Order)
	OrderPlaced(ctx context.Context, store *models.Store, order *models.Order)
	List(ctx context.Context, storeID uuid.UUID, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, storeID, id uuid.UUID) error
}

type service struct {
	repo  Repository
	email EmailSender
	text  TextSender
	logg  *logger.Logger
}

// ServiceParams bundles the notification dependencies. Email and Text may be
// nil when the provider is not configured; those channels are then skipped.
type ServiceParams struct {
	Repo   Repository
	Email  EmailSender
	Text   TextSender
	Logger *logger.Logger
}

// NewService wires the notification dispatcher.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:  params.Repo,
		email: params.Email,
		text:  params.Text,
		logg:  params.Logger,
	}, nil
}

// OrderReady fires when an order first reaches its ready state. Every channel
// is best-effort; failures are aggregated, logged, and swallowed.
func (s *service) OrderReady(ctx context.Context, store *models.Store, order *models.Order) {
	if store == nil || order == nil {
		return
	}

	title := "Order ready"
	var body string
	if order.Fulfilment == enums.FulfilmentKindDelivery {
		body = fmt.Sprintf("Order for %s is out for delivery.", order.CustomerName)
	} else {
		body = fmt.Sprintf("Order for %s is ready for collection. Pickup code: %s.", order.CustomerName, order.PickupCode)
	}

	s.dispatch(ctx, store, order, title, body, customerContacts(order))
}

// OrderPlaced notifies the owner that a new order arrived.
func (s *service) OrderPlaced(ctx context.Context, store *models.Store, order *models.Order) {
	if store == nil || order == nil {
		return
	}

	title := "New order"
	body := fmt.Sprintf("New %s order from %s, total R%.2f.", order.Fulfilment, order.CustomerName, float64(order.TotalCents)/100)

	s.dispatch(ctx, store, order, title, body, contacts{email: store.Email, phone: store.WhatsAppPhone})
}

type contacts struct {
	email *string
	phone *string
}

func customerContacts(order *models.Order) contacts {
	c := contacts{email: order.CustomerEmail}
	if order.CustomerPhone != "" {
		phone := order.CustomerPhone
		c.phone = &phone
	}
	return c
}

func (s *service) dispatch(ctx context.Context, store *models.Store, order *models.Order, title, body string, to contacts) {
	var errs error

	row := &models.Notification{
		ID:      uuid.New(),
		StoreID: store.ID,
		OrderID: &order.ID,
		Channel: enums.NotificationChannelInApp,
		Title:   title,
		Message: body,
	}
	if err := s.repo.Create(ctx, row); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("in_app: %w", err))
	}

	if s.email != nil && to.email != nil && *to.email != "" {
		err := s.email.Send(ctx, mailer.Message{
			To:      *to.email,
			Subject: title,
			Text:    body,
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("email: %w", err))
		}
	}

	if s.text != nil && to.phone != nil && *to.phone != "" {
		if err := s.text.SendText(ctx, *to.phone, body); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("whatsapp: %w", err))
		}
	}

	if errs != nil {
		ctx = s.logg.WithOrderID(ctx, order.ID.String())
		s.logg.Error(ctx, "notification dispatch incomplete", errs)
	}
}

func (s *service) List(ctx context.Context, storeID uuid.UUID, limit int) ([]models.Notification, error) {
	if storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id is required")
	}
	rows, err := s.repo.ListByStore(ctx, storeID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list notifications")
	}
	return rows, nil
}

func (s *service) MarkRead(ctx context.Context, storeID, id uuid.UUID) error {
	if storeID == uuid.Nil || id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "store id and notification id are required")
	}
	if err := s.repo.MarkRead(ctx, storeID, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark notification read")
	}
	return nil
}
