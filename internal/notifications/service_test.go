package notifications

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/db/models"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/enums"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/logger"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/mailer"
)

type fakeRepo struct {
	created  []*models.Notification
	createFn func(*models.Notification) error
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) Create(ctx context.Context, n *models.Notification) error {
	if f.createFn != nil {
		if err := f.createFn(n); err != nil {
			return err
		}
	}
	f.created = append(f.created, n)
	return nil
}

func (f *fakeRepo) ListByStore(ctx context.Context, storeID uuid.UUID, limit int) ([]models.Notification, error) {
	var rows []models.Notification
	for _, n := range f.created {
		if n.StoreID == storeID {
			rows = append(rows, *n)
		}
	}
	return rows, nil
}

func (f *fakeRepo) MarkRead(ctx context.Context, storeID, id uuid.UUID) error { return nil }

type fakeEmail struct {
	sent []mailer.Message
	err  error
}

func (f *fakeEmail) Send(ctx context.Context, msg mailer.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakeText struct {
	sent []string
	err  error
}

func (f *fakeText) SendText(ctx context.Context, to, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to)
	return nil
}

func testNotificationsService(t *testing.T, repo Repository, email EmailSender, text TextSender) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:   repo,
		Email:  email,
		Text:   text,
		Logger: logger.New(logger.Options{}),
	})
	require.NoError(t, err)
	return svc
}

func readyOrder(storeID uuid.UUID) *models.Order {
	email := "customer@example.com"
	return &models.Order{
		ID:            uuid.New(),
		StoreID:       storeID,
		CustomerName:  "Bongani",
		CustomerPhone: "27831234567",
		CustomerEmail: &email,
		Fulfilment:    enums.FulfilmentKindCollection,
		PickupCode:    "482910",
		Status:        enums.OrderStatusReadyForCollection,
	}
}

func TestOrderReadyFansOut(t *testing.T) {
	repo := &fakeRepo{}
	email := &fakeEmail{}
	text := &fakeText{}
	svc := testNotificationsService(t, repo, email, text)

	store := &models.Store{ID: uuid.New(), Name: "Gogo's Kitchen"}
	order := readyOrder(store.ID)

	svc.OrderReady(context.Background(), store, order)

	require.Len(t, repo.created, 1)
	assert.Equal(t, enums.NotificationChannelInApp, repo.created[0].Channel)
	assert.Contains(t, repo.created[0].Message, order.PickupCode)

	require.Len(t, email.sent, 1)
	assert.Equal(t, "customer@example.com", email.sent[0].To)

	require.Len(t, text.sent, 1)
	assert.Equal(t, "27831234567", text.sent[0])
}

func TestOrderReadySwallowsTransportFailures(t *testing.T) {
	repo := &fakeRepo{}
	email := &fakeEmail{err: errors.New("provider down")}
	text := &fakeText{err: errors.New("rate limited")}
	svc := testNotificationsService(t, repo, email, text)

	store := &models.Store{ID: uuid.New()}
	order := readyOrder(store.ID)

	// must not panic or surface the transport errors
	svc.OrderReady(context.Background(), store, order)

	require.Len(t, repo.created, 1)
}

func TestOrderReadySkipsMissingContacts(t *testing.T) {
	repo := &fakeRepo{}
	email := &fakeEmail{}
	text := &fakeText{}
	svc := testNotificationsService(t, repo, email, text)

	store := &models.Store{ID: uuid.New()}
	order := readyOrder(store.ID)
	order.CustomerEmail = nil
	order.CustomerPhone = ""

	svc.OrderReady(context.Background(), store, order)

	assert.Empty(t, email.sent)
	assert.Empty(t, text.sent)
	assert.Len(t, repo.created, 1)
}

func TestOrderReadyNilSenders(t *testing.T) {
	repo := &fakeRepo{}
	svc := testNotificationsService(t, repo, nil, nil)

	store := &models.Store{ID: uuid.New()}
	svc.OrderReady(context.Background(), store, readyOrder(store.ID))

	assert.Len(t, repo.created, 1)
}

func TestListRequiresStoreID(t *testing.T) {
	svc := testNotificationsService(t, &fakeRepo{}, nil, nil)
	_, err := svc.List(context.Background(), uuid.Nil, 10)
	require.Error(t, err)
}
