package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/api/middleware"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/internal/orders"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/db/models"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/enums"
	pkgerrors "github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/errors"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/pagination"
)

type stubOrderService struct {
	list        []models.Order
	order       *models.Order
	err         error
	setStatus   orders.SetStatusInput
	confirm     orders.ConfirmInput
	listStoreID uuid.UUID
	listStatus  *enums.OrderStatus
}

func (s *stubOrderService) SetStatus(ctx context.Context, input orders.SetStatusInput) (*models.Order, error) {
	s.setStatus = input
	return s.order, s.err
}

func (s *stubOrderService) ConfirmWithCode(ctx context.Context, input orders.ConfirmInput) (*models.Order, error) {
	s.confirm = input
	return s.order, s.err
}

func (s *stubOrderService) GetByID(ctx context.Context, storeID, orderID uuid.UUID) (*models.Order, error) {
	return s.order, s.err
}

func (s *stubOrderService) TrackByToken(ctx context.Context, token string) (*models.Order, error) {
	return s.order, s.err
}

func (s *stubOrderService) ListByStore(ctx context.Context, storeID uuid.UUID, status *enums.OrderStatus, params pagination.Params) ([]models.Order, error) {
	s.listStoreID = storeID
	s.listStatus = status
	return s.list, s.err
}

func ownerRequest(method, target, body string, storeID uuid.UUID) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	return req.WithContext(middleware.WithStoreID(req.Context(), storeID.String()))
}

func TestOrdersListTrimsBufferedPage(t *testing.T) {
	t.Parallel()

	storeID := uuid.New()
	base := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	// Three rows back for a page size of two: the extra row signals a next page.
	list := make([]models.Order, 0, 3)
	for i := 0; i < 3; i++ {
		list = append(list, models.Order{
			ID:        uuid.New(),
			StoreID:   storeID,
			Status:    enums.OrderStatusPending,
			CreatedAt: base.Add(-time.Duration(i) * time.Minute),
		})
	}
	svc := &stubOrderService{list: list}

	req := ownerRequest(http.MethodGet, "/api/v1/me/orders?limit=2&status=pending", "", storeID)
	rec := httptest.NewRecorder()
	OrdersList(svc, nil).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data struct {
			Orders     []json.RawMessage `json:"orders"`
			NextCursor string            `json:"next_cursor"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Orders) != 2 {
		t.Fatalf("expected 2 orders on the page, got %d", len(envelope.Data.Orders))
	}
	if envelope.Data.NextCursor == "" {
		t.Fatalf("expected a next cursor when an extra row came back")
	}

	cursor, err := pagination.ParseCursor(envelope.Data.NextCursor)
	if err != nil {
		t.Fatalf("returned cursor must round-trip: %v", err)
	}
	if cursor.ID != list[1].ID {
		t.Fatalf("cursor should point at the last row of the page")
	}

	if svc.listStoreID != storeID {
		t.Fatalf("store scope not forwarded")
	}
	if svc.listStatus == nil || *svc.listStatus != enums.OrderStatusPending {
		t.Fatalf("status filter not forwarded: %v", svc.listStatus)
	}
}

func TestOrdersListRejectsBadStatus(t *testing.T) {
	t.Parallel()

	svc := &stubOrderService{}
	req := ownerRequest(http.MethodGet, "/api/v1/me/orders?status=simmering", "", uuid.New())
	rec := httptest.NewRecorder()
	OrdersList(svc, nil).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", rec.Code)
	}
}

func TestOrdersListRequiresStoreContext(t *testing.T) {
	t.Parallel()

	svc := &stubOrderService{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me/orders", nil)
	rec := httptest.NewRecorder()
	OrdersList(svc, nil).ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without store context, got %d", rec.Code)
	}
}

func TestOrderSetStatusForwardsTransition(t *testing.T) {
	t.Parallel()

	storeID := uuid.New()
	orderID := uuid.New()
	svc := &stubOrderService{order: &models.Order{ID: orderID, StoreID: storeID, Status: enums.OrderStatusAccepted}}

	r := chi.NewRouter()
	r.Post("/api/v1/me/orders/{orderId}/status", OrderSetStatus(svc, nil))

	req := ownerRequest(http.MethodPost, "/api/v1/me/orders/"+orderID.String()+"/status", `{"status":"accepted"}`, storeID)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.setStatus.OrderID != orderID || svc.setStatus.StoreID != storeID {
		t.Fatalf("identifiers not forwarded: %+v", svc.setStatus)
	}
	if svc.setStatus.Status != enums.OrderStatusAccepted {
		t.Fatalf("status not forwarded: %s", svc.setStatus.Status)
	}
}

func TestOrderConfirmValidatesCodeShape(t *testing.T) {
	t.Parallel()

	storeID := uuid.New()
	orderID := uuid.New()
	svc := &stubOrderService{order: &models.Order{ID: orderID, StoreID: storeID}}

	r := chi.NewRouter()
	r.Post("/api/v1/me/orders/{orderId}/confirm", OrderConfirm(svc, nil))

	req := ownerRequest(http.MethodPost, "/api/v1/me/orders/"+orderID.String()+"/confirm", `{"code":"12ab56"}`, storeID)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-numeric code, got %d", rec.Code)
	}

	req2 := ownerRequest(http.MethodPost, "/api/v1/me/orders/"+orderID.String()+"/confirm", `{"code":"482913"}`, storeID)
	rec2 := httptest.NewRecorder()
	r.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec2.Code, rec2.Body.String())
	}
	if svc.confirm.Code != "482913" {
		t.Fatalf("code not forwarded: %q", svc.confirm.Code)
	}
}

func TestOrderTrackOmitsPickupCode(t *testing.T) {
	t.Parallel()

	svc := &stubOrderService{order: &models.Order{
		ID:            uuid.New(),
		Status:        enums.OrderStatusReadyForCollection,
		Fulfilment:    enums.FulfilmentKindCollection,
		TotalCents:    4500,
		PickupCode:    "482913",
		TrackingToken: "tok_public",
	}}

	r := chi.NewRouter()
	r.Get("/api/v1/orders/track/{token}", OrderTrack(svc, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/track/tok_public", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "482913") {
		t.Fatalf("tracking view must not leak the pickup code: %s", rec.Body.String())
	}
}

func TestOrderTrackNotFound(t *testing.T) {
	t.Parallel()

	svc := &stubOrderService{err: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}

	r := chi.NewRouter()
	r.Get("/api/v1/orders/track/{token}", OrderTrack(svc, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/track/nope", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
