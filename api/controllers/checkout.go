package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/api/responses"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/api/validators"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/internal/checkout"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/internal/stores"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/db/models"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/enums"
	pkgerrors "github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/errors"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/logger"
)

type checkoutLine struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
}

type checkoutRequest struct {
	Lines           []checkoutLine `json:"lines" validate:"required,min=1,dive"`
	CustomerName    string         `json:"customer_name" validate:"required"`
	CustomerPhone   string         `json:"customer_phone" validate:"required"`
	CustomerEmail   *string        `json:"customer_email,omitempty" validate:"omitempty,email"`
	Fulfilment      string         `json:"fulfilment,omitempty" validate:"omitempty,oneof=collection delivery"`
	PaymentMethod   string         `json:"payment_method,omitempty" validate:"omitempty,oneof=cash card_on_handover"`
	DeliveryAddress *string        `json:"delivery_address,omitempty"`
	Note            *string        `json:"note,omitempty"`
}

type orderItemView struct {
	ProductID  uuid.UUID `json:"product_id"`
	Name       string    `json:"name"`
	Qty        int       `json:"qty"`
	UnitCents  int       `json:"unit_cents"`
	TotalCents int       `json:"total_cents"`
}

// checkoutView is the one response that carries both secrets: the pickup code
// the customer reads out at handover and the tracking token for the status
// page. Neither is recoverable through any other public endpoint.
type checkoutView struct {
	OrderID       uuid.UUID            `json:"order_id"`
	Status        enums.OrderStatus    `json:"status"`
	Fulfilment    enums.FulfilmentKind `json:"fulfilment"`
	PaymentMethod enums.PaymentMethod  `json:"payment_method"`
	TotalCents    int                  `json:"total_cents"`
	PickupCode    string               `json:"pickup_code"`
	TrackingToken string               `json:"tracking_token"`
	Items         []orderItemView      `json:"items"`
	CreatedAt     time.Time            `json:"created_at"`
}

func orderItemViews(items []models.OrderItem) []orderItemView {
	views := make([]orderItemView, 0, len(items))
	for _, item := range items {
		views = append(views, orderItemView{
			ProductID:  item.ProductID,
			Name:       item.Name,
			Qty:        item.Qty,
			UnitCents:  item.UnitCents,
			TotalCents: item.TotalCents,
		})
	}
	return views
}

// Checkout places a customer order against the store identified by slug.
// Clients may send an Idempotency-Key header to make retries safe.
func Checkout(checkoutSvc checkout.Service, storeSvc stores.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checkoutSvc == nil || storeSvc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		store, err := storeSvc.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req checkoutRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lines := make([]checkout.Line, 0, len(req.Lines))
		for _, line := range req.Lines {
			lines = append(lines, checkout.Line{ProductID: line.ProductID, Quantity: line.Quantity})
		}

		var idempotencyKey *string
		if key := r.Header.Get("Idempotency-Key"); key != "" {
			idempotencyKey = &key
		}

		order, err := checkoutSvc.PlaceOrder(r.Context(), checkout.PlaceOrderInput{
			StoreID:         store.ID,
			Lines:           lines,
			CustomerName:    req.CustomerName,
			CustomerPhone:   req.CustomerPhone,
			CustomerEmail:   req.CustomerEmail,
			Fulfilment:      enums.FulfilmentKind(req.Fulfilment),
			PaymentMethod:   enums.PaymentMethod(req.PaymentMethod),
			DeliveryAddress: req.DeliveryAddress,
			Note:            req.Note,
			IdempotencyKey:  idempotencyKey,
			Provenance:      enums.OrderProvenanceCustomer,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, checkoutView{
			OrderID:       order.ID,
			Status:        order.Status,
			Fulfilment:    order.Fulfilment,
			PaymentMethod: order.PaymentMethod,
			TotalCents:    order.TotalCents,
			PickupCode:    order.PickupCode,
			TrackingToken: order.TrackingToken,
			Items:         orderItemViews(order.Items),
			CreatedAt:     order.CreatedAt,
		})
	}
}
