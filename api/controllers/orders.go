package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/api/responses"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/api/validators"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/internal/checkout"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/internal/orders"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/db/models"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/enums"
	pkgerrors "github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/errors"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/logger"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/pagination"
)

// orderListView wraps the paginated orders plus the next page cursor.
type orderListView struct {
	Orders     []models.Order `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// OrdersList returns the active store's orders, newest first, optionally
// filtered to a single status. Cursor pagination via ?cursor= and ?limit=.
func OrdersList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		storeID, err := storeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var status *enums.OrderStatus
		if raw := r.URL.Query().Get("status"); raw != "" {
			parsed, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			status = &parsed
		}

		list, err := svc.ListByStore(r.Context(), storeID, status, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		// The service returns one row beyond the page size when more exist.
		view := orderListView{Orders: list}
		if len(list) > limit {
			view.Orders = list[:limit]
			last := view.Orders[len(view.Orders)-1]
			view.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		}
		responses.WriteSuccess(w, view)
	}
}

// OrderByID returns a single order belonging to the active store.
func OrderByID(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		storeID, err := storeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := uuidURLParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetByID(r.Context(), storeID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type orderStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending accepted in_preparation ready_for_collection out_for_delivery completed cancelled"`
}

// OrderSetStatus moves an order along its lifecycle.
func OrderSetStatus(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		storeID, err := storeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := uuidURLParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req orderStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.SetStatus(r.Context(), orders.SetStatusInput{
			StoreID: storeID,
			OrderID: orderID,
			Status:  enums.OrderStatus(req.Status),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type orderConfirmRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

// OrderConfirm completes an order when the submitted handover code matches.
// The response never says whether the code or the order state was wrong.
func OrderConfirm(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		storeID, err := storeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := uuidURLParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req orderConfirmRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.ConfirmWithCode(r.Context(), orders.ConfirmInput{
			StoreID: storeID,
			OrderID: orderID,
			Code:    req.Code,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type manualOrderRequest struct {
	Lines           []checkoutLine `json:"lines" validate:"required,min=1,dive"`
	CustomerName    string         `json:"customer_name" validate:"required"`
	CustomerPhone   string         `json:"customer_phone" validate:"required"`
	Fulfilment      string         `json:"fulfilment,omitempty" validate:"omitempty,oneof=collection delivery"`
	PaymentMethod   string         `json:"payment_method,omitempty" validate:"omitempty,oneof=cash card_on_handover"`
	DeliveryAddress *string        `json:"delivery_address,omitempty"`
	Note            *string        `json:"note,omitempty"`
}

// OrderCreateManual records a walk-in or phone order keyed in by the owner.
// Manual orders bypass the open/closed gate but still snapshot prices.
func OrderCreateManual(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		storeID, err := storeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req manualOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lines := make([]checkout.Line, 0, len(req.Lines))
		for _, line := range req.Lines {
			lines = append(lines, checkout.Line{ProductID: line.ProductID, Quantity: line.Quantity})
		}

		order, err := svc.PlaceOrder(r.Context(), checkout.PlaceOrderInput{
			StoreID:         storeID,
			Lines:           lines,
			CustomerName:    req.CustomerName,
			CustomerPhone:   req.CustomerPhone,
			Fulfilment:      enums.FulfilmentKind(req.Fulfilment),
			PaymentMethod:   enums.PaymentMethod(req.PaymentMethod),
			DeliveryAddress: req.DeliveryAddress,
			Note:            req.Note,
			Provenance:      enums.OrderProvenanceManual,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// trackingView is the public status page payload. It deliberately omits the
// pickup code and customer contact details.
type trackingView struct {
	Status           enums.OrderStatus    `json:"status"`
	Fulfilment       enums.FulfilmentKind `json:"fulfilment"`
	TotalCents       int                  `json:"total_cents"`
	Items            []orderItemView      `json:"items"`
	EstimatedReadyAt *time.Time           `json:"estimated_ready_at,omitempty"`
	CompletedAt      *time.Time           `json:"completed_at,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
}

// OrderTrack resolves an order by its tracking token for the customer-facing
// status page.
func OrderTrack(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		order, err := svc.TrackByToken(r.Context(), chi.URLParam(r, "token"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, trackingView{
			Status:           order.Status,
			Fulfilment:       order.Fulfilment,
			TotalCents:       order.TotalCents,
			Items:            orderItemViews(order.Items),
			EstimatedReadyAt: order.EstimatedReadyAt,
			CompletedAt:      order.CompletedAt,
			CreatedAt:        order.CreatedAt,
		})
	}
}
