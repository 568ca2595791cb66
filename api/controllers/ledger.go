package controllers

import (
	"net/http"

	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/api/responses"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/api/validators"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/internal/ledger"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/internal/topups"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/db/models"
	pkgerrors "github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/errors"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/logger"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/pagination"
)

type balanceView struct {
	BalanceCents int64  `json:"balance_cents"`
	Currency     string `json:"currency"`
}

// LedgerBalance returns the active store's current credit balance.
func LedgerBalance(svc ledger.Service, currency string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		storeID, err := storeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		balance, err := svc.Balance(r.Context(), storeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, balanceView{BalanceCents: balance, Currency: currency})
	}
}

// ledgerListView wraps the paginated entries plus the next page cursor.
type ledgerListView struct {
	Entries    []models.LedgerEntry `json:"entries"`
	NextCursor string               `json:"next_cursor,omitempty"`
}

// LedgerEntries lists the store's ledger history, newest first.
func LedgerEntries(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
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

		list, err := svc.List(r.Context(), storeID, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view := ledgerListView{Entries: list}
		if len(list) > limit {
			view.Entries = list[:limit]
			last := view.Entries[len(view.Entries)-1]
			view.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		}
		responses.WriteSuccess(w, view)
	}
}

type topupInitiateRequest struct {
	AmountCents int64 `json:"amount_cents" validate:"required,gt=0"`
}

type topupInitiateView struct {
	Entry       *models.LedgerEntry `json:"entry"`
	RedirectURL string              `json:"redirect_url"`
}

// TopupInitiate starts a hosted-checkout credit top-up and returns where to
// send the owner's browser.
func TopupInitiate(svc topups.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "topup service unavailable"))
			return
		}

		storeID, err := storeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req topupInitiateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Initiate(r.Context(), topups.InitiateInput{
			StoreID:     storeID,
			AmountCents: req.AmountCents,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, topupInitiateView{
			Entry:       result.Entry,
			RedirectURL: result.RedirectURL,
		})
	}
}

type topupRequiredView struct {
	RequiredCents int64 `json:"required_cents"`
}

// TopupRequired tells the owner the smallest top-up that clears any debt and
// restores the minimum balance.
func TopupRequired(svc topups.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "topup service unavailable"))
			return
		}

		storeID, err := storeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		required, err := svc.RequiredForStore(r.Context(), storeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, topupRequiredView{RequiredCents: required})
	}
}
