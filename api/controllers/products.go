package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/api/responses"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/api/validators"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/internal/products"
	pkgerrors "github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/errors"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/logger"
)

type productCreateRequest struct {
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description,omitempty"`
	PriceCents  int     `json:"price_cents" validate:"required,min=0"`
	ImageURL    *string `json:"image_url,omitempty"`
}

// ProductCreate adds a menu item to the active store.
func ProductCreate(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		storeID, err := storeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req productCreateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Create(r.Context(), products.CreateProductInput{
			StoreID:     storeID,
			Name:        req.Name,
			Description: req.Description,
			PriceCents:  req.PriceCents,
			ImageURL:    req.ImageURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

type productUpdateRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1"`
	Description *string `json:"description,omitempty"`
	PriceCents  *int    `json:"price_cents,omitempty" validate:"omitempty,min=0"`
	ImageURL    *string `json:"image_url,omitempty"`
}

// ProductUpdate edits a menu item owned by the active store.
func ProductUpdate(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		storeID, err := storeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := uuidURLParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req productUpdateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Update(r.Context(), products.UpdateProductInput{
			StoreID:     storeID,
			ProductID:   productID,
			Name:        req.Name,
			Description: req.Description,
			PriceCents:  req.PriceCents,
			ImageURL:    req.ImageURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

type productAvailabilityRequest struct {
	Available *bool `json:"available" validate:"required"`
}

// ProductSetAvailability toggles whether customers can order the item.
func ProductSetAvailability(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		storeID, err := storeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := uuidURLParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req productAvailabilityRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.SetAvailability(r.Context(), storeID, productID, *req.Available)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// ProductArchive soft-deletes a menu item; past order snapshots keep its name
// and price.
func ProductArchive(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		storeID, err := storeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := uuidURLParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Archive(r.Context(), storeID, productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// ProductsList returns the full catalog for the owner dashboard.
func ProductsList(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		storeID, err := storeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		includeArchived := r.URL.Query().Get("include_archived") == "true"
		list, err := svc.ListByStore(r.Context(), storeID, includeArchived)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func uuidURLParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid identifier in path")
	}
	return id, nil
}
