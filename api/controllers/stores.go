package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/api/middleware"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/api/responses"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/api/validators"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/internal/products"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/internal/stores"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/db/models"
	pkgerrors "github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/errors"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/logger"
)

type storefrontStore struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Slug        string   `json:"slug"`
	Description *string  `json:"description,omitempty"`
	Township    string   `json:"township"`
	AddressLine *string  `json:"address_line,omitempty"`
	Categories  []string `json:"categories,omitempty"`
	Open        bool     `json:"open"`
}

func storefrontView(store *models.Store) storefrontStore {
	return storefrontStore{
		ID:          store.ID.String(),
		Name:        store.Name,
		Slug:        store.Slug,
		Description: store.Description,
		Township:    store.Township,
		AddressLine: store.AddressLine,
		Categories:  store.Categories,
		Open:        store.Open,
	}
}

type menuItem struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	PriceCents  int     `json:"price_cents"`
	ImageURL    *string `json:"image_url,omitempty"`
}

// StoresList returns open stores for the storefront, optionally filtered by
// township.
func StoresList(svc stores.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "store service unavailable"))
			return
		}

		township := strings.TrimSpace(r.URL.Query().Get("township"))
		list, err := svc.ListOpen(r.Context(), township)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views := make([]storefrontStore, 0, len(list))
		for i := range list {
			views = append(views, storefrontView(&list[i]))
		}
		responses.WriteSuccess(w, views)
	}
}

// StoreBySlug returns one storefront profile.
func StoreBySlug(svc stores.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "store service unavailable"))
			return
		}

		store, err := svc.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, storefrontView(store))
	}
}

// StoreMenu returns the orderable items for one store.
func StoreMenu(storeSvc stores.Service, productSvc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if storeSvc == nil || productSvc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "menu service unavailable"))
			return
		}

		store, err := storeSvc.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		menu, err := productSvc.Menu(r.Context(), store.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]menuItem, 0, len(menu))
		for _, p := range menu {
			items = append(items, menuItem{
				ID:          p.ID.String(),
				Name:        p.Name,
				Description: p.Description,
				PriceCents:  p.PriceCents,
				ImageURL:    p.ImageURL,
			})
		}
		responses.WriteSuccess(w, map[string]any{
			"store": storefrontView(store),
			"menu":  items,
		})
	}
}

// StoreProfile returns the active store's profile using the store-scoped JWT.
func StoreProfile(svc stores.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "store service unavailable"))
			return
		}

		storeID, err := storeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		profile, err := svc.GetByID(r.Context(), storeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}

type storeUpdateRequest struct {
	Name          *string  `json:"name,omitempty" validate:"omitempty,min=1"`
	Description   *string  `json:"description,omitempty"`
	Phone         *string  `json:"phone,omitempty"`
	Email         *string  `json:"email,omitempty" validate:"omitempty,email"`
	WhatsAppPhone *string  `json:"whatsapp_phone,omitempty"`
	AddressLine   *string  `json:"address_line,omitempty"`
	Categories    []string `json:"categories,omitempty"`
}

// StoreUpdate adjusts the allowed mutable fields for the active store.
func StoreUpdate(svc stores.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "store service unavailable"))
			return
		}

		storeID, err := storeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req storeUpdateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.UpdateProfile(r.Context(), stores.UpdateStoreInput{
			StoreID:       storeID,
			Name:          req.Name,
			Description:   req.Description,
			Phone:         req.Phone,
			Email:         req.Email,
			WhatsAppPhone: req.WhatsAppPhone,
			AddressLine:   req.AddressLine,
			Categories:    req.Categories,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

type storeOpenRequest struct {
	Open *bool `json:"open" validate:"required"`
}

// StoreSetOpen flips the accepting-orders flag.
func StoreSetOpen(svc stores.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "store service unavailable"))
			return
		}

		storeID, err := storeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req storeOpenRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.SetOpen(r.Context(), storeID, *req.Open)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

func storeIDFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := middleware.StoreIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "store context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid store id")
	}
	return id, nil
}
