package controllers

import (
	"net/http"

	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/api/responses"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/api/validators"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/internal/notifications"
	pkgerrors "github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/errors"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/logger"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/pagination"
)

// NotificationsList returns the active store's most recent notifications.
func NotificationsList(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notification service unavailable"))
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

		list, err := svc.List(r.Context(), storeID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// NotificationMarkRead marks a single notification as read.
func NotificationMarkRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notification service unavailable"))
			return
		}

		storeID, err := storeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		notificationID, err := uuidURLParam(r, "notificationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.MarkRead(r.Context(), storeID, notificationID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"read": true})
	}
}
