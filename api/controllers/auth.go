package controllers

import (
	"net/http"
	"time"

	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/api/responses"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/api/validators"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/internal/auth"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/db/models"
	pkgerrors "github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/errors"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/logger"
)

type sessionUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type sessionStore struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
	Open bool   `json:"open"`
}

type sessionResponse struct {
	Token   string        `json:"token"`
	Expires time.Time     `json:"expires"`
	User    sessionUser   `json:"user"`
	Store   *sessionStore `json:"store,omitempty"`
}

func sessionView(session *auth.Session) sessionResponse {
	resp := sessionResponse{
		Token:   session.Token,
		Expires: session.Expires,
		User: sessionUser{
			ID:    session.User.ID.String(),
			Name:  session.User.Name,
			Email: session.User.Email,
			Role:  string(session.User.Role),
		},
	}
	if session.Store != nil {
		resp.Store = storeSessionView(session.Store)
	}
	return resp
}

func storeSessionView(store *models.Store) *sessionStore {
	return &sessionStore{
		ID:   store.ID.String(),
		Name: store.Name,
		Slug: store.Slug,
		Open: store.Open,
	}
}

// AuthRegister creates an owner account together with their store.
func AuthRegister(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var req auth.RegisterRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.Register(r.Context(), req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, sessionView(session))
	}
}

// AuthLogin exchanges credentials for a store-scoped JWT.
func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var req auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.Login(r.Context(), req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sessionView(session))
	}
}
