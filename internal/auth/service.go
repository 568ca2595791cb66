package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/internal/stores"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/internal/users"
	pkgauth "github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/auth"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/config"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/db"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/db/models"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/enums"
	pkgerrors "github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/errors"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// RegisterRequest contains the payload for onboarding an owner and their store.
type RegisterRequest struct {
	Name          string   `json:"name" validate:"required"`
	Email         string   `json:"email" validate:"required,email"`
	Password      string   `json:"password" validate:"required,min=8"`
	StoreName     string   `json:"store_name" validate:"required"`
	Township      string   `json:"township" validate:"required"`
	Phone         *string  `json:"phone,omitempty"`
	WhatsAppPhone *string  `json:"whatsapp_phone,omitempty"`
	Categories    []string `json:"categories,omitempty"`
}

// LoginRequest carries dashboard login credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Session is the authenticated result returned to the controller.
type Session struct {
	Token   string
	User    *models.User
	Store   *models.Store
	Expires time.Time
}

// Service defines the behavior needed by the auth controller.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*Session, error)
	Login(ctx context.Context, req LoginRequest) (*Session, error)
}

type service struct {
	users       *users.Repository
	stores      stores.Repository
	tx          txRunner
	passwordCfg config.PasswordConfig
	jwtCfg      config.JWTConfig
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	UserRepo       *users.Repository
	StoresRepo     stores.Repository
	Tx             txRunner
	PasswordConfig config.PasswordConfig
	JWTConfig      config.JWTConfig
}

// NewService constructs the auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.StoresRepo == nil {
		return nil, fmt.Errorf("stores repository is required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	return &service{
		users:       params.UserRepo,
		stores:      params.StoresRepo,
		tx:          params.Tx,
		passwordCfg: params.PasswordConfig,
		jwtCfg:      params.JWTConfig,
	}, nil
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if len(req.Password) < 8 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}
	storeName := strings.TrimSpace(req.StoreName)
	if storeName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store name is required")
	}
	if strings.TrimSpace(req.Township) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "township is required")
	}

	hash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: hash,
		Role:         enums.UserRoleOwner,
	}
	store := &models.Store{
		ID:            uuid.New(),
		Name:          storeName,
		Slug:          stores.Slugify(storeName),
		Phone:         req.Phone,
		WhatsAppPhone: req.WhatsAppPhone,
		Township:      strings.TrimSpace(req.Township),
		Categories:    pq.StringArray(req.Categories),
		OwnerID:       user.ID,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.users.WithTx(tx).Create(ctx, user); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}
		if err := s.stores.WithTx(tx).Create(ctx, store); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "a store with this name already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create store")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.session(user, store)
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email and password are required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find user")
	}

	ok, err := security.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	store, err := s.stores.FindByOwner(ctx, user.ID)
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find owner store")
	}

	// last-login stamp is informational; a failure must not block the login
	_ = s.users.UpdateLastLogin(ctx, user.ID, time.Now().UTC())

	return s.session(user, store)
}

func (s *service) session(user *models.User, store *models.Store) (*Session, error) {
	payload := pkgauth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
	}
	if store != nil {
		payload.StoreID = &store.ID
	}

	now := time.Now().UTC()
	token, err := pkgauth.MintAccessToken(s.jwtCfg, now, payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}

	return &Session{
		Token:   token,
		User:    user,
		Store:   store,
		Expires: now.Add(s.jwtCfg.AccessTokenTTL()),
	}, nil
}
