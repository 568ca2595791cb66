package stores

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/db"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/db/models"
	pkgerrors "github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/errors"
)

var slugSanitizeRe = regexp.MustCompile(`[^a-z0-9]+`)

// Service defines store tenant operations.
type Service interface {
	Create(ctx context.Context, input CreateStoreInput) (*models.Store, error)
	UpdateProfile(ctx context.Context, input UpdateStoreInput) (*models.Store, error)
	SetOpen(ctx context.Context, storeID uuid.UUID, open bool) (*models.Store, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Store, error)
	GetBySlug(ctx context.Context, slug string) (*models.Store, error)
	GetByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Store, error)
	ListOpen(ctx context.Context, township string) ([]models.Store, error)
}

type service struct {
	repo Repository
}

// CreateStoreInput captures the data required to register a store.
type CreateStoreInput struct {
	Name          string
	Description   *string
	Phone         *string
	Email         *string
	WhatsAppPhone *string
	Township      string
	AddressLine   *string
	Categories    []string
	OwnerID       uuid.UUID
}

// UpdateStoreInput carries profile fields an owner can edit. Nil means keep.
type UpdateStoreInput struct {
	StoreID       uuid.UUID
	Name          *string
	Description   *string
	Phone         *string
	Email         *string
	WhatsAppPhone *string
	AddressLine   *string
	Categories    []string
}

// NewService wires the store service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("stores repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, input CreateStoreInput) (*models.Store, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store name is required")
	}
	township := strings.TrimSpace(input.Township)
	if township == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "township is required")
	}
	if input.OwnerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "owner identity missing")
	}

	store := &models.Store{
		ID:            uuid.New(),
		Name:          name,
		Slug:          Slugify(name),
		Description:   input.Description,
		Phone:         input.Phone,
		Email:         input.Email,
		WhatsAppPhone: input.WhatsAppPhone,
		Township:      township,
		AddressLine:   input.AddressLine,
		Categories:    pq.StringArray(input.Categories),
		OwnerID:       input.OwnerID,
	}

	if err := s.repo.Create(ctx, store); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "a store with this name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create store")
	}
	return store, nil
}

func (s *service) UpdateProfile(ctx context.Context, input UpdateStoreInput) (*models.Store, error) {
	if input.StoreID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id is required")
	}

	store, err := s.findStore(ctx, input.StoreID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "store name cannot be empty")
		}
		store.Name = name
	}
	if input.Description != nil {
		store.Description = input.Description
	}
	if input.Phone != nil {
		store.Phone = input.Phone
	}
	if input.Email != nil {
		store.Email = input.Email
	}
	if input.WhatsAppPhone != nil {
		store.WhatsAppPhone = input.WhatsAppPhone
	}
	if input.AddressLine != nil {
		store.AddressLine = input.AddressLine
	}
	if input.Categories != nil {
		store.Categories = pq.StringArray(input.Categories)
	}

	if err := s.repo.Update(ctx, store); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update store")
	}
	return store, nil
}

func (s *service) SetOpen(ctx context.Context, storeID uuid.UUID, open bool) (*models.Store, error) {
	if storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id is required")
	}
	store, err := s.findStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	store.Open = open
	if err := s.repo.Update(ctx, store); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update store open flag")
	}
	return store, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id is required")
	}
	return s.findStore(ctx, id)
}

func (s *service) GetBySlug(ctx context.Context, slug string) (*models.Store, error) {
	trimmed := strings.TrimSpace(slug)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store slug is required")
	}
	store, err := s.repo.FindBySlug(ctx, trimmed)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find store by slug")
	}
	return store, nil
}

func (s *service) GetByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Store, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "owner identity missing")
	}
	store, err := s.repo.FindByOwner(ctx, ownerID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find store by owner")
	}
	return store, nil
}

func (s *service) ListOpen(ctx context.Context, township string) ([]models.Store, error) {
	stores, err := s.repo.ListOpen(ctx, strings.TrimSpace(township))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list open stores")
	}
	return stores, nil
}

func (s *service) findStore(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	store, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find store")
	}
	return store, nil
}

// Slugify converts a store name into its URL slug.
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugSanitizeRe.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}
