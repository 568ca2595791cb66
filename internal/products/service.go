package products

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/db/models"
	pkgerrors "github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/errors"
)

// Service defines owner-facing catalog operations.
type Service interface {
	Create(ctx context.Context, input CreateProductInput) (*models.Product, error)
	Update(ctx context.Context, input UpdateProductInput) (*models.Product, error)
	SetAvailability(ctx context.Context, storeID, productID uuid.UUID, available bool) (*models.Product, error)
	Archive(ctx context.Context, storeID, productID uuid.UUID) (*models.Product, error)
	ListByStore(ctx context.Context, storeID uuid.UUID, includeArchived bool) ([]models.Product, error)
	Menu(ctx context.Context, storeID uuid.UUID) ([]models.Product, error)
}

type service struct {
	repo Repository
}

// CreateProductInput captures the data required to add a menu item.
type CreateProductInput struct {
	StoreID     uuid.UUID
	Name        string
	Description *string
	PriceCents  int
	ImageURL    *string
}

// UpdateProductInput carries editable catalog fields. Nil means keep.
type UpdateProductInput struct {
	StoreID     uuid.UUID
	ProductID   uuid.UUID
	Name        *string
	Description *string
	PriceCents  *int
	ImageURL    *string
}

// NewService wires the product service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	if input.StoreID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id is required")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	if input.PriceCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}

	product := &models.Product{
		ID:          uuid.New(),
		StoreID:     input.StoreID,
		Name:        name,
		Description: input.Description,
		PriceCents:  input.PriceCents,
		ImageURL:    input.ImageURL,
		Available:   true,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create product")
	}
	return product, nil
}

func (s *service) Update(ctx context.Context, input UpdateProductInput) (*models.Product, error) {
	product, err := s.ownedProduct(ctx, input.StoreID, input.ProductID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name cannot be empty")
		}
		product.Name = name
	}
	if input.Description != nil {
		product.Description = input.Description
	}
	if input.PriceCents != nil {
		if *input.PriceCents < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
		}
		product.PriceCents = *input.PriceCents
	}
	if input.ImageURL != nil {
		product.ImageURL = input.ImageURL
	}

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update product")
	}
	return product, nil
}

func (s *service) SetAvailability(ctx context.Context, storeID, productID uuid.UUID, available bool) (*models.Product, error) {
	product, err := s.ownedProduct(ctx, storeID, productID)
	if err != nil {
		return nil, err
	}
	product.Available = available
	if err := s.repo.Update(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update product availability")
	}
	return product, nil
}

func (s *service) Archive(ctx context.Context, storeID, productID uuid.UUID) (*models.Product, error) {
	product, err := s.ownedProduct(ctx, storeID, productID)
	if err != nil {
		return nil, err
	}
	if product.ArchivedAt != nil {
		return product, nil
	}
	now := time.Now().UTC()
	product.ArchivedAt = &now
	product.Available = false
	if err := s.repo.Update(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "archive product")
	}
	return product, nil
}

func (s *service) ListByStore(ctx context.Context, storeID uuid.UUID, includeArchived bool) ([]models.Product, error) {
	if storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id is required")
	}
	products, err := s.repo.ListByStore(ctx, storeID, includeArchived)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}
	return products, nil
}

// Menu returns what a customer can order right now: available, not archived.
func (s *service) Menu(ctx context.Context, storeID uuid.UUID) ([]models.Product, error) {
	products, err := s.ListByStore(ctx, storeID, false)
	if err != nil {
		return nil, err
	}
	menu := make([]models.Product, 0, len(products))
	for _, p := range products {
		if p.Available {
			menu = append(menu, p)
		}
	}
	return menu, nil
}

func (s *service) ownedProduct(ctx context.Context, storeID, productID uuid.UUID) (*models.Product, error) {
	if storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id is required")
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find product")
	}
	if product.StoreID != storeID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "product belongs to another store")
	}
	return product, nil
}
