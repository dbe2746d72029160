package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	appshared "github.com/retail/backend/internal/application/shared"
	"github.com/retail/backend/internal/domain/catalog"
	"github.com/retail/backend/internal/domain/identity"
	"github.com/retail/backend/internal/domain/shared"
)

// TaxonomyService manages brands and categories. Names are unique per organization.
type TaxonomyService struct {
	repos   appshared.Repositories
	txScope appshared.TransactionScope
}

// NewTaxonomyService creates a new TaxonomyService
func NewTaxonomyService(repos appshared.Repositories, txScope appshared.TransactionScope) *TaxonomyService {
	return &TaxonomyService{repos: repos, txScope: txScope}
}

// CreateBrand creates a brand
func (s *TaxonomyService) CreateBrand(ctx context.Context, actor appshared.Actor, req TaxonomyRequest) (*TaxonomyResponse, error) {
	if err := actor.Require(identity.PermProductsCreate); err != nil {
		return nil, err
	}
	brand, err := catalog.NewBrand(actor.OrganizationID, req.Name)
	if err != nil {
		return nil, err
	}
	if err := ensureUniqueName("brand", brand.Name, func(name string) (bool, error) {
		return s.repos.Brands().ExistsByName(ctx, actor.OrganizationID, name)
	}); err != nil {
		return nil, err
	}
	if err := s.repos.Brands().Save(ctx, brand); err != nil {
		return nil, err
	}
	resp := ToBrandResponse(brand)
	return &resp, nil
}

// ListBrands returns every brand of the organization
func (s *TaxonomyService) ListBrands(ctx context.Context, actor appshared.Actor) ([]TaxonomyResponse, error) {
	if err := actor.Require(identity.PermProductsView); err != nil {
		return nil, err
	}
	brands, err := s.repos.Brands().List(ctx, actor.OrganizationID)
	if err != nil {
		return nil, err
	}
	out := make([]TaxonomyResponse, len(brands))
	for i := range brands {
		out[i] = ToBrandResponse(&brands[i])
	}
	return out, nil
}

// RenameBrand renames a brand
func (s *TaxonomyService) RenameBrand(ctx context.Context, actor appshared.Actor, id uuid.UUID, req TaxonomyRequest) (*TaxonomyResponse, error) {
	if err := actor.Require(identity.PermProductsUpdate); err != nil {
		return nil, err
	}
	brand, err := s.repos.Brands().FindByID(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	previous := brand.Name
	if err := brand.Rename(req.Name); err != nil {
		return nil, err
	}
	if !strings.EqualFold(previous, brand.Name) {
		if err := ensureUniqueName("brand", brand.Name, func(name string) (bool, error) {
			return s.repos.Brands().ExistsByName(ctx, actor.OrganizationID, name)
		}); err != nil {
			return nil, err
		}
	}
	if err := s.repos.Brands().Save(ctx, brand); err != nil {
		return nil, err
	}
	resp := ToBrandResponse(brand)
	return &resp, nil
}

// DeleteBrand removes a brand that no product references
func (s *TaxonomyService) DeleteBrand(ctx context.Context, actor appshared.Actor, id uuid.UUID) error {
	if err := actor.Require(identity.PermProductsDelete); err != nil {
		return err
	}
	return s.txScope.Execute(ctx, func(repos appshared.Repositories) error {
		if _, err := repos.Brands().FindByID(ctx, actor.OrganizationID, id); err != nil {
			return err
		}
		count, err := repos.Products().CountByBrand(ctx, actor.OrganizationID, id)
		if err != nil {
			return err
		}
		if err := ensureUnused("brand", count); err != nil {
			return err
		}
		return repos.Brands().Delete(ctx, actor.OrganizationID, id)
	})
}

// CreateCategory creates a category
func (s *TaxonomyService) CreateCategory(ctx context.Context, actor appshared.Actor, req TaxonomyRequest) (*TaxonomyResponse, error) {
	if err := actor.Require(identity.PermProductsCreate); err != nil {
		return nil, err
	}
	category, err := catalog.NewCategory(actor.OrganizationID, req.Name)
	if err != nil {
		return nil, err
	}
	if err := ensureUniqueName("category", category.Name, func(name string) (bool, error) {
		return s.repos.Categories().ExistsByName(ctx, actor.OrganizationID, name)
	}); err != nil {
		return nil, err
	}
	if err := s.repos.Categories().Save(ctx, category); err != nil {
		return nil, err
	}
	resp := ToCategoryResponse(category)
	return &resp, nil
}

// ListCategories returns every category of the organization
func (s *TaxonomyService) ListCategories(ctx context.Context, actor appshared.Actor) ([]TaxonomyResponse, error) {
	if err := actor.Require(identity.PermProductsView); err != nil {
		return nil, err
	}
	categories, err := s.repos.Categories().List(ctx, actor.OrganizationID)
	if err != nil {
		return nil, err
	}
	out := make([]TaxonomyResponse, len(categories))
	for i := range categories {
		out[i] = ToCategoryResponse(&categories[i])
	}
	return out, nil
}

// RenameCategory renames a category
func (s *TaxonomyService) RenameCategory(ctx context.Context, actor appshared.Actor, id uuid.UUID, req TaxonomyRequest) (*TaxonomyResponse, error) {
	if err := actor.Require(identity.PermProductsUpdate); err != nil {
		return nil, err
	}
	category, err := s.repos.Categories().FindByID(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	previous := category.Name
	if err := category.Rename(req.Name); err != nil {
		return nil, err
	}
	if !strings.EqualFold(previous, category.Name) {
		if err := ensureUniqueName("category", category.Name, func(name string) (bool, error) {
			return s.repos.Categories().ExistsByName(ctx, actor.OrganizationID, name)
		}); err != nil {
			return nil, err
		}
	}
	if err := s.repos.Categories().Save(ctx, category); err != nil {
		return nil, err
	}
	resp := ToCategoryResponse(category)
	return &resp, nil
}

// DeleteCategory removes a category that no product references
func (s *TaxonomyService) DeleteCategory(ctx context.Context, actor appshared.Actor, id uuid.UUID) error {
	if err := actor.Require(identity.PermProductsDelete); err != nil {
		return err
	}
	return s.txScope.Execute(ctx, func(repos appshared.Repositories) error {
		if _, err := repos.Categories().FindByID(ctx, actor.OrganizationID, id); err != nil {
			return err
		}
		count, err := repos.Products().CountByCategory(ctx, actor.OrganizationID, id)
		if err != nil {
			return err
		}
		if err := ensureUnused("category", count); err != nil {
			return err
		}
		return repos.Categories().Delete(ctx, actor.OrganizationID, id)
	})
}

func ensureUniqueName(kind, name string, exists func(string) (bool, error)) error {
	found, err := exists(name)
	if err != nil {
		return err
	}
	if found {
		return shared.NewDomainError(shared.CodeAlreadyExists, fmt.Sprintf("%s %q already exists", kind, name))
	}
	return nil
}

func ensureUnused(kind string, products int64) error {
	if products > 0 {
		return shared.NewDomainError(shared.CodeInvalidState, fmt.Sprintf("%s is used by %d products", kind, products))
	}
	return nil
}
