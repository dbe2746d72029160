package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	catalogapp "github.com/retail/backend/internal/application/catalog"
	appshared "github.com/retail/backend/internal/application/shared"
)

// TaxonomyService manages brands and categories
type TaxonomyService interface {
	CreateBrand(ctx context.Context, actor appshared.Actor, req catalogapp.TaxonomyRequest) (*catalogapp.TaxonomyResponse, error)
	ListBrands(ctx context.Context, actor appshared.Actor) ([]catalogapp.TaxonomyResponse, error)
	RenameBrand(ctx context.Context, actor appshared.Actor, id uuid.UUID, req catalogapp.TaxonomyRequest) (*catalogapp.TaxonomyResponse, error)
	DeleteBrand(ctx context.Context, actor appshared.Actor, id uuid.UUID) error
	CreateCategory(ctx context.Context, actor appshared.Actor, req catalogapp.TaxonomyRequest) (*catalogapp.TaxonomyResponse, error)
	ListCategories(ctx context.Context, actor appshared.Actor) ([]catalogapp.TaxonomyResponse, error)
	RenameCategory(ctx context.Context, actor appshared.Actor, id uuid.UUID, req catalogapp.TaxonomyRequest) (*catalogapp.TaxonomyResponse, error)
	DeleteCategory(ctx context.Context, actor appshared.Actor, id uuid.UUID) error
}

// taxonomyOps is one half of TaxonomyService, brands or categories
type taxonomyOps interface {
	create(ctx context.Context, actor appshared.Actor, req catalogapp.TaxonomyRequest) (*catalogapp.TaxonomyResponse, error)
	list(ctx context.Context, actor appshared.Actor) ([]catalogapp.TaxonomyResponse, error)
	rename(ctx context.Context, actor appshared.Actor, id uuid.UUID, req catalogapp.TaxonomyRequest) (*catalogapp.TaxonomyResponse, error)
	remove(ctx context.Context, actor appshared.Actor, id uuid.UUID) error
}

type brandOps struct{ svc TaxonomyService }

func (o brandOps) create(ctx context.Context, actor appshared.Actor, req catalogapp.TaxonomyRequest) (*catalogapp.TaxonomyResponse, error) {
	return o.svc.CreateBrand(ctx, actor, req)
}

func (o brandOps) list(ctx context.Context, actor appshared.Actor) ([]catalogapp.TaxonomyResponse, error) {
	return o.svc.ListBrands(ctx, actor)
}

func (o brandOps) rename(ctx context.Context, actor appshared.Actor, id uuid.UUID, req catalogapp.TaxonomyRequest) (*catalogapp.TaxonomyResponse, error) {
	return o.svc.RenameBrand(ctx, actor, id, req)
}

func (o brandOps) remove(ctx context.Context, actor appshared.Actor, id uuid.UUID) error {
	return o.svc.DeleteBrand(ctx, actor, id)
}

type categoryOps struct{ svc TaxonomyService }

func (o categoryOps) create(ctx context.Context, actor appshared.Actor, req catalogapp.TaxonomyRequest) (*catalogapp.TaxonomyResponse, error) {
	return o.svc.CreateCategory(ctx, actor, req)
}

func (o categoryOps) list(ctx context.Context, actor appshared.Actor) ([]catalogapp.TaxonomyResponse, error) {
	return o.svc.ListCategories(ctx, actor)
}

func (o categoryOps) rename(ctx context.Context, actor appshared.Actor, id uuid.UUID, req catalogapp.TaxonomyRequest) (*catalogapp.TaxonomyResponse, error) {
	return o.svc.RenameCategory(ctx, actor, id, req)
}

func (o categoryOps) remove(ctx context.Context, actor appshared.Actor, id uuid.UUID) error {
	return o.svc.DeleteCategory(ctx, actor, id)
}

// TaxonomyHandler serves brands and categories with one set of handler methods
type TaxonomyHandler struct {
	BaseHandler
	ops taxonomyOps
}

// NewBrandHandler creates a TaxonomyHandler for brands
func NewBrandHandler(svc TaxonomyService) *TaxonomyHandler {
	return &TaxonomyHandler{ops: brandOps{svc: svc}}
}

// NewCategoryHandler creates a TaxonomyHandler for categories
func NewCategoryHandler(svc TaxonomyService) *TaxonomyHandler {
	return &TaxonomyHandler{ops: categoryOps{svc: svc}}
}

// Create adds an entry
func (h *TaxonomyHandler) Create(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req catalogapp.TaxonomyRequest
	if !h.BindJSON(c, &req) {
		return
	}

	entry, err := h.ops.create(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, entry)
}

// List returns every entry of the organization, by name
func (h *TaxonomyHandler) List(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}

	entries, err := h.ops.list(c.Request.Context(), actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if entries == nil {
		entries = []catalogapp.TaxonomyResponse{}
	}
	h.Success(c, entries)
}

// Rename changes the name of an entry
func (h *TaxonomyHandler) Rename(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req catalogapp.TaxonomyRequest
	if !h.BindJSON(c, &req) {
		return
	}

	entry, err := h.ops.rename(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

// Delete removes an entry no product references
func (h *TaxonomyHandler) Delete(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	if err := h.ops.remove(c.Request.Context(), actor, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
