package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	salesapp "github.com/retail/backend/internal/application/sales"
	appshared "github.com/retail/backend/internal/application/shared"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/interfaces/http/dto"
)

// SaleService records sales and reverses them
type SaleService interface {
	Create(ctx context.Context, actor appshared.Actor, req salesapp.CreateSaleRequest) (*salesapp.SaleResponse, error)
	CreateBundle(ctx context.Context, actor appshared.Actor, req salesapp.CreateBundleRequest) (*salesapp.SaleResponse, error)
	Update(ctx context.Context, actor appshared.Actor, id uuid.UUID, req salesapp.UpdateSaleRequest) (*salesapp.SaleResponse, error)
	Delete(ctx context.Context, actor appshared.Actor, id uuid.UUID) error
	Get(ctx context.Context, actor appshared.Actor, id uuid.UUID) (*salesapp.SaleResponse, error)
	List(ctx context.Context, actor appshared.Actor, filter salesapp.SaleListFilter) (shared.Paginated[salesapp.SaleResponse], error)
}

// SaleHandler handles sale endpoints
type SaleHandler struct {
	BaseHandler
	sales SaleService
}

// NewSaleHandler creates a new SaleHandler
func NewSaleHandler(sales SaleService) *SaleHandler {
	return &SaleHandler{sales: sales}
}

// Create godoc
// @Summary      Record a sale
// @Description  Allocates every line against the product's lots. Fails with 422 and the
// @Description  available quantity when a line asks for more than is in stock.
// @Tags         sales
// @Router       /sales [post]
func (h *SaleHandler) Create(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req salesapp.CreateSaleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	sale, err := h.sales.Create(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, sale)
}

// CreateBundle godoc
// @Summary      Record a bundle sale
// @Description  The bundle price is spread over the lines in proportion to their list value.
// @Tags         sales
// @Router       /sales/bundle [post]
func (h *SaleHandler) CreateBundle(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req salesapp.CreateBundleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	sale, err := h.sales.CreateBundle(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, sale)
}

// Update godoc
// @Summary  Replace the lines of a sale
// @Tags     sales
// @Router   /sales/{id} [put]
func (h *SaleHandler) Update(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req salesapp.UpdateSaleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	sale, err := h.sales.Update(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sale)
}

// Delete godoc
// @Summary  Delete a sale and return its units to their lots
// @Tags     sales
// @Router   /sales/{id} [delete]
func (h *SaleHandler) Delete(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	if err := h.sales.Delete(c.Request.Context(), actor, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Get returns a sale with its lines and allocations
func (h *SaleHandler) Get(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	sale, err := h.sales.Get(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sale)
}

// List returns a page of sales
func (h *SaleHandler) List(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var filter salesapp.SaleListFilter
	if !h.BindQuery(c, &filter) {
		return
	}
	if filter.ProductID, ok = h.QueryID(c, "product_id"); !ok {
		return
	}

	page, err := h.sales.List(c.Request.Context(), actor, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewListResponse(page))
}
