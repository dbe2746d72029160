package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	catalogapp "github.com/retail/backend/internal/application/catalog"
	inventoryapp "github.com/retail/backend/internal/application/inventory"
	appshared "github.com/retail/backend/internal/application/shared"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/interfaces/http/dto"
)

// ProductService is the catalog use case surface the product handler needs
type ProductService interface {
	Create(ctx context.Context, actor appshared.Actor, req catalogapp.CreateProductRequest) (*catalogapp.ProductResponse, error)
	Update(ctx context.Context, actor appshared.Actor, id uuid.UUID, req catalogapp.UpdateProductRequest) (*catalogapp.ProductResponse, error)
	Get(ctx context.Context, actor appshared.Actor, id uuid.UUID) (*catalogapp.ProductResponse, error)
	List(ctx context.Context, actor appshared.Actor, filter catalogapp.ProductListFilter) (shared.Paginated[catalogapp.ProductResponse], error)
	Deactivate(ctx context.Context, actor appshared.Actor, id uuid.UUID) (*catalogapp.ProductResponse, error)
	Activate(ctx context.Context, actor appshared.Actor, id uuid.UUID) (*catalogapp.ProductResponse, error)
}

// StockLedger is the stock use case surface the product handler needs
type StockLedger interface {
	Adjust(ctx context.Context, actor appshared.Actor, productID uuid.UUID, req inventoryapp.AdjustStockRequest) (*inventoryapp.StockChangeResponse, error)
	Reset(ctx context.Context, actor appshared.Actor, productID uuid.UUID, req inventoryapp.ResetStockRequest) (*inventoryapp.StockChangeResponse, error)
	ListMovements(ctx context.Context, actor appshared.Actor, filter inventoryapp.MovementListFilter) (shared.Paginated[inventoryapp.MovementResponse], error)
}

// ProductHandler handles product and stock endpoints
type ProductHandler struct {
	BaseHandler
	products ProductService
	stock    StockLedger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(products ProductService, stock StockLedger) *ProductHandler {
	return &ProductHandler{products: products, stock: stock}
}

// Create godoc
// @Summary  Create a product
// @Tags     products
// @Router   /products [post]
func (h *ProductHandler) Create(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req catalogapp.CreateProductRequest
	if !h.BindJSON(c, &req) {
		return
	}

	product, err := h.products.Create(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, product)
}

// Update godoc
// @Summary  Update a product
// @Tags     products
// @Router   /products/{id} [put]
func (h *ProductHandler) Update(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req catalogapp.UpdateProductRequest
	if !h.BindJSON(c, &req) {
		return
	}

	product, err := h.products.Update(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// Get godoc
// @Summary  Get a product with its margins
// @Tags     products
// @Router   /products/{id} [get]
func (h *ProductHandler) Get(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	product, err := h.products.Get(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// List godoc
// @Summary  List products
// @Tags     products
// @Router   /products [get]
func (h *ProductHandler) List(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var filter catalogapp.ProductListFilter
	if !h.BindQuery(c, &filter) {
		return
	}
	if filter.BrandID, ok = h.QueryID(c, "brand_id"); !ok {
		return
	}
	if filter.CategoryID, ok = h.QueryID(c, "category_id"); !ok {
		return
	}
	if filter.ArrivageID, ok = h.QueryID(c, "arrivage_id"); !ok {
		return
	}

	page, err := h.products.List(c.Request.Context(), actor, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewListResponse(page))
}

// Deactivate godoc
// @Summary  Deactivate a product; its history is kept
// @Tags     products
// @Router   /products/{id} [delete]
func (h *ProductHandler) Deactivate(c *gin.Context) {
	h.toggle(c, h.products.Deactivate)
}

// Activate godoc
// @Summary  Reactivate a product
// @Tags     products
// @Router   /products/{id}/activate [post]
func (h *ProductHandler) Activate(c *gin.Context) {
	h.toggle(c, h.products.Activate)
}

func (h *ProductHandler) toggle(c *gin.Context, fn func(context.Context, appshared.Actor, uuid.UUID) (*catalogapp.ProductResponse, error)) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	product, err := fn(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// Adjust godoc
// @Summary  Apply a signed stock adjustment
// @Tags     stock
// @Router   /products/{id}/adjust [post]
func (h *ProductHandler) Adjust(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req inventoryapp.AdjustStockRequest
	if !h.BindJSON(c, &req) {
		return
	}

	change, err := h.stock.Adjust(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, change)
}

// Reset godoc
// @Summary  Force a product to an exact stock level
// @Tags     stock
// @Router   /products/{id}/reset [post]
func (h *ProductHandler) Reset(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req inventoryapp.ResetStockRequest
	if !h.BindJSON(c, &req) {
		return
	}

	change, err := h.stock.Reset(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, change)
}

// Movements lists the movement log of one product
func (h *ProductHandler) Movements(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	h.listMovements(c, &id)
}

// AllMovements lists the movement log of the organization, optionally narrowed to
// a product_id
func (h *ProductHandler) AllMovements(c *gin.Context) {
	productID, ok := h.QueryID(c, "product_id")
	if !ok {
		return
	}
	h.listMovements(c, productID)
}

func (h *ProductHandler) listMovements(c *gin.Context, productID *uuid.UUID) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var filter inventoryapp.MovementListFilter
	if !h.BindQuery(c, &filter) {
		return
	}
	filter.ProductID = productID

	page, err := h.stock.ListMovements(c.Request.Context(), actor, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewListResponse(page))
}
