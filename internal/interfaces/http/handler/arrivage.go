package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	inventoryapp "github.com/retail/backend/internal/application/inventory"
	appshared "github.com/retail/backend/internal/application/shared"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/interfaces/http/dto"
)

// ArrivageService manages arrivages and their shipment items
type ArrivageService interface {
	Create(ctx context.Context, actor appshared.Actor, req inventoryapp.CreateArrivageRequest) (*inventoryapp.ArrivageResponse, error)
	Update(ctx context.Context, actor appshared.Actor, id uuid.UUID, req inventoryapp.UpdateArrivageRequest) (*inventoryapp.ArrivageResponse, error)
	Delete(ctx context.Context, actor appshared.Actor, id uuid.UUID) error
	Recalculate(ctx context.Context, actor appshared.Actor, id uuid.UUID) (*inventoryapp.ArrivageResponse, error)
	Get(ctx context.Context, actor appshared.Actor, id uuid.UUID) (*inventoryapp.ArrivageDetailResponse, error)
	List(ctx context.Context, actor appshared.Actor, filter inventoryapp.ArrivageListFilter) (shared.Paginated[inventoryapp.ArrivageResponse], error)
	AddItem(ctx context.Context, actor appshared.Actor, arrivageID uuid.UUID, req inventoryapp.AddItemRequest) (*inventoryapp.ShipmentItemResponse, error)
	UpdateItem(ctx context.Context, actor appshared.Actor, arrivageID, itemID uuid.UUID, req inventoryapp.UpdateItemRequest) (*inventoryapp.ShipmentItemResponse, error)
	RemoveItem(ctx context.Context, actor appshared.Actor, arrivageID, itemID uuid.UUID) error
}

// ArrivageHandler handles arrivage and shipment item endpoints
type ArrivageHandler struct {
	BaseHandler
	arrivages ArrivageService
}

// NewArrivageHandler creates a new ArrivageHandler
func NewArrivageHandler(arrivages ArrivageService) *ArrivageHandler {
	return &ArrivageHandler{arrivages: arrivages}
}

// Create godoc
// @Summary  Open an arrivage
// @Tags     arrivages
// @Router   /arrivages [post]
func (h *ArrivageHandler) Create(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req inventoryapp.CreateArrivageRequest
	if !h.BindJSON(c, &req) {
		return
	}

	arrivage, err := h.arrivages.Create(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, arrivage)
}

// Update godoc
// @Summary  Update an arrivage; a new rate recalculates its costs
// @Tags     arrivages
// @Router   /arrivages/{id} [put]
func (h *ArrivageHandler) Update(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req inventoryapp.UpdateArrivageRequest
	if !h.BindJSON(c, &req) {
		return
	}

	arrivage, err := h.arrivages.Update(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, arrivage)
}

// Delete godoc
// @Summary  Delete an arrivage none of whose lots were sold
// @Tags     arrivages
// @Router   /arrivages/{id} [delete]
func (h *ArrivageHandler) Delete(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	if err := h.arrivages.Delete(c.Request.Context(), actor, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Recalculate reruns the cost aggregator for one arrivage
func (h *ArrivageHandler) Recalculate(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	arrivage, err := h.arrivages.Recalculate(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, arrivage)
}

// Get returns an arrivage with its items and linked expenses
func (h *ArrivageHandler) Get(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	arrivage, err := h.arrivages.Get(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, arrivage)
}

// List returns a page of arrivages
func (h *ArrivageHandler) List(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var filter inventoryapp.ArrivageListFilter
	if !h.BindQuery(c, &filter) {
		return
	}

	page, err := h.arrivages.List(c.Request.Context(), actor, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewListResponse(page))
}

// AddItem godoc
// @Summary  Receive a lot into an arrivage
// @Tags     arrivages
// @Router   /arrivages/{id}/items [post]
func (h *ArrivageHandler) AddItem(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req inventoryapp.AddItemRequest
	if !h.BindJSON(c, &req) {
		return
	}

	item, err := h.arrivages.AddItem(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, item)
}

// UpdateItem godoc
// @Summary  Change a lot's quantity, cost or arrivage
// @Tags     arrivages
// @Router   /arrivages/{id}/items/{itemId} [put]
func (h *ArrivageHandler) UpdateItem(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	itemID, ok := h.ParamID(c, "itemId")
	if !ok {
		return
	}
	var req inventoryapp.UpdateItemRequest
	if !h.BindJSON(c, &req) {
		return
	}

	item, err := h.arrivages.UpdateItem(c.Request.Context(), actor, id, itemID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, item)
}

// RemoveItem deletes an unsold lot
func (h *ArrivageHandler) RemoveItem(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	itemID, ok := h.ParamID(c, "itemId")
	if !ok {
		return
	}

	if err := h.arrivages.RemoveItem(c.Request.Context(), actor, id, itemID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
