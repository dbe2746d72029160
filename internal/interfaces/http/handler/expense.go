package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	financeapp "github.com/retail/backend/internal/application/finance"
	appshared "github.com/retail/backend/internal/application/shared"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/interfaces/http/dto"
)

// ExpenseService records expenses
type ExpenseService interface {
	Create(ctx context.Context, actor appshared.Actor, req financeapp.ExpenseRequest) (*financeapp.ExpenseResponse, error)
	Update(ctx context.Context, actor appshared.Actor, id uuid.UUID, req financeapp.ExpenseRequest) (*financeapp.ExpenseResponse, error)
	Delete(ctx context.Context, actor appshared.Actor, id uuid.UUID) error
	Get(ctx context.Context, actor appshared.Actor, id uuid.UUID) (*financeapp.ExpenseResponse, error)
	List(ctx context.Context, actor appshared.Actor, filter financeapp.ExpenseListFilter) (shared.Paginated[financeapp.ExpenseResponse], error)
}

// ExpenseHandler handles expense endpoints
type ExpenseHandler struct {
	BaseHandler
	expenses ExpenseService
}

// NewExpenseHandler creates a new ExpenseHandler
func NewExpenseHandler(expenses ExpenseService) *ExpenseHandler {
	return &ExpenseHandler{expenses: expenses}
}

// Create records an expense
func (h *ExpenseHandler) Create(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req financeapp.ExpenseRequest
	if !h.BindJSON(c, &req) {
		return
	}

	expense, err := h.expenses.Create(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, expense)
}

// Update rewrites an expense
func (h *ExpenseHandler) Update(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req financeapp.ExpenseRequest
	if !h.BindJSON(c, &req) {
		return
	}

	expense, err := h.expenses.Update(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, expense)
}

// Delete removes an expense
func (h *ExpenseHandler) Delete(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	if err := h.expenses.Delete(c.Request.Context(), actor, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Get returns one expense
func (h *ExpenseHandler) Get(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	expense, err := h.expenses.Get(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, expense)
}

// List returns a page of expenses
func (h *ExpenseHandler) List(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var filter financeapp.ExpenseListFilter
	if !h.BindQuery(c, &filter) {
		return
	}
	if filter.ArrivageID, ok = h.QueryID(c, "arrivage_id"); !ok {
		return
	}

	page, err := h.expenses.List(c.Request.Context(), actor, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewListResponse(page))
}
