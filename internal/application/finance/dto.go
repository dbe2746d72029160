package finance

import (
	"time"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/finance"
	"github.com/shopspring/decimal"
)

// ExpenseRequest is the body of expense create and update calls. At least one of
// the two amounts is required; the other is converted.
type ExpenseRequest struct {
	Description string           `json:"description" binding:"required,max=255"`
	Category    string           `json:"category" binding:"required,oneof=SHIPPING CUSTOMS PACKAGING MARKETING RENT OTHER"`
	AmountEur   *decimal.Decimal `json:"amount_eur" binding:"omitempty,decimal_gte0"`
	AmountDh    *decimal.Decimal `json:"amount_dh" binding:"omitempty,decimal_gte0"`
	ExpenseDate time.Time        `json:"expense_date"`
	ArrivageID  *uuid.UUID       `json:"arrivage_id"`
}

// ExpenseListFilter represents filter options for expense listings
type ExpenseListFilter struct {
	Search     string     `form:"search"`
	Category   string     `form:"category"`
	ArrivageID *uuid.UUID `form:"-"`
	From       *time.Time `form:"from" time_format:"2006-01-02"`
	To         *time.Time `form:"to" time_format:"2006-01-02"`
	Page       int        `form:"page" binding:"omitempty,min=1"`
	PageSize   int        `form:"page_size" binding:"omitempty,min=1,max=200"`
	OrderBy    string     `form:"order_by"`
	OrderDir   string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ExpenseResponse represents an expense in API responses
type ExpenseResponse struct {
	ID          uuid.UUID       `json:"id"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	AmountEur   decimal.Decimal `json:"amount_eur"`
	AmountDh    decimal.Decimal `json:"amount_dh"`
	ExpenseDate time.Time       `json:"expense_date"`
	ArrivageID  *uuid.UUID      `json:"arrivage_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ToExpenseResponse converts an expense to a response
func ToExpenseResponse(e *finance.Expense) ExpenseResponse {
	return ExpenseResponse{
		ID:          e.ID,
		Description: e.Description,
		Category:    e.Category.String(),
		AmountEur:   e.AmountEur,
		AmountDh:    e.AmountDh,
		ExpenseDate: e.ExpenseDate,
		ArrivageID:  e.ArrivageID,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}
