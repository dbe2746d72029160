package finance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ExpenseFilter narrows expense listings
type ExpenseFilter struct {
	shared.Filter
	Category   ExpenseCategory
	ArrivageID *uuid.UUID
	From       *time.Time
	To         *time.Time
}

// ExpenseRepository persists expenses
type ExpenseRepository interface {
	FindByID(ctx context.Context, orgID, id uuid.UUID) (*Expense, error)
	List(ctx context.Context, orgID uuid.UUID, filter ExpenseFilter) ([]Expense, int64, error)
	// AmountsEurByArrivage returns the EUR amount of every expense charged to the arrivage
	AmountsEurByArrivage(ctx context.Context, orgID, arrivageID uuid.UUID) ([]decimal.Decimal, error)
	// DetachArrivage clears the arrivage link on its expenses
	DetachArrivage(ctx context.Context, orgID, arrivageID uuid.UUID) error
	Save(ctx context.Context, expense *Expense) error
	Delete(ctx context.Context, orgID, id uuid.UUID) error
}
