package finance

import (
	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeExpense = "Expense"

// EventTypeExpenseChanged is published on create, update or delete of an expense
const EventTypeExpenseChanged = "ExpenseChanged"

// ExpenseChangedEvent carries the arrivage the expense is charged to, if any
type ExpenseChangedEvent struct {
	shared.BaseDomainEvent
	ExpenseID  uuid.UUID  `json:"expense_id"`
	ArrivageID *uuid.UUID `json:"arrivage_id,omitempty"`
}

// NewExpenseChangedEvent creates a new ExpenseChangedEvent
func NewExpenseChangedEvent(e *Expense) *ExpenseChangedEvent {
	return &ExpenseChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeExpenseChanged, AggregateTypeExpense, e.ID, e.OrganizationID),
		ExpenseID:       e.ID,
		ArrivageID:      e.ArrivageID,
	}
}
