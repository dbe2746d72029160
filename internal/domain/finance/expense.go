package finance

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ExpenseCategory represents the category of an expense
type ExpenseCategory string

const (
	ExpenseCategoryShipping  ExpenseCategory = "SHIPPING"
	ExpenseCategoryCustoms   ExpenseCategory = "CUSTOMS"
	ExpenseCategoryPackaging ExpenseCategory = "PACKAGING"
	ExpenseCategoryMarketing ExpenseCategory = "MARKETING"
	ExpenseCategoryRent      ExpenseCategory = "RENT"
	ExpenseCategoryOther     ExpenseCategory = "OTHER"
)

// IsValid checks if the category is a valid ExpenseCategory
func (c ExpenseCategory) IsValid() bool {
	switch c {
	case ExpenseCategoryShipping, ExpenseCategoryCustoms, ExpenseCategoryPackaging,
		ExpenseCategoryMarketing, ExpenseCategoryRent, ExpenseCategoryOther:
		return true
	}
	return false
}

// String returns the string representation of ExpenseCategory
func (c ExpenseCategory) String() string {
	return string(c)
}

// Expense is money spent by the organization, optionally charged to one arrivage
type Expense struct {
	shared.OrgAggregateRoot
	Description string          `gorm:"type:varchar(255);not null"`
	Category    ExpenseCategory `gorm:"type:varchar(20);not null"`
	AmountEur   decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	AmountDh    decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	ExpenseDate time.Time       `gorm:"not null;index"`
	ArrivageID  *uuid.UUID      `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (Expense) TableName() string {
	return "expenses"
}

// NewExpense creates an expense. At least one of amountEur and amountDh must be given;
// the missing one is converted at rate.
func NewExpense(orgID uuid.UUID, description string, category ExpenseCategory, amountEur, amountDh *decimal.Decimal, rate decimal.Decimal, expenseDate time.Time) (*Expense, error) {
	e := &Expense{OrgAggregateRoot: shared.NewOrgAggregateRoot(orgID)}
	if err := e.Describe(description, category, expenseDate); err != nil {
		return nil, err
	}
	if err := e.SetAmounts(amountEur, amountDh, rate); err != nil {
		return nil, err
	}
	return e, nil
}

// Describe sets description, category and date
func (e *Expense) Describe(description string, category ExpenseCategory, expenseDate time.Time) error {
	description = strings.TrimSpace(description)
	if description == "" {
		return shared.NewValidationError("expense description cannot be empty")
	}
	if !category.IsValid() {
		return shared.NewValidationError("invalid expense category %q", category)
	}
	if expenseDate.IsZero() {
		expenseDate = time.Now()
	}
	e.Description = description
	e.Category = category
	e.ExpenseDate = expenseDate
	e.UpdatedAt = time.Now()
	return nil
}

// SetAmounts sets the EUR and DH amounts, deriving whichever is missing at rate
func (e *Expense) SetAmounts(amountEur, amountDh *decimal.Decimal, rate decimal.Decimal) error {
	if amountEur == nil && amountDh == nil {
		return shared.NewValidationError("an amount in EUR or DH is required")
	}
	if (amountEur != nil && amountEur.IsNegative()) || (amountDh != nil && amountDh.IsNegative()) {
		return shared.NewValidationError("expense amount cannot be negative")
	}
	if (amountEur == nil || amountDh == nil) && !rate.IsPositive() {
		return shared.NewValidationError("exchange rate must be positive to convert the amount")
	}

	switch {
	case amountEur != nil && amountDh != nil:
		e.AmountEur = amountEur.Round(2)
		e.AmountDh = amountDh.Round(2)
	case amountEur != nil:
		e.AmountEur = amountEur.Round(2)
		e.AmountDh = amountEur.Mul(rate).Round(2)
	default:
		e.AmountDh = amountDh.Round(2)
		e.AmountEur = amountDh.Div(rate).Round(2)
	}
	e.UpdatedAt = time.Now()
	return nil
}

// LinkTo charges the expense to an arrivage (nil detaches) and returns the previous link
func (e *Expense) LinkTo(arrivageID *uuid.UUID) *uuid.UUID {
	previous := e.ArrivageID
	e.ArrivageID = arrivageID
	e.UpdatedAt = time.Now()
	return previous
}

// MarkChanged queues the ExpenseChanged event
func (e *Expense) MarkChanged() {
	e.AddDomainEvent(NewExpenseChangedEvent(e))
}
