package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/finance"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormExpenseRepository implements ExpenseRepository using GORM
type GormExpenseRepository struct {
	db *gorm.DB
}

// NewGormExpenseRepository creates a new GormExpenseRepository
func NewGormExpenseRepository(db *gorm.DB) *GormExpenseRepository {
	return &GormExpenseRepository{db: db}
}

// FindByID finds an expense within an organization
func (r *GormExpenseRepository) FindByID(ctx context.Context, orgID, id uuid.UUID) (*finance.Expense, error) {
	var expense finance.Expense
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND id = ?", orgID, id).
		First(&expense).Error; err != nil {
		return nil, findError(err, "expense", id)
	}
	return &expense, nil
}

// List returns a page of expenses and the total match count
func (r *GormExpenseRepository) List(ctx context.Context, orgID uuid.UUID, filter finance.ExpenseFilter) ([]finance.Expense, int64, error) {
	query := r.db.WithContext(ctx).Model(&finance.Expense{}).Where("organization_id = ?", orgID)
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.ArrivageID != nil {
		query = query.Where("arrivage_id = ?", *filter.ArrivageID)
	}
	if filter.From != nil {
		query = query.Where("expense_date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("expense_date <= ?", *filter.To)
	}
	if filter.Search != "" {
		query = query.Where("LOWER(description) LIKE ?", likePattern(filter.Search))
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count expenses: %w", err)
	}

	var expenses []finance.Expense
	if err := paginate(query, filter.Filter, ExpenseSortFields, "expense_date").Find(&expenses).Error; err != nil {
		return nil, 0, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, total, nil
}

// AmountsEurByArrivage returns the EUR amount of each expense charged to the arrivage
func (r *GormExpenseRepository) AmountsEurByArrivage(ctx context.Context, orgID, arrivageID uuid.UUID) ([]decimal.Decimal, error) {
	var amounts []decimal.Decimal
	if err := r.db.WithContext(ctx).
		Model(&finance.Expense{}).
		Where("organization_id = ? AND arrivage_id = ?", orgID, arrivageID).
		Order("expense_date ASC").
		Pluck("amount_eur", &amounts).Error; err != nil {
		return nil, fmt.Errorf("load arrivage expenses: %w", err)
	}
	return amounts, nil
}

// DetachArrivage clears the arrivage link on every expense charged to it
func (r *GormExpenseRepository) DetachArrivage(ctx context.Context, orgID, arrivageID uuid.UUID) error {
	if err := r.db.WithContext(ctx).
		Model(&finance.Expense{}).
		Where("organization_id = ? AND arrivage_id = ?", orgID, arrivageID).
		Update("arrivage_id", nil).Error; err != nil {
		return fmt.Errorf("detach expenses: %w", err)
	}
	return nil
}

// Save creates or updates an expense
func (r *GormExpenseRepository) Save(ctx context.Context, expense *finance.Expense) error {
	if err := r.db.WithContext(ctx).Save(expense).Error; err != nil {
		return fmt.Errorf("save expense: %w", err)
	}
	return nil
}

// Delete removes an expense
func (r *GormExpenseRepository) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	return deleteScoped(r.db.WithContext(ctx), &finance.Expense{}, "expense", orgID, id)
}

var _ finance.ExpenseRepository = (*GormExpenseRepository)(nil)
