package finance

import (
	"context"

	"github.com/google/uuid"
	appinventory "github.com/retail/backend/internal/application/inventory"
	appshared "github.com/retail/backend/internal/application/shared"
	"github.com/retail/backend/internal/domain/finance"
	"github.com/retail/backend/internal/domain/identity"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ExpenseService records expenses. An expense charged to an arrivage is part of that
// arrivage's cost, so every change recalculates the arrivages it touches.
type ExpenseService struct {
	repos          appshared.Repositories
	txScope        appshared.TransactionScope
	aggregator     appinventory.CostAggregator
	eventPublisher shared.EventPublisher
}

// NewExpenseService creates a new ExpenseService
func NewExpenseService(repos appshared.Repositories, txScope appshared.TransactionScope, aggregator appinventory.CostAggregator) *ExpenseService {
	if aggregator == nil {
		aggregator = appinventory.NewCostAggregator()
	}
	return &ExpenseService{
		repos:      repos,
		txScope:    txScope,
		aggregator: aggregator,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *ExpenseService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Create records an expense
func (s *ExpenseService) Create(ctx context.Context, actor appshared.Actor, req ExpenseRequest) (*ExpenseResponse, error) {
	if err := actor.Require(identity.PermExpensesCreate); err != nil {
		return nil, err
	}

	var (
		events appshared.EventCollector
		result ExpenseResponse
	)
	err := s.txScope.Execute(ctx, func(repos appshared.Repositories) error {
		rate, err := s.rateFor(ctx, repos, actor.OrganizationID, req.ArrivageID)
		if err != nil {
			return err
		}
		expense, err := finance.NewExpense(actor.OrganizationID, req.Description, finance.ExpenseCategory(req.Category),
			req.AmountEur, req.AmountDh, rate, req.ExpenseDate)
		if err != nil {
			return err
		}
		expense.LinkTo(req.ArrivageID)
		expense.MarkChanged()
		if err := repos.Expenses().Save(ctx, expense); err != nil {
			return err
		}

		events.Collect(expense)
		if err := s.recalculate(ctx, repos, &events, actor.OrganizationID, expense.ArrivageID); err != nil {
			return err
		}
		result = ToExpenseResponse(expense)
		return nil
	})
	if err != nil {
		return nil, err
	}

	events.Publish(ctx, s.eventPublisher)
	return &result, nil
}

// Update rewrites an expense. Moving it to another arrivage recalculates both.
func (s *ExpenseService) Update(ctx context.Context, actor appshared.Actor, id uuid.UUID, req ExpenseRequest) (*ExpenseResponse, error) {
	if err := actor.Require(identity.PermExpensesUpdate); err != nil {
		return nil, err
	}

	var (
		events appshared.EventCollector
		result ExpenseResponse
	)
	err := s.txScope.Execute(ctx, func(repos appshared.Repositories) error {
		expense, err := repos.Expenses().FindByID(ctx, actor.OrganizationID, id)
		if err != nil {
			return err
		}
		rate, err := s.rateFor(ctx, repos, actor.OrganizationID, req.ArrivageID)
		if err != nil {
			return err
		}
		if err := expense.Describe(req.Description, finance.ExpenseCategory(req.Category), req.ExpenseDate); err != nil {
			return err
		}
		if err := expense.SetAmounts(req.AmountEur, req.AmountDh, rate); err != nil {
			return err
		}
		previous := expense.LinkTo(req.ArrivageID)
		expense.IncrementVersion()
		expense.MarkChanged()
		if err := repos.Expenses().Save(ctx, expense); err != nil {
			return err
		}

		events.Collect(expense)
		if err := s.recalculate(ctx, repos, &events, actor.OrganizationID, previous, expense.ArrivageID); err != nil {
			return err
		}
		result = ToExpenseResponse(expense)
		return nil
	})
	if err != nil {
		return nil, err
	}

	events.Publish(ctx, s.eventPublisher)
	return &result, nil
}

// Delete removes an expense
func (s *ExpenseService) Delete(ctx context.Context, actor appshared.Actor, id uuid.UUID) error {
	if err := actor.Require(identity.PermExpensesDelete); err != nil {
		return err
	}

	var events appshared.EventCollector
	err := s.txScope.Execute(ctx, func(repos appshared.Repositories) error {
		expense, err := repos.Expenses().FindByID(ctx, actor.OrganizationID, id)
		if err != nil {
			return err
		}
		if err := repos.Expenses().Delete(ctx, actor.OrganizationID, id); err != nil {
			return err
		}
		expense.MarkChanged()
		events.Collect(expense)
		return s.recalculate(ctx, repos, &events, actor.OrganizationID, expense.ArrivageID)
	})
	if err != nil {
		return err
	}

	events.Publish(ctx, s.eventPublisher)
	return nil
}

// Get returns an expense by id
func (s *ExpenseService) Get(ctx context.Context, actor appshared.Actor, id uuid.UUID) (*ExpenseResponse, error) {
	if err := actor.Require(identity.PermExpensesView); err != nil {
		return nil, err
	}
	expense, err := s.repos.Expenses().FindByID(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	resp := ToExpenseResponse(expense)
	return &resp, nil
}

// List returns a page of expenses
func (s *ExpenseService) List(ctx context.Context, actor appshared.Actor, filter ExpenseListFilter) (shared.Paginated[ExpenseResponse], error) {
	if err := actor.Require(identity.PermExpensesView); err != nil {
		return shared.Paginated[ExpenseResponse]{}, err
	}

	domainFilter := finance.ExpenseFilter{
		Filter: shared.Filter{
			Page:     filter.Page,
			PageSize: filter.PageSize,
			OrderBy:  filter.OrderBy,
			OrderDir: filter.OrderDir,
			Search:   filter.Search,
		}.Normalize(),
		Category:   finance.ExpenseCategory(filter.Category),
		ArrivageID: filter.ArrivageID,
		From:       filter.From,
		To:         filter.To,
	}
	expenses, total, err := s.repos.Expenses().List(ctx, actor.OrganizationID, domainFilter)
	if err != nil {
		return shared.Paginated[ExpenseResponse]{}, err
	}

	items := make([]ExpenseResponse, len(expenses))
	for i := range expenses {
		items[i] = ToExpenseResponse(&expenses[i])
	}
	return shared.NewPaginated(items, total, domainFilter.Page, domainFilter.PageSize), nil
}

// rateFor returns the linked arrivage's exchange rate, or the organization default
func (s *ExpenseService) rateFor(ctx context.Context, repos appshared.Repositories, orgID uuid.UUID, arrivageID *uuid.UUID) (decimal.Decimal, error) {
	if arrivageID != nil {
		arrivage, err := repos.Arrivages().FindByID(ctx, orgID, *arrivageID)
		if err != nil {
			return decimal.Zero, err
		}
		return arrivage.ExchangeRate, nil
	}
	settings, err := appshared.LoadSettings(ctx, repos, orgID)
	if err != nil {
		return decimal.Zero, err
	}
	return settings.DefaultExchangeRate, nil
}

func (s *ExpenseService) recalculate(ctx context.Context, repos appshared.Repositories, events *appshared.EventCollector, orgID uuid.UUID, arrivageIDs ...*uuid.UUID) error {
	arrivages, err := appinventory.RecalculateAll(ctx, s.aggregator, repos, orgID, arrivageIDs...)
	if err != nil {
		return err
	}
	for _, a := range arrivages {
		events.Collect(a)
	}
	return nil
}
