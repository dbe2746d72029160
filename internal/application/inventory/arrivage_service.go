package inventory

import (
	"context"
	"slices"
	"strings"

	"github.com/google/uuid"
	appshared "github.com/retail/backend/internal/application/shared"
	"github.com/retail/backend/internal/domain/catalog"
	"github.com/retail/backend/internal/domain/finance"
	"github.com/retail/backend/internal/domain/identity"
	"github.com/retail/backend/internal/domain/inventory"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ArrivageService manages arrivages and their lots. Every change to a lot moves the
// product's received counter, writes one ARRIVAGE movement and recalculates the
// affected arrivages in the same transaction.
type ArrivageService struct {
	repos          appshared.Repositories
	txScope        appshared.TransactionScope
	aggregator     CostAggregator
	eventPublisher shared.EventPublisher
}

// NewArrivageService creates a new ArrivageService
func NewArrivageService(repos appshared.Repositories, txScope appshared.TransactionScope, aggregator CostAggregator) *ArrivageService {
	if aggregator == nil {
		aggregator = NewCostAggregator()
	}
	return &ArrivageService{
		repos:      repos,
		txScope:    txScope,
		aggregator: aggregator,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *ArrivageService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Create creates an arrivage. Without an exchange rate the organization default is used.
func (s *ArrivageService) Create(ctx context.Context, actor appshared.Actor, req CreateArrivageRequest) (*ArrivageResponse, error) {
	if err := actor.Require(identity.PermArrivagesCreate); err != nil {
		return nil, err
	}

	var (
		events appshared.EventCollector
		result ArrivageResponse
	)
	err := s.txScope.Execute(ctx, func(repos appshared.Repositories) error {
		if err := ensureUniqueReference(ctx, repos, actor.OrganizationID, req.Reference, nil); err != nil {
			return err
		}
		rate, err := s.exchangeRate(ctx, repos, actor.OrganizationID, req.ExchangeRate)
		if err != nil {
			return err
		}

		arrivage, err := inventory.NewArrivage(actor.OrganizationID, req.Reference, rate, req.ArrivalDate)
		if err != nil {
			return err
		}
		if err := arrivage.Describe(req.Reference, req.Supplier, req.Notes, req.ArrivalDate); err != nil {
			return err
		}
		if err := arrivage.SetFixedCosts(req.ShippingCostEur, req.PackagingCostEur); err != nil {
			return err
		}
		if req.Status != "" {
			if err := arrivage.SetStatus(inventory.ArrivageStatus(req.Status)); err != nil {
				return err
			}
		}
		arrivage.SetCreatedBy(actor.UserID)
		if err := repos.Arrivages().Save(ctx, arrivage); err != nil {
			return err
		}

		updated, err := s.aggregator.Recalculate(ctx, repos, actor.OrganizationID, arrivage.ID)
		if err != nil {
			return err
		}
		events.Collect(updated)
		result = ToArrivageResponse(updated)
		return nil
	})
	if err != nil {
		return nil, err
	}

	events.Publish(ctx, s.eventPublisher)
	return &result, nil
}

// Update changes an arrivage's descriptive fields, fixed costs and rate, then recalculates it
func (s *ArrivageService) Update(ctx context.Context, actor appshared.Actor, id uuid.UUID, req UpdateArrivageRequest) (*ArrivageResponse, error) {
	if err := actor.Require(identity.PermArrivagesUpdate); err != nil {
		return nil, err
	}

	var (
		events appshared.EventCollector
		result ArrivageResponse
	)
	err := s.txScope.Execute(ctx, func(repos appshared.Repositories) error {
		arrivage, err := repos.Arrivages().FindByIDForUpdate(ctx, actor.OrganizationID, id)
		if err != nil {
			return err
		}
		if !strings.EqualFold(strings.TrimSpace(req.Reference), arrivage.Reference) {
			if err := ensureUniqueReference(ctx, repos, actor.OrganizationID, req.Reference, &arrivage.ID); err != nil {
				return err
			}
		}
		if err := arrivage.Describe(req.Reference, req.Supplier, req.Notes, req.ArrivalDate); err != nil {
			return err
		}
		if err := arrivage.SetFixedCosts(req.ShippingCostEur, req.PackagingCostEur); err != nil {
			return err
		}
		if err := arrivage.SetExchangeRate(req.ExchangeRate); err != nil {
			return err
		}
		if err := arrivage.SetStatus(inventory.ArrivageStatus(req.Status)); err != nil {
			return err
		}
		arrivage.IncrementVersion()
		if err := repos.Arrivages().Save(ctx, arrivage); err != nil {
			return err
		}

		updated, err := s.aggregator.Recalculate(ctx, repos, actor.OrganizationID, arrivage.ID)
		if err != nil {
			return err
		}
		events.Collect(updated)
		result = ToArrivageResponse(updated)
		return nil
	})
	if err != nil {
		return nil, err
	}

	events.Publish(ctx, s.eventPublisher)
	return &result, nil
}

// Delete removes an arrivage that has no sold lots. Its lots are removed with their
// received units; its products and expenses are detached.
func (s *ArrivageService) Delete(ctx context.Context, actor appshared.Actor, id uuid.UUID) error {
	if err := actor.Require(identity.PermArrivagesDelete); err != nil {
		return err
	}

	var events appshared.EventCollector
	err := s.txScope.Execute(ctx, func(repos appshared.Repositories) error {
		if _, err := repos.Arrivages().FindByID(ctx, actor.OrganizationID, id); err != nil {
			return err
		}
		lots, err := repos.Lots().FindByArrivage(ctx, actor.OrganizationID, id)
		if err != nil {
			return err
		}

		// products are locked before the arrivage, in the order lot writers use
		locked := make(map[uuid.UUID]*catalog.Product)
		for _, productID := range sortedKeys(groupByProduct(lots)) {
			product, err := repos.Products().FindByIDForUpdate(ctx, actor.OrganizationID, productID)
			if err != nil {
				return err
			}
			locked[productID] = product
		}
		arrivage, err := repos.Arrivages().FindByIDForUpdate(ctx, actor.OrganizationID, id)
		if err != nil {
			return err
		}
		lots, err = repos.Lots().FindByArrivage(ctx, actor.OrganizationID, id)
		if err != nil {
			return err
		}
		for _, lot := range lots {
			if !lot.CanDelete() {
				return shared.NewDomainError(shared.CodeInvalidState, "arrivage has lots with sales and cannot be deleted")
			}
			if locked[lot.ProductID] == nil {
				return shared.ErrConcurrencyConflict
			}
		}

		byProduct := groupByProduct(lots)
		for _, productID := range sortedKeys(byProduct) {
			product := locked[productID]
			removed := 0
			for _, lot := range byProduct[productID] {
				removed += lot.Quantity
				if err := repos.Lots().Delete(ctx, actor.OrganizationID, lot.ID); err != nil {
					return err
				}
			}
			product.DetachFromArrivage(arrivage.ID)
			if err := receiveWithMovement(ctx, repos, actor, product, -removed, arrivage); err != nil {
				return err
			}
			events.Collect(product)
		}

		if err := repos.Expenses().DetachArrivage(ctx, actor.OrganizationID, id); err != nil {
			return err
		}
		return repos.Arrivages().Delete(ctx, actor.OrganizationID, id)
	})
	if err != nil {
		return err
	}

	events.Publish(ctx, s.eventPublisher)
	return nil
}

// Recalculate recomputes an arrivage's totals on demand
func (s *ArrivageService) Recalculate(ctx context.Context, actor appshared.Actor, id uuid.UUID) (*ArrivageResponse, error) {
	if err := actor.Require(identity.PermArrivagesUpdate); err != nil {
		return nil, err
	}

	var (
		events appshared.EventCollector
		result ArrivageResponse
	)
	err := s.txScope.Execute(ctx, func(repos appshared.Repositories) error {
		updated, err := s.aggregator.Recalculate(ctx, repos, actor.OrganizationID, id)
		if err != nil {
			return err
		}
		events.Collect(updated)
		result = ToArrivageResponse(updated)
		return nil
	})
	if err != nil {
		return nil, err
	}

	events.Publish(ctx, s.eventPublisher)
	return &result, nil
}

// Get returns an arrivage with its lots, and its expenses when the actor may view them
func (s *ArrivageService) Get(ctx context.Context, actor appshared.Actor, id uuid.UUID) (*ArrivageDetailResponse, error) {
	if err := actor.Require(identity.PermArrivagesView); err != nil {
		return nil, err
	}

	arrivage, err := s.repos.Arrivages().FindByID(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	lots, err := s.repos.Lots().FindByArrivage(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, err
	}

	productIDs := make([]uuid.UUID, 0, len(lots))
	for _, lot := range lots {
		productIDs = append(productIDs, lot.ProductID)
	}
	products, err := s.repos.Products().FindByIDs(ctx, actor.OrganizationID, productIDs)
	if err != nil {
		return nil, err
	}
	productMap := make(map[uuid.UUID]*catalog.Product, len(products))
	for i := range products {
		productMap[products[i].ID] = &products[i]
	}

	detail := &ArrivageDetailResponse{
		ArrivageResponse: ToArrivageResponse(arrivage),
		Items:            make([]ShipmentItemResponse, 0, len(lots)),
	}
	for i := range lots {
		detail.Items = append(detail.Items, ToShipmentItemResponse(&lots[i], productMap[lots[i].ProductID], arrivage.ExchangeRate))
	}

	if identity.HasPermission(actor.Role, identity.PermExpensesView) {
		expenses, _, err := s.repos.Expenses().List(ctx, actor.OrganizationID, finance.ExpenseFilter{
			Filter:     shared.Filter{Page: 1, PageSize: 200},
			ArrivageID: &arrivage.ID,
		})
		if err != nil {
			return nil, err
		}
		for i := range expenses {
			detail.Expenses = append(detail.Expenses, toLinkedExpense(&expenses[i]))
		}
	}
	return detail, nil
}

// List returns a page of arrivages
func (s *ArrivageService) List(ctx context.Context, actor appshared.Actor, filter ArrivageListFilter) (shared.Paginated[ArrivageResponse], error) {
	if err := actor.Require(identity.PermArrivagesView); err != nil {
		return shared.Paginated[ArrivageResponse]{}, err
	}

	domainFilter := inventory.ArrivageFilter{
		Filter: shared.Filter{
			Page:     filter.Page,
			PageSize: filter.PageSize,
			OrderBy:  filter.OrderBy,
			OrderDir: filter.OrderDir,
			Search:   filter.Search,
		}.Normalize(),
		Status: inventory.ArrivageStatus(filter.Status),
		From:   filter.From,
		To:     filter.To,
	}
	arrivages, total, err := s.repos.Arrivages().List(ctx, actor.OrganizationID, domainFilter)
	if err != nil {
		return shared.Paginated[ArrivageResponse]{}, err
	}

	items := make([]ArrivageResponse, len(arrivages))
	for i := range arrivages {
		items[i] = ToArrivageResponse(&arrivages[i])
	}
	return shared.NewPaginated(items, total, domainFilter.Page, domainFilter.PageSize), nil
}

// AddItem adds a lot of a product to an arrivage
func (s *ArrivageService) AddItem(ctx context.Context, actor appshared.Actor, arrivageID uuid.UUID, req AddItemRequest) (*ShipmentItemResponse, error) {
	if err := actor.Require(identity.PermArrivagesUpdate); err != nil {
		return nil, err
	}

	var (
		events appshared.EventCollector
		result ShipmentItemResponse
	)
	err := s.txScope.Execute(ctx, func(repos appshared.Repositories) error {
		arrivage, err := repos.Arrivages().FindByID(ctx, actor.OrganizationID, arrivageID)
		if err != nil {
			return err
		}
		product, err := repos.Products().FindByIDForUpdate(ctx, actor.OrganizationID, req.ProductID)
		if err != nil {
			return err
		}

		lot, err := inventory.NewShipmentItem(actor.OrganizationID, arrivage.ID, product.ID, req.Quantity, req.CostPerUnitEur)
		if err != nil {
			return err
		}
		if err := repos.Lots().Save(ctx, lot); err != nil {
			return err
		}
		product.AttachToArrivage(arrivage.ID)
		if err := receiveWithMovement(ctx, repos, actor, product, lot.Quantity, arrivage); err != nil {
			return err
		}

		updated, err := s.aggregator.Recalculate(ctx, repos, actor.OrganizationID, arrivage.ID)
		if err != nil {
			return err
		}
		events.Collect(product, updated)
		result = ToShipmentItemResponse(lot, product, updated.ExchangeRate)
		return nil
	})
	if err != nil {
		return nil, err
	}

	events.Publish(ctx, s.eventPublisher)
	return &result, nil
}

// UpdateItem resizes, re-costs or moves a lot. The quantity may not drop below
// what has been sold from the lot.
func (s *ArrivageService) UpdateItem(ctx context.Context, actor appshared.Actor, arrivageID, itemID uuid.UUID, req UpdateItemRequest) (*ShipmentItemResponse, error) {
	if err := actor.Require(identity.PermArrivagesUpdate); err != nil {
		return nil, err
	}

	var (
		events appshared.EventCollector
		result ShipmentItemResponse
	)
	err := s.txScope.Execute(ctx, func(repos appshared.Repositories) error {
		current, err := repos.Lots().FindByID(ctx, actor.OrganizationID, itemID)
		if err != nil {
			return err
		}
		if current.ArrivageID != arrivageID {
			return shared.NewNotFoundError("shipment item", itemID)
		}
		product, err := repos.Products().FindByIDForUpdate(ctx, actor.OrganizationID, current.ProductID)
		if err != nil {
			return err
		}
		lot, err := repos.Lots().FindByIDForUpdate(ctx, actor.OrganizationID, itemID)
		if err != nil {
			return err
		}

		target := lot.ArrivageID
		if req.ArrivageID != nil && *req.ArrivageID != lot.ArrivageID {
			if _, err := repos.Arrivages().FindByID(ctx, actor.OrganizationID, *req.ArrivageID); err != nil {
				return err
			}
			target = *req.ArrivageID
		}
		arrivage, err := repos.Arrivages().FindByID(ctx, actor.OrganizationID, target)
		if err != nil {
			return err
		}

		delta, err := lot.Resize(req.Quantity)
		if err != nil {
			return err
		}
		switch {
		case req.ClearCost:
			err = lot.SetCost(nil)
		case req.CostPerUnitEur != nil:
			err = lot.SetCost(req.CostPerUnitEur)
		}
		if err != nil {
			return err
		}
		previousArrivage := lot.ArrivageID
		if target != previousArrivage {
			lot.MoveTo(target)
		}
		if err := repos.Lots().Save(ctx, lot); err != nil {
			return err
		}
		if delta != 0 {
			if err := receiveWithMovement(ctx, repos, actor, product, delta, arrivage); err != nil {
				return err
			}
			events.Collect(product)
		}

		updated, err := RecalculateAll(ctx, s.aggregator, repos, actor.OrganizationID, &previousArrivage, &target)
		if err != nil {
			return err
		}
		for _, a := range updated {
			events.Collect(a)
		}
		result = ToShipmentItemResponse(lot, product, arrivage.ExchangeRate)
		return nil
	})
	if err != nil {
		return nil, err
	}

	events.Publish(ctx, s.eventPublisher)
	return &result, nil
}

// RemoveItem deletes a lot nothing has been sold from
func (s *ArrivageService) RemoveItem(ctx context.Context, actor appshared.Actor, arrivageID, itemID uuid.UUID) error {
	if err := actor.Require(identity.PermArrivagesUpdate); err != nil {
		return err
	}

	var events appshared.EventCollector
	err := s.txScope.Execute(ctx, func(repos appshared.Repositories) error {
		current, err := repos.Lots().FindByID(ctx, actor.OrganizationID, itemID)
		if err != nil {
			return err
		}
		if current.ArrivageID != arrivageID {
			return shared.NewNotFoundError("shipment item", itemID)
		}
		product, err := repos.Products().FindByIDForUpdate(ctx, actor.OrganizationID, current.ProductID)
		if err != nil {
			return err
		}
		lot, err := repos.Lots().FindByIDForUpdate(ctx, actor.OrganizationID, itemID)
		if err != nil {
			return err
		}
		if !lot.CanDelete() {
			return shared.NewDomainError(shared.CodeInvalidState, "lot has sales and cannot be removed")
		}
		arrivage, err := repos.Arrivages().FindByID(ctx, actor.OrganizationID, arrivageID)
		if err != nil {
			return err
		}

		if err := repos.Lots().Delete(ctx, actor.OrganizationID, lot.ID); err != nil {
			return err
		}
		if err := receiveWithMovement(ctx, repos, actor, product, -lot.Quantity, arrivage); err != nil {
			return err
		}

		updated, err := s.aggregator.Recalculate(ctx, repos, actor.OrganizationID, arrivageID)
		if err != nil {
			return err
		}
		events.Collect(product, updated)
		return nil
	})
	if err != nil {
		return err
	}

	events.Publish(ctx, s.eventPublisher)
	return nil
}

func (s *ArrivageService) exchangeRate(ctx context.Context, repos appshared.Repositories, orgID uuid.UUID, requested *decimal.Decimal) (decimal.Decimal, error) {
	if requested != nil {
		return *requested, nil
	}
	cfg, err := appshared.LoadSettings(ctx, repos, orgID)
	if err != nil {
		return decimal.Zero, err
	}
	return cfg.DefaultExchangeRate, nil
}

// receiveWithMovement moves the product's received counter by delta and writes the
// matching ARRIVAGE movement. The product must already be locked.
func receiveWithMovement(ctx context.Context, repos appshared.Repositories, actor appshared.Actor, product *catalog.Product, delta int, arrivage *inventory.Arrivage) error {
	if delta == 0 {
		return nil
	}
	previous := product.CurrentStock()
	if err := product.Receive(delta); err != nil {
		return err
	}
	product.IncrementVersion()
	if err := repos.Products().Save(ctx, product); err != nil {
		return err
	}

	movement, err := inventory.NewStockMovement(actor.OrganizationID, product.ID, inventory.MovementArrivage, previous, product.CurrentStock())
	if err != nil {
		return err
	}
	movement.WithReference(arrivage.Reference).WithSource(arrivage.ID).WithUser(actor.UserID)
	return repos.Movements().Create(ctx, movement)
}

func ensureUniqueReference(ctx context.Context, repos appshared.Repositories, orgID uuid.UUID, reference string, excludeID *uuid.UUID) error {
	exists, err := repos.Arrivages().ExistsByReference(ctx, orgID, strings.TrimSpace(reference), excludeID)
	if err != nil {
		return err
	}
	if exists {
		return shared.NewDomainError(shared.CodeAlreadyExists, "an arrivage with reference "+strings.TrimSpace(reference)+" already exists")
	}
	return nil
}

func sortedKeys[V any](m map[uuid.UUID]V) []uuid.UUID {
	keys := make([]uuid.UUID, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b uuid.UUID) int { return strings.Compare(a.String(), b.String()) })
	return keys
}

func groupByProduct(lots []inventory.ShipmentItem) map[uuid.UUID][]inventory.ShipmentItem {
	byProduct := make(map[uuid.UUID][]inventory.ShipmentItem)
	for _, lot := range lots {
		byProduct[lot.ProductID] = append(byProduct[lot.ProductID], lot)
	}
	return byProduct
}
