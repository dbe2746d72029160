package inventory

import (
	"context"
	"strings"

	"github.com/google/uuid"
	appshared "github.com/retail/backend/internal/application/shared"
	"github.com/retail/backend/internal/domain/identity"
	"github.com/retail/backend/internal/domain/inventory"
	"github.com/retail/backend/internal/domain/shared"
)

// StockLedger applies manual stock corrections. Every successful call writes the
// product counters and exactly one ADJUSTMENT movement in a single transaction.
type StockLedger struct {
	repos          appshared.Repositories
	txScope        appshared.TransactionScope
	eventPublisher shared.EventPublisher
}

// NewStockLedger creates a new StockLedger
func NewStockLedger(repos appshared.Repositories, txScope appshared.TransactionScope) *StockLedger {
	return &StockLedger{
		repos:   repos,
		txScope: txScope,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *StockLedger) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Adjust adds delta units to the product's stock (negative removes). The new stock
// may not be negative.
func (s *StockLedger) Adjust(ctx context.Context, actor appshared.Actor, productID uuid.UUID, req AdjustStockRequest) (*StockChangeResponse, error) {
	if err := actor.Require(identity.PermStockAdjust); err != nil {
		return nil, err
	}
	reason, err := parseReason(req.Reason, "")
	if err != nil {
		return nil, err
	}
	if req.Quantity == 0 {
		return nil, shared.NewValidationError("adjustment quantity must not be zero")
	}

	var (
		events appshared.EventCollector
		result *StockChangeResponse
	)
	err = s.txScope.Execute(ctx, func(repos appshared.Repositories) error {
		product, err := repos.Products().FindByIDForUpdate(ctx, actor.OrganizationID, productID)
		if err != nil {
			return err
		}
		previous, next, err := product.Adjust(req.Quantity)
		if err != nil {
			return err
		}
		product.IncrementVersion()
		if err := repos.Products().Save(ctx, product); err != nil {
			return err
		}

		movement, err := inventory.NewStockMovement(actor.OrganizationID, product.ID, inventory.MovementAdjustment, previous, next)
		if err != nil {
			return err
		}
		movement.WithReason(string(reason)).WithNotes(req.Notes).WithUser(actor.UserID)
		if err := repos.Movements().Create(ctx, movement); err != nil {
			return err
		}

		events.Collect(product)
		events.Add(inventory.NewStockAdjustedEvent(movement))
		result = &StockChangeResponse{
			ProductID:        product.ID,
			NewStock:         next,
			QuantityReceived: product.QuantityReceived,
			QuantitySold:     product.QuantitySold,
			Movement:         ToMovementResponse(movement),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	events.Publish(ctx, s.eventPublisher)
	return result, nil
}

// Reset forces the product's stock to an exact value. With ResetSold the cumulative
// sold counter is zeroed as well.
func (s *StockLedger) Reset(ctx context.Context, actor appshared.Actor, productID uuid.UUID, req ResetStockRequest) (*StockChangeResponse, error) {
	if err := actor.Require(identity.PermStockReset); err != nil {
		return nil, err
	}
	if req.TargetStock < 0 {
		return nil, shared.NewValidationError("target stock cannot be negative")
	}
	reason, err := parseReason(req.Reason, inventory.ReasonInventoryCount)
	if err != nil {
		return nil, err
	}

	var (
		events appshared.EventCollector
		result *StockChangeResponse
	)
	err = s.txScope.Execute(ctx, func(repos appshared.Repositories) error {
		product, err := repos.Products().FindByIDForUpdate(ctx, actor.OrganizationID, productID)
		if err != nil {
			return err
		}
		previous, next, err := product.Reset(req.TargetStock, req.ResetSold)
		if err != nil {
			return err
		}
		product.IncrementVersion()
		if err := repos.Products().Save(ctx, product); err != nil {
			return err
		}

		movement, err := inventory.NewStockMovement(actor.OrganizationID, product.ID, inventory.MovementAdjustment, previous, next)
		if err != nil {
			return err
		}
		movement.WithReason(string(reason)).
			WithReference(inventory.ResetReference).
			WithNotes(req.Notes).
			WithUser(actor.UserID)
		if err := repos.Movements().Create(ctx, movement); err != nil {
			return err
		}

		events.Collect(product)
		events.Add(inventory.NewStockAdjustedEvent(movement))
		result = &StockChangeResponse{
			ProductID:        product.ID,
			NewStock:         next,
			QuantityReceived: product.QuantityReceived,
			QuantitySold:     product.QuantitySold,
			Movement:         ToMovementResponse(movement),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	events.Publish(ctx, s.eventPublisher)
	return result, nil
}

// ListMovements returns a page of the movement log
func (s *StockLedger) ListMovements(ctx context.Context, actor appshared.Actor, filter MovementListFilter) (shared.Paginated[MovementResponse], error) {
	if err := actor.Require(identity.PermStockView); err != nil {
		return shared.Paginated[MovementResponse]{}, err
	}

	domainFilter := inventory.MovementFilter{
		Filter: shared.Filter{
			Page:     filter.Page,
			PageSize: filter.PageSize,
			OrderBy:  filter.OrderBy,
			OrderDir: filter.OrderDir,
			Search:   filter.Search,
		}.Normalize(),
		ProductID: filter.ProductID,
		Type:      inventory.MovementType(strings.ToUpper(filter.Type)),
		From:      filter.From,
		To:        filter.To,
	}
	movements, total, err := s.repos.Movements().List(ctx, actor.OrganizationID, domainFilter)
	if err != nil {
		return shared.Paginated[MovementResponse]{}, err
	}

	items := make([]MovementResponse, len(movements))
	for i := range movements {
		items[i] = ToMovementResponse(&movements[i])
	}
	return shared.NewPaginated(items, total, domainFilter.Page, domainFilter.PageSize), nil
}

func parseReason(raw string, fallback inventory.AdjustmentReason) (inventory.AdjustmentReason, error) {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	if raw == "" && fallback != "" {
		return fallback, nil
	}
	reason := inventory.AdjustmentReason(raw)
	if !reason.IsValid() {
		return "", shared.NewValidationError("invalid adjustment reason %q", raw)
	}
	return reason, nil
}
