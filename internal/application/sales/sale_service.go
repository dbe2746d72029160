package sales

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	appshared "github.com/retail/backend/internal/application/shared"
	"github.com/retail/backend/internal/domain/identity"
	"github.com/retail/backend/internal/domain/sales"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Movement references written by sale operations
const (
	ReferenceSale        = "Sale"
	ReferenceSaleUpdated = "Sale updated"
	ReferenceSaleDeleted = "Sale deleted"
)

// SaleService records sales and allocates their units to lots. Each operation runs
// in one transaction with the affected products and lots locked, so concurrent
// sales of the same product serialize and cannot overdraw stock.
type SaleService struct {
	repos          appshared.Repositories
	txScope        appshared.TransactionScope
	policies       PolicyProvider
	logger         *zap.Logger
	eventPublisher shared.EventPublisher
}

// NewSaleService creates a new SaleService
func NewSaleService(
	repos appshared.Repositories,
	txScope appshared.TransactionScope,
	policies PolicyProvider,
	logger *zap.Logger,
) *SaleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SaleService{
		repos:    repos,
		txScope:  txScope,
		policies: policies,
		logger:   logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *SaleService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Create records a single-product sale
func (s *SaleService) Create(ctx context.Context, actor appshared.Actor, req CreateSaleRequest) (*SaleResponse, error) {
	lines := []SaleLineRequest{{ProductID: req.ProductID, Quantity: req.Quantity, PricePerUnit: req.PricePerUnit}}
	return s.record(ctx, actor, sales.SaleKindSingle, lines, req.SaleDate, req.IsPromo, req.Notes)
}

// CreateBundle records a multi-product sale. Either every line is allocated or
// nothing is written.
func (s *SaleService) CreateBundle(ctx context.Context, actor appshared.Actor, req CreateBundleRequest) (*SaleResponse, error) {
	return s.record(ctx, actor, sales.SaleKindBundle, req.Items, req.SaleDate, req.IsPromo, req.Notes)
}

func (s *SaleService) record(ctx context.Context, actor appshared.Actor, kind sales.SaleKind, reqLines []SaleLineRequest, saleDate time.Time, promo bool, notes string) (_ *SaleResponse, err error) {
	if err := actor.Require(identity.PermSalesCreate); err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "sale.record",
		attribute.String("organization_id", actor.OrganizationID.String()),
		attribute.String("kind", string(kind)),
		attribute.Int("lines", len(reqLines)),
	)
	defer telemetry.EndSpan(span, &err)

	var (
		events appshared.EventCollector
		result SaleResponse
	)
	err = s.txScope.Execute(ctx, func(repos appshared.Repositories) error {
		l, err := openLedger(ctx, repos, actor, s.policies, lineProductIDs(reqLines))
		if err != nil {
			return err
		}
		lines, err := priceLines(l, reqLines, true)
		if err != nil {
			return err
		}

		sale, err := sales.NewSale(actor.OrganizationID, kind, saleDate, lines)
		if err != nil {
			return err
		}
		sale.IsPromo = promo
		sale.SetNotes(notes)
		sale.SetCreatedBy(actor.UserID)

		if err := allocateLines(ctx, l, sale); err != nil {
			return err
		}
		if err := l.finish(ctx, sale.ID, ReferenceSale); err != nil {
			return err
		}
		if err := repos.Sales().Create(ctx, sale); err != nil {
			return err
		}

		sale.MarkRecorded()
		events.Collect(sale)
		events.Collect(l.aggregates()...)
		result = ToSaleResponse(sale)
		return nil
	})
	if err != nil {
		s.logFailure("create", actor, uuid.Nil, err)
		return nil, err
	}

	events.Publish(ctx, s.eventPublisher)
	return &result, nil
}

// Update replaces a sale's lines. The stored allocations are reversed and the new
// lines allocated again in the same transaction; each product gets one movement
// for its net change.
func (s *SaleService) Update(ctx context.Context, actor appshared.Actor, id uuid.UUID, req UpdateSaleRequest) (*SaleResponse, error) {
	if err := actor.Require(identity.PermSalesUpdate); err != nil {
		return nil, err
	}

	var (
		events appshared.EventCollector
		result SaleResponse
	)
	err := s.txScope.Execute(ctx, func(repos appshared.Repositories) error {
		sale, err := repos.Sales().FindByIDForUpdate(ctx, actor.OrganizationID, id)
		if err != nil {
			return err
		}

		ids := append(saleProductIDs(sale), lineProductIDs(req.Items)...)
		l, err := openLedger(ctx, repos, actor, s.policies, ids)
		if err != nil {
			return err
		}
		if err := l.reverse(ctx, sale); err != nil {
			return err
		}

		lines, err := priceLines(l, req.Items, false)
		if err != nil {
			return err
		}
		if err := sale.Replace(lines, req.SaleDate); err != nil {
			return err
		}
		sale.IsPromo = req.IsPromo
		sale.SetNotes(req.Notes)

		if err := allocateLines(ctx, l, sale); err != nil {
			return err
		}
		if err := l.finish(ctx, sale.ID, ReferenceSaleUpdated); err != nil {
			return err
		}
		if err := repos.Sales().Replace(ctx, sale); err != nil {
			return err
		}

		sale.MarkRecorded()
		events.Collect(sale)
		events.Collect(l.aggregates()...)
		result = ToSaleResponse(sale)
		return nil
	})
	if err != nil {
		s.logFailure("update", actor, id, err)
		return nil, err
	}

	events.Publish(ctx, s.eventPublisher)
	return &result, nil
}

// Delete removes a sale and returns exactly the units it drew to the same lots
func (s *SaleService) Delete(ctx context.Context, actor appshared.Actor, id uuid.UUID) error {
	if err := actor.Require(identity.PermSalesDelete); err != nil {
		return err
	}

	var events appshared.EventCollector
	err := s.txScope.Execute(ctx, func(repos appshared.Repositories) error {
		sale, err := repos.Sales().FindByIDForUpdate(ctx, actor.OrganizationID, id)
		if err != nil {
			return err
		}
		l, err := openLedger(ctx, repos, actor, s.policies, saleProductIDs(sale))
		if err != nil {
			return err
		}
		if err := l.reverse(ctx, sale); err != nil {
			return err
		}
		if err := l.finish(ctx, sale.ID, ReferenceSaleDeleted); err != nil {
			return err
		}
		if err := repos.Sales().Delete(ctx, actor.OrganizationID, sale.ID); err != nil {
			return err
		}

		sale.MarkDeleted()
		events.Collect(sale)
		events.Collect(l.aggregates()...)
		return nil
	})
	if err != nil {
		s.logFailure("delete", actor, id, err)
		return err
	}

	events.Publish(ctx, s.eventPublisher)
	return nil
}

// Get returns a sale with its lines and allocations
func (s *SaleService) Get(ctx context.Context, actor appshared.Actor, id uuid.UUID) (*SaleResponse, error) {
	if err := actor.Require(identity.PermSalesView); err != nil {
		return nil, err
	}
	sale, err := s.repos.Sales().FindByID(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	resp := ToSaleResponse(sale)
	return &resp, nil
}

// List returns a page of sales
func (s *SaleService) List(ctx context.Context, actor appshared.Actor, filter SaleListFilter) (shared.Paginated[SaleResponse], error) {
	if err := actor.Require(identity.PermSalesView); err != nil {
		return shared.Paginated[SaleResponse]{}, err
	}

	domainFilter := sales.SaleFilter{
		Filter: shared.Filter{
			Page:     filter.Page,
			PageSize: filter.PageSize,
			OrderBy:  filter.OrderBy,
			OrderDir: filter.OrderDir,
		}.Normalize(),
		From:      filter.From,
		To:        filter.To,
		ProductID: filter.ProductID,
		Kind:      sales.SaleKind(filter.Kind),
		Promo:     filter.Promo,
	}
	list, total, err := s.repos.Sales().List(ctx, actor.OrganizationID, domainFilter)
	if err != nil {
		return shared.Paginated[SaleResponse]{}, err
	}

	items := make([]SaleResponse, len(list))
	for i := range list {
		items[i] = ToSaleResponse(&list[i])
	}
	return shared.NewPaginated(items, total, domainFilter.Page, domainFilter.PageSize), nil
}

// logFailure reports allocation inconsistencies loudly; they mean stored counters
// drifted or locking was bypassed
func (s *SaleService) logFailure(op string, actor appshared.Actor, saleID uuid.UUID, err error) {
	if !errors.Is(err, shared.ErrConsistency) {
		return
	}
	s.logger.Error("Sale allocation inconsistency",
		zap.String("operation", op),
		zap.String("organization_id", actor.OrganizationID.String()),
		zap.String("user_id", actor.UserID.String()),
		zap.String("sale_id", saleID.String()),
		zap.Error(err),
	)
}

// priceLines resolves each line's price, defaulting to the product's selling price.
// New sales may not include inactive products.
func priceLines(l *ledger, reqLines []SaleLineRequest, requireActive bool) ([]sales.Line, error) {
	lines := make([]sales.Line, 0, len(reqLines))
	for _, rl := range reqLines {
		product := l.product(rl.ProductID)
		if product == nil {
			return nil, shared.NewNotFoundError("product", rl.ProductID)
		}
		if requireActive && !product.IsActive() {
			return nil, shared.NewValidationError("product %s is inactive", product.Name)
		}
		price := product.SellingPriceDh
		if rl.PricePerUnit != nil {
			price = *rl.PricePerUnit
		}
		lines = append(lines, sales.Line{ProductID: rl.ProductID, Quantity: rl.Quantity, PricePerUnit: price})
	}
	return lines, nil
}

// allocateLines draws every line in ascending product order
func allocateLines(ctx context.Context, l *ledger, sale *sales.Sale) error {
	wanted := sale.QuantityByProduct()
	for _, productID := range sortedUnique(keys(wanted)) {
		if err := l.draw(ctx, sale, productID, wanted[productID]); err != nil {
			return err
		}
		sale.NameItem(productID, l.product(productID).Name)
	}
	return nil
}

func lineProductIDs(lines []SaleLineRequest) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	return ids
}

func saleProductIDs(sale *sales.Sale) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(sale.Items)+len(sale.Allocations))
	for _, it := range sale.Items {
		ids = append(ids, it.ProductID)
	}
	for _, a := range sale.Allocations {
		ids = append(ids, a.ProductID)
	}
	return ids
}
