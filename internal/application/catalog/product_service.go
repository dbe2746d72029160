package catalog

import (
	"context"

	"github.com/google/uuid"
	appinventory "github.com/retail/backend/internal/application/inventory"
	appshared "github.com/retail/backend/internal/application/shared"
	"github.com/retail/backend/internal/domain/catalog"
	"github.com/retail/backend/internal/domain/identity"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ProductService handles product-related business operations
type ProductService struct {
	repos          appshared.Repositories
	txScope        appshared.TransactionScope
	aggregator     appinventory.CostAggregator
	eventPublisher shared.EventPublisher
}

// NewProductService creates a new ProductService
func NewProductService(repos appshared.Repositories, txScope appshared.TransactionScope, aggregator appinventory.CostAggregator) *ProductService {
	if aggregator == nil {
		aggregator = appinventory.NewCostAggregator()
	}
	return &ProductService{
		repos:      repos,
		txScope:    txScope,
		aggregator: aggregator,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *ProductService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Create creates a new product with zero stock. Units arrive through arrivage items.
func (s *ProductService) Create(ctx context.Context, actor appshared.Actor, req CreateProductRequest) (*ProductResponse, error) {
	if err := actor.Require(identity.PermProductsCreate); err != nil {
		return nil, err
	}

	var (
		events appshared.EventCollector
		result ProductResponse
	)
	err := s.txScope.Execute(ctx, func(repos appshared.Repositories) error {
		settings, err := appshared.LoadSettings(ctx, repos, actor.OrganizationID)
		if err != nil {
			return err
		}
		if err := ensureTaxonomy(ctx, repos, actor.OrganizationID, req.BrandID, req.CategoryID); err != nil {
			return err
		}

		product, err := catalog.NewProduct(actor.OrganizationID, req.Name, req.PurchasePriceMad, req.SellingPriceDh)
		if err != nil {
			return err
		}
		if err := product.Update(req.Name, req.SKU, req.Description); err != nil {
			return err
		}
		if err := product.SetPrices(req.PurchasePriceMad, req.PurchasePriceEur, req.SellingPriceDh, settings.DefaultExchangeRate); err != nil {
			return err
		}
		threshold := settings.LowStockThreshold
		if req.LowStockThreshold != nil {
			threshold = *req.LowStockThreshold
		}
		if err := product.SetLowStockThreshold(threshold); err != nil {
			return err
		}
		product.Classify(req.BrandID, req.CategoryID)
		if err := repos.Products().Save(ctx, product); err != nil {
			return err
		}

		// creation is announced once
		product.ClearDomainEvents()
		events.Add(catalog.NewProductCreatedEvent(product))
		result = ToProductResponse(product, settings.PackagingCostDh)
		return nil
	})
	if err != nil {
		return nil, err
	}

	events.Publish(ctx, s.eventPublisher)
	return &result, nil
}

// Update changes a product's descriptive fields, prices and classification. Stock
// counters are never touched here. A purchase price change recalculates the arrivages
// holding the product's lots.
func (s *ProductService) Update(ctx context.Context, actor appshared.Actor, id uuid.UUID, req UpdateProductRequest) (*ProductResponse, error) {
	if err := actor.Require(identity.PermProductsUpdate); err != nil {
		return nil, err
	}

	var (
		events appshared.EventCollector
		result ProductResponse
	)
	err := s.txScope.Execute(ctx, func(repos appshared.Repositories) error {
		settings, err := appshared.LoadSettings(ctx, repos, actor.OrganizationID)
		if err != nil {
			return err
		}
		product, err := repos.Products().FindByID(ctx, actor.OrganizationID, id)
		if err != nil {
			return err
		}
		if req.Version != nil && *req.Version != product.Version {
			return shared.ErrConcurrencyConflict
		}
		if err := ensureTaxonomy(ctx, repos, actor.OrganizationID, req.BrandID, req.CategoryID); err != nil {
			return err
		}

		costMad, costEur := product.PurchasePriceMad, product.PurchasePriceEur
		if err := product.Update(req.Name, req.SKU, req.Description); err != nil {
			return err
		}
		if err := product.SetPrices(req.PurchasePriceMad, req.PurchasePriceEur, req.SellingPriceDh, settings.DefaultExchangeRate); err != nil {
			return err
		}
		if req.LowStockThreshold != nil {
			if err := product.SetLowStockThreshold(*req.LowStockThreshold); err != nil {
				return err
			}
		}
		product.Classify(req.BrandID, req.CategoryID)
		costChanged := !costMad.Equal(product.PurchasePriceMad) || !sameNullDecimal(costEur, product.PurchasePriceEur)
		product.IncrementVersion()
		if err := repos.Products().SaveWithLock(ctx, product); err != nil {
			return err
		}

		events.Collect(product)
		if costChanged {
			if err := s.recalculateArrivages(ctx, repos, &events, product); err != nil {
				return err
			}
		}
		result = ToProductResponse(product, settings.PackagingCostDh)
		return nil
	})
	if err != nil {
		return nil, err
	}

	events.Publish(ctx, s.eventPublisher)
	return &result, nil
}

// Get returns a product by id
func (s *ProductService) Get(ctx context.Context, actor appshared.Actor, id uuid.UUID) (*ProductResponse, error) {
	if err := actor.Require(identity.PermProductsView); err != nil {
		return nil, err
	}
	settings, err := appshared.LoadSettings(ctx, s.repos, actor.OrganizationID)
	if err != nil {
		return nil, err
	}
	product, err := s.repos.Products().FindByID(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	resp := ToProductResponse(product, settings.PackagingCostDh)
	return &resp, nil
}

// List returns a page of products
func (s *ProductService) List(ctx context.Context, actor appshared.Actor, filter ProductListFilter) (shared.Paginated[ProductResponse], error) {
	if err := actor.Require(identity.PermProductsView); err != nil {
		return shared.Paginated[ProductResponse]{}, err
	}
	settings, err := appshared.LoadSettings(ctx, s.repos, actor.OrganizationID)
	if err != nil {
		return shared.Paginated[ProductResponse]{}, err
	}

	domainFilter := catalog.ProductFilter{
		Filter: shared.Filter{
			Page:     filter.Page,
			PageSize: filter.PageSize,
			OrderBy:  filter.OrderBy,
			OrderDir: filter.OrderDir,
			Search:   filter.Search,
		}.Normalize(),
		BrandID:    filter.BrandID,
		CategoryID: filter.CategoryID,
		ArrivageID: filter.ArrivageID,
		Active:     filter.Active,
		LowStock:   filter.LowStock,
	}
	products, total, err := s.repos.Products().List(ctx, actor.OrganizationID, domainFilter)
	if err != nil {
		return shared.Paginated[ProductResponse]{}, err
	}

	items := make([]ProductResponse, len(products))
	for i := range products {
		items[i] = ToProductResponse(&products[i], settings.PackagingCostDh)
	}
	return shared.NewPaginated(items, total, domainFilter.Page, domainFilter.PageSize), nil
}

// Deactivate soft-deletes a product. Its history is kept and its lots stop counting
// toward arrivage costs.
func (s *ProductService) Deactivate(ctx context.Context, actor appshared.Actor, id uuid.UUID) (*ProductResponse, error) {
	if err := actor.Require(identity.PermProductsDelete); err != nil {
		return nil, err
	}
	return s.changeStatus(ctx, actor, id, (*catalog.Product).Deactivate)
}

// Activate restores a deactivated product
func (s *ProductService) Activate(ctx context.Context, actor appshared.Actor, id uuid.UUID) (*ProductResponse, error) {
	if err := actor.Require(identity.PermProductsUpdate); err != nil {
		return nil, err
	}
	return s.changeStatus(ctx, actor, id, (*catalog.Product).Activate)
}

func (s *ProductService) changeStatus(ctx context.Context, actor appshared.Actor, id uuid.UUID, apply func(*catalog.Product) error) (*ProductResponse, error) {
	var (
		events appshared.EventCollector
		result ProductResponse
	)
	err := s.txScope.Execute(ctx, func(repos appshared.Repositories) error {
		settings, err := appshared.LoadSettings(ctx, repos, actor.OrganizationID)
		if err != nil {
			return err
		}
		product, err := repos.Products().FindByIDForUpdate(ctx, actor.OrganizationID, id)
		if err != nil {
			return err
		}
		if err := apply(product); err != nil {
			return err
		}
		product.IncrementVersion()
		if err := repos.Products().Save(ctx, product); err != nil {
			return err
		}

		events.Collect(product)
		if err := s.recalculateArrivages(ctx, repos, &events, product); err != nil {
			return err
		}
		result = ToProductResponse(product, settings.PackagingCostDh)
		return nil
	})
	if err != nil {
		return nil, err
	}

	events.Publish(ctx, s.eventPublisher)
	return &result, nil
}

// recalculateArrivages reruns the aggregator for every arrivage holding a lot of the product
func (s *ProductService) recalculateArrivages(ctx context.Context, repos appshared.Repositories, events *appshared.EventCollector, product *catalog.Product) error {
	lots, err := repos.Lots().FindByProductForUpdate(ctx, product.OrganizationID, product.ID)
	if err != nil {
		return err
	}
	ids := make([]*uuid.UUID, 0, len(lots))
	for i := range lots {
		ids = append(ids, &lots[i].ArrivageID)
	}
	arrivages, err := appinventory.RecalculateAll(ctx, s.aggregator, repos, product.OrganizationID, ids...)
	if err != nil {
		return err
	}
	for _, a := range arrivages {
		events.Collect(a)
	}
	return nil
}

// ensureTaxonomy checks that referenced brand and category exist in the organization
func ensureTaxonomy(ctx context.Context, repos appshared.Repositories, orgID uuid.UUID, brandID, categoryID *uuid.UUID) error {
	if brandID != nil {
		if _, err := repos.Brands().FindByID(ctx, orgID, *brandID); err != nil {
			return err
		}
	}
	if categoryID != nil {
		if _, err := repos.Categories().FindByID(ctx, orgID, *categoryID); err != nil {
			return err
		}
	}
	return nil
}

// sameNullDecimal reports whether a and b are both unset or hold equal values
func sameNullDecimal(a, b decimal.NullDecimal) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Decimal.Equal(b.Decimal)
}
