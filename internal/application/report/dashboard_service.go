package report

import (
	"context"
	"time"

	"github.com/google/uuid"
	appshared "github.com/retail/backend/internal/application/shared"
	"github.com/retail/backend/internal/domain/catalog"
	"github.com/retail/backend/internal/domain/identity"
	"github.com/retail/backend/internal/domain/report"
	"github.com/retail/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// DefaultTopProducts is the length of the top products ranking
const DefaultTopProducts = 5

// DashboardCache stores computed dashboards per organization and period
type DashboardCache interface {
	// Get returns the cached dashboard, or nil on a miss
	Get(ctx context.Context, orgID uuid.UUID, period report.Period) (*report.Dashboard, error)
	// Generation returns the organization's current cache generation
	Generation(ctx context.Context, orgID uuid.UUID) (int64, error)
	// Set stores the dashboard under gen. An entry stored under a generation that
	// was invalidated in the meantime is never returned by Get.
	Set(ctx context.Context, orgID uuid.UUID, gen int64, period report.Period, dashboard *report.Dashboard) error
	// Invalidate drops every cached dashboard of the organization
	Invalidate(ctx context.Context, orgID uuid.UUID) error
	// Lock takes the recompute lock of a period. ok is false when another process holds it.
	Lock(ctx context.Context, orgID uuid.UUID, period report.Period) (release func(), ok bool, err error)
}

// DashboardRequest selects the reporting period. Dates are inclusive days.
type DashboardRequest struct {
	From *time.Time `form:"from" time_format:"2006-01-02"`
	To   *time.Time `form:"to" time_format:"2006-01-02"`
	Top  int        `form:"top" binding:"omitempty,min=1,max=50"`
}

// DashboardService computes the KPI dashboard
type DashboardService struct {
	repos     appshared.Repositories
	reports   report.Repository
	cache     DashboardCache
	logger    *zap.Logger
	waitSteps int
	waitDelay time.Duration
}

// NewDashboardService creates a new DashboardService. cache may be nil.
func NewDashboardService(repos appshared.Repositories, reports report.Repository, cache DashboardCache, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		repos:     repos,
		reports:   reports,
		cache:     cache,
		logger:    logger,
		waitSteps: 10,
		waitDelay: 100 * time.Millisecond,
	}
}

// Dashboard returns the organization's dashboard for the period, from the cache when possible
func (s *DashboardService) Dashboard(ctx context.Context, actor appshared.Actor, req DashboardRequest) (*report.Dashboard, error) {
	if err := actor.Require(identity.PermDashboardView); err != nil {
		return nil, err
	}
	period := ResolvePeriod(req.From, req.To, time.Now())
	top := req.Top
	if top == 0 {
		top = DefaultTopProducts
	}
	if s.cache == nil || top != DefaultTopProducts {
		return s.compute(ctx, actor.OrganizationID, period, top)
	}

	if cached := s.cached(ctx, actor.OrganizationID, period); cached != nil {
		return cached, nil
	}

	release, ok, err := s.cache.Lock(ctx, actor.OrganizationID, period)
	if err != nil {
		s.logger.Warn("dashboard lock unavailable", zap.Error(err))
		return s.compute(ctx, actor.OrganizationID, period, top)
	}
	if !ok {
		if cached := s.awaitOther(ctx, actor.OrganizationID, period); cached != nil {
			return cached, nil
		}
		return s.compute(ctx, actor.OrganizationID, period, top)
	}
	defer release()

	// another request may have filled the cache while we waited for the lock
	if cached := s.cached(ctx, actor.OrganizationID, period); cached != nil {
		return cached, nil
	}
	// read before computing: a write landing during the computation invalidates
	// this generation, so the result is stored where no reader looks
	gen, err := s.cache.Generation(ctx, actor.OrganizationID)
	if err != nil {
		s.logger.Warn("dashboard generation unavailable", zap.Error(err))
		return s.compute(ctx, actor.OrganizationID, period, top)
	}
	dashboard, err := s.compute(ctx, actor.OrganizationID, period, top)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, actor.OrganizationID, gen, period, dashboard); err != nil {
		s.logger.Warn("failed to cache dashboard", zap.Error(err))
	}
	return dashboard, nil
}

func (s *DashboardService) cached(ctx context.Context, orgID uuid.UUID, period report.Period) *report.Dashboard {
	dashboard, err := s.cache.Get(ctx, orgID, period)
	if err != nil {
		s.logger.Warn("dashboard cache read failed", zap.Error(err))
		return nil
	}
	return dashboard
}

// awaitOther polls the cache while another process recomputes the same period
func (s *DashboardService) awaitOther(ctx context.Context, orgID uuid.UUID, period report.Period) *report.Dashboard {
	for i := 0; i < s.waitSteps; i++ {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.waitDelay):
		}
		if cached := s.cached(ctx, orgID, period); cached != nil {
			return cached
		}
	}
	return nil
}

func (s *DashboardService) compute(ctx context.Context, orgID uuid.UUID, period report.Period, top int) (_ *report.Dashboard, err error) {
	ctx, span := telemetry.StartSpan(ctx, "dashboard.compute",
		attribute.String("organization_id", orgID.String()),
		attribute.Int("top", top),
	)
	defer telemetry.EndSpan(span, &err)

	totals, err := s.reports.SalesTotals(ctx, orgID, period)
	if err != nil {
		return nil, err
	}
	expenses, err := s.reports.ExpensesDh(ctx, orgID, period)
	if err != nil {
		return nil, err
	}
	ranking, err := s.reports.TopProducts(ctx, orgID, period, top)
	if err != nil {
		return nil, err
	}
	products, err := s.repos.Products().FindActive(ctx, orgID)
	if err != nil {
		return nil, err
	}

	dashboard := &report.Dashboard{
		Period:        period,
		RevenueDh:     totals.RevenueDh,
		UnitsSold:     totals.UnitsSold,
		SaleCount:     totals.SaleCount,
		CogsDh:        totals.CogsDh,
		ExpensesDh:    expenses,
		StockValueDh:  decimal.Zero,
		AverageMargin: catalog.AverageProductMargin(products),
		TopProducts:   ranking,
		ComputedAt:    time.Now(),
	}
	for i := range products {
		dashboard.StockValueDh = dashboard.StockValueDh.Add(products[i].StockValue())
		if products[i].IsLowStock() {
			dashboard.LowStockCount++
		}
	}
	dashboard.StockValueDh = dashboard.StockValueDh.Round(2)
	dashboard.Finish()
	return dashboard, nil
}

// ResolvePeriod turns optional day bounds into a period. Without from, the period
// starts on the first day of the current month; without to, it ends today. The end
// covers the whole last day.
func ResolvePeriod(from, to *time.Time, now time.Time) report.Period {
	var p report.Period
	if from != nil {
		p.From = startOfDay(*from)
	} else {
		p.From = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	}
	end := now
	if to != nil {
		end = *to
	}
	p.To = startOfDay(end).AddDate(0, 0, 1).Add(-time.Nanosecond)
	return p
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
