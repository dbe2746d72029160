package report

import (
	"context"
	"time"

	"github.com/google/uuid"
	appshared "github.com/retail/backend/internal/application/shared"
	"github.com/retail/backend/internal/domain/identity"
	"github.com/retail/backend/internal/domain/inventory"
	"github.com/retail/backend/internal/domain/report"
	"github.com/retail/backend/internal/domain/shared"
)

// MovementLine is one stock movement with its product name, flattened for exports
type MovementLine struct {
	OccurredAt  time.Time
	ProductName string
	Type        string
	Quantity    int
	PreviousQty int
	NewQty      int
	Reason      string
	Reference   string
	Notes       string
}

// WorkbookWriter renders report rows as a spreadsheet
type WorkbookWriter interface {
	SalesWorkbook(period report.Period, lines []report.SaleLine) ([]byte, error)
	MovementsWorkbook(lines []MovementLine) ([]byte, error)
}

// ExportRequest selects what to export
type ExportRequest struct {
	From      *time.Time `form:"from" time_format:"2006-01-02"`
	To        *time.Time `form:"to" time_format:"2006-01-02"`
	ProductID *uuid.UUID `form:"-"`
}

// ExportService builds spreadsheet exports
type ExportService struct {
	repos   appshared.Repositories
	reports report.Repository
	writer  WorkbookWriter
}

// NewExportService creates a new ExportService
func NewExportService(repos appshared.Repositories, reports report.Repository, writer WorkbookWriter) *ExportService {
	return &ExportService{repos: repos, reports: reports, writer: writer}
}

// ExportSales renders every sale line of the period
func (s *ExportService) ExportSales(ctx context.Context, actor appshared.Actor, req ExportRequest) ([]byte, error) {
	if err := actor.Require(identity.PermDashboardView); err != nil {
		return nil, err
	}
	period := ResolvePeriod(req.From, req.To, time.Now())
	lines, err := s.reports.SaleLines(ctx, actor.OrganizationID, period)
	if err != nil {
		return nil, err
	}
	return s.writer.SalesWorkbook(period, lines)
}

// ExportMovements renders the movement log, optionally for one product and period
func (s *ExportService) ExportMovements(ctx context.Context, actor appshared.Actor, req ExportRequest) ([]byte, error) {
	if err := actor.Require(identity.PermStockView); err != nil {
		return nil, err
	}

	filter := inventory.MovementFilter{
		Filter:    shared.Filter{Page: 1, PageSize: 200, OrderBy: "occurred_at", OrderDir: "asc"},
		ProductID: req.ProductID,
		From:      req.From,
		To:        req.To,
	}
	if req.To != nil {
		end := ResolvePeriod(nil, req.To, time.Now()).To
		filter.To = &end
	}

	var movements []inventory.StockMovement
	for {
		page, total, err := s.repos.Movements().List(ctx, actor.OrganizationID, filter)
		if err != nil {
			return nil, err
		}
		movements = append(movements, page...)
		if len(page) == 0 || int64(len(movements)) >= total {
			break
		}
		filter.Page++
	}

	names, err := s.productNames(ctx, actor.OrganizationID, movements)
	if err != nil {
		return nil, err
	}
	lines := make([]MovementLine, len(movements))
	for i, m := range movements {
		lines[i] = MovementLine{
			OccurredAt:  m.OccurredAt,
			ProductName: names[m.ProductID],
			Type:        string(m.Type),
			Quantity:    m.Quantity,
			PreviousQty: m.PreviousQty,
			NewQty:      m.NewQty,
			Reason:      m.Reason,
			Reference:   m.Reference,
			Notes:       m.Notes,
		}
	}
	return s.writer.MovementsWorkbook(lines)
}

func (s *ExportService) productNames(ctx context.Context, orgID uuid.UUID, movements []inventory.StockMovement) (map[uuid.UUID]string, error) {
	seen := make(map[uuid.UUID]struct{})
	ids := make([]uuid.UUID, 0)
	for _, m := range movements {
		if _, ok := seen[m.ProductID]; !ok {
			seen[m.ProductID] = struct{}{}
			ids = append(ids, m.ProductID)
		}
	}
	products, err := s.repos.Products().FindByIDs(ctx, orgID, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(products))
	for _, p := range products {
		names[p.ID] = p.Name
	}
	return names, nil
}
