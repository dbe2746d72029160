package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	appreport "github.com/retail/backend/internal/application/report"
	appshared "github.com/retail/backend/internal/application/shared"
	"github.com/retail/backend/internal/domain/report"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// DashboardService computes the dashboard figures
type DashboardService interface {
	Dashboard(ctx context.Context, actor appshared.Actor, req appreport.DashboardRequest) (*report.Dashboard, error)
}

// ExportService renders spreadsheet exports
type ExportService interface {
	ExportSales(ctx context.Context, actor appshared.Actor, req appreport.ExportRequest) ([]byte, error)
	ExportMovements(ctx context.Context, actor appshared.Actor, req appreport.ExportRequest) ([]byte, error)
}

// ReportHandler handles the dashboard and export endpoints
type ReportHandler struct {
	BaseHandler
	dashboard DashboardService
	exports   ExportService
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(dashboard DashboardService, exports ExportService) *ReportHandler {
	return &ReportHandler{dashboard: dashboard, exports: exports}
}

// Dashboard godoc
// @Summary  Revenue, profit and stock figures for a date range
// @Tags     reports
// @Param    from query string false "First day, YYYY-MM-DD"
// @Param    to   query string false "Last day, YYYY-MM-DD"
// @Router   /dashboard [get]
func (h *ReportHandler) Dashboard(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req appreport.DashboardRequest
	if !h.BindQuery(c, &req) {
		return
	}

	dashboard, err := h.dashboard.Dashboard(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dashboard)
}

// ExportSales godoc
// @Summary  Sold lines of a date range as a spreadsheet
// @Tags     reports
// @Produce  application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Router   /reports/sales.xlsx [get]
func (h *ReportHandler) ExportSales(c *gin.Context) {
	h.export(c, "sales.xlsx", h.exports.ExportSales)
}

// ExportMovements godoc
// @Summary  Stock movements, optionally of one product, as a spreadsheet
// @Tags     reports
// @Produce  application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Router   /reports/movements.xlsx [get]
func (h *ReportHandler) ExportMovements(c *gin.Context) {
	h.export(c, "movements.xlsx", h.exports.ExportMovements)
}

func (h *ReportHandler) export(c *gin.Context, filename string, fn func(context.Context, appshared.Actor, appreport.ExportRequest) ([]byte, error)) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req appreport.ExportRequest
	if !h.BindQuery(c, &req) {
		return
	}
	if req.ProductID, ok = h.QueryID(c, "product_id"); !ok {
		return
	}

	data, err := fn(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, xlsxContentType, data)
}
