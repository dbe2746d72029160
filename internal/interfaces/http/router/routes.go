package router

import (
	"github.com/gin-gonic/gin"
	"github.com/retail/backend/internal/domain/identity"
	"github.com/retail/backend/internal/infrastructure/config"
	"github.com/retail/backend/internal/infrastructure/logger"
	"github.com/retail/backend/internal/infrastructure/telemetry"
	"github.com/retail/backend/internal/interfaces/http/handler"
	"github.com/retail/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// Handlers groups the HTTP handlers the API serves
type Handlers struct {
	System   *handler.SystemHandler
	Member   *handler.MemberHandler
	Product  *handler.ProductHandler
	Brand    *handler.TaxonomyHandler
	Category *handler.TaxonomyHandler
	Arrivage *handler.ArrivageHandler
	Sale     *handler.SaleHandler
	Expense  *handler.ExpenseHandler
	Settings *handler.SettingsHandler
	Report   *handler.ReportHandler
}

// Deps is what the engine is built from
type Deps struct {
	Logger     *zap.Logger
	HTTP       config.HTTPConfig
	Telemetry  config.TelemetryConfig
	Meter      *telemetry.MeterProvider
	Production bool
	Tokens     middleware.TokenAuthenticator
	Members    middleware.ActorResolver
	Handlers   Handlers
	APIVersion string
}

// New builds the gin engine with the engine-wide middleware, the public health
// endpoint and every authenticated route under /api/<version>
func New(deps Deps) (*gin.Engine, error) {
	if deps.Production {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(deps.HTTP.TrustedProxies); err != nil {
		return nil, err
	}

	engine.Use(logger.Recovery(deps.Logger))
	if deps.Telemetry.Enabled {
		engine.Use(middleware.Tracing(deps.Telemetry.ServiceName))
	}
	metrics, err := middleware.HTTPMetrics(deps.Meter)
	if err != nil {
		return nil, err
	}
	engine.Use(metrics)
	engine.Use(
		logger.GinMiddleware(deps.Logger),
		middleware.SpanStatus(),
		middleware.Secure(),
		middleware.CORS(deps.HTTP),
		middleware.BodyLimit(deps.HTTP.MaxBodySize),
	)

	version := deps.APIVersion
	if version == "" {
		version = "v1"
	}
	h := deps.Handlers
	engine.GET("/health", h.System.Health)
	engine.GET("/api/"+version+"/health", h.System.Health)

	r := NewRouter(engine,
		WithAPIVersion(version),
		WithGroupMiddleware(middleware.Authenticate(deps.Tokens, deps.Members)),
	)
	for _, g := range Groups(h) {
		r.Register(g)
	}
	r.Setup()

	return engine, nil
}

// Groups returns the authenticated route groups. Every route carries the
// permission its operation requires.
func Groups(h Handlers) []*DomainGroup {
	me := NewDomainGroup("me", "/me").
		GET("", h.Member.Me)

	members := NewDomainGroup("members", "/members").
		GET("", guard(identity.PermUsersView, h.Member.List)...).
		PUT("/:userId/role", guard(identity.PermUsersManageRoles, h.Member.ChangeRole)...)

	products := NewDomainGroup("products", "/products").
		GET("", guard(identity.PermProductsView, h.Product.List)...).
		POST("", guard(identity.PermProductsCreate, h.Product.Create)...).
		GET("/:id", guard(identity.PermProductsView, h.Product.Get)...).
		PUT("/:id", guard(identity.PermProductsUpdate, h.Product.Update)...).
		DELETE("/:id", guard(identity.PermProductsDelete, h.Product.Deactivate)...).
		POST("/:id/activate", guard(identity.PermProductsUpdate, h.Product.Activate)...).
		GET("/:id/movements", guard(identity.PermStockView, h.Product.Movements)...).
		POST("/:id/adjust", guard(identity.PermStockAdjust, h.Product.Adjust)...).
		POST("/:id/reset", guard(identity.PermStockReset, h.Product.Reset)...)

	movements := NewDomainGroup("movements", "/movements").
		GET("", guard(identity.PermStockView, h.Product.AllMovements)...)

	brands := taxonomyGroup("brands", "/brands", h.Brand)
	categories := taxonomyGroup("categories", "/categories", h.Category)

	arrivages := NewDomainGroup("arrivages", "/arrivages").
		GET("", guard(identity.PermArrivagesView, h.Arrivage.List)...).
		POST("", guard(identity.PermArrivagesCreate, h.Arrivage.Create)...).
		GET("/:id", guard(identity.PermArrivagesView, h.Arrivage.Get)...).
		PUT("/:id", guard(identity.PermArrivagesUpdate, h.Arrivage.Update)...).
		DELETE("/:id", guard(identity.PermArrivagesDelete, h.Arrivage.Delete)...).
		POST("/:id/recalculate", guard(identity.PermArrivagesUpdate, h.Arrivage.Recalculate)...).
		POST("/:id/items", guard(identity.PermArrivagesUpdate, h.Arrivage.AddItem)...).
		PUT("/:id/items/:itemId", guard(identity.PermArrivagesUpdate, h.Arrivage.UpdateItem)...).
		DELETE("/:id/items/:itemId", guard(identity.PermArrivagesUpdate, h.Arrivage.RemoveItem)...)

	sales := NewDomainGroup("sales", "/sales").
		GET("", guard(identity.PermSalesView, h.Sale.List)...).
		POST("", guard(identity.PermSalesCreate, h.Sale.Create)...).
		POST("/bundle", guard(identity.PermSalesCreate, h.Sale.CreateBundle)...).
		GET("/:id", guard(identity.PermSalesView, h.Sale.Get)...).
		PUT("/:id", guard(identity.PermSalesUpdate, h.Sale.Update)...).
		DELETE("/:id", guard(identity.PermSalesDelete, h.Sale.Delete)...)

	expenses := NewDomainGroup("expenses", "/expenses").
		GET("", guard(identity.PermExpensesView, h.Expense.List)...).
		POST("", guard(identity.PermExpensesCreate, h.Expense.Create)...).
		GET("/:id", guard(identity.PermExpensesView, h.Expense.Get)...).
		PUT("/:id", guard(identity.PermExpensesUpdate, h.Expense.Update)...).
		DELETE("/:id", guard(identity.PermExpensesDelete, h.Expense.Delete)...)

	settings := NewDomainGroup("settings", "/settings").
		GET("", guard(identity.PermSettingsView, h.Settings.Get)...).
		PUT("", guard(identity.PermSettingsUpdate, h.Settings.Update)...)

	dashboard := NewDomainGroup("dashboard", "/dashboard").
		GET("", guard(identity.PermDashboardView, h.Report.Dashboard)...)

	reports := NewDomainGroup("reports", "/reports").
		GET("/sales.xlsx", guard(identity.PermDashboardView, h.Report.ExportSales)...).
		GET("/movements.xlsx", guard(identity.PermStockView, h.Report.ExportMovements)...)

	return []*DomainGroup{
		me, members, products, movements, brands, categories,
		arrivages, sales, expenses, settings, dashboard, reports,
	}
}

func taxonomyGroup(name, prefix string, h *handler.TaxonomyHandler) *DomainGroup {
	return NewDomainGroup(name, prefix).
		GET("", guard(identity.PermProductsView, h.List)...).
		POST("", guard(identity.PermProductsCreate, h.Create)...).
		PUT("/:id", guard(identity.PermProductsUpdate, h.Rename)...).
		DELETE("/:id", guard(identity.PermProductsDelete, h.Delete)...)
}

func guard(p identity.Permission, h gin.HandlerFunc) []gin.HandlerFunc {
	return []gin.HandlerFunc{middleware.RequirePermission(p), h}
}
