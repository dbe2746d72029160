package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	catalogapp "github.com/retail/backend/internal/application/catalog"
	financeapp "github.com/retail/backend/internal/application/finance"
	identityapp "github.com/retail/backend/internal/application/identity"
	inventoryapp "github.com/retail/backend/internal/application/inventory"
	reportapp "github.com/retail/backend/internal/application/report"
	salesapp "github.com/retail/backend/internal/application/sales"
	settingsapp "github.com/retail/backend/internal/application/settings"
	"github.com/retail/backend/internal/domain/settings"
	"github.com/retail/backend/internal/infrastructure/auth"
	"github.com/retail/backend/internal/infrastructure/cache"
	"github.com/retail/backend/internal/infrastructure/config"
	"github.com/retail/backend/internal/infrastructure/event"
	"github.com/retail/backend/internal/infrastructure/export"
	"github.com/retail/backend/internal/infrastructure/logger"
	"github.com/retail/backend/internal/infrastructure/persistence"
	"github.com/retail/backend/internal/infrastructure/strategy"
	"github.com/retail/backend/internal/infrastructure/telemetry"
	"github.com/retail/backend/internal/interfaces/http/handler"
	"github.com/retail/backend/internal/interfaces/http/router"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

//	@title			Retail Inventory API
//	@version		1.0
//	@description	Stock, arrivage cost and sales tracking for small retail organizations
//	@BasePath		/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting retail backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	if err := run(cfg, log); err != nil {
		log.Fatal("Server exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx := context.Background()

	applyInventoryDefaults(cfg.Inventory)

	tp, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		return err
	}
	mp, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		return err
	}
	lp, err := telemetry.NewLoggerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		return err
	}
	logLevel, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		logLevel = zapcore.InfoLevel
	}
	log = lp.Bridge(log, logLevel)
	profiler, err := telemetry.NewProfiler(cfg.Telemetry, log)
	if err != nil {
		return err
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := telemetry.RegisterGormTracing(db.DB, cfg.Telemetry, log); err != nil {
		return err
	}
	dbMetrics, err := telemetry.RegisterDBMetrics(db.DB, mp, log)
	if err != nil {
		return err
	}
	log.Info("Database connected successfully")

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
		log.Info("Redis connected, dashboard cache enabled", zap.Duration("ttl", cfg.Redis.DashboardTTL))
	}
	dashboardCache := cache.NewDashboardCache(redisClient, cfg.Redis.DashboardTTL, cfg.Redis.LockTTL, log)

	policies, err := strategy.NewRegistryWithDefaults()
	if err != nil {
		return err
	}
	if err := policies.SetDefault(cfg.Inventory.AllocationPolicy); err != nil {
		return err
	}

	repos := persistence.NewRepositories(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)
	reports := persistence.NewGormReportRepository(db.DB)
	aggregator := inventoryapp.NewCostAggregator()

	productService := catalogapp.NewProductService(repos, txScope, aggregator)
	taxonomyService := catalogapp.NewTaxonomyService(repos, txScope)
	stockLedger := inventoryapp.NewStockLedger(repos, txScope)
	arrivageService := inventoryapp.NewArrivageService(repos, txScope, aggregator)
	saleService := salesapp.NewSaleService(repos, txScope, policies, log)
	expenseService := financeapp.NewExpenseService(repos, txScope, aggregator)
	settingsService := settingsapp.NewService(repos, policies)
	dashboardService := reportapp.NewDashboardService(repos, reports, dashboardCache, log)
	exportService := reportapp.NewExportService(repos, reports, export.NewExcelWriter())
	memberService := identityapp.NewMemberService(repos, log)

	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(catalogapp.NewLowStockHandler(repos.Products(), log))
	eventBus.Subscribe(reportapp.NewCacheInvalidator(dashboardCache, log))
	if err := eventBus.Start(ctx); err != nil {
		return err
	}

	productService.SetEventPublisher(eventBus)
	stockLedger.SetEventPublisher(eventBus)
	arrivageService.SetEventPublisher(eventBus)
	saleService.SetEventPublisher(eventBus)
	expenseService.SetEventPublisher(eventBus)

	checks := map[string]handler.HealthCheck{
		"database": func(context.Context) error { return db.Ping() },
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	engine, err := router.New(router.Deps{
		Logger:     log,
		HTTP:       cfg.HTTP,
		Telemetry:  cfg.Telemetry,
		Meter:      mp,
		Production: cfg.App.IsProduction(),
		Tokens:     auth.NewTokenValidator(cfg.JWT),
		Members:    memberService,
		Handlers: router.Handlers{
			System:   handler.NewSystemHandler(cfg.App.Name, version, checks),
			Member:   handler.NewMemberHandler(memberService),
			Product:  handler.NewProductHandler(productService, stockLedger),
			Brand:    handler.NewBrandHandler(taxonomyService),
			Category: handler.NewCategoryHandler(taxonomyService),
			Arrivage: handler.NewArrivageHandler(arrivageService),
			Sale:     handler.NewSaleHandler(saleService),
			Expense:  handler.NewExpenseHandler(expenseService),
			Settings: handler.NewSettingsHandler(settingsService),
			Report:   handler.NewReportHandler(dashboardService, exportService),
		},
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info("Shutting down server...", zap.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Error("Event bus did not drain", zap.Error(err))
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Error("Tracer provider shutdown failed", zap.Error(err))
	}
	if err := dbMetrics.Unregister(); err != nil {
		log.Error("Database metrics unregister failed", zap.Error(err))
	}
	if err := mp.Shutdown(shutdownCtx); err != nil {
		log.Error("Meter provider shutdown failed", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Error("Profiler stop failed", zap.Error(err))
	}

	log.Info("Server exited")
	if err := lp.Shutdown(shutdownCtx); err != nil {
		log.Error("Logger provider shutdown failed", zap.Error(err))
	}
	return nil
}

// applyInventoryDefaults replaces the built-in organization defaults with the
// configured ones. Organizations that saved their own settings are unaffected.
func applyInventoryDefaults(inv config.InventoryConfig) {
	if inv.DefaultPackagingCostDh > 0 {
		settings.DefaultPackagingCostDh = decimal.NewFromFloat(inv.DefaultPackagingCostDh)
	}
	if inv.DefaultExchangeRate > 0 {
		settings.DefaultExchangeRate = decimal.NewFromFloat(inv.DefaultExchangeRate)
	}
	if inv.DefaultLowStockThreshold >= 0 {
		settings.DefaultLowStockThreshold = inv.DefaultLowStockThreshold
	}
	if inv.AllocationPolicy != "" {
		settings.DefaultAllocationPolicyKey = inv.AllocationPolicy
	}
}
