package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	catalogapp "github.com/retail/backend/internal/application/catalog"
	inventoryapp "github.com/retail/backend/internal/application/inventory"
	appreport "github.com/retail/backend/internal/application/report"
	salesapp "github.com/retail/backend/internal/application/sales"
	appshared "github.com/retail/backend/internal/application/shared"
	"github.com/retail/backend/internal/domain/identity"
	"github.com/retail/backend/internal/domain/report"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/interfaces/http/dto"
	"github.com/retail/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

var testActor = appshared.Actor{
	OrganizationID: uuid.MustParse("7a1f0e4c-0000-4000-8000-000000000001"),
	UserID:         uuid.MustParse("7a1f0e4c-0000-4000-8000-000000000002"),
	Role:           identity.RoleAdmin,
}

// newEngine returns an engine whose requests are authenticated as testActor
func newEngine() *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.RequestIDKey, "req-1")
		middleware.SetActor(c, testActor)
		c.Next()
	})
	return r
}

func doJSON(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// MockSaleService implements SaleService for testing
type MockSaleService struct {
	mock.Mock
}

func (m *MockSaleService) Create(ctx context.Context, actor appshared.Actor, req salesapp.CreateSaleRequest) (*salesapp.SaleResponse, error) {
	args := m.Called(ctx, actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*salesapp.SaleResponse), args.Error(1)
}

func (m *MockSaleService) CreateBundle(ctx context.Context, actor appshared.Actor, req salesapp.CreateBundleRequest) (*salesapp.SaleResponse, error) {
	args := m.Called(ctx, actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*salesapp.SaleResponse), args.Error(1)
}

func (m *MockSaleService) Update(ctx context.Context, actor appshared.Actor, id uuid.UUID, req salesapp.UpdateSaleRequest) (*salesapp.SaleResponse, error) {
	args := m.Called(ctx, actor, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*salesapp.SaleResponse), args.Error(1)
}

func (m *MockSaleService) Delete(ctx context.Context, actor appshared.Actor, id uuid.UUID) error {
	return m.Called(ctx, actor, id).Error(0)
}

func (m *MockSaleService) Get(ctx context.Context, actor appshared.Actor, id uuid.UUID) (*salesapp.SaleResponse, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*salesapp.SaleResponse), args.Error(1)
}

func (m *MockSaleService) List(ctx context.Context, actor appshared.Actor, filter salesapp.SaleListFilter) (shared.Paginated[salesapp.SaleResponse], error) {
	args := m.Called(ctx, actor, filter)
	return args.Get(0).(shared.Paginated[salesapp.SaleResponse]), args.Error(1)
}

func TestSaleHandler_Create(t *testing.T) {
	productID := uuid.New()

	t.Run("records the sale", func(t *testing.T) {
		svc := new(MockSaleService)
		h := NewSaleHandler(svc)
		r := newEngine()
		r.POST("/sales", h.Create)

		saleID := uuid.New()
		svc.On("Create", mock.Anything, testActor, mock.MatchedBy(func(req salesapp.CreateSaleRequest) bool {
			return req.ProductID == productID && req.Quantity == 2
		})).Return(&salesapp.SaleResponse{ID: saleID}, nil)

		w := doJSON(r, http.MethodPost, "/sales", gin.H{"product_id": productID, "quantity": 2})

		assert.Equal(t, http.StatusCreated, w.Code)
		resp := decodeResponse(t, w)
		assert.True(t, resp.Success)
		assert.Equal(t, saleID.String(), resp.Data.(map[string]any)["id"])
		svc.AssertExpectations(t)
	})

	t.Run("insufficient stock answers 422 with the available quantity", func(t *testing.T) {
		svc := new(MockSaleService)
		h := NewSaleHandler(svc)
		r := newEngine()
		r.POST("/sales", h.Create)

		svc.On("Create", mock.Anything, testActor, mock.Anything).
			Return(nil, shared.NewInsufficientStockError("Rouge Velours", 3, 5))

		w := doJSON(r, http.MethodPost, "/sales", gin.H{"product_id": productID, "quantity": 5})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, shared.CodeInsufficientStock, resp.Error.Code)
		assert.Equal(t, "req-1", resp.Error.RequestID)
		assert.EqualValues(t, 3, resp.Error.Details["available"])
		assert.EqualValues(t, 5, resp.Error.Details["requested"])
	})

	t.Run("invalid body never reaches the service", func(t *testing.T) {
		svc := new(MockSaleService)
		h := NewSaleHandler(svc)
		r := newEngine()
		r.POST("/sales", h.Create)

		w := doJSON(r, http.MethodPost, "/sales", gin.H{"product_id": productID, "quantity": 0})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, shared.CodeValidation, resp.Error.Code)
		assert.Contains(t, resp.Error.Details, "fields")
		svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("malformed json is a bad request", func(t *testing.T) {
		h := NewSaleHandler(new(MockSaleService))
		r := newEngine()
		r.POST("/sales", h.Create)

		req := httptest.NewRequest(http.MethodPost, "/sales", bytes.NewBufferString("{"))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.CodeBadRequest, decodeResponse(t, w).Error.Code)
	})
}

func TestSaleHandler_Delete(t *testing.T) {
	svc := new(MockSaleService)
	h := NewSaleHandler(svc)
	r := newEngine()
	r.DELETE("/sales/:id", h.Delete)

	known, missing := uuid.New(), uuid.New()
	svc.On("Delete", mock.Anything, testActor, known).Return(nil)
	svc.On("Delete", mock.Anything, testActor, missing).Return(shared.NewNotFoundError("sale", missing))

	assert.Equal(t, http.StatusNoContent, doJSON(r, http.MethodDelete, "/sales/"+known.String(), nil).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(r, http.MethodDelete, "/sales/"+missing.String(), nil).Code)
	assert.Equal(t, http.StatusBadRequest, doJSON(r, http.MethodDelete, "/sales/not-a-uuid", nil).Code)
	svc.AssertExpectations(t)
}

func TestSaleHandler_List(t *testing.T) {
	svc := new(MockSaleService)
	h := NewSaleHandler(svc)
	r := newEngine()
	r.GET("/sales", h.List)

	productID := uuid.New()
	svc.On("List", mock.Anything, testActor, mock.MatchedBy(func(f salesapp.SaleListFilter) bool {
		return f.ProductID != nil && *f.ProductID == productID && f.Kind == "BUNDLE" && f.Page == 2 &&
			f.From != nil && f.From.Format("2006-01-02") == "2026-03-01"
	})).Return(shared.NewPaginated([]salesapp.SaleResponse{{ID: uuid.New()}}, 21, 2, 20), nil)

	w := doJSON(r, http.MethodGet, "/sales?product_id="+productID.String()+"&kind=BUNDLE&page=2&from=2026-03-01", nil)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.Len(t, resp.Data.([]any), 1)
	require.NotNil(t, resp.Meta)
	assert.EqualValues(t, 21, resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.TotalPages)
	svc.AssertExpectations(t)

	w = doJSON(r, http.MethodGet, "/sales?product_id=nope", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type fakeStock struct {
	adjusted inventoryapp.AdjustStockRequest
	err      error
}

func (f *fakeStock) Adjust(_ context.Context, _ appshared.Actor, productID uuid.UUID, req inventoryapp.AdjustStockRequest) (*inventoryapp.StockChangeResponse, error) {
	f.adjusted = req
	if f.err != nil {
		return nil, f.err
	}
	return &inventoryapp.StockChangeResponse{ProductID: productID, NewStock: 7 + req.Quantity}, nil
}

func (f *fakeStock) Reset(context.Context, appshared.Actor, uuid.UUID, inventoryapp.ResetStockRequest) (*inventoryapp.StockChangeResponse, error) {
	return nil, f.err
}

func (f *fakeStock) ListMovements(_ context.Context, _ appshared.Actor, filter inventoryapp.MovementListFilter) (shared.Paginated[inventoryapp.MovementResponse], error) {
	items := []inventoryapp.MovementResponse{{ID: uuid.New(), ProductID: *filter.ProductID, Type: "ADJUSTMENT"}}
	return shared.NewPaginated(items, 1, 1, 20), nil
}

type fakeProducts struct {
	ProductService
	filter catalogapp.ProductListFilter
}

func (f *fakeProducts) List(_ context.Context, _ appshared.Actor, filter catalogapp.ProductListFilter) (shared.Paginated[catalogapp.ProductResponse], error) {
	f.filter = filter
	return shared.NewPaginated[catalogapp.ProductResponse](nil, 0, 1, 20), nil
}

func TestProductHandler_Stock(t *testing.T) {
	productID := uuid.New()

	t.Run("adjust forwards the signed delta", func(t *testing.T) {
		stock := &fakeStock{}
		h := NewProductHandler(nil, stock)
		r := newEngine()
		r.POST("/products/:id/adjust", h.Adjust)

		w := doJSON(r, http.MethodPost, "/products/"+productID.String()+"/adjust", gin.H{"quantity": -2, "reason": "DAMAGE"})

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, -2, stock.adjusted.Quantity)
		assert.EqualValues(t, 5, decodeResponse(t, w).Data.(map[string]any)["new_stock"])
	})

	t.Run("adjust rejects an unknown reason", func(t *testing.T) {
		h := NewProductHandler(nil, &fakeStock{})
		r := newEngine()
		r.POST("/products/:id/adjust", h.Adjust)

		w := doJSON(r, http.MethodPost, "/products/"+productID.String()+"/adjust", gin.H{"quantity": 1, "reason": "THEFT"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("reset of an inactive product is a conflict", func(t *testing.T) {
		h := NewProductHandler(nil, &fakeStock{err: shared.NewDomainError(shared.CodeInvalidState, "product is inactive")})
		r := newEngine()
		r.POST("/products/:id/reset", h.Reset)

		w := doJSON(r, http.MethodPost, "/products/"+productID.String()+"/reset", gin.H{"target_stock": 3})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("movements are scoped to the path product", func(t *testing.T) {
		h := NewProductHandler(nil, &fakeStock{})
		r := newEngine()
		r.GET("/products/:id/movements", h.Movements)

		w := doJSON(r, http.MethodGet, "/products/"+productID.String()+"/movements", nil)

		require.Equal(t, http.StatusOK, w.Code)
		items := decodeResponse(t, w).Data.([]any)
		require.Len(t, items, 1)
		assert.Equal(t, productID.String(), items[0].(map[string]any)["product_id"])
	})
}

func TestProductHandler_List(t *testing.T) {
	products := &fakeProducts{}
	h := NewProductHandler(products, nil)
	r := newEngine()
	r.GET("/products", h.List)

	brandID := uuid.New()
	w := doJSON(r, http.MethodGet, "/products?brand_id="+brandID.String()+"&low_stock=true&search=rouge", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{}, decodeResponse(t, w).Data, "an empty page is an empty array")
	require.NotNil(t, products.filter.BrandID)
	assert.Equal(t, brandID, *products.filter.BrandID)
	assert.Nil(t, products.filter.CategoryID)
	assert.True(t, products.filter.LowStock)
	assert.Equal(t, "rouge", products.filter.Search)
}

type fakeExports struct {
	req appreport.ExportRequest
}

func (f *fakeExports) ExportSales(_ context.Context, _ appshared.Actor, req appreport.ExportRequest) ([]byte, error) {
	f.req = req
	return []byte("PK-sales"), nil
}

func (f *fakeExports) ExportMovements(_ context.Context, _ appshared.Actor, req appreport.ExportRequest) ([]byte, error) {
	f.req = req
	return nil, shared.NewPermissionError(string(identity.PermStockView))
}

type fakeDashboard struct{}

func (fakeDashboard) Dashboard(context.Context, appshared.Actor, appreport.DashboardRequest) (*report.Dashboard, error) {
	return &report.Dashboard{}, nil
}

func TestReportHandler(t *testing.T) {
	exports := &fakeExports{}
	h := NewReportHandler(fakeDashboard{}, exports)
	r := newEngine()
	r.GET("/dashboard", h.Dashboard)
	r.GET("/reports/sales.xlsx", h.ExportSales)
	r.GET("/reports/movements.xlsx", h.ExportMovements)

	t.Run("sales export is an attachment", func(t *testing.T) {
		w := doJSON(r, http.MethodGet, "/reports/sales.xlsx?from=2026-01-01&to=2026-01-31", nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
		assert.Contains(t, w.Header().Get("Content-Disposition"), `filename="sales.xlsx"`)
		assert.Equal(t, "PK-sales", w.Body.String())
		require.NotNil(t, exports.req.To)
		assert.Equal(t, "2026-01-31", exports.req.To.Format("2006-01-02"))
	})

	t.Run("export errors use the json envelope", func(t *testing.T) {
		w := doJSON(r, http.MethodGet, "/reports/movements.xlsx", nil)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, shared.CodeForbidden, decodeResponse(t, w).Error.Code)
	})

	t.Run("dashboard rejects a malformed date", func(t *testing.T) {
		w := doJSON(r, http.MethodGet, "/dashboard?from=01/02/2026", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestBaseHandler_Actor(t *testing.T) {
	h := NewSettingsHandler(nil)
	r := gin.New()
	r.GET("/settings", h.Get)

	w := doJSON(r, http.MethodGet, "/settings", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSystemHandler_Health(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		h := NewSystemHandler("retail-backend", "1.0.0", map[string]HealthCheck{
			"database": func(context.Context) error { return nil },
		})
		r := gin.New()
		r.GET("/health", h.Health)

		w := doJSON(r, http.MethodGet, "/health", nil)

		require.Equal(t, http.StatusOK, w.Code)
		resp := decodeResponse(t, w)
		data := resp.Data.(map[string]any)
		assert.Equal(t, "ok", data["status"])
		assert.Equal(t, "retail-backend", data["name"])
		assert.Equal(t, "up", data["checks"].(map[string]any)["database"])
	})

	t.Run("a failing dependency degrades the service", func(t *testing.T) {
		h := NewSystemHandler("retail-backend", "1.0.0", map[string]HealthCheck{
			"database": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return context.DeadlineExceeded },
		})
		r := gin.New()
		r.GET("/health", h.Health)

		w := doJSON(r, http.MethodGet, "/health", nil)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		resp := decodeResponse(t, w)
		assert.False(t, resp.Success)
		data := resp.Data.(map[string]any)
		assert.Equal(t, "degraded", data["status"])
		assert.Equal(t, "down", data["checks"].(map[string]any)["redis"])
	})
}
