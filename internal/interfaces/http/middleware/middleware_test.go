package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appidentity "github.com/retail/backend/internal/application/identity"
	appshared "github.com/retail/backend/internal/application/shared"
	"github.com/retail/backend/internal/domain/identity"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/infrastructure/auth"
	"github.com/retail/backend/internal/infrastructure/config"
	"github.com/retail/backend/internal/infrastructure/logger"
	"github.com/retail/backend/internal/infrastructure/telemetry"
	"github.com/retail/backend/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeTokens struct {
	principal appidentity.Principal
	err       error
}

func (f fakeTokens) Authenticate(string) (appidentity.Principal, error) {
	return f.principal, f.err
}

type fakeResolver struct {
	role identity.Role
	err  error
}

func (f fakeResolver) Resolve(_ context.Context, p appidentity.Principal) (appshared.Actor, error) {
	if f.err != nil {
		return appshared.Actor{}, f.err
	}
	return appshared.Actor{OrganizationID: p.OrganizationID, UserID: p.UserID, Role: f.role}, nil
}

func decode(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestAuthenticate(t *testing.T) {
	principal := appidentity.Principal{UserID: uuid.New(), OrganizationID: uuid.New()}

	newEngine := func(tokens TokenAuthenticator, resolver ActorResolver) *gin.Engine {
		r := gin.New()
		r.Use(logger.GinMiddleware(zap.NewNop()), Authenticate(tokens, resolver))
		r.GET("/me", func(c *gin.Context) {
			actor, ok := GetActor(c)
			require.True(t, ok)
			c.JSON(http.StatusOK, gin.H{
				"organization_id": actor.OrganizationID.String(),
				"role":            actor.Role.String(),
				"logged_org":      logger.GetOrganizationID(c.Request.Context()),
			})
		})
		return r
	}
	request := func(header string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		return req
	}

	t.Run("stores the resolved actor", func(t *testing.T) {
		r := newEngine(fakeTokens{principal: principal}, fakeResolver{role: identity.RoleAdmin})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, request("Bearer good"))

		require.Equal(t, http.StatusOK, w.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, principal.OrganizationID.String(), body["organization_id"])
		assert.Equal(t, "ADMIN", body["role"])
		assert.Equal(t, principal.OrganizationID.String(), body["logged_org"])
	})

	tests := []struct {
		name     string
		header   string
		tokens   fakeTokens
		resolver fakeResolver
		status   int
		code     string
	}{
		{"missing header", "", fakeTokens{principal: principal}, fakeResolver{}, http.StatusUnauthorized, shared.CodeUnauthorized},
		{"not a bearer token", "Basic abc", fakeTokens{principal: principal}, fakeResolver{}, http.StatusUnauthorized, shared.CodeUnauthorized},
		{"empty bearer token", "Bearer   ", fakeTokens{principal: principal}, fakeResolver{}, http.StatusUnauthorized, shared.CodeUnauthorized},
		{"expired token", "Bearer old", fakeTokens{err: fmt.Errorf("validate: %w", auth.ErrExpiredToken)}, fakeResolver{}, http.StatusUnauthorized, dto.CodeTokenExpired},
		{"invalid token", "Bearer bad", fakeTokens{err: auth.ErrInvalidToken}, fakeResolver{}, http.StatusUnauthorized, dto.CodeInvalidToken},
		{"member lookup fails", "Bearer good", fakeTokens{principal: principal}, fakeResolver{err: errors.New("db down")}, http.StatusInternalServerError, dto.CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newEngine(tt.tokens, tt.resolver)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, request(tt.header))

			assert.Equal(t, tt.status, w.Code)
			resp := decode(t, w)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.NotEmpty(t, resp.Error.RequestID)
		})
	}
}

func TestRequirePermission(t *testing.T) {
	newEngine := func(actor *appshared.Actor) *gin.Engine {
		r := gin.New()
		r.Use(func(c *gin.Context) {
			if actor != nil {
				SetActor(c, *actor)
			}
			c.Next()
		})
		r.POST("/stock/reset", RequirePermission(identity.PermStockReset), func(c *gin.Context) {
			c.Status(http.StatusNoContent)
		})
		return r
	}

	t.Run("without an actor", func(t *testing.T) {
		w := httptest.NewRecorder()
		newEngine(nil).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/stock/reset", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("role lacks the permission", func(t *testing.T) {
		w := httptest.NewRecorder()
		newEngine(&appshared.Actor{Role: identity.RoleAdmin}).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/stock/reset", nil))

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, shared.CodeForbidden, decode(t, w).Error.Code)
	})

	t.Run("role holds the permission", func(t *testing.T) {
		w := httptest.NewRecorder()
		newEngine(&appshared.Actor{Role: identity.RoleSuperAdmin}).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/stock/reset", nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}

func TestBodyLimit(t *testing.T) {
	r := gin.New()
	r.Use(BodyLimit(16))
	r.POST("/sales", func(c *gin.Context) {
		var body map[string]any
		if err := c.ShouldBindJSON(&body); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		c.Status(http.StatusCreated)
	})

	t.Run("accepts a small body", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/sales", strings.NewReader(`{"a":1}`)))
		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("rejects a declared oversized body", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/sales", strings.NewReader(`{"notes":"far too long for the limit"}`)))

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Equal(t, dto.CodeRequestTooLarge, decode(t, w).Error.Code)
	})

	t.Run("cuts off an undeclared oversized body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/sales", bytes.NewBufferString(`{"notes":"far too long for the limit"}`))
		req.ContentLength = -1
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestFieldErrors(t *testing.T) {
	SetupValidator()

	type line struct {
		Quantity int `json:"quantity" binding:"min=1"`
	}
	type request struct {
		Reason string `json:"reason" binding:"required,oneof=CORRECTION DAMAGE"`
		Items  []line `json:"items" binding:"required,min=1,dive"`
	}

	r := gin.New()
	var details []dto.FieldError
	r.POST("/adjust", func(c *gin.Context) {
		var req request
		details = FieldErrors(c.ShouldBindJSON(&req))
		c.Status(http.StatusBadRequest)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/adjust",
		strings.NewReader(`{"reason":"THEFT","items":[{"quantity":0}]}`)))

	assert.ElementsMatch(t, []dto.FieldError{
		{Field: "reason", Message: "Must be one of: CORRECTION DAMAGE"},
		{Field: "items[0].quantity", Message: "Must be at least 1"},
	}, details)

	assert.Nil(t, FieldErrors(errors.New("unexpected EOF")))
}

func TestCORSAndSecure(t *testing.T) {
	newEngine := func(origins []string) *gin.Engine {
		r := gin.New()
		r.Use(Secure(), CORS(config.HTTPConfig{CORSAllowOrigins: origins}))
		r.GET("/products", func(c *gin.Context) { c.Status(http.StatusOK) })
		return r
	}

	t.Run("allows a configured origin with credentials", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/products", nil)
		req.Header.Set("Origin", "https://shop.example.com")
		w := httptest.NewRecorder()
		newEngine([]string{"https://shop.example.com"}).ServeHTTP(w, req)

		assert.Equal(t, "https://shop.example.com", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
		assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	})

	t.Run("rejects an unknown origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/products", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		w := httptest.NewRecorder()
		newEngine([]string{"https://shop.example.com"}).ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("wildcard drops credentials", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/products", nil)
		req.Header.Set("Origin", "https://any.example.com")
		w := httptest.NewRecorder()
		newEngine([]string{"*"}).ServeHTTP(w, req)

		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
	})
}

func TestTracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	r := gin.New()
	r.Use(Tracing("retail-test"), logger.GinMiddleware(zap.NewNop()), SpanStatus())
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/sales/:id", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/sales/1", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1, "health checks are not traced")
	assert.Contains(t, spans[0].Name(), "/sales/:id")
	assert.Equal(t, codes.Error, spans[0].Status().Code)

	var requestID string
	for _, kv := range spans[0].Attributes() {
		if kv.Key == "request_id" {
			requestID = kv.Value.AsString()
		}
	}
	assert.NotEmpty(t, requestID)
}

func TestDecimalRule(t *testing.T) {
	SetupValidator()

	type request struct {
		Price    decimal.Decimal  `json:"price" binding:"decimal_gte0"`
		Discount *decimal.Decimal `json:"discount" binding:"omitempty,decimal_gte0"`
	}

	bind := func(body string) []dto.FieldError {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		c.Request.Header.Set("Content-Type", "application/json")
		var req request
		return FieldErrors(c.ShouldBindJSON(&req))
	}

	assert.Empty(t, bind(`{"price":"12.50"}`))
	assert.Empty(t, bind(`{"price":"0","discount":"1.5"}`))
	assert.Equal(t, []dto.FieldError{{Field: "price", Message: "Must not be negative"}}, bind(`{"price":"-0.01"}`))
	assert.Equal(t, []dto.FieldError{{Field: "discount", Message: "Must not be negative"}}, bind(`{"price":"1","discount":"-2"}`))
}

func TestHTTPMetrics(t *testing.T) {
	t.Run("pass-through without an exporting provider", func(t *testing.T) {
		mw, err := HTTPMetrics(nil)
		require.NoError(t, err)

		r := gin.New()
		r.Use(mw)
		r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("counts by route status and organization", func(t *testing.T) {
		reader := sdkmetric.NewManualReader()
		provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
		t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

		mw, err := HTTPMetrics(telemetry.NewMeterProviderWith(provider, zap.NewNop()))
		require.NoError(t, err)

		org := uuid.New()
		r := gin.New()
		r.Use(mw)
		r.GET("/products/:id", func(c *gin.Context) {
			SetActor(c, appshared.Actor{OrganizationID: org, UserID: uuid.New(), Role: identity.RoleStaff})
			c.Status(http.StatusOK)
		})
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/products/1", nil))
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/products/2", nil))
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

		var rm metricdata.ResourceMetrics
		require.NoError(t, reader.Collect(context.Background(), &rm))
		require.Len(t, rm.ScopeMetrics, 1)

		var total metricdata.Sum[int64]
		var sawDuration bool
		for _, m := range rm.ScopeMetrics[0].Metrics {
			switch m.Name {
			case "http_server_request_total":
				total = m.Data.(metricdata.Sum[int64])
			case "http_server_request_duration_seconds":
				sawDuration = true
			}
		}
		assert.True(t, sawDuration)

		counts := map[string]int64{}
		for _, dp := range total.DataPoints {
			route, _ := dp.Attributes.Value(telemetry.AttrHTTPRoute)
			status, _ := dp.Attributes.Value(telemetry.AttrHTTPStatusCode)
			key := fmt.Sprintf("%s %d", route.AsString(), status.AsInt64())
			if orgID, ok := dp.Attributes.Value(telemetry.AttrOrganizationID); ok {
				assert.Equal(t, org.String(), orgID.AsString())
				key += " org"
			}
			counts[key] += dp.Value
		}
		assert.Equal(t, map[string]int64{
			"/products/:id 200 org": 2,
			"unknown 404":           1,
		}, counts)
	})
}
