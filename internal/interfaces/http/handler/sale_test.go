package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	salesapp "github.com/salesapi/backend/internal/application/sales"
	"github.com/salesapi/backend/internal/domain/sales"
	"github.com/salesapi/backend/internal/domain/shared"
	"github.com/salesapi/backend/internal/infrastructure/cache"
	"github.com/salesapi/backend/internal/infrastructure/persistence"
	"github.com/salesapi/backend/internal/infrastructure/persistence/models"
	"github.com/salesapi/backend/internal/interfaces/http/dto"
	"github.com/salesapi/backend/internal/interfaces/http/middleware"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type saleEnvelope struct {
	Success bool                  `json:"success"`
	Data    salesapp.SaleResponse `json:"data"`
	Error   *dto.ErrorInfo        `json:"error"`
}

func newSaleTestRouter(t *testing.T, mw ...gin.HandlerFunc) *gin.Engine {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.SaleModel{}, &models.SaleItemModel{}))
	t.Cleanup(func() { _ = sqlDB.Close() })

	store := cache.NewInMemoryIdempotencyStore(time.Minute)
	t.Cleanup(func() { _ = store.Close() })

	svc := salesapp.NewSaleService(
		persistence.NewGormSaleRepository(db),
		sales.NewEngine(),
		salesapp.NewSaleRequestValidator(),
	)
	svc.SetIdempotencyStore(store, shared.DefaultIdempotencyConfig())

	h := NewSaleHandler(svc)
	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(mw...)
	g := router.Group("/sales")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.GetByID)
	g.PUT("/:id", h.Update)
	g.POST("/:id/cancel", h.Cancel)
	g.DELETE("/:id", h.Delete)
	return router
}

func saleBody(items ...map[string]any) map[string]any {
	if len(items) == 0 {
		items = []map[string]any{saleItem(uuid.New(), 5, "100")}
	}
	return map[string]any{
		"customerId":   uuid.New().String(),
		"customerName": "Acme Corp",
		"branchId":     uuid.New().String(),
		"branchName":   "Downtown",
		"items":        items,
	}
}

func saleItem(productID uuid.UUID, qty int, price string) map[string]any {
	return map[string]any{
		"productId":   productID.String(),
		"productName": "Keyboard",
		"quantity":    qty,
		"unitPrice":   price,
	}
}

func send(t *testing.T, router *gin.Engine, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeSale(t *testing.T, w *httptest.ResponseRecorder) saleEnvelope {
	t.Helper()
	var env saleEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestSaleHandler_Create(t *testing.T) {
	t.Run("prices and stores the sale", func(t *testing.T) {
		router := newSaleTestRouter(t)

		w := send(t, router, http.MethodPost, "/sales", saleBody(saleItem(uuid.New(), 5, "100"), saleItem(uuid.New(), 2, "30")))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		env := decodeSale(t, w)
		assert.True(t, env.Success)
		assert.Regexp(t, `^SALE-\d{8}-[A-Z0-9]{6}$`, env.Data.SaleNumber)
		require.Len(t, env.Data.Items, 2)
		// 5 x 100 with 10% off, plus 2 x 30 undiscounted
		assert.True(t, decimal.NewFromInt(510).Equal(env.Data.TotalAmount), env.Data.TotalAmount.String())
		assert.Equal(t, 1, env.Data.Version)
	})

	t.Run("idempotency key replays the first sale", func(t *testing.T) {
		router := newSaleTestRouter(t)
		body := saleBody()

		first := send(t, router, http.MethodPost, "/sales", body, IdempotencyKeyHeader, "key-1")
		require.Equal(t, http.StatusCreated, first.Code)
		second := send(t, router, http.MethodPost, "/sales", body, IdempotencyKeyHeader, "key-1")
		require.Equal(t, http.StatusOK, second.Code)

		assert.Equal(t, decodeSale(t, first).Data.ID, decodeSale(t, second).Data.ID)
	})

	t.Run("idempotency keys do not cross users", func(t *testing.T) {
		// stands in for the JWT middleware, user taken from a test header
		asUser := func(c *gin.Context) {
			c.Set(middleware.JWTUserIDKey, c.GetHeader("X-Test-User"))
			c.Next()
		}
		router := newSaleTestRouter(t, asUser)
		body := saleBody()

		alice := send(t, router, http.MethodPost, "/sales", body, IdempotencyKeyHeader, "shared", "X-Test-User", "alice")
		require.Equal(t, http.StatusCreated, alice.Code)
		bob := send(t, router, http.MethodPost, "/sales", body, IdempotencyKeyHeader, "shared", "X-Test-User", "bob")
		require.Equal(t, http.StatusCreated, bob.Code)

		assert.NotEqual(t, decodeSale(t, alice).Data.ID, decodeSale(t, bob).Data.ID)
	})

	t.Run("sub-cent unit price is rejected before storage", func(t *testing.T) {
		router := newSaleTestRouter(t)

		for _, price := range []string{"10.0005", "0.00001"} {
			w := send(t, router, http.MethodPost, "/sales", saleBody(saleItem(uuid.New(), 5, price)))
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

			env := decodeSale(t, w)
			require.NotNil(t, env.Error)
			assert.Equal(t, dto.ErrCodeValidationFailed, env.Error.Code)
			require.Len(t, env.Error.Details, 1)
			assert.Equal(t, "items[0].unitPrice", env.Error.Details[0].Field)
			assert.Equal(t, "money", env.Error.Details[0].Code)
		}
	})

	t.Run("returned amounts match the reloaded sale", func(t *testing.T) {
		router := newSaleTestRouter(t)

		w := send(t, router, http.MethodPost, "/sales", saleBody(saleItem(uuid.New(), 5, "10.05"), saleItem(uuid.New(), 12, "33.33")))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		created := decodeSale(t, w).Data

		got := send(t, router, http.MethodGet, "/sales/"+created.ID.String(), nil)
		require.Equal(t, http.StatusOK, got.Code)
		reloaded := decodeSale(t, got).Data

		assert.True(t, created.TotalAmount.Equal(reloaded.TotalAmount))
		sum := decimal.Zero
		for _, line := range reloaded.Items {
			gross := line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
			assert.True(t, gross.Sub(line.Discount).Equal(line.TotalAmount), "line %s", line.ProductID)
			sum = sum.Add(line.TotalAmount)
		}
		assert.True(t, sum.Equal(reloaded.TotalAmount))
	})

	t.Run("structural violations are listed", func(t *testing.T) {
		router := newSaleTestRouter(t)
		body := saleBody(saleItem(uuid.New(), 21, "10"))
		body["customerName"] = "Al"

		w := send(t, router, http.MethodPost, "/sales", body)
		require.Equal(t, http.StatusBadRequest, w.Code)

		env := decodeSale(t, w)
		require.NotNil(t, env.Error)
		assert.Equal(t, dto.ErrCodeValidationFailed, env.Error.Code)
		fields := make([]string, 0, len(env.Error.Details))
		for _, d := range env.Error.Details {
			fields = append(fields, d.Field)
		}
		assert.ElementsMatch(t, []string{"customerName", "items[0].quantity"}, fields)
	})

	t.Run("empty item list", func(t *testing.T) {
		router := newSaleTestRouter(t)
		body := saleBody()
		body["items"] = []any{}

		w := send(t, router, http.MethodPost, "/sales", body)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), salesapp.MsgNoItems)
	})

	t.Run("malformed json", func(t *testing.T) {
		router := newSaleTestRouter(t)
		req := httptest.NewRequest(http.MethodPost, "/sales", bytes.NewBufferString("{not json"))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidJSON, decodeSale(t, w).Error.Code)
	})
}

func TestSaleHandler_GetAndDelete(t *testing.T) {
	router := newSaleTestRouter(t)

	t.Run("non uuid id", func(t *testing.T) {
		w := send(t, router, http.MethodGet, "/sales/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidID, decodeSale(t, w).Error.Code)
	})

	t.Run("unknown id", func(t *testing.T) {
		w := send(t, router, http.MethodGet, "/sales/"+uuid.NewString(), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("delete then get", func(t *testing.T) {
		created := decodeSale(t, send(t, router, http.MethodPost, "/sales", saleBody()))
		path := "/sales/" + created.Data.ID.String()

		got := send(t, router, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, got.Code)
		assert.Equal(t, created.Data.SaleNumber, decodeSale(t, got).Data.SaleNumber)

		assert.Equal(t, http.StatusOK, send(t, router, http.MethodDelete, path, nil).Code)
		assert.Equal(t, http.StatusNotFound, send(t, router, http.MethodGet, path, nil).Code)
		assert.Equal(t, http.StatusNotFound, send(t, router, http.MethodDelete, path, nil).Code)
	})
}

func TestSaleHandler_Update(t *testing.T) {
	router := newSaleTestRouter(t)
	keep := uuid.New()
	created := decodeSale(t, send(t, router, http.MethodPost, "/sales", saleBody(saleItem(keep, 5, "100"), saleItem(uuid.New(), 2, "30"))))
	path := "/sales/" + created.Data.ID.String()

	t.Run("reconciles the item set", func(t *testing.T) {
		body := saleBody(saleItem(keep, 10, "100"), saleItem(uuid.New(), 1, "7"))
		body["version"] = 1

		w := send(t, router, http.MethodPut, path, body)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		updated := decodeSale(t, w).Data
		assert.Equal(t, 2, updated.Version)
		require.Len(t, updated.Items, 2)
		// 10 x 100 at 20% off plus 7
		assert.True(t, decimal.NewFromInt(807).Equal(updated.TotalAmount), updated.TotalAmount.String())
		assert.Equal(t, created.Data.SaleNumber, updated.SaleNumber)
	})

	t.Run("stale version conflicts", func(t *testing.T) {
		body := saleBody()
		body["version"] = 1

		w := send(t, router, http.MethodPut, path, body)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, dto.ErrCodeConcurrencyConflict, decodeSale(t, w).Error.Code)
	})

	t.Run("cancelled sale cannot change", func(t *testing.T) {
		require.Equal(t, http.StatusOK, send(t, router, http.MethodPost, path+"/cancel", nil).Code)

		again := send(t, router, http.MethodPost, path+"/cancel", nil)
		assert.Equal(t, http.StatusConflict, again.Code)
		assert.Equal(t, dto.ErrCodeInvalidState, decodeSale(t, again).Error.Code)

		w := send(t, router, http.MethodPut, path, saleBody())
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestSaleHandler_List(t *testing.T) {
	router := newSaleTestRouter(t)
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusCreated, send(t, router, http.MethodPost, "/sales", saleBody()).Code)
	}

	w := send(t, router, http.MethodGet, "/sales?page=2&pageSize=2", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data []salesapp.SaleResponse `json:"data"`
		Meta dto.Meta                `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 1)
	assert.Equal(t, dto.Meta{Total: 3, Page: 2, PageSize: 2, TotalPages: 2}, resp.Meta)

	t.Run("rejects inverted date range", func(t *testing.T) {
		w := send(t, router, http.MethodGet, "/sales?startDate=2024-05-02&endDate=2024-05-01", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeValidationFailed, decodeSale(t, w).Error.Code)
	})

	t.Run("rejects page size above limit", func(t *testing.T) {
		w := send(t, router, http.MethodGet, "/sales?pageSize=101", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
