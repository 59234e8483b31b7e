package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"github.com/safar/storeledger/internal/database"
	"github.com/safar/storeledger/internal/inventory"
	"github.com/safar/storeledger/internal/models"
	"github.com/safar/storeledger/internal/reporting"
	"github.com/safar/storeledger/internal/service"
	"github.com/safar/storeledger/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	operatorName     = "till"
	operatorPassword = "open-sesame"
)

// fakeService answers with canned values and records what it was asked.
type fakeService struct {
	saleErr      error
	lastItems    []models.SaleLineRequest
	lastPayment  string
	lastSaleDate time.Time
	lastActor    *models.User
	lastFilter   inventory.Filter
	lastPolicy   store.DeletePolicy
	lastLevel    int
	lastFrom     string
	lastTo       string
	pingErr      error
}

func (f *fakeService) RecordSaleAt(ctx context.Context, items []models.SaleLineRequest, paymentType string, saleDate time.Time) (*models.Sale, error) {
	f.lastItems, f.lastPayment, f.lastSaleDate = items, paymentType, saleDate
	f.lastActor, _ = service.ActorFromContext(ctx)
	if f.saleErr != nil {
		return nil, f.saleErr
	}
	return &models.Sale{ID: 1, Reference: "ref", TotalAmount: decimal.NewFromInt(100), TotalCost: decimal.NewFromInt(60), PaymentType: "Cash"}, nil
}

func (f *fakeService) GetSale(ctx context.Context, id int64) (*models.Sale, error) {
	if id != 1 {
		return nil, database.ErrSaleNotFound
	}
	return &models.Sale{ID: 1, TotalAmount: decimal.NewFromInt(100), TotalCost: decimal.NewFromInt(60)}, nil
}

func (f *fakeService) ListSales(ctx context.Context, cursor string, limit int) (*store.CursorPage[models.Sale], error) {
	if cursor == "bad" {
		return nil, database.NewValidationError("cursor", "is malformed")
	}
	return &store.CursorPage[models.Sale]{Items: []models.Sale{{ID: 1}}}, nil
}

func (f *fakeService) DeleteSale(ctx context.Context, id int64) error {
	if id != 1 {
		return database.ErrSaleNotFound
	}
	return nil
}

func (f *fakeService) CreateProduct(ctx context.Context, in models.ProductInput) (*models.Product, error) {
	if in.Name == "" {
		return nil, database.NewValidationError("name", "is required")
	}
	return &models.Product{ID: 5, Name: in.Name, Price: in.Price, Cost: in.Cost}, nil
}

func (f *fakeService) UpdateProduct(ctx context.Context, id int64, version int, in models.ProductInput) (*models.Product, error) {
	if version == 1 {
		return nil, fmt.Errorf("%w: product %d was modified concurrently", database.ErrConflict, id)
	}
	return &models.Product{ID: id, Name: in.Name, Version: version + 1}, nil
}

func (f *fakeService) GetProduct(ctx context.Context, id int64) (*service.ProductDetail, error) {
	return &service.ProductDetail{
		Product:            models.Product{ID: id, Name: "Mug"},
		ProductSalesTotals: models.ProductSalesTotals{UnitsSold: 3, TotalRevenue: decimal.NewFromInt(24)},
		StockStatus:        inventory.StockStatusLow,
	}, nil
}

func (f *fakeService) ProductStock(ctx context.Context, id int64) (*service.StockInfo, error) {
	return &service.StockInfo{ProductID: id, StockLevel: 4}, nil
}

func (f *fakeService) AdjustStock(ctx context.Context, id int64, level int) (*models.Product, error) {
	f.lastLevel = level
	return &models.Product{ID: id, StockLevel: level}, nil
}

func (f *fakeService) DeleteProduct(ctx context.Context, id int64, policy store.DeletePolicy) error {
	f.lastPolicy = policy
	if policy == store.Restrict {
		return fmt.Errorf("%w: 2 line item(s) reference product %d", database.ErrProductInUse, id)
	}
	return nil
}

func (f *fakeService) ListInventory(ctx context.Context, filter inventory.Filter) (*service.InventoryListing, error) {
	f.lastFilter = filter
	return &service.InventoryListing{Products: []models.Product{}, Categories: []string{"Kitchen"}, Filter: filter}, nil
}

func (f *fakeService) DashboardSummary(ctx context.Context) (*reporting.DashboardSummary, error) {
	return nil, fmt.Errorf("connection reset by peer")
}

func (f *fakeService) ReportForPeriod(ctx context.Context, from, to string) (*reporting.Report, error) {
	f.lastFrom, f.lastTo = from, to
	return &reporting.Report{DateFrom: from, DateTo: to, Warnings: []string{reporting.WarnEndBeforeStart}}, nil
}

func (f *fakeService) CreateUser(ctx context.Context, username, email, password string) (*models.User, error) {
	if username == "dup" {
		return nil, fmt.Errorf("create user: %w", database.ErrDuplicate)
	}
	return &models.User{ID: 2, Username: username, Email: email, PasswordHash: "secret-hash"}, nil
}

func (f *fakeService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	if id != 9 {
		return nil, database.ErrUserNotFound
	}
	return &models.User{ID: 9, Username: operatorName, PasswordHash: "secret-hash"}, nil
}

func (f *fakeService) ListUsers(ctx context.Context, page, pageSize int) (*store.OffsetPage[models.User], error) {
	return &store.OffsetPage[models.User]{Items: []models.User{}, Page: page, PageSize: pageSize}, nil
}

func (f *fakeService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	if username == operatorName && password == operatorPassword {
		return &models.User{ID: 9, Username: username}, nil
	}
	return nil, database.ErrInvalidCredentials
}

func (f *fakeService) Ping(ctx context.Context) error {
	return f.pingErr
}

func setup(t *testing.T) (*gin.Engine, *fakeService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := &fakeService{}
	return NewRouter(svc, zaptest.NewLogger(t)), svc
}

func do(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(operatorName, operatorPassword)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestAuthentication(t *testing.T) {
	r, _ := setup(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotEmpty(t, w.Header().Get("WWW-Authenticate"))

	req := httptest.NewRequest(http.MethodGet, "/inventory", nil)
	req.SetBasicAuth(operatorName, "wrong")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthUnavailable(t *testing.T) {
	r, svc := setup(t)
	svc.pingErr = fmt.Errorf("dial tcp: refused")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRecordSale(t *testing.T) {
	r, svc := setup(t)

	w := do(r, http.MethodPost, "/sales", map[string]any{
		"items":        []map[string]any{{"product_id": 3, "quantity": 2}},
		"payment_type": "Card",
		"sale_date":    "2026-10-15T10:00:00Z",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, []models.SaleLineRequest{{ProductID: 3, Quantity: 2}}, svc.lastItems)
	assert.Equal(t, "Card", svc.lastPayment)
	assert.True(t, svc.lastSaleDate.Equal(time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)))
	require.NotNil(t, svc.lastActor)
	assert.Equal(t, int64(9), svc.lastActor.ID)

	w = do(r, http.MethodPost, "/sales", "not an object")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecordSaleErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"insufficient stock", &database.InsufficientStockError{Shortages: []database.StockShortage{{ProductID: 3, ProductName: "Mug", Requested: 4, Available: 3}}}, http.StatusConflict},
		{"invalid quantity", database.ErrInvalidQuantity, http.StatusBadRequest},
		{"missing product", fmt.Errorf("%w: id 3", database.ErrProductNotFound), http.StatusNotFound},
		{"lock timeout", database.ErrLockTimeout, http.StatusConflict},
		{"value too long", database.TranslateError(&pq.Error{Code: "22001", Column: "payment_type"}), http.StatusBadRequest},
		{"unexpected", fmt.Errorf("disk full"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, svc := setup(t)
			svc.saleErr = tc.err

			w := do(r, http.MethodPost, "/sales", map[string]any{"items": []map[string]any{{"product_id": 3, "quantity": 4}}})
			assert.Equal(t, tc.status, w.Code)

			body := decode(t, w)
			if tc.status == http.StatusInternalServerError {
				assert.Equal(t, "internal error", body["error"])
				return
			}
			assert.Contains(t, body["error"], tc.err.Error())
		})
	}

	t.Run("shortages are listed", func(t *testing.T) {
		r, svc := setup(t)
		svc.saleErr = cases[0].err
		w := do(r, http.MethodPost, "/sales", map[string]any{"items": []map[string]any{{"product_id": 3, "quantity": 4}}})
		body := decode(t, w)
		shortages, ok := body["shortages"].([]any)
		require.True(t, ok)
		require.Len(t, shortages, 1)
		assert.Equal(t, float64(3), shortages[0].(map[string]any)["available"])
	})
}

func TestSaleRoutes(t *testing.T) {
	r, _ := setup(t)

	w := do(r, http.MethodGet, "/sales/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "40", body["profit"])
	assert.Equal(t, "40", body["margin_percent"])

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/sales/2", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/sales/abc", nil).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/sales?limit=5", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/sales?cursor=bad", nil).Code)
	assert.Equal(t, http.StatusNoContent, do(r, http.MethodDelete, "/sales/1", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodDelete, "/sales/7", nil).Code)
}

func TestProductRoutes(t *testing.T) {
	r, svc := setup(t)

	w := do(r, http.MethodPost, "/products", map[string]any{"name": "Mug", "category": "Kitchen", "cost": "3.10", "price": "8.00", "stock_level": 4})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "8", decode(t, w)["price"])

	w = do(r, http.MethodPost, "/products", map[string]any{"category": "Kitchen"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "name", decode(t, w)["field"])

	assert.Equal(t, http.StatusConflict, do(r, http.MethodPut, "/products/5", map[string]any{"name": "Mug", "version": 1}).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodPut, "/products/5", map[string]any{"name": "Mug", "version": 2}).Code)

	w = do(r, http.MethodGet, "/products/5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(3), body["total_sold"])
	assert.Equal(t, "24", body["total_revenue"])
	assert.Equal(t, "low", body["stock_status"])

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/products/5/stock", nil).Code)

	w = do(r, http.MethodPut, "/products/5/stock", map[string]any{"stock_level": 0})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, svc.lastLevel)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPut, "/products/5/stock", map[string]any{}).Code)

	assert.Equal(t, http.StatusConflict, do(r, http.MethodDelete, "/products/5", nil).Code)
	assert.Equal(t, http.StatusNoContent, do(r, http.MethodDelete, "/products/5?cascade=true", nil).Code)
	assert.Equal(t, store.CascadeLineItems, svc.lastPolicy)
}

func TestInventoryAndReports(t *testing.T) {
	r, svc := setup(t)

	w := do(r, http.MethodGet, "/inventory?search=mug&stock_status=OUT&sort_by=price&sort_order=asc", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, inventory.Filter{Search: "mug", StockStatus: inventory.StockStatusOut, SortBy: inventory.SortByPrice, SortOrder: inventory.SortAsc}, svc.lastFilter)

	w = do(r, http.MethodGet, "/inventory?stock_status=plenty", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "stock_status", decode(t, w)["field"])

	w = do(r, http.MethodGet, "/reports?date_from=2026-10-10&date_to=2026-10-01", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2026-10-10", svc.lastFrom)
	assert.Equal(t, "2026-10-01", svc.lastTo)
	assert.Equal(t, []any{reporting.WarnEndBeforeStart}, decode(t, w)["warnings"])

	w = do(r, http.MethodGet, "/dashboard", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal error", decode(t, w)["error"])
}

func TestUserRoutes(t *testing.T) {
	r, _ := setup(t)

	w := do(r, http.MethodPost, "/users", map[string]any{"username": "clerk", "email": "c@shop.test", "password": "longenough"})
	require.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	assert.Equal(t, "clerk", body["username"])
	assert.NotContains(t, body, "password_hash")
	assert.NotContains(t, w.Body.String(), "secret-hash")

	assert.Equal(t, http.StatusConflict, do(r, http.MethodPost, "/users", map[string]any{"username": "dup", "password": "longenough"}).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/users?page=2&page_size=5", nil).Code)

	w = do(r, http.MethodGet, "/users/9", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, operatorName, decode(t, w)["username"])
	assert.NotContains(t, w.Body.String(), "secret-hash")

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/users/404", nil).Code)
}
