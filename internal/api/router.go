// Package api exposes the ledger service over JSON HTTP using gin.
package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/safar/storeledger/internal/inventory"
	"github.com/safar/storeledger/internal/models"
	"github.com/safar/storeledger/internal/reporting"
	"github.com/safar/storeledger/internal/service"
	"github.com/safar/storeledger/internal/store"
	"go.uber.org/zap"
)

// LedgerService is the part of *service.Service the HTTP layer calls.
type LedgerService interface {
	RecordSaleAt(ctx context.Context, items []models.SaleLineRequest, paymentType string, saleDate time.Time) (*models.Sale, error)
	GetSale(ctx context.Context, id int64) (*models.Sale, error)
	ListSales(ctx context.Context, cursor string, limit int) (*store.CursorPage[models.Sale], error)
	DeleteSale(ctx context.Context, id int64) error

	CreateProduct(ctx context.Context, in models.ProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, id int64, version int, in models.ProductInput) (*models.Product, error)
	GetProduct(ctx context.Context, id int64) (*service.ProductDetail, error)
	ProductStock(ctx context.Context, id int64) (*service.StockInfo, error)
	AdjustStock(ctx context.Context, id int64, level int) (*models.Product, error)
	DeleteProduct(ctx context.Context, id int64, policy store.DeletePolicy) error
	ListInventory(ctx context.Context, f inventory.Filter) (*service.InventoryListing, error)

	DashboardSummary(ctx context.Context) (*reporting.DashboardSummary, error)
	ReportForPeriod(ctx context.Context, from, to string) (*reporting.Report, error)

	CreateUser(ctx context.Context, username, email, password string) (*models.User, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	ListUsers(ctx context.Context, page, pageSize int) (*store.OffsetPage[models.User], error)
	Authenticate(ctx context.Context, username, password string) (*models.User, error)

	Ping(ctx context.Context) error
}

var _ LedgerService = (*service.Service)(nil)

type handler struct {
	svc    LedgerService
	logger *zap.Logger
}

// NewRouter builds the gin engine with every route registered. Everything
// except /healthz requires basic auth.
func NewRouter(svc LedgerService, logger *zap.Logger) *gin.Engine {
	h := &handler{svc: svc, logger: logger.Named("api")}

	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(h.logger))

	r.GET("/healthz", h.health)

	authed := r.Group("/", h.BasicAuth())

	authed.POST("/sales", h.recordSale)
	authed.GET("/sales", h.listSales)
	authed.GET("/sales/:id", h.getSale)
	authed.DELETE("/sales/:id", h.deleteSale)

	authed.POST("/products", h.createProduct)
	authed.GET("/products/:id", h.getProduct)
	authed.PUT("/products/:id", h.updateProduct)
	authed.DELETE("/products/:id", h.deleteProduct)
	authed.GET("/products/:id/stock", h.productStock)
	authed.PUT("/products/:id/stock", h.adjustStock)

	authed.GET("/inventory", h.listInventory)
	authed.GET("/dashboard", h.dashboard)
	authed.GET("/reports", h.report)

	authed.POST("/users", h.createUser)
	authed.GET("/users", h.listUsers)
	authed.GET("/users/:id", h.getUser)

	return r
}
