package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/safar/storeledger/internal/inventory"
	"github.com/safar/storeledger/internal/models"
	"github.com/safar/storeledger/internal/store"
	"go.uber.org/zap"
)

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}

func (h *handler) health(c *gin.Context) {
	if err := h.svc.Ping(c.Request.Context()); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type recordSaleRequest struct {
	Items       []models.SaleLineRequest `json:"items"`
	PaymentType string                   `json:"payment_type"`
	SaleDate    *time.Time               `json:"sale_date"`
}

func (h *handler) recordSale(c *gin.Context) {
	var req recordSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("bind sale request", zap.Error(err))
		badRequest(c, "invalid request payload")
		return
	}

	var saleDate time.Time
	if req.SaleDate != nil {
		saleDate = *req.SaleDate
	}

	sale, err := h.svc.RecordSaleAt(c.Request.Context(), req.Items, req.PaymentType, saleDate)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, sale)
}

func (h *handler) listSales(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	page, err := h.svc.ListSales(c.Request.Context(), c.Query("cursor"), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

func (h *handler) getSale(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	sale, err := h.svc.GetSale(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sale":           sale,
		"profit":         sale.Profit(),
		"margin_percent": sale.MarginPercent(),
	})
}

func (h *handler) deleteSale(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.svc.DeleteSale(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *handler) createProduct(c *gin.Context) {
	var in models.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request payload")
		return
	}

	p, err := h.svc.CreateProduct(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, p)
}

type updateProductRequest struct {
	models.ProductInput
	Version int `json:"version"`
}

func (h *handler) updateProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req updateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request payload")
		return
	}

	p, err := h.svc.UpdateProduct(c.Request.Context(), id, req.Version, req.ProductInput)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

func (h *handler) getProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	p, err := h.svc.GetProduct(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

func (h *handler) deleteProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	policy := store.Restrict
	if cascade, _ := strconv.ParseBool(c.Query("cascade")); cascade {
		policy = store.CascadeLineItems
	}

	if err := h.svc.DeleteProduct(c.Request.Context(), id, policy); err != nil {
		h.respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *handler) productStock(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	info, err := h.svc.ProductStock(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, info)
}

func (h *handler) adjustStock(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req struct {
		StockLevel *int `json:"stock_level"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.StockLevel == nil {
		badRequest(c, "stock_level is required")
		return
	}

	p, err := h.svc.AdjustStock(c.Request.Context(), id, *req.StockLevel)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

func (h *handler) listInventory(c *gin.Context) {
	f, err := inventory.ParseFilter(
		c.Query("search"),
		c.Query("category"),
		c.Query("stock_status"),
		c.Query("sort_by"),
		c.Query("sort_order"),
	)
	if err != nil {
		h.respondError(c, err)
		return
	}

	listing, err := h.svc.ListInventory(c.Request.Context(), f)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, listing)
}

func (h *handler) dashboard(c *gin.Context) {
	summary, err := h.svc.DashboardSummary(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *handler) report(c *gin.Context) {
	report, err := h.svc.ReportForPeriod(c.Request.Context(), c.Query("date_from"), c.Query("date_to"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *handler) createUser(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request payload")
		return
	}

	user, err := h.svc.CreateUser(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

func (h *handler) getUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	user, err := h.svc.GetUser(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *handler) listUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	pageSize, _ := strconv.Atoi(c.Query("page_size"))

	result, err := h.svc.ListUsers(c.Request.Context(), page, pageSize)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
