package ledger

import (
	"strings"
	"testing"
	"time"

	"github.com/safar/storeledger/internal/database"
	"github.com/safar/storeledger/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProducts() map[int64]*models.Product {
	return map[int64]*models.Product{
		1: {ID: 1, Name: "Coffee Beans", Category: "Grocery", Price: decimal.RequireFromString("12.50"), Cost: decimal.RequireFromString("7.25"), StockLevel: 10},
		2: {ID: 2, Name: "Mug", Category: "Kitchen", Price: decimal.RequireFromString("8.00"), Cost: decimal.RequireFromString("3.10"), StockLevel: 3},
	}
}

func TestCoalesce(t *testing.T) {
	lines, err := Coalesce([]models.SaleLineRequest{
		{ProductID: 2, Quantity: 1},
		{ProductID: 1, Quantity: 2},
		{ProductID: 2, Quantity: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, []models.SaleLineRequest{
		{ProductID: 2, Quantity: 3},
		{ProductID: 1, Quantity: 2},
	}, lines)
	assert.Equal(t, []int64{2, 1}, ProductIDs(lines))
}

func TestCoalesceRejectsBadLines(t *testing.T) {
	_, err := Coalesce(nil)
	assert.ErrorIs(t, err, database.ErrValidation)

	_, err = Coalesce([]models.SaleLineRequest{{ProductID: 1, Quantity: 0}})
	assert.ErrorIs(t, err, database.ErrInvalidQuantity)

	_, err = Coalesce([]models.SaleLineRequest{{ProductID: 0, Quantity: 1}})
	assert.ErrorIs(t, err, database.ErrValidation)
}

func TestBuildSaleTotals(t *testing.T) {
	products := testProducts()
	at := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	sale, err := BuildSale([]models.SaleLineRequest{
		{ProductID: 1, Quantity: 2},
		{ProductID: 2, Quantity: 3},
	}, products, "  Card ", at)
	require.NoError(t, err)

	assert.Equal(t, "Card", sale.PaymentType)
	assert.Equal(t, at, sale.SaleDate)
	assert.True(t, sale.TotalAmount.Equal(decimal.RequireFromString("49.00")), "total amount %s", sale.TotalAmount)
	assert.True(t, sale.TotalCost.Equal(decimal.RequireFromString("23.80")), "total cost %s", sale.TotalCost)

	var amount, cost decimal.Decimal
	for _, item := range sale.Items {
		amount = amount.Add(item.Subtotal())
		cost = cost.Add(item.CostTotal())
	}
	assert.True(t, sale.TotalAmount.Equal(amount))
	assert.True(t, sale.TotalCost.Equal(cost))

	require.Len(t, sale.Items, 2)
	assert.Equal(t, "Coffee Beans", sale.Items[0].ProductName)
	assert.Equal(t, 8, products[1].StockLevel)
	assert.Equal(t, 0, products[2].StockLevel)
}

func TestBuildSaleSnapshotsAreIndependent(t *testing.T) {
	products := testProducts()
	sale, err := BuildSale([]models.SaleLineRequest{{ProductID: 1, Quantity: 1}}, products, "", time.Now())
	require.NoError(t, err)

	products[1].Price = decimal.NewFromInt(99)
	assert.True(t, sale.Items[0].UnitPrice.Equal(decimal.RequireFromString("12.50")))
	assert.Equal(t, models.DefaultPaymentType, sale.PaymentType)
}

func TestBuildSaleAllOrNothing(t *testing.T) {
	products := testProducts()

	_, err := BuildSale([]models.SaleLineRequest{
		{ProductID: 1, Quantity: 4},
		{ProductID: 2, Quantity: 5},
	}, products, "Cash", time.Now())
	require.ErrorIs(t, err, database.ErrInsufficientStock)

	var stockErr *database.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Len(t, stockErr.Shortages, 1)
	assert.Equal(t, int64(2), stockErr.Shortages[0].ProductID)

	assert.Equal(t, 10, products[1].StockLevel)
	assert.Equal(t, 3, products[2].StockLevel)
}

func TestBuildSaleMissingProduct(t *testing.T) {
	products := testProducts()
	_, err := BuildSale([]models.SaleLineRequest{{ProductID: 42, Quantity: 1}}, products, "Cash", time.Now())
	assert.ErrorIs(t, err, database.ErrProductNotFound)
}

func TestNormalizePaymentType(t *testing.T) {
	tag, err := NormalizePaymentType("  ")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultPaymentType, tag)

	tag, err = NormalizePaymentType(" Bank transfer (Khan Bank) ")
	require.NoError(t, err)
	assert.Equal(t, "Bank transfer (Khan Bank)", tag)

	tag, err = NormalizePaymentType(strings.Repeat("Карт", 25))
	require.NoError(t, err)
	assert.Len(t, []rune(tag), MaxPaymentTypeLength)

	_, err = NormalizePaymentType(strings.Repeat("x", MaxPaymentTypeLength+1))
	var vErr *database.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "payment_type", vErr.Field)
}

func TestBuildSaleRejectsLongPaymentType(t *testing.T) {
	products := testProducts()
	_, err := BuildSale([]models.SaleLineRequest{{ProductID: 1, Quantity: 1}}, products, strings.Repeat("x", MaxPaymentTypeLength+1), time.Now())
	require.ErrorIs(t, err, database.ErrValidation)
	assert.Equal(t, 10, products[1].StockLevel)
}
