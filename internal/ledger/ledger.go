// Package ledger turns a cart into a priced sale. It decides everything a
// sale transaction needs before anything is written: which products are
// touched, whether stock covers every line, and the immutable price and cost
// snapshots.
package ledger

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/safar/storeledger/internal/database"
	"github.com/safar/storeledger/internal/inventory"
	"github.com/safar/storeledger/internal/models"
	"github.com/shopspring/decimal"
)

// Coalesce validates the cart and merges repeated product ids into a single
// line, keeping the order in which products first appear.
func Coalesce(items []models.SaleLineRequest) ([]models.SaleLineRequest, error) {
	if len(items) == 0 {
		return nil, database.NewValidationError("items", "a sale needs at least one line")
	}

	index := make(map[int64]int, len(items))
	lines := make([]models.SaleLineRequest, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, database.ErrInvalidQuantity
		}
		if item.ProductID <= 0 {
			return nil, database.NewValidationError("product_id", "must be positive, got %d", item.ProductID)
		}
		if i, ok := index[item.ProductID]; ok {
			lines[i].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(lines)
		lines = append(lines, item)
	}

	return lines, nil
}

// ProductIDs lists the distinct products of coalesced lines.
func ProductIDs(lines []models.SaleLineRequest) []int64 {
	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	return ids
}

// MaxPaymentTypeLength matches the payment_type column width.
const MaxPaymentTypeLength = 100

// NormalizePaymentType trims the tag and falls back to DefaultPaymentType
// when it is blank.
func NormalizePaymentType(paymentType string) (string, error) {
	paymentType = strings.TrimSpace(paymentType)
	if paymentType == "" {
		return models.DefaultPaymentType, nil
	}
	if utf8.RuneCountInString(paymentType) > MaxPaymentTypeLength {
		return "", database.NewValidationError("payment_type", "must be at most %d characters", MaxPaymentTypeLength)
	}
	return paymentType, nil
}

// BuildSale prices coalesced lines against the current products. Every line
// is checked before any product is changed, so on error the products are
// exactly as they were passed in. On success each product's StockLevel has
// been reduced by its line quantity.
func BuildSale(lines []models.SaleLineRequest, products map[int64]*models.Product, paymentType string, saleDate time.Time) (*models.Sale, error) {
	paymentType, err := NormalizePaymentType(paymentType)
	if err != nil {
		return nil, err
	}

	var shortages []database.StockShortage
	for _, line := range lines {
		p, ok := products[line.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: id %d", database.ErrProductNotFound, line.ProductID)
		}
		if !inventory.IsInStock(p, line.Quantity) {
			shortages = append(shortages, database.StockShortage{
				ProductID:   p.ID,
				ProductName: p.Name,
				Requested:   line.Quantity,
				Available:   p.StockLevel,
			})
		}
	}
	if len(shortages) > 0 {
		return nil, &database.InsufficientStockError{Shortages: shortages}
	}

	sale := &models.Sale{
		TotalAmount: decimal.Zero,
		TotalCost:   decimal.Zero,
		PaymentType: paymentType,
		SaleDate:    saleDate,
		Items:       make([]models.SaleItem, 0, len(lines)),
	}

	for _, line := range lines {
		p := products[line.ProductID]
		item := models.SaleItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    line.Quantity,
			UnitPrice:   p.Price,
			UnitCost:    p.Cost,
		}
		sale.TotalAmount = sale.TotalAmount.Add(item.Subtotal())
		sale.TotalCost = sale.TotalCost.Add(item.CostTotal())
		sale.Items = append(sale.Items, item)
	}

	for _, line := range lines {
		if err := inventory.ReduceStock(products[line.ProductID], line.Quantity); err != nil {
			return nil, err
		}
	}

	return sale, nil
}
