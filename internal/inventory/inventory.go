// Package inventory holds the stock mutation rules and the inventory
// listing filter. It works on in-memory products; persistence is the store's
// job.
package inventory

import (
	"strings"
	"unicode/utf8"

	"github.com/safar/storeledger/internal/database"
	"github.com/safar/storeledger/internal/models"
)

const DefaultLowStockThreshold = 10

type Policy struct {
	LowStockThreshold   int
	CaseSensitiveSearch bool
}

func DefaultPolicy() Policy {
	return Policy{LowStockThreshold: DefaultLowStockThreshold}
}

// IsInStock reports whether quantity units can be taken from p.
func IsInStock(p *models.Product, quantity int) bool {
	return quantity <= p.StockLevel
}

// ReduceStock takes quantity units from p. On failure p is left untouched.
func ReduceStock(p *models.Product, quantity int) error {
	if quantity <= 0 {
		return database.ErrInvalidQuantity
	}
	if !IsInStock(p, quantity) {
		return &database.InsufficientStockError{Shortages: []database.StockShortage{{
			ProductID:   p.ID,
			ProductName: p.Name,
			Requested:   quantity,
			Available:   p.StockLevel,
		}}}
	}
	p.StockLevel -= quantity
	return nil
}

// SetStock overwrites the stock level. It is the administrative correction
// path and ignores sales history.
func SetStock(p *models.Product, level int) error {
	if level < 0 {
		return database.NewValidationError("stock_level", "cannot be negative, got %d", level)
	}
	p.StockLevel = level
	return nil
}

func IsLowStock(p *models.Product, threshold int) bool {
	return p.StockLevel <= threshold
}

// StatusOf classifies p the same way the inventory filter does.
func StatusOf(p *models.Product, threshold int) StockStatus {
	switch {
	case p.StockLevel == 0:
		return StockStatusOut
	case IsLowStock(p, threshold):
		return StockStatusLow
	default:
		return StockStatusInStock
	}
}

// ValidateProduct checks the editable fields of a product before they reach
// the database constraints.
func ValidateProduct(in *models.ProductInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)
	in.Description = strings.TrimSpace(in.Description)

	switch {
	case in.Name == "":
		return database.NewValidationError("name", "is required")
	case utf8.RuneCountInString(in.Name) > 100:
		return database.NewValidationError("name", "must be at most 100 characters")
	case in.Category == "":
		return database.NewValidationError("category", "is required")
	case utf8.RuneCountInString(in.Category) > 50:
		return database.NewValidationError("category", "must be at most 50 characters")
	case in.Cost.IsNegative():
		return database.NewValidationError("cost", "cannot be negative")
	case in.Price.IsNegative():
		return database.NewValidationError("price", "cannot be negative")
	case in.StockLevel < 0:
		return database.NewValidationError("stock_level", "cannot be negative, got %d", in.StockLevel)
	}
	return nil
}
