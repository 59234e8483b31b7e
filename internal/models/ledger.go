package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SaleTotals is one sale header as seen by the reporting read side.
type SaleTotals struct {
	SaleID      int64
	PaymentType string
	SaleDate    time.Time
	TotalAmount decimal.Decimal
	TotalCost   decimal.Decimal
}

// LedgerLine is one sale line item with its snapshot name, joined with the
// product's current category.
type LedgerLine struct {
	SaleID      int64
	ProductID   int64
	ProductName string
	Category    string
	Quantity    int
	UnitPrice   decimal.Decimal
	UnitCost    decimal.Decimal
}

// Ledger holds every sale and line item of a reporting window, both ordered
// by sale date then id.
type Ledger struct {
	Sales []SaleTotals
	Lines []LedgerLine
}

// PeriodTotals is the aggregate of sale headers over a window.
type PeriodTotals struct {
	Count   int
	Revenue decimal.Decimal
	Cost    decimal.Decimal
}

func (t PeriodTotals) Profit() decimal.Decimal {
	return t.Revenue.Sub(t.Cost)
}

// InventoryTotals aggregates the products table for the dashboard.
type InventoryTotals struct {
	TotalProducts   int
	TotalStockValue decimal.Decimal
	LowStockCount   int
}
