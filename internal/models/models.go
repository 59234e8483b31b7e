package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Version      int       `json:"version"`
}

type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Cost        decimal.Decimal `json:"cost"`
	Price       decimal.Decimal `json:"price"`
	StockLevel  int             `json:"stock_level"`
	Description string          `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Version     int             `json:"version"`
}

// StockValue is the retail value of the units on hand.
func (p *Product) StockValue() decimal.Decimal {
	return p.Price.Mul(decimal.NewFromInt(int64(p.StockLevel)))
}

// ProductInput carries the editable product fields.
type ProductInput struct {
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Cost        decimal.Decimal `json:"cost"`
	Price       decimal.Decimal `json:"price"`
	StockLevel  int             `json:"stock_level"`
	Description string          `json:"description"`
}

// ProductSalesTotals are derived from the line items referencing a product.
type ProductSalesTotals struct {
	UnitsSold    int             `json:"total_sold"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
}

type Sale struct {
	ID          int64           `json:"id"`
	Reference   string          `json:"reference"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	TotalCost   decimal.Decimal `json:"total_cost"`
	PaymentType string          `json:"payment_type"`
	SaleDate    time.Time       `json:"sale_date"`
	RecordedBy  *int64          `json:"recorded_by,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	Items       []SaleItem      `json:"items,omitempty"`
}

func (s *Sale) Profit() decimal.Decimal {
	return s.TotalAmount.Sub(s.TotalCost)
}

// MarginPercent is profit over revenue as a percentage, 0 for a zero-revenue
// sale.
func (s *Sale) MarginPercent() decimal.Decimal {
	return MarginPercent(s.Profit(), s.TotalAmount)
}

type SaleItem struct {
	ID          int64           `json:"id"`
	SaleID      int64           `json:"sale_id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (i *SaleItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (i *SaleItem) CostTotal() decimal.Decimal {
	return i.UnitCost.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (i *SaleItem) Profit() decimal.Decimal {
	return i.Subtotal().Sub(i.CostTotal())
}

// SaleLineRequest is one cart line of a sale request.
type SaleLineRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type RecordSaleRequest struct {
	Items       []SaleLineRequest
	PaymentType string
	// SaleDate backdates the sale; zero means now.
	SaleDate   time.Time
	RecordedBy *int64
}

const DefaultPaymentType = "Cash"

var hundred = decimal.NewFromInt(100)

func MarginPercent(profit, revenue decimal.Decimal) decimal.Decimal {
	if !revenue.IsPositive() {
		return decimal.Zero
	}
	return profit.Div(revenue).Mul(hundred).Round(2)
}
