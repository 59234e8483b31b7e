// Package reporting derives dashboard and period reports from ledger rows.
// Everything here is read-only arithmetic; the store loads the rows.
package reporting

import (
	"sort"

	"github.com/safar/storeledger/internal/models"
	"github.com/shopspring/decimal"
)

const TopProductsLimit = 10

type Totals struct {
	Revenue          decimal.Decimal `json:"revenue"`
	Cost             decimal.Decimal `json:"cost"`
	Profit           decimal.Decimal `json:"profit"`
	Count            int             `json:"count"`
	AvgSaleValue     decimal.Decimal `json:"avg_sale_value"`
	AvgProfitPerSale decimal.Decimal `json:"avg_profit_per_sale"`
	MarginPercent    decimal.Decimal `json:"profit_margin_percentage"`
}

type ProductRollup struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	UnitsSold int             `json:"units_sold"`
	Revenue   decimal.Decimal `json:"revenue"`
	Cost      decimal.Decimal `json:"cost"`
	Profit    decimal.Decimal `json:"profit"`
}

type CategoryRollup struct {
	Category  string          `json:"category"`
	UnitsSold int             `json:"units_sold"`
	Revenue   decimal.Decimal `json:"revenue"`
	Cost      decimal.Decimal `json:"cost"`
	Profit    decimal.Decimal `json:"profit"`
}

type PaymentRollup struct {
	PaymentType      string          `json:"payment_type"`
	TransactionCount int             `json:"transaction_count"`
	Revenue          decimal.Decimal `json:"revenue"`
	Cost             decimal.Decimal `json:"cost"`
	Profit           decimal.Decimal `json:"profit"`
}

type Comparison struct {
	DateFrom      string          `json:"date_from"`
	DateTo        string          `json:"date_to"`
	Revenue       decimal.Decimal `json:"revenue"`
	Profit        decimal.Decimal `json:"profit"`
	Count         int             `json:"count"`
	RevenueChange decimal.Decimal `json:"revenue_change"`
	ProfitChange  decimal.Decimal `json:"profit_change"`
	CountChange   decimal.Decimal `json:"sales_change"`
}

type Report struct {
	DateFrom     string           `json:"date_from"`
	DateTo       string           `json:"date_to"`
	PeriodDays   int              `json:"period_days"`
	Totals       Totals           `json:"totals"`
	TopProducts  []ProductRollup  `json:"top_products"`
	Categories   []CategoryRollup `json:"categories"`
	PaymentTypes []PaymentRollup  `json:"payment_types"`
	Previous     Comparison       `json:"previous_period"`
	Presets      Presets          `json:"presets"`
	Warnings     []string         `json:"warnings,omitempty"`
}

// BuildReport aggregates the ledger of period and compares it with the
// totals of the preceding window.
func BuildReport(period Period, ledger *models.Ledger, previous models.PeriodTotals) *Report {
	if ledger == nil {
		ledger = &models.Ledger{}
	}

	totals := summarize(ledger.Sales)
	prevPeriod := period.Previous()

	return &Report{
		DateFrom:     period.FromString(),
		DateTo:       period.ToString(),
		PeriodDays:   period.Days(),
		Totals:       totals,
		TopProducts:  topProducts(ledger.Lines, TopProductsLimit),
		Categories:   categoryRollups(ledger.Lines),
		PaymentTypes: paymentRollups(ledger.Sales),
		Previous: Comparison{
			DateFrom:      prevPeriod.FromString(),
			DateTo:        prevPeriod.ToString(),
			Revenue:       previous.Revenue,
			Profit:        previous.Profit(),
			Count:         previous.Count,
			RevenueChange: ChangePercent(totals.Revenue, previous.Revenue),
			ProfitChange:  ChangePercent(totals.Profit, previous.Profit()),
			CountChange:   ChangePercent(decimal.NewFromInt(int64(totals.Count)), decimal.NewFromInt(int64(previous.Count))),
		},
	}
}

// ChangePercent is the relative change from prev to cur. A previous value
// that is zero or negative yields 0 rather than an unbounded figure.
func ChangePercent(cur, prev decimal.Decimal) decimal.Decimal {
	if !prev.IsPositive() {
		return decimal.Zero
	}
	return cur.Sub(prev).Div(prev).Mul(decimal.NewFromInt(100)).Round(2)
}

func summarize(sales []models.SaleTotals) Totals {
	t := Totals{
		Revenue:          decimal.Zero,
		Cost:             decimal.Zero,
		AvgSaleValue:     decimal.Zero,
		AvgProfitPerSale: decimal.Zero,
	}
	for _, s := range sales {
		t.Revenue = t.Revenue.Add(s.TotalAmount)
		t.Cost = t.Cost.Add(s.TotalCost)
		t.Count++
	}
	t.Profit = t.Revenue.Sub(t.Cost)
	if t.Count > 0 {
		n := decimal.NewFromInt(int64(t.Count))
		t.AvgSaleValue = t.Revenue.Div(n).Round(2)
		t.AvgProfitPerSale = t.Profit.Div(n).Round(2)
	}
	t.MarginPercent = models.MarginPercent(t.Profit, t.Revenue)
	return t
}

func topProducts(lines []models.LedgerLine, limit int) []ProductRollup {
	index := make(map[int64]int)
	rollups := make([]ProductRollup, 0)
	for _, l := range lines {
		i, ok := index[l.ProductID]
		if !ok {
			i = len(rollups)
			index[l.ProductID] = i
			rollups = append(rollups, ProductRollup{
				ProductID: l.ProductID,
				Name:      l.ProductName,
				Category:  l.Category,
				Revenue:   decimal.Zero,
				Cost:      decimal.Zero,
			})
		}
		r := &rollups[i]
		revenue, cost := lineAmounts(l)
		r.UnitsSold += l.Quantity
		r.Revenue = r.Revenue.Add(revenue)
		r.Cost = r.Cost.Add(cost)
		r.Profit = r.Revenue.Sub(r.Cost)
	}

	sort.SliceStable(rollups, func(a, b int) bool {
		return rollups[a].Profit.GreaterThan(rollups[b].Profit)
	})
	if len(rollups) > limit {
		rollups = rollups[:limit]
	}
	return rollups
}

func categoryRollups(lines []models.LedgerLine) []CategoryRollup {
	index := make(map[string]int)
	rollups := make([]CategoryRollup, 0)
	for _, l := range lines {
		i, ok := index[l.Category]
		if !ok {
			i = len(rollups)
			index[l.Category] = i
			rollups = append(rollups, CategoryRollup{Category: l.Category, Revenue: decimal.Zero, Cost: decimal.Zero})
		}
		r := &rollups[i]
		revenue, cost := lineAmounts(l)
		r.UnitsSold += l.Quantity
		r.Revenue = r.Revenue.Add(revenue)
		r.Cost = r.Cost.Add(cost)
		r.Profit = r.Revenue.Sub(r.Cost)
	}

	sort.SliceStable(rollups, func(a, b int) bool {
		return rollups[a].Profit.GreaterThan(rollups[b].Profit)
	})
	return rollups
}

func paymentRollups(sales []models.SaleTotals) []PaymentRollup {
	index := make(map[string]int)
	rollups := make([]PaymentRollup, 0)
	for _, s := range sales {
		i, ok := index[s.PaymentType]
		if !ok {
			i = len(rollups)
			index[s.PaymentType] = i
			rollups = append(rollups, PaymentRollup{PaymentType: s.PaymentType, Revenue: decimal.Zero, Cost: decimal.Zero})
		}
		r := &rollups[i]
		r.TransactionCount++
		r.Revenue = r.Revenue.Add(s.TotalAmount)
		r.Cost = r.Cost.Add(s.TotalCost)
		r.Profit = r.Revenue.Sub(r.Cost)
	}

	sort.SliceStable(rollups, func(a, b int) bool {
		return rollups[a].Profit.GreaterThan(rollups[b].Profit)
	})
	return rollups
}

func lineAmounts(l models.LedgerLine) (decimal.Decimal, decimal.Decimal) {
	q := decimal.NewFromInt(int64(l.Quantity))
	return l.UnitPrice.Mul(q), l.UnitCost.Mul(q)
}
