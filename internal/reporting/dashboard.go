package reporting

import (
	"time"

	"github.com/safar/storeledger/internal/models"
	"github.com/shopspring/decimal"
)

type DashboardSummary struct {
	TotalProducts     int              `json:"total_products"`
	TotalStockValue   decimal.Decimal  `json:"total_stock_value"`
	TodayRevenue      decimal.Decimal  `json:"today_revenue"`
	TodayProfit       decimal.Decimal  `json:"today_profit"`
	MonthProfit       decimal.Decimal  `json:"month_profit"`
	LowStockThreshold int              `json:"low_stock_threshold"`
	LowStockCount     int              `json:"low_stock_count"`
	LowStockProducts  []models.Product `json:"low_stock_products"`
	RecentSales       []models.Sale    `json:"recent_sales"`
	GeneratedAt       time.Time        `json:"generated_at"`
}

// DayBounds is today's half-open instant range in loc.
func DayBounds(now time.Time, loc *time.Location) (time.Time, time.Time) {
	start := StartOfDay(now, loc)
	return start, start.AddDate(0, 0, 1)
}

// MonthBounds runs from the first of the current month through the end of
// today.
func MonthBounds(now time.Time, loc *time.Location) (time.Time, time.Time) {
	today := StartOfDay(now, loc)
	first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, loc)
	return first, today.AddDate(0, 0, 1)
}

func BuildDashboard(
	inv models.InventoryTotals,
	today, month models.PeriodTotals,
	lowStock []models.Product,
	recent []models.Sale,
	threshold int,
	generatedAt time.Time,
) *DashboardSummary {
	if lowStock == nil {
		lowStock = []models.Product{}
	}
	if recent == nil {
		recent = []models.Sale{}
	}
	return &DashboardSummary{
		TotalProducts:     inv.TotalProducts,
		TotalStockValue:   inv.TotalStockValue,
		TodayRevenue:      today.Revenue,
		TodayProfit:       today.Profit(),
		MonthProfit:       month.Profit(),
		LowStockThreshold: threshold,
		LowStockCount:     inv.LowStockCount,
		LowStockProducts:  lowStock,
		RecentSales:       recent,
		GeneratedAt:       generatedAt,
	}
}
