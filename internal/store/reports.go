package store

import (
	"context"
	"fmt"
	"time"

	"github.com/safar/storeledger/internal/database"
	"github.com/safar/storeledger/internal/models"
)

// SalesTotals aggregates sale headers with sale_date in [start, end).
func SalesTotals(ctx context.Context, db database.DBTX, start, end time.Time) (models.PeriodTotals, error) {
	var totals models.PeriodTotals

	query := `
		SELECT COUNT(*),
		       COALESCE(SUM(total_amount), 0),
		       COALESCE(SUM(total_cost), 0)
		FROM sales
		WHERE sale_date >= $1 AND sale_date < $2`

	if err := db.QueryRowContext(ctx, query, start, end).Scan(&totals.Count, &totals.Revenue, &totals.Cost); err != nil {
		return totals, fmt.Errorf("sales totals: %w", err)
	}

	return totals, nil
}

// LoadLedger reads every sale and line item with sale_date in [start, end),
// ordered by sale date then id.
func LoadLedger(ctx context.Context, db database.DBTX, start, end time.Time) (*models.Ledger, error) {
	ledger := &models.Ledger{
		Sales: make([]models.SaleTotals, 0),
		Lines: make([]models.LedgerLine, 0),
	}

	salesQuery := `
		SELECT id, payment_type, sale_date, total_amount, total_cost
		FROM sales
		WHERE sale_date >= $1 AND sale_date < $2
		ORDER BY sale_date, id`

	rows, err := db.QueryContext(ctx, salesQuery, start, end)
	if err != nil {
		return nil, fmt.Errorf("load sales: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s models.SaleTotals
		if err := rows.Scan(&s.SaleID, &s.PaymentType, &s.SaleDate, &s.TotalAmount, &s.TotalCost); err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		ledger.Sales = append(ledger.Sales, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	rows.Close()

	linesQuery := `
		SELECT si.sale_id, si.product_id, si.product_name, p.category, si.quantity, si.unit_price, si.unit_cost
		FROM sales_items si
		JOIN sales s ON s.id = si.sale_id
		JOIN products p ON p.id = si.product_id
		WHERE s.sale_date >= $1 AND s.sale_date < $2
		ORDER BY s.sale_date, s.id, si.id`

	lineRows, err := db.QueryContext(ctx, linesQuery, start, end)
	if err != nil {
		return nil, fmt.Errorf("load sale lines: %w", err)
	}
	defer lineRows.Close()

	for lineRows.Next() {
		var l models.LedgerLine
		err := lineRows.Scan(
			&l.SaleID,
			&l.ProductID,
			&l.ProductName,
			&l.Category,
			&l.Quantity,
			&l.UnitPrice,
			&l.UnitCost,
		)
		if err != nil {
			return nil, fmt.Errorf("scan sale line: %w", err)
		}
		ledger.Lines = append(ledger.Lines, l)
	}
	if err := lineRows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return ledger, nil
}
