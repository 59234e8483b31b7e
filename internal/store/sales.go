package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/safar/storeledger/internal/database"
	"github.com/safar/storeledger/internal/ledger"
	"github.com/safar/storeledger/internal/models"
)

const saleColumns = `id, reference, total_amount, total_cost, payment_type, sale_date, recorded_by, created_at`

func scanSale(row rowScanner, s *models.Sale) error {
	var recordedBy sql.NullInt64
	err := row.Scan(
		&s.ID,
		&s.Reference,
		&s.TotalAmount,
		&s.TotalCost,
		&s.PaymentType,
		&s.SaleDate,
		&recordedBy,
		&s.CreatedAt,
	)
	if err != nil {
		return err
	}
	if recordedBy.Valid {
		id := recordedBy.Int64
		s.RecordedBy = &id
	}
	return nil
}

// RecordSale prices the cart against locked product rows, then writes the
// sale, its line items and the stock decrements in one transaction. Either
// all of it commits or none of it does. lockTimeout bounds the wait for row
// locks held by concurrent sales; running out of it returns ErrConflict.
func RecordSale(ctx context.Context, db *sql.DB, req models.RecordSaleRequest, lockTimeout time.Duration) (*models.Sale, error) {
	lines, err := ledger.Coalesce(req.Items)
	if err != nil {
		return nil, err
	}
	if _, err := ledger.NormalizePaymentType(req.PaymentType); err != nil {
		return nil, err
	}

	saleDate := req.SaleDate
	if saleDate.IsZero() {
		saleDate = time.Now()
	}

	var sale *models.Sale

	err = database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		if lockTimeout > 0 {
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", lockTimeout.Milliseconds())
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("set lock timeout: %w", err)
			}
		}

		products, err := LockProducts(ctx, tx, ledger.ProductIDs(lines))
		if err != nil {
			return err
		}

		built, err := ledger.BuildSale(lines, products, req.PaymentType, saleDate)
		if err != nil {
			return err
		}
		built.Reference = uuid.NewString()
		built.RecordedBy = req.RecordedBy

		err = tx.QueryRowContext(ctx,
			`INSERT INTO sales (reference, total_amount, total_cost, payment_type, sale_date, recorded_by, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, NOW())
			 RETURNING id, sale_date, created_at`,
			built.Reference, built.TotalAmount, built.TotalCost, built.PaymentType, built.SaleDate, req.RecordedBy,
		).Scan(&built.ID, &built.SaleDate, &built.CreatedAt)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23503" {
				return fmt.Errorf("%w: recorded_by %d", database.ErrUserNotFound, derefID(req.RecordedBy))
			}
			return fmt.Errorf("create sale: %w", database.TranslateError(err))
		}

		for i := range built.Items {
			item := &built.Items[i]
			item.SaleID = built.ID
			err := tx.QueryRowContext(ctx,
				`INSERT INTO sales_items (sale_id, product_id, product_name, quantity, unit_price, unit_cost, created_at)
				 VALUES ($1, $2, $3, $4, $5, $6, NOW())
				 RETURNING id, created_at`,
				item.SaleID, item.ProductID, item.ProductName, item.Quantity, item.UnitPrice, item.UnitCost,
			).Scan(&item.ID, &item.CreatedAt)
			if err != nil {
				return fmt.Errorf("create sale item: %w", database.TranslateError(err))
			}
		}

		for _, line := range lines {
			if err := DecrementStock(ctx, tx, line.ProductID, line.Quantity); err != nil {
				return err
			}
		}

		sale = built
		return nil
	})
	if err != nil {
		return nil, err
	}

	return sale, nil
}

func derefID(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}

func GetSale(ctx context.Context, db database.DBTX, id int64) (*models.Sale, error) {
	sale := &models.Sale{}

	query := `SELECT ` + saleColumns + ` FROM sales WHERE id = $1`

	if err := scanSale(db.QueryRowContext(ctx, query, id), sale); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrSaleNotFound
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}

	itemsQuery := `
		SELECT id, sale_id, product_id, product_name, quantity, unit_price, unit_cost, created_at
		FROM sales_items
		WHERE sale_id = $1
		ORDER BY id`

	rows, err := db.QueryContext(ctx, itemsQuery, id)
	if err != nil {
		return nil, fmt.Errorf("get sale items: %w", err)
	}
	defer rows.Close()

	items := make([]models.SaleItem, 0)
	for rows.Next() {
		var item models.SaleItem
		err := rows.Scan(
			&item.ID,
			&item.SaleID,
			&item.ProductID,
			&item.ProductName,
			&item.Quantity,
			&item.UnitPrice,
			&item.UnitCost,
			&item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan sale item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	sale.Items = items

	return sale, nil
}

// ListSalesCursor pages through sale headers newest first.
func ListSalesCursor(ctx context.Context, db database.DBTX, cursor string, limit int) (*CursorPage[models.Sale], error) {
	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}
	limit = ClampPageSize(limit)

	query := `
		SELECT ` + saleColumns + `
		FROM sales
		WHERE (sale_date, id) < ($1, $2)
		ORDER BY sale_date DESC, id DESC
		LIMIT $3`

	sales, err := querySales(ctx, db, query, cursorData.SaleDate, cursorData.ID, limit+1)
	if err != nil {
		return nil, err
	}

	hasMore := len(sales) > limit
	if hasMore {
		sales = sales[:limit]
	}

	var nextCursor string
	if hasMore && len(sales) > 0 {
		last := sales[len(sales)-1]
		nextCursor = EncodeCursor(SaleCursor{
			SaleDate: last.SaleDate,
			ID:       last.ID,
		})
	}

	return &CursorPage[models.Sale]{
		Items:      sales,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// RecentSales returns the most recently recorded sale headers.
func RecentSales(ctx context.Context, db database.DBTX, limit int) ([]models.Sale, error) {
	query := `
		SELECT ` + saleColumns + `
		FROM sales
		ORDER BY created_at DESC, id DESC
		LIMIT $1`

	return querySales(ctx, db, query, limit)
}

func querySales(ctx context.Context, db database.DBTX, query string, args ...any) ([]models.Sale, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	defer rows.Close()

	sales := make([]models.Sale, 0)
	for rows.Next() {
		var sale models.Sale
		if err := scanSale(rows, &sale); err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		sales = append(sales, sale)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return sales, nil
}

// DeleteSale removes a sale and, through the foreign key cascade, its line
// items. Stock is not restored.
func DeleteSale(ctx context.Context, db database.DBTX, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM sales WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete sale: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrSaleNotFound
	}

	return nil
}
