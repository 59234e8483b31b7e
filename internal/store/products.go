package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/lib/pq"
	"github.com/safar/storeledger/internal/database"
	"github.com/safar/storeledger/internal/inventory"
	"github.com/safar/storeledger/internal/models"
	"github.com/shopspring/decimal"
)

const productColumns = `id, name, category, cost, price, stock_level, description, created_at, updated_at, version`

// DeletePolicy decides what happens to line items that reference a product
// being deleted.
type DeletePolicy int

const (
	// Restrict refuses the delete while any line item references the product.
	Restrict DeletePolicy = iota
	// CascadeLineItems removes the referencing line items first. Sale totals
	// are left as recorded.
	CascadeLineItems
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner, p *models.Product) error {
	return row.Scan(
		&p.ID,
		&p.Name,
		&p.Category,
		&p.Cost,
		&p.Price,
		&p.StockLevel,
		&p.Description,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.Version,
	)
}

func CreateProduct(ctx context.Context, db database.DBTX, in models.ProductInput) (*models.Product, error) {
	if err := inventory.ValidateProduct(&in); err != nil {
		return nil, err
	}

	product := &models.Product{}

	query := `
		INSERT INTO products (name, category, cost, price, stock_level, description, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW(), 1)
		RETURNING ` + productColumns

	row := db.QueryRowContext(ctx, query, in.Name, in.Category, in.Cost, in.Price, in.StockLevel, in.Description)
	if err := scanProduct(row, product); err != nil {
		return nil, fmt.Errorf("create product: %w", database.TranslateError(err))
	}

	return product, nil
}

func GetProduct(ctx context.Context, db database.DBTX, id int64) (*models.Product, error) {
	product := &models.Product{}

	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	if err := scanProduct(db.QueryRowContext(ctx, query, id), product); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return product, nil
}

// UpdateProduct rewrites the editable fields if the stored version still
// matches. A mismatch returns ErrConflict.
func UpdateProduct(ctx context.Context, db database.DBTX, id int64, version int, in models.ProductInput) (*models.Product, error) {
	if err := inventory.ValidateProduct(&in); err != nil {
		return nil, err
	}

	product := &models.Product{}

	query := `
		UPDATE products
		SET name = $1, category = $2, cost = $3, price = $4, stock_level = $5, description = $6,
		    version = version + 1, updated_at = NOW()
		WHERE id = $7 AND version = $8
		RETURNING ` + productColumns

	row := db.QueryRowContext(ctx, query, in.Name, in.Category, in.Cost, in.Price, in.StockLevel, in.Description, id, version)
	if err := scanProduct(row, product); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, versionMiss(ctx, db, id)
		}
		return nil, fmt.Errorf("update product: %w", database.TranslateError(err))
	}

	return product, nil
}

// SetStockLevel overwrites stock_level with an optimistic version check.
func SetStockLevel(ctx context.Context, db database.DBTX, id int64, level int, version int) (*models.Product, error) {
	if level < 0 {
		return nil, database.NewValidationError("stock_level", "cannot be negative, got %d", level)
	}

	product := &models.Product{}

	query := `
		UPDATE products
		SET stock_level = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND version = $3
		RETURNING ` + productColumns

	if err := scanProduct(db.QueryRowContext(ctx, query, level, id, version), product); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, versionMiss(ctx, db, id)
		}
		return nil, fmt.Errorf("set stock level: %w", database.TranslateError(err))
	}

	return product, nil
}

// versionMiss tells a vanished product apart from a stale version.
func versionMiss(ctx context.Context, db database.DBTX, id int64) error {
	var exists bool
	err := db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check product exists: %w", err)
	}
	if !exists {
		return database.ErrProductNotFound
	}
	return fmt.Errorf("%w: product %d was modified concurrently", database.ErrConflict, id)
}

// DeleteProduct removes a product. Under Restrict it fails with
// ErrProductInUse while line items reference the product.
func DeleteProduct(ctx context.Context, db *sql.DB, id int64, policy DeletePolicy) error {
	return database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		var locked int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM products WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return database.ErrProductNotFound
			}
			return fmt.Errorf("lock product: %w", database.TranslateError(err))
		}

		var refs int
		err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM sales_items WHERE product_id = $1`, id).Scan(&refs)
		if err != nil {
			return fmt.Errorf("count line items: %w", err)
		}

		if refs > 0 {
			if policy != CascadeLineItems {
				return fmt.Errorf("%w: %d line item(s) reference product %d", database.ErrProductInUse, refs, id)
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM sales_items WHERE product_id = $1`, id); err != nil {
				return fmt.Errorf("delete line items: %w", err)
			}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete product: %w", database.TranslateError(err))
		}

		return nil
	})
}

// LockProducts takes row locks on every listed product in ascending id order
// and returns the locked rows keyed by id. Ids that do not exist are simply
// absent from the result.
func LockProducts(ctx context.Context, tx *sql.Tx, ids []int64) (map[int64]*models.Product, error) {
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE`

	rows, err := tx.QueryContext(ctx, query, pq.Array(sorted))
	if err != nil {
		return nil, fmt.Errorf("lock products: %w", database.TranslateError(err))
	}
	defer rows.Close()

	products := make(map[int64]*models.Product, len(sorted))
	for rows.Next() {
		p := &models.Product{}
		if err := scanProduct(rows, p); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products[p.ID] = p
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lock products: %w", database.TranslateError(err))
	}

	return products, nil
}

// DecrementStock is the guarded stock update of a sale. It never takes
// stock_level below zero.
func DecrementStock(ctx context.Context, tx *sql.Tx, productID int64, quantity int) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE products
		 SET stock_level = stock_level - $1,
		     version = version + 1,
		     updated_at = NOW()
		 WHERE id = $2
		   AND stock_level >= $1`,
		quantity, productID)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", database.TranslateError(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w: product %d", database.ErrInsufficientStock, productID)
	}

	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// FilterProducts lists products matching f, ordered by f's sort field with
// id as the tie-breaker.
func FilterProducts(ctx context.Context, db database.DBTX, f inventory.Filter, policy inventory.Policy) ([]models.Product, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Search != "" {
		op := "ILIKE"
		if policy.CaseSensitiveSearch {
			op = "LIKE"
		}
		p := arg("%" + likeEscaper.Replace(f.Search) + "%")
		where = append(where, fmt.Sprintf("(name %[1]s %[2]s OR description %[1]s %[2]s)", op, p))
	}
	if f.Category != "" {
		where = append(where, "category = "+arg(f.Category))
	}
	switch f.StockStatus {
	case inventory.StockStatusOut:
		where = append(where, "stock_level = 0")
	case inventory.StockStatusLow:
		where = append(where, "stock_level <= "+arg(policy.LowStockThreshold))
	case inventory.StockStatusInStock:
		where = append(where, "stock_level > "+arg(policy.LowStockThreshold))
	}

	query := `SELECT ` + productColumns + ` FROM products`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += fmt.Sprintf(` ORDER BY %s %s, id %[2]s`, f.SortBy.Column(), f.SortOrder.Keyword())

	return queryProducts(ctx, db, query, args...)
}

// ListLowStock returns products at or under the threshold, emptiest first.
func ListLowStock(ctx context.Context, db database.DBTX, threshold int) ([]models.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE stock_level <= $1
		ORDER BY stock_level, id`

	return queryProducts(ctx, db, query, threshold)
}

func queryProducts(ctx context.Context, db database.DBTX, query string, args ...any) ([]models.Product, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := make([]models.Product, 0)
	for rows.Next() {
		var product models.Product
		if err := scanProduct(rows, &product); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return products, nil
}

func ListCategories(ctx context.Context, db database.DBTX) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT DISTINCT category FROM products ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := make([]string, 0)
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return categories, nil
}

func InventoryTotals(ctx context.Context, db database.DBTX, threshold int) (models.InventoryTotals, error) {
	var totals models.InventoryTotals

	query := `
		SELECT COUNT(*),
		       COALESCE(SUM(price * stock_level), 0),
		       COUNT(*) FILTER (WHERE stock_level <= $1)
		FROM products`

	err := db.QueryRowContext(ctx, query, threshold).Scan(
		&totals.TotalProducts,
		&totals.TotalStockValue,
		&totals.LowStockCount,
	)
	if err != nil {
		return totals, fmt.Errorf("inventory totals: %w", err)
	}

	return totals, nil
}

// ProductSalesTotals sums the line items recorded against a product.
func ProductSalesTotals(ctx context.Context, db database.DBTX, productID int64) (models.ProductSalesTotals, error) {
	totals := models.ProductSalesTotals{TotalRevenue: decimal.Zero}

	query := `
		SELECT COALESCE(SUM(quantity), 0),
		       COALESCE(SUM(quantity * unit_price), 0)
		FROM sales_items
		WHERE product_id = $1`

	if err := db.QueryRowContext(ctx, query, productID).Scan(&totals.UnitsSold, &totals.TotalRevenue); err != nil {
		return totals, fmt.Errorf("product sales totals: %w", err)
	}

	return totals, nil
}
