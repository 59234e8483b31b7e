package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/safar/storeledger/internal/database"
	"github.com/safar/storeledger/internal/inventory"
	"github.com/safar/storeledger/internal/models"
	"github.com/safar/storeledger/internal/store"
	"go.uber.org/zap"
)

// ProductDetail is a product with the figures derived from its sales.
type ProductDetail struct {
	models.Product
	models.ProductSalesTotals
	StockStatus inventory.StockStatus `json:"stock_status"`
}

type StockInfo struct {
	ProductID   int64                 `json:"product_id"`
	Name        string                `json:"name"`
	StockLevel  int                   `json:"stock_level"`
	StockStatus inventory.StockStatus `json:"stock_status"`
	LowStock    bool                  `json:"low_stock"`
}

type InventoryListing struct {
	Products   []models.Product `json:"products"`
	Categories []string         `json:"categories"`
	Filter     inventory.Filter `json:"filters"`
	Threshold  int              `json:"low_stock_threshold"`
}

func (s *Service) CreateProduct(ctx context.Context, in models.ProductInput) (*models.Product, error) {
	p, err := store.CreateProduct(ctx, s.db, in)
	if err != nil {
		return nil, err
	}
	s.logger.Info("product created", append(actorFields(ctx),
		zap.Int64("product_id", p.ID),
		zap.String("name", p.Name),
		zap.Int("stock_level", p.StockLevel),
	)...)
	return p, nil
}

// UpdateProduct applies in if the product is still at version. A zero version
// updates whatever version is current at the time of the call.
func (s *Service) UpdateProduct(ctx context.Context, id int64, version int, in models.ProductInput) (*models.Product, error) {
	if version == 0 {
		current, err := store.GetProduct(ctx, s.db, id)
		if err != nil {
			return nil, err
		}
		version = current.Version
	}

	p, err := store.UpdateProduct(ctx, s.db, id, version, in)
	if err != nil {
		return nil, err
	}
	s.logger.Info("product updated", append(actorFields(ctx),
		zap.Int64("product_id", p.ID),
		zap.Int("version", p.Version),
	)...)
	return p, nil
}

func (s *Service) GetProduct(ctx context.Context, id int64) (*ProductDetail, error) {
	p, err := store.GetProduct(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	totals, err := store.ProductSalesTotals(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	return &ProductDetail{
		Product:            *p,
		ProductSalesTotals: totals,
		StockStatus:        inventory.StatusOf(p, s.policy.LowStockThreshold),
	}, nil
}

func (s *Service) ProductStock(ctx context.Context, id int64) (*StockInfo, error) {
	p, err := store.GetProduct(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	return &StockInfo{
		ProductID:   p.ID,
		Name:        p.Name,
		StockLevel:  p.StockLevel,
		StockStatus: inventory.StatusOf(p, s.policy.LowStockThreshold),
		LowStock:    inventory.IsLowStock(p, s.policy.LowStockThreshold),
	}, nil
}

// AdjustStock overwrites a product's stock level. Concurrent edits are
// detected through the version column and retried up to the configured
// number of times before ErrConflict is returned.
func (s *Service) AdjustStock(ctx context.Context, id int64, level int) (*models.Product, error) {
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		p, err := store.GetProduct(ctx, s.db, id)
		if err != nil {
			return nil, err
		}
		previous := p.StockLevel
		if err := inventory.SetStock(p, level); err != nil {
			return nil, err
		}

		updated, err := store.SetStockLevel(ctx, s.db, id, level, p.Version)
		if err == nil {
			s.logger.Info("stock adjusted", append(actorFields(ctx),
				zap.Int64("product_id", id),
				zap.Int("from", previous),
				zap.Int("to", updated.StockLevel),
				zap.Int("attempt", attempt+1),
			)...)
			return updated, nil
		}
		if !errors.Is(err, database.ErrConflict) {
			return nil, err
		}
		lastErr = err
		s.logger.Debug("stock adjustment lost a version race", zap.Int64("product_id", id), zap.Int("attempt", attempt+1))
	}
	return nil, lastErr
}

func (s *Service) DeleteProduct(ctx context.Context, id int64, policy store.DeletePolicy) error {
	if err := store.DeleteProduct(ctx, s.db, id, policy); err != nil {
		return err
	}
	s.logger.Info("product deleted", append(actorFields(ctx),
		zap.Int64("product_id", id),
		zap.Bool("cascade_line_items", policy == store.CascadeLineItems),
	)...)
	return nil
}

func (s *Service) ListInventory(ctx context.Context, f inventory.Filter) (*InventoryListing, error) {
	listing := &InventoryListing{Filter: f, Threshold: s.policy.LowStockThreshold}

	err := database.WithRetry(ctx, s.db, database.ReportTxOptions(s.maxRetries), func(tx *sql.Tx) error {
		products, err := store.FilterProducts(ctx, tx, f, s.policy)
		if err != nil {
			return err
		}
		categories, err := store.ListCategories(ctx, tx)
		if err != nil {
			return err
		}
		listing.Products, listing.Categories = products, categories
		return nil
	})
	if err != nil {
		return nil, err
	}

	return listing, nil
}
