package service

import (
	"context"
	"time"

	"github.com/safar/storeledger/internal/models"
	"github.com/safar/storeledger/internal/store"
	"go.uber.org/zap"
)

// RecordSale records a sale dated now.
func (s *Service) RecordSale(ctx context.Context, items []models.SaleLineRequest, paymentType string) (*models.Sale, error) {
	return s.RecordSaleAt(ctx, items, paymentType, time.Time{})
}

// RecordSaleAt records a sale with an explicit sale date; the zero time means
// now. The operator in ctx, if any, is stamped on the sale.
func (s *Service) RecordSaleAt(ctx context.Context, items []models.SaleLineRequest, paymentType string, saleDate time.Time) (*models.Sale, error) {
	if saleDate.IsZero() {
		saleDate = s.now()
	}

	req := models.RecordSaleRequest{
		Items:       items,
		PaymentType: paymentType,
		SaleDate:    saleDate,
	}
	if actor, ok := ActorFromContext(ctx); ok {
		id := actor.ID
		req.RecordedBy = &id
	}

	sale, err := store.RecordSale(ctx, s.db, req, s.lockTimeout)
	if err != nil {
		s.logger.Info("sale rejected", append(actorFields(ctx), zap.Int("lines", len(items)), zap.Error(err))...)
		return nil, err
	}

	s.logger.Info("sale recorded", append(actorFields(ctx),
		zap.Int64("sale_id", sale.ID),
		zap.String("reference", sale.Reference),
		zap.String("total_amount", sale.TotalAmount.StringFixed(2)),
		zap.String("total_cost", sale.TotalCost.StringFixed(2)),
		zap.String("payment_type", sale.PaymentType),
		zap.Int("items", len(sale.Items)),
	)...)

	return sale, nil
}

func (s *Service) GetSale(ctx context.Context, id int64) (*models.Sale, error) {
	return store.GetSale(ctx, s.db, id)
}

func (s *Service) ListSales(ctx context.Context, cursor string, limit int) (*store.CursorPage[models.Sale], error) {
	return store.ListSalesCursor(ctx, s.db, cursor, limit)
}

// DeleteSale removes a sale and its line items without restocking.
func (s *Service) DeleteSale(ctx context.Context, id int64) error {
	if err := store.DeleteSale(ctx, s.db, id); err != nil {
		return err
	}
	s.logger.Info("sale deleted", append(actorFields(ctx), zap.Int64("sale_id", id))...)
	return nil
}
