// Package service is the ledger's external interface. It owns transaction
// boundaries, the request-scoped operator and the reporting clock; the rules
// themselves live in inventory, ledger and reporting.
package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/safar/storeledger/internal/config"
	"github.com/safar/storeledger/internal/inventory"
	"github.com/safar/storeledger/internal/models"
	"go.uber.org/zap"
)

type actorContextKey struct{}

// WithActor attaches the authenticated operator to ctx.
func WithActor(ctx context.Context, actor *models.User) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (*models.User, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(*models.User)
	return actor, ok && actor != nil
}

type Service struct {
	db          *sql.DB
	policy      inventory.Policy
	loc         *time.Location
	recentLimit int
	lockTimeout time.Duration
	maxRetries  int
	logger      *zap.Logger
	now         func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now, for tests that pin "today".
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(db *sql.DB, cfg *config.Config, logger *zap.Logger, opts ...Option) (*Service, error) {
	loc, err := cfg.Reporting.Location()
	if err != nil {
		return nil, fmt.Errorf("reporting location: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		db: db,
		policy: inventory.Policy{
			LowStockThreshold:   cfg.Inventory.LowStockThreshold,
			CaseSensitiveSearch: cfg.Inventory.CaseSensitiveSearch,
		},
		loc:         loc,
		recentLimit: cfg.Reporting.RecentSalesLimit,
		lockTimeout: cfg.Database.SaleLockTimeout,
		maxRetries:  cfg.Database.MaxRetries,
		logger:      logger.Named("service"),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

func (s *Service) Policy() inventory.Policy {
	return s.policy
}

// Ping checks the database connection.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func actorFields(ctx context.Context) []zap.Field {
	if actor, ok := ActorFromContext(ctx); ok {
		return []zap.Field{zap.Int64("actor_id", actor.ID), zap.String("actor", actor.Username)}
	}
	return nil
}
