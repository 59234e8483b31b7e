package service

import (
	"context"
	"database/sql"

	"github.com/safar/storeledger/internal/database"
	"github.com/safar/storeledger/internal/models"
	"github.com/safar/storeledger/internal/reporting"
	"github.com/safar/storeledger/internal/store"
	"go.uber.org/zap"
)

// DashboardSummary reads the inventory and sales figures of today and the
// current month in the reporting time zone.
func (s *Service) DashboardSummary(ctx context.Context) (*reporting.DashboardSummary, error) {
	now := s.now()
	dayStart, dayEnd := reporting.DayBounds(now, s.loc)
	monthStart, monthEnd := reporting.MonthBounds(now, s.loc)

	var summary *reporting.DashboardSummary
	err := database.WithRetry(ctx, s.db, database.ReportTxOptions(s.maxRetries), func(tx *sql.Tx) error {
		inv, err := store.InventoryTotals(ctx, tx, s.policy.LowStockThreshold)
		if err != nil {
			return err
		}
		today, err := store.SalesTotals(ctx, tx, dayStart, dayEnd)
		if err != nil {
			return err
		}
		month, err := store.SalesTotals(ctx, tx, monthStart, monthEnd)
		if err != nil {
			return err
		}
		lowStock, err := store.ListLowStock(ctx, tx, s.policy.LowStockThreshold)
		if err != nil {
			return err
		}
		recent, err := store.RecentSales(ctx, tx, s.recentLimit)
		if err != nil {
			return err
		}

		summary = reporting.BuildDashboard(inv, today, month, lowStock, recent, s.policy.LowStockThreshold, now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return summary, nil
}

// ReportForPeriod builds the profit report for the calendar dates from..to
// (YYYY-MM-DD, both inclusive). Malformed or reversed bounds are corrected
// and reported through Report.Warnings rather than failing the request.
func (s *Service) ReportForPeriod(ctx context.Context, from, to string) (*reporting.Report, error) {
	now := s.now()
	period, warnings := reporting.ParsePeriod(from, to, now, s.loc)
	if len(warnings) > 0 {
		s.logger.Warn("report period corrected",
			zap.String("date_from", from),
			zap.String("date_to", to),
			zap.Strings("warnings", warnings),
		)
	}

	start, end := period.Bounds()
	prevStart, prevEnd := period.Previous().Bounds()

	var (
		ledger   *models.Ledger
		previous models.PeriodTotals
	)
	err := database.WithRetry(ctx, s.db, database.ReportTxOptions(s.maxRetries), func(tx *sql.Tx) error {
		var err error
		if ledger, err = store.LoadLedger(ctx, tx, start, end); err != nil {
			return err
		}
		if previous, err = store.SalesTotals(ctx, tx, prevStart, prevEnd); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	report := reporting.BuildReport(period, ledger, previous)
	report.Presets = reporting.PresetsFor(now, s.loc)
	report.Warnings = warnings

	return report, nil
}
