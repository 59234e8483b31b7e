package main

import (
	"context"
	"os"

	"github.com/safar/storeledger/internal/config"
	"github.com/safar/storeledger/internal/database"
	"github.com/safar/storeledger/internal/logging"
	"go.uber.org/zap"
)

func main() {
	if len(os.Args) < 2 {
		os.Stderr.WriteString("Usage: go run scripts/run_migrations.go [up|down] [dir]\n")
		os.Exit(2)
	}

	direction := os.Args[1]
	dir := "migrations"
	if len(os.Args) > 2 {
		dir = os.Args[2]
	}

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger, err := logging.New(cfg.App)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		logger.Fatal("connect to database", zap.Error(err))
	}
	defer db.Close()

	n, err := database.RunMigrations(context.Background(), db, dir, direction, logger)
	if err != nil {
		logger.Fatal("migration failed", zap.Int("applied", n), zap.Error(err))
	}

	logger.Info("migrations complete", zap.Int("count", n), zap.String("direction", direction))
}
