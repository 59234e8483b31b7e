package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// MigrationFiles lists the *.<direction>.sql files of dir in apply order:
// ascending for up, descending for down.
func MigrationFiles(dir, direction string) ([]string, error) {
	if direction != "up" && direction != "down" {
		return nil, fmt.Errorf("direction must be 'up' or 'down', got %q", direction)
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migration directory: %w", err)
	}

	var names []string
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(file.Name(), "."+direction+".sql") {
			names = append(names, file.Name())
		}
	}

	sort.Strings(names)
	if direction == "down" {
		sort.Sort(sort.Reverse(sort.StringSlice(names)))
	}

	return names, nil
}

// RunMigrations executes every migration of dir in the given direction and
// returns how many ran. It stops at the first failing file.
func RunMigrations(ctx context.Context, db *sql.DB, dir, direction string, logger *zap.Logger) (int, error) {
	names, err := MigrationFiles(dir, direction)
	if err != nil {
		return 0, err
	}

	for i, name := range names {
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return i, fmt.Errorf("read migration file %s: %w", name, err)
		}

		logger.Info("running migration", zap.String("file", name), zap.String("direction", direction))
		if _, err := db.ExecContext(ctx, string(content)); err != nil {
			return i, fmt.Errorf("execute migration %s: %w", name, err)
		}
	}

	return len(names), nil
}
