package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/safar/storeledger/internal/database"
	"github.com/safar/storeledger/internal/models"
)

const userColumns = `id, username, email, password_hash, created_at, updated_at, version`

func scanUser(row rowScanner, u *models.User) error {
	return row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.CreatedAt,
		&u.UpdatedAt,
		&u.Version,
	)
}

// CreateUser stores an operator account. passwordHash must already be hashed.
func CreateUser(ctx context.Context, db database.DBTX, username, email, passwordHash string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, database.NewValidationError("username", "is required")
	}
	if passwordHash == "" {
		return nil, database.NewValidationError("password", "is required")
	}

	user := &models.User{}

	query := `
		INSERT INTO users (username, email, password_hash, created_at, updated_at, version)
		VALUES ($1, $2, $3, NOW(), NOW(), 1)
		RETURNING ` + userColumns

	if err := scanUser(db.QueryRowContext(ctx, query, username, strings.TrimSpace(email), passwordHash), user); err != nil {
		return nil, fmt.Errorf("create user: %w", database.TranslateError(err))
	}

	return user, nil
}

func GetUser(ctx context.Context, db database.DBTX, id int64) (*models.User, error) {
	user := &models.User{}

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	if err := scanUser(db.QueryRowContext(ctx, query, id), user); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return user, nil
}

func GetUserByUsername(ctx context.Context, db database.DBTX, username string) (*models.User, error) {
	user := &models.User{}

	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`

	if err := scanUser(db.QueryRowContext(ctx, query, strings.TrimSpace(username)), user); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by username: %w", err)
	}

	return user, nil
}

func ListUsers(ctx context.Context, db database.DBTX, page, pageSize int) (*OffsetPage[models.User], error) {
	if page < 1 {
		page = 1
	}
	pageSize = ClampPageSize(pageSize)

	var total int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}

	offset := (page - 1) * pageSize
	query := `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`

	rows, err := db.QueryContext(ctx, query, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		var user models.User
		if err := scanUser(rows, &user); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return &OffsetPage[models.User]{
		Items:      users,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	}, nil
}
