package service

import (
	"context"
	"errors"

	"github.com/safar/storeledger/internal/database"
	"github.com/safar/storeledger/internal/models"
	"github.com/safar/storeledger/internal/store"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const MinPasswordLength = 6

func (s *Service) CreateUser(ctx context.Context, username, email, password string) (*models.User, error) {
	if len(password) < MinPasswordLength {
		return nil, database.NewValidationError("password", "must be at least %d characters", MinPasswordLength)
	}
	if len(password) > 72 {
		return nil, database.NewValidationError("password", "must be at most 72 bytes")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user, err := store.CreateUser(ctx, s.db, username, email, string(hash))
	if err != nil {
		return nil, err
	}

	s.logger.Info("user created", append(actorFields(ctx), zap.Int64("user_id", user.ID), zap.String("username", user.Username))...)
	return user, nil
}

func (s *Service) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return store.GetUser(ctx, s.db, id)
}

func (s *Service) ListUsers(ctx context.Context, page, pageSize int) (*store.OffsetPage[models.User], error) {
	return store.ListUsers(ctx, s.db, page, pageSize)
}

// Authenticate checks an operator's credentials. Unknown users and wrong
// passwords both return ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := store.GetUserByUsername(ctx, s.db, username)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return nil, database.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, database.ErrInvalidCredentials
	}

	return user, nil
}

// EnsureUser creates the account unless a user with that name already
// exists. It reports whether a user was created.
func (s *Service) EnsureUser(ctx context.Context, username, email, password string) (bool, error) {
	_, err := store.GetUserByUsername(ctx, s.db, username)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, database.ErrUserNotFound) {
		return false, err
	}

	if _, err := s.CreateUser(ctx, username, email, password); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
