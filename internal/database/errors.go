package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

type ErrorClass int

const (
	ErrorClassPermanent ErrorClass = iota
	ErrorClassTransient
	ErrorClassDeadlock
	ErrorClassSerialization
)

func ClassifyError(err error) ErrorClass {
	if err == nil {
		return ErrorClassPermanent
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001":
			return ErrorClassSerialization
		case "40P01":
			return ErrorClassDeadlock
		case "55P03":
			return ErrorClassTransient
		case "23505", "23503", "23502", "23514":
			return ErrorClassPermanent
		}
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrorClassPermanent
	}

	return ErrorClassPermanent
}

func IsRetryable(err error) bool {
	class := ClassifyError(err)
	return class == ErrorClassTransient ||
		class == ErrorClassDeadlock ||
		class == ErrorClassSerialization
}

// TranslateError maps constraint, data and lock failures reported by Postgres
// onto the ledger's sentinel errors. Other errors are returned unchanged.
func TranslateError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	switch pqErr.Code {
	case "23505":
		return fmt.Errorf("%w: %s", ErrDuplicate, pqErr.Detail)
	case "23503":
		return fmt.Errorf("%w: %s", ErrProductInUse, pqErr.Detail)
	case "23514":
		return &ValidationError{Field: pqErr.Constraint, Message: "violates check constraint"}
	case "22001":
		return &ValidationError{Field: pqErr.Column, Message: "value too long"}
	case "22003":
		return &ValidationError{Field: pqErr.Column, Message: "numeric value out of range"}
	case "55P03":
		return fmt.Errorf("%w: %s", ErrLockTimeout, pqErr.Message)
	case "40001", "40P01":
		return fmt.Errorf("%w: %s", ErrConflict, pqErr.Message)
	}
	return err
}

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrProductNotFound    = errors.New("product not found")
	ErrSaleNotFound       = errors.New("sale not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrConflict           = errors.New("concurrent modification conflict")
	ErrLockTimeout        = fmt.Errorf("lock timeout: %w", ErrConflict)
	ErrProductInUse       = errors.New("product is referenced by sale line items")
	ErrDuplicate          = errors.New("duplicate record")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrValidation         = errors.New("validation failed")
	ErrInvalidQuantity    = &ValidationError{Field: "quantity", Message: "must be a positive integer"}
)

// ValidationError reports malformed or out-of-range input. It matches
// ErrValidation under errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Message)
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

type StockShortage struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Requested   int    `json:"requested"`
	Available   int    `json:"available"`
}

// InsufficientStockError lists every line of a request that exceeds the
// stock on hand. It matches ErrInsufficientStock under errors.Is.
type InsufficientStockError struct {
	Shortages []StockShortage
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		name := s.ProductName
		if name == "" {
			name = fmt.Sprintf("product %d", s.ProductID)
		}
		parts = append(parts, fmt.Sprintf("%s: requested %d, available %d", name, s.Requested, s.Available))
	}
	return "insufficient stock: " + strings.Join(parts, "; ")
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrSaleNotFound) ||
		errors.Is(err, ErrUserNotFound)
}
