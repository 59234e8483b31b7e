package store

import (
	"encoding/base64"
	"encoding/json"
	"math"
	"time"

	"github.com/safar/storeledger/internal/database"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type CursorPage[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}

type OffsetPage[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// SaleCursor is the keyset position of the last sale on a page. Sales are
// listed newest first by sale_date, then id.
type SaleCursor struct {
	SaleDate time.Time `json:"sale_date"`
	ID       int64     `json:"id"`
}

func EncodeCursor(cursor SaleCursor) string {
	data, err := json.Marshal(cursor)
	if err != nil {
		return ""
	}
	return base64.URLEncoding.EncodeToString(data)
}

// DecodeCursor parses a cursor from a previous page. The empty cursor starts
// from the newest sale.
func DecodeCursor(encoded string) (SaleCursor, error) {
	var cursor SaleCursor
	if encoded == "" {
		return SaleCursor{
			SaleDate: time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC),
			ID:       math.MaxInt64,
		}, nil
	}

	data, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return cursor, database.NewValidationError("cursor", "is malformed")
	}

	if err := json.Unmarshal(data, &cursor); err != nil {
		return cursor, database.NewValidationError("cursor", "is malformed")
	}
	return cursor, nil
}

// ClampPageSize bounds a requested page size to [1, MaxPageSize], using the
// default for anything non-positive.
func ClampPageSize(size int) int {
	switch {
	case size < 1:
		return DefaultPageSize
	case size > MaxPageSize:
		return MaxPageSize
	}
	return size
}

func totalPages(total int64, pageSize int) int {
	pages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		pages++
	}
	return pages
}
