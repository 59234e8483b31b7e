package inventory

import (
	"strings"

	"github.com/safar/storeledger/internal/database"
)

type StockStatus string

const (
	StockStatusAny     StockStatus = ""
	StockStatusLow     StockStatus = "low"
	StockStatusOut     StockStatus = "out"
	StockStatusInStock StockStatus = "in_stock"
)

type SortField string

const (
	SortByCreatedAt SortField = "created_at"
	SortByName      SortField = "name"
	SortByPrice     SortField = "price"
	SortByStock     SortField = "stock"
	SortByCategory  SortField = "category"
)

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Filter selects and orders the inventory listing. Zero values mean "no
// filter" and the default created_at/desc ordering.
type Filter struct {
	Search      string      `json:"search"`
	Category    string      `json:"category"`
	StockStatus StockStatus `json:"stock_status"`
	SortBy      SortField   `json:"sort_by"`
	SortOrder   SortOrder   `json:"sort_order"`
}

// ParseFilter validates raw query values against their closed enumerations.
func ParseFilter(search, category, stockStatus, sortBy, sortOrder string) (Filter, error) {
	f := Filter{
		Search:      strings.TrimSpace(search),
		Category:    strings.TrimSpace(category),
		StockStatus: StockStatus(strings.ToLower(strings.TrimSpace(stockStatus))),
		SortBy:      SortField(strings.ToLower(strings.TrimSpace(sortBy))),
		SortOrder:   SortOrder(strings.ToLower(strings.TrimSpace(sortOrder))),
	}
	if f.SortBy == "" {
		f.SortBy = SortByCreatedAt
	}
	if f.SortOrder == "" {
		f.SortOrder = SortDesc
	}
	return f, f.Validate()
}

func (f Filter) Validate() error {
	switch f.StockStatus {
	case StockStatusAny, StockStatusLow, StockStatusOut, StockStatusInStock:
	default:
		return database.NewValidationError("stock_status", "must be one of low, out, in_stock; got %q", f.StockStatus)
	}

	switch f.SortBy {
	case "", SortByCreatedAt, SortByName, SortByPrice, SortByStock, SortByCategory:
	default:
		return database.NewValidationError("sort_by", "must be one of name, price, stock, category, created_at; got %q", f.SortBy)
	}

	switch f.SortOrder {
	case "", SortAsc, SortDesc:
	default:
		return database.NewValidationError("sort_order", "must be asc or desc; got %q", f.SortOrder)
	}

	return nil
}

// Column returns the products column backing the sort field.
func (s SortField) Column() string {
	switch s {
	case SortByName:
		return "name"
	case SortByPrice:
		return "price"
	case SortByStock:
		return "stock_level"
	case SortByCategory:
		return "category"
	default:
		return "created_at"
	}
}

func (o SortOrder) Keyword() string {
	if o == SortAsc {
		return "ASC"
	}
	return "DESC"
}
