package sales

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Default and maximum page sizes for listing
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// SaleFilter narrows a sale listing. Nil fields are not filtered on.
// StartDate and EndDate are inclusive bounds on SaleDate.
type SaleFilter struct {
	StartDate  *time.Time
	EndDate    *time.Time
	CustomerID *uuid.UUID
	BranchID   *uuid.UUID
	Page       int
	PageSize   int
}

// Normalized returns the filter with page defaults applied
func (f SaleFilter) Normalized() SaleFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	return f
}

// SaleRepository defines the interface for sale persistence
type SaleRepository interface {
	// FindByID loads a sale with its items; ErrSaleNotFound if absent
	FindByID(ctx context.Context, id uuid.UUID) (*Sale, error)

	// Save inserts or overwrites a sale and replaces its stored items
	// with the sale's current items
	Save(ctx context.Context, sale *Sale) error

	// SaveWithLock writes an existing sale only if the stored version still
	// equals sale.Version, then increments the version. Returns
	// ErrVersionMismatch when another writer got there first.
	SaveWithLock(ctx context.Context, sale *Sale) error

	// Delete removes a sale and its items, reporting whether it existed
	Delete(ctx context.Context, id uuid.UUID) (bool, error)

	// List returns one page of sales, newest SaleDate first, and the total
	// number of sales matching the filter
	List(ctx context.Context, filter SaleFilter) ([]Sale, int64, error)
}
