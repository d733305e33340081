package sales

import (
	"time"

	"github.com/google/uuid"
	"github.com/salesapi/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AggregateTypeSale is the aggregate type recorded on sale events
const AggregateTypeSale = "Sale"

// Sale errors
var (
	ErrSaleNotFound     = shared.NewDomainError("NOT_FOUND", "Sale not found")
	ErrNoItems          = shared.NewDomainError("NO_ITEMS", "A sale must have at least one item")
	ErrSaleCancelled    = shared.NewDomainError("INVALID_STATE", "Sale is cancelled and can no longer be modified")
	ErrAlreadyCancelled = shared.NewDomainError("INVALID_STATE", "Sale is already cancelled")
	ErrVersionMismatch  = shared.NewDomainError("CONCURRENCY_CONFLICT", "The sale has been modified by another request")
)

// SaleItem is one product line of a sale.
// Discount and TotalAmount are always derived from Quantity and UnitPrice.
type SaleItem struct {
	ID          uuid.UUID
	SaleID      uuid.UUID
	ProductID   uuid.UUID
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	Discount    decimal.Decimal
	TotalAmount decimal.Decimal
}

// GrossAmount returns unit price times quantity, before discount
func (i SaleItem) GrossAmount() decimal.Decimal {
	return GrossAmount(i.Quantity, i.UnitPrice)
}

// SaleDetails holds the customer and branch references of a sale
type SaleDetails struct {
	CustomerID   uuid.UUID
	CustomerName string
	BranchID     uuid.UUID
	BranchName   string
}

// Sale is the aggregate root for a priced sale and its lines.
// ID, SaleNumber and SaleDate never change after creation.
type Sale struct {
	shared.BaseAggregateRoot
	SaleNumber   string
	SaleDate     time.Time
	CustomerID   uuid.UUID
	CustomerName string
	BranchID     uuid.UUID
	BranchName   string
	TotalAmount  decimal.Decimal
	IsCancelled  bool
	CancelledAt  *time.Time
	Items        []SaleItem
}

// Details returns the customer and branch references
func (s *Sale) Details() SaleDetails {
	return SaleDetails{
		CustomerID:   s.CustomerID,
		CustomerName: s.CustomerName,
		BranchID:     s.BranchID,
		BranchName:   s.BranchName,
	}
}

// ItemCount returns the number of lines
func (s *Sale) ItemCount() int {
	return len(s.Items)
}

// TotalDiscount returns the sum of all line discounts
func (s *Sale) TotalDiscount() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range s.Items {
		sum = sum.Add(item.Discount)
	}
	return sum
}

// FindItemByProduct returns the line for productID, if any
func (s *Sale) FindItemByProduct(productID uuid.UUID) (SaleItem, bool) {
	for _, item := range s.Items {
		if item.ProductID == productID {
			return item, true
		}
	}
	return SaleItem{}, false
}

// Cancel flags the sale as cancelled. A cancelled sale cannot be updated.
func (s *Sale) Cancel(now time.Time) error {
	if s.IsCancelled {
		return ErrAlreadyCancelled
	}

	s.IsCancelled = true
	s.CancelledAt = &now
	s.UpdatedAt = now

	s.AddDomainEvent(NewSaleCancelledEvent(s, now))

	return nil
}

// CheckVersion fails with ErrVersionMismatch when expected is set and differs
// from the sale's current version.
func (s *Sale) CheckVersion(expected *int) error {
	if expected != nil && *expected != s.Version {
		return ErrVersionMismatch
	}
	return nil
}
