package sales

import (
	"time"

	"github.com/google/uuid"
	"github.com/salesapi/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Event type constants
const (
	EventTypeSaleCreated   = "SaleCreated"
	EventTypeSaleModified  = "SaleModified"
	EventTypeSaleCancelled = "SaleCancelled"
	EventTypeSaleDeleted   = "SaleDeleted"
)

// SaleCreatedEvent is raised when a new sale is created
type SaleCreatedEvent struct {
	shared.BaseDomainEvent
	SaleID      uuid.UUID       `json:"sale_id"`
	SaleNumber  string          `json:"sale_number"`
	CustomerID  uuid.UUID       `json:"customer_id"`
	BranchID    uuid.UUID       `json:"branch_id"`
	ItemCount   int             `json:"item_count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// NewSaleCreatedEvent creates a new SaleCreatedEvent
func NewSaleCreatedEvent(sale *Sale, at time.Time) *SaleCreatedEvent {
	return &SaleCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSaleCreated, AggregateTypeSale, sale.ID, at),
		SaleID:          sale.ID,
		SaleNumber:      sale.SaleNumber,
		CustomerID:      sale.CustomerID,
		BranchID:        sale.BranchID,
		ItemCount:       len(sale.Items),
		TotalAmount:     sale.TotalAmount,
	}
}

// SaleModifiedEvent is raised when a sale's details or lines are replaced
type SaleModifiedEvent struct {
	shared.BaseDomainEvent
	SaleID      uuid.UUID       `json:"sale_id"`
	SaleNumber  string          `json:"sale_number"`
	Changes     ItemChanges     `json:"changes"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// NewSaleModifiedEvent creates a new SaleModifiedEvent
func NewSaleModifiedEvent(sale *Sale, changes ItemChanges, at time.Time) *SaleModifiedEvent {
	return &SaleModifiedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSaleModified, AggregateTypeSale, sale.ID, at),
		SaleID:          sale.ID,
		SaleNumber:      sale.SaleNumber,
		Changes:         changes,
		TotalAmount:     sale.TotalAmount,
	}
}

// SaleCancelledEvent is raised when a sale is cancelled
type SaleCancelledEvent struct {
	shared.BaseDomainEvent
	SaleID     uuid.UUID `json:"sale_id"`
	SaleNumber string    `json:"sale_number"`
}

// NewSaleCancelledEvent creates a new SaleCancelledEvent
func NewSaleCancelledEvent(sale *Sale, at time.Time) *SaleCancelledEvent {
	return &SaleCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSaleCancelled, AggregateTypeSale, sale.ID, at),
		SaleID:          sale.ID,
		SaleNumber:      sale.SaleNumber,
	}
}

// SaleDeletedEvent is raised after a sale has been removed from storage
type SaleDeletedEvent struct {
	shared.BaseDomainEvent
	SaleID     uuid.UUID `json:"sale_id"`
	SaleNumber string    `json:"sale_number"`
}

// NewSaleDeletedEvent creates a new SaleDeletedEvent
func NewSaleDeletedEvent(sale *Sale, at time.Time) *SaleDeletedEvent {
	return &SaleDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSaleDeleted, AggregateTypeSale, sale.ID, at),
		SaleID:          sale.ID,
		SaleNumber:      sale.SaleNumber,
	}
}
