package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/salesapi/backend/internal/domain/sales"
	"github.com/shopspring/decimal"
)

// SaleModel is the persistence model for the Sale aggregate root.
type SaleModel struct {
	AggregateModel
	SaleNumber   string          `gorm:"type:varchar(32);not null;uniqueIndex"`
	SaleDate     time.Time       `gorm:"not null;index"`
	CustomerID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	CustomerName string          `gorm:"type:varchar(100);not null"`
	BranchID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	BranchName   string          `gorm:"type:varchar(100);not null"`
	TotalAmount  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	IsCancelled  bool            `gorm:"not null;default:false"`
	CancelledAt  *time.Time
	Items        []SaleItemModel `gorm:"foreignKey:SaleID;references:ID"`
}

// TableName returns the table name for GORM
func (SaleModel) TableName() string {
	return "sales"
}

// ToDomain converts the persistence model to a domain Sale
func (m *SaleModel) ToDomain() *sales.Sale {
	sale := &sales.Sale{
		BaseAggregateRoot: m.AggregateModel.ToAggregateRoot(),
		SaleNumber:        m.SaleNumber,
		SaleDate:          m.SaleDate.UTC(),
		CustomerID:        m.CustomerID,
		CustomerName:      m.CustomerName,
		BranchID:          m.BranchID,
		BranchName:        m.BranchName,
		TotalAmount:       m.TotalAmount,
		IsCancelled:       m.IsCancelled,
		CancelledAt:       m.CancelledAt,
		Items:             make([]sales.SaleItem, len(m.Items)),
	}
	for i := range m.Items {
		sale.Items[i] = m.Items[i].ToDomain()
	}
	return sale
}

// FromDomain populates the persistence model from a domain Sale.
// Item positions follow the order of sale.Items.
func (m *SaleModel) FromDomain(s *sales.Sale) {
	m.FromDomainAggregateRoot(s.BaseAggregateRoot)
	m.SaleNumber = s.SaleNumber
	m.SaleDate = s.SaleDate.UTC()
	m.CustomerID = s.CustomerID
	m.CustomerName = s.CustomerName
	m.BranchID = s.BranchID
	m.BranchName = s.BranchName
	m.TotalAmount = s.TotalAmount
	m.IsCancelled = s.IsCancelled
	m.CancelledAt = s.CancelledAt
	m.Items = make([]SaleItemModel, len(s.Items))
	for i := range s.Items {
		m.Items[i].FromDomain(s.Items[i], i)
	}
}

// SaleModelFromDomain creates a new SaleModel from a domain Sale
func SaleModelFromDomain(s *sales.Sale) *SaleModel {
	m := &SaleModel{}
	m.FromDomain(s)
	return m
}

// SaleItemModel is the persistence model for one line of a sale.
type SaleItemModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SaleID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position    int             `gorm:"not null;default:0"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null"`
	ProductName string          `gorm:"type:varchar(100);not null"`
	Quantity    int             `gorm:"not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Discount    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (SaleItemModel) TableName() string {
	return "sale_items"
}

// ToDomain converts the persistence model to a domain SaleItem
func (m *SaleItemModel) ToDomain() sales.SaleItem {
	return sales.SaleItem{
		ID:          m.ID,
		SaleID:      m.SaleID,
		ProductID:   m.ProductID,
		ProductName: m.ProductName,
		Quantity:    m.Quantity,
		UnitPrice:   m.UnitPrice,
		Discount:    m.Discount,
		TotalAmount: m.TotalAmount,
	}
}

// FromDomain populates the persistence model from a domain SaleItem
func (m *SaleItemModel) FromDomain(item sales.SaleItem, position int) {
	m.ID = item.ID
	m.SaleID = item.SaleID
	m.Position = position
	m.ProductID = item.ProductID
	m.ProductName = item.ProductName
	m.Quantity = item.Quantity
	m.UnitPrice = item.UnitPrice
	m.Discount = item.Discount
	m.TotalAmount = item.TotalAmount
}
