package sales

import (
	"time"

	"github.com/google/uuid"
	"github.com/salesapi/backend/internal/domain/sales"
	"github.com/shopspring/decimal"
)

// SaleItemRequest is one requested line of a create or update request
type SaleItemRequest struct {
	ProductID   uuid.UUID       `json:"productId" validate:"required"`
	ProductName string          `json:"productName" validate:"notblank,max=100"`
	Quantity    int             `json:"quantity" validate:"gte=1,lte=20"`
	UnitPrice   decimal.Decimal `json:"unitPrice" validate:"gt=0,money"`
}

// CreateSaleRequest represents a request to create a sale
type CreateSaleRequest struct {
	CustomerID   uuid.UUID         `json:"customerId" validate:"required"`
	CustomerName string            `json:"customerName" validate:"notblank,min=3,max=100"`
	BranchID     uuid.UUID         `json:"branchId" validate:"required"`
	BranchName   string            `json:"branchName" validate:"notblank,min=3,max=100"`
	Items        []SaleItemRequest `json:"items" validate:"min=1,dive"`
}

// UpdateSaleRequest replaces a sale's details and its whole line set.
// Version, when set, must match the stored version.
type UpdateSaleRequest struct {
	CustomerID   uuid.UUID         `json:"customerId" validate:"required"`
	CustomerName string            `json:"customerName" validate:"notblank,min=3,max=100"`
	BranchID     uuid.UUID         `json:"branchId" validate:"required"`
	BranchName   string            `json:"branchName" validate:"notblank,min=3,max=100"`
	Items        []SaleItemRequest `json:"items" validate:"min=1,dive"`
	Version      *int              `json:"version" validate:"omitempty,gte=1"`
}

// ListSalesQuery holds the raw list query parameters.
// Dates accept RFC 3339 timestamps or plain yyyy-MM-dd dates.
type ListSalesQuery struct {
	StartDate  string `form:"startDate"`
	EndDate    string `form:"endDate"`
	CustomerID string `form:"customerId" validate:"omitempty,uuid"`
	BranchID   string `form:"branchId" validate:"omitempty,uuid"`
	Page       *int   `form:"page" validate:"omitempty,gt=0"`
	PageSize   *int   `form:"pageSize" validate:"omitempty,gte=1,lte=100"`
}

// SaleItemResponse represents a sale line in API responses
type SaleItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Discount    decimal.Decimal `json:"discount"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

// SaleResponse represents a sale in API responses
type SaleResponse struct {
	ID           uuid.UUID          `json:"id"`
	SaleNumber   string             `json:"saleNumber"`
	SaleDate     time.Time          `json:"saleDate"`
	CustomerID   uuid.UUID          `json:"customerId"`
	CustomerName string             `json:"customerName"`
	BranchID     uuid.UUID          `json:"branchId"`
	BranchName   string             `json:"branchName"`
	TotalAmount  decimal.Decimal    `json:"totalAmount"`
	IsCancelled  bool               `json:"isCancelled"`
	CancelledAt  *time.Time         `json:"cancelledAt,omitempty"`
	Items        []SaleItemResponse `json:"items"`
	Version      int                `json:"version"`
	CreatedAt    time.Time          `json:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt"`
}

// IdempotencyKey is a client-supplied Idempotency-Key together with the
// user that sent it. Keys of different owners never collide.
type IdempotencyKey struct {
	Owner string
	Value string
}

// CreateSaleResult is the outcome of Create. Created is false when an
// Idempotency-Key replay returned the sale made by an earlier request.
type CreateSaleResult struct {
	Sale    SaleResponse
	Created bool
}

// ToSaleResponse converts a domain sale into its API representation
func ToSaleResponse(sale *sales.Sale) SaleResponse {
	items := make([]SaleItemResponse, len(sale.Items))
	for i, item := range sale.Items {
		items[i] = SaleItemResponse{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Discount:    item.Discount,
			TotalAmount: item.TotalAmount,
		}
	}

	return SaleResponse{
		ID:           sale.ID,
		SaleNumber:   sale.SaleNumber,
		SaleDate:     sale.SaleDate,
		CustomerID:   sale.CustomerID,
		CustomerName: sale.CustomerName,
		BranchID:     sale.BranchID,
		BranchName:   sale.BranchName,
		TotalAmount:  sale.TotalAmount,
		IsCancelled:  sale.IsCancelled,
		CancelledAt:  sale.CancelledAt,
		Items:        items,
		Version:      sale.Version,
		CreatedAt:    sale.CreatedAt,
		UpdatedAt:    sale.UpdatedAt,
	}
}

// ToSaleResponses converts a page of domain sales
func ToSaleResponses(list []sales.Sale) []SaleResponse {
	out := make([]SaleResponse, len(list))
	for i := range list {
		out[i] = ToSaleResponse(&list[i])
	}
	return out
}

func toDetails(customerID uuid.UUID, customerName string, branchID uuid.UUID, branchName string) sales.SaleDetails {
	return sales.SaleDetails{
		CustomerID:   customerID,
		CustomerName: customerName,
		BranchID:     branchID,
		BranchName:   branchName,
	}
}

func toItemInputs(items []SaleItemRequest) []sales.ItemInput {
	inputs := make([]sales.ItemInput, len(items))
	for i, item := range items {
		inputs[i] = sales.ItemInput{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		}
	}
	return inputs
}
