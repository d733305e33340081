package sales

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemInput is one requested line of a create or update request
type ItemInput struct {
	ProductID   uuid.UUID
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
}

// ReconcileItems merges the requested lines into the current ones, keyed by
// product.
//
// A current line whose product is requested keeps its ID and SaleID and takes
// the requested name, quantity and price. A current line whose product is not
// requested is dropped. Requested products without a current line become new
// lines with an ID from newID. When a product is requested more than once the
// last occurrence wins; new lines follow the order in which their product
// first appeared in the request.
//
// Neither input is modified. Discount and TotalAmount of the result are not
// computed here, see PriceItems.
func ReconcileItems(saleID uuid.UUID, current []SaleItem, requested []ItemInput, newID func() uuid.UUID) []SaleItem {
	latest := make(map[uuid.UUID]ItemInput, len(requested))
	order := make([]uuid.UUID, 0, len(requested))
	for _, r := range requested {
		if _, seen := latest[r.ProductID]; !seen {
			order = append(order, r.ProductID)
		}
		latest[r.ProductID] = r
	}

	result := make([]SaleItem, 0, len(latest))

	for _, item := range current {
		r, ok := latest[item.ProductID]
		if !ok {
			continue
		}
		item.ProductName = r.ProductName
		item.Quantity = r.Quantity
		item.UnitPrice = r.UnitPrice
		result = append(result, item)
		delete(latest, item.ProductID)
	}

	for _, productID := range order {
		r, ok := latest[productID]
		if !ok {
			continue
		}
		result = append(result, SaleItem{
			ID:          newID(),
			SaleID:      saleID,
			ProductID:   r.ProductID,
			ProductName: r.ProductName,
			Quantity:    r.Quantity,
			UnitPrice:   r.UnitPrice,
		})
	}

	return result
}

// ItemChanges summarises what a reconciliation did to a sale's lines
type ItemChanges struct {
	Added   []uuid.UUID `json:"added,omitempty"`
	Updated []uuid.UUID `json:"updated,omitempty"`
	Removed []uuid.UUID `json:"removed,omitempty"`
}

// DiffItems compares item identities before and after a reconciliation.
// A kept line counts as updated only if one of its inputs changed.
func DiffItems(before, after []SaleItem) ItemChanges {
	var changes ItemChanges

	prev := make(map[uuid.UUID]SaleItem, len(before))
	for _, item := range before {
		prev[item.ID] = item
	}

	for _, item := range after {
		old, ok := prev[item.ID]
		if !ok {
			changes.Added = append(changes.Added, item.ID)
			continue
		}
		if old.ProductName != item.ProductName || old.Quantity != item.Quantity || !old.UnitPrice.Equal(item.UnitPrice) {
			changes.Updated = append(changes.Updated, item.ID)
		}
		delete(prev, item.ID)
	}

	for _, item := range before {
		if _, stillThere := prev[item.ID]; stillThere {
			changes.Removed = append(changes.Removed, item.ID)
		}
	}

	return changes
}
