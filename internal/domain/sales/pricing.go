package sales

import (
	"fmt"
	"sort"

	"github.com/salesapi/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Quantity bounds for a single sale line
const (
	MinItemQuantity = 1
	MaxItemQuantity = 20
)

// ErrInvalidQuantity is returned when a line quantity falls outside [1, 20].
// Match it with errors.Is; the concrete error carries the offending quantity.
var ErrInvalidQuantity = shared.NewDomainError("INVALID_QUANTITY", "Item quantity is out of the allowed range")

// Unit prices carry at most PriceScale decimal places. With tier rates in
// whole percents every derived amount then fits StorageScale exactly, so
// what is returned equals what numeric(18,4) stores.
const (
	PriceScale   = 2
	StorageScale = 4
)

// ErrInvalidUnitPrice is returned when a line unit price is not positive
var ErrInvalidUnitPrice = shared.NewDomainError("INVALID_UNIT_PRICE", "Unit price must be greater than zero")

// ErrUnitPricePrecision is returned for unit prices finer than a cent.
// It shares the INVALID_UNIT_PRICE code.
var ErrUnitPricePrecision = shared.NewDomainError(ErrInvalidUnitPrice.Code,
	fmt.Sprintf("Unit price cannot have more than %d decimal places", PriceScale))

// HasPriceScale reports whether d has no significant digits past PriceScale.
// Trailing zeros do not count: 10.5000 is accepted.
func HasPriceScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(PriceScale))
}

func invalidQuantity(quantity, maxQuantity int) *shared.DomainError {
	if quantity > maxQuantity {
		return shared.NewDomainError(ErrInvalidQuantity.Code,
			fmt.Sprintf("Cannot sell more than %d identical items, got %d", maxQuantity, quantity))
	}
	return shared.NewDomainError(ErrInvalidQuantity.Code,
		fmt.Sprintf("Quantity must be at least %d, got %d", MinItemQuantity, quantity))
}

// DiscountTier grants Rate off the gross line amount once the quantity
// reaches MinQuantity.
type DiscountTier struct {
	MinQuantity int
	Rate        decimal.Decimal
}

// DiscountPolicy maps a line quantity to a discount. Tiers are evaluated
// highest MinQuantity first; a quantity below every tier gets no discount.
type DiscountPolicy struct {
	tiers       []DiscountTier
	maxQuantity int
}

// NewDiscountPolicy builds a policy rejecting quantities above maxQuantity.
// The tiers slice is copied and sorted, callers may pass them in any order.
func NewDiscountPolicy(maxQuantity int, tiers ...DiscountTier) DiscountPolicy {
	sorted := make([]DiscountTier, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MinQuantity > sorted[j].MinQuantity
	})
	return DiscountPolicy{tiers: sorted, maxQuantity: maxQuantity}
}

// DefaultDiscountPolicy is the store-wide rule:
// 10..20 items get 20% off, 4..9 items get 10% off, 1..3 items pay full price.
func DefaultDiscountPolicy() DiscountPolicy {
	return NewDiscountPolicy(MaxItemQuantity,
		DiscountTier{MinQuantity: 10, Rate: decimal.NewFromFloat(0.20)},
		DiscountTier{MinQuantity: 4, Rate: decimal.NewFromFloat(0.10)},
	)
}

// MaxQuantity returns the largest quantity the policy accepts
func (p DiscountPolicy) MaxQuantity() int {
	return p.maxQuantity
}

// Tiers returns a copy of the tiers, highest first
func (p DiscountPolicy) Tiers() []DiscountTier {
	out := make([]DiscountTier, len(p.tiers))
	copy(out, p.tiers)
	return out
}

// Discount returns the discount amount for quantity units at unitPrice.
func (p DiscountPolicy) Discount(quantity int, unitPrice decimal.Decimal) (decimal.Decimal, error) {
	if quantity < MinItemQuantity || quantity > p.maxQuantity {
		return decimal.Zero, invalidQuantity(quantity, p.maxQuantity)
	}

	gross := GrossAmount(quantity, unitPrice)
	for _, tier := range p.tiers {
		if quantity >= tier.MinQuantity {
			return gross.Mul(tier.Rate), nil
		}
	}
	return decimal.Zero, nil
}

// GrossAmount is unitPrice * quantity
func GrossAmount(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// LineTotal is the net amount of a line: unitPrice * quantity - discount
func LineTotal(quantity int, unitPrice, discount decimal.Decimal) decimal.Decimal {
	return GrossAmount(quantity, unitPrice).Sub(discount)
}

// PriceItems computes discount and total for every item and the sum of
// the line totals. It returns a new slice; items is not modified. Either
// every line is priced or an error is returned and nothing is produced.
func PriceItems(items []SaleItem, policy DiscountPolicy) ([]SaleItem, decimal.Decimal, error) {
	priced := make([]SaleItem, len(items))
	total := decimal.Zero

	for i, item := range items {
		if !item.UnitPrice.IsPositive() {
			return nil, decimal.Zero, ErrInvalidUnitPrice
		}
		if !HasPriceScale(item.UnitPrice) {
			return nil, decimal.Zero, ErrUnitPricePrecision
		}
		discount, err := policy.Discount(item.Quantity, item.UnitPrice)
		if err != nil {
			return nil, decimal.Zero, err
		}
		item.Discount = discount
		item.TotalAmount = LineTotal(item.Quantity, item.UnitPrice, discount)
		priced[i] = item
		total = total.Add(item.TotalAmount)
	}

	return priced, total, nil
}
