package sales

import (
	"time"

	"github.com/google/uuid"
	"github.com/salesapi/backend/internal/domain/shared"
)

// Engine creates and updates sales: it reconciles requested lines,
// prices every line and recomputes the sale total. It holds no mutable
// state and is safe for concurrent use.
type Engine struct {
	policy  DiscountPolicy
	numbers *SaleNumberGenerator
	newID   func() uuid.UUID
	now     func() time.Time
}

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithDiscountPolicy replaces the default tier policy
func WithDiscountPolicy(p DiscountPolicy) EngineOption {
	return func(e *Engine) { e.policy = p }
}

// WithSaleNumberGenerator replaces the sale number generator
func WithSaleNumberGenerator(g *SaleNumberGenerator) EngineOption {
	return func(e *Engine) { e.numbers = g }
}

// WithIDGenerator replaces uuid.New as the source of sale and line IDs
func WithIDGenerator(f func() uuid.UUID) EngineOption {
	return func(e *Engine) { e.newID = f }
}

// WithClock replaces time.Now
func WithClock(f func() time.Time) EngineOption {
	return func(e *Engine) { e.now = f }
}

// NewEngine creates an Engine with the default policy, uuid IDs and the wall clock
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		policy:  DefaultDiscountPolicy(),
		numbers: NewSaleNumberGenerator(),
		newID:   uuid.New,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the discount policy in use
func (e *Engine) Policy() DiscountPolicy {
	return e.policy
}

// Create builds a new priced sale. The returned sale carries a
// SaleCreated event.
func (e *Engine) Create(details SaleDetails, items []ItemInput) (*Sale, error) {
	if err := validateDetails(details); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNoItems
	}

	now := e.now()
	saleID := e.newID()

	priced, total, err := PriceItems(ReconcileItems(saleID, nil, items, e.newID), e.policy)
	if err != nil {
		return nil, err
	}

	root := shared.NewBaseAggregateRoot(now)
	root.ID = saleID

	sale := &Sale{
		BaseAggregateRoot: root,
		SaleNumber:        e.numbers.Generate(now),
		SaleDate:          now.UTC(),
		CustomerID:        details.CustomerID,
		CustomerName:      details.CustomerName,
		BranchID:          details.BranchID,
		BranchName:        details.BranchName,
		TotalAmount:       total,
		Items:             priced,
	}

	sale.AddDomainEvent(NewSaleCreatedEvent(sale, now))

	return sale, nil
}

// Update replaces the sale's details and line set. Lines are reconciled by
// product, then every line is repriced and the total recomputed. On error
// the sale is left untouched. On success it carries a SaleModified event.
func (e *Engine) Update(sale *Sale, details SaleDetails, items []ItemInput) error {
	if sale.IsCancelled {
		return ErrSaleCancelled
	}
	if err := validateDetails(details); err != nil {
		return err
	}
	if len(items) == 0 {
		return ErrNoItems
	}

	reconciled := ReconcileItems(sale.ID, sale.Items, items, e.newID)
	priced, total, err := PriceItems(reconciled, e.policy)
	if err != nil {
		return err
	}

	now := e.now()
	changes := DiffItems(sale.Items, priced)

	sale.CustomerID = details.CustomerID
	sale.CustomerName = details.CustomerName
	sale.BranchID = details.BranchID
	sale.BranchName = details.BranchName
	sale.Items = priced
	sale.TotalAmount = total
	sale.UpdatedAt = now

	sale.AddDomainEvent(NewSaleModifiedEvent(sale, changes, now))

	return nil
}

// Now returns the engine's current time
func (e *Engine) Now() time.Time {
	return e.now()
}

func validateDetails(d SaleDetails) error {
	if d.CustomerID == uuid.Nil {
		return shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if d.CustomerName == "" {
		return shared.NewDomainError("INVALID_CUSTOMER_NAME", "Customer name cannot be empty")
	}
	if d.BranchID == uuid.Nil {
		return shared.NewDomainError("INVALID_BRANCH", "Branch ID cannot be empty")
	}
	if d.BranchName == "" {
		return shared.NewDomainError("INVALID_BRANCH_NAME", "Branch name cannot be empty")
	}
	return nil
}
