package sales

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/salesapi/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 9, 22, 30, 0, 0, time.FixedZone("BRT", -3*3600))

func newTestEngine() *Engine {
	return NewEngine(
		WithClock(func() time.Time { return fixedNow }),
		WithSaleNumberGenerator(NewSaleNumberGeneratorWithSuffix(func() string { return "AB12CD" })),
	)
}

func testDetails() SaleDetails {
	return SaleDetails{
		CustomerID:   uuid.New(),
		CustomerName: "Jane Customer",
		BranchID:     uuid.New(),
		BranchName:   "Downtown",
	}
}

func createSale(t *testing.T, e *Engine, items ...ItemInput) *Sale {
	t.Helper()
	sale, err := e.Create(testDetails(), items)
	require.NoError(t, err)
	return sale
}

func assertTotalsConsistent(t *testing.T, sale *Sale) {
	t.Helper()
	sum := dec("0")
	for _, item := range sale.Items {
		expected := LineTotal(item.Quantity, item.UnitPrice, item.Discount)
		assert.True(t, expected.Equal(item.TotalAmount), "line %s total drifted", item.ProductName)
		sum = sum.Add(item.TotalAmount)
	}
	assert.True(t, sum.Equal(sale.TotalAmount), "sale total %s != sum %s", sale.TotalAmount, sum)
}

// ============================================
// Create Tests
// ============================================

func TestEngine_Create(t *testing.T) {
	tests := []struct {
		name      string
		quantity  int
		discount  string
		lineTotal string
		saleTotal string
	}{
		{"no discount below four items", 2, "0", "20.00", "20.00"},
		{"ten percent from four items", 5, "5.00", "45.00", "45.00"},
		{"twenty percent from ten items", 15, "30.00", "120.00", "120.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sale := createSale(t, newTestEngine(), ItemInput{
				ProductID: uuid.New(), ProductName: "Beer", Quantity: tt.quantity, UnitPrice: dec("10.00"),
			})

			require.Len(t, sale.Items, 1)
			assertDecimal(t, tt.discount, sale.Items[0].Discount)
			assertDecimal(t, tt.lineTotal, sale.Items[0].TotalAmount)
			assertDecimal(t, tt.saleTotal, sale.TotalAmount)
			assertTotalsConsistent(t, sale)
		})
	}
}

func TestEngine_Create_AssignsIdentity(t *testing.T) {
	sale := createSale(t, newTestEngine(), ItemInput{ProductID: uuid.New(), ProductName: "Beer", Quantity: 1, UnitPrice: dec("1")})

	assert.NotEqual(t, uuid.Nil, sale.ID)
	assert.Equal(t, "SALE-20240310-AB12CD", sale.SaleNumber)
	assert.True(t, IsValidSaleNumber(sale.SaleNumber))
	assert.True(t, sale.SaleDate.Equal(fixedNow))
	assert.Equal(t, time.UTC, sale.SaleDate.Location())
	assert.Equal(t, 1, sale.Version)
	assert.False(t, sale.IsCancelled)
	for _, item := range sale.Items {
		assert.Equal(t, sale.ID, item.SaleID)
	}
}

func TestEngine_Create_RaisesEvent(t *testing.T) {
	sale := createSale(t, newTestEngine(), ItemInput{ProductID: uuid.New(), ProductName: "Beer", Quantity: 4, UnitPrice: dec("2.50")})

	events := sale.GetDomainEvents()
	require.Len(t, events, 1)
	created, ok := events[0].(*SaleCreatedEvent)
	require.True(t, ok)
	assert.Equal(t, EventTypeSaleCreated, created.EventType())
	assert.Equal(t, sale.ID, created.AggregateID())
	assert.Equal(t, sale.SaleNumber, created.SaleNumber)
	assert.Equal(t, 1, created.ItemCount)
	assertDecimal(t, "9", created.TotalAmount)
}

func TestEngine_Create_RejectsQuantityAboveLimit(t *testing.T) {
	sale, err := newTestEngine().Create(testDetails(), []ItemInput{
		{ProductID: uuid.New(), ProductName: "Beer", Quantity: 2, UnitPrice: dec("10")},
		{ProductID: uuid.New(), ProductName: "Wine", Quantity: 21, UnitPrice: dec("10")},
	})

	assert.Nil(t, sale)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestEngine_Create_RequiresItems(t *testing.T) {
	_, err := newTestEngine().Create(testDetails(), nil)
	assert.ErrorIs(t, err, ErrNoItems)
}

func TestEngine_Create_RequiresDetails(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *SaleDetails)
		code   string
	}{
		{"customer id", func(d *SaleDetails) { d.CustomerID = uuid.Nil }, "INVALID_CUSTOMER"},
		{"customer name", func(d *SaleDetails) { d.CustomerName = "" }, "INVALID_CUSTOMER_NAME"},
		{"branch id", func(d *SaleDetails) { d.BranchID = uuid.Nil }, "INVALID_BRANCH"},
		{"branch name", func(d *SaleDetails) { d.BranchName = "" }, "INVALID_BRANCH_NAME"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			details := testDetails()
			tt.mutate(&details)

			_, err := newTestEngine().Create(details, []ItemInput{{ProductID: uuid.New(), Quantity: 1, UnitPrice: dec("1")}})
			var domainErr *shared.DomainError
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, tt.code, domainErr.Code)
		})
	}
}

// ============================================
// Update Tests
// ============================================

func TestEngine_Update_UpdatesExistingAndAddsNew(t *testing.T) {
	e := newTestEngine()
	productA, productB := uuid.New(), uuid.New()
	sale := createSale(t, e, ItemInput{ProductID: productA, ProductName: "A", Quantity: 5, UnitPrice: dec("10")})
	itemX := sale.Items[0].ID
	sale.ClearDomainEvents()

	err := e.Update(sale, sale.Details(), []ItemInput{
		{ProductID: productA, ProductName: "A", Quantity: 6, UnitPrice: dec("10")},
		{ProductID: productB, ProductName: "B", Quantity: 2, UnitPrice: dec("10")},
	})
	require.NoError(t, err)

	require.Len(t, sale.Items, 2)
	a, ok := sale.FindItemByProduct(productA)
	require.True(t, ok)
	assert.Equal(t, itemX, a.ID)
	assert.Equal(t, 6, a.Quantity)
	assertDecimal(t, "6", a.Discount)
	assertDecimal(t, "54", a.TotalAmount)

	b, ok := sale.FindItemByProduct(productB)
	require.True(t, ok)
	assert.NotEqual(t, itemX, b.ID)
	assertDecimal(t, "20", b.TotalAmount)

	assertDecimal(t, "74", sale.TotalAmount)
	assertTotalsConsistent(t, sale)

	events := sale.GetDomainEvents()
	require.Len(t, events, 1)
	modified, ok := events[0].(*SaleModifiedEvent)
	require.True(t, ok)
	assert.Equal(t, []uuid.UUID{b.ID}, modified.Changes.Added)
	assert.Equal(t, []uuid.UUID{itemX}, modified.Changes.Updated)
	assert.Empty(t, modified.Changes.Removed)
}

func TestEngine_Update_DropsMissingLines(t *testing.T) {
	e := newTestEngine()
	productA, productB := uuid.New(), uuid.New()
	sale := createSale(t, e,
		ItemInput{ProductID: productA, ProductName: "A", Quantity: 2, UnitPrice: dec("10")},
		ItemInput{ProductID: productB, ProductName: "B", Quantity: 10, UnitPrice: dec("5")},
	)
	assertDecimal(t, "60", sale.TotalAmount)

	err := e.Update(sale, sale.Details(), []ItemInput{
		{ProductID: productA, ProductName: "A", Quantity: 2, UnitPrice: dec("10")},
	})
	require.NoError(t, err)

	require.Len(t, sale.Items, 1)
	assert.Equal(t, productA, sale.Items[0].ProductID)
	assertDecimal(t, "20", sale.TotalAmount)
}

func TestEngine_Update_IsIdempotent(t *testing.T) {
	e := newTestEngine()
	sale := createSale(t, e,
		ItemInput{ProductID: uuid.New(), ProductName: "A", Quantity: 7, UnitPrice: dec("3.30")},
		ItemInput{ProductID: uuid.New(), ProductName: "B", Quantity: 11, UnitPrice: dec("1.99")},
	)
	ids := []uuid.UUID{sale.Items[0].ID, sale.Items[1].ID}
	total := sale.TotalAmount

	requested := make([]ItemInput, 0, len(sale.Items))
	for _, item := range sale.Items {
		requested = append(requested, ItemInput{ProductID: item.ProductID, ProductName: item.ProductName, Quantity: item.Quantity, UnitPrice: item.UnitPrice})
	}

	require.NoError(t, e.Update(sale, sale.Details(), requested))

	assert.Equal(t, ids, []uuid.UUID{sale.Items[0].ID, sale.Items[1].ID})
	assert.True(t, total.Equal(sale.TotalAmount))
}

func TestEngine_Update_RejectedUpdateLeavesSaleUntouched(t *testing.T) {
	e := newTestEngine()
	productA := uuid.New()
	sale := createSale(t, e, ItemInput{ProductID: productA, ProductName: "A", Quantity: 5, UnitPrice: dec("10")})
	before := *sale
	beforeItems := append([]SaleItem(nil), sale.Items...)

	details := sale.Details()
	details.CustomerName = "Someone Else"
	err := e.Update(sale, details, []ItemInput{
		{ProductID: productA, ProductName: "A", Quantity: 6, UnitPrice: dec("10")},
		{ProductID: uuid.New(), ProductName: "B", Quantity: 21, UnitPrice: dec("10")},
	})

	assert.ErrorIs(t, err, ErrInvalidQuantity)
	assert.Equal(t, before.CustomerName, sale.CustomerName)
	assert.Equal(t, beforeItems, sale.Items)
	assert.True(t, before.TotalAmount.Equal(sale.TotalAmount))
}

func TestEngine_Update_KeepsImmutableFields(t *testing.T) {
	e := newTestEngine()
	sale := createSale(t, e, ItemInput{ProductID: uuid.New(), ProductName: "A", Quantity: 1, UnitPrice: dec("1")})
	id, number, date := sale.ID, sale.SaleNumber, sale.SaleDate

	later := NewEngine(WithClock(func() time.Time { return fixedNow.Add(48 * time.Hour) }))
	require.NoError(t, later.Update(sale, testDetails(), []ItemInput{{ProductID: uuid.New(), ProductName: "B", Quantity: 3, UnitPrice: dec("2")}}))

	assert.Equal(t, id, sale.ID)
	assert.Equal(t, number, sale.SaleNumber)
	assert.Equal(t, date, sale.SaleDate)
}

func TestEngine_Update_CancelledSale(t *testing.T) {
	e := newTestEngine()
	sale := createSale(t, e, ItemInput{ProductID: uuid.New(), ProductName: "A", Quantity: 1, UnitPrice: dec("1")})
	require.NoError(t, sale.Cancel(fixedNow))

	err := e.Update(sale, sale.Details(), []ItemInput{{ProductID: uuid.New(), ProductName: "B", Quantity: 1, UnitPrice: dec("1")}})
	assert.Equal(t, ErrSaleCancelled, err)
}

// ============================================
// Sale Tests
// ============================================

func TestSale_Cancel(t *testing.T) {
	sale := createSale(t, newTestEngine(), ItemInput{ProductID: uuid.New(), ProductName: "A", Quantity: 1, UnitPrice: dec("1")})
	sale.ClearDomainEvents()

	require.NoError(t, sale.Cancel(fixedNow))
	assert.True(t, sale.IsCancelled)
	require.NotNil(t, sale.CancelledAt)

	events := sale.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventTypeSaleCancelled, events[0].EventType())

	assert.Equal(t, ErrAlreadyCancelled, sale.Cancel(fixedNow))
}

func TestSale_CheckVersion(t *testing.T) {
	sale := createSale(t, newTestEngine(), ItemInput{ProductID: uuid.New(), ProductName: "A", Quantity: 1, UnitPrice: dec("1")})
	one, two := 1, 2

	assert.NoError(t, sale.CheckVersion(nil))
	assert.NoError(t, sale.CheckVersion(&one))
	assert.ErrorIs(t, sale.CheckVersion(&two), ErrVersionMismatch)
}

func TestSale_TotalDiscount(t *testing.T) {
	sale := createSale(t, newTestEngine(),
		ItemInput{ProductID: uuid.New(), ProductName: "A", Quantity: 5, UnitPrice: dec("10")},
		ItemInput{ProductID: uuid.New(), ProductName: "B", Quantity: 10, UnitPrice: dec("10")},
	)
	assertDecimal(t, "25", sale.TotalDiscount())
	assert.Equal(t, 2, sale.ItemCount())
}
