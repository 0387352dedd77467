package balance

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func orderRef(id int64) *int64 { return &id }

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

const (
	productA int64 = 1
	productB int64 = 2
)

func samplePrices() PriceBook {
	return NewPriceBook(
		PriceEntry{ProductID: productA, Price: dec("100")},
		PriceEntry{ProductID: productB, Price: dec("50")},
	)
}

func sampleOrder(status Status) OrderInput {
	return OrderInput{
		ID:         10,
		CustomerID: 100,
		Status:     status,
		Items: []LineItem{
			{ProductID: productA, Quantity: 2},
			{ProductID: productB, Quantity: 1},
		},
		Advance: decimal.Zero,
	}
}

func TestPendingOrderWithoutCollections(t *testing.T) {
	b := ResolveOrder(sampleOrder(StatusPending), samplePrices(), Aggregate(nil))

	assertDec(t, "250", b.Total)
	assertDec(t, "250", b.Pending)
	assertDec(t, "0", b.Udhaar)
	assert.Equal(t, BucketPending, b.Bucket())
}

func TestDeliveredOrderWithCollection(t *testing.T) {
	payments := []Payment{{ID: 1, CustomerID: 100, OrderID: orderRef(10), Amount: dec("100")}}

	b := ResolveOrder(sampleOrder(StatusDelivered), samplePrices(), Aggregate(payments))

	assertDec(t, "150", b.Udhaar)
	assertDec(t, "0", b.Pending)
	assertDec(t, "100", b.Collected)
	assert.Equal(t, BucketUdhaar, b.Bucket())
}

func TestOvercollectionClampsToZero(t *testing.T) {
	b := ResolveAmounts(StatusDelivered, dec("200"), dec("50"), dec("200"))

	assertDec(t, "0", b.Udhaar)
	assertDec(t, "0", b.Outstanding)
	assert.Equal(t, BucketHistory, b.Bucket())
}

func TestQuotationConversionSeed(t *testing.T) {
	total := QuotationTotal(dec("75"), 4)
	assertDec(t, "300", total)
	require.True(t, AdvanceWithinTotal(dec("100"), total))

	seed := ConversionSeed(total, dec("100"))
	assertDec(t, "200", seed.Pending)
	assertDec(t, "0", seed.Collected)
	assert.Equal(t, StatusPending, seed.Status)

	assert.False(t, AdvanceWithinTotal(dec("301"), total))
	assert.False(t, AdvanceWithinTotal(dec("-1"), total))
	assertDec(t, "0", QuotationTotal(dec("75"), 0))
}

func TestCustomerAggregateSumsDeliveredUdhaar(t *testing.T) {
	balances := []OrderBalance{
		withIDs(ResolveAmounts(StatusDelivered, dec("150"), decimal.Zero, decimal.Zero), 1, 7),
		withIDs(ResolveAmounts(StatusDelivered, dec("75"), decimal.Zero, decimal.Zero), 2, 7),
		withIDs(ResolveAmounts(StatusDelivered, dec("80"), decimal.Zero, dec("80")), 3, 7),
	}

	summary := SummarizeCustomers(balances, nil)

	require.Len(t, summary, 1)
	assertDec(t, "225", summary[0].Udhaar)
	assertDec(t, "0", summary[0].Pending)
	assert.Equal(t, 2, summary[0].Orders)
	assert.Nil(t, summary[0].EarliestDue)
}

func TestUnknownProductContributesZero(t *testing.T) {
	items := []LineItem{{ProductID: 99, Quantity: 5}, {ProductID: productA, Quantity: 1}, {ProductID: 99, Quantity: 1}}

	v := ValueOrder(items, samplePrices())

	assertDec(t, "100", v.Total)
	assert.Equal(t, []int64{99}, v.Unknown)
	require.Len(t, v.Lines, 3)
	assert.False(t, v.Lines[0].Known)
	assertDec(t, "0", v.Lines[0].Amount)
}

func withIDs(b OrderBalance, orderID, customerID int64) OrderBalance {
	b.OrderID = orderID
	b.CustomerID = customerID
	return b
}

func TestValueOrderEdgeCases(t *testing.T) {
	tests := []struct {
		name  string
		items []LineItem
		want  string
	}{
		{name: "empty", items: nil, want: "0"},
		{name: "zero quantity", items: []LineItem{{ProductID: productA, Quantity: 0}}, want: "0"},
		{name: "negative quantity", items: []LineItem{{ProductID: productA, Quantity: -3}}, want: "0"},
		{name: "mixed", items: []LineItem{{ProductID: productA, Quantity: -1}, {ProductID: productB, Quantity: 3}}, want: "150"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertDec(t, tt.want, OrderTotal(tt.items, samplePrices()))
		})
	}
}

func TestNegativePriceReadsAsZero(t *testing.T) {
	prices := NewPriceBook(PriceEntry{ProductID: 5, Price: dec("-10")})
	assertDec(t, "0", OrderTotal([]LineItem{{ProductID: 5, Quantity: 2}}, prices))
}

func TestValuationMonotonic(t *testing.T) {
	for qty := int64(0); qty < 20; qty++ {
		for price := int64(0); price < 20; price++ {
			base := OrderTotal([]LineItem{{ProductID: 1, Quantity: qty}}, NewPriceBook(PriceEntry{ProductID: 1, Price: decimal.NewFromInt(price)}))
			moreQty := OrderTotal([]LineItem{{ProductID: 1, Quantity: qty + 1}}, NewPriceBook(PriceEntry{ProductID: 1, Price: decimal.NewFromInt(price)}))
			morePrice := OrderTotal([]LineItem{{ProductID: 1, Quantity: qty}}, NewPriceBook(PriceEntry{ProductID: 1, Price: decimal.NewFromInt(price + 1)}))
			assert.True(t, moreQty.GreaterThanOrEqual(base))
			assert.True(t, morePrice.GreaterThanOrEqual(base))
		}
	}
}

func TestOutstandingNeverNegativeAndIdempotent(t *testing.T) {
	values := []string{"0", "0.01", "1", "49.99", "100", "250", "1000"}
	for _, total := range values {
		for _, advance := range values {
			for _, collected := range values {
				first := Outstanding(dec(total), dec(advance), dec(collected))
				second := Outstanding(dec(total), dec(advance), dec(collected))
				assert.False(t, first.IsNegative())
				assert.True(t, first.Equal(second))
			}
		}
	}
	assertDec(t, "100", Outstanding(dec("100"), dec("-5"), dec("-5")))
}

func TestAggregateGroupings(t *testing.T) {
	payments := []Payment{
		{ID: 1, CustomerID: 1, OrderID: orderRef(10), Amount: dec("40")},
		{ID: 2, CustomerID: 1, OrderID: orderRef(10), Amount: dec("10")},
		{ID: 3, CustomerID: 1, Amount: dec("25")},
		{ID: 4, CustomerID: 2, OrderID: orderRef(20), Amount: dec("5")},
		{ID: 5, CustomerID: 2, Amount: dec("-7")},
	}
	l := Aggregate(payments)

	assertDec(t, "50", l.ForOrder(10))
	assertDec(t, "5", l.ForOrder(20))
	assertDec(t, "0", l.ForOrder(30))
	assertDec(t, "75", l.ForCustomer(1))
	assertDec(t, "5", l.ForCustomer(2))
	assertDec(t, "0", l.ForCustomer(3))
}

func TestSummarizeEarliestDueAndOrdering(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC) }
	balances := []OrderBalance{
		withIDs(ResolveAmounts(StatusDelivered, dec("100"), decimal.Zero, decimal.Zero), 1, 1),
		withIDs(ResolveAmounts(StatusPending, dec("60"), dec("10"), decimal.Zero), 2, 2),
		withIDs(ResolveAmounts(StatusDelivered, dec("30"), decimal.Zero, decimal.Zero), 3, 3),
		withIDs(ResolveAmounts(StatusDelivered, dec("30"), dec("30"), decimal.Zero), 4, 2),
	}
	payments := []Payment{
		{CustomerID: 1, OrderID: orderRef(1), Amount: dec("1"), DueDate: day(20)},
		{CustomerID: 1, Amount: dec("1"), DueDate: day(15)},
		{CustomerID: 2, OrderID: orderRef(4), Amount: dec("1"), DueDate: day(1)},
		{CustomerID: 2, OrderID: orderRef(2), Amount: dec("1"), DueDate: day(10)},
		{CustomerID: 9, Amount: dec("1"), DueDate: day(2)},
	}

	summary := SummarizeCustomers(balances, payments)

	require.Len(t, summary, 3)
	assert.Equal(t, int64(2), summary[0].CustomerID)
	require.NotNil(t, summary[0].EarliestDue)
	assert.Equal(t, day(10), *summary[0].EarliestDue)
	assertDec(t, "50", summary[0].Pending)
	assertDec(t, "0", summary[0].Udhaar)

	assert.Equal(t, int64(1), summary[1].CustomerID)
	assert.Equal(t, day(15), *summary[1].EarliestDue)
	assertDec(t, "100", summary[1].Total())

	assert.Equal(t, int64(3), summary[2].CustomerID)
	assert.Nil(t, summary[2].EarliestDue)
}

func TestClampInput(t *testing.T) {
	assert.Equal(t, int64(3), ClampQuantity(" 3 "))
	assert.Equal(t, int64(2), ClampQuantity("2.9"))
	assert.Equal(t, int64(0), ClampQuantity("-4"))
	assert.Equal(t, int64(0), ClampQuantity("abc"))
	assert.Equal(t, int64(0), ClampQuantity(""))
	assert.Equal(t, int64(math.MaxInt64), ClampQuantity("9223372036854775807"))
	assert.Equal(t, int64(0), ClampQuantity("9223372036854775808"))
	assert.Equal(t, int64(0), ClampQuantity("1e19"))
	assert.Equal(t, int64(0), ClampQuantity("1e20"))

	assertDec(t, "12.5", ClampAmount("12.50"))
	assertDec(t, "0", ClampAmount("-1"))
	assertDec(t, "0", ClampAmount("1,000"))
}

func TestAmountInWords(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "Rupees Zero Only"},
		{"250", "Rupees Two Hundred Fifty Only"},
		{"1234.50", "Rupees One Thousand Two Hundred Thirty Four and Fifty Paise Only"},
		{"120000", "Rupees One Lakh Twenty Thousand Only"},
		{"25000019", "Rupees Two Crore Fifty Lakh Nineteen Only"},
		{"0.05", "Rupees Zero and Five Paise Only"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, AmountInWords(dec(tt.in)))
		})
	}
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "₹12,34,567.50", FormatMoney("₹", dec("1234567.5")))
	assert.Equal(t, "₹12,34,56,789.50", FormatMoney("₹", dec("123456789.5")))
	assert.Equal(t, "₹0.00", FormatMoney("₹", decimal.Zero))
	assert.Equal(t, "₹1,000.00", FormatMoney("₹", dec("999.999")))
	assert.Equal(t, "-₹12.30", FormatMoney("₹", dec("-12.3")))
}
