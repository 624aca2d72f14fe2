package service

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// MoneyPlaces is the precision of every derived monetary amount.
const MoneyPlaces = 2

type PricedItem struct {
	Quantity int
	Price    decimal.Decimal
}

type Totals struct {
	LineSubtotals []decimal.Decimal
	SubTotal      decimal.Decimal
	TaxAmount     decimal.Decimal
	GrandTotal    decimal.Decimal
}

// CalculateTotals is pure. Prices must be whole cents, so SubTotal, the
// exact sum of price*quantity, is too. TaxAmount is SubTotal*taxRate/100
// rounded half-up to cents, and GrandTotal is their sum.
func CalculateTotals(items []PricedItem, taxRate decimal.Decimal) (Totals, error) {
	if taxRate.IsNegative() {
		return Totals{}, &InvalidLineItemError{Index: -1, Reason: "tax rate must not be negative"}
	}

	t := Totals{LineSubtotals: make([]decimal.Decimal, len(items))}
	for i, item := range items {
		if item.Quantity <= 0 {
			return Totals{}, &InvalidLineItemError{Index: i, Reason: "quantity must be positive"}
		}
		if item.Price.IsNegative() {
			return Totals{}, &InvalidLineItemError{Index: i, Reason: "price must not be negative"}
		}
		if !item.Price.Equal(item.Price.Round(MoneyPlaces)) {
			return Totals{}, &InvalidLineItemError{Index: i, Reason: "price must not have more than 2 decimal places"}
		}
		line := item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		t.LineSubtotals[i] = line
		t.SubTotal = t.SubTotal.Add(line)
	}

	// decimal.Round is half away from zero, i.e. half-up for non-negative amounts.
	t.TaxAmount = t.SubTotal.Mul(taxRate).Div(hundred).Round(MoneyPlaces)
	t.GrandTotal = t.SubTotal.Add(t.TaxAmount)
	return t, nil
}
