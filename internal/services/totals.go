package services

import "github.com/shopspring/decimal"

// TaxRate is the IVA applied to every invoice.
var TaxRate = decimal.RequireFromString("0.19")

// Totals summarises an invoice or a draft.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// RoundCents rounds half-up to two decimals. Amounts here are never negative.
func RoundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// LineTotal is quantity × unit price rounded to cents.
func LineTotal(unitPrice decimal.Decimal, qty int) decimal.Decimal {
	return RoundCents(unitPrice.Mul(decimal.NewFromInt(int64(qty))))
}

// ComputeTotals derives subtotal, tax and total from line totals.
func ComputeTotals(lineTotals ...decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, lt := range lineTotals {
		subtotal = subtotal.Add(lt)
	}
	tax := RoundCents(subtotal.Mul(TaxRate))
	return Totals{Subtotal: subtotal, Tax: tax, Total: subtotal.Add(tax)}
}
