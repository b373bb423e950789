package services

import "math"

// PricedLine is one resolved order line ready for totaling. UnitPriceCents is
// the menu item's current price (which order creation snapshots), and
// ModifierDeltaCents are the per-unit price deltas of the selected options.
type PricedLine struct {
	UnitPriceCents     int64
	ModifierDeltaCents []int64
	Quantity           int
}

// Totals is the aggregate price breakdown of an order, in minor currency
// units. Total always equals Subtotal + Tax + Tip.
type Totals struct {
	SubtotalCents int64 `json:"subtotal_cents"`
	TaxCents      int64 `json:"tax_cents"`
	TipCents      int64 `json:"tip_cents"`
	TotalCents    int64 `json:"total_cents"`
}

// LineTotalCents computes (unit price + sum of modifier deltas) * quantity.
func LineTotalCents(line PricedLine) int64 {
	perUnit := line.UnitPriceCents
	for _, delta := range line.ModifierDeltaCents {
		perUnit += delta
	}
	return perUnit * int64(line.Quantity)
}

// ComputeTotals aggregates line totals and applies the location's tax rate
// (a decimal fraction, e.g. 0.07) and the customer's tip. Pure function.
func ComputeTotals(lines []PricedLine, taxRate float64, tipCents int64) Totals {
	var subtotal int64
	for _, line := range lines {
		subtotal += LineTotalCents(line)
	}
	tax := roundHalfUp(float64(subtotal) * taxRate)
	return Totals{
		SubtotalCents: subtotal,
		TaxCents:      tax,
		TipCents:      tipCents,
		TotalCents:    subtotal + tax + tipCents,
	}
}

// roundHalfUp rounds to the nearest integer with ties going up, which is the
// conventional rounding for tax amounts.
func roundHalfUp(x float64) int64 {
	return int64(math.Floor(x + 0.5))
}
