package services

import "testing"

func TestLineTotalCents(t *testing.T) {
	tests := []struct {
		name string
		line PricedLine
		want int64
	}{
		{
			name: "plain item",
			line: PricedLine{UnitPriceCents: 1499, Quantity: 1},
			want: 1499,
		},
		{
			name: "quantity multiplies",
			line: PricedLine{UnitPriceCents: 1499, Quantity: 3},
			want: 4497,
		},
		{
			name: "modifiers apply per unit",
			line: PricedLine{UnitPriceCents: 1000, ModifierDeltaCents: []int64{200, 50}, Quantity: 2},
			want: 2500,
		},
		{
			name: "negative modifier discounts",
			line: PricedLine{UnitPriceCents: 1000, ModifierDeltaCents: []int64{-100}, Quantity: 1},
			want: 900,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LineTotalCents(tt.line); got != tt.want {
				t.Errorf("LineTotalCents() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestComputeTotals(t *testing.T) {
	tests := []struct {
		name     string
		lines    []PricedLine
		taxRate  float64
		tipCents int64
		want     Totals
	}{
		{
			name: "two-unit order with modifier on one unit",
			lines: []PricedLine{
				{UnitPriceCents: 1499, ModifierDeltaCents: []int64{450}, Quantity: 1},
				{UnitPriceCents: 1499, Quantity: 1},
			},
			taxRate: 0.07,
			want:    Totals{SubtotalCents: 3448, TaxCents: 241, TipCents: 0, TotalCents: 3689},
		},
		{
			name:    "empty cart",
			taxRate: 0.07,
			want:    Totals{},
		},
		{
			name:     "tip flows straight through",
			lines:    []PricedLine{{UnitPriceCents: 1000, Quantity: 1}},
			taxRate:  0.1,
			tipCents: 300,
			want:     Totals{SubtotalCents: 1000, TaxCents: 100, TipCents: 300, TotalCents: 1400},
		},
		{
			name:    "tax rounds half up",
			lines:   []PricedLine{{UnitPriceCents: 100, Quantity: 1}},
			taxRate: 0.075, // 7.5 -> 8
			want:    Totals{SubtotalCents: 100, TaxCents: 8, TotalCents: 108},
		},
		{
			name:    "tax rounds down below half",
			lines:   []PricedLine{{UnitPriceCents: 110, Quantity: 1}},
			taxRate: 0.075, // 8.25 -> 8
			want:    Totals{SubtotalCents: 110, TaxCents: 8, TotalCents: 118},
		},
		{
			name:    "zero tax rate",
			lines:   []PricedLine{{UnitPriceCents: 500, Quantity: 2}},
			taxRate: 0,
			want:    Totals{SubtotalCents: 1000, TotalCents: 1000},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeTotals(tt.lines, tt.taxRate, tt.tipCents)
			if got != tt.want {
				t.Errorf("ComputeTotals() = %+v, want %+v", got, tt.want)
			}
			if got.TotalCents != got.SubtotalCents+got.TaxCents+got.TipCents {
				t.Errorf("total %d != subtotal %d + tax %d + tip %d",
					got.TotalCents, got.SubtotalCents, got.TaxCents, got.TipCents)
			}
		})
	}
}
