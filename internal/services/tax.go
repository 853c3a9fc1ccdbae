package services

import (
	"math"
	"sort"
)

// TaxLine is one invoice line as seen by the tax computation: a tax-inclusive
// unit price, a quantity and a tax rate in percent.
type TaxLine struct {
	UnitPrice float64
	Quantity  int
	TaxRate   float64
}

// TaxBucket aggregates all lines sharing one exact tax rate. Base, Tax and
// Total are rounded to 2 decimals; Rate is the raw percentage.
type TaxBucket struct {
	Rate  float64 `json:"rate"`
	Base  float64 `json:"base"`
	Tax   float64 `json:"tax"`
	Total float64 `json:"total"`
}

// TaxBreakdown is the per-rate decomposition of an invoice plus its grand
// total (tax inclusive).
type TaxBreakdown struct {
	Buckets    []TaxBucket `json:"buckets"`
	GrandTotal float64     `json:"grandTotal"`
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ComputeTaxBreakdown reconstructs the taxable base from tax-inclusive line
// totals: lineTotal = price*qty, base = lineTotal/(1+rate/100), tax =
// lineTotal-base. Lines are grouped by exact rate value; sums accumulate
// unrounded and rounding happens only on the emitted aggregates. Buckets are
// emitted in ascending rate order.
func ComputeTaxBreakdown(lines []TaxLine) (TaxBreakdown, error) {
	type acc struct {
		base float64
		tax  float64
	}
	buckets := map[float64]*acc{}
	var grand float64
	for _, l := range lines {
		switch {
		case l.UnitPrice < 0:
			return TaxBreakdown{}, invalidInput("unitPrice", "must_not_be_negative")
		case l.Quantity <= 0:
			return TaxBreakdown{}, invalidInput("quantity", "must_be_positive")
		case l.TaxRate < 0:
			return TaxBreakdown{}, invalidInput("taxRate", "must_not_be_negative")
		}
		lineTotal := l.UnitPrice * float64(l.Quantity)
		factor := 1 + l.TaxRate/100 // >= 1, never divides by zero
		base := lineTotal / factor
		b, ok := buckets[l.TaxRate]
		if !ok {
			b = &acc{}
			buckets[l.TaxRate] = b
		}
		b.base += base
		b.tax += lineTotal - base
		grand += lineTotal
	}
	rates := make([]float64, 0, len(buckets))
	for r := range buckets {
		rates = append(rates, r)
	}
	sort.Float64s(rates)
	out := TaxBreakdown{GrandTotal: round2(grand)}
	for _, r := range rates {
		b := buckets[r]
		out.Buckets = append(out.Buckets, TaxBucket{
			Rate:  r,
			Base:  round2(b.base),
			Tax:   round2(b.tax),
			Total: round2(b.base + b.tax),
		})
	}
	return out, nil
}
