// Package pricing converts supplier invoice terms into a landed net cost
// and the derived selling prices. All functions are pure so the receiving
// saga, the returns processor and any display layer can share them.
package pricing

import "math"

// MarginMultiplier defines the minimum acceptable selling price relative to
// net cost.
const MarginMultiplier = 1.33

// Inputs carries the supplier invoice terms for one product line.
type Inputs struct {
	InvoicePrice            float64
	SupplierDiscountPercent float64
	VATRate                 float64
	OtherCharges            float64
	// CostPrice is the manual fallback used when no invoice price is given.
	CostPrice float64
}

// Result groups the derived cost and price values for one product line.
type Result struct {
	NetCost                 float64
	MinimumSellingPrice     float64
	RecommendedSellingPrice float64
}

// sanitize coerces missing, NaN and negative numeric inputs to 0 before the
// formula is applied.
func sanitize(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}

func (in Inputs) normalized() Inputs {
	return Inputs{
		InvoicePrice:            sanitize(in.InvoicePrice),
		SupplierDiscountPercent: sanitize(in.SupplierDiscountPercent),
		VATRate:                 sanitize(in.VATRate),
		OtherCharges:            sanitize(in.OtherCharges),
		CostPrice:               sanitize(in.CostPrice),
	}
}

// NetCost returns the landed cost of a unit: the invoice price after
// supplier discount, plus other charges, with VAT applied. When no invoice
// price is present the manual cost price is used unchanged.
func NetCost(in Inputs) float64 {
	n := in.normalized()
	if n.InvoicePrice <= 0 {
		return n.CostPrice
	}
	discounted := n.InvoicePrice * (1 - n.SupplierDiscountPercent/100)
	return (discounted + n.OtherCharges) * (1 + n.VATRate/100)
}

// MinimumSellingPrice returns the lowest acceptable selling price.
func MinimumSellingPrice(in Inputs) float64 {
	return NetCost(in) * MarginMultiplier
}

// EnforceMinimum raises the requested selling price to the minimum when the
// request is below it.
func EnforceMinimum(requested float64, in Inputs) float64 {
	return math.Max(sanitize(requested), MinimumSellingPrice(in))
}

// Quote derives the full cost and price set for one product line. The
// recommended price equals the minimum unless the caller supplies an
// explicit requested price, which is still floored at the minimum.
func Quote(in Inputs, requested float64) Result {
	net := NetCost(in)
	minimum := net * MarginMultiplier
	recommended := minimum
	if sanitize(requested) > 0 {
		recommended = math.Max(sanitize(requested), minimum)
	}
	return Result{
		NetCost:                 net,
		MinimumSellingPrice:     minimum,
		RecommendedSellingPrice: recommended,
	}
}
