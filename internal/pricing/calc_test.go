package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNetCostInvoiceTerms(t *testing.T) {
	in := Inputs{
		InvoicePrice:            1000,
		SupplierDiscountPercent: 10,
		VATRate:                 16,
		OtherCharges:            50,
	}
	require.InDelta(t, 1264.4, NetCost(in), 0.0001)
}

func TestNetCostFallsBackToCostPrice(t *testing.T) {
	in := Inputs{CostPrice: 320}
	require.InDelta(t, 320, NetCost(in), 0.0001)

	// Zero invoice price also falls back.
	in = Inputs{InvoicePrice: 0, CostPrice: 85.5}
	require.InDelta(t, 85.5, NetCost(in), 0.0001)
}

func TestMinimumSellingPrice(t *testing.T) {
	for _, netCost := range []float64{1, 12.5, 1264.4, 99999} {
		in := Inputs{CostPrice: netCost}
		require.InDelta(t, netCost*1.33, MinimumSellingPrice(in), 0.0001)
	}
}

func TestEnforceMinimum(t *testing.T) {
	in := Inputs{CostPrice: 100} // minimum 133

	require.InDelta(t, 133, EnforceMinimum(120, in), 0.0001)
	require.InDelta(t, 133, EnforceMinimum(133, in), 0.0001)
	require.InDelta(t, 150, EnforceMinimum(150, in), 0.0001)
}

func TestSanitizeCoercesBadInputs(t *testing.T) {
	in := Inputs{
		InvoicePrice:            math.NaN(),
		SupplierDiscountPercent: -5,
		VATRate:                 math.NaN(),
		OtherCharges:            -20,
		CostPrice:               40,
	}
	// NaN invoice price coerces to 0, so the cost price fallback applies.
	require.InDelta(t, 40, NetCost(in), 0.0001)

	in = Inputs{InvoicePrice: 200, SupplierDiscountPercent: -10, OtherCharges: -1}
	require.InDelta(t, 200, NetCost(in), 0.0001)
}

func TestQuote(t *testing.T) {
	in := Inputs{InvoicePrice: 1000, SupplierDiscountPercent: 10, VATRate: 16, OtherCharges: 50}

	q := Quote(in, 0)
	require.InDelta(t, 1264.4, q.NetCost, 0.0001)
	require.InDelta(t, 1264.4*1.33, q.MinimumSellingPrice, 0.0001)
	require.InDelta(t, q.MinimumSellingPrice, q.RecommendedSellingPrice, 0.0001)

	q = Quote(in, 2000)
	require.InDelta(t, 2000, q.RecommendedSellingPrice, 0.0001)

	q = Quote(in, 100)
	require.InDelta(t, q.MinimumSellingPrice, q.RecommendedSellingPrice, 0.0001)
}
