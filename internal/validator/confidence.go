package validator

import (
	"math"

	"invox/internal/domain"
)

// Confidence weights. Header and financial fields carry the most signal;
// line items and reconciliation split the remainder.
const (
	weightHeader         = 0.30
	weightFinancial      = 0.30
	weightLineItems      = 0.20
	weightReconciliation = 0.20
)

// Score computes the overall confidence of a completed run. Each component
// is a ratio in [0, 1] that only falls as fields go null or checks fail:
// header and financial score the fraction of their fields present, line
// items the fraction of items that are fully priced and arithmetically
// consistent, and reconciliation is 1.0 on a clean match, 0.75 after an
// auto-correction, 0 on a contested mismatch. A 1.0 total therefore
// requires every field present, every line item check passing, and
// matching totals.
func Score(inv *domain.Invoice, summary *domain.ValidationSummary) float64 {
	score := weightHeader*headerComponent(inv) +
		weightFinancial*financialComponent(inv) +
		weightLineItems*lineItemComponent(inv.LineItems) +
		weightReconciliation*reconciliationFactor(summary)
	return round3(score)
}

func headerComponent(inv *domain.Invoice) float64 {
	fields := []*string{
		inv.InvoiceNumber,
		inv.InvoiceDate,
		inv.DueDate,
		inv.VendorName,
		inv.VendorAddress,
		inv.CustomerName,
		inv.CustomerAddress,
	}
	present := 0
	for _, f := range fields {
		if f != nil {
			present++
		}
	}
	return float64(present) / float64(len(fields))
}

func financialComponent(inv *domain.Invoice) float64 {
	present := 0
	if inv.Subtotal != nil {
		present++
	}
	if inv.TaxAmount != nil {
		present++
	}
	if inv.TotalAmount != nil {
		present++
	}
	if inv.Currency != nil {
		present++
	}
	return float64(present) / 4
}

// lineItemComponent is the fraction of line items that carry all three
// numeric values and whose quantity x unit_price matches the stated
// total. No items at all scores zero.
func lineItemComponent(items domain.LineItems) float64 {
	if len(items) == 0 {
		return 0
	}
	consistent := 0
	for _, item := range items {
		if item.Quantity == nil || item.UnitPrice == nil || item.TotalPrice == nil {
			continue
		}
		if amountsEqual(*item.Quantity**item.UnitPrice, *item.TotalPrice) {
			consistent++
		}
	}
	return float64(consistent) / float64(len(items))
}

func reconciliationFactor(summary *domain.ValidationSummary) float64 {
	if summary == nil {
		return 0
	}
	switch {
	case summary.TotalsMatch:
		return 1.0
	case summary.AutoCorrected:
		return 0.75
	default:
		return 0
	}
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
