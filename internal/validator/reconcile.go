// Package validator reconciles extracted line items against extracted
// totals and scores the overall confidence of an extraction run.
package validator

import (
	"fmt"
	"math"

	"invox/internal/domain"
)

// Tolerance is the maximum absolute difference treated as equal when
// comparing monetary amounts.
const Tolerance = 0.01

// Reconcile cross-checks the summed line item totals against the extracted
// grand total. When they disagree and every line item carries both quantity
// and unit price, the grand total is overwritten with the calculated sum:
// line item arithmetic is more reliable than a single misread total field.
// The oracle's original value survives in ExtractedTotal for audit.
func Reconcile(inv *domain.Invoice) *domain.ValidationSummary {
	s := &domain.ValidationSummary{TotalsMatch: true}

	for i := range inv.LineItems {
		item := &inv.LineItems[i]
		if item.TotalPrice == nil {
			s.ItemsMissingTotal++
		}
		if item.Quantity == nil || item.UnitPrice == nil || item.TotalPrice == nil {
			continue
		}
		expected := *item.Quantity * *item.UnitPrice
		check := domain.CheckResult{
			Passed:        amountsEqual(expected, *item.TotalPrice),
			FieldPath:     fmt.Sprintf("line_items[%d].total_price", i),
			ExpectedValue: formatAmount(expected),
			ActualValue:   formatAmount(*item.TotalPrice),
		}
		if !check.Passed {
			check.Message = "quantity x unit_price does not equal total_price"
		}
		s.Checks = append(s.Checks, check)
	}

	s.CalculatedTotal = round2(sumStatedTotals(inv.LineItems))

	// Without a grand total, or without any line items to sum, there is
	// nothing to contest; the check passes vacuously.
	if inv.TotalAmount == nil || len(inv.LineItems) == 0 {
		return s
	}

	extracted := *inv.TotalAmount
	s.ExtractedTotal = extracted
	s.Difference = round2(math.Abs(s.CalculatedTotal - extracted))

	if amountsEqual(s.CalculatedTotal, extracted) {
		return s
	}
	s.TotalsMatch = false

	// Correct only when the line items are trustworthy: every one of them
	// has both quantity and unit price. Sparse or price-less items give
	// nothing reliable to correct toward.
	if itemsTrustworthy(inv.LineItems) {
		corrected := s.CalculatedTotal
		inv.TotalAmount = &corrected
		s.AutoCorrected = true
	}
	return s
}

// sumStatedTotals sums the item total_price values, treating a missing
// total as zero. Reconcile surfaces the gap via ItemsMissingTotal.
func sumStatedTotals(items domain.LineItems) float64 {
	var sum float64
	for _, item := range items {
		if item.TotalPrice != nil {
			sum += *item.TotalPrice
		}
	}
	return sum
}

// itemsTrustworthy reports whether every line item carries both quantity
// and unit price.
func itemsTrustworthy(items domain.LineItems) bool {
	if len(items) == 0 {
		return false
	}
	for _, item := range items {
		if item.Quantity == nil || item.UnitPrice == nil {
			return false
		}
	}
	return true
}

func amountsEqual(a, b float64) bool {
	return math.Abs(a-b) <= Tolerance
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func formatAmount(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
