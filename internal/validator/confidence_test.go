package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"invox/internal/domain"
)

// fullInvoice has every header and financial field present and two
// arithmetically consistent line items summing to 55.
func fullInvoice() *domain.Invoice {
	return &domain.Invoice{
		InvoiceNumber:   sptr("INV-123"),
		InvoiceDate:     sptr("2025-01-15"),
		DueDate:         sptr("2025-02-15"),
		VendorName:      sptr("Acme Corp"),
		VendorAddress:   sptr("1 Acme Way"),
		CustomerName:    sptr("Globex"),
		CustomerAddress: sptr("2 Globex Blvd"),
		Subtotal:        fptr(50),
		TaxAmount:       fptr(5),
		TotalAmount:     fptr(55),
		Currency:        sptr("USD"),
		LineItems: domain.LineItems{
			{Description: sptr("Widget"), Quantity: fptr(5), UnitPrice: fptr(5), TotalPrice: fptr(25)},
			{Description: sptr("Gadget"), Quantity: fptr(3), UnitPrice: fptr(10), TotalPrice: fptr(30)},
		},
	}
}

func TestScore_PerfectRun(t *testing.T) {
	score := Score(fullInvoice(), &domain.ValidationSummary{TotalsMatch: true})
	assert.Equal(t, 1.0, score)
}

func TestScore_AllNullRecordIsNotPerfect(t *testing.T) {
	// A run can complete with every stage degraded to nulls. Only the
	// vacuously matched reconciliation contributes then.
	score := Score(&domain.Invoice{}, &domain.ValidationSummary{TotalsMatch: true})
	assert.Equal(t, 0.2, score)
	assert.Less(t, score, 1.0)
}

func TestScore_NullFieldLowersScore(t *testing.T) {
	full := Score(fullInvoice(), &domain.ValidationSummary{TotalsMatch: true})

	partial := fullInvoice()
	partial.DueDate = nil
	partial.CustomerAddress = nil
	got := Score(partial, &domain.ValidationSummary{TotalsMatch: true})

	assert.Less(t, got, full)
	// Two of seven header fields missing.
	assert.InDelta(t, 1.0-0.30*2.0/7.0, got, 0.001)
}

func TestScore_MissingFinancialFieldsLowerScore(t *testing.T) {
	inv := fullInvoice()
	inv.Subtotal = nil
	inv.TaxAmount = nil
	score := Score(inv, &domain.ValidationSummary{TotalsMatch: true})

	assert.Equal(t, 0.85, score)
}

func TestScore_NoLineItemsZeroesComponent(t *testing.T) {
	inv := fullInvoice()
	inv.LineItems = nil
	score := Score(inv, &domain.ValidationSummary{TotalsMatch: true})

	assert.Equal(t, 0.8, score)
}

func TestScore_FailedItemCheckLowersScore(t *testing.T) {
	inv := fullInvoice()
	inv.LineItems[1].TotalPrice = fptr(99) // 3 x 10 != 99
	score := Score(inv, &domain.ValidationSummary{TotalsMatch: true})

	// Half the items consistent.
	assert.Equal(t, 0.9, score)
}

func TestScore_AutoCorrectedCountsAsPartialMatch(t *testing.T) {
	matched := Score(fullInvoice(), &domain.ValidationSummary{TotalsMatch: true})
	corrected := Score(fullInvoice(), &domain.ValidationSummary{AutoCorrected: true})
	mismatched := Score(fullInvoice(), &domain.ValidationSummary{TotalsMatch: false})

	assert.Less(t, corrected, matched)
	assert.Greater(t, corrected, mismatched)
	assert.Equal(t, 0.95, corrected)
	assert.Equal(t, 0.8, mismatched)
}

func TestScore_NilSummary(t *testing.T) {
	score := Score(fullInvoice(), nil)
	assert.Equal(t, 0.8, score)
}

func TestScore_InUnitInterval(t *testing.T) {
	for _, inv := range []*domain.Invoice{fullInvoice(), {}} {
		for _, summary := range []*domain.ValidationSummary{
			nil,
			{TotalsMatch: true},
			{AutoCorrected: true},
			{TotalsMatch: false},
		} {
			score := Score(inv, summary)
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 1.0)
		}
	}
}
