package query

import (
	"encoding/json"
	"fmt"
	"strings"

	"invox/internal/domain"
)

// GroundingContext renders the invoice record as compact plain text for
// oracle prompts. Null fields are stated as unknown so the model does not
// guess.
func GroundingContext(inv *domain.Invoice) string {
	var b strings.Builder

	writeField(&b, "File name", &inv.FileName)
	writeField(&b, "Extraction status", (*string)(&inv.Status))
	writeField(&b, "Invoice number", inv.InvoiceNumber)
	writeField(&b, "Invoice date", inv.InvoiceDate)
	writeField(&b, "Due date", inv.DueDate)
	writeField(&b, "Vendor name", inv.VendorName)
	writeField(&b, "Vendor address", inv.VendorAddress)
	writeField(&b, "Customer name", inv.CustomerName)
	writeField(&b, "Customer address", inv.CustomerAddress)
	writeAmount(&b, "Subtotal", inv.Subtotal)
	writeAmount(&b, "Tax amount", inv.TaxAmount)
	writeAmount(&b, "Total amount", inv.TotalAmount)
	writeField(&b, "Currency", inv.Currency)

	writeAmount(&b, "Confidence score", inv.ConfidenceScore)

	if len(inv.LineItems) == 0 {
		b.WriteString("Line items: none extracted\n")
	} else {
		b.WriteString("Line items:\n")
		for i, item := range inv.LineItems {
			fmt.Fprintf(&b, "  %d. %s | quantity: %s | unit price: %s | total: %s\n",
				i+1,
				orUnknown(item.Description),
				orUnknownAmount(item.Quantity),
				orUnknownAmount(item.UnitPrice),
				orUnknownAmount(item.TotalPrice),
			)
		}
	}

	writeValidation(&b, inv.Validation)

	if len(inv.ExtractedData) > 0 {
		b.WriteString("Raw extracted data:\n")
		b.Write(inv.ExtractedData)
		b.WriteByte('\n')
	}
	return b.String()
}

func writeValidation(b *strings.Builder, raw json.RawMessage) {
	if len(raw) == 0 {
		return
	}
	var s domain.ValidationSummary
	if err := json.Unmarshal(raw, &s); err != nil {
		return
	}
	fmt.Fprintf(b, "Totals match: %t\n", s.TotalsMatch)
	fmt.Fprintf(b, "Calculated total from line items: %.2f\n", s.CalculatedTotal)
	if s.AutoCorrected {
		fmt.Fprintf(b, "Total amount was corrected from the stated %.2f to the line item sum\n", s.ExtractedTotal)
	}
}

func writeField(b *strings.Builder, label string, v *string) {
	if v == nil || *v == "" {
		fmt.Fprintf(b, "%s: unknown\n", label)
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, *v)
}

func writeAmount(b *strings.Builder, label string, v *float64) {
	if v == nil {
		fmt.Fprintf(b, "%s: unknown\n", label)
		return
	}
	fmt.Fprintf(b, "%s: %.2f\n", label, *v)
}

func orUnknown(v *string) string {
	if v == nil || *v == "" {
		return "unknown"
	}
	return *v
}

func orUnknownAmount(v *float64) string {
	if v == nil {
		return "unknown"
	}
	return fmt.Sprintf("%.2f", *v)
}
