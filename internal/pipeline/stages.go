package pipeline

import (
	"fmt"

	"invox/internal/domain"
)

var nullableString = map[string]any{"type": []string{"string", "null"}}

// Numeric fields really must be numbers once coerceNumbers has run; a
// string surviving coercion is unparseable and fails the stage schema.
var nullableNumber = map[string]any{"type": []string{"number", "null"}}

var headerStage = &stage{
	name:   domain.StageHeader,
	system: systemPrompt,
	prompt: func(text string, _ map[string]any) string {
		return fmt.Sprintf(`Extract the following header fields from this invoice text.

Return a JSON object with exactly these keys:
- invoice_number: the invoice identifier
- invoice_date: the issue date as written on the document
- due_date: the payment due date
- vendor_name: the name of the business issuing the invoice
- vendor_address: the vendor's address
- customer_name: the name of the party being billed
- customer_address: the customer's address

Use null for any field you cannot find.

Invoice text:
%s`, text)
	},
	schema: compileSchema("header.json", map[string]any{
		"type": "object",
		"properties": map[string]any{
			"invoice_number":   nullableString,
			"invoice_date":     nullableString,
			"due_date":         nullableString,
			"vendor_name":      nullableString,
			"vendor_address":   nullableString,
			"customer_name":    nullableString,
			"customer_address": nullableString,
		},
	}),
	apply: func(inv *domain.Invoice, data map[string]any) {
		inv.InvoiceNumber = stringField(data, "invoice_number")
		inv.InvoiceDate = stringField(data, "invoice_date")
		inv.DueDate = stringField(data, "due_date")
		inv.VendorName = stringField(data, "vendor_name")
		inv.VendorAddress = stringField(data, "vendor_address")
		inv.CustomerName = stringField(data, "customer_name")
		inv.CustomerAddress = stringField(data, "customer_address")
	},
}

var financialStage = &stage{
	name:   domain.StageFinancial,
	system: systemPrompt,
	prompt: func(text string, prior map[string]any) string {
		return fmt.Sprintf(`Extract the financial totals from this invoice text.

Return a JSON object with exactly these keys:
- subtotal: the pre-tax total as a number
- tax_amount: the tax as a number
- total_amount: the grand total as a number
- currency: the three-letter ISO currency code (e.g. "USD", "EUR")

Return plain numbers without currency symbols or thousands separators.
Use null for any field you cannot find.
%s
Invoice text:
%s`, priorContext(prior), text)
	},
	schema: compileSchema("financial.json", map[string]any{
		"type": "object",
		"properties": map[string]any{
			"subtotal":     nullableNumber,
			"tax_amount":   nullableNumber,
			"total_amount": nullableNumber,
			"currency":     nullableString,
		},
	}),
	apply: func(inv *domain.Invoice, data map[string]any) {
		inv.Subtotal = numberField(data, "subtotal")
		inv.TaxAmount = numberField(data, "tax_amount")
		inv.TotalAmount = numberField(data, "total_amount")
		inv.Currency = stringField(data, "currency")
	},
}

var lineItemsStage = &stage{
	name:   domain.StageLineItems,
	system: systemPrompt,
	prompt: func(text string, prior map[string]any) string {
		return fmt.Sprintf(`Extract every billed line item from this invoice text.

Return a JSON object with a single key "line_items": an array where each
element has exactly these keys:
- description: what was billed
- quantity: the quantity as a number
- unit_price: the per-unit price as a number
- total_price: the line total as a number

Return plain numbers without currency symbols. Use null for values you
cannot find. Return an empty array if the document lists no line items.
%s
Invoice text:
%s`, priorContext(prior), text)
	},
	schema: compileSchema("line_items.json", map[string]any{
		"type":     "object",
		"required": []string{"line_items"},
		"properties": map[string]any{
			"line_items": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"description": nullableString,
						"quantity":    nullableNumber,
						"unit_price":  nullableNumber,
						"total_price": nullableNumber,
					},
				},
			},
		},
	}),
	apply: func(inv *domain.Invoice, data map[string]any) {
		raw, ok := data["line_items"].([]any)
		if !ok {
			return
		}
		items := make(domain.LineItems, 0, len(raw))
		for _, entry := range raw {
			m, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			items = append(items, domain.LineItem{
				Description: stringField(m, "description"),
				Quantity:    numberField(m, "quantity"),
				UnitPrice:   numberField(m, "unit_price"),
				TotalPrice:  numberField(m, "total_price"),
			})
		}
		inv.LineItems = items
	},
}

// oracleStages lists the oracle-backed stages in execution order.
var oracleStages = []*stage{headerStage, financialStage, lineItemsStage}
