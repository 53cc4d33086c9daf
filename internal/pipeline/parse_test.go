package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeOracleJSON_PlainObject(t *testing.T) {
	data, err := DecodeOracleJSON(`{"invoice_number": "INV-123"}`)
	require.NoError(t, err)
	assert.Equal(t, "INV-123", data["invoice_number"])
}

func TestDecodeOracleJSON_MarkdownFence(t *testing.T) {
	raw := "Here is the extracted data:\n```json\n{\"total_amount\": 42.5}\n```\nLet me know if you need more."
	data, err := DecodeOracleJSON(raw)
	require.NoError(t, err)
	assert.Equal(t, 42.5, data["total_amount"])
}

func TestDecodeOracleJSON_FenceWithoutLanguage(t *testing.T) {
	raw := "```\n{\"currency\": \"USD\"}\n```"
	data, err := DecodeOracleJSON(raw)
	require.NoError(t, err)
	assert.Equal(t, "USD", data["currency"])
}

func TestDecodeOracleJSON_SurroundingProse(t *testing.T) {
	raw := `Sure! The answer is {"vendor_name": "Acme Corp"} as requested.`
	data, err := DecodeOracleJSON(raw)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", data["vendor_name"])
}

func TestDecodeOracleJSON_NoObject(t *testing.T) {
	_, err := DecodeOracleJSON("I could not find any invoice data.")
	assert.Error(t, err)
}

func TestDecodeOracleJSON_NormalizesKeys(t *testing.T) {
	data, err := DecodeOracleJSON(`{"Invoice Number": "A1", "Vendor-Name": "B", "nested": {"Due Date": "2025-01-01"}}`)
	require.NoError(t, err)
	assert.Equal(t, "A1", data["invoice_number"])
	assert.Equal(t, "B", data["vendor_name"])
	nested, ok := data["nested"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "2025-01-01", nested["due_date"])
}

func TestStringField(t *testing.T) {
	m := map[string]any{
		"present": " Acme ",
		"empty":   "",
		"null":    nil,
		"na":      "N/A",
		"number":  float64(42),
	}

	require.NotNil(t, stringField(m, "present"))
	assert.Equal(t, "Acme", *stringField(m, "present"))
	assert.Nil(t, stringField(m, "empty"))
	assert.Nil(t, stringField(m, "null"))
	assert.Nil(t, stringField(m, "na"))
	assert.Nil(t, stringField(m, "missing"))
	require.NotNil(t, stringField(m, "number"))
	assert.Equal(t, "42", *stringField(m, "number"))
}

func TestNumberField(t *testing.T) {
	m := map[string]any{
		"plain":    float64(12.5),
		"currency": "$1,234.56",
		"pounds":   "£99.99",
		"garbage":  "twelve",
		"null":     nil,
	}

	require.NotNil(t, numberField(m, "plain"))
	assert.Equal(t, 12.5, *numberField(m, "plain"))
	require.NotNil(t, numberField(m, "currency"))
	assert.Equal(t, 1234.56, *numberField(m, "currency"))
	require.NotNil(t, numberField(m, "pounds"))
	assert.Equal(t, 99.99, *numberField(m, "pounds"))
	assert.Nil(t, numberField(m, "garbage"))
	assert.Nil(t, numberField(m, "null"))
	assert.Nil(t, numberField(m, "missing"))
}

func TestCoerceNumbers(t *testing.T) {
	m := map[string]any{
		"total_amount":   "$1,234.56",
		"subtotal":       "n/a",
		"tax_amount":     "",
		"invoice_number": "12345", // not a numeric field, left alone
		"line_items": []any{
			map[string]any{"quantity": "2", "unit_price": "£10.50", "total_price": float64(21)},
		},
	}

	coerceNumbers(m)

	assert.Equal(t, 1234.56, m["total_amount"])
	assert.Nil(t, m["subtotal"])
	assert.Nil(t, m["tax_amount"])
	assert.Equal(t, "12345", m["invoice_number"])
	item := m["line_items"].([]any)[0].(map[string]any)
	assert.Equal(t, 2.0, item["quantity"])
	assert.Equal(t, 10.5, item["unit_price"])
	assert.Equal(t, 21.0, item["total_price"])
}

func TestCoerceNumbers_LeavesUnparseableStrings(t *testing.T) {
	// Unparseable values stay strings so schema validation rejects them
	// rather than the field silently going null.
	m := map[string]any{"total_amount": "forty-five dollars"}
	coerceNumbers(m)
	assert.Equal(t, "forty-five dollars", m["total_amount"])
}
