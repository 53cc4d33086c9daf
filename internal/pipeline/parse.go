package pipeline

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	fenceRe  = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
	objectRe = regexp.MustCompile(`(?s)\{.*\}`)
)

// DecodeOracleJSON extracts a JSON object from raw oracle output. Models
// routinely wrap the object in markdown fences or surround it with prose,
// so we salvage the first object we can find before giving up.
func DecodeOracleJSON(raw string) (map[string]any, error) {
	candidate := strings.TrimSpace(raw)

	if m := fenceRe.FindStringSubmatch(candidate); m != nil {
		candidate = m[1]
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(candidate), &out); err == nil {
		return normalizeKeys(out), nil
	}

	if m := objectRe.FindString(candidate); m != "" {
		if err := json.Unmarshal([]byte(m), &out); err == nil {
			return normalizeKeys(out), nil
		}
	}

	return nil, fmt.Errorf("no JSON object in oracle output: %s", truncate(raw, 300))
}

// normalizeKeys lowercases keys and converts spaces and dashes to
// underscores, so "Invoice Number" and "invoice-number" both land on
// "invoice_number". Nested objects and arrays are normalized too.
func normalizeKeys(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		key := strings.ToLower(strings.TrimSpace(k))
		key = strings.ReplaceAll(key, " ", "_")
		key = strings.ReplaceAll(key, "-", "_")
		out[key] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return normalizeKeys(t)
	case []any:
		for i, item := range t {
			t[i] = normalizeValue(item)
		}
		return t
	default:
		return v
	}
}

// numericKeys are the stage fields that must carry numeric values.
var numericKeys = map[string]bool{
	"subtotal":     true,
	"tax_amount":   true,
	"total_amount": true,
	"quantity":     true,
	"unit_price":   true,
	"total_price":  true,
}

// coerceNumbers rewrites numeric fields stated as strings into numbers,
// in place and recursively. Oracles frequently return "$1,234.56" where a
// number was asked for; explicit not-found markers become null. A string
// that cannot be read as a number is left alone so schema validation
// rejects it instead of the value silently going null.
func coerceNumbers(m map[string]any) {
	for k, v := range m {
		switch t := v.(type) {
		case map[string]any:
			coerceNumbers(t)
		case []any:
			for _, item := range t {
				if nested, ok := item.(map[string]any); ok {
					coerceNumbers(nested)
				}
			}
		case string:
			if !numericKeys[k] {
				continue
			}
			s := strings.TrimSpace(t)
			if s == "" || strings.EqualFold(s, "null") || strings.EqualFold(s, "n/a") {
				m[k] = nil
				continue
			}
			if f, ok := parseAmount(s); ok {
				m[k] = f
			}
		}
	}
}

// parseAmount parses a monetary string after stripping currency symbols
// and thousands separators.
func parseAmount(s string) (float64, bool) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '$', '£', '€', '₹', ',', ' ':
			return -1
		}
		return r
	}, strings.TrimSpace(s))
	if cleaned == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// stringField returns the value at key as a trimmed string pointer, or nil
// when absent, null, or empty.
func stringField(m map[string]any, key string) *string {
	v, ok := m[key]
	if !ok || v == nil {
		return nil
	}
	var s string
	switch t := v.(type) {
	case string:
		s = strings.TrimSpace(t)
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return nil
	}
	if s == "" || strings.EqualFold(s, "null") || strings.EqualFold(s, "n/a") {
		return nil
	}
	return &s
}

// numberField returns the value at key as a float pointer. String values
// are parsed the same way coerceNumbers does, for callers working on
// uncoerced maps.
func numberField(m map[string]any, key string) *float64 {
	v, ok := m[key]
	if !ok || v == nil {
		return nil
	}
	switch t := v.(type) {
	case float64:
		return &t
	case string:
		if f, ok := parseAmount(t); ok {
			return &f
		}
		return nil
	default:
		return nil
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
