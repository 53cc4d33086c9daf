package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"invox/internal/domain"
)

// stage is one oracle-backed extraction pass. Each stage owns its prompt,
// the schema its output must satisfy, and the application of that output
// onto the invoice record. prompt receives the raw document text and the
// fields accumulated by earlier stages, so later prompts can anchor on
// what is already known.
type stage struct {
	name   string
	system string
	prompt func(text string, prior map[string]any) string
	schema *jsonschema.Schema
	apply  func(inv *domain.Invoice, data map[string]any)
}

// priorContext renders accumulated fields as a prompt block. Empty when
// nothing has been extracted yet.
func priorContext(prior map[string]any) string {
	if len(prior) == 0 {
		return ""
	}
	b, err := json.Marshal(prior)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("\nFields already extracted from this document:\n%s\n", b)
}

const systemPrompt = "You are an invoice data extraction assistant. " +
	"Respond with a single JSON object and nothing else. " +
	"Use null for any field not present in the document. " +
	"Never invent values."
