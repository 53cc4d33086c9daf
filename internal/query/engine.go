// Package query answers natural-language questions about extracted
// invoices, grounded strictly in the stored record.
package query

import (
	"context"
	"fmt"
	"log"
	"strings"

	"invox/internal/domain"
	"invox/internal/port"
)

const answerSystem = "You are an assistant answering questions about a single invoice. " +
	"Answer only from the invoice data provided. " +
	"If the data does not contain the answer, say so plainly. " +
	"Never invent values. Keep answers short."

const suggestSystem = "You generate useful questions a person might ask about an invoice. " +
	"Respond with one question per line, nothing else."

// fallbackQuestions is served when the oracle cannot produce suggestions.
var fallbackQuestions = []string{
	"What is the total amount of this invoice?",
	"Who is the vendor?",
	"When is payment due?",
	"What line items are on this invoice?",
	"How much tax was charged?",
}

// Engine answers questions about a single extracted invoice.
type Engine struct {
	oracle port.Oracle
}

func NewEngine(oracle port.Oracle) *Engine {
	return &Engine{oracle: oracle}
}

// Answer responds to a question about the invoice. The extraction must
// have completed; any other status yields ErrRecordNotReady.
func (e *Engine) Answer(ctx context.Context, inv *domain.Invoice, question string) (string, error) {
	if err := ready(inv); err != nil {
		return "", err
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("empty question")
	}

	prompt := fmt.Sprintf("Invoice data:\n%s\n\nQuestion: %s", GroundingContext(inv), question)
	answer, err := e.oracle.Complete(ctx, port.CompletionRequest{System: answerSystem, Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("answering question for invoice %s: %w", inv.ID, err)
	}
	return strings.TrimSpace(answer), nil
}

// SuggestQuestions proposes questions worth asking about the invoice.
// Oracle failures fall back to a canned list rather than erroring, since
// suggestions are a convenience.
func (e *Engine) SuggestQuestions(ctx context.Context, inv *domain.Invoice) ([]string, error) {
	if err := ready(inv); err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf("Invoice data:\n%s\n\nSuggest 5 questions about this invoice.", GroundingContext(inv))
	raw, err := e.oracle.Complete(ctx, port.CompletionRequest{System: suggestSystem, Prompt: prompt})
	if err != nil {
		log.Printf("query.Engine.SuggestQuestions: oracle failed for invoice %s, using fallback: %v", inv.ID, err)
		return fallbackQuestions, nil
	}

	questions := parseQuestions(raw)
	if len(questions) == 0 {
		return fallbackQuestions, nil
	}
	return questions, nil
}

func ready(inv *domain.Invoice) error {
	if inv.Status != domain.StatusCompleted {
		return domain.ErrRecordNotReady
	}
	return nil
}

func parseQuestions(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		// Strip list markers the model may add despite instructions.
		line = strings.TrimLeft(line, "-*0123456789. )")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
		if len(out) == 5 {
			break
		}
	}
	return out
}
