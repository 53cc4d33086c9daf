package query

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"invox/internal/domain"
	"invox/internal/port"
	"invox/mocks"
)

func fptr(v float64) *float64 { return &v }
func sptr(v string) *string   { return &v }

func completedInvoice() *domain.Invoice {
	return &domain.Invoice{
		ID:            uuid.New(),
		FileName:      "acme-jan.pdf",
		Status:        domain.StatusCompleted,
		InvoiceNumber: sptr("INV-123"),
		VendorName:    sptr("Acme Corp"),
		TotalAmount:   fptr(55),
		Currency:      sptr("USD"),
		LineItems: domain.LineItems{
			{Description: sptr("Widget"), Quantity: fptr(5), UnitPrice: fptr(5), TotalPrice: fptr(25)},
		},
		ExtractedData: []byte(`{"financial":{"total_amount":55,"tax_amount":5}}`),
	}
}

func TestAnswer_GroundsPromptInRecord(t *testing.T) {
	oracle := new(mocks.MockOracle)
	oracle.On("Complete", mock.Anything, mock.MatchedBy(func(req port.CompletionRequest) bool {
		return strings.Contains(req.Prompt, "Acme Corp") &&
			strings.Contains(req.Prompt, "55.00") &&
			strings.Contains(req.Prompt, `"tax_amount":5`) &&
			strings.Contains(req.Prompt, "What is the total?")
	})).Return("The total is 55.00 USD.", nil).Once()

	e := NewEngine(oracle)
	answer, err := e.Answer(context.Background(), completedInvoice(), "What is the total?")

	require.NoError(t, err)
	assert.Equal(t, "The total is 55.00 USD.", answer)
	oracle.AssertExpectations(t)
}

func TestAnswer_ProcessingRecordNotReady(t *testing.T) {
	oracle := new(mocks.MockOracle)
	inv := completedInvoice()
	inv.Status = domain.StatusProcessing

	e := NewEngine(oracle)
	_, err := e.Answer(context.Background(), inv, "anything")

	assert.ErrorIs(t, err, domain.ErrRecordNotReady)
	oracle.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestAnswer_FailedRecordNotReady(t *testing.T) {
	// Failed records never satisfy a question; there is no completed
	// extraction to ground an answer in.
	oracle := new(mocks.MockOracle)
	inv := completedInvoice()
	inv.Status = domain.StatusFailed
	inv.ErrorMessage = "document could not be read"

	e := NewEngine(oracle)
	_, err := e.Answer(context.Background(), inv, "What is the total?")

	assert.ErrorIs(t, err, domain.ErrRecordNotReady)
	oracle.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestAnswer_EmptyQuestion(t *testing.T) {
	e := NewEngine(new(mocks.MockOracle))
	_, err := e.Answer(context.Background(), completedInvoice(), "   ")
	assert.Error(t, err)
}

func TestSuggestQuestions_ParsesLines(t *testing.T) {
	oracle := new(mocks.MockOracle)
	oracle.On("Complete", mock.Anything, mock.Anything).
		Return("1. What is the total?\n2. Who is the vendor?\n- When is it due?\n", nil).Once()

	e := NewEngine(oracle)
	questions, err := e.SuggestQuestions(context.Background(), completedInvoice())

	require.NoError(t, err)
	assert.Equal(t, []string{
		"What is the total?",
		"Who is the vendor?",
		"When is it due?",
	}, questions)
}

func TestSuggestQuestions_FallsBackOnOracleFailure(t *testing.T) {
	oracle := new(mocks.MockOracle)
	oracle.On("Complete", mock.Anything, mock.Anything).
		Return("", errors.New("oracle down")).Once()

	e := NewEngine(oracle)
	questions, err := e.SuggestQuestions(context.Background(), completedInvoice())

	require.NoError(t, err)
	assert.Equal(t, fallbackQuestions, questions)
}

func TestSuggestQuestions_ProcessingRecordNotReady(t *testing.T) {
	inv := completedInvoice()
	inv.Status = domain.StatusProcessing

	e := NewEngine(new(mocks.MockOracle))
	_, err := e.SuggestQuestions(context.Background(), inv)

	assert.ErrorIs(t, err, domain.ErrRecordNotReady)
}

func TestGroundingContext_IncludesValidationOutcome(t *testing.T) {
	inv := completedInvoice()
	inv.Validation = []byte(`{"totals_match":false,"calculated_total":25,"extracted_total":55,"auto_corrected":true}`)

	ctx := GroundingContext(inv)

	assert.Contains(t, ctx, "Totals match: false")
	assert.Contains(t, ctx, "Calculated total from line items: 25.00")
	assert.Contains(t, ctx, "corrected from the stated 55.00")
}

func TestGroundingContext_MarksUnknowns(t *testing.T) {
	inv := &domain.Invoice{
		ID:       uuid.New(),
		FileName: "mystery.pdf",
		Status:   domain.StatusCompleted,
	}

	ctx := GroundingContext(inv)

	assert.Contains(t, ctx, "Invoice number: unknown")
	assert.Contains(t, ctx, "Total amount: unknown")
	assert.Contains(t, ctx, "Line items: none extracted")
}
