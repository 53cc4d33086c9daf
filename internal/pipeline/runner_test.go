package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"invox/internal/domain"
	"invox/internal/extract"
	oracleerrors "invox/internal/oracle"
	"invox/internal/port"
	"invox/mocks"
)

func unavailable(msg string) error {
	return oracleerrors.NewUnavailableError("test", errors.New(msg), 1)
}

type stubExtractor struct {
	text string
	err  error
}

func (s *stubExtractor) Extract(_ context.Context, _ []byte, _ domain.FileType) (*extract.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &extract.Result{Text: s.text, Pages: 1}, nil
}

func promptFor(stage string) interface{} {
	var needle string
	switch stage {
	case domain.StageHeader:
		needle = "header fields"
	case domain.StageFinancial:
		needle = "financial totals"
	case domain.StageLineItems:
		needle = "line item"
	}
	return mock.MatchedBy(func(req port.CompletionRequest) bool {
		return strings.Contains(req.Prompt, needle)
	})
}

func newTestInvoice() *domain.Invoice {
	return &domain.Invoice{FileName: "test.pdf", Status: domain.StatusProcessing}
}

func TestRun_AllStagesSucceed(t *testing.T) {
	oracle := new(mocks.MockOracle)
	oracle.On("Complete", mock.Anything, promptFor(domain.StageHeader)).
		Return(`{"invoice_number": "INV-123", "invoice_date": "2025-01-15", "due_date": "2025-02-15",
			"vendor_name": "Acme Corp", "vendor_address": "1 Acme Way",
			"customer_name": "Globex", "customer_address": "2 Globex Blvd"}`, nil).Once()
	oracle.On("Complete", mock.Anything, promptFor(domain.StageFinancial)).
		Return(`{"subtotal": 50, "tax_amount": 5, "total_amount": 55, "currency": "USD"}`, nil).Once()
	oracle.On("Complete", mock.Anything, promptFor(domain.StageLineItems)).
		Return(`{"line_items": [
			{"description": "Widget", "quantity": 5, "unit_price": 5, "total_price": 25},
			{"description": "Gadget", "quantity": 3, "unit_price": 10, "total_price": 30}
		]}`, nil).Once()

	r := NewRunner(oracle, &stubExtractor{text: "Invoice #123 ..."}, 3, 0)
	inv := newTestInvoice()

	err := r.Run(context.Background(), inv, []byte("pdf bytes"))
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCompleted, inv.Status)
	require.NotNil(t, inv.InvoiceNumber)
	assert.Equal(t, "INV-123", *inv.InvoiceNumber)
	require.NotNil(t, inv.TotalAmount)
	assert.Equal(t, 55.0, *inv.TotalAmount)
	require.Len(t, inv.LineItems, 2)
	require.NotNil(t, inv.ConfidenceScore)
	assert.Equal(t, 1.0, *inv.ConfidenceScore, "every field present, items consistent, totals matched")
	assert.NotEmpty(t, inv.ExtractedData)
	assert.NotEmpty(t, inv.Validation)
	assert.Greater(t, inv.ProcessingTime, 0.0)

	// One diagnostic per stage, all ok.
	require.Len(t, inv.Diagnostics, 5)
	for _, d := range inv.Diagnostics {
		assert.Equal(t, domain.StageOK, d.Outcome, "stage %s", d.Stage)
	}
	oracle.AssertExpectations(t)
}

func TestRun_UnreadableDocumentFailsRun(t *testing.T) {
	oracle := new(mocks.MockOracle)
	r := NewRunner(oracle, &stubExtractor{err: domain.ErrUnreadableDocument}, 3, 0)
	inv := newTestInvoice()

	err := r.Run(context.Background(), inv, []byte("garbage"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnreadableDocument)

	assert.Equal(t, domain.StatusFailed, inv.Status)
	assert.NotEmpty(t, inv.ErrorMessage)
	assert.Nil(t, inv.ConfidenceScore, "confidence stays null on failed runs")
	require.Len(t, inv.Diagnostics, 1)
	assert.Equal(t, domain.StageFatal, inv.Diagnostics[0].Outcome)
	oracle.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestRun_DegradedStageDoesNotAbort(t *testing.T) {
	oracle := new(mocks.MockOracle)
	oracle.On("Complete", mock.Anything, promptFor(domain.StageHeader)).
		Return(`{"invoice_number": "INV-9"}`, nil).Once()
	// Financial stage keeps failing: the oracle stays unavailable through
	// every retry.
	oracle.On("Complete", mock.Anything, promptFor(domain.StageFinancial)).
		Return("", unavailable("boom")).Times(3)
	oracle.On("Complete", mock.Anything, promptFor(domain.StageLineItems)).
		Return(`{"line_items": []}`, nil).Once()

	r := NewRunner(oracle, &stubExtractor{text: "some invoice"}, 3, 0)
	inv := newTestInvoice()

	err := r.Run(context.Background(), inv, []byte("pdf"))
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCompleted, inv.Status)
	require.NotNil(t, inv.InvoiceNumber)
	assert.Nil(t, inv.TotalAmount, "degraded stage leaves its fields null")
	assert.Nil(t, inv.Subtotal)
	require.NotNil(t, inv.ConfidenceScore)
	assert.Less(t, *inv.ConfidenceScore, 1.0)

	var financial *domain.StageDiagnostic
	for i := range inv.Diagnostics {
		if inv.Diagnostics[i].Stage == domain.StageFinancial {
			financial = &inv.Diagnostics[i]
		}
	}
	require.NotNil(t, financial)
	assert.Equal(t, domain.StageDegraded, financial.Outcome)
	assert.Equal(t, 3, financial.Attempts)
	assert.NotEmpty(t, financial.Error)
	oracle.AssertExpectations(t)
}

func TestRun_RetriesThenSucceeds(t *testing.T) {
	oracle := new(mocks.MockOracle)
	oracle.On("Complete", mock.Anything, promptFor(domain.StageHeader)).
		Return("", unavailable("transient")).Once()
	oracle.On("Complete", mock.Anything, promptFor(domain.StageHeader)).
		Return(`{"invoice_number": "INV-1"}`, nil).Once()
	oracle.On("Complete", mock.Anything, promptFor(domain.StageFinancial)).
		Return(`{"total_amount": 10}`, nil).Once()
	oracle.On("Complete", mock.Anything, promptFor(domain.StageLineItems)).
		Return(`{"line_items": []}`, nil).Once()

	r := NewRunner(oracle, &stubExtractor{text: "txt"}, 3, 0)
	inv := newTestInvoice()

	require.NoError(t, r.Run(context.Background(), inv, []byte("pdf")))

	var header *domain.StageDiagnostic
	for i := range inv.Diagnostics {
		if inv.Diagnostics[i].Stage == domain.StageHeader {
			header = &inv.Diagnostics[i]
		}
	}
	require.NotNil(t, header)
	assert.Equal(t, domain.StageOK, header.Outcome)
	assert.Equal(t, 2, header.Attempts)
	oracle.AssertExpectations(t)
}

func TestRun_MalformedOracleOutputDegrades(t *testing.T) {
	oracle := new(mocks.MockOracle)
	// Unparseable output is a schema problem, not a transport one, so the
	// stage degrades without retrying.
	oracle.On("Complete", mock.Anything, promptFor(domain.StageHeader)).
		Return("not json at all", nil).Once()
	oracle.On("Complete", mock.Anything, promptFor(domain.StageFinancial)).
		Return(`{"total_amount": 12}`, nil).Once()
	oracle.On("Complete", mock.Anything, promptFor(domain.StageLineItems)).
		Return(`{"line_items": []}`, nil).Once()

	r := NewRunner(oracle, &stubExtractor{text: "txt"}, 3, 0)
	inv := newTestInvoice()

	require.NoError(t, r.Run(context.Background(), inv, []byte("pdf")))

	assert.Equal(t, domain.StatusCompleted, inv.Status)
	assert.Nil(t, inv.InvoiceNumber)
	require.NotNil(t, inv.TotalAmount)
	assert.Equal(t, 12.0, *inv.TotalAmount)
	oracle.AssertExpectations(t)
}

func TestRun_SchemaViolationDegrades(t *testing.T) {
	oracle := new(mocks.MockOracle)
	// line_items must be an array; a string violates the stage schema.
	oracle.On("Complete", mock.Anything, promptFor(domain.StageHeader)).
		Return(`{"invoice_number": "X"}`, nil).Once()
	oracle.On("Complete", mock.Anything, promptFor(domain.StageFinancial)).
		Return(`{"total_amount": 1}`, nil).Once()
	oracle.On("Complete", mock.Anything, promptFor(domain.StageLineItems)).
		Return(`{"line_items": "none"}`, nil).Once()

	r := NewRunner(oracle, &stubExtractor{text: "txt"}, 3, 0)
	inv := newTestInvoice()

	require.NoError(t, r.Run(context.Background(), inv, []byte("pdf")))

	assert.Equal(t, domain.StatusCompleted, inv.Status)
	assert.Empty(t, inv.LineItems)

	var lineItems *domain.StageDiagnostic
	for i := range inv.Diagnostics {
		if inv.Diagnostics[i].Stage == domain.StageLineItems {
			lineItems = &inv.Diagnostics[i]
		}
	}
	require.NotNil(t, lineItems)
	assert.Equal(t, domain.StageDegraded, lineItems.Outcome)
	assert.Equal(t, 1, lineItems.Attempts, "schema violations are not retried")
	oracle.AssertExpectations(t)
}

func TestRun_NonNumericTotalDegradesFinancialStage(t *testing.T) {
	oracle := new(mocks.MockOracle)
	oracle.On("Complete", mock.Anything, promptFor(domain.StageHeader)).
		Return(`{"invoice_number": "INV-5"}`, nil).Once()
	// A total that cannot be read as a number violates the stage schema;
	// it must surface in diagnostics, not silently null the field.
	oracle.On("Complete", mock.Anything, promptFor(domain.StageFinancial)).
		Return(`{"total_amount": "forty-five dollars"}`, nil).Once()
	oracle.On("Complete", mock.Anything, promptFor(domain.StageLineItems)).
		Return(`{"line_items": []}`, nil).Once()

	r := NewRunner(oracle, &stubExtractor{text: "txt"}, 3, 0)
	inv := newTestInvoice()

	require.NoError(t, r.Run(context.Background(), inv, []byte("pdf")))

	assert.Equal(t, domain.StatusCompleted, inv.Status)
	assert.Nil(t, inv.TotalAmount)

	var financial *domain.StageDiagnostic
	for i := range inv.Diagnostics {
		if inv.Diagnostics[i].Stage == domain.StageFinancial {
			financial = &inv.Diagnostics[i]
		}
	}
	require.NotNil(t, financial)
	assert.Equal(t, domain.StageDegraded, financial.Outcome)
	assert.NotEmpty(t, financial.Error)
	assert.Equal(t, 1, financial.Attempts, "schema violations are not retried")
	oracle.AssertExpectations(t)
}

func TestRun_CurrencyStringTotalsAreCoerced(t *testing.T) {
	oracle := new(mocks.MockOracle)
	oracle.On("Complete", mock.Anything, promptFor(domain.StageHeader)).
		Return(`{"invoice_number": "INV-6"}`, nil).Once()
	oracle.On("Complete", mock.Anything, promptFor(domain.StageFinancial)).
		Return(`{"total_amount": "$1,234.56", "currency": "USD"}`, nil).Once()
	oracle.On("Complete", mock.Anything, promptFor(domain.StageLineItems)).
		Return(`{"line_items": [{"description": "Bulk", "quantity": "2", "unit_price": "£617.28", "total_price": "1,234.56"}]}`, nil).Once()

	r := NewRunner(oracle, &stubExtractor{text: "txt"}, 3, 0)
	inv := newTestInvoice()

	require.NoError(t, r.Run(context.Background(), inv, []byte("pdf")))

	require.NotNil(t, inv.TotalAmount)
	assert.Equal(t, 1234.56, *inv.TotalAmount)
	require.Len(t, inv.LineItems, 1)
	require.NotNil(t, inv.LineItems[0].UnitPrice)
	assert.Equal(t, 617.28, *inv.LineItems[0].UnitPrice)
	oracle.AssertExpectations(t)
}

func TestRun_WhitespaceOnlyTextStillCompletes(t *testing.T) {
	// A readable document with no usable text is not a failure: the run
	// completes, oracle stages degrade to nulls against the empty input.
	oracle := new(mocks.MockOracle)
	oracle.On("Complete", mock.Anything, mock.Anything).
		Return(`{}`, nil).Times(2)
	oracle.On("Complete", mock.Anything, promptFor(domain.StageLineItems)).
		Return(`{"line_items": []}`, nil).Once()

	r := NewRunner(oracle, &stubExtractor{text: "  \f  \n"}, 3, 0)
	inv := newTestInvoice()

	require.NoError(t, r.Run(context.Background(), inv, []byte("pdf")))

	assert.Equal(t, domain.StatusCompleted, inv.Status)
	assert.Nil(t, inv.TotalAmount)
	assert.Empty(t, inv.LineItems)
	require.NotNil(t, inv.ConfidenceScore)
	assert.Less(t, *inv.ConfidenceScore, 1.0)
}

func TestRun_AutoCorrectFlowsIntoValidation(t *testing.T) {
	oracle := new(mocks.MockOracle)
	oracle.On("Complete", mock.Anything, promptFor(domain.StageHeader)).
		Return(`{"invoice_number": "INV-123", "invoice_date": "2025-01-15", "due_date": "2025-02-15",
			"vendor_name": "Acme Corp", "vendor_address": "1 Acme Way",
			"customer_name": "Globex", "customer_address": "2 Globex Blvd"}`, nil).Once()
	// The misread grand total of 50 contradicts the item sum of 25; the
	// fully priced line item makes the sum trustworthy, so the grand
	// total is corrected and the original kept for audit.
	oracle.On("Complete", mock.Anything, promptFor(domain.StageFinancial)).
		Return(`{"subtotal": 45, "tax_amount": 5, "total_amount": 50, "currency": "USD"}`, nil).Once()
	oracle.On("Complete", mock.Anything, promptFor(domain.StageLineItems)).
		Return(`{"line_items": [{"description": "Service", "quantity": 5, "unit_price": 5, "total_price": 25}]}`, nil).Once()

	r := NewRunner(oracle, &stubExtractor{text: "Invoice #123"}, 3, 0)
	inv := newTestInvoice()

	require.NoError(t, r.Run(context.Background(), inv, []byte("pdf")))

	require.NotNil(t, inv.TotalAmount)
	assert.Equal(t, 25.0, *inv.TotalAmount)
	assert.Contains(t, string(inv.Validation), `"extracted_total":50`)
	assert.Contains(t, string(inv.Validation), `"auto_corrected":true`)
	require.NotNil(t, inv.ConfidenceScore)
	// Only the reconciliation component is discounted, to 0.75 of its weight.
	assert.Equal(t, 0.95, *inv.ConfidenceScore)
	oracle.AssertExpectations(t)
}

func TestRun_RerunIsDeterministic(t *testing.T) {
	run := func() *domain.Invoice {
		oracle := new(mocks.MockOracle)
		oracle.On("Complete", mock.Anything, promptFor(domain.StageHeader)).
			Return(`{"invoice_number": "INV-7"}`, nil)
		oracle.On("Complete", mock.Anything, promptFor(domain.StageFinancial)).
			Return(`{"total_amount": 99.5, "currency": "EUR"}`, nil)
		oracle.On("Complete", mock.Anything, promptFor(domain.StageLineItems)).
			Return(`{"line_items": []}`, nil)

		r := NewRunner(oracle, &stubExtractor{text: "txt"}, 3, 0)
		inv := newTestInvoice()
		require.NoError(t, r.Run(context.Background(), inv, []byte("pdf")))
		return inv
	}

	a, b := run(), run()
	assert.Equal(t, *a.InvoiceNumber, *b.InvoiceNumber)
	assert.Equal(t, *a.TotalAmount, *b.TotalAmount)
	assert.Equal(t, *a.ConfidenceScore, *b.ConfidenceScore)
	assert.Equal(t, fmt.Sprintf("%s", a.Validation), fmt.Sprintf("%s", b.Validation))
}
