// Package csvexport renders invoice records as CSV for download.
package csvexport

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"invox/internal/domain"
)

// UTF-8 BOM bytes for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// columns defines the CSV header row.
var columns = []string{
	"File Name",
	"Status",
	"Invoice Number",
	"Invoice Date",
	"Due Date",
	"Vendor Name",
	"Customer Name",
	"Subtotal",
	"Tax Amount",
	"Total Amount",
	"Currency",
	"Line Item Count",
	"Confidence Score",
	"Error Message",
	"Uploaded At",
}

// Writer wraps csv.Writer for exporting invoices as CSV.
type Writer struct {
	csv *csv.Writer
}

// NewWriter creates a Writer that writes CSV to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// WriteHeader writes the header row.
func (w *Writer) WriteHeader() error {
	return w.csv.Write(columns)
}

// WriteInvoices converts a batch of invoices to CSV rows and writes them.
func (w *Writer) WriteInvoices(invoices []domain.Invoice) error {
	for i := range invoices {
		if err := w.csv.Write(invoiceToRow(&invoices[i])); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer buffer.
func (w *Writer) Flush() {
	w.csv.Flush()
}

// Error returns any error from prior writes or flushes.
func (w *Writer) Error() error {
	return w.csv.Error()
}

func invoiceToRow(inv *domain.Invoice) []string {
	return []string{
		inv.FileName,
		string(inv.Status),
		strVal(inv.InvoiceNumber),
		strVal(inv.InvoiceDate),
		strVal(inv.DueDate),
		strVal(inv.VendorName),
		strVal(inv.CustomerName),
		amountVal(inv.Subtotal),
		amountVal(inv.TaxAmount),
		amountVal(inv.TotalAmount),
		strVal(inv.Currency),
		strconv.Itoa(len(inv.LineItems)),
		scoreVal(inv.ConfidenceScore),
		inv.ErrorMessage,
		inv.UploadDate.UTC().Format(time.RFC3339),
	}
}

func strVal(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func amountVal(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", *v)
}

func scoreVal(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.3f", *v)
}
