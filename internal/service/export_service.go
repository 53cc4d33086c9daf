package service

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/xuri/excelize/v2"

	"invox/internal/csvexport"
	"invox/internal/domain"
	"invox/internal/port"
)

// ExportService renders invoice records as downloadable CSV or XLSX.
type ExportService struct {
	repo port.InvoiceRepository
}

func NewExportService(repo port.InvoiceRepository) *ExportService {
	return &ExportService{repo: repo}
}

func (s *ExportService) load(ctx context.Context, onlyCompleted bool) ([]domain.Invoice, error) {
	if onlyCompleted {
		return s.repo.ListCompleted(ctx)
	}
	return s.repo.List(ctx)
}

// ExportCSV returns invoices as CSV bytes, BOM-prefixed for Excel. With
// onlyCompleted set, failed and in-flight records are left out.
func (s *ExportService) ExportCSV(ctx context.Context, onlyCompleted bool) ([]byte, error) {
	invoices, err := s.load(ctx, onlyCompleted)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Write(csvexport.BOM)

	w := csvexport.NewWriter(&buf)
	if err := w.WriteHeader(); err != nil {
		return nil, fmt.Errorf("writing csv header: %w", err)
	}
	if err := w.WriteInvoices(invoices); err != nil {
		return nil, fmt.Errorf("writing csv rows: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flushing csv: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportXLSX returns invoices as an XLSX workbook.
func (s *ExportService) ExportXLSX(ctx context.Context, onlyCompleted bool) ([]byte, error) {
	start := time.Now()

	invoices, err := s.load(ctx, onlyCompleted)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	const sheet = "Invoices"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	headers := []string{
		"File Name", "Status", "Invoice Number", "Invoice Date", "Due Date",
		"Vendor Name", "Customer Name", "Subtotal", "Tax Amount",
		"Total Amount", "Currency", "Line Item Count", "Confidence Score",
		"Error Message", "Uploaded At",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for rowIdx := range invoices {
		inv := &invoices[rowIdx]
		row := rowIdx + 2

		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, inv.FileName)
		write(2, string(inv.Status))
		write(3, strOrEmpty(inv.InvoiceNumber))
		write(4, strOrEmpty(inv.InvoiceDate))
		write(5, strOrEmpty(inv.DueDate))
		write(6, strOrEmpty(inv.VendorName))
		write(7, strOrEmpty(inv.CustomerName))
		writeAmount(write, 8, inv.Subtotal)
		writeAmount(write, 9, inv.TaxAmount)
		writeAmount(write, 10, inv.TotalAmount)
		write(11, strOrEmpty(inv.Currency))
		write(12, len(inv.LineItems))
		if inv.ConfidenceScore != nil {
			write(13, *inv.ConfidenceScore)
		}
		write(14, inv.ErrorMessage)
		write(15, inv.UploadDate.UTC().Format("2006-01-02 15:04"))
	}

	_ = f.SetColWidth(sheet, "A", "A", 32)
	_ = f.SetColWidth(sheet, "C", "G", 22)
	_ = f.SetColWidth(sheet, "H", "K", 12)
	_ = f.SetColWidth(sheet, "N", "N", 40)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	log.Printf("exportService.ExportXLSX: exported %d invoices in %dms",
		len(invoices), time.Since(start).Milliseconds())
	return buf.Bytes(), nil
}

func strOrEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func writeAmount(write func(int, any), col int, v *float64) {
	if v != nil {
		write(col, *v)
	}
}
