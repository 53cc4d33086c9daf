package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"invox/internal/domain"
	"invox/internal/port"
)

type invoiceRepo struct {
	db *sqlx.DB
}

// NewInvoiceRepo creates a new PostgreSQL-backed InvoiceRepository.
func NewInvoiceRepo(db *sqlx.DB) port.InvoiceRepository {
	return &invoiceRepo{db: db}
}

func (r *invoiceRepo) Create(ctx context.Context, inv *domain.Invoice) error {
	now := time.Now().UTC()
	inv.CreatedAt = now
	inv.UpdatedAt = now

	query := `INSERT INTO invoices (
		id, file_name, s3_bucket, s3_key, upload_date, status,
		invoice_number, invoice_date, due_date,
		vendor_name, vendor_address, customer_name, customer_address,
		subtotal, tax_amount, total_amount, currency,
		line_items, validation, diagnostics, extracted_data,
		confidence_score, processing_time_secs, extraction_method, error_message,
		created_by, created_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5, $6,
		$7, $8, $9,
		$10, $11, $12, $13,
		$14, $15, $16, $17,
		$18, $19, $20, $21,
		$22, $23, $24, $25,
		$26, $27, $28
	)`

	_, err := r.db.ExecContext(ctx, query,
		inv.ID, inv.FileName, inv.S3Bucket, inv.S3Key, inv.UploadDate, inv.Status,
		inv.InvoiceNumber, inv.InvoiceDate, inv.DueDate,
		inv.VendorName, inv.VendorAddress, inv.CustomerName, inv.CustomerAddress,
		inv.Subtotal, inv.TaxAmount, inv.TotalAmount, inv.Currency,
		inv.LineItems, inv.Validation, inv.Diagnostics, inv.ExtractedData,
		inv.ConfidenceScore, inv.ProcessingTime, inv.ExtractionMethod, inv.ErrorMessage,
		inv.CreatedBy, inv.CreatedAt, inv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("invoiceRepo.Create: %w", err)
	}
	return nil
}

func (r *invoiceRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	var inv domain.Invoice
	err := r.db.GetContext(ctx, &inv, "SELECT * FROM invoices WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("invoiceRepo.GetByID: %w", err)
	}
	return &inv, nil
}

func (r *invoiceRepo) List(ctx context.Context) ([]domain.Invoice, error) {
	var invoices []domain.Invoice
	err := r.db.SelectContext(ctx, &invoices,
		"SELECT * FROM invoices ORDER BY upload_date DESC")
	if err != nil {
		return nil, fmt.Errorf("invoiceRepo.List: %w", err)
	}
	return invoices, nil
}

func (r *invoiceRepo) ListCompleted(ctx context.Context) ([]domain.Invoice, error) {
	var invoices []domain.Invoice
	err := r.db.SelectContext(ctx, &invoices,
		"SELECT * FROM invoices WHERE status = $1 ORDER BY upload_date DESC",
		domain.StatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("invoiceRepo.ListCompleted: %w", err)
	}
	return invoices, nil
}

func (r *invoiceRepo) Update(ctx context.Context, inv *domain.Invoice) error {
	inv.UpdatedAt = time.Now().UTC()

	query := `UPDATE invoices SET
		status = $1,
		invoice_number = $2, invoice_date = $3, due_date = $4,
		vendor_name = $5, vendor_address = $6, customer_name = $7, customer_address = $8,
		subtotal = $9, tax_amount = $10, total_amount = $11, currency = $12,
		line_items = $13, validation = $14, diagnostics = $15, extracted_data = $16,
		confidence_score = $17, processing_time_secs = $18, extraction_method = $19,
		error_message = $20, updated_at = $21
	WHERE id = $22`

	result, err := r.db.ExecContext(ctx, query,
		inv.Status,
		inv.InvoiceNumber, inv.InvoiceDate, inv.DueDate,
		inv.VendorName, inv.VendorAddress, inv.CustomerName, inv.CustomerAddress,
		inv.Subtotal, inv.TaxAmount, inv.TotalAmount, inv.Currency,
		inv.LineItems, inv.Validation, inv.Diagnostics, inv.ExtractedData,
		inv.ConfidenceScore, inv.ProcessingTime, inv.ExtractionMethod,
		inv.ErrorMessage, inv.UpdatedAt,
		inv.ID)
	if err != nil {
		return fmt.Errorf("invoiceRepo.Update: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("invoiceRepo.Update rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *invoiceRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM invoices WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("invoiceRepo.Delete: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("invoiceRepo.Delete rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// BeginReprocess resets a terminal record back to processing in a single
// conditional UPDATE. The status guard in the WHERE clause makes the
// transition atomic: two concurrent reprocess requests cannot both win.
func (r *invoiceRepo) BeginReprocess(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	query := `UPDATE invoices SET
		status = $1,
		invoice_number = NULL, invoice_date = NULL, due_date = NULL,
		vendor_name = NULL, vendor_address = NULL, customer_name = NULL, customer_address = NULL,
		subtotal = NULL, tax_amount = NULL, total_amount = NULL, currency = NULL,
		line_items = NULL, validation = NULL, diagnostics = NULL, extracted_data = NULL,
		confidence_score = NULL, processing_time_secs = 0, error_message = '',
		updated_at = $2
	WHERE id = $3 AND status != $1`

	result, err := r.db.ExecContext(ctx, query,
		domain.StatusProcessing, time.Now().UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("invoiceRepo.BeginReprocess: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("invoiceRepo.BeginReprocess rows affected: %w", err)
	}
	if rows == 0 {
		// Either the record does not exist or it is already processing.
		inv, getErr := r.GetByID(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		if inv.Status == domain.StatusProcessing {
			return nil, domain.ErrExtractionInProgress
		}
		return nil, fmt.Errorf("invoiceRepo.BeginReprocess: no rows updated for %s", id)
	}
	return r.GetByID(ctx, id)
}

func (r *invoiceRepo) MarkStaleProcessing(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	result, err := r.db.ExecContext(ctx,
		`UPDATE invoices SET
			status = $1, error_message = $2, updated_at = $3
		WHERE status = $4 AND updated_at < $5`,
		domain.StatusFailed, "extraction timed out", time.Now().UTC(),
		domain.StatusProcessing, cutoff)
	if err != nil {
		return 0, fmt.Errorf("invoiceRepo.MarkStaleProcessing: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("invoiceRepo.MarkStaleProcessing rows affected: %w", err)
	}
	return rows, nil
}
