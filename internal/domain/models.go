package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Invoice is the accumulating result of one extraction run. Header, financial,
// and line-item fields stay nil until the owning pipeline stage fills them in;
// they serialize as explicit null so consumers can tell "not yet extracted"
// from "absent key".
type Invoice struct {
	ID         uuid.UUID        `db:"id" json:"id"`
	FileName   string           `db:"file_name" json:"file_name"`
	S3Bucket   string           `db:"s3_bucket" json:"-"`
	S3Key      string           `db:"s3_key" json:"-"`
	UploadDate time.Time        `db:"upload_date" json:"upload_date"`
	Status     ExtractionStatus `db:"status" json:"status"`

	InvoiceNumber   *string `db:"invoice_number" json:"invoice_number"`
	InvoiceDate     *string `db:"invoice_date" json:"invoice_date"`
	DueDate         *string `db:"due_date" json:"due_date"`
	VendorName      *string `db:"vendor_name" json:"vendor_name"`
	VendorAddress   *string `db:"vendor_address" json:"vendor_address"`
	CustomerName    *string `db:"customer_name" json:"customer_name"`
	CustomerAddress *string `db:"customer_address" json:"customer_address"`

	Subtotal    *float64 `db:"subtotal" json:"subtotal"`
	TaxAmount   *float64 `db:"tax_amount" json:"tax_amount"`
	TotalAmount *float64 `db:"total_amount" json:"total_amount"`
	Currency    *string  `db:"currency" json:"currency"`

	LineItems LineItems `db:"line_items" json:"line_items"`

	// Validation and Diagnostics are jsonb blobs written by the validation
	// stage and the orchestrator respectively.
	Validation  json.RawMessage `db:"validation" json:"validation"`
	Diagnostics Diagnostics     `db:"diagnostics" json:"diagnostics"`

	// ExtractedData is the raw merged view of everything the oracle returned,
	// kept for the detail view and for chat grounding.
	ExtractedData json.RawMessage `db:"extracted_data" json:"extracted_data"`

	ConfidenceScore  *float64 `db:"confidence_score" json:"confidence_score"`
	ProcessingTime   float64  `db:"processing_time_secs" json:"processing_time_secs"`
	ExtractionMethod string   `db:"extraction_method" json:"extraction_method"`
	ErrorMessage     string   `db:"error_message" json:"error_message"`

	CreatedBy uuid.UUID `db:"created_by" json:"created_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// LineItem is a single extracted invoice line. Pointers distinguish a field
// the oracle could not read from a genuine zero.
type LineItem struct {
	Description *string  `json:"description"`
	Quantity    *float64 `json:"quantity"`
	UnitPrice   *float64 `json:"unit_price"`
	TotalPrice  *float64 `json:"total_price"`
}

// LineItems is an ordered list of LineItem stored as jsonb. Insertion order
// is document order.
type LineItems []LineItem

// Value implements driver.Valuer for jsonb storage.
func (l LineItems) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner for jsonb retrieval.
func (l *LineItems) Scan(src interface{}) error {
	return scanJSON(src, l, "LineItems")
}

// ValidationSummary records the outcome of the reconciliation stage.
// ExtractedTotal always preserves the oracle's original value for audit,
// even when AutoCorrected overwrote the record's total_amount.
type ValidationSummary struct {
	TotalsMatch       bool          `json:"totals_match"`
	CalculatedTotal   float64       `json:"calculated_total"`
	ExtractedTotal    float64       `json:"extracted_total"`
	Difference        float64       `json:"difference"`
	AutoCorrected     bool          `json:"auto_corrected"`
	ItemsMissingTotal int           `json:"items_missing_total"`
	Checks            []CheckResult `json:"checks,omitempty"`
}

// CheckResult records a single arithmetic consistency check on a line item.
type CheckResult struct {
	Passed        bool   `json:"passed"`
	FieldPath     string `json:"field_path"`
	ExpectedValue string `json:"expected_value"`
	ActualValue   string `json:"actual_value"`
	Message       string `json:"message"`
}

// StageDiagnostic records how one pipeline stage ended, so detail views can
// explain why a field group is null.
type StageDiagnostic struct {
	Stage    string       `json:"stage"`
	Outcome  StageOutcome `json:"outcome"`
	Attempts int          `json:"attempts"`
	Error    string       `json:"error,omitempty"`
}

// Diagnostics is the ordered list of stage diagnostics stored as jsonb.
type Diagnostics []StageDiagnostic

func (d Diagnostics) Value() (driver.Value, error) {
	if d == nil {
		return nil, nil
	}
	return json.Marshal(d)
}

func (d *Diagnostics) Scan(src interface{}) error {
	return scanJSON(src, d, "Diagnostics")
}

func scanJSON(src, dst interface{}, what string) error {
	if src == nil {
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported scan type %T for %s", src, what)
	}
}

// ChatTurn is one stateless question/answer exchange about a completed
// invoice. No conversation history is persisted.
type ChatTurn struct {
	Message   string    `json:"message"`
	InvoiceID uuid.UUID `json:"invoice_id"`
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
}

// User represents an authenticated user.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FullName     string    `db:"full_name" json:"full_name"`
	Role         UserRole  `db:"role" json:"role"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
