package service

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"invox/internal/domain"
	"invox/internal/pipeline"
	"invox/internal/port"
)

const extractionMethod = "oracle_pipeline"

// UploadInvoiceInput carries an uploaded document into the service.
type UploadInvoiceInput struct {
	FileName    string
	ContentType string
	Size        int64
	Content     []byte
	CreatedBy   uuid.UUID
}

// InvoiceService owns the invoice lifecycle: upload, background extraction,
// retrieval, reprocessing, and deletion.
type InvoiceService struct {
	repo     port.InvoiceRepository
	userRepo port.UserRepository
	storage  port.ObjectStorage
	runner   *pipeline.Runner
	notifier port.Notifier

	bucket        string
	maxFileSize   int64
	presignExpiry int64
	runTimeout    time.Duration
}

func NewInvoiceService(
	repo port.InvoiceRepository,
	userRepo port.UserRepository,
	storage port.ObjectStorage,
	runner *pipeline.Runner,
	notifier port.Notifier,
	bucket string,
	maxFileSizeMB int64,
	presignExpiry int64,
	runTimeout time.Duration,
) *InvoiceService {
	if runTimeout <= 0 {
		runTimeout = 5 * time.Minute
	}
	return &InvoiceService{
		repo:          repo,
		userRepo:      userRepo,
		storage:       storage,
		runner:        runner,
		notifier:      notifier,
		bucket:        bucket,
		maxFileSize:   maxFileSizeMB * 1024 * 1024,
		presignExpiry: presignExpiry,
		runTimeout:    runTimeout,
	}
}

// Upload stores the document, creates a processing record, and launches
// extraction in the background. The returned record is the initial
// processing snapshot.
func (s *InvoiceService) Upload(ctx context.Context, input UploadInvoiceInput) (*domain.Invoice, error) {
	if err := s.validateUpload(input); err != nil {
		return nil, err
	}

	inv := &domain.Invoice{
		ID:               uuid.New(),
		FileName:         input.FileName,
		S3Bucket:         s.bucket,
		S3Key:            fmt.Sprintf("uploads/%s/%s", uuid.New(), filepath.Base(input.FileName)),
		UploadDate:       time.Now().UTC(),
		Status:           domain.StatusProcessing,
		ExtractionMethod: extractionMethod,
		CreatedBy:        input.CreatedBy,
	}

	if _, err := s.storage.Upload(ctx, port.UploadInput{
		Bucket:      inv.S3Bucket,
		Key:         inv.S3Key,
		Body:        bytes.NewReader(input.Content),
		ContentType: input.ContentType,
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUploadFailed, err)
	}

	if err := s.repo.Create(ctx, inv); err != nil {
		return nil, fmt.Errorf("creating invoice record: %w", err)
	}

	log.Printf("invoiceService.Upload: created invoice %s for file %q", inv.ID, inv.FileName)

	// Copy before launching the goroutine so the caller's value is
	// independent of background work.
	result := *inv
	go s.extractInBackground(inv.ID)
	return &result, nil
}

func (s *InvoiceService) validateUpload(input UploadInvoiceInput) error {
	if _, ok := domain.AllowedContentTypes[strings.ToLower(input.ContentType)]; !ok {
		if _, ok := domain.FileTypeFromName(input.FileName); !ok {
			return domain.ErrUnsupportedFileType
		}
	}
	if s.maxFileSize > 0 && input.Size > s.maxFileSize {
		return domain.ErrFileTooLarge
	}
	if len(input.Content) == 0 {
		return fmt.Errorf("%w: empty upload", domain.ErrUnreadableDocument)
	}
	return nil
}

// extractInBackground runs the pipeline on its own context so the HTTP
// request that triggered it can return immediately.
func (s *InvoiceService) extractInBackground(id uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
	defer cancel()

	log.Printf("invoiceService.extractInBackground: starting extraction for invoice %s", id)

	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		log.Printf("invoiceService.extractInBackground: failed to load invoice %s: %v", id, err)
		return
	}

	content, err := s.storage.Download(ctx, inv.S3Bucket, inv.S3Key)
	if err != nil {
		inv.Status = domain.StatusFailed
		inv.ErrorMessage = fmt.Sprintf("downloading document: %v", err)
		if updateErr := s.repo.Update(ctx, inv); updateErr != nil {
			log.Printf("invoiceService.extractInBackground: failed to mark %s failed: %v", id, updateErr)
		}
		return
	}

	if runErr := s.runner.Run(ctx, inv, content); runErr != nil {
		log.Printf("invoiceService.extractInBackground: extraction failed for %s: %v", id, runErr)
	}

	if err := s.repo.Update(ctx, inv); err != nil {
		log.Printf("invoiceService.extractInBackground: failed to save results for %s: %v", id, err)
		return
	}

	log.Printf("invoiceService.extractInBackground: invoice %s finished with status %s (confidence %v)",
		id, inv.Status, inv.ConfidenceScore)

	s.notifyFinished(ctx, inv)
}

func (s *InvoiceService) notifyFinished(ctx context.Context, inv *domain.Invoice) {
	if s.notifier == nil {
		return
	}
	user, err := s.userRepo.GetByID(ctx, inv.CreatedBy)
	if err != nil {
		log.Printf("invoiceService.notifyFinished: no user for invoice %s: %v", inv.ID, err)
		return
	}
	if err := s.notifier.SendExtractionFinished(ctx, user.Email, inv); err != nil {
		log.Printf("invoiceService.notifyFinished: sending notification for %s: %v", inv.ID, err)
	}
}

func (s *InvoiceService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *InvoiceService) List(ctx context.Context) ([]domain.Invoice, error) {
	return s.repo.List(ctx)
}

func (s *InvoiceService) ListCompleted(ctx context.Context) ([]domain.Invoice, error) {
	return s.repo.ListCompleted(ctx)
}

// Delete removes the record and its stored document. Object deletion is
// best-effort: a dangling S3 object is preferable to a record that cannot
// be deleted.
func (s *InvoiceService) Delete(ctx context.Context, id uuid.UUID) error {
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.storage.Delete(ctx, inv.S3Bucket, inv.S3Key); err != nil {
		log.Printf("invoiceService.Delete: failed to delete object %s/%s: %v", inv.S3Bucket, inv.S3Key, err)
	}
	return s.repo.Delete(ctx, id)
}

// DeleteAll removes every invoice record and its stored document.
func (s *InvoiceService) DeleteAll(ctx context.Context) (int, error) {
	invoices, err := s.repo.List(ctx)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for i := range invoices {
		if err := s.Delete(ctx, invoices[i].ID); err != nil {
			log.Printf("invoiceService.DeleteAll: failed to delete %s: %v", invoices[i].ID, err)
			continue
		}
		deleted++
	}
	return deleted, nil
}

// Reprocess resets a terminal record to processing and runs extraction
// again against the stored document. A record still processing is
// rejected with domain.ErrExtractionInProgress.
func (s *InvoiceService) Reprocess(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	inv, err := s.repo.BeginReprocess(ctx, id)
	if err != nil {
		return nil, err
	}
	log.Printf("invoiceService.Reprocess: invoice %s reset to processing", id)
	result := *inv
	go s.extractInBackground(id)
	return &result, nil
}

// FileURL returns a presigned download URL for the original document.
func (s *InvoiceService) FileURL(ctx context.Context, id uuid.UUID) (string, error) {
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return s.storage.GetPresignedURL(ctx, inv.S3Bucket, inv.S3Key, s.presignExpiry)
}
