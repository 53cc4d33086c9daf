package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"invox/internal/domain"
	"invox/internal/extract"
	"invox/internal/pipeline"
	"invox/internal/port"
	"invox/mocks"
)

type fixedExtractor struct {
	text string
	err  error
}

func (f *fixedExtractor) Extract(_ context.Context, _ []byte, _ domain.FileType) (*extract.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &extract.Result{Text: f.text, Pages: 1}, nil
}

type serviceFixture struct {
	repo     *mocks.MockInvoiceRepository
	userRepo *mocks.MockUserRepository
	storage  *mocks.MockObjectStorage
	oracle   *mocks.MockOracle
	notifier *mocks.MockNotifier
	svc      *InvoiceService
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		repo:     new(mocks.MockInvoiceRepository),
		userRepo: new(mocks.MockUserRepository),
		storage:  new(mocks.MockObjectStorage),
		oracle:   new(mocks.MockOracle),
		notifier: new(mocks.MockNotifier),
	}
	runner := pipeline.NewRunner(f.oracle, &fixedExtractor{text: "Invoice INV-1 from Acme"}, 1, 0)
	f.svc = NewInvoiceService(f.repo, f.userRepo, f.storage, runner, f.notifier,
		"test-bucket", 10, 900, time.Minute)
	return f
}

func TestValidateUpload_UnsupportedType(t *testing.T) {
	f := newServiceFixture(t)
	err := f.svc.validateUpload(UploadInvoiceInput{
		FileName:    "invoice.exe",
		ContentType: "application/octet-stream",
		Size:        10,
		Content:     []byte("x"),
	})
	assert.ErrorIs(t, err, domain.ErrUnsupportedFileType)
}

func TestValidateUpload_FileTooLarge(t *testing.T) {
	f := newServiceFixture(t)
	err := f.svc.validateUpload(UploadInvoiceInput{
		FileName:    "invoice.pdf",
		ContentType: "application/pdf",
		Size:        11 * 1024 * 1024,
		Content:     []byte("x"),
	})
	assert.ErrorIs(t, err, domain.ErrFileTooLarge)
}

func TestValidateUpload_EmptyContent(t *testing.T) {
	f := newServiceFixture(t)
	err := f.svc.validateUpload(UploadInvoiceInput{
		FileName:    "invoice.pdf",
		ContentType: "application/pdf",
		Size:        0,
	})
	assert.ErrorIs(t, err, domain.ErrUnreadableDocument)
}

func TestValidateUpload_FallsBackToExtension(t *testing.T) {
	f := newServiceFixture(t)
	// Browsers sometimes send a generic content type; the extension
	// still identifies the document.
	err := f.svc.validateUpload(UploadInvoiceInput{
		FileName:    "invoice.pdf",
		ContentType: "application/octet-stream",
		Size:        10,
		Content:     []byte("x"),
	})
	assert.NoError(t, err)
}

func TestUpload_CreatesProcessingRecord(t *testing.T) {
	f := newServiceFixture(t)
	userID := uuid.New()

	f.storage.On("Upload", mock.Anything, mock.MatchedBy(func(in port.UploadInput) bool {
		return in.Bucket == "test-bucket" && in.ContentType == "application/pdf"
	})).Return(&port.UploadOutput{Location: "s3://test-bucket/key"}, nil).Once()
	f.repo.On("Create", mock.Anything, mock.MatchedBy(func(inv *domain.Invoice) bool {
		return inv.Status == domain.StatusProcessing &&
			inv.FileName == "invoice.pdf" &&
			inv.CreatedBy == userID &&
			inv.ConfidenceScore == nil
	})).Return(nil).Once()

	// Background extraction races this test; allow its calls without
	// asserting them here.
	f.repo.On("GetByID", mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound).Maybe()

	inv, err := f.svc.Upload(context.Background(), UploadInvoiceInput{
		FileName:    "invoice.pdf",
		ContentType: "application/pdf",
		Size:        5,
		Content:     []byte("dummy"),
		CreatedBy:   userID,
	})

	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, inv.Status)
	assert.Contains(t, inv.S3Key, "invoice.pdf")
	f.storage.AssertExpectations(t)
	f.repo.AssertCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestUpload_StorageFailureAbortsUpload(t *testing.T) {
	f := newServiceFixture(t)

	f.storage.On("Upload", mock.Anything, mock.Anything).Return(nil, assert.AnError).Once()

	_, err := f.svc.Upload(context.Background(), UploadInvoiceInput{
		FileName:    "invoice.pdf",
		ContentType: "application/pdf",
		Size:        5,
		Content:     []byte("dummy"),
	})

	assert.ErrorIs(t, err, domain.ErrUploadFailed)
	f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestExtractInBackground_CompletesAndNotifies(t *testing.T) {
	f := newServiceFixture(t)
	userID := uuid.New()
	inv := &domain.Invoice{
		ID:        uuid.New(),
		FileName:  "invoice.pdf",
		S3Bucket:  "test-bucket",
		S3Key:     "uploads/x/invoice.pdf",
		Status:    domain.StatusProcessing,
		CreatedBy: userID,
	}

	f.repo.On("GetByID", mock.Anything, inv.ID).Return(inv, nil).Once()
	f.storage.On("Download", mock.Anything, "test-bucket", inv.S3Key).Return([]byte("%PDF"), nil).Once()
	f.oracle.On("Complete", mock.Anything, mock.Anything).Return(`{}`, nil)
	f.repo.On("Update", mock.Anything, mock.MatchedBy(func(got *domain.Invoice) bool {
		return got.Status == domain.StatusCompleted && got.ConfidenceScore != nil
	})).Return(nil).Once()
	f.userRepo.On("GetByID", mock.Anything, userID).Return(&domain.User{ID: userID, Email: "u@example.com"}, nil).Once()
	f.notifier.On("SendExtractionFinished", mock.Anything, "u@example.com", mock.Anything).Return(nil).Once()

	f.svc.extractInBackground(inv.ID)

	f.repo.AssertExpectations(t)
	f.notifier.AssertExpectations(t)
}

func TestExtractInBackground_DownloadFailureMarksFailed(t *testing.T) {
	f := newServiceFixture(t)
	inv := &domain.Invoice{
		ID:       uuid.New(),
		FileName: "invoice.pdf",
		S3Bucket: "test-bucket",
		S3Key:    "uploads/x/invoice.pdf",
		Status:   domain.StatusProcessing,
	}

	f.repo.On("GetByID", mock.Anything, inv.ID).Return(inv, nil).Once()
	f.storage.On("Download", mock.Anything, "test-bucket", inv.S3Key).Return(nil, assert.AnError).Once()
	f.repo.On("Update", mock.Anything, mock.MatchedBy(func(got *domain.Invoice) bool {
		return got.Status == domain.StatusFailed && got.ErrorMessage != ""
	})).Return(nil).Once()

	f.svc.extractInBackground(inv.ID)

	f.repo.AssertExpectations(t)
	f.oracle.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
	f.notifier.AssertNotCalled(t, "SendExtractionFinished", mock.Anything, mock.Anything, mock.Anything)
}

func TestDelete_RemovesRecordDespiteStorageError(t *testing.T) {
	f := newServiceFixture(t)
	inv := &domain.Invoice{ID: uuid.New(), S3Bucket: "test-bucket", S3Key: "k"}

	f.repo.On("GetByID", mock.Anything, inv.ID).Return(inv, nil).Once()
	f.storage.On("Delete", mock.Anything, "test-bucket", "k").Return(assert.AnError).Once()
	f.repo.On("Delete", mock.Anything, inv.ID).Return(nil).Once()

	err := f.svc.Delete(context.Background(), inv.ID)

	assert.NoError(t, err)
	f.repo.AssertExpectations(t)
}

func TestReprocess_ConflictWhileProcessing(t *testing.T) {
	f := newServiceFixture(t)
	id := uuid.New()
	f.repo.On("BeginReprocess", mock.Anything, id).Return(nil, domain.ErrExtractionInProgress).Once()

	_, err := f.svc.Reprocess(context.Background(), id)

	assert.ErrorIs(t, err, domain.ErrExtractionInProgress)
}

func TestFileURL(t *testing.T) {
	f := newServiceFixture(t)
	inv := &domain.Invoice{ID: uuid.New(), S3Bucket: "test-bucket", S3Key: "k"}

	f.repo.On("GetByID", mock.Anything, inv.ID).Return(inv, nil).Once()
	f.storage.On("GetPresignedURL", mock.Anything, "test-bucket", "k", int64(900)).
		Return("https://signed.example.com/k", nil).Once()

	url, err := f.svc.FileURL(context.Background(), inv.ID)

	require.NoError(t, err)
	assert.Equal(t, "https://signed.example.com/k", url)
}
