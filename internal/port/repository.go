package port

import (
	"context"
	"time"

	"github.com/google/uuid"

	"invox/internal/domain"
)

// InvoiceRepository abstracts invoice record persistence. The store is a
// simple key/value surface; single-record updates are atomic and no
// cross-record transactions are required.
type InvoiceRepository interface {
	Create(ctx context.Context, inv *domain.Invoice) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error)
	List(ctx context.Context) ([]domain.Invoice, error)
	ListCompleted(ctx context.Context) ([]domain.Invoice, error)
	Update(ctx context.Context, inv *domain.Invoice) error
	Delete(ctx context.Context, id uuid.UUID) error

	// BeginReprocess flips a non-processing record back to processing,
	// clearing prior results. It fails with domain.ErrExtractionInProgress
	// when the record is already being worked on, enforcing the
	// at-most-one-writer invariant.
	BeginReprocess(ctx context.Context, id uuid.UUID) (*domain.Invoice, error)

	// MarkStaleProcessing fails records stuck in processing for longer than
	// olderThan, so abandoned runs are distinguishable from successes.
	MarkStaleProcessing(ctx context.Context, olderThan time.Duration) (int64, error)
}

// UserRepository abstracts user persistence.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	CountAll(ctx context.Context) (int, error)
}
