package port

import (
	"context"

	"invox/internal/domain"
)

// Notifier defines the contract for telling a user their extraction run has
// finished. Implementations must treat delivery failure as non-fatal.
type Notifier interface {
	SendExtractionFinished(ctx context.Context, toEmail string, inv *domain.Invoice) error
}
