package noop

import (
	"context"
	"log"

	"invox/internal/domain"
	"invox/internal/port"
)

type noopNotifier struct{}

// NewNoopNotifier creates a no-op Notifier that logs instead of sending.
func NewNoopNotifier() port.Notifier {
	return &noopNotifier{}
}

func (s *noopNotifier) SendExtractionFinished(_ context.Context, toEmail string, inv *domain.Invoice) error {
	log.Printf("[NOOP EMAIL] Extraction finished notification for %s: invoice %s (%s) status=%s",
		toEmail, inv.ID, inv.FileName, inv.Status)
	return nil
}
