package service

import (
	"context"
	"log"
	"time"

	"invox/internal/port"
)

// ReaperConfig holds settings for the stale extraction reaper.
type ReaperConfig struct {
	Interval   time.Duration
	StaleAfter time.Duration
}

// StaleReaper periodically fails invoices stuck in processing, typically
// after a crash mid-extraction. Without it an abandoned run would look
// in-progress forever.
type StaleReaper struct {
	repo port.InvoiceRepository
	cfg  ReaperConfig
}

// NewStaleReaper creates a new StaleReaper.
func NewStaleReaper(repo port.InvoiceRepository, cfg ReaperConfig) *StaleReaper {
	return &StaleReaper{repo: repo, cfg: cfg}
}

// Start runs the reaper loop until ctx is canceled.
func (r *StaleReaper) Start(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	log.Printf("staleReaper: started (interval=%s, staleAfter=%s)", r.cfg.Interval, r.cfg.StaleAfter)

	for {
		select {
		case <-ctx.Done():
			log.Printf("staleReaper: shutdown complete")
			return
		case <-ticker.C:
			n, err := r.repo.MarkStaleProcessing(ctx, r.cfg.StaleAfter)
			if err != nil {
				if ctx.Err() != nil {
					continue
				}
				log.Printf("staleReaper: MarkStaleProcessing error: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("staleReaper: failed %d stale processing invoice(s)", n)
			}
		}
	}
}
