package oracle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"invox/internal/port"
)

// circuitState tracks unavailability backoff for a single provider.
type circuitState struct {
	mu      sync.RWMutex
	resetAt time.Time // zero value = closed (healthy)
}

func (c *circuitState) isOpenWithReset(now time.Time) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resetAt, !c.resetAt.IsZero() && now.Before(c.resetAt)
}

func (c *circuitState) open(resetAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetAt = resetAt
}

// Fallback tries providers in order, skipping those with open circuits.
// It implements port.Oracle.
type Fallback struct {
	oracles  []port.Oracle
	circuits []*circuitState
	names    []string
}

// NewFallback creates a Fallback from an ordered list of oracles and their
// provider names.
func NewFallback(oracles []port.Oracle, names []string) *Fallback {
	circuits := make([]*circuitState, len(oracles))
	for i := range circuits {
		circuits[i] = &circuitState{}
	}
	return &Fallback{
		oracles:  oracles,
		circuits: circuits,
		names:    names,
	}
}

func (f *Fallback) Complete(ctx context.Context, req port.CompletionRequest) (string, error) {
	now := time.Now()
	var lastErr error
	allUnavailable := true
	var earliestReset time.Time

	for i, o := range f.oracles {
		if resetAt, open := f.circuits[i].isOpenWithReset(now); open {
			log.Printf("oracle.Fallback: skipping %s (circuit open until %s)", f.names[i], resetAt.Format(time.RFC3339))
			if earliestReset.IsZero() || resetAt.Before(earliestReset) {
				earliestReset = resetAt
			}
			continue
		}

		out, err := o.Complete(ctx, req)
		if err == nil {
			return out, nil
		}

		log.Printf("oracle.Fallback: %s failed: %v", f.names[i], err)
		lastErr = err

		var ue *UnavailableError
		if errors.As(err, &ue) {
			resetAt := now.Add(ue.RetryAfter)
			f.circuits[i].open(resetAt)
			if earliestReset.IsZero() || resetAt.Before(earliestReset) {
				earliestReset = resetAt
			}
		} else {
			allUnavailable = false
		}
	}

	if lastErr == nil || allUnavailable {
		// Every provider was skipped or transiently down.
		retryAfter := time.Until(earliestReset)
		if retryAfter < 0 {
			retryAfter = time.Second
		}
		return "", NewUnavailableError("all", fmt.Errorf("all oracle providers unavailable"), int(retryAfter.Seconds()))
	}

	return "", fmt.Errorf("all oracle providers failed: %w", lastErr)
}
