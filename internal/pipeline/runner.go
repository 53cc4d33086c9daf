package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"invox/internal/domain"
	"invox/internal/extract"
	"invox/internal/oracle"
	"invox/internal/port"
	"invox/internal/validator"
)

// TextExtractor converts document bytes into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, content []byte, fileType domain.FileType) (*extract.Result, error)
}

// Runner drives a document through the extraction stages and writes the
// outcome onto the invoice record. A run never aborts mid-way: oracle
// stages that fail after retries degrade to null fields, and only an
// unreadable document fails the whole run.
type Runner struct {
	oracle      port.Oracle
	extractor   TextExtractor
	maxAttempts int
	backoff     time.Duration
}

func NewRunner(oracle port.Oracle, extractor TextExtractor, maxAttempts int, backoff time.Duration) *Runner {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Runner{
		oracle:      oracle,
		extractor:   extractor,
		maxAttempts: maxAttempts,
		backoff:     backoff,
	}
}

// Run executes the full pipeline against the document content, mutating
// inv in place. On return inv.Status is either completed or failed and
// inv.Diagnostics records every stage outcome. The returned error is
// non-nil only when the run failed terminally.
func (r *Runner) Run(ctx context.Context, inv *domain.Invoice, content []byte) error {
	start := time.Now()
	inv.Diagnostics = domain.Diagnostics{}
	defer func() {
		inv.ProcessingTime = time.Since(start).Seconds()
	}()

	text, err := r.runTextStage(ctx, inv, content)
	if err != nil {
		inv.Status = domain.StatusFailed
		inv.ErrorMessage = err.Error()
		inv.ConfidenceScore = nil
		return err
	}

	merged := map[string]any{}
	accumulated := map[string]any{}
	for _, st := range oracleStages {
		data := r.runOracleStage(ctx, inv, st, text, accumulated)
		if data != nil {
			st.apply(inv, data)
			merged[st.name] = data
			for k, v := range data {
				accumulated[k] = v
			}
		}
	}

	if len(merged) > 0 {
		if b, err := json.Marshal(merged); err == nil {
			inv.ExtractedData = b
		}
	}

	summary := validator.Reconcile(inv)
	inv.Diagnostics = append(inv.Diagnostics, domain.StageDiagnostic{
		Stage:    domain.StageValidation,
		Outcome:  domain.StageOK,
		Attempts: 1,
	})
	if b, err := json.Marshal(summary); err == nil {
		inv.Validation = b
	}

	score := validator.Score(inv, summary)
	inv.ConfidenceScore = &score
	inv.Status = domain.StatusCompleted
	inv.ErrorMessage = ""
	return nil
}

func (r *Runner) runTextStage(ctx context.Context, inv *domain.Invoice, content []byte) (string, error) {
	fileType, ok := domain.FileTypeFromName(inv.FileName)
	if !ok {
		fileType = domain.FileTypePDF
	}
	res, err := r.extractor.Extract(ctx, content, fileType)
	if err != nil {
		inv.Diagnostics = append(inv.Diagnostics, domain.StageDiagnostic{
			Stage:    domain.StageTextExtraction,
			Outcome:  domain.StageFatal,
			Attempts: 1,
			Error:    err.Error(),
		})
		if errors.Is(err, domain.ErrUnreadableDocument) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", domain.ErrUnreadableDocument, err)
	}
	inv.Diagnostics = append(inv.Diagnostics, domain.StageDiagnostic{
		Stage:    domain.StageTextExtraction,
		Outcome:  domain.StageOK,
		Attempts: 1,
	})
	return res.Text, nil
}

// runOracleStage runs one stage, retrying only while the oracle is
// unavailable. Schema violations degrade immediately: the same text would
// be rejected again. Returns the decoded data on success, or nil when the
// stage degraded.
func (r *Runner) runOracleStage(ctx context.Context, inv *domain.Invoice, st *stage, text string, prior map[string]any) map[string]any {
	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		if attempt > 1 {
			if !r.wait(ctx, attempt) {
				lastErr = ctx.Err()
				break
			}
		}
		attempts = attempt

		data, err := r.attemptStage(ctx, st, text, prior)
		if err == nil {
			inv.Diagnostics = append(inv.Diagnostics, domain.StageDiagnostic{
				Stage:    st.name,
				Outcome:  domain.StageOK,
				Attempts: attempt,
			})
			return data
		}
		lastErr = err
		log.Printf("pipeline.Runner: stage %s attempt %d/%d for invoice %s failed: %v",
			st.name, attempt, r.maxAttempts, inv.ID, err)

		if !oracle.IsUnavailable(err) || ctx.Err() != nil {
			break
		}
	}

	errMsg := ""
	if lastErr != nil {
		errMsg = lastErr.Error()
	}
	inv.Diagnostics = append(inv.Diagnostics, domain.StageDiagnostic{
		Stage:    st.name,
		Outcome:  domain.StageDegraded,
		Attempts: attempts,
		Error:    errMsg,
	})
	return nil
}

func (r *Runner) attemptStage(ctx context.Context, st *stage, text string, prior map[string]any) (map[string]any, error) {
	raw, err := r.oracle.Complete(ctx, port.CompletionRequest{
		System: st.system,
		Prompt: st.prompt(text, prior),
	})
	if err != nil {
		return nil, err
	}
	data, err := DecodeOracleJSON(raw)
	if err != nil {
		return nil, &SchemaViolationError{Stage: st.name, Err: err}
	}
	coerceNumbers(data)
	if err := validateAgainst(st.schema, data); err != nil {
		return nil, &SchemaViolationError{Stage: st.name, Err: err}
	}
	return data, nil
}

// wait sleeps for an exponential backoff before a retry, honoring ctx.
// Returns false if the context was cancelled while waiting.
func (r *Runner) wait(ctx context.Context, attempt int) bool {
	d := r.backoff * time.Duration(1<<(attempt-2))
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
