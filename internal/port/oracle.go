package port

import "context"

// CompletionRequest carries one prompt for the text-understanding oracle.
type CompletionRequest struct {
	System string
	Prompt string
}

// Oracle abstracts the text-in/text-out language-model capability used by
// both the extraction stages and the query engine. Implementations must be
// safe for concurrent use and honor ctx cancellation.
type Oracle interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
