// Package extract pulls plain text out of uploaded invoice documents.
package extract

import (
	"context"
	"fmt"

	"invox/internal/domain"
)

// Result holds the outcome of text extraction for a single document.
type Result struct {
	// Text is the full document text. Pages are joined with form feed
	// markers so downstream prompts can reference page boundaries.
	Text string

	// Pages is the number of pages the document contained.
	Pages int
}

// Extractor converts raw document bytes into plain text.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the text content of the document. It returns
// domain.ErrUnreadableDocument when the bytes cannot be parsed at all or
// no page yields text. A document whose pages parse but contain only
// whitespace succeeds; what to make of empty text is the caller's call.
func (e *Extractor) Extract(ctx context.Context, content []byte, fileType domain.FileType) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(content) == 0 {
		return nil, fmt.Errorf("%w: empty file", domain.ErrUnreadableDocument)
	}

	switch fileType {
	case domain.FileTypePDF:
		return extractPDF(content)
	default:
		return nil, fmt.Errorf("%w: unsupported file type %q", domain.ErrUnreadableDocument, fileType)
	}
}

