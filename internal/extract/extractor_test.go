package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"invox/internal/domain"
)

func TestExtract_EmptyContent(t *testing.T) {
	e := NewExtractor()
	_, err := e.Extract(context.Background(), nil, domain.FileTypePDF)
	assert.ErrorIs(t, err, domain.ErrUnreadableDocument)
}

func TestExtract_UnsupportedFileType(t *testing.T) {
	e := NewExtractor()
	_, err := e.Extract(context.Background(), []byte("content"), domain.FileType("docx"))
	assert.ErrorIs(t, err, domain.ErrUnreadableDocument)
}

func TestExtract_GarbageBytes(t *testing.T) {
	e := NewExtractor()
	_, err := e.Extract(context.Background(), []byte("this is not a pdf"), domain.FileTypePDF)
	assert.ErrorIs(t, err, domain.ErrUnreadableDocument)
}

func TestExtract_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewExtractor()
	_, err := e.Extract(ctx, []byte("%PDF-1.4"), domain.FileTypePDF)
	assert.ErrorIs(t, err, context.Canceled)
}

