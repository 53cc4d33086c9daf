package extract

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"

	"invox/internal/domain"
)

func extractPDF(content []byte) (*Result, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("%w: open PDF: %v", domain.ErrUnreadableDocument, err)
	}

	var buf bytes.Buffer
	numPages := r.NumPage()
	extracted := 0
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single broken page does not make the whole document
			// unreadable; skip it and keep going.
			continue
		}
		if buf.Len() > 0 {
			buf.WriteByte('\f')
		}
		buf.WriteString(text)
		extracted++
	}

	if extracted == 0 {
		return nil, fmt.Errorf("%w: no readable pages", domain.ErrUnreadableDocument)
	}

	// Whitespace-only text is still a successful extraction; downstream
	// stages degrade to nulls rather than the whole run failing.
	return &Result{Text: buf.String(), Pages: numPages}, nil
}
