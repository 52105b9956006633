// Package docread reads the text layer of uploaded PDF documents. Vendors
// ship invoices with a real text layer, so no OCR is involved here.
package docread

import (
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// Reader extracts the text layer from a PDF held in memory.
type Reader struct{}

// NewReader creates a PDF text reader.
func NewReader() *Reader {
	return &Reader{}
}

// ReadText returns the concatenated text of every page, newline-joined.
func (r *Reader) ReadText(data []byte) (string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	pages := make([]string, 0, doc.NumPage())
	for i := 0; i < doc.NumPage(); i++ {
		text, err := doc.Text(i)
		if err != nil {
			return "", fmt.Errorf("reading page %d: %w", i, err)
		}
		pages = append(pages, text)
	}
	return strings.Join(pages, "\n"), nil
}
