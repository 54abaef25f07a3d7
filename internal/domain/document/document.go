// Package document describes text extracted from an uploaded filing.
package document

import (
	"bytes"
	"context"
	"fmt"
	"strings"
)

// Page is one non-empty page of extracted text. Numbers start at 1.
type Page struct {
	Number int    `json:"page_number"`
	Text   string `json:"text"`
}

// Document is the extractor output. When Success is false, FullText is empty
// and Error explains why.
type Document struct {
	Success    bool   `json:"success"`
	TotalPages int    `json:"total_pages"`
	FullText   string `json:"full_text"`
	Pages      []Page `json:"pages"`
	Error      string `json:"error,omitempty"`
}

// Extractor turns a file on disk into text.
type Extractor interface {
	Extract(ctx context.Context, path string) Document
}

// FromPages assembles a successful document. Pages whose text is blank are
// counted in totalPages but left out of Pages and FullText.
func FromPages(totalPages int, texts []string) Document {
	doc := Document{Success: true, TotalPages: totalPages, Pages: []Page{}}
	blocks := make([]string, 0, len(texts))
	for i, t := range texts {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		doc.Pages = append(doc.Pages, Page{Number: i + 1, Text: t})
		blocks = append(blocks, fmt.Sprintf("--- Page %d ---\n%s", i+1, t))
	}
	doc.FullText = strings.Join(blocks, "\n\n")
	return doc
}

// Failed builds an unsuccessful document.
func Failed(err error) Document {
	msg := "extraction failed"
	if err != nil {
		msg = err.Error()
	}
	return Document{Success: false, Pages: []Page{}, Error: msg}
}

var pdfMagic = []byte("%PDF-")

// IsPDF reports whether header starts with the PDF signature.
func IsPDF(header []byte) bool {
	return bytes.HasPrefix(header, pdfMagic)
}
