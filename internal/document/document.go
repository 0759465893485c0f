// Package document extracts plain text from uploaded JD and CV files.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

// ErrNoText is returned when a document parses fine but yields no extractable
// text. Callers must treat it as a legitimate outcome, not a transport failure.
var ErrNoText = errors.New("document contains no extractable text")

var emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// Document is a raw uploaded file. The caller owns the bytes for the duration
// of one extraction call.
type Document struct {
	Name string
	Data []byte
}

// Text extracts plain text from the document. The format is sniffed from the
// leading bytes: PDF and DOCX are parsed, anything else is treated as plain
// text. Pages that fail to extract contribute an empty string instead of
// aborting the whole document.
func Text(doc Document) (string, error) {
	var text string
	var err error

	switch {
	case bytes.HasPrefix(doc.Data, []byte("%PDF")):
		text, err = pdfText(doc.Data)
	case bytes.HasPrefix(doc.Data, []byte("PK\x03\x04")):
		text, err = docxText(doc.Data)
	default:
		text = string(doc.Data)
	}

	if err != nil {
		return "", fmt.Errorf("extracting text from %s: %w", doc.Name, err)
	}

	if strings.TrimSpace(text) == "" {
		return "", ErrNoText
	}

	return text, nil
}

// FindEmail scans raw document text for the first email address. Used to
// backfill candidate records when the model omits the email field.
func FindEmail(text string) string {
	return emailRe.FindString(text)
}

func pdfText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("reading pdf: %w", err)
	}

	var builder strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		// A single bad page must not abort the document.
		text, _ := page.GetPlainText(nil)

		if builder.Len() > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString(text)
	}

	return builder.String(), nil
}

func docxText(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("reading docx: %w", err)
	}
	defer doc.Close()

	return doc.Editable().GetContent(), nil
}
