// Package extract pulls plain text out of uploaded source files.
package extract

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dslipak/pdf"
	"github.com/lu4p/cat"
)

// pageTimeout bounds text extraction of a single PDF page; malformed pages
// can hang the parser.
const pageTimeout = 10 * time.Second

var ErrUnsupportedFormat = errors.New("unsupported file format")

// File extracts the text content of the file at path, dispatching on the
// extension of name (the original filename of the upload).
func File(path, name string) (string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return pdfText(path)
	case ".docx", ".odt", ".rtf", ".txt", ".md":
		return cat.File(path)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(name))
	}
}

func pdfText(path string) (string, error) {
	f, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	var b strings.Builder
	numPages := f.NumPage()
	for i := 1; i <= numPages; i++ {
		page := f.Page(i)
		if page.V.IsNull() {
			continue
		}

		content, err := pageText(page)
		if err != nil {
			// Skip unreadable pages, keep the rest.
			continue
		}

		b.WriteString(content)
		b.WriteString("\n")
	}

	if b.Len() == 0 {
		return "", errors.New("no extractable text in pdf")
	}
	return b.String(), nil
}

// pageText extracts one page under a timeout.
func pageText(page pdf.Page) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	go func() {
		content, err := page.GetPlainText(nil)
		resChan <- result{content, err}
	}()

	select {
	case r := <-resChan:
		return r.content, r.err
	case <-time.After(pageTimeout):
		return "", errors.New("page extraction timed out")
	}
}
