// Package pdftext extracts plain text from PDF documents one page at a time.
package pdftext

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/ledongthuc/pdf"
)

// Extractor reads PDFs with github.com/ledongthuc/pdf.
type Extractor struct{}

// PagesFromFile returns the text of each page, in order. Pages without a
// content dictionary come back as "".
func (Extractor) PagesFromFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return pages(f, st.Size())
}

func (Extractor) PagesFromBytes(data []byte) ([]string, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty pdf")
	}
	return pages(bytes.NewReader(data), int64(len(data)))
}

// pages recovers from parser panics; ledongthuc/pdf panics on some
// malformed streams instead of returning an error.
func pages(r io.ReaderAt, size int64) (out []string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out = nil
			err = fmt.Errorf("pdf parse panic: %v", rec)
		}
	}()
	doc, err := pdf.NewReader(r, size)
	if err != nil {
		return nil, err
	}
	total := doc.NumPage()
	out = make([]string, 0, total)
	for i := 1; i <= total; i++ {
		p := doc.Page(i)
		if p.V.IsNull() {
			out = append(out, "")
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		out = append(out, text)
	}
	return out, nil
}
