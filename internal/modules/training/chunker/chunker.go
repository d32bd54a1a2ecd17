// Package chunker turns a training-module PDF into page-bounded text chunks
// sized for embedding.
package chunker

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

const DefaultMaxWords = 800

// Source is a PDF given either as a path on disk or as raw bytes. Data wins
// when both are set.
type Source struct {
	Path string
	Data []byte
	Name string
}

func (s Source) label() string {
	switch {
	case s.Name != "":
		return s.Name
	case s.Path != "":
		return s.Path
	default:
		return "<bytes>"
	}
}

// PageExtractor returns the raw text of each page in order.
type PageExtractor interface {
	PagesFromFile(path string) ([]string, error)
	PagesFromBytes(data []byte) ([]string, error)
}

// PageChunk is one chunk of one page. Index is the chunk's position in the
// whole document, starting at 0.
type PageChunk struct {
	Text  string
	Page  int
	Index int
}

// ExtractionError means the source could not be opened or parsed.
type ExtractionError struct {
	Source string
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Source, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

type Chunker struct {
	extractor PageExtractor
}

func New(extractor PageExtractor) *Chunker {
	return &Chunker{extractor: extractor}
}

// Chunk extracts src and splits every page into chunks of at most maxWords
// words (DefaultMaxWords when maxWords <= 0). Chunks never span pages and a
// sentence is never cut; a sentence longer than maxWords becomes its own
// chunk.
func (c *Chunker) Chunk(ctx context.Context, src Source, maxWords int) ([]PageChunk, error) {
	if maxWords <= 0 {
		maxWords = DefaultMaxWords
	}
	var (
		pages []string
		err   error
	)
	switch {
	case len(src.Data) > 0:
		pages, err = c.extractor.PagesFromBytes(src.Data)
	case src.Path != "":
		pages, err = c.extractor.PagesFromFile(src.Path)
	default:
		err = fmt.Errorf("no pdf data or path")
	}
	if err != nil {
		return nil, &ExtractionError{Source: src.label(), Err: err}
	}

	out := make([]PageChunk, 0, len(pages))
	for i, raw := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, text := range SplitPage(raw, maxWords) {
			out = append(out, PageChunk{Text: text, Page: i + 1, Index: len(out)})
		}
	}
	return out, nil
}

// SplitPage normalizes one page of text and greedily packs its sentences.
func SplitPage(raw string, maxWords int) []string {
	text := NormalizeWhitespace(raw)
	if text == "" {
		return nil
	}
	var (
		out     []string
		current []string
		words   int
	)
	for _, sentence := range SplitSentences(text) {
		n := len(strings.Fields(sentence))
		if words+n > maxWords && len(current) > 0 {
			out = append(out, strings.Join(current, " "))
			current = current[:0]
			words = 0
		}
		current = append(current, sentence)
		words += n
	}
	if len(current) > 0 {
		out = append(out, strings.Join(current, " "))
	}
	return out
}

// SplitSentences splits normalized text after '.', '!' or '?' when followed
// by whitespace. The punctuation stays with its sentence.
func SplitSentences(text string) []string {
	var out []string
	start := 0
	runes := []rune(text)
	for i := 0; i < len(runes)-1; i++ {
		if !isTerminal(runes[i]) || !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			out = append(out, s)
		}
		start = i + 1
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// NormalizeWhitespace replaces invalid UTF-8, collapses whitespace runs to a
// single space and trims the ends.
func NormalizeWhitespace(s string) string {
	s = strings.ToValidUTF8(s, "")
	s = strings.ReplaceAll(s, "\x00", "")
	return strings.Join(strings.Fields(s), " ")
}
