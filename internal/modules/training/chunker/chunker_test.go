package chunker

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/mentorbridge-backend/internal/platform/pdftext"
	"github.com/yungbote/mentorbridge-backend/internal/platform/pdftext/pdftest"
)

type fakeExtractor struct {
	pages []string
	err   error
}

func (f fakeExtractor) PagesFromFile(string) ([]string, error)  { return f.pages, f.err }
func (f fakeExtractor) PagesFromBytes([]byte) ([]string, error) { return f.pages, f.err }

// sentences returns n sentences of w words each.
func sentences(n, w int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		for j := 0; j < w-1; j++ {
			b.WriteString("word ")
		}
		b.WriteString("end. ")
	}
	return b.String()
}

func wordCount(s string) int { return len(strings.Fields(s)) }

func TestThreePagesOfTwoHundredWordsGiveThreeChunks(t *testing.T) {
	page := sentences(20, 10)
	c := New(fakeExtractor{pages: []string{page, page, page}})
	chunks, err := c.Chunk(context.Background(), Source{Data: []byte("x")}, 800)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for i, ch := range chunks {
		assert.Equal(t, i+1, ch.Page)
		assert.Equal(t, i, ch.Index)
		assert.Equal(t, 200, wordCount(ch.Text))
	}
}

func TestChunksRespectWordBoundAndNeverSpanPages(t *testing.T) {
	c := New(fakeExtractor{pages: []string{sentences(50, 7), sentences(3, 7), "", sentences(31, 7)}})
	chunks, err := c.Chunk(context.Background(), Source{Path: "m.pdf"}, 50)
	require.NoError(t, err)

	pages := map[int]int{}
	for _, ch := range chunks {
		assert.LessOrEqual(t, wordCount(ch.Text), 50)
		pages[ch.Page] += wordCount(ch.Text)
	}
	assert.Equal(t, 350, pages[1])
	assert.Equal(t, 21, pages[2])
	assert.Zero(t, pages[3], "blank page contributes no chunks")
	assert.Equal(t, 217, pages[4])
}

func TestOversizedSentenceIsOwnChunk(t *testing.T) {
	long := strings.Repeat("long ", 30) + "sentence."
	text := "Short one. " + long + " Short two."
	got := SplitPage(text, 10)
	require.Len(t, got, 3)
	assert.Equal(t, "Short one.", got[0])
	assert.Equal(t, 31, wordCount(got[1]))
	assert.Equal(t, "Short two.", got[2])
}

func TestEmptyDocumentIsNotAnError(t *testing.T) {
	c := New(fakeExtractor{pages: nil})
	chunks, err := c.Chunk(context.Background(), Source{Data: []byte("x")}, 0)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestExtractionFailureIsTyped(t *testing.T) {
	cause := errors.New("xref broken")
	c := New(fakeExtractor{err: cause})
	_, err := c.Chunk(context.Background(), Source{Name: "bad.pdf", Data: []byte("x")}, 0)
	var ee *ExtractionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "bad.pdf", ee.Source)
	assert.ErrorIs(t, err, cause)
}

func TestMissingSourceIsExtractionError(t *testing.T) {
	_, err := New(fakeExtractor{}).Chunk(context.Background(), Source{}, 0)
	var ee *ExtractionError
	assert.ErrorAs(t, err, &ee)
}

func TestSplitSentences(t *testing.T) {
	got := SplitSentences("What now? Sit down! Then read. version 2.0 is fine")
	assert.Equal(t, []string{"What now?", "Sit down!", "Then read.", "version 2.0 is fine"}, got)
}

func TestNormalizeWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", NormalizeWhitespace("  a\n\n b\t\x00c  "))
	assert.Equal(t, "", NormalizeWhitespace(" \n\t "))
}

func TestChunkRealPDF(t *testing.T) {
	data := pdftest.Build([]string{"Group work helps. Students talk.", "", "Use local materials!"})
	chunks, err := New(pdftext.Extractor{}).Chunk(context.Background(), Source{Data: data}, 800)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, 1, chunks[0].Page)
	assert.Contains(t, chunks[0].Text, "Students talk.")
	assert.Equal(t, 3, chunks[1].Page)
	assert.Equal(t, 1, chunks[1].Index)
}
