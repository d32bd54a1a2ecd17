// Package vectortest provides deterministic embedders for tests.
package vectortest

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// KeywordEmbedder maps text onto a fixed vocabulary: dimension i counts the
// occurrences of Vocab[i]. Texts sharing vocabulary words end up close in
// cosine distance, which is enough to drive retrieval tests.
type KeywordEmbedder struct {
	Vocab []string
	// Err, when set, is returned from every call.
	Err error

	mu    sync.Mutex
	calls int
}

func NewKeywordEmbedder(vocab ...string) *KeywordEmbedder {
	return &KeywordEmbedder{Vocab: vocab}
}

func (e *KeywordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.Err != nil {
		return nil, e.Err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, len(e.Vocab)+1)
		words := strings.Fields(strings.ToLower(t))
		for _, w := range words {
			w = strings.Trim(w, ".,!?;:")
			for j, term := range e.Vocab {
				if w == term {
					v[j]++
				}
			}
		}
		// bias dimension keeps out-of-vocabulary text from being a zero vector
		v[len(e.Vocab)] = 0.01
		out[i] = v
	}
	return out, nil
}

// Calls returns how many Embed calls were made.
func (e *KeywordEmbedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

var ErrEmbedDown = errors.New("embedder down")
