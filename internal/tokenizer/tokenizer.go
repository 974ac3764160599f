// Package tokenizer implements a word-level vocabulary tokenizer for the
// generation driver. It is deliberately simple: prompts are split on
// whitespace and every word must exist in the vocabulary. Decoded fragments
// carry a leading space so streamed output reads naturally.
package tokenizer

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-json"
)

// TokenizationError reports prompt text that cannot be encoded.
type TokenizationError struct {
	Word string
}

func (e *TokenizationError) Error() string {
	return fmt.Sprintf("word %q is not in the vocabulary", e.Word)
}

// Vocab maps words and special tokens to ids and back.
type Vocab struct {
	ids   map[string]int
	words map[int]string
}

type vocabFile struct {
	Vocab         map[string]int `json:"vocab"`
	SpecialTokens map[string]int `json:"special_tokens"`
}

// New builds a vocabulary from explicit token maps. Special tokens share
// the id space with regular words.
func New(words, specials map[string]int) *Vocab {
	v := &Vocab{
		ids:   make(map[string]int, len(words)+len(specials)),
		words: make(map[int]string, len(words)+len(specials)),
	}
	for w, id := range words {
		v.ids[w] = id
		v.words[id] = w
	}
	for w, id := range specials {
		v.ids[w] = id
		v.words[id] = w
	}
	return v
}

// Load reads a vocabulary file with "vocab" and "special_tokens" maps.
func Load(path string) (*Vocab, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary: %w", err)
	}
	var vf vocabFile
	if err := json.Unmarshal(data, &vf); err != nil {
		return nil, fmt.Errorf("parse vocabulary %s: %w", path, err)
	}
	if len(vf.Vocab) == 0 {
		return nil, fmt.Errorf("vocabulary %s has no tokens", path)
	}
	return New(vf.Vocab, vf.SpecialTokens), nil
}

// Size returns the number of vocabulary entries.
func (v *Vocab) Size() int {
	return len(v.words)
}

// MaxID returns the highest token id, or -1 for an empty vocabulary. Ids
// need not be dense; models sizing their logits vector should use
// MaxID()+1 rather than Size.
func (v *Vocab) MaxID() int {
	max := -1
	for id := range v.words {
		if id > max {
			max = id
		}
	}
	return max
}

// Encode splits text on whitespace and maps each word to its id. Empty or
// all-whitespace text yields an empty sequence with no error; an unknown
// word fails with *TokenizationError.
func (v *Vocab) Encode(text string) ([]int, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil, nil
	}
	ids := make([]int, 0, len(fields))
	for _, w := range fields {
		id, ok := v.ids[w]
		if !ok {
			return nil, &TokenizationError{Word: w}
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Decode maps ids back to text. Each word is prefixed with a space, so
// single-token fragments concatenate into readable output.
func (v *Vocab) Decode(ids []int) (string, error) {
	var b strings.Builder
	for _, id := range ids {
		w, ok := v.words[id]
		if !ok {
			return "", fmt.Errorf("token id %d is not in the vocabulary", id)
		}
		b.WriteString(" ")
		b.WriteString(w)
	}
	return b.String(), nil
}

// TokenID resolves a token (typically a special marker) by its surface
// form.
func (v *Vocab) TokenID(name string) (int, bool) {
	id, ok := v.ids[name]
	return id, ok
}
