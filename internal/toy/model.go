// Package toy provides a tiny deterministic language model implementing the
// generation loop's Model capability. It exists so the binary can run end
// to end without external weights and so tests exercise a real forward
// pass. The "key-value cache" is a running hidden state: each token folds
// its embedding into the state, so feeding only the newest token continues
// where the previous call left off.
package toy

import (
	"context"
	"fmt"
	"math/rand"
)

const decay = 0.85

type LM struct {
	vocab  int
	hidden int

	emb  [][]float32 // [vocab][hidden]
	proj [][]float32 // [hidden][vocab]
	bias []float32   // [vocab]

	// incremental state, cleared by Reset
	h   []float32
	pos int
}

// New constructs a model with deterministic weights derived from seed.
func New(vocab, hidden int, seed int64) *LM {
	rng := rand.New(rand.NewSource(seed))
	m := &LM{
		vocab:  vocab,
		hidden: hidden,
		emb:    randMat(rng, vocab, hidden),
		proj:   randMat(rng, hidden, vocab),
		bias:   make([]float32, vocab),
		h:      make([]float32, hidden),
	}
	return m
}

func randMat(rng *rand.Rand, rows, cols int) [][]float32 {
	m := make([][]float32, rows)
	for i := range m {
		m[i] = make([]float32, cols)
		for j := range m[i] {
			m[i][j] = float32(rng.NormFloat64()) * 0.1
		}
	}
	return m
}

// VocabSize returns the width of the logits vector.
func (m *LM) VocabSize() int {
	return m.vocab
}

// Forward folds each token into the hidden state and returns logits for
// the last position. Token ids outside the vocabulary are an input error.
func (m *LM) Forward(ctx context.Context, tokens []int) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("forward: empty token slice")
	}
	for _, tok := range tokens {
		if tok < 0 || tok >= m.vocab {
			return nil, fmt.Errorf("forward: token id %d outside vocabulary of %d", tok, m.vocab)
		}
		for i := range m.h {
			m.h[i] = m.h[i]*decay + m.emb[tok][i]
		}
		m.pos++
	}

	logits := make([]float32, m.vocab)
	copy(logits, m.bias)
	for i, hv := range m.h {
		if hv == 0 {
			continue
		}
		row := m.proj[i]
		for j := range logits {
			logits[j] += hv * row[j]
		}
	}
	return logits, nil
}

// Reset clears the incremental state. Idempotent.
func (m *LM) Reset() {
	for i := range m.h {
		m.h[i] = 0
	}
	m.pos = 0
}
