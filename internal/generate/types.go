package generate

import (
	"context"
	"time"
)

// Model is the capability the generation loop consumes from a transformer
// implementation. Forward submits a slice of token ids and returns logits
// over the vocabulary for the last position; the model is expected to keep
// incremental attention state (a key-value cache) between calls. Reset
// clears that state and must be idempotent.
type Model interface {
	Forward(ctx context.Context, tokens []int) ([]float32, error)
	Reset()
}

// Tokenizer is the text capability consumed by the loop.
type Tokenizer interface {
	Encode(text string) ([]int, error)
	Decode(ids []int) (string, error)
	// TokenID resolves a special token name such as "<|endoftext|>".
	TokenID(name string) (int, bool)
}

// StreamFunc receives decoded text fragments in generation order.
type StreamFunc func(fragment string)

// Stats summarises one prompt's generation.
type Stats struct {
	TokensGenerated int
	Duration        time.Duration
	TPS             float64
}

// Sink receives per-prompt outcomes from Session.Run.
type Sink interface {
	Fragment(text string)
	PromptDone(stats Stats)
	PromptFailed(err error)
}
