package generate

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/loomlm/loom/internal/logger"
	"github.com/loomlm/loom/internal/logits"
)

// DefaultEOSToken is the end-of-sequence marker looked up in the vocabulary
// when Config.EOSToken is empty.
const DefaultEOSToken = "<|endoftext|>"

// Config is the immutable per-session configuration. It is owned by the
// Session for its lifetime; there is no process-wide sampling state.
type Config struct {
	Sampling logits.SamplerConfig

	// RepeatPenalty of 1.0 disables the repeat filter.
	RepeatPenalty float32
	// RepeatLastN bounds how many trailing tokens count as "recent".
	RepeatLastN int

	// MaxTokens is the per-prompt generation budget.
	MaxTokens int

	// EOSToken overrides the vocabulary name of the stop marker.
	EOSToken string

	// Verbose surfaces per-token diagnostics. It never changes sampling
	// outcomes.
	Verbose bool
}

// Session drives decoding of one prompt at a time against a borrowed model
// and tokenizer. The model's cache is the only shared mutable state; the
// session resets it exactly once per completed or aborted prompt and never
// mid-generation.
type Session struct {
	model   Model
	tok     Tokenizer
	sampler *logits.Sampler
	cfg     Config
	eosID   int
	log     logger.Logger
}

// NewSession validates the configuration and resolves the end-of-sequence
// token. A missing marker is reported immediately as
// *UnknownSpecialTokenError rather than on the first prompt.
func NewSession(model Model, tok Tokenizer, cfg Config, log logger.Logger) (*Session, error) {
	if log == nil {
		log = logger.Default()
	}
	name := cfg.EOSToken
	if name == "" {
		name = DefaultEOSToken
	}
	eosID, ok := tok.TokenID(name)
	if !ok {
		return nil, &UnknownSpecialTokenError{Name: name}
	}
	log.Info("session ready",
		"seed", cfg.Sampling.Seed,
		"temperature", cfg.Sampling.Temperature,
		"top_p", cfg.Sampling.TopP,
		"repeat_penalty", cfg.RepeatPenalty,
		"repeat_last_n", cfg.RepeatLastN,
		"eos_id", eosID)
	return &Session{
		model:   model,
		tok:     tok,
		sampler: logits.NewSampler(cfg.Sampling),
		cfg:     cfg,
		eosID:   eosID,
		log:     log,
	}, nil
}

// Generate decodes a single prompt, streaming decoded fragments to stream
// as they are produced. The end-of-sequence token counts toward
// Stats.TokensGenerated but is never decoded or emitted. The model cache is
// reset exactly once on the way out, for both completed and aborted
// prompts.
func (s *Session) Generate(ctx context.Context, prompt string, stream StreamFunc) (Stats, error) {
	var stats Stats

	ids, err := s.tok.Encode(prompt)
	if err != nil {
		return stats, fmt.Errorf("encode prompt: %w", err)
	}
	if len(ids) == 0 {
		return stats, ErrEmptyPrompt
	}

	if s.cfg.Verbose {
		for _, id := range ids {
			text, _ := s.tok.Decode([]int{id})
			s.log.Debug("prompt token", "id", id, "text", text)
		}
	}

	seq := append([]int(nil), ids...)
	defer s.model.Reset()

	start := time.Now()
	for step := 0; step < s.cfg.MaxTokens; step++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		input, err := NextInput(seq, step)
		if err != nil {
			return stats, err
		}

		lg, err := s.model.Forward(ctx, input)
		if err != nil {
			return stats, &ForwardError{Step: step, Err: err}
		}

		lg = logits.ApplyRepeatPenalty(lg, s.cfg.RepeatPenalty, seq, s.cfg.RepeatLastN)

		next, err := s.sampler.Sample(lg)
		if err != nil {
			return stats, err
		}

		seq = append(seq, next)
		stats.TokensGenerated++

		if next == s.eosID {
			break
		}

		frag, err := s.tok.Decode([]int{next})
		if err != nil {
			s.log.Warn("decode token", "id", next, "error", err)
			continue
		}
		if s.cfg.Verbose {
			s.log.Debug("generated token", "step", step, "id", next, "text", frag)
		}
		if stream != nil {
			stream(frag)
		}
	}

	stats.Duration = time.Since(start)
	if secs := stats.Duration.Seconds(); secs > 0 {
		stats.TPS = float64(stats.TokensGenerated) / secs
	}
	return stats, nil
}

// Run reads prompts line by line from r until end of stream. Per-prompt
// failures (empty prompt, degenerate logits) are reported to the sink and
// the next line is read; model forward failures and context cancellation
// end the session with an error.
func (s *Session) Run(ctx context.Context, r io.Reader, sink Sink) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		stats, err := s.Generate(ctx, sc.Text(), sink.Fragment)
		if err != nil {
			var fwd *ForwardError
			if errors.As(err, &fwd) || ctx.Err() != nil {
				sink.PromptFailed(err)
				return err
			}
			sink.PromptFailed(err)
			continue
		}
		sink.PromptDone(stats)
	}
	return sc.Err()
}
