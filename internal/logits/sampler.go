package logits

import (
	"math"
	"math/rand"
	"sort"
)

// SamplerConfig configures token selection for one generation session.
type SamplerConfig struct {
	// Seed initialises the random stream. The stream is created once and
	// advances across every Sample call in the session, so the same seed,
	// prompt and configuration replay an identical token sequence.
	Seed int64
	// Temperature scales logits before softmax. <= 0 selects greedy
	// decoding (argmax, no randomness consumed).
	Temperature float64
	// TopP is the nucleus cutoff. Values <= 0 or >= 1 disable nucleus
	// truncation and sample from the full temperature-scaled distribution.
	TopP float64
}

// Sampler turns a logits vector into a token id.
type Sampler struct {
	rng    *rand.Rand
	cfg    SamplerConfig
	greedy bool

	// scratch reused across calls
	idx  []int
	prob []float64
}

// NewSampler returns a sampler with the provided configuration.
func NewSampler(cfg SamplerConfig) *Sampler {
	return &Sampler{
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		cfg:    cfg,
		greedy: cfg.Temperature <= 0,
	}
}

// Greedy reports whether the sampler decodes deterministically.
func (s *Sampler) Greedy() bool {
	return s.greedy
}

// Sample selects the next token id from logits.
//
// Greedy mode returns the index of the maximum logit, ties broken by the
// first occurrence in vocabulary order. Otherwise the logits are scaled by
// the inverse temperature and softmaxed; if TopP is in (0,1) the
// distribution is sorted descending, truncated at the smallest prefix whose
// cumulative mass reaches TopP (the boundary element is kept), and
// renormalised before a single draw from the random stream.
func (s *Sampler) Sample(logits []float32) (int, error) {
	if len(logits) == 0 {
		return 0, &SamplingError{Reason: "empty logits vector"}
	}

	if s.greedy {
		return argmax(logits)
	}

	invTemp := 1.0 / s.cfg.Temperature

	maxv := math.Inf(-1)
	for _, l := range logits {
		v := float64(l) * invTemp
		if !math.IsInf(v, 0) && !math.IsNaN(v) && v > maxv {
			maxv = v
		}
	}
	if math.IsInf(maxv, -1) {
		return 0, &SamplingError{Reason: "no finite logit values"}
	}

	if cap(s.prob) < len(logits) {
		s.prob = make([]float64, len(logits))
		s.idx = make([]int, len(logits))
	}
	prob := s.prob[:len(logits)]
	idx := s.idx[:len(logits)]

	var sum float64
	for i, l := range logits {
		v := float64(l) * invTemp
		if math.IsInf(v, 0) || math.IsNaN(v) {
			prob[i] = 0
		} else {
			prob[i] = math.Exp(v - maxv)
		}
		idx[i] = i
		sum += prob[i]
	}
	if sum == 0 {
		return 0, &SamplingError{Reason: "probability mass is zero"}
	}
	invSum := 1.0 / sum
	for i := range prob {
		prob[i] *= invSum
	}

	if s.cfg.TopP > 0 && s.cfg.TopP < 1 {
		sort.SliceStable(idx, func(a, b int) bool {
			return prob[idx[a]] > prob[idx[b]]
		})
		cut := len(idx)
		var kept float64
		for i, id := range idx {
			kept += prob[id]
			if kept >= s.cfg.TopP {
				cut = i + 1
				break
			}
		}
		scale := 1.0 / kept
		r := s.rng.Float64()
		var acc float64
		for _, id := range idx[:cut] {
			acc += prob[id] * scale
			if r <= acc {
				return id, nil
			}
		}
		return idx[cut-1], nil
	}

	r := s.rng.Float64()
	var acc float64
	for i := range prob {
		acc += prob[i]
		if r <= acc {
			return i, nil
		}
	}
	return len(prob) - 1, nil
}

func argmax(logits []float32) (int, error) {
	best := -1
	var bestV float32
	for i, v := range logits {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		if best < 0 || v > bestV {
			best = i
			bestV = v
		}
	}
	if best < 0 {
		return 0, &SamplingError{Reason: "no finite logit values"}
	}
	return best, nil
}
