package logits

import (
	"errors"
	"math"
	"testing"
)

// TestSamplerDeterminism ensures two samplers configured identically produce
// identical draws across a run of sampling calls.
func TestSamplerDeterminism(t *testing.T) {
	logs := []float32{0, 1, 2, 3, 4, 5}
	s1 := NewSampler(SamplerConfig{Seed: 42, Temperature: 0.9, TopP: 0.95})
	s2 := NewSampler(SamplerConfig{Seed: 42, Temperature: 0.9, TopP: 0.95})
	for i := 0; i < 32; i++ {
		a, err := s1.Sample(logs)
		if err != nil {
			t.Fatalf("sample: %v", err)
		}
		b, err := s2.Sample(logs)
		if err != nil {
			t.Fatalf("sample: %v", err)
		}
		if a != b {
			t.Fatalf("draw %d diverged: %d vs %d", i, a, b)
		}
	}
}

// TestSamplerGreedy tests that a zero temperature returns the index of the
// maximum logit regardless of seed.
func TestSamplerGreedy(t *testing.T) {
	logs := []float32{-1, 5, 3, 7, 2}
	for _, seed := range []int64{1, 99, 12345} {
		s := NewSampler(SamplerConfig{Seed: seed})
		idx, err := s.Sample(logs)
		if err != nil {
			t.Fatalf("sample: %v", err)
		}
		if idx != 3 {
			t.Fatalf("seed %d: expected greedy index 3, got %d", seed, idx)
		}
	}
}

func TestSamplerGreedyTieBreak(t *testing.T) {
	logs := []float32{1, 7, 7, 7}
	s := NewSampler(SamplerConfig{Seed: 0})
	idx, err := s.Sample(logs)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	if idx != 1 {
		t.Fatalf("expected first maximal index 1, got %d", idx)
	}
}

// TestSamplerGreedySkipsNonFinite checks that NaN and infinite logits never
// win the argmax.
func TestSamplerGreedySkipsNonFinite(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))
	logs := []float32{nan, inf, 2, 1}
	s := NewSampler(SamplerConfig{Seed: 0})
	idx, err := s.Sample(logs)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	if idx != 2 {
		t.Fatalf("expected index 2, got %d", idx)
	}
}

// TestSamplerTopP ensures nucleus truncation restricts sampling to the
// probability-sorted prefix. The first logit dominates after softmax, so the
// cumulative mass crosses the cutoff at the first element and only index 0
// may ever be drawn.
func TestSamplerTopP(t *testing.T) {
	logs := []float32{10, 0, 0, 0, 0}
	s := NewSampler(SamplerConfig{Seed: 7, Temperature: 1.0, TopP: 0.5})
	for i := 0; i < 20; i++ {
		idx, err := s.Sample(logs)
		if err != nil {
			t.Fatalf("sample: %v", err)
		}
		if idx != 0 {
			t.Fatalf("nucleus sampling returned index %d outside the cutoff", idx)
		}
	}
}

// TestSamplerTopPBoundary checks that truncation keeps the element that
// crosses the cutoff: with probabilities {0.5, 0.3, 0.2} and TopP=0.79 the
// cumulative mass reaches 0.8 at the second element, so the tail index 2
// must never appear while both retained indices eventually do.
func TestSamplerTopPBoundary(t *testing.T) {
	logs := []float32{
		float32(math.Log(0.5)),
		float32(math.Log(0.3)),
		float32(math.Log(0.2)),
	}
	s := NewSampler(SamplerConfig{Seed: 3, Temperature: 1.0, TopP: 0.79})
	seen := map[int]bool{}
	for i := 0; i < 200; i++ {
		idx, err := s.Sample(logs)
		if err != nil {
			t.Fatalf("sample: %v", err)
		}
		if idx == 2 {
			t.Fatal("tail index 2 drawn despite nucleus truncation")
		}
		seen[idx] = true
	}
	if !seen[0] || !seen[1] {
		t.Fatalf("expected both retained indices to be drawn, got %v", seen)
	}
}

func TestSamplerEmptyLogits(t *testing.T) {
	s := NewSampler(SamplerConfig{Seed: 1, Temperature: 0.8})
	_, err := s.Sample(nil)
	var se *SamplingError
	if !errors.As(err, &se) {
		t.Fatalf("expected SamplingError, got %v", err)
	}
}

func TestSamplerNoFiniteValues(t *testing.T) {
	nan := float32(math.NaN())
	logs := []float32{nan, nan, nan}
	for _, temp := range []float64{0, 0.7} {
		s := NewSampler(SamplerConfig{Seed: 1, Temperature: temp})
		_, err := s.Sample(logs)
		var se *SamplingError
		if !errors.As(err, &se) {
			t.Fatalf("temp=%v: expected SamplingError, got %v", temp, err)
		}
	}
}
