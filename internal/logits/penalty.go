package logits

// ApplyRepeatPenalty attenuates the logits of token ids that appear in the
// trailing lastN entries of seq. Positive logits are divided by penalty,
// negative logits multiplied, so probability mass always moves away from
// recently seen tokens. The scaling is applied once per distinct token id
// no matter how many times the id occurs inside the window.
//
// A penalty of 1.0 disables the filter and the input slice is returned
// untouched; otherwise logits is modified in place and returned.
func ApplyRepeatPenalty(logits []float32, penalty float32, seq []int, lastN int) []float32 {
	if penalty == 1.0 || len(seq) == 0 || lastN <= 0 {
		return logits
	}

	start := len(seq) - lastN
	if start < 0 {
		start = 0
	}
	window := seq[start:]

	seen := make(map[int]struct{}, len(window))
	for _, id := range window {
		if id < 0 || id >= len(logits) {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if logits[id] > 0 {
			logits[id] /= penalty
		} else {
			logits[id] *= penalty
		}
	}
	return logits
}
