package generate

// NextInput returns the minimal token slice to submit to the model at the
// given decoding step. Step 0 feeds the whole sequence to prime the model's
// key-value cache; every later step feeds only the most recently appended
// token, since the cache already holds the effect of the rest.
//
// The returned slice aliases seq. Pure function; ErrEmptyPrompt if seq is
// empty.
func NextInput(seq []int, step int) ([]int, error) {
	if len(seq) == 0 {
		return nil, ErrEmptyPrompt
	}
	if step == 0 {
		return seq, nil
	}
	return seq[len(seq)-1:], nil
}
