package logits

// SamplingError reports a logits vector no token could be drawn from,
// typically because it is empty or contains no finite values.
type SamplingError struct {
	Reason string
}

func (e *SamplingError) Error() string {
	return "sampling: " + e.Reason
}
