package main

import (
	"bufio"
	"io"
	"strings"
)

type StreamMode string

const (
	// StreamInstant flushes every fragment as it arrives.
	StreamInstant StreamMode = "instant"
	// StreamQuiet accumulates output and prints it only on Flush.
	StreamQuiet StreamMode = "quiet"
)

// StreamWriter delivers decoded fragments to stdout.
type StreamWriter struct {
	mode        StreamMode
	buffer      *bufio.Writer
	accumulator strings.Builder
}

func NewStreamWriter(mode StreamMode, out io.Writer) *StreamWriter {
	if mode != StreamQuiet {
		mode = StreamInstant
	}
	return &StreamWriter{
		mode:   mode,
		buffer: bufio.NewWriterSize(out, 4096),
	}
}

// Write handles a single fragment.
func (w *StreamWriter) Write(fragment string) {
	w.accumulator.WriteString(fragment)
	if w.mode == StreamInstant {
		_, _ = w.buffer.WriteString(fragment)
		_ = w.buffer.Flush()
	}
}

// Flush writes any held output and returns the accumulated text. The
// accumulator is cleared so the writer can serve the next prompt.
func (w *StreamWriter) Flush() string {
	text := w.accumulator.String()
	if w.mode == StreamQuiet {
		_, _ = w.buffer.WriteString(text)
	}
	_ = w.buffer.Flush()
	w.accumulator.Reset()
	return text
}
