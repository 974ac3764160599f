package main

import (
	"bytes"
	"testing"
)

func TestStreamWriterInstant(t *testing.T) {
	var buf bytes.Buffer
	w := NewStreamWriter(StreamInstant, &buf)
	w.Write(" hello")
	if buf.String() != " hello" {
		t.Fatalf("instant mode did not flush per fragment: %q", buf.String())
	}
	w.Write(" world")
	text := w.Flush()
	if text != " hello world" {
		t.Fatalf("accumulated %q", text)
	}
	if buf.String() != " hello world" {
		t.Fatalf("output %q", buf.String())
	}
}

func TestStreamWriterQuiet(t *testing.T) {
	var buf bytes.Buffer
	w := NewStreamWriter(StreamQuiet, &buf)
	w.Write(" hello")
	w.Write(" world")
	if buf.Len() != 0 {
		t.Fatalf("quiet mode wrote before flush: %q", buf.String())
	}
	if text := w.Flush(); text != " hello world" {
		t.Fatalf("accumulated %q", text)
	}
	if buf.String() != " hello world" {
		t.Fatalf("output %q", buf.String())
	}
}

func TestStreamWriterResetsBetweenPrompts(t *testing.T) {
	var buf bytes.Buffer
	w := NewStreamWriter(StreamQuiet, &buf)
	w.Write(" one")
	w.Flush()
	w.Write(" two")
	if text := w.Flush(); text != " two" {
		t.Fatalf("accumulator leaked across prompts: %q", text)
	}
}

func TestStreamWriterUnknownModeDefaultsToInstant(t *testing.T) {
	var buf bytes.Buffer
	w := NewStreamWriter(StreamMode("typewriter"), &buf)
	w.Write("x")
	if buf.String() != "x" {
		t.Fatalf("unknown mode should behave as instant: %q", buf.String())
	}
}
