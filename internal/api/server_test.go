package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"

	"github.com/loomlm/loom/internal/generate"
	"github.com/loomlm/loom/internal/tokenizer"
)

// scriptModel emits canned logits per step; Reset rewinds the script.
type scriptModel struct {
	script [][]float32
	step   int
}

func (m *scriptModel) Forward(_ context.Context, _ []int) ([]float32, error) {
	out := m.script[m.step%len(m.script)]
	m.step++
	return append([]float32(nil), out...), nil
}

func (m *scriptModel) Reset() { m.step = 0 }

func favoring(size, id int) []float32 {
	v := make([]float32, size)
	v[id] = 10
	return v
}

func newTestEcho(qps float64) *echo.Echo {
	// vocab: 1=hello 2=world 3=eos
	tok := tokenizer.New(
		map[string]int{"hello": 1, "world": 2},
		map[string]int{"<|endoftext|>": 3},
	)
	model := &scriptModel{script: [][]float32{
		favoring(4, 2),
		favoring(4, 3),
	}}
	server := NewServer(model, tok, generate.Config{
		MaxTokens:     8,
		RepeatPenalty: 1.0,
		EOSToken:      "<|endoftext|>",
	}, qps, nil)
	e := echo.New()
	server.Register(e)
	return e
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCompletionEndpoint(t *testing.T) {
	e := newTestEcho(100)

	rec := doJSON(t, e, http.MethodPost, "/v1/completions", `{"prompt":"hello","seed":7}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body=%s", rec.Code, rec.Body.String())
	}

	var resp CompletionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !strings.HasPrefix(resp.ID, "cmpl-") {
		t.Fatalf("unexpected id %q", resp.ID)
	}
	if resp.Text != " world" {
		t.Fatalf("text = %q, want %q", resp.Text, " world")
	}
	if resp.Usage.CompletionTokens != 2 {
		t.Fatalf("completion_tokens = %d, want 2 (generated word + stop token)", resp.Usage.CompletionTokens)
	}
	if resp.Seed != 7 {
		t.Fatalf("seed = %d, want echo of request seed", resp.Seed)
	}
}

func TestCompletionValidation(t *testing.T) {
	e := newTestEcho(100)

	rec := doJSON(t, e, http.MethodPost, "/v1/completions", `{"prompt":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty prompt: status %d", rec.Code)
	}

	rec = doJSON(t, e, http.MethodPost, "/v1/completions", `{"prompt":"unknownword"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown word: status %d body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "invalid_request") {
		t.Fatalf("unexpected error body: %s", rec.Body.String())
	}

	rec = doJSON(t, e, http.MethodPost, "/v1/completions", `not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body: status %d", rec.Code)
	}
}

func TestCompletionStream(t *testing.T) {
	e := newTestEcho(100)

	rec := doJSON(t, e, http.MethodPost, "/v1/completions", `{"prompt":"hello","stream":true,"seed":1}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body=%s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"delta":" world"`) {
		t.Fatalf("missing delta event: %s", body)
	}
	if !strings.Contains(body, "data: [DONE]") {
		t.Fatalf("missing terminator: %s", body)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("content type %q", ct)
	}
}

func TestRateLimit(t *testing.T) {
	e := newTestEcho(0.5) // burst of one

	first := doJSON(t, e, http.MethodPost, "/v1/completions", `{"prompt":"hello","seed":1}`)
	if first.Code != http.StatusOK {
		t.Fatalf("first request: status %d", first.Code)
	}
	second := doJSON(t, e, http.MethodPost, "/v1/completions", `{"prompt":"hello","seed":1}`)
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: status %d, want 429", second.Code)
	}
}

func TestHealth(t *testing.T) {
	e := newTestEcho(100)
	rec := doJSON(t, e, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
}
