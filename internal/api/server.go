package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/labstack/echo/v5"
	"golang.org/x/time/rate"

	"github.com/loomlm/loom/internal/generate"
	"github.com/loomlm/loom/internal/logger"
	"github.com/loomlm/loom/internal/logits"
	"github.com/loomlm/loom/internal/tokenizer"
)

// Server exposes the generation driver over HTTP. Generation is serialized
// with a mutex because the model owns a single key-value cache; requests
// beyond the rate limit are rejected with 429.
type Server struct {
	mu       sync.Mutex
	model    generate.Model
	tok      generate.Tokenizer
	defaults generate.Config
	limiter  *rate.Limiter
	log      logger.Logger
}

// NewServer wires the borrowed model and tokenizer with per-session
// defaults. qps bounds accepted completion requests per second.
func NewServer(model generate.Model, tok generate.Tokenizer, defaults generate.Config, qps float64, log logger.Logger) *Server {
	if log == nil {
		log = logger.Default()
	}
	if qps <= 0 {
		qps = 4
	}
	return &Server{
		model:    model,
		tok:      tok,
		defaults: defaults,
		limiter:  rate.NewLimiter(rate.Limit(qps), int(qps)+1),
		log:      log,
	}
}

// Register attaches the API routes to an echo instance.
func (s *Server) Register(e *echo.Echo) {
	e.POST("/v1/completions", s.handleCompletions)
	e.GET("/healthz", s.handleHealth)
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCompletions(c *echo.Context) error {
	if !s.limiter.Allow() {
		return writeError(c, http.StatusTooManyRequests, "rate_limited", "too many requests")
	}

	var req CompletionRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return writeError(c, http.StatusBadRequest, "invalid_request", fmt.Sprintf("decode body: %v", err))
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return writeError(c, http.StatusBadRequest, "invalid_request", "prompt is required")
	}

	cfg := s.resolveConfig(req)

	// One model, one cache: decode requests strictly in turn.
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := generate.NewSession(s.model, s.tok, cfg, s.log)
	if err != nil {
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error())
	}

	completionID := "cmpl-" + uuid.NewString()
	created := time.Now().Unix()

	if req.Stream {
		return s.streamCompletion(c, sess, req.Prompt, completionID, created)
	}

	var sb strings.Builder
	stats, err := sess.Generate(c.Request().Context(), req.Prompt, func(frag string) {
		sb.WriteString(frag)
	})
	if err != nil {
		status, errType := classifyError(err)
		return writeError(c, status, errType, err.Error())
	}

	return c.JSON(http.StatusOK, CompletionResponse{
		ID:      completionID,
		Object:  "text_completion",
		Created: created,
		Text:    sb.String(),
		Seed:    cfg.Sampling.Seed,
		Usage: Usage{
			CompletionTokens: stats.TokensGenerated,
			TokensPerSecond:  stats.TPS,
		},
	})
}

func (s *Server) streamCompletion(c *echo.Context, sess *generate.Session, prompt, completionID string, created int64) error {
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")

	flusher, ok := res.(interface{ Flush() })
	if !ok {
		return writeError(c, http.StatusBadRequest, "invalid_request", "streaming unsupported")
	}

	stats, genErr := sess.Generate(c.Request().Context(), prompt, func(frag string) {
		_ = sendSSE(res, CompletionChunk{
			ID:      completionID,
			Object:  "text_completion.chunk",
			Created: created,
			Delta:   frag,
		})
		flusher.Flush()
	})

	if genErr != nil {
		_ = sendSSE(res, map[string]any{"error": genErr.Error()})
		flusher.Flush()
		return nil
	}

	_ = sendSSE(res, CompletionChunk{
		ID:      completionID,
		Object:  "text_completion.chunk",
		Created: created,
		Done:    true,
		Usage: &Usage{
			CompletionTokens: stats.TokensGenerated,
			TokensPerSecond:  stats.TPS,
		},
	})
	_, _ = fmt.Fprint(res, "data: [DONE]\n\n")
	flusher.Flush()
	return nil
}

// resolveConfig overlays request fields on the server defaults. A request
// without a seed gets a fresh one so independent requests stay independent;
// the chosen seed is echoed in the response for reproducibility.
func (s *Server) resolveConfig(req CompletionRequest) generate.Config {
	cfg := s.defaults
	cfg.Sampling.Seed = time.Now().UnixNano()
	if req.Seed != nil {
		cfg.Sampling.Seed = *req.Seed
	}
	if req.Temperature != nil {
		cfg.Sampling.Temperature = *req.Temperature
	}
	if req.TopP != nil {
		cfg.Sampling.TopP = *req.TopP
	}
	if req.MaxTokens != nil && *req.MaxTokens > 0 {
		cfg.MaxTokens = *req.MaxTokens
	}
	if req.RepeatPenalty != nil {
		cfg.RepeatPenalty = float32(*req.RepeatPenalty)
	}
	if req.RepeatLastN != nil {
		cfg.RepeatLastN = *req.RepeatLastN
	}
	return cfg
}

func classifyError(err error) (int, string) {
	var (
		tokErr  *tokenizer.TokenizationError
		sampErr *logits.SamplingError
		fwdErr  *generate.ForwardError
	)
	switch {
	case errors.Is(err, generate.ErrEmptyPrompt), errors.As(err, &tokErr):
		return http.StatusBadRequest, "invalid_request"
	case errors.As(err, &sampErr):
		return http.StatusUnprocessableEntity, "sampling_error"
	case errors.As(err, &fwdErr):
		return http.StatusInternalServerError, "model_error"
	default:
		return http.StatusInternalServerError, "server_error"
	}
}

func writeError(c *echo.Context, status int, errType, msg string) error {
	return c.JSON(status, errorBody{Error: apiError{Message: msg, Type: errType}})
}

func sendSSE(w io.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", string(b))
	return err
}
