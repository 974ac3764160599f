package api

// CompletionRequest is the body of POST /v1/completions. Pointer fields
// distinguish "not set" from zero so server defaults can apply.
type CompletionRequest struct {
	Prompt        string   `json:"prompt"`
	MaxTokens     *int     `json:"max_tokens,omitempty"`
	Temperature   *float64 `json:"temperature,omitempty"`
	TopP          *float64 `json:"top_p,omitempty"`
	Seed          *int64   `json:"seed,omitempty"`
	RepeatPenalty *float64 `json:"repeat_penalty,omitempty"`
	RepeatLastN   *int     `json:"repeat_last_n,omitempty"`
	Stream        bool     `json:"stream,omitempty"`
}

// CompletionResponse is the non-streaming response.
type CompletionResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	Text    string `json:"text"`
	Seed    int64  `json:"seed"`
	Usage   Usage  `json:"usage"`
}

type Usage struct {
	CompletionTokens int     `json:"completion_tokens"`
	TokensPerSecond  float64 `json:"tokens_per_second"`
}

// CompletionChunk is one SSE event of a streaming completion.
type CompletionChunk struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	Delta   string `json:"delta,omitempty"`
	Done    bool   `json:"done,omitempty"`
	Usage   *Usage `json:"usage,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

type errorBody struct {
	Error apiError `json:"error"`
}
