package llm

import (
	"context"
	"errors"
)

var (
	// ErrAttachmentsUnsupported is returned by providers that cannot accept
	// inline binary parts. The gateway skips retries and moves to the fallback.
	ErrAttachmentsUnsupported = errors.New("provider does not accept attachments")
	// ErrNoProvider means no provider has credentials configured.
	ErrNoProvider = errors.New("no AI provider configured")
)

// Provider abstracts an LLM provider (Gemini, OpenAI, Anthropic, Ollama).
type Provider interface {
	ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	Name() string
	Models() []string
}

// Gateway provides multi-provider routing with fallback and retry.
type Gateway interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	Provider(name string) (Provider, error)
	Configured() bool
	ListModels() []ModelInfo
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a single chat message.
type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// Attachment is an inline binary part sent with the final user message.
type Attachment struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"` // base64
}

// ChatRequest is the input for chat completions.
type ChatRequest struct {
	Provider    string       `json:"provider,omitempty"`
	Model       string       `json:"model"`
	Messages    []Message    `json:"messages"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Temperature float64      `json:"temperature,omitempty"`
	MaxTokens   int          `json:"max_tokens,omitempty"`
	TopP        float64      `json:"top_p,omitempty"`
	Stop        []string     `json:"stop,omitempty"`
}

// ChatResponse is the output from chat completions.
type ChatResponse struct {
	ID           string  `json:"id"`
	Provider     string  `json:"provider"`
	Model        string  `json:"model"`
	Content      string  `json:"content"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	TotalTokens  int     `json:"total_tokens"`
	CostUSD      float64 `json:"cost_usd"`
	LatencyMs    int64   `json:"latency_ms"`
}

// ModelInfo describes an available model.
type ModelInfo struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// lastUserIndex is where attachments are placed.
func lastUserIndex(msgs []Message) int {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == RoleUser {
			return i
		}
	}
	return -1
}
