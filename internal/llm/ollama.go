package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultOllamaModel = "llama3"

// OllamaProvider talks to a local Ollama daemon. Local models have no cost
// and no attachment support.
type OllamaProvider struct {
	baseURL    string
	httpClient *http.Client
}

func NewOllamaProvider(baseURL string) *OllamaProvider {
	return &OllamaProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

func (p *OllamaProvider) Name() string { return "ollama" }

func (p *OllamaProvider) Models() []string {
	return []string{defaultOllamaModel, "mistral"}
}

type ollamaChatReq struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  *ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64  `json:"temperature,omitempty"`
	NumPredict  int      `json:"num_predict,omitempty"`
	TopP        float64  `json:"top_p,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

type ollamaChatResp struct {
	Message         Message `json:"message"`
	PromptEvalCount int     `json:"prompt_eval_count"`
	EvalCount       int     `json:"eval_count"`
}

func decodeOllamaError(body io.Reader) string {
	var e struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(body).Decode(&e)
	return e.Error
}

func (p *OllamaProvider) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if len(req.Attachments) > 0 {
		return nil, ErrAttachmentsUnsupported
	}
	start := time.Now()
	model := req.Model
	if model == "" {
		model = defaultOllamaModel
	}

	oReq := ollamaChatReq{Model: model, Messages: req.Messages}
	if req.Temperature > 0 || req.MaxTokens > 0 || req.TopP > 0 || len(req.Stop) > 0 {
		oReq.Options = &ollamaOptions{
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
			TopP:        req.TopP,
			Stop:        req.Stop,
		}
	}

	var oResp ollamaChatResp
	if err := postJSON(ctx, p.httpClient, p.baseURL+"/api/chat", nil, oReq, &oResp, decodeOllamaError); err != nil {
		return nil, fmt.Errorf("ollama chat: %w", err)
	}

	return &ChatResponse{
		Provider:     "ollama",
		Model:        model,
		Content:      oResp.Message.Content,
		InputTokens:  oResp.PromptEvalCount,
		OutputTokens: oResp.EvalCount,
		TotalTokens:  oResp.PromptEvalCount + oResp.EvalCount,
		LatencyMs:    time.Since(start).Milliseconds(),
	}, nil
}
