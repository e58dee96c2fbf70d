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

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel   = "gemini-2.0-flash"
)

// GeminiProvider calls the Gemini generateContent REST endpoint. It is the
// only provider besides Anthropic that accepts inline PDF parts.
type GeminiProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewGeminiProvider(apiKey string) *GeminiProvider {
	return &GeminiProvider{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    defaultGeminiBaseURL,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

// WithBaseURL points the provider at another endpoint (tests, proxies).
func (p *GeminiProvider) WithBaseURL(u string) *GeminiProvider {
	p.baseURL = strings.TrimRight(u, "/")
	return p
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) Models() []string {
	return []string{"gemini-2.0-flash", "gemini-1.5-flash", "gemini-1.5-pro"}
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
	TopP            float64  `json:"topP,omitempty"`
	StopSequences   []string `json:"stopSequences,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	ModelVersion string `json:"modelVersion"`
}

type geminiError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (p *GeminiProvider) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	start := time.Now()
	model := strings.TrimPrefix(strings.TrimSpace(req.Model), "models/")
	if model == "" {
		model = defaultGeminiModel
	}

	body := buildGeminiRequest(req)
	var gResp geminiResponse
	// The key travels in a header so it never appears in URL error text.
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", p.baseURL, model)
	headers := http.Header{"X-Goog-Api-Key": []string{p.apiKey}}
	if err := postJSON(ctx, p.httpClient, endpoint, headers, body, &gResp, decodeGeminiError); err != nil {
		return nil, fmt.Errorf("gemini chat: %w", err)
	}

	var sb strings.Builder
	if len(gResp.Candidates) > 0 {
		for _, part := range gResp.Candidates[0].Content.Parts {
			sb.WriteString(part.Text)
		}
	}

	usage := gResp.UsageMetadata
	return &ChatResponse{
		Provider:     "gemini",
		Model:        model,
		Content:      sb.String(),
		InputTokens:  usage.PromptTokenCount,
		OutputTokens: usage.CandidatesTokenCount,
		TotalTokens:  usage.TotalTokenCount,
		CostUSD:      CalculateCost(model, usage.PromptTokenCount, usage.CandidatesTokenCount),
		LatencyMs:    time.Since(start).Milliseconds(),
	}, nil
}

func buildGeminiRequest(req ChatRequest) geminiRequest {
	var out geminiRequest
	var system []string
	attachAt := lastUserIndex(req.Messages)

	for i, m := range req.Messages {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		c := geminiContent{Role: role}
		if i == attachAt {
			for _, a := range req.Attachments {
				c.Parts = append(c.Parts, geminiPart{InlineData: &geminiInlineData{MimeType: a.MimeType, Data: a.Data}})
			}
		}
		c.Parts = append(c.Parts, geminiPart{Text: m.Content})
		out.Contents = append(out.Contents, c)
	}

	if len(system) > 0 {
		out.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: strings.Join(system, "\n\n")}}}
	}
	if req.Temperature > 0 || req.MaxTokens > 0 || req.TopP > 0 || len(req.Stop) > 0 {
		gc := &geminiGenerationConfig{MaxOutputTokens: req.MaxTokens, TopP: req.TopP, StopSequences: req.Stop}
		if req.Temperature > 0 {
			t := req.Temperature
			gc.Temperature = &t
		}
		out.GenerationConfig = gc
	}
	return out
}

func decodeGeminiError(body io.Reader) string {
	var errResp geminiError
	_ = json.NewDecoder(body).Decode(&errResp)
	return errResp.Error.Message
}
