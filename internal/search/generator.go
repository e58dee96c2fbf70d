package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nikhilbhutani/knowledgebase/internal/apperr"
	"github.com/nikhilbhutani/knowledgebase/internal/chat"
	"github.com/nikhilbhutani/knowledgebase/internal/llm"
	"github.com/nikhilbhutani/knowledgebase/internal/models"
	"github.com/nikhilbhutani/knowledgebase/internal/scrape"
)

// MaxSources caps the source list of an answer.
const MaxSources = 5

// Tier names the strategy that produced an answer.
type Tier string

const (
	TierPrimary   Tier = "primary"
	TierWebSearch Tier = "web_search"
	TierKeyword   Tier = "keyword"
)

// Result is either Answered or Failed.
type Result interface {
	result()
}

type Answered struct {
	Tier    Tier
	Text    string
	Sources []models.SourceRef
}

type Failed struct {
	Reason string
}

func (Answered) result() {}
func (Failed) result()   {}

// PDFChat answers a conversation about an attached PDF.
type PDFChat interface {
	Reply(ctx context.Context, req chat.Request) (string, error)
}

// WebSearch returns result titles and snippets for a query.
type WebSearch interface {
	Search(ctx context.Context, query string) ([]scrape.Hit, error)
}

type Generator struct {
	gateway     llm.Gateway
	pdfChat     PDFChat
	web         WebSearch
	model       string
	temperature float64
}

func NewGenerator(gateway llm.Gateway, pdfChat PDFChat, web WebSearch, model string, temperature float64) *Generator {
	return &Generator{gateway: gateway, pdfChat: pdfChat, web: web, model: model, temperature: temperature}
}

// Question is one query with everything needed to answer it.
type Question struct {
	Text    string
	General bool
	Docs    []models.Document
	Context Context
}

// Generate walks the tiers in order and returns the first answer. Failed is
// only returned when the context is done before any tier could answer.
func (g *Generator) Generate(ctx context.Context, q Question) Result {
	text, sources, err := g.primary(ctx, q)
	if err == nil {
		return Answered{Tier: TierPrimary, Text: text, Sources: sources}
	}
	slog.Warn("primary answer failed, trying web search", "error", err)
	if ctx.Err() != nil {
		return Failed{Reason: ctx.Err().Error()}
	}

	text, sources, err = g.webSearch(ctx, q.Text)
	if err == nil {
		return Answered{Tier: TierWebSearch, Text: text, Sources: sources}
	}
	slog.Warn("web search fallback failed, using keyword match", "error", err)
	if ctx.Err() != nil {
		return Failed{Reason: ctx.Err().Error()}
	}

	text, sources = keywordMatch(q.Text, q.Docs)
	return Answered{Tier: TierKeyword, Text: text, Sources: sources}
}

func (g *Generator) primary(ctx context.Context, q Question) (string, []models.SourceRef, error) {
	if pdf, ok := q.Context.PrimaryPDF(); ok {
		if g.pdfChat == nil {
			return "", nil, errors.New("pdf chat not configured")
		}
		reply, err := g.pdfChat.Reply(ctx, chat.Request{
			Messages: []chat.Message{{Role: models.RoleUser, Content: q.Text}},
			Context: &chat.DocumentContext{
				Title:   pdf.Document.Title,
				Type:    pdf.Document.Type,
				Content: pdf.PDF.TextContent,
				Source:  pdf.Document.Source,
			},
			FileBase64: pdf.PDF.Base64,
			FileMime:   "application/pdf",
		})
		if err != nil {
			return "", nil, fmt.Errorf("pdf answer: %w", err)
		}
		if strings.TrimSpace(reply) == "" {
			return "", nil, apperr.ErrEmptyGeneration
		}
		return reply, relevantSources(q.Text, reply, q.Docs, &pdf.Document), nil
	}

	if g.gateway == nil || !g.gateway.Configured() {
		return "", nil, llm.ErrNoProvider
	}
	resp, err := g.gateway.Chat(ctx, llm.ChatRequest{
		Model:       g.model,
		Temperature: g.temperature,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: answerPrompt(q.General, q.Context.Text != "")},
			{Role: llm.RoleUser, Content: answerInput(q)},
		},
	})
	if err != nil {
		return "", nil, fmt.Errorf("text answer: %w", err)
	}
	if strings.TrimSpace(resp.Content) == "" {
		return "", nil, apperr.ErrEmptyGeneration
	}
	return resp.Content, relevantSources(q.Text, resp.Content, q.Docs, nil), nil
}

func answerPrompt(general, hasContext bool) string {
	if general {
		p := "You are a knowledgeable assistant. Answer the question clearly and accurately using your general knowledge."
		if hasContext {
			p += " The user's knowledge base is included below; mention it only where it is directly relevant."
		}
		return p
	}
	return "You are an assistant answering questions about the user's personal knowledge base. " +
		"Answer using only the documents provided. If the documents do not contain the answer, say so " +
		"rather than making one up, and mention which documents you used."
}

func answerInput(q Question) string {
	if q.Context.Text == "" {
		return "Question: " + q.Text
	}
	return fmt.Sprintf("Knowledge base:\n%s\nQuestion: %s", q.Context.Text, q.Text)
}

func (g *Generator) webSearch(ctx context.Context, query string) (string, []models.SourceRef, error) {
	if g.web == nil {
		return "", nil, errors.New("web search not configured")
	}
	hits, err := g.web.Search(ctx, query)
	if err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "I couldn't reach the AI service, but here is what I found on the web for %q:\n\n", query)
	sources := make([]models.SourceRef, 0, len(hits))
	for i, h := range hits {
		fmt.Fprintf(&sb, "%d. **%s**\n", i+1, h.Title)
		if h.Snippet != "" {
			fmt.Fprintf(&sb, "%s\n", h.Snippet)
		}
		if h.URL != "" {
			fmt.Fprintf(&sb, "%s\n", h.URL)
		}
		sb.WriteString("\n")
		if len(sources) < MaxSources {
			sources = append(sources, models.SourceRef{
				ID:    fmt.Sprintf("web-%d", i+1),
				Title: h.Title,
				Type:  models.DocTypeWeb,
				URL:   h.URL,
			})
		}
	}
	sb.WriteString("*These results come from a web search and were not verified against your knowledge base.*")
	return sb.String(), sources, nil
}

func keywordMatch(query string, docs []models.Document) (string, []models.SourceRef) {
	terms := QueryTerms(query)
	sources := []models.SourceRef{}
	for _, d := range docs {
		if len(sources) == MaxSources {
			break
		}
		if mentionsAny(d, terms) {
			sources = append(sources, models.SourceFor(d))
		}
	}

	if len(sources) == 0 {
		return "I couldn't generate an answer right now, and no documents in your knowledge base match your question.", sources
	}
	titles := make([]string, len(sources))
	for i, s := range sources {
		titles[i] = s.Title
	}
	return fmt.Sprintf("I couldn't generate an answer right now. These documents in your knowledge base may be relevant: %s.",
		strings.Join(titles, ", ")), sources
}

// relevantSources applies the term heuristic: a document is relevant when a
// query term appears in its title or content, or its title is echoed in the
// answer. pinned, when set, always comes first.
func relevantSources(query, answer string, docs []models.Document, pinned *models.Document) []models.SourceRef {
	terms := QueryTerms(query)
	lowerAnswer := strings.ToLower(answer)
	sources := []models.SourceRef{}
	if pinned != nil {
		sources = append(sources, models.SourceFor(*pinned))
	}
	for _, d := range docs {
		if len(sources) == MaxSources {
			break
		}
		if pinned != nil && d.ID == pinned.ID {
			continue
		}
		title := strings.ToLower(strings.TrimSpace(d.Title))
		if mentionsAny(d, terms) || (title != "" && strings.Contains(lowerAnswer, title)) {
			sources = append(sources, models.SourceFor(d))
		}
	}
	return sources
}

func mentionsAny(d models.Document, terms []string) bool {
	title := strings.ToLower(d.Title)
	content := strings.ToLower(d.Content.PlainText())
	for _, t := range terms {
		if strings.Contains(title, t) || strings.Contains(content, t) {
			return true
		}
	}
	return false
}
