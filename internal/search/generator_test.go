package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/knowledgebase/internal/chat"
	"github.com/nikhilbhutani/knowledgebase/internal/llm"
	"github.com/nikhilbhutani/knowledgebase/internal/models"
	"github.com/nikhilbhutani/knowledgebase/internal/scrape"
)

type fakeGateway struct {
	reply string
	err   error
	calls int
	last  llm.ChatRequest
}

func (g *fakeGateway) Chat(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	g.calls++
	g.last = req
	if g.err != nil {
		return nil, g.err
	}
	return &llm.ChatResponse{Content: g.reply}, nil
}

func (g *fakeGateway) Provider(string) (llm.Provider, error) { return nil, errors.New("unused") }
func (g *fakeGateway) Configured() bool                      { return true }
func (g *fakeGateway) ListModels() []llm.ModelInfo           { return nil }

type fakePDFChat struct {
	reply string
	err   error
	last  chat.Request
}

func (c *fakePDFChat) Reply(_ context.Context, req chat.Request) (string, error) {
	c.last = req
	return c.reply, c.err
}

type fakeWeb struct {
	hits []scrape.Hit
	err  error
}

func (w *fakeWeb) Search(context.Context, string) ([]scrape.Hit, error) { return w.hits, w.err }

func TestGeneratePrimaryText(t *testing.T) {
	gw := &fakeGateway{reply: "Go was designed at Google."}
	g := NewGenerator(gw, &fakePDFChat{}, &fakeWeb{}, "gemini-2.0-flash", 0.2)

	docs := []models.Document{textDoc("Go notes", "Go has goroutines."), textDoc("Recipes", "Bread needs flour.")}
	q := Question{Text: "who designed golang goroutines", Docs: docs, Context: Assemble(docs, false)}

	res := g.Generate(context.Background(), q)
	a, ok := res.(Answered)
	require.True(t, ok)
	assert.Equal(t, TierPrimary, a.Tier)
	assert.Equal(t, "Go was designed at Google.", a.Text)
	require.Len(t, a.Sources, 1)
	assert.Equal(t, "Go notes", a.Sources[0].Title)
	assert.Contains(t, gw.last.Messages[1].Content, "Go has goroutines.")
	assert.Contains(t, gw.last.Messages[0].Content, "only the documents provided")
}

func TestGeneratePrimaryPDFPinsDocument(t *testing.T) {
	pdfChat := &fakePDFChat{reply: "The resume shows five years of Go."}
	gw := &fakeGateway{}
	g := NewGenerator(gw, pdfChat, &fakeWeb{}, "", 0)

	resume := pdfDoc("Resume")
	docs := []models.Document{resume}
	res := g.Generate(context.Background(), Question{Text: "summarize my resume", Docs: docs, Context: Assemble(docs, false)})

	a, ok := res.(Answered)
	require.True(t, ok)
	assert.Equal(t, TierPrimary, a.Tier)
	require.Len(t, a.Sources, 1)
	assert.Equal(t, resume.ID.String(), a.Sources[0].ID)
	assert.Equal(t, "JVBERi0=", pdfChat.last.FileBase64)
	assert.Equal(t, "application/pdf", pdfChat.last.FileMime)
	assert.Equal(t, 0, gw.calls)
}

func TestGenerateFallsBackToWebSearch(t *testing.T) {
	gw := &fakeGateway{err: errors.New("quota")}
	web := &fakeWeb{hits: []scrape.Hit{{Title: "Photosynthesis", Snippet: "Plants convert light.", URL: "https://en.wikipedia.org/wiki/Photosynthesis"}}}
	g := NewGenerator(gw, nil, web, "", 0)

	res := g.Generate(context.Background(), Question{Text: "what is photosynthesis", General: true})
	a, ok := res.(Answered)
	require.True(t, ok)
	assert.Equal(t, TierWebSearch, a.Tier)
	assert.Contains(t, a.Text, "Plants convert light.")
	require.Len(t, a.Sources, 1)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Photosynthesis", a.Sources[0].URL)
}

func TestGenerateFallsBackToKeywordMatch(t *testing.T) {
	gw := &fakeGateway{reply: "  "}
	g := NewGenerator(gw, nil, &fakeWeb{err: scrape.ErrNoResults}, "", 0)

	docs := []models.Document{textDoc("Kubernetes guide", "pods and nodes"), textDoc("Recipes", "Bread")}
	res := g.Generate(context.Background(), Question{Text: "kubernetes pods", Docs: docs})

	a, ok := res.(Answered)
	require.True(t, ok)
	assert.Equal(t, TierKeyword, a.Tier)
	require.Len(t, a.Sources, 1)
	assert.Equal(t, "Kubernetes guide", a.Sources[0].Title)
	assert.Contains(t, a.Text, "Kubernetes guide")
}

func TestGenerateKeywordMatchWithNothingFound(t *testing.T) {
	g := NewGenerator(&fakeGateway{err: errors.New("down")}, nil, nil, "", 0)
	a, ok := g.Generate(context.Background(), Question{Text: "quantum"}).(Answered)
	require.True(t, ok)
	assert.Equal(t, TierKeyword, a.Tier)
	assert.NotNil(t, a.Sources)
	assert.Empty(t, a.Sources)
}

func TestGenerateFailsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := NewGenerator(&fakeGateway{err: context.Canceled}, nil, &fakeWeb{}, "", 0)

	res := g.Generate(ctx, Question{Text: "anything"})
	f, ok := res.(Failed)
	require.True(t, ok)
	assert.Contains(t, f.Reason, "canceled")
}

func TestRelevantSourcesCapsAtFive(t *testing.T) {
	var docs []models.Document
	for i := 0; i < 8; i++ {
		docs = append(docs, textDoc("golang", "golang"))
	}
	assert.Len(t, relevantSources("golang", "", docs, nil), MaxSources)
}

func TestRelevantSourcesMatchesTitleEchoedInAnswer(t *testing.T) {
	docs := []models.Document{textDoc("Quarterly Report", "numbers")}
	got := relevantSources("show revenue", "According to the quarterly report, revenue grew.", docs, nil)
	require.Len(t, got, 1)
}
