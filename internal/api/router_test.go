package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/knowledgebase/internal/auth"
	"github.com/nikhilbhutani/knowledgebase/internal/chat"
	"github.com/nikhilbhutani/knowledgebase/internal/config"
	"github.com/nikhilbhutani/knowledgebase/internal/conversation"
	"github.com/nikhilbhutani/knowledgebase/internal/document"
	"github.com/nikhilbhutani/knowledgebase/internal/llm"
	"github.com/nikhilbhutani/knowledgebase/internal/scrape"
	"github.com/nikhilbhutani/knowledgebase/internal/search"
	"github.com/nikhilbhutani/knowledgebase/internal/stats"
)

const testSecret = "test-secret"

const examplePage = `<html><head><title>Example Domain</title></head>
<body><main><h1>Example Domain</h1>
<p>This domain is for use in illustrative examples in documents. We offer consulting services for teams.</p>
</main></body></html>`

type fakeProvider struct {
	mu    sync.Mutex
	reply string
	reqs  []llm.ChatRequest
}

func (p *fakeProvider) ChatCompletion(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reqs = append(p.reqs, req)
	return &llm.ChatResponse{Provider: "gemini", Model: req.Model, Content: p.reply}, nil
}

func (p *fakeProvider) Name() string     { return "gemini" }
func (p *fakeProvider) Models() []string { return []string{"gemini-2.0-flash"} }

func (p *fakeProvider) last() llm.ChatRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reqs[len(p.reqs)-1]
}

type testEnv struct {
	handler  http.Handler
	site     *httptest.Server
	provider *fakeProvider
	results  *search.MemoryResultStore
}

// newEnv wires the full router over in-memory stores. A nil provider means
// no AI provider is configured.
func newEnv(t *testing.T, provider *fakeProvider) *testEnv {
	t.Helper()
	if provider != nil {
		return newEnvWithGateway(t, llm.NewGatewayWithProviders(testLLMConfig, provider), provider)
	}
	return newEnvWithGateway(t, llm.NewGatewayWithProviders(testLLMConfig), nil)
}

var testLLMConfig = config.LLMConfig{DefaultProvider: "gemini", DefaultModel: "gemini-2.0-flash"}

func newEnvWithGateway(t *testing.T, gateway llm.Gateway, provider *fakeProvider) *testEnv {
	t.Helper()
	cfg := testLLMConfig

	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/", "/services":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(examplePage))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(site.Close)


	extractor := scrape.NewExtractor(scrape.Options{Timeout: 5 * time.Second})
	docSvc := document.NewService(document.NewMemoryStore(), document.WithFetcher(extractor))
	chatSvc := chat.NewService(gateway, cfg.DefaultModel, 0.2)
	statsSvc := stats.NewService(stats.NewMemoryStore())
	results := search.NewMemoryResultStore()
	generator := search.NewGenerator(gateway, chatSvc, nil, cfg.DefaultModel, 0.2)

	router := NewRouter(Deps{
		Documents:     docSvc,
		PDF:           document.NewPDFIngester(1 << 20),
		Extractor:     extractor,
		Chat:          chatSvc,
		Search:        search.NewService(docSvc, generator, results, statsSvc),
		Digester:      search.NewServiceDigester(docSvc, extractor),
		Stats:         statsSvc,
		Conversations: conversation.NewService(conversation.NewMemoryStore()),
		Gateway:       gateway,
		JWT:           auth.NewJWTMiddleware(testSecret, ""),
		DefaultModel:  cfg.DefaultModel,
		Environment:   map[string]bool{"hasGoogleAI": gateway.Configured()},
	})
	return &testEnv{handler: router.Setup(), site: site, provider: provider, results: results}
}

func token(t *testing.T, owner string) string {
	t.Helper()
	tok, err := auth.SignToken(testSecret, "", owner, "", time.Hour)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, tok string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func createDoc(t *testing.T, e *testEnv, tok string, body map[string]any) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/documents", tok, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode(t, rec)["id"].(string)
}

func TestHealthIsPublic(t *testing.T) {
	e := newEnv(t, nil)
	assert.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/healthz", "", nil).Code)
	assert.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/readyz", "", nil).Code)
}

func TestRequiresAuthentication(t *testing.T) {
	e := newEnv(t, nil)
	for _, path := range []string{"/api/documents", "/api/stats", "/api/conversations", "/api/debug/status"} {
		rec := e.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		assert.Equal(t, "Unauthorized", decode(t, rec)["error"])
	}
}

func TestGetBackfillsWebDocument(t *testing.T) {
	e := newEnv(t, nil)
	tok := token(t, "user-1")

	id := createDoc(t, e, tok, map[string]any{
		"title": "Example", "type": "web", "source": e.site.URL, "content": "",
	})

	rec := e.do(t, http.MethodGet, "/api/documents/"+id, tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	content := decode(t, rec)["content"].(string)
	assert.Contains(t, content, "illustrative examples")

	// persisted, not just returned
	rec = e.do(t, http.MethodGet, "/api/documents", tok, nil)
	var docs []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &docs))
	require.Len(t, docs, 1)
	assert.Equal(t, content, docs[0]["content"])
}

func TestDocumentOwnership(t *testing.T) {
	e := newEnv(t, nil)
	owner, other := token(t, "user-1"), token(t, "user-2")

	id := createDoc(t, e, owner, map[string]any{"title": "Notes", "type": "file", "content": "private"})

	assert.Equal(t, http.StatusForbidden, e.do(t, http.MethodGet, "/api/documents/"+id, other, nil).Code)
	assert.Equal(t, http.StatusForbidden, e.do(t, http.MethodPut, "/api/documents/"+id, other, map[string]any{"title": "x"}).Code)
	assert.Equal(t, http.StatusForbidden, e.do(t, http.MethodDelete, "/api/documents/"+id, other, nil).Code)

	rec := e.do(t, http.MethodGet, "/api/documents", other, nil)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestUpdateAndDeleteDocument(t *testing.T) {
	e := newEnv(t, nil)
	tok := token(t, "user-1")
	id := createDoc(t, e, tok, map[string]any{"title": "Notes", "type": "file", "content": "v1"})

	rec := e.do(t, http.MethodPut, "/api/documents/"+id, tok, map[string]any{"content": "v2"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Notes", body["title"])
	assert.Equal(t, "v2", body["content"])

	assert.Equal(t, http.StatusOK, e.do(t, http.MethodDelete, "/api/documents/"+id, tok, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodDelete, "/api/documents/"+id, tok, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, "/api/documents/"+id, tok, nil).Code)
}

func TestCreateDocumentValidation(t *testing.T) {
	e := newEnv(t, nil)
	tok := token(t, "user-1")

	rec := e.do(t, http.MethodPost, "/api/documents", tok, map[string]any{"title": "x", "type": "video"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/documents/not-a-uuid", tok, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchGeneralKnowledge(t *testing.T) {
	e := newEnv(t, &fakeProvider{reply: "Photosynthesis converts light into chemical energy."})
	tok := token(t, "user-1")

	rec := e.do(t, http.MethodPost, "/api/search", tok, map[string]any{"query": "what is photosynthesis"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Equal(t, true, body["isGeneralKnowledge"])
	assert.Equal(t, []any{}, body["sources"])
	assert.Contains(t, body["answer"], "Photosynthesis")

	stats := decode(t, e.do(t, http.MethodGet, "/api/stats", tok, nil))
	assert.Equal(t, float64(1), stats["queriesThisMonth"])
	assert.Len(t, e.results.All(), 1)
}

func TestSearchResumeUsesAttachedPDF(t *testing.T) {
	provider := &fakeProvider{reply: "A backend engineer with five years of Go."}
	e := newEnv(t, provider)
	tok := token(t, "user-1")

	id := createDoc(t, e, tok, map[string]any{
		"title": "Resume",
		"type":  "file",
		"content": map[string]any{
			"type":        "pdf",
			"textContent": "[PDF Document: resume.pdf]",
			"fileData": map[string]any{
				"base64": "JVBERi0xLjQK", "mimeType": "application/pdf", "fileName": "resume.pdf", "fileSize": 9,
			},
		},
	})

	rec := e.do(t, http.MethodPost, "/api/search", tok, map[string]any{"query": "summarize my resume"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Equal(t, false, body["isGeneralKnowledge"])
	sources := body["sources"].([]any)
	require.Len(t, sources, 1)
	assert.Equal(t, id, sources[0].(map[string]any)["id"])

	req := provider.last()
	require.Len(t, req.Attachments, 1)
	assert.Equal(t, "application/pdf", req.Attachments[0].MimeType)
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	e := newEnv(t, nil)
	rec := e.do(t, http.MethodPost, "/api/search", token(t, "user-1"), map[string]any{"query": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing query", decode(t, rec)["error"])
}

func TestServiceDigest(t *testing.T) {
	e := newEnv(t, nil)
	tok := token(t, "user-1")
	createDoc(t, e, tok, map[string]any{"title": "Site", "type": "web", "source": e.site.URL + "/services", "content": "saved"})

	rec := e.do(t, http.MethodPost, "/api/search/services", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Len(t, body["sources"], 1)
	assert.NotEmpty(t, body["answer"])
}

func TestChat(t *testing.T) {
	t.Run("no provider", func(t *testing.T) {
		e := newEnv(t, nil)
		rec := e.do(t, http.MethodPost, "/api/chat", token(t, "u"), map[string]any{
			"messages": []map[string]string{{"role": "user", "content": "hi"}},
		})
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Missing GOOGLE_GENAI_API_KEY", decode(t, rec)["error"])
	})

	t.Run("last message not from user", func(t *testing.T) {
		e := newEnv(t, &fakeProvider{reply: "x"})
		rec := e.do(t, http.MethodPost, "/api/chat", token(t, "u"), map[string]any{
			"messages": []map[string]string{{"role": "assistant", "content": "hello"}},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "No user message found", decode(t, rec)["error"])
	})

	t.Run("reply", func(t *testing.T) {
		provider := &fakeProvider{reply: "It is about examples."}
		e := newEnv(t, provider)
		rec := e.do(t, http.MethodPost, "/api/chat", token(t, "u"), map[string]any{
			"messages":     []map[string]string{{"role": "user", "content": "what is this?"}},
			"context":      map[string]string{"title": "Example", "type": "web", "content": "Example body", "source": "https://example.com"},
			"documentType": "web",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "It is about examples.", decode(t, rec)["reply"])
		assert.Contains(t, provider.last().Messages[1].Content, "User Question: what is this?")
	})
}

func TestFetchURL(t *testing.T) {
	e := newEnv(t, nil)
	tok := token(t, "u")

	rec := e.do(t, http.MethodGet, "/api/fetch-url?url="+e.site.URL, tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Example Domain", body["title"])
	assert.NotEmpty(t, body["extractedAt"])

	rec = e.do(t, http.MethodGet, "/api/fetch-url?url="+e.site.URL+"/missing", tok, nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, "Failed to fetch content from URL", body["error"])
	assert.Contains(t, body["content"], "Failed to extract content")

	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodGet, "/api/fetch-url", tok, nil).Code)
	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodGet, "/api/fetch-url?url=notaurl", tok, nil).Code)
}

func uploadRequest(t *testing.T, fileName string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload-pdf", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token(t, "u"))
	return req
}

func TestUploadPDF(t *testing.T) {
	e := newEnv(t, nil)

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, uploadRequest(t, "notes.txt", []byte("plain text")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid file type. Please upload a PDF file.", decode(t, rec)["error"])

	rec = httptest.NewRecorder()
	e.handler.ServeHTTP(rec, uploadRequest(t, "big.pdf", bytes.Repeat([]byte("a"), 2<<20)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "File too large. Maximum size is 1MB.", decode(t, rec)["error"])

	// Bodies far past the limit are cut off while the form is still being read.
	rec = httptest.NewRecorder()
	e.handler.ServeHTTP(rec, uploadRequest(t, "huge.pdf", bytes.Repeat([]byte("a"), 8<<20)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "File too large. Maximum size is 1MB.", decode(t, rec)["error"])

	rec = httptest.NewRecorder()
	e.handler.ServeHTTP(rec, uploadRequest(t, "cv.pdf", []byte("%PDF-1.4\n")))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "JVBERi0xLjQK", body["base64Data"])
	assert.Equal(t, "cv.pdf", body["fileName"])
	assert.Equal(t, "application/pdf", body["mimeType"])
	assert.True(t, strings.HasPrefix(body["text"].(string), "[PDF Document: cv.pdf]"))
}

func TestStatsAndConversations(t *testing.T) {
	e := newEnv(t, nil)
	tok := token(t, "user-1")

	body := decode(t, e.do(t, http.MethodGet, "/api/stats", tok, nil))
	assert.Equal(t, float64(0), body["totalDocuments"])

	rec := e.do(t, http.MethodPost, "/api/stats", tok, map[string]any{"totalDocuments": 3, "totalLinks": 1})
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, e.do(t, http.MethodGet, "/api/stats", tok, nil))
	assert.Equal(t, float64(3), body["totalDocuments"])
	assert.Equal(t, float64(1), body["totalLinks"])

	rec = e.do(t, http.MethodPost, "/api/conversations", tok, map[string]any{"query": "hi", "response": "hello"})
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, true, body["success"])
	convID := body["conversationId"].(string)

	body = decode(t, e.do(t, http.MethodGet, "/api/conversations?conversationId="+convID, tok, nil))
	assert.Len(t, body["messages"], 2)

	body = decode(t, e.do(t, http.MethodGet, "/api/conversations", tok, nil))
	convs := body["conversations"].([]any)
	require.Len(t, convs, 1)
	assert.Equal(t, "hello...", convs[0].(map[string]any)["lastResponse"])
}

func TestDebugEndpoints(t *testing.T) {
	e := newEnv(t, &fakeProvider{reply: "Hello world"})
	tok := token(t, "user-1")
	createDoc(t, e, tok, map[string]any{"title": "Notes", "type": "file", "content": "some notes"})

	body := decode(t, e.do(t, http.MethodGet, "/api/debug/status", tok, nil))
	assert.Equal(t, "healthy", body["overallHealth"])

	other := token(t, "user-2")
	for i := 0; i < 3; i++ {
		createDoc(t, e, other, map[string]any{"title": "Other", "type": "file", "content": "x"})
	}

	body = decode(t, e.do(t, http.MethodGet, "/api/debug/documents", tok, nil))
	assert.Equal(t, float64(1), body["userDocuments"])
	assert.Equal(t, float64(4), body["totalDocuments"])
	docs := body["documents"].([]any)
	require.Len(t, docs, 1)
	assert.Equal(t, "some notes...", docs[0].(map[string]any)["contentPreview"])

	e = newEnv(t, nil)
	body = decode(t, e.do(t, http.MethodGet, "/api/debug/status", tok, nil))
	assert.Equal(t, "issues_detected", body["overallHealth"])
}

func TestDebugStatusHidesUpstreamErrors(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	dead.Close()

	gemini := llm.NewGeminiProvider("SECRET-KEY-123").WithBaseURL(dead.URL)
	e := newEnvWithGateway(t, llm.NewGatewayWithProviders(testLLMConfig, gemini), nil)
	tok := token(t, "user-1")

	rec := e.do(t, http.MethodGet, "/api/debug/status", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "SECRET-KEY-123")

	body := decode(t, rec)
	assert.Equal(t, "issues_detected", body["overallHealth"])
	ai := body["checks"].(map[string]any)["ai"].(map[string]any)
	assert.Equal(t, "AI ping failed", ai["error"])
}
