package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/nikhilbhutani/knowledgebase/internal/api/handlers"
	"github.com/nikhilbhutani/knowledgebase/internal/api/middleware"
	"github.com/nikhilbhutani/knowledgebase/internal/auth"
	"github.com/nikhilbhutani/knowledgebase/internal/chat"
	"github.com/nikhilbhutani/knowledgebase/internal/conversation"
	"github.com/nikhilbhutani/knowledgebase/internal/document"
	"github.com/nikhilbhutani/knowledgebase/internal/llm"
	"github.com/nikhilbhutani/knowledgebase/internal/scrape"
	"github.com/nikhilbhutani/knowledgebase/internal/search"
	"github.com/nikhilbhutani/knowledgebase/internal/stats"
)

// Deps is everything the HTTP layer serves. cmd/api builds it from config;
// tests build it from in-memory stores.
type Deps struct {
	Documents     *document.Service
	PDF           *document.PDFIngester
	Extractor     *scrape.Extractor
	Chat          *chat.Service
	Search        *search.Service
	Digester      *search.ServiceDigester
	Stats         *stats.Service
	Conversations *conversation.Service
	Gateway       llm.Gateway
	JWT           *auth.JWTMiddleware
	RateLimiter   *middleware.RateLimiter

	DefaultModel   string
	AllowedOrigins []string
	Environment    map[string]bool
	Readiness      map[string]handlers.Pinger
}

type Router struct {
	mux  *chi.Mux
	deps Deps
}

func NewRouter(deps Deps) *Router {
	if len(deps.AllowedOrigins) == 0 {
		deps.AllowedOrigins = []string{"*"}
	}
	return &Router{mux: chi.NewRouter(), deps: deps}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux
	d := rt.deps

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(d.AllowedOrigins))
	if d.RateLimiter != nil {
		r.Use(d.RateLimiter.Limit)
	}

	// Health endpoints (no auth)
	health := handlers.NewHealthHandler(d.Readiness)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	docH := handlers.NewDocumentHandler(d.Documents)
	ingestH := handlers.NewIngestHandler(d.Extractor, d.PDF)
	chatH := handlers.NewChatHandler(d.Chat)
	searchH := handlers.NewSearchHandler(d.Search, d.Digester)
	statsH := handlers.NewStatsHandler(d.Stats)
	convH := handlers.NewConversationHandler(d.Conversations)
	debugH := handlers.NewDebugHandler(d.Documents, d.Gateway, d.DefaultModel, d.Environment)

	// The UI calls everything under /api
	r.Route("/api", func(r chi.Router) {
		r.Use(d.JWT.Authenticate)

		r.Route("/documents", func(r chi.Router) {
			r.Get("/", docH.List)
			r.Post("/", docH.Create)
			r.Get("/{id}", docH.Get)
			r.Put("/{id}", docH.Update)
			r.Delete("/{id}", docH.Delete)
		})

		r.Get("/fetch-url", ingestH.FetchURL)
		r.Post("/upload-pdf", ingestH.UploadPDF)

		r.Post("/chat", chatH.Chat)

		r.Post("/search", searchH.Search)
		r.Post("/search/services", searchH.Services)

		r.Get("/stats", statsH.Get)
		r.Post("/stats", statsH.Update)

		r.Get("/conversations", convH.Get)
		r.Post("/conversations", convH.Append)

		r.Route("/debug", func(r chi.Router) {
			r.Get("/status", debugH.Status)
			r.Get("/documents", debugH.Documents)
		})
	})

	return r
}
