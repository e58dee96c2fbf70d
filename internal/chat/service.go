package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nikhilbhutani/knowledgebase/internal/apperr"
	"github.com/nikhilbhutani/knowledgebase/internal/llm"
	"github.com/nikhilbhutani/knowledgebase/internal/models"
)

// MaxContextLength bounds the document text sent with a question.
const MaxContextLength = 28000

const truncatedMarker = "... [content truncated]"

// DocumentContext is the document a conversation is about.
type DocumentContext struct {
	Title   string              `json:"title"`
	Type    models.DocumentType `json:"type"`
	Content string              `json:"content"`
	Source  string              `json:"source"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Request struct {
	Messages     []Message        `json:"messages"`
	Context      *DocumentContext `json:"context,omitempty"`
	DocumentType string           `json:"documentType,omitempty"`
	FileBase64   string           `json:"fileBase64,omitempty"`
	FileMime     string           `json:"fileMime,omitempty"`
}

// HasPDF reports whether the request carries an inline PDF.
func (r Request) HasPDF() bool {
	return r.FileBase64 != "" && r.FileMime == "application/pdf"
}

type Service struct {
	gateway     llm.Gateway
	model       string
	temperature float64
}

func NewService(gateway llm.Gateway, model string, temperature float64) *Service {
	return &Service{gateway: gateway, model: model, temperature: temperature}
}

// Reply answers the last user message. Only that message is sent to the
// model, together with the document context and any attached PDF.
func (s *Service) Reply(ctx context.Context, req Request) (string, error) {
	if len(req.Messages) == 0 || req.Messages[len(req.Messages)-1].Role != models.RoleUser {
		return "", apperr.Invalid("No user message found")
	}
	if s.gateway == nil || !s.gateway.Configured() {
		return "", fmt.Errorf("chat reply: %w: %w", apperr.ErrUpstream, llm.ErrNoProvider)
	}
	question := req.Messages[len(req.Messages)-1].Content

	var docCtx *DocumentContext
	if req.Context != nil {
		c := *req.Context
		c.Content = Truncate(c.Content, MaxContextLength)
		docCtx = &c
	}

	prompt := SystemPrompt(docCtx, req.DocumentType, req.HasPDF())
	var user string
	if docCtx != nil {
		user = fmt.Sprintf("Document Context (%s): %s\n\nUser Question: %s", docCtx.Type, docCtx.Content, question)
	} else {
		user = "User Question: " + question
	}

	llmReq := llm.ChatRequest{
		Model:       s.model,
		Temperature: s.temperature,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: prompt},
			{Role: llm.RoleUser, Content: user},
		},
	}
	if req.HasPDF() {
		llmReq.Attachments = []llm.Attachment{{MimeType: req.FileMime, Data: req.FileBase64}}
	}

	slog.Debug("chat request",
		"messages", len(req.Messages),
		"has_context", docCtx != nil,
		"document_type", req.DocumentType,
		"has_pdf", req.HasPDF(),
	)

	resp, err := s.gateway.Chat(ctx, llmReq)
	if err != nil {
		if errors.Is(err, apperr.ErrUpstream) {
			return "", err
		}
		return "", fmt.Errorf("chat reply: %w: %w", apperr.ErrUpstream, err)
	}
	return resp.Content, nil
}

// SystemPrompt picks the instruction for the conversation. A resume or web
// document type wins over an attached PDF, which wins over a plain document.
func SystemPrompt(doc *DocumentContext, documentType string, hasPDF bool) string {
	if doc == nil && !hasPDF {
		return "You are a helpful AI assistant. Answer questions to the best of your ability."
	}
	switch {
	case documentType == "resume":
		return "You are an expert at analyzing resumes and professional profiles. " +
			"The following is a resume/CV. Answer questions about the person's experience, skills, " +
			"education, and other professional details based on this information. If the information " +
			"isn't in the resume, say you don't know.\n\n"
	case documentType == "web":
		return "You are analyzing content from a web page. Use the following content to answer " +
			"questions about the page. If the information isn't in the content, say you don't know.\n\n"
	case hasPDF:
		return "You are analyzing a PDF document. Please read and understand the content of this PDF file, " +
			"then answer questions about it. Use the information from the PDF to provide accurate answers. " +
			"If the information isn't in the PDF, say you don't know rather than making up an answer.\n\n"
	}

	title, kind := "Document", "document"
	if doc != nil {
		title = doc.Title
		if doc.Type == models.DocTypeWeb {
			kind = "web page"
		}
	}
	return fmt.Sprintf("You are answering questions about the following %s: %s\n\n", kind, title) +
		"Use the following content to answer questions. If the answer isn't in the content, " +
		"say you don't know rather than making up an answer.\n\n"
}

// Truncate caps s at max bytes and appends a marker when it cut anything.
// A rune split by the cut is dropped.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return strings.ToValidUTF8(s[:max], "") + truncatedMarker
}
