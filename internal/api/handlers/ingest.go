package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/nikhilbhutani/knowledgebase/internal/apperr"
	"github.com/nikhilbhutani/knowledgebase/internal/document"
	"github.com/nikhilbhutani/knowledgebase/internal/scrape"
)

// IngestHandler turns URLs and uploaded files into document content.
type IngestHandler struct {
	extractor *scrape.Extractor
	pdf       *document.PDFIngester
	now       func() time.Time
}

func NewIngestHandler(extractor *scrape.Extractor, pdf *document.PDFIngester) *IngestHandler {
	return &IngestHandler{extractor: extractor, pdf: pdf, now: time.Now}
}

type fetchResponse struct {
	*scrape.Page
	ExtractedAt time.Time `json:"extractedAt"`
}

type fetchFailure struct {
	*scrape.Page
	Error   string `json:"error"`
	Details string `json:"details"`
}

// FetchURL returns the readable projection of ?url=. A failed fetch still
// carries a placeholder body so the client can save the document anyway.
func (h *IngestHandler) FetchURL(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	if target == "" {
		writeError(w, r, apperr.Invalid("URL is required"))
		return
	}

	page, err := h.extractor.Extract(r.Context(), target)
	switch {
	case errors.Is(err, apperr.ErrInvalidInput):
		writeError(w, r, err)
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, fetchFailure{
			Page:    page,
			Error:   "Failed to fetch content from URL",
			Details: err.Error(),
		})
	default:
		writeJSON(w, http.StatusOK, fetchResponse{Page: page, ExtractedAt: h.now().UTC()})
	}
}

func (h *IngestHandler) UploadPDF(w http.ResponseWriter, r *http.Request) {
	// Leave room for multipart framing around the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, h.pdf.MaxBytes()+(1<<20))
	if err := r.ParseMultipartForm(32 << 20); err != nil { // 32MB in memory, rest on disk
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, h.pdf.TooLarge())
			return
		}
		writeError(w, r, apperr.Invalid("invalid multipart form"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, apperr.Invalid("No file provided"))
		return
	}
	defer file.Close()

	upload, err := h.pdf.Ingest(header.Filename, header.Header.Get("Content-Type"), header.Size, file)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, upload)
}
