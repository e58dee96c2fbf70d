package document

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nikhilbhutani/knowledgebase/internal/apperr"
	"github.com/nikhilbhutani/knowledgebase/internal/models"
)

// MaxPDFBytes is the default upload ceiling.
const MaxPDFBytes = 10 << 20

// PDFUpload is the result of ingesting an uploaded PDF. The bytes are kept
// as base64 for inline submission to the model; no text is extracted.
type PDFUpload struct {
	Text       string `json:"text"`
	Base64Data string `json:"base64Data"`
	FileName   string `json:"fileName"`
	FileSize   int64  `json:"fileSize"`
	MimeType   string `json:"mimeType"`
	Pages      int    `json:"pages,omitempty"`
}

// Content wraps the upload in the document content envelope.
func (u *PDFUpload) Content() models.Content {
	return models.PDFDocumentContent(models.PDFContent{
		TextContent: u.Text,
		Base64:      u.Base64Data,
		MimeType:    u.MimeType,
		FileName:    u.FileName,
		FileSize:    u.FileSize,
	})
}

type PDFIngester struct {
	maxBytes int64
}

func NewPDFIngester(maxBytes int64) *PDFIngester {
	if maxBytes <= 0 {
		maxBytes = MaxPDFBytes
	}
	return &PDFIngester{maxBytes: maxBytes}
}

// MaxBytes is the largest accepted file.
func (p *PDFIngester) MaxBytes() int64 { return p.maxBytes }

// TooLarge is the error returned for files over MaxBytes.
func (p *PDFIngester) TooLarge() error {
	return apperr.Invalid(fmt.Sprintf("File too large. Maximum size is %dMB.", p.maxBytes>>20))
}

// IsPDF accepts either a pdf content type or a .pdf file name.
func IsPDF(fileName, contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "pdf") ||
		strings.EqualFold(filepath.Ext(fileName), ".pdf")
}

func (p *PDFIngester) Ingest(fileName, contentType string, size int64, r io.Reader) (*PDFUpload, error) {
	if !IsPDF(fileName, contentType) {
		return nil, apperr.Invalid("Invalid file type. Please upload a PDF file.")
	}
	if size > p.maxBytes {
		return nil, p.TooLarge()
	}

	data, err := io.ReadAll(io.LimitReader(r, p.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > p.maxBytes {
		return nil, p.TooLarge()
	}

	upload := &PDFUpload{
		Text:       fmt.Sprintf("[PDF Document: %s]\n\nThis PDF file has been uploaded and will be processed by AI when you ask questions about it.", fileName),
		Base64Data: base64.StdEncoding.EncodeToString(data),
		FileName:   fileName,
		FileSize:   int64(len(data)),
		MimeType:   "application/pdf",
		Pages:      countPages(data),
	}
	slog.Info("pdf ingested", "file_name", fileName, "size_kb", len(data)/1024, "pages", upload.Pages)
	return upload, nil
}

// countPages is best-effort metadata; unreadable files report zero.
func countPages(data []byte) (n int) {
	defer func() {
		if recover() != nil {
			n = 0
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0
	}
	return reader.NumPage()
}
