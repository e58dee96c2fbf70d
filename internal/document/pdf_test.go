package document

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/knowledgebase/internal/apperr"
)

func TestIngestRejectsNonPDF(t *testing.T) {
	p := NewPDFIngester(0)
	_, err := p.Ingest("notes.txt", "text/plain", 5, strings.NewReader("hello"))
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestIngestRejectsOversizedFiles(t *testing.T) {
	p := NewPDFIngester(1 << 20)

	_, err := p.Ingest("big.pdf", "application/pdf", 2<<20, strings.NewReader(""))
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	// declared size lies; the body is still capped
	body := bytes.Repeat([]byte("a"), (1<<20)+10)
	_, err = p.Ingest("big.pdf", "application/pdf", 10, bytes.NewReader(body))
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestIngestEncodesBase64(t *testing.T) {
	p := NewPDFIngester(0)
	raw := []byte("%PDF-1.4 not really a pdf")

	up, err := p.Ingest("Resume.PDF", "application/octet-stream", int64(len(raw)), bytes.NewReader(raw))
	require.NoError(t, err)

	decoded, err := base64.StdEncoding.DecodeString(up.Base64Data)
	require.NoError(t, err)
	assert.Equal(t, raw, decoded)
	assert.Equal(t, "application/pdf", up.MimeType)
	assert.Equal(t, int64(len(raw)), up.FileSize)
	assert.Contains(t, up.Text, "[PDF Document: Resume.PDF]")
	assert.Equal(t, 0, up.Pages)

	c := up.Content()
	require.True(t, c.IsPDF())
	assert.Equal(t, up.Base64Data, c.PDF.Base64)
}

func TestIsPDF(t *testing.T) {
	assert.True(t, IsPDF("a.pdf", ""))
	assert.True(t, IsPDF("scan", "application/pdf"))
	assert.False(t, IsPDF("a.docx", "application/msword"))
}
