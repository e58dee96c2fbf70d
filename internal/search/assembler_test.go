package search

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/knowledgebase/internal/models"
)

func textDoc(title, content string) models.Document {
	return models.Document{ID: uuid.New(), OwnerID: "u", Title: title, Type: models.DocTypeFile, Content: models.TextContent(content)}
}

func pdfDoc(title string) models.Document {
	return models.Document{
		ID: uuid.New(), OwnerID: "u", Title: title, Type: models.DocTypeFile, Source: title + ".pdf",
		Content: models.PDFDocumentContent(models.PDFContent{
			TextContent: "[PDF Document: " + title + ".pdf]", Base64: "JVBERi0=", FileName: title + ".pdf",
		}),
	}
}

func TestAssembleSeparatesPDFs(t *testing.T) {
	notes := textDoc("Notes", "Go is a language.")
	first, second := pdfDoc("Resume"), pdfDoc("Cover")

	c := Assemble([]models.Document{notes, first, second}, false)
	require.Len(t, c.TextDocs, 1)
	require.Len(t, c.PDFs, 2)
	assert.Contains(t, c.Text, "Document: Notes (file)")
	assert.Contains(t, c.Text, "Go is a language.")
	assert.NotContains(t, c.Text, "JVBERi0=")

	primary, ok := c.PrimaryPDF()
	require.True(t, ok)
	assert.Equal(t, first.ID, primary.Document.ID)
	assert.Equal(t, "JVBERi0=", primary.PDF.Base64)
}

func TestAssembleRecoversEnvelopeStoredAsText(t *testing.T) {
	raw := `{"type":"pdf","textContent":"cv text","fileData":{"base64":"QUJD","mimeType":"application/pdf","fileName":"cv.pdf","fileSize":3}}`
	doc := models.Document{ID: uuid.New(), Title: "CV", Type: models.DocTypeFile, Content: models.ParseContent(raw)}

	c := Assemble([]models.Document{doc}, false)
	require.Len(t, c.PDFs, 1)
	assert.Equal(t, "cv text", c.PDFs[0].PDF.TextContent)
	assert.Equal(t, "QUJD", c.PDFs[0].PDF.Base64)
}

func TestAssembleBudgetDependsOnQueryClass(t *testing.T) {
	big := textDoc("Big", strings.Repeat("x", 30000))

	general := Assemble([]models.Document{big}, true)
	specific := Assemble([]models.Document{big}, false)

	assert.LessOrEqual(t, len(general.Text), GeneralContextBudget+len("\n... [context truncated]"))
	assert.LessOrEqual(t, len(specific.Text), DocumentContextBudget+len("\n... [context truncated]"))
	assert.Greater(t, len(specific.Text), len(general.Text))
}

func TestAssembleEmpty(t *testing.T) {
	c := Assemble(nil, true)
	assert.Empty(t, c.Text)
	_, ok := c.PrimaryPDF()
	assert.False(t, ok)
}
