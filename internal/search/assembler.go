package search

import (
	"fmt"
	"strings"

	"github.com/nikhilbhutani/knowledgebase/internal/models"
)

const (
	GeneralContextBudget  = 5000
	DocumentContextBudget = 20000
)

// PDFDocument pairs a stored document with its decoded PDF payload.
type PDFDocument struct {
	Document models.Document
	PDF      models.PDFContent
}

// Context is the material handed to the answer generator.
type Context struct {
	Text     string
	TextDocs []models.Document
	PDFs     []PDFDocument
}

// PrimaryPDF is the only PDF the generator sends; any others are ignored.
func (c Context) PrimaryPDF() (PDFDocument, bool) {
	if len(c.PDFs) == 0 {
		return PDFDocument{}, false
	}
	return c.PDFs[0], true
}

// Assemble splits docs into text and PDF bearing ones and concatenates the
// text documents under a per-document header, capped by the budget for the
// query class.
func Assemble(docs []models.Document, general bool) Context {
	budget := DocumentContextBudget
	if general {
		budget = GeneralContextBudget
	}

	var c Context
	var sb strings.Builder
	for _, d := range docs {
		if d.Content.IsPDF() {
			c.PDFs = append(c.PDFs, PDFDocument{Document: d, PDF: *d.Content.PDF})
			continue
		}
		c.TextDocs = append(c.TextDocs, d)
		text := strings.TrimSpace(d.Content.PlainText())
		if text == "" {
			continue
		}
		fmt.Fprintf(&sb, "Document: %s (%s)\n", d.Title, d.Type)
		if d.Source != "" {
			fmt.Fprintf(&sb, "Source: %s\n", d.Source)
		}
		sb.WriteString(text)
		sb.WriteString("\n\n---\n\n")
	}

	c.Text = sb.String()
	if len(c.Text) > budget {
		c.Text = strings.ToValidUTF8(c.Text[:budget], "") + "\n... [context truncated]"
	}
	return c
}
