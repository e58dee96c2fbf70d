package models

import (
	"encoding/json"
	"strings"
)

type ContentKind string

const (
	ContentText ContentKind = "text"
	ContentPDF  ContentKind = "pdf"
)

// Content is what a document carries: plain text or an inline PDF.
// On the wire it is a single string, either the text itself or a JSON envelope
// {"type":"pdf","textContent":...,"fileData":{...}}.
type Content struct {
	Kind ContentKind
	Text string
	PDF  *PDFContent
}

type PDFContent struct {
	TextContent string
	Base64      string
	MimeType    string
	FileName    string
	FileSize    int64
}

type pdfEnvelope struct {
	Type        string      `json:"type"`
	TextContent string      `json:"textContent"`
	FileData    pdfFileData `json:"fileData"`
}

type pdfFileData struct {
	Base64   string `json:"base64"`
	MimeType string `json:"mimeType"`
	FileName string `json:"fileName"`
	FileSize int64  `json:"fileSize"`
}

func TextContent(s string) Content {
	return Content{Kind: ContentText, Text: s}
}

func PDFDocumentContent(p PDFContent) Content {
	if p.MimeType == "" {
		p.MimeType = "application/pdf"
	}
	return Content{Kind: ContentPDF, PDF: &p}
}

// ParseContent decodes a stored or submitted content string. Anything that is
// not a PDF envelope is kept verbatim as text.
func ParseContent(raw string) Content {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") {
		return TextContent(raw)
	}
	var env pdfEnvelope
	if err := json.Unmarshal([]byte(trimmed), &env); err != nil || env.Type != "pdf" {
		return TextContent(raw)
	}
	return PDFDocumentContent(PDFContent{
		TextContent: env.TextContent,
		Base64:      env.FileData.Base64,
		MimeType:    env.FileData.MimeType,
		FileName:    env.FileData.FileName,
		FileSize:    env.FileData.FileSize,
	})
}

func (c Content) IsPDF() bool {
	return c.Kind == ContentPDF && c.PDF != nil
}

// PlainText is the readable part of the content: the text itself, or the
// text stored alongside a PDF.
func (c Content) PlainText() string {
	if c.IsPDF() {
		return c.PDF.TextContent
	}
	return c.Text
}

func (c Content) IsEmpty() bool {
	if c.IsPDF() {
		return c.PDF.Base64 == "" && strings.TrimSpace(c.PDF.TextContent) == ""
	}
	return strings.TrimSpace(c.Text) == ""
}

// Raw is the single-string form used on the wire.
func (c Content) Raw() string {
	if !c.IsPDF() {
		return c.Text
	}
	data, _ := json.Marshal(pdfEnvelope{
		Type:        "pdf",
		TextContent: c.PDF.TextContent,
		FileData: pdfFileData{
			Base64:   c.PDF.Base64,
			MimeType: c.PDF.MimeType,
			FileName: c.PDF.FileName,
			FileSize: c.PDF.FileSize,
		},
	})
	return string(data)
}

func (c Content) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Raw())
}

// UnmarshalJSON accepts the string form, an inline envelope object, or null.
func (c *Content) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	switch {
	case trimmed == "null":
		*c = TextContent("")
		return nil
	case strings.HasPrefix(trimmed, "{"):
		*c = ParseContent(trimmed)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*c = ParseContent(s)
	return nil
}
