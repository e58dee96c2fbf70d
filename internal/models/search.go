package models

import (
	"time"

	"github.com/google/uuid"
)

type SourceRef struct {
	ID    string       `json:"id"`
	Title string       `json:"title"`
	Type  DocumentType `json:"type"`
	URL   string       `json:"url,omitempty"`
}

// SourceFor builds the lightweight reference for a document.
func SourceFor(d Document) SourceRef {
	ref := SourceRef{ID: d.ID.String(), Title: d.Title, Type: d.Type}
	if d.Type == DocTypeWeb {
		ref.URL = d.Source
	}
	return ref
}

type SearchResult struct {
	ID        uuid.UUID   `json:"id"`
	OwnerID   string      `json:"userId"`
	Question  string      `json:"question"`
	Answer    string      `json:"answer"`
	Sources   []SourceRef `json:"sources"`
	Timestamp time.Time   `json:"timestamp"`
}
