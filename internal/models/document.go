package models

import (
	"time"

	"github.com/google/uuid"
)

type DocumentType string

const (
	DocTypeFile DocumentType = "file"
	DocTypeWeb  DocumentType = "web"
)

func (t DocumentType) Valid() bool {
	return t == DocTypeFile || t == DocTypeWeb
}

// Document is a single knowledge-base entry. OwnerID is empty for legacy
// records created before ownership was recorded.
type Document struct {
	ID          uuid.UUID    `json:"id"`
	OwnerID     string       `json:"userId,omitempty"`
	Title       string       `json:"title"`
	Type        DocumentType `json:"type"`
	Source      string       `json:"source"`
	Content     Content      `json:"content"`
	LastUpdated time.Time    `json:"lastUpdated"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// DocumentPatch carries the fields of an update; nil or empty fields keep the
// existing value.
type DocumentPatch struct {
	Title   *string
	Content *Content
}
