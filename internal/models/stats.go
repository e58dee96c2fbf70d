package models

import (
	"time"

	"github.com/google/uuid"
)

type UsageStats struct {
	ID               uuid.UUID `json:"id"`
	OwnerID          string    `json:"userId"`
	TotalDocuments   int       `json:"totalDocuments"`
	TotalFiles       int       `json:"totalFiles"`
	TotalLinks       int       `json:"totalLinks"`
	QueriesThisMonth int       `json:"queriesThisMonth"`
	LastUpdated      time.Time `json:"lastUpdated"`
}

// UsageCounters is a partial update; nil fields are left unchanged.
type UsageCounters struct {
	TotalDocuments   *int `json:"totalDocuments"`
	TotalFiles       *int `json:"totalFiles"`
	TotalLinks       *int `json:"totalLinks"`
	QueriesThisMonth *int `json:"queriesThisMonth"`
}
