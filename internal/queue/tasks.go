package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const TypeDocumentBackfill = "document:backfill"

const (
	backfillMaxRetry = 3
	backfillTimeout  = 2 * time.Minute
)

// BackfillPayload names a web document whose body still has to be fetched.
type BackfillPayload struct {
	DocumentID string `json:"document_id"`
	OwnerID    string `json:"owner_id"`
}

func NewBackfillTask(docID uuid.UUID, ownerID string) (*asynq.Task, error) {
	data, err := json.Marshal(BackfillPayload{DocumentID: docID.String(), OwnerID: ownerID})
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(TypeDocumentBackfill, data,
		asynq.MaxRetry(backfillMaxRetry),
		asynq.Timeout(backfillTimeout),
	), nil
}

func ParseBackfillPayload(t *asynq.Task) (BackfillPayload, uuid.UUID, error) {
	var p BackfillPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, uuid.Nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	id, err := uuid.Parse(p.DocumentID)
	if err != nil {
		return p, uuid.Nil, fmt.Errorf("parse document ID: %w", err)
	}
	return p, id, nil
}
