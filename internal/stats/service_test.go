package stats

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/knowledgebase/internal/apperr"
	"github.com/nikhilbhutani/knowledgebase/internal/models"
)

func intp(v int) *int { return &v }

func TestGetReturnsZerosWhenMissing(t *testing.T) {
	svc := NewService(NewMemoryStore())
	u, err := svc.Get(context.Background(), "owner")
	require.NoError(t, err)
	assert.Equal(t, "owner", u.OwnerID)
	assert.Zero(t, u.TotalDocuments)
	assert.Zero(t, u.QueriesThisMonth)
}

func TestUpdateCreatesThenMerges(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()

	first, err := svc.Update(ctx, "owner", models.UsageCounters{TotalDocuments: intp(3), TotalFiles: intp(2), TotalLinks: intp(1)})
	require.NoError(t, err)

	second, err := svc.Update(ctx, "owner", models.UsageCounters{TotalLinks: intp(4)})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 3, second.TotalDocuments)
	assert.Equal(t, 2, second.TotalFiles)
	assert.Equal(t, 4, second.TotalLinks)
}

func TestUpdateRejectsNegativeCounters(t *testing.T) {
	svc := NewService(NewMemoryStore())
	_, err := svc.Update(context.Background(), "owner", models.UsageCounters{TotalFiles: intp(-1)})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestIncrementQueries(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()
	require.NoError(t, svc.IncrementQueries(ctx, "owner"))
	require.NoError(t, svc.IncrementQueries(ctx, "owner"))

	u, err := svc.Get(ctx, "owner")
	require.NoError(t, err)
	assert.Equal(t, 2, u.QueriesThisMonth)
}

func TestRequiresOwner(t *testing.T) {
	svc := NewService(NewMemoryStore())
	_, err := svc.Get(context.Background(), "")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}
