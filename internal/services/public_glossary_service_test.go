package services

import (
	"context"
	"testing"
	"time"

	"github.com/finiti/glossary-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicList_ShapesPageAndMeta(t *testing.T) {
	now := time.Now()
	repo := &MockPublicTermRepository{
		ListPublishedFunc: func(ctx context.Context, search, sort string, offset, limit int) ([]*models.PublicTerm, int, error) {
			assert.Equal(t, "fruit", search)
			assert.Equal(t, "az", sort)
			return []*models.PublicTerm{
				{ID: "t1", Term: "Apple", Definition: "red fruit", CreatedAt: now},
				{ID: "t2", Term: "Banana", Definition: "yellow fruit", CreatedAt: now},
			}, 7, nil
		},
	}
	svc := NewPublicGlossaryService(repo, newTestLogger())

	result, err := svc.List(context.Background(), PublicTermQuery{Search: " fruit ", Sort: "az", Offset: 0, Limit: 2})

	require.NoError(t, err)
	require.Len(t, result.Data, 2)
	assert.Equal(t, "Apple", result.Data[0].Term)
	assert.Equal(t, 7, result.Meta.Total)
	assert.True(t, result.Meta.HasMore)
	assert.Equal(t, "fruit", result.Meta.Search)
}

func TestPublicList_LastPageHasNoMore(t *testing.T) {
	repo := &MockPublicTermRepository{
		ListPublishedFunc: func(ctx context.Context, search, sort string, offset, limit int) ([]*models.PublicTerm, int, error) {
			return []*models.PublicTerm{{ID: "t7", Term: "Grape"}}, 7, nil
		},
	}
	svc := NewPublicGlossaryService(repo, newTestLogger())

	result, err := svc.List(context.Background(), PublicTermQuery{Offset: 6, Limit: 2})

	require.NoError(t, err)
	assert.False(t, result.Meta.HasMore)
}

func TestPublicDetail_Found(t *testing.T) {
	now := time.Now()
	repo := &MockPublicTermRepository{
		GetPublishedDetailFunc: func(ctx context.Context, id string) (*models.PublicTermDetail, error) {
			return &models.PublicTermDetail{
				ID: id, Term: "Apple", Definition: "red fruit",
				CreatedAt: now, CreatedByName: "alice",
			}, nil
		},
	}
	svc := NewPublicGlossaryService(repo, newTestLogger())

	detail, err := svc.Detail(context.Background(), "t1")

	require.NoError(t, err)
	assert.Equal(t, "Apple", detail.Term)
	assert.Equal(t, "alice", detail.CreatedByName)
}

func TestPublicDetail_NotFound(t *testing.T) {
	svc := NewPublicGlossaryService(&MockPublicTermRepository{}, newTestLogger())

	_, err := svc.Detail(context.Background(), "missing")

	assert.ErrorIs(t, err, models.ErrNotFound)
}
