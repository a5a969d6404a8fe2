package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/finiti/glossary-api/internal/models"
)

// PublicTermRepository defines the read-only queries behind the anonymous site
type PublicTermRepository interface {
	ListPublished(ctx context.Context, search, sort string, offset, limit int) ([]*models.PublicTerm, int, error)
	GetPublishedDetail(ctx context.Context, id string) (*models.PublicTermDetail, error)
}

// PublicGlossaryService serves the published-only projection of the glossary
type PublicGlossaryService struct {
	terms  PublicTermRepository
	logger *slog.Logger
}

func NewPublicGlossaryService(terms PublicTermRepository, logger *slog.Logger) *PublicGlossaryService {
	return &PublicGlossaryService{terms: terms, logger: logger}
}

type PublicTermQuery struct {
	Search string
	Sort   string
	Offset int
	Limit  int
}

type PublicTermRow struct {
	ID         string    `json:"id"`
	Term       string    `json:"term"`
	Definition string    `json:"definition"`
	CreatedAt  time.Time `json:"createdAt"`
}

type PublicTermListMeta struct {
	Offset  int    `json:"offset"`
	Limit   int    `json:"limit"`
	Total   int    `json:"total"`
	HasMore bool   `json:"hasMore"`
	Sort    string `json:"sort"`
	Search  string `json:"search"`
}

type PublicTermListResult struct {
	Meta PublicTermListMeta `json:"meta"`
	Data []PublicTermRow    `json:"data"`
}

type PublicTermDetailResponse struct {
	ID            string    `json:"id"`
	Term          string    `json:"term"`
	Definition    string    `json:"definition"`
	CreatedAt     time.Time `json:"createdAt"`
	CreatedByName string    `json:"createdByName"`
}

// List returns a page of published entries. The store does the
// published-only and one-row-per-entry projection; this layer only shapes
// the result.
func (s *PublicGlossaryService) List(ctx context.Context, query PublicTermQuery) (*PublicTermListResult, error) {
	search := strings.TrimSpace(query.Search)

	terms, total, err := s.terms.ListPublished(ctx, search, query.Sort, query.Offset, query.Limit)
	if err != nil {
		s.logger.Error("failed to list published terms", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	rows := make([]PublicTermRow, 0, len(terms))
	for _, t := range terms {
		rows = append(rows, PublicTermRow{
			ID:         t.ID,
			Term:       t.Term,
			Definition: t.Definition,
			CreatedAt:  t.CreatedAt,
		})
	}

	return &PublicTermListResult{
		Meta: PublicTermListMeta{
			Offset:  query.Offset,
			Limit:   query.Limit,
			Total:   total,
			HasMore: query.Offset+query.Limit < total,
			Sort:    query.Sort,
			Search:  search,
		},
		Data: rows,
	}, nil
}

// Detail returns one published entry or ErrNotFound for anything that is
// missing, still a draft, or archived
func (s *PublicGlossaryService) Detail(ctx context.Context, id string) (*PublicTermDetailResponse, error) {
	detail, err := s.terms.GetPublishedDetail(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to load published term", slog.String("term_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return &PublicTermDetailResponse{
		ID:            detail.ID,
		Term:          detail.Term,
		Definition:    detail.Definition,
		CreatedAt:     detail.CreatedAt,
		CreatedByName: detail.CreatedByName,
	}, nil
}
