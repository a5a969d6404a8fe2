package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/finiti/glossary-api/internal/models"
	"github.com/finiti/glossary-api/internal/services"
	pkghttp "github.com/finiti/glossary-api/pkg/http"
)

// PublicGlossaryServiceInterface defines the interface for the anonymous read paths
type PublicGlossaryServiceInterface interface {
	List(ctx context.Context, query services.PublicTermQuery) (*services.PublicTermListResult, error)
	Detail(ctx context.Context, id string) (*services.PublicTermDetailResponse, error)
}

// PublicGlossaryHandler handles the anonymous glossary endpoints
type PublicGlossaryHandler struct {
	service PublicGlossaryServiceInterface
}

func NewPublicGlossaryHandler(service PublicGlossaryServiceInterface) *PublicGlossaryHandler {
	return &PublicGlossaryHandler{service: service}
}

// GetTermsList returns a page of published entries
func (h *PublicGlossaryHandler) GetTermsList(w http.ResponseWriter, r *http.Request) {
	query := services.PublicTermQuery{
		Search: r.URL.Query().Get("search"),
		Sort:   r.URL.Query().Get("sort"),
		Offset: queryInt(r, "offset", defaultListOffset),
		Limit:  queryInt(r, "limit", defaultListLimit),
	}

	result, err := h.service.List(r.Context(), query)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, result)
}

// GetTerm returns one published entry
func (h *PublicGlossaryHandler) GetTerm(w http.ResponseWriter, r *http.Request) {
	detail, err := h.service.Detail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Term not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, detail)
}
