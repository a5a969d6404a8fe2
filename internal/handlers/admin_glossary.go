package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/finiti/glossary-api/internal/auth"
	"github.com/finiti/glossary-api/internal/models"
	"github.com/finiti/glossary-api/internal/services"
	pkghttp "github.com/finiti/glossary-api/pkg/http"
)

const (
	defaultListOffset = 0
	defaultListLimit  = 50
)

// AdminGlossaryServiceInterface defines the interface for term lifecycle logic
type AdminGlossaryServiceInterface interface {
	Create(ctx context.Context, p auth.Principal, term, definition string) (*services.TermResponse, error)
	Update(ctx context.Context, p auth.Principal, id, term, definition string) error
	Publish(ctx context.Context, p auth.Principal, id string) error
	Archive(ctx context.Context, p auth.Principal, id string) error
	Restore(ctx context.Context, p auth.Principal, stableID string, version int) (*services.RestoreResult, error)
	Delete(ctx context.Context, p auth.Principal, id string) error
	List(ctx context.Context, p auth.Principal, query services.AdminTermQuery) (*services.AdminTermListResult, error)
	History(ctx context.Context, p auth.Principal, stableID string) (*services.HistoryResult, error)
}

// AdminGlossaryHandler handles the authenticated glossary endpoints
type AdminGlossaryHandler struct {
	service AdminGlossaryServiceInterface
}

func NewAdminGlossaryHandler(service AdminGlossaryServiceInterface) *AdminGlossaryHandler {
	return &AdminGlossaryHandler{service: service}
}

type CreateTermRequest struct {
	Term       string `json:"term" validate:"required,min=1,max=200"`
	Definition string `json:"definition" validate:"required,min=1"`
}

type UpdateTermRequest struct {
	Term       string `json:"term" validate:"required,min=1,max=200"`
	Definition string `json:"definition" validate:"required,min=1"`
}

// GetTermsList returns the unified admin view, filtered and paged
func (h *AdminGlossaryHandler) GetTermsList(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.GetPrincipal(r)
	if !ok {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	query := services.AdminTermQuery{
		Tab:    r.URL.Query().Get("tab"),
		Search: r.URL.Query().Get("search"),
		Sort:   r.URL.Query().Get("sort"),
		Offset: queryInt(r, "offset", defaultListOffset),
		Limit:  queryInt(r, "limit", defaultListLimit),
	}

	result, err := h.service.List(r.Context(), principal, query)
	if err != nil {
		writeGlossaryError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, result)
}

// CreateTerm stores a new draft
func (h *AdminGlossaryHandler) CreateTerm(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.GetPrincipal(r)
	if !ok {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req CreateTermRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	created, err := h.service.Create(r.Context(), principal, req.Term, req.Definition)
	if err != nil {
		writeGlossaryError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "Draft created successfully.",
		"term":    created,
	})
}

// UpdateTerm replaces the content of an active term and publishes it
func (h *AdminGlossaryHandler) UpdateTerm(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.GetPrincipal(r)
	if !ok {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req UpdateTermRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	err := h.service.Update(r.Context(), principal, chi.URLParam(r, "id"), req.Term, req.Definition)
	if err != nil {
		writeGlossaryError(w, err)
		return
	}

	pkghttp.WriteMessage(w, http.StatusOK, "Term updated successfully.")
}

// PublishTerm flips a draft to published
func (h *AdminGlossaryHandler) PublishTerm(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.GetPrincipal(r)
	if !ok {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	if err := h.service.Publish(r.Context(), principal, chi.URLParam(r, "id")); err != nil {
		writeGlossaryError(w, err)
		return
	}

	pkghttp.WriteMessage(w, http.StatusOK, "Term published.")
}

// ArchiveTerm snapshots and removes an active term
func (h *AdminGlossaryHandler) ArchiveTerm(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.GetPrincipal(r)
	if !ok {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	if err := h.service.Archive(r.Context(), principal, chi.URLParam(r, "id")); err != nil {
		writeGlossaryError(w, err)
		return
	}

	pkghttp.WriteMessage(w, http.StatusOK, "Term archived successfully.")
}

// RestoreTerm brings an archived version back as the active one
func (h *AdminGlossaryHandler) RestoreTerm(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.GetPrincipal(r)
	if !ok {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	version, err := strconv.Atoi(chi.URLParam(r, "version"))
	if err != nil || version < 1 {
		pkghttp.WriteBadRequest(w, "Invalid version")
		return
	}

	result, err := h.service.Restore(r.Context(), principal, chi.URLParam(r, "stableId"), version)
	if err != nil {
		writeGlossaryError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, result)
}

// GetTermHistory returns every version of one entry
func (h *AdminGlossaryHandler) GetTermHistory(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.GetPrincipal(r)
	if !ok {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	result, err := h.service.History(r.Context(), principal, chi.URLParam(r, "stableId"))
	if err != nil {
		writeGlossaryError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, result)
}

// DeleteTerm hard-removes an active term
func (h *AdminGlossaryHandler) DeleteTerm(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.GetPrincipal(r)
	if !ok {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	if err := h.service.Delete(r.Context(), principal, chi.URLParam(r, "id")); err != nil {
		writeGlossaryError(w, err)
		return
	}

	pkghttp.WriteMessage(w, http.StatusOK, "Deleted.")
}

func writeGlossaryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteUnauthorized(w, "Authentication failed")
	case errors.Is(err, models.ErrForbidden):
		pkghttp.WriteForbidden(w, "You do not have access to this term")
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Term not found")
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, "Term and definition are required")
	case errors.Is(err, models.ErrSaveFailed):
		pkghttp.WriteInternalError(w, "Failed to save changes")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
