package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/finiti/glossary-api/internal/auth"
	"github.com/finiti/glossary-api/internal/models"
	pkglogger "github.com/finiti/glossary-api/pkg/logger"
)

// TermRepository defines the term store operations the admin service needs
type TermRepository interface {
	GetActiveByID(ctx context.Context, id string) (*models.GlossaryTerm, error)
	GetActiveByStableID(ctx context.Context, stableID string) (*models.GlossaryTerm, error)
	ListActive(ctx context.Context, createdByID *string) ([]*models.GlossaryTerm, error)
	ListArchived(ctx context.Context, createdByID *string) ([]*models.ArchivedGlossaryTerm, error)
	GetArchivedByStableID(ctx context.Context, stableID string) ([]*models.ArchivedGlossaryTerm, error)
	GetArchivedVersion(ctx context.Context, stableID string, version int) (*models.ArchivedGlossaryTerm, error)
	LatestVersion(ctx context.Context, stableID string) (int, error)
	CreateActive(ctx context.Context, term *models.GlossaryTerm) (*models.GlossaryTerm, error)
	UpdateStatus(ctx context.Context, id string, status models.TermStatus) error
	DeleteActive(ctx context.Context, id string) error
	Archive(ctx context.Context, snapshot *models.ArchivedGlossaryTerm, activeID string) error
	ReplaceActive(ctx context.Context, snapshot *models.ArchivedGlossaryTerm, updated *models.GlossaryTerm) error
	Restore(ctx context.Context, autoSnapshot *models.ArchivedGlossaryTerm, removeActiveID *string,
		restored *models.GlossaryTerm, sourceSnapshotID string, restoredByID *string) error
}

// AdminGlossaryService implements the authenticated term lifecycle:
// create, update, publish, archive, restore, delete, plus the unified
// list and history views.
type AdminGlossaryService struct {
	terms       TermRepository
	users       UserRepository
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

func NewAdminGlossaryService(terms TermRepository, users UserRepository,
	logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *AdminGlossaryService {
	return &AdminGlossaryService{
		terms:       terms,
		users:       users,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// AdminTermRow is one entry of the unified active+archived admin view
type AdminTermRow struct {
	ID             string     `json:"id"`
	StableID       string     `json:"stableId"`
	Term           string     `json:"term"`
	Definition     string     `json:"definition"`
	Version        int        `json:"version"`
	Status         int        `json:"status"`
	Timestamp      time.Time  `json:"createdOrArchivedAt"`
	CreatedByName  string     `json:"createdByName"`
	ArchivedByName *string    `json:"archivedByName,omitempty"`
	RestoredAt     *time.Time `json:"restoredAt,omitempty"`
	RestoredByName *string    `json:"restoredByName,omitempty"`
	HasHistory     bool       `json:"hasHistory"`
	CanRestore     bool       `json:"canRestore"`
}

// AdminTermQuery carries the list filters. Zero values mean no filter;
// the handler applies the offset/limit defaults.
type AdminTermQuery struct {
	Tab    string
	Search string
	Sort   string
	Offset int
	Limit  int
}

type AdminTermListMeta struct {
	Offset  int    `json:"offset"`
	Limit   int    `json:"limit"`
	Total   int    `json:"total"`
	HasMore bool   `json:"hasMore"`
	Sort    string `json:"sort"`
	Search  string `json:"search"`
	Tab     string `json:"tab"`
}

type AdminTermListResult struct {
	Meta AdminTermListMeta `json:"meta"`
	Data []AdminTermRow    `json:"data"`
}

type HistoryResult struct {
	StableID string         `json:"stableId"`
	Versions []AdminTermRow `json:"versions"`
}

type RestoreResult struct {
	Restored bool   `json:"restored"`
	Message  string `json:"message"`
	StableID string `json:"stableId"`
}

// TermResponse is the created draft echoed back to the caller
type TermResponse struct {
	ID         string    `json:"id"`
	StableID   string    `json:"stableId"`
	Term       string    `json:"term"`
	Definition string    `json:"definition"`
	Version    int       `json:"version"`
	Status     int       `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Create stores a new draft owned by the caller. Every entry starts at
// version 1 with a fresh stable id.
func (s *AdminGlossaryService) Create(ctx context.Context, p auth.Principal, term, definition string) (*TermResponse, error) {
	_, _, err := s.validatePrincipal(ctx, p)
	if err != nil {
		return nil, err
	}

	term = strings.TrimSpace(term)
	definition = strings.TrimSpace(definition)
	if term == "" || definition == "" {
		return nil, models.ErrBadRequest
	}

	draft := &models.GlossaryTerm{
		Term:        term,
		Definition:  definition,
		Version:     1,
		Status:      models.StatusDraft,
		CreatedByID: &p.UserID,
	}

	created, err := s.terms.CreateActive(ctx, draft)
	if err != nil {
		s.logger.Error("failed to create draft", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.LogTermAction("term_created", p.UserID, created.ID, map[string]any{
		"stable_id": created.StableID,
	})

	return &TermResponse{
		ID:         created.ID,
		StableID:   created.StableID,
		Term:       created.Term,
		Definition: created.Definition,
		Version:    created.Version,
		Status:     int(created.Status),
		CreatedAt:  created.CreatedAt,
	}, nil
}

// Update replaces the content of an active entry and publishes it. The
// outgoing content is archived first unless an identical snapshot already
// exists for the entry, so repeated edits back and forth do not pile up
// duplicate history rows.
func (s *AdminGlossaryService) Update(ctx context.Context, p auth.Principal, id, term, definition string) error {
	_, role, err := s.validatePrincipal(ctx, p)
	if err != nil {
		return err
	}

	term = strings.TrimSpace(term)
	definition = strings.TrimSpace(definition)
	if term == "" || definition == "" {
		return models.ErrBadRequest
	}

	active, err := s.terms.GetActiveByID(ctx, id)
	if err != nil {
		return s.mapTermLookup(err, id)
	}
	if !role.CanManage(p.UserID, active.CreatedByID) {
		return models.ErrForbidden
	}

	snapshots, err := s.terms.GetArchivedByStableID(ctx, active.StableID)
	if err != nil {
		s.logger.Error("failed to load snapshots", slog.String("stable_id", active.StableID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	identicalExists := false
	for _, snap := range snapshots {
		if snap.Content().Equal(active.Content()) {
			identicalExists = true
			break
		}
	}

	var snapshot *models.ArchivedGlossaryTerm
	if !identicalExists {
		latest, err := s.terms.LatestVersion(ctx, active.StableID)
		if err != nil {
			s.logger.Error("failed to resolve latest version", slog.String("stable_id", active.StableID), slog.Any("error", err))
			return models.ErrInternalServer
		}
		snapshot = snapshotOf(active, p.UserID, "Updated", latest+1)
	}

	updated := *active
	updated.Term = term
	updated.Definition = definition
	updated.Status = models.StatusPublished
	updated.CreatedAt = time.Now()

	if err := s.terms.ReplaceActive(ctx, snapshot, &updated); err != nil {
		return s.mapSave(err, "update", id)
	}

	s.auditLogger.LogTermAction("term_updated", p.UserID, id, map[string]any{
		"stable_id": active.StableID,
		"archived":  snapshot != nil,
	})
	return nil
}

// Publish flips a draft to published in place
func (s *AdminGlossaryService) Publish(ctx context.Context, p auth.Principal, id string) error {
	_, role, err := s.validatePrincipal(ctx, p)
	if err != nil {
		return err
	}

	active, err := s.terms.GetActiveByID(ctx, id)
	if err != nil {
		return s.mapTermLookup(err, id)
	}
	if !role.CanManage(p.UserID, active.CreatedByID) {
		return models.ErrForbidden
	}

	if err := s.terms.UpdateStatus(ctx, id, models.StatusPublished); err != nil {
		return s.mapSave(err, "publish", id)
	}

	s.auditLogger.LogTermAction("term_published", p.UserID, id, nil)
	return nil
}

// Archive snapshots the active entry under the next version number and
// removes the active row, making the entry invisible everywhere but history
func (s *AdminGlossaryService) Archive(ctx context.Context, p auth.Principal, id string) error {
	_, role, err := s.validatePrincipal(ctx, p)
	if err != nil {
		return err
	}

	active, err := s.terms.GetActiveByID(ctx, id)
	if err != nil {
		return s.mapTermLookup(err, id)
	}
	if !role.CanManage(p.UserID, active.CreatedByID) {
		return models.ErrForbidden
	}

	latest, err := s.terms.LatestVersion(ctx, active.StableID)
	if err != nil {
		s.logger.Error("failed to resolve latest version", slog.String("stable_id", active.StableID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	snapshot := snapshotOf(active, p.UserID, "Manual archive", latest+1)
	if err := s.terms.Archive(ctx, snapshot, active.ID); err != nil {
		return s.mapSave(err, "archive", id)
	}

	s.auditLogger.LogTermAction("term_archived", p.UserID, id, map[string]any{
		"stable_id": active.StableID,
		"version":   snapshot.Version,
	})
	return nil
}

// Restore makes an archived version the active one. Restoring the content
// that is already active is a no-op; otherwise the current active row is
// auto-archived first and the snapshot's content comes back as a new
// published version. The source snapshot is stamped with restore
// provenance, never deleted.
func (s *AdminGlossaryService) Restore(ctx context.Context, p auth.Principal, stableID string, version int) (*RestoreResult, error) {
	_, role, err := s.validatePrincipal(ctx, p)
	if err != nil {
		return nil, err
	}

	source, err := s.terms.GetArchivedVersion(ctx, stableID, version)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to load archived version", slog.String("stable_id", stableID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if !role.CanManage(p.UserID, source.CreatedByID) {
		return nil, models.ErrForbidden
	}

	active, err := s.terms.GetActiveByStableID(ctx, stableID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to load active row", slog.String("stable_id", stableID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	var autoSnapshot *models.ArchivedGlossaryTerm
	var removeActiveID *string
	nextVersion := 0

	if active != nil {
		if active.Content().Equal(source.Content()) {
			return &RestoreResult{
				Restored: false,
				Message:  "Identical version already active.",
				StableID: stableID,
			}, nil
		}

		latest, err := s.terms.LatestVersion(ctx, stableID)
		if err != nil {
			s.logger.Error("failed to resolve latest version", slog.String("stable_id", stableID), slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		autoSnapshot = snapshotOf(active, p.UserID, "Auto-archived before restore", latest+1)
		removeActiveID = &active.ID
		nextVersion = latest + 2
	} else {
		latest, err := s.terms.LatestVersion(ctx, stableID)
		if err != nil {
			s.logger.Error("failed to resolve latest version", slog.String("stable_id", stableID), slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		nextVersion = latest + 1
	}

	restored := &models.GlossaryTerm{
		StableID:    source.StableID,
		Term:        source.Term,
		Definition:  source.Definition,
		Version:     nextVersion,
		Status:      models.StatusPublished,
		CreatedByID: source.CreatedByID,
	}

	if err := s.terms.Restore(ctx, autoSnapshot, removeActiveID, restored, source.ID, &p.UserID); err != nil {
		return nil, s.mapSave(err, "restore", stableID)
	}

	s.auditLogger.LogTermAction("term_restored", p.UserID, restored.ID, map[string]any{
		"stable_id":      stableID,
		"source_version": version,
	})

	return &RestoreResult{
		Restored: true,
		Message:  fmt.Sprintf("Version %d restored.", version),
		StableID: stableID,
	}, nil
}

// Delete hard-removes an active entry without archiving it
func (s *AdminGlossaryService) Delete(ctx context.Context, p auth.Principal, id string) error {
	_, role, err := s.validatePrincipal(ctx, p)
	if err != nil {
		return err
	}

	active, err := s.terms.GetActiveByID(ctx, id)
	if err != nil {
		return s.mapTermLookup(err, id)
	}
	if !role.CanManage(p.UserID, active.CreatedByID) {
		return models.ErrForbidden
	}

	if err := s.terms.DeleteActive(ctx, id); err != nil {
		return s.mapSave(err, "delete", id)
	}

	s.auditLogger.LogTermAction("term_deleted", p.UserID, id, map[string]any{
		"stable_id": active.StableID,
	})
	return nil
}

// List merges active and archived rows into the unified admin view, then
// filters, sorts, and pages it in memory. Non-admin callers only ever see
// rows they created; the restriction is pushed down to the queries.
func (s *AdminGlossaryService) List(ctx context.Context, p auth.Principal, query AdminTermQuery) (*AdminTermListResult, error) {
	_, role, err := s.validatePrincipal(ctx, p)
	if err != nil {
		return nil, err
	}

	var ownerFilter *string
	if !role.IsAdmin() {
		ownerFilter = &p.UserID
	}

	active, err := s.terms.ListActive(ctx, ownerFilter)
	if err != nil {
		s.logger.Error("failed to list active terms", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	archived, err := s.terms.ListArchived(ctx, ownerFilter)
	if err != nil {
		s.logger.Error("failed to list archived terms", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	usernames, err := s.users.Usernames(ctx)
	if err != nil {
		s.logger.Error("failed to load usernames", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	rows := buildUnifiedRows(active, archived, usernames)

	if status, ok := models.ParseTermStatus(query.Tab); ok {
		filtered := rows[:0]
		for _, row := range rows {
			if row.Status == int(status) {
				filtered = append(filtered, row)
			}
		}
		rows = filtered
	}

	if search := strings.ToLower(strings.TrimSpace(query.Search)); search != "" {
		filtered := rows[:0]
		for _, row := range rows {
			if strings.Contains(strings.ToLower(row.Term), search) ||
				strings.Contains(strings.ToLower(row.Definition), search) {
				filtered = append(filtered, row)
			}
		}
		rows = filtered
	}

	sortRows(rows, query.Sort)

	total := len(rows)
	page := paginate(rows, query.Offset, query.Limit)

	return &AdminTermListResult{
		Meta: AdminTermListMeta{
			Offset:  query.Offset,
			Limit:   query.Limit,
			Total:   total,
			HasMore: query.Offset+query.Limit < total,
			Sort:    query.Sort,
			Search:  query.Search,
			Tab:     query.Tab,
		},
		Data: page,
	}, nil
}

// History returns every version of one entry, newest first. The active row
// (if any) appears alongside the archived snapshots; snapshots identical to
// the active content are not restorable.
func (s *AdminGlossaryService) History(ctx context.Context, p auth.Principal, stableID string) (*HistoryResult, error) {
	_, role, err := s.validatePrincipal(ctx, p)
	if err != nil {
		return nil, err
	}

	active, err := s.terms.GetActiveByStableID(ctx, stableID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to load active row", slog.String("stable_id", stableID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	archived, err := s.terms.GetArchivedByStableID(ctx, stableID)
	if err != nil {
		s.logger.Error("failed to load snapshots", slog.String("stable_id", stableID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if active == nil && len(archived) == 0 {
		return nil, models.ErrNotFound
	}

	if !role.IsAdmin() && !ownsLineage(p.UserID, active, archived) {
		return nil, models.ErrForbidden
	}

	usernames, err := s.users.Usernames(ctx)
	if err != nil {
		s.logger.Error("failed to load usernames", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	rows := buildHistoryRows(active, archived, usernames)

	return &HistoryResult{StableID: stableID, Versions: rows}, nil
}

func (s *AdminGlossaryService) validatePrincipal(ctx context.Context, p auth.Principal) (*models.User, auth.Role, error) {
	user, err := s.users.GetByID(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, "", models.ErrUnauthorized
		}
		s.logger.Error("failed to resolve principal", slog.String("user_id", p.UserID), slog.Any("error", err))
		return nil, "", models.ErrInternalServer
	}
	if user.IsDeleted || !user.IsActive {
		return nil, "", models.ErrUnauthorized
	}

	// The stored role wins over whatever the token carried
	return user, auth.ParseRole(user.Role), nil
}

func (s *AdminGlossaryService) mapTermLookup(err error, id string) error {
	if errors.Is(err, models.ErrNotFound) {
		return models.ErrNotFound
	}
	s.logger.Error("failed to load term", slog.String("term_id", id), slog.Any("error", err))
	return models.ErrInternalServer
}

func (s *AdminGlossaryService) mapSave(err error, op, id string) error {
	if errors.Is(err, models.ErrSaveFailed) || errors.Is(err, models.ErrNotFound) {
		s.logger.Error("save affected no rows", slog.String("op", op), slog.String("id", id))
		return models.ErrSaveFailed
	}
	s.logger.Error("failed to save term changes", slog.String("op", op), slog.String("id", id), slog.Any("error", err))
	return models.ErrInternalServer
}

func snapshotOf(active *models.GlossaryTerm, archivedByID, changeSummary string, version int) *models.ArchivedGlossaryTerm {
	return &models.ArchivedGlossaryTerm{
		OriginalTermID: active.ID,
		StableID:       active.StableID,
		Term:           active.Term,
		Definition:     active.Definition,
		ArchivedByID:   &archivedByID,
		ChangeSummary:  changeSummary,
		CreatedByID:    active.CreatedByID,
		Version:        version,
	}
}

func ownsLineage(userID string, active *models.GlossaryTerm, archived []*models.ArchivedGlossaryTerm) bool {
	if active != nil && active.CreatedByID != nil && *active.CreatedByID == userID {
		return true
	}
	for _, a := range archived {
		if a.CreatedByID != nil && *a.CreatedByID == userID {
			return true
		}
	}
	return false
}

func resolveUsername(usernames map[string]string, id *string) string {
	if id != nil {
		if name, ok := usernames[*id]; ok {
			return name
		}
	}
	return "Unknown"
}

func resolveUsernamePtr(usernames map[string]string, id *string) *string {
	if id == nil {
		return nil
	}
	name := resolveUsername(usernames, id)
	return &name
}

// buildUnifiedRows produces the admin list view: active rows keep their
// real status, snapshots are tagged archived, and a snapshot can be
// restored unless it matches its entry's current active content.
func buildUnifiedRows(active []*models.GlossaryTerm, archived []*models.ArchivedGlossaryTerm,
	usernames map[string]string) []AdminTermRow {

	activeByStableID := make(map[string]*models.GlossaryTerm, len(active))
	historyCount := make(map[string]int)
	for _, t := range active {
		activeByStableID[t.StableID] = t
	}
	for _, a := range archived {
		historyCount[a.StableID]++
	}

	rows := make([]AdminTermRow, 0, len(active)+len(archived))
	for _, t := range active {
		rows = append(rows, AdminTermRow{
			ID:            t.ID,
			StableID:      t.StableID,
			Term:          t.Term,
			Definition:    t.Definition,
			Version:       t.Version,
			Status:        int(t.Status),
			Timestamp:     t.CreatedAt,
			CreatedByName: resolveUsername(usernames, t.CreatedByID),
			HasHistory:    historyCount[t.StableID] > 0,
			CanRestore:    false,
		})
	}
	for _, a := range archived {
		rows = append(rows, archivedRow(a, activeByStableID[a.StableID], usernames))
	}
	return rows
}

// buildHistoryRows produces the per-entry history: the active row first
// (always shown as published), then the snapshots, sorted newest version
// first.
func buildHistoryRows(active *models.GlossaryTerm, archived []*models.ArchivedGlossaryTerm,
	usernames map[string]string) []AdminTermRow {

	rows := make([]AdminTermRow, 0, len(archived)+1)
	if active != nil {
		rows = append(rows, AdminTermRow{
			ID:            active.ID,
			StableID:      active.StableID,
			Term:          active.Term,
			Definition:    active.Definition,
			Version:       active.Version,
			Status:        int(models.StatusPublished),
			Timestamp:     active.CreatedAt,
			CreatedByName: resolveUsername(usernames, active.CreatedByID),
			HasHistory:    len(archived) > 0,
			CanRestore:    false,
		})
	}
	for _, a := range archived {
		rows = append(rows, archivedRow(a, active, usernames))
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Version > rows[j].Version
	})
	return rows
}

func archivedRow(a *models.ArchivedGlossaryTerm, active *models.GlossaryTerm,
	usernames map[string]string) AdminTermRow {

	identical := active != nil && active.Content().Equal(a.Content())

	return AdminTermRow{
		ID:             a.ID,
		StableID:       a.StableID,
		Term:           a.Term,
		Definition:     a.Definition,
		Version:        a.Version,
		Status:         int(models.StatusArchived),
		Timestamp:      a.ArchivedAt,
		CreatedByName:  resolveUsername(usernames, a.CreatedByID),
		ArchivedByName: resolveUsernamePtr(usernames, a.ArchivedByID),
		RestoredAt:     a.RestoredAt,
		RestoredByName: resolveUsernamePtr(usernames, a.RestoredByID),
		HasHistory:     true,
		CanRestore:     !identical,
	}
}

func sortRows(rows []AdminTermRow, key string) {
	switch key {
	case "dateAsc":
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Timestamp.Before(rows[j].Timestamp) })
	case "az":
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Term < rows[j].Term })
	case "za":
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Term > rows[j].Term })
	default:
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Timestamp.After(rows[j].Timestamp) })
	}
}

func paginate(rows []AdminTermRow, offset, limit int) []AdminTermRow {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(rows) {
		return []AdminTermRow{}
	}
	end := offset + limit
	if limit <= 0 || end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}
