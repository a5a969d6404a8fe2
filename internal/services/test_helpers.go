package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/finiti/glossary-api/internal/models"
	pkglogger "github.com/finiti/glossary-api/pkg/logger"
	"github.com/google/uuid"
)

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	GetByIDFunc         func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc      func(ctx context.Context, email string) (*models.User, error)
	GetByResetTokenFunc func(ctx context.Context, token string) (*models.User, error)
	CreateFunc          func(ctx context.Context, user *models.User) (*models.User, error)
	UpdateFunc          func(ctx context.Context, id string, user *models.User) (*models.User, error)
	UsernamesFunc       func(ctx context.Context) (map[string]string, error)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByResetToken(ctx context.Context, token string) (*models.User, error) {
	if m.GetByResetTokenFunc != nil {
		return m.GetByResetTokenFunc(ctx, token)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	user.ID = uuid.New().String()
	user.CreatedAt = time.Now()
	return user, nil
}

func (m *MockUserRepository) Update(ctx context.Context, id string, user *models.User) (*models.User, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, user)
	}
	return user, nil
}

func (m *MockUserRepository) Usernames(ctx context.Context) (map[string]string, error) {
	if m.UsernamesFunc != nil {
		return m.UsernamesFunc(ctx)
	}
	return map[string]string{}, nil
}

// MockRefreshTokenRepository implements RefreshTokenRepository for testing
type MockRefreshTokenRepository struct {
	CreateFunc     func(ctx context.Context, token *models.RefreshToken) (*models.RefreshToken, error)
	GetByTokenFunc func(ctx context.Context, token string) (*models.RefreshToken, error)
	RotateFunc     func(ctx context.Context, presentedID string, next *models.RefreshToken) (*models.RefreshToken, error)
	RevokeFunc     func(ctx context.Context, token string) error
}

func (m *MockRefreshTokenRepository) Create(ctx context.Context, token *models.RefreshToken) (*models.RefreshToken, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, token)
	}
	token.ID = uuid.New().String()
	token.CreatedAt = time.Now()
	return token, nil
}

func (m *MockRefreshTokenRepository) GetByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if m.GetByTokenFunc != nil {
		return m.GetByTokenFunc(ctx, token)
	}
	return nil, models.ErrNotFound
}

func (m *MockRefreshTokenRepository) Rotate(ctx context.Context, presentedID string, next *models.RefreshToken) (*models.RefreshToken, error) {
	if m.RotateFunc != nil {
		return m.RotateFunc(ctx, presentedID, next)
	}
	next.ID = uuid.New().String()
	next.CreatedAt = time.Now()
	return next, nil
}

func (m *MockRefreshTokenRepository) Revoke(ctx context.Context, token string) error {
	if m.RevokeFunc != nil {
		return m.RevokeFunc(ctx, token)
	}
	return nil
}

// MockEmailService implements EmailService for testing
type MockEmailService struct {
	SendPasswordResetEmailFunc func(ctx context.Context, email, token string) error
}

func (m *MockEmailService) SendPasswordResetEmail(ctx context.Context, email, token string) error {
	if m.SendPasswordResetEmailFunc != nil {
		return m.SendPasswordResetEmailFunc(ctx, email, token)
	}
	return nil
}

// memTermStore is an in-memory TermRepository. The versioning flows
// (update, archive, restore) span several rows and two tables, so the
// glossary tests run against real state instead of per-call stubs.
type memTermStore struct {
	active   map[string]*models.GlossaryTerm
	archived map[string]*models.ArchivedGlossaryTerm
}

func newMemTermStore() *memTermStore {
	return &memTermStore{
		active:   make(map[string]*models.GlossaryTerm),
		archived: make(map[string]*models.ArchivedGlossaryTerm),
	}
}

func (s *memTermStore) GetActiveByID(_ context.Context, id string) (*models.GlossaryTerm, error) {
	if t, ok := s.active[id]; ok {
		copied := *t
		return &copied, nil
	}
	return nil, models.ErrNotFound
}

func (s *memTermStore) GetActiveByStableID(_ context.Context, stableID string) (*models.GlossaryTerm, error) {
	for _, t := range s.active {
		if t.StableID == stableID {
			copied := *t
			return &copied, nil
		}
	}
	return nil, models.ErrNotFound
}

func (s *memTermStore) ListActive(_ context.Context, createdByID *string) ([]*models.GlossaryTerm, error) {
	var out []*models.GlossaryTerm
	for _, t := range s.active {
		if createdByID != nil && (t.CreatedByID == nil || *t.CreatedByID != *createdByID) {
			continue
		}
		copied := *t
		out = append(out, &copied)
	}
	return out, nil
}

func (s *memTermStore) ListArchived(_ context.Context, createdByID *string) ([]*models.ArchivedGlossaryTerm, error) {
	var out []*models.ArchivedGlossaryTerm
	for _, a := range s.archived {
		if createdByID != nil && (a.CreatedByID == nil || *a.CreatedByID != *createdByID) {
			continue
		}
		copied := *a
		out = append(out, &copied)
	}
	return out, nil
}

func (s *memTermStore) GetArchivedByStableID(_ context.Context, stableID string) ([]*models.ArchivedGlossaryTerm, error) {
	var out []*models.ArchivedGlossaryTerm
	for _, a := range s.archived {
		if a.StableID == stableID {
			copied := *a
			out = append(out, &copied)
		}
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].Version > out[i].Version {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (s *memTermStore) GetArchivedVersion(_ context.Context, stableID string, version int) (*models.ArchivedGlossaryTerm, error) {
	for _, a := range s.archived {
		if a.StableID == stableID && a.Version == version {
			copied := *a
			return &copied, nil
		}
	}
	return nil, models.ErrNotFound
}

func (s *memTermStore) LatestVersion(_ context.Context, stableID string) (int, error) {
	latest := 0
	for _, t := range s.active {
		if t.StableID == stableID && t.Version > latest {
			latest = t.Version
		}
	}
	for _, a := range s.archived {
		if a.StableID == stableID && a.Version > latest {
			latest = a.Version
		}
	}
	return latest, nil
}

func (s *memTermStore) CreateActive(_ context.Context, term *models.GlossaryTerm) (*models.GlossaryTerm, error) {
	term.ID = uuid.New().String()
	if term.StableID == "" {
		term.StableID = uuid.New().String()
	}
	term.CreatedAt = time.Now()
	copied := *term
	s.active[term.ID] = &copied
	return term, nil
}

func (s *memTermStore) UpdateStatus(_ context.Context, id string, status models.TermStatus) error {
	t, ok := s.active[id]
	if !ok {
		return models.ErrNotFound
	}
	t.Status = status
	return nil
}

func (s *memTermStore) DeleteActive(_ context.Context, id string) error {
	if _, ok := s.active[id]; !ok {
		return models.ErrNotFound
	}
	delete(s.active, id)
	return nil
}

func (s *memTermStore) addSnapshot(snapshot *models.ArchivedGlossaryTerm) {
	snapshot.ID = uuid.New().String()
	snapshot.ArchivedAt = time.Now()
	copied := *snapshot
	s.archived[snapshot.ID] = &copied
}

func (s *memTermStore) Archive(_ context.Context, snapshot *models.ArchivedGlossaryTerm, activeID string) error {
	if _, ok := s.active[activeID]; !ok {
		return models.ErrSaveFailed
	}
	s.addSnapshot(snapshot)
	delete(s.active, activeID)
	return nil
}

func (s *memTermStore) ReplaceActive(_ context.Context, snapshot *models.ArchivedGlossaryTerm, updated *models.GlossaryTerm) error {
	if _, ok := s.active[updated.ID]; !ok {
		return models.ErrSaveFailed
	}
	if snapshot != nil {
		s.addSnapshot(snapshot)
	}
	copied := *updated
	s.active[updated.ID] = &copied
	return nil
}

func (s *memTermStore) Restore(_ context.Context, autoSnapshot *models.ArchivedGlossaryTerm,
	removeActiveID *string, restored *models.GlossaryTerm,
	sourceSnapshotID string, restoredByID *string) error {

	source, ok := s.archived[sourceSnapshotID]
	if !ok {
		return models.ErrSaveFailed
	}
	if autoSnapshot != nil {
		s.addSnapshot(autoSnapshot)
	}
	if removeActiveID != nil {
		if _, ok := s.active[*removeActiveID]; !ok {
			return models.ErrSaveFailed
		}
		delete(s.active, *removeActiveID)
	}

	restored.ID = uuid.New().String()
	restored.CreatedAt = time.Now()
	copied := *restored
	s.active[restored.ID] = &copied

	now := time.Now()
	source.RestoredAt = &now
	source.RestoredByID = restoredByID
	return nil
}

// MockPublicTermRepository implements PublicTermRepository for testing
type MockPublicTermRepository struct {
	ListPublishedFunc      func(ctx context.Context, search, sort string, offset, limit int) ([]*models.PublicTerm, int, error)
	GetPublishedDetailFunc func(ctx context.Context, id string) (*models.PublicTermDetail, error)
}

func (m *MockPublicTermRepository) ListPublished(ctx context.Context, search, sort string, offset, limit int) ([]*models.PublicTerm, int, error) {
	if m.ListPublishedFunc != nil {
		return m.ListPublishedFunc(ctx, search, sort, offset, limit)
	}
	return []*models.PublicTerm{}, 0, nil
}

func (m *MockPublicTermRepository) GetPublishedDetail(ctx context.Context, id string) (*models.PublicTermDetail, error) {
	if m.GetPublishedDetailFunc != nil {
		return m.GetPublishedDetailFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

// Test data builders

func NewTestUser(id, username, email string) *models.User {
	return &models.User{
		ID:        id,
		Username:  username,
		Email:     email,
		Role:      "User",
		IsActive:  true,
		CreatedAt: time.Now(),
	}
}

func NewTestAdmin(id, username, email string) *models.User {
	user := NewTestUser(id, username, email)
	user.Role = "Admin"
	user.IsAdmin = true
	return user
}

func NewTestRefreshToken(id, token, userID string, expiresAt time.Time) *models.RefreshToken {
	return &models.RefreshToken{
		ID:        id,
		Token:     token,
		UserID:    userID,
		CreatedAt: time.Now(),
		ExpiresAt: expiresAt,
	}
}

func NewTestSnapshot(stableID string, version int, term, definition string, createdByID *string) *models.ArchivedGlossaryTerm {
	return &models.ArchivedGlossaryTerm{
		ID:            fmt.Sprintf("snap_%s_%d", stableID, version),
		OriginalTermID: uuid.New().String(),
		StableID:      stableID,
		Term:          term,
		Definition:    definition,
		ArchivedAt:    time.Now(),
		ChangeSummary: "Updated",
		CreatedByID:   createdByID,
		Version:       version,
	}
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAuditLogger() *pkglogger.AuditLogger {
	return pkglogger.NewAuditLogger(newTestLogger())
}
