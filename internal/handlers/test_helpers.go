package handlers

import (
	"context"
	"net/http"

	"github.com/finiti/glossary-api/internal/auth"
	"github.com/finiti/glossary-api/internal/models"
	"github.com/finiti/glossary-api/internal/services"
)

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	RegisterFunc              func(ctx context.Context, username, email, password string) (*services.UserResponse, error)
	LoginFunc                 func(ctx context.Context, email, password string) (*services.AuthResponse, error)
	RefreshFunc               func(ctx context.Context, refreshToken string) (*services.AuthResponse, error)
	LogoutFunc                func(ctx context.Context, refreshToken string) error
	ResetPasswordRequestFunc  func(ctx context.Context, email string) error
	ResetPasswordConfirmFunc  func(ctx context.Context, token, newPassword string) error
	CompleteProfileUpdateFunc func(ctx context.Context, userID, username, email, password string) error
}

func (m *MockAuthService) Register(ctx context.Context, username, email, password string) (*services.UserResponse, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, username, email, password)
	}
	return &services.UserResponse{ID: "user_1", Username: username, Email: email, Role: "User"}, nil
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (*services.AuthResponse, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password)
	}
	return nil, models.ErrUnauthorized
}

func (m *MockAuthService) Refresh(ctx context.Context, refreshToken string) (*services.AuthResponse, error) {
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx, refreshToken)
	}
	return nil, models.ErrUnauthorized
}

func (m *MockAuthService) Logout(ctx context.Context, refreshToken string) error {
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx, refreshToken)
	}
	return nil
}

func (m *MockAuthService) ResetPasswordRequest(ctx context.Context, email string) error {
	if m.ResetPasswordRequestFunc != nil {
		return m.ResetPasswordRequestFunc(ctx, email)
	}
	return nil
}

func (m *MockAuthService) ResetPasswordConfirm(ctx context.Context, token, newPassword string) error {
	if m.ResetPasswordConfirmFunc != nil {
		return m.ResetPasswordConfirmFunc(ctx, token, newPassword)
	}
	return nil
}

func (m *MockAuthService) CompleteProfileUpdate(ctx context.Context, userID, username, email, password string) error {
	if m.CompleteProfileUpdateFunc != nil {
		return m.CompleteProfileUpdateFunc(ctx, userID, username, email, password)
	}
	return nil
}

// MockAdminGlossaryService implements AdminGlossaryServiceInterface for testing
type MockAdminGlossaryService struct {
	CreateFunc  func(ctx context.Context, p auth.Principal, term, definition string) (*services.TermResponse, error)
	UpdateFunc  func(ctx context.Context, p auth.Principal, id, term, definition string) error
	PublishFunc func(ctx context.Context, p auth.Principal, id string) error
	ArchiveFunc func(ctx context.Context, p auth.Principal, id string) error
	RestoreFunc func(ctx context.Context, p auth.Principal, stableID string, version int) (*services.RestoreResult, error)
	DeleteFunc  func(ctx context.Context, p auth.Principal, id string) error
	ListFunc    func(ctx context.Context, p auth.Principal, query services.AdminTermQuery) (*services.AdminTermListResult, error)
	HistoryFunc func(ctx context.Context, p auth.Principal, stableID string) (*services.HistoryResult, error)
}

func (m *MockAdminGlossaryService) Create(ctx context.Context, p auth.Principal, term, definition string) (*services.TermResponse, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, p, term, definition)
	}
	return &services.TermResponse{ID: "term_1", Term: term, Definition: definition, Version: 1}, nil
}

func (m *MockAdminGlossaryService) Update(ctx context.Context, p auth.Principal, id, term, definition string) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, p, id, term, definition)
	}
	return nil
}

func (m *MockAdminGlossaryService) Publish(ctx context.Context, p auth.Principal, id string) error {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, p, id)
	}
	return nil
}

func (m *MockAdminGlossaryService) Archive(ctx context.Context, p auth.Principal, id string) error {
	if m.ArchiveFunc != nil {
		return m.ArchiveFunc(ctx, p, id)
	}
	return nil
}

func (m *MockAdminGlossaryService) Restore(ctx context.Context, p auth.Principal, stableID string, version int) (*services.RestoreResult, error) {
	if m.RestoreFunc != nil {
		return m.RestoreFunc(ctx, p, stableID, version)
	}
	return &services.RestoreResult{Restored: true, StableID: stableID}, nil
}

func (m *MockAdminGlossaryService) Delete(ctx context.Context, p auth.Principal, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, p, id)
	}
	return nil
}

func (m *MockAdminGlossaryService) List(ctx context.Context, p auth.Principal, query services.AdminTermQuery) (*services.AdminTermListResult, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, p, query)
	}
	return &services.AdminTermListResult{Data: []services.AdminTermRow{}}, nil
}

func (m *MockAdminGlossaryService) History(ctx context.Context, p auth.Principal, stableID string) (*services.HistoryResult, error) {
	if m.HistoryFunc != nil {
		return m.HistoryFunc(ctx, p, stableID)
	}
	return &services.HistoryResult{StableID: stableID}, nil
}

// MockPublicGlossaryService implements PublicGlossaryServiceInterface for testing
type MockPublicGlossaryService struct {
	ListFunc   func(ctx context.Context, query services.PublicTermQuery) (*services.PublicTermListResult, error)
	DetailFunc func(ctx context.Context, id string) (*services.PublicTermDetailResponse, error)
}

func (m *MockPublicGlossaryService) List(ctx context.Context, query services.PublicTermQuery) (*services.PublicTermListResult, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, query)
	}
	return &services.PublicTermListResult{Data: []services.PublicTermRow{}}, nil
}

func (m *MockPublicGlossaryService) Detail(ctx context.Context, id string) (*services.PublicTermDetailResponse, error) {
	if m.DetailFunc != nil {
		return m.DetailFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

// withPrincipal attaches a caller identity the way the auth middleware does
func withPrincipal(r *http.Request, p auth.Principal) *http.Request {
	ctx := context.WithValue(r.Context(), auth.PrincipalContextKey, p)
	return r.WithContext(ctx)
}
