package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/finiti/glossary-api/internal/models"
	"github.com/finiti/glossary-api/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginHandler_Success(t *testing.T) {
	svc := &MockAuthService{
		LoginFunc: func(ctx context.Context, email, password string) (*services.AuthResponse, error) {
			assert.Equal(t, "alice@example.com", email)
			return &services.AuthResponse{
				AccessToken:  "access",
				RefreshToken: "refresh",
				Username:     "alice",
				Role:         "User",
			}, nil
		},
	}
	h := NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"alice@example.com","password":"CorrectHorse1"}`))
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp services.AuthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "access", resp.AccessToken)
	assert.Equal(t, "refresh", resp.RefreshToken)
}

func TestLoginHandler_BadCredentials(t *testing.T) {
	h := NewAuthHandler(&MockAuthService{})

	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"alice@example.com","password":"wrong"}`))
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginHandler_InvalidBody(t *testing.T) {
	h := NewAuthHandler(&MockAuthService{})

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{not json`))
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginHandler_MissingEmail(t *testing.T) {
	h := NewAuthHandler(&MockAuthService{})

	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"password":"whatever"}`))
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterHandler_Conflict(t *testing.T) {
	svc := &MockAuthService{
		RegisterFunc: func(ctx context.Context, username, email, password string) (*services.UserResponse, error) {
			return nil, models.ErrConflict
		},
	}
	h := NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/auth/register",
		strings.NewReader(`{"username":"alice","email":"taken@example.com","password":"CorrectHorse1"}`))
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRefreshHandler_InvalidToken(t *testing.T) {
	h := NewAuthHandler(&MockAuthService{})

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh",
		strings.NewReader(`{"refreshToken":"stale"}`))
	rec := httptest.NewRecorder()

	h.Refresh(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestResetPasswordRequestHandler_AlwaysGeneric(t *testing.T) {
	h := NewAuthHandler(&MockAuthService{})

	req := httptest.NewRequest(http.MethodPost, "/auth/reset-password/request",
		strings.NewReader(`{"email":"whoever@example.com"}`))
	rec := httptest.NewRecorder()

	h.ResetPasswordRequest(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "If the email is registered")
}

func TestResetPasswordConfirmHandler_Expired(t *testing.T) {
	svc := &MockAuthService{
		ResetPasswordConfirmFunc: func(ctx context.Context, token, newPassword string) error {
			return models.ErrTokenExpired
		},
	}
	h := NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/auth/reset-password/confirm",
		strings.NewReader(`{"token":"old","newPassword":"BrandNewPass1"}`))
	rec := httptest.NewRecorder()

	h.ResetPasswordConfirm(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "expired")
}

func TestCompleteProfileUpdateHandler_Success(t *testing.T) {
	var gotUserID string
	svc := &MockAuthService{
		CompleteProfileUpdateFunc: func(ctx context.Context, userID, username, email, password string) error {
			gotUserID = userID
			return nil
		},
	}
	h := NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/auth/complete-profile-update",
		strings.NewReader(`{"userId":"7f1e01cd-2094-47c5-9dc8-a0c6a1a5ef30","newUsername":"alice","newEmail":"alice@example.com","newPassword":"BrandNewPass1"}`))
	rec := httptest.NewRecorder()

	h.CompleteProfileUpdate(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "7f1e01cd-2094-47c5-9dc8-a0c6a1a5ef30", gotUserID)
}
