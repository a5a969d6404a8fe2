package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/finiti/glossary-api/internal/auth"
	"github.com/finiti/glossary-api/internal/models"
	pkgauth "github.com/finiti/glossary-api/pkg/auth"
	pkglogger "github.com/finiti/glossary-api/pkg/logger"
	"github.com/google/uuid"
)

// UserRepository defines the user store operations the services need
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByResetToken(ctx context.Context, token string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	Update(ctx context.Context, id string, user *models.User) (*models.User, error)
	Usernames(ctx context.Context) (map[string]string, error)
}

// RefreshTokenRepository defines the refresh token store operations
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) (*models.RefreshToken, error)
	GetByToken(ctx context.Context, token string) (*models.RefreshToken, error)
	Rotate(ctx context.Context, presentedID string, next *models.RefreshToken) (*models.RefreshToken, error)
	Revoke(ctx context.Context, token string) error
}

// AuthService handles authentication business logic
type AuthService struct {
	users         UserRepository
	refreshTokens RefreshTokenRepository
	tm            *auth.TokenManager
	email         EmailService
	refreshExpiry time.Duration
	resetExpiry   time.Duration
	logger        *slog.Logger
	auditLogger   *pkglogger.AuditLogger
}

// NewAuthService creates a new AuthService
func NewAuthService(users UserRepository, refreshTokens RefreshTokenRepository, tm *auth.TokenManager,
	email EmailService, refreshExpiry, resetExpiry time.Duration,
	logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *AuthService {
	return &AuthService{
		users:         users,
		refreshTokens: refreshTokens,
		tm:            tm,
		email:         email,
		refreshExpiry: refreshExpiry,
		resetExpiry:   resetExpiry,
		logger:        logger,
		auditLogger:   auditLogger,
	}
}

// UserResponse represents a user in the HTTP response
type UserResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	IsAdmin  bool   `json:"isAdmin"`
}

// AuthResponse represents the response from login and refresh operations
type AuthResponse struct {
	AccessToken        string `json:"accessToken"`
	RefreshToken       string `json:"refreshToken"`
	Username           string `json:"username"`
	Role               string `json:"role"`
	IsAdmin            bool   `json:"isAdmin"`
	MustChangePassword bool   `json:"mustChangePassword"`
	MustUpdateProfile  bool   `json:"mustUpdateProfile"`
}

// Register creates a new user account with the default role
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*UserResponse, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	if username == "" || email == "" {
		return nil, models.ErrBadRequest
	}
	if err := pkgauth.ValidatePassword(password); err != nil {
		return nil, err
	}

	// Reject duplicates before writing anything
	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		s.logger.Info("registration failed: email already in use")
		return nil, models.ErrConflict
	}
	if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check for existing user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	hashedPassword, err := pkgauth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hashedPassword,
		Role:         string(auth.RoleUser),
		IsActive:     true,
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user registered", slog.String("user_id", created.ID))
	s.auditLogger.LogAccountAction("user_registered", created.ID, "", nil)

	return &UserResponse{
		ID:       created.ID,
		Username: created.Username,
		Email:    created.Email,
		Role:     created.Role,
		IsAdmin:  created.IsAdmin,
	}, nil
}

// Login authenticates a user and returns an access/refresh token pair
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	if email = strings.ToLower(strings.TrimSpace(email)); email == "" {
		s.logger.Warn("login attempt with empty email")
		return nil, models.ErrUnauthorized
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Same error as a bad password so accounts cannot be enumerated
			s.logger.Info("login failed: invalid credentials")
			s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
				EventType:     "login_failed",
				FailureReason: "invalid_credentials",
				Success:       false,
			})
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to get user by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if user.IsDeleted || !user.IsActive {
		s.logger.Info("login blocked due to account state", slog.String("user_id", user.ID))
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_failed",
			UserID:        user.ID,
			FailureReason: "account_blocked",
			Success:       false,
		})
		return nil, models.ErrUnauthorized
	}

	if pkgauth.ComparePassword(user.PasswordHash, password) != nil {
		s.logger.Info("login failed: invalid credentials")
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_failed",
			UserID:        user.ID,
			FailureReason: "invalid_credentials",
			Success:       false,
		})
		return nil, models.ErrUnauthorized
	}

	accessToken, err := s.tm.GenerateAccessToken(user)
	if err != nil {
		s.logger.Error("failed to generate access token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	refreshToken, err := s.issueRefreshToken(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", slog.String("user_id", user.ID))
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "login_success",
		UserID:    user.ID,
		Success:   true,
	})

	return s.authResponse(user, accessToken, refreshToken), nil
}

// Refresh rotates a refresh token and returns a fresh token pair. The
// presented token must exist, be unrevoked, and be unexpired. A token that
// has already been rotated is treated as a replay and rejected.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	if refreshToken = strings.TrimSpace(refreshToken); refreshToken == "" {
		return nil, models.ErrUnauthorized
	}

	row, err := s.refreshTokens.GetByToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to look up refresh token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if row.IsRevoked {
		s.logger.Warn("refresh attempt with revoked token", slog.String("user_id", row.UserID))
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "refresh_replay",
			UserID:        row.UserID,
			FailureReason: "token_revoked",
			Success:       false,
		})
		return nil, models.ErrUnauthorized
	}
	if row.Expired(time.Now()) {
		return nil, models.ErrUnauthorized
	}

	user, err := s.users.GetByID(ctx, row.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to get user for token refresh", slog.String("user_id", row.UserID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if user.IsDeleted || !user.IsActive {
		return nil, models.ErrUnauthorized
	}

	accessToken, err := s.tm.GenerateAccessToken(user)
	if err != nil {
		s.logger.Error("failed to generate access token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	opaque, err := pkgauth.GenerateOpaqueToken()
	if err != nil {
		s.logger.Error("failed to generate refresh token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	next := &models.RefreshToken{
		Token:     opaque,
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(s.refreshExpiry),
	}
	if _, err := s.refreshTokens.Rotate(ctx, row.ID, next); err != nil {
		if errors.Is(err, models.ErrUnauthorized) {
			// A concurrent refresh won the rotation
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to rotate refresh token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("token refreshed", slog.String("user_id", user.ID))

	return s.authResponse(user, accessToken, next.Token), nil
}

// Logout revokes the presented refresh token. Unknown tokens succeed quietly.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken = strings.TrimSpace(refreshToken); refreshToken == "" {
		return nil
	}

	err := s.refreshTokens.Revoke(ctx, refreshToken)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to revoke refresh token", slog.Any("error", err))
		return models.ErrInternalServer
	}
	return nil
}

// ResetPasswordRequest starts a password reset. The outcome is identical
// whether or not the email belongs to an account.
func (s *AuthService) ResetPasswordRequest(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("password reset requested for unknown email")
			return nil
		}
		s.logger.Error("failed to get user for password reset", slog.Any("error", err))
		return models.ErrInternalServer
	}

	token := uuid.New().String()
	expires := time.Now().Add(s.resetExpiry)
	user.ResetToken = &token
	user.ResetTokenExpires = &expires

	if _, err := s.users.Update(ctx, user.ID, user); err != nil {
		s.logger.Error("failed to store reset token", slog.String("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("password_reset_requested", user.ID, "", nil)

	if err := s.email.SendPasswordResetEmail(ctx, user.Email, token); err != nil {
		// Do not surface delivery failures, the caller gets the generic
		// response either way
		s.logger.Error("failed to send password reset email", slog.String("user_id", user.ID), slog.Any("error", err))
	}

	return nil
}

// ResetPasswordConfirm completes a password reset with a valid token
func (s *AuthService) ResetPasswordConfirm(ctx context.Context, token, newPassword string) error {
	if token = strings.TrimSpace(token); token == "" {
		return models.ErrBadRequest
	}

	user, err := s.users.GetByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrBadRequest
		}
		s.logger.Error("failed to look up reset token", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if user.ResetTokenExpires == nil || time.Now().After(*user.ResetTokenExpires) {
		return models.ErrTokenExpired
	}

	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return err
	}

	hashedPassword, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	user.PasswordHash = hashedPassword
	user.ResetToken = nil
	user.ResetTokenExpires = nil
	user.MustChangePassword = false

	if _, err := s.users.Update(ctx, user.ID, user); err != nil {
		s.logger.Error("failed to update password", slog.String("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("password reset completed", slog.String("user_id", user.ID))
	s.auditLogger.LogAccountAction("password_reset_completed", user.ID, "", nil)

	return nil
}

// CompleteProfileUpdate finishes first-login onboarding by replacing the
// seeded username, email, and password and clearing both onboarding flags
func (s *AuthService) CompleteProfileUpdate(ctx context.Context, userID, username, email, password string) error {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	if username == "" || email == "" || strings.TrimSpace(password) == "" {
		return models.ErrBadRequest
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to get user for profile update", slog.String("user_id", userID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := pkgauth.ValidatePassword(password); err != nil {
		return err
	}

	hashedPassword, err := pkgauth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	user.Username = username
	user.Email = email
	user.PasswordHash = hashedPassword
	user.MustChangePassword = false
	user.MustUpdateProfile = false

	if _, err := s.users.Update(ctx, user.ID, user); err != nil {
		if errors.Is(err, models.ErrConflict) {
			return models.ErrConflict
		}
		s.logger.Error("failed to update profile", slog.String("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("profile update completed", slog.String("user_id", user.ID))
	s.auditLogger.LogAccountAction("profile_update_completed", user.ID, "", nil)

	return nil
}

func (s *AuthService) issueRefreshToken(ctx context.Context, userID string) (string, error) {
	opaque, err := pkgauth.GenerateOpaqueToken()
	if err != nil {
		s.logger.Error("failed to generate refresh token", slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	row := &models.RefreshToken{
		Token:     opaque,
		UserID:    userID,
		ExpiresAt: time.Now().Add(s.refreshExpiry),
	}
	if _, err := s.refreshTokens.Create(ctx, row); err != nil {
		s.logger.Error("failed to store refresh token", slog.String("user_id", userID), slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	return opaque, nil
}

func (s *AuthService) authResponse(user *models.User, accessToken, refreshToken string) *AuthResponse {
	return &AuthResponse{
		AccessToken:        accessToken,
		RefreshToken:       refreshToken,
		Username:           user.Username,
		Role:               user.Role,
		IsAdmin:            user.IsAdmin,
		MustChangePassword: user.MustChangePassword,
		MustUpdateProfile:  user.MustUpdateProfile,
	}
}
