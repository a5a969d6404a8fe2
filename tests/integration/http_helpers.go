package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/finiti/glossary-api/internal/auth"
	"github.com/finiti/glossary-api/internal/database"
	"github.com/finiti/glossary-api/internal/handlers"
	"github.com/finiti/glossary-api/internal/repositories"
	"github.com/finiti/glossary-api/internal/routes"
	"github.com/finiti/glossary-api/internal/services"
	pkglogger "github.com/finiti/glossary-api/pkg/logger"
)

// SentEmail represents a captured email message
type SentEmail struct {
	To    string
	Token string
}

// MockEmailService captures password reset emails for test assertions
type MockEmailService struct {
	mu         sync.Mutex
	SentEmails []SentEmail
}

func (m *MockEmailService) SendPasswordResetEmail(ctx context.Context, email, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SentEmails = append(m.SentEmails, SentEmail{To: email, Token: token})
	return nil
}

// LastEmail returns the most recent captured email, or nil
func (m *MockEmailService) LastEmail() *SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.SentEmails) == 0 {
		return nil
	}
	return &m.SentEmails[len(m.SentEmails)-1]
}

// TestServer wraps httptest.Server with a real database and a mocked mailer
type TestServer struct {
	Server       *httptest.Server
	DB           *database.DB
	EmailService *MockEmailService
}

// NewTestServer wires the full HTTP stack the way cmd/api does, with the
// SES mailer replaced by a capture mock.
func NewTestServer(db *database.DB) *TestServer {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	userRepo := repositories.NewUserRepository(db)
	refreshTokenRepo := repositories.NewRefreshTokenRepository(db)
	termRepo := repositories.NewTermRepository(db)

	tokenManager := auth.NewTokenManager("test-secret-32-characters-long!!", 15*time.Minute)
	auditLogger := pkglogger.NewAuditLogger(logger)
	mockEmail := &MockEmailService{}

	authService := services.NewAuthService(
		userRepo,
		refreshTokenRepo,
		tokenManager,
		mockEmail,
		7*24*time.Hour,
		1*time.Hour,
		logger,
		auditLogger,
	)
	adminGlossaryService := services.NewAdminGlossaryService(termRepo, userRepo, logger, auditLogger)
	publicGlossaryService := services.NewPublicGlossaryService(termRepo, logger)

	authHandler := handlers.NewAuthHandler(authService)
	adminGlossaryHandler := handlers.NewAdminGlossaryHandler(adminGlossaryService)
	publicGlossaryHandler := handlers.NewPublicGlossaryHandler(publicGlossaryService)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(r, authHandler, adminGlossaryHandler, publicGlossaryHandler, tokenManager)

	return &TestServer{
		Server:       httptest.NewServer(r),
		DB:           db,
		EmailService: mockEmail,
	}
}

// Close shuts down the test server
func (ts *TestServer) Close() {
	if ts.Server != nil {
		ts.Server.Close()
	}
}

// Request makes a JSON HTTP request to the test server
func (ts *TestServer) Request(method, path string, body interface{}, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, ts.Server.URL+path, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	return http.DefaultClient.Do(req)
}

// RequestWithAuth makes an authenticated HTTP request with a bearer token
func (ts *TestServer) RequestWithAuth(method, path, accessToken string, body interface{}) (*http.Response, error) {
	return ts.Request(method, path, body, map[string]string{
		"Authorization": "Bearer " + accessToken,
	})
}

// ParseJSONResponse parses the response body into target and closes it
func ParseJSONResponse(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(target)
}
