package test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/aryan0dhankhar/leadintake/internal/handler"
	"github.com/aryan0dhankhar/leadintake/internal/leadclient"
	"github.com/aryan0dhankhar/leadintake/internal/reliability/retry"
	"github.com/aryan0dhankhar/leadintake/internal/repository"
	"github.com/aryan0dhankhar/leadintake/internal/security/auth"
	"github.com/aryan0dhankhar/leadintake/internal/service"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "admin-secret"
)

// TestServerHelper runs the full HTTP stack over file-backed stores in a temp dir
type TestServerHelper struct {
	Server    *httptest.Server
	Logger    *slog.Logger
	LeadsFile string
}

func NewTestServer(t *testing.T) *TestServerHelper {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()
	leadsFile := filepath.Join(dir, "fake-db.json")

	tokens := auth.NewTokenManager("integration-secret", "")
	authService := service.NewAuthService(
		repository.NewFileUserRepository(filepath.Join(dir, "users-db.json"), log),
		tokens,
		service.AuthConfig{BcryptCost: bcrypt.MinCost},
		log,
	)
	if err := authService.EnsureAdmin(context.Background(), adminEmail, adminPassword); err != nil {
		t.Fatalf("failed to seed admin: %v", err)
	}
	leadService := service.NewLeadService(repository.NewFileLeadRepository(leadsFile, log), nil, log)

	router := handler.NewRouter(handler.RouterConfig{
		Leads:  handler.NewLeadHandler(leadService, nil, handler.DefaultMaxBodyBytes, log),
		Auth:   handler.NewAuthHandler(authService, log),
		Health: handler.NewHealthHandler(nil, log),
		Tokens: tokens,
		Logger: log,
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &TestServerHelper{
		Server:    server,
		Logger:    log,
		LeadsFile: leadsFile,
	}
}

func (h *TestServerHelper) URL() string {
	return h.Server.URL
}

// Client returns an API client with fast retries
func (h *TestServerHelper) Client() *leadclient.Client {
	return leadclient.New(leadclient.Config{
		BaseURL: h.URL(),
		Retry: &retry.Config{
			MaxAttempts:       2,
			InitialBackoff:    time.Millisecond,
			MaxBackoff:        time.Millisecond,
			BackoffMultiplier: 1,
		},
		Logger: h.Logger,
	})
}

// OperatorClient returns a client signed in as the seeded admin
func (h *TestServerHelper) OperatorClient(t *testing.T) *leadclient.Client {
	t.Helper()
	c := h.Client()
	if _, err := c.Login(context.Background(), adminEmail, adminPassword); err != nil {
		t.Fatalf("operator login failed: %v", err)
	}
	return c
}

// AssertStatusCode helper function
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status %d, got %d", expected, resp.StatusCode)
	}
}

// AssertContentType helper function
func AssertContentType(t *testing.T, resp *http.Response, expected string) {
	t.Helper()
	if ct := resp.Header.Get("Content-Type"); ct != expected {
		t.Errorf("Expected Content-Type %s, got %s", expected, ct)
	}
}
