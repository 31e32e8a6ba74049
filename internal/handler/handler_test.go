package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/aryan0dhankhar/leadintake/internal/domain"
	"github.com/aryan0dhankhar/leadintake/internal/repository"
	"github.com/aryan0dhankhar/leadintake/internal/security/auth"
	"github.com/aryan0dhankhar/leadintake/internal/security/ratelimit"
	"github.com/aryan0dhankhar/leadintake/internal/service"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type testEnv struct {
	router http.Handler
	leads  *repository.MemoryLeadRepository
	tokens *auth.TokenManager
}

type envOption func(*RouterConfig, *int64)

func withSubmitLimit(n int) envOption {
	return func(c *RouterConfig, _ *int64) {
		c.SubmitLimiter = ratelimit.NewLimiter(n, time.Minute)
	}
}

func withMaxBody(n int64) envOption {
	return func(_ *RouterConfig, max *int64) { *max = n }
}

func withChecks(checks map[string]Checker) envOption {
	return func(c *RouterConfig, _ *int64) { c.Health = NewHealthHandler(checks, quiet) }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	leadRepo := repository.NewMemoryLeadRepository()
	tokens := auth.NewTokenManager("test-secret", "")
	authSvc := service.NewAuthService(repository.NewMemoryUserRepository(), tokens, service.AuthConfig{BcryptCost: bcrypt.MinCost}, quiet)
	leadSvc := service.NewLeadService(leadRepo, nil, quiet)

	maxBody := DefaultMaxBodyBytes
	cfg := RouterConfig{
		Auth:   NewAuthHandler(authSvc, quiet),
		Health: NewHealthHandler(nil, quiet),
		Tokens: tokens,
		Logger: quiet,
	}
	for _, opt := range opts {
		opt(&cfg, &maxBody)
	}
	cfg.Leads = NewLeadHandler(leadSvc, nil, maxBody, quiet)

	t.Cleanup(func() {
		if cfg.SubmitLimiter != nil {
			cfg.SubmitLimiter.Stop()
		}
	})

	return &testEnv{router: NewRouter(cfg), leads: leadRepo, tokens: tokens}
}

func (e *testEnv) token(t *testing.T, role string) string {
	t.Helper()
	tok, err := e.tokens.GenerateToken("op-1", "ops@example.com", role, time.Hour)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, token, contentType string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) doJSON(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	return e.do(t, method, path, token, "application/json", &buf)
}

func validLeadJSON() map[string]any {
	return map[string]any{
		"firstName":       "Ada",
		"lastName":        "Lovelace",
		"email":           "ada@example.com",
		"linkedinProfile": "https://linkedin.com/in/ada",
		"visasOfInterest": []string{"Work Visa"},
		"resume":          map[string]any{"fileName": "cv.pdf", "size": 2_000_000, "contentType": "application/pdf"},
		"additionalInfo":  "",
	}
}

type resumePart struct {
	name        string
	contentType string
	data        []byte
}

func multipartLead(t *testing.T, fields map[string][]string, resume *resumePart) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, vs := range fields {
		for _, v := range vs {
			require.NoError(t, mw.WriteField(k, v))
		}
	}
	if resume != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="resume"; filename="%s"`, resume.name))
		if resume.contentType != "" {
			h.Set("Content-Type", resume.contentType)
		}
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(resume.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func leadFormFields() map[string][]string {
	return map[string][]string{
		"firstName":       {"Ada"},
		"lastName":        {"Lovelace"},
		"email":           {"ada@example.com"},
		"linkedinProfile": {"https://www.linkedin.com/in/ada"},
		"visasOfInterest": {"Work Visa", "Student Visa"},
	}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestCreateLeadJSON(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doJSON(t, http.MethodPost, "/api/leads", "", validLeadJSON())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp MessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Lead submitted successfully", resp.Message)
	assert.NotEmpty(t, resp.ID)

	leads, _ := env.leads.ListAll(context.Background())
	require.Len(t, leads, 1)
	assert.Equal(t, domain.LeadStatusPending, leads[0].Status)
	assert.Equal(t, int64(2_000_000), leads[0].Resume.Size)
}

func TestCreateLeadValidationFailure(t *testing.T) {
	env := newTestEnv(t)

	body := validLeadJSON()
	body["linkedinProfile"] = "https://example.com/me"
	body["email"] = "nope"

	rec := env.doJSON(t, http.MethodPost, "/api/leads", "", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decodeError(t, rec)
	assert.Equal(t, "Invalid form data", resp.Error)
	assert.Contains(t, resp.Details, domain.FieldViolation{Field: "email", Message: "Invalid email address"})
	assert.Contains(t, resp.Details, domain.FieldViolation{Field: "linkedinProfile", Message: "Must be a LinkedIn URL"})

	leads, _ := env.leads.ListAll(context.Background())
	assert.Empty(t, leads)
}

func TestCreateLeadMalformedJSON(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/leads", "", "application/json", strings.NewReader("{"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateLeadMultipart(t *testing.T) {
	env := newTestEnv(t)

	pdf := append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte("a"), 2_000_000)...)
	body, ct := multipartLead(t, leadFormFields(), &resumePart{name: "cv.pdf", contentType: "application/pdf", data: pdf})

	rec := env.do(t, http.MethodPost, "/api/leads", "", ct, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	leads, _ := env.leads.ListAll(context.Background())
	require.Len(t, leads, 1)
	assert.Equal(t, []string{"Work Visa", "Student Visa"}, leads[0].VisasOfInterest)
	assert.Equal(t, "cv.pdf", leads[0].Resume.FileName)
	assert.Equal(t, int64(len(pdf)), leads[0].Resume.Size)
}

func TestCreateLeadMultipartSniffsGenericType(t *testing.T) {
	env := newTestEnv(t)

	body, ct := multipartLead(t, leadFormFields(), &resumePart{
		name:        "cv.pdf",
		contentType: "application/octet-stream",
		data:        []byte("%PDF-1.7\n%âãÏÓ\n1 0 obj\n<<>>\nendobj\n"),
	})

	rec := env.do(t, http.MethodPost, "/api/leads", "", ct, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	leads, _ := env.leads.ListAll(context.Background())
	require.Len(t, leads, 1)
	assert.Equal(t, "application/pdf", leads[0].Resume.ContentType)
}

func TestCreateLeadMultipartResumeTooLarge(t *testing.T) {
	env := newTestEnv(t)

	big := append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte("a"), 6_000_000)...)
	body, ct := multipartLead(t, leadFormFields(), &resumePart{name: "cv.pdf", contentType: "application/pdf", data: big})

	rec := env.do(t, http.MethodPost, "/api/leads", "", ct, body)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decodeError(t, rec)
	assert.Contains(t, resp.Details, domain.FieldViolation{Field: "resume", Message: "Max file size is 5MB"})
}

func TestCreateLeadMultipartMissingResume(t *testing.T) {
	env := newTestEnv(t)

	body, ct := multipartLead(t, leadFormFields(), nil)
	rec := env.do(t, http.MethodPost, "/api/leads", "", ct, body)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decodeError(t, rec)
	assert.Contains(t, resp.Details, domain.FieldViolation{Field: "resume", Message: "Resume is required"})
}

func TestCreateLeadBodyTooLarge(t *testing.T) {
	env := newTestEnv(t, withMaxBody(1024))

	body := validLeadJSON()
	body["additionalInfo"] = strings.Repeat("x", 4096)

	rec := env.doJSON(t, http.MethodPost, "/api/leads", "", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestCreateLeadRateLimited(t *testing.T) {
	env := newTestEnv(t, withSubmitLimit(2))

	var last int
	for i := 0; i < 3; i++ {
		last = env.doJSON(t, http.MethodPost, "/api/leads", "", validLeadJSON()).Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)

	leads, _ := env.leads.ListAll(context.Background())
	assert.Len(t, leads, 2)
}

func TestOperatorRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/api/leads", "", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, env.doJSON(t, http.MethodDelete, "/api/leads", "", LeadIDRequest{ID: "x"}).Code)
	assert.Equal(t, http.StatusUnauthorized, env.doJSON(t, http.MethodPatch, "/api/leads", "bogus", UpdateStatusRequest{ID: "x"}).Code)
}

func TestListLeads(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "USER")

	rec := env.do(t, http.MethodGet, "/api/leads", token, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	env.doJSON(t, http.MethodPost, "/api/leads", "", validLeadJSON())
	env.doJSON(t, http.MethodPost, "/api/leads", "", validLeadJSON())

	rec = env.do(t, http.MethodGet, "/api/leads", token, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var leads []domain.Lead
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &leads))
	assert.Len(t, leads, 2)
}

func TestDeleteLead(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "ADMIN")
	lead, err := env.leads.Append(context.Background(), domain.LeadDraft{FirstName: "Ada"})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		rec := env.doJSON(t, http.MethodDelete, "/api/leads", token, LeadIDRequest{ID: lead.ID})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"message":"Lead deleted successfully"}`, rec.Body.String())
	}

	rec := env.doJSON(t, http.MethodDelete, "/api/leads", token, LeadIDRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateLeadStatus(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "USER")
	lead, err := env.leads.Append(context.Background(), domain.LeadDraft{FirstName: "Ada"})
	require.NoError(t, err)

	rec := env.doJSON(t, http.MethodPatch, "/api/leads", token, UpdateStatusRequest{ID: lead.ID, Status: domain.LeadStatusReachedOut})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Lead updated successfully"}`, rec.Body.String())

	stored, _ := env.leads.FindByID(context.Background(), lead.ID)
	assert.Equal(t, domain.LeadStatusReachedOut, stored.Status)

	rec = env.doJSON(t, http.MethodPatch, "/api/leads", token, UpdateStatusRequest{ID: lead.ID, Status: domain.LeadStatusPending})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.doJSON(t, http.MethodPatch, "/api/leads", token, UpdateStatusRequest{ID: "missing", Status: domain.LeadStatusReachedOut})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Lead not found", decodeError(t, rec).Error)

	rec = env.doJSON(t, http.MethodPatch, "/api/leads", token, UpdateStatusRequest{ID: lead.ID, Status: "DONE"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthFlow(t *testing.T) {
	env := newTestEnv(t)

	register := map[string]string{"email": "ops@example.com", "password": "secret1", "firstName": "Op", "lastName": "Erator"}
	rec := env.doJSON(t, http.MethodPost, "/api/auth/register", "", register)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var result service.AuthResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, "ops@example.com", result.User.Email)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = env.doJSON(t, http.MethodPost, "/api/auth/register", "", register)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Email already registered", decodeError(t, rec).Error)

	rec = env.doJSON(t, http.MethodPost, "/api/auth/login", "", AuthLoginRequest{Email: "ops@example.com", Password: "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials", decodeError(t, rec).Error)

	rec = env.doJSON(t, http.MethodPost, "/api/auth/login", "", AuthLoginRequest{Email: "ops@example.com", Password: "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.doJSON(t, http.MethodPost, "/api/auth/login", "", AuthLoginRequest{Email: "ops@example.com", Password: "secret1"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))

	rec = env.do(t, http.MethodGet, "/api/auth/me", result.Token, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, domain.RoleUser, me.User.Role)

	rec = env.doJSON(t, http.MethodPost, "/api/auth/change-password", result.Token, ChangePasswordRequest{OldPassword: "secret1", NewPassword: "secret2"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListUsersRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)

	register := map[string]string{"email": "ops@example.com", "password": "secret1", "firstName": "Op", "lastName": "Erator"}
	require.Equal(t, http.StatusCreated, env.doJSON(t, http.MethodPost, "/api/auth/register", "", register).Code)

	rec := env.do(t, http.MethodGet, "/api/users", env.token(t, "USER"), "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/users", env.token(t, "ADMIN"), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")

	var users []domain.PublicUser
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	require.Len(t, users, 1)
	assert.Equal(t, "ops@example.com", users[0].Email)
}

func TestRegisterDisabled(t *testing.T) {
	t.Setenv("FLAG_DISABLE_REGISTRATION", "1")
	env := newTestEnv(t)

	rec := env.doJSON(t, http.MethodPost, "/api/auth/register", "", map[string]string{"email": "a@example.com", "password": "secret1", "firstName": "A", "lastName": "B"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t, withChecks(map[string]Checker{
		"store": func(context.Context) error { return nil },
	}))

	rec := env.do(t, http.MethodGet, "/healthz", "", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/readyz", "", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	failing := newTestEnv(t, withChecks(map[string]Checker{
		"redis": func(context.Context) error { return errors.New("connection refused") },
	}))
	rec = failing.do(t, http.MethodGet, "/readyz", "", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var ready ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ready))
	assert.Equal(t, "not_ready", ready.Status)
	assert.Contains(t, ready.Checks["redis"], "connection refused")
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.doJSON(t, http.MethodPost, "/api/leads", "", validLeadJSON())

	rec := env.do(t, http.MethodGet, "/metrics", "", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "leadintake_leads_submitted_total")
}

func TestReadyReusesRecentProbe(t *testing.T) {
	calls := 0
	env := newTestEnv(t, withChecks(map[string]Checker{
		"store": func(context.Context) error {
			calls++
			return nil
		},
	}))

	for i := 0; i < 3; i++ {
		rec := env.do(t, http.MethodGet, "/readyz", "", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, 1, calls)
}
