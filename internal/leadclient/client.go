package leadclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aryan0dhankhar/leadintake/internal/domain"
	"github.com/aryan0dhankhar/leadintake/internal/reliability/circuitbreaker"
	"github.com/aryan0dhankhar/leadintake/internal/reliability/retry"
)

const (
	defaultTimeout = 30 * time.Second

	breakerFailures  = 5
	breakerSuccesses = 1
	breakerCooldown  = 15 * time.Second
)

// Config configures a Client
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	Retry      *retry.Config
	Breaker    *circuitbreaker.CircuitBreaker
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// APIError is a non-2xx response from the server
type APIError struct {
	StatusCode int
	Message    string
	Details    []domain.FieldViolation
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
}

// IsStatus reports whether err is an APIError with the given status code
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// Resume is a file attached to a lead submission
type Resume struct {
	FileName    string
	ContentType string // derived from the extension when empty
	Data        []byte
}

// LeadForm is what the public intake form collects
type LeadForm struct {
	FirstName       string
	LastName        string
	Email           string
	LinkedInProfile string
	VisasOfInterest []string
	Resume          *Resume
	AdditionalInfo  string
}

// SubmitResult is the server's acknowledgement of a new lead
type SubmitResult struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// AuthResult carries the signed-in user and their token
type AuthResult struct {
	User  domain.PublicUser `json:"user"`
	Token string            `json:"token"`
}

// Client talks to the lead intake API
type Client struct {
	baseURL string
	http    *http.Client
	retry   *retry.Config
	breaker *circuitbreaker.CircuitBreaker
	logger  *slog.Logger

	mu    sync.RWMutex
	token string
}

// New creates a client for the API rooted at cfg.BaseURL
func New(cfg Config) *Client {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Retry == nil {
		cfg.Retry = retry.DefaultConfig()
	}
	if cfg.Retry.ShouldRetry == nil {
		rc := *cfg.Retry
		rc.ShouldRetry = transient
		cfg.Retry = &rc
	}
	if cfg.Breaker == nil {
		cfg.Breaker = circuitbreaker.NewCircuitBreaker(breakerFailures, breakerSuccesses, breakerCooldown)
		log := cfg.Logger
		cfg.Breaker.SetStateChangeCallback(func(from, to circuitbreaker.State) {
			log.Warn("api circuit breaker state changed",
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		})
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    cfg.HTTPClient,
		retry:   cfg.Retry,
		breaker: cfg.Breaker,
		logger:  cfg.Logger,
	}
}

// SetToken sets the bearer token sent with every request
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current bearer token
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SubmitLead posts the form as multipart/form-data
func (c *Client) SubmitLead(ctx context.Context, form LeadForm) (*SubmitResult, error) {
	body, contentType, err := encodeLeadForm(form)
	if err != nil {
		return nil, fmt.Errorf("failed to encode lead form: %w", err)
	}

	var result SubmitResult
	if err := c.do(ctx, http.MethodPost, "/api/leads", contentType, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListLeads fetches every lead. Transient failures are retried.
func (c *Client) ListLeads(ctx context.Context) ([]domain.Lead, error) {
	return retry.Do(ctx, c.retry, c.logger, "list_leads", func(ctx context.Context) ([]domain.Lead, error) {
		var leads []domain.Lead
		if err := c.do(ctx, http.MethodGet, "/api/leads", "", nil, &leads); err != nil {
			return nil, err
		}
		if leads == nil {
			leads = []domain.Lead{}
		}
		return leads, nil
	})
}

// DeleteLead removes a lead by id
func (c *Client) DeleteLead(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/leads", map[string]string{"id": id}, nil)
}

// UpdateLeadStatus moves a lead to status
func (c *Client) UpdateLeadStatus(ctx context.Context, id string, status domain.LeadStatus) error {
	return c.doJSON(ctx, http.MethodPatch, "/api/leads", map[string]any{"id": id, "status": status}, nil)
}

// Register creates an operator account and keeps the returned token
func (c *Client) Register(ctx context.Context, email, password, firstName, lastName string) (*AuthResult, error) {
	req := map[string]string{
		"email":     email,
		"password":  password,
		"firstName": firstName,
		"lastName":  lastName,
	}

	var result AuthResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/register", req, &result); err != nil {
		return nil, err
	}
	c.SetToken(result.Token)
	return &result, nil
}

// Login signs in and keeps the returned token
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	req := map[string]string{"email": email, "password": password}

	var result AuthResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", req, &result); err != nil {
		return nil, err
	}
	c.SetToken(result.Token)
	return &result, nil
}

// Me returns the account behind the current token
func (c *Client) Me(ctx context.Context) (*domain.PublicUser, error) {
	return retry.Do(ctx, c.retry, c.logger, "me", func(ctx context.Context) (*domain.PublicUser, error) {
		var resp struct {
			User domain.PublicUser `json:"user"`
		}
		if err := c.do(ctx, http.MethodGet, "/api/auth/me", "", nil, &resp); err != nil {
			return nil, err
		}
		return &resp.User, nil
	})
}

// ListUsers lists operator accounts. Requires an ADMIN token.
func (c *Client) ListUsers(ctx context.Context) ([]domain.PublicUser, error) {
	return retry.Do(ctx, c.retry, c.logger, "list_users", func(ctx context.Context) ([]domain.PublicUser, error) {
		var users []domain.PublicUser
		if err := c.do(ctx, http.MethodGet, "/api/users", "", nil, &users); err != nil {
			return nil, err
		}
		return users, nil
	})
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	return c.do(ctx, method, path, "application/json", body, out)
}

// do sends one request through the circuit breaker. Transport errors and 5xx
// responses count as breaker failures; 4xx responses do not.
func (c *Client) do(ctx context.Context, method, path, contentType string, body []byte, out any) error {
	return c.breaker.Call(func() error {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return fmt.Errorf("failed to build request: %w", err)
		}
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		req.Header.Set("Accept", "application/json")
		if token := c.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("%s %s: %w", method, path, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return decodeAPIError(resp)
		}
		if out == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
		}
		return nil
	}, countsAgainstBreaker)
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var payload struct {
		Error   string                  `json:"error"`
		Details []domain.FieldViolation `json:"details"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err := json.Unmarshal(data, &payload); err == nil {
		apiErr.Message = payload.Error
		apiErr.Details = payload.Details
	} else {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	return apiErr
}

func countsAgainstBreaker(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500
	}
	return !errors.Is(err, context.Canceled)
}

// transient reports whether a failed read is worth retrying
func transient(err error) bool {
	if errors.Is(err, circuitbreaker.ErrOpen) || errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500 || apiErr.StatusCode == http.StatusTooManyRequests
	}
	return true
}

var resumeTypes = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

func encodeLeadForm(form LeadForm) ([]byte, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fields := []struct{ name, value string }{
		{"firstName", form.FirstName},
		{"lastName", form.LastName},
		{"email", form.Email},
		{"linkedinProfile", form.LinkedInProfile},
		{"additionalInfo", form.AdditionalInfo},
	}
	for _, f := range fields {
		if err := mw.WriteField(f.name, f.value); err != nil {
			return nil, "", err
		}
	}
	for _, visa := range form.VisasOfInterest {
		if err := mw.WriteField("visasOfInterest", visa); err != nil {
			return nil, "", err
		}
	}

	if form.Resume != nil {
		contentType := form.Resume.ContentType
		if contentType == "" {
			contentType = resumeTypes[strings.ToLower(filepath.Ext(form.Resume.FileName))]
		}
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
			"name":     "resume",
			"filename": filepath.Base(form.Resume.FileName),
		}))
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(form.Resume.Data); err != nil {
			return nil, "", err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}
