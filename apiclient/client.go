// Package apiclient talks to the storefront REST API: products, chat and
// auth. Every failure is reported as one of the domain error types.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"

	"shopassist/domain"
)

// DefaultTimeout bounds every request.
const DefaultTimeout = 10 * time.Second

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 4 << 20

var validate = validator.New()

// Client is a storefront API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     domain.SessionStore
	logger     *slog.Logger
	now        func() time.Time
}

// compile-time assertions
var (
	_ domain.ProductCatalog = (*Client)(nil)
	_ domain.ChatService    = (*Client)(nil)
	_ domain.AuthService    = (*Client)(nil)
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client. Its Timeout is kept as-is.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTokenStore enables bearer auth from, and login persistence to, s.
func WithTokenStore(s domain.SessionStore) Option {
	return func(c *Client) { c.tokens = s }
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New returns a client for the API rooted at baseURL. A non-positive timeout
// selects DefaultTimeout.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type apiError struct {
	Error string `json:"error"`
}

// do performs one JSON round trip. out may be nil when the body is ignored.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.bearer(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := c.now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "op", op, "url", u, "error", err)
		return domain.NewTransportError(op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return domain.NewTransportError(op, err)
	}
	c.logger.Debug("request done",
		"op", op,
		"method", method,
		"status", resp.StatusCode,
		"duration_ms", c.now().Sub(start).Milliseconds(),
	)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		c.forgetLogin(ctx)
		return domain.NewUnauthorizedError(op)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		var ae apiError
		_ = json.Unmarshal(raw, &ae)
		return domain.NewStatusError(op, resp.StatusCode, ae.Error)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return domain.NewMalformedResponseError(op, err.Error())
	}
	if err := validate.Struct(out); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return fmt.Errorf("%s: %w", op, err)
		}
		return domain.NewMalformedResponseError(op, err.Error())
	}
	return nil
}

// bearer returns the stored access token, dropping it first if it is a JWT
// whose exp has passed. Opaque tokens are sent unchanged.
func (c *Client) bearer(ctx context.Context) string {
	if c.tokens == nil {
		return ""
	}
	token, err := c.tokens.Get(ctx, domain.KeyAuthToken)
	if err != nil || token == "" {
		return ""
	}

	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return token
	}
	if claims.ExpiresAt != nil && !claims.ExpiresAt.After(c.now()) {
		c.logger.Info("stored access token expired", "expired_at", claims.ExpiresAt.Time)
		c.forgetLogin(ctx)
		return ""
	}
	return token
}

func (c *Client) forgetLogin(ctx context.Context) {
	if c.tokens == nil {
		return
	}
	if err := c.tokens.Delete(ctx, domain.KeyAuthToken); err != nil {
		c.logger.Warn("failed to clear auth token", "error", err)
	}
	if err := c.tokens.Delete(ctx, domain.KeyUser); err != nil {
		c.logger.Warn("failed to clear stored user", "error", err)
	}
}
