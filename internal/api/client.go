package api

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
	"os"
	"time"

	"github.com/raphaelgruber/sakhi-go/internal/token"
)

// Client is an HTTP client for the Sakhi backend. It attaches bearer
// credentials from the token store to every request and transparently
// refreshes the access token once when a request comes back unauthorized.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     *token.Store
	logger     *slog.Logger
}

// New creates a new backend client.
// If baseURL is empty, uses the SAKHI_SERVER_URL env var or defaults to
// localhost:8000. Timeout can be configured via SAKHI_CLIENT_TIMEOUT.
func New(baseURL string, tokens *token.Store, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("SAKHI_SERVER_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}

	timeout := 2 * time.Minute // AI replies can take a while
	if t := os.Getenv("SAKHI_CLIENT_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		tokens: tokens,
		logger: logger,
	}
}

// SetTimeout overrides the HTTP client timeout.
func (c *Client) SetTimeout(d time.Duration) {
	c.httpClient.Timeout = d
}

// HasSession reports whether an access token is stored.
func (c *Client) HasSession() bool {
	return c.tokens.HasSession()
}

// Logout clears the stored token pair. Token invalidation is client-side
// only; no server endpoint is called.
func (c *Client) Logout() {
	if err := c.tokens.Clear(); err != nil {
		c.logger.Warn("failed to clear token store", "error", err)
	}
}

// do sends an authenticated JSON request. On a 401 with a bearer token
// attached it performs exactly one refresh attempt followed by one retry of
// the original request. This is request-scoped recovery: no loop, no backoff.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	attached, err := c.send(ctx, method, path, body, out, true)
	if err == nil {
		return nil
	}

	if !IsStatus(err, http.StatusUnauthorized) || !attached {
		return err
	}

	pair := c.tokens.Pair()
	if pair.RefreshToken == "" {
		c.forceLogout("no refresh token")
		return fmt.Errorf("%w: %v", ErrAuthentication, err)
	}

	if refreshErr := c.refresh(ctx, pair.RefreshToken); refreshErr != nil {
		c.forceLogout("refresh rejected")
		return fmt.Errorf("%w: %v", ErrAuthentication, refreshErr)
	}

	c.logger.Debug("access token refreshed, retrying request", "method", method, "path", path)
	if _, retryErr := c.send(ctx, method, path, body, out, true); retryErr != nil {
		if errors.Is(retryErr, ErrUnreachable) {
			return retryErr
		}
		c.forceLogout("retry rejected")
		return fmt.Errorf("%w: %v", ErrAuthentication, retryErr)
	}
	return nil
}

// doAnon sends a request without bearer credentials. Used for the auth
// endpoints themselves, where a stale token must not trigger a refresh loop.
func (c *Client) doAnon(ctx context.Context, method, path string, body, out any) error {
	_, err := c.send(ctx, method, path, body, out, false)
	return err
}

// send performs one HTTP round-trip. It reports whether a bearer token was
// attached so the caller can decide if a 401 is refreshable.
func (c *Client) send(ctx context.Context, method, path string, body, out any, withAuth bool) (bool, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return false, fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	attached := false
	if withAuth {
		if access := c.tokens.Pair().AccessToken; access != "" {
			req.Header.Set("Authorization", "Bearer "+access)
			attached = true
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return attached, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return attached, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return attached, &StatusError{
			Status: resp.StatusCode,
			Detail: errorDetail(respBody),
		}
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return attached, fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return attached, nil
}

// refresh exchanges the stored refresh token for a new pair and persists it.
// The backend takes the token as a query parameter, not a JSON body.
func (c *Client) refresh(ctx context.Context, refreshToken string) error {
	var resp tokenResponse
	path := "/auth/refresh?refresh_token=" + url.QueryEscape(refreshToken)
	if err := c.doAnon(ctx, http.MethodPost, path, nil, &resp); err != nil {
		return err
	}
	return c.tokens.Set(token.Pair{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	})
}

func (c *Client) forceLogout(reason string) {
	c.logger.Info("clearing stored credentials", "reason", reason)
	if err := c.tokens.Clear(); err != nil {
		c.logger.Warn("failed to clear token store", "error", err)
	}
}

// errorDetail extracts the backend's {"detail": ...} payload. The detail is
// usually a string but validation errors arrive as structured lists.
func errorDetail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return ""
	}

	var detail string
	if err := json.Unmarshal(payload.Detail, &detail); err == nil {
		return detail
	}
	return string(payload.Detail)
}
