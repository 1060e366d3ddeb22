// Package auth drives login, registration, logout, and startup session
// restoration.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/raphaelgruber/sakhi-go/internal/api"
)

// User-facing messages for the login failure classes.
const (
	MsgUnreachable        = "Cannot reach the server. Please check that the backend is running."
	MsgCredentialsNeeded  = "Email and password are required."
	MsgInvalidCredentials = "Invalid email or password, or your session has expired."
)

// Service is the slice of the API client the controller needs.
type Service interface {
	Login(ctx context.Context, creds api.Credentials) error
	Register(ctx context.Context, input api.RegisterInput) (*api.User, error)
	Me(ctx context.Context) (*api.User, error)
	Logout()
	HasSession() bool
}

// Controller owns the authentication state the rest of the client observes.
type Controller struct {
	svc    Service
	logger *slog.Logger

	mu      sync.Mutex
	user    *api.User
	loading bool
	errMsg  string
}

// NewController creates a controller with no active user.
func NewController(svc Service, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{svc: svc, logger: logger}
}

// User returns the authenticated user, if any.
func (c *Controller) User() (*api.User, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user, c.user != nil
}

// Loading reports whether an auth operation is in flight.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Err returns the last user-facing error message, empty when none.
func (c *Controller) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}

// Login authenticates with the backend and fetches the user profile. Any
// previous error is cleared before the attempt. Failures map to one of four
// user-facing messages: unreachable, credentials required, invalid/expired,
// or the backend's own detail verbatim.
func (c *Controller) Login(ctx context.Context, email, password string) error {
	c.begin()

	if email == "" || password == "" {
		return c.fail(errors.New(MsgCredentialsNeeded), MsgCredentialsNeeded)
	}

	if err := c.svc.Login(ctx, api.Credentials{Email: email, Password: password}); err != nil {
		return c.fail(err, loginMessage(err))
	}

	user, err := c.svc.Me(ctx)
	if err != nil {
		return c.fail(err, loginMessage(err))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.user = user
	c.loading = false
	c.logger.Info("logged in", "user", user.Email)
	return nil
}

// Register creates the account and immediately logs in with the same
// credentials, so successful registration never leaves the user logged out.
func (c *Controller) Register(ctx context.Context, email, username, password string) error {
	c.begin()

	if email == "" || username == "" || password == "" {
		return c.fail(errors.New(MsgCredentialsNeeded), MsgCredentialsNeeded)
	}

	input := api.RegisterInput{Email: email, Username: username, Password: password}
	if _, err := c.svc.Register(ctx, input); err != nil {
		return c.fail(err, loginMessage(err))
	}

	return c.Login(ctx, email, password)
}

// Logout clears credentials and the user. Client-side only.
func (c *Controller) Logout() {
	c.svc.Logout()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.user = nil
	c.errMsg = ""
	c.logger.Info("logged out")
}

// Restore re-establishes the session on startup. A stored token that fails to
// produce a profile is treated as invalid and discarded rather than retried.
func (c *Controller) Restore(ctx context.Context) bool {
	if !c.svc.HasSession() {
		return false
	}

	user, err := c.svc.Me(ctx)
	if err != nil {
		c.logger.Warn("stored session invalid, logging out", "error", err)
		c.svc.Logout()
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.user = user
	return true
}

func (c *Controller) begin() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = true
	c.errMsg = ""
}

func (c *Controller) fail(err error, msg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false
	c.errMsg = msg
	c.logger.Warn("auth operation failed", "error", err)
	return errors.New(msg)
}

// loginMessage maps a backend error to its user-facing message.
func loginMessage(err error) string {
	switch {
	case errors.Is(err, api.ErrUnreachable):
		return MsgUnreachable
	case errors.Is(err, api.ErrAuthentication), api.IsStatus(err, http.StatusUnauthorized):
		return MsgInvalidCredentials
	default:
		return err.Error()
	}
}
