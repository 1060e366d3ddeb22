package api

import (
	"context"
	"net/http"
	"time"

	"github.com/raphaelgruber/sakhi-go/internal/token"
)

// Credentials is the login payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterInput is the account-creation payload.
type RegisterInput struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// User is the profile returned by the backend.
type User struct {
	ID         int64     `json:"id"`
	Email      string    `json:"email"`
	Username   string    `json:"username"`
	IsActive   bool      `json:"is_active"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
}

// tokenResponse is the payload of /auth/login and /auth/refresh.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// Login authenticates and persists the returned token pair.
func (c *Client) Login(ctx context.Context, creds Credentials) error {
	var resp tokenResponse
	if err := c.doAnon(ctx, http.MethodPost, "/auth/login", creds, &resp); err != nil {
		return err
	}
	return c.tokens.Set(token.Pair{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	})
}

// Register creates a new account. It does not log the user in; callers that
// want a live session follow up with Login.
func (c *Client) Register(ctx context.Context, input RegisterInput) (*User, error) {
	var user User
	if err := c.doAnon(ctx, http.MethodPost, "/auth/register", input, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Me fetches the current user's profile.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
