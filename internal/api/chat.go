package api

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// ChatSession is a server-persisted chat session. Message logs are fetched
// separately via Messages.
type ChatSession struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChatMessage is one entry of a session's message log.
type ChatMessage struct {
	ID            int64     `json:"id"`
	Content       string    `json:"content"`
	IsUserMessage bool      `json:"is_user_message"`
	Timestamp     time.Time `json:"timestamp"`
}

// CreateSession creates a new chat session with the given title.
func (c *Client) CreateSession(ctx context.Context, title string) (*ChatSession, error) {
	var session ChatSession
	payload := map[string]string{"title": title}
	if err := c.do(ctx, http.MethodPost, "/chat/sessions", payload, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// ListSessions returns the user's sessions, most recently updated first.
func (c *Client) ListSessions(ctx context.Context) ([]ChatSession, error) {
	var sessions []ChatSession
	if err := c.do(ctx, http.MethodGet, "/chat/sessions", nil, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// Messages returns the full message log of a session in chronological order.
func (c *Client) Messages(ctx context.Context, sessionID int64) ([]ChatMessage, error) {
	var messages []ChatMessage
	path := fmt.Sprintf("/chat/sessions/%d/messages", sessionID)
	if err := c.do(ctx, http.MethodGet, path, nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// SendMessage sends a user message and returns the AI reply text. The server
// persists both; callers re-fetch the log for the authoritative state.
func (c *Client) SendMessage(ctx context.Context, sessionID int64, content string) (string, error) {
	var resp struct {
		Message string `json:"message"`
	}
	path := fmt.Sprintf("/chat/sessions/%d/messages", sessionID)
	payload := map[string]string{"content": content}
	if err := c.do(ctx, http.MethodPost, path, payload, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// DeleteSession deletes a session and all its messages.
func (c *Client) DeleteSession(ctx context.Context, sessionID int64) error {
	path := fmt.Sprintf("/chat/sessions/%d", sessionID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// GenerateTitle asks the server to derive a title from the session's first
// message and returns it.
func (c *Client) GenerateTitle(ctx context.Context, sessionID int64) (string, error) {
	var resp struct {
		Title string `json:"title"`
	}
	path := fmt.Sprintf("/chat/sessions/%d/title", sessionID)
	if err := c.do(ctx, http.MethodPost, path, nil, &resp); err != nil {
		return "", err
	}
	return resp.Title, nil
}
