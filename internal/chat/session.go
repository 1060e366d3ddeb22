// Package chat keeps the client's view of chat sessions consistent with the
// backend: optimistic sends, server reconciliation, and anonymous local-only
// sessions.
package chat

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/raphaelgruber/sakhi-go/internal/api"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultTitle is the title given to sessions before any message names them.
const DefaultTitle = "New Conversation"

// SessionID identifies a session in one of two namespaces: server-issued
// numeric ids (durable) or locally generated ids (anonymous, never sent to
// the backend). The namespace decides the session's handling path for its
// whole lifetime; a local session is never converted in place.
type SessionID struct {
	remote int64
	local  string
}

// RemoteID wraps a server-issued session id.
func RemoteID(id int64) SessionID {
	return SessionID{remote: id}
}

// NewLocalID generates a fresh id in the local namespace.
func NewLocalID() SessionID {
	return SessionID{local: "local-" + uuid.NewString()}
}

// IsLocal reports whether the id belongs to the local namespace.
func (id SessionID) IsLocal() bool {
	return id.local != ""
}

// Remote returns the server-issued id. Only meaningful when !IsLocal().
func (id SessionID) Remote() int64 {
	return id.remote
}

// IsZero reports whether the id is unset.
func (id SessionID) IsZero() bool {
	return id.local == "" && id.remote == 0
}

func (id SessionID) String() string {
	if id.IsLocal() {
		return id.local
	}
	return strconv.FormatInt(id.remote, 10)
}

// Message is one entry of a session's ordered log. Insertion order is
// chronological and authoritative; messages are never reordered.
type Message struct {
	ID        string
	Role      string
	Content   string
	Timestamp time.Time
}

// Session is a chat session held by the directory. For remote sessions the
// server copy is the source of truth; Messages may be stale or empty until
// the session is selected.
type Session struct {
	ID        SessionID
	Title     string
	Messages  []Message
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy, used to snapshot a session before an optimistic
// update so a failed dispatch can restore it.
func (s *Session) Clone() *Session {
	c := *s
	c.Messages = make([]Message, len(s.Messages))
	copy(c.Messages, s.Messages)
	return &c
}

// newLocalSession synthesizes an anonymous session. No network involved.
func newLocalSession(now time.Time) *Session {
	return &Session{
		ID:        NewLocalID(),
		Title:     DefaultTitle,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// sessionFromAPI converts a server session listing entry. The message log
// stays empty until first selected.
func sessionFromAPI(s api.ChatSession) *Session {
	return &Session{
		ID:        RemoteID(s.ID),
		Title:     s.Title,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

// messagesFromAPI converts a server message log.
func messagesFromAPI(msgs []api.ChatMessage) []Message {
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		role := RoleAssistant
		if m.IsUserMessage {
			role = RoleUser
		}
		out = append(out, Message{
			ID:        strconv.FormatInt(m.ID, 10),
			Role:      role,
			Content:   m.Content,
			Timestamp: m.Timestamp,
		})
	}
	return out
}

// titleLimit is the maximum speculative-title length taken from the first
// message before the server's generated title replaces it.
const titleLimit = 30

// speculativeTitle derives a provisional title from message content. The
// ellipsis is always appended, matching the server-side preview format.
func speculativeTitle(content string) string {
	runes := []rune(content)
	if len(runes) > titleLimit {
		runes = runes[:titleLimit]
	}
	return string(runes) + "..."
}
