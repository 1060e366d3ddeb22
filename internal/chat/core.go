package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/raphaelgruber/sakhi-go/internal/api"
)

// ErrUnknownSession is returned when an operation names a session the
// directory does not hold.
var ErrUnknownSession = errors.New("unknown session")

// Backend is the subset of the API client the core depends on.
type Backend interface {
	CreateSession(ctx context.Context, title string) (*api.ChatSession, error)
	ListSessions(ctx context.Context) ([]api.ChatSession, error)
	Messages(ctx context.Context, sessionID int64) ([]api.ChatMessage, error)
	SendMessage(ctx context.Context, sessionID int64, content string) (string, error)
	DeleteSession(ctx context.Context, sessionID int64) error
	GenerateTitle(ctx context.Context, sessionID int64) (string, error)
}

// Core orchestrates session creation, optimistic message sends, reconciliation
// against server state, and the anonymous/authenticated mode switch.
//
// The mutex guards directory mutations only; it is never held across a network
// call. The directory's sessions are written through exclusively under the
// lock, and every session handed out by an exported method is a deep copy, so
// callers can read their result on any goroutine. Two overlapping sends on the
// same session still race on reconciliation, last write wins; that mirrors how
// the UI actually behaves and is deliberately not serialized here.
type Core struct {
	mu      sync.Mutex
	backend Backend
	dir     *Directory
	deck    *ReplyDeck
	authed  bool
	logger  *slog.Logger

	// Test seams.
	now   func() time.Time
	sleep func(time.Duration)

	delayMin time.Duration
	delayMax time.Duration
}

// NewCore creates a synchronization core in anonymous mode.
func NewCore(backend Backend, deck *ReplyDeck, logger *slog.Logger) *Core {
	if deck == nil {
		deck = DefaultDeck()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Core{
		backend:  backend,
		dir:      NewDirectory(),
		deck:     deck,
		logger:   logger,
		now:      time.Now,
		sleep:    time.Sleep,
		delayMin: time.Second,
		delayMax: 3 * time.Second,
	}
}

// SetTypingDelay configures the simulated latency bounds for anonymous
// replies.
func (c *Core) SetTypingDelay(min, max time.Duration) {
	c.delayMin, c.delayMax = min, max
}

// Authenticated reports the core's current mode.
func (c *Core) Authenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authed
}

// SetAuthenticated reacts to an authentication-state transition. Entering
// authenticated mode discards held state and reloads the directory from the
// server, focusing the most recent session. Leaving it retains only local
// sessions. On a failed reload the previous state is left unchanged.
func (c *Core) SetAuthenticated(ctx context.Context, authed bool) error {
	if !authed {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.authed = false
		c.dir.KeepLocal()
		return nil
	}

	sessions, err := c.backend.ListSessions(ctx)
	if err != nil {
		c.logger.Error("failed to load sessions", "error", err)
		return fmt.Errorf("load sessions: %w", err)
	}

	dir := NewDirectory()
	for i := len(sessions) - 1; i >= 0; i-- {
		dir.Prepend(sessionFromAPI(sessions[i]))
	}

	if dir.Len() > 0 {
		recent := dir.Sessions()[0]
		msgs, err := c.backend.Messages(ctx, recent.ID.Remote())
		if err != nil {
			// The listing is still usable; the log loads on select.
			c.logger.Warn("failed to load recent session messages", "session", recent.ID, "error", err)
		} else {
			recent.Messages = messagesFromAPI(msgs)
		}
		dir.SetCurrent(recent.ID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.authed = true
	c.dir = dir
	return nil
}

// NewChat creates a session and makes it current. Authenticated mode creates
// it server-side; anonymous mode synthesizes a local one with no network call.
func (c *Core) NewChat(ctx context.Context) (*Session, error) {
	session, err := c.newChat(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return session.Clone(), nil
}

// newChat creates and focuses a session, returning the directory's own
// pointer. Callers hand out clones, never this pointer.
func (c *Core) newChat(ctx context.Context) (*Session, error) {
	c.mu.Lock()
	authed := c.authed
	c.mu.Unlock()

	var session *Session
	if authed {
		created, err := c.backend.CreateSession(ctx, DefaultTitle)
		if err != nil {
			c.logger.Error("failed to create session", "error", err)
			return nil, fmt.Errorf("create session: %w", err)
		}
		session = sessionFromAPI(*created)
	} else {
		session = newLocalSession(c.now())
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.dir.Prepend(session)
	c.dir.SetCurrent(session.ID)
	return session, nil
}

// Select moves focus to the given session. Local sessions are always fully
// in memory; remote ones get their message log fetched and replaced before
// the switch, since listing leaves logs empty.
func (c *Core) Select(ctx context.Context, id SessionID) (*Session, error) {
	c.mu.Lock()
	session, ok := c.dir.Get(id)
	c.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}

	if id.IsLocal() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.dir.SetCurrent(id)
		return session.Clone(), nil
	}

	msgs, err := c.backend.Messages(ctx, id.Remote())
	if err != nil {
		c.logger.Error("failed to load session messages", "session", id, "error", err)
		return nil, fmt.Errorf("load messages: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	session.Messages = messagesFromAPI(msgs)
	c.dir.SetCurrent(id)
	return session.Clone(), nil
}

// Send appends the user message optimistically, dispatches it, and either
// commits server-authoritative state or rolls the session back to its
// pre-append snapshot. Failure is all-or-nothing: no "sent but no reply"
// state survives.
func (c *Core) Send(ctx context.Context, content string) (*Session, error) {
	c.mu.Lock()
	session, ok := c.dir.Current()
	c.mu.Unlock()

	if !ok {
		created, err := c.newChat(ctx)
		if err != nil {
			return nil, err
		}
		session = created
	}

	c.mu.Lock()
	snapshot := session.Clone()
	first := len(session.Messages) == 0
	now := c.now()
	session.Messages = append(session.Messages, Message{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Content:   content,
		Timestamp: now,
	})
	if first {
		session.Title = speculativeTitle(content)
	}
	session.UpdatedAt = now
	c.mu.Unlock()

	if session.ID.IsLocal() {
		c.localReply(session)
		c.mu.Lock()
		defer c.mu.Unlock()
		return session.Clone(), nil
	}

	if err := c.dispatch(ctx, session, content, first); err != nil {
		c.mu.Lock()
		c.dir.Replace(snapshot)
		c.mu.Unlock()
		c.logger.Error("send failed, rolled back", "session", session.ID, "error", err)
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return session.Clone(), nil
}

// dispatch sends the message and reconciles the local log against the server
// wholesale, so ordering and the assistant reply always match server state.
// The first message additionally gets a server-generated title, replacing the
// speculative one.
func (c *Core) dispatch(ctx context.Context, session *Session, content string, first bool) error {
	id := session.ID.Remote()

	if _, err := c.backend.SendMessage(ctx, id, content); err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	msgs, err := c.backend.Messages(ctx, id)
	if err != nil {
		return fmt.Errorf("reconcile messages: %w", err)
	}

	c.mu.Lock()
	session.Messages = messagesFromAPI(msgs)
	session.UpdatedAt = c.now()
	c.mu.Unlock()

	if first {
		title, err := c.backend.GenerateTitle(ctx, id)
		if err != nil {
			return fmt.Errorf("generate title: %w", err)
		}
		c.mu.Lock()
		session.Title = title
		c.mu.Unlock()
	}
	return nil
}

// localReply appends a canned assistant reply after a simulated typing delay.
// This path never touches the network or the token store.
func (c *Core) localReply(session *Session) {
	reply := c.deck.Pick()
	c.sleep(c.replyDelay())

	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	session.Messages = append(session.Messages, Message{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		Content:   reply,
		Timestamp: now,
	})
	session.UpdatedAt = now
}

func (c *Core) replyDelay() time.Duration {
	if c.delayMax <= c.delayMin {
		return c.delayMin
	}
	return c.delayMin + time.Duration(rand.Int63n(int64(c.delayMax-c.delayMin)))
}

// Delete removes a session. Remote sessions are deleted server-side first;
// the directory entry goes only when the server confirms. If the deleted
// session was current, focus falls to the next most recent one.
func (c *Core) Delete(ctx context.Context, id SessionID) error {
	c.mu.Lock()
	_, ok := c.dir.Get(id)
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}

	if !id.IsLocal() {
		if err := c.backend.DeleteSession(ctx, id.Remote()); err != nil {
			c.logger.Error("failed to delete session", "session", id, "error", err)
			return fmt.Errorf("delete session: %w", err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.dir.Remove(id)
	return nil
}

// Sessions returns a snapshot of the directory contents, most recent first.
// The copies are detached from the directory; later sends do not appear in
// them, and mutating them has no effect.
func (c *Core) Sessions() []*Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	sessions := c.dir.Sessions()
	out := make([]*Session, len(sessions))
	for i, s := range sessions {
		out[i] = s.Clone()
	}
	return out
}

// Current returns a snapshot of the session in focus, if any.
func (c *Core) Current() (*Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	session, ok := c.dir.Current()
	if !ok {
		return nil, false
	}
	return session.Clone(), true
}
