package chat

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/raphaelgruber/sakhi-go/internal/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBackend = errors.New("backend boom")

// fakeBackend is an in-memory stand-in for the API client mirroring the
// server's behavior: sends persist the user message and an assistant reply,
// and message logs are returned in chronological order.
type fakeBackend struct {
	mu       sync.Mutex
	calls    []string
	nextID   int64
	nextMsg  int64
	sessions map[int64]api.ChatSession
	messages map[int64][]api.ChatMessage
	order    []int64 // listing order, most recently updated first

	reply string
	title string

	failCreate   bool
	failList     bool
	failMessages bool
	failSend     bool
	failDelete   bool
	failTitle    bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		sessions: make(map[int64]api.ChatSession),
		messages: make(map[int64][]api.ChatMessage),
		reply:    "I hear you.",
		title:    "Generated Title",
	}
}

func (f *fakeBackend) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeBackend) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeBackend) addSession(title string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := f.nextID
	f.sessions[id] = api.ChatSession{ID: id, Title: title}
	f.order = append([]int64{id}, f.order...)
	return id
}

func (f *fakeBackend) addMessage(sessionID int64, content string, user bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextMsg++
	f.messages[sessionID] = append(f.messages[sessionID], api.ChatMessage{
		ID: f.nextMsg, Content: content, IsUserMessage: user,
	})
}

func (f *fakeBackend) CreateSession(ctx context.Context, title string) (*api.ChatSession, error) {
	f.mu.Lock()
	f.record("CreateSession")
	f.mu.Unlock()
	if f.failCreate {
		return nil, errBackend
	}
	id := f.addSession(title)
	s := f.sessions[id]
	return &s, nil
}

func (f *fakeBackend) ListSessions(ctx context.Context) ([]api.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListSessions")
	if f.failList {
		return nil, errBackend
	}
	out := make([]api.ChatSession, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.sessions[id])
	}
	return out, nil
}

func (f *fakeBackend) Messages(ctx context.Context, sessionID int64) ([]api.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Messages")
	if f.failMessages {
		return nil, errBackend
	}
	out := make([]api.ChatMessage, len(f.messages[sessionID]))
	copy(out, f.messages[sessionID])
	return out, nil
}

func (f *fakeBackend) SendMessage(ctx context.Context, sessionID int64, content string) (string, error) {
	f.mu.Lock()
	f.record("SendMessage")
	fail := f.failSend
	f.mu.Unlock()
	if fail {
		return "", errBackend
	}
	f.addMessage(sessionID, content, true)
	f.addMessage(sessionID, f.reply, false)
	return f.reply, nil
}

func (f *fakeBackend) DeleteSession(ctx context.Context, sessionID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("DeleteSession")
	if f.failDelete {
		return errBackend
	}
	delete(f.sessions, sessionID)
	delete(f.messages, sessionID)
	for i, id := range f.order {
		if id == sessionID {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeBackend) GenerateTitle(ctx context.Context, sessionID int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GenerateTitle")
	if f.failTitle {
		return "", errBackend
	}
	s := f.sessions[sessionID]
	s.Title = f.title
	f.sessions[sessionID] = s
	return f.title, nil
}

func coreLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// newTestCore builds a core with deterministic time and no real sleeping.
func newTestCore(t *testing.T, backend Backend) (*Core, *time.Duration) {
	t.Helper()
	core := NewCore(backend, DefaultDeck(), coreLogger())
	var slept time.Duration
	core.sleep = func(d time.Duration) { slept = d }
	return core, &slept
}

func TestAnonymousOperationsIssueNoNetworkCalls(t *testing.T) {
	backend := newFakeBackend()
	core, _ := newTestCore(t, backend)

	ctx := context.Background()
	session, err := core.NewChat(ctx)
	require.NoError(t, err)
	assert.True(t, session.ID.IsLocal())
	assert.Equal(t, DefaultTitle, session.Title)

	_, err = core.Select(ctx, session.ID)
	require.NoError(t, err)

	_, err = core.Send(ctx, "Hello")
	require.NoError(t, err)

	assert.Zero(t, backend.callCount(), "anonymous mode must never touch the backend")
}

func TestAnonymousSendScenario(t *testing.T) {
	backend := newFakeBackend()
	core, slept := newTestCore(t, backend)
	core.SetTypingDelay(time.Second, 3*time.Second)

	session, err := core.Send(context.Background(), "Hello")
	require.NoError(t, err)

	// An implicit local session was created and focused.
	assert.True(t, session.ID.IsLocal())
	cur, ok := core.Current()
	require.True(t, ok)
	assert.Equal(t, session, cur)

	// Speculative title always carries the ellipsis, even for short content.
	assert.Equal(t, "Hello...", session.Title)

	require.Len(t, session.Messages, 2)
	assert.Equal(t, RoleUser, session.Messages[0].Role)
	assert.Equal(t, "Hello", session.Messages[0].Content)
	assert.Equal(t, RoleAssistant, session.Messages[1].Role)
	assert.Contains(t, DefaultDeck().Replies(), session.Messages[1].Content)

	assert.GreaterOrEqual(t, *slept, time.Second)
	assert.LessOrEqual(t, *slept, 3*time.Second)
	assert.Zero(t, backend.callCount())
}

func TestHandOutsAreDetachedCopies(t *testing.T) {
	backend := newFakeBackend()
	core, _ := newTestCore(t, backend)
	ctx := context.Background()

	session, err := core.Send(ctx, "first")
	require.NoError(t, err)

	// Scribbling on a returned session must not leak into the directory.
	session.Title = "scribbled"
	session.Messages[0].Content = "scribbled"

	cur, ok := core.Current()
	require.True(t, ok)
	assert.Equal(t, "first...", cur.Title)
	assert.Equal(t, "first", cur.Messages[0].Content)

	// Snapshots do not observe later sends.
	_, err = core.Send(ctx, "second")
	require.NoError(t, err)
	assert.Len(t, cur.Messages, 2)

	listed := core.Sessions()
	require.Len(t, listed, 1)
	listed[0].Messages = nil
	again, _ := core.Current()
	assert.Len(t, again.Messages, 4)
}

func TestConcurrentSendAndRead(t *testing.T) {
	backend := newFakeBackend()
	core, _ := newTestCore(t, backend)
	ctx := context.Background()

	_, err := core.NewChat(ctx)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			if _, err := core.Send(ctx, "hi"); err != nil {
				t.Error(err)
				return
			}
		}
	}()

	// Reads race the sender the same way the UI's render loop does while a
	// send command is in flight. Run under -race.
	for reading := true; reading; {
		select {
		case <-done:
			reading = false
		default:
			if session, ok := core.Current(); ok {
				for _, m := range session.Messages {
					_ = m.Content
				}
			}
			_ = core.Sessions()
		}
	}

	session, ok := core.Current()
	require.True(t, ok)
	assert.Len(t, session.Messages, 200, "each send appends the message and a reply")
}

func TestReplyDelayBounds(t *testing.T) {
	core := NewCore(newFakeBackend(), DefaultDeck(), coreLogger())
	core.SetTypingDelay(time.Second, 3*time.Second)
	for i := 0; i < 50; i++ {
		d := core.replyDelay()
		if d < time.Second || d >= 3*time.Second {
			t.Fatalf("delay %v out of [1s,3s)", d)
		}
	}

	// Degenerate bounds collapse to the minimum.
	core.SetTypingDelay(2*time.Second, 2*time.Second)
	if d := core.replyDelay(); d != 2*time.Second {
		t.Fatalf("delay = %v, want 2s", d)
	}
}

func authedCore(t *testing.T, backend *fakeBackend) *Core {
	t.Helper()
	core, _ := newTestCore(t, backend)
	require.NoError(t, core.SetAuthenticated(context.Background(), true))
	return core
}

func TestAuthenticatedSendReconciles(t *testing.T) {
	backend := newFakeBackend()
	id := backend.addSession("Earlier chat")
	backend.addMessage(id, "old question", true)
	backend.addMessage(id, "old answer", false)

	core := authedCore(t, backend)
	ctx := context.Background()

	for _, content := range []string{"first", "second", "third"} {
		session, err := core.Send(ctx, content)
		require.NoError(t, err)

		// Reconciliation invariant: the local log equals the server's.
		want := messagesFromAPI(backend.messages[id])
		assert.Equal(t, want, session.Messages)
	}

	session, _ := core.Current()
	assert.Len(t, session.Messages, 8, "2 preexisting + 3 sends with replies")
}

func TestAuthenticatedFirstSendCreatesSessionAndTitles(t *testing.T) {
	backend := newFakeBackend()
	backend.title = "Recursion, Explained"
	core := authedCore(t, backend)
	ctx := context.Background()

	session, err := core.Send(ctx, "Explain recursion")
	require.NoError(t, err)

	assert.False(t, session.ID.IsLocal())
	// The server-generated title replaced the speculative truncation.
	assert.Equal(t, "Recursion, Explained", session.Title)

	require.Len(t, session.Messages, 2)
	assert.Equal(t, RoleUser, session.Messages[0].Role)
	assert.Equal(t, RoleAssistant, session.Messages[1].Role)

	// Created server-side with the default title before the first message.
	created := backend.sessions[session.ID.Remote()]
	assert.Equal(t, int64(1), created.ID)
}

func TestSendRollback(t *testing.T) {
	tests := []struct {
		name string
		arm  func(f *fakeBackend)
	}{
		{"send fails", func(f *fakeBackend) { f.failSend = true }},
		{"reconcile fetch fails", func(f *fakeBackend) { f.failMessages = true }},
		{"title generation fails", func(f *fakeBackend) { f.failTitle = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newFakeBackend()
			id := backend.addSession(DefaultTitle)

			core := authedCore(t, backend)
			ctx := context.Background()

			before, ok := core.Current()
			require.True(t, ok)
			snapshot := before.Clone()

			tt.arm(backend)
			_, err := core.Send(ctx, "does not stick")
			require.Error(t, err)

			// The session is byte-for-byte back at its pre-append state.
			after, ok := core.Current()
			require.True(t, ok)
			assert.Equal(t, snapshot.Title, after.Title)
			assert.Equal(t, snapshot.Messages, after.Messages)
			assert.Equal(t, snapshot.UpdatedAt, after.UpdatedAt)
			assert.Equal(t, RemoteID(id), after.ID)
		})
	}
}

func TestDeleteRemote(t *testing.T) {
	backend := newFakeBackend()
	older := backend.addSession("older")
	newer := backend.addSession("newer")

	core := authedCore(t, backend)
	ctx := context.Background()

	t.Run("server failure keeps the entry", func(t *testing.T) {
		backend.failDelete = true
		err := core.Delete(ctx, RemoteID(newer))
		require.Error(t, err)

		_, found := findSession(core, RemoteID(newer))
		assert.True(t, found, "failed delete must not drop the directory entry")
	})

	t.Run("success removes and refocuses", func(t *testing.T) {
		backend.failDelete = false
		cur, _ := core.Current()
		require.Equal(t, RemoteID(newer), cur.ID)

		require.NoError(t, core.Delete(ctx, RemoteID(newer)))
		_, found := findSession(core, RemoteID(newer))
		assert.False(t, found)

		cur, ok := core.Current()
		require.True(t, ok)
		assert.Equal(t, RemoteID(older), cur.ID, "focus falls to next most recent")

		require.NoError(t, core.Delete(ctx, RemoteID(older)))
		_, ok = core.Current()
		assert.False(t, ok, "no focus once the directory is empty")
	})

	t.Run("unknown id", func(t *testing.T) {
		err := core.Delete(ctx, RemoteID(999))
		assert.ErrorIs(t, err, ErrUnknownSession)
	})
}

func TestDeleteLocalIsPurelyInMemory(t *testing.T) {
	backend := newFakeBackend()
	core, _ := newTestCore(t, backend)
	ctx := context.Background()

	session, err := core.NewChat(ctx)
	require.NoError(t, err)

	require.NoError(t, core.Delete(ctx, session.ID))
	assert.Zero(t, backend.callCount())
	assert.Empty(t, core.Sessions())
}

func TestLoginTransitionReloadsFromServer(t *testing.T) {
	backend := newFakeBackend()
	older := backend.addSession("older chat")
	backend.addMessage(older, "hi", true)
	newer := backend.addSession("newer chat")
	backend.addMessage(newer, "question", true)
	backend.addMessage(newer, "answer", false)

	core, _ := newTestCore(t, backend)
	ctx := context.Background()

	// Anonymous state held before login is discarded by the reload.
	_, err := core.Send(ctx, "guest message")
	require.NoError(t, err)

	require.NoError(t, core.SetAuthenticated(ctx, true))

	sessions := core.Sessions()
	require.Len(t, sessions, 2)
	assert.Equal(t, RemoteID(newer), sessions[0].ID, "server listing order preserved")
	assert.Equal(t, RemoteID(older), sessions[1].ID)

	cur, ok := core.Current()
	require.True(t, ok)
	assert.Equal(t, RemoteID(newer), cur.ID)
	require.Len(t, cur.Messages, 2, "most recent session's log loaded eagerly")
	assert.Equal(t, "question", cur.Messages[0].Content)

	// Other sessions load lazily on select.
	assert.Empty(t, sessions[1].Messages)
}

func TestLoginTransitionFailureLeavesStateUnchanged(t *testing.T) {
	backend := newFakeBackend()
	backend.failList = true

	core, _ := newTestCore(t, backend)
	ctx := context.Background()

	local, err := core.NewChat(ctx)
	require.NoError(t, err)

	err = core.SetAuthenticated(ctx, true)
	require.Error(t, err)

	assert.False(t, core.Authenticated())
	_, found := findSession(core, local.ID)
	assert.True(t, found, "failed reload must not discard held sessions")
}

func TestLogoutTransitionKeepsOnlyLocalSessions(t *testing.T) {
	backend := newFakeBackend()
	backend.addSession("remote chat")

	core := authedCore(t, backend)
	ctx := context.Background()

	require.NoError(t, core.SetAuthenticated(ctx, false))

	assert.False(t, core.Authenticated())
	assert.Empty(t, core.Sessions(), "remote sessions are dropped on logout")
	_, ok := core.Current()
	assert.False(t, ok)
}

func TestSelectRemoteFetchesLog(t *testing.T) {
	backend := newFakeBackend()
	older := backend.addSession("older")
	backend.addMessage(older, "stored question", true)
	backend.addMessage(older, "stored answer", false)
	backend.addSession("newer")

	core := authedCore(t, backend)
	ctx := context.Background()

	// The non-current listing entry has an empty log until selected.
	stale, _ := findSession(core, RemoteID(older))
	require.Empty(t, stale.Messages)

	session, err := core.Select(ctx, RemoteID(older))
	require.NoError(t, err)
	require.Len(t, session.Messages, 2)
	assert.Equal(t, "stored question", session.Messages[0].Content)

	cur, _ := core.Current()
	assert.Equal(t, RemoteID(older), cur.ID)
}

func TestSelectFailureLeavesFocusUnchanged(t *testing.T) {
	backend := newFakeBackend()
	older := backend.addSession("older")
	newer := backend.addSession("newer")

	core := authedCore(t, backend)
	ctx := context.Background()

	backend.failMessages = true
	_, err := core.Select(ctx, RemoteID(older))
	require.Error(t, err)

	cur, ok := core.Current()
	require.True(t, ok)
	assert.Equal(t, RemoteID(newer), cur.ID, "failed select must not move focus")
}

func TestSelectUnknownSession(t *testing.T) {
	core, _ := newTestCore(t, newFakeBackend())
	_, err := core.Select(context.Background(), RemoteID(42))
	assert.ErrorIs(t, err, ErrUnknownSession)
}

// findSession scans the directory snapshot for the given id.
func findSession(core *Core, id SessionID) (*Session, bool) {
	for _, s := range core.Sessions() {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}
