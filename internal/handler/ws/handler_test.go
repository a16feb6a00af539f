package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenhaven/assistant-chat/internal/middleware"
	"github.com/greenhaven/assistant-chat/internal/model/chat"
	"github.com/greenhaven/assistant-chat/internal/service/assistant"
	chatservice "github.com/greenhaven/assistant-chat/internal/service/chat"
	"github.com/greenhaven/assistant-chat/internal/service/chat/chattest"
	"github.com/greenhaven/assistant-chat/internal/typing"
)

type harness struct {
	svc     *chatservice.Service
	backend *chattest.Backend
	srv     *httptest.Server
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWith(t, chatservice.Options{OrganizationID: "green"}, nil)
}

// newHarnessWith lets a test adjust the service options and the handler
// before the server starts.
func newHarnessWith(t *testing.T, opts chatservice.Options, configure func(*Handler)) *harness {
	t.Helper()
	backend := &chattest.Backend{}
	svc := chatservice.NewService(backend, opts)

	handler := New(svc, typing.Typewriter{Cursor: typing.DefaultCursor})
	if configure != nil {
		configure(handler)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequireSession(svc))
	handler.RegisterRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &harness{svc: svc, backend: backend, srv: srv}
}

func (h *harness) dial(t *testing.T, login bool) (*websocket.Conn, string) {
	t.Helper()
	ctx := context.Background()
	s, err := h.svc.CreateSession(ctx)
	require.NoError(t, err)
	if login {
		_, err = h.svc.Login(ctx, s.ID, "ada@example.com", "secret")
		require.NoError(t, err)
	}

	header := http.Header{}
	header.Set("Cookie", middleware.SessionCookieName+"="+s.ID)
	url := "ws" + strings.TrimPrefix(h.srv.URL, "http") + "/ws"

	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn, s.ID
}

func read(t *testing.T, conn *websocket.Conn) Outbound {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var out Outbound
	require.NoError(t, conn.ReadJSON(&out))
	return out
}

// skipTyping returns the first event that is not a typing frame.
func skipTyping(t *testing.T, conn *websocket.Conn) Outbound {
	t.Helper()
	for {
		out := read(t, conn)
		if out.Type != TypeTyping {
			return out
		}
	}
}

func TestMessageIsEchoedTypedAndAnswered(t *testing.T) {
	h := newHarness(t)
	h.backend.Reply = "Yes"
	conn, id := h.dial(t, true)

	require.NoError(t, conn.WriteJSON(Inbound{Type: TypeMessage, Content: "Is compost good?"}))

	user := read(t, conn)
	assert.Equal(t, TypeUser, user.Type)
	assert.Equal(t, "Is compost good?", user.Text)

	var displays []string
	for i := 0; i < 3; i++ {
		frame := read(t, conn)
		require.Equal(t, TypeTyping, frame.Type)
		displays = append(displays, frame.Display)
	}
	assert.Equal(t, []string{"Y▌", "Ye▌", "Yes▌"}, displays)

	final := read(t, conn)
	require.Equal(t, TypeAssistant, final.Type)
	require.NotNil(t, final.Message)
	assert.Equal(t, chat.RoleAssistant, final.Message.Role)
	assert.Equal(t, "Yes", final.Message.Content)

	messages, err := h.svc.LoadTranscript(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, messages, 2)
}

func TestMessageFailureReportsError(t *testing.T) {
	h := newHarness(t)
	h.backend.SendErr = &assistant.HTTPError{Op: "send message", StatusCode: http.StatusServiceUnavailable, Message: "busy"}
	conn, id := h.dial(t, true)

	require.NoError(t, conn.WriteJSON(Inbound{Type: TypeMessage, Content: "hello"}))

	assert.Equal(t, TypeUser, read(t, conn).Type)
	failure := read(t, conn)
	assert.Equal(t, TypeError, failure.Type)
	assert.Equal(t, "busy", failure.Error)

	messages, err := h.svc.LoadTranscript(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, chat.RoleUser, messages[0].Role)
}

func TestMessageRequiresLogin(t *testing.T) {
	h := newHarness(t)
	conn, _ := h.dial(t, false)

	require.NoError(t, conn.WriteJSON(Inbound{Type: TypeMessage, Content: "hello"}))

	out := read(t, conn)
	assert.Equal(t, TypeError, out.Type)
	assert.Equal(t, "Please log in first.", out.Error)
	assert.Empty(t, h.backend.Sent())
}

func TestClear(t *testing.T) {
	h := newHarness(t)
	conn, _ := h.dial(t, true)

	require.NoError(t, conn.WriteJSON(Inbound{Type: TypeClear}))
	assert.Equal(t, TypeCleared, read(t, conn).Type)

	h.backend.Set(func(b *chattest.Backend) {
		b.ClearErr = &assistant.HTTPError{Op: "clear chat", StatusCode: http.StatusInternalServerError}
	})
	require.NoError(t, conn.WriteJSON(Inbound{Type: TypeClear}))
	out := read(t, conn)
	assert.Equal(t, TypeError, out.Type)
	assert.Equal(t, "Failed to clear chat.", out.Error)
}

func TestUnknownType(t *testing.T) {
	h := newHarness(t)
	conn, _ := h.dial(t, true)

	require.NoError(t, conn.WriteJSON(Inbound{Type: "dance"}))

	out := read(t, conn)
	assert.Equal(t, TypeError, out.Type)
	assert.Contains(t, out.Error, "dance")
}

func TestLongTurnOutlivesReadTimeout(t *testing.T) {
	h := newHarnessWith(t, chatservice.Options{OrganizationID: "green"}, func(handler *Handler) {
		handler.readTimeout = 300 * time.Millisecond
		handler.pingInterval = 50 * time.Millisecond
		handler.writer = typing.Typewriter{Delay: 100 * time.Millisecond, Cursor: typing.DefaultCursor}
	})
	h.backend.Reply = "abcdef"
	conn, id := h.dial(t, true)

	// The typed reply takes about twice the read timeout. The client keeps
	// reading, so it answers the server's pings throughout.
	started := time.Now()
	require.NoError(t, conn.WriteJSON(Inbound{Type: TypeMessage, Content: "first"}))
	require.Equal(t, TypeUser, read(t, conn).Type)
	require.Equal(t, TypeAssistant, skipTyping(t, conn).Type)
	require.Greater(t, time.Since(started), 300*time.Millisecond)

	h.backend.Set(func(b *chattest.Backend) { b.Reply = "ok" })
	require.NoError(t, conn.WriteJSON(Inbound{Type: TypeMessage, Content: "second"}))
	second := read(t, conn)
	assert.Equal(t, TypeUser, second.Type)
	assert.Equal(t, "second", second.Text)
	assert.Equal(t, TypeAssistant, skipTyping(t, conn).Type)

	messages, err := h.svc.LoadTranscript(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, messages, 4)
}

func TestMessageOnEvictedSessionSkipsUserEvent(t *testing.T) {
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	h := newHarnessWith(t, chatservice.Options{OrganizationID: "green", IdleTimeout: time.Hour, Clock: clock}, nil)
	conn, _ := h.dial(t, true)

	mu.Lock()
	now = now.Add(2 * time.Hour)
	mu.Unlock()
	require.Equal(t, 1, h.svc.EvictIdle())

	require.NoError(t, conn.WriteJSON(Inbound{Type: TypeMessage, Content: "hello"}))
	out := read(t, conn)
	assert.Equal(t, TypeError, out.Type)
	assert.Equal(t, "Your session has expired. Reload the page.", out.Error)

	// The next event answers the next request; no user event was queued.
	require.NoError(t, conn.WriteJSON(Inbound{Type: "dance"}))
	next := read(t, conn)
	assert.Equal(t, TypeError, next.Type)
	assert.Contains(t, next.Error, "dance")
	assert.Empty(t, h.backend.Sent())
}
