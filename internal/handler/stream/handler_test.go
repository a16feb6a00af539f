package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenhaven/assistant-chat/internal/middleware"
	chatservice "github.com/greenhaven/assistant-chat/internal/service/chat"
	"github.com/greenhaven/assistant-chat/internal/service/chat/chattest"
	"github.com/greenhaven/assistant-chat/internal/typing"
)

func setup(t *testing.T) (http.Handler, *chatservice.Service, *chattest.Backend) {
	t.Helper()
	backend := &chattest.Backend{}
	svc := chatservice.NewService(backend, chatservice.Options{OrganizationID: "green"})

	r := chi.NewRouter()
	r.Use(middleware.Session(svc, false))
	New(svc, typing.Typewriter{Cursor: typing.DefaultCursor}).RegisterRoutes(r)
	return r, svc, backend
}

func loggedIn(t *testing.T, svc *chatservice.Service) *http.Cookie {
	t.Helper()
	ctx := context.Background()
	s, err := svc.CreateSession(ctx)
	require.NoError(t, err)
	_, err = svc.Login(ctx, s.ID, "ada@example.com", "secret")
	require.NoError(t, err)
	return &http.Cookie{Name: middleware.SessionCookieName, Value: s.ID}
}

type event struct {
	name string
	data string
}

func readEvents(t *testing.T, body string) []event {
	t.Helper()
	var events []event
	var cur event
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			cur.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			cur.data = strings.TrimPrefix(line, "data: ")
		case line == "":
			if cur.name != "" {
				events = append(events, cur)
			}
			cur = event{}
		}
	}
	require.NoError(t, sc.Err())
	return events
}

func TestTypingStreamsFramesOfLastReply(t *testing.T) {
	r, svc, backend := setup(t)
	backend.Reply = "Hi!"
	cookie := loggedIn(t, svc)
	_, err := svc.SendMessage(context.Background(), cookie.Value, "hello")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/typing", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	events := readEvents(t, rec.Body.String())
	require.Len(t, events, 5)

	var frames []FrameEvent
	for _, e := range events[:4] {
		require.Equal(t, "frame", e.name)
		var f FrameEvent
		require.NoError(t, json.Unmarshal([]byte(e.data), &f))
		frames = append(frames, f)
	}
	assert.Equal(t, "H▌", frames[0].Display)
	assert.Equal(t, "Hi▌", frames[1].Display)
	assert.Equal(t, "Hi!▌", frames[2].Display)
	assert.True(t, frames[3].Done)
	assert.Equal(t, "Hi!", frames[3].Display)
	assert.Equal(t, "done", events[4].name)
}

func TestTypingWithoutReplyIsNotFound(t *testing.T) {
	r, svc, _ := setup(t)
	cookie := loggedIn(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/typing", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"no reply to replay"}`, rec.Body.String())
}
