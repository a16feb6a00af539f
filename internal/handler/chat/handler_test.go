package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/greenhaven/assistant-chat/internal/middleware"
	"github.com/greenhaven/assistant-chat/internal/model/chat"
	"github.com/greenhaven/assistant-chat/internal/service/assistant"
	chatservice "github.com/greenhaven/assistant-chat/internal/service/chat"
	"github.com/greenhaven/assistant-chat/internal/service/chat/chattest"
	"github.com/greenhaven/assistant-chat/pkg/utils"
)

func setupRouter(t *testing.T) (*chi.Mux, *chatservice.Service, *chattest.Backend) {
	t.Helper()
	backend := &chattest.Backend{}
	chatSvc := chatservice.NewService(backend, chatservice.Options{OrganizationID: "green"})

	r := chi.NewRouter()
	r.Use(middleware.Session(chatSvc, false))
	New(chatSvc).RegisterRoutes(r)
	return r, chatSvc, backend
}

// session creates a session, optionally logs it in and returns its cookie.
func session(t *testing.T, svc *chatservice.Service, loggedIn bool) *http.Cookie {
	t.Helper()
	ctx := context.Background()
	s, err := svc.CreateSession(ctx)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if loggedIn {
		if _, err := svc.Login(ctx, s.ID, "ada@example.com", "secret"); err != nil {
			t.Fatalf("login: %v", err)
		}
	}
	return &http.Cookie{Name: middleware.SessionCookieName, Value: s.ID}
}

func do(r http.Handler, method, path string, body []byte, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(cookie)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestGetSessionAnonymous(t *testing.T) {
	r, svc, _ := setupRouter(t)
	cookie := session(t, svc, false)

	resp := do(r, http.MethodGet, "/session", nil, cookie)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var got map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["authenticated"] != false {
		t.Fatalf("expected anonymous session, got %v", got["authenticated"])
	}
	if _, leaked := got["AccessToken"]; leaked {
		t.Fatalf("access token must not be serialized")
	}
}

func TestSendMessageReturnsReplyAndTranscript(t *testing.T) {
	r, svc, backend := setupRouter(t)
	backend.Reply = "Mulch keeps roots cool."
	cookie := session(t, svc, true)

	resp := do(r, http.MethodPost, "/messages", []byte(`{"content":"Why mulch?"}`), cookie)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var got sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Reply.Content != "Mulch keeps roots cool." {
		t.Fatalf("unexpected reply %q", got.Reply.Content)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != chat.RoleUser || got.Messages[1].Role != chat.RoleAssistant {
		t.Fatalf("unexpected transcript %+v", got.Messages)
	}
}

func TestSendMessageRequiresLogin(t *testing.T) {
	r, svc, _ := setupRouter(t)
	cookie := session(t, svc, false)

	resp := do(r, http.MethodPost, "/messages", []byte(`{"content":"hi"}`), cookie)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestSendMessageValidation(t *testing.T) {
	r, svc, _ := setupRouter(t)
	cookie := session(t, svc, true)

	if resp := do(r, http.MethodPost, "/messages", []byte(`{"content":"   "}`), cookie); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank content, got %d", resp.Code)
	}
	if resp := do(r, http.MethodPost, "/messages", []byte(`{`), cookie); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad json, got %d", resp.Code)
	}
}

func TestSendMessageUpstreamFailure(t *testing.T) {
	r, svc, backend := setupRouter(t)
	backend.SendErr = &assistant.HTTPError{Op: "send message", StatusCode: http.StatusUnauthorized, Message: "token expired"}
	cookie := session(t, svc, true)

	resp := do(r, http.MethodPost, "/messages", []byte(`{"content":"hi"}`), cookie)

	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.Code)
	}
	var body utils.ErrorBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.UpstreamStatus != http.StatusUnauthorized || body.Error != "token expired" {
		t.Fatalf("unexpected error body %+v", body)
	}

	list := do(r, http.MethodGet, "/messages", nil, cookie)
	var messages []chat.Message
	if err := json.NewDecoder(list.Body).Decode(&messages); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(messages) != 1 || messages[0].Role != chat.RoleUser {
		t.Fatalf("expected only the user entry, got %+v", messages)
	}
}

func TestClearMessages(t *testing.T) {
	r, svc, _ := setupRouter(t)
	cookie := session(t, svc, true)
	do(r, http.MethodPost, "/messages", []byte(`{"content":"hi"}`), cookie)

	resp := do(r, http.MethodDelete, "/messages", nil, cookie)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}

	messages, err := svc.LoadTranscript(context.Background(), cookie.Value)
	if err != nil {
		t.Fatalf("load transcript: %v", err)
	}
	if len(messages) != 0 {
		t.Fatalf("expected empty transcript, got %d", len(messages))
	}
}

func TestClearMessagesFailureKeepsHistory(t *testing.T) {
	r, svc, backend := setupRouter(t)
	cookie := session(t, svc, true)
	do(r, http.MethodPost, "/messages", []byte(`{"content":"hi"}`), cookie)
	backend.Set(func(b *chattest.Backend) {
		b.ClearErr = &assistant.HTTPError{Op: "clear chat", StatusCode: http.StatusInternalServerError}
	})

	resp := do(r, http.MethodDelete, "/messages", nil, cookie)
	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.Code)
	}

	messages, _ := svc.LoadTranscript(context.Background(), cookie.Value)
	if len(messages) != 2 {
		t.Fatalf("expected history to survive, got %d", len(messages))
	}
}
