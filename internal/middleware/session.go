// Package middleware binds browsers to chat sessions.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/hlog"

	"github.com/greenhaven/assistant-chat/internal/model/chat"
	chatService "github.com/greenhaven/assistant-chat/internal/service/chat"
	"github.com/greenhaven/assistant-chat/pkg/utils"
)

const (
	// SessionCookieName carries the local chat session id.
	SessionCookieName = "gh_session"
	sessionCookieAge  = 7 * 24 * time.Hour
)

type contextKey int

const sessionIDKey contextKey = iota

// SessionStore creates and resolves chat sessions.
type SessionStore interface {
	CreateSession(ctx context.Context) (chat.Session, error)
	GetSession(ctx context.Context, sessionID string) (chat.Session, error)
}

// SessionIDFromContext returns the chat session bound to the request, or "".
func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return ""
}

// WithSessionID stores a chat session id in ctx.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// Session ensures every request carries a live chat session. Unknown or
// malformed cookies, including those that outlived a restart, get a fresh one.
func Session(store SessionStore, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := resolveSession(w, r, store, secure)
			if err != nil {
				hlog.FromRequest(r).Error().Err(err).Msg("failed to establish chat session")
				utils.RespondError(w, http.StatusInternalServerError, "failed to establish session")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSessionID(r.Context(), id)))
		})
	}
}

// RequireSession admits only requests whose cookie names a live session and
// never mints one, so cookieless clients cannot grow the session table.
func RequireSession(store SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := existingSession(r, store)
			if err != nil {
				hlog.FromRequest(r).Error().Err(err).Msg("failed to resolve chat session")
				utils.RespondError(w, http.StatusInternalServerError, "failed to resolve session")
				return
			}
			if id == "" {
				utils.RespondError(w, http.StatusUnauthorized, "session required")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSessionID(r.Context(), id)))
		})
	}
}

// existingSession returns the cookie's session id, or "" when the cookie is
// absent, malformed or unknown.
func existingSession(r *http.Request, store SessionStore) (string, error) {
	c, err := r.Cookie(SessionCookieName)
	if err != nil {
		return "", nil
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return "", nil
	}
	if _, err := store.GetSession(r.Context(), c.Value); err != nil {
		if errors.Is(err, chatService.ErrSessionNotFound) {
			return "", nil
		}
		return "", err
	}
	return c.Value, nil
}

func resolveSession(w http.ResponseWriter, r *http.Request, store SessionStore, secure bool) (string, error) {
	id, err := existingSession(r, store)
	if err != nil || id != "" {
		return id, err
	}

	session, err := store.CreateSession(r.Context())
	if err != nil {
		return "", err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    session.ID,
		Path:     "/",
		MaxAge:   int(sessionCookieAge.Seconds()),
		Expires:  time.Now().Add(sessionCookieAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
	})
	hlog.FromRequest(r).Debug().Str("session", session.ID).Msg("chat session created")
	return session.ID, nil
}
