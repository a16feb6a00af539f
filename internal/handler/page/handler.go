// Package page serves the server-rendered login and chat screens.
package page

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/greenhaven/assistant-chat/internal/middleware"
	"github.com/greenhaven/assistant-chat/internal/model/chat"
	chatService "github.com/greenhaven/assistant-chat/internal/service/chat"
	"github.com/greenhaven/assistant-chat/internal/view"
)

const (
	noticeCleared   = "cleared"
	clearedText     = "Chat history cleared!"
	clearFailedText = "Failed to clear chat."
)

// Handler renders HTML pages and handles their form posts.
type Handler struct {
	chatSvc *chatService.Service
	views   *view.Renderer
}

// New creates a page handler.
func New(chatSvc *chatService.Service, views *view.Renderer) *Handler {
	return &Handler{chatSvc: chatSvc, views: views}
}

// RegisterRoutes mounts the browser-facing routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.handleIndex)
	r.Post("/login", h.handleLogin)
	r.Post("/register", h.handleRegister)
	r.Post("/logout", h.handleLogout)
	r.Post("/chat/send", h.handleSend)
	r.Post("/chat/clear", h.handleClear)
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	if !session.Authenticated() {
		h.renderLogin(w, r, http.StatusOK, view.LoginPage{Mode: view.ParseMode(r.URL.Query().Get("mode"))})
		return
	}

	q := r.URL.Query()
	var flash *view.Flash
	if q.Get("notice") == noticeCleared {
		flash = view.Success(clearedText)
	}
	h.renderChat(w, r, http.StatusOK, session.Messages, q.Get("typing") == "1", flash)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderLogin(w, r, http.StatusBadRequest, view.LoginPage{Flash: view.Failure("Invalid form submission.")})
		return
	}

	email := strings.TrimSpace(r.PostForm.Get("email"))
	password := r.PostForm.Get("password")

	_, err := h.chatSvc.Login(r.Context(), middleware.SessionIDFromContext(r.Context()), email, password)
	if err != nil {
		h.renderLogin(w, r, statusFor(err), view.LoginPage{
			Mode:  view.ModeLogin,
			Email: email,
			Flash: view.Failure(chatService.UserMessage(err)),
		})
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderLogin(w, r, http.StatusBadRequest, view.LoginPage{Mode: view.ModeRegister, Flash: view.Failure("Invalid form submission.")})
		return
	}

	form := chatService.RegisterForm{
		Email:       strings.TrimSpace(r.PostForm.Get("email")),
		Password:    r.PostForm.Get("password"),
		FullName:    strings.TrimSpace(r.PostForm.Get("full_name")),
		PhoneNumber: strings.TrimSpace(r.PostForm.Get("phone_number")),
	}
	page := view.LoginPage{
		Mode:        view.ModeRegister,
		Email:       form.Email,
		FullName:    form.FullName,
		PhoneNumber: form.PhoneNumber,
	}

	if form.Email == "" || form.Password == "" {
		page.Flash = view.Failure("Email and password are required.")
		h.renderLogin(w, r, http.StatusBadRequest, page)
		return
	}

	msg, err := h.chatSvc.Register(r.Context(), form)
	if err != nil {
		page.Flash = view.Failure(chatService.UserMessage(err))
		h.renderLogin(w, r, statusFor(err), page)
		return
	}

	h.renderLogin(w, r, http.StatusOK, view.LoginPage{
		Mode:  view.ModeLogin,
		Email: form.Email,
		Flash: view.Success(msg),
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.chatSvc.Logout(r.Context(), middleware.SessionIDFromContext(r.Context())); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("logout failed")
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	ctx := r.Context()
	sessionID := middleware.SessionIDFromContext(ctx)

	_, err := h.chatSvc.SendMessage(ctx, sessionID, r.PostForm.Get("message"))
	switch {
	case err == nil:
		http.Redirect(w, r, "/?typing=1", http.StatusSeeOther)
		return
	case errors.Is(err, chatService.ErrNotAuthenticated):
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	session, ok := h.session(w, r)
	if !ok {
		return
	}
	h.renderChat(w, r, statusFor(err), session.Messages, false, view.Failure(chatService.UserMessage(err)))
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	err := h.chatSvc.ClearHistory(ctx, middleware.SessionIDFromContext(ctx))
	switch {
	case err == nil:
		http.Redirect(w, r, "/?notice="+noticeCleared, http.StatusSeeOther)
		return
	case errors.Is(err, chatService.ErrNotAuthenticated):
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	session, ok := h.session(w, r)
	if !ok {
		return
	}
	h.renderChat(w, r, statusFor(err), session.Messages, false, view.Failure(clearFailedText))
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (chat.Session, bool) {
	session, err := h.chatSvc.GetSession(r.Context(), middleware.SessionIDFromContext(r.Context()))
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("session lookup failed")
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return chat.Session{}, false
	}
	return session, true
}

func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, status int, page view.LoginPage) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.views.Login(w, page); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("render login page")
	}
}

func (h *Handler) renderChat(w http.ResponseWriter, r *http.Request, status int, messages []chat.Message, animate bool, flash *view.Flash) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	page := view.ChatPage{Flash: flash, Bubbles: view.Bubbles(messages, animate)}
	if err := h.views.Chat(w, page); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("render chat page")
	}
}

// statusFor picks the status of a page re-rendered after a failed action.
func statusFor(err error) int {
	if errors.Is(err, chatService.ErrEmptyMessage) {
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}
