package chat

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/greenhaven/assistant-chat/internal/middleware"
	"github.com/greenhaven/assistant-chat/internal/model/chat"
	"github.com/greenhaven/assistant-chat/internal/service/assistant"
	chatService "github.com/greenhaven/assistant-chat/internal/service/chat"
	"github.com/greenhaven/assistant-chat/pkg/utils"
)

// Handler 聊天 JSON API 的HTTP处理器
type Handler struct {
	chatSvc *chatService.Service
}

// New 创建聊天处理器
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/session", h.handleGetSession)
	r.Get("/messages", h.handleListMessages)
	r.Post("/messages", h.handleSendMessage)
	r.Delete("/messages", h.handleClearMessages)
}

type sessionResponse struct {
	chat.Session
	Authenticated bool `json:"authenticated"`
}

type sendResponse struct {
	Reply    chat.Message   `json:"reply"`
	Messages []chat.Message `json:"messages"`
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.chatSvc.GetSession(r.Context(), middleware.SessionIDFromContext(r.Context()))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, sessionResponse{Session: session, Authenticated: session.Authenticated()})
}

func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.chatSvc.LoadTranscript(r.Context(), middleware.SessionIDFromContext(r.Context()))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, messages)
}

// handleSendMessage 发送用户消息并返回助手回复
func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()
	sessionID := middleware.SessionIDFromContext(ctx)

	reply, err := h.chatSvc.SendMessage(ctx, sessionID, payload.Content)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	messages, err := h.chatSvc.LoadTranscript(ctx, sessionID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, sendResponse{Reply: reply, Messages: messages})
}

func (h *Handler) handleClearMessages(w http.ResponseWriter, r *http.Request) {
	if err := h.chatSvc.ClearHistory(r.Context(), middleware.SessionIDFromContext(r.Context())); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// respondServiceError maps chat service failures onto HTTP statuses.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var httpErr *assistant.HTTPError
	switch {
	case errors.As(err, &httpErr):
		utils.RespondUpstreamError(w, httpErr.StatusCode, httpErr.UserMessage())
	case errors.Is(err, chatService.ErrEmptyMessage):
		utils.RespondError(w, http.StatusBadRequest, "content is required")
	case errors.Is(err, chatService.ErrNotAuthenticated):
		utils.RespondError(w, http.StatusUnauthorized, "login required")
	case errors.Is(err, chatService.ErrSessionNotFound):
		utils.RespondError(w, http.StatusNotFound, "session not found")
	default:
		hlog.FromRequest(r).Error().Err(err).Msg("assistant request failed")
		utils.RespondError(w, http.StatusBadGateway, chatService.UserMessage(err))
	}
}
