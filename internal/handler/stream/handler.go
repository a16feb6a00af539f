// Package stream replays the latest assistant reply as a typing animation over Server-Sent Events.
package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/greenhaven/assistant-chat/internal/middleware"
	chatService "github.com/greenhaven/assistant-chat/internal/service/chat"
	"github.com/greenhaven/assistant-chat/internal/typing"
	"github.com/greenhaven/assistant-chat/pkg/utils"
)

// Handler serves the typing stream.
type Handler struct {
	chatSvc *chatService.Service
	writer  typing.Typewriter
}

// New creates a stream handler that paces frames with writer.
func New(chatSvc *chatService.Service, writer typing.Typewriter) *Handler {
	return &Handler{chatSvc: chatSvc, writer: writer}
}

// RegisterRoutes mounts GET /typing.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/typing", h.handleTyping)
}

// FrameEvent is the payload of each "frame" event.
type FrameEvent struct {
	MessageID string `json:"messageId"`
	Text      string `json:"text"`
	Delta     string `json:"delta,omitempty"`
	Display   string `json:"display"`
	Done      bool   `json:"done"`
}

func (h *Handler) handleTyping(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ctx := r.Context()
	sessionID := middleware.SessionIDFromContext(ctx)

	reply, err := h.chatSvc.LastReply(ctx, sessionID)
	switch {
	case errors.Is(err, chatService.ErrNoReply):
		utils.RespondError(w, http.StatusNotFound, "no reply to replay")
		return
	case errors.Is(err, chatService.ErrSessionNotFound):
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	case err != nil:
		utils.RespondError(w, http.StatusInternalServerError, "failed to load reply")
		return
	}

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	logger := hlog.FromRequest(r)
	logger.Debug().Str("session", sessionID).Str("message", reply.ID).Msg("typing stream opened")

	err = h.writer.Play(ctx, reply.Content, func(f typing.Frame) error {
		return utils.SendSSEEvent(w, flusher, "frame", FrameEvent{
			MessageID: reply.ID,
			Text:      f.Text,
			Delta:     f.Delta,
			Display:   f.Display(),
			Done:      f.Done,
		})
	})
	switch {
	case err == nil:
		_ = utils.SendSSEEvent(w, flusher, "done", map[string]string{"messageId": reply.ID})
	case errors.Is(err, context.Canceled):
		logger.Debug().Str("session", sessionID).Msg("typing stream closed by client")
	default:
		logger.Warn().Err(err).Str("session", sessionID).Msg("typing stream failed")
		_ = utils.SendSSEEvent(w, flusher, "error", utils.ErrorBody{Error: fmt.Sprintf("stream interrupted: %v", err)})
	}
}
