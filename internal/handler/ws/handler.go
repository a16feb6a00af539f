// Package ws offers the chat over a websocket: the client sends messages and
// clear requests, the server answers with the typed-out reply.
package ws

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/greenhaven/assistant-chat/internal/middleware"
	"github.com/greenhaven/assistant-chat/internal/model/chat"
	chatService "github.com/greenhaven/assistant-chat/internal/service/chat"
	"github.com/greenhaven/assistant-chat/internal/typing"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
	maxInbound   = 16 << 10
	inboundQueue = 8
)

// Inbound message types.
const (
	TypeMessage = "message"
	TypeClear   = "clear"
)

// Outbound message types.
const (
	TypeUser      = "user"
	TypeTyping    = "typing"
	TypeAssistant = "assistant"
	TypeCleared   = "cleared"
	TypeError     = "error"
)

// Inbound is a client request.
type Inbound struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// Outbound is a server event.
type Outbound struct {
	Type      string        `json:"type"`
	Message   *chat.Message `json:"message,omitempty"`
	Text      string        `json:"text,omitempty"`
	Display   string        `json:"display,omitempty"`
	Error     string        `json:"error,omitempty"`
	Timestamp int64         `json:"timestamp"`
}

// Handler upgrades requests and runs one conversation loop per connection.
type Handler struct {
	chatSvc      *chatService.Service
	writer       typing.Typewriter
	upgrader     websocket.Upgrader
	readTimeout  time.Duration
	pingInterval time.Duration
}

// New creates a websocket handler.
func New(chatSvc *chatService.Service, writer typing.Typewriter) *Handler {
	return &Handler{
		chatSvc: chatSvc,
		writer:  writer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		readTimeout:  readTimeout,
		pingInterval: pingInterval,
	}
}

// RegisterRoutes mounts GET /ws.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleWebSocket)
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.SessionIDFromContext(r.Context())
	logger := hlog.FromRequest(r).With().Str("session", sessionID).Logger()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadLimit(maxInbound)
	_ = conn.SetReadDeadline(time.Now().Add(h.readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.readTimeout))
	})
	go h.pingLoop(ctx, conn)

	logger.Debug().Msg("websocket connected")

	// The reader owns the connection's read side so pongs keep extending the
	// deadline while a turn is being answered.
	requests := make(chan Inbound, inboundQueue)
	go func() {
		defer cancel()
		defer close(requests)
		for {
			var in Inbound
			if err := conn.ReadJSON(&in); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.Warn().Err(err).Msg("websocket read failed")
				}
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(h.readTimeout))

			select {
			case requests <- in:
			case <-ctx.Done():
				return
			}
		}
	}()

	for in := range requests {
		if ctx.Err() != nil {
			return
		}
		if err := h.dispatch(ctx, conn, sessionID, in); err != nil {
			logger.Debug().Err(err).Msg("websocket write failed")
			return
		}
	}
}

// dispatch handles one request. A returned error means the connection is unusable.
func (h *Handler) dispatch(ctx context.Context, conn *websocket.Conn, sessionID string, in Inbound) error {
	switch in.Type {
	case TypeMessage:
		return h.handleMessage(ctx, conn, sessionID, in.Content)
	case TypeClear:
		if err := h.chatSvc.ClearHistory(ctx, sessionID); err != nil {
			text := "Failed to clear chat."
			if errors.Is(err, chatService.ErrNotAuthenticated) {
				text = chatService.UserMessage(err)
			}
			return send(conn, Outbound{Type: TypeError, Error: text})
		}
		return send(conn, Outbound{Type: TypeCleared})
	default:
		return send(conn, Outbound{Type: TypeError, Error: "unsupported message type: " + in.Type})
	}
}

func (h *Handler) handleMessage(ctx context.Context, conn *websocket.Conn, sessionID, content string) error {
	if strings.TrimSpace(content) == "" {
		return send(conn, Outbound{Type: TypeError, Error: chatService.UserMessage(chatService.ErrEmptyMessage)})
	}

	reply, err := h.chatSvc.SendMessage(ctx, sessionID, content)
	if chatService.Rejected(err) {
		return send(conn, Outbound{Type: TypeError, Error: chatService.UserMessage(err)})
	}

	// Past this point the user entry is stored, even when the assistant call failed.
	if werr := send(conn, Outbound{Type: TypeUser, Text: content}); werr != nil {
		return werr
	}
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Msg("send over websocket failed")
		return send(conn, Outbound{Type: TypeError, Error: chatService.UserMessage(err)})
	}

	err = h.writer.Play(ctx, reply.Content, func(f typing.Frame) error {
		if f.Done {
			return nil
		}
		return send(conn, Outbound{Type: TypeTyping, Text: f.Text, Display: f.Display()})
	})
	if err != nil {
		return err
	}
	return send(conn, Outbound{Type: TypeAssistant, Message: &reply})
}

func send(conn *websocket.Conn, out Outbound) error {
	out.Timestamp = time.Now().Unix()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(out)
}

func (h *Handler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
