package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/greenhaven/assistant-chat/internal/handler/chat"
	"github.com/greenhaven/assistant-chat/internal/handler/page"
	"github.com/greenhaven/assistant-chat/internal/handler/stream"
	"github.com/greenhaven/assistant-chat/internal/handler/ws"
	sessionMiddleware "github.com/greenhaven/assistant-chat/internal/middleware"
	chatService "github.com/greenhaven/assistant-chat/internal/service/chat"
	"github.com/greenhaven/assistant-chat/internal/typing"
	"github.com/greenhaven/assistant-chat/internal/view"
	"github.com/greenhaven/assistant-chat/pkg/utils"
)

// Dependencies are the services the router exposes.
type Dependencies struct {
	Logger       zerolog.Logger
	ChatSvc      *chatService.Service
	Views        *view.Renderer
	Typewriter   typing.Typewriter
	CookieSecure bool
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(deps.Logger))
	r.Use(accessLog)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Only page visits mint sessions; the API needs a cookie from one.
	r.Group(func(r chi.Router) {
		r.Use(sessionMiddleware.Session(deps.ChatSvc, deps.CookieSecure))
		page.New(deps.ChatSvc, deps.Views).RegisterRoutes(r)
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(sessionMiddleware.RequireSession(deps.ChatSvc))
		chat.New(deps.ChatSvc).RegisterRoutes(api)
		stream.New(deps.ChatSvc, deps.Typewriter).RegisterRoutes(api)
		ws.New(deps.ChatSvc, deps.Typewriter).RegisterRoutes(api)
	})

	return r
}

var accessLog = hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
	hlog.FromRequest(r).Info().
		Str("request_id", middleware.GetReqID(r.Context())).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Msg("request")
})
