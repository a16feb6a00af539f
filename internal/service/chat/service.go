package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/greenhaven/assistant-chat/internal/model/chat"
	"github.com/greenhaven/assistant-chat/internal/service/assistant"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrNotAuthenticated = errors.New("session is not logged in")
	ErrEmptyMessage     = errors.New("message is empty")
	ErrNoReply          = errors.New("no assistant reply yet")
)

// DefaultRegisterMessage is reported when the service confirms a registration without text.
const DefaultRegisterMessage = "Registration successful"

// DefaultIdleTimeout is how long an untouched session is kept.
const DefaultIdleTimeout = 24 * time.Hour

// Backend is the subset of the assistant API the chat service drives.
type Backend interface {
	Register(ctx context.Context, req assistant.RegisterRequest) (assistant.RegisterResult, error)
	Login(ctx context.Context, email, password string) (assistant.LoginResult, error)
	SendMessage(ctx context.Context, req assistant.ChatRequest) (assistant.Reply, error)
	ClearChat(ctx context.Context, scope assistant.ChatScope) error
}

// Options configures a Service.
type Options struct {
	OrganizationID string
	Channel        string
	Logger         zerolog.Logger
	// IdleTimeout evicts sessions not used for this long. Zero means DefaultIdleTimeout.
	IdleTimeout time.Duration
	// Clock replaces time.Now, mainly for tests.
	Clock func() time.Time
}

// RegisterForm collects the fields of the registration screen.
type RegisterForm struct {
	Email       string
	Password    string
	FullName    string
	PhoneNumber string
}

// entry guards one session; its lock serializes that session's remote calls.
type entry struct {
	mu       sync.Mutex
	session  chat.Session
	lastSeen atomic.Int64 // unix nanoseconds
}

func (e *entry) touch(t time.Time) {
	e.lastSeen.Store(t.UnixNano())
}

// Service holds the process-local conversation state and drives the assistant API.
type Service struct {
	backend Backend
	orgID   string
	channel string
	log     zerolog.Logger
	idle    time.Duration
	now     func() time.Time

	mu        sync.RWMutex
	sessions  map[string]*entry
	lastSweep time.Time
}

// NewService bootstraps an in-memory session registry over backend.
func NewService(backend Backend, opts Options) *Service {
	channel := opts.Channel
	if channel == "" {
		channel = assistant.DefaultChannel
	}
	idle := opts.IdleTimeout
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	return &Service{
		backend:   backend,
		orgID:     opts.OrganizationID,
		channel:   channel,
		log:       opts.Logger.With().Str("component", "chat").Logger(),
		idle:      idle,
		now:       now,
		sessions:  make(map[string]*entry),
		lastSweep: now(),
	}
}

// CreateSession provisions an anonymous session. Idle sessions are swept
// here, at most once per sweep interval.
func (s *Service) CreateSession(_ context.Context) (chat.Session, error) {
	now := s.now()
	session := chat.Session{
		ID:             uuid.NewString(),
		OrganizationID: s.orgID,
		Messages:       make([]chat.Message, 0, 16),
		CreatedAt:      now.UTC(),
	}
	e := &entry{session: session}
	e.touch(now)

	s.mu.Lock()
	if now.Sub(s.lastSweep) >= s.sweepInterval() {
		s.evictLocked(now)
	}
	s.sessions[session.ID] = e
	s.mu.Unlock()

	return session.Clone(), nil
}

// EvictIdle drops every session unused for longer than the idle timeout and
// reports how many were removed.
func (s *Service) EvictIdle() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evictLocked(s.now())
}

// Len reports the number of live sessions.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Service) sweepInterval() time.Duration {
	return min(s.idle, time.Minute)
}

func (s *Service) evictLocked(now time.Time) int {
	cutoff := now.Add(-s.idle).UnixNano()
	evicted := 0
	for id, e := range s.sessions {
		if e.lastSeen.Load() < cutoff {
			delete(s.sessions, id)
			evicted++
		}
	}
	s.lastSweep = now
	if evicted > 0 {
		s.log.Debug().Int("evicted", evicted).Int("live", len(s.sessions)).Msg("idle sessions evicted")
	}
	return evicted
}

// GetSession retrieves a copy of a session by identifier.
func (s *Service) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	e, err := s.lookup(sessionID)
	if err != nil {
		return chat.Session{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Clone(), nil
}

// LoadTranscript returns the messages of the session in order.
func (s *Service) LoadTranscript(ctx context.Context, sessionID string) ([]chat.Message, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return session.Messages, nil
}

// LastReply returns the most recent assistant message of the session.
func (s *Service) LastReply(ctx context.Context, sessionID string) (chat.Message, error) {
	messages, err := s.LoadTranscript(ctx, sessionID)
	if err != nil {
		return chat.Message{}, err
	}
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == chat.RoleAssistant {
			return messages[i], nil
		}
	}
	return chat.Message{}, ErrNoReply
}

// Register creates an account on the assistant service. It does not touch any session.
func (s *Service) Register(ctx context.Context, form RegisterForm) (string, error) {
	res, err := s.backend.Register(ctx, assistant.RegisterRequest{
		Email:       strings.TrimSpace(form.Email),
		Password:    form.Password,
		FullName:    strings.TrimSpace(form.FullName),
		PhoneNumber: strings.TrimSpace(form.PhoneNumber),
		Channel:     s.channel,
	})
	if err != nil {
		return "", err
	}
	if res.Msg == "" {
		return DefaultRegisterMessage, nil
	}
	return res.Msg, nil
}

// Login authenticates the session. On any failure the session is left as it was.
func (s *Service) Login(ctx context.Context, sessionID, email, password string) (chat.Session, error) {
	e, err := s.lookup(sessionID)
	if err != nil {
		return chat.Session{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	res, err := s.backend.Login(ctx, strings.TrimSpace(email), password)
	if err != nil {
		s.log.Warn().Err(err).Str("session", sessionID).Msg("login failed")
		return chat.Session{}, err
	}

	e.session.AccessToken = res.AccessToken
	e.session.UserID = res.UserID
	e.session.AssistantSessionID = res.AssistantSessionID
	e.session.PhoneNumber = res.PhoneNumber

	s.log.Info().Str("session", sessionID).Str("user_id", res.UserID).Msg("session authenticated")
	return e.session.Clone(), nil
}

// SendMessage appends the user's text, asks the assistant, and appends its reply.
// The user entry is kept even when the request fails.
func (s *Service) SendMessage(ctx context.Context, sessionID, text string) (chat.Message, error) {
	if strings.TrimSpace(text) == "" {
		return chat.Message{}, ErrEmptyMessage
	}

	e, err := s.lookup(sessionID)
	if err != nil {
		return chat.Message{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.session.Authenticated() {
		return chat.Message{}, ErrNotAuthenticated
	}

	e.session.Messages = append(e.session.Messages, newMessage(chat.RoleUser, text))

	reply, err := s.backend.SendMessage(ctx, assistant.ChatRequest{
		ChatScope:   scopeOf(e.session),
		Query:       text,
		PhoneNumber: e.session.PhoneNumber,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("session", sessionID).Msg("send message failed")
		return chat.Message{}, err
	}

	msg := newMessage(chat.RoleAssistant, reply.Response)
	e.session.Messages = append(e.session.Messages, msg)
	return msg, nil
}

// ClearHistory clears the remote conversation and, only if that succeeds, the local one.
func (s *Service) ClearHistory(ctx context.Context, sessionID string) error {
	e, err := s.lookup(sessionID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.session.Authenticated() {
		return ErrNotAuthenticated
	}

	if err := s.backend.ClearChat(ctx, scopeOf(e.session)); err != nil {
		s.log.Warn().Err(err).Str("session", sessionID).Msg("clear chat failed")
		return err
	}

	e.session.Messages = make([]chat.Message, 0, 16)
	s.log.Info().Str("session", sessionID).Msg("chat history cleared")
	return nil
}

// Logout forgets the credentials and local history, returning the session to anonymous.
func (s *Service) Logout(_ context.Context, sessionID string) error {
	e, err := s.lookup(sessionID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.session = chat.Session{
		ID:             e.session.ID,
		OrganizationID: e.session.OrganizationID,
		Messages:       make([]chat.Message, 0, 16),
		CreatedAt:      e.session.CreatedAt,
	}
	return nil
}

func (s *Service) lookup(sessionID string) (*entry, error) {
	s.mu.RLock()
	e, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	e.touch(s.now())
	return e, nil
}

func scopeOf(session chat.Session) assistant.ChatScope {
	return assistant.ChatScope{
		OrganizationID:     session.OrganizationID,
		UserID:             session.UserID,
		AssistantSessionID: session.AssistantSessionID,
		AccessToken:        session.AccessToken,
	}
}

func newMessage(role chat.Role, content string) chat.Message {
	return chat.Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}
