// Package chattest provides a scriptable assistant backend for handler and UI tests.
package chattest

import (
	"context"
	"sync"

	"github.com/greenhaven/assistant-chat/internal/service/assistant"
)

// Backend answers assistant calls from its fields. The zero value logs in
// successfully and echoes every query back as the reply.
type Backend struct {
	mu sync.Mutex

	RegisterMsg string
	RegisterErr error
	LoginErr    error
	Reply       string
	SendErr     error
	ClearErr    error

	Queries []string
	Clears  int
}

// Login returns fixed credentials unless LoginErr is set.
func (b *Backend) Login(_ context.Context, _, _ string) (assistant.LoginResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.LoginErr != nil {
		return assistant.LoginResult{}, b.LoginErr
	}
	return assistant.LoginResult{
		AccessToken:        "test-token",
		UserID:             "7",
		AssistantSessionID: "assistant-session",
		PhoneNumber:        "+15550100",
	}, nil
}

func (b *Backend) Register(_ context.Context, _ assistant.RegisterRequest) (assistant.RegisterResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return assistant.RegisterResult{Msg: b.RegisterMsg}, b.RegisterErr
}

// SendMessage records the query and answers with Reply, or the query itself.
func (b *Backend) SendMessage(_ context.Context, req assistant.ChatRequest) (assistant.Reply, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Queries = append(b.Queries, req.Query)
	if b.SendErr != nil {
		return assistant.Reply{}, b.SendErr
	}
	if b.Reply != "" {
		return assistant.Reply{Response: b.Reply}, nil
	}
	return assistant.Reply{Response: req.Query}, nil
}

func (b *Backend) ClearChat(_ context.Context, _ assistant.ChatScope) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Clears++
	return b.ClearErr
}

// Set mutates the backend under its lock.
func (b *Backend) Set(fn func(b *Backend)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(b)
}

// Sent returns a copy of the queries received so far.
func (b *Backend) Sent() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.Queries...)
}
