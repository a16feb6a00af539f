// Package terminal is the line-oriented front end of the assistant chat.
package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/greenhaven/assistant-chat/internal/model/chat"
	chatService "github.com/greenhaven/assistant-chat/internal/service/chat"
	"github.com/greenhaven/assistant-chat/internal/typing"
	"github.com/greenhaven/assistant-chat/internal/view"
)

const (
	userPrompt = "you> "
	helpText   = "Commands: /clear  /history  /logout  /quit  /help"
)

var (
	errQuit   = errors.New("quit")
	errLogout = errors.New("logout")
)

// UI runs one terminal conversation.
type UI struct {
	svc       *chatService.Service
	in        Prompter
	out       io.Writer
	writer    typing.Typewriter
	title     string
	log       zerolog.Logger
	sessionID string
}

// Options configures a UI.
type Options struct {
	Title      string
	Typewriter typing.Typewriter
	Logger     zerolog.Logger
}

// New builds a UI that reads from in and writes to out.
func New(svc *chatService.Service, in Prompter, out io.Writer, opts Options) *UI {
	return &UI{
		svc:    svc,
		in:     in,
		out:    out,
		writer: opts.Typewriter,
		title:  opts.Title,
		log:    opts.Logger,
	}
}

// Run logs in and chats until the user quits or input ends.
func (u *UI) Run(ctx context.Context) error {
	session, err := u.svc.CreateSession(ctx)
	if err != nil {
		return err
	}
	u.sessionID = session.ID

	for {
		if err := u.login(ctx); err != nil {
			return ignoreEnd(err)
		}

		err := u.chat(ctx)
		if errors.Is(err, errLogout) {
			continue
		}
		return ignoreEnd(err)
	}
}

// Register walks the user through account creation.
func (u *UI) Register(ctx context.Context) error {
	var form chatService.RegisterForm
	fields := []struct {
		prompt string
		dst    *string
		secret bool
	}{
		{"Email: ", &form.Email, false},
		{"Password: ", &form.Password, true},
		{"Full Name: ", &form.FullName, false},
		{"Phone Number: ", &form.PhoneNumber, false},
	}
	for _, f := range fields {
		read := u.in.Prompt
		if f.secret {
			read = u.in.Secret
		}
		v, err := read(f.prompt)
		if err != nil {
			return ignoreEnd(err)
		}
		*f.dst = v
	}

	msg, err := u.svc.Register(ctx, form)
	if err != nil {
		fmt.Fprintf(u.out, "Registration failed: %s\n", chatService.UserMessage(err))
		return err
	}
	fmt.Fprintln(u.out, msg)
	return nil
}

func (u *UI) login(ctx context.Context) error {
	if u.title != "" {
		fmt.Fprintln(u.out, u.title)
	}
	for {
		email, err := u.in.Prompt("Email: ")
		if err != nil {
			return err
		}
		password, err := u.in.Secret("Password: ")
		if err != nil {
			return err
		}

		if _, err := u.svc.Login(ctx, u.sessionID, strings.TrimSpace(email), password); err != nil {
			fmt.Fprintf(u.out, "Login failed: %s\n", chatService.UserMessage(err))
			continue
		}

		fmt.Fprintln(u.out, view.ChatTitle)
		fmt.Fprintln(u.out, helpText)
		return nil
	}
}

func (u *UI) chat(ctx context.Context) error {
	for {
		line, err := u.in.Prompt(userPrompt)
		if errors.Is(err, ErrInterrupt) {
			if line == "" {
				return errQuit
			}
			continue
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if err := u.command(ctx, line); err != nil {
				return err
			}
			continue
		}

		u.send(ctx, line)
	}
}

func (u *UI) command(ctx context.Context, line string) error {
	switch strings.Fields(line)[0] {
	case "/quit", "/exit":
		return errQuit
	case "/logout":
		if err := u.svc.Logout(ctx, u.sessionID); err != nil {
			return err
		}
		fmt.Fprintln(u.out, "Logged out.")
		return errLogout
	case "/clear":
		if err := u.svc.ClearHistory(ctx, u.sessionID); err != nil {
			u.log.Debug().Err(err).Msg("clear failed")
			fmt.Fprintln(u.out, "Failed to clear chat.")
			return nil
		}
		fmt.Fprintln(u.out, "Chat history cleared!")
	case "/history":
		u.history(ctx)
	case "/help":
		fmt.Fprintln(u.out, helpText)
	default:
		fmt.Fprintf(u.out, "Unknown command %s. %s\n", line, helpText)
	}
	return nil
}

func (u *UI) send(ctx context.Context, text string) {
	reply, err := u.svc.SendMessage(ctx, u.sessionID, text)
	if err != nil {
		fmt.Fprintf(u.out, "Error: %s\n", chatService.UserMessage(err))
		return
	}

	fmt.Fprint(u.out, "assistant> ")
	err = u.writer.Play(ctx, reply.Content, func(f typing.Frame) error {
		if f.Done {
			_, err := fmt.Fprintln(u.out)
			return err
		}
		_, err := io.WriteString(u.out, f.Delta)
		return err
	})
	if err != nil {
		// Finish the line so the prompt is not glued to a cut-off reply.
		fmt.Fprintln(u.out)
	}
}

func (u *UI) history(ctx context.Context) {
	messages, err := u.svc.LoadTranscript(ctx, u.sessionID)
	if err != nil {
		fmt.Fprintf(u.out, "Error: %s\n", chatService.UserMessage(err))
		return
	}
	if len(messages) == 0 {
		fmt.Fprintln(u.out, "(no messages yet)")
		return
	}
	for _, m := range messages {
		who := "you"
		if m.Role == chat.RoleAssistant {
			who = "assistant"
		}
		fmt.Fprintf(u.out, "%s> %s\n", who, m.Content)
	}
}

func ignoreEnd(err error) error {
	if errors.Is(err, errQuit) || errors.Is(err, io.EOF) || errors.Is(err, ErrInterrupt) {
		return nil
	}
	return err
}
