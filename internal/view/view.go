// Package view renders the login and chat screens of the web UI.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/greenhaven/assistant-chat/internal/model/chat"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	// LoginTitle heads the login and register screen.
	LoginTitle = "Green Haven AI Assistant"
	// ChatTitle heads the conversation screen.
	ChatTitle = "How can I help you today?"
)

// Mode selects the form shown on the login screen.
type Mode string

const (
	ModeLogin    Mode = "login"
	ModeRegister Mode = "register"
)

// ParseMode maps a form value to a Mode, defaulting to ModeLogin.
func ParseMode(s string) Mode {
	if Mode(s) == ModeRegister {
		return ModeRegister
	}
	return ModeLogin
}

// Flash is a one-shot status line shown above a form.
type Flash struct {
	Kind string // "success" or "error"
	Text string
}

// Success builds a green flash.
func Success(text string) *Flash { return &Flash{Kind: "success", Text: text} }

// Failure builds a red flash.
func Failure(text string) *Flash { return &Flash{Kind: "error", Text: text} }

// LoginPage is the model of the anonymous screen.
type LoginPage struct {
	Title       string
	Mode        Mode
	Flash       *Flash
	Email       string
	FullName    string
	PhoneNumber string
}

// Bubble is one rendered history entry.
type Bubble struct {
	Role chat.Role
	// Text holds user content; it is escaped by the template.
	Text string
	// HTML holds assistant content rendered from Markdown.
	HTML template.HTML
	// Typing marks the reply the browser should animate.
	Typing bool
}

// ChatPage is the model of the conversation screen.
type ChatPage struct {
	SiteTitle string
	Title     string
	Flash     *Flash
	Bubbles   []Bubble
}

// Bubbles turns a transcript into bubbles. When animateLast is set and the final
// entry is an assistant reply, that bubble is marked for the typing animation.
func Bubbles(messages []chat.Message, animateLast bool) []Bubble {
	out := make([]Bubble, 0, len(messages))
	for _, m := range messages {
		b := Bubble{Role: m.Role}
		if m.Role == chat.RoleAssistant {
			b.HTML = Markdown(m.Content)
		} else {
			b.Text = m.Content
		}
		out = append(out, b)
	}
	if animateLast && len(out) > 0 && out[len(out)-1].Role == chat.RoleAssistant {
		out[len(out)-1].Typing = true
	}
	return out
}

// Renderer executes the embedded page templates.
type Renderer struct {
	title string
	login *template.Template
	chat  *template.Template
}

// New parses the embedded templates. siteTitle is used for the document title
// and the login heading; an empty value falls back to LoginTitle.
func New(siteTitle string) (*Renderer, error) {
	if siteTitle == "" {
		siteTitle = LoginTitle
	}

	login, err := template.ParseFS(templateFS, "templates/layout.html", "templates/login.html")
	if err != nil {
		return nil, fmt.Errorf("parse login template: %w", err)
	}
	chatTmpl, err := template.ParseFS(templateFS, "templates/layout.html", "templates/chat.html")
	if err != nil {
		return nil, fmt.Errorf("parse chat template: %w", err)
	}

	return &Renderer{title: siteTitle, login: login, chat: chatTmpl}, nil
}

// Login writes the login or register screen.
func (r *Renderer) Login(w io.Writer, page LoginPage) error {
	if page.Title == "" {
		page.Title = r.title
	}
	if page.Mode == "" {
		page.Mode = ModeLogin
	}
	return execute(w, r.login, page)
}

// Chat writes the conversation screen.
func (r *Renderer) Chat(w io.Writer, page ChatPage) error {
	if page.SiteTitle == "" {
		page.SiteTitle = r.title
	}
	if page.Title == "" {
		page.Title = ChatTitle
	}
	return execute(w, r.chat, page)
}

// execute renders into a buffer first so a template error never leaves half a page on the wire.
func execute(w io.Writer, t *template.Template, data any) error {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("render %s: %w", t.Name(), err)
	}
	_, err := buf.WriteTo(w)
	return err
}
