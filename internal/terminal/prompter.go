package terminal

import (
	"fmt"
	"os"

	"github.com/ergochat/readline"
	"golang.org/x/term"
)

// Prompter reads lines from the user.
type Prompter interface {
	// Prompt shows prompt and returns the next line. io.EOF ends the session.
	Prompt(prompt string) (string, error)
	// Secret reads a line without echoing it where the input allows.
	Secret(prompt string) (string, error)
	Close() error
}

// ErrInterrupt is returned by a Prompter when the user presses Ctrl-C.
var ErrInterrupt = readline.ErrInterrupt

// lineEditor is the part of *readline.Instance the Prompter drives.
type lineEditor interface {
	SetPrompt(prompt string)
	ReadLine() (string, error)
	GeneratePasswordConfig() *readline.Config
	ReadLineWithConfig(cfg *readline.Config) (string, error)
	Close() error
}

// Readline is the interactive Prompter backed by a line editor.
type Readline struct {
	rl         lineEditor
	isTerminal func() bool
}

// NewReadline opens a line editor on the process terminal.
func NewReadline() (*Readline, error) {
	rl, err := readline.New("")
	if err != nil {
		return nil, fmt.Errorf("open line editor: %w", err)
	}
	return &Readline{
		rl:         rl,
		isTerminal: func() bool { return term.IsTerminal(int(os.Stdin.Fd())) },
	}, nil
}

func (r *Readline) Prompt(prompt string) (string, error) {
	r.rl.SetPrompt(prompt)
	return r.rl.ReadLine()
}

// Secret masks the line on a terminal and falls back to a plain line
// otherwise. Both paths read through the line editor, which owns stdin and
// may already hold buffered input.
func (r *Readline) Secret(prompt string) (string, error) {
	if !r.isTerminal() {
		return r.Prompt(prompt)
	}

	cfg := r.rl.GeneratePasswordConfig()
	cfg.Prompt = prompt
	line, err := r.rl.ReadLineWithConfig(cfg)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return line, nil
}

func (r *Readline) Close() error {
	return r.rl.Close()
}
