// Package typing reveals a finished reply rune by rune to imitate live typing.
package typing

import (
	"context"
	"time"
)

const (
	// DefaultDelay is the pause between two revealed runes.
	DefaultDelay = 15 * time.Millisecond
	// DefaultCursor trails the partial text while typing is in progress.
	DefaultCursor = "▌"
)

// Frame is one step of the animation.
type Frame struct {
	// Text is the reply typed so far.
	Text string `json:"text"`
	// Delta is the rune revealed by this frame. Empty on the final frame.
	Delta string `json:"delta"`
	// Done marks the last frame, which carries the complete reply.
	Done bool `json:"done"`

	cursor string
}

// Display returns the text as it should be drawn: with the cursor while typing, bare when done.
func (f Frame) Display() string {
	if f.Done {
		return f.Text
	}
	return f.Text + f.cursor
}

// Typewriter paces frames of a reply.
type Typewriter struct {
	Delay  time.Duration
	Cursor string
}

// New returns a Typewriter with the given delay and the default cursor.
// A negative delay is treated as zero.
func New(delay time.Duration) Typewriter {
	if delay < 0 {
		delay = 0
	}
	return Typewriter{Delay: delay, Cursor: DefaultCursor}
}

// Play calls fn once per rune of text and once more with the finished frame.
// It stops early when ctx is cancelled or fn returns an error.
func (t Typewriter) Play(ctx context.Context, text string, fn func(Frame) error) error {
	runes := []rune(text)

	var timer *time.Timer
	if t.Delay > 0 && len(runes) > 0 {
		timer = time.NewTimer(t.Delay)
		defer timer.Stop()
	}

	for i, r := range runes {
		if err := ctx.Err(); err != nil {
			return err
		}
		frame := Frame{Text: string(runes[:i+1]), Delta: string(r), cursor: t.Cursor}
		if err := fn(frame); err != nil {
			return err
		}
		if timer == nil {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			timer.Reset(t.Delay)
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(Frame{Text: text, Done: true, cursor: t.Cursor})
}
