// Package cli runs the cookbook conversation in a terminal, either as a
// bubbletea interface or as a plain line loop, speaking every reply unless
// muted.
package cli

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/koscakluka/ema-cookbook/core/dialog"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

var logger = otelslog.NewLogger("github.com/koscakluka/ema-cookbook/internal/cli")

// Assistant runs the conversation and speaks replies.
type Assistant interface {
	Start(ctx context.Context, sessionID string) dialog.Turn
	Respond(ctx context.Context, sessionID string, utterance string) (dialog.Turn, error)
	End(sessionID string)
	Speak(ctx context.Context, text string) error
	CanSpeak() bool
}

// Listener delivers utterances heard on the microphone.
type Listener interface {
	Listen(ctx context.Context, onUtterance func(string), onInterim func(string)) error
	StopListening() error
}

type Options struct {
	// Mute prints replies without speaking them.
	Mute bool
	// Listener, when set, adds spoken utterances to typed ones.
	Listener Listener
}

type conversation struct {
	assistant Assistant
	sessionID string
	mute      bool
}

func newConversation(assistant Assistant, opts Options) *conversation {
	return &conversation{
		assistant: assistant,
		sessionID: uuid.NewString(),
		mute:      opts.Mute || !assistant.CanSpeak(),
	}
}

func (c *conversation) start(ctx context.Context) dialog.Turn {
	return c.assistant.Start(ctx, c.sessionID)
}

// respond runs one turn. Model failures are already described by the turn
// reply, so they are only logged.
func (c *conversation) respond(ctx context.Context, utterance string) dialog.Turn {
	turn, err := c.assistant.Respond(ctx, c.sessionID, utterance)
	if err != nil {
		logger.WarnContext(ctx, "turn failed", "error", err)
	}
	return turn
}

// speak plays text unless muted. Speech failures never end the conversation.
func (c *conversation) speak(ctx context.Context, text string) error {
	if c.mute || text == "" {
		return nil
	}
	err := c.assistant.Speak(ctx, text)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.WarnContext(ctx, "failed to speak reply", "error", err)
		return err
	}
	return nil
}

func (c *conversation) end() {
	c.assistant.End(c.sessionID)
}
