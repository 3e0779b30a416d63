package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
)

const (
	userPrefix      = "You: "
	assistantPrefix = "Assistant: "
)

// RunPlain reads one utterance per line from in and writes every reply to
// out. It returns after the farewell, at the end of input or when ctx is
// done.
func RunPlain(ctx context.Context, assistant Assistant, in io.Reader, out io.Writer, opts Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c := newConversation(assistant, opts)
	defer c.end()

	say := func(text string) {
		fmt.Fprintln(out, assistantPrefix+text)
		if err := c.speak(ctx, text); err != nil {
			fmt.Fprintf(out, "(could not speak the reply: %v)\n", err)
		}
	}

	say(c.start(ctx).Reply)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	heard := make(chan string, 4)
	if opts.Listener != nil {
		err := opts.Listener.Listen(ctx, func(utterance string) {
			select {
			case heard <- utterance:
			case <-ctx.Done():
			}
		}, nil)
		if err != nil {
			return fmt.Errorf("failed to listen: %w", err)
		}
		defer func() {
			if err := opts.Listener.StopListening(); err != nil {
				logger.Warn("failed to stop listening", "error", err)
			}
		}()
	}

	for {
		fmt.Fprint(out, userPrefix)

		var utterance string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(out)
				return nil
			}
			utterance = line
		case spoken := <-heard:
			fmt.Fprintln(out, spoken)
			utterance = spoken
		}

		turn := c.respond(ctx, utterance)
		say(turn.Reply)
		if turn.Ended {
			return nil
		}
	}
}
