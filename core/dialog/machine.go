// Package dialog holds the recipe conversation: the session record, the
// transition table that drives it, and the prompts and replies it produces.
package dialog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/koscakluka/ema-cookbook/core/llms"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

var (
	// ErrGeneration wraps every language model failure returned from
	// [Machine.Transition].
	ErrGeneration = errors.New("failed to generate response")
	// ErrNoGenerator is reported when a transition needs the language model
	// but none was configured.
	ErrNoGenerator = errors.New("no language model configured")
)

// Turn is the outcome of a single transition.
type Turn struct {
	Utterance string
	Intent    Intent
	Reply     string
	// Prompt is the prompt sent to the language model, empty when the turn
	// did not need one.
	Prompt string
	// Ended is set when the user asked to leave the conversation.
	Ended bool
}

type Machine struct {
	generator llms.Generator
	controls  bool
}

type MachineOption func(*Machine)

// WithControlUtterances makes the machine recognise "something else"/"new
// dish" and "quit"/"exit"/"stop" while it waits for a confirmation. This is
// what the interactive loop uses.
func WithControlUtterances() MachineOption {
	return func(m *Machine) { m.controls = true }
}

func NewMachine(generator llms.Generator, opts ...MachineOption) *Machine {
	m := &Machine{generator: generator}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start returns a fresh session together with the greeting.
func (m *Machine) Start() (Session, Turn) {
	return NewSession(), Turn{Reply: ReplyWelcome}
}

// Transition applies one utterance to session and returns the next session
// and the turn it produced. session itself is never modified.
//
// The language model is called at most once. If that call fails, the
// returned session is the one passed in, the turn reply describes the
// failure, and the error wraps [ErrGeneration].
func (m *Machine) Transition(ctx context.Context, session Session, utterance string) (Session, Turn, error) {
	ctx, span := tracer.Start(ctx, "dialog transition")
	defer span.End()

	next, err := session.Clone()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return session, Turn{Utterance: utterance, Reply: ReplyAskDish}, err
	}

	from := next.State
	utterance = strings.TrimSpace(utterance)
	turn := Turn{
		Utterance: utterance,
		Intent:    Classify(next.State, utterance, m.controls),
	}
	span.SetAttributes(
		attribute.String("dialog.state.from", from.String()),
		attribute.String("dialog.intent", string(turn.Intent)),
	)

	switch next.State {
	case StateAwaitingConfirmation:
		err = m.awaitingConfirmation(ctx, &next, &turn)
	case StateAwaitingMissingItems:
		err = m.awaitingMissingItems(ctx, &next, &turn)
	default:
		err = m.initial(ctx, &next, &turn)
	}

	if err != nil {
		err = fmt.Errorf("%w: %w", ErrGeneration, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.ErrorContext(ctx, "dialog transition failed",
			"state", from.String(), "intent", string(turn.Intent), "error", err)
		turn.Reply = ComposeError(err)
		turnCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("dialog.state.from", from.String()),
			attribute.Bool("dialog.failed", true),
		))
		return session, turn, err
	}

	span.SetAttributes(attribute.String("dialog.state.to", next.State.String()))
	turnCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("dialog.state.from", from.String()),
		attribute.Bool("dialog.failed", false),
	))
	logger.DebugContext(ctx, "dialog transition",
		"from", from.String(), "to", next.State.String(), "intent", string(turn.Intent))

	return next, turn, nil
}

func (m *Machine) initial(ctx context.Context, session *Session, turn *Turn) error {
	if turn.Intent == IntentNone {
		turn.Reply = ReplyAskDish
		return nil
	}

	dish := turn.Utterance
	text, err := m.generate(ctx, turn, BuildPrompt(PromptRequirements, dish, nil))
	if err != nil {
		return err
	}

	session.State = StateAwaitingConfirmation
	session.CurrentDish = dish
	turn.Reply = Compose(PromptRequirements, dish, text)
	return nil
}

func (m *Machine) awaitingConfirmation(ctx context.Context, session *Session, turn *Turn) error {
	switch turn.Intent {
	case IntentConfirm:
		dish := session.CurrentDish
		text, err := m.generate(ctx, turn, BuildPrompt(PromptFullRecipe, dish, nil))
		if err != nil {
			return err
		}
		session.reset()
		turn.Reply = Compose(PromptFullRecipe, dish, text)

	case IntentDecline:
		session.State = StateAwaitingMissingItems
		turn.Reply = ReplyAskMissing

	case IntentSomethingElse:
		session.reset()
		turn.Reply = ReplyRestart

	case IntentQuit:
		turn.Ended = true
		turn.Reply = ReplyFarewell

	default:
		if m.controls {
			turn.Reply = ReplyReaskControls
		} else {
			turn.Reply = ReplyReask
		}
	}
	return nil
}

func (m *Machine) awaitingMissingItems(ctx context.Context, session *Session, turn *Turn) error {
	if turn.Intent == IntentNone {
		turn.Reply = ReplyAskMissing
		return nil
	}

	missing := turn.Utterance
	items := append(session.UnavailableItems, missing)
	text, err := m.generate(ctx, turn, BuildPrompt(PromptAlternative, session.CurrentDish, items))
	if err != nil {
		return err
	}

	session.UnavailableItems = items
	session.State = StateAwaitingConfirmation
	turn.Reply = Compose(PromptAlternative, missing, text)
	return nil
}

func (m *Machine) generate(ctx context.Context, turn *Turn, prompt string) (string, error) {
	turn.Prompt = prompt
	if m.generator == nil {
		return "", ErrNoGenerator
	}
	return m.generator.Generate(ctx, prompt, SystemInstruction)
}
