// Package orchestration runs recipe conversations: it keeps one dialog
// session per caller, drives the dialog machine with their utterances and
// turns replies into speech when a speech client is configured.
package orchestration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/koscakluka/ema-cookbook/core/audio"
	"github.com/koscakluka/ema-cookbook/core/conversations"
	"github.com/koscakluka/ema-cookbook/core/dialog"
	"github.com/koscakluka/ema-cookbook/core/llms"
	"github.com/koscakluka/ema-cookbook/core/speechtotext"
	"github.com/koscakluka/ema-cookbook/core/texttospeech"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	ErrNoTextToSpeech = errors.New("no text to speech client configured")
	ErrNoAudioOutput  = errors.New("no audio output configured")
	ErrNoAudioInput   = errors.New("no audio input or speech to text client configured")
)

type Orchestrator struct {
	llm          llms.Generator
	textToSpeech texttospeech.Synthesizer
	speechToText speechtotext.Transcriber
	audioOutput  audio.Player
	audioInput   audio.Recorder
	voice        string

	machineOptions []dialog.MachineOption
	machine        *dialog.Machine
	sessions       *conversations.Store

	listener   *listener
	listenerMu sync.Mutex
	closeOnce  sync.Once
}

func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		sessions: conversations.NewStore(),
	}
	for _, opt := range opts {
		opt(o)
	}

	o.machine = dialog.NewMachine(o.llm, o.machineOptions...)
	return o
}

// Start resets the session to its initial state and returns the greeting.
func (o *Orchestrator) Start(ctx context.Context, sessionID string) dialog.Turn {
	_, span := tracer.Start(ctx, "start conversation")
	defer span.End()

	session, turn := o.machine.Start()
	o.sessions.Put(sessionID, session)
	logger.DebugContext(ctx, "conversation started", "session", sessionID)
	return turn
}

// Respond runs one turn of the session's conversation. Turns of the same
// session are serialized. A failed turn leaves the session untouched and
// still returns a turn with a reply describing the failure.
func (o *Orchestrator) Respond(ctx context.Context, sessionID string, utterance string) (dialog.Turn, error) {
	ctx, span := tracer.Start(ctx, "respond")
	defer span.End()

	var turn dialog.Turn
	err := o.sessions.Update(sessionID, func(session dialog.Session) (dialog.Session, error) {
		next, t, err := o.machine.Transition(ctx, session, utterance)
		turn = t
		return next, err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return turn, err
	}

	span.SetAttributes(attribute.String("dialog.intent", string(turn.Intent)))
	if turn.Ended {
		o.End(sessionID)
	}
	return turn, nil
}

// Session returns a copy of the session stored under sessionID.
func (o *Orchestrator) Session(sessionID string) (dialog.Session, bool) {
	return o.sessions.Get(sessionID)
}

// End forgets the session.
func (o *Orchestrator) End(sessionID string) {
	o.sessions.Delete(sessionID)
}

// PruneSessions forgets sessions idle for longer than idle and reports how
// many were removed.
func (o *Orchestrator) PruneSessions(idle time.Duration) int {
	return o.sessions.Prune(idle)
}

// Synthesize turns text into MP3 speech with the configured voice.
func (o *Orchestrator) Synthesize(ctx context.Context, text string) (*texttospeech.Speech, error) {
	if o.textToSpeech == nil {
		return nil, ErrNoTextToSpeech
	}

	speech, err := o.textToSpeech.Synthesize(ctx, text,
		texttospeech.WithVoice(o.voice),
		texttospeech.WithFormat(texttospeech.FormatMP3),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize speech: %w", err)
	}
	return speech, nil
}

func (o *Orchestrator) CanSpeak() bool {
	return o.textToSpeech != nil && o.audioOutput != nil
}

func (o *Orchestrator) Close() {
	o.closeOnce.Do(func() {
		if err := o.StopListening(); err != nil {
			logger.Warn("failed to stop listening", "error", err)
		}
	})
}
