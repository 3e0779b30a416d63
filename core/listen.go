package orchestration

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/koscakluka/ema-cookbook/core/audio"
	"github.com/koscakluka/ema-cookbook/core/speechtotext"
)

type listener struct {
	input       audio.Recorder
	transcriber speechtotext.Transcriber
	cancel      context.CancelFunc

	mu     sync.Mutex
	paused bool
}

func (l *listener) forward(samples []byte) {
	if err := l.transcriber.SendAudio(samples); err != nil {
		logger.Debug("dropped microphone audio", "error", err)
	}
}

func (l *listener) pause() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.paused {
		return
	}
	if err := l.input.StopCapture(); err != nil {
		logger.Warn("failed to pause capture", "error", err)
		return
	}
	l.paused = true
}

func (l *listener) resume(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.paused {
		return
	}
	if err := l.input.StartCapture(ctx, l.forward); err != nil {
		logger.Warn("failed to resume capture", "error", err)
		return
	}
	l.paused = false
}

// Listen captures microphone audio and calls onUtterance with every complete
// utterance the speech to text client hears. onInterim, when set, receives
// the utterance as it is being spoken. Listening runs until ctx is done or
// StopListening is called.
func (o *Orchestrator) Listen(ctx context.Context, onUtterance func(string), onInterim func(string)) error {
	if o.audioInput == nil || o.speechToText == nil {
		return ErrNoAudioInput
	}
	if o.currentListener() != nil {
		return errors.New("already listening")
	}

	ctx, cancel := context.WithCancel(ctx)
	opts := []speechtotext.TranscriptionOption{
		speechtotext.WithEncodingInfo(o.audioInput.CaptureEncodingInfo()),
		speechtotext.WithTranscriptionCallback(onUtterance),
		speechtotext.WithPartialTranscriptionCallback(func(segment string) {
			logger.DebugContext(ctx, "heard segment", "text", segment)
		}),
		speechtotext.WithSpeechStartedCallback(func() { logger.DebugContext(ctx, "speech started") }),
		speechtotext.WithSpeechEndedCallback(func() { logger.DebugContext(ctx, "speech ended") }),
	}
	if onInterim != nil {
		opts = append(opts, speechtotext.WithInterimTranscriptionCallback(onInterim))
	}
	if err := o.speechToText.Transcribe(ctx, opts...); err != nil {
		cancel()
		return fmt.Errorf("failed to start transcription: %w", err)
	}

	l := &listener{input: o.audioInput, transcriber: o.speechToText, cancel: cancel}
	if err := l.input.StartCapture(ctx, l.forward); err != nil {
		cancel()
		_ = o.speechToText.Close()
		return fmt.Errorf("failed to start capture: %w", err)
	}

	o.setListener(l)
	logger.InfoContext(ctx, "listening")
	return nil
}

func (o *Orchestrator) StopListening() error {
	l := o.currentListener()
	if l == nil {
		return nil
	}
	o.setListener(nil)

	var errs []error
	if err := l.input.StopCapture(); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop capture: %w", err))
	}
	if err := l.transcriber.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close transcription: %w", err))
	}
	l.cancel()
	return errors.Join(errs...)
}

func (o *Orchestrator) currentListener() *listener {
	o.listenerMu.Lock()
	defer o.listenerMu.Unlock()
	return o.listener
}

func (o *Orchestrator) setListener(l *listener) {
	o.listenerMu.Lock()
	defer o.listenerMu.Unlock()
	o.listener = l
}
