// Package speechtotext describes live transcription clients.
package speechtotext

import (
	"context"

	"github.com/koscakluka/ema-cookbook/core/audio"
)

// Transcriber turns a live audio stream into utterances.
type Transcriber interface {
	// Transcribe opens the stream. Callbacks in opts fire until ctx is done
	// or Close is called.
	Transcribe(ctx context.Context, opts ...TranscriptionOption) error
	SendAudio(audio []byte) error
	Close() error
}

type TranscriptionOptions struct {
	// InterimTranscriptionCallback receives the utterance heard so far,
	// including words that may still change.
	InterimTranscriptionCallback func(transcript string)
	// PartialTranscriptionCallback receives every finalized piece of an
	// utterance.
	PartialTranscriptionCallback func(transcript string)
	// TranscriptionCallback receives a complete utterance once the speaker
	// has stopped.
	TranscriptionCallback func(transcript string)

	SpeechStartedCallback func()
	SpeechEndedCallback   func()

	EncodingInfo audio.EncodingInfo
}

type TranscriptionOption func(*TranscriptionOptions)

func WithTranscriptionCallback(callback func(transcript string)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.TranscriptionCallback = callback
	}
}

func WithPartialTranscriptionCallback(callback func(transcript string)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.PartialTranscriptionCallback = callback
	}
}

func WithInterimTranscriptionCallback(callback func(transcript string)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.InterimTranscriptionCallback = callback
	}
}

func WithSpeechStartedCallback(callback func()) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.SpeechStartedCallback = callback
	}
}

func WithSpeechEndedCallback(callback func()) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.SpeechEndedCallback = callback
	}
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		if encodingInfo.IsZero() {
			return
		}
		o.EncodingInfo = encodingInfo
	}
}
