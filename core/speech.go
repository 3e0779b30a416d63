package orchestration

import (
	"context"
	"fmt"

	"github.com/koscakluka/ema-cookbook/core/audio"
	"github.com/koscakluka/ema-cookbook/core/texttospeech"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Speak synthesizes text as WAV in the output device's encoding and plays it
// segment by segment. Listening is paused while speaking so the assistant
// does not transcribe itself.
func (o *Orchestrator) Speak(ctx context.Context, text string) error {
	ctx, span := tracer.Start(ctx, "speak")
	defer span.End()
	span.SetAttributes(attribute.Int("speech.text_length", len(text)))

	if err := o.speak(ctx, text); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (o *Orchestrator) speak(ctx context.Context, text string) error {
	if o.textToSpeech == nil {
		return ErrNoTextToSpeech
	}
	if o.audioOutput == nil {
		return ErrNoAudioOutput
	}

	speech, err := o.textToSpeech.Synthesize(ctx, text,
		texttospeech.WithVoice(o.voice),
		texttospeech.WithFormat(texttospeech.FormatWAV),
		texttospeech.WithEncodingInfo(o.audioOutput.EncodingInfo()),
	)
	if err != nil {
		return fmt.Errorf("failed to synthesize speech: %w", err)
	}

	clips := make([]*audio.Clip, 0, len(speech.Segments))
	for i, segment := range speech.Segments {
		clip, err := audio.DecodeWAV(segment)
		if err != nil {
			return fmt.Errorf("failed to decode speech segment %d: %w", i+1, err)
		}
		clips = append(clips, clip)
	}

	if l := o.currentListener(); l != nil {
		l.pause()
		defer l.resume(ctx)
	}

	for _, clip := range clips {
		if err := o.audioOutput.Play(ctx, *clip); err != nil {
			return fmt.Errorf("failed to play speech: %w", err)
		}
	}
	return nil
}
