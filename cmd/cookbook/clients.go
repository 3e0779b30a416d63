package main

import (
	"fmt"

	"github.com/koscakluka/ema-cookbook/core/audio"
	"github.com/koscakluka/ema-cookbook/core/audio/miniaudio"
	"github.com/koscakluka/ema-cookbook/core/audio/portaudio"
	"github.com/koscakluka/ema-cookbook/core/llms/openrouter"
	"github.com/koscakluka/ema-cookbook/core/speechtotext/deepgram"
	"github.com/koscakluka/ema-cookbook/core/texttospeech/murf"
	"github.com/koscakluka/ema-cookbook/internal/config"
)

func newGenerator(cfg *config.Config) (*openrouter.Client, error) {
	client, err := openrouter.NewClient(cfg.OpenRouter.APIKey,
		openrouter.WithBaseURL(cfg.OpenRouter.BaseURL),
		openrouter.WithModel(cfg.OpenRouter.Model),
		openrouter.WithTimeout(cfg.OpenRouter.Timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create language model client: %w", err)
	}
	return client, nil
}

// newSynthesizer returns nil without error when no Murf key is configured.
func newSynthesizer(cfg *config.Config) (*murf.Client, error) {
	if cfg.Murf.APIKey == "" {
		return nil, nil
	}

	client, err := murf.NewClient(cfg.Murf.APIKey,
		murf.WithDefaultVoice(cfg.Murf.VoiceID),
		murf.WithTimeout(cfg.Murf.Timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}
	return client, nil
}

func newTranscriber(cfg *config.Config) (*deepgram.TranscriptionClient, error) {
	client, err := deepgram.NewTranscriptionClient(cfg.Deepgram.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create transcription client: %w", err)
	}
	return client, nil
}

func newAudioDevice(backend string) (audio.Device, error) {
	switch backend {
	case config.AudioBackendPortaudio:
		device, err := portaudio.NewClient(portaudio.DefaultBufferSize)
		if err != nil {
			return nil, fmt.Errorf("failed to open portaudio device: %w", err)
		}
		return device, nil
	default:
		device, err := miniaudio.NewClient()
		if err != nil {
			return nil, fmt.Errorf("failed to open miniaudio device: %w", err)
		}
		return device, nil
	}
}
