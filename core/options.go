package orchestration

import (
	"github.com/koscakluka/ema-cookbook/core/audio"
	"github.com/koscakluka/ema-cookbook/core/conversations"
	"github.com/koscakluka/ema-cookbook/core/dialog"
	"github.com/koscakluka/ema-cookbook/core/llms"
	"github.com/koscakluka/ema-cookbook/core/speechtotext"
	"github.com/koscakluka/ema-cookbook/core/texttospeech"
)

type OrchestratorOption func(*Orchestrator)

func WithLLM(client llms.Generator) OrchestratorOption {
	return func(o *Orchestrator) {
		o.llm = client
	}
}

func WithTextToSpeechClient(client texttospeech.Synthesizer) OrchestratorOption {
	return func(o *Orchestrator) {
		o.textToSpeech = client
	}
}

func WithSpeechToTextClient(client speechtotext.Transcriber) OrchestratorOption {
	return func(o *Orchestrator) {
		o.speechToText = client
	}
}

func WithAudioOutput(client audio.Player) OrchestratorOption {
	return func(o *Orchestrator) {
		o.audioOutput = client
	}
}

func WithAudioInput(client audio.Recorder) OrchestratorOption {
	return func(o *Orchestrator) {
		o.audioInput = client
	}
}

// WithVoice selects the voice used for every synthesis. An empty voice keeps
// the speech client's default.
func WithVoice(voiceID string) OrchestratorOption {
	return func(o *Orchestrator) {
		o.voice = voiceID
	}
}

// WithControlUtterances enables "something else" and "quit" handling while
// waiting for a confirmation.
func WithControlUtterances() OrchestratorOption {
	return func(o *Orchestrator) {
		o.machineOptions = append(o.machineOptions, dialog.WithControlUtterances())
	}
}

func WithSessionStore(store *conversations.Store) OrchestratorOption {
	return func(o *Orchestrator) {
		if store != nil {
			o.sessions = store
		}
	}
}
