package main

import (
	"fmt"
	"log/slog"
	"os"

	orchestration "github.com/koscakluka/ema-cookbook/core"
	"github.com/koscakluka/ema-cookbook/internal/cli"
	"github.com/spf13/cobra"
)

type chatFlags struct {
	plain        bool
	mute         bool
	listen       bool
	audioBackend string
}

func newChatCommand(root *rootFlags) *cobra.Command {
	flags := &chatFlags{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the cookbook in the terminal",
		Long:  "Talk to the cookbook in the terminal. Replies are spoken unless --mute is set. Say or type \"something else\" to start over and \"quit\" to leave.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			if flags.audioBackend != "" {
				cfg.Audio.Backend = flags.audioBackend
			}
			if err := cfg.Validate(!flags.mute); err != nil {
				return err
			}
			if flags.listen {
				if err := cfg.ValidateListening(); err != nil {
					return err
				}
			}

			generator, err := newGenerator(cfg)
			if err != nil {
				return err
			}
			opts := []orchestration.OrchestratorOption{
				orchestration.WithLLM(generator),
				orchestration.WithControlUtterances(),
				orchestration.WithVoice(cfg.Murf.VoiceID),
			}

			if !flags.mute || flags.listen {
				device, err := newAudioDevice(cfg.Audio.Backend)
				if err != nil {
					return err
				}
				defer device.Close()
				opts = append(opts, orchestration.WithAudioOutput(device), orchestration.WithAudioInput(device))
			}

			if !flags.mute {
				synthesizer, err := newSynthesizer(cfg)
				if err != nil {
					return err
				}
				opts = append(opts, orchestration.WithTextToSpeechClient(synthesizer))
			}

			if flags.listen {
				transcriber, err := newTranscriber(cfg)
				if err != nil {
					return err
				}
				opts = append(opts, orchestration.WithSpeechToTextClient(transcriber))
			}

			assistant := orchestration.NewOrchestrator(opts...)
			defer assistant.Close()

			options := cli.Options{Mute: flags.mute}
			if flags.listen {
				options.Listener = assistant
			}

			slog.DebugContext(ctx, "starting chat", "model", generator.Model(), "plain", flags.plain, "listen", flags.listen)
			if flags.plain {
				return cli.RunPlain(ctx, assistant, os.Stdin, os.Stdout, options)
			}
			if err := cli.RunTUI(ctx, assistant, options); err != nil {
				return fmt.Errorf("chat failed: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&flags.plain, "plain", false, "use a plain line prompt instead of the terminal interface")
	cmd.Flags().BoolVar(&flags.mute, "mute", false, "print replies without speaking them")
	cmd.Flags().BoolVar(&flags.listen, "listen", false, "also take spoken utterances from the microphone (needs DEEPGRAM_API_KEY)")
	cmd.Flags().StringVar(&flags.audioBackend, "audio-backend", "", "audio backend: miniaudio or portaudio (overrides AUDIO_BACKEND)")
	return cmd
}
