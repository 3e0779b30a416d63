package main

import (
	"log/slog"

	orchestration "github.com/koscakluka/ema-cookbook/core"
	"github.com/koscakluka/ema-cookbook/internal/server"
	"github.com/spf13/cobra"
)

func newServeCommand(root *rootFlags) *cobra.Command {
	var (
		addr          string
		secureCookies bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web chat and the JSON endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			if err := cfg.Validate(false); err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			generator, err := newGenerator(cfg)
			if err != nil {
				return err
			}
			opts := []orchestration.OrchestratorOption{
				orchestration.WithLLM(generator),
				orchestration.WithVoice(cfg.Murf.VoiceID),
			}

			synthesizer, err := newSynthesizer(cfg)
			if err != nil {
				return err
			}
			if synthesizer != nil {
				opts = append(opts, orchestration.WithTextToSpeechClient(synthesizer))
			} else {
				slog.WarnContext(ctx, "MURF_API_KEY is not set, /text will only return text")
			}

			assistant := orchestration.NewOrchestrator(opts...)
			defer assistant.Close()

			serverOpts := []server.ServerOption{server.WithSessionIdleTimeout(cfg.Server.SessionIdleTimeout)}
			if secureCookies {
				serverOpts = append(serverOpts, server.WithSecureCookies())
			}
			s, err := server.NewServer(assistant, serverOpts...)
			if err != nil {
				return err
			}

			slog.InfoContext(ctx, "starting cookbook server", "addr", cfg.Server.Addr, "model", generator.Model())
			return s.Run(ctx, cfg.Server.Addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides COOKBOOK_ADDR)")
	cmd.Flags().BoolVar(&secureCookies, "secure-cookies", false, "mark the session cookie as HTTPS only")
	return cmd
}
