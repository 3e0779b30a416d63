// Package config loads the cookbook configuration from the environment, an
// optional .env file and an optional cookbook.yaml file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var ErrMissingCredential = errors.New("missing credential")

const (
	AudioBackendMiniaudio = "miniaudio"
	AudioBackendPortaudio = "portaudio"
)

type Config struct {
	OpenRouter OpenRouterConfig `mapstructure:"openrouter"`
	Murf       MurfConfig       `mapstructure:"murf"`
	Deepgram   DeepgramConfig   `mapstructure:"deepgram"`
	Server     ServerConfig     `mapstructure:"server"`
	Audio      AudioConfig      `mapstructure:"audio"`
}

type OpenRouterConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type MurfConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	VoiceID string        `mapstructure:"voice_id"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type DeepgramConfig struct {
	APIKey string `mapstructure:"api_key"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	// SessionIdleTimeout is how long an untouched web session is kept.
	SessionIdleTimeout time.Duration `mapstructure:"session_idle_timeout"`
}

type AudioConfig struct {
	Backend string `mapstructure:"backend"`
}

// envBindings maps configuration keys to the environment variables that set
// them.
var envBindings = map[string]string{
	"openrouter.api_key":          "OPENROUTER_API_KEY",
	"openrouter.model":            "OPENROUTER_MODEL",
	"openrouter.base_url":         "OPENROUTER_BASE_URL",
	"openrouter.timeout":          "LLM_TIMEOUT",
	"murf.api_key":                "MURF_API_KEY",
	"murf.voice_id":               "MURF_VOICE_ID",
	"murf.timeout":                "MURF_TIMEOUT",
	"deepgram.api_key":            "DEEPGRAM_API_KEY",
	"server.addr":                 "COOKBOOK_ADDR",
	"server.session_idle_timeout": "COOKBOOK_SESSION_IDLE_TIMEOUT",
	"audio.backend":               "AUDIO_BACKEND",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("openrouter.model", "openai/gpt-3.5-turbo")
	v.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("openrouter.timeout", 60*time.Second)
	v.SetDefault("murf.voice_id", "en-US-natalie")
	v.SetDefault("murf.timeout", 60*time.Second)
	v.SetDefault("server.addr", ":5000")
	v.SetDefault("server.session_idle_timeout", time.Hour)
	v.SetDefault("audio.backend", AudioBackendMiniaudio)
}

// Load reads envFile (ignored when missing) into the process environment and
// then builds the configuration from defaults, configFile and the
// environment, in increasing priority. An empty configFile looks for an
// optional cookbook.yaml in the working directory.
func Load(envFile string, configFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("cookbook")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate checks that the credentials needed by the chosen surfaces are
// set. The language model key is always required.
func (c *Config) Validate(requireSpeech bool) error {
	if c.OpenRouter.APIKey == "" {
		return fmt.Errorf("%w: OPENROUTER_API_KEY is not set", ErrMissingCredential)
	}
	if requireSpeech && c.Murf.APIKey == "" {
		return fmt.Errorf("%w: MURF_API_KEY is not set", ErrMissingCredential)
	}
	switch c.Audio.Backend {
	case AudioBackendMiniaudio, AudioBackendPortaudio:
	default:
		return fmt.Errorf("unknown audio backend %q", c.Audio.Backend)
	}
	return nil
}

// ValidateListening checks the credentials needed to transcribe the
// microphone.
func (c *Config) ValidateListening() error {
	if c.Deepgram.APIKey == "" {
		return fmt.Errorf("%w: DEEPGRAM_API_KEY is not set", ErrMissingCredential)
	}
	return nil
}
