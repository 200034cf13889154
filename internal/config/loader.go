package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
var ValidProviderNames = map[string][]string{
	"stt": {"server", "openai"},
	"tts": {"server", "openai"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. A .env file in the working directory is loaded first so that
// API keys can live outside the config file.
func Load(path string) (*Config, error) {
	// Missing .env is fine; keys may come from the real environment.
	_ = godotenv.Load()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults and the
// environment overlay, and validates the result. Useful in tests where
// configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	applyEnv(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Providers.STT.Name == "" {
		cfg.Providers.STT.Name = "server"
	}
	if cfg.Providers.TTS.Name == "" {
		cfg.Providers.TTS.Name = "server"
	}
	if cfg.Capture.MaxSeconds == 0 {
		cfg.Capture.MaxSeconds = 60
	}
	if cfg.Capture.FlushIntervalMs == 0 {
		cfg.Capture.FlushIntervalMs = 250
	}
	if cfg.Capture.MinPayloadBytes == 0 {
		cfg.Capture.MinPayloadBytes = 100
	}
}

func applyEnv(cfg *Config) {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		return
	}
	if cfg.Providers.STT.Name == "openai" && cfg.Providers.STT.APIKey == "" {
		cfg.Providers.STT.APIKey = key
	}
	if cfg.Providers.TTS.Name == "openai" && cfg.Providers.TTS.APIKey == "" {
		cfg.Providers.TTS.APIKey = key
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("config: unknown log_level %q", cfg.Server.LogLevel))
	}

	for kind, entry := range map[string]ProviderEntry{
		"stt": cfg.Providers.STT,
		"tts": cfg.Providers.TTS,
	} {
		if !slices.Contains(ValidProviderNames[kind], entry.Name) {
			errs = append(errs, fmt.Errorf("config: unknown %s provider %q (valid: %v)",
				kind, entry.Name, ValidProviderNames[kind]))
			continue
		}
		if entry.Name == "openai" && entry.APIKey == "" {
			errs = append(errs, fmt.Errorf("config: %s provider %q needs an api_key (or OPENAI_API_KEY)",
				kind, entry.Name))
		}
	}

	needsBackend := cfg.Providers.STT.Name == "server" ||
		cfg.Providers.TTS.Name == "server" ||
		cfg.Backend.ChatWebSocketEnabled()
	if needsBackend && cfg.Backend.BaseURL == "" {
		errs = append(errs, errors.New("config: backend.base_url is required when a provider is \"server\" or the chat websocket is enabled"))
	}

	if cfg.Capture.MaxSeconds < 1 {
		errs = append(errs, fmt.Errorf("config: capture.max_seconds must be positive, got %d", cfg.Capture.MaxSeconds))
	}
	if cfg.Capture.FlushIntervalMs < 10 {
		errs = append(errs, fmt.Errorf("config: capture.flush_interval_ms must be at least 10, got %d", cfg.Capture.FlushIntervalMs))
	}
	if cfg.Capture.MinPayloadBytes < 0 {
		errs = append(errs, fmt.Errorf("config: capture.min_payload_bytes must not be negative, got %d", cfg.Capture.MinPayloadBytes))
	}

	return errors.Join(errs...)
}
