// Package config provides the configuration schema and loader for the hearth
// voice client.
package config

import "time"

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure. It is typically loaded from a
// YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Backend    BackendConfig    `yaml:"backend"`
	Providers  ProvidersConfig  `yaml:"providers"`
	Capture    CaptureConfig    `yaml:"capture"`
	AutoListen AutoListenConfig `yaml:"auto_listen"`
}

// ServerConfig holds logging and metrics settings for the client process.
type ServerConfig struct {
	// LogLevel controls verbosity. Default: info.
	LogLevel LogLevel `yaml:"log_level"`

	// MetricsAddr is the TCP address the Prometheus /metrics endpoint listens
	// on (e.g., ":9090"). Empty disables the listener.
	MetricsAddr string `yaml:"metrics_addr"`
}

// BackendConfig points the client at the hearth conversation backend.
type BackendConfig struct {
	// BaseURL is the backend root (e.g., "http://localhost:8000"). Required
	// when any provider is "server" or the chat websocket is enabled.
	BaseURL string `yaml:"base_url"`

	// ChatWebSocket enables the /ws/{session_id} conversation consumer.
	// Default: true.
	ChatWebSocket *bool `yaml:"chat_websocket"`
}

// ProvidersConfig selects the implementation for each voice pipeline stage.
type ProvidersConfig struct {
	STT ProviderEntry `yaml:"stt"`
	TTS ProviderEntry `yaml:"tts"`
}

// ProviderEntry is the common configuration block shared by provider kinds.
type ProviderEntry struct {
	// Name selects the implementation: "server" (the backend's voice
	// endpoints) or "openai" (direct provider access).
	Name string `yaml:"name"`

	// APIKey authenticates direct provider access. Left empty, it is filled
	// from the OPENAI_API_KEY environment variable (a .env file is honoured).
	APIKey string `yaml:"api_key"`

	// Model optionally overrides the provider's default model.
	Model string `yaml:"model"`
}

// CaptureConfig tunes the recording state machine.
type CaptureConfig struct {
	// MaxSeconds caps a single recording. Default: 60.
	MaxSeconds int `yaml:"max_seconds"`

	// FlushIntervalMs is the chunk-flush period in milliseconds. Default: 250.
	FlushIntervalMs int `yaml:"flush_interval_ms"`

	// MinPayloadBytes is the threshold below which an assembled payload is
	// treated as silence and never sent for transcription. Default: 100.
	MinPayloadBytes int `yaml:"min_payload_bytes"`
}

// MaxDuration returns MaxSeconds as a duration.
func (c CaptureConfig) MaxDuration() time.Duration {
	return time.Duration(c.MaxSeconds) * time.Second
}

// FlushInterval returns FlushIntervalMs as a duration.
func (c CaptureConfig) FlushInterval() time.Duration {
	return time.Duration(c.FlushIntervalMs) * time.Millisecond
}

// AutoListenConfig holds the user-controlled re-listen policy.
type AutoListenConfig struct {
	// Enabled starts the session with auto-listen on. Default: false.
	Enabled bool `yaml:"enabled"`
}

// ChatWebSocketEnabled reports the websocket toggle with its default applied.
func (b BackendConfig) ChatWebSocketEnabled() bool {
	if b.ChatWebSocket == nil {
		return true
	}
	return *b.ChatWebSocket
}
