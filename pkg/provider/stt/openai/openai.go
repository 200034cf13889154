// Package openai provides an STT provider that calls OpenAI Whisper
// directly, bypassing the hearth backend. It implements the stt.Provider
// interface.
package openai

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/hearthvoice/hearth/pkg/provider/stt"
)

const defaultModel = oai.AudioModelWhisper1

// Option is a functional option for configuring the Provider.
type Option func(*config)

type config struct {
	model   oai.AudioModel
	baseURL string
	timeout time.Duration
}

// WithModel overrides the transcription model (default whisper-1).
func WithModel(model string) Option {
	return func(c *config) { c.model = oai.AudioModel(model) }
}

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(u string) Option {
	return func(c *config) { c.baseURL = u }
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// Provider implements [stt.Provider] backed by the OpenAI audio API.
type Provider struct {
	client oai.Client
	model  oai.AudioModel
}

var _ stt.Provider = (*Provider)(nil)

// New constructs a Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}

	cfg := &config{model: defaultModel}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{Timeout: cfg.timeout}))
	}

	return &Provider{client: oai.NewClient(reqOpts...), model: cfg.model}, nil
}

// Transcribe implements stt.Provider via the transcriptions endpoint.
func (p *Provider) Transcribe(ctx context.Context, payload stt.Payload, _ string) (string, error) {
	resp, err := p.client.Audio.Transcriptions.New(ctx, oai.AudioTranscriptionNewParams{
		Model: p.model,
		File:  oai.File(bytes.NewReader(payload.Data), payload.Filename, payload.MIMEType),
	})
	if err != nil {
		return "", fmt.Errorf("openai: transcribe: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}
