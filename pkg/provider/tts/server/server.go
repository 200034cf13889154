// Package server provides a TTS provider backed by the hearth backend's
// synthesis endpoint (POST /api/voice/synthesize).
//
// The endpoint takes message, emotion, and session_id as query parameters and
// answers JSON with base64 audio:
//
//	{"audio_data": "...", "audio_format": "mp3", "estimated_duration": 2.3, ...}
package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hearthvoice/hearth/pkg/provider/tts"
)

const (
	synthesizePath = "/api/voice/synthesize"
	defaultTimeout = 30 * time.Second
)

// Option is a functional option for configuring the Provider.
type Option func(*Provider)

// WithHTTPClient replaces the HTTP client, mainly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.httpClient = c }
}

// Provider implements [tts.Provider] against the backend endpoint.
type Provider struct {
	baseURL    string
	httpClient *http.Client
}

var _ tts.Provider = (*Provider)(nil)

// New creates a Provider for the backend at baseURL. baseURL must be
// non-empty.
func New(baseURL string, opts ...Option) (*Provider, error) {
	if baseURL == "" {
		return nil, errors.New("server: baseURL must not be empty")
	}
	p := &Provider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// synthesizeResponse mirrors the backend's JSON reply.
type synthesizeResponse struct {
	AudioData         string  `json:"audio_data"`
	AudioFormat       string  `json:"audio_format"`
	Emotion           string  `json:"emotion"`
	Message           string  `json:"message"`
	EstimatedDuration float64 `json:"estimated_duration"`
	WordCount         int     `json:"word_count"`
}

// Synthesize requests audio for text and decodes the base64 payload.
func (p *Provider) Synthesize(ctx context.Context, text string, emotion tts.Emotion, sessionID string) (*tts.Clip, error) {
	q := url.Values{}
	q.Set("message", text)
	q.Set("emotion", string(emotion))
	q.Set("session_id", sessionID)

	u := p.baseURL + synthesizePath + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return nil, fmt.Errorf("server: build request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("server: synthesize request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("server: synthesize status %d: %s", resp.StatusCode, snippet)
	}

	var sr synthesizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("server: decode response: %w", err)
	}

	audio, err := base64.StdEncoding.DecodeString(sr.AudioData)
	if err != nil {
		return nil, fmt.Errorf("server: decode audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, errors.New("server: empty audio payload")
	}

	est := time.Duration(sr.EstimatedDuration * float64(time.Second))
	if est <= 0 {
		est = tts.EstimateDuration(text)
	}

	return &tts.Clip{Audio: audio, Format: sr.AudioFormat, EstimatedDuration: est}, nil
}
