// Package server provides an STT provider backed by the hearth backend's
// transcription endpoint (POST /api/voice/transcribe).
//
// The endpoint accepts a multipart upload and answers JSON:
//
//	{"transcription": "...", "session_id": "...", "status": "success"}
//
// A status of "no_audio_data" or "fallback" means the service produced no
// usable speech; both are reported as empty text so the caller's own fallback
// policy applies.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/hearthvoice/hearth/pkg/provider/stt"
)

const (
	transcribePath = "/api/voice/transcribe"
	defaultTimeout = 30 * time.Second
)

// Option is a functional option for configuring the Provider.
type Option func(*Provider)

// WithHTTPClient replaces the HTTP client, mainly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.httpClient = c }
}

// Provider implements [stt.Provider] against the backend endpoint.
type Provider struct {
	baseURL    string
	httpClient *http.Client
}

var _ stt.Provider = (*Provider)(nil)

// New creates a Provider for the backend at baseURL (e.g.,
// "http://localhost:8000"). baseURL must be non-empty.
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

// transcribeResponse mirrors the backend's JSON reply.
type transcribeResponse struct {
	Transcription string `json:"transcription"`
	SessionID     string `json:"session_id"`
	Status        string `json:"status"`
}

// Transcribe uploads the payload and returns the recognized text. Empty text
// with nil error means the service detected no speech.
func (p *Provider) Transcribe(ctx context.Context, payload stt.Payload, sessionID string) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="audio_file"; filename=%q`, payload.Filename))
	hdr.Set("Content-Type", payload.MIMEType)
	fw, err := mw.CreatePart(hdr)
	if err != nil {
		return "", fmt.Errorf("server: create multipart: %w", err)
	}
	if _, err := fw.Write(payload.Data); err != nil {
		return "", fmt.Errorf("server: write multipart: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("server: close multipart: %w", err)
	}

	u := p.baseURL + transcribePath + "?session_id=" + url.QueryEscape(sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, &body)
	if err != nil {
		return "", fmt.Errorf("server: build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("server: transcribe request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("server: transcribe status %d: %s", resp.StatusCode, snippet)
	}

	var tr transcribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("server: decode response: %w", err)
	}
	if tr.Status != "success" {
		return "", nil
	}
	return strings.TrimSpace(tr.Transcription), nil
}
