// Package openai provides a TTS provider that calls the OpenAI speech API
// directly, bypassing the hearth backend. It implements the tts.Provider
// interface.
//
// Each emotion maps to the OpenAI voice the backend itself would pick: calm
// → alloy, supportive → nova, empathetic → shimmer, encouraging → echo.
package openai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/hearthvoice/hearth/pkg/provider/tts"
)

const defaultModel = oai.SpeechModelTTS1

// emotionVoices maps emotion tags to OpenAI voice names.
var emotionVoices = map[tts.Emotion]oai.AudioSpeechNewParamsVoice{
	tts.EmotionCalm:        oai.AudioSpeechNewParamsVoiceAlloy,
	tts.EmotionSupportive:  oai.AudioSpeechNewParamsVoiceNova,
	tts.EmotionEmpathetic:  oai.AudioSpeechNewParamsVoiceShimmer,
	tts.EmotionEncouraging: oai.AudioSpeechNewParamsVoiceEcho,
}

// Option is a functional option for configuring the Provider.
type Option func(*config)

type config struct {
	model   oai.SpeechModel
	baseURL string
	timeout time.Duration
}

// WithModel overrides the speech model (default tts-1).
func WithModel(model string) Option {
	return func(c *config) { c.model = oai.SpeechModel(model) }
}

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(u string) Option {
	return func(c *config) { c.baseURL = u }
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// Provider implements [tts.Provider] backed by the OpenAI audio API.
type Provider struct {
	client oai.Client
	model  oai.SpeechModel
}

var _ tts.Provider = (*Provider)(nil)

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

// Synthesize renders text as MP3 using the emotion's mapped voice.
func (p *Provider) Synthesize(ctx context.Context, text string, emotion tts.Emotion, _ string) (*tts.Clip, error) {
	voice, ok := emotionVoices[emotion]
	if !ok {
		voice = oai.AudioSpeechNewParamsVoiceAlloy
	}

	resp, err := p.client.Audio.Speech.New(ctx, oai.AudioSpeechNewParams{
		Model:          p.model,
		Voice:          voice,
		Input:          text,
		ResponseFormat: oai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return nil, fmt.Errorf("openai: synthesize: %w", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openai: read audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("openai: empty audio payload")
	}

	return &tts.Clip{
		Audio:             audio,
		Format:            "mp3",
		EstimatedDuration: tts.EstimateDuration(text),
	}, nil
}
