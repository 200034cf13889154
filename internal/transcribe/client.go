// Package transcribe converts captured audio into conversational text.
//
// The client wraps an stt.Provider and normalizes every outcome into a
// [Result]: recognized text passes through, while "no speech detected" and
// transport failures each become a fixed clarification sentence flagged as a
// fallback. Nothing here returns an error to the conversation — availability
// of the conversational flow is prioritised over transcription correctness.
//
// Transient failures are deliberately not retried; the fallback sentence is
// substituted immediately so the reply latency stays bounded.
package transcribe

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/hearthvoice/hearth/internal/observe"
	"github.com/hearthvoice/hearth/pkg/provider/stt"
)

const (
	// FallbackUnclear is substituted when the service heard nothing usable.
	FallbackUnclear = "I'm listening but couldn't hear you clearly. Could you please repeat that?"

	// FallbackUnavailable is substituted when the service could not be
	// reached or refused the request.
	FallbackUnavailable = "I couldn't understand the audio. Could you please try speaking again or type your message?"
)

// Result is the normalized outcome of one transcription. It is produced
// exactly once per captured payload and consumed exactly once by the
// conversation.
type Result struct {
	// Text is the recognized speech, or a fallback sentence.
	Text string

	// IsFallback marks Text as a substituted clarification rather than the
	// user's words.
	IsFallback bool
}

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithMetrics attaches metric instruments. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// Client normalizes provider outcomes into conversational results.
type Client struct {
	provider stt.Provider
	metrics  *observe.Metrics
}

// New constructs a Client around provider.
func New(provider stt.Provider, opts ...Option) *Client {
	c := &Client{provider: provider}
	for _, o := range opts {
		o(c)
	}
	if c.metrics == nil {
		c.metrics = observe.DefaultMetrics()
	}
	return c
}

// Transcribe submits the payload and always returns a usable [Result]. The
// provider is called exactly once; failures are converted, never retried.
func (c *Client) Transcribe(ctx context.Context, payload stt.Payload, sessionID string) Result {
	start := time.Now()
	text, err := c.provider.Transcribe(ctx, payload, sessionID)
	c.metrics.STTDuration.Record(ctx, time.Since(start).Seconds())

	switch {
	case err != nil:
		slog.Warn("transcription unavailable, substituting fallback", "err", err, "session_id", sessionID)
		c.metrics.RecordProviderRequest(ctx, "stt", "error")
		c.metrics.TranscriptionFallbacks.Add(ctx, 1,
			metric.WithAttributes(attribute.String("reason", "unavailable")))
		return Result{Text: FallbackUnavailable, IsFallback: true}

	case text == "":
		slog.Info("no speech recognized, substituting fallback", "session_id", sessionID)
		c.metrics.RecordProviderRequest(ctx, "stt", "ok")
		c.metrics.TranscriptionFallbacks.Add(ctx, 1,
			metric.WithAttributes(attribute.String("reason", "empty")))
		return Result{Text: FallbackUnclear, IsFallback: true}

	default:
		slog.Debug("transcription complete", "chars", len(text), "session_id", sessionID)
		c.metrics.RecordProviderRequest(ctx, "stt", "ok")
		return Result{Text: text}
	}
}
