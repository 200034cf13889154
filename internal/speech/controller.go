// Package speech turns assistant replies into audible speech.
//
// The controller calls the synthesis provider, decodes the returned clip, and
// plays it, resolving only when playback has finished — or immediately on any
// failure, since downstream scheduling depends on forward progress. A failed
// synthesis or playback never surfaces as an error to the conversation: the
// reply is simply not spoken.
package speech

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hearthvoice/hearth/internal/observe"
	"github.com/hearthvoice/hearth/pkg/provider/tts"
)

// Option is a functional option for configuring a Controller.
type Option func(*Controller)

// WithMetrics attaches metric instruments. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithCompletionListener registers the callback invoked after every Speak
// call resolves, successful or not. The auto-listen scheduler hangs off it.
func WithCompletionListener(fn func()) Option {
	return func(c *Controller) { c.onComplete = fn }
}

// Controller owns the synthesis-and-playback half of the voice loop. At most
// one speech job is active at a time; overlapping Speak calls serialise, and
// in-flight playback is never interrupted.
type Controller struct {
	provider   tts.Provider
	player     Player
	onComplete func()
	metrics    *observe.Metrics

	// jobMu serialises speech jobs end to end.
	jobMu sync.Mutex

	mu       sync.Mutex
	speaking bool
}

// New constructs a Controller around a synthesis provider and a player.
func New(provider tts.Provider, player Player, opts ...Option) *Controller {
	c := &Controller{provider: provider, player: player}
	for _, o := range opts {
		o(c)
	}
	if c.metrics == nil {
		c.metrics = observe.DefaultMetrics()
	}
	return c
}

// Speaking reports whether a speech job is active. It is the race guard
// consulted by the auto-listen scheduler at fire time.
func (c *Controller) Speaking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speaking
}

// Speak synthesizes text with the given emotion and plays it, returning once
// playback has audibly finished or any step has failed. It never returns an
// error: synthesis and playback failures are logged, playback is skipped, and
// the completion listener still fires so the conversation cannot stall.
func (c *Controller) Speak(ctx context.Context, text string, emotion tts.Emotion, sessionID string) {
	c.jobMu.Lock()
	defer c.jobMu.Unlock()

	c.setSpeaking(true)
	defer func() {
		c.setSpeaking(false)
		if c.onComplete != nil {
			c.onComplete()
		}
	}()

	if !emotion.IsValid() {
		emotion = tts.EmotionCalm
	}

	start := time.Now()
	clip, err := c.provider.Synthesize(ctx, text, emotion, sessionID)
	c.metrics.TTSDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		slog.Warn("synthesis unavailable, skipping playback", "err", err, "session_id", sessionID)
		c.metrics.RecordProviderRequest(ctx, "tts", "error")
		return
	}
	c.metrics.RecordProviderRequest(ctx, "tts", "ok")

	playStart := time.Now()
	if err := c.player.Play(ctx, clip.Audio, clip.Format); err != nil {
		slog.Warn("playback failed", "err", err, "format", clip.Format, "session_id", sessionID)
	}
	c.metrics.PlaybackDuration.Record(ctx, time.Since(playStart).Seconds())
}

func (c *Controller) setSpeaking(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.speaking = v
}
