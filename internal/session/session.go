// Package session wires the voice pipeline into one conversation: capture →
// transcription → conversation consumer, and reply → synthesis → playback →
// auto-listen. It owns the lifetime of every component and guarantees that
// teardown cancels pending timers, aborts capture, and releases the
// microphone — nothing outlives the session.
package session

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/hearthvoice/hearth/internal/capture"
	"github.com/hearthvoice/hearth/internal/observe"
	"github.com/hearthvoice/hearth/internal/speech"
	"github.com/hearthvoice/hearth/internal/transcribe"
	"github.com/hearthvoice/hearth/pkg/audio"
	"github.com/hearthvoice/hearth/pkg/audio/format"
	"github.com/hearthvoice/hearth/pkg/provider/stt"
	"github.com/hearthvoice/hearth/pkg/provider/tts"
)

// Consumer receives recognized user text after each completed transcription.
// The surrounding conversation reacts by eventually calling
// [Session.HandleReply] with the assistant's answer.
type Consumer interface {
	OnUserText(ctx context.Context, text string, isFallback bool) error
}

// ConsumerFunc adapts a function to the [Consumer] interface.
type ConsumerFunc func(ctx context.Context, text string, isFallback bool) error

// OnUserText calls f.
func (f ConsumerFunc) OnUserText(ctx context.Context, text string, isFallback bool) error {
	return f(ctx, text, isFallback)
}

// Config assembles a Session's collaborators.
type Config struct {
	// ID identifies the conversation session towards the backend services.
	ID string

	// Device is the microphone device manager.
	Device audio.Device

	// Registry lists the encodings this runtime can record in. Defaults to
	// [format.NativeRegistry].
	Registry *format.Registry

	// STT and TTS are the transcription and synthesis backends.
	STT stt.Provider
	TTS tts.Provider

	// Player renders synthesized clips. Defaults to [speech.NewBeepPlayer].
	Player speech.Player

	// Consumer receives recognized user text.
	Consumer Consumer

	// MaxDuration, FlushInterval, and MinPayloadBytes tune the capture
	// controller; zero values keep its defaults.
	MaxDuration     int
	FlushIntervalMs int
	MinPayloadBytes int

	// AutoListenEnabled starts the session with auto-listen on.
	AutoListenEnabled bool

	// OnElapsed, OnLevel, and OnNotice are passive UI bindings. Any may be
	// nil.
	OnElapsed func(seconds int)
	OnLevel   func(amplitude float64, q audio.Quality)
	OnNotice  func(msg string)

	// Metrics defaults to [observe.DefaultMetrics].
	Metrics *observe.Metrics
}

// Session is one voice-mediated conversation.
type Session struct {
	id          string
	capture     *capture.Controller
	transcriber *transcribe.Client
	speech      *speech.Controller
	auto        *AutoListen
	consumer    Consumer

	ctx    context.Context
	cancel context.CancelFunc
}

// New wires a Session from cfg.
func New(cfg Config) *Session {
	if cfg.Registry == nil {
		cfg.Registry = format.NativeRegistry()
	}
	if cfg.Player == nil {
		cfg.Player = speech.NewBeepPlayer()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{id: cfg.ID, consumer: cfg.Consumer, ctx: ctx, cancel: cancel}

	s.transcriber = transcribe.New(cfg.STT, transcribe.WithMetrics(cfg.Metrics))

	captureOpts := []capture.Option{
		capture.WithMetrics(cfg.Metrics),
		capture.WithElapsedListener(cfg.OnElapsed),
		capture.WithLevelListener(cfg.OnLevel),
		capture.WithNoticeListener(cfg.OnNotice),
	}
	if cfg.MaxDuration > 0 {
		captureOpts = append(captureOpts, capture.WithMaxDuration(time.Duration(cfg.MaxDuration)*time.Second))
	}
	if cfg.FlushIntervalMs > 0 {
		captureOpts = append(captureOpts, capture.WithFlushInterval(time.Duration(cfg.FlushIntervalMs)*time.Millisecond))
	}
	if cfg.MinPayloadBytes > 0 {
		captureOpts = append(captureOpts, capture.WithMinPayloadBytes(cfg.MinPayloadBytes))
	}
	s.capture = capture.New(cfg.Device, cfg.Registry, s.handlePayload, captureOpts...)

	s.auto = NewAutoListen(s.rearm, s.busy, cfg.Metrics)
	s.auto.SetEnabled(cfg.AutoListenEnabled)

	s.speech = speech.New(cfg.TTS, cfg.Player,
		speech.WithMetrics(cfg.Metrics),
		speech.WithCompletionListener(s.auto.OnPlaybackComplete),
	)

	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Recording reports whether a capture session is active.
func (s *Session) Recording() bool { return s.capture.Busy() }

// ToggleRecording arms capture when idle and stops it when recording. Manual
// action always cancels a pending auto-listen re-arm.
func (s *Session) ToggleRecording() error {
	s.auto.Cancel()
	if s.capture.Busy() {
		s.capture.Stop()
		return nil
	}
	return s.capture.Arm()
}

// StopRecording stops the active recording, if any, and cancels any pending
// auto-listen re-arm.
func (s *Session) StopRecording() {
	s.auto.Cancel()
	s.capture.Stop()
}

// HandleReply speaks the assistant's reply. An empty emotion tag is filled in
// by keyword detection over the reply text. HandleReply blocks until playback
// resolves; the auto-listen scheduler is notified on every outcome.
func (s *Session) HandleReply(ctx context.Context, text string, emotion tts.Emotion) {
	if strings.TrimSpace(text) == "" {
		return
	}
	if emotion == "" {
		emotion = speech.DetectEmotion(text)
	}
	s.speech.Speak(ctx, text, emotion, s.id)
}

// SetAutoListen flips the auto-listen policy.
func (s *Session) SetAutoListen(enabled bool) {
	s.auto.SetEnabled(enabled)
}

// AutoListenEnabled reports the auto-listen policy.
func (s *Session) AutoListenEnabled() bool {
	return s.auto.Enabled()
}

// Close tears the session down: pending re-arms are cancelled, an active
// recording is aborted and discarded, and the microphone is released. Close
// is idempotent.
func (s *Session) Close() error {
	s.cancel()
	s.auto.Cancel()
	return s.capture.Close()
}

// handlePayload runs after each recording's stop transition has completed:
// transcribe, then hand the text to the conversation.
func (s *Session) handlePayload(p capture.Payload) {
	res := s.transcriber.Transcribe(s.ctx, stt.Payload{
		Data:     p.Data,
		MIMEType: string(p.Format),
		Filename: "recording" + p.Format.Ext(),
	}, s.id)

	if err := s.consumer.OnUserText(s.ctx, res.Text, res.IsFallback); err != nil {
		slog.Error("conversation consumer rejected text", "err", err, "session_id", s.id)
	}
}

// rearm is the auto-listen scheduler's re-arm hook.
func (s *Session) rearm() {
	if err := s.capture.Arm(); err != nil {
		slog.Warn("auto-listen re-arm failed", "err", err, "session_id", s.id)
	}
}

// busy is the scheduler's fire-time race guard: a live recording or speech
// job suppresses the re-arm.
func (s *Session) busy() bool {
	return s.capture.Busy() || s.speech.Speaking()
}
