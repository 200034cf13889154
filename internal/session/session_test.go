package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hearthvoice/hearth/internal/session"
	"github.com/hearthvoice/hearth/internal/transcribe"
	audiomock "github.com/hearthvoice/hearth/pkg/audio/mock"
	sttmock "github.com/hearthvoice/hearth/pkg/provider/stt/mock"
	"github.com/hearthvoice/hearth/pkg/provider/tts"
	ttsmock "github.com/hearthvoice/hearth/pkg/provider/tts/mock"
)

type recorded struct {
	text       string
	isFallback bool
}

// silentPlayer satisfies speech.Player without touching audio hardware.
type silentPlayer struct {
	mu    sync.Mutex
	plays int
}

func (p *silentPlayer) Play(context.Context, []byte, string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.plays++
	return nil
}

func (p *silentPlayer) playCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.plays
}

type fixture struct {
	sess   *session.Session
	stream *audiomock.Stream
	dev    *audiomock.Device
	stt    *sttmock.Provider
	tts    *ttsmock.Provider
	player *silentPlayer
	texts  chan recorded
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		stream: audiomock.NewStream(16000),
		stt:    &sttmock.Provider{TranscribeResult: "hello there"},
		tts:    &ttsmock.Provider{SynthesizeResult: &tts.Clip{Audio: []byte("x"), Format: "mp3"}},
		player: &silentPlayer{},
		texts:  make(chan recorded, 4),
	}
	f.dev = &audiomock.Device{OpenResult: f.stream}
	f.sess = session.New(session.Config{
		ID:     "test-session",
		Device: f.dev,
		STT:    f.stt,
		TTS:    f.tts,
		Player: f.player,
		Consumer: session.ConsumerFunc(func(_ context.Context, text string, isFallback bool) error {
			f.texts <- recorded{text: text, isFallback: isFallback}
			return nil
		}),
		FlushIntervalMs: 20,
		MinPayloadBytes: 1,
	})
	t.Cleanup(func() { f.sess.Close() })
	return f
}

func (f *fixture) record(t *testing.T, frames [][]int16) recorded {
	t.Helper()
	if err := f.sess.ToggleRecording(); err != nil {
		t.Fatalf("start recording: %v", err)
	}
	if !f.sess.Recording() {
		t.Fatal("session should report recording after toggle")
	}
	f.stream.QueueFrames(frames)
	time.Sleep(60 * time.Millisecond)
	if err := f.sess.ToggleRecording(); err != nil {
		t.Fatalf("stop recording: %v", err)
	}

	select {
	case r := <-f.texts:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("consumer never received text")
		return recorded{}
	}
}

func TestSession_RecordTranscribeDeliver(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	got := f.record(t, [][]int16{{100, -100, 200, -200}})
	if got.text != "hello there" {
		t.Errorf("consumer should receive the transcription, got %q", got.text)
	}
	if got.isFallback {
		t.Error("recognized text must not be flagged as fallback")
	}
	if f.stt.CallCount() != 1 {
		t.Errorf("stt provider should be called once, got %d", f.stt.CallCount())
	}
	if f.sess.Recording() {
		t.Error("session should be idle after the payload is delivered")
	}
}

func TestSession_TransportFailureDeliversFallback(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.stt.TranscribeError = errors.New("connection refused")

	got := f.record(t, [][]int16{{1, 2, 3, 4}})
	if got.text != transcribe.FallbackUnavailable {
		t.Errorf("transport failure should deliver the unavailable fallback, got %q", got.text)
	}
	if !got.isFallback {
		t.Error("fallback must be flagged for the consumer")
	}
}

func TestSession_HandleReplySpeaksWithDetectedEmotion(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.sess.HandleReply(context.Background(), "I'm sorry that sounds difficult.", "")

	if f.player.playCount() != 1 {
		t.Fatalf("reply should be played once, got %d", f.player.playCount())
	}
	calls := f.tts.Calls
	if len(calls) != 1 {
		t.Fatalf("expected one synthesize call, got %d", len(calls))
	}
	if calls[0].Emotion != tts.EmotionEmpathetic {
		t.Errorf("untagged reply should use detected emotion, got %q", calls[0].Emotion)
	}
	if calls[0].SessionID != "test-session" {
		t.Errorf("session ID should be forwarded, got %q", calls[0].SessionID)
	}
}

func TestSession_HandleReplyExplicitEmotionWins(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.sess.HandleReply(context.Background(), "I'm sorry about that.", tts.EmotionEncouraging)

	if got := f.tts.Calls[0].Emotion; got != tts.EmotionEncouraging {
		t.Errorf("explicit emotion tag should win over detection, got %q", got)
	}
}

func TestSession_HandleReplyIgnoresBlankText(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.sess.HandleReply(context.Background(), "   ", tts.EmotionCalm)
	if f.tts.CallCount() != 0 {
		t.Errorf("blank reply must not be synthesized, got %d calls", f.tts.CallCount())
	}
}

func TestSession_AutoListenToggle(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	if f.sess.AutoListenEnabled() {
		t.Error("auto-listen must start disabled")
	}
	f.sess.SetAutoListen(true)
	if !f.sess.AutoListenEnabled() {
		t.Error("auto-listen should be enabled after toggle")
	}
	f.sess.SetAutoListen(false)
	if f.sess.AutoListenEnabled() {
		t.Error("auto-listen should be disabled after second toggle")
	}
}

func TestSession_CloseReleasesDevice(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	if err := f.sess.ToggleRecording(); err != nil {
		t.Fatalf("start recording: %v", err)
	}
	if err := f.sess.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if f.dev.CallCountClose != 1 {
		t.Errorf("device should be closed once, got %d", f.dev.CallCountClose)
	}
	// The aborted recording is discarded.
	select {
	case r := <-f.texts:
		t.Fatalf("teardown must not deliver text, got %+v", r)
	case <-time.After(100 * time.Millisecond):
	}
	if err := f.sess.Close(); err != nil {
		t.Errorf("second close should be a no-op, got %v", err)
	}
}
