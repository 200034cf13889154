package server_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hearthvoice/hearth/pkg/provider/tts"
	"github.com/hearthvoice/hearth/pkg/provider/tts/server"
)

func newBackend(t *testing.T, handler http.HandlerFunc) *server.Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	p, err := server.New(srv.URL)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	return p
}

func TestNew_EmptyBaseURL(t *testing.T) {
	t.Parallel()
	if _, err := server.New(""); err == nil {
		t.Fatal("empty base URL should be rejected")
	}
}

func TestSynthesize_DecodesClip(t *testing.T) {
	t.Parallel()
	audio := []byte("fake-mp3-bytes")
	p := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method should be POST, got %s", r.Method)
		}
		if r.URL.Path != "/api/voice/synthesize" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		q := r.URL.Query()
		if got := q.Get("message"); got != "hello there" {
			t.Errorf("message should be forwarded, got %q", got)
		}
		if got := q.Get("emotion"); got != "supportive" {
			t.Errorf("emotion should be forwarded, got %q", got)
		}
		if got := q.Get("session_id"); got != "s1" {
			t.Errorf("session_id should be forwarded, got %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"audio_data":         base64.StdEncoding.EncodeToString(audio),
			"audio_format":       "mp3",
			"estimated_duration": 2.5,
			"word_count":         2,
		})
	})

	clip, err := p.Synthesize(context.Background(), "hello there", tts.EmotionSupportive, "s1")
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if string(clip.Audio) != string(audio) {
		t.Errorf("audio bytes should round-trip base64, got %q", clip.Audio)
	}
	if clip.Format != "mp3" {
		t.Errorf("format should be mp3, got %q", clip.Format)
	}
	if clip.EstimatedDuration != 2500*time.Millisecond {
		t.Errorf("estimated duration should be 2.5s, got %v", clip.EstimatedDuration)
	}
}

func TestSynthesize_MissingEstimateFallsBackToWordCount(t *testing.T) {
	t.Parallel()
	p := newBackend(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"audio_data":   base64.StdEncoding.EncodeToString([]byte("x")),
			"audio_format": "mp3",
		})
	})

	// 360 words at 180 wpm comes to two minutes.
	text := ""
	for range 360 {
		text += "word "
	}
	clip, err := p.Synthesize(context.Background(), text, tts.EmotionCalm, "s1")
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if clip.EstimatedDuration != 2*time.Minute {
		t.Errorf("estimate should fall back to the word-count heuristic, got %v", clip.EstimatedDuration)
	}
}

func TestSynthesize_EmptyAudioIsAnError(t *testing.T) {
	t.Parallel()
	p := newBackend(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"audio_data":   "",
			"audio_format": "mp3",
		})
	})

	if _, err := p.Synthesize(context.Background(), "hello", tts.EmotionCalm, "s1"); err == nil {
		t.Fatal("empty audio payload should be an error")
	}
}

func TestSynthesize_HTTPErrorSurfaces(t *testing.T) {
	t.Parallel()
	p := newBackend(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	})

	if _, err := p.Synthesize(context.Background(), "hello", tts.EmotionCalm, "s1"); err == nil {
		t.Fatal("non-200 status should surface as an error")
	}
}

func TestEstimateDuration_MinimumOneSecond(t *testing.T) {
	t.Parallel()
	if got := tts.EstimateDuration("hi"); got != time.Second {
		t.Errorf("short text should estimate at least one second, got %v", got)
	}
	if got := tts.EstimateDuration(""); got != time.Second {
		t.Errorf("empty text should estimate one second, got %v", got)
	}
}
