package server_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hearthvoice/hearth/pkg/provider/stt"
	"github.com/hearthvoice/hearth/pkg/provider/stt/server"
)

func newBackend(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *server.Provider) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	p, err := server.New(srv.URL)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	return srv, p
}

func TestNew_EmptyBaseURL(t *testing.T) {
	t.Parallel()
	if _, err := server.New(""); err == nil {
		t.Fatal("empty base URL should be rejected")
	}
}

func TestTranscribe_UploadsMultipartAndReturnsText(t *testing.T) {
	t.Parallel()
	_, p := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method should be POST, got %s", r.Method)
		}
		if r.URL.Path != "/api/voice/transcribe" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("session_id"); got != "s1" {
			t.Errorf("session_id should be s1, got %q", got)
		}

		file, hdr, err := r.FormFile("audio_file")
		if err != nil {
			t.Errorf("form file audio_file: %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		if hdr.Filename != "recording.wav" {
			t.Errorf("filename should be recording.wav, got %q", hdr.Filename)
		}
		if ct := hdr.Header.Get("Content-Type"); ct != "audio/wav" {
			t.Errorf("part content type should be audio/wav, got %q", ct)
		}
		data, _ := io.ReadAll(file)
		if string(data) != "fake-wav-bytes" {
			t.Errorf("uploaded bytes mismatch: %q", data)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"transcription": "  hello world  ",
			"session_id":    "s1",
			"status":        "success",
		})
	})

	got, err := p.Transcribe(context.Background(), stt.Payload{
		Data:     []byte("fake-wav-bytes"),
		MIMEType: "audio/wav",
		Filename: "recording.wav",
	}, "s1")
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if got != "hello world" {
		t.Errorf("text should be trimmed, got %q", got)
	}
}

func TestTranscribe_NoAudioDataMeansEmptyText(t *testing.T) {
	t.Parallel()
	for _, status := range []string{"no_audio_data", "fallback"} {
		_, p := newBackend(t, func(w http.ResponseWriter, _ *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"transcription": "ignored",
				"status":        status,
			})
		})

		got, err := p.Transcribe(context.Background(), stt.Payload{Data: []byte("x")}, "s1")
		if err != nil {
			t.Fatalf("status %q should not be an error, got %v", status, err)
		}
		if got != "" {
			t.Errorf("status %q should yield empty text, got %q", status, got)
		}
	}
}

func TestTranscribe_HTTPErrorSurfaces(t *testing.T) {
	t.Parallel()
	_, p := newBackend(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	if _, err := p.Transcribe(context.Background(), stt.Payload{Data: []byte("x")}, "s1"); err == nil {
		t.Fatal("non-200 status should surface as an error")
	}
}

func TestTranscribe_ContextCancellation(t *testing.T) {
	t.Parallel()
	_, p := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Transcribe(ctx, stt.Payload{Data: []byte("x")}, "s1"); err == nil {
		t.Fatal("cancelled context should surface as an error")
	}
}
