package convo_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/hearthvoice/hearth/internal/convo"
)

type frame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// chatBackend accepts one websocket per session and scripts the exchange.
type chatBackend struct {
	t        *testing.T
	received chan frame
	send     chan frame
	paths    chan string
}

func newChatBackend(t *testing.T) (*chatBackend, *httptest.Server) {
	t.Helper()
	b := &chatBackend{
		t:        t,
		received: make(chan frame, 8),
		send:     make(chan frame, 8),
		paths:    make(chan string, 1),
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.paths <- r.URL.Path
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("accept: %v", err)
			return
		}
		ctx := r.Context()
		go func() {
			for {
				var f frame
				if err := wsjson.Read(ctx, conn, &f); err != nil {
					return
				}
				b.received <- f
			}
		}()
		for f := range b.send {
			if err := wsjson.Write(ctx, conn, f); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(b.send) })
	return b, srv
}

func TestDial_UsesSessionPath(t *testing.T) {
	t.Parallel()
	b, srv := newChatBackend(t)

	chat, err := convo.Dial(context.Background(), srv.URL, "abc-123")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer chat.Close()

	select {
	case path := <-b.paths:
		if path != "/ws/abc-123" {
			t.Errorf("chat path should be /ws/abc-123, got %q", path)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("backend never saw the connection")
	}
}

func TestDial_BadURL(t *testing.T) {
	t.Parallel()
	if _, err := convo.Dial(context.Background(), "http://127.0.0.1:1", "s1"); err == nil {
		t.Fatal("unreachable backend should fail to dial")
	}
}

func TestOnUserText_SendsChatFrame(t *testing.T) {
	t.Parallel()
	b, srv := newChatBackend(t)

	chat, err := convo.Dial(context.Background(), srv.URL, "s1")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer chat.Close()

	if err := chat.OnUserText(context.Background(), "hello backend", false); err != nil {
		t.Fatalf("send: %v", err)
	}

	select {
	case f := <-b.received:
		if f.Type != "chat" {
			t.Errorf("frame type should be chat, got %q", f.Type)
		}
		if f.Message != "hello backend" {
			t.Errorf("message mismatch: %q", f.Message)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("backend never received the chat frame")
	}
}

func TestOnUserText_SkipsBlankText(t *testing.T) {
	t.Parallel()
	b, srv := newChatBackend(t)

	chat, err := convo.Dial(context.Background(), srv.URL, "s1")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer chat.Close()

	if err := chat.OnUserText(context.Background(), "   ", false); err != nil {
		t.Fatalf("send: %v", err)
	}
	select {
	case f := <-b.received:
		t.Fatalf("blank text must not be sent, got %+v", f)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestListen_DeliversResponsesInOrder(t *testing.T) {
	t.Parallel()
	b, srv := newChatBackend(t)

	chat, err := convo.Dial(context.Background(), srv.URL, "s1")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer chat.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	replies := make(chan string, 8)
	done := make(chan error, 1)
	go func() {
		done <- chat.Listen(ctx, func(text string) { replies <- text })
	}()

	b.send <- frame{Type: "status", Message: "ignored"}
	b.send <- frame{Type: "response", Message: "first"}
	b.send <- frame{Type: "response", Message: "second"}

	for _, want := range []string{"first", "second"} {
		select {
		case got := <-replies:
			if got != want {
				t.Errorf("reply order: got %q, want %q", got, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("reply %q never arrived", want)
		}
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) && !strings.Contains(err.Error(), "closed") {
			t.Errorf("listen should end with cancellation, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("listen never returned after cancel")
	}
}
