// Package convo connects a session to the conversational backend over its
// websocket chat channel. Recognized user text goes out as chat messages;
// assistant replies come back and are handed to a reply handler.
package convo

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const writeTimeout = 10 * time.Second

// message is the chat channel's wire envelope in both directions.
type message struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Chat is a live websocket chat connection for one session.
type Chat struct {
	conn      *websocket.Conn
	sessionID string
}

// Dial opens the chat channel for sessionID against the backend at baseURL.
// The backend routes by session, so one connection serves the whole
// conversation.
func Dial(ctx context.Context, baseURL, sessionID string) (*Chat, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/" + sessionID

	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial chat channel: %w", err)
	}
	return &Chat{conn: conn, sessionID: sessionID}, nil
}

// OnUserText sends recognized user text as a chat message. Fallback text is
// sent like any other utterance; the assistant's prompt handles it.
func (c *Chat) OnUserText(ctx context.Context, text string, _ bool) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, c.conn, message{Type: "chat", Message: text}); err != nil {
		return fmt.Errorf("send chat message: %w", err)
	}
	return nil
}

// Listen reads assistant replies until ctx is cancelled or the connection
// drops, invoking onReply for each one. onReply may block; replies are
// delivered one at a time in arrival order.
func (c *Chat) Listen(ctx context.Context, onReply func(text string)) error {
	for {
		var msg message
		if err := wsjson.Read(ctx, c.conn, &msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read chat channel: %w", err)
		}
		if msg.Type != "response" {
			slog.Debug("ignoring chat frame", "type", msg.Type, "session_id", c.sessionID)
			continue
		}
		onReply(msg.Message)
	}
}

// Close shuts the chat channel down.
func (c *Chat) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "session closed")
}
