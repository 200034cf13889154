// Package mock provides an in-memory [tts.Provider] for unit tests.
package mock

import (
	"context"
	"sync"

	"github.com/hearthvoice/hearth/pkg/provider/tts"
)

// Call records the arguments of one Synthesize invocation.
type Call struct {
	Text      string
	Emotion   tts.Emotion
	SessionID string
}

// Provider is a mock implementation of [tts.Provider].
type Provider struct {
	mu sync.Mutex

	// SynthesizeResult is returned by Synthesize when SynthesizeError is nil.
	SynthesizeResult *tts.Clip

	// SynthesizeError is returned by Synthesize when non-nil.
	SynthesizeError error

	// Calls holds every recorded invocation in order.
	Calls []Call
}

var _ tts.Provider = (*Provider)(nil)

// Synthesize records the call and returns the configured result.
func (p *Provider) Synthesize(_ context.Context, text string, emotion tts.Emotion, sessionID string) (*tts.Clip, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, Call{Text: text, Emotion: emotion, SessionID: sessionID})
	if p.SynthesizeError != nil {
		return nil, p.SynthesizeError
	}
	return p.SynthesizeResult, nil
}

// CallCount reports how many times Synthesize was invoked.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}
