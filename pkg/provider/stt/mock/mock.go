// Package mock provides an in-memory [stt.Provider] for unit tests.
//
// The mock records every call so tests can assert on payloads and call
// counts, and exposes exported fields that control return values.
package mock

import (
	"context"
	"sync"

	"github.com/hearthvoice/hearth/pkg/provider/stt"
)

// Call records the arguments of one Transcribe invocation.
type Call struct {
	Payload   stt.Payload
	SessionID string
}

// Provider is a mock implementation of [stt.Provider].
type Provider struct {
	mu sync.Mutex

	// TranscribeResult is returned by Transcribe when TranscribeError is nil.
	TranscribeResult string

	// TranscribeError is returned by Transcribe when non-nil.
	TranscribeError error

	// Calls holds every recorded invocation in order.
	Calls []Call
}

var _ stt.Provider = (*Provider)(nil)

// Transcribe records the call and returns the configured result.
func (p *Provider) Transcribe(_ context.Context, payload stt.Payload, sessionID string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, Call{Payload: payload, SessionID: sessionID})
	if p.TranscribeError != nil {
		return "", p.TranscribeError
	}
	return p.TranscribeResult, nil
}

// CallCount reports how many times Transcribe was invoked.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}
