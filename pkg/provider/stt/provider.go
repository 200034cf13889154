// Package stt defines the Provider interface for Speech-to-Text backends.
//
// An STT provider wraps a transcription service and exposes a uniform
// batch-transcription call: one assembled audio payload in, recognized text
// out. Two implementations ship with the client — stt/server talks to the
// hearth backend's transcription endpoint, stt/openai calls OpenAI Whisper
// directly — plus stt/mock for tests.
//
// Providers report transport and service failures as errors and "no speech
// detected" as empty text; the conversational fallback policy (substituting a
// clarification sentence) belongs to the transcribe client layered above, not
// to providers.
//
// Implementations must be safe for concurrent use.
package stt

import "context"

// Payload is one assembled recording ready for transcription.
type Payload struct {
	// Data is the complete encoded audio: every captured chunk concatenated
	// in arrival order.
	Data []byte

	// MIMEType tags the negotiated encoding (e.g., "audio/wav").
	MIMEType string

	// Filename carries the extension services use to sniff the container
	// (e.g., "recording.wav").
	Filename string
}

// Provider is the abstraction over any STT backend.
type Provider interface {
	// Transcribe submits the payload for recognition and returns the
	// recognized text. An empty string (with nil error) means the service
	// found no usable speech. A non-nil error means the service could not be
	// reached or refused the request.
	Transcribe(ctx context.Context, payload Payload, sessionID string) (string, error)
}
