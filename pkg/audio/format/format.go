// Package format negotiates and implements the audio encodings a recording
// may be captured in.
//
// Negotiation walks a strictly ordered candidate list and commits to the
// first encoding the runtime's [Registry] supports. The choice is made once
// per recording session and is immutable mid-recording: chunks produced after
// negotiation are always fragments of the same container.
//
// Encoders follow the browser-recorder chunk model: each Flush returns the
// container bytes produced since the previous Flush, and concatenating every
// chunk in arrival order yields the complete payload.
package format

import (
	"errors"
	"fmt"
	"sync"
)

// ID identifies an audio encoding by its MIME type.
type ID string

const (
	WAV      ID = "audio/wav"
	OpusWebM ID = "audio/webm;codecs=opus"
	WebM     ID = "audio/webm"
	MP3      ID = "audio/mpeg"
	OpusOgg  ID = "audio/ogg;codecs=opus"
	Ogg      ID = "audio/ogg"
)

// Preferred is the fixed candidate order for negotiation: uncompressed WAV
// first, then the compressed containers.
var Preferred = []ID{WAV, OpusWebM, WebM, MP3, OpusOgg, Ogg}

// ErrNoSupportedFormat is returned by [Negotiate] when the registry supports
// none of the candidates. It is fatal for the recording attempt.
var ErrNoSupportedFormat = errors.New("format: no supported encoding among candidates")

// Ext returns the file extension conventionally paired with the encoding,
// used when tagging uploaded payloads.
func (id ID) Ext() string {
	switch id {
	case WAV:
		return ".wav"
	case OpusWebM, WebM:
		return ".webm"
	case MP3:
		return ".mp3"
	case OpusOgg, Ogg:
		return ".ogg"
	default:
		return ".bin"
	}
}

// Encoder turns PCM frames into container chunks for one recording. Encoders
// are not safe for concurrent use; the capture controller is their sole
// caller.
type Encoder interface {
	// Encode buffers one frame of mono PCM samples.
	Encode(frame []int16) error

	// Flush returns the container bytes produced since the last Flush (or
	// since creation). May return an empty slice when no complete output is
	// pending.
	Flush() ([]byte, error)

	// Close finalises the container and returns any trailing bytes. The
	// encoder is unusable afterwards.
	Close() ([]byte, error)
}

// NewEncoderFunc constructs an [Encoder] for the given input audio shape.
type NewEncoderFunc func(sampleRate, channels int) (Encoder, error)

// Registry records which encodings the runtime can produce. It plays the role
// of the browser's isTypeSupported probe.
//
// Registry is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	encoders map[ID]NewEncoderFunc
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{encoders: make(map[ID]NewEncoderFunc)}
}

// Register makes id available, replacing any previous registration.
func (r *Registry) Register(id ID, fn NewEncoderFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.encoders[id] = fn
}

// Supported reports whether id has a registered encoder.
func (r *Registry) Supported(id ID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.encoders[id]
	return ok
}

// New constructs an encoder for id.
func (r *Registry) New(id ID, sampleRate, channels int) (Encoder, error) {
	r.mu.RLock()
	fn, ok := r.encoders[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("format: %q not registered: %w", id, ErrNoSupportedFormat)
	}
	return fn(sampleRate, channels)
}

// Negotiate returns the first candidate the registry supports. The candidate
// order is strict, so ties are impossible.
func Negotiate(r *Registry, candidates []ID) (ID, error) {
	for _, id := range candidates {
		if r.Supported(id) {
			return id, nil
		}
	}
	return "", ErrNoSupportedFormat
}

// NativeRegistry returns the registry for this runtime: WAV (always
// encodable) and Opus-in-Ogg via libopus.
func NativeRegistry() *Registry {
	r := NewRegistry()
	r.Register(WAV, newWAVEncoder)
	r.Register(OpusOgg, newOggOpusEncoder)
	return r
}
