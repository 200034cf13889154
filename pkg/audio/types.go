// Package audio manages the microphone device session for the hearth voice
// client.
//
// The two primary abstractions are:
//
//   - [Device] — acquires the OS input device and returns a [Stream].
//   - [Stream] — an open microphone session delivering PCM frames, with an
//     input-level tap consumed by [LevelMonitor].
//
// The portaudio-backed implementation lives in this package ([Manager]); a
// scripted implementation for tests lives in audio/mock. The device session
// is the one OS-level resource in the client: every acquisition must have a
// matching, idempotent release reachable from every exit path.
package audio

// Device is the entry point for microphone access.
//
// Implementations must be safe for concurrent use.
type Device interface {
	// Open acquires the input device and returns an open [Stream]. Opening an
	// already-open device returns the existing stream. Open first requests the
	// preferred constraint set (16 kHz mono, low latency); if the runtime
	// rejects it, a minimal default-device request is attempted before the
	// call fails with an error wrapping [ErrDeviceUnavailable].
	Open() (Stream, error)

	// Close releases the device and all OS resources. It is idempotent: safe
	// to call when already closed, and safe to call more than once.
	Close() error
}

// Stream represents an open microphone session.
//
// A Stream is obtained from [Device.Open] and remains valid until the device
// is closed. Start and Stop bracket one recording; the stream itself stays
// open across recordings so the user is prompted for the device only once per
// conversation session.
type Stream interface {
	// Start begins delivering audio. ReadFrame may be called after Start
	// returns.
	Start() error

	// Stop halts audio delivery. A blocked ReadFrame returns an error shortly
	// after Stop. The stream may be started again.
	Stop() error

	// ReadFrame blocks until one frame of mono PCM samples is available and
	// returns a copy. Returns an error if the stream is stopped or the device
	// fails mid-capture.
	ReadFrame() ([]int16, error)

	// SampleRate reports the negotiated sample rate in Hz.
	SampleRate() int

	// Channels reports the channel count (1 for the preferred constraint set).
	Channels() int

	// Level reports the normalized amplitude in [0, 1] of the most recently
	// captured frame. It never blocks; before any frame has arrived it
	// reports 0.
	Level() float64

	// IsOpen reports whether the underlying device handle is still live. A
	// stream's frames must never be read after IsOpen returns false.
	IsOpen() bool
}
