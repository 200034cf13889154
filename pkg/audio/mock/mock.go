// Package mock provides in-memory mock implementations of the [audio.Device]
// and [audio.Stream] interfaces for use in unit tests.
//
// All mocks are safe for concurrent use. They record call counts so tests can
// assert on lifecycle behaviour, and expose exported fields the test can set
// to control return values.
//
// Typical usage:
//
//	stream := mock.NewStream(16000)
//	stream.QueueFrames([][]int16{{100, -100, 200}, {300, -300}})
//	dev := &mock.Device{OpenResult: stream}
//	got, err := dev.Open()
package mock

import (
	"errors"
	"sync"

	"github.com/hearthvoice/hearth/pkg/audio"
)

// ─── Device ──────────────────────────────────────────────────────────────────

// Device is a mock implementation of [audio.Device].
type Device struct {
	mu sync.Mutex

	// OpenResult is returned by [Device.Open] when OpenError is nil.
	OpenResult *Stream

	// OpenError is returned by [Device.Open] when non-nil.
	OpenError error

	// CloseError is returned by [Device.Close].
	CloseError error

	// CallCountOpen records how many times Open was called.
	CallCountOpen int

	// CallCountClose records how many times Close was called.
	CallCountClose int
}

var _ audio.Device = (*Device)(nil)

// Open returns the configured stream or error.
func (d *Device) Open() (audio.Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.CallCountOpen++
	if d.OpenError != nil {
		return nil, d.OpenError
	}
	return d.OpenResult, nil
}

// Close marks the configured stream closed and returns CloseError.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.CallCountClose++
	if d.OpenResult != nil {
		d.OpenResult.setOpen(false)
	}
	return d.CloseError
}

// ─── Stream ──────────────────────────────────────────────────────────────────

// ErrStreamStopped is returned by [Stream.ReadFrame] once the stream has been
// stopped and all queued frames are consumed, mirroring how a real device read
// unblocks with an error after Stop.
var ErrStreamStopped = errors.New("mock: stream stopped")

// Stream is a mock implementation of [audio.Stream] fed from a frame queue.
type Stream struct {
	sampleRate int

	// ReadError, when set, is returned by the next ReadFrame call. Used to
	// simulate a mid-recording device fault.
	ReadError error

	// CallCountStart and CallCountStop record lifecycle calls.
	CallCountStart int
	CallCountStop  int

	mu      sync.Mutex
	frames  chan []int16
	stopped chan struct{}
	open    bool
	level   float64
}

var _ audio.Stream = (*Stream)(nil)

// NewStream creates an open mock stream with the given sample rate.
func NewStream(sampleRate int) *Stream {
	return &Stream{
		sampleRate: sampleRate,
		frames:     make(chan []int16, 64),
		stopped:    make(chan struct{}),
		open:       true,
	}
}

// QueueFrames appends frames for ReadFrame to return in order.
func (s *Stream) QueueFrames(frames [][]int16) {
	for _, f := range frames {
		s.frames <- f
	}
}

// SetLevel sets the value reported by Level.
func (s *Stream) SetLevel(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.level = v
}

// Start records the call.
func (s *Stream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountStart++
	if s.stopped == nil {
		s.stopped = make(chan struct{})
	}
	return nil
}

// Stop unblocks any pending ReadFrame.
func (s *Stream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountStop++
	if s.stopped != nil {
		close(s.stopped)
		s.stopped = nil
	}
	return nil
}

// ReadFrame returns the next queued frame, the configured ReadError, or
// [ErrStreamStopped] once Stop has been called and the queue is drained.
func (s *Stream) ReadFrame() ([]int16, error) {
	s.mu.Lock()
	if s.ReadError != nil {
		err := s.ReadError
		s.ReadError = nil
		s.mu.Unlock()
		return nil, err
	}
	stopped := s.stopped
	s.mu.Unlock()

	if stopped == nil {
		// Already stopped: drain remaining frames, then fail.
		select {
		case f := <-s.frames:
			return f, nil
		default:
			return nil, ErrStreamStopped
		}
	}

	select {
	case f := <-s.frames:
		return f, nil
	case <-stopped:
		select {
		case f := <-s.frames:
			return f, nil
		default:
			return nil, ErrStreamStopped
		}
	}
}

// SampleRate reports the configured sample rate.
func (s *Stream) SampleRate() int { return s.sampleRate }

// Channels reports mono.
func (s *Stream) Channels() int { return 1 }

// Level reports the value set by SetLevel.
func (s *Stream) Level() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level
}

// IsOpen reports whether the stream is open.
func (s *Stream) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

func (s *Stream) setOpen(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = v
}
