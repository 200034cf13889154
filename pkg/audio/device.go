package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"
)

// ErrDeviceUnavailable is returned (wrapped) when the microphone cannot be
// acquired with either the preferred or the minimal constraint set. It is
// fatal for the recording attempt: the user must re-arm explicitly.
var ErrDeviceUnavailable = errors.New("audio: input device unavailable")

const (
	// preferredSampleRate is 16 kHz — the sweet spot for speech recognition
	// and the rate the transcription backends expect.
	preferredSampleRate = 16000

	// framesPerBuffer is the samples per ReadFrame at 16 kHz (20 ms).
	framesPerBuffer = 320
)

// Manager is the portaudio-backed [Device]. It owns the input stream handle
// exclusively; the capture controller and level monitor only ever borrow it.
//
// Manager is safe for concurrent use.
type Manager struct {
	mu      sync.Mutex
	session *Session
}

var _ Device = (*Manager)(nil)

// NewManager returns a Manager. portaudio.Initialize must have been called
// by the process before Open is used.
func NewManager() *Manager {
	return &Manager{}
}

// Open acquires the default input device. The preferred constraint set (16 kHz
// mono, low latency) is tried first; on rejection a minimal default-device
// request is attempted before giving up. If a session is already open it is
// returned unchanged.
func (m *Manager) Open() (Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil && m.session.IsOpen() {
		return m.session, nil
	}

	s, err := openPreferred()
	if err != nil {
		slog.Warn("preferred audio constraints rejected, retrying with defaults", "err", err)
		s, err = openMinimal()
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	m.session = s
	slog.Info("microphone session opened", "sample_rate", s.sampleRate, "channels", s.channels)
	return s, nil
}

// Close releases the device session and all OS resources. Idempotent.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return nil
	}
	err := m.session.close()
	m.session = nil
	return err
}

func openPreferred() (*Session, error) {
	in, err := portaudio.DefaultInputDevice()
	if err != nil {
		return nil, fmt.Errorf("no input device: %w", err)
	}

	params := portaudio.LowLatencyParameters(in, nil)
	params.Input.Channels = 1
	params.Output.Device = nil
	params.Output.Channels = 0
	params.SampleRate = preferredSampleRate
	params.FramesPerBuffer = framesPerBuffer

	buf := make([]int16, framesPerBuffer)
	stream, err := portaudio.OpenStream(params, buf)
	if err != nil {
		return nil, fmt.Errorf("open stream (preferred): %w", err)
	}
	return newSession(stream, buf, preferredSampleRate, 1), nil
}

func openMinimal() (*Session, error) {
	buf := make([]int16, framesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(1, 0, preferredSampleRate, framesPerBuffer, buf)
	if err != nil {
		return nil, fmt.Errorf("open stream (minimal): %w", err)
	}
	return newSession(stream, buf, preferredSampleRate, 1), nil
}

// Session is an open portaudio input stream. It implements [Stream].
type Session struct {
	stream     *portaudio.Stream
	buf        []int16
	sampleRate int
	channels   int

	// level holds the math.Float64bits of the latest frame's RMS amplitude.
	level atomic.Uint64

	mu      sync.Mutex
	open    bool
	started bool
}

var _ Stream = (*Session)(nil)

func newSession(stream *portaudio.Stream, buf []int16, rate, channels int) *Session {
	return &Session{stream: stream, buf: buf, sampleRate: rate, channels: channels, open: true}
}

// Start begins audio delivery for one recording.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return fmt.Errorf("audio: start on closed session: %w", ErrDeviceUnavailable)
	}
	if s.started {
		return nil
	}
	if err := s.stream.Start(); err != nil {
		return fmt.Errorf("audio: start stream: %w", err)
	}
	s.started = true
	return nil
}

// Stop halts audio delivery; the stream stays open for the next recording.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open || !s.started {
		return nil
	}
	s.started = false
	if err := s.stream.Abort(); err != nil {
		return fmt.Errorf("audio: stop stream: %w", err)
	}
	return nil
}

// ReadFrame blocks until one frame is available and returns a copy. The
// session's level tap is refreshed as a side effect.
func (s *Session) ReadFrame() ([]int16, error) {
	if !s.IsOpen() {
		return nil, fmt.Errorf("audio: read on closed session: %w", ErrDeviceUnavailable)
	}
	if err := s.stream.Read(); err != nil {
		return nil, fmt.Errorf("audio: read frame: %w", err)
	}
	frame := make([]int16, len(s.buf))
	copy(frame, s.buf)
	s.level.Store(math.Float64bits(rms(frame)))
	return frame, nil
}

// SampleRate reports the session's sample rate in Hz.
func (s *Session) SampleRate() int { return s.sampleRate }

// Channels reports the session's channel count.
func (s *Session) Channels() int { return s.channels }

// Level reports the RMS amplitude of the latest frame, in [0, 1].
func (s *Session) Level() float64 {
	return math.Float64frombits(s.level.Load())
}

// IsOpen reports whether the OS handle is still live.
func (s *Session) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

func (s *Session) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return nil
	}
	s.open = false
	if s.started {
		s.started = false
		_ = s.stream.Abort()
	}
	if err := s.stream.Close(); err != nil {
		return fmt.Errorf("audio: close stream: %w", err)
	}
	slog.Debug("microphone session closed")
	return nil
}

// rms computes the normalized root-mean-square amplitude of a PCM16 frame.
func rms(frame []int16) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, s := range frame {
		f := float64(s) / 32768
		sum += f * f
	}
	return math.Sqrt(sum / float64(len(frame)))
}
