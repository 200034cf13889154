// Package capture implements the recording state machine at the heart of the
// hearth voice client.
//
// The controller arms and stops microphone recordings, enforces the maximum
// duration cap, collects encoded chunks on a periodic flush, and hands each
// assembled payload to its consumer after the stop transition completes. All
// device callbacks and timers mutate state only through the controller's
// transition paths, and at most one recording session is active at any
// instant.
//
// Failure semantics: a device acquisition failure is fatal for the attempt
// (the user must re-arm explicitly); a fault mid-recording is recovered by
// forcing a stop-and-discard rather than crashing the conversation.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/hearthvoice/hearth/internal/observe"
	"github.com/hearthvoice/hearth/pkg/audio"
	"github.com/hearthvoice/hearth/pkg/audio/format"
)

// ErrBusy is returned by Arm when a recording session is already active.
var ErrBusy = errors.New("capture: a recording is already active")

// ErrClosed is returned by Arm after the controller has been torn down.
var ErrClosed = errors.New("capture: controller is closed")

const (
	defaultMaxDuration   = 60 * time.Second
	defaultFlushInterval = 250 * time.Millisecond
	defaultMinPayload    = 100
	defaultElapsedTick   = time.Second
)

// Payload is one assembled recording ready for transcription.
type Payload struct {
	// Data is every captured chunk concatenated in arrival order.
	Data []byte

	// Format is the encoding negotiated for the recording session.
	Format format.ID

	// Duration is the wall-clock recording length.
	Duration time.Duration
}

// Option is a functional option for configuring a Controller.
type Option func(*Controller)

// WithMaxDuration overrides the 60-second recording cap.
func WithMaxDuration(d time.Duration) Option {
	return func(c *Controller) { c.maxDuration = d }
}

// WithFlushInterval overrides the 250 ms chunk-flush period.
func WithFlushInterval(d time.Duration) Option {
	return func(c *Controller) { c.flushInterval = d }
}

// WithMinPayloadBytes overrides the silence threshold: assembled payloads
// below it are dropped without transcription.
func WithMinPayloadBytes(n int) Option {
	return func(c *Controller) { c.minPayload = n }
}

// WithCandidates overrides the format negotiation candidate list.
func WithCandidates(ids []format.ID) Option {
	return func(c *Controller) { c.candidates = ids }
}

// WithStateListener registers a callback invoked on every state transition.
// The callback must not call back into the Controller.
func WithStateListener(fn func(State)) Option {
	return func(c *Controller) { c.onState = fn }
}

// WithElapsedListener registers a callback receiving the elapsed-seconds
// counter once per second while recording.
func WithElapsedListener(fn func(seconds int)) Option {
	return func(c *Controller) { c.onElapsed = fn }
}

// WithNoticeListener registers a callback for user-visible status messages
// (device failures, forced stops). Never invoked for silent discards.
func WithNoticeListener(fn func(msg string)) Option {
	return func(c *Controller) { c.onNotice = fn }
}

// WithLevelListener registers a callback for input-level telemetry, sampled
// on the level monitor's loop only while a recording is active.
func WithLevelListener(fn func(amplitude float64, q audio.Quality)) Option {
	return func(c *Controller) { c.onLevel = fn }
}

// WithMetrics attaches metric instruments. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// withElapsedTick shortens the duration-counter period in tests.
func withElapsedTick(d time.Duration) Option {
	return func(c *Controller) { c.elapsedTick = d }
}

// Controller is the capture state machine. It is safe for concurrent use;
// exclusion between recordings is achieved entirely through the
// single-active-session invariant.
type Controller struct {
	dev        audio.Device
	reg        *format.Registry
	candidates []format.ID
	onPayload  func(Payload)

	maxDuration   time.Duration
	flushInterval time.Duration
	elapsedTick   time.Duration
	minPayload    int

	onState   func(State)
	onElapsed func(int)
	onNotice  func(string)
	onLevel   func(float64, audio.Quality)
	metrics   *observe.Metrics

	mu         sync.Mutex
	state      State
	negotiated format.ID
	active     *recordingSession
	stream     audio.Stream
	monitor    *audio.LevelMonitor
	closed     bool

	// wg tracks the run loop and payload handoff goroutines so Close can
	// synchronise with them.
	wg sync.WaitGroup
}

// New constructs a Controller. onPayload receives each assembled recording
// after the controller has returned to IDLE; it runs on its own goroutine and
// may block on network I/O.
func New(dev audio.Device, reg *format.Registry, onPayload func(Payload), opts ...Option) *Controller {
	c := &Controller{
		dev:           dev,
		reg:           reg,
		candidates:    format.Preferred,
		onPayload:     onPayload,
		maxDuration:   defaultMaxDuration,
		flushInterval: defaultFlushInterval,
		elapsedTick:   defaultElapsedTick,
		minPayload:    defaultMinPayload,
		state:         StateIdle,
	}
	for _, o := range opts {
		o(c)
	}
	if c.metrics == nil {
		c.metrics = observe.DefaultMetrics()
	}
	return c
}

// State reports the current machine state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Busy reports whether a recording session is active in any form. It is the
// race guard consulted by the auto-listen scheduler at fire time.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state != StateIdle
}

// Negotiated reports the encoding committed to for this conversation
// session, or "" before the first recording.
func (c *Controller) Negotiated() format.ID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.negotiated
}

// Arm opens the device if needed, negotiates the recording format, and starts
// recording. Only valid from IDLE; a concurrent session returns [ErrBusy].
func (c *Controller) Arm() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrBusy
	}
	c.setStateLocked(StateArmed)

	stream, err := c.dev.Open()
	if err != nil {
		c.failLocked("Microphone unavailable. Check permissions and try again.", err)
		c.mu.Unlock()
		return err
	}

	// Negotiation happens once per conversation session; the format is
	// immutable for every recording that follows.
	if c.negotiated == "" {
		id, err := format.Negotiate(c.reg, c.candidates)
		if err != nil {
			c.failLocked("No usable recording format on this device.", err)
			c.mu.Unlock()
			return err
		}
		c.negotiated = id
		slog.Info("recording format negotiated", "format", string(id))
	}

	enc, err := c.reg.New(c.negotiated, stream.SampleRate(), stream.Channels())
	if err != nil {
		c.failLocked("No usable recording format on this device.", err)
		c.mu.Unlock()
		return err
	}

	if err := stream.Start(); err != nil {
		c.failLocked("Microphone unavailable. Check permissions and try again.", err)
		c.mu.Unlock()
		return err
	}

	rs := newRecordingSession(c.negotiated, enc)
	c.active = rs
	c.stream = stream
	c.monitor = audio.NewLevelMonitor(stream, c.onLevel)
	c.monitor.Start()
	c.setStateLocked(StateRecording)
	c.metrics.ActiveRecordings.Add(context.Background(), 1)

	c.wg.Add(1)
	go c.run(rs, stream)

	c.mu.Unlock()
	slog.Debug("recording started", "format", string(rs.format))
	return nil
}

// Stop requests the stop transition for the active recording. Calling Stop
// with no active recording is a no-op.
func (c *Controller) Stop() {
	c.mu.Lock()
	rs := c.active
	c.mu.Unlock()
	if rs != nil {
		rs.signalStop(false)
	}
}

// Close tears down the controller: the active recording (if any) is stopped
// and discarded, all timers are cancelled, and the device session is
// released. Close is idempotent.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	rs := c.active
	c.mu.Unlock()

	if rs != nil {
		rs.signalStop(true)
	}
	c.wg.Wait()
	return c.dev.Close()
}

// run is the recording loop: it drains device frames into the encoder,
// flushes chunks on the flush ticker, advances the duration counter, and
// enforces the cap. It exits through finish, which always lands on IDLE.
func (c *Controller) run(rs *recordingSession, stream audio.Stream) {
	defer c.wg.Done()

	frames := make(chan []int16, 16)
	readErrs := make(chan error, 1)
	go func() {
		for {
			f, err := stream.ReadFrame()
			if err != nil {
				readErrs <- err
				return
			}
			select {
			case frames <- f:
			case <-rs.stop:
				return
			}
		}
	}()

	flush := time.NewTicker(c.flushInterval)
	defer flush.Stop()
	tick := time.NewTicker(c.elapsedTick)
	defer tick.Stop()

	capTicks := int(c.maxDuration / c.elapsedTick)

	for {
		select {
		case f := <-frames:
			if err := rs.enc.Encode(f); err != nil {
				c.fault(rs, fmt.Errorf("capture: encode: %w", err))
			}

		case <-flush.C:
			chunk, err := rs.enc.Flush()
			if err != nil {
				c.fault(rs, fmt.Errorf("capture: flush: %w", err))
				continue
			}
			if len(chunk) > 0 {
				rs.chunks = append(rs.chunks, chunk)
			}

		case <-tick.C:
			rs.elapsed++
			if c.onElapsed != nil {
				c.onElapsed(rs.elapsed)
			}
			if rs.elapsed >= capTicks {
				// The cap bounds memory and guarantees forward progress even
				// if the user never stops speaking.
				slog.Info("recording cap reached, forcing stop", "elapsed", rs.elapsed)
				rs.signalStop(false)
			}

		case err := <-readErrs:
			if !rs.stopping() {
				c.fault(rs, fmt.Errorf("capture: device read: %w", err))
			}

		case <-rs.stop:
			c.finish(rs, stream)
			return
		}
	}
}

// fault handles a mid-recording device or encoder error: notify the user and
// force a stop-and-discard. The state machine recovers to IDLE via finish.
func (c *Controller) fault(rs *recordingSession, err error) {
	if rs.stopping() {
		return
	}
	slog.Error("recording fault", "err", err)
	c.mu.Lock()
	c.setStateLocked(StateError)
	c.mu.Unlock()
	c.notice("Recording failed. Please try again.")
	rs.signalStop(true)
}

// finish runs the STOPPING transition: cancel telemetry, halt the stream,
// finalise the encoder, assemble the payload, and return to IDLE. IDLE is
// reached on every path; the payload handoff happens afterwards on its own
// goroutine.
func (c *Controller) finish(rs *recordingSession, stream audio.Stream) {
	c.mu.Lock()
	c.setStateLocked(StateStopping)
	monitor := c.monitor
	c.monitor = nil
	c.mu.Unlock()

	if monitor != nil {
		monitor.Stop()
	}
	if err := stream.Stop(); err != nil {
		slog.Warn("stopping stream", "err", err)
	}

	tail, err := rs.enc.Close()
	if err != nil {
		slog.Warn("finalising encoder", "err", err)
		rs.signalStop(true)
	}
	if len(tail) > 0 {
		rs.chunks = append(rs.chunks, tail)
	}

	duration := time.Since(rs.startedAt)

	c.mu.Lock()
	c.active = nil
	c.stream = nil
	c.setStateLocked(StateIdle)
	c.mu.Unlock()

	ctx := context.Background()
	c.metrics.ActiveRecordings.Add(ctx, -1)
	c.metrics.CaptureDuration.Record(ctx, duration.Seconds())

	if rs.discarded() {
		c.metrics.Recordings.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "fault")))
		return
	}

	payload := rs.payload()
	if len(payload) < c.minPayload {
		// Empty or near-silent capture: skip transcription entirely, no
		// fallback message.
		slog.Debug("payload below silence threshold, skipping transcription",
			"bytes", len(payload), "threshold", c.minPayload)
		c.metrics.Recordings.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "discarded")))
		return
	}

	c.metrics.Recordings.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "transcribed")))
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.onPayload(Payload{Data: payload, Format: rs.format, Duration: duration})
	}()
}

// setStateLocked transitions the machine and notifies the listener. Callers
// hold c.mu.
func (c *Controller) setStateLocked(s State) {
	if c.state == s {
		return
	}
	c.state = s
	if c.onState != nil {
		c.onState(s)
	}
}

// failLocked handles a fatal arm-time error: surface the notice, pass through
// ERROR, and settle on IDLE. Callers hold c.mu.
func (c *Controller) failLocked(msg string, err error) {
	slog.Error("arming failed", "err", err)
	c.setStateLocked(StateError)
	c.notice(msg)
	c.setStateLocked(StateIdle)
}

func (c *Controller) notice(msg string) {
	if c.onNotice != nil {
		c.onNotice(msg)
	}
}
