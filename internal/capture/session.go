package capture

import (
	"sync"
	"time"

	"github.com/hearthvoice/hearth/pkg/audio/format"
)

// recordingSession holds the mutable state of one capture attempt. It is
// created on arm, mutated only by the controller's run loop, consumed into a
// single payload on stop, and never reused.
type recordingSession struct {
	format    format.ID
	enc       format.Encoder
	chunks    [][]byte
	startedAt time.Time
	elapsed   int

	mu      sync.Mutex
	stop    chan struct{}
	stopped bool
	discard bool
}

func newRecordingSession(id format.ID, enc format.Encoder) *recordingSession {
	return &recordingSession{
		format:    id,
		enc:       enc,
		startedAt: time.Now(),
		stop:      make(chan struct{}),
	}
}

// signalStop requests the stop transition. discard marks the session's audio
// as unusable (device fault, teardown). The first call wins; later calls may
// only escalate to discard.
func (rs *recordingSession) signalStop(discard bool) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.stopped {
		if discard {
			rs.discard = true
		}
		return
	}
	rs.stopped = true
	rs.discard = discard
	close(rs.stop)
}

func (rs *recordingSession) stopping() bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.stopped
}

func (rs *recordingSession) discarded() bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.discard
}

// payload concatenates every chunk in arrival order. Chunk order is the
// correctness condition for the container format, so chunks are only ever
// appended by the run loop.
func (rs *recordingSession) payload() []byte {
	var n int
	for _, c := range rs.chunks {
		n += len(c)
	}
	out := make([]byte, 0, n)
	for _, c := range rs.chunks {
		out = append(out, c...)
	}
	return out
}
