package audio

import (
	"sync"
	"time"
)

// Quality is a discrete classification of input signal strength, shown to the
// user while recording. It never influences control flow.
type Quality string

const (
	QualityExcellent Quality = "excellent"
	QualityGood      Quality = "good"
	QualityFair      Quality = "fair"
	QualityPoor      Quality = "poor"
)

// ClassifyQuality maps a normalized amplitude to a [Quality]. It is a pure
// step function: >0.6 excellent, >0.3 good, >0.1 fair, else poor.
func ClassifyQuality(amplitude float64) Quality {
	switch {
	case amplitude > 0.6:
		return QualityExcellent
	case amplitude > 0.3:
		return QualityGood
	case amplitude > 0.1:
		return QualityFair
	default:
		return QualityPoor
	}
}

// defaultSamplePeriod approximates the browser's display-refresh cadence.
const defaultSamplePeriod = 50 * time.Millisecond

// LevelSource supplies the current normalized input amplitude. [Stream]
// satisfies it.
type LevelSource interface {
	Level() float64
}

// LevelMonitor periodically samples a [LevelSource] and reports amplitude and
// quality through a callback. It is read-only telemetry: the callback must
// not block, and the monitor never affects capture.
//
// The sampling loop runs only between Start and Stop; Stop always cancels the
// ticker so no timer outlives a recording.
type LevelMonitor struct {
	src      LevelSource
	onSample func(amplitude float64, q Quality)
	period   time.Duration

	mu   sync.Mutex
	stop chan struct{}
}

// NewLevelMonitor creates a monitor reporting to onSample. A nil onSample
// makes the monitor a no-op.
func NewLevelMonitor(src LevelSource, onSample func(float64, Quality)) *LevelMonitor {
	return &LevelMonitor{src: src, onSample: onSample, period: defaultSamplePeriod}
}

// Start begins the sampling loop. Starting an already-running monitor is a
// no-op.
func (m *LevelMonitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stop != nil || m.onSample == nil {
		return
	}
	stop := make(chan struct{})
	m.stop = stop

	go func() {
		t := time.NewTicker(m.period)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				amp := m.src.Level()
				m.onSample(amp, ClassifyQuality(amp))
			}
		}
	}()
}

// Stop cancels the sampling loop. Idempotent.
func (m *LevelMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stop == nil {
		return
	}
	close(m.stop)
	m.stop = nil
}
