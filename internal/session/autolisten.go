package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hearthvoice/hearth/internal/observe"
)

// rearmDelay is the fixed pause between the assistant finishing speaking and
// the microphone re-arming.
const rearmDelay = 3 * time.Second

// AutoListen is the timer-gated policy layer that re-arms capture after the
// assistant's speech has audibly finished. It holds at most one pending
// timer; any manual recording action, toggling the policy off, or session
// teardown cancels it.
//
// AutoListen is safe for concurrent use.
type AutoListen struct {
	arm     func()
	busy    func() bool
	delay   time.Duration
	metrics *observe.Metrics

	mu      sync.Mutex
	enabled bool
	timer   *time.Timer
}

// NewAutoListen creates a disabled scheduler. arm re-arms the capture
// controller; busy is the race guard consulted at fire time (a live recording
// or speech job suppresses the re-arm).
func NewAutoListen(arm func(), busy func() bool, metrics *observe.Metrics) *AutoListen {
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	return &AutoListen{arm: arm, busy: busy, delay: rearmDelay, metrics: metrics}
}

// Enabled reports the policy toggle.
func (a *AutoListen) Enabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.enabled
}

// SetEnabled flips the policy. Turning it off cancels any pending re-arm.
func (a *AutoListen) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
	if !enabled {
		a.cancelLocked()
	}
	slog.Info("auto-listen toggled", "enabled", enabled)
}

// OnPlaybackComplete schedules a single delayed re-arm when the policy is
// enabled; otherwise it is a no-op. A previously pending re-arm is replaced,
// never duplicated.
func (a *AutoListen) OnPlaybackComplete() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.enabled {
		return
	}
	a.cancelLocked()
	a.timer = time.AfterFunc(a.delay, a.fire)
	slog.Debug("auto-listen re-arm scheduled", "delay", a.delay)
}

// Cancel drops any pending re-arm. Called on manual recording start/stop and
// on session teardown.
func (a *AutoListen) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cancelLocked()
}

func (a *AutoListen) cancelLocked() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}

func (a *AutoListen) fire() {
	a.mu.Lock()
	a.timer = nil
	if !a.enabled || a.busy() {
		// The user (or a reply) got there first; yield.
		a.mu.Unlock()
		return
	}
	a.mu.Unlock()

	a.metrics.AutoListenRearms.Add(context.Background(), 1)
	slog.Debug("auto-listen re-arming capture")
	a.arm()
}
