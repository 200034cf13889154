package session

import (
	"sync/atomic"
	"testing"
	"time"
)

func testAutoListen(delay time.Duration, arms *atomic.Int32, busy func() bool) *AutoListen {
	if busy == nil {
		busy = func() bool { return false }
	}
	a := NewAutoListen(func() { arms.Add(1) }, busy, nil)
	a.delay = delay
	return a
}

func waitForArms(t *testing.T, arms *atomic.Int32, want int32) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for arms.Load() < want {
		select {
		case <-deadline:
			t.Fatalf("expected %d re-arms, got %d", want, arms.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestAutoListen_DisabledByDefault(t *testing.T) {
	t.Parallel()
	var arms atomic.Int32
	a := testAutoListen(10*time.Millisecond, &arms, nil)

	if a.Enabled() {
		t.Error("auto-listen must start disabled")
	}
	a.OnPlaybackComplete()
	time.Sleep(60 * time.Millisecond)
	if arms.Load() != 0 {
		t.Errorf("disabled scheduler must never re-arm, got %d", arms.Load())
	}
}

func TestAutoListen_FiresOnceAfterDelay(t *testing.T) {
	t.Parallel()
	var arms atomic.Int32
	a := testAutoListen(20*time.Millisecond, &arms, nil)
	a.SetEnabled(true)

	a.OnPlaybackComplete()
	if arms.Load() != 0 {
		t.Error("re-arm must wait for the delay")
	}
	waitForArms(t, &arms, 1)
	time.Sleep(60 * time.Millisecond)
	if arms.Load() != 1 {
		t.Errorf("a single completion must fire exactly once, got %d", arms.Load())
	}
}

func TestAutoListen_ReplacesPendingTimer(t *testing.T) {
	t.Parallel()
	var arms atomic.Int32
	a := testAutoListen(30*time.Millisecond, &arms, nil)
	a.SetEnabled(true)

	// Back-to-back completions collapse into one pending re-arm.
	a.OnPlaybackComplete()
	a.OnPlaybackComplete()
	a.OnPlaybackComplete()
	waitForArms(t, &arms, 1)
	time.Sleep(80 * time.Millisecond)
	if arms.Load() != 1 {
		t.Errorf("pending timers must be replaced, not stacked: got %d", arms.Load())
	}
}

func TestAutoListen_CancelDropsPending(t *testing.T) {
	t.Parallel()
	var arms atomic.Int32
	a := testAutoListen(20*time.Millisecond, &arms, nil)
	a.SetEnabled(true)

	a.OnPlaybackComplete()
	a.Cancel()
	time.Sleep(80 * time.Millisecond)
	if arms.Load() != 0 {
		t.Errorf("cancelled re-arm must not fire, got %d", arms.Load())
	}
}

func TestAutoListen_ToggleOffCancelsPending(t *testing.T) {
	t.Parallel()
	var arms atomic.Int32
	a := testAutoListen(20*time.Millisecond, &arms, nil)
	a.SetEnabled(true)

	a.OnPlaybackComplete()
	a.SetEnabled(false)
	time.Sleep(80 * time.Millisecond)
	if arms.Load() != 0 {
		t.Errorf("toggling off must cancel the pending re-arm, got %d", arms.Load())
	}
}

func TestAutoListen_BusyGuardSuppressesFire(t *testing.T) {
	t.Parallel()
	var arms atomic.Int32
	var busy atomic.Bool
	busy.Store(true)
	a := testAutoListen(20*time.Millisecond, &arms, busy.Load)
	a.SetEnabled(true)

	a.OnPlaybackComplete()
	time.Sleep(80 * time.Millisecond)
	if arms.Load() != 0 {
		t.Errorf("busy session must suppress the re-arm, got %d", arms.Load())
	}

	// The next completion after the session quiets down fires normally.
	busy.Store(false)
	a.OnPlaybackComplete()
	waitForArms(t, &arms, 1)
}
