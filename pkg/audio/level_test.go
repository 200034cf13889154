package audio_test

import (
	"sync"
	"testing"
	"time"

	"github.com/hearthvoice/hearth/pkg/audio"
)

func TestClassifyQuality(t *testing.T) {
	t.Parallel()
	cases := []struct {
		amplitude float64
		want      audio.Quality
	}{
		{0.0, audio.QualityPoor},
		{0.1, audio.QualityPoor},
		{0.11, audio.QualityFair},
		{0.3, audio.QualityFair},
		{0.31, audio.QualityGood},
		{0.6, audio.QualityGood},
		{0.61, audio.QualityExcellent},
		{1.0, audio.QualityExcellent},
	}
	for _, tc := range cases {
		if got := audio.ClassifyQuality(tc.amplitude); got != tc.want {
			t.Errorf("ClassifyQuality(%v) = %q, want %q", tc.amplitude, got, tc.want)
		}
	}
}

// fixedLevel is a LevelSource with a constant amplitude.
type fixedLevel float64

func (f fixedLevel) Level() float64 { return float64(f) }

func TestLevelMonitor_ReportsSamples(t *testing.T) {
	t.Parallel()

	var (
		mu      sync.Mutex
		samples []audio.Quality
	)
	m := audio.NewLevelMonitor(fixedLevel(0.7), func(amp float64, q audio.Quality) {
		mu.Lock()
		defer mu.Unlock()
		if amp != 0.7 {
			t.Errorf("amplitude should be 0.7, got %v", amp)
		}
		samples = append(samples, q)
	})
	m.Start()
	defer m.Stop()

	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		n := len(samples)
		mu.Unlock()
		if n >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("monitor produced no samples in time")
		case <-time.After(10 * time.Millisecond):
		}
	}

	mu.Lock()
	defer mu.Unlock()
	for _, q := range samples {
		if q != audio.QualityExcellent {
			t.Errorf("sampled quality should be excellent, got %q", q)
		}
	}
}

func TestLevelMonitor_StopEndsSampling(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		count int
	)
	m := audio.NewLevelMonitor(fixedLevel(0.2), func(float64, audio.Quality) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	m.Start()
	time.Sleep(120 * time.Millisecond)
	m.Stop()

	mu.Lock()
	after := count
	mu.Unlock()
	time.Sleep(120 * time.Millisecond)
	mu.Lock()
	final := count
	mu.Unlock()
	if final != after {
		t.Errorf("samples must stop after Stop: %d then %d", after, final)
	}
}

func TestLevelMonitor_NilCallbackIsNoop(t *testing.T) {
	t.Parallel()
	m := audio.NewLevelMonitor(fixedLevel(0.5), nil)
	m.Start()
	m.Stop()
	m.Stop()
}
