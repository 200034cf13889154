// Package observe provides observability primitives for the hearth voice
// client: OpenTelemetry metrics with a Prometheus exporter bridge.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A package-level
// default [Metrics] instance ([DefaultMetrics]) is provided for convenience;
// tests should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all hearth metrics.
const meterName = "github.com/hearthvoice/hearth"

// Metrics holds all OpenTelemetry metric instruments for the client.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// CaptureDuration tracks recording length from arm to payload assembly.
	CaptureDuration metric.Float64Histogram

	// STTDuration tracks speech-to-text transcription latency.
	STTDuration metric.Float64Histogram

	// TTSDuration tracks text-to-speech synthesis latency.
	TTSDuration metric.Float64Histogram

	// PlaybackDuration tracks audio playback length.
	PlaybackDuration metric.Float64Histogram

	// --- Counters ---

	// Recordings counts completed recordings. Use with attribute:
	//   attribute.String("outcome", "transcribed"|"discarded"|"fault")
	Recordings metric.Int64Counter

	// TranscriptionFallbacks counts transcriptions that resolved to a
	// fallback sentence. Use with attribute:
	//   attribute.String("reason", "empty"|"unavailable")
	TranscriptionFallbacks metric.Int64Counter

	// ProviderRequests counts provider API calls. Use with attributes:
	//   attribute.String("kind", "stt"|"tts"), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts provider errors by kind.
	ProviderErrors metric.Int64Counter

	// AutoListenRearms counts re-arms fired by the auto-listen scheduler.
	AutoListenRearms metric.Int64Counter

	// --- Gauges ---

	// ActiveRecordings tracks the number of live recording sessions
	// (0 or 1 by invariant; the gauge exists to catch violations).
	ActiveRecordings metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for voice-pipeline latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.CaptureDuration, err = m.Float64Histogram("hearth.capture.duration",
		metric.WithDescription("Length of a recording from arm to payload assembly."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.STTDuration, err = m.Float64Histogram("hearth.stt.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TTSDuration, err = m.Float64Histogram("hearth.tts.duration",
		metric.WithDescription("Latency of text-to-speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PlaybackDuration, err = m.Float64Histogram("hearth.playback.duration",
		metric.WithDescription("Length of assistant speech playback."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.Recordings, err = m.Int64Counter("hearth.recordings",
		metric.WithDescription("Completed recordings by outcome."),
	); err != nil {
		return nil, err
	}
	if met.TranscriptionFallbacks, err = m.Int64Counter("hearth.transcription.fallbacks",
		metric.WithDescription("Transcriptions resolved to a fallback sentence, by reason."),
	); err != nil {
		return nil, err
	}
	if met.ProviderRequests, err = m.Int64Counter("hearth.provider.requests",
		metric.WithDescription("Provider API requests by kind and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("hearth.provider.errors",
		metric.WithDescription("Provider errors by kind."),
	); err != nil {
		return nil, err
	}
	if met.AutoListenRearms, err = m.Int64Counter("hearth.autolisten.rearms",
		metric.WithDescription("Re-arms fired by the auto-listen scheduler."),
	); err != nil {
		return nil, err
	}

	// Gauges.
	if met.ActiveRecordings, err = m.Int64UpDownCounter("hearth.active_recordings",
		metric.WithDescription("Number of live recording sessions."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordProviderRequest records a provider request counter increment with the
// standard attribute set, bumping the error counter too when status is not
// "ok".
func (m *Metrics) RecordProviderRequest(ctx context.Context, kind, status string) {
	attrs := metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("status", status),
	)
	m.ProviderRequests.Add(ctx, 1, attrs)
	if status != "ok" {
		m.ProviderErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
	}
}
