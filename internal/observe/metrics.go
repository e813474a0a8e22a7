// Package observe provides application-wide observability primitives for the
// smsynth scoring service: OpenTelemetry metrics, tracing helpers, structured
// logging, and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still
// be scraped via the standard /metrics endpoint. Tests should use
// [NewMetrics] with a custom [metric.MeterProvider] to avoid cross-test
// pollution.
package observe

import (
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all smsynth metrics.
const meterName = "github.com/ThetaZillaClub/smSynth-sub002"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// ScoreDuration tracks take-scoring latency.
	ScoreDuration metric.Float64Histogram

	// RatingDuration tracks Glicko-2 pool update latency.
	RatingDuration metric.Float64Histogram

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes: attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram

	// --- Counters ---

	// TakesScored counts scored takes. Use with attribute:
	//   attribute.String("mode", "timed"|"timing_free")
	TakesScored metric.Int64Counter

	// Submissions counts result submissions. Use with attribute:
	//   attribute.String("status", "ok"|"invalid"|"error")
	Submissions metric.Int64Counter

	// RatingUpdates counts rating recomputes. Use with attribute:
	//   attribute.String("status", "ok"|"error")
	RatingUpdates metric.Int64Counter

	// CaptureFrames counts ingested capture frames. Use with attribute:
	//   attribute.String("kind", "pitch"|"gesture")
	CaptureFrames metric.Int64Counter

	// --- Gauges ---

	// ActiveCaptures tracks the number of live capture websocket sessions.
	ActiveCaptures metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// synchronous scoring passes and database round-trips.
var latencyBuckets = []float64{
	0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.ScoreDuration, err = m.Float64Histogram("smsynth.score.duration",
		metric.WithDescription("Latency of one take-scoring pass."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.RatingDuration, err = m.Float64Histogram("smsynth.rating.duration",
		metric.WithDescription("Latency of one rating pool update."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("smsynth.http.request.duration",
		metric.WithDescription("HTTP request processing time."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.TakesScored, err = m.Int64Counter("smsynth.takes.scored",
		metric.WithDescription("Number of takes scored."),
	); err != nil {
		return nil, err
	}
	if met.Submissions, err = m.Int64Counter("smsynth.submissions",
		metric.WithDescription("Number of result submissions."),
	); err != nil {
		return nil, err
	}
	if met.RatingUpdates, err = m.Int64Counter("smsynth.rating.updates",
		metric.WithDescription("Number of rating recomputes."),
	); err != nil {
		return nil, err
	}
	if met.CaptureFrames, err = m.Int64Counter("smsynth.capture.frames",
		metric.WithDescription("Number of ingested capture frames."),
	); err != nil {
		return nil, err
	}

	if met.ActiveCaptures, err = m.Int64UpDownCounter("smsynth.capture.active",
		metric.WithDescription("Number of live capture sessions."),
	); err != nil {
		return nil, err
	}

	return met, nil
}
