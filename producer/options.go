package producer

import (
	"time"

	"github.com/gtprovider/gtp/pipeline"
	"github.com/gtprovider/gtp/telemetry/logging"
)

// options collects the functional-option surface New accepts, mirroring the
// teacher's internal optionFn over its facade Config (SPEC_FULL.md C8).
type options struct {
	metricsBackend  string
	tracingEnabled  bool
	samplingPercent float64
	healthProbeTTL  time.Duration
	eventBuffer     int
	logger          logging.Logger
	ctrl            pipeline.ControllerSource
}

func defaultOptions() options {
	return options{
		metricsBackend:  "prometheus",
		tracingEnabled:  true,
		samplingPercent: 100,
		healthProbeTTL:  2 * time.Second,
		eventBuffer:     64,
	}
}

// Option configures an Engine at construction time.
type Option func(*options)

// WithMetricsBackend selects "prometheus", "otel" or "noop". Default
// "prometheus".
func WithMetricsBackend(backend string) Option {
	return func(o *options) { o.metricsBackend = backend }
}

// WithTracing enables or disables the adaptive sampling tracer, and its
// sampling percentage when enabled.
func WithTracing(enabled bool, samplePercent float64) Option {
	return func(o *options) {
		o.tracingEnabled = enabled
		o.samplingPercent = samplePercent
	}
}

// WithHealthProbeTTL sets the health evaluator's cache TTL.
func WithHealthProbeTTL(ttl time.Duration) Option {
	return func(o *options) { o.healthProbeTTL = ttl }
}

// WithEventBuffer records a subscriber buffer depth in the Engine's options.
// Nothing in the Engine reads it: the event bus is built without it and
// Subscribe callers pass their own buffer size.
func WithEventBuffer(n int) Option {
	return func(o *options) { o.eventBuffer = n }
}

// WithLogger overrides the correlated logger (default: logging.New(nil)).
func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithControllerSource injects the driver-input snapshot source feeding
// stage 12 (steering/throttle/brake/engine rate).
func WithControllerSource(c pipeline.ControllerSource) Option {
	return func(o *options) { o.ctrl = c }
}
