// Package producer implements the telemetry facade (C8): an Engine
// composing the derivation pipeline, transport, and pause gate behind one
// lifecycle, in the shape of the teacher's engine.Engine (SPEC_FULL.md §2).
package producer

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/gtprovider/gtp/config"
	"github.com/gtprovider/gtp/filter"
	"github.com/gtprovider/gtp/gate"
	"github.com/gtprovider/gtp/mathx"
	"github.com/gtprovider/gtp/pipeline"
	"github.com/gtprovider/gtp/record"
	"github.com/gtprovider/gtp/source"
	"github.com/gtprovider/gtp/telemetry/events"
	"github.com/gtprovider/gtp/telemetry/health"
	"github.com/gtprovider/gtp/telemetry/logging"
	"github.com/gtprovider/gtp/telemetry/metrics"
	"github.com/gtprovider/gtp/telemetry/tracing"
	"github.com/gtprovider/gtp/transport"
)

// Snapshot is a unified view of engine state, returned by Snapshot().
type Snapshot struct {
	RunID     string            `json:"run_id"`
	StartedAt time.Time         `json:"started_at"`
	Uptime    time.Duration     `json:"uptime"`
	Paused    bool              `json:"paused"`
	Pipeline  pipeline.Metrics  `json:"pipeline"`
}

// TelemetryEvent is the reduced, stable event view handed to observers
// registered via RegisterEventObserver — external callers never see the
// internal events.Bus directly.
type TelemetryEvent struct {
	Time     time.Time              `json:"time"`
	Category string                 `json:"category"`
	Type     string                 `json:"type"`
	Severity string                 `json:"severity,omitempty"`
	Fields   map[string]interface{} `json:"fields,omitempty"`
}

// EventObserver receives TelemetryEvent notifications synchronously.
type EventObserver func(ev TelemetryEvent)

// Engine owns one producer run: the derivation pipeline, the transport
// sinks it is configured to publish through, and the telemetry stack that
// instruments both (SPEC_FULL.md C8).
type Engine struct {
	cfg    config.Config
	schema *record.Schema
	opts   options

	pl   *pipeline.Pipeline
	gt   *gate.Gate
	tick *source.TickerSource

	shm    transport.Region
	sender *transport.UDPSender

	metricsProvider metrics.Provider
	tracer          tracing.Tracer
	healthEval      *health.Evaluator
	eventBus        events.Bus
	logger          logging.Logger

	runID     uuid.UUID
	startedAt time.Time
	started   atomic.Bool

	mFramesProcessed metrics.Counter
	mFramesDropped   metrics.Counter
	mFilterResets    metrics.Counter
	mPublishLatency  metrics.Histogram
	mSendFailures    metrics.Counter
	mHealthStatus    metrics.Gauge

	lastPublishErr error
	lastPublishAt  time.Time
	mu             sync.Mutex // guards lastPublishErr/lastPublishAt

	lastHealthStatus atomic.Value // health.Status

	eventObserversMu sync.RWMutex
	eventObservers   []EventObserver

	cancel context.CancelFunc
	done   chan struct{}
}

// New builds an Engine from schema, a tuning profile table for the filter
// cascade, and any Options. The filter and gate components are Engine's to
// own; callers needing direct access use Snapshot/HealthSnapshot instead.
func New(cfg config.Config, schema *record.Schema, profiles map[record.DataKey]filter.Profile, opts ...Option) (*Engine, error) {
	o := defaultOptions()
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}
	if schema == nil {
		schema = record.DefaultSchema()
	}

	runID, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("producer: new run id: %w", err)
	}

	filt := filter.New(schema, profiles)
	gt := &gate.Gate{}
	pl := pipeline.New(schema, filt, gt, o.ctrl)

	e := &Engine{
		cfg:    cfg,
		schema: schema,
		opts:   o,
		pl:     pl,
		gt:     gt,
		runID:  runID,
		logger: o.logger,
	}
	if e.logger == nil {
		e.logger = logging.New(nil)
	}

	e.metricsProvider = selectMetricsProvider(o.metricsBackend)
	e.eventBus = events.NewBus(e.metricsProvider)
	if o.tracingEnabled {
		e.tracer = tracing.NewAdaptiveTracer(func() float64 { return o.samplingPercent })
	} else {
		e.tracer = tracing.NewTracer(false)
	}
	e.healthEval = health.NewEvaluator(o.healthProbeTTL, e.transportProbe(), e.pipelineProbe())
	e.initMetrics()
	return e, nil
}

// selectMetricsProvider returns a metrics.Provider for the named backend,
// defaulting to Prometheus (SPEC_FULL.md C8.2).
func selectMetricsProvider(backend string) metrics.Provider {
	switch strings.ToLower(backend) {
	case "otel", "opentelemetry":
		return metrics.NewOTelProvider(metrics.OTelProviderOptions{ServiceName: "gtp-producer"})
	case "noop":
		return metrics.NewNoopProvider()
	default:
		return metrics.NewPrometheusProvider(metrics.PrometheusProviderOptions{})
	}
}

func (e *Engine) initMetrics() {
	p := e.metricsProvider
	e.mFramesProcessed = p.NewCounter(metrics.CounterOpts{CommonOpts: metrics.CommonOpts{Namespace: "gtp", Subsystem: "pipeline", Name: "frames_processed_total", Help: "Frames successfully processed"}})
	e.mFramesDropped = p.NewCounter(metrics.CounterOpts{CommonOpts: metrics.CommonOpts{Namespace: "gtp", Subsystem: "pipeline", Name: "frames_dropped_total", Help: "Frames dropped as garbage or stale", Labels: []string{"reason"}}})
	e.mFilterResets = p.NewCounter(metrics.CounterOpts{CommonOpts: metrics.CommonOpts{Namespace: "gtp", Subsystem: "filter", Name: "resets_total", Help: "Filter cascade resets"}})
	e.mPublishLatency = p.NewHistogram(metrics.HistogramOpts{CommonOpts: metrics.CommonOpts{Namespace: "gtp", Subsystem: "transport", Name: "publish_latency_seconds", Help: "Time spent in SendFilteredData sinks"}})
	e.mSendFailures = p.NewCounter(metrics.CounterOpts{CommonOpts: metrics.CommonOpts{Namespace: "gtp", Subsystem: "transport", Name: "send_failures_total", Help: "Transport sink publish failures", Labels: []string{"sink"}}})
	e.mHealthStatus = p.NewGauge(metrics.GaugeOpts{CommonOpts: metrics.CommonOpts{Namespace: "gtp", Subsystem: "health", Name: "status", Help: "1=healthy 0.5=degraded 0=unhealthy -1=unknown"}})
	e.mHealthStatus.Set(-1)
}

// MetricsHandler returns the HTTP handler for metrics exposition; nil if the
// configured backend does not provide one (otel/noop).
func (e *Engine) MetricsHandler() http.Handler {
	if hp, ok := e.metricsProvider.(interface{ MetricsHandler() http.Handler }); ok {
		return hp.MetricsHandler()
	}
	return nil
}

// Start wires transport sinks per cfg and drives src at the given cadence
// until ctx is cancelled or Stop is called. Start returns once the
// background loop has been launched; it does not block.
func (e *Engine) Start(ctx context.Context, src source.FrameSource, interval time.Duration) error {
	if e.started.Load() {
		return fmt.Errorf("producer: already started")
	}
	if e.cfg.FillMMF {
		region, err := transport.CreateRegion(transport.SharedMemoryName, transport.RegionSize)
		if err != nil {
			return fmt.Errorf("producer: create shared memory region: %w", err)
		}
		e.shm = region
	}
	if e.cfg.SendUDP {
		sender, err := transport.NewUDPSender(e.cfg.UDPIP, int(e.cfg.UDPPort))
		if err != nil {
			if e.shm != nil {
				_ = e.shm.Close()
			}
			return fmt.Errorf("producer: dial udp sender: %w", err)
		}
		e.sender = sender
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})
	e.startedAt = time.Now()

	e.tick = &source.TickerSource{
		Source:   tracedSource{inner: src, tracer: e.tracer},
		Pipeline: &instrumentedDispatcher{inner: e.pl, e: e},
		Interval: interval,
		Publish:  e.publish,
		OnError: func(err error) {
			e.logger.ErrorCtx(runCtx, "source: tick error", "error", err.Error())
		},
	}

	e.started.Store(true)
	e.publishEvent(events.Event{Category: events.CategoryTransport, Type: "started", Severity: "info"})

	go func() {
		defer close(e.done)
		if err := e.tick.Run(runCtx); err != nil && err != context.Canceled {
			e.logger.ErrorCtx(runCtx, "producer: ticker stopped", "error", err.Error())
		}
	}()
	return nil
}

// publish writes frame to every enabled sink, observing publish latency and
// send-failure counters, and is the Dispatcher.SendFilteredData callback.
func (e *Engine) publish(frame []byte) error {
	start := time.Now()
	var firstErr error
	if e.shm != nil {
		if err := e.shm.WriteLocked(frame); err != nil {
			e.mSendFailures.Inc(1, "shm")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if e.sender != nil {
		if err := e.sender.Send(frame); err != nil {
			e.mSendFailures.Inc(1, "udp")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	e.mPublishLatency.Observe(time.Since(start).Seconds())
	e.mu.Lock()
	e.lastPublishErr = firstErr
	e.lastPublishAt = time.Now()
	e.mu.Unlock()
	return firstErr
}

// Stop gracefully stops the background loop and releases transport
// resources. Idempotent.
func (e *Engine) Stop() error {
	if !e.started.Load() {
		return nil
	}
	if e.cancel != nil {
		e.cancel()
	}
	if e.done != nil {
		<-e.done
	}
	e.pl.Reset()
	e.mFilterResets.Inc(1)
	var firstErr error
	if e.shm != nil {
		if err := e.shm.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		e.shm = nil
	}
	if e.sender != nil {
		if err := e.sender.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		e.sender = nil
	}
	e.started.Store(false)
	e.publishEvent(events.Event{Category: events.CategoryTransport, Type: "stopped", Severity: "info"})
	return firstErr
}

// Snapshot returns a unified view of the pipeline and run state.
func (e *Engine) Snapshot() Snapshot {
	m := e.pl.Metrics()
	return Snapshot{
		RunID:     e.runID.String(),
		StartedAt: e.startedAt,
		Uptime:    time.Since(e.startedAt),
		Paused:    e.gt.Paused(),
		Pipeline:  m,
	}
}

// TogglePause flips the pause/fade gate and publishes a gate event.
func (e *Engine) TogglePause() {
	e.gt.Toggle()
	e.publishEvent(events.Event{Category: events.CategoryGate, Type: "pause_toggled", Severity: "info", Fields: map[string]interface{}{"paused": e.gt.Paused()}})
}

// HealthSnapshot evaluates (or returns cached) subsystem health, publishing
// a health_change event when the overall status transitions. The first
// snapshot only records the status and publishes nothing.
func (e *Engine) HealthSnapshot(ctx context.Context) health.Snapshot {
	snap := e.healthEval.Evaluate(ctx)
	var val float64
	switch snap.Overall {
	case health.StatusHealthy:
		val = 1
	case health.StatusDegraded:
		val = 0.5
	case health.StatusUnhealthy:
		val = 0
	default:
		val = -1
	}
	e.mHealthStatus.Set(val)

	prev, seen := e.lastHealthStatus.Swap(snap.Overall).(health.Status)
	if seen && prev != snap.Overall {
		e.publishEvent(events.Event{
			Category: events.CategoryHealth,
			Type:     "health_change",
			Severity: "info",
			Fields:   map[string]interface{}{"from": string(prev), "to": string(snap.Overall)},
		})
	}
	return snap
}

func (e *Engine) transportProbe() health.Probe {
	return health.ProbeFunc(func(ctx context.Context) health.ProbeResult {
		if !e.cfg.FillMMF && !e.cfg.SendUDP {
			return health.Unknown("transport", "no sink configured")
		}
		e.mu.Lock()
		err, at := e.lastPublishErr, e.lastPublishAt
		e.mu.Unlock()
		if at.IsZero() {
			return health.Unknown("transport", "no publish yet")
		}
		if err != nil {
			return health.Degraded("transport", err.Error())
		}
		if time.Since(at) > 2*time.Second {
			return health.Unhealthy("transport", "no publish in over 2s")
		}
		return health.Healthy("transport")
	})
}

func (e *Engine) pipelineProbe() health.Probe {
	return health.ProbeFunc(func(ctx context.Context) health.ProbeResult {
		m := e.pl.Metrics()
		total := m.FramesProcessed + m.FramesStale + m.FramesGarbage
		if total < 50 {
			return health.Healthy("pipeline")
		}
		ratio := float64(m.FramesGarbage) / float64(total)
		switch {
		case ratio >= 0.2:
			return health.Unhealthy("pipeline", "garbage frame ratio severe")
		case ratio >= 0.05:
			return health.Degraded("pipeline", "garbage frame ratio elevated")
		default:
			return health.Healthy("pipeline")
		}
	})
}

// RegisterEventObserver adds obs to the set notified synchronously for each
// internal telemetry event. No-op if obs is nil.
func (e *Engine) RegisterEventObserver(obs EventObserver) {
	if obs == nil {
		return
	}
	e.eventObserversMu.Lock()
	e.eventObservers = append(e.eventObservers, obs)
	e.eventObserversMu.Unlock()
}

func (e *Engine) publishEvent(ev events.Event) {
	ev.RunID = e.runID.String()
	_ = e.eventBus.Publish(ev)
	e.eventObserversMu.RLock()
	defer e.eventObserversMu.RUnlock()
	if len(e.eventObservers) == 0 {
		return
	}
	out := TelemetryEvent{Time: ev.Time, Category: ev.Category, Type: ev.Type, Severity: ev.Severity, Fields: ev.Fields}
	for _, obs := range e.eventObservers {
		obs(out)
	}
}

// instrumentedDispatcher wraps a *pipeline.Pipeline as a source.Dispatcher,
// attributing each tick's outcome (garbage, stale, processed) to the
// pipeline frame-accounting counters. Process and Stale are called exactly
// once each per tick by source.TickerSource, in that order.
type instrumentedDispatcher struct {
	inner *pipeline.Pipeline
	e     *Engine
}

func (d *instrumentedDispatcher) Process(transform mathx.Mat4, dt float64) bool {
	ok := d.inner.Process(transform, dt)
	if !ok {
		d.e.mFramesDropped.Inc(1, "garbage")
	}
	return ok
}

func (d *instrumentedDispatcher) Stale() bool {
	stale := d.inner.Stale()
	if stale {
		d.e.mFramesDropped.Inc(1, "stale")
	} else {
		d.e.mFramesProcessed.Inc(1)
	}
	return stale
}

func (d *instrumentedDispatcher) SendFilteredData(publish func(frame []byte) error) error {
	return d.inner.SendFilteredData(publish)
}

// tracedSource wraps a source.FrameSource so every NextTransform call is
// recorded as a span when tracing is enabled (SPEC_FULL.md C8.3).
type tracedSource struct {
	inner  source.FrameSource
	tracer tracing.Tracer
}

func (t tracedSource) NextTransform(ctx context.Context) (mathx.Mat4, float64, error) {
	ctx, span := t.tracer.StartSpan(ctx, "pipeline.process_transform")
	defer span.End()
	return t.inner.NextTransform(ctx)
}
