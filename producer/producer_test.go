package producer

import (
	"context"
	"testing"
	"time"

	"github.com/gtprovider/gtp/config"
	"github.com/gtprovider/gtp/mathx"
	"github.com/gtprovider/gtp/record"
	"github.com/gtprovider/gtp/telemetry/health"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	cfg := config.Defaults()
	eng, err := New(cfg, record.DefaultSchema(), nil, opts...)
	if err != nil {
		t.Fatalf("producer.New: %v", err)
	}
	return eng
}

// TestMetricsHandlerAvailability verifies the facade only exposes a non-nil
// HTTP handler for backends that provide one (Prometheus), mirroring the
// otel/noop cases that correctly yield nil.
func TestMetricsHandlerAvailability(t *testing.T) {
	cases := []struct {
		name          string
		backend       string
		expectHandler bool
	}{
		{name: "prometheus", backend: "prometheus", expectHandler: true},
		{name: "unknown_defaults_to_prometheus", backend: "", expectHandler: true},
		{name: "otel", backend: "otel", expectHandler: false},
		{name: "noop", backend: "noop", expectHandler: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			eng := newTestEngine(t, WithMetricsBackend(tc.backend))
			h := eng.MetricsHandler()
			if (h != nil) != tc.expectHandler {
				t.Fatalf("expected handler presence=%v got %v (backend=%q)", tc.expectHandler, h != nil, tc.backend)
			}
		})
	}
}

// TestSnapshotUptimeMonotonic ensures Uptime increases across consecutive
// snapshots taken after Start.
func TestSnapshotUptimeMonotonic(t *testing.T) {
	eng := newTestEngine(t, WithMetricsBackend("noop"))
	if err := eng.Start(context.Background(), staticSource{}, time.Millisecond); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() { _ = eng.Stop() }()

	s1 := eng.Snapshot().Uptime
	time.Sleep(10 * time.Millisecond)
	s2 := eng.Snapshot().Uptime
	if s2 <= s1 {
		t.Fatalf("expected uptime to increase: %v then %v", s1, s2)
	}
}

// TestStartTwiceFails ensures Start guards against being called on an
// already-running Engine.
func TestStartTwiceFails(t *testing.T) {
	eng := newTestEngine(t, WithMetricsBackend("noop"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := eng.Start(ctx, staticSource{}, time.Millisecond); err != nil {
		t.Fatalf("first start: %v", err)
	}
	defer func() { _ = eng.Stop() }()
	if err := eng.Start(ctx, staticSource{}, time.Millisecond); err == nil {
		t.Fatalf("expected second start to fail")
	}
}

// TestTogglePauseEmitsGateEvent checks that TogglePause is observable through
// RegisterEventObserver.
func TestTogglePauseEmitsGateEvent(t *testing.T) {
	eng := newTestEngine(t, WithMetricsBackend("noop"))
	ch := make(chan TelemetryEvent, 4)
	eng.RegisterEventObserver(func(ev TelemetryEvent) {
		if ev.Category == "gate" && ev.Type == "pause_toggled" {
			select {
			case ch <- ev:
			default:
			}
		}
	})
	eng.TogglePause()
	select {
	case ev := <-ch:
		if ev.Fields["paused"] != true {
			t.Fatalf("expected paused=true, got %+v", ev.Fields)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected pause_toggled event not received")
	}
}

// TestHealthChangeEvent verifies a health_change event fires exactly when the
// overall status transitions, using a swapped-in evaluator with a short TTL
// so the transition is deterministic.
func TestHealthChangeEvent(t *testing.T) {
	eng := newTestEngine(t, WithMetricsBackend("noop"))
	ch := make(chan TelemetryEvent, 4)
	eng.RegisterEventObserver(func(ev TelemetryEvent) {
		if ev.Category == "health" && ev.Type == "health_change" {
			select {
			case ch <- ev:
			default:
			}
		}
	})

	current := health.StatusHealthy
	probe := health.ProbeFunc(func(ctx context.Context) health.ProbeResult {
		return health.ProbeResult{Name: "test", Status: current, CheckedAt: time.Now()}
	})
	eng.healthEval = health.NewEvaluator(5*time.Millisecond, probe)

	first := eng.HealthSnapshot(context.Background())
	if first.Overall != health.StatusHealthy {
		t.Fatalf("expected first overall healthy, got %s", first.Overall)
	}
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event on initial snapshot: %+v", ev)
	case <-time.After(30 * time.Millisecond):
	}

	current = health.StatusDegraded
	time.Sleep(10 * time.Millisecond)
	second := eng.HealthSnapshot(context.Background())
	if second.Overall != health.StatusDegraded {
		t.Fatalf("expected second overall degraded, got %s", second.Overall)
	}
	select {
	case ev := <-ch:
		if ev.Fields["from"] != string(health.StatusHealthy) || ev.Fields["to"] != string(health.StatusDegraded) {
			t.Fatalf("unexpected field transition: %+v", ev.Fields)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("expected health_change event not received")
	}
}

// staticSource is a minimal source.FrameSource returning the identity
// transform, enough to drive the engine's ticker loop in tests.
type staticSource struct{}

func (staticSource) NextTransform(ctx context.Context) (mathx.Mat4, float64, error) {
	return mathx.Identity(), 0.01, nil
}
