package metrics

import "testing"

func TestOTelProviderBasic(t *testing.T) {
	p := NewOTelProvider(OTelProviderOptions{})
	c := p.NewCounter(CounterOpts{CommonOpts: CommonOpts{Name: "frames_processed_total"}})
	c.Inc(1)
	g := p.NewGauge(GaugeOpts{CommonOpts: CommonOpts{Name: "health_status"}})
	g.Set(1)
	g.Add(-1)
	h := p.NewHistogram(HistogramOpts{CommonOpts: CommonOpts{Name: "publish_latency_seconds"}})
	h.Observe(0.0015)
	ctor := p.NewTimer(HistogramOpts{CommonOpts: CommonOpts{Name: "publish_latency_seconds"}})
	tm := ctor()
	tm.ObserveDuration()
}

func TestBuildOTelNameComposition(t *testing.T) {
	cases := []struct {
		in   CommonOpts
		want string
	}{
		{CommonOpts{Namespace: "gtp", Subsystem: "pipeline", Name: "frames_processed_total"}, "gtp.pipeline.frames_processed_total"},
		{CommonOpts{Namespace: "gtp", Name: "health_status"}, "gtp.health_status"},
		{CommonOpts{Subsystem: "transport", Name: "send_failures_total"}, "transport.send_failures_total"},
		{CommonOpts{Name: "bare"}, "bare"},
	}
	for _, tc := range cases {
		if got := buildOTelName(tc.in); got != tc.want {
			t.Fatalf("buildOTelName(%+v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
