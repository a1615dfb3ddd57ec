// Command gtp-producer runs the derivation pipeline end to end: it drives a
// source.FrameSource at the configured cadence, filters every frame, and
// publishes the result over shared memory and/or UDP (spec.md §2 Producer).
//
// The actual game/simulation hook that supplies world transforms is an
// external collaborator (spec.md §1 "Out of scope"); this binary drives the
// pipeline with a small synthetic source so the producer can be exercised
// standalone, and is the place a real hook would be plugged in instead.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gtprovider/gtp/config"
	"github.com/gtprovider/gtp/producer"
	"github.com/gtprovider/gtp/record"
)

func main() {
	var (
		configPath     string
		filterPath     string
		watchFilter    bool
		metricsAddr    string
		healthAddr     string
		metricsBackend string
		snapshotEvery  time.Duration
		showVersion    bool
	)
	flag.StringVar(&configPath, "config", "GTPConfig.txt", "Path to GTPConfig.txt")
	flag.StringVar(&filterPath, "filters", "gtp-filters.yaml", "Path to filter tuning YAML")
	flag.BoolVar(&watchFilter, "watch-filters", true, "Re-parse and log the filter tuning file on write (the running engine keeps its startup profiles)")
	flag.StringVar(&metricsAddr, "metrics", "", "Expose Prometheus metrics on address (e.g. :9090)")
	flag.StringVar(&healthAddr, "health", "", "Expose health endpoint on address (e.g. :9091)")
	flag.StringVar(&metricsBackend, "metrics-backend", "prometheus", "prometheus|otel|noop")
	flag.DurationVar(&snapshotEvery, "snapshot-interval", 5*time.Second, "Interval between snapshot log lines (0=disabled)")
	flag.BoolVar(&showVersion, "version", false, "Show version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println("gtp-producer")
		return
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("config: using defaults (%v)", err)
		cfg = config.Defaults()
	}

	schema := record.DefaultSchema()
	profiles, err := config.LoadFilterTuning(filterPath, schema)
	if err != nil {
		log.Printf("filter tuning: using defaults (%v)", err)
		profiles = nil
	}

	eng, err := producer.New(cfg, schema, profiles, producer.WithMetricsBackend(metricsBackend))
	if err != nil {
		log.Fatalf("create producer: %v", err)
	}

	if watchFilter {
		w, err := config.NewWatcher([]string{filterPath}, func(path string) {
			updated, err := config.LoadFilterTuning(path, schema)
			if err != nil {
				log.Printf("filter tuning: reload failed: %v", err)
				return
			}
			log.Printf("filter tuning: reloaded %s (%d groups)", path, len(updated))
		})
		if err != nil {
			log.Printf("filter tuning: watch disabled: %v", err)
		} else {
			defer func() { _ = w.Close() }()
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		log.Println("signal received; stopping producer")
		cancel()
		<-sigCh
		log.Println("second signal received; forcing exit")
		os.Exit(1)
	}()

	if err := eng.Start(ctx, newCircuitSource(), 0); err != nil {
		log.Fatalf("start producer: %v", err)
	}

	if metricsAddr != "" {
		if h := eng.MetricsHandler(); h != nil {
			mux := http.NewServeMux()
			mux.Handle("/metrics", h)
			go serveUntilDone(ctx, metricsAddr, mux)
		}
	}
	if healthAddr != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			hs := eng.HealthSnapshot(r.Context())
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(hs)
		})
		go serveUntilDone(ctx, healthAddr, mux)
	}

	var ticker *time.Ticker
	if snapshotEvery > 0 {
		ticker = time.NewTicker(snapshotEvery)
		defer ticker.Stop()
	}
	for {
		select {
		case <-ctx.Done():
			_ = eng.Stop()
			return
		case <-tickerC(ticker):
			snap := eng.Snapshot()
			b, _ := json.Marshal(snap)
			log.Printf("snapshot %s", b)
		}
	}
}

func tickerC(t *time.Ticker) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}

func serveUntilDone(ctx context.Context, addr string, mux http.Handler) {
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Printf("http %s: %v", addr, err)
	}
}
