// Command gtp-consumer runs the companion consumer loop (spec.md §2
// Consumer): it opens either the producer's shared-memory window or its UDP
// stream, applies the start-up fade, and dispatches each sample.
//
// The real motion-platform SDK (SimFeedback) that would receive
// TelemetryUpdated events is an external collaborator (spec.md §1 "Out of
// scope"); this binary logs each dispatched sample in its place.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/gtprovider/gtp/backoff"
	"github.com/gtprovider/gtp/config"
	"github.com/gtprovider/gtp/consumer"
	"github.com/gtprovider/gtp/record"
	"github.com/gtprovider/gtp/transport"
)

func main() {
	var (
		configPath string
		useShm     bool
		showEvery  int
	)
	flag.StringVar(&configPath, "config", "GTPConfig.txt", "Path to GTPConfig.txt")
	flag.BoolVar(&useShm, "shm", true, "Read from the shared-memory transport instead of UDP")
	flag.IntVar(&showEvery, "log-every", 100, "Log one in every N dispatched samples (0=silent)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("config: using defaults (%v)", err)
		cfg = config.Defaults()
	}

	schema := record.DefaultSchema()

	var src consumer.Source
	if useShm {
		src = consumer.NewSharedMemorySource(transport.SharedMemoryName, schema.Size(), backoff.NewPolicy())
	} else {
		if !cfg.ReceiveUDP {
			log.Fatalf("config: receiveUDP is false and -shm=false; nothing to read from")
		}
		src = consumer.NewUDPSource(int(cfg.UDPPort), schema.Size())
	}

	n := 0
	c := &consumer.Consumer{
		Schema: schema,
		Source: src,
		Dispatch: func(r record.Record) {
			n++
			if showEvery > 0 && n%showEvery == 0 {
				b, _ := json.Marshal(r)
				fmt.Printf("TelemetryUpdated #%d: %s\n", n, b)
			}
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		log.Println("signal received; stopping consumer")
		cancel()
		<-sigCh
		log.Println("second signal received; forcing exit")
		os.Exit(1)
	}()

	if err := c.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("consumer: %v", err)
	}
}
