// Command onsetlive runs the onset detection pipeline as a long-lived
// daemon: a live websocket tick feed drives a sharded pipeline Router,
// whose events are persisted by the JSONL sink while Prometheus metrics
// are exposed over HTTP. Wiring and shutdown sequencing (signal channel
// -> context cancel -> graceful stop) follows cmd/orderflow/main.go's
// pattern, generalized from a fixed Binance feed and WebSocket
// broadcaster to a configurable tick feed and a metrics-only HTTP
// surface.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/yaml.v3"

	"onsetdetect/internal/config"
	"onsetdetect/internal/events"
	"onsetdetect/internal/ingest"
	"onsetdetect/internal/logging"
	"onsetdetect/internal/pipeline"
)

func main() {
	var (
		feedURL     = flag.String("feed", "ws://127.0.0.1:9001/ticks", "websocket URL streaming Tick JSON")
		configPath  = flag.String("config", "", "path to a YAML config file")
		eventsDir   = flag.String("events-dir", "events", "directory for JSONL event logs")
		metricsAddr = flag.String("metrics-addr", ":9090", "address to serve /metrics on")
		workers     = flag.Int("workers", runtime.NumCPU(), "number of symbol-sharded pipeline workers")
	)
	flag.Parse()

	log := logging.Default("onsetlive")

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("config error")
	}

	ctx, cancel := context.WithCancel(context.Background())

	sink := events.New(*eventsDir, log)
	router := pipeline.NewRouter(*workers, cfg, sink, log)

	feed := ingest.NewLiveFeed(*feedURL, log)
	feedDone := make(chan error, 1)
	go func() {
		feedDone <- feed.Run(ctx, router.Route)
	}()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: *metricsAddr, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()

	log.Info().Str("feed", *feedURL).Str("metrics_addr", *metricsAddr).Int("workers", *workers).Msg("onsetlive started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		log.Info().Msg("shutdown signal received")
	case err := <-feedDone:
		if err != nil {
			log.Error().Err(err).Msg("live feed exited unexpectedly")
		}
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("metrics server shutdown did not complete cleanly")
	}

	router.Close()
	router.Wait()
	sink.Close()
	log.Info().Msg("onsetlive stopped")
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return config.Config{}, err
	}
	var raw config.Config
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return config.Config{}, err
	}
	cfg := raw.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
