package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/hfepa/internal/api"
	"github.com/dgallion1/hfepa/internal/config"
	"github.com/dgallion1/hfepa/internal/pipeline"
	"github.com/dgallion1/hfepa/internal/stats"
	"github.com/dgallion1/hfepa/internal/store"
	"github.com/dgallion1/hfepa/internal/webhook"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	for _, w := range cfg.DetectorOptions().ThresholdWarnings() {
		log.Warn("detector configuration", "warning", w)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize result cache and clients.
	cache, err := store.Open(ctx, cfg.StoreDriver, cfg.StoreDSN, cfg.CacheTTL, log)
	if err != nil {
		log.Error("failed to open result cache", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	hook := webhook.NewClient(cfg.WebhookAPIKey, cfg.WebhookTimeout)

	// Initialize pipeline.
	scorer := pipeline.NewScorer(cache, stats.NewLatency(time.Hour), log)
	orch := pipeline.NewOrchestrator(cfg, scorer, hook, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("http shutdown incomplete", "error", err)
		}

		// Submits still in flight after a shutdown timeout get ErrStopped.
		orch.Stop()

		hook.Close()
		if err := cache.Close(); err != nil {
			log.Warn("result cache close failed", "error", err)
		}
	}()

	opts := cfg.DetectorOptions()
	log.Info("starting hfepa",
		"port", cfg.Port,
		"window_size", opts.WindowSize,
		"header_threshold", opts.HeaderThreshold,
		"footer_threshold", opts.EffectiveFooterThreshold(),
		"weights", opts.Weights,
	)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	<-done
}
