package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/SprintLogistics/sptms/config"
	"github.com/SprintLogistics/sptms/internal/services/refresher"
)

type workerHTTPOpts struct {
	httpAddr string
	onListen func(httpAddr string)

	refresher *refresher.Refresher
	cfg       *config.Config
}

// runWorkerHTTPServer is the ops surface of the worker: health,
// stats, operational config, and a manual cycle trigger.
func runWorkerHTTPServer(ctx context.Context, opts workerHTTPOpts) error {
	if opts.httpAddr == "" {
		opts.httpAddr = ":8081"
	}

	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	})

	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if opts.refresher == nil {
			_, _ = w.Write([]byte(`{"error":"refresher not wired"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(opts.refresher.Stats())
	})

	r.Get("/config", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if opts.cfg == nil {
			_, _ = w.Write([]byte(`{"error":"config not wired"}`))
			return
		}
		// Секретов тут нет: только операционные настройки воркера.
		out := map[string]any{
			"pollIntervalSeconds": opts.cfg.SPTMS.WorkerPollIntervalSeconds,
			"staleAfterSeconds":   opts.cfg.SPTMS.WorkerStaleAfterSeconds,
			"batchSize":           opts.cfg.SPTMS.WorkerBatchSize,
			"concurrency":         opts.cfg.SPTMS.WorkerConcurrency,
			"rateLimitPerMinute":  opts.cfg.SPTMS.WorkerRateLimitPerMinute,
		}
		_ = json.NewEncoder(w).Encode(out)
	})

	r.Post("/trigger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if opts.refresher == nil {
			_, _ = w.Write([]byte(`{"error":"refresher not wired"}`))
			return
		}
		opts.refresher.Trigger()
		_, _ = w.Write([]byte(`{"triggered":true}`))
	})

	srv := &http.Server{Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = lis.Close()
	}()

	return srv.Serve(lis)
}
