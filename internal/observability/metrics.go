package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

// Metrics tracks counters for one run. Fields are atomic so the metrics
// endpoint can read them while the run is in progress.
type Metrics struct {
	// Crawl metrics
	PagesDiscovered atomic.Int64
	PagesFetched    atomic.Int64
	FetchErrors     atomic.Int64
	QueueDepth      atomic.Int64

	// Page processing metrics
	PagesProcessed  atomic.Int64
	PagesFailed     atomic.Int64
	ChunksExtracted atomic.Int64

	// Entity metrics
	EntitiesDetected atomic.Int64
	EntitiesKept     atomic.Int64
	RowsWritten      atomic.Int64
	SinkErrors       atomic.Int64

	// Render metrics
	ArtifactsRendered atomic.Int64
	RenderErrors      atomic.Int64

	logger *slog.Logger
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	return &Metrics{
		logger: logger.With("component", "metrics"),
	}
}

// ServeHTTP serves metrics in Prometheus text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	metrics := []struct {
		name  string
		help  string
		kind  string
		value int64
	}{
		{"entitymap_pages_discovered_total", "Pages accepted by the crawl filter", "counter", m.PagesDiscovered.Load()},
		{"entitymap_pages_fetched_total", "Pages fetched while crawling", "counter", m.PagesFetched.Load()},
		{"entitymap_fetch_errors_total", "Failed page fetches", "counter", m.FetchErrors.Load()},
		{"entitymap_queue_depth", "URLs waiting in the crawl frontier", "gauge", m.QueueDepth.Load()},
		{"entitymap_pages_processed_total", "Pages that produced a CSV", "counter", m.PagesProcessed.Load()},
		{"entitymap_pages_failed_total", "Pages skipped after an error", "counter", m.PagesFailed.Load()},
		{"entitymap_chunks_total", "Text chunks sent to the model", "counter", m.ChunksExtracted.Load()},
		{"entitymap_entities_detected_total", "Raw entities returned by the model", "counter", m.EntitiesDetected.Load()},
		{"entitymap_entities_kept_total", "Entities kept after bucketing", "counter", m.EntitiesKept.Load()},
		{"entitymap_rows_written_total", "CSV rows written", "counter", m.RowsWritten.Load()},
		{"entitymap_sink_errors_total", "Storage sink failures", "counter", m.SinkErrors.Load()},
		{"entitymap_artifacts_rendered_total", "Visual artifacts written", "counter", m.ArtifactsRendered.Load()},
		{"entitymap_render_errors_total", "Visual artifacts that failed", "counter", m.RenderErrors.Load()},
	}

	for _, metric := range metrics {
		fmt.Fprintf(w, "# HELP %s %s\n", metric.name, metric.help)
		fmt.Fprintf(w, "# TYPE %s %s\n", metric.name, metric.kind)
		fmt.Fprintf(w, "%s %d\n", metric.name, metric.value)
	}
}

// StartServer starts the metrics HTTP server. It shuts down when ctx is
// cancelled.
func (m *Metrics) StartServer(ctx context.Context, port int, path string) {
	mux := http.NewServeMux()
	mux.Handle(path, m)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	m.logger.Info("metrics server starting", "addr", srv.Addr, "path", path)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("metrics server error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

// Snapshot returns all metrics as a map.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"pages_discovered":   m.PagesDiscovered.Load(),
		"pages_fetched":      m.PagesFetched.Load(),
		"fetch_errors":       m.FetchErrors.Load(),
		"pages_processed":    m.PagesProcessed.Load(),
		"pages_failed":       m.PagesFailed.Load(),
		"chunks":             m.ChunksExtracted.Load(),
		"entities_detected":  m.EntitiesDetected.Load(),
		"entities_kept":      m.EntitiesKept.Load(),
		"rows_written":       m.RowsWritten.Load(),
		"sink_errors":        m.SinkErrors.Load(),
		"artifacts_rendered": m.ArtifactsRendered.Load(),
		"render_errors":      m.RenderErrors.Load(),
	}
}
