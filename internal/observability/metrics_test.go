package observability

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMetricsServeHTTP(t *testing.T) {
	m := NewMetrics(slog.New(slog.NewTextHandler(io.Discard, nil)))
	m.PagesProcessed.Add(3)
	m.RenderErrors.Add(1)

	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{
		"entitymap_pages_processed_total 3",
		"entitymap_render_errors_total 1",
		"# TYPE entitymap_queue_depth gauge",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("missing %q in:\n%s", want, body)
		}
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("content type = %q", ct)
	}
}

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics(slog.New(slog.NewTextHandler(io.Discard, nil)))
	m.RowsWritten.Add(7)
	if got := m.Snapshot()["rows_written"]; got != 7 {
		t.Errorf("rows_written = %d, want 7", got)
	}
}
