// Package results counts entity occurrences and writes the per-page CSV.
package results

import (
	"context"
	"log/slog"
	"net/url"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/IshaanNene/entitymap/internal/classify"
	"github.com/IshaanNene/entitymap/internal/config"
	"github.com/IshaanNene/entitymap/internal/observability"
	"github.com/IshaanNene/entitymap/internal/storage"
	"github.com/IshaanNene/entitymap/internal/types"
)

// Count returns one row per distinct (entity, label) with the number of
// times the entity text occurs across all chunks. Rows are sorted by
// entity, then label.
func Count(pageURL string, buckets classify.Buckets, chunks []string) []types.EntityCount {
	seen := make(map[[2]string]struct{})
	var rows []types.EntityCount

	for _, e := range buckets.All() {
		if _, dup := seen[e.Key()]; dup {
			continue
		}
		seen[e.Key()] = struct{}{}

		n := 0
		for _, c := range chunks {
			n += strings.Count(c, e.Text)
		}
		rows = append(rows, types.EntityCount{Link: pageURL, Entity: e.Text, Label: e.Label, Occurrences: n})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Entity != rows[j].Entity {
			return rows[i].Entity < rows[j].Entity
		}
		return rows[i].Label < rows[j].Label
	})
	return rows
}

// PageSlug returns the last non-empty path segment of pageURL with any
// ".aspx" suffix removed, or "index" for an empty path. A query string is
// appended with its separators replaced, so pages that differ only by
// query get their own files.
func PageSlug(pageURL string) string {
	path, query := pageURL, ""
	if u, err := url.Parse(pageURL); err == nil {
		path, query = u.Path, u.RawQuery
	}

	slug := "index"
	segments := strings.Split(path, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if s := strings.TrimSuffix(segments[i], ".aspx"); s != "" {
			if unescaped, err := url.PathUnescape(s); err == nil {
				s = unescaped
			}
			slug = strings.ReplaceAll(s, string(filepath.Separator), "_")
			break
		}
	}
	if query != "" {
		if unescaped, err := url.QueryUnescape(query); err == nil {
			query = unescaped
		}
		slug += "_" + strings.Map(slugRune, query)
	}
	return slug
}

func slugRune(r rune) rune {
	if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == '.' {
		return r
	}
	return '_'
}

// Writer writes each page's counts to its CSV and forwards them to the
// configured sinks.
type Writer struct {
	cfg     config.OutputConfig
	folders func(types.SiteType) string
	sink    storage.Storage
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewWriter creates a Writer. sink and metrics may be nil.
func NewWriter(cfg *config.Config, sink storage.Storage, metrics *observability.Metrics, logger *slog.Logger) *Writer {
	return &Writer{
		cfg:     cfg.Output,
		folders: func(s types.SiteType) string { return cfg.SiteFolder(int(s)) },
		sink:    sink,
		metrics: metrics,
		logger:  logger.With("component", "result_writer"),
	}
}

// PathFor returns where the CSV of pageURL goes for a site.
func (w *Writer) PathFor(site types.SiteType, pageURL string) string {
	return filepath.Join(w.cfg.Dir, w.folders(site), PageSlug(pageURL)+".csv")
}

// Write counts occurrences, writes the page CSV and returns its path. Sink
// failures are logged; they do not fail the page.
func (w *Writer) Write(ctx context.Context, site types.SiteType, pageURL string, buckets classify.Buckets, chunks []string) (string, error) {
	rows := Count(pageURL, buckets, chunks)
	path := w.PathFor(site, pageURL)

	if err := storage.WriteEntityCSV(path, rows); err != nil {
		return "", err
	}
	if w.metrics != nil {
		w.metrics.RowsWritten.Add(int64(len(rows)))
	}
	w.logger.Info("entity CSV written", "url", pageURL, "path", path, "rows", len(rows))

	if w.sink != nil {
		if err := w.sink.Store(ctx, rows); err != nil {
			w.logger.Error("sink store failed", "url", pageURL, "sink", w.sink.Name(), "error", err)
			if w.metrics != nil {
				w.metrics.SinkErrors.Add(1)
			}
		}
	}
	return path, nil
}
