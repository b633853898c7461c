package results

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/entitymap/internal/classify"
	"github.com/IshaanNene/entitymap/internal/config"
	"github.com/IshaanNene/entitymap/internal/observability"
	"github.com/IshaanNene/entitymap/internal/storage"
	"github.com/IshaanNene/entitymap/internal/types"
)

const pageURL = "https://example.org/en/encyclopedia/john-smith.aspx"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func scenarioBuckets() classify.Buckets {
	return classify.Buckets{
		Persons:   []types.BucketedEntity{{Text: "John Smith", Label: "Person", Bucket: types.BucketPerson}},
		Countries: []types.BucketedEntity{{Text: "Egypt", Label: "Country", Bucket: types.BucketCountry}},
		Dates:     []types.BucketedEntity{{Text: "1923", Label: "Date", Bucket: types.BucketDate}},
	}
}

var scenarioChunks = []string{"John Smith was born in Egypt in 1923.", "John Smith later left Egypt."}

func TestCountScenario(t *testing.T) {
	rows := Count(pageURL, scenarioBuckets(), scenarioChunks)
	require.Len(t, rows, 3)

	assert.Equal(t, types.EntityCount{Link: pageURL, Entity: "1923", Label: "Date", Occurrences: 1}, rows[0])
	assert.Equal(t, types.EntityCount{Link: pageURL, Entity: "Egypt", Label: "Country", Occurrences: 2}, rows[1])
	assert.Equal(t, types.EntityCount{Link: pageURL, Entity: "John Smith", Label: "Person", Occurrences: 2}, rows[2])
}

func TestCountSubstringOccurrences(t *testing.T) {
	b := classify.Buckets{PlacesEras: []types.BucketedEntity{{Text: "Ur", Label: "Place"}}}
	rows := Count(pageURL, b, []string{"Ur of the Chaldees, near Uruk"})
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].Occurrences, "substring matches count too")
}

func TestCountResolvedCountryMayBeZero(t *testing.T) {
	b := classify.Buckets{Countries: []types.BucketedEntity{{Text: "Egypt", Label: "Country"}}}
	rows := Count(pageURL, b, []string{"an Egyptian artist"})
	assert.Equal(t, 1, rows[0].Occurrences)

	b = classify.Buckets{Countries: []types.BucketedEntity{{Text: "France", Label: "Country"}}}
	rows = Count(pageURL, b, []string{"a French artist"})
	assert.Equal(t, 0, rows[0].Occurrences)
}

func TestPageSlug(t *testing.T) {
	tests := map[string]string{
		"https://example.org/en/collections/objects/vase-123.aspx": "vase-123",
		"https://example.org/en/encyclopedia/john_smith/":          "john_smith",
		"https://example.org/ar/مقالة":                             "مقالة",
		"https://example.org/":                                     "index",
		"https://example.org":                                      "index",
		"https://example.org/en/page.aspx?x=1":                     "page_x_1",
		"https://example.org/en/collections/objects/?id=1":         "objects_id_1",
		"https://example.org/en/collections/objects/?id=2":         "objects_id_2",
		"https://example.org/en/search?q=a/b&p=2":                  "search_q_a_b_p_2",
	}
	for in, want := range tests {
		assert.Equal(t, want, PageSlug(in), in)
	}
}

func TestWriterWritesCSV(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Output.Dir = t.TempDir()
	metrics := observability.NewMetrics(testLogger())
	w := NewWriter(cfg, nil, metrics, testLogger())

	path, err := w.Write(context.Background(), types.SiteEncyclopedia, pageURL, scenarioBuckets(), scenarioChunks)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.Output.Dir, "Mathaf Encyclopedia", "john-smith.csv"), path)

	rows, err := storage.ReadEntityCSV(path)
	require.NoError(t, err)
	assert.Equal(t, Count(pageURL, scenarioBuckets(), scenarioChunks), rows)
	assert.EqualValues(t, 3, metrics.RowsWritten.Load())
}

type brokenSink struct{}

func (brokenSink) Store(context.Context, []types.EntityCount) error { return errors.New("offline") }
func (brokenSink) Close() error { return nil }
func (brokenSink) Name() string { return "broken" }

func TestWriterSinkFailureDoesNotFailPage(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Output.Dir = t.TempDir()
	metrics := observability.NewMetrics(testLogger())
	w := NewWriter(cfg, brokenSink{}, metrics, testLogger())

	path, err := w.Write(context.Background(), types.SiteCollection, pageURL, scenarioBuckets(), scenarioChunks)
	require.NoError(t, err)
	assert.Contains(t, path, "QM Collections")
	assert.EqualValues(t, 1, metrics.SinkErrors.Load())
}
