package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/IshaanNene/entitymap/internal/config"
	"github.com/IshaanNene/entitymap/internal/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var sampleRows = []types.EntityCount{
	{Link: "https://example.org/en/page", Entity: "1923", Label: "Date", Occurrences: 1},
	{Link: "https://example.org/en/page", Entity: "Egypt", Label: "Country", Occurrences: 2},
	{Link: "https://example.org/en/page", Entity: "الدوحة, قطر", Label: "مدينة", Occurrences: 3},
}

func TestEntityCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "QM Collections", "page.csv")
	if err := WriteEntityCSV(path, sampleRows); err != nil {
		t.Fatalf("WriteEntityCSV: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(raw, []byte(BOM+"Link,Entity,Label,Occurrences\n")) {
		t.Errorf("missing BOM or header: %q", raw[:40])
	}

	got, err := ReadEntityCSV(path)
	if err != nil {
		t.Fatalf("ReadEntityCSV: %v", err)
	}
	if !reflect.DeepEqual(got, sampleRows) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, sampleRows)
	}
}

func TestReadEntityCSVSkipsShortRows(t *testing.T) {
	data := BOM + "Link,Entity,Label,Occurrences\nu,Egypt,Country,2\nu,broken\n"
	got, err := decodeEntityCSV("test", []byte(data))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Entity != "Egypt" {
		t.Errorf("unexpected rows: %+v", got)
	}
}

func TestReadEntityCSVBadCount(t *testing.T) {
	data := "Link,Entity,Label,Occurrences\nu,Egypt,Country,two\n"
	_, err := decodeEntityCSV("test", []byte(data))
	var pe *types.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if pe.Line != 2 {
		t.Errorf("line = %d, want 2", pe.Line)
	}
}

func TestAggregateCSVHeaderOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "all_entities.csv")
	agg, err := NewAggregateCSV(path, false, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if err := agg.Store(context.Background(), sampleRows); err != nil {
		t.Fatal(err)
	}
	if err := agg.Close(); err != nil {
		t.Fatal(err)
	}

	raw, _ := os.ReadFile(path)
	if string(raw) != BOM+"Link,Entity,Label,Occurrences\n" {
		t.Errorf("aggregate content = %q", raw)
	}
}

func TestAggregateCSVAppendRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "all_entities.csv")
	agg, err := NewAggregateCSV(path, true, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	_ = agg.Store(context.Background(), sampleRows[:1])
	_ = agg.Store(context.Background(), sampleRows[1:])
	_ = agg.Close()

	got, err := ReadEntityCSV(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(sampleRows) {
		t.Errorf("expected %d rows, got %d", len(sampleRows), len(got))
	}
}

type failingStorage struct{ calls int }

func (f *failingStorage) Store(context.Context, []types.EntityCount) error {
	f.calls++
	return errors.New("disk full")
}
func (f *failingStorage) Close() error { return nil }
func (f *failingStorage) Name() string { return "failing" }

type memStorage struct{ rows []types.EntityCount }

func (m *memStorage) Store(_ context.Context, rows []types.EntityCount) error {
	m.rows = append(m.rows, rows...)
	return nil
}
func (m *memStorage) Close() error { return nil }
func (m *memStorage) Name() string { return "mem" }

func TestMultiStorageContinuesAfterFailure(t *testing.T) {
	bad := &failingStorage{}
	good := &memStorage{}
	multi := NewMultiStorage([]Storage{bad, good}, testLogger())

	err := multi.Store(context.Background(), sampleRows)
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Errorf("expected first error, got %v", err)
	}
	if len(good.rows) != len(sampleRows) {
		t.Errorf("healthy backend got %d rows", len(good.rows))
	}
}

func TestSQLiteStorage(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLiteStorage(ctx, filepath.Join(t.TempDir(), "entitymap.db"), "run-1", testLogger())
	if err != nil {
		t.Fatalf("NewSQLiteStorage: %v", err)
	}
	defer s.Close()

	if err := s.Store(ctx, sampleRows); err != nil {
		t.Fatalf("Store: %v", err)
	}
	got, err := s.Rows(ctx, "https://example.org/en/page")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0].Entity != "1923" || got[1].Occurrences != 2 {
		t.Errorf("unexpected rows: %+v", got)
	}
}

func TestOpenDefaultsToAggregateOnly(t *testing.T) {
	cfg := config.DefaultConfig()
	multi, err := Open(context.Background(), cfg, filepath.Join(t.TempDir(), "all_entities.csv"), "run", testLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer multi.Close()
	if multi.Len() != 1 {
		t.Errorf("expected only the aggregate sink, got %d", multi.Len())
	}
}
