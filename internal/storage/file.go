package storage

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/IshaanNene/entitymap/internal/types"
)

// BOM is the UTF-8 byte order mark that starts every CSV written here.
const BOM = "\ufeff"

// --- Entity CSV ---

// WriteEntityCSV writes rows to path, creating parent directories. The
// file starts with a BOM and the Link,Entity,Label,Occurrences header.
func WriteEntityCSV(path string, rows []types.EntityCount) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &types.StorageError{Backend: "csv", Err: fmt.Errorf("create output dir: %w", err)}
	}

	f, err := os.Create(path)
	if err != nil {
		return &types.StorageError{Backend: "csv", Err: fmt.Errorf("create output file: %w", err)}
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if _, err := bw.WriteString(BOM); err != nil {
		return &types.StorageError{Backend: "csv", Err: err}
	}
	w := csv.NewWriter(bw)
	if err := w.Write(types.CSVHeader); err != nil {
		return &types.StorageError{Backend: "csv", Err: fmt.Errorf("write CSV header: %w", err)}
	}
	for _, r := range rows {
		if err := w.Write(r.Record()); err != nil {
			return &types.StorageError{Backend: "csv", Err: fmt.Errorf("write CSV row: %w", err)}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return &types.StorageError{Backend: "csv", Err: err}
	}
	if err := bw.Flush(); err != nil {
		return &types.StorageError{Backend: "csv", Err: err}
	}
	return f.Close()
}

// ReadEntityCSV reads an entity CSV written by WriteEntityCSV. The BOM and
// header are skipped, as are rows with fewer than four fields. A
// non-integer occurrence count is a ParseError.
func ReadEntityCSV(path string) ([]types.EntityCount, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return decodeEntityCSV(path, data)
}

func decodeEntityCSV(source string, data []byte) ([]types.EntityCount, error) {
	data = bytes.TrimPrefix(data, []byte(BOM))

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	var rows []types.EntityCount
	for line := 1; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &types.ParseError{Source: source, Line: line, Err: err}
		}
		if line == 1 || len(rec) < 4 {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(rec[3]))
		if err != nil {
			return nil, &types.ParseError{Source: source, Line: line, Err: err}
		}
		rows = append(rows, types.EntityCount{Link: rec[0], Entity: rec[1], Label: rec[2], Occurrences: n})
	}
	return rows, nil
}

// --- Aggregate CSV ---

// AggregateCSV is the run-wide all_entities.csv. The header is written when
// it is created; rows are appended only when appendRows is set.
type AggregateCSV struct {
	path       string
	file       *os.File
	writer     *csv.Writer
	appendRows bool
	mu         sync.Mutex
	count      int
	logger     *slog.Logger
}

// NewAggregateCSV creates (or truncates) the aggregate file at path.
func NewAggregateCSV(path string, appendRows bool, logger *slog.Logger) (*AggregateCSV, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create aggregate file: %w", err)
	}
	if _, err := f.WriteString(BOM); err != nil {
		f.Close()
		return nil, err
	}

	w := csv.NewWriter(f)
	if err := w.Write(types.CSVHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("write CSV header: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return nil, err
	}

	return &AggregateCSV{
		path:       path,
		file:       f,
		writer:     w,
		appendRows: appendRows,
		logger:     logger.With("component", "aggregate_csv"),
	}, nil
}

func (s *AggregateCSV) Name() string { return "aggregate_csv" }

// Path returns the file location.
func (s *AggregateCSV) Path() string { return s.path }

func (s *AggregateCSV) Store(_ context.Context, rows []types.EntityCount) error {
	if !s.appendRows {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range rows {
		if err := s.writer.Write(r.Record()); err != nil {
			return &types.StorageError{Backend: s.Name(), Err: err}
		}
		s.count++
	}
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		return &types.StorageError{Backend: s.Name(), Err: err}
	}
	return nil
}

func (s *AggregateCSV) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.Info("aggregate CSV closed", "path", s.path, "rows", s.count)
	if s.file == nil {
		return nil
	}
	s.writer.Flush()
	err := s.file.Close()
	s.file = nil
	return err
}
