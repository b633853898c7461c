package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/IshaanNene/entitymap/internal/config"
	"github.com/IshaanNene/entitymap/internal/types"
)

// mongoRow is the document shape of one entity count.
type mongoRow struct {
	RunID       string    `bson:"run_id"`
	Link        string    `bson:"link"`
	Entity      string    `bson:"entity"`
	Label       string    `bson:"label"`
	Occurrences int       `bson:"occurrences"`
	StoredAt    time.Time `bson:"stored_at"`
}

// MongoStorage writes entity counts to a MongoDB collection.
type MongoStorage struct {
	client     *mongo.Client
	collection *mongo.Collection
	runID      string
	mu         sync.Mutex
	count      int
	logger     *slog.Logger
}

// NewMongoStorage connects to MongoDB, pings it and ensures the
// (run_id, link) index.
func NewMongoStorage(ctx context.Context, cfg config.MongoConfig, runID string, logger *slog.Logger) (*MongoStorage, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("connect: %w", err)}
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("ping: %w", err)}
	}

	coll := client.Database(cfg.Database).Collection(cfg.Collection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "run_id", Value: 1}, {Key: "link", Value: 1}},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("create index: %w", err)}
	}

	return &MongoStorage{
		client:     client,
		collection: coll,
		runID:      runID,
		logger:     logger.With("component", "mongo_storage"),
	}, nil
}

func (s *MongoStorage) Name() string { return "mongodb" }

func (s *MongoStorage) Store(ctx context.Context, rows []types.EntityCount) error {
	if len(rows) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	docs := make([]any, len(rows))
	for i, r := range rows {
		docs[i] = mongoRow{
			RunID:       s.runID,
			Link:        r.Link,
			Entity:      r.Entity,
			Label:       r.Label,
			Occurrences: r.Occurrences,
			StoredAt:    now,
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := s.collection.InsertMany(ctx, docs); err != nil {
		return &types.StorageError{Backend: s.Name(), Err: fmt.Errorf("insert: %w", err)}
	}

	s.count += len(rows)
	s.logger.Debug("rows stored in mongodb", "count", len(rows), "total", s.count)
	return nil
}

func (s *MongoStorage) Close() error {
	s.logger.Info("mongodb storage closing", "total_rows", s.count)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// --- Multi-Storage Fan-Out ---

// MultiStorage writes rows to multiple backends. A failing backend does
// not stop the others.
type MultiStorage struct {
	backends []Storage
	logger   *slog.Logger
}

// NewMultiStorage creates a storage that fans out to multiple backends.
func NewMultiStorage(backends []Storage, logger *slog.Logger) *MultiStorage {
	return &MultiStorage{
		backends: backends,
		logger:   logger.With("component", "multi_storage"),
	}
}

func (s *MultiStorage) Name() string { return "multi" }

// Len returns the number of backends.
func (s *MultiStorage) Len() int { return len(s.backends) }

func (s *MultiStorage) Store(ctx context.Context, rows []types.EntityCount) error {
	var firstErr error
	for _, backend := range s.backends {
		if err := backend.Store(ctx, rows); err != nil {
			s.logger.Error("backend store failed", "backend", backend.Name(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *MultiStorage) Close() error {
	var firstErr error
	for _, backend := range s.backends {
		if err := backend.Close(); err != nil {
			s.logger.Error("backend close failed", "backend", backend.Name(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Open builds the configured sinks. The aggregate file is always part of
// the result; database sinks are added when enabled.
func Open(ctx context.Context, cfg *config.Config, aggregatePath, runID string, logger *slog.Logger) (*MultiStorage, error) {
	agg, err := NewAggregateCSV(aggregatePath, cfg.Output.AggregateRows, logger)
	if err != nil {
		return nil, err
	}
	backends := []Storage{agg}

	if cfg.Storage.Mongo.Enabled {
		m, err := NewMongoStorage(ctx, cfg.Storage.Mongo, runID, logger)
		if err != nil {
			_ = NewMultiStorage(backends, logger).Close()
			return nil, err
		}
		backends = append(backends, m)
	}
	if cfg.Storage.SQLite.Enabled {
		sq, err := NewSQLiteStorage(ctx, cfg.Storage.SQLite.Path, runID, logger)
		if err != nil {
			_ = NewMultiStorage(backends, logger).Close()
			return nil, err
		}
		backends = append(backends, sq)
	}
	return NewMultiStorage(backends, logger), nil
}
