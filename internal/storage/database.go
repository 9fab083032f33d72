package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/IshaanNene/gh-trending/internal/types"
)

// historyEntry is the stored form of a history record.
type historyEntry struct {
	types.RepositoryRecord `bson:",inline"`

	AddedAt  time.Time `bson:"addedAt"`
	Position int       `bson:"position"`
}

// MongoHistoryStore keeps the history log in a MongoDB collection, one
// document per repoUrl.
type MongoHistoryStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	now        Clock
	logger     *slog.Logger
}

// NewMongoHistoryStore connects to MongoDB and ensures the unique repoUrl index.
func NewMongoHistoryStore(uri, database, collection string, logger *slog.Logger) (*MongoHistoryStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}

	coll := client.Database(database).Collection(collection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "repoUrl", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb index: %w", err)
	}

	return &MongoHistoryStore{
		client:     client,
		collection: coll,
		now:        time.Now,
		logger:     logger.With("component", "mongo_history"),
	}, nil
}

// Name implements HistoryStore.
func (s *MongoHistoryStore) Name() string { return "mongodb" }

// Append implements HistoryStore with one ordered bulk of upserts that only
// insert, so existing entries are never modified.
func (s *MongoHistoryStore) Append(records []types.RepositoryRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	now := s.now()
	models := make([]mongo.WriteModel, 0, len(records))
	for i, r := range records {
		entry := historyEntry{RepositoryRecord: r, AddedAt: now, Position: i}
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"repoUrl": r.RepoURL}).
			SetUpdate(bson.M{"$setOnInsert": entry}).
			SetUpsert(true))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	res, err := s.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true))
	if err != nil {
		return 0, &types.StorageError{Backend: s.Name(), Err: fmt.Errorf("bulk upsert: %w", err)}
	}

	added := int(res.UpsertedCount)
	s.logger.Debug("history appended", "added", added, "batch", len(records))
	return added, nil
}

// List implements HistoryStore.
func (s *MongoHistoryStore) List() ([]types.RepositoryRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "addedAt", Value: 1}, {Key: "position", Value: 1}})
	cur, err := s.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, &types.StorageError{Backend: s.Name(), Err: fmt.Errorf("find: %w", err)}
	}
	defer cur.Close(ctx)

	var entries []historyEntry
	if err := cur.All(ctx, &entries); err != nil {
		return nil, &types.StorageError{Backend: s.Name(), Err: fmt.Errorf("decode: %w", err)}
	}

	records := make([]types.RepositoryRecord, len(entries))
	for i, e := range entries {
		records[i] = e.RepositoryRecord
	}
	return records, nil
}

// Clear implements HistoryStore.
func (s *MongoHistoryStore) Clear() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	res, err := s.collection.DeleteMany(ctx, bson.M{})
	if err != nil {
		return &types.StorageError{Backend: s.Name(), Err: fmt.Errorf("delete: %w", err)}
	}
	s.logger.Info("history cleared", "deleted", res.DeletedCount)
	return nil
}

// Close disconnects the client.
func (s *MongoHistoryStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// --- Multi-Storage Fan-Out ---

// MultiHistoryStore writes to a primary store and mirrors every change to
// the others. Reads and counts come from the primary.
type MultiHistoryStore struct {
	primary HistoryStore
	mirrors []HistoryStore
	logger  *slog.Logger
}

// NewMultiHistoryStore creates a fan-out history store.
func NewMultiHistoryStore(primary HistoryStore, mirrors []HistoryStore, logger *slog.Logger) *MultiHistoryStore {
	return &MultiHistoryStore{
		primary: primary,
		mirrors: mirrors,
		logger:  logger.With("component", "multi_history"),
	}
}

// Name implements HistoryStore.
func (s *MultiHistoryStore) Name() string { return "multi" }

// Append writes to the primary and reports its count. Mirror failures are
// logged only.
func (s *MultiHistoryStore) Append(records []types.RepositoryRecord) (int, error) {
	added, err := s.primary.Append(records)
	if err != nil {
		return 0, err
	}
	for _, m := range s.mirrors {
		if _, err := m.Append(records); err != nil {
			s.logger.Error("mirror append failed", "backend", m.Name(), "error", err)
		}
	}
	return added, nil
}

// List reads from the primary.
func (s *MultiHistoryStore) List() ([]types.RepositoryRecord, error) {
	return s.primary.List()
}

// Clear empties every store and returns the first failure.
func (s *MultiHistoryStore) Clear() error {
	firstErr := s.primary.Clear()
	for _, m := range s.mirrors {
		if err := m.Clear(); err != nil {
			s.logger.Error("mirror clear failed", "backend", m.Name(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Close closes every store and returns the first failure.
func (s *MultiHistoryStore) Close() error {
	var firstErr error
	for _, backend := range append([]HistoryStore{s.primary}, s.mirrors...) {
		if err := backend.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
