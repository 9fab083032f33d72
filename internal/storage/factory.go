package storage

import (
	"fmt"
	"log/slog"

	"github.com/IshaanNene/gh-trending/internal/config"
)

// NewHistoryStore builds the history backend described by cfg.
func NewHistoryStore(cfg *config.StorageConfig, logger *slog.Logger) (HistoryStore, error) {
	switch cfg.HistoryBackend {
	case "file", "":
		file := NewFileHistoryStore(cfg.HistoryPath, logger)
		if !cfg.MirrorToMongo {
			return file, nil
		}
		mongo, err := NewMongoHistoryStore(cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection, logger)
		if err != nil {
			return nil, err
		}
		return NewMultiHistoryStore(file, []HistoryStore{mongo}, logger), nil
	case "mongo", "mongodb":
		return NewMongoHistoryStore(cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection, logger)
	default:
		return nil, fmt.Errorf("unsupported history backend %q", cfg.HistoryBackend)
	}
}
