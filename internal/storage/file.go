package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/IshaanNene/gh-trending/internal/types"
)

// --- Snapshot cache ---

// FileSnapshotStore keeps one {period}.json file per period.
type FileSnapshotStore struct {
	dir    string
	now    Clock
	mu     sync.Mutex
	logger *slog.Logger
}

// NewFileSnapshotStore creates a snapshot store rooted at dir. The
// directory is created on first write.
func NewFileSnapshotStore(dir string, logger *slog.Logger) *FileSnapshotStore {
	return &FileSnapshotStore{
		dir:    dir,
		now:    time.Now,
		logger: logger.With("component", "snapshot_store"),
	}
}

// WithClock replaces the wall clock used for stamping and staleness.
func (s *FileSnapshotStore) WithClock(now Clock) *FileSnapshotStore {
	s.now = now
	return s
}

// Dir returns the cache directory.
func (s *FileSnapshotStore) Dir() string { return s.dir }

func (s *FileSnapshotStore) path(period types.Period) (string, error) {
	p, err := types.ParsePeriod(string(period))
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, p.String()+".json"), nil
}

// Get implements SnapshotStore. A missing file is the empty snapshot; an
// unreadable one is a *types.StorageError.
func (s *FileSnapshotStore) Get(period types.Period) (types.Snapshot, error) {
	path, err := s.path(period)
	if err != nil {
		return types.EmptySnapshot(), err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(path)
}

func (s *FileSnapshotStore) read(path string) (types.Snapshot, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return types.EmptySnapshot(), nil
	}
	if err != nil {
		return types.EmptySnapshot(), &types.StorageError{Backend: "file", Path: path, Err: err}
	}

	var snap types.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return types.EmptySnapshot(), &types.StorageError{Backend: "file", Path: path, Err: fmt.Errorf("decode snapshot: %w", err)}
	}
	if snap.Repositories == nil {
		snap.Repositories = []types.RepositoryRecord{}
	}
	return snap, nil
}

// Put implements SnapshotStore.
func (s *FileSnapshotStore) Put(period types.Period, records []types.RepositoryRecord) (types.Snapshot, error) {
	path, err := s.path(period)
	if err != nil {
		return types.EmptySnapshot(), err
	}

	now := s.now()
	snap := types.Snapshot{
		Repositories: types.CloneRecords(records),
		LastUpdated:  &now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeJSONAtomic(path, snap); err != nil {
		return types.EmptySnapshot(), &types.StorageError{Backend: "file", Path: path, Err: err}
	}

	s.logger.Info("snapshot written", "period", period, "records", len(records), "path", path)
	return snap, nil
}

// IsStale implements SnapshotStore. A snapshot exactly maxAgeHours old is
// still fresh.
func (s *FileSnapshotStore) IsStale(period types.Period, maxAgeHours int) bool {
	snap, err := s.Get(period)
	if err != nil {
		s.logger.Warn("snapshot unreadable, treating as stale", "period", period, "error", err)
		return true
	}
	if snap.LastUpdated == nil {
		return true
	}
	age := s.now().Sub(*snap.LastUpdated)
	return age > time.Duration(maxAgeHours)*time.Hour
}

// Clear implements SnapshotStore. Nothing is written when the period was
// never cached.
func (s *FileSnapshotStore) Clear(period types.Period) error {
	path, err := s.path(period)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !fileExists(path) {
		return nil
	}
	if err := writeJSONAtomic(path, types.EmptySnapshot()); err != nil {
		return &types.StorageError{Backend: "file", Path: path, Err: err}
	}

	s.logger.Info("snapshot cleared", "period", period)
	return nil
}

// ClearAll implements SnapshotStore and returns the first failure.
func (s *FileSnapshotStore) ClearAll() error {
	var firstErr error
	for _, p := range types.AllPeriods() {
		if err := s.Clear(p); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// --- History log ---

// FileHistoryStore keeps the history log as a single JSON document.
type FileHistoryStore struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger
}

// NewFileHistoryStore creates a history store at path. The file is created
// on the first write.
func NewFileHistoryStore(path string, logger *slog.Logger) *FileHistoryStore {
	return &FileHistoryStore{
		path:   path,
		logger: logger.With("component", "file_history"),
	}
}

// Name implements HistoryStore.
func (s *FileHistoryStore) Name() string { return "file" }

// Path returns the history file location.
func (s *FileHistoryStore) Path() string { return s.path }

func (s *FileHistoryStore) read() (types.HistoryDocument, error) {
	doc := types.HistoryDocument{Repositories: []types.RepositoryRecord{}}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return doc, &types.StorageError{Backend: "file", Path: s.path, Err: err}
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return types.HistoryDocument{Repositories: []types.RepositoryRecord{}},
			&types.StorageError{Backend: "file", Path: s.path, Err: fmt.Errorf("decode history: %w", err)}
	}
	if doc.Repositories == nil {
		doc.Repositories = []types.RepositoryRecord{}
	}
	return doc, nil
}

// Append implements HistoryStore. An unreadable file is left untouched and
// reported rather than overwritten.
func (s *FileHistoryStore) Append(records []types.RepositoryRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return 0, err
	}

	seen := make(map[string]struct{}, len(doc.Repositories)+len(records))
	for _, r := range doc.Repositories {
		seen[r.RepoURL] = struct{}{}
	}

	added := 0
	for _, r := range types.CloneRecords(records) {
		if _, ok := seen[r.RepoURL]; ok {
			continue
		}
		seen[r.RepoURL] = struct{}{}
		doc.Repositories = append(doc.Repositories, r)
		added++
	}
	if added == 0 {
		return 0, nil
	}

	if err := writeJSONAtomic(s.path, doc); err != nil {
		return 0, &types.StorageError{Backend: "file", Path: s.path, Err: err}
	}

	s.logger.Info("history appended", "added", added, "total", len(doc.Repositories))
	return added, nil
}

// List implements HistoryStore. A missing or unreadable file reads as empty.
func (s *FileHistoryStore) List() ([]types.RepositoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		s.logger.Warn("history unreadable, returning empty", "error", err)
	}
	return doc.Repositories, nil
}

// Clear implements HistoryStore.
func (s *FileHistoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeJSONAtomic(s.path, types.HistoryDocument{Repositories: []types.RepositoryRecord{}}); err != nil {
		return &types.StorageError{Backend: "file", Path: s.path, Err: err}
	}
	s.logger.Info("history cleared", "path", s.path)
	return nil
}

// Close implements HistoryStore; there is nothing to release.
func (s *FileHistoryStore) Close() error { return nil }
