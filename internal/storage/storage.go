package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/IshaanNene/gh-trending/internal/types"
)

// SnapshotStore keeps the latest result set for each period.
type SnapshotStore interface {
	// Get returns the stored snapshot, or the empty snapshot when none exists.
	Get(period types.Period) (types.Snapshot, error)

	// Put replaces the period's snapshot, stamping it with the current time.
	Put(period types.Period, records []types.RepositoryRecord) (types.Snapshot, error)

	// IsStale reports whether the period needs a refresh.
	IsStale(period types.Period, maxAgeHours int) bool

	// Clear resets one period to the empty snapshot.
	Clear(period types.Period) error

	// ClearAll clears every period.
	ClearAll() error
}

// HistoryStore is the append-only, deduplicated log of every repository seen.
type HistoryStore interface {
	// Append adds records whose repoUrl is not yet present and returns how
	// many were added.
	Append(records []types.RepositoryRecord) (int, error)

	// List returns the log in insertion order.
	List() ([]types.RepositoryRecord, error)

	// Clear empties the log.
	Clear() error

	// Name returns the storage backend identifier.
	Name() string

	// Close releases resources.
	Close() error
}

// Clock returns the current wall-clock time.
type Clock func() time.Time

// writeJSONAtomic writes v as indented JSON to a temp file in the target
// directory, then renames it over path.
func writeJSONAtomic(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	f, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := f.Name()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("encode JSON: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
