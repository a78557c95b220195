package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"partforge/internal/config"
)

// Store handles persisted run records under .partforge/runs/.
type Store struct {
	basePath string
}

// NewStore creates a new Store with the given base path. The base
// path should be the project root.
func NewStore(basePath string) *Store {
	return &Store{basePath: basePath}
}

// runsDir returns the path to the runs directory.
func (s *Store) runsDir() string {
	return filepath.Join(s.basePath, config.DirName, "runs")
}

// runPath returns the record path for a run ID.
func (s *Store) runPath(id string) string {
	return filepath.Join(s.runsDir(), id+".json")
}

// EventLogPath returns the event log path for a run ID.
func (s *Store) EventLogPath(id string) string {
	return filepath.Join(s.runsDir(), id+".events.ndjson")
}

// SaveRun writes a run record to runs/<id>.json.
func (s *Store) SaveRun(record *RunRecord) error {
	if record.ID == "" {
		return fmt.Errorf("run record has no ID")
	}
	if err := os.MkdirAll(s.runsDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create runs directory: %w", err)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run record: %w", err)
	}

	if err := os.WriteFile(s.runPath(record.ID), data, 0o644); err != nil {
		return fmt.Errorf("failed to write run record: %w", err)
	}

	return nil
}

// GetRun reads the record for a run ID.
func (s *Store) GetRun(id string) (*RunRecord, error) {
	data, err := os.ReadFile(s.runPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("run not found: %s", id)
		}
		return nil, fmt.Errorf("failed to read run record: %w", err)
	}

	var record RunRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to parse run record: %w", err)
	}

	return &record, nil
}

// ListRuns enumerates all run records, newest first.
func (s *Store) ListRuns() ([]*RunRecord, error) {
	entries, err := os.ReadDir(s.runsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return []*RunRecord{}, nil
		}
		return nil, fmt.Errorf("failed to read runs directory: %w", err)
	}

	var records []*RunRecord
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".events.ndjson") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.runsDir(), name))
		if err != nil {
			continue // Skip unreadable records
		}

		var record RunRecord
		if err := json.Unmarshal(data, &record); err != nil {
			continue // Skip invalid records
		}

		records = append(records, &record)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].StartedAt.After(records[j].StartedAt)
	})

	return records, nil
}

// DeleteRun removes a run's record and event log.
func (s *Store) DeleteRun(id string) error {
	if err := os.Remove(s.runPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete run record: %w", err)
	}
	if err := os.Remove(s.EventLogPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete run event log: %w", err)
	}
	return nil
}

// RunExists checks if a record exists for a run ID.
func (s *Store) RunExists(id string) bool {
	_, err := os.Stat(s.runPath(id))
	return err == nil
}
