package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"promptum/internal/benchmark"
)

// FileStore keeps one JSON document per run under a root directory.
type FileStore struct {
	root string
}

// NewFileStore creates a store rooted at dir; the directory is created on
// first save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{root: dir}
}

func (s *FileStore) path(runID string) string {
	return filepath.Join(s.root, runID+".json")
}

// validRunID rejects IDs that would escape the storage root when joined
// into a filename. Run IDs come from CLI arguments as well as reports.
func validRunID(id string) bool {
	return id != "" && id != "." && id != ".." && !strings.ContainsAny(id, `/\`)
}

// Save implements Store.
func (s *FileStore) Save(_ context.Context, r *benchmark.Report) error {
	if r.RunID == "" {
		return fmt.Errorf("report has no run ID")
	}
	if !validRunID(r.RunID) {
		return fmt.Errorf("invalid run ID %q", r.RunID)
	}
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.WriteFile(s.path(r.RunID), data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// Load implements Store.
func (s *FileStore) Load(_ context.Context, runID string) (*benchmark.Report, error) {
	if !validRunID(runID) {
		return nil, ErrNotFound
	}
	data, err := os.ReadFile(s.path(runID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	var r benchmark.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode report %s: %w", runID, err)
	}
	return &r, nil
}

// List implements Store.
func (s *FileStore) List(ctx context.Context) ([]RunInfo, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read storage directory: %w", err)
	}

	var infos []RunInfo
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		report, err := s.Load(ctx, strings.TrimSuffix(name, ".json"))
		if err != nil {
			// Skip unreadable entries rather than failing the listing.
			continue
		}
		infos = append(infos, infoFor(report))
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].StartedAt.After(infos[j].StartedAt)
	})
	return infos, nil
}
