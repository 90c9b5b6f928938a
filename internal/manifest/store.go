package manifest

import (
	"fmt"
	"os"
	"sort"
	"time"
)

// Store owns the persisted manifest. All reads and writes of the underlying
// file go through it; every Record call is a full read-modify-write-persist
// cycle so an interruption between stages never loses an earlier update.
type Store struct {
	path string
}

// NewStore creates a Store for the manifest file at path. The file is
// created on the first write if it does not exist.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the manifest file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the manifest from disk, returning an empty initialized manifest
// if the file does not exist yet.
func (s *Store) Load() (*Manifest, error) {
	var m Manifest
	if err := readJSON(s.path, &m); err != nil {
		if os.IsNotExist(err) {
			return &Manifest{
				Version: Version,
				Created: time.Now().UTC().Format(time.RFC3339),
				Repos:   map[string]map[Stage]Record{},
			}, nil
		}
		return nil, err
	}
	if m.Repos == nil {
		m.Repos = map[string]map[Stage]Record{}
	}
	return &m, nil
}

// Status returns the recorded status for a (unit, stage) pair. A missing
// record is PENDING, not an error.
func (s *Store) Status(unit string, stage Stage) (Status, error) {
	m, err := s.Load()
	if err != nil {
		return StatusPending, fmt.Errorf("load manifest: %w", err)
	}
	rec, ok := m.Repos[unit][stage]
	if !ok {
		return StatusPending, nil
	}
	return rec.Status, nil
}

// Record upserts the record for a (unit, stage) pair and persists the full
// manifest atomically.
func (s *Store) Record(unit string, stage Stage, status Status, detail string) error {
	m, err := s.Load()
	if err != nil {
		return fmt.Errorf("load manifest: %w", err)
	}
	if m.Repos[unit] == nil {
		m.Repos[unit] = map[Stage]Record{}
	}
	m.Repos[unit][stage] = Record{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Detail:    detail,
	}
	return writeJSON(s.path, m)
}

// Units returns all unit names present in the manifest, sorted.
func (s *Store) Units() ([]string, error) {
	m, err := s.Load()
	if err != nil {
		return nil, fmt.Errorf("load manifest: %w", err)
	}
	names := make([]string, 0, len(m.Repos))
	for name := range m.Repos {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
