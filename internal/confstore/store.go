// Package confstore holds the robot configurations (power load and speed)
// keyed by configuration id, loaded once from a JSON document.
package confstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"cp1-controllers/internal/common/apperror"

	json "github.com/json-iterator/go"
)

// ErrUnknownConfiguration is returned for ids missing from the document.
var ErrUnknownConfiguration = errors.New("unknown configuration")

// Entry is one configuration.
type Entry struct {
	ConfigID  int     `json:"config_id"`
	PowerLoad float64 `json:"power_load"`
	Speed     float64 `json:"speed"`
}

// Document is the on-disk layout.
type Document struct {
	Configurations []Entry `json:"configurations"`
}

// Store is a read-mostly lookup over one configuration document.
type Store struct {
	mu   sync.RWMutex
	path string
	byID map[int]Entry
}

// Load reads the document at path. Any failure is a *apperror.ConfigurationLoadError.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &apperror.ConfigurationLoadError{Path: path, Cause: err}
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &apperror.ConfigurationLoadError{Path: path, Cause: err}
	}

	byID, err := index(doc)
	if err != nil {
		return nil, &apperror.ConfigurationLoadError{Path: path, Cause: err}
	}
	return &Store{path: path, byID: byID}, nil
}

func index(doc Document) (map[int]Entry, error) {
	if len(doc.Configurations) == 0 {
		return nil, errors.New("no configurations defined")
	}
	byID := make(map[int]Entry, len(doc.Configurations))
	for _, e := range doc.Configurations {
		if _, dup := byID[e.ConfigID]; dup {
			return nil, fmt.Errorf("duplicate config_id %d", e.ConfigID)
		}
		if e.Speed <= 0 {
			return nil, fmt.Errorf("config_id %d has non-positive speed %v", e.ConfigID, e.Speed)
		}
		byID[e.ConfigID] = e
	}
	return byID, nil
}

// Get returns the configuration with id.
func (s *Store) Get(id int) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byID[id]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %d", ErrUnknownConfiguration, id)
	}
	return e, nil
}

func (s *Store) PowerLoad(id int) (float64, error) {
	e, err := s.Get(id)
	return e.PowerLoad, err
}

func (s *Store) Speed(id int) (float64, error) {
	e, err := s.Get(id)
	return e.Speed, err
}

// Entries returns every configuration ordered by id.
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	out := make([]Entry, 0, len(s.byID))
	for _, e := range s.byID {
		out = append(out, e)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ConfigID < out[j].ConfigID })
	return out
}

// Update validates doc, writes it back to the file and replaces the in-memory view.
func (s *Store) Update(doc Document) error {
	byID, err := index(doc)
	if err != nil {
		return fmt.Errorf("invalid configuration document: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal configuration document: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".conf-*.json")
	if err != nil {
		return fmt.Errorf("write configuration document: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write configuration document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write configuration document: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace configuration document: %w", err)
	}

	s.mu.Lock()
	s.byID = byID
	s.mu.Unlock()
	return nil
}
