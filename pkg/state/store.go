package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/natefinch/atomic"

	"github.com/jaspreet-dot-casa/devbox/pkg/config"
)

const (
	// FileName is the name of the state file inside the state directory.
	FileName = "installed.json"
	// MaxRuns is the number of install runs kept in history.
	MaxRuns = 50
)

// Store manages the persistent install state.
type Store struct {
	dir    string
	logger *log.Logger
	mu     sync.RWMutex
	now    func() time.Time
}

// NewStore creates a store in the default state directory.
func NewStore(logger *log.Logger) (*Store, error) {
	dir, err := config.StateDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get state directory: %w", err)
	}
	return NewStoreWithDir(dir, logger), nil
}

// NewStoreWithDir creates a store with a custom directory.
func NewStoreWithDir(dir string, logger *log.Logger) *Store {
	return &Store{dir: dir, logger: logger, now: time.Now}
}

// Path returns the path to the state file.
func (s *Store) Path() string {
	return filepath.Join(s.dir, FileName)
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Load loads the state from disk. A missing file yields an empty state.
func (s *Store) Load() (*State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loadInternal()
}

// loadInternal loads state without locking (caller must hold lock).
func (s *Store) loadInternal() (*State, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return NewState(), nil
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}
	if st.Version != Version {
		s.logger.Warn("state file version differs", "file", st.Version, "supported", Version)
	}
	if st.Records == nil {
		st.Records = map[string]Record{}
	}
	if st.Runs == nil {
		st.Runs = []Run{}
	}
	return &st, nil
}

// saveInternal writes state atomically (caller must hold lock).
func (s *Store) saveInternal(st *State) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	if len(st.Runs) > MaxRuns {
		st.Runs = st.Runs[len(st.Runs)-MaxRuns:]
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := atomic.WriteFile(s.Path(), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to save state file: %w", err)
	}
	return nil
}

// Update loads, modifies and saves the state under one lock.
func (s *Store) Update(modify func(*State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.loadInternal()
	if err != nil {
		return err
	}
	if err := modify(st); err != nil {
		return err
	}
	return s.saveInternal(st)
}

// MarkInstalled records a successful component install.
func (s *Store) MarkInstalled(id, version, runID string) error {
	return s.Update(func(st *State) error {
		st.Records[id] = Record{Version: version, InstalledAt: s.now(), RunID: runID}
		return nil
	})
}

// RecordRun appends a run to the history, trimming to MaxRuns.
func (s *Store) RecordRun(run Run) error {
	return s.Update(func(st *State) error {
		st.Runs = append(st.Runs, run)
		return nil
	})
}

// Installed returns the record for id, if devbox installed it.
func (s *Store) Installed(id string) (Record, bool, error) {
	st, err := s.Load()
	if err != nil {
		return Record{}, false, err
	}
	r, ok := st.Records[id]
	return r, ok, nil
}

// Forget drops the record for id. It reports whether a record existed.
func (s *Store) Forget(id string) (bool, error) {
	found := false
	err := s.Update(func(st *State) error {
		_, found = st.Records[id]
		delete(st.Records, id)
		return nil
	})
	return found, err
}
