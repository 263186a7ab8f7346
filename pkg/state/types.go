// Package state records which components devbox installed and the history
// of install runs.
package state

import (
	"sort"
	"time"
)

// Version is the current state schema version.
const Version = "1.0"

// State is the content of state/installed.json.
type State struct {
	Version string            `json:"version"`
	Records map[string]Record `json:"records"` // Keyed by component ID
	Runs    []Run             `json:"runs"`    // Oldest first
}

// Record describes an installed component.
type Record struct {
	Version     string    `json:"version,omitempty"` // Detected after install
	InstalledAt time.Time `json:"installed_at"`
	RunID       string    `json:"run_id"`
}

// Run describes one `devbox install` invocation.
type Run struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Components []string  `json:"components"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
}

// NewState creates an empty state.
func NewState() *State {
	return &State{
		Version: Version,
		Records: map[string]Record{},
		Runs:    []Run{},
	}
}

// IDs returns the recorded component IDs, sorted.
func (s *State) IDs() []string {
	ids := make([]string, 0, len(s.Records))
	for id := range s.Records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// LastRun returns the most recent run, or nil.
func (s *State) LastRun() *Run {
	if len(s.Runs) == 0 {
		return nil
	}
	r := s.Runs[len(s.Runs)-1]
	return &r
}
