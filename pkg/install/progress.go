package install

import (
	"sync"
	"time"
)

// Stage represents an install stage.
type Stage string

const (
	StagePlanning    Stage = "planning"
	StageInstalling  Stage = "installing"
	StageConfiguring Stage = "configuring"
	StageVerifying   Stage = "verifying"
	StageSkipped     Stage = "skipped"
	StageDone        Stage = "done"
	StageComplete    Stage = "complete"
	StageError       Stage = "error"
)

// String returns the string representation of the stage.
func (s Stage) String() string {
	return string(s)
}

// DisplayName returns a human-readable name for the stage.
func (s Stage) DisplayName() string {
	switch s {
	case StagePlanning:
		return "Planning"
	case StageInstalling:
		return "Installing"
	case StageConfiguring:
		return "Configuring Shell"
	case StageVerifying:
		return "Verifying"
	case StageSkipped:
		return "Skipped"
	case StageDone:
		return "Done"
	case StageComplete:
		return "Complete"
	case StageError:
		return "Error"
	default:
		return string(s)
	}
}

// ProgressEvent represents an install progress update.
type ProgressEvent struct {
	Stage     Stage     // Current stage
	Component string    // Component ID, empty for run-level events
	Message   string    // Human-readable message
	Detail    string    // Additional detail or output
	Current   int       // 1-based index of the component being processed
	Total     int       // Number of components in the plan
	IsError   bool      // True if this is an error message
	Timestamp time.Time // When this event occurred
}

// Percent returns overall progress, or -1 when the total is unknown.
func (e ProgressEvent) Percent() int {
	if e.Total <= 0 {
		return -1
	}
	return e.Current * 100 / e.Total
}

func newEvent(stage Stage, id, message string, current, total int) ProgressEvent {
	return ProgressEvent{
		Stage:     stage,
		Component: id,
		Message:   message,
		Current:   current,
		Total:     total,
		Timestamp: time.Now(),
	}
}

func newErrorEvent(id, message, detail string, current, total int) ProgressEvent {
	e := newEvent(StageError, id, message, current, total)
	e.Detail = detail
	e.IsError = true
	return e
}

// ProgressCallback is called with progress updates during an install.
type ProgressCallback func(ProgressEvent)

// NoOpProgress is a progress callback that does nothing.
func NoOpProgress(_ ProgressEvent) {}

// ProgressTracker collects progress events for later review.
type ProgressTracker struct {
	mu     sync.Mutex
	events []ProgressEvent
}

// NewProgressTracker creates a new progress tracker.
func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{}
}

// Callback returns a ProgressCallback that records events.
func (t *ProgressTracker) Callback() ProgressCallback {
	return func(e ProgressEvent) {
		t.mu.Lock()
		t.events = append(t.events, e)
		t.mu.Unlock()
	}
}

// Events returns all recorded events.
func (t *ProgressTracker) Events() []ProgressEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]ProgressEvent, len(t.events))
	copy(out, t.events)
	return out
}

// LastEvent returns the most recent event, or nil if none.
func (t *ProgressTracker) LastEvent() *ProgressEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.events) == 0 {
		return nil
	}
	e := t.events[len(t.events)-1]
	return &e
}

// Errors returns all error events.
func (t *ProgressTracker) Errors() []ProgressEvent {
	var errs []ProgressEvent
	for _, e := range t.Events() {
		if e.IsError {
			errs = append(errs, e)
		}
	}
	return errs
}
