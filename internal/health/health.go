// Package health tracks what the composer is currently doing and when it
// last finished a run, for the daemon's heartbeat and for log context.
package health

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Status is a point-in-time snapshot of tracker state.
type Status struct {
	Stage       string
	Task        string
	Percent     float64
	Busy        bool
	LastSuccess time.Time
}

// Tracker records pipeline progress. All methods are safe for concurrent
// use; the cron scheduler and the running pipeline share one instance.
type Tracker struct {
	mu            sync.Mutex
	logger        zerolog.Logger
	heartbeatPath string

	stage       string
	task        string
	percent     float64
	busy        bool
	lastSuccess time.Time
}

// NewTracker creates a tracker. heartbeatPath may be empty to disable the
// heartbeat file.
func NewTracker(logger zerolog.Logger, heartbeatPath string) *Tracker {
	return &Tracker{
		logger:        logger.With().Str("component", "health").Logger(),
		heartbeatPath: heartbeatPath,
	}
}

// BeginRun marks the tracker busy. It returns false when a run is already in
// flight, which the scheduler uses to skip overlapping triggers.
func (t *Tracker) BeginRun() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.busy {
		return false
	}
	t.busy = true
	t.stage = "starting"
	t.task = ""
	t.percent = 0
	return true
}

// EndRun marks the tracker idle.
func (t *Tracker) EndRun() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.busy = false
	t.stage = "idle"
	t.task = ""
	t.percent = 0
}

// SetStage records the pipeline stage currently running.
func (t *Tracker) SetStage(stage string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stage = stage
	t.task = ""
	t.percent = 0
	t.logger.Debug().Str("stage", stage).Msg("stage changed")
}

// SetTask records fine-grained progress within the current stage.
func (t *Tracker) SetTask(task string, percent float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.task = task
	t.percent = percent
}

// MarkSuccess records a completed run.
func (t *Tracker) MarkSuccess() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastSuccess = time.Now()
}

// Status returns a snapshot of the current state.
func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Status{
		Stage:       t.stage,
		Task:        t.task,
		Percent:     t.percent,
		Busy:        t.busy,
		LastSuccess: t.lastSuccess,
	}
}

// Heartbeat writes the current time to the heartbeat file so an external
// watchdog can tell the daemon is alive. A no-op when no path is configured.
func (t *Tracker) Heartbeat() error {
	if t.heartbeatPath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(t.heartbeatPath), 0755); err != nil {
		return fmt.Errorf("create heartbeat directory: %w", err)
	}
	stamp := time.Now().UTC().Format(time.RFC3339) + "\n"
	if err := os.WriteFile(t.heartbeatPath, []byte(stamp), 0644); err != nil {
		return fmt.Errorf("write heartbeat: %w", err)
	}
	return nil
}

// Summary renders the status as a single log-friendly line.
func (s Status) Summary() string {
	if !s.Busy {
		if s.LastSuccess.IsZero() {
			return "idle, no completed runs"
		}
		return fmt.Sprintf("idle, last success %s", s.LastSuccess.Format(time.RFC3339))
	}
	if s.Task != "" {
		return fmt.Sprintf("%s: %s (%.0f%%)", s.Stage, s.Task, s.Percent)
	}
	return s.Stage
}
