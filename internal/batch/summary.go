package batch

import (
	"errors"
	"fmt"
	"time"

	"subflow/internal/pipeline"
)

// ErrIncomplete reports that at least one video did not fully succeed.
var ErrIncomplete = errors.New("batch incomplete")

// Run outcomes persisted in the ledger.
const (
	OutcomeSucceeded   = "succeeded"
	OutcomePartial     = "partial"
	OutcomeFailed      = "failed"
	OutcomeInterrupted = "interrupted"
)

// Skip records a directory entry that was not turned into a job.
type Skip struct {
	Name   string
	Reason string
}

// Summary describes a finished run. Results follow directory listing order.
type Summary struct {
	RunID       string
	VideosDir   string
	OutputDir   string
	Started     time.Time
	Duration    time.Duration
	Results     []pipeline.Result
	Skipped     []Skip
	NotStarted  int
	Interrupted bool
}

// Counts tallies fully successful, partial, and failed videos.
func (s Summary) Counts() (succeeded, partial, failed int) {
	for _, r := range s.Results {
		switch {
		case r.Succeeded():
			succeeded++
		case r.Partial():
			partial++
		default:
			failed++
		}
	}
	return succeeded, partial, failed
}

// AllSucceeded reports whether every scheduled video completed in every
// language and the run was not interrupted.
func (s Summary) AllSucceeded() bool {
	succeeded, _, _ := s.Counts()
	return !s.Interrupted && s.NotStarted == 0 && succeeded == len(s.Results)
}

// Outcome classifies the run as a whole.
func (s Summary) Outcome() string {
	succeeded, _, _ := s.Counts()
	switch {
	case s.Interrupted:
		return OutcomeInterrupted
	case s.AllSucceeded():
		return OutcomeSucceeded
	case succeeded == 0 && len(s.Results) > 0 && !s.anyPartial():
		return OutcomeFailed
	default:
		return OutcomePartial
	}
}

func (s Summary) anyPartial() bool {
	_, partial, _ := s.Counts()
	return partial > 0
}

// Err returns ErrIncomplete with counts when the run did not fully succeed.
func (s Summary) Err() error {
	if s.AllSucceeded() {
		return nil
	}
	succeeded, partial, failed := s.Counts()
	return fmt.Errorf("%w: %d succeeded, %d partial, %d failed, %d not started",
		ErrIncomplete, succeeded, partial, failed, s.NotStarted)
}
