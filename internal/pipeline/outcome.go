package pipeline

import (
	"time"
)

// Outcome is what happened to one file during the walk.
type Outcome string

const (
	// OutcomeSkipped means the ledger says the file is unchanged.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeProcessed means a handler imported the file and it was marked.
	OutcomeProcessed Outcome = "processed"
	// OutcomeFailed means the handler failed; the file is retried next run.
	OutcomeFailed Outcome = "failed"
	// OutcomeUnhandled means no handler and no catch-all matched.
	OutcomeUnhandled Outcome = "unhandled"
	// OutcomeIgnored means the file matched an ignored pattern.
	OutcomeIgnored Outcome = "ignored"
)

// State is a driver phase. A run moves through them in order.
type State int

const (
	StateInit State = iota
	StateLibraryCopy
	StateWalk
	StatePersist
	StateDone
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateLibraryCopy:
		return "library_copy"
	case StateWalk:
		return "walk"
	case StatePersist:
		return "persist"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// FileFailure records one failed import.
type FileFailure struct {
	Path    string
	Handler string
	Err     error
}

// Report summarises one run.
type Report struct {
	Processed int
	Skipped   int
	Failed    int
	Unhandled int
	Ignored   int

	LibrariesCopied int
	LibrariesFailed int

	Failures  []FileFailure
	Cancelled bool
	Duration  time.Duration
}

func (r *Report) add(o Outcome) {
	switch o {
	case OutcomeProcessed:
		r.Processed++
	case OutcomeSkipped:
		r.Skipped++
	case OutcomeFailed:
		r.Failed++
	case OutcomeUnhandled:
		r.Unhandled++
	case OutcomeIgnored:
		r.Ignored++
	}
}

// Total returns the number of files the walk visited.
func (r *Report) Total() int {
	return r.Processed + r.Skipped + r.Failed + r.Unhandled + r.Ignored
}
