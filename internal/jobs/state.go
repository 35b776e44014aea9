package jobs

import (
	"errors"
	"fmt"
	"time"
)

// State is the client-side view of an asynchronous backend job.
type State string

const (
	Idle       State = "idle"
	Submitting State = "submitting"
	Queued     State = "queued"
	Processing State = "processing"
	Completed  State = "completed"
	Failed     State = "failed"
)

// IsTerminal reports whether no further transitions happen without a new submission.
func (s State) IsTerminal() bool {
	return s == Completed || s == Failed
}

// IsPolling reports whether the poll loop runs in this state.
func (s State) IsPolling() bool {
	return s == Queued || s == Processing
}

// IsBusy reports whether a submission is in flight or being tracked.
func (s State) IsBusy() bool {
	return s == Submitting || s.IsPolling()
}

// ParseStatus maps a server status onto a State. Only the closed set
// queued | processing | completed | failed is accepted.
func ParseStatus(status string) (State, error) {
	switch s := State(status); s {
	case Queued, Processing, Completed, Failed:
		return s, nil
	default:
		return "", fmt.Errorf("unknown job status %q", status)
	}
}

// rank orders the server-driven states; transitions never move to a lower rank.
func rank(s State) int {
	switch s {
	case Queued:
		return 1
	case Processing:
		return 2
	case Completed, Failed:
		return 3
	default:
		return 0
	}
}

// CanTransition reports whether from -> to is a valid edge of the job state machine.
// Cancel and reset (-> Idle) are always allowed.
func CanTransition(from, to State) bool {
	if to == Idle {
		return true
	}
	switch from {
	case Idle:
		return to == Submitting
	case Submitting:
		return to == Queued || to == Failed
	case Queued, Processing:
		if to == Submitting {
			return false
		}
		return rank(to) >= rank(from)
	case Completed, Failed:
		return to == Submitting
	default:
		return false
	}
}

// FailureKind records where a failed job broke, so the UI can render a
// server-provided message differently from a generic status-check failure.
type FailureKind string

const (
	FailureNone        FailureKind = ""
	FailureSubmit      FailureKind = "submit"
	FailureServer      FailureKind = "server"
	FailureStatusCheck FailureKind = "status_check"
)

var (
	ErrStatusCheck = errors.New("unable to check job status")
	ErrJobInFlight = errors.New("a job is already in progress")
	ErrCancelled   = errors.New("job tracking cancelled")
)

const statusCheckMessage = "Unable to check the job status. Please try again."

// Job is a snapshot of one tracked submission.
type Job[T any] struct {
	ID        string
	State     State
	Progress  int
	Result    T
	HasResult bool

	// Err holds the server-provided or submission error message verbatim.
	Err     string
	Failure FailureKind
	// Cause is the transport or decoding error behind a status-check failure.
	Cause error

	UpdatedAt time.Time
}

// Message returns the text shown to the user for a failed job.
func (j Job[T]) Message() string {
	switch j.Failure {
	case FailureStatusCheck:
		return statusCheckMessage
	case FailureServer:
		if j.Err == "" {
			return "Processing failed on the server."
		}
		return j.Err
	case FailureSubmit:
		if j.Err == "" {
			return "Submission failed."
		}
		return j.Err
	default:
		return ""
	}
}

// Update is one poll response.
type Update[T any] struct {
	Status   string
	Progress *int
	Result   *T
	Error    string
}
