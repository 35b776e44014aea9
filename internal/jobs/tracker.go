package jobs

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// DefaultPollInterval is the delay between status requests.
const DefaultPollInterval = 2 * time.Second

// Backend submits work and reports its status. Implementations must honour ctx.
type Backend[T any] interface {
	Submit(ctx context.Context) (jobID string, err error)
	Status(ctx context.Context, jobID string) (Update[T], error)
}

// userMessager is implemented by errors that carry a server-provided detail.
type userMessager interface {
	UserMessage() string
}

func errorMessage(err error) string {
	var um userMessager
	if errors.As(err, &um) {
		if msg := um.UserMessage(); msg != "" {
			return msg
		}
	}
	return err.Error()
}

// Tracker runs at most one job at a time and exposes its state.
type Tracker[T any] struct {
	name     string
	interval time.Duration

	mu      sync.Mutex
	job     Job[T]
	gen     uint64
	current *Handle[T]
	subs    map[chan Job[T]]struct{}
}

func NewTracker[T any](name string, interval time.Duration) *Tracker[T] {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Tracker[T]{
		name:     name,
		interval: interval,
		job:      Job[T]{State: Idle},
		subs:     make(map[chan Job[T]]struct{}),
	}
}

// Snapshot returns a copy of the current job.
func (t *Tracker[T]) Snapshot() Job[T] {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.job
}

// Subscribe returns a channel receiving every state change. Slow subscribers
// miss intermediate snapshots rather than blocking the poller.
func (t *Tracker[T]) Subscribe() (<-chan Job[T], func()) {
	ch := make(chan Job[T], 16)
	t.mu.Lock()
	t.subs[ch] = struct{}{}
	t.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.subs, ch)
			t.mu.Unlock()
			close(ch)
		})
	}
}

// publishLocked must be called with t.mu held.
func (t *Tracker[T]) publishLocked() {
	t.job.UpdatedAt = time.Now()
	for ch := range t.subs {
		select {
		case ch <- t.job:
		default:
		}
	}
}

// Submit starts a new job. It is valid from idle or a terminal state; a
// terminal job is discarded. The returned handle cancels this submission only.
func (t *Tracker[T]) Submit(ctx context.Context, backend Backend[T]) (*Handle[T], error) {
	t.mu.Lock()
	if t.job.State.IsBusy() {
		t.mu.Unlock()
		return nil, ErrJobInFlight
	}

	t.gen++
	runCtx, cancel := context.WithCancel(ctx)
	h := &Handle[T]{
		tracker: t,
		gen:     t.gen,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	t.current = h
	t.job = Job[T]{State: Submitting}
	t.publishLocked()
	t.mu.Unlock()

	go t.run(runCtx, h, backend)
	return h, nil
}

// apply mutates the job only if gen is still the live submission.
func (t *Tracker[T]) apply(gen uint64, fn func(*Job[T])) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.gen {
		return false
	}
	fn(&t.job)
	t.publishLocked()
	return true
}

func (t *Tracker[T]) run(ctx context.Context, h *Handle[T], backend Backend[T]) {
	defer close(h.done)

	jobID, err := backend.Submit(ctx)
	if err != nil {
		if ctx.Err() != nil {
			h.abandon()
			return
		}
		log.Printf("%s-poller: submit failed: %v", t.name, err)
		t.apply(h.gen, func(j *Job[T]) {
			j.State = Failed
			j.Failure = FailureSubmit
			j.Err = errorMessage(err)
		})
		h.finish(t)
		return
	}

	if !t.apply(h.gen, func(j *Job[T]) {
		j.ID = jobID
		j.State = Queued
		j.Progress = 0
	}) {
		log.Printf("%s-poller: job %s acknowledged after cancel, not tracking", t.name, jobID)
		return
	}
	log.Printf("%s-poller: job %s queued", t.name, jobID)

	timer := time.NewTimer(t.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			h.abandon()
			return
		case <-timer.C:
		}

		update, err := backend.Status(ctx, jobID)
		if ctx.Err() != nil {
			// Cancelled while the request was in flight: drop the response.
			h.abandon()
			return
		}
		if err != nil {
			t.failStatusCheck(h.gen, jobID, err)
			h.finish(t)
			return
		}

		state, err := ParseStatus(update.Status)
		if err != nil {
			t.failStatusCheck(h.gen, jobID, err)
			h.finish(t)
			return
		}

		terminal := false
		if !t.apply(h.gen, func(j *Job[T]) {
			mergeUpdate(j, state, update)
			terminal = j.State.IsTerminal()
		}) {
			return
		}
		if terminal {
			snap := h.finish(t)
			if snap.State == Failed {
				log.Printf("%s-poller: job %s failed: %s", t.name, jobID, snap.Err)
			} else {
				log.Printf("%s-poller: job %s completed", t.name, jobID)
			}
			return
		}

		timer.Reset(t.interval)
	}
}

func mergeUpdate[T any](j *Job[T], state State, update Update[T]) {
	if CanTransition(j.State, state) {
		j.State = state
	} else {
		log.Printf("poller: ignoring backwards transition %s -> %s for job %s", j.State, state, j.ID)
	}
	if update.Progress != nil {
		j.Progress = *update.Progress
	}
	if update.Result != nil {
		j.Result = *update.Result
		j.HasResult = true
	}
	if j.State == Failed {
		j.Failure = FailureServer
		j.Err = update.Error
	}
}

func (t *Tracker[T]) failStatusCheck(gen uint64, jobID string, err error) {
	log.Printf("%s-poller: status check for job %s failed: %v", t.name, jobID, err)
	t.apply(gen, func(j *Job[T]) {
		j.State = Failed
		j.Failure = FailureStatusCheck
		j.Err = ErrStatusCheck.Error()
		j.Cause = err
	})
}

// Reset cancels any tracked job and returns to idle.
func (t *Tracker[T]) Reset() {
	t.mu.Lock()
	h := t.current
	t.mu.Unlock()
	if h != nil {
		h.Cancel()
		return
	}
	t.mu.Lock()
	t.gen++
	t.job = Job[T]{State: Idle}
	t.publishLocked()
	t.mu.Unlock()
}

// Handle controls a single submission.
type Handle[T any] struct {
	tracker *Tracker[T]
	gen     uint64
	cancel  context.CancelFunc
	done    chan struct{}

	mu        sync.Mutex
	final     Job[T]
	finished  bool
	cancelled bool
}

func (h *Handle[T]) finish(t *Tracker[T]) Job[T] {
	t.mu.Lock()
	snap := t.job
	live := h.gen == t.gen
	t.mu.Unlock()

	h.mu.Lock()
	defer h.mu.Unlock()
	if live && !h.cancelled {
		h.final = snap
		h.finished = true
	}
	return snap
}

// Cancel stops polling and resets the tracker to idle. The server is not told;
// the job keeps running there. A response already in flight is discarded.
func (h *Handle[T]) Cancel() {
	h.abandon()
	h.cancel()
}

// abandon marks the handle cancelled and, if it is still the live
// submission, returns the tracker to idle so a new job can be submitted.
func (h *Handle[T]) abandon() {
	h.mu.Lock()
	if !h.finished {
		h.cancelled = true
	}
	h.mu.Unlock()

	t := h.tracker
	t.mu.Lock()
	if h.gen == t.gen {
		t.gen++
		t.current = nil
		t.job = Job[T]{State: Idle}
		t.publishLocked()
		log.Printf("%s-poller: tracking cancelled", t.name)
	}
	t.mu.Unlock()
}

// Done is closed once the poll loop has exited.
func (h *Handle[T]) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the job reaches a terminal state, the handle is cancelled, or ctx ends.
func (h *Handle[T]) Wait(ctx context.Context) (Job[T], error) {
	select {
	case <-h.done:
	case <-ctx.Done():
		return Job[T]{}, ctx.Err()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancelled || !h.finished {
		return Job[T]{}, ErrCancelled
	}
	return h.final, nil
}
