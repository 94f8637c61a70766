package scheduler

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Job states. A job moves strictly forward: scheduled, then waiting (only
// for deferred jobs), then capturing, then completed or failed.
const (
	StateScheduled = "scheduled"
	StateWaiting   = "waiting"
	StateCapturing = "capturing"
	StateCompleted = "completed"
	StateFailed    = "failed"
)

// Job is one capture assignment for one pass of one satellite.
type Job struct {
	ID        string
	Satellite string
	FreqMHz   float64

	// StartAt is when capture begins. For immediate jobs it is the creation
	// time; for deferred jobs the worker sleeps until it.
	StartAt  time.Time
	Duration time.Duration

	// Immediate jobs start capturing right away because their pass window
	// already covers now.
	Immediate bool

	state atomic.Value // string

	done chan struct{}
	err  error // valid after done is closed
}

func newJob(satellite string, freqMHz float64, startAt time.Time, duration time.Duration, immediate bool) *Job {
	j := &Job{
		ID:        uuid.NewString(),
		Satellite: satellite,
		FreqMHz:   freqMHz,
		StartAt:   startAt,
		Duration:  duration,
		Immediate: immediate,
		done:      make(chan struct{}),
	}
	j.state.Store(StateScheduled)
	return j
}

// State returns the job's current state.
func (j *Job) State() string { return j.state.Load().(string) }

func (j *Job) setState(s string) { j.state.Store(s) }

// Done is closed once the job reaches a terminal state.
func (j *Job) Done() <-chan struct{} { return j.done }

// Err returns the job's terminal error, if any. Valid only after Done is
// closed.
func (j *Job) Err() error { return j.err }

func (j *Job) finish(err error) {
	j.err = err
	close(j.done)
}
