// Package syncqueue implements the durable MyList mutation queue from
// spec §4.9: jobs survive process restart, drain single-threaded
// through the protocol rate limiter, and retry with backoff before
// falling to a dead letter state.
package syncqueue

import "time"

// JobState is the per-job state machine, using the teacher's
// enum-via-methods idiom (see hashing.Algorithm, protocol.SessionState).
type JobState uint8

var EJobState = JobState(0)

func (JobState) Pending() JobState    { return JobState(0) }
func (JobState) InFlight() JobState   { return JobState(1) }
func (JobState) Done() JobState       { return JobState(2) }
func (JobState) DeadLetter() JobState { return JobState(3) }

func (s JobState) String() string {
	switch s {
	case EJobState.Pending():
		return "pending"
	case EJobState.InFlight():
		return "in_flight"
	case EJobState.Done():
		return "done"
	case EJobState.DeadLetter():
		return "dead_letter"
	default:
		return "unknown"
	}
}

// MaxAttempts bounds retries before a job is moved to DeadLetter, per
// spec §4.9's "InFlight -> DeadLetter after max attempts".
const MaxAttempts = 8

// Job is one durable MyList mutation: an AniDB command plus its
// parameters, tracked through Pending -> InFlight -> Done/DeadLetter.
type Job struct {
	ID        string            `cbor:"id"`
	Command   string            `cbor:"command"`
	Params    map[string]string `cbor:"params"`
	State     JobState          `cbor:"state"`
	Attempts  int               `cbor:"attempts"`
	NextDueAt time.Time         `cbor:"next_due_at"`
	CreatedAt time.Time         `cbor:"created_at"`
	LastError string            `cbor:"last_error"`
}
