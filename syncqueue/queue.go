package syncqueue

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jpillora/backoff"

	"github.com/anidbgo/anidb/anerr"
	"github.com/anidbgo/anidb/internal/anlog"
	"github.com/anidbgo/anidb/internal/metrics"
	"github.com/anidbgo/anidb/protocol"
)

// CommandSender is the subset of protocol.Client the queue needs,
// narrowed for testability without a live UDP socket.
type CommandSender interface {
	Command(ctx context.Context, command string, params map[string]string) (*protocol.Response, error)
}

// jobHeap orders Pending jobs by (NextDueAt, ID) ascending, the
// "non-decreasing (next_due_at, id) order" drain discipline spec §5
// requires.
type jobHeap []*Job

func (h jobHeap) Len() int { return len(h) }
func (h jobHeap) Less(i, j int) bool {
	if !h[i].NextDueAt.Equal(h[j].NextDueAt) {
		return h[i].NextDueAt.Before(h[j].NextDueAt)
	}
	return h[i].ID < h[j].ID
}
func (h jobHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *jobHeap) Push(x interface{}) { *h = append(*h, x.(*Job)) }
func (h *jobHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Queue is the single-threaded MyList mutation drain from spec §4.9:
// at most one job InFlight at a time, durable state transitions, and
// exponential backoff on retryable failure.
type Queue struct {
	wal     *WAL
	sender  CommandSender
	log     anlog.Logger
	metrics *metrics.Registry

	mu      sync.Mutex
	pending jobHeap
	all     map[string]*Job
}

// Open reconstructs the queue from its WAL. Any job found InFlight
// (the process crashed mid-send) reverts to Pending with its existing
// attempt count untouched — AniDB tolerates the resulting duplicate
// send via 310 FILE ALREADY IN MYLIST.
func Open(dir string, sender CommandSender, log anlog.Logger, reg *metrics.Registry) (*Queue, error) {
	wal, err := OpenWAL(dir)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = anlog.Nop
	}
	if reg == nil {
		reg = metrics.Noop()
	}

	jobs, err := wal.LoadAll()
	if err != nil {
		wal.Close()
		return nil, err
	}

	q := &Queue{wal: wal, sender: sender, log: log, metrics: reg, all: make(map[string]*Job, len(jobs))}
	heap.Init(&q.pending)
	for _, j := range jobs {
		q.all[j.ID] = j
		if j.State == EJobState.InFlight() {
			j.State = EJobState.Pending()
			if err := q.wal.Save(j); err != nil {
				wal.Close()
				return nil, err
			}
		}
		if j.State == EJobState.Pending() {
			heap.Push(&q.pending, j)
		}
	}
	q.reportBacklog()
	return q, nil
}

// Enqueue durably records a new MyList mutation and makes it
// immediately due.
func (q *Queue) Enqueue(command string, params map[string]string) (*Job, error) {
	now := time.Now()
	j := &Job{
		ID:        uuid.NewString(),
		Command:   command,
		Params:    params,
		State:     EJobState.Pending(),
		NextDueAt: now,
		CreatedAt: now,
	}
	if err := q.wal.Save(j); err != nil {
		return nil, err
	}

	q.mu.Lock()
	q.all[j.ID] = j
	heap.Push(&q.pending, j)
	q.mu.Unlock()
	q.reportBacklog()
	return j, nil
}

// Job returns the current state of a previously enqueued job, mainly
// for tests and diagnostics.
func (q *Queue) Job(id string) (*Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	j, ok := q.all[id]
	return j, ok
}

// Drain runs the single-threaded send loop until ctx is cancelled. It
// processes at most one InFlight job at a time, sleeping between due
// checks when the head of the queue isn't due yet.
func (q *Queue) Drain(ctx context.Context) error {
	for {
		j, wait := q.nextDue()
		if j == nil {
			if wait <= 0 {
				wait = time.Minute
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			continue
		}
		if err := q.process(ctx, j); err != nil {
			if err == context.Canceled || err == context.DeadlineExceeded {
				return err
			}
			q.log.Log(anlog.LevelWarning, "sync queue job processing error", anlog.F("job", j.ID), anlog.F("error", err.Error()))
		}
	}
}

// nextDue pops the earliest-due Pending job if it's ready now, else
// returns nil and how long until it will be.
func (q *Queue) nextDue() (*Job, time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.pending.Len() == 0 {
		return nil, 0
	}
	head := q.pending[0]
	wait := time.Until(head.NextDueAt)
	if wait > 0 {
		return nil, wait
	}
	return heap.Pop(&q.pending).(*Job), 0
}

func (q *Queue) process(ctx context.Context, j *Job) error {
	j.State = EJobState.InFlight()
	// Durable ack before the protocol call, per spec §4.9: a crash
	// between here and the send loses nothing — the job reverts to
	// Pending on the next Open and is resent, tolerated by 310.
	if err := q.wal.Save(j); err != nil {
		return err
	}

	resp, err := q.sender.Command(ctx, j.Command, j.Params)
	if err != nil {
		return q.retryOrDeadLetter(j, err.Error())
	}

	if resp.Code/100 == 2 || resp.Code == protocol.CodeFileAlreadyInMyList {
		j.State = EJobState.Done()
		j.LastError = ""
		if err := q.wal.Save(j); err != nil {
			return err
		}
		q.reportBacklog()
		return nil
	}

	// Any other code reaching here already survived the client's own
	// timeout/602/604/601/555/501/506 handling, so it's a MyList-level
	// rejection (e.g. no such entry) rather than a transient failure.
	j.State = EJobState.DeadLetter()
	j.LastError = resp.Text
	if err := q.wal.Save(j); err != nil {
		return err
	}
	q.metrics.SyncQueueDeadLetters.Inc()
	q.reportBacklog()
	return anerr.WithProtocolCode(resp.Code, resp.Text)
}

func (q *Queue) retryOrDeadLetter(j *Job, reason string) error {
	j.Attempts++
	j.LastError = reason
	if j.Attempts >= MaxAttempts {
		j.State = EJobState.DeadLetter()
		if err := q.wal.Save(j); err != nil {
			return err
		}
		q.metrics.SyncQueueDeadLetters.Inc()
		q.reportBacklog()
		return anerr.New(anerr.Protocol, "job %s exceeded %d attempts: %s", j.ID, MaxAttempts, reason)
	}

	bo := &backoff.Backoff{Min: 4 * time.Second, Max: time.Hour, Factor: 2, Jitter: true}
	j.State = EJobState.Pending()
	j.NextDueAt = time.Now().Add(bo.ForAttempt(float64(j.Attempts)))
	if err := q.wal.Save(j); err != nil {
		return err
	}

	q.mu.Lock()
	heap.Push(&q.pending, j)
	q.mu.Unlock()
	q.reportBacklog()
	return nil
}

func (q *Queue) reportBacklog() {
	q.mu.Lock()
	n := q.pending.Len()
	q.mu.Unlock()
	q.metrics.SyncQueueBacklog.Set(float64(n))
}

func (q *Queue) Close() error { return q.wal.Close() }
