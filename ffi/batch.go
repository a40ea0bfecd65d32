package ffi

import (
	"context"

	"github.com/anidbgo/anidb/internal/anlog"
	"github.com/anidbgo/anidb/internal/metrics"
	"github.com/anidbgo/anidb/syncqueue"
)

// BatchNew opens the durable MyList mutation queue rooted at dir,
// draining through the protocol.Client behind clientHandle. The queue
// keeps its own reference to the client, so clientHandle must outlive
// the batch.
func BatchNew(dir string, clientHandle Handle) (Handle, ResultCode) {
	c, rc := lookupClient(clientHandle)
	if rc != ResultOK {
		return 0, rc
	}
	q, err := syncqueue.Open(dir, c, anlog.Nop, metrics.Noop())
	if err != nil {
		return 0, FromError(err)
	}
	return batches.register(q), ResultOK
}

// BatchFree closes the queue's WAL handle. It does not touch the
// client the queue drains through; free that separately with
// ClientFree.
func BatchFree(h Handle) ResultCode {
	obj, ok := batches.lookup(h)
	if !ok {
		return ResultInvalidHandle
	}
	batches.free(h)
	if err := obj.(*syncqueue.Queue).Close(); err != nil {
		return FromError(err)
	}
	return ResultOK
}

func lookupBatch(h Handle) (*syncqueue.Queue, ResultCode) {
	obj, ok := batches.lookup(h)
	if !ok {
		return nil, ResultInvalidHandle
	}
	return obj.(*syncqueue.Queue), ResultOK
}

// BatchEnqueue durably records a MyList mutation job and returns its
// queue-assigned ID.
func BatchEnqueue(h Handle, command string, params map[string]string) (string, ResultCode) {
	q, rc := lookupBatch(h)
	if rc != ResultOK {
		return "", rc
	}
	j, err := q.Enqueue(command, params)
	if err != nil {
		return "", FromError(err)
	}
	return j.ID, ResultOK
}

// BatchDrain runs the queue's drain loop until ctx is cancelled. It is
// intended to run on a dedicated worker thread on the caller's side of
// the boundary; it blocks for the lifetime of the batch.
func BatchDrain(ctx context.Context, h Handle) ResultCode {
	q, rc := lookupBatch(h)
	if rc != ResultOK {
		return rc
	}
	if err := q.Drain(ctx); err != nil {
		return FromError(err)
	}
	return ResultOK
}

// JobStatus is the ABI-safe mirror of one syncqueue.Job's externally
// relevant fields.
type JobStatus struct {
	ID        string
	State     string
	Attempts  int
	LastError string
}

// BatchJobStatus reports the current state of a previously enqueued
// job, or ResultNotFound if id is unknown to this batch.
func BatchJobStatus(h Handle, id string) (JobStatus, ResultCode) {
	q, rc := lookupBatch(h)
	if rc != ResultOK {
		return JobStatus{}, rc
	}
	j, ok := q.Job(id)
	if !ok {
		return JobStatus{}, ResultNotFound
	}
	return JobStatus{ID: j.ID, State: j.State.String(), Attempts: j.Attempts, LastError: j.LastError}, ResultOK
}
