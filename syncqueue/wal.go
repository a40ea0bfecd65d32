package syncqueue

import (
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/anidbgo/anidb/anerr"
)

// jobWire is Job's durable envelope. Timestamps travel as unix nanos
// rather than time.Time directly, the same choice cache/leveldbbackend.go
// makes, to keep the wire format independent of any particular CBOR
// library's time-tag behavior.
type jobWire struct {
	ID        string            `cbor:"id"`
	Command   string            `cbor:"command"`
	Params    map[string]string `cbor:"params"`
	State     uint8             `cbor:"state"`
	Attempts  int               `cbor:"attempts"`
	NextDueAt int64             `cbor:"next_due_at"`
	CreatedAt int64             `cbor:"created_at"`
	LastError string            `cbor:"last_error"`
}

func toWire(j *Job) jobWire {
	return jobWire{
		ID: j.ID, Command: j.Command, Params: j.Params,
		State: uint8(j.State), Attempts: j.Attempts,
		NextDueAt: j.NextDueAt.UnixNano(), CreatedAt: j.CreatedAt.UnixNano(),
		LastError: j.LastError,
	}
}

func fromWire(w jobWire) *Job {
	return &Job{
		ID: w.ID, Command: w.Command, Params: w.Params,
		State: JobState(w.State), Attempts: w.Attempts,
		NextDueAt: time.Unix(0, w.NextDueAt), CreatedAt: time.Unix(0, w.CreatedAt),
		LastError: w.LastError,
	}
}

// WAL is the durable job store: an embedded KV database keyed by job
// ID, one entry per job, rewritten in place on every state transition.
// Grounded on cache/leveldbbackend.go's use of goleveldb + cbor for the
// same "small records, frequent overwrite" access pattern.
type WAL struct {
	db *leveldb.DB
}

// OpenWAL opens (creating if absent) the durable job log at dir.
func OpenWAL(dir string) (*WAL, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, anerr.Wrap(err, anerr.Cache, "open sync queue WAL at %s", dir)
	}
	return &WAL{db: db}, nil
}

// Save durably persists job's current state. Callers must call this
// before any protocol call the job's transition gates, per spec §4.9's
// "acknowledged durably before the protocol call".
func (w *WAL) Save(j *Job) error {
	raw, err := cbor.Marshal(toWire(j))
	if err != nil {
		return anerr.Wrap(err, anerr.Cache, "encode job %s", j.ID)
	}
	if err := w.db.Put([]byte(j.ID), raw, nil); err != nil {
		return anerr.Wrap(err, anerr.Cache, "persist job %s", j.ID)
	}
	return nil
}

// Delete removes a job's record entirely (used only for Done jobs that
// the caller has chosen to garbage-collect; DeadLetter jobs are kept).
func (w *WAL) Delete(id string) error {
	if err := w.db.Delete([]byte(id), nil); err != nil {
		return anerr.Wrap(err, anerr.Cache, "delete job %s", id)
	}
	return nil
}

// LoadAll returns every persisted job, used to rebuild the in-memory
// queue index on startup so a crash never silently drops work.
func (w *WAL) LoadAll() ([]*Job, error) {
	iter := w.db.NewIterator(nil, nil)
	defer iter.Release()

	var jobs []*Job
	for iter.Next() {
		var wire jobWire
		if err := cbor.Unmarshal(iter.Value(), &wire); err != nil {
			return nil, anerr.Wrap(err, anerr.Cache, "decode job %s", string(iter.Key()))
		}
		jobs = append(jobs, fromWire(wire))
	}
	if err := iter.Error(); err != nil {
		return nil, anerr.Wrap(err, anerr.Cache, "iterate sync queue WAL")
	}
	return jobs, nil
}

func (w *WAL) Close() error { return w.db.Close() }
