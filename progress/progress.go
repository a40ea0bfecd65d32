// Package progress reports hashing progress the way the teacher's
// common/ste progress types report transfer progress (common/fe-ste-models.go's
// ListJobSummaryResponse, ste's throughput counters): a small sink
// interface the pipeline pushes ticks into, rate-limited so a fast
// in-memory hash pass doesn't flood a UI with updates.
package progress

import (
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// Provider receives progress events for one file hash run. Implementations
// must not block; Sink below enforces that by collapsing bursts.
type Provider interface {
	OnFileStart(path string, size int64)
	OnBytes(path string, bytesDone int64)
	OnAlgorithmDone(path string, algo string, digest string)
	OnFileDone(path string, elapsed time.Duration)
	OnError(path string, err error)
}

type nopProvider struct{}

func (nopProvider) OnFileStart(string, int64)             {}
func (nopProvider) OnBytes(string, int64)                 {}
func (nopProvider) OnAlgorithmDone(string, string, string) {}
func (nopProvider) OnFileDone(string, time.Duration)      {}
func (nopProvider) OnError(string, error)                 {}

// Nop is the default Provider, used when the caller doesn't want progress.
var Nop Provider = nopProvider{}

// minInterval and minBytes bound how often OnBytes fires: spec §4.11 caps
// this at once per 16 KiB *and* once per 50ms, whichever is less frequent,
// so a pipeline processing many small chunks doesn't spam the sink.
const (
	minInterval = 50 * time.Millisecond
	minBytes    = 16 * 1024
)

// Sink wraps a Provider with the bounded-rate collapsing behavior. Callers
// in the hashing pipeline should always go through a Sink rather than
// calling a Provider's OnBytes directly.
type Sink struct {
	mu         sync.Mutex
	underlying Provider
	path       string
	lastTime   time.Time
	lastBytes  int64
	pending    int64
}

func NewSink(underlying Provider, path string) *Sink {
	if underlying == nil {
		underlying = Nop
	}
	return &Sink{underlying: underlying, path: path}
}

func (s *Sink) Start(size int64) {
	s.underlying.OnFileStart(s.path, size)
}

// Bytes records that bytesDone total bytes have now been processed,
// flushing to the underlying Provider only if both enough time and enough
// data have elapsed since the last flush.
func (s *Sink) Bytes(bytesDone int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = bytesDone
	now := time.Now()
	if bytesDone-s.lastBytes < minBytes || now.Sub(s.lastTime) < minInterval {
		return
	}
	s.flushLocked(now)
}

func (s *Sink) flushLocked(now time.Time) {
	s.lastBytes = s.pending
	s.lastTime = now
	s.underlying.OnBytes(s.path, s.pending)
}

// Flush forces delivery of the most recent byte count, used when a file
// finishes between the bounded-rate checkpoints.
func (s *Sink) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushLocked(time.Now())
}

func (s *Sink) AlgorithmDone(algo, digest string) {
	s.underlying.OnAlgorithmDone(s.path, algo, digest)
}

func (s *Sink) Done(elapsed time.Duration) {
	s.Flush()
	s.underlying.OnFileDone(s.path, elapsed)
}

func (s *Sink) Error(err error) {
	s.underlying.OnError(s.path, err)
}

// Humanize renders byte counts the way operator-facing logs and the CLI
// do (spec's progress output is human-readable, not raw integers).
func Humanize(bytes int64) string {
	return humanize.Bytes(uint64(bytes))
}
