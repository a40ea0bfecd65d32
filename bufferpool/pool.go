// Package bufferpool implements the size-classed, budget-limited
// buffer pool from spec §4.1. It generalizes the teacher's
// common/multiSizeSlicePool.go (a power-of-2-slotted sync.Pool) to a
// fixed set of named size classes, and its common/cacheLimiter.go
// (atomic strict/relaxed budget) to track outstanding bytes against a
// configurable global limit.
package bufferpool

import (
	"sync"
	"sync/atomic"

	"github.com/anidbgo/anidb/anerr"
	"github.com/anidbgo/anidb/internal/metrics"
)

// Class identifies one of the fixed buffer size classes spec §4.1
// names. Classes are in bytes.
type Class uint32

const (
	Class1KiB   Class = 1 << 10
	Class4KiB   Class = 4 << 10
	Class16KiB  Class = 16 << 10
	Class64KiB  Class = 64 << 10
	Class256KiB Class = 256 << 10
	Class1MiB   Class = 1 << 20
	Class9_5MiB Class = 9_728_000 // matches hashing.ChunkBytes exactly
)

// classes lists every valid class in ascending order; Acquire rounds
// an arbitrary request up to the smallest class that fits it.
var classes = []Class{Class1KiB, Class4KiB, Class16KiB, Class64KiB, Class256KiB, Class1MiB, Class9_5MiB}

// Pressure is the 4-level signal derived from used/limit.
type Pressure int

const (
	Low Pressure = iota
	Medium
	High
	Critical
)

func (p Pressure) String() string {
	switch p {
	case Medium:
		return "Medium"
	case High:
		return "High"
	case Critical:
		return "Critical"
	default:
		return "Low"
	}
}

// DefaultLimit is the default global memory budget (spec §4.1).
const DefaultLimit = 500 * 1024 * 1024

// DefaultMaxFreePerClass is K in spec §4.1: the most free buffers a
// class holds onto before surplus returns are simply dropped.
const DefaultMaxFreePerClass = 10

// PressureObserver is notified when the pool's pressure level
// changes; Critical causes the pool to additionally drop its free
// lists. Pool metrics are not reported through this interface; they come
// from the metrics.Registry passed in Config.Metrics.
type PressureObserver interface {
	OnPressure(p Pressure)
}

// Handle is the RAII-style scoped buffer spec §4.1 describes: callers
// must call Release on every code path, including failure, or the
// buffer leaks out of accounting (never out of memory, since Go GCs
// the slice regardless — but the budget would never recover).
type Handle struct {
	pool  *Pool
	class Class
	buf   []byte
}

// Bytes returns the underlying buffer. It is valid only until Release.
func (h *Handle) Bytes() []byte { return h.buf }

// Release returns the buffer to its class pool and frees its budget
// reservation. Calling Release twice is a no-op.
func (h *Handle) Release() {
	if h == nil || h.buf == nil {
		return
	}
	h.pool.release(h.class, h.buf)
	h.buf = nil
}

type classPool struct {
	free     chan []byte // bounded to DefaultMaxFreePerClass: overflow is dropped
	size     Class
}

// Pool is the concrete buffer pool. It is safe for concurrent use. Free
// buffers are sharded into per-class channels and the byte budget is an
// atomic counter, but every Acquire and Release also briefly takes the
// pool-wide mutex to read or update the pressure level.
type Pool struct {
	limit      int64
	used       int64 // atomic
	maxFree    int
	classPools map[Class]*classPool

	mu       sync.Mutex // guards pressure transitions + observer list
	pressure Pressure
	observers []PressureObserver
	metrics  *metrics.Registry
}

// Config controls Pool construction.
type Config struct {
	Limit           int64 // bytes; 0 means DefaultLimit
	MaxFreePerClass int   // 0 means DefaultMaxFreePerClass
	Metrics         *metrics.Registry
}

// New builds a Pool ready for concurrent use.
func New(cfg Config) *Pool {
	limit := cfg.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	maxFree := cfg.MaxFreePerClass
	if maxFree <= 0 {
		maxFree = DefaultMaxFreePerClass
	}
	p := &Pool{
		limit:      limit,
		maxFree:    maxFree,
		classPools: make(map[Class]*classPool, len(classes)),
		metrics:    cfg.Metrics,
	}
	for _, c := range classes {
		p.classPools[c] = &classPool{free: make(chan []byte, maxFree), size: c}
	}
	return p
}

// Subscribe registers an observer notified on pressure transitions.
func (p *Pool) Subscribe(o PressureObserver) {
	p.mu.Lock()
	p.observers = append(p.observers, o)
	p.mu.Unlock()
}

func classFor(desired uint32) (Class, error) {
	for _, c := range classes {
		if uint32(c) >= desired {
			return c, nil
		}
	}
	return 0, anerr.New(anerr.InvalidParameter, "requested buffer size %d exceeds largest class %d", desired, classes[len(classes)-1])
}

// Acquire reserves the full size of the smallest class that fits
// desiredSize against the budget and returns a Handle from that class. It fails with OutOfMemory
// if admitting the request would exceed the configured limit.
func (p *Pool) Acquire(desiredSize uint32) (*Handle, error) {
	class, err := classFor(desiredSize)
	if err != nil {
		return nil, err
	}

	if !p.tryReserve(int64(class)) {
		if p.metrics != nil {
			p.metrics.BufferPoolOOMTotal.Inc()
		}
		return nil, anerr.New(anerr.OutOfMemory, "buffer pool limit %d exceeded requesting class %d", p.limit, class)
	}

	cp := p.classPools[class]
	var buf []byte
	select {
	case buf = <-cp.free:
		buf = buf[:desiredSize]
	default:
		buf = make([]byte, desiredSize, class)
	}

	return &Handle{pool: p, class: class, buf: buf}, nil
}

func (p *Pool) tryReserve(n int64) bool {
	newUsed := atomic.AddInt64(&p.used, n)
	if newUsed > p.limit {
		atomic.AddInt64(&p.used, -n)
		return false
	}
	p.updatePressure(newUsed)
	return true
}

func (p *Pool) release(class Class, buf []byte) {
	cp := p.classPools[class]

	dropFree := p.currentPressure() == Critical
	if !dropFree {
		select {
		case cp.free <- buf[:0:class]:
		default:
			// class free list is full; let it be GC'd
		}
	}

	newUsed := atomic.AddInt64(&p.used, -int64(class))
	p.updatePressure(newUsed)
}

func (p *Pool) currentPressure() Pressure {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pressure
}

func (p *Pool) updatePressure(used int64) {
	ratio := float64(used) / float64(p.limit)
	var next Pressure
	switch {
	case ratio >= 0.9:
		next = Critical
	case ratio >= 0.75:
		next = High
	case ratio >= 0.5:
		next = Medium
	default:
		next = Low
	}

	if p.metrics != nil {
		p.metrics.BufferPoolBytesInUse.Set(float64(used))
		p.metrics.BufferPoolPressureLevel.Set(float64(next))
	}

	p.mu.Lock()
	changed := next != p.pressure
	p.pressure = next
	observers := p.observers
	p.mu.Unlock()

	if !changed {
		return
	}
	for _, o := range observers {
		o.OnPressure(next)
	}
	if next == Critical {
		p.dropFreeLists()
	}
}

// dropFreeLists empties every class's free list; called when pressure
// reaches Critical, per spec §4.1.
func (p *Pool) dropFreeLists() {
	for _, cp := range p.classPools {
		drained := false
		for !drained {
			select {
			case <-cp.free:
			default:
				drained = true
			}
		}
	}
}

// Used reports current outstanding bytes.
func (p *Pool) Used() int64 { return atomic.LoadInt64(&p.used) }

// Limit reports the configured budget.
func (p *Pool) Limit() int64 { return p.limit }
