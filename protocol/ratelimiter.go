package protocol

import (
	"context"
	"sync"
	"time"

	"github.com/anidbgo/anidb/internal/metrics"
)

// shortTermInterval/longTermWindow implement spec §4.6's mandatory
// single token bucket: after the first 5 packets, ≤0.5 packets/s
// (one per 2s); over any 10-minute window, ≤0.25 packets/s. Grounded on
// ste/pacer-tokenBucketPacer.go's token-bucket shape, generalized from
// continuous byte throughput to discrete packet admission with a
// rolling-window long-term cap layered on top.
const (
	burstAllowance     = 5
	shortTermInterval  = 2 * time.Second
	longTermWindow     = 10 * time.Minute
	longTermMaxPackets = int(longTermWindow / (4 * time.Second)) // 0.25 pkt/s
)

// RateLimiter serializes outbound packet admission for one ProtocolClient.
// All sends — including retries — go through Admit.
type RateLimiter struct {
	mu        sync.Mutex
	sent      int
	nextSlot  time.Time
	window    []time.Time // send timestamps within the last longTermWindow
	metrics   *metrics.Registry
	queueSize int64
}

func NewRateLimiter(m *metrics.Registry) *RateLimiter {
	return &RateLimiter{metrics: m}
}

// Admit blocks until the calling packet is allowed to send, or ctx is
// done. Packets are queued and delayed, never dropped, per spec §4.6.
func (r *RateLimiter) Admit(ctx context.Context) error {
	r.mu.Lock()
	r.queueSize++
	if r.metrics != nil {
		r.metrics.RateLimiterQueueDepth.Set(float64(r.queueSize))
	}
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.queueSize--
		if r.metrics != nil {
			r.metrics.RateLimiterQueueDepth.Set(float64(r.queueSize))
		}
		r.mu.Unlock()
	}()

	for {
		r.mu.Lock()
		now := time.Now()
		r.pruneWindowLocked(now)

		wait := time.Duration(0)
		if r.sent >= burstAllowance && now.Before(r.nextSlot) {
			wait = r.nextSlot.Sub(now)
		}
		if len(r.window) >= longTermMaxPackets {
			oldest := r.window[0]
			untilFree := oldest.Add(longTermWindow).Sub(now)
			if untilFree > wait {
				wait = untilFree
			}
		}

		if wait <= 0 {
			r.sent++
			r.nextSlot = now.Add(shortTermInterval)
			r.window = append(r.window, now)
			r.mu.Unlock()
			return nil
		}
		r.mu.Unlock()

		if r.metrics != nil {
			r.metrics.RateLimiterDelayedTotal.Inc()
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// pruneWindowLocked drops timestamps older than longTermWindow. Caller
// holds r.mu.
func (r *RateLimiter) pruneWindowLocked(now time.Time) {
	cutoff := now.Add(-longTermWindow)
	i := 0
	for i < len(r.window) && r.window[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		r.window = r.window[i:]
	}
}
