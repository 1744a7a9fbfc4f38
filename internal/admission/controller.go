// Package admission gates inbound work under resource pressure. It samples
// scheduler lag, heap usage, and the number of in-flight requests, and sheds
// new work with a retry hint instead of queueing it indefinitely.
package admission

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"
)

// Config holds the shedding thresholds. Zero values fall back to defaults.
type Config struct {
	MaxLag         time.Duration
	MaxHeapBytes   uint64
	MaxInFlight    int64
	RetryAfter     time.Duration
	SampleInterval time.Duration
}

// Default thresholds.
const (
	DefaultMaxLag         = 200 * time.Millisecond
	DefaultMaxHeapBytes   = 500 << 20 // 500 MB
	DefaultMaxInFlight    = 50
	DefaultRetryAfter     = time.Second
	DefaultSampleInterval = 100 * time.Millisecond
)

// Decision is the outcome of one admission check. A rejection is a
// first-class result, not an error; RetryAfter tells the client when to
// try again.
type Decision struct {
	Accept     bool
	RetryAfter time.Duration
	Reason     string
}

// Controller samples resource signals and accepts or rejects new work.
// It is a local, per-request gate: the only cross-request state it holds
// is the count of concurrently open requests.
type Controller struct {
	cfg Config

	lagNanos  atomic.Int64
	heapBytes atomic.Uint64
	inFlight  atomic.Int64
}

// New creates a controller, applying defaults for unset thresholds.
func New(cfg Config) *Controller {
	if cfg.MaxLag <= 0 {
		cfg.MaxLag = DefaultMaxLag
	}
	if cfg.MaxHeapBytes == 0 {
		cfg.MaxHeapBytes = DefaultMaxHeapBytes
	}
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = DefaultMaxInFlight
	}
	if cfg.RetryAfter <= 0 {
		cfg.RetryAfter = DefaultRetryAfter
	}
	if cfg.SampleInterval <= 0 {
		cfg.SampleInterval = DefaultSampleInterval
	}
	return &Controller{cfg: cfg}
}

// Sample runs the resource sampler until ctx is cancelled. Scheduler lag is
// measured as ticker-wakeup drift: how much later than the configured
// interval each tick arrives.
func (c *Controller) Sample(ctx context.Context) {
	t := time.NewTicker(c.cfg.SampleInterval)
	defer t.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			lag := now.Sub(last) - c.cfg.SampleInterval
			if lag < 0 {
				lag = 0
			}
			c.lagNanos.Store(int64(lag))

			var ms runtime.MemStats
			runtime.ReadMemStats(&ms)
			c.heapBytes.Store(ms.HeapAlloc)

			metricsFor().lag.Set(lag.Seconds())
			metricsFor().heap.Set(float64(ms.HeapAlloc))

			last = now
		}
	}
}

// Check decides whether new work may start right now.
func (c *Controller) Check() Decision {
	reject := func(reason string) Decision {
		return Decision{RetryAfter: c.cfg.RetryAfter, Reason: reason}
	}
	if lag := time.Duration(c.lagNanos.Load()); lag > c.cfg.MaxLag {
		return reject("scheduler lag")
	}
	if heap := c.heapBytes.Load(); heap > c.cfg.MaxHeapBytes {
		return reject("memory pressure")
	}
	if c.inFlight.Load() >= c.cfg.MaxInFlight {
		return reject("in-flight limit")
	}
	return Decision{Accept: true}
}

// Begin registers an accepted request. Callers must pair it with Done.
func (c *Controller) Begin() {
	metricsFor().inFlight.Set(float64(c.inFlight.Add(1)))
}

// Done releases an in-flight slot.
func (c *Controller) Done() {
	metricsFor().inFlight.Set(float64(c.inFlight.Add(-1)))
}

// InFlight returns the current number of open requests.
func (c *Controller) InFlight() int64 {
	return c.inFlight.Load()
}

// Middleware gates an HTTP route. A rejected request is answered with 429
// and a machine-readable retry hint; nothing else is mutated, so a shed
// request is a full no-op.
func (c *Controller) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := c.Check()
		if !d.Accept {
			metricsFor().rejected.WithLabelValues(d.Reason).Inc()
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(d.RetryAfter.Seconds()))))
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error":          "server overloaded",
				"reason":         d.Reason,
				"retry_after_ms": d.RetryAfter.Milliseconds(),
			})
			return
		}
		metricsFor().accepted.Inc()
		c.Begin()
		defer c.Done()
		next.ServeHTTP(w, r)
	})
}

// setLag and setHeap inject sampled values directly; used by tests.
func (c *Controller) setLag(lag time.Duration) { c.lagNanos.Store(int64(lag)) }
func (c *Controller) setHeap(bytes uint64)     { c.heapBytes.Store(bytes) }
