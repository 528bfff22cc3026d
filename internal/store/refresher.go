package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Target is what the refresher drives; satisfied by *Store.
type Target interface {
	Fetch(ctx context.Context) error
	RefreshStats(ctx context.Context) error
	HasActive() bool
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

// Refresher is the level-triggered auto-refresh loop: while any listed
// shipment is active, re-fetch with the last-used filters every interval.
// There is no push channel from the backend, so polling is the mechanism.
type Refresher struct {
	target Target
	rl     RateLimiter

	interval           time.Duration
	rateLimitPerMinute int64

	triggerCh chan struct{}

	startedAtUnixNano   int64
	lastCycleUnixNano   atomic.Int64
	lastTriggerUnixNano atomic.Int64
	totalCycles         atomic.Int64
	totalSkipped        atomic.Int64
	totalErrors         atomic.Int64
	lastErrorMu         sync.Mutex
	lastError           string
}

func NewRefresher(target Target) *Refresher {
	return &Refresher{
		target:    target,
		interval:  30 * time.Second,
		triggerCh: make(chan struct{}, 1),

		startedAtUnixNano: time.Now().UTC().UnixNano(),
	}
}

func (r *Refresher) WithSettings(interval time.Duration, rl RateLimiter, rlPerMin int64) *Refresher {
	if interval > 0 {
		r.interval = interval
	}
	r.rl = rl
	if rlPerMin > 0 {
		r.rateLimitPerMinute = rlPerMin
	}
	return r
}

// Trigger forces an immediate refresh cycle (best-effort, non-blocking).
// Manual refreshes bypass the active gate: the user asked, so we fetch.
func (r *Refresher) Trigger() {
	r.lastTriggerUnixNano.Store(time.Now().UTC().UnixNano())
	select {
	case r.triggerCh <- struct{}{}:
	default:
	}
}

type RefresherStats struct {
	StartedAt     time.Time  `json:"startedAt"`
	LastCycleAt   *time.Time `json:"lastCycleAt,omitempty"`
	LastTriggerAt *time.Time `json:"lastTriggerAt,omitempty"`
	TotalCycles   int64      `json:"totalCycles"`
	TotalSkipped  int64      `json:"totalSkipped"`
	TotalErrors   int64      `json:"totalErrors"`
	LastError     string     `json:"lastError,omitempty"`
}

func (r *Refresher) Stats() RefresherStats {
	st := RefresherStats{
		StartedAt:    time.Unix(0, r.startedAtUnixNano).UTC(),
		TotalCycles:  r.totalCycles.Load(),
		TotalSkipped: r.totalSkipped.Load(),
		TotalErrors:  r.totalErrors.Load(),
	}
	if n := r.lastCycleUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastCycleAt = &t
	}
	if n := r.lastTriggerUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastTriggerAt = &t
	}
	r.lastErrorMu.Lock()
	st.LastError = r.lastError
	r.lastErrorMu.Unlock()
	return st
}

func (r *Refresher) Run(ctx context.Context) error {
	t := time.NewTicker(r.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			r.runOnce(ctx, false)
		case <-r.triggerCh:
			r.runOnce(ctx, true)
		}
	}
}

func (r *Refresher) runOnce(ctx context.Context, forced bool) {
	now := time.Now().UTC()
	r.lastCycleUnixNano.Store(now.UnixNano())

	if !forced && !r.target.HasActive() {
		r.totalSkipped.Add(1)
		return
	}

	if r.rl != nil && r.rateLimitPerMinute > 0 {
		key := fmt.Sprintf("rl:shipments:refresh:%s", now.Format("200601021504"))
		allowed, n, err := r.rl.Allow(ctx, key, r.rateLimitPerMinute, 70*time.Second)
		if err == nil && !allowed {
			slog.Warn("refresh rate limit exceeded", "count", n)
			r.totalSkipped.Add(1)
			return
		}
		// A limiter error is not a reason to stop refreshing.
	}

	r.totalCycles.Add(1)
	if err := r.target.Fetch(ctx); err != nil {
		r.recordError(err)
		slog.Error("auto refresh", "error", err.Error())
	}
	// Stats ride along with every cycle so the aggregate view tracks the list.
	if err := r.target.RefreshStats(ctx); err != nil {
		r.recordError(err)
		slog.Error("refresh stats", "error", err.Error())
	}
}

func (r *Refresher) recordError(err error) {
	r.totalErrors.Add(1)
	r.lastErrorMu.Lock()
	r.lastError = err.Error()
	r.lastErrorMu.Unlock()
}
