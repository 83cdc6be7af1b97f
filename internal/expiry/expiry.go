// Package expiry evicts idle sessions on a cron schedule.
package expiry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/adhocore/gronx"

	"meshbbs/pkg/logger"
	"meshbbs/pkg/session"
	"meshbbs/pkg/telemetry"
)

// Sweeper runs Store.Sweep whenever Cron ticks. An evicted identity is
// treated as first contact on its next packet.
type Sweeper struct {
	store *session.Store
	ttl   time.Duration
	cron  string
	now   func() time.Time

	mu      sync.Mutex
	running bool
}

func New(store *session.Store, ttl time.Duration, cron string) (*Sweeper, error) {
	if !gronx.New().IsValid(cron) {
		return nil, fmt.Errorf("invalid sweep cron %q", cron)
	}
	return &Sweeper{store: store, ttl: ttl, cron: cron, now: time.Now}, nil
}

// Start launches the schedule loop. A zero ttl disables eviction and
// returns a no-op cancel.
func (sw *Sweeper) Start(ctx context.Context) context.CancelFunc {
	if sw.ttl <= 0 {
		logger.Info("session_expiry_disabled")
		return func() {}
	}
	ctx2, cancel := context.WithCancel(ctx)
	logger.Info("session_expiry_enabled", "cron", sw.cron, "idle_ttl", sw.ttl.String())
	go sw.scheduleLoop(ctx2)
	return cancel
}

func (sw *Sweeper) scheduleLoop(ctx context.Context) {
	for {
		next, err := gronx.NextTickAfter(sw.cron, sw.now(), false)
		if err != nil {
			logger.Error("session_expiry_nexttick_failed", "cron", sw.cron, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		wait := next.Sub(sw.now())
		if wait <= 0 {
			sw.runJob()
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case <-time.After(wait):
			sw.runJob()
		case <-ctx.Done():
			return
		}
	}
}

func (sw *Sweeper) runJob() {
	sw.mu.Lock()
	if sw.running {
		sw.mu.Unlock()
		return
	}
	sw.running = true
	sw.mu.Unlock()

	defer func() {
		sw.mu.Lock()
		sw.running = false
		sw.mu.Unlock()
	}()

	sw.RunOnce()
}

// RunOnce sweeps immediately and returns the number of evicted sessions.
func (sw *Sweeper) RunOnce() int {
	evicted := sw.store.Sweep(sw.ttl)
	active := sw.store.Len()
	telemetry.SessionsEvicted.Add(float64(evicted))
	telemetry.SessionsActive.Set(float64(active))
	if evicted > 0 {
		logger.Info("session_expiry_run_done", "evicted", evicted, "active", active)
	} else {
		logger.Debug("session_expiry_run_done", "evicted", 0, "active", active)
	}
	return evicted
}
