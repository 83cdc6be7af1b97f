package transport

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"meshbbs/pkg/logger"
	"meshbbs/pkg/telemetry"
)

const (
	limiterTTL     = 10 * time.Minute
	limiterCleanup = time.Minute
)

// SendTask is one reply being delivered. Its fragments go out in order,
// spaced by the outbox delay.
type SendTask struct {
	ID       string
	To       string
	Payloads []string

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// Done is closed once every fragment was sent, failed or was cancelled.
func (t *SendTask) Done() <-chan struct{} { return t.done }

// Cancel drops the fragments not yet sent.
func (t *SendTask) Cancel() { t.cancel() }

// Outbox queues replies per destination. Each destination has at most one
// worker, so replies to one identity never interleave, and a slow radio
// link to one identity never holds up the others.
type Outbox struct {
	sender   Sender
	limiters *limiterPool

	mu     sync.Mutex
	queues map[string][]*SendTask
	tasks  map[string]*SendTask
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	stop   chan struct{}
	wg     sync.WaitGroup
}

// NewOutbox paces fragments to each destination at least delay apart. A
// zero delay sends back to back.
func NewOutbox(s Sender, delay time.Duration) *Outbox {
	ctx, cancel := context.WithCancel(context.Background())
	o := &Outbox{
		sender:   s,
		limiters: newLimiterPool(delay, limiterTTL),
		queues:   make(map[string][]*SendTask),
		tasks:    make(map[string]*SendTask),
		ctx:      ctx,
		cancel:   cancel,
		stop:     make(chan struct{}),
	}
	go o.limiters.cleanupLoop(limiterCleanup, o.stop)
	return o
}

// Enqueue schedules payloads for to. After Stop the task is returned
// already finished with every fragment counted as cancelled.
func (o *Outbox) Enqueue(to string, payloads []string) *SendTask {
	ctx, cancel := context.WithCancel(o.ctx)
	t := &SendTask{
		ID:       uuid.NewString(),
		To:       to,
		Payloads: payloads,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		cancel()
		telemetry.Fragments.WithLabelValues("cancelled").Add(float64(len(payloads)))
		close(t.done)
		return t
	}
	o.tasks[t.ID] = t
	q, busy := o.queues[to]
	o.queues[to] = append(q, t)
	if !busy {
		o.wg.Add(1)
		go o.worker(to)
	}
	o.mu.Unlock()

	logger.Debug("send_task_queued", "task", t.ID, "to", to, "fragments", len(payloads))
	return t
}

// Cancel stops the task with the given id. It reports whether the task was
// still pending.
func (o *Outbox) Cancel(id string) bool {
	o.mu.Lock()
	t, ok := o.tasks[id]
	o.mu.Unlock()
	if ok {
		t.Cancel()
	}
	return ok
}

// Pending counts unfinished tasks.
func (o *Outbox) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.tasks)
}

// Flush waits until every queued task has finished or ctx is done.
func (o *Outbox) Flush(ctx context.Context) error {
	o.mu.Lock()
	pending := make([]*SendTask, 0, len(o.tasks))
	for _, t := range o.tasks {
		pending = append(pending, t)
	}
	o.mu.Unlock()

	for _, t := range pending {
		select {
		case <-t.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Stop cancels every task and waits for the workers to exit.
func (o *Outbox) Stop() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	o.mu.Unlock()

	o.cancel()
	close(o.stop)
	o.wg.Wait()
}

func (o *Outbox) worker(to string) {
	defer o.wg.Done()
	for {
		o.mu.Lock()
		q := o.queues[to]
		if len(q) == 0 {
			delete(o.queues, to)
			o.mu.Unlock()
			return
		}
		t := q[0]
		o.queues[to] = q[1:]
		o.mu.Unlock()

		o.deliver(t)

		o.mu.Lock()
		delete(o.tasks, t.ID)
		o.mu.Unlock()
		t.cancel()
		close(t.done)
	}
}

// deliver sends t's fragments in order. A failed fragment is logged and
// the rest still go out; cancellation drops the remainder.
func (o *Outbox) deliver(t *SendTask) {
	lim := o.limiters.get(t.To)
	n := len(t.Payloads)
	for i, p := range t.Payloads {
		if err := lim.Wait(t.ctx); err != nil {
			telemetry.Fragments.WithLabelValues("cancelled").Add(float64(n - i))
			logger.Debug("send_task_cancelled", "task", t.ID, "to", t.To, "sent", i, "of", n)
			return
		}
		if err := o.sender.Send(t.ctx, t.To, p); err != nil {
			if errors.Is(err, context.Canceled) {
				telemetry.Fragments.WithLabelValues("cancelled").Add(float64(n - i))
				return
			}
			telemetry.Fragments.WithLabelValues("failed").Inc()
			logger.Warn("fragment_send_failed", "task", t.ID, "to", t.To, "index", i+1, "of", n, "error", err)
			continue
		}
		telemetry.Fragments.WithLabelValues("sent").Inc()
	}
	logger.Debug("reply_sent", "task", t.ID, "to", t.To, "fragments", n)
}
