// Package worker provides the consumption engine: a Pool that keeps a
// fixed number of long-poll receive cycles in flight against the
// backend, and a Dispatcher that drives every message of a received
// batch through parse, handler, and acknowledgment.
package worker

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xraph/intake/backend"
	"github.com/xraph/intake/budget"
	"github.com/xraph/intake/job"
)

// Pool keeps exactly budget.Workers long-poll cycles outstanding until
// closed. Each cycle receives one batch, hands it to the Dispatcher,
// and on settling triggers a top-up pass; a heartbeat ticker triggers
// the same pass on a fixed interval so a silently lost cycle is
// replaced within one heartbeat rather than never.
type Pool struct {
	client     backend.Client
	queueURL   string
	queue      string
	budget     budget.Budget
	wait       time.Duration
	heartbeat  time.Duration
	logger     *slog.Logger
	dispatcher *Dispatcher

	handler job.Handler

	// inFlight counts outstanding receive cycles. Slots are reserved
	// with CompareAndSwap in pass so concurrent passes never launch
	// more than budget.Workers cycles.
	inFlight atomic.Int32
	closed   atomic.Bool
	stopCh   chan struct{}
	wg       sync.WaitGroup

	mu      sync.Mutex
	running bool
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithWaitTime sets the long-poll wait per receive call.
func WithWaitTime(d time.Duration) PoolOption {
	return func(p *Pool) { p.wait = d }
}

// WithHeartbeatInterval sets how often the pool re-checks that enough
// cycles are in flight, independent of cycle completions.
func WithHeartbeatInterval(d time.Duration) PoolOption {
	return func(p *Pool) { p.heartbeat = d }
}

// NewPool creates a consumption pool for one queue.
func NewPool(
	client backend.Client,
	queueURL string,
	b budget.Budget,
	logger *slog.Logger,
	opts ...PoolOption,
) *Pool {
	p := &Pool{
		client:    client,
		queueURL:  queueURL,
		queue:     queueName(queueURL),
		budget:    b,
		wait:      10 * time.Second,
		heartbeat: 10 * time.Second,
		logger:    logger,
		stopCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.dispatcher = NewDispatcher(client, queueURL, logger)
	return p
}

// InFlight returns the number of currently outstanding receive cycles.
func (p *Pool) InFlight() int { return int(p.inFlight.Load()) }

// Closed reports whether Close has been called.
func (p *Pool) Closed() bool { return p.closed.Load() }

// Start stores the handler, launches the first orchestration pass, and
// arms the heartbeat. Starting twice, or after Close, is a no-op.
func (p *Pool) Start(h job.Handler) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed.Load() || p.running {
		return nil
	}
	p.running = true
	p.handler = h

	p.logger.Info("consumption starting",
		slog.String("queue", p.queue),
		slog.Int("concurrency", p.budget.Limit),
		slog.Int("workers", p.budget.Workers),
		slog.Int("batch_size", p.budget.BatchSize),
	)

	p.pass()

	p.wg.Add(1)
	go p.heartbeatLoop()

	return nil
}

// pass tops the pool back up to budget.Workers outstanding cycles.
// Runs on Start, on every cycle settling, and on every heartbeat tick.
// A permanent no-op once the pool is closed.
func (p *Pool) pass() {
	if p.closed.Load() {
		return
	}
	for {
		n := p.inFlight.Load()
		if int(n) >= p.budget.Workers {
			return
		}
		if p.inFlight.CompareAndSwap(n, n+1) {
			p.wg.Add(1)
			go p.cycle()
		}
	}
}

// cycle performs one receive-dispatch round trip. The receive context
// is never cancelled: closing the pool leaves in-flight network calls
// to settle naturally and only suppresses their side effects.
func (p *Pool) cycle() {
	defer p.wg.Done()
	defer p.settle()

	msgs, err := p.client.Receive(context.Background(), p.queueURL, p.budget.BatchSize, p.wait)
	if err != nil {
		if !p.closed.Load() {
			p.logger.Error("receive failed",
				slog.String("queue", p.queue),
				slog.String("error", err.Error()),
			)
		}
		return
	}
	if len(msgs) == 0 || p.closed.Load() {
		return
	}

	p.dispatcher.Process(context.Background(), msgs, p.handler)
}

// settle releases the cycle's slot and immediately relaunches. This is
// what turns the fixed pool into a perpetual polling loop without
// busy-waiting.
func (p *Pool) settle() {
	p.inFlight.Add(-1)
	p.pass()
}

func (p *Pool) heartbeatLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.pass()
		}
	}
}

// Close makes every orchestration and dispatch path an inert no-op and
// stops the heartbeat. Idempotent. Outstanding receive calls are not
// aborted; they settle, decrement the in-flight count, and go quiet.
func (p *Pool) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(p.stopCh)
	p.dispatcher.Close()
	return nil
}

// queueName derives a short queue path for log lines from the full
// queue URL (account/queue-name for SQS-style URLs).
func queueName(queueURL string) string {
	trimmed := queueURL
	if i := strings.Index(trimmed, "://"); i >= 0 {
		trimmed = trimmed[i+3:]
	}
	if i := strings.Index(trimmed, "/"); i >= 0 && i+1 < len(trimmed) {
		return trimmed[i+1:]
	}
	return trimmed
}
