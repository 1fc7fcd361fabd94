package intake

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/xraph/intake/backend"
	"github.com/xraph/intake/budget"
	"github.com/xraph/intake/job"
	"github.com/xraph/intake/worker"
)

// Job is the application payload carried in a message body.
type Job = job.Job

// Handler processes one delivered job. Returning nil acknowledges the
// delivery; returning an error (or panicking) leaves it on the queue
// for redelivery.
type Handler = job.Handler

// HandlerFor wraps a typed handler; the job's Data field is
// JSON-unmarshaled into T before the typed handler runs.
func HandlerFor[T any](fn func(ctx context.Context, j *Job, data T) error) Handler {
	return job.HandlerFor(fn)
}

// PurgeMarker must appear in a queue URL for Purge to proceed.
const PurgeMarker = "-purgeable"

// Consumer is the public surface of the engine: one queue, one
// handler, one concurrency budget.
type Consumer struct {
	queueURL string
	queue    string
	config   Config
	logger   *slog.Logger
	budget   budget.Budget
	pool     *worker.Pool

	mu      sync.Mutex
	client  backend.Client
	started bool
	closed  atomic.Bool
}

// New creates a Consumer. Configuration problems (empty queue URL,
// nil client or logger, a concurrency limit that cannot be spread
// across ten-message workers) fail here, not at first fetch.
func New(queueURL string, client backend.Client, logger *slog.Logger, opts ...Option) (*Consumer, error) {
	if queueURL == "" {
		return nil, ErrNoQueueURL
	}
	if client == nil {
		return nil, ErrNoBackend
	}
	if logger == nil {
		return nil, ErrNilLogger
	}

	c := &Consumer{
		queueURL: queueURL,
		queue:    queuePath(queueURL),
		config:   DefaultConfig(),
		logger:   logger,
		client:   client,
	}
	for _, opt := range opts {
		opt(c)
	}

	b, err := budget.New(c.config.Concurrency)
	if err != nil {
		return nil, err
	}
	c.budget = b

	c.pool = worker.NewPool(client, queueURL, b, logger,
		worker.WithWaitTime(c.config.WaitTime),
		worker.WithHeartbeatInterval(c.config.HeartbeatInterval),
	)
	return c, nil
}

// Init confirms the queue is reachable and logs its approximate depth.
// No retry: the caller decides what a failed initialization means.
func (c *Consumer) Init(ctx context.Context) error {
	client, err := c.backendClient()
	if err != nil {
		return err
	}

	attrs, err := client.GetAttributes(ctx, c.queueURL)
	if err != nil {
		return fmt.Errorf("intake: initialize queue %s: %w", c.queue, err)
	}

	c.logger.Info("queue reachable",
		slog.String("queue", c.queue),
		slog.Int("approximate_depth", attrs.ApproximateDepth),
		slog.Int("batch_size", c.budget.BatchSize),
	)
	return nil
}

// Enqueue sends one job to the queue. One-shot; no consumption needs
// to be running.
func (c *Consumer) Enqueue(ctx context.Context, j *Job) error {
	client, err := c.backendClient()
	if err != nil {
		return err
	}

	body, err := job.Marshal(j)
	if err != nil {
		return err
	}

	id, err := client.Send(ctx, c.queueURL, body)
	if err != nil {
		return fmt.Errorf("intake: enqueue to %s: %w", c.queue, err)
	}

	c.logger.Info("job enqueued",
		slog.String("queue", c.queue),
		slog.String("message_id", id),
		slog.String("job_type", j.Type),
	)
	return nil
}

// Start begins consumption with the given handler. Starting twice is a
// no-op; starting after Close is a silent no-op, per the disposal
// contract.
func (c *Consumer) Start(h Handler) error {
	if h == nil {
		return ErrNilHandler
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() || c.started {
		return nil
	}
	c.started = true
	return c.pool.Start(h)
}

// Purge removes every message from the queue. Administrative, and
// deliberately hard to reach: the queue URL must contain PurgeMarker.
func (c *Consumer) Purge(ctx context.Context) error {
	client, err := c.backendClient()
	if err != nil {
		return err
	}
	if !strings.Contains(c.queueURL, PurgeMarker) {
		return fmt.Errorf("%w: %s", ErrNotPurgeable, c.queue)
	}

	if err := client.Purge(ctx, c.queueURL); err != nil {
		return fmt.Errorf("intake: purge %s: %w", c.queue, err)
	}
	c.logger.Warn("queue purged", slog.String("queue", c.queue))
	return nil
}

// Close tears the consumer down. Idempotent. Orchestration stops, the
// heartbeat is cancelled, and any cycle still in flight settles as a
// silent no-op. A closed consumer never errors just because a stale
// operation resolves after teardown.
func (c *Consumer) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := c.pool.Close(); err != nil {
		return err
	}

	c.mu.Lock()
	c.client = nil
	c.mu.Unlock()
	return nil
}

// backendClient returns the client handle, or ErrClosed once Close has
// released it.
func (c *Consumer) backendClient() (backend.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() || c.client == nil {
		return nil, ErrClosed
	}
	return c.client, nil
}

// queuePath derives a short path for log lines from the queue URL
// (account/queue-name for SQS-style URLs).
func queuePath(queueURL string) string {
	u, err := url.Parse(queueURL)
	if err != nil || u.Path == "" {
		return queueURL
	}
	return strings.TrimPrefix(u.Path, "/")
}
