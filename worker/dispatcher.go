package worker

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/xraph/intake/backend"
	"github.com/xraph/intake/job"
)

// Dispatcher processes every message of one received batch to
// completion, independently and concurrently per message. One
// message's failure never blocks or fails its siblings.
type Dispatcher struct {
	client   backend.Client
	queueURL string
	queue    string
	logger   *slog.Logger
	closed   atomic.Bool
}

// NewDispatcher creates a Dispatcher for one queue.
func NewDispatcher(client backend.Client, queueURL string, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		client:   client,
		queueURL: queueURL,
		queue:    queueName(queueURL),
		logger:   logger,
	}
}

// Process dispatches every message of the batch concurrently and
// returns when each one has settled: acknowledged, left for
// redelivery, or skipped because the dispatcher closed.
func (d *Dispatcher) Process(ctx context.Context, batch []backend.Message, h job.Handler) {
	var wg sync.WaitGroup
	for _, m := range batch {
		wg.Add(1)
		go func(m backend.Message) {
			defer wg.Done()
			d.dispatch(ctx, m, h)
		}(m)
	}
	wg.Wait()
}

// dispatch drives one message: parse, handle, acknowledge. On any
// failure the message is left alone; the backend's visibility timeout
// governs redelivery.
func (d *Dispatcher) dispatch(ctx context.Context, m backend.Message, h job.Handler) {
	if d.closed.Load() {
		return
	}

	j, err := job.Parse(m.Body)
	if err != nil {
		d.logger.Warn("discarding unparseable message",
			slog.String("queue", d.queue),
			slog.String("message_id", m.ID),
			slog.String("body", string(m.Body)),
			slog.String("error", err.Error()),
		)
		return
	}

	if err := d.invoke(ctx, j, h); err != nil {
		if !d.closed.Load() {
			d.logger.Error("job handler failed",
				slog.String("queue", d.queue),
				slog.String("message_id", m.ID),
				slog.String("job_type", j.Type),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	if d.closed.Load() {
		return
	}
	if err := d.client.Delete(ctx, d.queueURL, m.ReceiptHandle); err != nil && !d.closed.Load() {
		// Non-fatal: the message becomes visible again and is
		// reprocessed, which at-least-once semantics allow.
		d.logger.Error("failed to acknowledge message",
			slog.String("queue", d.queue),
			slog.String("message_id", m.ID),
			slog.String("error", err.Error()),
		)
	}
}

// invoke runs the handler, converting panics into handler failures so
// a panicking handler leaves its message for redelivery instead of
// crashing sibling dispatches.
func (d *Dispatcher) invoke(ctx context.Context, j *job.Job, h job.Handler) (retErr error) {
	defer func() {
		if r := recover(); r != nil {
			if !d.closed.Load() {
				d.logger.Error("job handler panicked",
					slog.String("queue", d.queue),
					slog.String("job_type", j.Type),
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())),
				)
			}
			retErr = fmt.Errorf("intake/worker: panic in handler for job %q: %v", j.Type, r)
		}
	}()
	return h(ctx, j)
}

// Close makes every subsequent dispatch path a silent no-op.
// Idempotent.
func (d *Dispatcher) Close() {
	d.closed.Store(true)
}
