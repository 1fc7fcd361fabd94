// Package memory implements backend.Client entirely in memory, with
// visibility-timeout simulation. Safe for concurrent access. Intended
// for unit testing and development.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xraph/intake/backend"
)

// Compile-time interface check.
var _ backend.Client = (*Backend)(nil)

const pollEvery = 5 * time.Millisecond

// message is one stored message. A message is visible when inFlight is
// false or its visibility deadline has passed.
type message struct {
	id        string
	body      []byte
	receipt   string
	inFlight  bool
	visibleAt time.Time
}

// queueState holds one queue's messages in arrival order.
type queueState struct {
	messages []*message
}

// Backend is an in-memory queue backend.
type Backend struct {
	mu         sync.Mutex
	queues     map[string]*queueState
	visibility time.Duration

	// Instrumentation read back by tests.
	receiving       int
	maxReceiving    int
	maxBatchAsked   int
	deliveredCount  int
	deletedCount    int
	receiveFailures func() error
}

// Option configures the Backend.
type Option func(*Backend)

// WithVisibilityTimeout sets how long a received message stays hidden
// before it becomes eligible for redelivery. Default 30s.
func WithVisibilityTimeout(d time.Duration) Option {
	return func(b *Backend) { b.visibility = d }
}

// WithReceiveError injects an error source consulted on every Receive.
// A nil return lets the receive proceed. Test hook.
func WithReceiveError(fn func() error) Option {
	return func(b *Backend) { b.receiveFailures = fn }
}

// New returns a new empty Backend.
func New(opts ...Option) *Backend {
	b := &Backend{
		queues:     make(map[string]*queueState),
		visibility: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Backend) queue(queueURL string) *queueState {
	q, ok := b.queues[queueURL]
	if !ok {
		q = &queueState{}
		b.queues[queueURL] = q
	}
	return q
}

// GetAttributes reports the number of currently visible messages.
func (b *Backend) GetAttributes(_ context.Context, queueURL string) (backend.Attributes, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	depth := 0
	for _, m := range b.queue(queueURL).messages {
		if visible(m, now) {
			depth++
		}
	}
	return backend.Attributes{ApproximateDepth: depth}, nil
}

// Send stores a message and returns its generated ID.
func (b *Backend) Send(_ context.Context, queueURL string, body []byte) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	m := &message{id: uuid.NewString(), body: append([]byte(nil), body...)}
	q := b.queue(queueURL)
	q.messages = append(q.messages, m)
	return m.id, nil
}

// Receive long-polls for up to max visible messages. Each returned
// delivery gets a fresh receipt handle and is hidden for the
// configured visibility timeout.
func (b *Backend) Receive(ctx context.Context, queueURL string, max int, wait time.Duration) ([]backend.Message, error) {
	b.mu.Lock()
	if b.receiveFailures != nil {
		if err := b.receiveFailures(); err != nil {
			b.mu.Unlock()
			return nil, err
		}
	}
	b.receiving++
	if b.receiving > b.maxReceiving {
		b.maxReceiving = b.receiving
	}
	if max > b.maxBatchAsked {
		b.maxBatchAsked = max
	}
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.receiving--
		b.mu.Unlock()
	}()

	deadline := time.Now().Add(wait)
	for {
		if batch := b.claim(queueURL, max); len(batch) > 0 {
			return batch, nil
		}
		if time.Now().After(deadline) {
			return nil, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollEvery):
		}
	}
}

// claim marks up to max visible messages in flight and returns copies.
func (b *Backend) claim(queueURL string, max int) []backend.Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	var batch []backend.Message
	for _, m := range b.queue(queueURL).messages {
		if len(batch) >= max {
			break
		}
		if !visible(m, now) {
			continue
		}
		m.inFlight = true
		m.visibleAt = now.Add(b.visibility)
		m.receipt = uuid.NewString()
		batch = append(batch, backend.Message{
			ID:            m.id,
			Body:          append([]byte(nil), m.body...),
			ReceiptHandle: m.receipt,
		})
	}
	b.deliveredCount += len(batch)
	return batch
}

// Delete removes the message matching the receipt handle. A stale
// handle (the delivery's visibility expired and the message was handed
// out again) deletes nothing, as with the real backend.
func (b *Backend) Delete(_ context.Context, queueURL, receiptHandle string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	q := b.queue(queueURL)
	for i, m := range q.messages {
		if m.inFlight && m.receipt == receiptHandle {
			q.messages = append(q.messages[:i], q.messages[i+1:]...)
			b.deletedCount++
			return nil
		}
	}
	return nil
}

// Purge removes every message from the queue.
func (b *Backend) Purge(_ context.Context, queueURL string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue(queueURL).messages = nil
	return nil
}

func visible(m *message, now time.Time) bool {
	return !m.inFlight || now.After(m.visibleAt)
}

// Remaining returns how many messages are stored for the queue,
// visible or not.
func (b *Backend) Remaining(queueURL string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue(queueURL).messages)
}

// Delivered returns the total number of deliveries handed out,
// redeliveries included.
func (b *Backend) Delivered() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.deliveredCount
}

// Deleted returns the total number of successful deletes.
func (b *Backend) Deleted() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.deletedCount
}

// MaxConcurrentReceives returns the high-water mark of receive calls
// outstanding at once.
func (b *Backend) MaxConcurrentReceives() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.maxReceiving
}

// MaxBatchRequested returns the largest max-messages value any receive
// call asked for.
func (b *Backend) MaxBatchRequested() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.maxBatchAsked
}
