// Package backend defines the queue backend contract the consumer is
// built against. Implementations live in subpackages: backend/sqs for
// Amazon SQS, backend/redis for a Redis-backed development queue, and
// backend/memory for tests.
package backend

import (
	"context"
	"time"
)

// Message is one delivery received from the backend.
type Message struct {
	// ID is the backend-assigned message identifier. Stable across
	// redeliveries of the same message.
	ID string

	// Body is the raw message payload.
	Body []byte

	// ReceiptHandle is the opaque completion token for this particular
	// delivery. Required to delete the message; valid only until the
	// delivery's visibility timeout expires.
	ReceiptHandle string
}

// Attributes is the subset of queue attributes the consumer reads at
// initialization.
type Attributes struct {
	// ApproximateDepth is the backend's estimate of visible messages.
	ApproximateDepth int
}

// Client is the queue backend. All methods are safe for concurrent use.
// Implementations own transport-level concerns (signing, retries);
// callers treat every error as opaque.
type Client interface {
	// GetAttributes confirms connectivity and reports queue attributes.
	GetAttributes(ctx context.Context, queueURL string) (Attributes, error)

	// Receive long-polls for up to max messages, blocking server-side
	// up to wait. An empty batch is not an error.
	Receive(ctx context.Context, queueURL string, max int, wait time.Duration) ([]Message, error)

	// Delete acknowledges one delivery by its receipt handle.
	// Idempotent at the backend; failures are non-fatal to callers
	// under at-least-once semantics.
	Delete(ctx context.Context, queueURL, receiptHandle string) error

	// Send enqueues one message and returns its backend-assigned ID.
	Send(ctx context.Context, queueURL string, body []byte) (string, error)

	// Purge removes every message from the queue. Administrative.
	Purge(ctx context.Context, queueURL string) error
}
