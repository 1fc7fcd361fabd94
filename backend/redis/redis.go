// Package redis implements backend.Client on Redis for local
// development without an AWS account. The ready queue is a List,
// message bodies live in Hashes, and in-flight deliveries sit in a
// Sorted Set scored by their visibility deadline, so unacknowledged
// messages reappear the way they do on the real backend.
//
// Usage:
//
//	client := goredis.NewClient(&goredis.Options{Addr: "localhost:6379"})
//	b := redis.New(client)
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/intake/backend"
)

// Compile-time interface check.
var _ backend.Client = (*Backend)(nil)

const pollEvery = 100 * time.Millisecond

// Option configures the Backend.
type Option func(*Backend)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Backend) { b.logger = l }
}

// WithVisibilityTimeout sets how long a received message stays hidden
// before it becomes eligible for redelivery. Default 30s.
func WithVisibilityTimeout(d time.Duration) Option {
	return func(b *Backend) { b.visibility = d }
}

// Backend is a Redis-backed queue. The caller owns the Redis client
// lifecycle.
type Backend struct {
	client     goredis.Cmdable
	logger     *slog.Logger
	visibility time.Duration
}

// New creates a Redis-backed queue backend.
func New(client goredis.Cmdable, opts ...Option) *Backend {
	b := &Backend{
		client:     client,
		logger:     slog.Default(),
		visibility: 30 * time.Second,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// GetAttributes reports the ready-queue length. It doubles as the
// connectivity check, so a dead Redis fails here rather than at the
// first receive.
func (b *Backend) GetAttributes(ctx context.Context, queueURL string) (backend.Attributes, error) {
	n, err := b.client.LLen(ctx, readyKey(queueURL)).Result()
	if err != nil {
		return backend.Attributes{}, fmt.Errorf("intake/redis: get attributes: %w", err)
	}
	return backend.Attributes{ApproximateDepth: int(n)}, nil
}

// Send stores the body in a Hash and pushes the ID onto the ready List.
func (b *Backend) Send(ctx context.Context, queueURL string, body []byte) (string, error) {
	id := uuid.NewString()

	pipe := b.client.TxPipeline()
	pipe.HSet(ctx, msgKey(queueURL, id), "body", body)
	pipe.LPush(ctx, readyKey(queueURL), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("intake/redis: send: %w", err)
	}
	return id, nil
}

// Receive pops up to max ready messages, marking each in flight until
// its visibility deadline. Long polling is emulated client-side:
// expired in-flight deliveries are requeued, then the ready List is
// polled until wait elapses.
func (b *Backend) Receive(ctx context.Context, queueURL string, max int, wait time.Duration) ([]backend.Message, error) {
	deadline := time.Now().Add(wait)
	for {
		if err := b.requeueExpired(ctx, queueURL); err != nil {
			return nil, err
		}

		batch, err := b.claim(ctx, queueURL, max)
		if err != nil {
			return nil, err
		}
		if len(batch) > 0 {
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

func (b *Backend) claim(ctx context.Context, queueURL string, max int) ([]backend.Message, error) {
	ids, err := b.client.RPopCount(ctx, readyKey(queueURL), max).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("intake/redis: receive pop: %w", err)
	}

	now := time.Now()
	msgs := make([]backend.Message, 0, len(ids))
	for _, id := range ids {
		body, getErr := b.client.HGet(ctx, msgKey(queueURL, id), "body").Result()
		if getErr != nil {
			if errors.Is(getErr, goredis.Nil) {
				// Deleted out from under us; skip the ghost entry.
				continue
			}
			return nil, fmt.Errorf("intake/redis: receive body: %w", getErr)
		}

		receipt := uuid.NewString()
		score := float64(now.Add(b.visibility).UnixMilli())

		pipe := b.client.TxPipeline()
		pipe.ZAdd(ctx, inflightKey(queueURL), goredis.Z{Score: score, Member: receipt})
		pipe.HSet(ctx, receiptsKey(queueURL), receipt, id)
		if _, pErr := pipe.Exec(ctx); pErr != nil {
			return nil, fmt.Errorf("intake/redis: receive claim: %w", pErr)
		}

		msgs = append(msgs, backend.Message{
			ID:            id,
			Body:          []byte(body),
			ReceiptHandle: receipt,
		})
	}
	return msgs, nil
}

// requeueExpired moves deliveries whose visibility deadline has passed
// back onto the ready List.
func (b *Backend) requeueExpired(ctx context.Context, queueURL string) error {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	receipts, err := b.client.ZRangeByScore(ctx, inflightKey(queueURL), &goredis.ZRangeBy{
		Min: "-inf",
		Max: now,
	}).Result()
	if err != nil {
		return fmt.Errorf("intake/redis: expired scan: %w", err)
	}

	for _, receipt := range receipts {
		id, getErr := b.client.HGet(ctx, receiptsKey(queueURL), receipt).Result()
		if getErr != nil && !errors.Is(getErr, goredis.Nil) {
			return fmt.Errorf("intake/redis: expired lookup: %w", getErr)
		}

		pipe := b.client.TxPipeline()
		pipe.ZRem(ctx, inflightKey(queueURL), receipt)
		pipe.HDel(ctx, receiptsKey(queueURL), receipt)
		if getErr == nil {
			pipe.LPush(ctx, readyKey(queueURL), id)
		}
		if _, pErr := pipe.Exec(ctx); pErr != nil {
			return fmt.Errorf("intake/redis: requeue: %w", pErr)
		}

		b.logger.Info("requeued expired delivery",
			slog.String("queue", queueURL),
			slog.String("message_id", id),
		)
	}
	return nil
}

// Delete acknowledges a delivery by its receipt handle. A stale handle
// (the delivery already expired and was requeued) deletes nothing.
func (b *Backend) Delete(ctx context.Context, queueURL, receiptHandle string) error {
	id, err := b.client.HGet(ctx, receiptsKey(queueURL), receiptHandle).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil
		}
		return fmt.Errorf("intake/redis: delete lookup: %w", err)
	}

	pipe := b.client.TxPipeline()
	pipe.ZRem(ctx, inflightKey(queueURL), receiptHandle)
	pipe.HDel(ctx, receiptsKey(queueURL), receiptHandle)
	pipe.Del(ctx, msgKey(queueURL, id))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("intake/redis: delete: %w", err)
	}
	return nil
}

// Purge removes every message, ready or in flight.
func (b *Backend) Purge(ctx context.Context, queueURL string) error {
	ready, err := b.client.LRange(ctx, readyKey(queueURL), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("intake/redis: purge scan ready: %w", err)
	}
	inflight, err := b.client.HVals(ctx, receiptsKey(queueURL)).Result()
	if err != nil {
		return fmt.Errorf("intake/redis: purge scan inflight: %w", err)
	}

	pipe := b.client.TxPipeline()
	for _, id := range append(ready, inflight...) {
		pipe.Del(ctx, msgKey(queueURL, id))
	}
	pipe.Del(ctx, readyKey(queueURL), inflightKey(queueURL), receiptsKey(queueURL))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("intake/redis: purge: %w", err)
	}
	return nil
}
