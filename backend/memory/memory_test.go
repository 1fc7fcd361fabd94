package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/xraph/intake/backend/memory"
)

const queueURL = "https://sqs.test.local/000000000000/widgets"

func TestSendReceiveDelete(t *testing.T) {
	b := memory.New()
	ctx := context.Background()

	id, err := b.Send(ctx, queueURL, []byte(`{"type":"a"}`))
	if err != nil {
		t.Fatalf("send error: %v", err)
	}
	if id == "" {
		t.Fatal("send returned empty message ID")
	}

	batch, err := b.Receive(ctx, queueURL, 10, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("receive error: %v", err)
	}
	if len(batch) != 1 {
		t.Fatalf("received %d messages, want 1", len(batch))
	}
	if batch[0].ID != id {
		t.Errorf("message ID = %q, want %q", batch[0].ID, id)
	}
	if string(batch[0].Body) != `{"type":"a"}` {
		t.Errorf("body = %s", batch[0].Body)
	}

	if err := b.Delete(ctx, queueURL, batch[0].ReceiptHandle); err != nil {
		t.Fatalf("delete error: %v", err)
	}
	if got := b.Remaining(queueURL); got != 0 {
		t.Errorf("remaining = %d, want 0", got)
	}
}

func TestReceive_EmptyQueueWaitsThenReturnsNil(t *testing.T) {
	b := memory.New()

	start := time.Now()
	batch, err := b.Receive(context.Background(), queueURL, 10, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("receive error: %v", err)
	}
	if len(batch) != 0 {
		t.Fatalf("received %d messages from empty queue", len(batch))
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("receive returned after %v, want at least the wait duration", elapsed)
	}
}

func TestReceive_LongPollReturnsEarly(t *testing.T) {
	b := memory.New()
	ctx := context.Background()

	go func() {
		time.Sleep(30 * time.Millisecond)
		b.Send(ctx, queueURL, []byte(`{}`)) //nolint:errcheck
	}()

	start := time.Now()
	batch, err := b.Receive(ctx, queueURL, 10, 2*time.Second)
	if err != nil {
		t.Fatalf("receive error: %v", err)
	}
	if len(batch) != 1 {
		t.Fatalf("received %d messages, want 1", len(batch))
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("long poll did not return early: %v", elapsed)
	}
}

func TestVisibilityTimeout_Redelivery(t *testing.T) {
	b := memory.New(memory.WithVisibilityTimeout(40 * time.Millisecond))
	ctx := context.Background()

	if _, err := b.Send(ctx, queueURL, []byte(`{}`)); err != nil {
		t.Fatalf("send error: %v", err)
	}

	first, err := b.Receive(ctx, queueURL, 10, 100*time.Millisecond)
	if err != nil || len(first) != 1 {
		t.Fatalf("first receive = %v, %v", first, err)
	}

	// Hidden while in flight.
	hidden, err := b.Receive(ctx, queueURL, 10, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("receive error: %v", err)
	}
	if len(hidden) != 0 {
		t.Fatalf("message visible during visibility timeout")
	}

	// Redelivered with a fresh receipt after the timeout.
	second, err := b.Receive(ctx, queueURL, 10, time.Second)
	if err != nil || len(second) != 1 {
		t.Fatalf("second receive = %v, %v", second, err)
	}
	if second[0].ReceiptHandle == first[0].ReceiptHandle {
		t.Error("redelivery reused the receipt handle")
	}
	if second[0].ID != first[0].ID {
		t.Error("redelivery changed the message ID")
	}

	// The stale handle no longer deletes.
	if err := b.Delete(ctx, queueURL, first[0].ReceiptHandle); err != nil {
		t.Fatalf("delete error: %v", err)
	}
	if got := b.Remaining(queueURL); got != 1 {
		t.Errorf("remaining after stale delete = %d, want 1", got)
	}
}

func TestGetAttributes_CountsVisibleOnly(t *testing.T) {
	b := memory.New()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := b.Send(ctx, queueURL, []byte(`{}`)); err != nil {
			t.Fatalf("send error: %v", err)
		}
	}

	if _, err := b.Receive(ctx, queueURL, 1, 100*time.Millisecond); err != nil {
		t.Fatalf("receive error: %v", err)
	}

	attrs, err := b.GetAttributes(ctx, queueURL)
	if err != nil {
		t.Fatalf("attributes error: %v", err)
	}
	if attrs.ApproximateDepth != 2 {
		t.Errorf("depth = %d, want 2", attrs.ApproximateDepth)
	}
}

func TestPurge(t *testing.T) {
	b := memory.New()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := b.Send(ctx, queueURL, []byte(`{}`)); err != nil {
			t.Fatalf("send error: %v", err)
		}
	}

	if err := b.Purge(ctx, queueURL); err != nil {
		t.Fatalf("purge error: %v", err)
	}
	if got := b.Remaining(queueURL); got != 0 {
		t.Errorf("remaining after purge = %d, want 0", got)
	}
}
