// Package sqs implements backend.Client on Amazon SQS via
// aws-sdk-go-v2. The SDK client is consumed through the narrow API
// interface so tests can substitute a fake.
//
// Usage:
//
//	cfg, err := config.LoadDefaultConfig(ctx)
//	if err != nil { ... }
//	client := sqs.New(awssqs.NewFromConfig(cfg))
package sqs

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/xraph/intake/backend"
)

// Compile-time interface checks.
var (
	_ backend.Client = (*Client)(nil)
	_ API            = (*awssqs.Client)(nil)
)

// API is the subset of the SQS SDK client this package uses.
type API interface {
	GetQueueAttributes(ctx context.Context, in *awssqs.GetQueueAttributesInput, optFns ...func(*awssqs.Options)) (*awssqs.GetQueueAttributesOutput, error)
	ReceiveMessage(ctx context.Context, in *awssqs.ReceiveMessageInput, optFns ...func(*awssqs.Options)) (*awssqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, in *awssqs.DeleteMessageInput, optFns ...func(*awssqs.Options)) (*awssqs.DeleteMessageOutput, error)
	SendMessage(ctx context.Context, in *awssqs.SendMessageInput, optFns ...func(*awssqs.Options)) (*awssqs.SendMessageOutput, error)
	PurgeQueue(ctx context.Context, in *awssqs.PurgeQueueInput, optFns ...func(*awssqs.Options)) (*awssqs.PurgeQueueOutput, error)
}

// Client adapts an SQS SDK client to backend.Client. The caller owns
// the SDK client lifecycle.
type Client struct {
	api API
}

// New creates an SQS-backed queue client.
func New(api API) *Client {
	return &Client{api: api}
}

// GetAttributes fetches the approximate visible message count.
func (c *Client) GetAttributes(ctx context.Context, queueURL string) (backend.Attributes, error) {
	out, err := c.api.GetQueueAttributes(ctx, &awssqs.GetQueueAttributesInput{
		QueueUrl:       aws.String(queueURL),
		AttributeNames: []types.QueueAttributeName{types.QueueAttributeNameApproximateNumberOfMessages},
	})
	if err != nil {
		return backend.Attributes{}, fmt.Errorf("intake/sqs: get attributes: %w", err)
	}

	var attrs backend.Attributes
	if raw, ok := out.Attributes[string(types.QueueAttributeNameApproximateNumberOfMessages)]; ok {
		n, convErr := strconv.Atoi(raw)
		if convErr != nil {
			return backend.Attributes{}, fmt.Errorf("intake/sqs: parse approximate depth %q: %w", raw, convErr)
		}
		attrs.ApproximateDepth = n
	}
	return attrs, nil
}

// Receive long-polls for up to max messages. The wait duration is
// truncated to whole seconds, the SDK's granularity.
func (c *Client) Receive(ctx context.Context, queueURL string, max int, wait time.Duration) ([]backend.Message, error) {
	out, err := c.api.ReceiveMessage(ctx, &awssqs.ReceiveMessageInput{
		QueueUrl:            aws.String(queueURL),
		MaxNumberOfMessages: int32(max),
		WaitTimeSeconds:     int32(wait / time.Second),
	})
	if err != nil {
		return nil, fmt.Errorf("intake/sqs: receive: %w", err)
	}

	msgs := make([]backend.Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		msgs = append(msgs, backend.Message{
			ID:            aws.ToString(m.MessageId),
			Body:          []byte(aws.ToString(m.Body)),
			ReceiptHandle: aws.ToString(m.ReceiptHandle),
		})
	}
	return msgs, nil
}

// Delete acknowledges one delivery.
func (c *Client) Delete(ctx context.Context, queueURL, receiptHandle string) error {
	_, err := c.api.DeleteMessage(ctx, &awssqs.DeleteMessageInput{
		QueueUrl:      aws.String(queueURL),
		ReceiptHandle: aws.String(receiptHandle),
	})
	if err != nil {
		return fmt.Errorf("intake/sqs: delete: %w", err)
	}
	return nil
}

// Send enqueues one message.
func (c *Client) Send(ctx context.Context, queueURL string, body []byte) (string, error) {
	out, err := c.api.SendMessage(ctx, &awssqs.SendMessageInput{
		QueueUrl:    aws.String(queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return "", fmt.Errorf("intake/sqs: send: %w", err)
	}
	return aws.ToString(out.MessageId), nil
}

// Purge removes every message from the queue.
func (c *Client) Purge(ctx context.Context, queueURL string) error {
	_, err := c.api.PurgeQueue(ctx, &awssqs.PurgeQueueInput{
		QueueUrl: aws.String(queueURL),
	})
	if err != nil {
		return fmt.Errorf("intake/sqs: purge: %w", err)
	}
	return nil
}
