// Package job defines the message payload contract between producers
// and the consumer's handler.
//
// Message bodies are JSON envelopes. A body that does not unmarshal
// into the envelope is never handed to a handler; it is left on the
// queue for the backend's redelivery policy to deal with.
package job

import (
	"context"
	"encoding/json"
	"fmt"
)

// Job is the application payload carried in a message body.
type Job struct {
	// ID is an optional producer-assigned identifier.
	ID string `json:"id,omitempty"`

	// Type names the kind of work, for handlers that multiplex.
	Type string `json:"type,omitempty"`

	// Data is the type-specific payload, left raw for the handler
	// (or a HandlerFor wrapper) to unmarshal.
	Data json.RawMessage `json:"data,omitempty"`
}

// Handler processes one delivered job. Returning nil acknowledges the
// delivery; returning an error (or panicking) leaves it on the queue
// for redelivery.
type Handler func(ctx context.Context, j *Job) error

// Parse decodes a raw message body into a Job.
func Parse(body []byte) (*Job, error) {
	var j Job
	if err := json.Unmarshal(body, &j); err != nil {
		return nil, fmt.Errorf("intake/job: parse body: %w", err)
	}
	return &j, nil
}

// Marshal encodes a Job for enqueueing.
func Marshal(j *Job) ([]byte, error) {
	b, err := json.Marshal(j)
	if err != nil {
		return nil, fmt.Errorf("intake/job: marshal body: %w", err)
	}
	return b, nil
}

// HandlerFor wraps a typed handler. The job's Data field is
// JSON-unmarshaled into T before the typed handler runs; an
// unmarshalable Data is a handler failure, so the delivery is left for
// redelivery like any other failed job.
//
// This is a package-level generic function because Go does not allow
// generic methods on non-generic receiver types.
func HandlerFor[T any](fn func(ctx context.Context, j *Job, data T) error) Handler {
	return func(ctx context.Context, j *Job) error {
		var t T
		if len(j.Data) > 0 {
			if err := json.Unmarshal(j.Data, &t); err != nil {
				return fmt.Errorf("intake/job: unmarshal data for job %q: %w", j.Type, err)
			}
		}
		return fn(ctx, j, t)
	}
}
