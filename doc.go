// Package intake is a consumption engine for remote message queues.
// It pulls work items under a caller-supplied concurrency budget and
// drives each through a resolve/ack-or-leave-for-redelivery lifecycle.
//
// Intake is designed as a library, not a service. Import it, pick a
// backend, and hand StartConsuming an ordinary Go function.
//
// # Quick Start
//
//	client := sqs.New(awssqs.NewFromConfig(cfg))
//	c, err := intake.New(queueURL, client, logger,
//	    intake.WithConcurrency(40),
//	)
//	if err != nil { ... }
//	if err := c.Init(ctx); err != nil { ... }
//	c.Start(func(ctx context.Context, j *intake.Job) error {
//	    return process(ctx, j)
//	})
//
// # Architecture
//
// A concurrency limit of L translates into L/10 parallel long-poll
// workers, each receiving batches of up to ten messages (the backend's
// per-request cap). Every message in a batch is dispatched
// concurrently; a handler that returns nil acknowledges its message,
// anything else leaves it for the backend's redelivery policy. The
// pool tops itself back up as cycles settle, with a heartbeat as the
// recovery path for cycles that vanish without settling.
//
// Backends live in backend/sqs (Amazon SQS), backend/redis (local
// development), and backend/memory (tests).
package intake
