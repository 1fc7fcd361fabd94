package intake

import "time"

// Config holds configuration for a Consumer.
type Config struct {
	// Concurrency is the requested ceiling on concurrently processed
	// messages. Valid values are 1-10 or any multiple of 10; each
	// block of ten is served by one long-poll worker.
	Concurrency int

	// WaitTime is the server-side long-poll wait per receive call.
	WaitTime time.Duration

	// HeartbeatInterval is how often the orchestrator re-checks that
	// enough receive cycles are in flight, independent of cycle
	// completions.
	HeartbeatInterval time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency:       1,
		WaitTime:          10 * time.Second,
		HeartbeatInterval: 10 * time.Second,
	}
}
