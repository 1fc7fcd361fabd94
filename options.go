package intake

import "time"

// Option configures a Consumer.
type Option func(*Consumer)

// WithConcurrency sets the requested concurrency ceiling. See
// Config.Concurrency for the valid values.
func WithConcurrency(n int) Option {
	return func(c *Consumer) { c.config.Concurrency = n }
}

// WithWaitTime sets the long-poll wait per receive call.
func WithWaitTime(d time.Duration) Option {
	return func(c *Consumer) { c.config.WaitTime = d }
}

// WithHeartbeatInterval sets the orchestration heartbeat interval.
func WithHeartbeatInterval(d time.Duration) Option {
	return func(c *Consumer) { c.config.HeartbeatInterval = d }
}

// WithConfig replaces the whole configuration at once. Options applied
// after it still take effect.
func WithConfig(cfg Config) Option {
	return func(c *Consumer) { c.config = cfg }
}
