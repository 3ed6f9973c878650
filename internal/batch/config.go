// Package batch implements the dynamic batching scheduler: a rendezvous
// admission channel feeding a single driver goroutine that owns a FIFO queue,
// flushes fixed-size batches to the backend on a size or tick trigger, and
// routes per-request results back to the waiting callers.
package batch

import "time"

// Config holds the scheduler configuration.
type Config struct {
	// BatchSize is the maximum number of requests per backend call.
	BatchSize int `env:"BATCH_SIZE" envDefault:"8"`

	// TickDurationMS is the periodic flush interval in milliseconds.
	// Partial batches wait at most this long before being flushed.
	TickDurationMS int `env:"TICK_DURATION_MS" envDefault:"100"`
}

// normalized returns the config with non-positive values replaced by the
// defaults.
func (c Config) normalized() Config {
	if c.BatchSize < 1 {
		c.BatchSize = 8
	}
	if c.TickDurationMS < 1 {
		c.TickDurationMS = 100
	}
	return c
}

// TickDuration returns the flush interval as a time.Duration.
func (c Config) TickDuration() time.Duration {
	return time.Duration(c.TickDurationMS) * time.Millisecond
}
