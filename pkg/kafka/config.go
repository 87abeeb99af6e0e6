package kafka

import "time"

// Config holds Kafka producer parameters.
type Config struct {
	ClientID string
	Brokers  []string

	// BatchTimeout bounds how long a partial batch waits before being flushed.
	BatchTimeout time.Duration
	// WriteTimeout bounds a single produce request.
	WriteTimeout time.Duration
	// RequireAll waits for every in-sync replica to acknowledge a write.
	RequireAll bool
}
