package queue

// Option applies a configuration option to the InMemoryQueue.
type Option func(*InMemoryQueue)

// WithCapacity sets the maximum number of pending jobs.
func WithCapacity(capacity int) Option {
	return func(q *InMemoryQueue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}

// WithCoalescing controls whether a full queue replaces its oldest job with the
// new one (true, the default) or rejects the new job.
func WithCoalescing(enabled bool) Option {
	return func(q *InMemoryQueue) {
		q.coalesce = enabled
	}
}
