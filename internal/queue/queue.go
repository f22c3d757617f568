// Package queue implements the job queue adapter of spec §4.3 (C3): four
// named queues, FIFO per producer, at-least-once delivery, a per-message
// visibility timeout, and a dead-letter queue once attempts are exhausted.
package queue

import (
	"context"

	"github.com/feedback-intel/core/internal/domain"
)

const (
	DefaultVisibilityTimeoutSeconds = 120
	DefaultMaxAttempts              = 5
)

type Queue interface {
	// Enqueue schedules job for immediate delivery on its queue.
	Enqueue(ctx context.Context, job domain.Job) error

	// Dequeue claims the next visible job on queue, marking it invisible
	// until visibilityTimeoutSeconds elapses or Ack/Nack is called.
	// Returns (nil, false, nil) when nothing is ready.
	Dequeue(ctx context.Context, queue domain.QueueName, visibilityTimeoutSeconds int) (*domain.Job, bool, error)

	// Ack removes a successfully processed job from its queue.
	Ack(ctx context.Context, queue domain.QueueName, jobID string) error

	// Nack re-enqueues job for retry, or moves it to the dead-letter
	// queue if its attempt counter has reached maxAttempts.
	Nack(ctx context.Context, queue domain.QueueName, job domain.Job, maxAttempts int) error

	// DeadLetterLen reports the size of a queue's dead-letter list, used
	// by operator-facing health/stat endpoints.
	DeadLetterLen(ctx context.Context, queue domain.QueueName) (int64, error)
}
