// Package enrichment implements the four-stage enrichment pipeline of
// spec §4.6 (C6): ingest → annotate → cluster → reports, each a worker
// pool consuming one named queue, idempotent on replay.
package enrichment

import (
	"context"
	"time"

	"github.com/feedback-intel/core/internal/domain"
	"github.com/feedback-intel/core/internal/platform/logger"
	"github.com/feedback-intel/core/internal/queue"
)

// Handler processes one job from a queue. It must be idempotent: replaying
// a job whose effects are already present must no-op, not duplicate them.
type Handler func(ctx context.Context, job domain.Job) error

// Pool runs workerCount goroutines against one queue, claiming jobs with
// the given visibility timeout, dispatching to handler, and acking/nacking
// based on the outcome. Grounded on the teacher's worker.Worker poll-loop
// (ticker, panic recovery, per-worker goroutines), generalised from a
// single JobRunRepo to the per-queue Queue adapter.
type Pool struct {
	log                      *logger.Logger
	q                        queue.Queue
	queueName                domain.QueueName
	handler                  Handler
	workerCount              int
	visibilityTimeoutSeconds int
	maxAttempts              int
}

func NewPool(log *logger.Logger, q queue.Queue, queueName domain.QueueName, handler Handler, workerCount int) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	return &Pool{
		log:                      log.With("component", "EnrichmentWorkerPool", "queue", queueName),
		q:                        q,
		queueName:                queueName,
		handler:                  handler,
		workerCount:              workerCount,
		visibilityTimeoutSeconds: queue.DefaultVisibilityTimeoutSeconds,
		maxAttempts:              queue.DefaultMaxAttempts,
	}
}

func (p *Pool) Start(ctx context.Context) {
	p.log.Info("starting worker pool", "workers", p.workerCount)
	for i := 0; i < p.workerCount; i++ {
		go p.runLoop(ctx, i+1)
	}
}

func (p *Pool) runLoop(ctx context.Context, workerID int) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info("worker loop stopped", "worker_id", workerID)
			return
		case <-ticker.C:
			p.tick(ctx, workerID)
		}
	}
}

func (p *Pool) tick(ctx context.Context, workerID int) {
	job, ok, err := p.q.Dequeue(ctx, p.queueName, p.visibilityTimeoutSeconds)
	if err != nil {
		p.log.Warn("dequeue failed", "worker_id", workerID, "error", err)
		return
	}
	if !ok {
		return
	}

	p.runJob(ctx, workerID, *job)
}

func (p *Pool) runJob(ctx context.Context, workerID int, job domain.Job) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("job handler panic", "worker_id", workerID, "job_id", job.ID, "panic", r)
			if nackErr := p.q.Nack(ctx, p.queueName, job, p.maxAttempts); nackErr != nil {
				p.log.Error("nack after panic failed", "job_id", job.ID, "error", nackErr)
			}
		}
	}()

	if err := p.handler(ctx, job); err != nil {
		p.log.Warn("job handler failed; will retry or dead-letter", "worker_id", workerID, "job_id", job.ID, "attempt", job.Attempt, "error", err)
		if nackErr := p.q.Nack(ctx, p.queueName, job, p.maxAttempts); nackErr != nil {
			p.log.Error("nack failed", "job_id", job.ID, "error", nackErr)
		}
		return
	}
	if err := p.q.Ack(ctx, p.queueName, job.ID.String()); err != nil {
		p.log.Error("ack failed", "job_id", job.ID, "error", err)
	}
}
