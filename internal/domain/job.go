package domain

import (
	"time"

	"github.com/google/uuid"
)

// QueueName enumerates the four named queues of spec §4.3.
type QueueName string

const (
	QueueIngest   QueueName = "ingest"
	QueueAnnotate QueueName = "annotate"
	QueueCluster  QueueName = "cluster"
	QueueReports  QueueName = "reports"
)

// Job is the payload carried through the queue adapter. BatchID covers
// batch-shaped uploads (CSV/JSONL); FeedbackIDs covers single- and
// array-ingestion jobs that were never assigned a batch row. A job carries
// exactly one of the two. Reports jobs carry the same BatchID/FeedbackIDs
// as the cluster job that produced them; no stage sets WindowFrom or
// WindowTo, so reports jobs carry no date-range window.
type Job struct {
	ID          uuid.UUID   `json:"id"`
	Queue       QueueName   `json:"queue"`
	BatchID     *uuid.UUID  `json:"batch_id,omitempty"`
	FeedbackIDs []uuid.UUID `json:"feedback_ids,omitempty"`
	WindowFrom  *time.Time  `json:"window_from,omitempty"`
	WindowTo    *time.Time  `json:"window_to,omitempty"`
	Attempt     int         `json:"attempt"`
	EnqueuedAt  time.Time   `json:"enqueued_at"`
}
