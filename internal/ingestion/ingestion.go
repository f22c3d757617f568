// Package ingestion implements the ingestion pipeline of spec §4.5 (C5):
// single-item, batch, CSV and JSONL acceptance, normalisation, within-batch
// dedup, and enqueue of the downstream annotate stage.
package ingestion

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/feedback-intel/core/internal/apperr"
	"github.com/feedback-intel/core/internal/config"
	"github.com/feedback-intel/core/internal/domain"
	"github.com/feedback-intel/core/internal/langdetect"
	"github.com/feedback-intel/core/internal/platform/dbctx"
	"github.com/feedback-intel/core/internal/platform/logger"
	"github.com/feedback-intel/core/internal/queue"
	"github.com/feedback-intel/core/internal/repos"
	"github.com/feedback-intel/core/internal/textnorm"
)

const (
	MaxBatchItems    = 1000
	chunkSize        = 500
)

type Item struct {
	Source     string                 `json:"source"`
	Body       string                 `json:"body" form:"body"`
	CustomerID string                 `json:"customer_id,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

type Outcome struct {
	Index        int       `json:"index"`
	FeedbackID   *uuid.UUID `json:"feedback_id,omitempty"`
	Status       string    `json:"status"` // created | duplicate | error
	Error        string    `json:"error,omitempty"`
}

type UploadResult struct {
	BatchID  uuid.UUID           `json:"batch_id"`
	JobID    uuid.UUID           `json:"job_id"`
	Counters domain.BatchCounters `json:"counters"`
}

type Pipeline struct {
	log          *logger.Logger
	feedbackRepo repos.FeedbackRepo
	batchRepo    repos.BatchRepo
	q            queue.Queue
	englishOnly  bool
}

func New(log *logger.Logger, feedbackRepo repos.FeedbackRepo, batchRepo repos.BatchRepo, q queue.Queue, cfg config.Config) *Pipeline {
	return &Pipeline{
		log:          log.With("service", "IngestionPipeline"),
		feedbackRepo: feedbackRepo,
		batchRepo:    batchRepo,
		q:            q,
		englishOnly:  cfg.EnglishOnlyIngest,
	}
}

func buildFeedback(source, body, customerID string, metadata map[string]interface{}, batchID *uuid.UUID) *domain.Feedback {
	normalized := textnorm.Normalize(body)
	return &domain.Feedback{
		ID:             uuid.New(),
		Source:         source,
		CustomerID:     customerID,
		Body:           body,
		NormalizedText: normalized,
		Language:       langdetect.Detect(normalized),
		Metadata:       domain.JSONMap(metadata),
		BatchID:        batchID,
		CreatedAt:      time.Now().UTC(),
	}
}

// CreateOne persists a single feedback row and enqueues its annotate job
// synchronously with respect to the HTTP response (spec §4.5).
func (p *Pipeline) CreateOne(ctx context.Context, source, body, customerID string, metadata map[string]interface{}) (uuid.UUID, error) {
	if body == "" {
		return uuid.Nil, apperr.Validationf("body must not be empty")
	}
	if source == "" {
		source = "api"
	}
	f := buildFeedback(source, body, customerID, metadata, nil)
	dbc := dbctx.New(ctx)
	if err := p.feedbackRepo.Create(dbc, f); err != nil {
		return uuid.Nil, apperr.Wrap(apperr.Internal, "persist feedback", err)
	}
	job := domain.Job{ID: uuid.New(), Queue: domain.QueueAnnotate, FeedbackIDs: []uuid.UUID{f.ID}, EnqueuedAt: time.Now().UTC()}
	if err := p.q.Enqueue(ctx, job); err != nil {
		p.log.Warn("enqueue annotate job failed; annotation will wait for a future batch sweep", "feedback_id", f.ID, "error", err)
	}
	return f.ID, nil
}

// CreateBatch validates and inserts up to MaxBatchItems rows in a single
// transaction, returning per-item outcomes in input order (spec §4.5).
func (p *Pipeline) CreateBatch(ctx context.Context, items []Item) ([]Outcome, error) {
	if len(items) == 0 {
		return nil, apperr.Validationf("batch must contain at least one item")
	}
	if len(items) > MaxBatchItems {
		return nil, apperr.New(apperr.TooLarge, "batch exceeds maximum of 1000 items")
	}

	outcomes := make([]Outcome, len(items))
	toInsert := make([]*domain.Feedback, 0, len(items))
	seen := map[string]bool{}
	indexByFeedback := map[uuid.UUID]int{}

	for i, it := range items {
		if it.Body == "" {
			outcomes[i] = Outcome{Index: i, Status: "error", Error: "body must not be empty"}
			continue
		}
		source := it.Source
		if source == "" {
			source = "api"
		}
		f := buildFeedback(source, it.Body, it.CustomerID, it.Metadata, nil)
		key := f.DedupKey()
		if seen[key] {
			outcomes[i] = Outcome{Index: i, Status: "duplicate"}
			continue
		}
		seen[key] = true
		toInsert = append(toInsert, f)
		indexByFeedback[f.ID] = i
	}

	if len(toInsert) > 0 {
		if err := p.feedbackRepo.CreateMany(dbctx.New(ctx), toInsert); err != nil {
			return nil, apperr.Wrap(apperr.Internal, "persist feedback batch", err)
		}
	}

	if len(toInsert) > 0 {
		now := time.Now().UTC()
		feedbackIDs := make([]uuid.UUID, len(toInsert))
		for i, f := range toInsert {
			feedbackIDs[i] = f.ID
		}
		job := domain.Job{ID: uuid.New(), Queue: domain.QueueAnnotate, FeedbackIDs: feedbackIDs, EnqueuedAt: now}
		if err := p.q.Enqueue(ctx, job); err != nil {
			p.log.Warn("enqueue annotate job for batch failed", "error", err)
		}
	}

	for _, f := range toInsert {
		idx := indexByFeedback[f.ID]
		id := f.ID
		outcomes[idx] = Outcome{Index: idx, FeedbackID: &id, Status: "created"}
	}
	return outcomes, nil
}

// UploadCSV streams a CSV file row by row (source,body,customer_id columns
// expected; unrecognised columns ignored), deduping within the batch and
// persisting in chunks of 500 (spec §4.5).
func (p *Pipeline) UploadCSV(ctx context.Context, r io.Reader, source string) (UploadResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return UploadResult{}, apperr.Validationf("empty or unreadable csv upload")
	}
	col := columnIndex(header)

	return p.streamRows(ctx, source, func() (rawRow, bool, error) {
		record, err := reader.Read()
		if err == io.EOF {
			return rawRow{}, false, nil
		}
		if err != nil {
			return rawRow{}, false, err
		}
		row := rawRow{}
		if i, ok := col["body"]; ok && i < len(record) {
			row.Body = record[i]
		}
		if i, ok := col["customer_id"]; ok && i < len(record) {
			row.CustomerID = record[i]
		}
		if i, ok := col["source"]; ok && i < len(record) && record[i] != "" {
			row.Source = record[i]
		}
		return row, true, nil
	})
}

// UploadJSONL streams newline-delimited JSON objects, one feedback item
// per line (spec §4.5).
func (p *Pipeline) UploadJSONL(ctx context.Context, r io.Reader, source string) (UploadResult, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	return p.streamRows(ctx, source, func() (rawRow, bool, error) {
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			var it Item
			if err := json.Unmarshal(line, &it); err != nil {
				return rawRow{Body: "", malformed: true}, true, nil
			}
			return rawRow{Body: it.Body, CustomerID: it.CustomerID, Source: it.Source, Metadata: it.Metadata}, true, nil
		}
		return rawRow{}, false, scanner.Err()
	})
}

type rawRow struct {
	Body       string
	CustomerID string
	Source     string
	Metadata   map[string]interface{}
	malformed  bool
}

func columnIndex(header []string) map[string]int {
	out := make(map[string]int, len(header))
	for i, h := range header {
		out[h] = i
	}
	return out
}

// streamRows is shared by UploadCSV and UploadJSONL: it reads rows one at a
// time via next, dedupes within the batch, persists accepted rows in
// chunks of 500, and enqueues one ingest-stage job covering the whole batch
// on completion; that stage then enqueues the batch's annotate job.
func (p *Pipeline) streamRows(ctx context.Context, source string, next func() (rawRow, bool, error)) (UploadResult, error) {
	if source == "" {
		source = "upload"
	}
	batch := &domain.Batch{
		ID:         uuid.New(),
		Source:     source,
		ReceivedAt: time.Now().UTC(),
		Status:     "processing",
	}
	dbc := dbctx.New(ctx)
	if err := p.batchRepo.Create(dbc, batch); err != nil {
		return UploadResult{}, apperr.Wrap(apperr.Internal, "create batch", err)
	}

	var counters domain.BatchCounters
	seen := map[string]bool{}
	chunk := make([]*domain.Feedback, 0, chunkSize)

	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		if err := p.feedbackRepo.CreateMany(dbc, chunk); err != nil {
			return err
		}
		chunk = chunk[:0]
		return nil
	}

	for {
		row, ok, err := next()
		if err != nil {
			return UploadResult{}, apperr.Wrap(apperr.Validation, "parse upload", err)
		}
		if !ok {
			break
		}
		counters.Processed++
		if row.malformed || row.Body == "" {
			counters.Error++
			continue
		}
		normalized := textnorm.Normalize(row.Body)
		lang := langdetect.Detect(normalized)
		if p.englishOnly && !langdetect.IsEnglish(lang) {
			counters.SkippedNonEnglish++
			continue
		}
		rowSource := source
		if row.Source != "" {
			rowSource = row.Source
		}
		f := buildFeedback(rowSource, row.Body, row.CustomerID, row.Metadata, &batch.ID)
		key := f.DedupKey()
		if seen[key] {
			counters.Duplicate++
			continue
		}
		seen[key] = true
		counters.Created++
		chunk = append(chunk, f)
		if len(chunk) >= chunkSize {
			if err := flush(); err != nil {
				return UploadResult{}, apperr.Wrap(apperr.Internal, "persist upload chunk", err)
			}
		}
	}
	if err := flush(); err != nil {
		return UploadResult{}, apperr.Wrap(apperr.Internal, "persist final upload chunk", err)
	}

	if err := p.batchRepo.UpdateCounters(dbc, batch.ID, counters); err != nil {
		p.log.Warn("failed to persist batch counters", "batch_id", batch.ID, "error", err)
	}

	// The upload hands off to the ingest stage (C6) as a "raw-upload
	// notification" rather than enqueueing annotate directly: the stage
	// re-verifies that the batch's rows persisted before cascading to
	// annotate (spec §4.6). Normalisation already happened above.
	job := domain.Job{ID: uuid.New(), Queue: domain.QueueIngest, BatchID: &batch.ID, EnqueuedAt: time.Now().UTC()}
	if counters.Created > 0 {
		if err := p.q.Enqueue(ctx, job); err != nil {
			p.log.Warn("enqueue ingest-stage job for upload failed", "batch_id", batch.ID, "error", err)
		}
	}
	if err := p.batchRepo.SetJobID(dbc, batch.ID, job.ID); err != nil {
		p.log.Warn("failed to record job id on batch", "batch_id", batch.ID, "error", err)
	}
	if err := p.batchRepo.SetStatus(dbc, batch.ID, "received"); err != nil {
		p.log.Warn("failed to set batch status", "batch_id", batch.ID, "error", err)
	}

	return UploadResult{BatchID: batch.ID, JobID: job.ID, Counters: counters}, nil
}
