package domain

import (
	"time"

	"github.com/google/uuid"
)

// BatchCounters tracks per-row outcomes for an ingest batch (spec §3).
type BatchCounters struct {
	Processed          int `json:"processed_count"`
	Created            int `json:"created_count"`
	Duplicate          int `json:"duplicate_count"`
	Error              int `json:"error_count"`
	SkippedNonEnglish  int `json:"skipped_non_english_count"`
}

// Batch is an ingest file or bulk submission.
type Batch struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Source     string    `gorm:"type:varchar(64)" json:"source"`
	ReceivedAt time.Time `gorm:"not null" json:"received_at"`
	Counters   JSONMap   `gorm:"type:jsonb" json:"counters"`
	JobID      *uuid.UUID `gorm:"type:uuid;index" json:"job_id,omitempty"`
	Status     string    `gorm:"type:varchar(32);not null;default:'received'" json:"status"`
}

func (Batch) TableName() string { return "batch" }

func (b *Batch) SetCounters(c BatchCounters) {
	b.Counters = JSONMap{
		"processed_count":            c.Processed,
		"created_count":              c.Created,
		"duplicate_count":            c.Duplicate,
		"error_count":                c.Error,
		"skipped_non_english_count":  c.SkippedNonEnglish,
	}
}
