package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Feedback is one customer utterance, created by ingest and never mutated
// after insert except by admin-ordered deletion (spec §3).
type Feedback struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Source         string    `gorm:"type:varchar(64);not null;index" json:"source"`
	CustomerID     string    `gorm:"type:varchar(128);index" json:"customer_id,omitempty"`
	Body           string    `gorm:"type:text;not null" json:"text"`
	NormalizedText string    `gorm:"type:text;not null" json:"-"`
	Language       string    `gorm:"type:varchar(16)" json:"language,omitempty"`
	Metadata       JSONMap   `gorm:"type:jsonb" json:"metadata,omitempty"`
	BatchID        *uuid.UUID `gorm:"type:uuid;index" json:"batch_id,omitempty"`
	CreatedAt      time.Time  `gorm:"not null;index" json:"created_at"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Feedback) TableName() string { return "feedback" }

// DedupKey is the within-batch dedup key of spec §4.5: (normalised text,
// source, customer id).
func (f *Feedback) DedupKey() string {
	return f.NormalizedText + "\x00" + f.Source + "\x00" + f.CustomerID
}
