package domain

import (
	"time"

	"github.com/google/uuid"
)

// Annotation is the enrichment record attached to a feedback. At most one
// live annotation exists per feedback (spec §3).
type Annotation struct {
	ID                uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	FeedbackID        uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex" json:"feedback_id"`
	SentimentClass    *int             `gorm:"type:smallint" json:"sentiment_class,omitempty"` // -1, 0, +1
	SentimentConfidence *float64       `gorm:"type:double precision" json:"sentiment_confidence,omitempty"`
	TopicID           *uint            `gorm:"index" json:"topic_id,omitempty"`
	ToxicityScore     *float64         `gorm:"type:double precision" json:"toxicity_score,omitempty"`
	Embedding         EmbeddingVector  `gorm:"type:jsonb" json:"-"`
	ModelVersion      string           `gorm:"type:varchar(64)" json:"model_version,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

func (Annotation) TableName() string { return "annotation" }

// HasSentiment reports whether the annotate stage has already run.
func (a *Annotation) HasSentiment() bool {
	return a.SentimentClass != nil
}

// HasEmbedding reports whether the cluster stage has already run.
func (a *Annotation) HasEmbedding() bool {
	return len(a.Embedding) > 0
}
