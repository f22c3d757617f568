package domain

import (
	"time"

	"github.com/google/uuid"
)

// UnassignedPoolMember tracks a feedback item the cluster stage has not
// yet matched to an existing topic centroid. When the pool grows past the
// spawn threshold (default 50, spec §4.6), a new topic is synthesised
// from the pool's top keywords and the pool is drained.
type UnassignedPoolMember struct {
	ID         uint      `gorm:"primaryKey"`
	FeedbackID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	CreatedAt  time.Time
}

func (UnassignedPoolMember) TableName() string { return "unassigned_pool_member" }
