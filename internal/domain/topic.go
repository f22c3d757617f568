package domain

import "time"

// UnassignedTopicID is the sentinel topic that absorbs annotations whose
// topic was deleted by an admin (spec §3 Topic lifecycle).
const UnassignedTopicID uint = 1

// Topic is a named cluster of semantically related feedback.
type Topic struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	Label     string      `gorm:"type:varchar(256);not null" json:"label"`
	Keywords  StringSlice `gorm:"type:jsonb" json:"keywords"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `gorm:"not null" json:"updated_at"`
}

func (Topic) TableName() string { return "topic" }
