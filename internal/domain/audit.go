package domain

import "time"

// AuditAction enumerates the admin-mutation action tags of spec §3.
type AuditAction string

const (
	AuditRelabel   AuditAction = "relabel"
	AuditReassign  AuditAction = "reassign_feedback"
	AuditCreate    AuditAction = "create"
	AuditDelete    AuditAction = "delete"
	AuditCleanup   AuditAction = "cleanup_old_data"
)

// AuditEntry is an immutable record of an admin mutation. Append-only:
// never updated, never deleted (spec §3).
type AuditEntry struct {
	ID         uint        `gorm:"primaryKey"`
	TopicID    *uint       `gorm:"index" json:"topic_id,omitempty"`
	Action     AuditAction `gorm:"type:varchar(32);not null" json:"action"`
	Before     JSONMap     `gorm:"type:jsonb" json:"before,omitempty"`
	After      JSONMap     `gorm:"type:jsonb" json:"after,omitempty"`
	ActorSubject string    `gorm:"type:varchar(128)" json:"actor_subject"`
	ActorIP    string      `gorm:"type:varchar(64)" json:"actor_ip,omitempty"`
	ActorAgent string      `gorm:"type:varchar(256)" json:"actor_agent,omitempty"`
	CreatedAt  time.Time   `gorm:"not null;index" json:"created_at"`
}

func (AuditEntry) TableName() string { return "audit_entry" }
