package models

import "time"

// Sync job statuses.
const (
	JobPending = "pending"
	JobRunning = "running"
	JobSynced  = "synced"
	JobFailed  = "failed"
)

// Entity kinds a sync job can target in the CRM.
const (
	EntityCase = "case"
	EntityTask = "task"
)

// SyncJob is a queued unit of work propagating a local workflow transition to
// the external CRM. Jobs retry up to the configured attempt limit and are
// marked failed permanently after that.
type SyncJob struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	EntityKind   string `gorm:"size:16;not null;index"`
	EntityID     string `gorm:"size:64;not null"`
	HistoryID    *uint  `gorm:"index"`
	TargetStatus string `gorm:"size:32;not null"`
	Reason       string `gorm:"type:text"`
	Status       string `gorm:"size:16;default:pending;index"`
	Attempts     int    `gorm:"default:0"`
	NotBefore    *time.Time
	LastError    string `gorm:"type:text"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
}
