package models

import (
	"time"

	"gorm.io/gorm"
)

// Task statuses.
const (
	TaskPending    = "pending"
	TaskBlocked    = "blocked"
	TaskInProgress = "in_progress"
	TaskPaused     = "paused"
	TaskCompleted  = "completed"
	TaskCancelled  = "cancelled"
)

// Delegation statuses.
const (
	DelegationPending   = "pending"
	DelegationDelegated = "delegated"
	DelegationCompleted = "completed"
)

// Task is the core work item. Milestones are tasks with IsMilestone set and
// act as dependency anchor points for other tasks.
type Task struct {
	ID                string `gorm:"primaryKey;size:32"`
	Title             string `gorm:"not null"`
	Description       string `gorm:"type:text"`
	Status            string `gorm:"size:16;default:pending;index"`
	Priority          int    `gorm:"default:2"`
	IsMilestone       bool   `gorm:"default:false"`
	Progress          int    `gorm:"default:0"`
	Assignee          string `gorm:"size:64"`
	OriginalSalesUser string `gorm:"size:64"`
	DelegationStatus  string `gorm:"size:16;default:pending"`
	FlowID            *uint  `gorm:"index"`
	CaseID            *uint  `gorm:"index"`
	ParentID          *string `gorm:"size:32"`
	IsBlocked         bool    `gorm:"default:false;index"`
	BlockedReason     string  `gorm:"type:text"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
	EstimatedStartAt  *time.Time
	EstimatedEndAt    *time.Time
	StartedAt         *time.Time
	CompletedAt       *time.Time
	DeletedAt         gorm.DeletedAt `gorm:"index"`

	Parent   *Task            `gorm:"foreignKey:ParentID"`
	Children []Task           `gorm:"foreignKey:ParentID"`
	Deps     []TaskDependency `gorm:"foreignKey:TaskID"`
}

// Dependency target kinds.
const (
	TargetTask      = "task"
	TargetMilestone = "milestone"
)

// TaskDependency is a directed edge: TaskID depends on DependsOnID.
// TargetKind records whether the predecessor is a plain task or a milestone.
type TaskDependency struct {
	TaskID      string `gorm:"primaryKey;size:32"`
	DependsOnID string `gorm:"primaryKey;size:32"`
	TargetKind  string `gorm:"size:16;default:task"`
	DepType     string `gorm:"size:24;default:finish_to_start"`

	Task      Task `gorm:"foreignKey:TaskID"`
	DependsOn Task `gorm:"foreignKey:DependsOnID"`
}
