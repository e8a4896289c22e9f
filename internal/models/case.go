package models

import "time"

// Case validation workflow statuses (Sales ↔ Operations).
const (
	WorkflowPending      = "pending"
	WorkflowInValidation = "in_validation"
	WorkflowApproved     = "approved"
	WorkflowRejected     = "rejected"
)

// Case closure workflow statuses (SAC approval gate).
const (
	ClosureOpen      = "open"
	ClosureRequested = "closure_requested"
	ClosureClosed    = "closed"
)

// CRM-facing case statuses.
const (
	CaseStatusPending = "Pending"
	CaseStatusClosed  = "Closed"
)

// Case is a CRM-originated unit of customer work. WorkflowStatus and
// ClosureStatus are local workflow state, distinct from the CRM-facing Status.
type Case struct {
	ID                    uint   `gorm:"primaryKey;autoIncrement"`
	CRMID                 string `gorm:"size:64;index"`
	Subject               string `gorm:"not null"`
	Status                string `gorm:"size:32;default:Pending"`
	WorkflowStatus        string `gorm:"size:16;index"`
	ClosureStatus         string `gorm:"size:24;default:open;index"`
	Assignee              string `gorm:"size:64"`
	CreatedBy             string `gorm:"size:64"`
	OriginalSalesUser     string `gorm:"size:64"`
	ValidationInitiatedBy string `gorm:"size:64"`
	PendingValidationAt   *time.Time
	ApprovedBy            string `gorm:"size:64"`
	ApprovedAt            *time.Time
	RejectedBy            string `gorm:"size:64"`
	RejectedAt            *time.Time
	RejectionReason       string `gorm:"type:text"`
	ClosureRequestedBy    string `gorm:"size:64"`
	ClosureRequestedAt    *time.Time
	LockVersion           int `gorm:"default:0"`
	CreatedAt             time.Time
	UpdatedAt             time.Time

	Tasks           []Task                `gorm:"foreignKey:CaseID"`
	History         []CaseWorkflowHistory `gorm:"foreignKey:CaseID"`
	ClosureRequests []CaseClosureRequest  `gorm:"foreignKey:CaseID"`
}

// Closure request statuses.
const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestRejected = "rejected"
)

// CaseClosureRequest is the SAC approval gate: at most one pending request
// per case at a time.
type CaseClosureRequest struct {
	ID                   uint   `gorm:"primaryKey;autoIncrement"`
	CaseID               uint   `gorm:"not null;index"`
	RequestedBy          string `gorm:"size:64;not null"`
	AssignedTo           string `gorm:"size:64"`
	Status               string `gorm:"size:16;default:pending;index"`
	CompletionPercentage int    `gorm:"default:0"`
	RejectionReason      string `gorm:"type:text"`
	ReviewedBy           string `gorm:"size:64"`
	ReviewedAt           *time.Time
	LockVersion          int `gorm:"default:0"`
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// History actions.
const (
	ActionDelegate             = "delegate"
	ActionHandoverToValidation = "handover_to_validation"
	ActionApprove              = "approve"
	ActionReject               = "reject"
	ActionTaskCompleted        = "task_completed"
	ActionClosureRequested     = "closure_requested"
	ActionClosureApproved      = "closure_approved"
	ActionClosureRejected      = "closure_rejected"
)

// Sync sub-states for history rows.
const (
	SyncPending = "pending"
	SyncSynced  = "synced"
	SyncFailed  = "failed"
)

// CaseWorkflowHistory is the append-only audit log of case transitions.
// Rows are never mutated after insert except for their own sync sub-state.
type CaseWorkflowHistory struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	CaseID      uint   `gorm:"not null;index"`
	FromStatus  string `gorm:"size:24"`
	ToStatus    string `gorm:"size:24"`
	Action      string `gorm:"size:32;not null"`
	PerformedBy string `gorm:"size:64;not null"`
	Notes       string `gorm:"type:text"`
	SyncStatus  string `gorm:"size:16;default:pending;index"`
	SyncPayload string `gorm:"type:text"`
	CreatedAt   time.Time
}
