// Package syncjob propagates local workflow transitions to the external CRM
// through a database-backed queue of retryable jobs. Enqueueing is purely a
// local insert; all network I/O lives in the worker.
package syncjob

import (
	"fmt"
	"time"

	"github.com/caseflow-dev/caseflow/internal/models"
	"gorm.io/gorm"
)

// EnqueueOpts describes one unit of sync work.
type EnqueueOpts struct {
	EntityKind   string // models.EntityCase or models.EntityTask
	EntityID     string // CRM-facing record id
	TargetStatus string // local status vocabulary
	Reason       string // optional, carried in the remote payload
	HistoryID    *uint  // history row whose sync sub-state tracks this job
}

// Enqueue inserts a pending sync job. Call inside the same transaction as the
// workflow transition so the job commits with it; the triggering request
// never waits on the CRM.
func Enqueue(db *gorm.DB, opts EnqueueOpts) (*models.SyncJob, error) {
	if _, ok := moduleFor[opts.EntityKind]; !ok {
		return nil, fmt.Errorf("syncjob: unknown entity kind %q", opts.EntityKind)
	}
	if _, ok := CRMStatus(opts.TargetStatus); !ok {
		return nil, fmt.Errorf("syncjob: no CRM mapping for status %q", opts.TargetStatus)
	}

	job := models.SyncJob{
		EntityKind:   opts.EntityKind,
		EntityID:     opts.EntityID,
		HistoryID:    opts.HistoryID,
		TargetStatus: opts.TargetStatus,
		Reason:       opts.Reason,
		Status:       models.JobPending,
	}
	if err := db.Create(&job).Error; err != nil {
		return nil, fmt.Errorf("syncjob: enqueue %s %s: %w", opts.EntityKind, opts.EntityID, err)
	}
	return &job, nil
}

// Due returns pending jobs whose release time has passed, oldest first.
func Due(db *gorm.DB, now time.Time) ([]models.SyncJob, error) {
	var jobs []models.SyncJob
	if err := db.Where("status = ? AND (not_before IS NULL OR not_before <= ?)", models.JobPending, now).
		Order("created_at ASC").Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("syncjob: list due: %w", err)
	}
	return jobs, nil
}
