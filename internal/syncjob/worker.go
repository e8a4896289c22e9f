package syncjob

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/caseflow-dev/caseflow/internal/blocking"
	"github.com/caseflow-dev/caseflow/internal/crm"
	"github.com/caseflow-dev/caseflow/internal/models"
)

// Worker drains the sync queue against the external CRM.
type Worker struct {
	DB          *gorm.DB
	Client      crm.Client
	Sessions    *crm.SessionCache
	MaxAttempts int           // total attempts per job, default 3
	RetryDelay  time.Duration // release delay between attempts, default 300s
}

// NewWorker builds a worker with the configured retry policy.
func NewWorker(db *gorm.DB, client crm.Client, sessions *crm.SessionCache, maxAttempts int, retryDelay time.Duration) *Worker {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if retryDelay <= 0 {
		retryDelay = 300 * time.Second
	}
	return &Worker{
		DB:          db,
		Client:      client,
		Sessions:    sessions,
		MaxAttempts: maxAttempts,
		RetryDelay:  retryDelay,
	}
}

// ProcessDue runs every due job once and returns how many were processed.
func (w *Worker) ProcessDue(ctx context.Context) (int, error) {
	jobs, err := Due(w.DB, time.Now())
	if err != nil {
		return 0, err
	}
	for i := range jobs {
		if ctx.Err() != nil {
			return i, ctx.Err()
		}
		w.runJob(ctx, &jobs[i])
	}
	return len(jobs), nil
}

// runJob executes a single attempt of one job and updates job and history
// rows with the outcome.
func (w *Worker) runJob(ctx context.Context, job *models.SyncJob) {
	attempt := job.Attempts + 1
	if err := w.DB.Model(job).Updates(map[string]interface{}{
		"status":   models.JobRunning,
		"attempts": attempt,
	}).Error; err != nil {
		log.Printf("sync: job %d: claim failed: %v", job.ID, err)
		return
	}
	job.Attempts = attempt

	payload, err := w.push(ctx, job)
	if err != nil {
		w.failAttempt(job, err)
		return
	}

	now := time.Now()
	if err := w.DB.Model(job).Updates(map[string]interface{}{
		"status":       models.JobSynced,
		"completed_at": now,
		"last_error":   "",
	}).Error; err != nil {
		log.Printf("sync: job %d: mark synced failed: %v", job.ID, err)
		return
	}
	w.markHistory(job, models.SyncSynced, payload)
	log.Printf("sync: job %d: %s %s -> %s synced (attempt %d)", job.ID, job.EntityKind, job.EntityID, job.TargetStatus, job.Attempts)
}

// push validates the session (with a single refresh on invalidation) and
// performs the remote update. The only network I/O in the system happens here.
func (w *Worker) push(ctx context.Context, job *models.SyncJob) (string, error) {
	session, err := w.Sessions.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("session: %w", err)
	}

	valid, err := w.Client.ValidateSession(ctx, session)
	if err != nil {
		return "", fmt.Errorf("validate session: %w", err)
	}
	if !valid {
		// Exactly one refresh; a second invalid session fails the attempt.
		session, err = w.Sessions.Refresh(ctx)
		if err != nil {
			return "", fmt.Errorf("session refresh: %w", err)
		}
	}

	remote, ok := CRMStatus(job.TargetStatus)
	if !ok {
		return "", fmt.Errorf("no CRM mapping for status %q", job.TargetStatus)
	}

	fields := map[string]string{"status": remote}
	if job.Reason != "" {
		fields["description"] = job.Reason
	}

	payload, err := w.Client.UpdateEntity(ctx, session, moduleFor[job.EntityKind], job.EntityID, fields)
	if err != nil {
		return "", fmt.Errorf("update %s %s: %w", job.EntityKind, job.EntityID, err)
	}
	return payload, nil
}

// failAttempt releases the job for retry or marks it permanently failed.
func (w *Worker) failAttempt(job *models.SyncJob, cause error) {
	if job.Attempts >= w.MaxAttempts {
		if err := w.DB.Model(job).Updates(map[string]interface{}{
			"status":     models.JobFailed,
			"last_error": cause.Error(),
		}).Error; err != nil {
			log.Printf("sync: job %d: mark failed: %v", job.ID, err)
			return
		}
		w.markHistory(job, models.SyncFailed, cause.Error())
		log.Printf("sync: CRITICAL: job %d for %s %s permanently failed after %d attempts: %v",
			job.ID, job.EntityKind, job.EntityID, job.Attempts, cause)
		return
	}

	notBefore := time.Now().Add(w.RetryDelay)
	if err := w.DB.Model(job).Updates(map[string]interface{}{
		"status":     models.JobPending,
		"not_before": notBefore,
		"last_error": cause.Error(),
	}).Error; err != nil {
		log.Printf("sync: job %d: release for retry: %v", job.ID, err)
		return
	}
	w.markHistory(job, models.SyncFailed, cause.Error())
	log.Printf("sync: job %d: attempt %d/%d failed, retrying after %s: %v",
		job.ID, job.Attempts, w.MaxAttempts, w.RetryDelay, cause)
}

// markHistory updates the originating history row's sync sub-state. The row
// itself is append-only; its sync sub-state is the one mutable part.
func (w *Worker) markHistory(job *models.SyncJob, state, payload string) {
	if job.HistoryID == nil {
		return
	}
	if err := w.DB.Model(&models.CaseWorkflowHistory{}).
		Where("id = ?", *job.HistoryID).
		Updates(map[string]interface{}{
			"sync_status":  state,
			"sync_payload": payload,
		}).Error; err != nil {
		log.Printf("sync: job %d: history %d update: %v", job.ID, *job.HistoryID, err)
	}
}

// Run drives the worker on a cron schedule until the context is cancelled.
// pollSpec drains the queue; sweepSpec runs the blocking recompute sweep.
func (w *Worker) Run(ctx context.Context, pollSpec, sweepSpec string) error {
	c := cron.New()

	if _, err := c.AddFunc(pollSpec, func() {
		if n, err := w.ProcessDue(ctx); err != nil {
			log.Printf("sync: poll: %v", err)
		} else if n > 0 {
			log.Printf("sync: processed %d jobs", n)
		}
	}); err != nil {
		return fmt.Errorf("syncjob: poll spec %q: %w", pollSpec, err)
	}

	if sweepSpec != "" {
		if _, err := c.AddFunc(sweepSpec, func() {
			if n, err := blocking.Sweep(w.DB); err != nil {
				log.Printf("sync: blocking sweep: %v", err)
			} else {
				log.Printf("sync: blocking sweep recomputed %d tasks", n)
			}
		}); err != nil {
			return fmt.Errorf("syncjob: sweep spec %q: %w", sweepSpec, err)
		}
	}

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
