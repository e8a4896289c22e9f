package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/caseflow-dev/caseflow/internal/blocking"
	"github.com/caseflow-dev/caseflow/internal/models"
	"github.com/caseflow-dev/caseflow/internal/notify"
	"gorm.io/gorm"
)

// validTaskStatuses is the task status vocabulary. Transitions between them
// are unrestricted except for the blocking guard on in_progress/completed.
var validTaskStatuses = map[string]bool{
	models.TaskPending:    true,
	models.TaskBlocked:    true,
	models.TaskInProgress: true,
	models.TaskPaused:     true,
	models.TaskCompleted:  true,
	models.TaskCancelled:  true,
}

// ChangeTaskStatus moves a task to a new status. Moving a blocked task to
// in_progress or completed is rejected with an error naming the blocking
// dependency. Completion recomputes the parent's progress, re-resolves every
// dependent task, appends case history when case-linked, and emits a
// completion notification. Reverting a completed task re-resolves dependents
// the same way, so a reopened predecessor re-blocks them immediately.
func ChangeTaskStatus(db *gorm.DB, taskID, newStatus string, actor *models.User, sink notify.Sink) Result {
	if !validTaskStatuses[newStatus] {
		return fail(&ValidationError{Message: fmt.Sprintf("unknown task status %q", newStatus)})
	}

	var task models.Task
	if err := db.Where("id = ?", taskID).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(&ValidationError{Message: "task not found: " + taskID})
		}
		return fail(fmt.Errorf("workflow: get task %s: %w", taskID, err))
	}

	if newStatus == models.TaskInProgress || newStatus == models.TaskCompleted {
		// Resolve live rather than trusting the cached flag, so a stale
		// is_blocked never wrongly denies or allows the transition.
		blocked, pred, err := blocking.Resolve(db, &task)
		if err != nil {
			return fail(err)
		}
		if blocked {
			return fail(&PermissionError{Message: fmt.Sprintf(
				"task %s cannot move to %s: blocked by %s %s (%s)",
				taskID, newStatus, pred.Kind, pred.ID, pred.Title)})
		}
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		updates := map[string]interface{}{"status": newStatus}
		if newStatus == models.TaskInProgress && task.StartedAt == nil {
			updates["started_at"] = now
		}
		if newStatus == models.TaskCompleted {
			updates["completed_at"] = now
			updates["progress"] = 100
			updates["is_blocked"] = false
			updates["blocked_reason"] = ""
		}
		reverting := task.Status == models.TaskCompleted && newStatus != models.TaskCompleted
		if reverting {
			updates["completed_at"] = nil
		}

		if err := tx.Model(&models.Task{}).Where("id = ?", taskID).Updates(updates).Error; err != nil {
			return fmt.Errorf("workflow: update task %s: %w", taskID, err)
		}

		if reverting {
			// Leaving completed changes the completion truth dependents
			// resolved against; re-resolve them now rather than at the sweep.
			if task.ParentID != nil {
				if err := recomputeParentProgress(tx, *task.ParentID); err != nil {
					return err
				}
			}
			// The reverted task loses its terminal override too.
			if err := blocking.Recompute(tx, taskID); err != nil {
				return err
			}
			return blocking.RecomputeDependents(tx, taskID)
		}

		if newStatus != models.TaskCompleted {
			return nil
		}

		if task.ParentID != nil {
			if err := recomputeParentProgress(tx, *task.ParentID); err != nil {
				return err
			}
		}
		if err := blocking.RecomputeDependents(tx, taskID); err != nil {
			return err
		}
		if task.CaseID != nil {
			if _, err := AppendHistory(tx, *task.CaseID, "", "", models.ActionTaskCompleted, actor.Username,
				fmt.Sprintf("task %s (%s) completed", task.ID, task.Title)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fail(err)
	}

	if newStatus == models.TaskCompleted && sink != nil {
		sink.Send(context.Background(), notify.Notification{
			Recipient: task.Assignee,
			TaskRef:   task.ID,
			Type:      "task_completed",
			Title:     "Task completed",
			Message:   task.Title,
			Priority:  "normal",
		})
	}

	return ok(fmt.Sprintf("task %s moved to %s", taskID, newStatus), map[string]interface{}{
		"task_id": taskID,
		"status":  newStatus,
	})
}

// recomputeParentProgress sets a parent task's progress to the share of its
// children that are completed.
func recomputeParentProgress(tx *gorm.DB, parentID string) error {
	var total, completed int64
	if err := tx.Model(&models.Task{}).Where("parent_id = ?", parentID).Count(&total).Error; err != nil {
		return fmt.Errorf("workflow: count children of %s: %w", parentID, err)
	}
	if total == 0 {
		return nil
	}
	if err := tx.Model(&models.Task{}).
		Where("parent_id = ? AND status = ?", parentID, models.TaskCompleted).
		Count(&completed).Error; err != nil {
		return fmt.Errorf("workflow: count completed children of %s: %w", parentID, err)
	}

	progress := int(completed * 100 / total)
	if err := tx.Model(&models.Task{}).Where("id = ?", parentID).
		Update("progress", progress).Error; err != nil {
		return fmt.Errorf("workflow: update parent %s progress: %w", parentID, err)
	}
	return nil
}
