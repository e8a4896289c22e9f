// Package delegation coordinates the Sales → Operations handover of
// individual tasks: reassignment, ownership bookkeeping, and the matching
// CRM sync job.
package delegation

import (
	"context"
	"errors"
	"fmt"

	"github.com/caseflow-dev/caseflow/internal/models"
	"github.com/caseflow-dev/caseflow/internal/notify"
	"github.com/caseflow-dev/caseflow/internal/syncjob"
	"github.com/caseflow-dev/caseflow/internal/workflow"
	"gorm.io/gorm"
)

// DelegateToOperations hands a task over to an Operations user. The original
// sales owner is captured once on first delegation and never overwritten, so
// a re-delegation keeps pointing at the user who sourced the work. The
// transition, its history row, and the sync job commit in one transaction.
func DelegateToOperations(db *gorm.DB, taskID, targetUsername string, actor *models.User, reason string, sink notify.Sink) workflow.Result {
	var task models.Task
	if err := db.Where("id = ?", taskID).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return failResult(&workflow.ValidationError{Message: "task not found: " + taskID})
		}
		return failResult(fmt.Errorf("delegation: get task %s: %w", taskID, err))
	}

	var target models.User
	if err := db.Where("username = ?", targetUsername).First(&target).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return failResult(&workflow.ValidationError{Message: "target user not found: " + targetUsername})
		}
		return failResult(fmt.Errorf("delegation: get user %s: %w", targetUsername, err))
	}
	if target.Department != models.DeptOperations {
		return failResult(&workflow.PermissionError{Message: fmt.Sprintf(
			"cannot delegate to %s: user is in %s, delegation targets must be in %s",
			targetUsername, target.Department, models.DeptOperations)})
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"assignee":          target.Username,
			"delegation_status": models.DelegationDelegated,
		}
		if task.OriginalSalesUser == "" {
			updates["original_sales_user"] = actor.Username
		}
		if err := tx.Model(&models.Task{}).Where("id = ?", taskID).Updates(updates).Error; err != nil {
			return fmt.Errorf("delegation: update task %s: %w", taskID, err)
		}

		if task.CaseID != nil {
			if _, err := workflow.AppendHistory(tx, *task.CaseID, "", "", models.ActionDelegate, actor.Username,
				fmt.Sprintf("task %s delegated to %s: %s", task.ID, target.Username, reason)); err != nil {
				return err
			}
		}
		if _, err := syncjob.Enqueue(tx, syncjob.EnqueueOpts{
			EntityKind:   models.EntityTask,
			EntityID:     task.ID,
			TargetStatus: models.DelegationDelegated,
			Reason:       reason,
		}); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return failResult(err)
	}

	if sink != nil {
		sink.Send(context.Background(), notify.Notification{
			Recipient: target.Username,
			TaskRef:   task.ID,
			Type:      "task_delegated",
			Title:     "Task delegated to you",
			Message:   fmt.Sprintf("%s (from %s)", task.Title, actor.Username),
			Priority:  "high",
		})
	}

	return workflow.Result{
		Success: true,
		Message: fmt.Sprintf("task %s delegated to %s", taskID, target.Username),
		Data: map[string]interface{}{
			"task_id":  task.ID,
			"assignee": target.Username,
		},
	}
}

// CompleteDelegated finishes a delegated task on behalf of Operations. The
// task must currently be delegated; completion runs through the regular task
// state machine, so the blocking guard and completion side effects apply. The
// status change and the delegation bookkeeping commit in one transaction.
func CompleteDelegated(db *gorm.DB, taskID string, actor *models.User, sink notify.Sink) workflow.Result {
	var task models.Task
	if err := db.Where("id = ?", taskID).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return failResult(&workflow.ValidationError{Message: "task not found: " + taskID})
		}
		return failResult(fmt.Errorf("delegation: get task %s: %w", taskID, err))
	}
	if task.DelegationStatus != models.DelegationDelegated {
		return failResult(&workflow.StateConflictError{Message: fmt.Sprintf(
			"task %s is not delegated (delegation status %q)", taskID, task.DelegationStatus)})
	}

	// One transaction: a failure marking the delegation also rolls back the
	// completion, so status and delegation_status never disagree.
	var res workflow.Result
	txErr := db.Transaction(func(tx *gorm.DB) error {
		res = workflow.ChangeTaskStatus(tx, taskID, models.TaskCompleted, actor, sink)
		if !res.Success {
			if res.Err != nil {
				return res.Err
			}
			return errors.New(res.Message)
		}
		if err := tx.Model(&models.Task{}).Where("id = ?", taskID).
			Update("delegation_status", models.DelegationCompleted).Error; err != nil {
			return fmt.Errorf("delegation: mark %s completed: %w", taskID, err)
		}
		return nil
	})
	if txErr != nil {
		if !res.Success {
			return res
		}
		return failResult(txErr)
	}

	res.Message = fmt.Sprintf("delegated task %s completed", taskID)
	return res
}

func failResult(err error) workflow.Result {
	return workflow.Result{Success: false, Message: err.Error(), Err: err}
}
