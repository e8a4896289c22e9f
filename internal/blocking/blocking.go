// Package blocking decides whether a task is blocked by incomplete
// predecessors. Resolution is a pure read; persistence of the cached
// is_blocked flag happens only through Recompute, which every mutation that
// can change a predecessor's completion is expected to call.
package blocking

import (
	"errors"
	"fmt"

	"github.com/caseflow-dev/caseflow/internal/depgraph"
	"github.com/caseflow-dev/caseflow/internal/models"
	"gorm.io/gorm"
)

// Resolve reports whether the task is blocked and, if so, returns the first
// incomplete predecessor. A completed task is never blocked; a task with no
// predecessors is never blocked. Otherwise the task is blocked iff any
// predecessor is not completed.
func Resolve(db *gorm.DB, task *models.Task) (bool, *depgraph.Predecessor, error) {
	if task.Status == models.TaskCompleted {
		return false, nil, nil
	}

	preds, err := depgraph.Predecessors(db, task.ID)
	if err != nil {
		return false, nil, err
	}
	for i := range preds {
		if preds[i].Status != models.TaskCompleted {
			return true, &preds[i], nil
		}
	}
	return false, nil, nil
}

// Reason renders the blocked_reason text for a blocking predecessor.
func Reason(p *depgraph.Predecessor) string {
	return fmt.Sprintf("waiting on preceding %s %s (%s)", p.Kind, p.ID, p.Title)
}

// Recompute resolves the task's blocking state and persists is_blocked and
// blocked_reason. A task that becomes blocked moves to status blocked unless
// it is already completed or cancelled; a blocked task whose predecessors all
// completed moves back to pending.
func Recompute(db *gorm.DB, taskID string) error {
	var task models.Task
	if err := db.Where("id = ?", taskID).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("blocking: task not found: %s", taskID)
		}
		return fmt.Errorf("blocking: get %s: %w", taskID, err)
	}

	blocked, pred, err := Resolve(db, &task)
	if err != nil {
		return err
	}

	updates := map[string]interface{}{
		"is_blocked":     blocked,
		"blocked_reason": "",
	}
	if blocked {
		updates["blocked_reason"] = Reason(pred)
		if task.Status != models.TaskCompleted && task.Status != models.TaskCancelled {
			updates["status"] = models.TaskBlocked
		}
	} else if task.Status == models.TaskBlocked {
		updates["status"] = models.TaskPending
	}

	if err := db.Model(&models.Task{}).Where("id = ?", taskID).Updates(updates).Error; err != nil {
		return fmt.Errorf("blocking: recompute %s: %w", taskID, err)
	}
	return nil
}

// RecomputeDependents re-resolves every task that directly depends on taskID.
// Called after a predecessor completes or reverts.
func RecomputeDependents(db *gorm.DB, taskID string) error {
	deps, err := depgraph.Dependents(db, taskID)
	if err != nil {
		return err
	}
	for _, id := range deps {
		if err := Recompute(db, id); err != nil {
			return err
		}
	}
	return nil
}

// Sweep recomputes blocking state for every task that is not in a terminal
// status. Run on a schedule to heal any missed recompute call sites.
func Sweep(db *gorm.DB) (int, error) {
	var ids []string
	if err := db.Model(&models.Task{}).
		Where("status NOT IN ?", []string{models.TaskCompleted, models.TaskCancelled}).
		Pluck("id", &ids).Error; err != nil {
		return 0, fmt.Errorf("blocking: sweep: %w", err)
	}
	for _, id := range ids {
		if err := Recompute(db, id); err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}
