package workflow

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/caseflow-dev/caseflow/internal/authz"
	"github.com/caseflow-dev/caseflow/internal/models"
	"github.com/caseflow-dev/caseflow/internal/syncjob"
	"gorm.io/gorm"
)

// loadCase fetches a case or returns a taxonomy error.
func loadCase(db *gorm.DB, caseID uint) (*models.Case, error) {
	var c models.Case
	if err := db.First(&c, caseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ValidationError{Message: fmt.Sprintf("case %d not found", caseID)}
		}
		return nil, fmt.Errorf("workflow: get case %d: %w", caseID, err)
	}
	return &c, nil
}

// crmID returns the CRM-facing record id for a case.
func crmID(c *models.Case) string {
	if c.CRMID != "" {
		return c.CRMID
	}
	return strconv.FormatUint(uint64(c.ID), 10)
}

// HandoverToValidation moves a case from Sales into the Operations validation
// queue. Legal only from pending or an unset workflow status. Captures the
// original sales user on first handover, appends history, and enqueues a sync
// job, all in one transaction.
func HandoverToValidation(db *gorm.DB, caseID uint, actor *models.User) Result {
	c, err := loadCase(db, caseID)
	if err != nil {
		return fail(err)
	}

	if c.WorkflowStatus != "" && c.WorkflowStatus != models.WorkflowPending {
		return fail(&StateConflictError{Message: fmt.Sprintf(
			"case %d cannot be handed over from workflow status %q", caseID, c.WorkflowStatus)})
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		updates := map[string]interface{}{
			"workflow_status":         models.WorkflowInValidation,
			"pending_validation_at":   now,
			"validation_initiated_by": actor.Username,
		}
		if c.OriginalSalesUser == "" {
			updates["original_sales_user"] = actor.Username
		}
		if err := casUpdate(tx, &models.Case{}, c.ID, c.LockVersion, updates); err != nil {
			return err
		}

		hist, err := AppendHistory(tx, c.ID, c.WorkflowStatus, models.WorkflowInValidation,
			models.ActionHandoverToValidation, actor.Username, "")
		if err != nil {
			return err
		}

		_, err = syncjob.Enqueue(tx, syncjob.EnqueueOpts{
			EntityKind:   models.EntityCase,
			EntityID:     crmID(c),
			TargetStatus: models.WorkflowInValidation,
			HistoryID:    &hist.ID,
		})
		return err
	})
	if err != nil {
		return fail(err)
	}

	return ok(fmt.Sprintf("case %d handed over to validation", caseID), map[string]interface{}{
		"case_id":         caseID,
		"workflow_status": models.WorkflowInValidation,
	})
}

// ApproveValidation approves a case under validation. Operations only; legal
// only from in_validation. Forces the CRM-facing status to Closed.
func ApproveValidation(db *gorm.DB, caseID uint, actor *models.User) Result {
	c, err := loadCase(db, caseID)
	if err != nil {
		return fail(err)
	}

	if !authz.CanValidate(actor) {
		return fail(&PermissionError{Message: "only Operaciones users can approve validation"})
	}
	if c.WorkflowStatus != models.WorkflowInValidation {
		return fail(&StateConflictError{Message: fmt.Sprintf(
			"case %d is not in validation (workflow status %q)", caseID, c.WorkflowStatus)})
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		if err := casUpdate(tx, &models.Case{}, c.ID, c.LockVersion, map[string]interface{}{
			"workflow_status": models.WorkflowApproved,
			"approved_by":     actor.Username,
			"approved_at":     now,
			"status":          models.CaseStatusClosed,
		}); err != nil {
			return err
		}

		hist, err := AppendHistory(tx, c.ID, models.WorkflowInValidation, models.WorkflowApproved,
			models.ActionApprove, actor.Username, "")
		if err != nil {
			return err
		}

		_, err = syncjob.Enqueue(tx, syncjob.EnqueueOpts{
			EntityKind:   models.EntityCase,
			EntityID:     crmID(c),
			TargetStatus: models.WorkflowApproved,
			HistoryID:    &hist.ID,
		})
		return err
	})
	if err != nil {
		return fail(err)
	}

	return ok(fmt.Sprintf("case %d approved", caseID), map[string]interface{}{
		"case_id":         caseID,
		"workflow_status": models.WorkflowApproved,
	})
}

// RejectValidation rejects a case under validation. Operations only; a reason
// is required and travels with the sync payload. Reverts the CRM-facing
// status to Pending.
func RejectValidation(db *gorm.DB, caseID uint, actor *models.User, reason string) Result {
	if reason == "" {
		return fail(&ValidationError{Message: "a rejection reason is required"})
	}

	c, err := loadCase(db, caseID)
	if err != nil {
		return fail(err)
	}

	if !authz.CanValidate(actor) {
		return fail(&PermissionError{Message: "only Operaciones users can reject validation"})
	}
	if c.WorkflowStatus != models.WorkflowInValidation {
		return fail(&StateConflictError{Message: fmt.Sprintf(
			"case %d is not in validation (workflow status %q)", caseID, c.WorkflowStatus)})
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		if err := casUpdate(tx, &models.Case{}, c.ID, c.LockVersion, map[string]interface{}{
			"workflow_status":  models.WorkflowRejected,
			"rejected_by":      actor.Username,
			"rejected_at":      now,
			"rejection_reason": reason,
			"status":           models.CaseStatusPending,
		}); err != nil {
			return err
		}

		hist, err := AppendHistory(tx, c.ID, models.WorkflowInValidation, models.WorkflowRejected,
			models.ActionReject, actor.Username, reason)
		if err != nil {
			return err
		}

		_, err = syncjob.Enqueue(tx, syncjob.EnqueueOpts{
			EntityKind:   models.EntityCase,
			EntityID:     crmID(c),
			TargetStatus: models.WorkflowRejected,
			Reason:       reason,
			HistoryID:    &hist.ID,
		})
		return err
	})
	if err != nil {
		return fail(err)
	}

	return ok(fmt.Sprintf("case %d rejected", caseID), map[string]interface{}{
		"case_id":         caseID,
		"workflow_status": models.WorkflowRejected,
	})
}
