package workflow

import (
	"errors"
	"fmt"
	"time"

	"github.com/caseflow-dev/caseflow/internal/authz"
	"github.com/caseflow-dev/caseflow/internal/models"
	"github.com/caseflow-dev/caseflow/internal/syncjob"
	"gorm.io/gorm"
)

// RequestClosure opens a SAC closure-approval request for a case. Legal only
// while the case's closure status is open and no other pending request
// exists. The actor must be the assignee, the creator, or a department head.
// The request is auto-assigned to the SAC department head.
func RequestClosure(db *gorm.DB, caseID uint, actor *models.User, completionPct int) Result {
	c, err := loadCase(db, caseID)
	if err != nil {
		return fail(err)
	}

	if c.ClosureStatus != models.ClosureOpen {
		return fail(&StateConflictError{Message: fmt.Sprintf(
			"case %d closure status is %q, closure can only be requested while open", caseID, c.ClosureStatus)})
	}
	if !authz.CanRequestClosure(actor, c) {
		return fail(&PermissionError{Message: "only the assignee, the creator, or a department head can request closure"})
	}

	var pending int64
	if err := db.Model(&models.CaseClosureRequest{}).
		Where("case_id = ? AND status = ?", caseID, models.RequestPending).
		Count(&pending).Error; err != nil {
		return fail(fmt.Errorf("workflow: count pending requests for case %d: %w", caseID, err))
	}
	if pending > 0 {
		return fail(&StateConflictError{Message: fmt.Sprintf(
			"case %d already has a pending closure request", caseID)})
	}

	reviewer, err := sacReviewer(db)
	if err != nil {
		return fail(err)
	}

	var request models.CaseClosureRequest
	err = db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		request = models.CaseClosureRequest{
			CaseID:               c.ID,
			RequestedBy:          actor.Username,
			AssignedTo:           reviewer.Username,
			Status:               models.RequestPending,
			CompletionPercentage: completionPct,
		}
		if err := tx.Create(&request).Error; err != nil {
			return fmt.Errorf("workflow: create closure request for case %d: %w", caseID, err)
		}

		if err := casUpdate(tx, &models.Case{}, c.ID, c.LockVersion, map[string]interface{}{
			"closure_status":       models.ClosureRequested,
			"closure_requested_by": actor.Username,
			"closure_requested_at": now,
		}); err != nil {
			return err
		}

		hist, err := AppendHistory(tx, c.ID, models.ClosureOpen, models.ClosureRequested,
			models.ActionClosureRequested, actor.Username,
			fmt.Sprintf("assigned to %s", reviewer.Username))
		if err != nil {
			return err
		}

		_, err = syncjob.Enqueue(tx, syncjob.EnqueueOpts{
			EntityKind:   models.EntityCase,
			EntityID:     crmID(c),
			TargetStatus: models.ClosureRequested,
			HistoryID:    &hist.ID,
		})
		return err
	})
	if err != nil {
		return fail(err)
	}

	return ok(fmt.Sprintf("closure of case %d requested, assigned to %s", caseID, reviewer.Username),
		map[string]interface{}{
			"case_id":     caseID,
			"request_id":  request.ID,
			"assigned_to": reviewer.Username,
		})
}

// ApproveClosure approves a pending closure request. The actor must be able
// to approve closures (SAC) and be either the assigned reviewer or an admin.
// Request approval, closure status, and CRM-facing status commit atomically.
func ApproveClosure(db *gorm.DB, requestID uint, actor *models.User) Result {
	req, c, res := loadPendingRequest(db, requestID, actor)
	if res != nil {
		return *res
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		if err := casUpdate(tx, &models.CaseClosureRequest{}, req.ID, req.LockVersion, map[string]interface{}{
			"status":      models.RequestApproved,
			"reviewed_by": actor.Username,
			"reviewed_at": now,
		}); err != nil {
			return err
		}

		if err := casUpdate(tx, &models.Case{}, c.ID, c.LockVersion, map[string]interface{}{
			"closure_status": models.ClosureClosed,
			"status":         models.CaseStatusClosed,
		}); err != nil {
			return err
		}

		hist, err := AppendHistory(tx, c.ID, models.ClosureRequested, models.ClosureClosed,
			models.ActionClosureApproved, actor.Username, "")
		if err != nil {
			return err
		}

		_, err = syncjob.Enqueue(tx, syncjob.EnqueueOpts{
			EntityKind:   models.EntityCase,
			EntityID:     crmID(c),
			TargetStatus: models.ClosureClosed,
			HistoryID:    &hist.ID,
		})
		return err
	})
	if err != nil {
		return fail(err)
	}

	return ok(fmt.Sprintf("closure request %d approved, case %d closed", requestID, c.ID),
		map[string]interface{}{
			"request_id": requestID,
			"case_id":    c.ID,
		})
}

// RejectClosure rejects a pending closure request, reverting the case's
// closure status to open and clearing the request stamps.
func RejectClosure(db *gorm.DB, requestID uint, actor *models.User, reason string) Result {
	if reason == "" {
		return fail(&ValidationError{Message: "a rejection reason is required"})
	}

	req, c, res := loadPendingRequest(db, requestID, actor)
	if res != nil {
		return *res
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		if err := casUpdate(tx, &models.CaseClosureRequest{}, req.ID, req.LockVersion, map[string]interface{}{
			"status":           models.RequestRejected,
			"rejection_reason": reason,
			"reviewed_by":      actor.Username,
			"reviewed_at":      now,
		}); err != nil {
			return err
		}

		if err := casUpdate(tx, &models.Case{}, c.ID, c.LockVersion, map[string]interface{}{
			"closure_status":       models.ClosureOpen,
			"closure_requested_by": "",
			"closure_requested_at": nil,
		}); err != nil {
			return err
		}

		hist, err := AppendHistory(tx, c.ID, models.ClosureRequested, models.ClosureOpen,
			models.ActionClosureRejected, actor.Username, reason)
		if err != nil {
			return err
		}

		_, err = syncjob.Enqueue(tx, syncjob.EnqueueOpts{
			EntityKind:   models.EntityCase,
			EntityID:     crmID(c),
			TargetStatus: models.WorkflowPending,
			Reason:       reason,
			HistoryID:    &hist.ID,
		})
		return err
	})
	if err != nil {
		return fail(err)
	}

	return ok(fmt.Sprintf("closure request %d rejected", requestID), map[string]interface{}{
		"request_id": requestID,
		"case_id":    c.ID,
	})
}

// loadPendingRequest fetches a closure request and its case, checking the
// pending state and the reviewer permission. A non-nil Result means the
// caller should return it.
func loadPendingRequest(db *gorm.DB, requestID uint, actor *models.User) (*models.CaseClosureRequest, *models.Case, *Result) {
	var req models.CaseClosureRequest
	if err := db.First(&req, requestID).Error; err != nil {
		var r Result
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r = fail(&ValidationError{Message: fmt.Sprintf("closure request %d not found", requestID)})
		} else {
			r = fail(fmt.Errorf("workflow: get closure request %d: %w", requestID, err))
		}
		return nil, nil, &r
	}

	if req.Status != models.RequestPending {
		r := fail(&StateConflictError{Message: fmt.Sprintf(
			"closure request %d has already been %s", requestID, req.Status)})
		return nil, nil, &r
	}

	if !authz.CanApproveClosures(actor) {
		r := fail(&PermissionError{Message: "only SAC users can decide closure requests"})
		return nil, nil, &r
	}
	if req.AssignedTo != actor.Username && !authz.IsAdmin(actor) {
		r := fail(&PermissionError{Message: fmt.Sprintf(
			"closure request %d is assigned to %s", requestID, req.AssignedTo)})
		return nil, nil, &r
	}

	c, err := loadCase(db, req.CaseID)
	if err != nil {
		r := fail(err)
		return nil, nil, &r
	}
	return &req, c, nil
}

// sacReviewer finds the SAC department head, falling back to any SAC admin.
func sacReviewer(db *gorm.DB) (*models.User, error) {
	var head models.User
	err := db.Where("department = ? AND is_department_head = ? AND active = ?", models.DeptSAC, true, true).
		First(&head).Error
	if err == nil {
		return &head, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("workflow: find SAC head: %w", err)
	}

	err = db.Where("department = ? AND role = ? AND active = ?", models.DeptSAC, models.RoleAdmin, true).
		First(&head).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ValidationError{Message: "no SAC reviewer available to assign the closure request"}
		}
		return nil, fmt.Errorf("workflow: find SAC admin: %w", err)
	}
	return &head, nil
}
