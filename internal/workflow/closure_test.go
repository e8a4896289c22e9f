package workflow

import (
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/caseflow-dev/caseflow/internal/models"
)

func closureRequest(t *testing.T, db *gorm.DB, id uint) models.CaseClosureRequest {
	t.Helper()
	var req models.CaseClosureRequest
	if err := db.First(&req, id).Error; err != nil {
		t.Fatalf("get closure request %d: %v", id, err)
	}
	return req
}

func TestRequestClosure(t *testing.T) {
	db := openTestDB(t)
	mkUser(t, db, "sac_head", models.DeptSAC, models.RoleUser, true)
	assignee := mkUser(t, db, "alice", models.DeptSales, models.RoleUser, false)
	c := mkCase(t, db, "Case #200", func(c *models.Case) { c.Assignee = "alice" })

	res := RequestClosure(db, c.ID, assignee, 90)
	if !res.Success {
		t.Fatalf("request failed: %s", res.Message)
	}

	got := getCase(t, db, c.ID)
	if got.ClosureStatus != models.ClosureRequested {
		t.Errorf("ClosureStatus = %q, want closure_requested", got.ClosureStatus)
	}
	if got.ClosureRequestedBy != "alice" || got.ClosureRequestedAt == nil {
		t.Errorf("request stamps: by=%q at=%v", got.ClosureRequestedBy, got.ClosureRequestedAt)
	}

	reqID := res.Data["request_id"].(uint)
	req := closureRequest(t, db, reqID)
	if req.AssignedTo != "sac_head" {
		t.Errorf("AssignedTo = %q, want sac_head", req.AssignedTo)
	}
	if req.Status != models.RequestPending {
		t.Errorf("Status = %q, want pending", req.Status)
	}
	if req.CompletionPercentage != 90 {
		t.Errorf("CompletionPercentage = %d, want 90", req.CompletionPercentage)
	}
}

func TestRequestClosure_SACAdminFallback(t *testing.T) {
	db := openTestDB(t)
	// No SAC department head, only a SAC admin.
	mkUser(t, db, "sac_admin", models.DeptSAC, models.RoleAdmin, false)
	assignee := mkUser(t, db, "alice", models.DeptSales, models.RoleUser, false)
	c := mkCase(t, db, "case", func(c *models.Case) { c.Assignee = "alice" })

	res := RequestClosure(db, c.ID, assignee, 100)
	if !res.Success {
		t.Fatalf("request failed: %s", res.Message)
	}
	req := closureRequest(t, db, res.Data["request_id"].(uint))
	if req.AssignedTo != "sac_admin" {
		t.Errorf("AssignedTo = %q, want sac_admin", req.AssignedTo)
	}
}

func TestRequestClosure_SingleActiveRequest(t *testing.T) {
	db := openTestDB(t)
	mkUser(t, db, "sac_head", models.DeptSAC, models.RoleUser, true)
	assignee := mkUser(t, db, "alice", models.DeptSales, models.RoleUser, false)
	c := mkCase(t, db, "case", func(c *models.Case) { c.Assignee = "alice" })

	if res := RequestClosure(db, c.ID, assignee, 80); !res.Success {
		t.Fatalf("first request failed: %s", res.Message)
	}

	res := RequestClosure(db, c.ID, assignee, 80)
	if res.Success {
		t.Fatal("second pending request accepted")
	}
	var serr *StateConflictError
	if !errors.As(res.Err, &serr) {
		t.Errorf("Err = %T, want *StateConflictError", res.Err)
	}
}

func TestRequestClosure_Permission(t *testing.T) {
	db := openTestDB(t)
	mkUser(t, db, "sac_head", models.DeptSAC, models.RoleUser, true)
	outsider := mkUser(t, db, "mallory", models.DeptSales, models.RoleUser, false)
	c := mkCase(t, db, "case", func(c *models.Case) {
		c.Assignee = "alice"
		c.CreatedBy = "bob"
	})

	res := RequestClosure(db, c.ID, outsider, 50)
	if res.Success {
		t.Fatal("unrelated user requested closure")
	}
	var perr *PermissionError
	if !errors.As(res.Err, &perr) {
		t.Errorf("Err = %T, want *PermissionError", res.Err)
	}
}

func TestApproveClosure(t *testing.T) {
	db := openTestDB(t)
	reviewer := mkUser(t, db, "sac_head", models.DeptSAC, models.RoleUser, true)
	assignee := mkUser(t, db, "alice", models.DeptSales, models.RoleUser, false)
	c := mkCase(t, db, "case", func(c *models.Case) { c.Assignee = "alice" })

	req := RequestClosure(db, c.ID, assignee, 100)
	if !req.Success {
		t.Fatalf("request failed: %s", req.Message)
	}
	reqID := req.Data["request_id"].(uint)

	res := ApproveClosure(db, reqID, reviewer)
	if !res.Success {
		t.Fatalf("approve failed: %s", res.Message)
	}

	got := getCase(t, db, c.ID)
	if got.ClosureStatus != models.ClosureClosed {
		t.Errorf("ClosureStatus = %q, want closed", got.ClosureStatus)
	}
	if got.Status != models.CaseStatusClosed {
		t.Errorf("Status = %q, want Closed", got.Status)
	}

	r := closureRequest(t, db, reqID)
	if r.Status != models.RequestApproved {
		t.Errorf("request status = %q, want approved", r.Status)
	}
	if r.ReviewedBy != "sac_head" || r.ReviewedAt == nil {
		t.Errorf("review stamps: by=%q at=%v", r.ReviewedBy, r.ReviewedAt)
	}
}

func TestApproveClosure_Permissions(t *testing.T) {
	db := openTestDB(t)
	mkUser(t, db, "sac_head", models.DeptSAC, models.RoleUser, true)
	assignee := mkUser(t, db, "alice", models.DeptSales, models.RoleUser, false)
	otherSAC := mkUser(t, db, "sac2", models.DeptSAC, models.RoleUser, false)
	sacAdmin := mkUser(t, db, "sac_boss", models.DeptSAC, models.RoleAdmin, false)
	ops := mkUser(t, db, "ops1", models.DeptOperations, models.RoleUser, false)
	c := mkCase(t, db, "case", func(c *models.Case) { c.Assignee = "alice" })

	req := RequestClosure(db, c.ID, assignee, 100)
	reqID := req.Data["request_id"].(uint)

	// Not SAC at all.
	if res := ApproveClosure(db, reqID, ops); res.Success {
		t.Error("Operations user approved a closure")
	}
	// SAC but neither assigned reviewer nor admin.
	if res := ApproveClosure(db, reqID, otherSAC); res.Success {
		t.Error("unassigned SAC user approved a closure")
	}
	// SAC admin who is not the assigned reviewer.
	if res := ApproveClosure(db, reqID, sacAdmin); !res.Success {
		t.Errorf("SAC admin denied: %s", res.Message)
	}
}

func TestApproveClosure_AlreadyDecided(t *testing.T) {
	db := openTestDB(t)
	reviewer := mkUser(t, db, "sac_head", models.DeptSAC, models.RoleUser, true)
	assignee := mkUser(t, db, "alice", models.DeptSales, models.RoleUser, false)
	c := mkCase(t, db, "case", func(c *models.Case) { c.Assignee = "alice" })

	req := RequestClosure(db, c.ID, assignee, 100)
	reqID := req.Data["request_id"].(uint)
	if res := ApproveClosure(db, reqID, reviewer); !res.Success {
		t.Fatalf("approve failed: %s", res.Message)
	}

	before := getCase(t, db, c.ID)
	res := ApproveClosure(db, reqID, reviewer)
	if res.Success {
		t.Fatal("approved an already-approved request")
	}
	var serr *StateConflictError
	if !errors.As(res.Err, &serr) {
		t.Errorf("Err = %T, want *StateConflictError", res.Err)
	}
	after := getCase(t, db, c.ID)
	if before.LockVersion != after.LockVersion || before.ClosureStatus != after.ClosureStatus {
		t.Error("case mutated by failed approval")
	}
}

func TestRejectClosure(t *testing.T) {
	db := openTestDB(t)
	reviewer := mkUser(t, db, "sac_head", models.DeptSAC, models.RoleUser, true)
	assignee := mkUser(t, db, "alice", models.DeptSales, models.RoleUser, false)
	c := mkCase(t, db, "case", func(c *models.Case) { c.Assignee = "alice" })

	req := RequestClosure(db, c.ID, assignee, 70)
	reqID := req.Data["request_id"].(uint)

	res := RejectClosure(db, reqID, reviewer, "tasks still open")
	if !res.Success {
		t.Fatalf("reject failed: %s", res.Message)
	}

	got := getCase(t, db, c.ID)
	if got.ClosureStatus != models.ClosureOpen {
		t.Errorf("ClosureStatus = %q, want open (reverted)", got.ClosureStatus)
	}
	if got.ClosureRequestedBy != "" || got.ClosureRequestedAt != nil {
		t.Errorf("request stamps not cleared: by=%q at=%v", got.ClosureRequestedBy, got.ClosureRequestedAt)
	}

	r := closureRequest(t, db, reqID)
	if r.Status != models.RequestRejected {
		t.Errorf("request status = %q, want rejected", r.Status)
	}
	if r.RejectionReason != "tasks still open" {
		t.Errorf("RejectionReason = %q", r.RejectionReason)
	}

	// A new request is allowed after rejection.
	if res := RequestClosure(db, c.ID, assignee, 100); !res.Success {
		t.Errorf("new request after rejection failed: %s", res.Message)
	}
}

func TestRejectClosure_RequiresReason(t *testing.T) {
	db := openTestDB(t)
	reviewer := mkUser(t, db, "sac_head", models.DeptSAC, models.RoleUser, true)
	assignee := mkUser(t, db, "alice", models.DeptSales, models.RoleUser, false)
	c := mkCase(t, db, "case", func(c *models.Case) { c.Assignee = "alice" })

	req := RequestClosure(db, c.ID, assignee, 70)
	reqID := req.Data["request_id"].(uint)

	res := RejectClosure(db, reqID, reviewer, "")
	if res.Success {
		t.Fatal("rejection accepted without a reason")
	}
	var verr *ValidationError
	if !errors.As(res.Err, &verr) {
		t.Errorf("Err = %T, want *ValidationError", res.Err)
	}
}

func TestRequestClosure_NoReviewerAvailable(t *testing.T) {
	db := openTestDB(t)
	assignee := mkUser(t, db, "alice", models.DeptSales, models.RoleUser, false)
	c := mkCase(t, db, "case", func(c *models.Case) { c.Assignee = "alice" })

	res := RequestClosure(db, c.ID, assignee, 100)
	if res.Success {
		t.Fatal("request succeeded with no SAC reviewer")
	}
}
