package authz

import (
	"testing"

	"github.com/caseflow-dev/caseflow/internal/models"
)

func TestCanValidate(t *testing.T) {
	tests := []struct {
		department string
		want       bool
	}{
		{models.DeptOperations, true},
		{models.DeptSales, false},
		{models.DeptSAC, false},
		{"", false},
	}
	for _, tt := range tests {
		u := models.User{Username: "u", Department: tt.department}
		if got := CanValidate(&u); got != tt.want {
			t.Errorf("CanValidate(dept=%q) = %v, want %v", tt.department, got, tt.want)
		}
	}
}

func TestCanApproveClosures(t *testing.T) {
	u := models.User{Username: "sac1", Department: models.DeptSAC}
	if !CanApproveClosures(&u) {
		t.Error("SAC member should approve closures")
	}
	u.Department = models.DeptOperations
	if CanApproveClosures(&u) {
		t.Error("Operations member should not approve closures")
	}
}

func TestCanRequestClosure(t *testing.T) {
	c := models.Case{Assignee: "alice", CreatedBy: "bob"}

	tests := []struct {
		name string
		user models.User
		want bool
	}{
		{"assignee", models.User{Username: "alice"}, true},
		{"creator", models.User{Username: "bob"}, true},
		{"department head", models.User{Username: "carol", IsDepartmentHead: true}, true},
		{"unrelated user", models.User{Username: "dave"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanRequestClosure(&tt.user, &c); got != tt.want {
				t.Errorf("CanRequestClosure() = %v, want %v", got, tt.want)
			}
		})
	}
}
