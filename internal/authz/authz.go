// Package authz centralizes the department/role capability checks used by the
// workflow state machine, so call sites never compare department strings
// directly.
package authz

import "github.com/caseflow-dev/caseflow/internal/models"

// CanValidate reports whether the user may approve or reject a case in the
// Sales → Operations validation workflow.
func CanValidate(u *models.User) bool {
	return u.Department == models.DeptOperations
}

// CanApproveClosures reports whether the user may decide closure requests.
func CanApproveClosures(u *models.User) bool {
	return u.Department == models.DeptSAC
}

// IsDepartmentHead reports whether the user heads their department.
func IsDepartmentHead(u *models.User) bool {
	return u.IsDepartmentHead
}

// IsAdmin reports whether the user carries the admin role.
func IsAdmin(u *models.User) bool {
	return u.Role == models.RoleAdmin
}

// CanRequestClosure reports whether the user may request closure of the given
// case: the assignee, the creator, or any department head.
func CanRequestClosure(u *models.User, c *models.Case) bool {
	return c.Assignee == u.Username || c.CreatedBy == u.Username || u.IsDepartmentHead
}
